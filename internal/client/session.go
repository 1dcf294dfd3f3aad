package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// DefaultURL is the assistant endpoint used when none is configured.
	DefaultURL = "ws://localhost:8000/ws"

	// CloseReason accompanies the normal-closure frame sent by Close.
	CloseReason = "Client closing"

	defaultChunkSize  = 4096
	defaultReadLimit  = 1 << 20
	defaultCloseGrace = 5 * time.Second
)

// State is the session lifecycle state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Option configures a Session.
type Option func(*Session)

// WithDialer replaces websocket.DefaultDialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(s *Session) { s.dialer = d }
}

// WithLogger sets the logger used for protocol tracing.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.log = l.With().Str("component", "session").Logger() }
}

// WithReadLimit caps the size of a single inbound message.
func WithReadLimit(n int64) Option {
	return func(s *Session) { s.readLimit = n }
}

// WithChunkSize sets how many bytes are handed to Receive per fragment.
func WithChunkSize(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// WithCloseGrace bounds how long the session waits for the peer to answer the
// close frame sent by Close. Non-positive values keep the default.
func WithCloseGrace(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.closeGrace = d
		}
	}
}

// Session owns one WebSocket connection to the assistant server. It assembles
// streamed fragments into messages, decodes envelopes and reports everything
// to its Handler.
type Session struct {
	url        string
	handler    Handler
	dialer     *websocket.Dialer
	log        zerolog.Logger
	readLimit  int64
	chunkSize  int
	closeGrace time.Duration

	mu      sync.Mutex // guards state, conn, closing
	state   State
	conn    *websocket.Conn
	closing bool

	bufMu sync.Mutex
	buf   strings.Builder

	writeMu sync.Mutex // serialises data frames

	emitMu   sync.Mutex // serialises handler calls
	finished bool       // Disconnected delivered; nothing may follow

	done     chan struct{}
	doneOnce sync.Once
}

// NewSession creates an idle session for the given WebSocket URL.
func NewSession(url string, h Handler, opts ...Option) *Session {
	s := &Session{
		url:        url,
		handler:    h,
		dialer:     websocket.DefaultDialer,
		log:        zerolog.Nop(),
		readLimit:  defaultReadLimit,
		chunkSize:  defaultChunkSize,
		closeGrace: defaultCloseGrace,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// URL returns the endpoint the session dials.
func (s *Session) URL() string { return s.url }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed once the session reaches its terminal state and the
// connection has been released.
func (s *Session) Done() <-chan struct{} { return s.done }

// Buffered returns the number of bytes held for the in-flight message.
func (s *Session) Buffered() int {
	s.bufMu.Lock()
	defer s.bufMu.Unlock()
	return s.buf.Len()
}

// Connect dials the server. On success the handler sees OnConnected and the
// read loop starts; on failure it sees OnError and the session is closed.
// The returned error is the one already delivered to the handler. Connect on
// a session that has left StateIdle only returns an error.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		st := s.state
		s.mu.Unlock()
		return newError(ErrConnection, "Connection failed", fmt.Errorf("session is %s", st))
	}
	s.state = StateConnecting
	s.mu.Unlock()

	s.log.Debug().Str("url", s.url).Msg("dialing")
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		s.mu.Lock()
		s.state = StateClosed
		s.mu.Unlock()
		s.markDone()
		e := newError(ErrConnection, "Connection failed", err)
		s.log.Warn().Err(err).Str("url", s.url).Msg("dial failed")
		s.emit(func(h Handler) { h.OnError(e) })
		return e
	}
	if s.readLimit > 0 {
		conn.SetReadLimit(s.readLimit)
	}

	s.mu.Lock()
	s.conn = conn
	s.state = StateOpen
	s.mu.Unlock()

	s.log.Info().Str("url", s.url).Msg("connected")
	s.emit(func(h Handler) { h.OnConnected() })
	go s.readLoop(conn)
	return nil
}

// SendCommand sends text as a command envelope. It does nothing unless the
// session is open; failures are reported through OnError.
func (s *Session) SendCommand(text string) {
	s.mu.Lock()
	conn := s.conn
	open := s.state == StateOpen && !s.closing
	s.mu.Unlock()
	if !open {
		return
	}

	data, err := json.Marshal(NewCommand(text))
	if err != nil {
		e := newError(ErrEncode, "Failed to send message", err)
		s.emit(func(h Handler) { h.OnError(e) })
		return
	}

	s.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, data)
	s.writeMu.Unlock()
	if err != nil {
		e := newError(ErrTransport, "Failed to send message", err)
		s.log.Warn().Err(err).Msg("write failed")
		s.emit(func(h Handler) { h.OnError(e) })
		return
	}
	s.log.Debug().Int("bytes", len(data)).Msg("command sent")
}

// Close starts the closing handshake. OnDisconnected is delivered by the read
// loop once the peer answers or the grace period runs out.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state != StateOpen || s.closing {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	conn := s.conn
	s.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, CloseReason)
	deadline := time.Now().Add(s.closeGrace)
	if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		s.log.Warn().Err(err).Msg("close frame failed")
		// Unblock the read loop; it reports the disconnect.
		conn.Close()
		return err
	}
	return conn.SetReadDeadline(deadline)
}

// Receive appends one fragment of the current message. When final is set the
// assembled text is decoded and dispatched, and the buffer is cleared.
func (s *Session) Receive(fragment string, final bool) {
	if s.State() == StateClosed {
		return
	}
	s.bufMu.Lock()
	s.buf.WriteString(fragment)
	if !final {
		s.bufMu.Unlock()
		return
	}
	data := s.buf.String()
	s.buf.Reset()
	s.bufMu.Unlock()

	s.dispatch(data)
}

func (s *Session) dispatch(data string) {
	env, err := DecodeEnvelope([]byte(data))
	if err != nil {
		e := newError(ErrDecode, "Failed to parse message", err)
		s.log.Debug().Err(err).Int("bytes", len(data)).Msg("undecodable message")
		s.emit(func(h Handler) { h.OnError(e) })
		return
	}
	if !env.Displayable() {
		s.log.Debug().Str("type", string(env.Type)).Msg("ignoring message")
		return
	}
	text := env.Payload()
	s.emit(func(h Handler) { h.OnMessage(text) })
}

// readLoop pulls one message at a time; the next message is not requested
// until the current one has been fully consumed and dispatched.
func (s *Session) readLoop(conn *websocket.Conn) {
	defer s.markDone()
	defer conn.Close()

	chunk := make([]byte, s.chunkSize)
	for {
		mt, r, err := conn.NextReader()
		if err != nil {
			s.finish(err)
			return
		}
		if mt != websocket.TextMessage {
			if _, err := io.Copy(io.Discard, r); err != nil {
				s.finish(err)
				return
			}
			continue
		}
		if err := s.consume(r, chunk); err != nil {
			s.resetBuffer()
			s.finish(err)
			return
		}
	}
}

// consume streams one message into Receive, chunk by chunk.
func (s *Session) consume(r io.Reader, chunk []byte) error {
	for {
		n, err := r.Read(chunk)
		if errors.Is(err, io.EOF) {
			s.Receive(string(chunk[:n]), true)
			return nil
		}
		if n > 0 {
			s.Receive(string(chunk[:n]), false)
		}
		if err != nil {
			return err
		}
	}
}

func (s *Session) resetBuffer() {
	s.bufMu.Lock()
	s.buf.Reset()
	s.bufMu.Unlock()
}

// finish moves the session to Closed and reports why the read loop ended.
func (s *Session) finish(err error) {
	s.mu.Lock()
	closing := s.closing
	s.state = StateClosed
	s.mu.Unlock()

	// 1006 is synthesised locally for a dropped connection, never sent by a peer.
	var ce *websocket.CloseError
	switch {
	case errors.As(err, &ce) && ce.Code != websocket.CloseAbnormalClosure:
		s.log.Info().Int("code", ce.Code).Str("reason", ce.Text).Msg("closed by peer")
		s.disconnect(ce.Code, ce.Text)
	case closing:
		s.log.Info().Err(err).Msg("closed without peer reply")
		s.disconnect(websocket.CloseNormalClosure, CloseReason)
	default:
		s.log.Warn().Err(err).Msg("read failed")
		e := newError(ErrTransport, "WebSocket error", err)
		s.emit(func(h Handler) { h.OnError(e) })
		s.disconnect(websocket.CloseAbnormalClosure, "")
	}
}

func (s *Session) disconnect(code int, reason string) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	if s.finished {
		return
	}
	s.finished = true
	if s.handler != nil {
		s.handler.OnDisconnected(code, reason)
	}
}

// emit delivers one notification unless the session already reported its
// disconnect.
func (s *Session) emit(fn func(Handler)) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	if s.finished || s.handler == nil {
		return
	}
	fn(s.handler)
}

func (s *Session) markDone() {
	s.doneOnce.Do(func() { close(s.done) })
}
