// Package console is the line-mode chat host used when the terminal cannot
// run the full-screen UI, for example when input is piped.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/yaan-ai/yaan/internal/client"
	"github.com/yaan-ai/yaan/internal/theme"
	"github.com/yaan-ai/yaan/internal/views/chatlog"
)

// Session is the part of client.Session the console drives.
type Session interface {
	Connect(ctx context.Context) error
	SendCommand(text string)
	Close() error
	Done() <-chan struct{}
}

// Host prints session events as timestamped lines and sends each input
// line as a command.
type Host struct {
	out        io.Writer
	timeFormat string
	log        zerolog.Logger
	now        func() time.Time

	mu        sync.Mutex
	connected bool
}

// New returns a host writing to out.
func New(out io.Writer, timeFormat string, log zerolog.Logger) *Host {
	return &Host{
		out:        out,
		timeFormat: timeFormat,
		log:        log.With().Str("component", "console").Logger(),
		now:        time.Now,
	}
}

// Handler returns the session handler feeding this host.
func (h *Host) Handler() client.Handler {
	return client.HandlerFunc(h.handle)
}

func (h *Host) handle(ev client.Event) {
	switch ev.Kind {
	case client.EventConnected:
		h.setConnected(true)
		h.println(theme.SenderSystem, "Connected to YAAN backend successfully!")
	case client.EventDisconnected:
		h.setConnected(false)
		h.log.Info().Int("code", ev.Code).Str("reason", ev.Reason).Msg("disconnected")
		h.println(theme.SenderSystem, "Disconnected from backend.")
	case client.EventMessage:
		h.println(theme.SenderAssistant, ev.Text)
	case client.EventError:
		if errors.Is(ev.Err, client.ErrConnection) {
			h.setConnected(false)
		}
		h.log.Warn().Err(ev.Err).Msg("session error")
		text := "unknown error"
		if ev.Err != nil {
			text = ev.Err.Error()
		}
		h.println(theme.SenderError, text)
	}
}

// Connected reports whether the session is currently open.
func (h *Host) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connected
}

func (h *Host) setConnected(v bool) {
	h.mu.Lock()
	h.connected = v
	h.mu.Unlock()
}

func (h *Host) println(sender, text string) {
	line := chatlog.FormatLine(chatlog.Entry{Time: h.now(), Sender: sender, Text: text}, h.timeFormat)
	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprintln(h.out, line)
}

// Run connects s, forwards every non-blank line of in while connected, and
// closes the session at end of input or when ctx is cancelled. It returns
// once the session has finished.
func (h *Host) Run(ctx context.Context, s Session, in io.Reader) error {
	h.println(theme.SenderSystem, "Welcome to YAAN!")
	h.println(theme.SenderSystem, "Connecting to server...")

	if err := s.Connect(ctx); err != nil {
		return err
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-s.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			h.log.Warn().Err(err).Msg("reading input")
		}
	}()

	for {
		select {
		case <-s.Done():
			return nil
		case <-ctx.Done():
			return h.close(s)
		case line, ok := <-lines:
			if !ok {
				return h.close(s)
			}
			h.submit(s, line)
		}
	}
}

func (h *Host) submit(s Session, line string) {
	text := strings.TrimSpace(line)
	if text == "" || !h.Connected() {
		return
	}
	h.println(theme.SenderUser, text)
	s.SendCommand(text)
}

func (h *Host) close(s Session) error {
	err := s.Close()
	<-s.Done()
	return err
}
