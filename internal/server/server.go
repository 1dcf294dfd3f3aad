// Package server is the reference YAAN assistant server: a WebSocket chat
// endpoint backed by the rule-based assistant, plus a status API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/yaan-ai/yaan/internal/assistant"
	"github.com/yaan-ai/yaan/internal/config"
)

const (
	readLimit       = 1 << 20
	shutdownTimeout = 5 * time.Second
)

type Server struct {
	cfg            config.ServerConfig
	version        string
	hub            *Hub
	log            zerolog.Logger
	allowedOrigins map[string]bool
	allowedHosts   map[string]bool
	newProcessor   func() *assistant.Processor
	rest           *assistant.Processor
}

// New builds a server. Each connection gets its own assistant.Processor.
func New(cfg config.ServerConfig, version string, log zerolog.Logger) *Server {
	log = log.With().Str("component", "server").Logger()
	s := &Server{
		cfg:            cfg,
		version:        version,
		hub:            NewHub(cfg.MaxConnections, log),
		log:            log,
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
	}
	s.newProcessor = func() *assistant.Processor {
		return assistant.New(cfg.UserName, assistant.WithLogger(log))
	}
	s.rest = s.newProcessor()

	for _, origin := range cfg.AllowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		s.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			s.allowedHosts[parsed.Host] = true
		}
	}

	return s
}

// Hub exposes the connection registry.
func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/command", s.handleCommand)
}

// Handler returns the routes wrapped in the common headers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return securityHeaders(mux)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("ws upgrade failed")
		return
	}
	ws.SetReadLimit(readLimit)

	c, err := s.hub.Add(ws)
	if err != nil {
		s.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("rejecting connection")
		msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error())
		_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		ws.Close()
		return
	}

	log := s.log.With().Str("conn", c.id).Logger()
	log.Info().Str("remote", r.RemoteAddr).Int("active", s.hub.Count()).Msg("client connected")
	c.enqueue(Message{Type: MsgWelcome, Message: welcomeText})

	go s.readLoop(c, log)
}

// readLoop answers commands until the peer goes away.
func (s *Server) readLoop(c *conn, log zerolog.Logger) {
	defer func() {
		s.hub.Remove(c)
		log.Info().Int("active", s.hub.Count()).Msg("client disconnected")
	}()

	proc := s.newProcessor()
	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Msg("read ended")
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Warn().Err(err).Msg("malformed message")
			continue
		}
		if msg.Type != MsgCommand {
			log.Debug().Str("type", string(msg.Type)).Msg("ignoring message")
			continue
		}

		reply := proc.Process(context.Background(), msg.Text)
		if !c.enqueue(Message{Type: MsgResponse, Text: reply}) {
			log.Warn().Msg("client too slow, disconnecting")
			return
		}
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(Status{
		Status:      "online",
		Service:     "YAAN",
		Version:     s.version,
		User:        s.cfg.UserName,
		Connections: s.hub.Count(),
	})
}

// handleCommand answers one command outside any WebSocket conversation. The
// text comes from the "text" query parameter or a JSON body {"text": ...}.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	text := r.URL.Query().Get("text")
	if text == "" && r.Body != nil {
		var body struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, readLimit)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		text = body.Text
	}

	w.Header().Set("Content-Type", "application/json")
	if strings.TrimSpace(text) == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(CommandResult{Error: "missing text"})
		return
	}
	json.NewEncoder(w).Encode(CommandResult{
		Success:  true,
		Response: s.rest.Process(r.Context(), text),
	})
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(s.allowedOrigins) > 0 {
		if s.allowedOrigins[origin] {
			return true
		}
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return s.allowedHosts[parsed.Host]
		}
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	if parsed.Host == r.Host {
		return true
	}

	switch parsed.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// ListenAndServe serves on addr until ctx is cancelled, then tells every
// client the server is going away and shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.log.Info().Str("addr", ln.Addr().String()).Msg("server listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down")
	s.hub.CloseAll(websocket.CloseGoingAway, "server shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
