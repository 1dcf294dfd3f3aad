package server

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const sendBuffer = 64

var errHubFull = errors.New("too many connections")

type conn struct {
	id   string
	ws   *websocket.Conn
	hub  *Hub
	send chan []byte
}

// writePump owns all data writes to the socket. A write error drops the
// connection from the hub.
func (c *conn) writePump() {
	defer c.ws.Close()
	for msg := range c.send {
		if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.hub.log.Debug().Err(err).Str("conn", c.id).Msg("write failed")
			c.hub.Remove(c)
			// Drain so Remove's close(send) ends the loop.
			for range c.send {
			}
			return
		}
	}
}

// enqueue marshals msg for the write pump. It reports false when the
// connection cannot keep up.
func (c *conn) enqueue(msg Message) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		c.hub.log.Error().Err(err).Msg("marshal message")
		return false
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.conns[c] {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Hub tracks the live connections.
type Hub struct {
	mu    sync.RWMutex
	conns map[*conn]bool
	max   int
	log   zerolog.Logger
}

// NewHub returns a hub accepting at most max connections; zero means no limit.
func NewHub(max int, log zerolog.Logger) *Hub {
	return &Hub{
		conns: make(map[*conn]bool),
		max:   max,
		log:   log,
	}
}

// Add registers ws and starts its write pump.
func (h *Hub) Add(ws *websocket.Conn) (*conn, error) {
	h.mu.Lock()
	if h.max > 0 && len(h.conns) >= h.max {
		h.mu.Unlock()
		return nil, errHubFull
	}
	c := &conn{
		id:   uuid.NewString(),
		ws:   ws,
		hub:  h,
		send: make(chan []byte, sendBuffer),
	}
	h.conns[c] = true
	h.mu.Unlock()

	go c.writePump()
	return c, nil
}

// Remove unregisters c and stops its write pump. It is safe to call more
// than once.
func (h *Hub) Remove(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[c] {
		delete(h.conns, c)
		close(c.send)
	}
}

// Count returns the number of live connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// CloseAll sends every connection a close frame with code and reason. Read
// loops end when the peers answer.
func (h *Hub) CloseAll(code int, reason string) {
	h.mu.RLock()
	conns := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	msg := websocket.FormatCloseMessage(code, reason)
	deadline := time.Now().Add(time.Second)
	for _, c := range conns {
		if err := c.ws.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
			h.log.Debug().Err(err).Str("conn", c.id).Msg("close frame failed")
			c.ws.Close()
		}
	}
}
