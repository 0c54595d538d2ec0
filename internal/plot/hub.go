// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package plot

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/inertial_mouse/internal/log"
)

const (
	writeWait  = time.Second
	sendBuffer = 64
)

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub relays samples to every connected WebSocket client. A client that
// cannot keep up loses samples; it is never allowed to stall Publish.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	latest  Sample
	have    bool
	closed  bool
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // local dashboards only
			},
		},
		clients: make(map[*wsClient]struct{}),
	}
}

// ServeHTTP upgrades the request and streams samples until the client
// goes away. The latest sample, if any, is sent first.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("plot: websocket upgrade error", "err", err)
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	if h.have {
		if b, err := json.Marshal(h.latest); err == nil {
			c.send <- b
		}
	}
	h.mu.Unlock()
	log.Debug("plot: viewer connected", "remote", r.RemoteAddr)

	go h.writePump(c)
	h.readPump(c)
}

// readPump discards client messages and notices disconnects.
func (h *Hub) readPump(c *wsClient) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(c)
	log.Debug("plot: viewer disconnected", "remote", c.conn.RemoteAddr().String())
}

func (h *Hub) writePump(c *wsClient) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Debug("plot: websocket write error", "err", err)
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Publish records s as the latest sample and queues it for every client.
func (h *Hub) Publish(s Sample) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("plot: marshal sample: %w", err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest, h.have = s, true
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			log.Debug("plot: viewer too slow, sample dropped")
		}
	}
	return nil
}

// Latest returns the most recent sample.
func (h *Hub) Latest() (Sample, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest, h.have
}

// Clients returns the number of connected viewers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every viewer and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// LatestHandler serves the latest sample as JSON, or 503 before the
// first one.
func (h *Hub) LatestHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := h.Latest()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s); err != nil {
			log.Warn("plot: json encode error", "err", err)
		}
	}
}
