// Halcyon - Emotion-Adaptive Wellness Recommendation Engine
// Copyright 2026 Halcyon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/halcyonlabs/halcyon

// Package push delivers admitted notifications to connected WebSocket
// clients. The Hub implements notify.Sender: the notification engine
// decides whether and when a notification goes out, the hub only fans
// the admitted ones out to whoever is listening.
package push

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/halcyonlabs/halcyon/internal/notify"
)

// Message is the wire envelope pushed to clients.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Message types pushed to clients.
const (
	MessageTypeNotification = "notification"
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
)

// Hub maintains the set of connected clients and broadcasts admitted
// notifications to them. Safe for concurrent use.
type Hub struct {
	logger   zerolog.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub creates an empty hub.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		logger: logger.With().Str("component", "push-hub").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*client]struct{}),
	}
}

// Send broadcasts one notification to every connected client. With no
// clients connected the notification is still considered delivered: the
// engine's admission decision stands, and a client that connects later
// sees only what is admitted from then on.
func (h *Hub) Send(_ context.Context, n *notify.Notification) error {
	msg := Message{Type: MessageTypeNotification, Data: n}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.clients {
		// Slow clients lose messages rather than stalling delivery for
		// everyone else.
		select {
		case c.send <- msg:
			delivered++
		default:
			h.logger.Warn().Uint64("client", c.id).Msg("client send buffer full, dropping message")
		}
	}

	h.logger.Debug().
		Str("id", n.ID).
		Str("category", string(n.Category)).
		Int("clients", delivered).
		Msg("notification pushed")
	return nil
}

// Handler upgrades an HTTP request to a WebSocket connection and starts
// the client pumps.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}

		c := newClient(h, conn)
		if !h.register(c) {
			_ = conn.Close()
			return
		}
		c.start()
	})
}

// Serve blocks until the context is canceled, then closes every client.
// Designed for suture supervision alongside the HTTP server.
func (h *Hub) Serve(ctx context.Context) error {
	<-ctx.Done()

	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		close(c.send)
	}
	h.logger.Info().Int("clients", len(clients)).Msg("push hub shut down")
	return ctx.Err()
}

// String identifies the hub in supervisor logs.
func (h *Hub) String() string {
	return "push-hub"
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// register adds a client, refusing when the hub has shut down.
func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.logger.Info().Uint64("client", c.id).Int("total", len(h.clients)).Msg("client connected")
	return true
}

// unregister removes a client after its read pump exits.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.logger.Info().Uint64("client", c.id).Int("total", len(h.clients)).Msg("client disconnected")
}
