// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package broadcast fans committed timeline states and assistant
// errors out to websocket subscribers.
//
// The hub is the daemon's StateSink: the engine publishes every
// committed state here after releasing its lock, and each connected UI
// receives a STATE_UPDATE message. Assistant failures travel the same
// pipe as LLM_ERROR messages so the frontend learns about rejected
// plans the way it learns about state changes.
//
// Publication never blocks the publisher. Each client has a bounded
// send queue; a client that stops draining it is dropped.
package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/GhostCutAI/GhostLocal/services/assistant"
	"github.com/GhostCutAI/GhostLocal/services/orchestrator/observability"
	"github.com/GhostCutAI/GhostLocal/services/timeline"
)

// Message types sent to subscribers.
const (
	// MessageStateUpdate carries a full committed timeline state.
	MessageStateUpdate = "STATE_UPDATE"

	// MessageLLMError carries an assistant pipeline failure.
	MessageLLMError = "LLM_ERROR"
)

// sendQueueDepth bounds each client's outbound queue. Commits are
// rare on a human timescale; a full queue means the client stopped
// reading.
const sendQueueDepth = 16

// Envelope is the wire frame for every broadcast message.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// ErrorPayload is the LLM_ERROR message body.
type ErrorPayload struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// client is one websocket subscriber with its outbound queue.
type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// shutdown closes the send queue exactly once. The write pump drains
// what is left and closes the connection.
func (c *client) shutdown() {
	c.once.Do(func() { close(c.send) })
}

// writePump drains the send queue onto the wire. Runs in its own
// goroutine per client and owns the connection's write side.
func (c *client) writePump(logger *slog.Logger) {
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logger.Warn("failed to write websocket message", "error", err)
			break
		}
	}
	_ = c.conn.Close()
}

// Hub tracks subscribers and fans messages out to them.
//
// Thread Safety: Safe for concurrent use. Broadcasts, attaches, and
// disconnects may interleave freely.
type Hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) { h.logger = logger }
}

// NewHub builds an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		logger:  slog.Default(),
		clients: make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Attach registers an upgraded connection and serves it until the
// client disconnects. The initial state is queued first so a late
// subscriber has the current picture before any incremental update.
//
// Attach blocks; call it from the connection's handler goroutine. The
// hub owns the connection from here on, including closing it.
func (h *Hub) Attach(ws *websocket.Conn, initial timeline.TimelineState) {
	c := &client{conn: ws, send: make(chan []byte, sendQueueDepth)}

	if data, err := json.Marshal(Envelope{Type: MessageStateUpdate, Payload: initial}); err == nil {
		c.send <- data
	} else {
		h.logger.Warn("failed to encode initial state", "error", err)
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	if m := observability.DefaultMetrics; m != nil {
		m.ClientConnected()
	}
	h.logger.Info("websocket client connected", "clients", count)

	go c.writePump(h.logger)

	// Read side: the UI sends nothing meaningful, but reading is how
	// disconnects surface.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			h.logger.Info("websocket client disconnected", "error", err.Error())
			break
		}
	}
	h.remove(c)
}

// ClientCount reports the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// PublishState broadcasts a committed timeline state to all
// subscribers. Implements timeline.StateSink.
func (h *Hub) PublishState(ctx context.Context, state timeline.TimelineState) {
	h.broadcast(Envelope{Type: MessageStateUpdate, Payload: state})
}

// PublishError broadcasts an assistant pipeline failure. Implements
// assistant.ErrorSink.
func (h *Hub) PublishError(ctx context.Context, stage string, message string) {
	h.broadcast(Envelope{Type: MessageLLMError, Payload: ErrorPayload{Stage: stage, Message: message}})
}

// broadcast queues one encoded message to every subscriber. Clients
// whose queue is full are dropped rather than blocking the publisher.
func (h *Hub) broadcast(env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		h.logger.Warn("failed to encode broadcast message", "type", env.Type, "error", err)
		return
	}

	var slow []*client
	h.mu.Lock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow websocket client")
		h.remove(c)
	}
}

// remove unregisters a client and shuts it down. Safe to call twice
// for the same client; only the call that actually removes it touches
// the gauge.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, present := h.clients[c]
	if present {
		delete(h.clients, c)
	}
	h.mu.Unlock()

	if present {
		if m := observability.DefaultMetrics; m != nil {
			m.ClientDisconnected()
		}
	}
	c.shutdown()
}

var _ timeline.StateSink = (*Hub)(nil)
var _ assistant.ErrorSink = (*Hub)(nil)
