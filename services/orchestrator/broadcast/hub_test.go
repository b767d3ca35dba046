// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package broadcast

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GhostCutAI/GhostLocal/services/timeline"
)

// wireEnvelope mirrors Envelope with a raw payload for decoding.
type wireEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func testState(version uint64) timeline.TimelineState {
	return timeline.TimelineState{
		Clips: []timeline.Clip{
			{ID: "clip_1", TrackID: timeline.DefaultTrackID, Start: 0, Duration: 5, SourceFile: "intro.mp4"},
		},
		Duration:     5,
		PlayheadTime: 0,
		Version:      version,
	}
}

// newHubServer starts an httptest server whose handler upgrades and
// attaches every connection to the hub with the given initial state.
func newHubServer(t *testing.T, hub *Hub, initial timeline.TimelineState) *httptest.Server {
	t.Helper()

	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		hub.Attach(ws, initial)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := strings.Replace(srv.URL, "http", "ws", 1)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) wireEnvelope {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var env wireEnvelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("client count never reached %d (now %d)", want, hub.ClientCount())
}

func TestHubSendsInitialStateOnConnect(t *testing.T) {
	hub := NewHub()
	srv := newHubServer(t, hub, testState(3))

	conn := dial(t, srv)

	env := readEnvelope(t, conn)
	assert.Equal(t, MessageStateUpdate, env.Type)

	var state timeline.TimelineState
	require.NoError(t, json.Unmarshal(env.Payload, &state))
	assert.Equal(t, uint64(3), state.Version)
	assert.Len(t, state.Clips, 1)
}

func TestHubBroadcastsCommittedStates(t *testing.T) {
	hub := NewHub()
	srv := newHubServer(t, hub, testState(1))

	conn := dial(t, srv)
	readEnvelope(t, conn) // initial snapshot
	waitForClients(t, hub, 1)

	hub.PublishState(context.Background(), testState(2))

	env := readEnvelope(t, conn)
	assert.Equal(t, MessageStateUpdate, env.Type)

	var state timeline.TimelineState
	require.NoError(t, json.Unmarshal(env.Payload, &state))
	assert.Equal(t, uint64(2), state.Version)
}

func TestHubBroadcastsToAllSubscribers(t *testing.T) {
	hub := NewHub()
	srv := newHubServer(t, hub, testState(1))

	first := dial(t, srv)
	second := dial(t, srv)
	readEnvelope(t, first)
	readEnvelope(t, second)
	waitForClients(t, hub, 2)

	hub.PublishState(context.Background(), testState(5))

	for _, conn := range []*websocket.Conn{first, second} {
		env := readEnvelope(t, conn)
		assert.Equal(t, MessageStateUpdate, env.Type)
	}
}

func TestHubPublishesAssistantErrors(t *testing.T) {
	hub := NewHub()
	srv := newHubServer(t, hub, testState(1))

	conn := dial(t, srv)
	readEnvelope(t, conn) // initial snapshot
	waitForClients(t, hub, 1)

	hub.PublishError(context.Background(), "admission", "plan rejected")

	env := readEnvelope(t, conn)
	assert.Equal(t, MessageLLMError, env.Type)

	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "admission", payload.Stage)
	assert.Equal(t, "plan rejected", payload.Message)
}

func TestHubRemovesClientOnDisconnect(t *testing.T) {
	hub := NewHub()
	srv := newHubServer(t, hub, testState(1))

	conn := dial(t, srv)
	readEnvelope(t, conn)
	waitForClients(t, hub, 1)

	require.NoError(t, conn.Close())
	waitForClients(t, hub, 0)

	// Publishing to an empty hub is a no-op, not a panic.
	hub.PublishState(context.Background(), testState(2))
}
