//go:build integration_test

package demo

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

const addr = "ws://localhost:8080/ws"

// TestDuel walks two clients through a full session against a running
// server: matchmaking, an invalid submission, a new round and a disconnect.
func TestDuel(t *testing.T) {
	alice := dial(t)
	bob := dial(t)

	send(t, alice, "findGame", map[string]any{"name": "alice"})
	expectEvent(t, alice, "waiting")

	send(t, bob, "findGame", map[string]any{"name": "bob"})

	var found struct {
		SessionID string `json:"session_id"`
		Numbers   []int  `json:"numbers"`
	}
	decode(t, expectEvent(t, alice, "gameFound"), &found)
	decode(t, expectEvent(t, bob, "gameFound"), &found)

	require.NotEmpty(t, found.SessionID)
	require.Len(t, found.Numbers, 4)
	t.Logf("Session %s, numbers %v", found.SessionID, found.Numbers)

	// A wrong-multiset guess is rejected, and only alice hears about it.
	send(t, alice, "submitSolution", map[string]any{
		"session_id": found.SessionID,
		"expression": "1+1",
	})
	expectEvent(t, alice, "invalidSolution")

	// Fresh numbers for the same session.
	send(t, bob, "requestNewGame", map[string]any{"session_id": found.SessionID})
	expectEvent(t, alice, "newGame")
	expectEvent(t, bob, "newGame")

	// Dropping one side tears the session down and tells the other.
	require.NoError(t, alice.Close())
	var left struct {
		Name string `json:"name"`
	}
	decode(t, expectEvent(t, bob, "playerDisconnected"), &left)
	require.Equal(t, "alice", left.Name)
}

func dial(t *testing.T) *websocket.Conn {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func send(t *testing.T, conn *websocket.Conn, event string, data any) {
	require.NoError(t, conn.WriteJSON(map[string]any{
		"event": event,
		"data":  data,
	}))
}

// expectEvent reads frames until one carries the wanted event name.
func expectEvent(t *testing.T, conn *websocket.Conn, event string) json.RawMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	for {
		var n struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		require.NoError(t, conn.ReadJSON(&n), "waiting for %q", event)

		if n.Event == event {
			return n.Data
		}
		t.Logf("skipping event %q", n.Event)
	}
}

func decode(t *testing.T, raw json.RawMessage, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, v))
}
