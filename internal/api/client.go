package api

import (
	"log/slog"

	"github.com/gorilla/websocket"
)

const sendBuffer = 32

// client is one connected participant. Outgoing notifications go through a
// buffered channel drained by a single writer goroutine; a full buffer drops
// the message rather than blocking an event handler.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

func newClient(id string, conn *websocket.Conn) *client {
	return &client{
		id:   id,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
}

// writePump serializes all writes to the connection. It exits when the send
// channel is closed on deregistration or when a write fails.
func (c *client) writePump() {
	defer c.conn.Close()

	for b := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			slog.Info("api: client write failed", "conn_id", c.id, "error", err)
			return
		}
	}
}

// enqueue offers a message to the client without blocking.
func (c *client) enqueue(b []byte) {
	select {
	case c.send <- b:
	default:
		slog.Warn("api: client send buffer full, dropping message", "conn_id", c.id)
	}
}
