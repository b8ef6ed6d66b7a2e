package server

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	maxMessageSize = 4096

	// Per-subscriber backlog before the oldest unread message is shed.
	sendBufferSize = 256
)

// -----------------------------------------------------------------------------
// Client Structure
// -----------------------------------------------------------------------------

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	lagged atomic.Int64
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
}

// -----------------------------------------------------------------------------

// enqueue appends data to the client's backlog. When the buffer is full the
// oldest unread message is dropped and counted as lag, so the subscriber
// skips rather than reorders and the broadcaster never blocks.
func (c *Client) enqueue(data []byte) {
	for {
		select {
		case c.send <- data:
			return
		default:
			select {
			case <-c.send:
				c.lagged.Add(1)
			default:
			}
		}
	}
}

// -----------------------------------------------------------------------------
// readPump - drains inbound client traffic under the idle timeout.
// Act as a Watchdog for the connection: any inbound frame resets the timer,
// silence past the timeout or a protocol error ends the connection.
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer func() {
		c.hub.Unsubscribe(c)
		c.conn.Close()
		if skipped := c.lagged.Load(); skipped > 0 {
			c.hub.Logger.Info("Client disconnected (skipped %d lagged messages)", skipped)
		} else {
			c.hub.Logger.Debug("Client disconnected")
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		c.conn.SetReadDeadline(time.Now().Add(c.hub.idleTimeout))
		// Protocol content is ignored; the read only feeds the idle timer.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.Logger.Debug("WebSocket read ended: %v", err)
			}
			return
		}
	}
}

// -----------------------------------------------------------------------------
// writePump - forwards broadcast messages to the client
// -----------------------------------------------------------------------------

func (c *Client) writePump() {
	defer c.conn.Close()

	for {
		data, ok := <-c.send
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if !ok {
			// Hub released this client
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
			c.hub.Logger.Debug("Write error: %v", err)
			return
		}
	}
}
