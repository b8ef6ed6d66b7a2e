package server

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"gold-monitor/src/helpers"
	"gold-monitor/src/logger"
	"gold-monitor/src/utils"

	"github.com/jonboulle/clockwork"
)

// -----------------------------------------------------------------------------
// Hub: admission-controlled fan-out to websocket subscribers.
//
// Each subscriber owns a bounded buffer. A subscriber that falls behind has
// its oldest unread messages dropped (counted as lag) instead of stalling the
// broadcaster or being disconnected; it keeps receiving newer messages in
// order.
// -----------------------------------------------------------------------------

type Hub struct {
	Logger *logger.Logger
	clock  clockwork.Clock

	mu      sync.RWMutex
	clients map[*Client]struct{}

	connections atomic.Int64
	max         int64

	// Silence budget per connection before its read pump gives up.
	idleTimeout time.Duration
}

// -----------------------------------------------------------------------------

func NewHub(maxConnections int64, clock clockwork.Clock, log *logger.Logger) *Hub {
	return &Hub{
		Logger:      log,
		clock:       clock,
		clients:     make(map[*Client]struct{}),
		max:         maxConnections,
		idleTimeout: utils.WsIdleTimeout,
	}
}

// -----------------------------------------------------------------------------

// Subscribe admits a client. Returns CapacityError once the connection
// ceiling is reached; the counter is claimed with a compare-and-swap so
// concurrent joins near the ceiling cannot overshoot.
func (h *Hub) Subscribe(c *Client) error {
	for {
		current := h.connections.Load()
		if current >= h.max {
			return helpers.NewCapacityError("connection limit reached")
		}
		if h.connections.CompareAndSwap(current, current+1) {
			break
		}
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return nil
}

// -----------------------------------------------------------------------------

// Unsubscribe removes a client and releases its slot. Safe to call more than
// once; only the call that actually removes the client decrements the
// counter and closes its buffer.
func (h *Hub) Unsubscribe(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
		h.connections.Add(-1)
	}
	h.mu.Unlock()
}

// -----------------------------------------------------------------------------

// Broadcast delivers data to every subscriber, best effort. A full subscriber
// buffer sheds its oldest message rather than blocking the sender.
func (h *Hub) Broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		c.enqueue(data)
	}
}

// -----------------------------------------------------------------------------

// Count returns the number of active subscribers.
func (h *Hub) Count() int {
	return int(h.connections.Load())
}

// -----------------------------------------------------------------------------

// RunHeartbeat broadcasts a fixed no-op ping while subscribers are connected,
// keeping idle connections alive so the transport can detect dead peers.
func (h *Hub) RunHeartbeat(ctx context.Context) {
	ticker := h.clock.NewTicker(utils.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			h.heartbeat()
		}
	}
}

// heartbeat sends one ping round. Reports whether anything was sent; with no
// subscribers the round is skipped entirely.
func (h *Hub) heartbeat() bool {
	if h.Count() == 0 {
		return false
	}
	h.Broadcast([]byte(`{"ping":true}`))
	return true
}
