package server

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gold-monitor/src/helpers"
	"gold-monitor/src/logger"
	"gold-monitor/src/utils"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func newTestHub(max int64) *Hub {
	return NewHub(max, clockwork.NewRealClock(), logger.NewLogger("ERROR", "HubTest"))
}

// -----------------------------------------------------------------------------

func TestSubscribeAdmissionControl(t *testing.T) {
	h := newTestHub(2)

	a := newClient(h, nil)
	b := newClient(h, nil)
	c := newClient(h, nil)

	require.NoError(t, h.Subscribe(a))
	require.NoError(t, h.Subscribe(b))
	assert.Equal(t, 2, h.Count())

	// At capacity: refused with a CapacityError
	err := h.Subscribe(c)
	require.Error(t, err)
	var capErr *helpers.CapacityError
	assert.ErrorAs(t, err, &capErr)
	assert.Equal(t, 2, h.Count())

	// A released slot can be taken again
	h.Unsubscribe(a)
	assert.Equal(t, 1, h.Count())
	assert.NoError(t, h.Subscribe(c))
}

// -----------------------------------------------------------------------------

func TestUnsubscribeIsIdempotent(t *testing.T) {
	h := newTestHub(5)

	a := newClient(h, nil)
	require.NoError(t, h.Subscribe(a))

	h.Unsubscribe(a)
	h.Unsubscribe(a)

	assert.Equal(t, 0, h.Count())
}

// -----------------------------------------------------------------------------

func TestBroadcastReachesAllSubscribers(t *testing.T) {
	h := newTestHub(5)

	a := newClient(h, nil)
	b := newClient(h, nil)
	require.NoError(t, h.Subscribe(a))
	require.NoError(t, h.Subscribe(b))

	h.Broadcast([]byte("hello"))

	assert.Equal(t, []byte("hello"), <-a.send)
	assert.Equal(t, []byte("hello"), <-b.send)
}

// -----------------------------------------------------------------------------

func TestSlowSubscriberSkipsInsteadOfBlocking(t *testing.T) {
	h := newTestHub(5)

	slow := newClient(h, nil)
	require.NoError(t, h.Subscribe(slow))

	// Nobody drains the client; the broadcaster must not stall
	total := sendBufferSize + 44
	for i := 0; i < total; i++ {
		h.Broadcast(fmt.Appendf(nil, "msg-%d", i))
	}

	// The oldest messages were shed and counted as lag
	assert.Equal(t, int64(44), slow.lagged.Load())

	// What remains is the newest window, in order, no reordering
	first := <-slow.send
	assert.Equal(t, "msg-44", string(first))

	var last []byte
	for i := 0; i < sendBufferSize-1; i++ {
		last = <-slow.send
	}
	assert.Equal(t, fmt.Sprintf("msg-%d", total-1), string(last))

	// The subscriber keeps receiving afterwards
	h.Broadcast([]byte("fresh"))
	assert.Equal(t, "fresh", string(<-slow.send))
}

// -----------------------------------------------------------------------------

func TestBroadcastAfterUnsubscribeDoesNotPanic(t *testing.T) {
	h := newTestHub(5)

	a := newClient(h, nil)
	require.NoError(t, h.Subscribe(a))
	h.Unsubscribe(a)

	h.Broadcast([]byte("late"))
	assert.Equal(t, 0, h.Count())
}

// -----------------------------------------------------------------------------

func TestHeartbeatSkipsWithoutSubscribers(t *testing.T) {
	h := newTestHub(5)

	assert.False(t, h.heartbeat())

	a := newClient(h, nil)
	require.NoError(t, h.Subscribe(a))
	assert.True(t, h.heartbeat())
	assert.JSONEq(t, `{"ping":true}`, string(<-a.send))

	h.Unsubscribe(a)
	assert.False(t, h.heartbeat())
}

// -----------------------------------------------------------------------------

func TestRunHeartbeatPingsOnInterval(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Unix(1_700_000_000, 0))
	h := NewHub(5, clock, logger.NewLogger("ERROR", "HubTest"))

	a := newClient(h, nil)
	require.NoError(t, h.Subscribe(a))

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.RunHeartbeat(ctx)
		close(stopped)
	}()
	clock.BlockUntil(1)

	recv := func() string {
		select {
		case msg := <-a.send:
			return string(msg)
		case <-time.After(2 * time.Second):
			t.Fatal("no heartbeat delivered")
			return ""
		}
	}

	clock.Advance(utils.HeartbeatInterval)
	assert.JSONEq(t, `{"ping":true}`, recv())

	clock.Advance(utils.HeartbeatInterval)
	assert.JSONEq(t, `{"ping":true}`, recv())

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("heartbeat loop did not stop")
	}
}
