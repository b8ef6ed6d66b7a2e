package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gold-monitor/src/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// HTTP surface
// -----------------------------------------------------------------------------

func TestGetStateServesSnapshotDocument(t *testing.T) {
	s, st, _, _ := newTestServer(t)
	st.RecordGoldPrice(1_850_000, 1_790_000, "2024-05-01 09:00:00")

	w := serve(s, "/api/state", "1.2.3.4")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var doc models.MSnapshotDoc
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	require.Len(t, doc.History, 1)
	assert.Equal(t, int64(1_850_000), doc.History[0].BuyingRateRaw)
	assert.Equal(t, int64(8), doc.LimitBulan)
}

// -----------------------------------------------------------------------------

func TestGetHealth(t *testing.T) {
	s, _, _, _ := newTestServer(t)

	w := serve(s, "/health", "1.2.3.4")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

// -----------------------------------------------------------------------------

func TestGetIndexServesPage(t *testing.T) {
	s, _, _, _ := newTestServer(t)

	w := serve(s, "/", "1.2.3.4")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/html"))
	assert.Contains(t, w.Body.String(), "/ws")
}

// -----------------------------------------------------------------------------

func TestUnknownRoutesAccumulateIntoBan(t *testing.T) {
	s, _, guard, _ := newTestServer(t)

	for i := 0; i < 4; i++ {
		w := serve(s, "/nope", "9.9.9.9")
		assert.Equal(t, http.StatusNotFound, w.Code)
	}
	require.False(t, guard.IsBlocked("9.9.9.9"))

	w := serve(s, "/nope", "9.9.9.9")
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.True(t, guard.IsBlocked("9.9.9.9"))

	// Once banned, even the public endpoints answer 429
	w = serve(s, "/api/state", "9.9.9.9")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

// -----------------------------------------------------------------------------
// WebSocket end to end
// -----------------------------------------------------------------------------

func dialWs(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func readDoc(t *testing.T, conn *websocket.Conn) models.MSnapshotDoc {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var doc models.MSnapshotDoc
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestWebSocketSnapshotThenUpdates(t *testing.T) {
	s, st, _, _ := newTestServer(t)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn := dialWs(t, ts)
	defer conn.Close()

	// First frame is always the current snapshot
	doc := readDoc(t, conn)
	assert.Empty(t, doc.History)
	assert.Equal(t, int64(8), doc.LimitBulan)

	// Subsequent frames follow state mutations
	require.True(t, st.RecordGoldPrice(1_850_000, 1_790_000, "2024-05-01 09:00:00"))
	st.PublishSnapshot()

	doc = readDoc(t, conn)
	require.Len(t, doc.History, 1)
	assert.Equal(t, int64(1_850_000), doc.History[0].BuyingRateRaw)
	assert.Equal(t, "1.850.000", doc.History[0].BuyingRate)
}

func TestWebSocketIdleTimeout(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	s.hub.idleTimeout = 200 * time.Millisecond

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn := dialWs(t, ts)
	defer conn.Close()
	readDoc(t, conn)

	// Frames inside the budget keep resetting the idle timer
	for i := 0; i < 4; i++ {
		time.Sleep(100 * time.Millisecond)
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("k")))
	}
	assert.Equal(t, 1, s.Hub().Count())

	// Silence past the budget ends the connection
	require.Eventually(t, func() bool { return s.Hub().Count() == 0 },
		2*time.Second, 20*time.Millisecond)
}

func TestWebSocketSubscriberCount(t *testing.T) {
	s, _, _, _ := newTestServer(t)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn := dialWs(t, ts)
	readDoc(t, conn)
	assert.Equal(t, 1, s.Hub().Count())

	conn.Close()
	require.Eventually(t, func() bool { return s.Hub().Count() == 0 },
		2*time.Second, 10*time.Millisecond)
}
