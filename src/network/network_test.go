package network

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"gold-monitor/src/helpers"
	"gold-monitor/src/logger"
	"gold-monitor/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func newTestManager(t *testing.T, maxRetries int) *AsyncNetworkManager {
	t.Helper()

	cfg := &models.MConfig{
		Network: models.MNetworkConfig{
			RequestTimeout: 5,
			MaxRetries:     maxRetries,
			UserAgent:      "test-agent",
		},
	}

	nm := NewAsyncNetworkManager(cfg, logger.NewLogger("ERROR", "NetworkTest"))
	nm.baseDelay = time.Millisecond
	return nm
}

// -----------------------------------------------------------------------------

func TestGetRetriesUntilSuccess(t *testing.T) {
	var hits atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, "x", r.Header.Get("X-Extra"))
		w.Write([]byte("payload"))
	}))
	defer ts.Close()

	nm := newTestManager(t, 2)
	body, err := nm.Get(ts.URL, nil, map[string]string{"X-Extra": "x"})
	require.NoError(t, err)
	assert.Equal(t, "payload", string(body))
	assert.Equal(t, int64(3), hits.Load())
}

// -----------------------------------------------------------------------------

func TestGetExhaustionYieldsUpstreamError(t *testing.T) {
	var hits atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	nm := newTestManager(t, 1)
	_, err := nm.Get(ts.URL, nil, nil)
	require.Error(t, err)

	var upErr *helpers.UpstreamError
	assert.ErrorAs(t, err, &upErr)
	assert.Equal(t, int64(2), hits.Load())
}

// -----------------------------------------------------------------------------

func TestGetAppendsQueryParams(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "IDR", r.URL.Query().Get("to"))
		w.Write([]byte("ok"))
	}))
	defer ts.Close()

	nm := newTestManager(t, 0)
	_, err := nm.Get(ts.URL, map[string]string{"to": "IDR"}, nil)
	require.NoError(t, err)
}
