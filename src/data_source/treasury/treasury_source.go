package treasury

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gold-monitor/src/logger"
	"gold-monitor/src/models"
	"gold-monitor/src/state"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// TreasurySource streams gold rate updates from the upstream Pusher feed.
// Connect failures and dropped connections are retried with a backoff capped
// at 15s that resets on success; a malformed payload is dropped, never
// allowed into core state.
// -----------------------------------------------------------------------------

type TreasurySource struct {
	Config *models.MConfig
	State  *state.AppState
	Logger *logger.Logger

	cancelFunc context.CancelFunc
	isRunning  atomic.Bool
}

// -----------------------------------------------------------------------------
// Upstream wire structures. The event payload arrives either as an embedded
// JSON string or as a plain object, and the rates as numbers or dotted
// strings; both shapes are handled at this boundary.
// -----------------------------------------------------------------------------

type pusherMessage struct {
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data"`
	Channel string          `json:"channel"`
}

type goldRateData struct {
	BuyingRate  json.RawMessage `json:"buying_rate"`
	SellingRate json.RawMessage `json:"selling_rate"`
	CreatedAt   string          `json:"created_at"`
}

// -----------------------------------------------------------------------------

func NewTreasurySource(cfg *models.MConfig, st *state.AppState, log *logger.Logger) *TreasurySource {
	return &TreasurySource{
		Config: cfg,
		State:  st,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

func (s *TreasurySource) Name() string {
	return "treasury"
}

// -----------------------------------------------------------------------------

// IsRealTime returns true: the feed streams updates as they happen
func (s *TreasurySource) IsRealTime() bool {
	return true
}

// -----------------------------------------------------------------------------

func (s *TreasurySource) Start(ctx context.Context, wg *sync.WaitGroup) error {
	if !s.isRunning.CompareAndSwap(false, true) {
		return fmt.Errorf("source %s is already running", s.Name())
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer s.isRunning.Store(false)
		s.run(runCtx)
	}()

	return nil
}

// -----------------------------------------------------------------------------

func (s *TreasurySource) Stop() error {
	if !s.isRunning.Load() {
		return nil
	}
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *TreasurySource) run(ctx context.Context) {
	var errors int

	for {
		if ctx.Err() != nil {
			return
		}

		if err := s.session(ctx); err != nil {
			errors++
			s.Logger.Warning("Feed session ended: %v", err)
		} else {
			errors = 0
		}

		wait := time.Duration(errors) * time.Second
		if wait > 15*time.Second {
			wait = 15 * time.Second
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// -----------------------------------------------------------------------------

// session dials the feed, subscribes to the gold rate channel and processes
// events until the connection drops or ctx is cancelled.
func (s *TreasurySource) session(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.Config.Feed.TreasuryWsURL, nil)
	if err != nil {
		return err
	}

	// Unblock the read loop when the source is stopped
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	subscribe := map[string]interface{}{
		"event": "pusher:subscribe",
		"data":  map[string]string{"channel": s.Config.Feed.TreasuryChannel},
	}
	if err := conn.WriteJSON(subscribe); err != nil {
		return err
	}

	s.Logger.Info("Subscribed to %s", s.Config.Feed.TreasuryChannel)

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if msgType != websocket.TextMessage {
			continue
		}
		s.handleMessage(payload)
	}
}

// -----------------------------------------------------------------------------

func (s *TreasurySource) handleMessage(payload []byte) {
	var msg pusherMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return
	}
	if msg.Event != s.Config.Feed.TreasuryEvent {
		return
	}

	data, ok := decodeGoldRate(msg.Data)
	if !ok {
		return
	}

	buy, ok := parseRate(data.BuyingRate)
	if !ok {
		return
	}
	sell, ok := parseRate(data.SellingRate)
	if !ok {
		return
	}
	if data.CreatedAt == "" {
		return
	}

	if s.State.RecordGoldPrice(buy, sell, data.CreatedAt) {
		s.State.PublishSnapshot()
		s.Logger.Debug("Gold rate %d/%d at %s", buy, sell, data.CreatedAt)
	}
}

// -----------------------------------------------------------------------------

// decodeGoldRate accepts the event payload as an object or as an embedded
// JSON string.
func decodeGoldRate(raw json.RawMessage) (goldRateData, bool) {
	var data goldRateData

	if len(raw) == 0 {
		return data, false
	}

	if raw[0] == '"' {
		var embedded string
		if err := json.Unmarshal(raw, &embedded); err != nil {
			return data, false
		}
		raw = []byte(embedded)
	}

	if err := json.Unmarshal(raw, &data); err != nil {
		return data, false
	}
	return data, true
}

// -----------------------------------------------------------------------------

// parseRate accepts a JSON number or a string with dot/comma separators.
func parseRate(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}

	if raw[0] == '"' {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return 0, false
		}
		str = strings.ReplaceAll(str, ".", "")
		str = strings.ReplaceAll(str, ",", "")
		v, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}

	var num float64
	if err := json.Unmarshal(raw, &num); err != nil {
		return 0, false
	}
	return int64(num), true
}
