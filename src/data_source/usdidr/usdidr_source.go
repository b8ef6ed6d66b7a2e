package usdidr

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gold-monitor/src/interfaces"
	"gold-monitor/src/logger"
	"gold-monitor/src/models"
	"gold-monitor/src/state"
)

// -----------------------------------------------------------------------------
// UsdIdrSource polls the Google Finance USD/IDR quote page and stores the
// price whenever it changes. Fetch failures are transient; the loop just
// tries again on the next tick.
// -----------------------------------------------------------------------------

type UsdIdrSource struct {
	Config  *models.MConfig
	State   *state.AppState
	Network interfaces.INetworkManager
	Logger  *logger.Logger

	cancelFunc context.CancelFunc
	isRunning  atomic.Bool
}

// -----------------------------------------------------------------------------

func NewUsdIdrSource(cfg *models.MConfig, st *state.AppState, netMgr interfaces.INetworkManager, log *logger.Logger) *UsdIdrSource {
	return &UsdIdrSource{
		Config:  cfg,
		State:   st,
		Network: netMgr,
		Logger:  log,
	}
}

// -----------------------------------------------------------------------------

func (s *UsdIdrSource) Name() string {
	return "usd-idr"
}

// -----------------------------------------------------------------------------

// IsRealTime returns false: this source follows the polling interval model
func (s *UsdIdrSource) IsRealTime() bool {
	return false
}

// -----------------------------------------------------------------------------

func (s *UsdIdrSource) Start(ctx context.Context, wg *sync.WaitGroup) error {
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

func (s *UsdIdrSource) Stop() error {
	if !s.isRunning.Load() {
		return nil
	}
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *UsdIdrSource) run(ctx context.Context) {
	interval := time.Duration(s.Config.Feed.UsdPollIntervalMs) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.poll()
		}
	}
}

// -----------------------------------------------------------------------------

func (s *UsdIdrSource) poll() {
	price, err := s.fetchPrice()
	if err != nil {
		s.Logger.Debug("USD/IDR fetch failed: %v", err)
		return
	}
	if price == "" {
		return
	}

	if s.State.RecordUsdIdr(price) {
		s.State.PublishSnapshot()
		s.Logger.Debug("USD/IDR %s", price)
	}
}

// -----------------------------------------------------------------------------

func (s *UsdIdrSource) fetchPrice() (string, error) {
	body, err := s.Network.Get(s.Config.Feed.UsdIdrURL, nil, map[string]string{
		"Accept": "text/html,application/xhtml+xml",
		"Cookie": "CONSENT=YES+cb.20231208-04-p0.en+FX+410",
	})
	if err != nil {
		return "", err
	}

	return extractQuote(body), nil
}

// -----------------------------------------------------------------------------

// extractQuote pulls the quote text out of the page markup. The price sits in
// the first element carrying the YMlKec fxKbKc class pair; the markup around
// it is unstable, the class marker has not been.
func extractQuote(body []byte) string {
	const marker = `class="YMlKec fxKbKc"`

	i := bytes.Index(body, []byte(marker))
	if i < 0 {
		return ""
	}

	rest := body[i+len(marker):]
	open := bytes.IndexByte(rest, '>')
	if open < 0 {
		return ""
	}
	rest = rest[open+1:]

	close := bytes.IndexByte(rest, '<')
	if close < 0 {
		return ""
	}

	return strings.TrimSpace(string(rest[:close]))
}
