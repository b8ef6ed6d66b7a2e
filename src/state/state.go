package state

import (
	"sync"
	"sync/atomic"
	"time"

	"gold-monitor/src/interfaces"
	"gold-monitor/src/logger"
	"gold-monitor/src/models"
	"gold-monitor/src/utils"

	"github.com/jonboulle/clockwork"
)

// -----------------------------------------------------------------------------
// CachedSnapshot is an immutable serialized state document. Replaced
// wholesale, never mutated, so a reader holding a reference always sees a
// consistent view.
// -----------------------------------------------------------------------------

type CachedSnapshot struct {
	Data      []byte
	Version   uint64
	CreatedAt time.Time
}

// -----------------------------------------------------------------------------
// AppState is the single process-wide authority for the price history.
// Collections sit behind a reader/writer lock, scalars are atomics, and the
// serialized snapshot hangs off an atomically swapped pointer.
// -----------------------------------------------------------------------------

type AppState struct {
	Logger *logger.Logger

	clock clockwork.Clock

	mu         sync.RWMutex
	history    *RollingHistory[models.MGoldEntry]
	usdHistory *RollingHistory[models.MUsdIdrEntry]

	lastBuy    atomic.Int64
	hasLastBuy atomic.Bool
	limitBulan atomic.Int64

	// Dedup of already-processed feed updates, keyed by created_at.
	seenMu      sync.Mutex
	seenUpdates map[string]struct{}

	cache        atomic.Pointer[CachedSnapshot]
	cacheVersion atomic.Uint64

	broadcaster interfaces.IBroadcaster
}

// -----------------------------------------------------------------------------

const defaultLimitBulan = 8

// NewAppState creates the shared state with an empty pre-built snapshot.
func NewAppState(clock clockwork.Clock, log *logger.Logger) *AppState {
	s := &AppState{
		Logger:      log,
		clock:       clock,
		history:     NewRollingHistory[models.MGoldEntry](utils.MaxHistory),
		usdHistory:  NewRollingHistory[models.MUsdIdrEntry](utils.MaxUsdHistory),
		seenUpdates: make(map[string]struct{}, 64),
	}
	s.limitBulan.Store(defaultLimitBulan)
	s.cache.Store(&CachedSnapshot{
		Data:      []byte(`{"history":[],"usd_idr_history":[],"limit_bulan":8}`),
		Version:   0,
		CreatedAt: clock.Now(),
	})
	return s
}

// -----------------------------------------------------------------------------

// SetBroadcaster wires the fan-out hub. Must be called before any producer
// starts; the field is not re-assigned afterwards.
func (s *AppState) SetBroadcaster(b interfaces.IBroadcaster) {
	s.broadcaster = b
}

// -----------------------------------------------------------------------------

// InvalidateCache marks every cached snapshot stale. The next read rebuilds.
func (s *AppState) InvalidateCache() {
	s.cacheVersion.Add(1)
}

// -----------------------------------------------------------------------------

// GetSnapshot returns the current serialized state. A cached buffer is reused
// while its version matches and it is younger than the TTL; otherwise the
// document is rebuilt from live state. Concurrent rebuilds are safe: the
// build is a pure function of locked state, so duplicate work only wastes
// CPU. The snapshot is stamped with the version observed before the rebuild,
// which guarantees a mutation racing with an in-flight rebuild is visible on
// the next read after its own version increment.
func (s *AppState) GetSnapshot() []byte {
	current := s.cache.Load()
	ver := s.cacheVersion.Load()

	if current.Version == ver && s.clock.Since(current.CreatedAt) < utils.StateCacheTTL {
		return current.Data
	}

	data := s.buildSnapshot()

	s.cache.Store(&CachedSnapshot{
		Data:      data,
		Version:   ver,
		CreatedAt: s.clock.Now(),
	})

	return data
}

// -----------------------------------------------------------------------------

// PublishSnapshot pushes a fresh snapshot to every subscriber.
func (s *AppState) PublishSnapshot() {
	if s.broadcaster != nil {
		s.broadcaster.Broadcast(s.GetSnapshot())
	}
}

// -----------------------------------------------------------------------------

// RecordGoldPrice stores one gold update. The status tag and delta are
// computed against the previous buying rate. Updates already seen (same
// created_at) are dropped. Returns true when the history changed.
func (s *AppState) RecordGoldPrice(buy, sell int64, createdAt string) bool {
	if createdAt == "" {
		return false
	}

	s.seenMu.Lock()
	if _, dup := s.seenUpdates[createdAt]; dup {
		s.seenMu.Unlock()
		return false
	}
	s.seenUpdates[createdAt] = struct{}{}
	if len(s.seenUpdates) > 5000 {
		s.seenUpdates = map[string]struct{}{createdAt: {}}
	}
	s.seenMu.Unlock()

	status := utils.StatusNeutral
	var diff int64
	if s.hasLastBuy.Load() {
		last := s.lastBuy.Load()
		switch {
		case buy > last:
			status = utils.StatusUp
			diff = buy - last
		case buy < last:
			status = utils.StatusDown
			diff = buy - last
		}
	}

	s.mu.Lock()
	s.history.Append(models.MGoldEntry{
		BuyingRate:  buy,
		SellingRate: sell,
		Status:      status,
		Diff:        diff,
		CreatedAt:   createdAt,
	})
	s.mu.Unlock()

	s.lastBuy.Store(buy)
	s.hasLastBuy.Store(true)
	s.InvalidateCache()
	return true
}

// -----------------------------------------------------------------------------

// RecordUsdIdr stores one USD/IDR quote, only when it differs from the
// newest stored price. Returns true when the history changed.
func (s *AppState) RecordUsdIdr(price string) bool {
	if price == "" {
		return false
	}

	s.mu.RLock()
	last, ok := s.usdHistory.Last()
	s.mu.RUnlock()
	if ok && last.Price == price {
		return false
	}

	s.mu.Lock()
	s.usdHistory.Append(models.MUsdIdrEntry{
		Price: price,
		Time:  utils.CurrentWibTime(s.clock.Now()),
	})
	s.mu.Unlock()

	s.InvalidateCache()
	return true
}

// -----------------------------------------------------------------------------

// SetLimit updates the monthly limit. Bounds checking belongs to the caller.
func (s *AppState) SetLimit(v int64) {
	s.limitBulan.Store(v)
	s.InvalidateCache()
}

// -----------------------------------------------------------------------------

// Limit returns the current monthly limit.
func (s *AppState) Limit() int64 {
	return s.limitBulan.Load()
}

// -----------------------------------------------------------------------------

// HistoryLen reports the number of stored gold entries.
func (s *AppState) HistoryLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.Len()
}
