package ratelimit

import (
	"sync"
	"sync/atomic"

	"gold-monitor/src/utils"

	"github.com/jonboulle/clockwork"
)

// -----------------------------------------------------------------------------
// Per-IP sliding-window request counter.
//
// Verdicts: Ok records the request, Limited rejects without penalty, Blocked
// tells the caller to escalate to a hard ban.
//
// Windows are split across fixed shards, each behind its own mutex, so checks
// for different IPs proceed without contending on one lock.
// -----------------------------------------------------------------------------

type Verdict int

const (
	VerdictOk Verdict = iota
	VerdictLimited
	VerdictBlocked
)

const shardCount = 16

// -----------------------------------------------------------------------------

type rateShard struct {
	mu       sync.Mutex
	requests map[string][]int64
}

type RateLimiter struct {
	clock clockwork.Clock

	shards [shardCount]rateShard

	lastSweep atomic.Int64
}

// -----------------------------------------------------------------------------

func NewRateLimiter(clock clockwork.Clock) *RateLimiter {
	r := &RateLimiter{clock: clock}
	for i := range r.shards {
		r.shards[i].requests = make(map[string][]int64)
	}
	return r
}

// -----------------------------------------------------------------------------

func (r *RateLimiter) shard(ip string) *rateShard {
	return &r.shards[utils.KeyShard(ip, shardCount)]
}

// -----------------------------------------------------------------------------

// Check prunes the window for ip and classifies the request. Ok and Limited
// record the current timestamp, so sustained pressure past the soft ceiling
// still climbs toward the hard one; a Blocked verdict records nothing since
// the caller escalates to a ban.
func (r *RateLimiter) Check(ip string) (int, Verdict) {
	now := r.clock.Now().Unix()
	r.sweep(now)

	cutoff := now - utils.RateLimitWindowSecs

	s := r.shard(ip)
	s.mu.Lock()
	defer s.mu.Unlock()

	window := prune(s.requests[ip], cutoff)
	count := len(window)

	if count >= utils.RateLimitStrictMax {
		s.requests[ip] = window
		return count, VerdictBlocked
	}

	s.requests[ip] = append(window, now)
	if count >= utils.RateLimitMaxRequests {
		return count + 1, VerdictLimited
	}
	return count + 1, VerdictOk
}

// -----------------------------------------------------------------------------

// Keys reports how many IPs currently hold a window.
func (r *RateLimiter) Keys() int {
	total := 0
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.Lock()
		total += len(s.requests)
		s.mu.Unlock()
	}
	return total
}

// -----------------------------------------------------------------------------

// sweep prunes stale timestamps across all keys and drops empty keys,
// bounding memory independent of request volume. The compare-and-swap guard
// lets at most one caller per interval do the work; shards are locked one at
// a time so the sweep never stalls the whole table.
func (r *RateLimiter) sweep(now int64) {
	last := r.lastSweep.Load()
	if now-last < utils.RateSweepSecs {
		return
	}
	if !r.lastSweep.CompareAndSwap(last, now) {
		return
	}

	cutoff := now - utils.RateLimitWindowSecs

	for i := range r.shards {
		s := &r.shards[i]
		s.mu.Lock()
		for ip, window := range s.requests {
			pruned := prune(window, cutoff)
			if len(pruned) == 0 {
				delete(s.requests, ip)
				continue
			}
			s.requests[ip] = pruned
		}
		s.mu.Unlock()
	}
}

// -----------------------------------------------------------------------------

// prune keeps timestamps strictly newer than cutoff, in place.
func prune(window []int64, cutoff int64) []int64 {
	kept := window[:0]
	for _, t := range window {
		if t > cutoff {
			kept = append(kept, t)
		}
	}
	return kept
}
