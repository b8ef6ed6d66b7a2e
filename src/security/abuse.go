package security

import (
	"sync"
	"time"

	"gold-monitor/src/logger"
	"gold-monitor/src/utils"

	"github.com/jonboulle/clockwork"
)

// -----------------------------------------------------------------------------
// AbuseGuard holds the ban table and the weighted failed-attempt table.
//
// Failed attempts carry a weight encoding confidence: a suspicious-path probe
// counts more than a wrong control key, so high-confidence probes and
// repeated low-confidence errors converge to a ban at different speeds. Once
// the unexpired weight for an IP reaches the threshold, the IP is banned.
//
// Both tables are split across fixed shards, each behind its own mutex, so
// lookups for different IPs proceed without contending on one lock.
// -----------------------------------------------------------------------------

const shardCount = 16

type guardShard struct {
	mu       sync.Mutex
	bans     map[string]int64   // ip -> ban expiry (epoch seconds)
	attempts map[string][]int64 // ip -> weighted violation timestamps
}

type AbuseGuard struct {
	Logger *logger.Logger
	clock  clockwork.Clock

	shards [shardCount]guardShard
}

// -----------------------------------------------------------------------------

func NewAbuseGuard(clock clockwork.Clock, log *logger.Logger) *AbuseGuard {
	g := &AbuseGuard{
		Logger: log,
		clock:  clock,
	}
	for i := range g.shards {
		g.shards[i].bans = make(map[string]int64, 4)
		g.shards[i].attempts = make(map[string][]int64, 4)
	}
	return g
}

// -----------------------------------------------------------------------------

func (g *AbuseGuard) shard(ip string) *guardShard {
	return &g.shards[utils.KeyShard(ip, shardCount)]
}

// -----------------------------------------------------------------------------

// IsBlocked reports whether ip is currently banned. An expired ban is lazily
// removed together with the failed-attempt record.
func (g *AbuseGuard) IsBlocked(ip string) bool {
	now := g.clock.Now().Unix()

	s := g.shard(ip)
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.bans[ip]
	if !ok {
		return false
	}
	if now < expiry {
		return true
	}

	delete(s.bans, ip)
	delete(s.attempts, ip)
	return false
}

// -----------------------------------------------------------------------------

// BlockIP unconditionally sets or overwrites the ban expiry for ip.
func (g *AbuseGuard) BlockIP(ip string, duration time.Duration) {
	expiry := g.clock.Now().Add(duration).Unix()

	s := g.shard(ip)
	s.mu.Lock()
	s.bans[ip] = expiry
	s.mu.Unlock()

	g.Logger.Warning("Blocked %s for %v", ip, duration)
}

// -----------------------------------------------------------------------------

// RecordFailedAttempt adds weight violation entries for ip, prunes entries
// older than the trailing window, and bans the ip once the threshold is
// reached.
func (g *AbuseGuard) RecordFailedAttempt(ip string, weight int) {
	now := g.clock.Now().Unix()
	cutoff := now - utils.FailedAttemptsSecs

	s := g.shard(ip)
	s.mu.Lock()

	entry := s.attempts[ip]
	for i := 0; i < weight; i++ {
		entry = append(entry, now)
	}

	kept := entry[:0]
	for _, t := range entry {
		if t > cutoff {
			kept = append(kept, t)
		}
	}
	s.attempts[ip] = kept

	banned := len(kept) >= utils.MaxFailedAttempts
	s.mu.Unlock()

	if banned {
		g.BlockIP(ip, utils.BlockDurationSecs*time.Second)
	}
}
