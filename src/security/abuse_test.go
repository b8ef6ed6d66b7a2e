package security

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"gold-monitor/src/logger"
	"gold-monitor/src/utils"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func newTestGuard(t *testing.T) (*AbuseGuard, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Unix(1_700_000_000, 0))
	return NewAbuseGuard(clock, logger.NewLogger("ERROR", "GuardTest")), clock
}

// -----------------------------------------------------------------------------

func TestFailedAttemptsAccumulateByWeight(t *testing.T) {
	g, _ := newTestGuard(t)

	// 3 + 1 = 4 < 5: not banned yet
	g.RecordFailedAttempt("1.2.3.4", utils.WeightSuspiciousPath)
	g.RecordFailedAttempt("1.2.3.4", utils.WeightAuthFailure)
	require.False(t, g.IsBlocked("1.2.3.4"))

	// One more unit reaches the threshold
	g.RecordFailedAttempt("1.2.3.4", utils.WeightAuthFailure)
	assert.True(t, g.IsBlocked("1.2.3.4"))
}

// -----------------------------------------------------------------------------

func TestSingleHighWeightAttemptBans(t *testing.T) {
	g, _ := newTestGuard(t)

	g.RecordFailedAttempt("1.2.3.4", utils.MaxFailedAttempts)
	assert.True(t, g.IsBlocked("1.2.3.4"))
	assert.False(t, g.IsBlocked("5.6.7.8"))
}

// -----------------------------------------------------------------------------

func TestBanExpiresAndClearsRecords(t *testing.T) {
	g, clock := newTestGuard(t)

	g.RecordFailedAttempt("1.2.3.4", utils.MaxFailedAttempts)
	require.True(t, g.IsBlocked("1.2.3.4"))

	clock.Advance((utils.BlockDurationSecs - 1) * time.Second)
	require.True(t, g.IsBlocked("1.2.3.4"))

	// Exactly BLOCK_DURATION after the trigger the ban lapses
	clock.Advance(time.Second)
	require.False(t, g.IsBlocked("1.2.3.4"))

	// The attempt record was cleared with the ban: a single low-weight
	// failure must not re-ban immediately
	g.RecordFailedAttempt("1.2.3.4", utils.WeightAuthFailure)
	assert.False(t, g.IsBlocked("1.2.3.4"))
}

// -----------------------------------------------------------------------------

func TestAttemptsPrunedByWindow(t *testing.T) {
	g, clock := newTestGuard(t)

	g.RecordFailedAttempt("1.2.3.4", 4)
	clock.Advance((utils.FailedAttemptsSecs + 1) * time.Second)

	// The earlier weight aged out; this alone is below the threshold
	g.RecordFailedAttempt("1.2.3.4", 4)
	assert.False(t, g.IsBlocked("1.2.3.4"))
}

// -----------------------------------------------------------------------------

func TestBlockIPExplicitDuration(t *testing.T) {
	g, clock := newTestGuard(t)

	g.BlockIP("1.2.3.4", utils.EscalatedBlockSecs*time.Second)
	require.True(t, g.IsBlocked("1.2.3.4"))

	clock.Advance((utils.EscalatedBlockSecs - 1) * time.Second)
	require.True(t, g.IsBlocked("1.2.3.4"))

	clock.Advance(time.Second)
	assert.False(t, g.IsBlocked("1.2.3.4"))
}

// -----------------------------------------------------------------------------

func TestConcurrentAttemptsStayPerIP(t *testing.T) {
	g, _ := newTestGuard(t)

	const ips = 32
	var wg sync.WaitGroup
	for k := 0; k < ips; k++ {
		wg.Add(1)
		go func(k int) {
			defer wg.Done()
			ip := fmt.Sprintf("10.0.0.%d", k)
			for i := 0; i < utils.MaxFailedAttempts; i++ {
				g.RecordFailedAttempt(ip, 1)
			}
		}(k)
	}
	wg.Wait()

	// Every hammered IP reached its own ban; a bystander did not
	for k := 0; k < ips; k++ {
		assert.True(t, g.IsBlocked(fmt.Sprintf("10.0.0.%d", k)), "ip %d", k)
	}
	assert.False(t, g.IsBlocked("10.0.1.1"))
}

// -----------------------------------------------------------------------------

func TestBlockIPOverwritesExpiry(t *testing.T) {
	g, clock := newTestGuard(t)

	g.BlockIP("1.2.3.4", 10*time.Second)
	g.BlockIP("1.2.3.4", 100*time.Second)

	clock.Advance(50 * time.Second)
	assert.True(t, g.IsBlocked("1.2.3.4"))
}
