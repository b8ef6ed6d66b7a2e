package helpers

import (
	"errors"
	"testing"
	"time"

	"gold-monitor/src/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func TestRetryWithBackoffSucceedsMidway(t *testing.T) {
	log := logger.NewLogger("ERROR", "RetryTest")

	calls := 0
	err := RetryWithBackoff(log, "probe", 3, time.Millisecond, func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

// -----------------------------------------------------------------------------

func TestRetryWithBackoffExhaustion(t *testing.T) {
	log := logger.NewLogger("ERROR", "RetryTest")

	calls := 0
	cause := errors.New("down")
	err := RetryWithBackoff(log, "probe", 3, time.Millisecond, func() error {
		calls++
		return cause
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)

	var upErr *UpstreamError
	assert.ErrorAs(t, err, &upErr)
	assert.ErrorIs(t, err, cause)
}
