package interfaces

import (
	"context"
	"sync"
)

// -----------------------------------------------------------------------------
// IDataSource interface for external price producers. Sources push directly
// into the shared state; they own their reconnect/poll cadence.
// -----------------------------------------------------------------------------

type IDataSource interface {

	// Name returns the unique identifier of the source
	Name() string

	// -----------------------------------------------------------------------------

	// IsRealTime returns true if the source streams updates rather than polling
	IsRealTime() bool

	// -----------------------------------------------------------------------------

	// Start begins producing updates.
	// ctx: controls the lifecycle (cancellation stops the source)
	// wg: WaitGroup to signal when the source has fully stopped
	Start(ctx context.Context, wg *sync.WaitGroup) error

	// -----------------------------------------------------------------------------

	// Stop terminates the source (manual stop; cancelling the Start context
	// is the usual path).
	Stop() error
}
