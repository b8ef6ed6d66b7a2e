package datasource

import (
	"context"
	"fmt"
	"sync"

	"gold-monitor/src/interfaces"
	"gold-monitor/src/logger"
)

// -----------------------------------------------------------------------------
// MultiSourceManager aggregates the producer sources and drives their
// lifecycle under one context.
// -----------------------------------------------------------------------------

type MultiSourceManager struct {
	Sources map[string]interfaces.IDataSource
	Logger  *logger.Logger
	mu      sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewMultiSourceManager(sources []interfaces.IDataSource, log *logger.Logger) *MultiSourceManager {
	m := &MultiSourceManager{
		Sources: make(map[string]interfaces.IDataSource),
		Logger:  log,
	}

	for _, s := range sources {
		m.Sources[s.Name()] = s
	}

	return m
}

// -----------------------------------------------------------------------------

// GetSource returns a registered source by name
func (m *MultiSourceManager) GetSource(name string) (interfaces.IDataSource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	source, exists := m.Sources[name]
	if !exists {
		return nil, fmt.Errorf("source %s not found", name)
	}
	return source, nil
}

// -----------------------------------------------------------------------------

// Start launches every registered source. Cancelling ctx stops them all;
// wg is released once each source has fully stopped.
func (m *MultiSourceManager) Start(ctx context.Context, wg *sync.WaitGroup) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for name, source := range m.Sources {
		if err := source.Start(ctx, wg); err != nil {
			return fmt.Errorf("failed to start source %s: %w", name, err)
		}
		m.Logger.Info("Started source: %s (realtime=%v)", name, source.IsRealTime())
	}

	return nil
}

// -----------------------------------------------------------------------------

// Stop terminates every source
func (m *MultiSourceManager) Stop() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for name, source := range m.Sources {
		if err := source.Stop(); err != nil {
			m.Logger.Error("Error stopping source %s: %v", name, err)
		}
	}

	return nil
}
