// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package journal

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/emissor/internal/logging"
)

// GC runs periodic value-log garbage collection for a Store. Badger drops
// expired entries lazily, so without these passes the space they occupied
// is never returned to the filesystem.
type GC struct {
	store    *Store
	interval time.Duration

	// Control
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// State
	mu      sync.Mutex
	running bool
}

// NewGC creates a collection loop for the store. A non-positive interval
// falls back to ten minutes.
func NewGC(store *Store, interval time.Duration) *GC {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &GC{store: store, interval: interval}
}

// Start begins the background collection loop.
func (g *GC) Start(ctx context.Context) error {
	g.mu.Lock()
	if g.running {
		g.mu.Unlock()
		return nil
	}

	g.ctx, g.cancel = context.WithCancel(ctx)
	g.running = true
	g.mu.Unlock()

	g.wg.Add(1)
	go g.run()

	logging.Info().Dur("interval", g.interval).Msg("Journal GC started")
	return nil
}

// Stop gracefully stops the collection loop.
func (g *GC) Stop() {
	g.mu.Lock()
	if !g.running {
		g.mu.Unlock()
		return
	}
	g.cancel()
	g.running = false
	g.mu.Unlock()

	g.wg.Wait()
	logging.Info().Msg("Journal GC stopped")
}

// IsRunning returns whether the collection loop is active.
func (g *GC) IsRunning() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

// run is the main collection loop goroutine.
func (g *GC) run() {
	defer g.wg.Done()

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-g.ctx.Done():
			return
		case <-ticker.C:
			if err := g.store.RunGC(); err != nil {
				logging.Warn().Err(err).Msg("Journal GC pass failed")
			}
		}
	}
}

// RunNow triggers an immediate collection pass.
func (g *GC) RunNow() error {
	return g.store.RunGC()
}
