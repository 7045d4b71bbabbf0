// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package icecast

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tomtom215/emissor/internal/config"
	"github.com/tomtom215/emissor/internal/logging"
)

const (
	defaultWatchdogInterval = 15 * time.Second

	// configDebounce coalesces the event burst an editor save produces
	// into a single revalidation.
	configDebounce = 500 * time.Millisecond
)

// Watchdog periodically re-verifies server liveness and, when enabled,
// revalidates the server configuration file whenever it changes on disk.
type Watchdog struct {
	manager     *Manager
	interval    time.Duration
	watchConfig bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
}

// NewWatchdog creates a watchdog for the given manager.
func NewWatchdog(manager *Manager, cfg config.IcecastConfig) *Watchdog {
	interval := cfg.WatchdogInterval
	if interval <= 0 {
		interval = defaultWatchdogInterval
	}
	return &Watchdog{
		manager:     manager,
		interval:    interval,
		watchConfig: cfg.WatchConfig,
	}
}

// Start begins the liveness loop and the config file watch. Calling Start
// on a running watchdog is a no-op. The config watch needs a completed
// detection; without one only liveness polling runs.
func (w *Watchdog) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.running = true

	w.wg.Add(1)
	go w.run()

	configWatched := false
	if w.watchConfig {
		if path := w.manager.State().ConfigPath; path != "" {
			if err := w.watchFile(path); err != nil {
				logging.Warn().
					Err(err).
					Str("component", "icecast").
					Str("path", path).
					Msg("Config watch unavailable, falling back to liveness polling only")
			} else {
				configWatched = true
			}
		}
	}

	logging.Info().
		Str("component", "icecast").
		Dur("interval", w.interval).
		Bool("config_watched", configWatched).
		Msg("Server watchdog started")
	return nil
}

// Stop halts the watchdog and waits for its goroutines to exit.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.cancel()
	w.running = false
	w.mu.Unlock()

	w.wg.Wait()
	logging.Info().
		Str("component", "icecast").
		Msg("Server watchdog stopped")
}

// IsRunning reports whether the watchdog is active.
func (w *Watchdog) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watchdog) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.manager.CheckLiveness(w.ctx)
		}
	}
}

// watchFile watches the directory containing the config file and filters
// events down to the file itself. Watching the directory instead of the
// file keeps the watch alive across the rename-and-replace saves editors
// perform.
func (w *Watchdog) watchFile(path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	w.wg.Add(1)
	go w.watchLoop(watcher, filepath.Base(path))
	return nil
}

func (w *Watchdog) watchLoop(watcher *fsnotify.Watcher, target string) {
	defer w.wg.Done()
	defer func() {
		_ = watcher.Close()
	}()

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(configDebounce, func() {
				if _, err := w.manager.RefreshConfigValidation(w.ctx); err != nil {
					logging.Warn().
						Err(err).
						Str("component", "icecast").
						Msg("Config revalidation failed")
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Warn().
				Err(err).
				Str("component", "icecast").
				Msg("Config watcher error")
		}
	}
}
