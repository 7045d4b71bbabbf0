// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

// Package icecast manages the lifecycle of the local Icecast server:
// installation detection, start/stop/restart through the process layer,
// configuration file validation, and a watchdog that notices deaths and
// config edits.
//
// Liveness is always decided by OS process presence, never by a network
// probe, so a slow-starting server is not misread as down. The server
// process may predate Emissor; such a foreign instance is adopted by PID
// and can be stopped and restarted like one Emissor spawned itself.
package icecast

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/tomtom215/emissor/internal/config"
	"github.com/tomtom215/emissor/internal/diagnose"
	"github.com/tomtom215/emissor/internal/events"
	"github.com/tomtom215/emissor/internal/logging"
	"github.com/tomtom215/emissor/internal/models"
	"github.com/tomtom215/emissor/internal/process"
)

// Errors
var (
	// ErrNotDetected is returned by Start before a successful detection.
	ErrNotDetected = errors.New("icecast: no installation detected, run detection first")

	// ErrAlreadyRunning is returned by Start when a server is already
	// tracked. Starting twice is a caller error, not a no-op.
	ErrAlreadyRunning = errors.New("icecast: server already running")

	// ErrNotRunning is returned by Stop when no process is tracked and no
	// untracked server could be found to adopt.
	ErrNotRunning = errors.New("icecast: server not running")
)

// Publisher is the slice of the event bus the manager needs.
type Publisher interface {
	Publish(ctx context.Context, event *events.Event) error
}

// ConnectionInfo is what an encoder needs to reach the managed server.
// Values come from the orchestrator configuration, falling back to what
// was parsed out of icecast.xml during detection.
type ConnectionInfo struct {
	Host           string
	Port           int
	SourcePassword string
}

// Manager owns the Icecast server lifecycle. All exported methods are safe
// for concurrent use: lifecycle operations are serialized by an operation
// mutex, while snapshot reads only touch the inner state mutex.
type Manager struct {
	cfg      config.IcecastConfig
	goos     string
	launcher process.Launcher
	lister   process.Lister
	bus      Publisher

	// opMu serializes detect/start/stop/restart end to end. mu guards the
	// snapshot fields only and is never held across a spawn or terminate.
	opMu sync.Mutex

	mu       sync.Mutex
	detected bool
	state    models.ServerState
	proc     process.Process

	// stopping is set for the duration of a deliberate stop so the exit
	// watcher does not report the termination as a crash.
	stopping bool

	// sourcePassword parsed from icecast.xml. Kept off ServerState so
	// credentials never appear in API snapshots.
	sourcePassword string
}

// NewManager creates a server lifecycle manager. The bus may be nil, in
// which case no events are published.
func NewManager(cfg config.IcecastConfig, launcher process.Launcher, lister process.Lister, bus Publisher) *Manager {
	return newManager(cfg, launcher, lister, bus, runtime.GOOS)
}

// newManager is separated from NewManager so tests can pin the platform.
func newManager(cfg config.IcecastConfig, launcher process.Launcher, lister process.Lister, bus Publisher, goos string) *Manager {
	return &Manager{
		cfg:      cfg,
		goos:     goos,
		launcher: launcher,
		lister:   lister,
		bus:      bus,
	}
}

// State returns a copy of the current server state.
func (m *Manager) State() models.ServerState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// snapshotLocked copies the state so callers cannot reach shared memory.
// Requires mu held.
func (m *Manager) snapshotLocked() models.ServerState {
	st := m.state
	if st.LastDiagnosis != nil {
		d := *st.LastDiagnosis
		st.LastDiagnosis = &d
	}
	if st.ConfigErrors != nil {
		st.ConfigErrors = append([]string(nil), st.ConfigErrors...)
	}
	return st
}

// Running reports whether a server process is currently tracked.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Running
}

// ConnectionInfo returns the encoder-facing server coordinates. Configured
// values win; the port and source password fall back to what detection
// parsed from icecast.xml.
func (m *Manager) ConnectionInfo() ConnectionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	ci := ConnectionInfo{
		Host:           m.cfg.Host,
		Port:           m.cfg.Port,
		SourcePassword: m.cfg.SourcePassword,
	}
	if ci.Port == 0 {
		ci.Port = m.state.Port
	}
	if ci.SourcePassword == "" {
		ci.SourcePassword = m.sourcePassword
	}
	return ci
}

// publish sends a server event, logging instead of failing when the bus
// rejects it. Status delivery is best effort by contract.
func (m *Manager) publish(ctx context.Context, event *events.Event) {
	if m.bus == nil {
		return
	}
	if err := m.bus.Publish(ctx, event); err != nil {
		logging.Warn().
			Err(err).
			Str("component", "icecast").
			Msg("Failed to publish server event")
	}
}

// diagContext assembles the situational values the diagnosis engine weaves
// into causes and remedies.
func (m *Manager) diagContext() diagnose.Context {
	m.mu.Lock()
	defer m.mu.Unlock()

	port := m.cfg.Port
	if port == 0 {
		port = m.state.Port
	}
	return diagnose.Context{
		Host:   m.cfg.Host,
		Port:   port,
		Binary: m.state.LauncherPath,
	}
}

// serverPIDs scans the process table for every configured server process
// name and returns the union, first name's hits first.
func (m *Manager) serverPIDs(ctx context.Context) []int {
	var pids []int
	seen := make(map[int]struct{})
	for _, name := range m.cfg.ProcessNames {
		found, err := m.lister.PIDsByName(ctx, name)
		if err != nil {
			logging.Debug().
				Err(err).
				Str("component", "icecast").
				Str("process_name", name).
				Msg("Process scan failed")
			continue
		}
		for _, pid := range found {
			if _, dup := seen[pid]; dup {
				continue
			}
			seen[pid] = struct{}{}
			pids = append(pids, pid)
		}
	}
	return pids
}
