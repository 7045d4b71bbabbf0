// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package icecast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/emissor/internal/diagnose"
	"github.com/tomtom215/emissor/internal/events"
	"github.com/tomtom215/emissor/internal/logging"
	"github.com/tomtom215/emissor/internal/metrics"
	"github.com/tomtom215/emissor/internal/models"
	"github.com/tomtom215/emissor/internal/process"
)

// Start launches the server through its launcher and confirms it survived
// the startup window. Returns ErrNotDetected before a successful
// detection and ErrAlreadyRunning when a server is already tracked.
func (m *Manager) Start(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	err := m.startLocked(ctx)
	metrics.RecordServerOperation("start", err)
	return err
}

// Stop terminates the tracked server, or adopts and terminates an
// untracked one found by process name. Returns ErrNotRunning when neither
// exists.
func (m *Manager) Stop(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	err := m.stopLocked(ctx)
	metrics.RecordServerOperation("stop", err)
	return err
}

// Restart stops the server, tolerating one that is not running, then
// starts it. A server that was never started comes up running.
func (m *Manager) Restart(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	err := m.restartLocked(ctx)
	metrics.RecordServerOperation("restart", err)
	return err
}

func (m *Manager) restartLocked(ctx context.Context) error {
	if err := m.stopLocked(ctx); err != nil && !errors.Is(err, ErrNotRunning) {
		return err
	}
	return m.startLocked(ctx)
}

func (m *Manager) startLocked(ctx context.Context) error {
	m.mu.Lock()
	if !m.detected {
		m.mu.Unlock()
		return ErrNotDetected
	}
	if m.state.Running {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	spec := process.Spec{
		Name:   "icecast",
		Binary: m.state.LauncherPath,
		Args:   []string{"-c", m.state.ConfigPath},
		Dir:    m.state.InstallPath,
	}
	m.mu.Unlock()

	logging.Info().
		Str("component", "icecast").
		Str("launcher", spec.Binary).
		Str("config", spec.Args[1]).
		Msg("Starting Icecast server")

	proc, err := m.launcher.Launch(ctx, spec)
	if err != nil {
		return fmt.Errorf("launch icecast: %w", err)
	}

	// The launcher may exit before the window elapses: either a failed
	// start or a wrapper handing off to the real server, which is how the
	// Windows script behaves. Liveness is decided by the process-presence
	// check after the window either way, so a handoff gets the full
	// window to register in the process table. A cancelled context tears
	// the fresh process down again.
	window := time.NewTimer(m.cfg.StartupWindow)
	defer window.Stop()
	select {
	case <-ctx.Done():
		_ = proc.Terminate(context.Background(), m.cfg.ShutdownGrace)
		return ctx.Err()
	case <-window.C:
	}

	handleAlive := true
	select {
	case <-proc.Done():
		handleAlive = false
	default:
	}

	switch pids := m.serverPIDs(ctx); {
	case handleAlive:
		m.markRunning(ctx, proc, proc.PID())
	case len(pids) > 0:
		m.markRunning(ctx, nil, pids[0])
	default:
		d := diagnose.Diagnose(proc.Output(), proc.ExitCode(), m.diagContext())
		m.recordStartFailure(ctx, d)
		return fmt.Errorf("icecast did not survive the startup window: %s", d.Title)
	}
	return nil
}

func (m *Manager) stopLocked(ctx context.Context) error {
	m.mu.Lock()
	proc := m.proc
	pid := m.state.PID
	tracked := m.state.Running
	m.stopping = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.stopping = false
		m.mu.Unlock()
	}()

	if !tracked {
		return m.stopUntracked(ctx)
	}

	logging.Info().
		Str("component", "icecast").
		Int("pid", pid).
		Bool("adopted", proc == nil).
		Msg("Stopping Icecast server")

	var stopErr error
	switch {
	case proc != nil:
		stopErr = proc.Terminate(ctx, m.cfg.ShutdownGrace)
	case pid > 0:
		stopErr = process.TerminatePID(ctx, pid, m.cfg.ShutdownGrace)
	}
	if stopErr != nil {
		// The process survived both signals. It is still running and the
		// state keeps saying so.
		return fmt.Errorf("stop icecast: %w", stopErr)
	}

	// A wrapper launcher can leave the real daemon behind; sweep the
	// process table and re-verify before declaring the server gone.
	for _, leftover := range m.serverPIDs(ctx) {
		if err := process.TerminatePID(ctx, leftover, m.cfg.ShutdownGrace); err != nil {
			return fmt.Errorf("stop icecast (pid %d): %w", leftover, err)
		}
	}
	if pid > 0 && process.Alive(pid) {
		return fmt.Errorf("stop icecast: pid %d still alive", pid)
	}

	m.markStopped(ctx)
	return nil
}

// stopUntracked terminates a server Emissor never started, found by
// scanning for the configured process names.
func (m *Manager) stopUntracked(ctx context.Context) error {
	pids := m.serverPIDs(ctx)
	if len(pids) == 0 {
		return ErrNotRunning
	}
	logging.Info().
		Str("component", "icecast").
		Ints("pids", pids).
		Msg("Stopping untracked Icecast server")
	for _, pid := range pids {
		if err := process.TerminatePID(ctx, pid, m.cfg.ShutdownGrace); err != nil {
			return fmt.Errorf("stop untracked icecast (pid %d): %w", pid, err)
		}
	}
	return nil
}

// markRunning records a live server. proc is nil when the PID was adopted
// from a process table scan rather than spawned here; only a spawned
// handle gets an exit watcher.
func (m *Manager) markRunning(ctx context.Context, proc process.Process, pid int) {
	m.mu.Lock()
	m.proc = proc
	m.state.Running = true
	m.state.PID = pid
	m.state.LastDiagnosis = nil
	m.state.CheckedAt = time.Now().UTC()
	m.mu.Unlock()

	if proc != nil {
		go m.watchExit(proc)
	}

	metrics.SetServerUp(true)
	m.publish(ctx, events.NewServerTransition("stopped", "running"))
	logging.Info().
		Str("component", "icecast").
		Int("pid", pid).
		Bool("adopted", proc == nil).
		Msg("Icecast server running")
}

func (m *Manager) markStopped(ctx context.Context) {
	m.mu.Lock()
	m.proc = nil
	m.state.Running = false
	m.state.PID = 0
	m.state.CheckedAt = time.Now().UTC()
	m.mu.Unlock()

	metrics.SetServerUp(false)
	m.publish(ctx, events.NewServerTransition("running", "stopped"))
	logging.Info().
		Str("component", "icecast").
		Msg("Icecast server stopped")
}

func (m *Manager) recordStartFailure(ctx context.Context, d models.Diagnosis) {
	m.mu.Lock()
	m.proc = nil
	m.state.Running = false
	m.state.PID = 0
	m.state.LastDiagnosis = &d
	m.state.CheckedAt = time.Now().UTC()
	m.mu.Unlock()

	metrics.SetServerUp(false)
	m.publish(ctx, events.NewServerDiagnosis(d))
	logging.Error().
		Str("component", "icecast").
		Str("category", string(d.Category)).
		Str("title", d.Title).
		Msg("Icecast start failed")
}

// watchExit turns an unsolicited death of a spawned server into a
// diagnosis. A deliberate stop sets the stopping flag and clears the
// tracked handle, so the watcher stands down for those.
func (m *Manager) watchExit(proc process.Process) {
	<-proc.Done()

	m.mu.Lock()
	if m.proc != proc || m.stopping {
		m.mu.Unlock()
		return
	}
	m.proc = nil
	m.mu.Unlock()

	d := diagnose.Diagnose(proc.Output(), proc.ExitCode(), m.diagContext())

	m.mu.Lock()
	m.state.Running = false
	m.state.PID = 0
	m.state.LastDiagnosis = &d
	m.state.CheckedAt = time.Now().UTC()
	m.mu.Unlock()

	metrics.SetServerUp(false)
	ctx := context.Background()
	m.publish(ctx, events.NewServerTransition("running", "stopped"))
	m.publish(ctx, events.NewServerDiagnosis(d))
	logging.Error().
		Str("component", "icecast").
		Str("category", string(d.Category)).
		Int("exit_code", proc.ExitCode()).
		Msg("Icecast server died unexpectedly")
}

// CheckLiveness re-verifies a tracked server against the OS. It is the
// watchdog's poll body and matters mainly for adopted servers, which have
// no exit watcher; a spawned server's own watcher reacts faster.
func (m *Manager) CheckLiveness(ctx context.Context) {
	m.mu.Lock()
	running := m.state.Running
	proc := m.proc
	pid := m.state.PID
	stopping := m.stopping
	logDir := m.state.LogDir
	m.mu.Unlock()

	if !running || stopping {
		return
	}

	if proc != nil {
		select {
		case <-proc.Done():
			// The exit watcher owns this death.
		default:
			m.touchChecked()
		}
		return
	}

	if pid > 0 && process.Alive(pid) {
		m.touchChecked()
		return
	}
	if pids := m.serverPIDs(ctx); len(pids) > 0 {
		// The adopted server restarted itself under a new PID.
		m.mu.Lock()
		m.state.PID = pids[0]
		m.state.CheckedAt = time.Now().UTC()
		m.mu.Unlock()
		return
	}

	// Confirmed gone without an observable exit status.
	d := models.Diagnosis{
		Category: models.CategoryProcessCrash,
		Severity: models.SeverityCritical,
		Title:    "Icecast server process disappeared",
		Causes: []string{
			"The server process exited outside of this orchestrator's control.",
			"It may have crashed, or been stopped by another operator or the OS.",
		},
		Remedies: []string{
			"Check the server error log under " + logDir + " for the shutdown reason.",
			"Start the server again once the cause is addressed.",
		},
		Technical: fmt.Sprintf("pid %d no longer present in the process table", pid),
		CreatedAt: time.Now().UTC(),
	}

	m.mu.Lock()
	if !m.state.Running || m.proc != nil || m.stopping {
		m.mu.Unlock()
		return
	}
	m.state.Running = false
	m.state.PID = 0
	m.state.LastDiagnosis = &d
	m.state.CheckedAt = time.Now().UTC()
	m.mu.Unlock()

	metrics.SetServerUp(false)
	m.publish(ctx, events.NewServerTransition("running", "stopped"))
	m.publish(ctx, events.NewServerDiagnosis(d))
	logging.Error().
		Str("component", "icecast").
		Int("pid", pid).
		Msg("Icecast server disappeared")
}

func (m *Manager) touchChecked() {
	m.mu.Lock()
	m.state.CheckedAt = time.Now().UTC()
	m.mu.Unlock()
}
