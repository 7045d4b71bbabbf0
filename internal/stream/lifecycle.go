// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package stream

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"time"

	"github.com/tomtom215/emissor/internal/diagnose"
	"github.com/tomtom215/emissor/internal/events"
	"github.com/tomtom215/emissor/internal/logging"
	"github.com/tomtom215/emissor/internal/metrics"
	"github.com/tomtom215/emissor/internal/models"
	"github.com/tomtom215/emissor/internal/process"
)

// Start brings a stream from a resting or failed state to running, trying
// the format candidates in priority order until one encoder survives the
// startup window. Start returns once the outcome is known: nil with the
// stream running, a NotStartableError for a state that cannot accept a
// start, a StartFailedError when every candidate failed, or
// ErrStartCancelled when a concurrent stop unwound the attempt.
func (s *Supervisor) Start(ctx context.Context, id string) error {
	e, err := s.entryFor(id)
	if err != nil {
		return err
	}

	e.opMu.Lock()
	defer e.opMu.Unlock()

	// The fallback loop runs on its own context so a disconnecting API
	// client cannot abandon a half-started encoder; only Stop and
	// shutdown cancel it.
	loopCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e.mu.Lock()
	if !e.stream.State.Startable() {
		state := e.stream.State
		e.mu.Unlock()
		metrics.RecordStreamStart("rejected")
		return &NotStartableError{ID: id, State: state}
	}
	e.cancelStart = cancel
	ev := s.transitionLocked(e, models.StreamStarting)
	snap := copyStream(e.stream)
	e.mu.Unlock()
	s.publish(ctx, ev)

	err = s.runStart(ctx, loopCtx, e, snap)

	e.mu.Lock()
	e.cancelStart = nil
	e.mu.Unlock()
	return err
}

// Stop brings a stream to the stopped state. Stopping a resting stream is
// a no-op, stopping a failed stream clears it to stopped with the
// diagnosis kept for inspection, and a stop landing mid-start cancels the
// fallback loop and waits for it to unwind before returning.
func (s *Supervisor) Stop(ctx context.Context, id string) error {
	e, err := s.entryFor(id)
	if err != nil {
		return err
	}

	// A fallback loop in flight holds the operation lock, so the cancel
	// must be delivered before this call queues on it. The stopping event
	// goes out before the cancel fires so the loop's stopped event cannot
	// overtake it.
	e.mu.Lock()
	if e.stream.State == models.StreamStarting && e.cancelStart != nil {
		cancel := e.cancelStart
		ev := s.transitionLocked(e, models.StreamStopping)
		e.mu.Unlock()
		s.publish(ctx, ev)
		cancel()
	} else {
		e.mu.Unlock()
	}

	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	switch e.stream.State {
	case models.StreamIdle, models.StreamStopped, models.StreamStarting, models.StreamStopping:
		// Resting states need nothing. The transitional states cannot be
		// observed while holding the operation lock; a cancelled start
		// finishes its own unwind to stopped before releasing it.
		e.mu.Unlock()
		return nil
	case models.StreamFailed:
		ev := s.transitionLocked(e, models.StreamStopped)
		e.mu.Unlock()
		s.publish(ctx, ev)
		return nil
	}

	// Running: take the process away from the exit watcher so the death
	// we are about to cause is not reported as a crash, then terminate it
	// outside any lock.
	proc := e.proc
	e.proc = nil
	snap := copyStream(e.stream)
	ev := s.transitionLocked(e, models.StreamStopping)
	e.mu.Unlock()
	s.publish(ctx, ev)

	var stopErr error
	if proc != nil {
		if err := proc.Terminate(ctx, s.cfg.StopGrace); err != nil {
			stopErr = err
			logging.Error().
				Str("component", "stream").
				Str("stream_id", id).
				Err(err).
				Msg("Encoder did not terminate cleanly")
		}
		metrics.RecordEncoderExit(time.Since(proc.StartedAt()), false)
	}
	s.reservations.release(snap.DeviceID, snap.ID)

	e.mu.Lock()
	e.stream.ActiveFormat = ""
	e.stream.PID = 0
	ev = s.transitionLocked(e, models.StreamStopped)
	e.mu.Unlock()
	s.publish(ctx, ev)

	logging.Info().
		Str("component", "stream").
		Str("stream_id", id).
		Msg("Stream stopped")
	return stopErr
}

// Restart stops the stream, waits the settle interval so the OS fully
// releases the capture device, then starts it. A stream that never
// started comes up running.
func (s *Supervisor) Restart(ctx context.Context, id string) error {
	if err := s.Stop(ctx, id); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.cfg.RestartSettle):
	}

	return s.Start(ctx, id)
}

// StopAll stops every live stream, tolerating individual failures. Used
// during shutdown.
func (s *Supervisor) StopAll(ctx context.Context) {
	for _, st := range s.List() {
		if !st.State.Live() {
			continue
		}
		if err := s.Stop(ctx, st.ID); err != nil {
			logging.Warn().
				Str("component", "stream").
				Str("stream_id", st.ID).
				Err(err).
				Msg("Stream did not stop cleanly during shutdown")
		}
	}
}

// runStart walks the pre-spawn gates, then the format candidates. The
// gates are ordered cheapest first, and each one fails the start before a
// single process is spawned.
func (s *Supervisor) runStart(ctx, loopCtx context.Context, e *entry, snap models.Stream) error {
	diagCtx := s.diagnoseContext(snap, "")

	// Exclusivity first: check-and-set against the reservation table.
	if holder, ok := s.reservations.acquire(snap.DeviceID, snap.ID); !ok {
		return s.failStart(ctx, e, snap, diagnose.DeviceReserved(diagCtx, s.describeStream(holder)), "rejected")
	}

	// The probe is advisory: a broken listing tool must not block
	// streaming, but a healthy inventory that lacks the device or lists
	// it as held elsewhere fails the start cheaply.
	if d := s.probeGate(loopCtx, snap, &diagCtx); d != nil {
		s.reservations.release(snap.DeviceID, snap.ID)
		return s.failStart(ctx, e, snap, *d, "failure")
	}

	// Without a server every candidate could only burn its startup
	// window failing to connect.
	if !s.server.Running() {
		s.reservations.release(snap.DeviceID, snap.ID)
		return s.failStart(ctx, e, snap, diagnose.ServerNotRunning(diagCtx), "failure")
	}

	return s.fallbackLoop(ctx, loopCtx, e, snap, diagCtx)
}

func (s *Supervisor) probeGate(ctx context.Context, snap models.Stream, diagCtx *diagnose.Context) *models.Diagnosis {
	if s.probe == nil {
		return nil
	}

	inv, err := s.probe.Devices(ctx, false)
	if err != nil && len(inv.Devices) == 0 {
		logging.Debug().
			Str("component", "stream").
			Str("stream_id", snap.ID).
			Err(err).
			Msg("Device inventory unavailable, proceeding without it")
		return nil
	}

	dev, found := inv.Find(snap.DeviceID)
	if !found {
		d := diagnose.DeviceMissing(*diagCtx)
		return &d
	}
	diagCtx.DeviceName = dev.Name
	if !dev.Available {
		d := diagnose.DeviceUnavailable(*diagCtx)
		return &d
	}
	return nil
}

// fallbackLoop spawns one encoder per format candidate until one survives
// the startup window. Failures inside the window are diagnosed and the
// next candidate is tried; only the final diagnosis is published when all
// candidates are exhausted.
func (s *Supervisor) fallbackLoop(ctx, loopCtx context.Context, e *entry, snap models.Stream, diagCtx diagnose.Context) error {
	conn := s.server.ConnectionInfo()
	var lastDiag models.Diagnosis

	for _, format := range snap.Formats {
		if loopCtx.Err() != nil {
			return s.finishCancelledStart(e, snap, nil, nil)
		}

		diagCtx.Format = format
		spec := process.Spec{
			Name:   "encoder:" + snap.Name,
			Binary: s.cfg.BinaryPath,
			Args: process.BuildEncoderArgs(process.EncoderSpec{
				DeviceID:   snap.DeviceID,
				Format:     format,
				Bitrate:    snap.BitrateKbps,
				SampleRate: snap.SampleRate,
				Channels:   snap.Channels,
				Host:       conn.Host,
				Port:       conn.Port,
				Mount:      snap.Mount,
				Password:   conn.SourcePassword,
			}),
		}

		logging.Info().
			Str("component", "stream").
			Str("stream_id", snap.ID).
			Str("format", string(format)).
			Msg("Trying encoder format")

		proc, err := s.launcher.Launch(loopCtx, spec)
		if err != nil {
			if loopCtx.Err() != nil {
				return s.finishCancelledStart(e, snap, nil, nil)
			}
			lastDiag = spawnFailureDiagnosis(err, diagCtx)
			metrics.RecordFormatAttempt(string(format), false)
			logging.Warn().
				Str("component", "stream").
				Str("stream_id", snap.ID).
				Str("format", string(format)).
				Err(err).
				Msg("Encoder spawn failed")
			continue
		}
		metrics.EncoderSpawns.Inc()

		window := time.NewTimer(s.cfg.StartupWindow)
		select {
		case <-proc.Done():
			window.Stop()
			lastDiag = diagnose.Diagnose(proc.Output(), proc.ExitCode(), diagCtx)
			metrics.RecordFormatAttempt(string(format), false)
			metrics.RecordEncoderExit(time.Since(proc.StartedAt()), false)
			logging.Warn().
				Str("component", "stream").
				Str("stream_id", snap.ID).
				Str("format", string(format)).
				Int("exit_code", proc.ExitCode()).
				Str("category", string(lastDiag.Category)).
				Msg("Encoder died inside the startup window")
			continue

		case <-loopCtx.Done():
			window.Stop()
			return s.finishCancelledStart(e, snap, proc, nil)

		case <-window.C:
			if !s.adoptRunning(ctx, e, snap, proc, format) {
				return s.finishCancelledStart(e, snap, proc, nil)
			}
			metrics.RecordFormatAttempt(string(format), true)
			metrics.RecordStreamStart("success")
			return nil
		}
	}

	s.reservations.release(snap.DeviceID, snap.ID)
	return s.failStart(ctx, e, snap, lastDiag, "failure")
}

// spawnFailureDiagnosis classifies a launch that never produced a child.
// A missing binary maps to the shell's command-not-found code so it lands
// in the exit-code table; anything else carries the launch error text.
func spawnFailureDiagnosis(err error, diagCtx diagnose.Context) models.Diagnosis {
	exitCode := -1
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		exitCode = 127
	}
	return diagnose.Diagnose(err.Error(), exitCode, diagCtx)
}

// adoptRunning promotes a surviving encoder to the stream's live process
// and begins watching for an unsolicited exit. Returns false when a stop
// won the race after the candidate survived; the caller then tears the
// fresh encoder down again.
func (s *Supervisor) adoptRunning(ctx context.Context, e *entry, snap models.Stream, proc process.Process, format models.AudioFormat) bool {
	e.mu.Lock()
	if e.stream.State != models.StreamStarting {
		e.mu.Unlock()
		return false
	}
	e.proc = proc
	e.stream.ActiveFormat = format
	e.stream.PID = proc.PID()
	e.stream.LastDiagnosis = nil
	ev := s.transitionLocked(e, models.StreamRunning)
	e.mu.Unlock()

	go s.watchExit(e, proc)
	s.publish(ctx, ev)

	logging.Info().
		Str("component", "stream").
		Str("stream_id", snap.ID).
		Str("format", string(format)).
		Int("pid", proc.PID()).
		Msg("Stream running")
	return true
}

// failStart records the diagnosis, moves the stream to failed, and
// reports the outcome. All pre-spawn and exhausted-candidates failures
// funnel through here. A stop that set the stream stopping while the last
// candidate was failing wins; the attempt then finishes as cancelled.
func (s *Supervisor) failStart(ctx context.Context, e *entry, snap models.Stream, d models.Diagnosis, result string) error {
	e.mu.Lock()
	if e.stream.State == models.StreamStopping {
		e.mu.Unlock()
		return s.finishCancelledStart(e, snap, nil, &d)
	}
	e.stream.LastDiagnosis = &d
	ev := s.transitionLocked(e, models.StreamFailed)
	e.mu.Unlock()

	metrics.RecordStreamStart(result)
	metrics.RecordStreamFailure(string(d.Category))

	s.publish(ctx, ev)
	s.publish(ctx, events.NewStreamDiagnosis(snap.ID, d))

	logging.Warn().
		Str("component", "stream").
		Str("stream_id", snap.ID).
		Str("category", string(d.Category)).
		Str("title", d.Title).
		Msg("Stream start failed")

	return &StartFailedError{ID: snap.ID, Diagnosis: d}
}

// finishCancelledStart unwinds a fallback loop a stop cancelled: the live
// candidate, if one exists, is terminated, the reservation is released,
// and the stop the cancel came from completes to stopped. lastDiag
// carries the final attempt's diagnosis when the cancel landed during an
// exhausted-candidates failure, kept for later inspection.
func (s *Supervisor) finishCancelledStart(e *entry, snap models.Stream, proc process.Process, lastDiag *models.Diagnosis) error {
	if proc != nil {
		if err := proc.Terminate(context.Background(), s.cfg.StopGrace); err != nil {
			logging.Warn().
				Str("component", "stream").
				Str("stream_id", snap.ID).
				Err(err).
				Msg("Cancelled start candidate did not terminate cleanly")
		}
		metrics.RecordEncoderExit(time.Since(proc.StartedAt()), false)
	}
	s.reservations.release(snap.DeviceID, snap.ID)

	e.mu.Lock()
	if lastDiag != nil {
		e.stream.LastDiagnosis = lastDiag
	}
	e.stream.ActiveFormat = ""
	e.stream.PID = 0
	ev := s.transitionLocked(e, models.StreamStopped)
	e.mu.Unlock()

	metrics.RecordStreamStart("cancelled")
	s.publish(context.Background(), ev)

	logging.Info().
		Str("component", "stream").
		Str("stream_id", snap.ID).
		Msg("Stream start cancelled by stop")
	return ErrStartCancelled
}

// watchExit turns an unsolicited encoder death into a failed state with a
// diagnosis. Deliberate stops take the handle away first, so a mismatch
// here means the exit was already accounted for.
func (s *Supervisor) watchExit(e *entry, proc process.Process) {
	<-proc.Done()

	e.mu.Lock()
	if e.proc != proc {
		e.mu.Unlock()
		return
	}
	e.proc = nil
	snap := copyStream(e.stream)
	e.mu.Unlock()

	d := diagnose.Diagnose(proc.Output(), proc.ExitCode(), s.diagnoseContext(snap, snap.ActiveFormat))

	e.mu.Lock()
	e.stream.LastDiagnosis = &d
	e.stream.ActiveFormat = ""
	e.stream.PID = 0
	ev := s.transitionLocked(e, models.StreamFailed)
	e.mu.Unlock()

	s.reservations.release(snap.DeviceID, snap.ID)

	metrics.RecordStreamFailure(string(d.Category))
	metrics.RecordEncoderExit(time.Since(proc.StartedAt()), true)

	ctx := context.Background()
	s.publish(ctx, ev)
	s.publish(ctx, events.NewStreamDiagnosis(snap.ID, d))

	logging.Error().
		Str("component", "stream").
		Str("stream_id", snap.ID).
		Int("exit_code", proc.ExitCode()).
		Str("category", string(d.Category)).
		Str("title", d.Title).
		Msg("Encoder exited unexpectedly")
}

// describeStream names a stream for user-facing text, preferring the
// display name over the opaque ID.
func (s *Supervisor) describeStream(id string) string {
	if st, err := s.Get(id); err == nil && st.Name != "" {
		return st.Name
	}
	return id
}

// transitionLocked moves the stream to next, stamps the change, and keeps
// the running-streams gauge current. Callers hold e.mu and publish the
// returned event after unlocking.
func (s *Supervisor) transitionLocked(e *entry, next models.StreamState) *events.Event {
	prev := e.stream.State
	if prev == next {
		return nil
	}
	if prev == models.StreamRunning {
		metrics.StreamsActive.Dec()
	}
	if next == models.StreamRunning {
		metrics.StreamsActive.Inc()
	}
	e.stream.State = next
	e.stream.StateChangedAt = time.Now().UTC()

	logging.Debug().
		Str("component", "stream").
		Str("stream_id", e.stream.ID).
		Str("from", string(prev)).
		Str("to", string(next)).
		Msg("Stream state transition")

	return events.NewStreamTransition(e.stream.ID, prev, next)
}
