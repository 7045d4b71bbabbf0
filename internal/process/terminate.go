// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package process

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/emissor/internal/logging"
)

// alivePollInterval paces liveness polls while waiting for a process
// without a wait handle to die.
const alivePollInterval = 50 * time.Millisecond

// TerminatePID stops a process Emissor did not spawn, typically one found
// through a process table scan. There is no wait handle for such a process,
// so death is observed by polling: graceful signal, poll through the grace
// window, forced kill, poll through the reap window. A context cancellation
// during the grace wait escalates immediately.
func TerminatePID(ctx context.Context, pid int, grace time.Duration) error {
	if pid <= 0 || !Alive(pid) {
		return nil
	}

	if err := terminateGroup(pid); err != nil {
		logging.Warn().
			Str("component", "process").
			Int("pid", pid).
			Err(err).
			Msg("graceful signal failed, escalating")
	} else if pollGone(ctx, pid, grace) {
		return nil
	}

	logging.Warn().
		Str("component", "process").
		Int("pid", pid).
		Dur("grace", grace).
		Msg("forcing kill")

	if err := killGroup(pid); err != nil {
		return fmt.Errorf("kill pid %d: %w", pid, err)
	}
	if pollGone(context.Background(), pid, killReapTimeout) {
		return nil
	}
	return ErrTerminateTimeout
}

// pollGone polls until the process disappears or the window elapses,
// reporting whether it is gone. A context cancellation ends the wait early
// with one final check.
func pollGone(ctx context.Context, pid int, window time.Duration) bool {
	deadline := time.NewTimer(window)
	defer deadline.Stop()
	ticker := time.NewTicker(alivePollInterval)
	defer ticker.Stop()

	for {
		if !Alive(pid) {
			return true
		}
		select {
		case <-ctx.Done():
			return !Alive(pid)
		case <-deadline.C:
			return !Alive(pid)
		case <-ticker.C:
		}
	}
}
