// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

// Package process spawns and supervises child processes: FFmpeg encoders and
// the Icecast launcher. Every child runs in its own process group so that
// termination reaps the whole tree, output is captured line-wise into a
// bounded ring for later diagnosis, and exit is observed by a dedicated
// monitor goroutine so callers never block on a child.
package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/tomtom215/emissor/internal/logging"
)

var (
	// ErrTerminateTimeout reports a child that survived both the graceful
	// signal and the forced kill within the reap window.
	ErrTerminateTimeout = errors.New("process: terminate timed out")
)

// killReapTimeout bounds the wait for the monitor goroutine to observe
// death after a forced kill.
const killReapTimeout = 2 * time.Second

// Spec describes one child process launch.
type Spec struct {
	// Name is a short label used in logs ("encoder:studio", "icecast").
	Name string

	// Binary is the executable path or bare name resolved via PATH.
	Binary string

	// Args is the full argument list, credentials included; logging must go
	// through logging.RedactArgs.
	Args []string

	// Dir optionally sets the working directory.
	Dir string
}

// Launcher spawns child processes. Orchestration code depends on this
// interface so tests can substitute a scripted implementation and count
// spawn attempts.
type Launcher interface {
	Launch(ctx context.Context, spec Spec) (Process, error)
}

// Process is a live or exited child. Done is closed exactly once after the
// exit status and output tail are final; ExitCode and Err are meaningful
// only after that.
type Process interface {
	Name() string
	PID() int
	StartedAt() time.Time
	Done() <-chan struct{}
	ExitCode() int
	Err() error
	Output() string
	OutputLines(n int) []string
	Terminate(ctx context.Context, grace time.Duration) error
}

// ExecLauncher spawns real OS processes.
type ExecLauncher struct {
	// TailLines is the per-process output ring capacity.
	TailLines int
}

// NewExecLauncher creates a launcher retaining the last tailLines of output
// per child.
func NewExecLauncher(tailLines int) *ExecLauncher {
	return &ExecLauncher{TailLines: tailLines}
}

// Launch starts the child in its own process group and begins monitoring.
// The context gates the spawn only; a launched process outlives it and is
// stopped through Terminate.
func (l *ExecLauncher) Launch(ctx context.Context, spec Spec) (Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.Command(spec.Binary, spec.Args...) // #nosec G204 -- binary and args come from validated configuration
	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}
	setProcessGroup(cmd)

	ring := NewOutputRing(l.TailLines)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe for %s: %w", spec.Name, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe for %s: %w", spec.Name, err)
	}

	var ioWg sync.WaitGroup
	for _, pipe := range []io.Reader{stdout, stderr} {
		ioWg.Add(1)
		go func(r io.Reader) {
			defer ioWg.Done()
			scanner := bufio.NewScanner(r)
			for scanner.Scan() {
				ring.Append(scanner.Text())
			}
		}(pipe)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("launch %s: %w", spec.Name, err)
	}

	h := &Handle{
		name:      spec.Name,
		pid:       cmd.Process.Pid,
		cmd:       cmd,
		ring:      ring,
		startedAt: time.Now().UTC(),
		done:      make(chan struct{}),
		exitCode:  -1,
	}
	go h.monitor(&ioWg)

	logging.Info().
		Str("component", "process").
		Str("name", spec.Name).
		Int("pid", h.pid).
		Strs("args", logging.RedactArgs(append([]string{spec.Binary}, spec.Args...))).
		Msg("process launched")

	return h, nil
}

// Handle tracks one spawned child.
type Handle struct {
	name      string
	pid       int
	cmd       *exec.Cmd
	ring      *OutputRing
	startedAt time.Time

	done chan struct{}

	mu       sync.Mutex
	exitCode int
	exitErr  error
}

// monitor waits for the child, drains output readers, then publishes the
// exit status and closes done. Runs once per Handle.
func (h *Handle) monitor(ioWg *sync.WaitGroup) {
	waitErr := h.cmd.Wait()
	ioWg.Wait()

	h.mu.Lock()
	h.exitErr = waitErr
	h.exitCode = exitCodeFromState(h.cmd.ProcessState)
	h.mu.Unlock()
	close(h.done)

	logging.Debug().
		Str("component", "process").
		Str("name", h.name).
		Int("pid", h.pid).
		Int("exit_code", h.ExitCode()).
		Msg("process exited")
}

// Name returns the launch label.
func (h *Handle) Name() string { return h.name }

// PID returns the child's process ID.
func (h *Handle) PID() int { return h.pid }

// StartedAt returns the spawn time.
func (h *Handle) StartedAt() time.Time { return h.startedAt }

// Done is closed after the child exited and its output is fully captured.
func (h *Handle) Done() <-chan struct{} { return h.done }

// ExitCode returns the child's exit code, with signal deaths folded into
// the 128+N shell convention. Returns -1 while the child is running.
func (h *Handle) ExitCode() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitCode
}

// Err returns the wait error, nil for a clean exit or while running.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitErr
}

// Output returns the retained output tail as one string.
func (h *Handle) Output() string { return h.ring.Tail() }

// OutputLines returns up to n retained lines, oldest first.
func (h *Handle) OutputLines(n int) []string { return h.ring.LastN(n) }

// Terminate stops the child: graceful signal to the process group, wait up
// to grace, then forced kill. A context cancellation during the grace wait
// escalates immediately. Calling Terminate on an exited child returns nil.
func (h *Handle) Terminate(ctx context.Context, grace time.Duration) error {
	select {
	case <-h.done:
		return nil
	default:
	}

	if err := terminateGroup(h.pid); err != nil {
		logging.Warn().
			Str("component", "process").
			Str("name", h.name).
			Int("pid", h.pid).
			Err(err).
			Msg("graceful signal failed, escalating")
	} else {
		graceTimer := time.NewTimer(grace)
		select {
		case <-h.done:
			graceTimer.Stop()
			return nil
		case <-ctx.Done():
			graceTimer.Stop()
		case <-graceTimer.C:
		}
	}

	logging.Warn().
		Str("component", "process").
		Str("name", h.name).
		Int("pid", h.pid).
		Dur("grace", grace).
		Msg("forcing kill")

	if err := killGroup(h.pid); err != nil {
		return fmt.Errorf("kill %s (pid %d): %w", h.name, h.pid, err)
	}

	reap := time.NewTimer(killReapTimeout)
	defer reap.Stop()
	select {
	case <-h.done:
		return nil
	case <-reap.C:
		return ErrTerminateTimeout
	}
}
