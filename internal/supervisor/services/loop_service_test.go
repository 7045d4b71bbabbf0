// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

// mockLoop doubles for the Start/Stop background loops.
type mockLoop struct {
	startErr   error
	startCount atomic.Int32
	stopCount  atomic.Int32
	running    atomic.Bool
}

func (m *mockLoop) Start(ctx context.Context) error {
	m.startCount.Add(1)
	if m.startErr != nil {
		return m.startErr
	}
	m.running.Store(true)
	return nil
}

func (m *mockLoop) Stop() {
	m.stopCount.Add(1)
	m.running.Store(false)
}

func (m *mockLoop) IsRunning() bool {
	return m.running.Load()
}

func TestLoopServiceInterfaces(t *testing.T) {
	var _ suture.Service = (*IcecastWatchdogService)(nil)
	var _ suture.Service = (*JournalGCService)(nil)
}

func TestIcecastWatchdogServiceServe(t *testing.T) {
	t.Run("start, park, join", func(t *testing.T) {
		loop := &mockLoop{}
		svc := NewIcecastWatchdogService(loop)

		if svc.String() != "icecast-watchdog" {
			t.Errorf("String() = %q, want icecast-watchdog", svc.String())
		}

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- svc.Serve(ctx) }()

		deadline := time.After(time.Second)
		for !loop.IsRunning() {
			select {
			case <-deadline:
				t.Fatal("loop never started")
			case <-time.After(10 * time.Millisecond):
			}
		}
		cancel()

		select {
		case err := <-errCh:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Serve = %v, want context.Canceled", err)
			}
		case <-time.After(time.Second):
			t.Fatal("Serve did not return")
		}

		if loop.stopCount.Load() != 1 {
			t.Errorf("Stop called %d times, want 1", loop.stopCount.Load())
		}
		if loop.IsRunning() {
			t.Error("loop still running after Serve returned")
		}
	})

	t.Run("start failure skips stop", func(t *testing.T) {
		loop := &mockLoop{startErr: errors.New("fsnotify watcher exhausted")}
		svc := NewIcecastWatchdogService(loop)

		if err := svc.Serve(context.Background()); !errors.Is(err, loop.startErr) {
			t.Errorf("Serve = %v, want wrapped start error", err)
		}
		if loop.stopCount.Load() != 0 {
			t.Error("Stop called after Start failed")
		}
	})
}

func TestJournalGCServiceServe(t *testing.T) {
	loop := &mockLoop{}
	svc := NewJournalGCService(loop)

	if svc.String() != "journal-gc" {
		t.Errorf("String() = %q, want journal-gc", svc.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	deadline := time.After(time.Second)
	for !loop.IsRunning() {
		select {
		case <-deadline:
			t.Fatal("loop never started")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return")
	}

	if loop.startCount.Load() != 1 || loop.stopCount.Load() != 1 {
		t.Errorf("start/stop = %d/%d, want 1/1", loop.startCount.Load(), loop.stopCount.Load())
	}
}
