// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package icecast

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/emissor/internal/config"
	"github.com/tomtom215/emissor/internal/events"
	"github.com/tomtom215/emissor/internal/models"
)

func TestWatchdogLifecycle(t *testing.T) {
	ctx := context.Background()
	cfg := testServerConfig()
	cfg.WatchdogInterval = 20 * time.Millisecond

	bus := &fakeBus{}
	m := detectedManager(cfg, &fakeLauncher{}, &fakeLister{}, bus)
	// An adopted server whose process no longer exists.
	m.state.Running = true
	m.state.PID = fakePIDBase + 500

	w := NewWatchdog(m, cfg)
	if w.IsRunning() {
		t.Fatal("watchdog running before Start")
	}
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !w.IsRunning() {
		t.Fatal("watchdog not running after Start")
	}
	if err := w.Start(ctx); err != nil {
		t.Fatalf("second Start: %v", err)
	}

	// The liveness tick notices the missing process.
	waitFor(t, func() bool { return !m.Running() }, "watchdog never noticed the dead server")
	waitFor(t, func() bool {
		return len(bus.ofType(events.TypeDiagnosis)) == 1
	}, "no diagnosis published for the dead server")

	if d := m.State().LastDiagnosis; d == nil || d.Category != models.CategoryProcessCrash {
		t.Fatalf("diagnosis = %+v, want process crash", d)
	}

	w.Stop()
	if w.IsRunning() {
		t.Fatal("watchdog still running after Stop")
	}
	w.Stop()
}

func TestWatchdogRevalidatesOnConfigChange(t *testing.T) {
	ctx := context.Background()
	m, bus, path := managerWithConfig(t, detectServerXML)

	cfg := testServerConfig()
	// Liveness ticks far apart; only the file watch should act.
	cfg.WatchdogInterval = time.Hour
	cfg.WatchConfig = true
	w := NewWatchdog(m, cfg)
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	writeTestFile(t, path, `<icecast>
  <hostname>stream.example.org</hostname>
  <listen-socket><port>8000</port></listen-socket>
  <authentication><source-password>s</source-password></authentication>
  <paths><logdir>/var/log/icecast</logdir></paths>
</icecast>`)

	waitFor(t, func() bool {
		return len(bus.ofType(events.TypeConfigValidated)) == 1
	}, "config edit never triggered a revalidation")

	got := bus.ofType(events.TypeConfigValidated)[0]
	if len(got.ConfigErrors) != 1 || got.ConfigErrors[0] != "missing admin password" {
		t.Fatalf("event errors = %v", got.ConfigErrors)
	}
}

func TestWatchdogWithoutDetection(t *testing.T) {
	ctx := context.Background()
	cfg := testServerConfig()
	cfg.WatchConfig = true
	m := newManager(cfg, &fakeLauncher{}, &fakeLister{}, nil, "linux")

	// No detection means no config path; liveness polling still runs.
	w := NewWatchdog(m, cfg)
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !w.IsRunning() {
		t.Fatal("watchdog not running")
	}
	w.Stop()
}

func TestWatchdogDefaultInterval(t *testing.T) {
	m := newManager(testServerConfig(), &fakeLauncher{}, &fakeLister{}, nil, "linux")
	w := NewWatchdog(m, config.IcecastConfig{})
	if w.interval != defaultWatchdogInterval {
		t.Fatalf("interval = %v, want %v", w.interval, defaultWatchdogInterval)
	}
}
