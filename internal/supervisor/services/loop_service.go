// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package services

import (
	"context"
	"fmt"
)

// StartStopper is the lifecycle shared by the periodic background loops:
// Start spawns the loop goroutine, Stop joins it. Satisfied by
// *icecast.Watchdog and *journal.GC.
type StartStopper interface {
	Start(ctx context.Context) error
	Stop()
	IsRunning() bool
}

// IcecastWatchdogService runs the Icecast liveness watchdog under
// supervision. The watchdog polls process presence, clears server state
// when the process dies, and revalidates the configuration file on
// change.
type IcecastWatchdogService struct {
	loop StartStopper
	name string
}

// NewIcecastWatchdogService wraps watchdog for the watchdog layer.
func NewIcecastWatchdogService(watchdog StartStopper) *IcecastWatchdogService {
	return &IcecastWatchdogService{
		loop: watchdog,
		name: "icecast-watchdog",
	}
}

// Serve implements suture.Service: start the loop, park until shutdown,
// then join it. Stop blocks until the loop goroutine has exited, so a
// supervisor restart never races a stale loop.
func (s *IcecastWatchdogService) Serve(ctx context.Context) error {
	if err := s.loop.Start(ctx); err != nil {
		return fmt.Errorf("icecast watchdog start: %w", err)
	}
	<-ctx.Done()
	s.loop.Stop()
	return ctx.Err()
}

// String implements fmt.Stringer for supervision logs.
func (s *IcecastWatchdogService) String() string {
	return s.name
}

// JournalGCService runs the event journal's badger value-log garbage
// collection loop under supervision.
type JournalGCService struct {
	loop StartStopper
	name string
}

// NewJournalGCService wraps gc for the watchdog layer.
func NewJournalGCService(gc StartStopper) *JournalGCService {
	return &JournalGCService{
		loop: gc,
		name: "journal-gc",
	}
}

// Serve implements suture.Service with the same start/park/join shape as
// the watchdog service.
func (s *JournalGCService) Serve(ctx context.Context) error {
	if err := s.loop.Start(ctx); err != nil {
		return fmt.Errorf("journal gc start: %w", err)
	}
	<-ctx.Done()
	s.loop.Stop()
	return ctx.Err()
}

// String implements fmt.Stringer for supervision logs.
func (s *JournalGCService) String() string {
	return s.name
}
