// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

func TestEventRouterServiceInterface(t *testing.T) {
	var _ suture.Service = (*EventRouterService)(nil)
}

func TestEventRouterServiceServe(t *testing.T) {
	t.Run("delegates and returns on cancel", func(t *testing.T) {
		runner := &mockRunner{}
		svc := NewEventRouterService(runner)

		if svc.String() != "event-router" {
			t.Errorf("String() = %q, want event-router", svc.String())
		}

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- svc.Serve(ctx) }()

		time.Sleep(20 * time.Millisecond)
		cancel()

		select {
		case err := <-errCh:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Serve = %v, want context.Canceled", err)
			}
		case <-time.After(time.Second):
			t.Fatal("Serve did not return")
		}
	})

	t.Run("propagates router failure for restart", func(t *testing.T) {
		runner := &mockRunner{err: errors.New("subscriber closed")}
		svc := NewEventRouterService(runner)

		if err := svc.Serve(context.Background()); !errors.Is(err, runner.err) {
			t.Errorf("Serve = %v, want the router error", err)
		}
	})
}
