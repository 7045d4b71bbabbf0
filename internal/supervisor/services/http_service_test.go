// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package services

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

// mockHTTPServer doubles for *http.Server.
type mockHTTPServer struct {
	listenErr   error
	shutdownErr error
	block       bool

	listenCount   atomic.Int32
	shutdownCount atomic.Int32
	listening     chan struct{}
	stopCh        chan struct{}
}

func newMockHTTPServer() *mockHTTPServer {
	return &mockHTTPServer{
		listening: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

func (m *mockHTTPServer) ListenAndServe() error {
	m.listenCount.Add(1)
	select {
	case m.listening <- struct{}{}:
	default:
	}

	if m.listenErr != nil {
		return m.listenErr
	}
	if m.block {
		<-m.stopCh
		return http.ErrServerClosed
	}
	return nil
}

func (m *mockHTTPServer) Shutdown(ctx context.Context) error {
	m.shutdownCount.Add(1)
	close(m.stopCh)
	return m.shutdownErr
}

func TestHTTPServerServiceInterface(t *testing.T) {
	var _ suture.Service = (*HTTPServerService)(nil)
}

func TestNewHTTPServerService(t *testing.T) {
	t.Run("keeps positive drain timeout", func(t *testing.T) {
		svc := NewHTTPServerService(newMockHTTPServer(), 30*time.Second)
		if svc.drainTimeout != 30*time.Second {
			t.Errorf("drainTimeout = %v, want 30s", svc.drainTimeout)
		}
		if svc.String() != "http-server" {
			t.Errorf("String() = %q, want http-server", svc.String())
		}
	})

	t.Run("zero and negative timeouts default", func(t *testing.T) {
		for _, d := range []time.Duration{0, -5 * time.Second} {
			svc := NewHTTPServerService(newMockHTTPServer(), d)
			if svc.drainTimeout != 10*time.Second {
				t.Errorf("drainTimeout(%v) = %v, want 10s", d, svc.drainTimeout)
			}
		}
	})
}

func TestHTTPServerServiceServe(t *testing.T) {
	t.Run("drains and returns ctx.Err on cancel", func(t *testing.T) {
		server := newMockHTTPServer()
		server.block = true
		svc := NewHTTPServerService(server, time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- svc.Serve(ctx) }()

		select {
		case <-server.listening:
		case <-time.After(time.Second):
			t.Fatal("server never started listening")
		}
		cancel()

		select {
		case err := <-errCh:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Serve = %v, want context.Canceled", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Serve did not return")
		}

		if server.shutdownCount.Load() != 1 {
			t.Errorf("Shutdown called %d times, want 1", server.shutdownCount.Load())
		}
	})

	t.Run("listen failure surfaces as error", func(t *testing.T) {
		server := newMockHTTPServer()
		server.listenErr = errors.New("listen tcp :8080: address already in use")
		svc := NewHTTPServerService(server, time.Second)

		err := svc.Serve(context.Background())
		if err == nil || !errors.Is(err, server.listenErr) {
			t.Errorf("Serve = %v, want wrapped listen error", err)
		}
		if server.shutdownCount.Load() != 0 {
			t.Error("Shutdown called for a server that never started")
		}
	})

	t.Run("external close is a clean stop", func(t *testing.T) {
		// ListenAndServe returning nil (or ErrServerClosed) without a
		// supervision cancel means someone closed the server directly.
		server := newMockHTTPServer()
		svc := NewHTTPServerService(server, time.Second)

		if err := svc.Serve(context.Background()); err != nil {
			t.Errorf("Serve = %v, want nil", err)
		}
	})

	t.Run("shutdown failure surfaces as error", func(t *testing.T) {
		server := newMockHTTPServer()
		server.block = true
		server.shutdownErr = errors.New("connections still active")
		svc := NewHTTPServerService(server, 50*time.Millisecond)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- svc.Serve(ctx) }()

		<-server.listening
		cancel()

		select {
		case err := <-errCh:
			if !errors.Is(err, server.shutdownErr) {
				t.Errorf("Serve = %v, want wrapped shutdown error", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Serve did not return")
		}
	})
}
