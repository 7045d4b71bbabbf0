// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// HTTPServer is the *http.Server lifecycle slice the service needs.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService runs the control-plane HTTP server under supervision.
//
// ListenAndServe blocks and takes no context, so Serve runs it in a
// goroutine and watches two exits: the server failing on its own (bad
// listen address, port in use) and supervision shutdown. On shutdown it
// drains in-flight requests through Shutdown with a fresh deadline
// context, since the supervision context is already canceled by then.
type HTTPServerService struct {
	server       HTTPServer
	drainTimeout time.Duration
	name         string
}

// NewHTTPServerService wraps server. drainTimeout bounds the graceful
// drain of in-flight requests at shutdown; zero or negative selects 10s.
func NewHTTPServerService(server HTTPServer, drainTimeout time.Duration) *HTTPServerService {
	if drainTimeout <= 0 {
		drainTimeout = 10 * time.Second
	}
	return &HTTPServerService{
		server:       server,
		drainTimeout: drainTimeout,
		name:         "http-server",
	}
}

// Serve implements suture.Service.
//
// A listen failure is returned as an error so the supervisor retries with
// backoff; an operator fixing a port conflict should not need to restart
// the daemon. http.ErrServerClosed is the normal result of Shutdown and
// never surfaces.
func (s *HTTPServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		// Closed from outside this service. Treat as a clean stop.
		return nil

	case <-ctx.Done():
		drainCtx, cancel := context.WithTimeout(context.Background(), s.drainTimeout)
		defer cancel()

		if err := s.server.Shutdown(drainCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

// String implements fmt.Stringer for supervision logs.
func (s *HTTPServerService) String() string {
	return s.name
}
