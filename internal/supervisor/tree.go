// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig holds the restart policy shared by every supervisor in the
// tree. Zero values fall back to suture's documented defaults.
type TreeConfig struct {
	// FailureThreshold is the failure count that triggers backoff.
	FailureThreshold float64

	// FailureDecay is the half-life of the failure count in seconds.
	FailureDecay float64

	// FailureBackoff is how long a supervisor pauses once the threshold
	// is exceeded.
	FailureBackoff time.Duration

	// ShutdownTimeout bounds the wait for each service to stop.
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns the restart policy used in production.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Tree is the supervisor hierarchy hosting Emissor's long-running
// services.
//
// Three layers isolate failures from each other:
//
//   - messaging: WebSocket hub and the event router. A crash here loses
//     in-flight status events (the contract is at-most-once) but never
//     touches a live encoder.
//   - watchdog: Icecast watchdog and journal GC, the periodic background
//     loops.
//   - control-plane: the HTTP server. Restarting it drops API clients
//     only; encoders and the Icecast server keep running because their
//     processes are owned by the stream and Icecast managers, not by any
//     supervised service.
type Tree struct {
	root      *suture.Supervisor
	messaging *suture.Supervisor
	watchdog  *suture.Supervisor
	control   *suture.Supervisor
	logger    *slog.Logger
	config    TreeConfig
}

// NewTree builds the root supervisor and its three layers. The logger
// receives one structured event per service start, stop, failure, and
// backoff via sutureslog.
func NewTree(logger *slog.Logger, config TreeConfig) (*Tree, error) {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5.0
	}
	if config.FailureDecay == 0 {
		config.FailureDecay = 30.0
	}
	if config.FailureBackoff == 0 {
		config.FailureBackoff = 15 * time.Second
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 10 * time.Second
	}

	// sutureslog's Handler.MustHook has a pointer receiver; the handler
	// must be addressable.
	handler := &sutureslog.Handler{Logger: logger}
	rootSpec := suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	// Child supervisors inherit the event hook when added to the root;
	// only the failure parameters need repeating.
	childSpec := suture.Spec{
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	root := suture.New("emissor", rootSpec)
	messaging := suture.New("messaging-layer", childSpec)
	watchdog := suture.New("watchdog-layer", childSpec)
	control := suture.New("control-plane", childSpec)

	root.Add(messaging)
	root.Add(watchdog)
	root.Add(control)

	return &Tree{
		root:      root,
		messaging: messaging,
		watchdog:  watchdog,
		control:   control,
		logger:    logger,
		config:    config,
	}, nil
}

// Root exposes the root supervisor for callers needing direct access.
func (t *Tree) Root() *suture.Supervisor {
	return t.root
}

// AddMessagingService adds a service to the messaging layer: the
// WebSocket hub and the event router belong here.
func (t *Tree) AddMessagingService(svc suture.Service) suture.ServiceToken {
	return t.messaging.Add(svc)
}

// AddWatchdogService adds a service to the watchdog layer: the Icecast
// watchdog and the journal GC loop belong here.
func (t *Tree) AddWatchdogService(svc suture.Service) suture.ServiceToken {
	return t.watchdog.Add(svc)
}

// AddControlService adds a service to the control-plane layer: the HTTP
// server belongs here.
func (t *Tree) AddControlService(svc suture.Service) suture.ServiceToken {
	return t.control.Add(svc)
}

// Serve runs the tree and blocks until ctx is canceled.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground runs the tree in a goroutine. The returned channel
// yields the terminal error (or nil) and is then closed.
func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that missed the shutdown
// timeout. Consulted after shutdown for diagnostics.
func (t *Tree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}
