// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

/*
Package supervisor hosts Emissor's long-running services under a suture v4
supervision tree: Erlang-style restart-on-failure with exponential backoff,
failure isolation between layers, and a bounded graceful shutdown.

# Tree Layout

	Root ("emissor")
	├── "messaging-layer"
	│   ├── websocket-hub      (dashboard fanout)
	│   └── event-router       (bus -> journal + hub forwarding)
	├── "watchdog-layer"
	│   ├── icecast-watchdog   (server liveness poll + config watch)
	│   └── journal-gc         (badger value-log GC)
	└── "control-plane"
	    └── http-server        (REST API, /ws upgrade, /metrics)

Layering bounds the blast radius of a crash. A panicking event consumer
restarts the router without dropping WebSocket clients' TCP connections or
the API listener. A wedged HTTP server restarts without touching the
watchdog loops.

Deliberately absent from the tree: the stream supervisor and the Icecast
manager. Both own external OS processes, and a suture restart would orphan
those processes or kill them mid-broadcast. They are plain structs whose
goroutines (exit watchers, per-operation workers) are tied to the processes
they monitor; the tree supervises only services that are safe to restart
wholesale.

# Restart Policy

Each supervisor counts failures with exponential decay. Past the threshold
it stops restarting and backs off, so a service crashing in a tight loop
degrades to periodic retries instead of a busy spin. Suture's defaults
(threshold 5, decay 30s, backoff 15s) are kept; TreeConfig overrides them
for tests.

# Logging

Supervision events (start, stop, failure, backoff) flow through a
sutureslog hook into the zerolog pipeline via logging.NewSlogLogger, so
service restarts appear in the same stream as application logs.

# Usage

	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    ...
	}
	tree.AddMessagingService(services.NewHubService(hub))
	tree.AddMessagingService(services.NewEventRouterService(router))
	tree.AddWatchdogService(services.NewIcecastWatchdogService(watchdog))
	tree.AddWatchdogService(services.NewJournalGCService(gc))
	tree.AddControlService(services.NewHTTPServerService(httpServer, 10*time.Second))

	errCh := tree.ServeBackground(ctx)

Service wrappers live in the services subpackage; each adapts one
component's lifecycle (Start/Stop, Run, ListenAndServe) to suture's
Serve(ctx) contract.
*/
package supervisor
