// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

/*
Package services adapts Emissor components to the suture v4 Service
contract:

	type Service interface {
	    Serve(ctx context.Context) error
	}

Each wrapper translates one component's native lifecycle into Serve and
names the service for supervision logs via fmt.Stringer. The components
themselves stay ignorant of suture; the wrappers depend on small local
interfaces so tests run against mocks.

# Wrappers

	HTTPServerService       ListenAndServe/Shutdown  control-plane layer
	HubService              Run(ctx)                 messaging layer
	EventRouterService      Run(ctx)                 messaging layer
	IcecastWatchdogService  Start/Stop               watchdog layer
	JournalGCService        Start/Stop               watchdog layer

# Lifecycle Translation

Run-shaped components (the WebSocket hub, the event router) already block
until their context is canceled, so their wrappers delegate directly.

Start/Stop-shaped components (the Icecast watchdog, journal GC) spawn a
background loop in Start and join it in Stop. Their wrappers call Start,
park on ctx.Done, then call Stop, which blocks until the loop goroutine
has exited. A Start error returns immediately so the supervisor applies
its restart policy.

The HTTP server needs the most translation: ListenAndServe blocks without
taking a context, so the wrapper runs it in a goroutine and drives
Shutdown with a fresh deadline context once the supervision context is
canceled.

# Return Value Semantics

What Serve returns decides what the supervisor does next:

	nil        service completed, do not restart
	ctx.Err()  shutdown requested, normal termination
	other      service failed, restart with backoff
*/
package services
