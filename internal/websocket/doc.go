// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

/*
Package websocket pushes live orchestration status to connected dashboards.

Every stream and server state transition, failure diagnosis, and config
validation result published on the status bus is forwarded here and fanned
out to all connected clients. It uses the gorilla/websocket library with a
hub-client architecture.

Key Components:

  - Hub: central broker that tracks client connections and broadcasts
  - Client: one WebSocket connection with read/write goroutines
  - Message: typed envelope for every frame on the wire

Architecture:

The package implements a hub-and-spoke pattern:

	┌──────────┐
	│   Hub    │ ← Broadcasts to all clients
	└────┬─────┘
	     │
	┌────┴─────┬─────────┬─────────┐
	│          │         │         │
	│ Client1  │ Client2 │ Client3 │ Client4
	│          │         │         │
	└──────────┴─────────┴─────────┘

Each client has two goroutines:
  - readPump: reads from the socket, answers pings
  - writePump: writes hub messages, sends keepalive pings

Message Types:

  - event: an orchestration event exactly as the journal stores it
    (state_changed, diagnosis, config_validated)
  - ping / pong: application-level keepalive

Usage:

	hub := websocket.NewHub()
	go hub.Run(ctx)

	// In the HTTP layer, after upgrading the connection:
	client := websocket.NewClient(hub, conn)
	hub.Register <- client
	client.Start()

	// From the event router's forward handler:
	hub.Broadcast(payload)

Delivery Semantics:

Delivery is at-most-once and best effort. A client whose send buffer fills
is disconnected rather than allowed to stall the broadcast loop, and a full
hub queue drops the message. Clients reconcile missed events through the
journal pull endpoint; the socket is a live view, not a durable feed.

Connection Lifecycle:

 1. Client connects via HTTP upgrade
 2. Hub registers the client
 3. Client starts read/write goroutines
 4. Hub broadcasts events to all clients
 5. Client disconnects (network error or explicit close)
 6. Hub unregisters the client and cleans up

Thread Safety:

The hub guards its client map with a mutex and coordinates everything else
over channels. Each client owns its connection through dedicated read and
write goroutines; no state is shared between clients.

See Also:

  - github.com/gorilla/websocket: underlying WebSocket library
  - internal/events: the bus and router feeding Broadcast
  - internal/journal: the reconciliation source for missed events
*/
package websocket
