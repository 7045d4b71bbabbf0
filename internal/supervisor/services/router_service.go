// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package services

import (
	"context"
)

// EventRouter is the run-loop slice of the event router. Satisfied by
// *events.Router.
type EventRouter interface {
	Run(ctx context.Context) error
}

// EventRouterService runs the status event router under supervision.
// The router dispatches bus messages to the journal persister and the
// WebSocket forwarder; a restart here re-subscribes the consumers and
// loses at most the messages in flight, which the at-most-once status
// contract permits.
type EventRouterService struct {
	router EventRouter
	name   string
}

// NewEventRouterService wraps router for the messaging layer.
func NewEventRouterService(router EventRouter) *EventRouterService {
	return &EventRouterService{
		router: router,
		name:   "event-router",
	}
}

// Serve implements suture.Service. Run blocks until ctx is canceled and
// closes the router's handlers on the way out.
func (s *EventRouterService) Serve(ctx context.Context) error {
	return s.router.Run(ctx)
}

// String implements fmt.Stringer for supervision logs.
func (s *EventRouterService) String() string {
	return s.name
}
