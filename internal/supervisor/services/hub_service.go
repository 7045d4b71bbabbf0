// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package services

import (
	"context"
)

// Hub is the run-loop slice of the WebSocket hub. Satisfied by
// *websocket.Hub.
type Hub interface {
	Run(ctx context.Context) error
}

// HubService runs the WebSocket hub under supervision. The hub's Run
// already follows the Serve contract (block, process, return ctx.Err()
// after closing every client), so the wrapper only contributes the
// service name.
type HubService struct {
	hub  Hub
	name string
}

// NewHubService wraps hub for the messaging layer.
func NewHubService(hub Hub) *HubService {
	return &HubService{
		hub:  hub,
		name: "websocket-hub",
	}
}

// Serve implements suture.Service.
func (s *HubService) Serve(ctx context.Context) error {
	return s.hub.Run(ctx)
}

// String implements fmt.Stringer for supervision logs.
func (s *HubService) String() string {
	return s.name
}
