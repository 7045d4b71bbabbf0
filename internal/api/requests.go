// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package api

import (
	"net/http"

	"github.com/tomtom215/emissor/internal/validation"
)

const (
	defaultEventsLimit = 100
	maxEventsLimit     = 500
)

// EventsRequest carries the query parameters of GET /api/v1/events.
type EventsRequest struct {
	// Scope narrows results to stream or server events. Empty matches
	// both.
	Scope string `json:"scope" validate:"omitempty,oneof=stream server"`

	// StreamID narrows results to one stream's events.
	StreamID string `json:"stream_id" validate:"omitempty,max=64"`

	// Limit caps the number of events returned, newest first.
	Limit int `json:"limit" validate:"min=1,max=500"`
}

// ParseEventsRequest reads and validates the events query parameters.
func ParseEventsRequest(r *http.Request) (*EventsRequest, *validation.RequestValidationError) {
	req := &EventsRequest{
		Scope:    r.URL.Query().Get("scope"),
		StreamID: r.URL.Query().Get("stream_id"),
		Limit:    getIntParam(r, "limit", defaultEventsLimit),
	}
	if verr := validation.ValidateStruct(req); verr != nil {
		return nil, verr
	}
	return req, nil
}
