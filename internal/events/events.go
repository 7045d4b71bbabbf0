// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

// Package events carries Emissor's status events: one event per stream or
// server state transition and one per failure diagnosis, published on an
// in-process bus and fanned out to the journal and to WebSocket clients.
//
// Delivery is at-most-once and best effort. The journal is the
// reconciliation source for consumers that missed live events.
package events

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/emissor/internal/models"
)

// SchemaVersion is the current event schema version.
// Increment this when making breaking changes to Event.
const SchemaVersion = 1

// Scope says whose lifecycle an event belongs to.
type Scope string

const (
	// ScopeStream events describe one stream; StreamID is set.
	ScopeStream Scope = "stream"
	// ScopeServer events describe the managed Icecast server.
	ScopeServer Scope = "server"
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	return s == ScopeStream || s == ScopeServer
}

// Type is the closed set of event types.
type Type string

const (
	// TypeStateChanged marks a lifecycle state transition.
	TypeStateChanged Type = "state_changed"
	// TypeDiagnosis carries a failure classification.
	TypeDiagnosis Type = "diagnosis"
	// TypeConfigValidated reports a server configuration validation result,
	// emitted on demand and whenever the watched config file changes.
	TypeConfigValidated Type = "config_validated"
)

// Topics the bus routes events over, one per scope.
const (
	TopicStreamEvents = "stream.events"
	TopicServerEvents = "server.events"
)

// Event is a single status notification.
type Event struct {
	SchemaVersion int    `json:"schema_version,omitempty"`
	ID            string `json:"id"`
	Type          Type   `json:"type"`
	Scope         Scope  `json:"scope"`

	// StreamID is set for stream-scoped events only.
	StreamID string `json:"stream_id,omitempty"`

	// OldState and NewState frame a state_changed event. They hold
	// StreamState values for stream events and running/stopped for server
	// events.
	OldState string `json:"old_state,omitempty"`
	NewState string `json:"new_state,omitempty"`

	// Diagnosis is present on diagnosis events.
	Diagnosis *models.Diagnosis `json:"diagnosis,omitempty"`

	// ConfigErrors lists validation findings on config_validated events.
	// Empty means the configuration passed.
	ConfigErrors []string `json:"config_errors,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// newEvent creates an event with a unique ID, timestamp, and schema version.
func newEvent(scope Scope, typ Type) *Event {
	return &Event{
		SchemaVersion: SchemaVersion,
		ID:            uuid.New().String(),
		Type:          typ,
		Scope:         scope,
		Timestamp:     time.Now().UTC(),
	}
}

// NewStreamTransition builds a state_changed event for one stream.
func NewStreamTransition(streamID string, from, to models.StreamState) *Event {
	e := newEvent(ScopeStream, TypeStateChanged)
	e.StreamID = streamID
	e.OldState = string(from)
	e.NewState = string(to)
	return e
}

// NewStreamDiagnosis builds a diagnosis event for one stream.
func NewStreamDiagnosis(streamID string, d models.Diagnosis) *Event {
	e := newEvent(ScopeStream, TypeDiagnosis)
	e.StreamID = streamID
	e.Diagnosis = &d
	return e
}

// NewServerTransition builds a state_changed event for the managed server.
func NewServerTransition(from, to string) *Event {
	e := newEvent(ScopeServer, TypeStateChanged)
	e.OldState = from
	e.NewState = to
	return e
}

// NewServerDiagnosis builds a diagnosis event for the managed server.
func NewServerDiagnosis(d models.Diagnosis) *Event {
	e := newEvent(ScopeServer, TypeDiagnosis)
	e.Diagnosis = &d
	return e
}

// NewServerConfigValidated reports a configuration validation outcome.
func NewServerConfigValidated(configErrors []string) *Event {
	e := newEvent(ScopeServer, TypeConfigValidated)
	e.ConfigErrors = configErrors
	return e
}

// Topic returns the bus topic for this event's scope.
func (e *Event) Topic() string {
	if e.Scope == ScopeServer {
		return TopicServerEvents
	}
	return TopicStreamEvents
}

// Validate checks required fields and returns an error if validation fails.
func (e *Event) Validate() error {
	if e.ID == "" {
		return &ValidationError{Field: "id", Message: "required"}
	}
	if e.Type == "" {
		return &ValidationError{Field: "type", Message: "required"}
	}
	if !e.Scope.Valid() {
		return &ValidationError{Field: "scope", Message: "must be stream or server"}
	}
	if e.Scope == ScopeStream && e.StreamID == "" {
		return &ValidationError{Field: "stream_id", Message: "required for stream events"}
	}
	if e.Type == TypeDiagnosis && e.Diagnosis == nil {
		return &ValidationError{Field: "diagnosis", Message: "required for diagnosis events"}
	}
	return nil
}

// ValidationError represents a field validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// SerializeEvent validates and marshals an event to JSON.
func SerializeEvent(event *Event) ([]byte, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(event)
}

// DeserializeEvent unmarshals JSON to an event. Events serialized before
// explicit schema versioning carry version 0 and are read as version 1.
func DeserializeEvent(data []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	if event.SchemaVersion == 0 {
		event.SchemaVersion = 1
	}
	return &event, nil
}
