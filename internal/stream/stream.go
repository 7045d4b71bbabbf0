// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

// Package stream supervises the per-stream encoder lifecycle: stream
// definition CRUD, the state machine from idle through running to stopped
// or failed, format fallback across the configured candidates, capture
// device exclusivity, and diagnosis of every way an encoder can die.
//
// Each stream carries two locks. The operation lock serializes lifecycle
// calls so concurrent starts, stops, and restarts execute one at a time in
// arrival order. The state lock guards the snapshot underneath and is never
// held across a spawn, a wait, or an event publish.
package stream

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/emissor/internal/config"
	"github.com/tomtom215/emissor/internal/diagnose"
	"github.com/tomtom215/emissor/internal/events"
	"github.com/tomtom215/emissor/internal/icecast"
	"github.com/tomtom215/emissor/internal/logging"
	"github.com/tomtom215/emissor/internal/models"
	"github.com/tomtom215/emissor/internal/process"
	"github.com/tomtom215/emissor/internal/validation"
)

var (
	ErrStreamNotFound = errors.New("stream: not found")
	ErrStreamExists   = errors.New("stream: id already exists")

	// ErrStreamLive rejects definition changes while an encoder may exist.
	ErrStreamLive = errors.New("stream: operation requires the stream to be stopped")

	// ErrStartCancelled reports a start unwound by a concurrent stop
	// before any format candidate succeeded.
	ErrStartCancelled = errors.New("stream: start cancelled by stop request")
)

// NotStartableError reports a Start call in a state that cannot accept one.
type NotStartableError struct {
	ID    string
	State models.StreamState
}

func (e *NotStartableError) Error() string {
	return fmt.Sprintf("stream %s: cannot start from state %q", e.ID, e.State)
}

// StartFailedError reports a start attempt that exhausted every format
// candidate. It carries the diagnosis of the last attempt so callers can
// surface it without a second lookup.
type StartFailedError struct {
	ID        string
	Diagnosis models.Diagnosis
}

func (e *StartFailedError) Error() string {
	return fmt.Sprintf("stream %s: start failed: %s", e.ID, e.Diagnosis.Title)
}

// Server is the slice of the Icecast manager the supervisor depends on:
// a liveness answer for the pre-start gate and connection details for
// encoder targets.
type Server interface {
	Running() bool
	ConnectionInfo() icecast.ConnectionInfo
}

// DeviceProbe answers capture device inventory questions. The probe
// package's Prober satisfies it.
type DeviceProbe interface {
	Devices(ctx context.Context, force bool) (models.DeviceInventory, error)
}

// Publisher is where lifecycle events go. The event bus satisfies it.
type Publisher interface {
	Publish(ctx context.Context, ev *events.Event) error
}

// entry is the supervisor's private record for one stream: the snapshot
// plus the process handle, which never leaves this package.
type entry struct {
	// opMu serializes lifecycle operations for this stream.
	opMu sync.Mutex

	mu     sync.Mutex
	stream models.Stream
	proc   process.Process

	// cancelStart aborts a fallback loop in flight. Set for the duration
	// of a start, nil otherwise.
	cancelStart context.CancelFunc
}

// Supervisor owns all stream definitions and drives their encoders.
type Supervisor struct {
	cfg      config.EncoderConfig
	launcher process.Launcher
	server   Server
	probe    DeviceProbe
	bus      Publisher

	reservations *reservationTable

	mu      sync.RWMutex
	streams map[string]*entry
}

// New creates a stream supervisor. Definitions preloaded from
// configuration are created immediately; an invalid one is logged and
// skipped so a single bad entry does not block boot.
func New(cfg config.EncoderConfig, preload []models.StreamConfig, launcher process.Launcher, server Server, probe DeviceProbe, bus Publisher) *Supervisor {
	s := &Supervisor{
		cfg:          cfg,
		launcher:     launcher,
		server:       server,
		probe:        probe,
		bus:          bus,
		reservations: newReservationTable(),
		streams:      make(map[string]*entry),
	}

	for _, sc := range preload {
		if _, err := s.Create(sc); err != nil {
			logging.Warn().
				Str("component", "stream").
				Str("name", sc.Name).
				Err(err).
				Msg("Skipping invalid stream definition from configuration")
		}
	}
	return s
}

// Create validates and registers a new stream definition in the idle
// state. An empty ID gets a generated one.
func (s *Supervisor) Create(cfg models.StreamConfig) (models.Stream, error) {
	if verr := validation.ValidateStruct(cfg); verr != nil {
		return models.Stream{}, verr
	}
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	st := models.Stream{
		ID:             cfg.ID,
		Name:           cfg.Name,
		DeviceID:       cfg.DeviceID,
		Formats:        append([]models.AudioFormat(nil), cfg.Formats...),
		BitrateKbps:    cfg.BitrateKbps,
		SampleRate:     cfg.SampleRate,
		Channels:       cfg.Channels,
		Mount:          cfg.NormalizedMount(),
		State:          models.StreamIdle,
		CreatedAt:      now,
		StateChangedAt: now,
	}

	s.mu.Lock()
	if _, exists := s.streams[st.ID]; exists {
		s.mu.Unlock()
		return models.Stream{}, fmt.Errorf("%w: %s", ErrStreamExists, st.ID)
	}
	s.streams[st.ID] = &entry{stream: st}
	s.mu.Unlock()

	logging.Info().
		Str("component", "stream").
		Str("stream_id", st.ID).
		Str("name", st.Name).
		Str("device_id", st.DeviceID).
		Str("mount", st.Mount).
		Msg("Stream created")

	return copyStream(st), nil
}

// Update replaces the definition fields of a stream that is not live.
// Lifecycle state, diagnosis history, and creation time are preserved.
func (s *Supervisor) Update(id string, cfg models.StreamConfig) (models.Stream, error) {
	if cfg.ID != "" && cfg.ID != id {
		return models.Stream{}, fmt.Errorf("stream %s: id is immutable", id)
	}
	cfg.ID = id
	if verr := validation.ValidateStruct(cfg); verr != nil {
		return models.Stream{}, verr
	}

	e, err := s.entryFor(id)
	if err != nil {
		return models.Stream{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stream.State.Live() {
		return models.Stream{}, fmt.Errorf("%w: %s is %s", ErrStreamLive, id, e.stream.State)
	}

	e.stream.Name = cfg.Name
	e.stream.DeviceID = cfg.DeviceID
	e.stream.Formats = append([]models.AudioFormat(nil), cfg.Formats...)
	e.stream.BitrateKbps = cfg.BitrateKbps
	e.stream.SampleRate = cfg.SampleRate
	e.stream.Channels = cfg.Channels
	e.stream.Mount = cfg.NormalizedMount()

	logging.Info().
		Str("component", "stream").
		Str("stream_id", id).
		Str("name", cfg.Name).
		Msg("Stream definition updated")

	return copyStream(e.stream), nil
}

// Remove deletes a stream definition. Refused while the stream is live;
// stop it first. Waits for any lifecycle operation in flight so a removal
// cannot interleave with a start.
func (s *Supervisor) Remove(id string) error {
	e, err := s.entryFor(id)
	if err != nil {
		return err
	}

	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	if e.stream.State.Live() {
		state := e.stream.State
		e.mu.Unlock()
		return fmt.Errorf("%w: %s is %s", ErrStreamLive, id, state)
	}
	e.mu.Unlock()

	s.mu.Lock()
	delete(s.streams, id)
	s.mu.Unlock()

	logging.Info().
		Str("component", "stream").
		Str("stream_id", id).
		Msg("Stream removed")
	return nil
}

// Get returns a snapshot of one stream.
func (s *Supervisor) Get(id string) (models.Stream, error) {
	e, err := s.entryFor(id)
	if err != nil {
		return models.Stream{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return copyStream(e.stream), nil
}

// List returns snapshots of every stream, ordered by creation time with
// the ID as tiebreaker so the order is stable.
func (s *Supervisor) List() []models.Stream {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.streams))
	for _, e := range s.streams {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]models.Stream, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, copyStream(e.stream))
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *Supervisor) entryFor(id string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.streams[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStreamNotFound, id)
	}
	return e, nil
}

// copyStream returns a snapshot sharing no mutable memory with the
// supervisor's record.
func copyStream(st models.Stream) models.Stream {
	out := st
	out.Formats = append([]models.AudioFormat(nil), st.Formats...)
	if st.LastDiagnosis != nil {
		d := *st.LastDiagnosis
		d.Causes = append([]string(nil), st.LastDiagnosis.Causes...)
		d.Remedies = append([]string(nil), st.LastDiagnosis.Remedies...)
		out.LastDiagnosis = &d
	}
	return out
}

// diagnoseContext assembles the situational values for diagnosis text
// from the stream definition and the current server connection details.
func (s *Supervisor) diagnoseContext(st models.Stream, format models.AudioFormat) diagnose.Context {
	conn := s.server.ConnectionInfo()
	return diagnose.Context{
		DeviceID: st.DeviceID,
		Host:     conn.Host,
		Port:     conn.Port,
		Mount:    st.Mount,
		Format:   format,
		Binary:   s.cfg.BinaryPath,
	}
}

func (s *Supervisor) publish(ctx context.Context, ev *events.Event) {
	if s.bus == nil || ev == nil {
		return
	}
	if err := s.bus.Publish(ctx, ev); err != nil {
		logging.Warn().
			Str("component", "stream").
			Str("event_type", string(ev.Type)).
			Err(err).
			Msg("Event publish failed")
	}
}
