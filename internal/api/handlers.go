// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/emissor/internal/config"
	"github.com/tomtom215/emissor/internal/events"
	"github.com/tomtom215/emissor/internal/icecast"
	"github.com/tomtom215/emissor/internal/middleware"
	"github.com/tomtom215/emissor/internal/models"
	"github.com/tomtom215/emissor/internal/stream"
	"github.com/tomtom215/emissor/internal/validation"
	ws "github.com/tomtom215/emissor/internal/websocket"
)

// maxRequestBodyBytes bounds JSON request bodies. Stream definitions
// are small; anything near this limit is malformed or hostile.
const maxRequestBodyBytes = 1 << 20

// StreamOrchestrator is the stream lifecycle surface the API consumes.
// Implemented by stream.Supervisor.
type StreamOrchestrator interface {
	Create(cfg models.StreamConfig) (models.Stream, error)
	Update(id string, cfg models.StreamConfig) (models.Stream, error)
	Remove(id string) error
	Get(id string) (models.Stream, error)
	List() []models.Stream
	Start(ctx context.Context, id string) error
	Stop(ctx context.Context, id string) error
	Restart(ctx context.Context, id string) error
}

// ServerController is the Icecast lifecycle surface the API consumes.
// Implemented by icecast.Manager.
type ServerController interface {
	DetectInstallation(ctx context.Context) (models.ServerState, error)
	State() models.ServerState
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error
	RefreshConfigValidation(ctx context.Context) ([]string, error)
}

// DeviceProber is the capture device discovery surface the API
// consumes. Implemented by probe.Prober.
type DeviceProber interface {
	Devices(ctx context.Context, force bool) (models.DeviceInventory, error)
}

// EventJournal is the persisted event log surface the API consumes.
// Implemented by journal.Store.
type EventJournal interface {
	Recent(ctx context.Context, scope events.Scope, streamID string, limit int) ([]*events.Event, error)
}

// Handler holds the dependencies shared by all HTTP handlers.
type Handler struct {
	streams   StreamOrchestrator
	server    ServerController
	probe     DeviceProber
	journal   EventJournal
	hub       *ws.Hub
	perfMon   *middleware.PerformanceMonitor
	config    *config.Config
	startTime time.Time
}

// NewHandler creates the API handler set. Any dependency may be nil in
// tests; the corresponding endpoints then answer 503.
func NewHandler(streams StreamOrchestrator, server ServerController, probe DeviceProber, journal EventJournal, hub *ws.Hub, cfg *config.Config) *Handler {
	return &Handler{
		streams:   streams,
		server:    server,
		probe:     probe,
		journal:   journal,
		hub:       hub,
		perfMon:   middleware.NewPerformanceMonitor(1000),
		config:    cfg,
		startTime: time.Now(),
	}
}

// GetPerformanceStats returns per-endpoint latency statistics gathered
// by the performance middleware.
func (h *Handler) GetPerformanceStats() []middleware.EndpointStats {
	if h.perfMon == nil {
		return nil
	}
	return h.perfMon.GetStats()
}

// decodeJSONBody reads a bounded JSON request body into dst.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// writeValidationError converts a struct validation failure into a 400
// envelope with per-field detail.
func writeValidationError(w http.ResponseWriter, r *http.Request, verr *validation.RequestValidationError) {
	apiErr := verr.ToAPIError()
	NewResponseWriter(w, r).BadRequestWithDetails(apiErr.Code, apiErr.Message, apiErr.Details)
}

// writeStreamError maps stream supervisor errors onto the envelope.
func writeStreamError(rw *ResponseWriter, err error) {
	var notStartable *stream.NotStartableError
	var startFailed *stream.StartFailedError

	switch {
	case errors.Is(err, stream.ErrStreamNotFound):
		rw.NotFound("Stream not found")
	case errors.Is(err, stream.ErrStreamExists):
		rw.Conflict("Stream ID already in use")
	case errors.Is(err, stream.ErrStreamLive):
		rw.Conflict("Stream must be stopped before its definition changes")
	case errors.Is(err, stream.ErrStartCancelled):
		rw.Conflict("Stream start superseded by a newer command")
	case errors.As(err, &notStartable):
		rw.Conflict(fmt.Sprintf("Stream cannot start from state %q", notStartable.State))
	case errors.As(err, &startFailed):
		rw.ErrorWithDetails(http.StatusBadGateway, ErrCodeStartFailed,
			"Every configured format failed to start", map[string]interface{}{
				"diagnosis": startFailed.Diagnosis,
			})
	default:
		rw.InternalError("Stream operation failed")
	}
}

// writeServerError maps Icecast manager errors onto the envelope.
func writeServerError(rw *ResponseWriter, err error) {
	var notDetected *icecast.NotDetectedError

	switch {
	case errors.As(err, &notDetected):
		rw.ErrorWithDetails(http.StatusNotFound, ErrCodeNotFound,
			"No Icecast installation found", map[string]interface{}{
				"searched": notDetected.Searched,
			})
	case errors.Is(err, icecast.ErrNotDetected):
		rw.Conflict("Icecast installation not yet detected")
	case errors.Is(err, icecast.ErrAlreadyRunning):
		rw.Conflict("Icecast server is already running")
	case errors.Is(err, icecast.ErrNotRunning):
		rw.Conflict("Icecast server is not running")
	default:
		rw.InternalError("Server operation failed")
	}
}

// getIntParam reads an integer query parameter, falling back to a
// default when absent or unparseable.
func getIntParam(r *http.Request, name string, defaultValue int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return n
}

// sanitizeLogValue escapes control characters in client-supplied
// strings so they cannot forge log lines.
func sanitizeLogValue(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r < 32 || r == 127 {
			fmt.Fprintf(&b, "\\x%02x", r)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
