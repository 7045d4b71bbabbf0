// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/emissor/internal/logging"
	"github.com/tomtom215/emissor/internal/models"
	"github.com/tomtom215/emissor/internal/validation"
)

// ListStreams handles GET /api/v1/streams.
func (h *Handler) ListStreams(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.streams == nil {
		rw.ServiceUnavailable("Stream supervisor not available")
		return
	}
	rw.Success(h.streams.List())
}

// GetStream handles GET /api/v1/streams/{id}.
func (h *Handler) GetStream(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.streams == nil {
		rw.ServiceUnavailable("Stream supervisor not available")
		return
	}

	st, err := h.streams.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeStreamError(rw, err)
		return
	}
	rw.Success(st)
}

// CreateStream handles POST /api/v1/streams.
func (h *Handler) CreateStream(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.streams == nil {
		rw.ServiceUnavailable("Stream supervisor not available")
		return
	}

	var cfg models.StreamConfig
	if err := decodeJSONBody(w, r, &cfg); err != nil {
		rw.BadRequest("Invalid JSON body")
		return
	}
	if verr := validation.ValidateStruct(&cfg); verr != nil {
		writeValidationError(w, r, verr)
		return
	}

	st, err := h.streams.Create(cfg)
	if err != nil {
		writeStreamError(rw, err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("stream_id", st.ID).
		Str("device_id", sanitizeLogValue(st.DeviceID)).
		Str("mount", sanitizeLogValue(st.Mount)).
		Msg("Stream created")

	h.notifyStreamsChanged("created", st.ID)
	rw.Created(st)
}

// UpdateStream handles PUT /api/v1/streams/{id}.
func (h *Handler) UpdateStream(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.streams == nil {
		rw.ServiceUnavailable("Stream supervisor not available")
		return
	}

	id := chi.URLParam(r, "id")

	var cfg models.StreamConfig
	if err := decodeJSONBody(w, r, &cfg); err != nil {
		rw.BadRequest("Invalid JSON body")
		return
	}
	if verr := validation.ValidateStruct(&cfg); verr != nil {
		writeValidationError(w, r, verr)
		return
	}

	st, err := h.streams.Update(id, cfg)
	if err != nil {
		writeStreamError(rw, err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("stream_id", st.ID).
		Msg("Stream definition updated")

	h.notifyStreamsChanged("updated", st.ID)
	rw.Success(st)
}

// DeleteStream handles DELETE /api/v1/streams/{id}.
func (h *Handler) DeleteStream(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.streams == nil {
		rw.ServiceUnavailable("Stream supervisor not available")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.streams.Remove(id); err != nil {
		writeStreamError(rw, err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("stream_id", sanitizeLogValue(id)).
		Msg("Stream removed")

	h.notifyStreamsChanged("removed", id)
	rw.NoContent()
}

// StartStream handles POST /api/v1/streams/{id}/start.
//
// The supervisor runs the start loop on a detached context, so a client
// that disconnects mid-fallback does not abandon the attempt. The call
// still blocks until the stream reaches running or fails every format.
func (h *Handler) StartStream(w http.ResponseWriter, r *http.Request) {
	h.lifecycleOp(w, r, "start", func(ctx context.Context, id string) error {
		return h.streams.Start(ctx, id)
	})
}

// StopStream handles POST /api/v1/streams/{id}/stop.
func (h *Handler) StopStream(w http.ResponseWriter, r *http.Request) {
	h.lifecycleOp(w, r, "stop", func(ctx context.Context, id string) error {
		return h.streams.Stop(ctx, id)
	})
}

// RestartStream handles POST /api/v1/streams/{id}/restart.
func (h *Handler) RestartStream(w http.ResponseWriter, r *http.Request) {
	h.lifecycleOp(w, r, "restart", func(ctx context.Context, id string) error {
		return h.streams.Restart(ctx, id)
	})
}

// lifecycleOp runs a start, stop, or restart command and answers with
// the stream's resulting state.
func (h *Handler) lifecycleOp(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context, id string) error) {
	rw := NewResponseWriter(w, r)
	if h.streams == nil {
		rw.ServiceUnavailable("Stream supervisor not available")
		return
	}

	id := chi.URLParam(r, "id")
	if err := fn(r.Context(), id); err != nil {
		logging.Ctx(r.Context()).Warn().
			Err(err).
			Str("stream_id", sanitizeLogValue(id)).
			Str("op", op).
			Msg("Stream lifecycle command failed")
		writeStreamError(rw, err)
		return
	}

	st, err := h.streams.Get(id)
	if err != nil {
		writeStreamError(rw, err)
		return
	}
	rw.Success(st)
}

// notifyStreamsChanged tells WebSocket clients that the stream set
// changed so dashboards can refetch definitions.
func (h *Handler) notifyStreamsChanged(action, streamID string) {
	if h.hub == nil {
		return
	}
	h.hub.BroadcastJSON("streams_changed", map[string]string{
		"action":    action,
		"stream_id": streamID,
	})
}
