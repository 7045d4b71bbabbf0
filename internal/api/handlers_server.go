// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package api

import (
	"context"
	"net/http"

	"github.com/tomtom215/emissor/internal/logging"
)

// GetServer handles GET /api/v1/server. It reports the last known
// server state without touching the filesystem or the process table.
func (h *Handler) GetServer(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.server == nil {
		rw.ServiceUnavailable("Icecast manager not available")
		return
	}
	rw.Success(h.server.State())
}

// DetectServer handles POST /api/v1/server/detect. Detection walks the
// candidate installation roots again, so a failed result is retriable
// after the operator installs or moves Icecast.
func (h *Handler) DetectServer(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.server == nil {
		rw.ServiceUnavailable("Icecast manager not available")
		return
	}

	state, err := h.server.DetectInstallation(r.Context())
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Icecast detection failed")
		writeServerError(rw, err)
		return
	}
	rw.Success(state)
}

// StartServer handles POST /api/v1/server/start.
func (h *Handler) StartServer(w http.ResponseWriter, r *http.Request) {
	h.serverOp(w, r, "start", func(ctx context.Context) error {
		return h.server.Start(ctx)
	})
}

// StopServer handles POST /api/v1/server/stop.
func (h *Handler) StopServer(w http.ResponseWriter, r *http.Request) {
	h.serverOp(w, r, "stop", func(ctx context.Context) error {
		return h.server.Stop(ctx)
	})
}

// RestartServer handles POST /api/v1/server/restart.
func (h *Handler) RestartServer(w http.ResponseWriter, r *http.Request) {
	h.serverOp(w, r, "restart", func(ctx context.Context) error {
		return h.server.Restart(ctx)
	})
}

// serverOp runs an Icecast lifecycle command and answers with the
// resulting server state.
func (h *Handler) serverOp(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context) error) {
	rw := NewResponseWriter(w, r)
	if h.server == nil {
		rw.ServiceUnavailable("Icecast manager not available")
		return
	}

	if err := fn(r.Context()); err != nil {
		logging.Ctx(r.Context()).Warn().
			Err(err).
			Str("op", op).
			Msg("Icecast lifecycle command failed")
		writeServerError(rw, err)
		return
	}
	rw.Success(h.server.State())
}

// GetServerConfigValidation handles GET /api/v1/server/config/validation.
// It re-reads icecast.xml so edits made since detection show up.
func (h *Handler) GetServerConfigValidation(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.server == nil {
		rw.ServiceUnavailable("Icecast manager not available")
		return
	}

	findings, err := h.server.RefreshConfigValidation(r.Context())
	if err != nil {
		writeServerError(rw, err)
		return
	}
	rw.Success(map[string]interface{}{
		"valid":  len(findings) == 0,
		"errors": findings,
	})
}
