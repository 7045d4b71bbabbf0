// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package api

import (
	"net/http"

	"github.com/tomtom215/emissor/internal/events"
	"github.com/tomtom215/emissor/internal/logging"
)

// ListEvents handles GET /api/v1/events. It reads the persisted
// lifecycle journal, newest first, filtered by scope and stream ID.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.journal == nil {
		rw.ServiceUnavailable("Event journal not available")
		return
	}

	req, verr := ParseEventsRequest(r)
	if verr != nil {
		writeValidationError(w, r, verr)
		return
	}

	evts, err := h.journal.Recent(r.Context(), events.Scope(req.Scope), req.StreamID, req.Limit)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Event journal read failed")
		rw.InternalError("Event journal read failed")
		return
	}
	rw.Success(evts)
}
