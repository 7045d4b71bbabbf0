// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package api

import (
	"net/http"
	"strconv"

	"github.com/tomtom215/emissor/internal/logging"
)

// ListDevices handles GET /api/v1/devices. Results come from the probe
// cache unless refresh=true forces a fresh hardware scan.
func (h *Handler) ListDevices(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.probe == nil {
		rw.ServiceUnavailable("Device prober not available")
		return
	}

	force, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))

	inventory, err := h.probe.Devices(r.Context(), force)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Device probe failed")
		rw.InternalError("Device probe failed")
		return
	}
	rw.Success(inventory)
}
