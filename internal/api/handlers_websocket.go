// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/emissor/internal/logging"
	ws "github.com/tomtom215/emissor/internal/websocket"
)

// getUpgrader builds the WebSocket upgrader with origin checking bound
// to this handler's config.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      h.checkWebSocketOrigin,
	}
}

// checkWebSocketOrigin validates the Origin header against the
// configured CORS origins. Requests without an Origin header are
// rejected; browsers always send one, so its absence means a
// non-browser client trying to skip the origin check.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Ctx(r.Context()).Warn().
			Str("remote_addr", r.RemoteAddr).
			Msg("WebSocket rejected: missing Origin header")
		return false
	}

	if h.config == nil {
		return true
	}

	for _, allowed := range h.config.Server.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	logging.Ctx(r.Context()).Warn().
		Str("origin", sanitizeLogValue(origin)).
		Str("remote_addr", r.RemoteAddr).
		Msg("WebSocket rejected: origin not allowed")
	return false
}

// HandleWebSocket handles GET /ws. It upgrades the connection and
// hands it to the hub, which pushes stream and server lifecycle
// messages until the client disconnects.
//
// This route must stay outside the compression and metrics middleware:
// those wrap the ResponseWriter and an upgrade needs the raw hijackable
// writer.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		WriteError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable,
			"WebSocket hub not available")
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the handshake error.
		logging.Ctx(r.Context()).Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(h.hub, conn)
	h.hub.Register <- client
	client.Start()

	logging.Ctx(r.Context()).Debug().
		Str("remote_addr", r.RemoteAddr).
		Msg("WebSocket client connected")
}
