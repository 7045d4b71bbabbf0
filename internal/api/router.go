// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/emissor/internal/middleware"
)

// NewRouter builds the chi router with the full middleware stack and
// every route the service exposes.
//
// The /ws route lives outside /api/v1 on purpose: the API group wraps
// the ResponseWriter for metrics and compression, and an upgrade needs
// the raw hijackable writer. Only non-wrapping middleware may sit on
// the WebSocket path.
func NewRouter(h *Handler, cm *ChiMiddleware) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware. Nothing here wraps the ResponseWriter.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cm.CORS())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusNotFound, ErrCodeNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed")
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(APISecurityHeaders)
		api.Use(middleware.PrometheusMetrics)
		if h.perfMon != nil {
			api.Use(h.perfMon.Middleware)
		}
		api.Use(middleware.Compression)

		// Health endpoints, near-unmetered for pollers.
		api.Group(func(g chi.Router) {
			g.Use(cm.RateLimitCustom(RateLimitHealth))

			g.Get("/health", h.Health)
			g.Get("/health/live", h.HealthLive)
			g.Get("/health/ready", h.HealthReady)
		})

		// Read endpoints.
		api.Group(func(g chi.Router) {
			g.Use(cm.RateLimit())

			g.Get("/streams", h.ListStreams)
			g.Get("/streams/{id}", h.GetStream)
			g.Get("/devices", h.ListDevices)
			g.Get("/server", h.GetServer)
			g.Get("/server/config/validation", h.GetServerConfigValidation)
			g.Get("/events", h.ListEvents)
		})

		// Write endpoints, tightly limited: most spawn or kill
		// encoder processes.
		api.Group(func(g chi.Router) {
			g.Use(cm.RateLimitCustom(RateLimitWrite))

			g.Post("/streams", h.CreateStream)
			g.Put("/streams/{id}", h.UpdateStream)
			g.Delete("/streams/{id}", h.DeleteStream)
			g.Post("/streams/{id}/start", h.StartStream)
			g.Post("/streams/{id}/stop", h.StopStream)
			g.Post("/streams/{id}/restart", h.RestartStream)

			g.Post("/server/detect", h.DetectServer)
			g.Post("/server/start", h.StartServer)
			g.Post("/server/stop", h.StopServer)
			g.Post("/server/restart", h.RestartServer)
		})
	})

	// WebSocket upgrade path, outside every writer-wrapping middleware.
	r.Group(func(g chi.Router) {
		g.Use(cm.RateLimitCustom(RateLimitWebSocket))
		g.Get("/ws", h.HandleWebSocket)
	})

	// Prometheus scrape endpoint, raw exposition format rather than the
	// JSON envelope.
	r.Handle("/metrics", promhttp.Handler())

	return r
}
