// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/emissor/internal/middleware"
	"github.com/tomtom215/emissor/internal/models"
)

// version is reported by the health endpoints.
const version = "1.0.0"

// HealthReport is the GET /api/v1/health payload.
type HealthReport struct {
	Status           string                     `json:"status"`
	Version          string                     `json:"version"`
	UptimeSeconds    float64                    `json:"uptime_seconds"`
	Server           ServerHealth               `json:"server"`
	Streams          StreamsHealth              `json:"streams"`
	WebSocketClients int                        `json:"websocket_clients"`
	Endpoints        []middleware.EndpointStats `json:"endpoints,omitempty"`
}

// ServerHealth summarizes the Icecast server for the health report.
type ServerHealth struct {
	Detected    bool `json:"detected"`
	Running     bool `json:"running"`
	ConfigValid bool `json:"config_valid"`
}

// StreamsHealth summarizes stream states for the health report.
type StreamsHealth struct {
	Total    int `json:"total"`
	Running  int `json:"running"`
	Starting int `json:"starting"`
	Failed   int `json:"failed"`
}

// Health handles GET /api/v1/health. Status is "healthy" unless a
// stream sits in failed or a detected server has an invalid config,
// which reports "degraded".
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	report := HealthReport{
		Status:        "healthy",
		Version:       version,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		Endpoints:     h.GetPerformanceStats(),
	}

	if h.hub != nil {
		report.WebSocketClients = h.hub.ClientCount()
	}

	if h.server != nil {
		state := h.server.State()
		report.Server = ServerHealth{
			Detected:    state.Detected(),
			Running:     state.Running,
			ConfigValid: state.ConfigValid,
		}
		if state.Detected() && !state.ConfigValid {
			report.Status = "degraded"
		}
	}

	if h.streams != nil {
		for _, st := range h.streams.List() {
			report.Streams.Total++
			switch st.State {
			case models.StreamRunning:
				report.Streams.Running++
			case models.StreamStarting:
				report.Streams.Starting++
			case models.StreamFailed:
				report.Streams.Failed++
			}
		}
		if report.Streams.Failed > 0 {
			report.Status = "degraded"
		}
	}

	NewResponseWriter(w, r).Success(report)
}

// HealthLive handles GET /api/v1/health/live. It answers 200 whenever
// the process can serve requests at all.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":          true,
		"uptime_seconds": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles GET /api/v1/health/ready. Readiness requires the
// stream supervisor, Icecast manager, and event journal to be wired.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var missing []string
	if h.streams == nil {
		missing = append(missing, "streams")
	}
	if h.server == nil {
		missing = append(missing, "server")
	}
	if h.journal == nil {
		missing = append(missing, "journal")
	}

	if len(missing) > 0 {
		rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable,
			"Service not ready", map[string]interface{}{
				"missing": missing,
			})
		return
	}

	rw.Success(map[string]interface{}{"ready": true})
}
