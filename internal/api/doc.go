// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

// Package api implements the HTTP control surface: stream CRUD and
// lifecycle commands, Icecast server management, device discovery,
// the event journal, health probes, and the WebSocket status feed.
//
// # Response envelope
//
// Every JSON endpoint answers with the same envelope:
//
//	{
//	  "success": true,
//	  "data": { ... },
//	  "meta": {"request_id": "...", "timestamp": "...", "duration_ms": 1.2}
//	}
//
// Failures carry an error object instead of data:
//
//	{
//	  "success": false,
//	  "error": {"code": "NOT_FOUND", "message": "Stream not found", "request_id": "..."}
//	}
//
// Error codes are stable strings (see ErrCode constants); clients
// switch on code, not on message text. Validation failures add
// per-field detail under error.details.
//
// # Routes
//
// All JSON endpoints live under /api/v1:
//
//	GET    /health, /health/live, /health/ready
//	GET    /streams              POST   /streams
//	GET    /streams/{id}         PUT    /streams/{id}    DELETE /streams/{id}
//	POST   /streams/{id}/start   /stop  /restart
//	GET    /server               POST   /server/detect   /start /stop /restart
//	GET    /server/config/validation
//	GET    /devices              GET    /events
//
// Two routes sit outside the group: /ws upgrades to a WebSocket for
// pushed state changes, and /metrics serves the Prometheus exposition
// format.
//
// # Middleware layering
//
// The /api/v1 group stacks security headers, Prometheus metrics,
// latency tracking, and gzip compression on top of the global request
// ID, real IP, recoverer, and CORS middleware. The /ws route takes
// only the global stack plus its own rate limit: the group middleware
// wraps the ResponseWriter, and a WebSocket upgrade needs the raw
// hijackable writer.
//
// Rate limits are tiered. Reads share the configured general limit,
// writes are capped low because they spawn encoder processes, and
// health checks are near-unmetered for orchestrator probes.
//
// # Dependencies
//
// Handlers depend on narrow consumer interfaces (StreamOrchestrator,
// ServerController, DeviceProber, EventJournal) rather than concrete
// types, so tests substitute stubs without touching ALSA, FFmpeg, or
// BadgerDB.
package api
