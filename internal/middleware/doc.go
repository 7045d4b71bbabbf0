// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

/*
Package middleware provides HTTP middleware for the control API.

Every component uses the standard func(http.Handler) http.Handler shape
so it can be mounted directly on a chi router alongside the chi core
middleware (RequestID pairing with RealIP, Recoverer and the rate
limiters configured in internal/api).

Key Components:

  - RequestID: per-request ID propagation into logs and response headers
  - PrometheusMetrics: request counters and latency histograms
  - PerformanceMonitor: in-process percentile tracking for health reports
  - Compression: pooled gzip response compression

Usage:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.Compression)

	perfMon := middleware.NewPerformanceMonitor(1000)
	r.Use(perfMon.Middleware)

	// Later, e.g. in a health handler:
	stats := perfMon.GetStats()

Writer Wrapping:

PrometheusMetrics, PerformanceMonitor and Compression substitute the
http.ResponseWriter to observe status codes or reroute the body. The
wrappers expose Unwrap for http.ResponseController, but WebSocket
endpoints must still be mounted outside these middleware so the
connection upgrade sees the server's original, hijackable writer.
Compression additionally skips any request carrying an Upgrade header.

Route Patterns:

PrometheusMetrics and PerformanceMonitor label observations with the
chi route pattern (for example /api/v1/streams/{id}) rather than the
raw URL path, keeping metric cardinality bounded no matter how many
streams exist.

See Also:

  - internal/api: router assembly and rate limiting
  - internal/metrics: Prometheus metric definitions
  - internal/logging: request ID context helpers
*/
package middleware
