// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for production observability:
// - Stream lifecycle (starts, failures by category, fallback attempts)
// - Encoder process supervision (spawns, exits, run durations)
// - Device probe health (durations, breaker state)
// - Icecast server lifecycle
// - Event bus, journal, WebSocket hub and API throughput

var (
	// Stream Lifecycle Metrics
	StreamsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "emissor_streams_active",
			Help: "Current number of streams in the running state",
		},
	)

	StreamStarts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emissor_stream_starts_total",
			Help: "Total number of stream start attempts",
		},
		[]string{"result"}, // "success", "failure", "rejected", "cancelled"
	)

	StreamFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emissor_stream_failures_total",
			Help: "Total number of stream failures by diagnosis category",
		},
		[]string{"category"},
	)

	FormatAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emissor_format_attempts_total",
			Help: "Total number of per-format encoder attempts during fallback",
		},
		[]string{"format", "result"}, // result: "success", "failure"
	)

	DeviceReservations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "emissor_device_reservations",
			Help: "Current number of exclusively reserved capture devices",
		},
	)

	// Encoder Process Metrics
	EncoderSpawns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "emissor_encoder_spawns_total",
			Help: "Total number of encoder processes spawned",
		},
	)

	EncoderUnsolicitedExits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "emissor_encoder_unsolicited_exits_total",
			Help: "Total number of encoder processes that died while running",
		},
	)

	EncoderRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "emissor_encoder_run_duration_seconds",
			Help:    "Lifetime of encoder processes from spawn to exit",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 3600, 14400, 86400},
		},
	)

	// Device Probe Metrics
	ProbeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "emissor_probe_duration_seconds",
			Help:    "Duration of device enumeration runs",
			Buckets: prometheus.DefBuckets,
		},
	)

	ProbeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "emissor_probe_failures_total",
			Help: "Total number of failed device enumeration runs",
		},
	)

	ProbeDevicesFound = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "emissor_probe_devices_found",
			Help: "Number of capture devices in the most recent enumeration",
		},
	)

	// Icecast Server Metrics
	ServerUp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "emissor_server_up",
			Help: "Whether the managed Icecast server is running (1) or not (0)",
		},
	)

	ServerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emissor_server_transitions_total",
			Help: "Total number of Icecast lifecycle operations",
		},
		[]string{"operation", "result"}, // operation: "start", "stop", "restart", "watchdog"
	)

	// Event Bus Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emissor_events_published_total",
			Help: "Total number of status events published on the bus",
		},
		[]string{"type"},
	)

	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "emissor_events_dropped_total",
			Help: "Total number of status events dropped after delivery failed",
		},
	)

	// Journal Metrics
	JournalAppends = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "emissor_journal_appends_total",
			Help: "Total number of events persisted to the journal",
		},
	)

	JournalAppendErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "emissor_journal_append_errors_total",
			Help: "Total number of failed journal writes",
		},
	)

	JournalGCRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "emissor_journal_gc_runs_total",
			Help: "Total number of journal garbage collection passes",
		},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "emissor_websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "emissor_websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emissor_websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emissor_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "emissor_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "emissor_api_active_requests",
			Help: "Current number of in-flight API requests",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "emissor_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emissor_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordStreamStart records the outcome of a start attempt.
// result is one of "success", "failure", "rejected", "cancelled".
func RecordStreamStart(result string) {
	StreamStarts.WithLabelValues(result).Inc()
}

// RecordStreamFailure records a failure with its diagnosis category.
func RecordStreamFailure(category string) {
	StreamFailures.WithLabelValues(category).Inc()
}

// RecordFormatAttempt records one encoder attempt during format fallback.
func RecordFormatAttempt(format string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	FormatAttempts.WithLabelValues(format, result).Inc()
}

// RecordEncoderExit records the lifetime of a finished encoder process.
func RecordEncoderExit(runtime time.Duration, unsolicited bool) {
	EncoderRunDuration.Observe(runtime.Seconds())
	if unsolicited {
		EncoderUnsolicitedExits.Inc()
	}
}

// RecordProbe records an enumeration run.
func RecordProbe(duration time.Duration, devices int, err error) {
	ProbeDuration.Observe(duration.Seconds())
	if err != nil {
		ProbeFailures.Inc()
		return
	}
	ProbeDevicesFound.Set(float64(devices))
}

// RecordServerOperation records an Icecast lifecycle operation outcome.
func RecordServerOperation(operation string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	ServerTransitions.WithLabelValues(operation, result).Inc()
}

// SetServerUp flips the server liveness gauge.
func SetServerUp(up bool) {
	if up {
		ServerUp.Set(1)
	} else {
		ServerUp.Set(0)
	}
}

// RecordAPIRequest records a completed API request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// SetCircuitBreakerState updates the breaker state gauge.
// state is 0 for closed, 1 for half-open, 2 for open.
func SetCircuitBreakerState(name string, state float64) {
	CircuitBreakerState.WithLabelValues(name).Set(state)
}

// RecordCircuitBreakerTransition records a breaker state change.
func RecordCircuitBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
}
