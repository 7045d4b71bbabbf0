// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordStreamStart(t *testing.T) {
	before := testutil.ToFloat64(StreamStarts.WithLabelValues("success"))
	RecordStreamStart("success")
	after := testutil.ToFloat64(StreamStarts.WithLabelValues("success"))
	if after != before+1 {
		t.Errorf("stream starts counter = %v, want %v", after, before+1)
	}
}

func TestRecordStreamFailure(t *testing.T) {
	before := testutil.ToFloat64(StreamFailures.WithLabelValues("device_busy"))
	RecordStreamFailure("device_busy")
	after := testutil.ToFloat64(StreamFailures.WithLabelValues("device_busy"))
	if after != before+1 {
		t.Errorf("stream failures counter = %v, want %v", after, before+1)
	}
}

func TestRecordFormatAttempt(t *testing.T) {
	beforeOK := testutil.ToFloat64(FormatAttempts.WithLabelValues("mp3", "success"))
	beforeFail := testutil.ToFloat64(FormatAttempts.WithLabelValues("aac", "failure"))

	RecordFormatAttempt("mp3", true)
	RecordFormatAttempt("aac", false)

	if got := testutil.ToFloat64(FormatAttempts.WithLabelValues("mp3", "success")); got != beforeOK+1 {
		t.Errorf("mp3 success counter = %v, want %v", got, beforeOK+1)
	}
	if got := testutil.ToFloat64(FormatAttempts.WithLabelValues("aac", "failure")); got != beforeFail+1 {
		t.Errorf("aac failure counter = %v, want %v", got, beforeFail+1)
	}
}

func TestRecordProbe(t *testing.T) {
	RecordProbe(120*time.Millisecond, 3, nil)
	if got := testutil.ToFloat64(ProbeDevicesFound); got != 3 {
		t.Errorf("devices found gauge = %v, want 3", got)
	}

	beforeFail := testutil.ToFloat64(ProbeFailures)
	RecordProbe(5*time.Second, 0, errors.New("timeout"))
	if got := testutil.ToFloat64(ProbeFailures); got != beforeFail+1 {
		t.Errorf("probe failures = %v, want %v", got, beforeFail+1)
	}
	// A failed probe must not overwrite the last good device count.
	if got := testutil.ToFloat64(ProbeDevicesFound); got != 3 {
		t.Errorf("devices found gauge after failure = %v, want 3", got)
	}
}

func TestSetServerUp(t *testing.T) {
	SetServerUp(true)
	if got := testutil.ToFloat64(ServerUp); got != 1 {
		t.Errorf("server up gauge = %v, want 1", got)
	}
	SetServerUp(false)
	if got := testutil.ToFloat64(ServerUp); got != 0 {
		t.Errorf("server up gauge = %v, want 0", got)
	}
}

func TestRecordServerOperation(t *testing.T) {
	before := testutil.ToFloat64(ServerTransitions.WithLabelValues("start", "failure"))
	RecordServerOperation("start", errors.New("already running"))
	after := testutil.ToFloat64(ServerTransitions.WithLabelValues("start", "failure"))
	if after != before+1 {
		t.Errorf("server transitions counter = %v, want %v", after, before+1)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	base := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	TrackActiveRequest(true)
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != base+1 {
		t.Errorf("active requests gauge = %v, want %v", got, base+1)
	}
	TrackActiveRequest(false)
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/api/v1/streams/{id}/start", "202"))
	RecordAPIRequest("POST", "/api/v1/streams/{id}/start", 202, 40*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/api/v1/streams/{id}/start", "202"))
	if after != before+1 {
		t.Errorf("api requests counter = %v, want %v", after, before+1)
	}
}

func TestCircuitBreakerMetrics(t *testing.T) {
	SetCircuitBreakerState("probe", 2)
	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("probe")); got != 2 {
		t.Errorf("breaker state gauge = %v, want 2", got)
	}

	before := testutil.ToFloat64(CircuitBreakerTransitions.WithLabelValues("probe", "closed", "open"))
	RecordCircuitBreakerTransition("probe", "closed", "open")
	after := testutil.ToFloat64(CircuitBreakerTransitions.WithLabelValues("probe", "closed", "open"))
	if after != before+1 {
		t.Errorf("breaker transitions counter = %v, want %v", after, before+1)
	}
}
