// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/tomtom215/emissor/internal/logging"
)

func TestRequestIDGeneratesNewID(t *testing.T) {
	var capturedID string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = logging.RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/streams", nil)
	rec := httptest.NewRecorder()

	RequestID(handler).ServeHTTP(rec, req)

	responseID := rec.Header().Get("X-Request-ID")
	if responseID == "" {
		t.Fatal("Expected X-Request-ID header in response")
	}
	if _, err := uuid.Parse(responseID); err != nil {
		t.Errorf("Response X-Request-ID is not a valid UUID: %v", err)
	}
	if capturedID == "" {
		t.Error("Expected request ID in context")
	}
	if capturedID != responseID {
		t.Errorf("Context ID (%s) doesn't match response header ID (%s)", capturedID, responseID)
	}
}

func TestRequestIDPreservesExistingID(t *testing.T) {
	var capturedID string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = logging.RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	existingID := "proxy-req-12345"
	req := httptest.NewRequest(http.MethodGet, "/api/v1/server", nil)
	req.Header.Set("X-Request-ID", existingID)
	rec := httptest.NewRecorder()

	RequestID(handler).ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != existingID {
		t.Errorf("Expected X-Request-ID to be %s, got %s", existingID, got)
	}
	if capturedID != existingID {
		t.Errorf("Expected context ID to be %s, got %s", existingID, capturedID)
	}
}

func TestRequestIDEmptyHeaderGeneratesNew(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/devices", nil)
	req.Header.Set("X-Request-ID", "")
	rec := httptest.NewRecorder()

	RequestID(handler).ServeHTTP(rec, req)

	responseID := rec.Header().Get("X-Request-ID")
	if responseID == "" {
		t.Fatal("Expected new request ID to be generated for empty header")
	}
	if _, err := uuid.Parse(responseID); err != nil {
		t.Errorf("Generated ID is not a valid UUID: %v", err)
	}
}

func TestRequestIDUniqueAcrossRequests(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	wrapped := RequestID(handler)

	ids := make(map[string]bool)
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/streams", nil)
		rec := httptest.NewRecorder()

		wrapped.ServeHTTP(rec, req)

		id := rec.Header().Get("X-Request-ID")
		if ids[id] {
			t.Errorf("Duplicate request ID generated: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != 10 {
		t.Errorf("Expected 10 unique IDs, got %d", len(ids))
	}
}

func TestRequestIDContextIsolation(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := logging.RequestIDFromContext(r.Context())
		if headerID := r.Header.Get("X-Request-ID"); headerID != "" && id != headerID {
			t.Errorf("Context ID (%s) doesn't match header ID (%s)", id, headerID)
		}
		w.WriteHeader(http.StatusOK)
	})
	wrapped := RequestID(handler)

	req1 := httptest.NewRequest(http.MethodGet, "/api/v1/streams", nil)
	req1.Header.Set("X-Request-ID", "custom-id-1")
	rec1 := httptest.NewRecorder()
	wrapped.ServeHTTP(rec1, req1)

	req2 := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	req2.Header.Set("X-Request-ID", "custom-id-2")
	rec2 := httptest.NewRecorder()
	wrapped.ServeHTTP(rec2, req2)

	if rec1.Header().Get("X-Request-ID") != "custom-id-1" {
		t.Errorf("Expected first request ID to be custom-id-1, got %s", rec1.Header().Get("X-Request-ID"))
	}
	if rec2.Header().Get("X-Request-ID") != "custom-id-2" {
		t.Errorf("Expected second request ID to be custom-id-2, got %s", rec2.Header().Get("X-Request-ID"))
	}
}

func BenchmarkRequestID(b *testing.B) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = logging.RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	wrapped := RequestID(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/streams", nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, req)
	}
}

func BenchmarkRequestIDWithExisting(b *testing.B) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = logging.RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	wrapped := RequestID(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/streams", nil)
	req.Header.Set("X-Request-ID", "existing-id-12345")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, req)
	}
}
