// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func TestNewPerformanceMonitor(t *testing.T) {
	tests := []struct {
		name       string
		maxMetrics int
		want       int
	}{
		{"small capacity", 10, 10},
		{"large capacity", 1000, 1000},
		{"zero falls back to default", 0, 1000},
		{"negative falls back to default", -5, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pm := NewPerformanceMonitor(tt.maxMetrics)

			if pm == nil {
				t.Fatal("NewPerformanceMonitor returned nil")
			}
			if pm.maxMetrics != tt.want {
				t.Errorf("Expected maxMetrics %d, got %d", tt.want, pm.maxMetrics)
			}
			if pm.metrics == nil {
				t.Error("Expected metrics slice to be initialized")
			}
		})
	}
}

func TestRecordRequestSlidingWindow(t *testing.T) {
	pm := NewPerformanceMonitor(5)

	for i := 0; i < 10; i++ {
		pm.RecordRequest(&RequestMetrics{
			Path:       "/api/v1/streams",
			Method:     "GET",
			DurationMS: int64(i * 10),
			StatusCode: 200,
			Timestamp:  time.Now(),
		})
	}

	if len(pm.metrics) != 5 {
		t.Errorf("Expected 5 metrics in sliding window, got %d", len(pm.metrics))
	}

	// Oldest entries fall off: durations 50..90 remain.
	if pm.metrics[0].DurationMS != 50 {
		t.Errorf("Expected oldest retained duration 50, got %d", pm.metrics[0].DurationMS)
	}
	if pm.metrics[4].DurationMS != 90 {
		t.Errorf("Expected newest duration 90, got %d", pm.metrics[4].DurationMS)
	}
}

func TestGetStats(t *testing.T) {
	pm := NewPerformanceMonitor(100)

	for i := 0; i < 10; i++ {
		pm.RecordRequest(&RequestMetrics{
			Path:       "/api/v1/streams",
			Method:     "GET",
			DurationMS: int64(100 + i*10), // 100, 110, ..., 190
			StatusCode: 200,
			Timestamp:  time.Now(),
		})
	}
	for i := 0; i < 5; i++ {
		pm.RecordRequest(&RequestMetrics{
			Path:       "/api/v1/devices",
			Method:     "GET",
			DurationMS: int64(50 + i*5),
			StatusCode: 200,
			Timestamp:  time.Now(),
		})
	}

	stats := pm.GetStats()

	if len(stats) != 2 {
		t.Fatalf("Expected 2 endpoint stats, got %d", len(stats))
	}

	// Ordered by request count descending.
	if stats[0].Path != "GET /api/v1/streams" {
		t.Errorf("Expected busiest endpoint first, got %s", stats[0].Path)
	}
	if stats[0].RequestCount != 10 {
		t.Errorf("Expected request count 10, got %d", stats[0].RequestCount)
	}
	if stats[0].AvgDuration != 145.0 {
		t.Errorf("Expected average duration 145, got %.2f", stats[0].AvgDuration)
	}
	if stats[0].MinDuration != 100 {
		t.Errorf("Expected min duration 100, got %d", stats[0].MinDuration)
	}
	if stats[0].MaxDuration != 190 {
		t.Errorf("Expected max duration 190, got %d", stats[0].MaxDuration)
	}
	if stats[0].P50Duration < 140 || stats[0].P50Duration > 150 {
		t.Errorf("Expected P50 around 145, got %d", stats[0].P50Duration)
	}
}

func TestGetStatsEmpty(t *testing.T) {
	pm := NewPerformanceMonitor(100)

	if stats := pm.GetStats(); len(stats) != 0 {
		t.Errorf("Expected no stats for an empty monitor, got %d", len(stats))
	}
}

func TestPerformanceMiddleware(t *testing.T) {
	pm := NewPerformanceMonitor(100)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(10 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			t.Fatalf("Failed to write response: %v", err)
		}
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/server", nil)
	rec := httptest.NewRecorder()

	pm.Middleware(handler).ServeHTTP(rec, req)

	if len(pm.metrics) != 1 {
		t.Fatalf("Expected 1 metric to be recorded, got %d", len(pm.metrics))
	}

	metric := pm.metrics[0]
	if metric.Path != "/api/v1/server" {
		t.Errorf("Expected path /api/v1/server, got %s", metric.Path)
	}
	if metric.Method != "GET" {
		t.Errorf("Expected method GET, got %s", metric.Method)
	}
	if metric.StatusCode != 200 {
		t.Errorf("Expected status code 200, got %d", metric.StatusCode)
	}
	if metric.DurationMS < 10 {
		t.Errorf("Expected duration >= 10ms, got %dms", metric.DurationMS)
	}
}

func TestPerformanceMiddlewareCapturesStatusCode(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
	}{
		{"OK", http.StatusOK},
		{"Created", http.StatusCreated},
		{"Conflict", http.StatusConflict},
		{"NotFound", http.StatusNotFound},
		{"BadGateway", http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pm := NewPerformanceMonitor(100)

			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/streams", nil)
			rec := httptest.NewRecorder()

			pm.Middleware(handler).ServeHTTP(rec, req)

			if len(pm.metrics) != 1 {
				t.Fatalf("Expected 1 metric, got %d", len(pm.metrics))
			}
			if pm.metrics[0].StatusCode != tt.statusCode {
				t.Errorf("Expected status code %d, got %d", tt.statusCode, pm.metrics[0].StatusCode)
			}
		})
	}
}

func TestPerformanceMiddlewareUsesRoutePattern(t *testing.T) {
	pm := NewPerformanceMonitor(100)

	r := chi.NewRouter()
	r.Use(pm.Middleware)
	r.Post("/api/v1/streams/{id}/start", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, id := range []string{"studio", "lobby", "stage"} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/streams/"+id+"/start", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
	}

	stats := pm.GetStats()
	if len(stats) != 1 {
		t.Fatalf("Expected one aggregated endpoint, got %d", len(stats))
	}
	if stats[0].Path != "POST /api/v1/streams/{id}/start" {
		t.Errorf("Expected route pattern key, got %s", stats[0].Path)
	}
	if stats[0].RequestCount != 3 {
		t.Errorf("Expected 3 requests under one pattern, got %d", stats[0].RequestCount)
	}
}

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		data   []int64
		p      float64
		expect int64
	}{
		{
			name:   "P50 of odd number of elements",
			data:   []int64{10, 20, 30, 40, 50},
			p:      0.50,
			expect: 30,
		},
		{
			name:   "P95 of dataset",
			data:   []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
			p:      0.95,
			expect: 9,
		},
		{
			name:   "P99 of dataset",
			data:   []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
			p:      0.99,
			expect: 9,
		},
		{
			name:   "P0 minimum",
			data:   []int64{10, 20, 30, 40, 50},
			p:      0.0,
			expect: 10,
		},
		{
			name:   "P100 maximum",
			data:   []int64{10, 20, 30, 40, 50},
			p:      1.0,
			expect: 50,
		},
		{
			name:   "single element",
			data:   []int64{42},
			p:      0.5,
			expect: 42,
		},
		{
			name:   "empty slice",
			data:   []int64{},
			p:      0.5,
			expect: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := percentile(tt.data, tt.p); got != tt.expect {
				t.Errorf("Expected %d, got %d", tt.expect, got)
			}
		})
	}
}

func TestPerformanceMonitorConcurrentAccess(t *testing.T) {
	pm := NewPerformanceMonitor(1000)

	done := make(chan bool)

	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				pm.RecordRequest(&RequestMetrics{
					Path:       "/api/v1/streams",
					Method:     "GET",
					DurationMS: int64(j),
					StatusCode: 200,
					Timestamp:  time.Now(),
				})
			}
			done <- true
		}()
	}

	for i := 0; i < 5; i++ {
		go func() {
			for j := 0; j < 50; j++ {
				pm.GetStats()
			}
			done <- true
		}()
	}

	for i := 0; i < 15; i++ {
		<-done
	}

	if stats := pm.GetStats(); len(stats) == 0 {
		t.Error("Expected stats to be recorded")
	}
}

func BenchmarkRecordRequest(b *testing.B) {
	pm := NewPerformanceMonitor(10000)

	metric := RequestMetrics{
		Path:       "/api/v1/streams",
		Method:     "GET",
		DurationMS: 50,
		StatusCode: 200,
		Timestamp:  time.Now(),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pm.RecordRequest(&metric)
	}
}

func BenchmarkGetStats(b *testing.B) {
	pm := NewPerformanceMonitor(10000)

	for i := 0; i < 1000; i++ {
		pm.RecordRequest(&RequestMetrics{
			Path:       "/api/v1/streams",
			Method:     "GET",
			DurationMS: int64(i),
			StatusCode: 200,
			Timestamp:  time.Now(),
		})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pm.GetStats()
	}
}
