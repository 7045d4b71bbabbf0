// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/emissor/internal/config"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestDefaultChiMiddlewareConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultChiMiddlewareConfig()

	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Errorf("CORSOrigins = %v, want [*]", cfg.CORSOrigins)
	}
	if cfg.RateLimitRequests != 100 {
		t.Errorf("RateLimitRequests = %d, want 100", cfg.RateLimitRequests)
	}
	if cfg.RateLimitWindow != time.Minute {
		t.Errorf("RateLimitWindow = %v, want 1m", cfg.RateLimitWindow)
	}
	if cfg.RateLimitDisabled {
		t.Error("rate limiting must default to enabled")
	}
}

func TestNewChiMiddlewareFromConfig(t *testing.T) {
	t.Parallel()

	t.Run("maps server config", func(t *testing.T) {
		appCfg := &config.Config{}
		appCfg.Server.CORSOrigins = []string{"http://localhost:8474"}
		appCfg.Server.RateLimitReqs = 42
		appCfg.Server.RateLimitWindow = 30 * time.Second
		appCfg.Server.RateLimitDisabled = true

		cm := NewChiMiddlewareFromConfig(appCfg)

		if cm.config.CORSOrigins[0] != "http://localhost:8474" {
			t.Errorf("CORSOrigins = %v", cm.config.CORSOrigins)
		}
		if cm.config.RateLimitRequests != 42 {
			t.Errorf("RateLimitRequests = %d, want 42", cm.config.RateLimitRequests)
		}
		if cm.config.RateLimitWindow != 30*time.Second {
			t.Errorf("RateLimitWindow = %v, want 30s", cm.config.RateLimitWindow)
		}
		if !cm.config.RateLimitDisabled {
			t.Error("RateLimitDisabled not carried over")
		}
	})

	t.Run("nil config uses defaults", func(t *testing.T) {
		cm := NewChiMiddlewareFromConfig(nil)

		if cm.config.RateLimitRequests != 100 {
			t.Errorf("RateLimitRequests = %d, want default 100", cm.config.RateLimitRequests)
		}
	})

	t.Run("zero values keep defaults", func(t *testing.T) {
		cm := NewChiMiddlewareFromConfig(&config.Config{})

		if len(cm.config.CORSOrigins) == 0 {
			t.Error("expected default CORS origins")
		}
		if cm.config.RateLimitRequests != 100 || cm.config.RateLimitWindow != time.Minute {
			t.Errorf("limits = %d/%v, want defaults", cm.config.RateLimitRequests, cm.config.RateLimitWindow)
		}
	})
}

func TestRateLimitEnforced(t *testing.T) {
	t.Parallel()

	cm := NewChiMiddleware(ChiMiddlewareConfig{
		CORSOrigins: []string{"*"},
	})

	limited := cm.RateLimitCustom(RateLimitConfig{Requests: 2, Window: time.Minute})(okHandler())

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/streams", nil))
		statuses = append(statuses, rec.Code)
	}

	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK {
		t.Errorf("first two requests = %v, want 200s", statuses[:2])
	}
	if statuses[2] != http.StatusTooManyRequests {
		t.Fatalf("third request = %d, want 429", statuses[2])
	}
}

func TestRateLimitExceededEnvelope(t *testing.T) {
	t.Parallel()

	cm := NewChiMiddleware(ChiMiddlewareConfig{CORSOrigins: []string{"*"}})
	limited := cm.RateLimitCustom(RateLimitConfig{Requests: 1, Window: time.Minute})(okHandler())

	first := httptest.NewRecorder()
	limited.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/v1/streams", nil))

	second := httptest.NewRecorder()
	limited.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/v1/streams", nil))

	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", second.Code)
	}

	var resp APIResponse
	if err := json.Unmarshal(second.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal 429 body: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != ErrCodeTooManyRequests {
		t.Errorf("error = %+v, want %s", resp.Error, ErrCodeTooManyRequests)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	t.Parallel()

	cm := NewChiMiddleware(ChiMiddlewareConfig{
		CORSOrigins:       []string{"*"},
		RateLimitDisabled: true,
	})

	limited := cm.RateLimitCustom(RateLimitConfig{Requests: 1, Window: time.Minute})(okHandler())

	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/streams", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d = %d, want 200 with limiting disabled", i, rec.Code)
		}
	}
}

func TestRateLimitNonPositiveRequests(t *testing.T) {
	t.Parallel()

	cm := NewChiMiddleware(ChiMiddlewareConfig{CORSOrigins: []string{"*"}})
	limited := cm.RateLimitCustom(RateLimitConfig{Requests: 0, Window: time.Minute})(okHandler())

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/streams", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d = %d, want pass-through for zero limit", i, rec.Code)
		}
	}
}

func TestRateLimitOnLimitOverride(t *testing.T) {
	t.Parallel()

	invoked := false
	cm := NewChiMiddleware(ChiMiddlewareConfig{
		CORSOrigins: []string{"*"},
		RateLimitOnLimit: func(w http.ResponseWriter, r *http.Request) {
			invoked = true
			w.WriteHeader(http.StatusServiceUnavailable)
		},
	})

	limited := cm.RateLimitCustom(RateLimitConfig{Requests: 1, Window: time.Minute})(okHandler())

	limited.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	rec := httptest.NewRecorder()
	limited.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	if !invoked {
		t.Fatal("custom limit handler was not invoked")
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want the override's 503", rec.Code)
	}
}

func TestRateLimitPresets(t *testing.T) {
	t.Parallel()

	if RateLimitWrite.Requests != 30 || RateLimitWrite.Window != time.Minute {
		t.Errorf("RateLimitWrite = %+v, want 30/min", RateLimitWrite)
	}
	if RateLimitHealth.Requests != 1000 || RateLimitHealth.Window != time.Minute {
		t.Errorf("RateLimitHealth = %+v, want 1000/min", RateLimitHealth)
	}
	if RateLimitWebSocket.Requests != 30 || RateLimitWebSocket.Window != time.Minute {
		t.Errorf("RateLimitWebSocket = %+v, want 30/min", RateLimitWebSocket)
	}
}

func TestAPISecurityHeaders(t *testing.T) {
	t.Parallel()

	t.Run("plain HTTP", func(t *testing.T) {
		rec := httptest.NewRecorder()
		APISecurityHeaders(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/streams", nil))

		if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
			t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
		}
		if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
			t.Errorf("X-Frame-Options = %q, want DENY", got)
		}
		if got := rec.Header().Get("Referrer-Policy"); got != "strict-origin-when-cross-origin" {
			t.Errorf("Referrer-Policy = %q", got)
		}
		if got := rec.Header().Get("Strict-Transport-Security"); got != "" {
			t.Errorf("HSTS set on plain HTTP: %q", got)
		}
	})

	t.Run("TLS adds HSTS", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "https://emissor.local/api/v1/streams", nil)
		APISecurityHeaders(okHandler()).ServeHTTP(rec, req)

		if got := rec.Header().Get("Strict-Transport-Security"); got == "" {
			t.Error("expected HSTS header on TLS request")
		}
	})
}

func TestCORSMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("preflight allowed", func(t *testing.T) {
		cm := NewChiMiddleware(ChiMiddlewareConfig{CORSOrigins: []string{"*"}})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/streams", nil)
		req.Header.Set("Origin", "http://dashboard.local")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)

		cm.CORS()(okHandler()).ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got == "" {
			t.Error("expected Access-Control-Allow-Origin on preflight")
		}
	})

	t.Run("disallowed origin gets no CORS headers", func(t *testing.T) {
		cm := NewChiMiddleware(ChiMiddlewareConfig{CORSOrigins: []string{"http://localhost:8474"}})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/streams", nil)
		req.Header.Set("Origin", "http://evil.example")

		cm.CORS()(okHandler()).ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Access-Control-Allow-Origin = %q for disallowed origin", got)
		}
	})
}
