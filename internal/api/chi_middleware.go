// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/emissor/internal/config"
)

// ChiMiddlewareConfig controls the CORS and rate limiting middleware
// produced by ChiMiddleware.
type ChiMiddlewareConfig struct {
	// CORSOrigins lists allowed Origin values. "*" allows any origin.
	CORSOrigins []string

	// RateLimitRequests and RateLimitWindow bound read endpoints.
	// Write, health, and WebSocket endpoints use the preset configs
	// below instead.
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// RateLimitDisabled turns every limiter into a pass-through.
	// Useful for test rigs and single-operator deployments.
	RateLimitDisabled bool

	// RateLimitKeyFunc overrides the per-client key. Defaults to the
	// remote IP, which assumes RealIP middleware runs first.
	RateLimitKeyFunc httprate.KeyFunc

	// RateLimitOnLimit overrides the 429 response. Defaults to the
	// standard error envelope.
	RateLimitOnLimit http.HandlerFunc
}

// DefaultChiMiddlewareConfig returns permissive defaults suitable for
// a LAN-only deployment.
func DefaultChiMiddlewareConfig() ChiMiddlewareConfig {
	return ChiMiddlewareConfig{
		CORSOrigins:       []string{"*"},
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
	}
}

// RateLimitConfig is a requests-per-window pair for a limiter preset.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

var (
	// RateLimitWrite bounds mutating endpoints. Stream starts spawn
	// encoder processes, so the ceiling stays low.
	RateLimitWrite = RateLimitConfig{Requests: 30, Window: time.Minute}

	// RateLimitHealth is near-unmetered so orchestrators and uptime
	// monitors can poll aggressively.
	RateLimitHealth = RateLimitConfig{Requests: 1000, Window: time.Minute}

	// RateLimitWebSocket bounds upgrade attempts per client.
	RateLimitWebSocket = RateLimitConfig{Requests: 30, Window: time.Minute}
)

// ChiMiddleware builds chi-compatible middleware from a single config.
type ChiMiddleware struct {
	config ChiMiddlewareConfig
}

// NewChiMiddleware creates a middleware factory with the given config.
func NewChiMiddleware(cfg ChiMiddlewareConfig) *ChiMiddleware {
	return &ChiMiddleware{config: cfg}
}

// NewChiMiddlewareFromConfig creates a middleware factory from the
// application server config.
func NewChiMiddlewareFromConfig(cfg *config.Config) *ChiMiddleware {
	mc := DefaultChiMiddlewareConfig()
	if cfg != nil {
		if len(cfg.Server.CORSOrigins) > 0 {
			mc.CORSOrigins = cfg.Server.CORSOrigins
		}
		if cfg.Server.RateLimitReqs > 0 {
			mc.RateLimitRequests = cfg.Server.RateLimitReqs
		}
		if cfg.Server.RateLimitWindow > 0 {
			mc.RateLimitWindow = cfg.Server.RateLimitWindow
		}
		mc.RateLimitDisabled = cfg.Server.RateLimitDisabled
	}
	return NewChiMiddleware(mc)
}

// CORS returns the CORS middleware for the configured origins.
func (cm *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   cm.config.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}

// RateLimit returns the general limiter used by read endpoints.
func (cm *ChiMiddleware) RateLimit() func(http.Handler) http.Handler {
	return cm.RateLimitCustom(RateLimitConfig{
		Requests: cm.config.RateLimitRequests,
		Window:   cm.config.RateLimitWindow,
	})
}

// RateLimitCustom returns a limiter for the given preset. When rate
// limiting is disabled the returned middleware passes requests through
// untouched.
func (cm *ChiMiddleware) RateLimitCustom(rc RateLimitConfig) func(http.Handler) http.Handler {
	if cm.config.RateLimitDisabled || rc.Requests <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	return httprate.Limit(rc.Requests, rc.Window, cm.rateLimitOptions()...)
}

func (cm *ChiMiddleware) rateLimitOptions() []httprate.Option {
	keyFunc := cm.config.RateLimitKeyFunc
	if keyFunc == nil {
		keyFunc = httprate.KeyByIP
	}

	onLimit := cm.config.RateLimitOnLimit
	if onLimit == nil {
		onLimit = rateLimitExceeded
	}

	return []httprate.Option{
		httprate.WithKeyFuncs(keyFunc),
		httprate.WithLimitHandler(onLimit),
	}
}

func rateLimitExceeded(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, http.StatusTooManyRequests, ErrCodeTooManyRequests,
		"Rate limit exceeded, retry later")
}

// APISecurityHeaders sets browser hardening headers on API responses.
func APISecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if r.TLS != nil {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}
