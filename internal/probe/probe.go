// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

// Package probe enumerates audio capture devices through the platform
// listing tool (arecord on Linux, ffmpeg's avfoundation lister on macOS,
// ffmpeg's dshow lister on Windows).
//
// Enumeration shells out, so two guards sit in front of the command: a
// rate limiter that serves the cached inventory when probes arrive faster
// than the configured minimum interval, and a circuit breaker that stops
// hammering a broken tool after repeated failures. The limiter covers the
// happy path, the breaker covers the failing one.
//
// An empty device list is a valid result, not an error. A machine with no
// capture hardware probes successfully and reports zero devices.
package probe

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/emissor/internal/config"
	"github.com/tomtom215/emissor/internal/logging"
	"github.com/tomtom215/emissor/internal/metrics"
	"github.com/tomtom215/emissor/internal/models"
)

// breakerName labels the probe circuit breaker in logs and metrics.
const breakerName = "device-probe"

// Prober discovers capture devices and caches the most recent inventory.
// All methods are safe for concurrent use; real enumerations are
// serialized so concurrent callers never race two listing commands.
type Prober struct {
	cfg     config.ProbeConfig
	goos    string
	cb      *gobreaker.CircuitBreaker[[]models.AudioDevice]
	limiter *rate.Limiter

	mu       sync.Mutex
	cached   models.DeviceInventory
	hasCache bool
}

// NewProber creates a Prober for the current platform.
func NewProber(cfg config.ProbeConfig) *Prober {
	return newProber(cfg, runtime.GOOS)
}

// newProber is separated from NewProber so tests can pin the platform.
func newProber(cfg config.ProbeConfig, goos string) *Prober {
	metrics.SetCircuitBreakerState(breakerName, 0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[[]models.AudioDevice](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenFor,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			shouldTrip := counts.ConsecutiveFailures >= cfg.BreakerMaxFailures
			if shouldTrip {
				logging.Warn().
					Uint32("consecutive_failures", counts.ConsecutiveFailures).
					Msg("[CIRCUIT BREAKER] Opening device probe circuit")
			}
			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)
			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")
			metrics.SetCircuitBreakerState(name, stateToFloat(to))
			metrics.RecordCircuitBreakerTransition(name, fromStr, toStr)
		},
	})

	return &Prober{
		cfg:     cfg,
		goos:    goos,
		cb:      cb,
		limiter: rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
	}
}

// Devices returns the capture device inventory. Requests arriving inside
// the minimum probe interval receive the cached inventory with FromCache
// set; force bypasses the interval but not the circuit breaker, so even a
// forced refresh fails fast while the breaker is open.
func (p *Prober) Devices(ctx context.Context, force bool) (models.DeviceInventory, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !force && !p.limiter.Allow() && p.hasCache {
		inv := p.cached
		inv.FromCache = true
		return inv, nil
	}

	start := time.Now()
	devices, err := p.cb.Execute(func() ([]models.AudioDevice, error) {
		return p.enumerate(ctx)
	})
	metrics.RecordProbe(time.Since(start), len(devices), err)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Device probe rejected")
		} else {
			logging.Error().Err(err).Msg("Device probe failed")
		}
		if p.hasCache {
			// Stale data beats no data; the error still surfaces so the
			// caller knows the refresh did not happen.
			inv := p.cached
			inv.FromCache = true
			return inv, err
		}
		return models.DeviceInventory{}, err
	}

	p.cached = models.DeviceInventory{
		Devices:  devices,
		ProbedAt: time.Now().UTC(),
	}
	p.hasCache = true

	logging.Debug().Int("devices", len(devices)).Msg("Device probe completed")
	return p.cached, nil
}

// IsAvailable reports whether the device is present and available in the
// current inventory. The error is non-nil only when no inventory could be
// obtained at all; callers treating the probe as advisory may proceed on
// error and let the encoder produce the authoritative failure.
func (p *Prober) IsAvailable(ctx context.Context, deviceID string) (bool, error) {
	inv, err := p.Devices(ctx, false)
	if err != nil && len(inv.Devices) == 0 && !inv.FromCache {
		return false, err
	}
	d, ok := inv.Find(deviceID)
	return ok && d.Available, nil
}

// enumerate runs the listing command and parses its output. The command
// is trusted to write the listing to either stream; ffmpeg prints device
// lists to stderr and then exits nonzero, so the exit code alone proves
// nothing. Output that contains a recognizable listing section wins over
// any command error.
func (p *Prober) enumerate(ctx context.Context) ([]models.AudioDevice, error) {
	argv := p.cfg.ListCommand
	if len(argv) == 0 {
		argv = defaultListCommand(p.goos)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("probe: no device listing command for %s", p.goos)
	}

	cctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	out, cmdErr := exec.CommandContext(cctx, argv[0], argv[1:]...).CombinedOutput()

	devices, recognized := parseDeviceList(string(out), p.goos)
	if recognized {
		return devices, nil
	}
	if cctx.Err() != nil {
		return nil, fmt.Errorf("probe: %s timed out after %s: %w", argv[0], p.cfg.Timeout, cctx.Err())
	}
	if cmdErr != nil {
		return nil, fmt.Errorf("probe: %s: %w", argv[0], cmdErr)
	}
	return devices, nil
}

// defaultListCommand returns the enumeration argv for the platform.
func defaultListCommand(goos string) []string {
	switch goos {
	case "darwin":
		return []string{"ffmpeg", "-hide_banner", "-f", "avfoundation", "-list_devices", "true", "-i", ""}
	case "windows":
		return []string{"ffmpeg", "-hide_banner", "-list_devices", "true", "-f", "dshow", "-i", "dummy"}
	default:
		return []string{"arecord", "-l"}
	}
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to string for logging
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
