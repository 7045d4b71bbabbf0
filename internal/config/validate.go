// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package config

import (
	"fmt"
	"time"
)

// Validate checks that the loaded configuration is internally consistent.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateIcecast(); err != nil {
		return err
	}
	if err := c.validateEncoder(); err != nil {
		return err
	}
	if err := c.validateProbe(); err != nil {
		return err
	}
	if err := c.validateJournal(); err != nil {
		return err
	}
	return c.validateStreams()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout < time.Second {
		return fmt.Errorf("HTTP_TIMEOUT must be at least 1s, got %s", c.Server.Timeout)
	}
	if !c.Server.RateLimitDisabled {
		if c.Server.RateLimitReqs < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", c.Server.RateLimitReqs)
		}
		if c.Server.RateLimitWindow < time.Second {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1s, got %s", c.Server.RateLimitWindow)
		}
	}
	return nil
}

func (c *Config) validateIcecast() error {
	if len(c.Icecast.ProcessNames) == 0 {
		return fmt.Errorf("ICECAST_PROCESS_NAMES must name at least one executable")
	}
	if c.Icecast.Host == "" {
		return fmt.Errorf("ICECAST_HOST must not be empty")
	}
	if c.Icecast.Port < 0 || c.Icecast.Port > 65535 {
		return fmt.Errorf("ICECAST_PORT must be between 0 and 65535, got %d", c.Icecast.Port)
	}
	if c.Icecast.StartupWindow < time.Second {
		return fmt.Errorf("ICECAST_STARTUP_WINDOW must be at least 1s, got %s", c.Icecast.StartupWindow)
	}
	if c.Icecast.ShutdownGrace < time.Second {
		return fmt.Errorf("ICECAST_SHUTDOWN_GRACE must be at least 1s, got %s", c.Icecast.ShutdownGrace)
	}
	if c.Icecast.WatchdogInterval < time.Second {
		return fmt.Errorf("ICECAST_WATCHDOG_INTERVAL must be at least 1s, got %s", c.Icecast.WatchdogInterval)
	}
	return nil
}

func (c *Config) validateEncoder() error {
	if c.Encoder.BinaryPath == "" {
		return fmt.Errorf("ENCODER_BINARY must not be empty")
	}
	if c.Encoder.StartupWindow < 500*time.Millisecond {
		return fmt.Errorf("ENCODER_STARTUP_WINDOW must be at least 500ms, got %s", c.Encoder.StartupWindow)
	}
	if c.Encoder.StopGrace < time.Second {
		return fmt.Errorf("ENCODER_STOP_GRACE must be at least 1s, got %s", c.Encoder.StopGrace)
	}
	if c.Encoder.RestartSettle < 0 {
		return fmt.Errorf("ENCODER_RESTART_SETTLE must not be negative, got %s", c.Encoder.RestartSettle)
	}
	if c.Encoder.OutputTailLines < 10 {
		return fmt.Errorf("ENCODER_OUTPUT_TAIL must be at least 10 lines, got %d", c.Encoder.OutputTailLines)
	}
	return nil
}

func (c *Config) validateProbe() error {
	if c.Probe.Timeout < time.Second {
		return fmt.Errorf("PROBE_TIMEOUT must be at least 1s, got %s", c.Probe.Timeout)
	}
	if c.Probe.MinInterval < 0 {
		return fmt.Errorf("PROBE_MIN_INTERVAL must not be negative, got %s", c.Probe.MinInterval)
	}
	if c.Probe.BreakerMaxFailures == 0 {
		return fmt.Errorf("PROBE_BREAKER_MAX_FAILURES must be positive")
	}
	return nil
}

func (c *Config) validateJournal() error {
	if !c.Journal.Enabled {
		return nil
	}
	if !c.Journal.InMemory && c.Journal.Path == "" {
		return fmt.Errorf("JOURNAL_PATH is required when the journal is enabled on disk")
	}
	if c.Journal.TTL < time.Minute {
		return fmt.Errorf("JOURNAL_TTL must be at least 1m, got %s", c.Journal.TTL)
	}
	if c.Journal.GCInterval < time.Minute {
		return fmt.Errorf("JOURNAL_GC_INTERVAL must be at least 1m, got %s", c.Journal.GCInterval)
	}
	return nil
}

// validateStreams checks preloaded stream definitions for duplicate IDs and
// mounts. Field-level validation happens in the stream supervisor through
// the shared validator when definitions are registered.
func (c *Config) validateStreams() error {
	ids := make(map[string]struct{}, len(c.Streams))
	mounts := make(map[string]struct{}, len(c.Streams))
	for i, s := range c.Streams {
		if s.ID != "" {
			if _, dup := ids[s.ID]; dup {
				return fmt.Errorf("streams[%d]: duplicate stream id %q", i, s.ID)
			}
			ids[s.ID] = struct{}{}
		}
		mount := s.NormalizedMount()
		if mount != "" {
			if _, dup := mounts[mount]; dup {
				return fmt.Errorf("streams[%d]: duplicate mount %q", i, mount)
			}
			mounts[mount] = struct{}{}
		}
	}
	return nil
}
