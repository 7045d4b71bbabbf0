// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/emissor/config.yaml",
	"/etc/emissor/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config
// file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all built-in defaults. These are
// applied first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8474,
			Timeout:           30 * time.Second,
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     100,
			RateLimitWindow:   1 * time.Minute,
			RateLimitDisabled: false,
		},
		Icecast: IcecastConfig{
			BinaryPath:       "",
			ConfigPath:       "",
			ExtraSearchPaths: []string{},
			ProcessNames:     []string{"icecast2", "icecast"},
			Host:             "127.0.0.1",
			Port:             0, // 0 = take the port from the server config file
			SourcePassword:   "",
			StartupWindow:    5 * time.Second,
			ShutdownGrace:    10 * time.Second,
			WatchdogInterval: 15 * time.Second,
			WatchConfig:      true,
		},
		Encoder: EncoderConfig{
			BinaryPath:      "ffmpeg",
			StartupWindow:   3 * time.Second,
			StopGrace:       5 * time.Second,
			RestartSettle:   750 * time.Millisecond,
			OutputTailLines: 100,
		},
		Probe: ProbeConfig{
			Timeout:            5 * time.Second,
			MinInterval:        2 * time.Second,
			ListCommand:        nil,
			BreakerMaxFailures: 5,
			BreakerOpenFor:     30 * time.Second,
		},
		Events: EventsConfig{
			BufferSize:   256,
			CloseTimeout: 10 * time.Second,
		},
		Journal: JournalConfig{
			Enabled:    true,
			Path:       "/data/emissor/journal",
			InMemory:   false,
			TTL:        72 * time.Hour,
			GCInterval: 10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Streams: nil,
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config File: optional YAML config file (if one exists)
//  3. Environment Variables: override any setting
//
// Precedence is strictly ENV > File > Defaults.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority).
	// ICECAST_HOST -> icecast.host, ENCODER_STARTUP_WINDOW -> encoder.startup_window
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file, env override first, then the
// default paths. Returns empty string when none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths are parsed as comma-separated
// slices when they arrive from the environment as plain strings.
var sliceConfigPaths = []string{
	"server.cors_origins",
	"icecast.extra_search_paths",
	"icecast.process_names",
	"probe.list_command",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields. Env vars come in as strings; the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML): nothing to do.
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped variables return empty string and are skipped, so stray
// environment noise never pollutes the configuration.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// HTTP control plane
		"http_host":           "server.host",
		"http_port":           "server.port",
		"http_timeout":        "server.timeout",
		"cors_origins":        "server.cors_origins",
		"rate_limit_requests": "server.rate_limit_reqs",
		"rate_limit_window":   "server.rate_limit_window",
		"disable_rate_limit":  "server.rate_limit_disabled",

		// Icecast lifecycle
		"icecast_binary":            "icecast.binary_path",
		"icecast_config":            "icecast.config_path",
		"icecast_search_paths":      "icecast.extra_search_paths",
		"icecast_process_names":     "icecast.process_names",
		"icecast_host":              "icecast.host",
		"icecast_port":              "icecast.port",
		"icecast_source_password":   "icecast.source_password",
		"icecast_startup_window":    "icecast.startup_window",
		"icecast_shutdown_grace":    "icecast.shutdown_grace",
		"icecast_watchdog_interval": "icecast.watchdog_interval",
		"icecast_watch_config":      "icecast.watch_config",

		// Encoder handling
		"encoder_binary":         "encoder.binary_path",
		"encoder_startup_window": "encoder.startup_window",
		"encoder_stop_grace":     "encoder.stop_grace",
		"encoder_restart_settle": "encoder.restart_settle",
		"encoder_output_tail":    "encoder.output_tail_lines",

		// Device probe
		"probe_timeout":              "probe.timeout",
		"probe_min_interval":         "probe.min_interval",
		"probe_list_command":         "probe.list_command",
		"probe_breaker_max_failures": "probe.breaker_max_failures",
		"probe_breaker_open_for":     "probe.breaker_open_for",

		// Event bus
		"events_buffer_size":   "events.buffer_size",
		"events_close_timeout": "events.close_timeout",

		// Journal
		"journal_enabled":     "journal.enabled",
		"journal_path":        "journal.path",
		"journal_in_memory":   "journal.in_memory",
		"journal_ttl":         "journal.ttl",
		"journal_gc_interval": "journal.gc_interval",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	return ""
}

// WatchConfigFile invokes callback whenever the file at path changes.
// The caller is responsible for mutex protection when swapping configuration
// during reloads.
func WatchConfigFile(path string, callback func()) error {
	provider := file.Provider(path)
	return provider.Watch(func(_ interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
