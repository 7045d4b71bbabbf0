// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package config

import (
	"time"

	"github.com/tomtom215/emissor/internal/models"
)

// Config is the root application configuration, assembled from three layers:
// built-in defaults, an optional YAML file, and environment variables, with
// environment variables taking the highest precedence.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Icecast IcecastConfig `koanf:"icecast"`
	Encoder EncoderConfig `koanf:"encoder"`
	Probe   ProbeConfig   `koanf:"probe"`
	Events  EventsConfig  `koanf:"events"`
	Journal JournalConfig `koanf:"journal"`
	Logging LoggingConfig `koanf:"logging"`

	// Streams preloads stream definitions at boot. The file is read-only;
	// definitions added over the API live in memory only.
	Streams []models.StreamConfig `koanf:"streams"`
}

// ServerConfig configures the HTTP control plane.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// IcecastConfig configures the streaming server lifecycle manager.
type IcecastConfig struct {
	// BinaryPath and ConfigPath override installation detection when set.
	// Leave empty to let detection walk the platform candidate paths.
	BinaryPath string `koanf:"binary_path"`
	ConfigPath string `koanf:"config_path"`

	// ExtraSearchPaths are additional installation roots searched before
	// the built-in platform candidates.
	ExtraSearchPaths []string `koanf:"extra_search_paths"`

	// ProcessNames are the executable names used for liveness checks and
	// best-effort termination of untracked server processes, in order.
	ProcessNames []string `koanf:"process_names"`

	// Host and Port locate the server for encoder connections. Port 0
	// defers to the value parsed from the server configuration file.
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// SourcePassword overrides the credential parsed from the server
	// configuration file. Needed when the config file is unreadable.
	SourcePassword string `koanf:"source_password"`

	StartupWindow    time.Duration `koanf:"startup_window"`
	ShutdownGrace    time.Duration `koanf:"shutdown_grace"`
	WatchdogInterval time.Duration `koanf:"watchdog_interval"`

	// WatchConfig revalidates the server configuration file whenever it
	// changes on disk.
	WatchConfig bool `koanf:"watch_config"`
}

// EncoderConfig configures encoder process handling for all streams.
type EncoderConfig struct {
	// BinaryPath is the encoder executable, resolved via PATH when bare.
	BinaryPath string `koanf:"binary_path"`

	// StartupWindow is how long a fresh encoder must stay alive before an
	// attempt counts as successful.
	StartupWindow time.Duration `koanf:"startup_window"`

	// StopGrace is the window between the polite termination request and
	// the forceful kill.
	StopGrace time.Duration `koanf:"stop_grace"`

	// RestartSettle is the pause between stop and start during a restart,
	// giving the OS time to release the capture device.
	RestartSettle time.Duration `koanf:"restart_settle"`

	// OutputTailLines bounds the retained process output used for failure
	// diagnosis.
	OutputTailLines int `koanf:"output_tail_lines"`
}

// ProbeConfig configures audio device discovery.
type ProbeConfig struct {
	Timeout time.Duration `koanf:"timeout"`

	// MinInterval rate-limits real enumerations; requests arriving sooner
	// get the cached inventory.
	MinInterval time.Duration `koanf:"min_interval"`

	// ListCommand overrides the platform enumeration command entirely
	// (argv, first element is the binary). Empty selects the platform
	// default.
	ListCommand []string `koanf:"list_command"`

	// BreakerMaxFailures consecutive command failures trip the circuit
	// breaker; BreakerOpenFor is how long it stays open.
	BreakerMaxFailures uint32        `koanf:"breaker_max_failures"`
	BreakerOpenFor     time.Duration `koanf:"breaker_open_for"`
}

// EventsConfig configures the in-process status event bus.
type EventsConfig struct {
	// BufferSize is the per-subscriber channel depth, absorbing bursts
	// while consumers catch up.
	BufferSize   int           `koanf:"buffer_size"`
	CloseTimeout time.Duration `koanf:"close_timeout"`
}

// JournalConfig configures the event journal backing the status pull API.
type JournalConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`

	// InMemory keeps the journal off disk. Used by tests and ephemeral
	// deployments.
	InMemory bool `koanf:"in_memory"`

	// TTL expires journal entries; GCInterval paces value-log garbage
	// collection.
	TTL        time.Duration `koanf:"ttl"`
	GCInterval time.Duration `koanf:"gc_interval"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
