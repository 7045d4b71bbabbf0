// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package models

import "time"

// ServerState is a snapshot of the managed Icecast installation and process.
//
// Only the server lifecycle manager mutates the underlying record; everything
// handed out is a copy. PID is 0 whenever no process is tracked, and is
// cleared the moment the process is confirmed gone, whether by an observed
// exit or a failed liveness check.
type ServerState struct {
	// Detection results. InstallPath is empty until an installation has
	// been found; the remaining paths are only meaningful when it is set.
	// LauncherPath is what gets spawned; on Windows it is the wrapper
	// script shipped beside the server executable, elsewhere it equals
	// BinaryPath.
	InstallPath  string `json:"install_path,omitempty"`
	BinaryPath   string `json:"binary_path,omitempty"`
	LauncherPath string `json:"launcher_path,omitempty"`
	ConfigPath   string `json:"config_path,omitempty"`
	LogDir       string `json:"log_dir,omitempty"`

	Running bool `json:"running"`
	PID     int  `json:"pid,omitempty"`

	// Port is the listen port parsed from the server configuration file,
	// 0 when unknown.
	Port int `json:"port,omitempty"`

	// ConfigValid reflects the most recent configuration validation.
	ConfigValid  bool     `json:"config_valid"`
	ConfigErrors []string `json:"config_errors,omitempty"`

	LastDiagnosis *Diagnosis `json:"last_diagnosis,omitempty"`
	CheckedAt     time.Time  `json:"checked_at"`
}

// Detected reports whether an installation has been located.
func (s ServerState) Detected() bool {
	return s.InstallPath != ""
}
