// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package models

import "time"

// DiagnosisCategory is the closed failure taxonomy. Every process or
// pre-flight failure maps to exactly one category; new symptoms extend the
// matcher table in internal/diagnose, never this enum ad hoc.
type DiagnosisCategory string

const (
	// CategoryConnection covers streaming server unreachable conditions,
	// including processes that died without reporting any error at all.
	CategoryConnection DiagnosisCategory = "connection"

	// CategoryPortConflict covers listen or connect ports already bound by
	// another process.
	CategoryPortConflict DiagnosisCategory = "port_conflict"

	// CategoryAuthentication covers rejected source credentials.
	CategoryAuthentication DiagnosisCategory = "authentication"

	// CategoryMountPoint covers mount collisions and source-limit refusals.
	CategoryMountPoint DiagnosisCategory = "mount_point"

	// CategoryDeviceNotFound covers capture devices absent from the system.
	CategoryDeviceNotFound DiagnosisCategory = "device_not_found"

	// CategoryDeviceBusy covers capture devices exclusively held elsewhere,
	// including reservations by another Emissor stream.
	CategoryDeviceBusy DiagnosisCategory = "device_busy"

	// CategoryVirtualAudioDevice covers misbehaving loopback/virtual cable
	// drivers.
	CategoryVirtualAudioDevice DiagnosisCategory = "virtual_audio_device"

	// CategoryOSAudioSubsystem covers failures of the platform audio layer
	// itself (ALSA/PulseAudio/JACK/CoreAudio/WASAPI).
	CategoryOSAudioSubsystem DiagnosisCategory = "os_audio_subsystem"

	// CategoryCodecUnavailable covers encoders missing from the encoder
	// binary build.
	CategoryCodecUnavailable DiagnosisCategory = "codec_unavailable"

	// CategoryFormatUnsupported covers parameter combinations the device or
	// codec rejects (sample rate, channel layout, bitrate).
	CategoryFormatUnsupported DiagnosisCategory = "format_unsupported"

	// CategoryResourceExhaustion covers memory/file-descriptor starvation,
	// including kills by the OS memory reaper.
	CategoryResourceExhaustion DiagnosisCategory = "resource_exhaustion"

	// CategoryTimeout covers operations that exceeded their bounded window.
	CategoryTimeout DiagnosisCategory = "timeout"

	// CategoryProcessCrash covers abnormal process deaths (signals, loader
	// failures, missing binaries).
	CategoryProcessCrash DiagnosisCategory = "process_crash"

	// CategoryUnknown is the fallback for unrecognized error text. The raw
	// evidence is preserved in the Technical field.
	CategoryUnknown DiagnosisCategory = "unknown"
)

// Valid reports whether c is a member of the closed taxonomy.
func (c DiagnosisCategory) Valid() bool {
	switch c {
	case CategoryConnection, CategoryPortConflict, CategoryAuthentication,
		CategoryMountPoint, CategoryDeviceNotFound, CategoryDeviceBusy,
		CategoryVirtualAudioDevice, CategoryOSAudioSubsystem,
		CategoryCodecUnavailable, CategoryFormatUnsupported,
		CategoryResourceExhaustion, CategoryTimeout, CategoryProcessCrash,
		CategoryUnknown:
		return true
	}
	return false
}

// DiagnosisSeverity grades how urgently a diagnosis needs operator attention.
type DiagnosisSeverity string

const (
	SeverityCritical DiagnosisSeverity = "critical"
	SeverityWarning  DiagnosisSeverity = "warning"
	SeverityInfo     DiagnosisSeverity = "info"
)

// Diagnosis is a structured, user-facing classification of a failure.
//
// Causes and Remedies are ordered most-likely-first and reference actual
// configured values (the real port number, the real device name) rather than
// placeholders. Technical preserves the raw evidence: exit code plus a
// truncated excerpt of the process output. A new failure replaces the
// previous diagnosis wholesale; diagnoses are never merged.
type Diagnosis struct {
	Category  DiagnosisCategory `json:"category"`
	Severity  DiagnosisSeverity `json:"severity"`
	Title     string            `json:"title"`
	Causes    []string          `json:"causes,omitempty"`
	Remedies  []string          `json:"remedies,omitempty"`
	Technical string            `json:"technical,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
