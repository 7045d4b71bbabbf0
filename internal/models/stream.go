// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package models

import (
	"strings"
	"time"
)

// StreamState is the closed set of stream lifecycle states.
//
// Transitions are driven exclusively by the stream supervisor:
//
//	idle     -> starting            (Start)
//	starting -> running             (encoder survived the startup window)
//	starting -> failed              (all format candidates exhausted)
//	starting -> stopping            (Stop cancelled the fallback loop)
//	running  -> stopping            (Stop)
//	running  -> failed              (unsolicited encoder exit)
//	stopping -> stopped             (termination confirmed)
//	stopped  -> starting            (Start)
//	failed   -> starting            (Start or Restart)
//
// Idle and stopped are resting states. Failed is terminal until an explicit
// start; it must always carry a Diagnosis on the owning Stream.
type StreamState string

const (
	StreamIdle     StreamState = "idle"
	StreamStarting StreamState = "starting"
	StreamRunning  StreamState = "running"
	StreamStopping StreamState = "stopping"
	StreamStopped  StreamState = "stopped"
	StreamFailed   StreamState = "failed"
)

// Valid reports whether s is a member of the closed state set.
func (s StreamState) Valid() bool {
	switch s {
	case StreamIdle, StreamStarting, StreamRunning, StreamStopping, StreamStopped, StreamFailed:
		return true
	}
	return false
}

// Startable reports whether Start is legal from s.
func (s StreamState) Startable() bool {
	return s == StreamIdle || s == StreamStopped || s == StreamFailed
}

// Resting reports whether s is a resting state (no live process, no
// reservation, stop is a no-op).
func (s StreamState) Resting() bool {
	return s == StreamIdle || s == StreamStopped
}

// Live reports whether a live encoder process may exist in s.
func (s StreamState) Live() bool {
	return s == StreamStarting || s == StreamRunning || s == StreamStopping
}

// AudioFormat identifies a codec/container candidate for an encoder attempt.
type AudioFormat string

const (
	FormatMP3  AudioFormat = "mp3"
	FormatAAC  AudioFormat = "aac"
	FormatOGG  AudioFormat = "ogg"
	FormatOpus AudioFormat = "opus"
)

// Valid reports whether f is a supported format.
func (f AudioFormat) Valid() bool {
	switch f {
	case FormatMP3, FormatAAC, FormatOGG, FormatOpus:
		return true
	}
	return false
}

// ContentType returns the MIME type announced to the streaming server for f.
func (f AudioFormat) ContentType() string {
	switch f {
	case FormatMP3:
		return "audio/mpeg"
	case FormatAAC:
		return "audio/aac"
	case FormatOGG, FormatOpus:
		return "audio/ogg"
	}
	return "application/octet-stream"
}

// StreamConfig is the validated payload creating or replacing a stream
// definition. It arrives either from the configuration file at boot or from
// the control-plane API.
type StreamConfig struct {
	ID          string        `json:"id" koanf:"id" validate:"omitempty,max=64,excludesall= /"`
	Name        string        `json:"name" koanf:"name" validate:"required,min=1,max=128"`
	DeviceID    string        `json:"device_id" koanf:"device_id" validate:"required,max=255"`
	Formats     []AudioFormat `json:"formats" koanf:"formats" validate:"required,min=1,max=8,dive,oneof=mp3 aac ogg opus"`
	BitrateKbps int           `json:"bitrate_kbps" koanf:"bitrate_kbps" validate:"required,min=32,max=640"`
	SampleRate  int           `json:"sample_rate" koanf:"sample_rate" validate:"required,oneof=22050 32000 44100 48000 96000"`
	Channels    int           `json:"channels" koanf:"channels" validate:"required,min=1,max=2"`
	Mount       string        `json:"mount" koanf:"mount" validate:"required,startswith=/,max=255"`
}

// NormalizedMount returns the mount path without a trailing slash.
func (c StreamConfig) NormalizedMount() string {
	if c.Mount == "/" {
		return c.Mount
	}
	return strings.TrimRight(c.Mount, "/")
}

// Stream is a configured broadcast and its current lifecycle snapshot.
//
// The orchestrator-owned process handle is deliberately absent: it lives in
// the stream supervisor's registry and never leaves it. PID is a point-in-time
// observation for display only.
type Stream struct {
	// ID is opaque and immutable for the lifetime of the definition.
	ID       string `json:"id"`
	Name     string `json:"name"`
	DeviceID string `json:"device_id"`

	// Formats are candidate codec/container pairs in priority order. The
	// first entry that yields an encoder surviving the startup window wins.
	Formats     []AudioFormat `json:"formats"`
	BitrateKbps int           `json:"bitrate_kbps"`
	SampleRate  int           `json:"sample_rate"`
	Channels    int           `json:"channels"`
	Mount       string        `json:"mount"`

	State StreamState `json:"state"`

	// ActiveFormat is the candidate that produced the running encoder.
	// Empty unless State is running.
	ActiveFormat AudioFormat `json:"active_format,omitempty"`
	PID          int         `json:"pid,omitempty"`

	// LastDiagnosis is the most recent failure classification. Replaced
	// wholesale on each new failure, retained across stop for inspection.
	LastDiagnosis *Diagnosis `json:"last_diagnosis,omitempty"`

	CreatedAt      time.Time `json:"created_at"`
	StateChangedAt time.Time `json:"state_changed_at"`
}
