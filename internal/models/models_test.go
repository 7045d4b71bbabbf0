// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package models

import "testing"

func TestStreamStateValid(t *testing.T) {
	valid := []StreamState{
		StreamIdle, StreamStarting, StreamRunning,
		StreamStopping, StreamStopped, StreamFailed,
	}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("state %q should be valid", s)
		}
	}

	invalid := []StreamState{"", "paused", "IDLE", "restarting"}
	for _, s := range invalid {
		if s.Valid() {
			t.Errorf("state %q should be invalid", s)
		}
	}
}

func TestStreamStateStartable(t *testing.T) {
	tests := []struct {
		state StreamState
		want  bool
	}{
		{StreamIdle, true},
		{StreamStopped, true},
		{StreamFailed, true},
		{StreamStarting, false},
		{StreamRunning, false},
		{StreamStopping, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.Startable(); got != tt.want {
				t.Errorf("Startable(%q) = %v, want %v", tt.state, got, tt.want)
			}
		})
	}
}

func TestStreamStateLiveAndResting(t *testing.T) {
	for _, s := range []StreamState{StreamStarting, StreamRunning, StreamStopping} {
		if !s.Live() {
			t.Errorf("state %q should allow a live process", s)
		}
		if s.Resting() {
			t.Errorf("state %q should not be resting", s)
		}
	}
	for _, s := range []StreamState{StreamIdle, StreamStopped} {
		if s.Live() {
			t.Errorf("state %q should not allow a live process", s)
		}
		if !s.Resting() {
			t.Errorf("state %q should be resting", s)
		}
	}
	// Failed carries no process but is not a resting state either: a
	// definition in failed still demands operator attention.
	if StreamFailed.Live() {
		t.Error("failed should not allow a live process")
	}
	if StreamFailed.Resting() {
		t.Error("failed should not count as resting")
	}
}

func TestAudioFormatContentType(t *testing.T) {
	tests := []struct {
		format AudioFormat
		want   string
	}{
		{FormatMP3, "audio/mpeg"},
		{FormatAAC, "audio/aac"},
		{FormatOGG, "audio/ogg"},
		{FormatOpus, "audio/ogg"},
		{AudioFormat("flac"), "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := tt.format.ContentType(); got != tt.want {
			t.Errorf("ContentType(%q) = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestDiagnosisCategoryValid(t *testing.T) {
	all := []DiagnosisCategory{
		CategoryConnection, CategoryPortConflict, CategoryAuthentication,
		CategoryMountPoint, CategoryDeviceNotFound, CategoryDeviceBusy,
		CategoryVirtualAudioDevice, CategoryOSAudioSubsystem,
		CategoryCodecUnavailable, CategoryFormatUnsupported,
		CategoryResourceExhaustion, CategoryTimeout, CategoryProcessCrash,
		CategoryUnknown,
	}
	if len(all) != 14 {
		t.Fatalf("taxonomy has %d categories, want 14", len(all))
	}
	for _, c := range all {
		if !c.Valid() {
			t.Errorf("category %q should be valid", c)
		}
	}
	if DiagnosisCategory("network").Valid() {
		t.Error("category outside the taxonomy should be invalid")
	}
}

func TestNormalizedMount(t *testing.T) {
	tests := []struct {
		mount string
		want  string
	}{
		{"/live", "/live"},
		{"/live/", "/live"},
		{"/live.mp3", "/live.mp3"},
		{"/", "/"},
	}
	for _, tt := range tests {
		cfg := StreamConfig{Mount: tt.mount}
		if got := cfg.NormalizedMount(); got != tt.want {
			t.Errorf("NormalizedMount(%q) = %q, want %q", tt.mount, got, tt.want)
		}
	}
}

func TestDeviceInventoryFind(t *testing.T) {
	inv := DeviceInventory{
		Devices: []AudioDevice{
			{ID: "hw:0,0", Name: "HDA Intel PCH", Available: true},
			{ID: "hw:1,0", Name: "USB Audio CODEC", Available: true},
		},
	}

	d, ok := inv.Find("hw:1,0")
	if !ok {
		t.Fatal("expected hw:1,0 to be found")
	}
	if d.Name != "USB Audio CODEC" {
		t.Errorf("found device name = %q, want %q", d.Name, "USB Audio CODEC")
	}

	if _, ok := inv.Find("hw:9,0"); ok {
		t.Error("unknown device should not be found")
	}
}

func TestServerStateDetected(t *testing.T) {
	var s ServerState
	if s.Detected() {
		t.Error("zero ServerState should not report detected")
	}
	s.InstallPath = "/etc/icecast2"
	if !s.Detected() {
		t.Error("ServerState with an install path should report detected")
	}
}
