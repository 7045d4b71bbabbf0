// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package validation

import (
	"strings"
	"testing"

	"github.com/tomtom215/emissor/internal/models"
)

func validStreamConfig() models.StreamConfig {
	return models.StreamConfig{
		ID:          "studio-a",
		Name:        "Studio A",
		DeviceID:    "hw:1,0",
		Formats:     []models.AudioFormat{models.FormatMP3, models.FormatAAC},
		BitrateKbps: 192,
		SampleRate:  44100,
		Channels:    2,
		Mount:       "/studio-a",
	}
}

func TestValidateStructAcceptsValidStream(t *testing.T) {
	t.Parallel()

	cfg := validStreamConfig()
	if verr := ValidateStruct(&cfg); verr != nil {
		t.Errorf("valid stream config rejected: %v", verr)
	}
}

func TestValidateStructRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(*models.StreamConfig)
		wantField string
	}{
		{
			name:      "missing name",
			mutate:    func(c *models.StreamConfig) { c.Name = "" },
			wantField: "Name",
		},
		{
			name:      "missing device",
			mutate:    func(c *models.StreamConfig) { c.DeviceID = "" },
			wantField: "DeviceID",
		},
		{
			name:      "no formats",
			mutate:    func(c *models.StreamConfig) { c.Formats = nil },
			wantField: "Formats",
		},
		{
			name:      "unsupported format",
			mutate:    func(c *models.StreamConfig) { c.Formats = []models.AudioFormat{"flac"} },
			wantField: "Formats",
		},
		{
			name:      "bitrate too low",
			mutate:    func(c *models.StreamConfig) { c.BitrateKbps = 8 },
			wantField: "BitrateKbps",
		},
		{
			name:      "odd sample rate",
			mutate:    func(c *models.StreamConfig) { c.SampleRate = 12345 },
			wantField: "SampleRate",
		},
		{
			name:      "mount without slash",
			mutate:    func(c *models.StreamConfig) { c.Mount = "live" },
			wantField: "Mount",
		},
		{
			name:      "id with space",
			mutate:    func(c *models.StreamConfig) { c.ID = "studio a" },
			wantField: "ID",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validStreamConfig()
			tt.mutate(&cfg)

			verr := ValidateStruct(&cfg)
			if verr == nil {
				t.Fatal("expected validation error")
			}

			found := false
			for _, fe := range verr.Errors() {
				if fe.Field() == tt.wantField {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("expected error on field %s, got: %v", tt.wantField, verr)
			}
		})
	}
}

func TestToAPIErrorSingle(t *testing.T) {
	t.Parallel()

	cfg := validStreamConfig()
	cfg.Name = ""

	verr := ValidateStruct(&cfg)
	if verr == nil {
		t.Fatal("expected validation error")
	}

	apiErr := verr.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if !strings.Contains(apiErr.Message, "Name is required") {
		t.Errorf("message = %q, want mention of required Name", apiErr.Message)
	}
	if apiErr.Details["field"] != "Name" {
		t.Errorf("details field = %v, want Name", apiErr.Details["field"])
	}
}

func TestToAPIErrorMultiple(t *testing.T) {
	t.Parallel()

	cfg := validStreamConfig()
	cfg.Name = ""
	cfg.DeviceID = ""

	verr := ValidateStruct(&cfg)
	if verr == nil {
		t.Fatal("expected validation error")
	}
	if len(verr.Errors()) < 2 {
		t.Fatalf("expected at least 2 errors, got %d", len(verr.Errors()))
	}

	apiErr := verr.ToAPIError()
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok {
		t.Fatalf("details fields has unexpected type %T", apiErr.Details["fields"])
	}
	if len(fields) != len(verr.Errors()) {
		t.Errorf("details lists %d fields, want %d", len(fields), len(verr.Errors()))
	}
}

func TestGetValidatorSingleton(t *testing.T) {
	t.Parallel()

	if GetValidator() != GetValidator() {
		t.Error("GetValidator must return the same instance")
	}
}
