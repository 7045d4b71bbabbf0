// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package diagnose

import (
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/emissor/internal/models"
)

// maxExcerptBytes bounds the output excerpt preserved in Diagnosis.Technical.
// Encoder output can run to megabytes on a tight crash loop; the tail is
// where the fatal line lives.
const maxExcerptBytes = 2048

// Context carries the situational values a builder weaves into causes and
// remedies. All fields are optional; builders fall back to generic phrasing
// for zero values.
type Context struct {
	// DeviceID is the platform-native capture device identifier
	// (e.g. "hw:1,0" or ":BlackHole 2ch").
	DeviceID string

	// DeviceName is the human-readable device name, preferred over DeviceID
	// in user-facing text when present.
	DeviceName string

	// Host and Port locate the Icecast server the encoder was targeting.
	Host string
	Port int

	// Mount is the normalized mount path (leading slash included).
	Mount string

	// Format is the encoding format being attempted when the failure occurred.
	Format models.AudioFormat

	// Binary is the executable that failed (encoder or Icecast launcher).
	Binary string
}

// device returns the best available device description for user-facing text.
func (c Context) device() string {
	if c.DeviceName != "" {
		return fmt.Sprintf("%q", c.DeviceName)
	}
	if c.DeviceID != "" {
		return fmt.Sprintf("%q", c.DeviceID)
	}
	return "the configured capture device"
}

// target returns the best available server description for user-facing text.
func (c Context) target() string {
	switch {
	case c.Host != "" && c.Port > 0:
		return fmt.Sprintf("%s:%d", c.Host, c.Port)
	case c.Host != "":
		return c.Host
	case c.Port > 0:
		return fmt.Sprintf("port %d", c.Port)
	default:
		return "the Icecast server"
	}
}

// Diagnose classifies a process failure into a structured diagnosis.
//
// The exit-code table is consulted first and wins regardless of output
// content. Otherwise the lowercased output is scanned once against the
// signature index and the highest-priority matching entry's builder runs.
// If no matcher fires, output without any error marker is classified as an
// unreported connection failure; output with unrecognized error text is
// classified unknown.
func Diagnose(output string, exitCode int, ctx Context) models.Diagnosis {
	if d, ok := lookupExitCode(exitCode, ctx); ok {
		d.Technical = technical(output, exitCode)
		d.CreatedAt = time.Now().UTC()
		return d
	}

	lowered := strings.ToLower(output)
	if idx, ok := signatures.bestMatch(lowered); ok {
		m := matchers[idx]
		d := m.build(ctx)
		d.Category = m.category
		d.Severity = m.severity
		d.Technical = technical(output, exitCode)
		d.CreatedAt = time.Now().UTC()
		return d
	}

	d := fallback(lowered, exitCode, ctx)
	d.Technical = technical(output, exitCode)
	d.CreatedAt = time.Now().UTC()
	return d
}

// errorMarkers are the substrings that distinguish "process printed an error
// we don't recognize" from "process died without reporting anything".
var errorMarkers = []string{
	"error", "fatal", "fail", "invalid", "unable", "cannot",
	"denied", "refused", "panic", "abort", "exception",
}

func containsErrorMarker(lowered string) bool {
	return markerIndex.contains(lowered)
}

// fallback handles output no matcher claimed. Encoders whose server
// connection drops often exit without printing a fatal line, so marker-free
// output is attributed to the connection rather than left unexplained.
func fallback(lowered string, exitCode int, ctx Context) models.Diagnosis {
	if !containsErrorMarker(lowered) {
		return models.Diagnosis{
			Category: models.CategoryConnection,
			Severity: models.SeverityCritical,
			Title:    "Unreported connection failure",
			Causes: []string{
				fmt.Sprintf("The process exited (code %d) without reporting an error, which usually means %s dropped the connection", exitCode, ctx.target()),
				"The Icecast server may have been stopped or restarted while the stream was connected",
			},
			Remedies: []string{
				fmt.Sprintf("Verify the Icecast server at %s is running and reachable", ctx.target()),
				"Check the Icecast error log for dropped source connections",
				"Restart the stream once the server is confirmed healthy",
			},
		}
	}

	return models.Diagnosis{
		Category: models.CategoryUnknown,
		Severity: models.SeverityWarning,
		Title:    "Unrecognized failure",
		Causes: []string{
			fmt.Sprintf("The process exited with code %d and reported an error that does not match any known failure pattern", exitCode),
		},
		Remedies: []string{
			"Review the technical details below for the reported error text",
			"Check the encoder and Icecast logs for surrounding context",
		},
	}
}

// technical preserves the raw evidence: exit code plus a bounded tail of the
// process output.
func technical(output string, exitCode int) string {
	excerpt := strings.TrimSpace(output)
	if len(excerpt) > maxExcerptBytes {
		excerpt = excerpt[len(excerpt)-maxExcerptBytes:]
		if idx := strings.IndexByte(excerpt, '\n'); idx >= 0 && idx < len(excerpt)-1 {
			excerpt = excerpt[idx+1:]
		}
	}
	if excerpt == "" {
		return fmt.Sprintf("exit code %d; no output captured", exitCode)
	}
	return fmt.Sprintf("exit code %d; output tail:\n%s", exitCode, excerpt)
}
