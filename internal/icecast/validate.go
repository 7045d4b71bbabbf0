// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package icecast

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/tomtom215/emissor/internal/events"
	"github.com/tomtom215/emissor/internal/logging"
)

// icecastXML maps the subset of icecast.xml Emissor reads. The server
// accepts multiple listen-socket blocks; the first one with a port is the
// one encoders connect to.
type icecastXML struct {
	Hostname      string `xml:"hostname"`
	ListenSockets []struct {
		Port int `xml:"port"`
	} `xml:"listen-socket"`
	Authentication struct {
		SourcePassword string `xml:"source-password"`
		AdminPassword  string `xml:"admin-password"`
	} `xml:"authentication"`
	Paths struct {
		LogDir string `xml:"logdir"`
	} `xml:"paths"`
}

// serverConfigValues are the fields Emissor consumes from icecast.xml.
type serverConfigValues struct {
	Hostname       string
	Port           int
	SourcePassword string
	AdminPassword  string
	LogDir         string
}

// ValidateConfigFile checks icecast.xml for the presence of every element
// the server needs to come up, and reports every missing one rather than
// stopping at the first. The returned error covers unreadable files only;
// a well-formed read with missing elements is findings, not an error.
func ValidateConfigFile(path string) ([]string, error) {
	_, findings, err := inspectConfigFile(path)
	return findings, err
}

// inspectConfigFile parses icecast.xml once for both the validation
// findings and the connection values the manager consumes.
func inspectConfigFile(path string) (serverConfigValues, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return serverConfigValues{}, nil, fmt.Errorf("read server config: %w", err)
	}

	var doc icecastXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return serverConfigValues{}, []string{"configuration is not well-formed XML: " + err.Error()}, nil
	}

	values := serverConfigValues{
		Hostname:       strings.TrimSpace(doc.Hostname),
		SourcePassword: strings.TrimSpace(doc.Authentication.SourcePassword),
		AdminPassword:  strings.TrimSpace(doc.Authentication.AdminPassword),
		LogDir:         strings.TrimSpace(doc.Paths.LogDir),
	}
	for _, ls := range doc.ListenSockets {
		if ls.Port > 0 {
			values.Port = ls.Port
			break
		}
	}

	var findings []string
	if values.Hostname == "" {
		findings = append(findings, "missing hostname")
	}
	if values.Port == 0 {
		findings = append(findings, "missing listen port")
	}
	if values.SourcePassword == "" {
		findings = append(findings, "missing source password")
	}
	if values.AdminPassword == "" {
		findings = append(findings, "missing admin password")
	}
	if values.LogDir == "" {
		findings = append(findings, "missing log directory")
	}
	return values, findings, nil
}

// RefreshConfigValidation revalidates the server configuration file,
// updates the snapshot, and publishes a config_validated event when the
// verdict changed since the last check. The dedup makes it safe to call
// from both the API and the file watcher without flooding the bus.
func (m *Manager) RefreshConfigValidation(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	path := m.state.ConfigPath
	m.mu.Unlock()
	if path == "" {
		return nil, ErrNotDetected
	}

	values, findings, err := inspectConfigFile(path)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	changed := !slices.Equal(m.state.ConfigErrors, findings)
	m.state.ConfigValid = len(findings) == 0
	m.state.ConfigErrors = findings
	m.state.Port = values.Port
	m.state.CheckedAt = time.Now().UTC()
	m.sourcePassword = values.SourcePassword
	m.mu.Unlock()

	if changed {
		m.publish(ctx, events.NewServerConfigValidated(findings))
		logging.Info().
			Str("component", "icecast").
			Bool("valid", len(findings) == 0).
			Strs("findings", findings).
			Msg("Server configuration revalidated")
	}
	return findings, nil
}
