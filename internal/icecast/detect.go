// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

package icecast

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tomtom215/emissor/internal/logging"
	"github.com/tomtom215/emissor/internal/metrics"
	"github.com/tomtom215/emissor/internal/models"
)

// NotDetectedError reports a failed installation search together with
// every root that was examined, so the operator can see exactly where
// Emissor looked.
type NotDetectedError struct {
	Searched []string
}

func (e *NotDetectedError) Error() string {
	return "icecast: no installation found, searched: " + strings.Join(e.Searched, ", ")
}

// candidate is one possible installation layout. All paths are absolute.
// launcher is what actually gets spawned: the Windows bundle ships a
// wrapper script beside the executable, elsewhere it equals binary.
type candidate struct {
	install  string
	binary   string
	launcher string
	config   string
	logDir   string
}

// missing returns the required paths that do not exist. An empty result
// means the candidate is a complete installation. logDir is optional for
// operator-supplied layouts and skipped when empty.
func (c candidate) missing() []string {
	var out []string
	if !fileExists(c.binary) {
		out = append(out, c.binary)
	}
	if c.launcher != c.binary && !fileExists(c.launcher) {
		out = append(out, c.launcher)
	}
	if !fileExists(c.config) {
		out = append(out, c.config)
	}
	if c.logDir != "" && !dirExists(c.logDir) {
		out = append(out, c.logDir)
	}
	return out
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// installCandidates returns the ordered search list for the platform.
// Extra roots configured by the operator are searched first, shaped into
// the platform's layout.
func installCandidates(goos string, extraRoots []string) []candidate {
	out := make([]candidate, 0, len(extraRoots)+3)
	for _, root := range extraRoots {
		out = append(out, rootCandidate(goos, root))
	}

	switch goos {
	case "windows":
		for _, root := range []string{
			`C:\Program Files (x86)\Icecast`,
			`C:\Program Files\Icecast`,
			`C:\Icecast`,
		} {
			out = append(out, rootCandidate(goos, root))
		}
	case "darwin":
		// Homebrew prefixes, Apple Silicon first.
		out = append(out,
			rootCandidate(goos, "/opt/homebrew"),
			rootCandidate(goos, "/usr/local"),
		)
	default:
		// Debian and Ubuntu package the server as icecast2 with its own
		// config directory; other distributions use the plain name.
		out = append(out,
			candidate{
				install:  "/usr",
				binary:   "/usr/bin/icecast2",
				launcher: "/usr/bin/icecast2",
				config:   "/etc/icecast2/icecast.xml",
				logDir:   "/var/log/icecast2",
			},
			candidate{
				install:  "/usr",
				binary:   "/usr/bin/icecast",
				launcher: "/usr/bin/icecast",
				config:   "/etc/icecast.xml",
				logDir:   "/var/log/icecast",
			},
			rootCandidate(goos, "/usr/local"),
		)
	}
	return out
}

// rootCandidate shapes an installation root into the platform layout. The
// Windows bundle keeps everything under one directory; Unix prefixes
// follow the bin/etc/var convention.
func rootCandidate(goos, root string) candidate {
	if goos == "windows" {
		return candidate{
			install:  root,
			binary:   filepath.Join(root, "bin", "icecast.exe"),
			launcher: filepath.Join(root, "icecast.bat"),
			config:   filepath.Join(root, "icecast.xml"),
			logDir:   filepath.Join(root, "log"),
		}
	}
	bin := filepath.Join(root, "bin", "icecast")
	return candidate{
		install:  root,
		binary:   bin,
		launcher: bin,
		config:   filepath.Join(root, "etc", "icecast.xml"),
		logDir:   filepath.Join(root, "var", "log", "icecast"),
	}
}

// DetectInstallation locates the Icecast installation and seeds the
// server state from it: paths, the listen port and source credential
// parsed from icecast.xml, the configuration verdict, and adoption of a
// server process that was already running before Emissor came up.
//
// Detection latches on success; later calls return the cached state
// immediately so a second initialization cannot re-run side effects. A
// failed search does not latch and can be retried after the operator
// installs the server.
func (m *Manager) DetectInstallation(ctx context.Context) (models.ServerState, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	if m.detected {
		st := m.snapshotLocked()
		m.mu.Unlock()
		return st, nil
	}
	m.mu.Unlock()

	found, err := m.locate()
	if err != nil {
		metrics.RecordServerOperation("detect", err)
		logging.Warn().
			Err(err).
			Str("component", "icecast").
			Msg("Icecast installation not found")
		return models.ServerState{CheckedAt: time.Now().UTC()}, err
	}

	st := models.ServerState{
		InstallPath:  found.install,
		BinaryPath:   found.binary,
		LauncherPath: found.launcher,
		ConfigPath:   found.config,
		LogDir:       found.logDir,
		CheckedAt:    time.Now().UTC(),
	}

	// One read of icecast.xml covers the listen port, the source
	// credential, and the validation verdict.
	values, findings, perr := inspectConfigFile(found.config)
	if perr != nil {
		findings = append(findings, "configuration file unreadable: "+perr.Error())
	}
	st.Port = values.Port
	if st.LogDir == "" {
		st.LogDir = values.LogDir
	}
	st.ConfigValid = len(findings) == 0
	st.ConfigErrors = findings

	// Adopt a server that predates Emissor so Stop and Restart work on it.
	if pids := m.serverPIDs(ctx); len(pids) > 0 {
		st.Running = true
		st.PID = pids[0]
	}

	m.mu.Lock()
	m.detected = true
	m.state = st
	m.sourcePassword = values.SourcePassword
	snap := m.snapshotLocked()
	m.mu.Unlock()

	metrics.SetServerUp(st.Running)
	metrics.RecordServerOperation("detect", nil)
	logging.Info().
		Str("component", "icecast").
		Str("install_path", st.InstallPath).
		Str("config_path", st.ConfigPath).
		Bool("config_valid", st.ConfigValid).
		Bool("running", st.Running).
		Int("pid", st.PID).
		Msg("Icecast installation detected")
	return snap, nil
}

// locate resolves the installation: the configured override when present,
// otherwise the first complete platform candidate.
func (m *Manager) locate() (candidate, error) {
	if m.cfg.BinaryPath != "" || m.cfg.ConfigPath != "" {
		return m.overrideCandidate()
	}

	cands := installCandidates(m.goos, m.cfg.ExtraSearchPaths)
	searched := make([]string, 0, len(cands))
	seen := make(map[string]struct{}, len(cands))
	for _, c := range cands {
		if len(c.missing()) == 0 {
			return c, nil
		}
		if _, dup := seen[c.install]; dup {
			continue
		}
		seen[c.install] = struct{}{}
		searched = append(searched, c.install)
	}
	return candidate{}, &NotDetectedError{Searched: searched}
}

// overrideCandidate builds the installation from the configured paths.
// Both must be set: a binary without its config file, or the reverse,
// cannot produce a startable server.
func (m *Manager) overrideCandidate() (candidate, error) {
	if m.cfg.BinaryPath == "" || m.cfg.ConfigPath == "" {
		return candidate{}, errors.New("icecast: binary_path and config_path must be configured together")
	}
	c := candidate{
		install:  filepath.Dir(m.cfg.BinaryPath),
		binary:   m.cfg.BinaryPath,
		launcher: m.cfg.BinaryPath,
		config:   m.cfg.ConfigPath,
	}
	if missing := c.missing(); len(missing) > 0 {
		return candidate{}, fmt.Errorf("icecast: configured paths do not exist: %s", strings.Join(missing, ", "))
	}
	return c, nil
}
