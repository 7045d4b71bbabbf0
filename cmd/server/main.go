// Emissor - Live Audio Stream Orchestration for Icecast
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/emissor

// Package main is the entry point for the Emissor daemon.
//
// Emissor supervises live audio broadcasting: it discovers local capture
// devices, runs one FFmpeg encoder process per configured stream publishing
// to an Icecast server, manages the Icecast server's own lifecycle, and
// classifies every process failure into a structured, actionable diagnosis.
// A REST + WebSocket control plane exposes the whole thing to a dashboard.
//
// # Application Architecture
//
// Long-running services live under a suture v4 supervision tree:
//
//	Root ("emissor")
//	├── "messaging-layer"
//	│   ├── WebSocket hub (dashboard fanout)
//	│   └── Event router (status bus -> journal + hub)
//	├── "watchdog-layer"
//	│   ├── Icecast watchdog (process liveness + config watch)
//	│   └── Journal GC (badger value-log, when the journal is on disk)
//	└── "control-plane"
//	    └── HTTP server (REST API, /ws, /metrics)
//
// The stream supervisor and the Icecast manager are not supervised
// services: they own external OS processes, and blanket restarts would
// orphan or kill those processes. Their goroutines are tied to the
// processes they watch.
//
// Component initialization order:
//
//  1. Configuration: Koanf v2 layers (defaults -> YAML file -> environment)
//  2. Logging: zerolog, JSON or console format
//  3. Event journal: badger store backing GET /api/v1/events
//  4. Status bus: watermill gochannel Pub/Sub + router
//  5. Process layer: encoder launcher and platform process lister
//  6. Icecast manager: installation detection (best effort at boot)
//  7. Stream supervisor: definitions preloaded from configuration
//  8. HTTP control plane: chi router
//  9. Supervision tree: services added, then served until a signal
//
// # Configuration
//
// Every setting has a built-in default; a config.yaml and environment
// variables override in that order. Environment names come from the
// explicit mapping table in internal/config:
//
//	HTTP_PORT=8474
//	ICECAST_CONFIG=/etc/icecast2/icecast.xml
//	ENCODER_BINARY=/usr/bin/ffmpeg
//	JOURNAL_PATH=/var/lib/emissor/journal
//	LOG_LEVEL=debug
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger a graceful stop: the tree drains the HTTP
// server and stops the background loops, then every live encoder is
// terminated (graceful first, forceful after the grace window). The
// Icecast server itself is left running on purpose; it serves listeners
// independently of this daemon, and the next boot re-adopts it during
// installation detection.
//
// # Example Usage
//
// Local development against a package-manager Icecast:
//
//	export LOG_FORMAT=console
//	export LOG_LEVEL=debug
//	./emissor
//
// Production with an explicit installation and persistent journal:
//
//	export ICECAST_BINARY=/usr/bin/icecast2
//	export ICECAST_CONFIG=/etc/icecast2/icecast.xml
//	export JOURNAL_PATH=/var/lib/emissor/journal
//	./emissor
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/emissor/internal/api"
	"github.com/tomtom215/emissor/internal/config"
	"github.com/tomtom215/emissor/internal/events"
	"github.com/tomtom215/emissor/internal/icecast"
	"github.com/tomtom215/emissor/internal/journal"
	"github.com/tomtom215/emissor/internal/logging"
	"github.com/tomtom215/emissor/internal/probe"
	"github.com/tomtom215/emissor/internal/process"
	"github.com/tomtom215/emissor/internal/stream"
	"github.com/tomtom215/emissor/internal/supervisor"
	"github.com/tomtom215/emissor/internal/supervisor/services"
	ws "github.com/tomtom215/emissor/internal/websocket"
)

func main() {
	// Configuration first: logging settings live in it.
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("listen", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)).
		Int("preloaded_streams", len(cfg.Streams)).
		Bool("journal_enabled", cfg.Journal.Enabled).
		Msg("Starting Emissor")

	// Event journal: the persistence behind the status pull endpoint.
	var store *journal.Store
	if cfg.Journal.Enabled {
		store, err = journal.Open(cfg.Journal)
		if err != nil {
			logging.Fatal().Err(err).Str("path", cfg.Journal.Path).Msg("Failed to open event journal")
		}
		defer func() {
			if err := store.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing event journal")
			}
		}()
	} else {
		logging.Info().Msg("Event journal disabled (JOURNAL_ENABLED=false); GET /api/v1/events will answer 503")
	}

	// Status bus and its consumers. The router watches both event topics
	// and fans out to the journal persister and the WebSocket forwarder.
	bus := events.NewBus(cfg.Events)
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	hub := ws.NewHub()

	eventRouter, err := events.NewRouter(cfg.Events, bus)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create event router")
	}
	if store != nil {
		eventRouter.AddEventConsumer("journal", events.NewJournalHandler(store))
	}
	eventRouter.AddEventConsumer("forward", events.NewForwardHandler(hub))

	// Process layer shared by encoders and the Icecast launcher.
	launcher := process.NewExecLauncher(cfg.Encoder.OutputTailLines)
	lister := process.ExecLister{}

	// Icecast lifecycle manager. Detection at boot is best effort: a
	// missing installation is an operator problem the API can report and
	// retry, not a reason to refuse to start.
	icecastMgr := icecast.NewManager(cfg.Icecast, launcher, lister, bus)

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 15*time.Second)
	if _, err := icecastMgr.DetectInstallation(bootCtx); err != nil {
		logging.Warn().Err(err).Msg("Icecast not detected at boot; use POST /api/v1/server/detect after installing")
	}
	bootCancel()

	// Capture device discovery.
	prober := probe.NewProber(cfg.Probe)

	// Stream supervisor with definitions preloaded from configuration.
	streams := stream.New(cfg.Encoder, cfg.Streams, launcher, icecastMgr, prober, bus)

	// Control plane.
	var eventJournal api.EventJournal
	if store != nil {
		eventJournal = store
	}
	handler := api.NewHandler(streams, icecastMgr, prober, eventJournal, hub, cfg)
	router := api.NewRouter(handler, api.NewChiMiddlewareFromConfig(cfg))

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// Supervision tree.
	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddMessagingService(services.NewHubService(hub))
	tree.AddMessagingService(services.NewEventRouterService(eventRouter))
	tree.AddWatchdogService(services.NewIcecastWatchdogService(icecast.NewWatchdog(icecastMgr, cfg.Icecast)))
	if store != nil && !cfg.Journal.InMemory {
		tree.AddWatchdogService(services.NewJournalGCService(journal.NewGC(store, cfg.Journal.GCInterval)))
	}
	tree.AddControlService(services.NewHTTPServerService(httpServer, 10*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", httpServer.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	// Encoders outlive the tree on purpose (their owner is not a
	// supervised service); terminate them before exit. The budget covers
	// one graceful wait plus the forced kill per stream.
	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.Encoder.StopGrace+10*time.Second)
	streams.StopAll(stopCtx)
	stopCancel()

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Emissor stopped gracefully")
}
