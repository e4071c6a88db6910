// Tagreco - Tag-Based Catalog Recommendation Engine
// Copyright 2026 Tagreco Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagreco/tagreco

// Package main is the entry point for the Tagreco server.
//
// Tagreco serves tag-based product recommendations from three source
// documents: a tag ontology, a product catalog and a tag-to-product
// rule map. The documents are compiled into an immutable snapshot at
// startup; requests are scored against the snapshot lock-free, and the
// snapshot can be swapped atomically via the reload endpoint or the
// scheduled reloader.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered from defaults, config file and environment
//     variables (Koanf v2)
//  2. Snapshot: ontology, catalog and rules compiled and cross-validated
//  3. Tag store (optional): BadgerDB-backed per-user derived tags
//  4. HTTP API: chi router with CORS, rate limiting and Prometheus
//     instrumentation
//  5. Supervisor tree: HTTP server and cron reloader under suture
//     supervision
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables with the TAGRECO_ prefix
//   - Config file (config.yaml, or TAGRECO_CONFIG_PATH)
//   - Built-in defaults
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM: it stops
// accepting new connections, waits for in-flight requests to complete
// and closes the tag store.
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

	"github.com/tagreco/tagreco/internal/api"
	"github.com/tagreco/tagreco/internal/config"
	"github.com/tagreco/tagreco/internal/logging"
	"github.com/tagreco/tagreco/internal/metrics"
	"github.com/tagreco/tagreco/internal/recommend"
	"github.com/tagreco/tagreco/internal/supervisor"
	"github.com/tagreco/tagreco/internal/supervisor/services"
	"github.com/tagreco/tagreco/internal/tagstore"
)

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("ontology", cfg.Data.OntologyPath).
		Str("catalog", cfg.Data.CatalogPath).
		Str("rules", cfg.Data.RulesPath).
		Msg("Starting Tagreco")

	source := recommend.FileSource{
		OntologyPath: cfg.Data.OntologyPath,
		CatalogPath:  cfg.Data.CatalogPath,
		RulesPath:    cfg.Data.RulesPath,
	}
	snap, err := source.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build initial snapshot")
	}

	engine, err := recommend.NewEngine(snap, logging.Logger())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create engine")
	}
	metrics.RecordReload("success", len(snap.Rules), len(snap.Catalog), len(snap.Ontology), snap.LoadedAt)

	var store *tagstore.Store
	if cfg.TagStore.Enabled {
		store, err = tagstore.Open(cfg.TagStore.Path, cfg.TagStore.TTL, logging.Logger())
		if err != nil {
			logging.Fatal().Err(err).Str("path", cfg.TagStore.Path).Msg("Failed to open tag store")
		}
		defer func() {
			if err := store.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing tag store")
			}
		}()
		logging.Info().Str("path", cfg.TagStore.Path).Dur("ttl", cfg.TagStore.TTL).Msg("Tag store opened")
	} else {
		logging.Info().Msg("Tag store disabled, user tag endpoints will return 503")
	}

	handlers := api.NewHandlers(engine, source, store, logging.Logger())
	router := api.NewRouter(handlers, api.MiddlewareConfig{
		CORSAllowedOrigins: cfg.Server.CORSOrigins,
		RateLimitRequests:  cfg.Server.RateLimitReqs,
		RateLimitWindow:    cfg.Server.RateLimitWindow,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge zerolog to slog for sutureslog.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	if cfg.Reload.Enabled {
		reloader, err := services.NewReloadService(engine, source, cfg.Reload.Schedule, logging.Logger())
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to create reload service")
		}
		tree.AddSchedulerService(reloader)
		logging.Info().Str("schedule", cfg.Reload.Schedule).Msg("Scheduled reloader added to supervisor tree")
	} else {
		logging.Info().Msg("Scheduled reload disabled, snapshot swaps only via the reload endpoint")
	}

	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
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

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
