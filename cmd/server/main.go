// Shelfwise - Library Catalog Intelligence
// Copyright 2026 Shelfwise Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfwise/shelfwise

// Package main is the entry point for the Shelfwise server.
//
// Shelfwise is the intelligence core of a library catalog: it trains and
// serves a content/collaborative recommender, an embedding-based semantic
// search index, and a linear demand predictor over the catalog's borrow
// history.
//
// # Application Architecture
//
// Startup proceeds in this order:
//
//  1. Configuration: Koanf v2 layered sources (env > config file > defaults)
//  2. Catalog store: DuckDB with books and borrow_events tables
//  3. Artifact store: versioned gob+gzip model snapshots on disk
//  4. Forecast store: BadgerDB key-value snapshots of demand forecasts
//  5. Intelligence components: recommender, search, predictor
//  6. Coordinator: restore-else-build lifecycle over the in-process event bus
//  7. HTTP server: REST API, health probe, Prometheus metrics
//
// Long-running work runs under a suture supervision tree with separate
// intelligence and API layers, so a failing model loop never takes the
// HTTP surface down.
//
// # Configuration
//
// Key environment variables (see internal/config for the full set):
//
//	SERVER_PORT=8974
//	DATABASE_PATH=/data/shelfwise.duckdb
//	DATABASE_SEED_SAMPLE_DATA=true   # development catalog + borrow history
//	ARTIFACTS_DIR=/data/models
//	FORECASTS_PATH=/data/forecasts
//	EMBEDDING_PROVIDER=local         # or "openai" with EMBEDDING_API_KEY
//	INTELLIGENCE_BUILD_ON_STARTUP=true
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server drains
// in-flight requests, the coordinator loop stops, and the stores close.
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

	"github.com/shelfwise/shelfwise/internal/api"
	"github.com/shelfwise/shelfwise/internal/config"
	"github.com/shelfwise/shelfwise/internal/database"
	"github.com/shelfwise/shelfwise/internal/logging"
	"github.com/shelfwise/shelfwise/internal/supervisor"
	"github.com/shelfwise/shelfwise/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("artifacts_dir", cfg.Artifacts.Dir).
		Str("embedding_provider", cfg.Embedding.Provider).
		Msg("starting shelfwise")

	db, err := database.New(&cfg.Database, logging.Logger())
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open catalog database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing database")
		}
	}()

	if cfg.Database.SeedSampleData {
		if err := db.SeedSampleData(context.Background()); err != nil {
			logging.Fatal().Err(err).Msg("failed to seed sample data")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	intel, err := initIntelligence(cfg, db, logging.Logger())
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize intelligence components")
	}
	defer intel.Close()

	handlers := api.NewHandlers(
		intel.Recommender,
		intel.Search,
		intel.Predictor,
		intel.Coordinator,
		db,
		logging.Logger(),
	)
	router := api.NewRouter(handlers, &cfg.Server)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// Supervisor events are logged through the zerolog-backed slog bridge.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddIntelligenceService(services.NewIntelligenceService(intel.Coordinator, logging.Logger()))
	tree.AddAPIService(services.NewHTTPService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("supervision tree assembled")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervision tree error")
		}
	}

	// Drain the channel so shutdown errors are not lost.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervision shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("service failed to stop within timeout")
	}

	logging.Info().Msg("shelfwise stopped")
}
