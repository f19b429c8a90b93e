// Shelfwise - Library Catalog Intelligence
// Copyright 2026 Shelfwise Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfwise/shelfwise

package main

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"

	"github.com/shelfwise/shelfwise/internal/artifact"
	"github.com/shelfwise/shelfwise/internal/config"
	"github.com/shelfwise/shelfwise/internal/events"
	"github.com/shelfwise/shelfwise/internal/forecaststore"
	"github.com/shelfwise/shelfwise/internal/intelligence"
	"github.com/shelfwise/shelfwise/internal/intelligence/predictor"
	"github.com/shelfwise/shelfwise/internal/intelligence/recommender"
	"github.com/shelfwise/shelfwise/internal/intelligence/search"
)

// IntelligenceComponents bundles everything the intelligence core needs at
// runtime, so main can wire the API and supervisor without re-plumbing.
type IntelligenceComponents struct {
	Coordinator *intelligence.Coordinator
	Recommender *recommender.Recommender
	Search      *search.Search
	Predictor   *predictor.Predictor

	bus       *gochannel.GoChannel
	forecasts *forecaststore.Store
	logger    zerolog.Logger
}

// initIntelligence constructs the stores, event bus, embedding provider,
// and the three intelligence components, and registers them with the
// coordinator.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func initIntelligence(cfg *config.Config, data intelligence.DataSource, logger zerolog.Logger) (*IntelligenceComponents, error) {
	artifacts, err := artifact.NewStore(cfg.Artifacts.Dir)
	if err != nil {
		return nil, fmt.Errorf("open artifact store: %w", err)
	}

	forecasts, err := forecaststore.Open(cfg.Forecasts.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("open forecast store: %w", err)
	}

	bus := events.NewBus(logger)

	rec := recommender.New(recommender.Config{
		MaxVocabulary: cfg.Intelligence.MaxVocabulary,
		KeepVersions:  cfg.Artifacts.KeepVersions,
	}, data, artifacts, logger)

	srch := search.New(search.Config{
		MinQueryLength: cfg.Intelligence.MinQueryLength,
		KeepVersions:   cfg.Artifacts.KeepVersions,
	}, data, artifacts, newEmbedder(&cfg.Embedding, logger), logger)

	pred := predictor.New(predictor.Config{
		MinBorrowEvents: cfg.Intelligence.MinBorrowEvents,
		KeepVersions:    cfg.Artifacts.KeepVersions,
	}, data, artifacts, forecasts, logger)

	coordinator := intelligence.NewCoordinator(intelligence.CoordinatorConfig{
		BuildOnStartup:  cfg.Intelligence.BuildOnStartup,
		RebuildInterval: cfg.Intelligence.RebuildInterval,
	}, bus, bus, logger)
	coordinator.Register(rec)
	coordinator.Register(srch)
	coordinator.Register(pred)

	logger.Info().
		Bool("build_on_startup", cfg.Intelligence.BuildOnStartup).
		Dur("rebuild_interval", cfg.Intelligence.RebuildInterval).
		Msg("intelligence components registered")

	return &IntelligenceComponents{
		Coordinator: coordinator,
		Recommender: rec,
		Search:      srch,
		Predictor:   pred,
		bus:         bus,
		forecasts:   forecasts,
		logger:      logger,
	}, nil
}

// newEmbedder selects the embedding provider from configuration.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func newEmbedder(cfg *config.EmbeddingConfig, logger zerolog.Logger) search.Embedder {
	if cfg.Provider == "openai" {
		return search.NewRemoteEmbedder(search.RemoteEmbedderConfig{
			BaseURL:           cfg.BaseURL,
			APIKey:            cfg.APIKey,
			Model:             cfg.Model,
			Dimension:         cfg.Dimension,
			RequestsPerSecond: cfg.RequestsPerSecond,
		}, logger)
	}
	return search.NewLocalEmbedder(cfg.Dimension)
}

// Close releases the event bus and forecast store. The catalog database is
// owned and closed by main.
func (c *IntelligenceComponents) Close() {
	if err := c.bus.Close(); err != nil {
		c.logger.Error().Err(err).Msg("error closing event bus")
	}
	if err := c.forecasts.Close(); err != nil {
		c.logger.Error().Err(err).Msg("error closing forecast store")
	}
}
