// Shelfwise - Library Catalog Intelligence
// Copyright 2026 Shelfwise Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfwise/shelfwise

package intelligence

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shelfwise/shelfwise/internal/artifact"
	"github.com/shelfwise/shelfwise/internal/metrics"
)

// TopicRebuild carries administrative and scheduled rebuild triggers.
const TopicRebuild = "intelligence.rebuild"

// RebuildAll targets every registered component.
const RebuildAll = "all"

// RebuildRequest is the payload published on TopicRebuild.
type RebuildRequest struct {
	// Component is a component name or RebuildAll.
	Component string `json:"component"`

	// Reason is recorded in logs ("scheduled", "admin", ...).
	Reason string `json:"reason"`
}

// CoordinatorConfig tunes the model lifecycle.
type CoordinatorConfig struct {
	// BuildOnStartup builds missing models after the restore pass.
	BuildOnStartup bool

	// RebuildInterval schedules periodic full rebuilds. 0 disables them.
	RebuildInterval time.Duration
}

// Coordinator owns the model lifecycle for all registered components:
// restore-else-build at startup, scheduled rebuilds, and rebuild triggers
// delivered over the event bus. It is safe for concurrent use.
type Coordinator struct {
	cfg        CoordinatorConfig
	logger     zerolog.Logger
	publisher  message.Publisher
	subscriber message.Subscriber

	// registration happens before Run; the slice is read-only afterwards
	components []Component

	initialized atomic.Bool
}

// NewCoordinator creates a coordinator. Register components before calling
// Run.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewCoordinator(cfg CoordinatorConfig, pub message.Publisher, sub message.Subscriber, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		cfg:        cfg,
		logger:     logger.With().Str("component", "intelligence").Logger(),
		publisher:  pub,
		subscriber: sub,
	}
}

// Register adds a component to the lifecycle.
func (c *Coordinator) Register(comp Component) {
	c.components = append(c.components, comp)
	c.logger.Info().Str("model", comp.Name()).Msg("registered component")
}

// InitializeAll restores or builds every component. Per-component failures
// are logged and isolated; the only returned error is context cancellation.
func (c *Coordinator) InitializeAll(ctx context.Context) error {
	for _, comp := range c.components {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.initialize(ctx, comp)
	}
	c.initialized.Store(true)

	ready := 0
	for _, comp := range c.components {
		if comp.Ready() {
			ready++
		}
	}
	c.logger.Info().
		Int("ready", ready).
		Int("total", len(c.components)).
		Msg("initialization complete")
	return nil
}

// initialize runs the restore-else-build sequence for one component.
func (c *Coordinator) initialize(ctx context.Context, comp Component) {
	logger := c.logger.With().Str("model", comp.Name()).Logger()

	err := comp.Restore(ctx)
	switch {
	case err == nil:
		metrics.ModelArtifactLoads.WithLabelValues(comp.Name(), "success").Inc()
		metrics.SetReady(comp.Name(), true)
		logger.Info().Msg("restored model from artifact")
		return
	case errors.Is(err, artifact.ErrCorrupt):
		metrics.ModelArtifactLoads.WithLabelValues(comp.Name(), "corrupt").Inc()
		logger.Warn().Err(err).Msg("artifact corrupt, rebuilding")
	case errors.Is(err, artifact.ErrNotFound):
		metrics.ModelArtifactLoads.WithLabelValues(comp.Name(), "absent").Inc()
		logger.Info().Msg("no artifact found")
	default:
		metrics.ModelArtifactLoads.WithLabelValues(comp.Name(), "corrupt").Inc()
		logger.Error().Err(err).Msg("artifact restore failed")
	}

	if !c.cfg.BuildOnStartup {
		return
	}
	c.build(ctx, comp)
}

// build runs one build attempt and records the outcome.
func (c *Coordinator) build(ctx context.Context, comp Component) {
	logger := c.logger.With().Str("model", comp.Name()).Logger()
	start := time.Now()

	err := comp.Build(ctx)
	switch {
	case err == nil:
		metrics.ObserveBuild(comp.Name(), "success", start)
		metrics.SetReady(comp.Name(), true)
		logger.Info().
			Dur("duration", time.Since(start)).
			Msg("build complete")
	case errors.Is(err, ErrInsufficientData):
		metrics.ObserveBuild(comp.Name(), "insufficient_data", start)
		logger.Warn().Err(err).Msg("build skipped")
	case errors.Is(err, ErrBuildInProgress):
		logger.Debug().Msg("build already running, skipped")
	default:
		metrics.ObserveBuild(comp.Name(), "error", start)
		logger.Error().Err(err).Msg("build failed")
	}
}

// Run subscribes to rebuild triggers and processes them until ctx is
// canceled. The initial restore-else-build pass runs first so startup does
// not block on training. Intended to be run as a supervised service.
func (c *Coordinator) Run(ctx context.Context) error {
	msgs, err := c.subscriber.Subscribe(ctx, TopicRebuild)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", TopicRebuild, err)
	}

	if err := c.InitializeAll(ctx); err != nil {
		return err
	}

	var tick <-chan time.Time
	if c.cfg.RebuildInterval > 0 {
		ticker := time.NewTicker(c.cfg.RebuildInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
			c.rebuild(ctx, RebuildRequest{Component: RebuildAll, Reason: "scheduled"})
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var req RebuildRequest
			if err := json.Unmarshal(msg.Payload, &req); err != nil {
				c.logger.Warn().Err(err).Msg("malformed rebuild request dropped")
				msg.Ack()
				continue
			}
			c.rebuild(ctx, req)
			msg.Ack()
		}
	}
}

// rebuild runs builds for the requested component(s). Builds execute inside
// the Run loop, which serializes them per coordinator.
func (c *Coordinator) rebuild(ctx context.Context, req RebuildRequest) {
	c.logger.Info().
		Str("target", req.Component).
		Str("reason", req.Reason).
		Msg("rebuild triggered")

	for _, comp := range c.components {
		if req.Component != RebuildAll && req.Component != comp.Name() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return
		}
		c.build(ctx, comp)
	}
}

// RequestRebuild publishes a rebuild trigger for the named component, or
// for all components when name is empty or RebuildAll.
func (c *Coordinator) RequestRebuild(name, reason string) error {
	if name == "" {
		name = RebuildAll
	}
	if name != RebuildAll && !c.knownComponent(name) {
		return fmt.Errorf("%w: component %s", ErrUnknownEntity, name)
	}

	payload, err := json.Marshal(RebuildRequest{Component: name, Reason: reason})
	if err != nil {
		return fmt.Errorf("marshal rebuild request: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	if err := c.publisher.Publish(TopicRebuild, msg); err != nil {
		return fmt.Errorf("publish rebuild request: %w", err)
	}
	return nil
}

// knownComponent reports whether name matches a registered component.
func (c *Coordinator) knownComponent(name string) bool {
	for _, comp := range c.components {
		if comp.Name() == name {
			return true
		}
	}
	return false
}

// Initialized reports whether the startup pass has completed.
func (c *Coordinator) Initialized() bool {
	return c.initialized.Load()
}

// Ready returns the per-component readiness map.
func (c *Coordinator) Ready() Readiness {
	r := make(Readiness, len(c.components))
	for _, comp := range c.components {
		r[comp.Name()] = comp.Ready()
	}
	return r
}

// AllReady reports whether every registered component is ready.
func (c *Coordinator) AllReady() bool {
	for _, comp := range c.components {
		if !comp.Ready() {
			return false
		}
	}
	return len(c.components) > 0
}

// Statuses returns a snapshot of every component's state.
func (c *Coordinator) Statuses() []ComponentStatus {
	statuses := make([]ComponentStatus, 0, len(c.components))
	for _, comp := range c.components {
		statuses = append(statuses, comp.Status())
	}
	return statuses
}
