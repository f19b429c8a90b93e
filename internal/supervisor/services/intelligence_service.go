// Shelfwise - Library Catalog Intelligence
// Copyright 2026 Shelfwise Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfwise/shelfwise

package services

import (
	"context"

	"github.com/rs/zerolog"
)

// Lifecycle is the coordinator surface the service wraps. Run blocks
// until the context is canceled.
type Lifecycle interface {
	Run(ctx context.Context) error
}

// IntelligenceService runs the model lifecycle coordinator under
// supervision. A panic or error inside the coordinator loop restarts the
// loop without touching the HTTP layer; already-swapped-in models keep
// serving throughout.
type IntelligenceService struct {
	coordinator Lifecycle
	logger      zerolog.Logger
}

// NewIntelligenceService wraps the coordinator as a supervised service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewIntelligenceService(coordinator Lifecycle, logger zerolog.Logger) *IntelligenceService {
	return &IntelligenceService{
		coordinator: coordinator,
		logger:      logger.With().Str("service", "intelligence").Logger(),
	}
}

// Serve implements suture.Service.
func (s *IntelligenceService) Serve(ctx context.Context) error {
	s.logger.Info().Msg("intelligence service starting")
	err := s.coordinator.Run(ctx)
	s.logger.Info().Msg("intelligence service stopped")
	return err
}

// String identifies the service in supervisor logs.
func (s *IntelligenceService) String() string {
	return "intelligence-coordinator"
}
