// Shelfwise - Library Catalog Intelligence
// Copyright 2026 Shelfwise Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfwise/shelfwise

package intelligence

import (
	"errors"

	"github.com/shelfwise/shelfwise/internal/artifact"
)

// Sentinel errors shared by the intelligence components. API handlers map
// these to soft responses (empty payloads, fallbacks) rather than 5xx.
var (
	// ErrNotReady indicates the component has no trained model to serve.
	ErrNotReady = errors.New("model not ready")

	// ErrInsufficientData indicates the data source did not provide enough
	// rows to train on. The component's readiness is left unchanged.
	ErrInsufficientData = errors.New("insufficient training data")

	// ErrUnknownEntity indicates the requested book or user is not part of
	// the trained model.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrBuildInProgress indicates a build for the component is already
	// running. The duplicate attempt is skipped, not queued.
	ErrBuildInProgress = errors.New("build already in progress")

	// ErrQueryTooShort indicates a semantic search query below the minimum
	// length.
	ErrQueryTooShort = errors.New("query too short")

	// ErrArtifactCorrupt is the artifact store's corruption sentinel. The
	// coordinator treats it the same as a missing artifact.
	ErrArtifactCorrupt = artifact.ErrCorrupt
)
