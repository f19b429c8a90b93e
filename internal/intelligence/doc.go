// Shelfwise - Library Catalog Intelligence
// Copyright 2026 Shelfwise Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfwise/shelfwise

// Package intelligence coordinates the trained components of the catalog:
// the content recommender, the semantic search index, and the demand
// predictor.
//
// The package defines the shared vocabulary (DataSource, result types,
// sentinel errors) and the Coordinator, which owns the model lifecycle:
// restore-else-build at startup, scheduled rebuilds, and administrative
// rebuild triggers delivered over the event bus.
//
// # Component Independence
//
// Each component trains, persists, and fails independently. A corrupt or
// missing artifact for one component never blocks the others; a failed
// build leaves the previously served model untouched.
//
// # Thread Safety
//
// Components guard their trained state with a read-write lock: queries take
// the shared lock, a completed build swaps the state under the exclusive
// lock. Builds of the same component never overlap.
package intelligence
