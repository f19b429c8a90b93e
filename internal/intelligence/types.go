// Shelfwise - Library Catalog Intelligence
// Copyright 2026 Shelfwise Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfwise/shelfwise

package intelligence

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/shelfwise/shelfwise/internal/models"
)

// Note: this package depends on the database layer only through DataSource,
// so the components stay testable with in-memory fixtures and no circular
// imports arise.

// DataSource provides catalog data for training and hydration. Implemented
// by the database layer.
type DataSource interface {
	// ListBooks returns the full catalog.
	ListBooks(ctx context.Context) ([]models.Book, error)

	// ListBorrowEvents returns the borrow history, oldest first.
	ListBorrowEvents(ctx context.Context) ([]models.BorrowEvent, error)

	// GetBook returns one book, or nil when the id is unknown.
	GetBook(ctx context.Context, id uuid.UUID) (*models.Book, error)

	// TopBooksByViews returns the most-viewed books, descending.
	TopBooksByViews(ctx context.Context, limit int) ([]models.Book, error)
}

// Readiness maps component name to whether it can serve queries.
type Readiness map[string]bool

// Component names used for readiness, metrics, and artifact files.
const (
	ComponentRecommender = "recommender"
	ComponentSearch      = "search"
	ComponentPredictor   = "predictor"
)

// Component is the lifecycle surface every intelligence component exposes
// to the Coordinator. Query methods stay on the concrete types.
type Component interface {
	// Name returns the component identifier.
	Name() string

	// Ready reports whether a trained model is being served.
	Ready() bool

	// Restore loads the latest persisted artifact. Absent or corrupt
	// artifacts surface as errors; the caller falls back to Build.
	Restore(ctx context.Context) error

	// Build trains a fresh model from the data source and swaps it in.
	// Returns ErrBuildInProgress when a build is already running and
	// ErrInsufficientData when the source has too little data.
	Build(ctx context.Context) error

	// Status returns a point-in-time snapshot of the component state.
	Status() ComponentStatus
}

// ComponentStatus is a point-in-time snapshot of one component.
type ComponentStatus struct {
	Name      string    `json:"name"`
	Ready     bool      `json:"ready"`
	Version   int       `json:"version"`
	BuiltAt   time.Time `json:"built_at"`
	ItemCount int       `json:"item_count"`
	LastError string    `json:"last_error,omitempty"`
}

// Recommendation is one scored suggestion.
type Recommendation struct {
	Book   models.BookRef `json:"book"`
	Score  float64        `json:"score"`
	Reason string         `json:"reason"`
}

// SearchResult is one semantic search hit. Book carries the live catalog
// record when the id still resolves; Detached marks results served from the
// snapshot captured at index time.
type SearchResult struct {
	Book     models.BookRef `json:"book"`
	Score    float64        `json:"score"`
	Detached bool           `json:"detached,omitempty"`
}

// ForecastStatus values for Forecast.Status.
const (
	ForecastOK             = "ok"
	ForecastNotInitialized = "not_initialized"
	ForecastNotFound       = "not_found"
)

// DailyDemand is one day of a demand forecast.
type DailyDemand struct {
	Date       string  `json:"date"` // YYYY-MM-DD
	Demand     int     `json:"predicted_demand"`
	Confidence float64 `json:"confidence"`
}

// Forecast is a demand forecast for one book. Status distinguishes a real
// forecast from the structured cold-start and unknown-book results.
type Forecast struct {
	BookID           uuid.UUID     `json:"book_id"`
	Title            string        `json:"title,omitempty"`
	Status           string        `json:"status"`
	Horizon          []DailyDemand `json:"forecast,omitempty"`
	AvgDailyDemand   float64       `json:"avg_daily_demand"`
	RecommendedStock int           `json:"recommended_stock"`
	StockStatus      string        `json:"stock_status,omitempty"` // "adequate" or "low"
	GeneratedAt      time.Time     `json:"generated_at"`
}
