// Shelfwise - Library Catalog Intelligence
// Copyright 2026 Shelfwise Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfwise/shelfwise

// Package predictor forecasts borrowing demand per book.
//
// Training derives one feature row per historical borrow event (genre,
// author, calendar features, popularity ratio) with a constant positive
// label, and fits a least-squares linear model. The constant label makes
// the regression degenerate by construction: the model learns to output ~1
// for in-distribution rows, and the forecast pipeline scales that into
// demand units. This mirrors the behavior of the system it replaces and is
// kept deliberately; see the demand scaling in Predict.
package predictor

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shelfwise/shelfwise/internal/artifact"
	"github.com/shelfwise/shelfwise/internal/intelligence"
	"github.com/shelfwise/shelfwise/internal/models"
)

// maxAuthorLength bounds the author value used as a categorical feature.
const maxAuthorLength = 50

// topPredictionsHorizon is the forecast window used by TopPredictions.
const topPredictionsHorizon = 3

// Model is the trained predictor state persisted as an artifact.
type Model struct {
	Regression  *LinearModel
	GenreCoder  *LabelEncoder
	AuthorCoder *LabelEncoder
	SampleCount int
	BuiltAt     time.Time
}

// SnapshotSink receives generated forecasts for persistence. Implemented by
// the forecast store; a nil sink disables snapshotting.
type SnapshotSink interface {
	PutForecast(ctx context.Context, f intelligence.Forecast) error
}

// Config tunes the predictor.
type Config struct {
	// MinBorrowEvents gates training.
	MinBorrowEvents int

	// KeepVersions bounds artifact history.
	KeepVersions int
}

// Predictor serves demand forecasts. Queries take a shared lock; builds
// swap the model under the exclusive lock.
type Predictor struct {
	cfg       Config
	data      intelligence.DataSource
	artifacts *artifact.Store
	sink      SnapshotSink
	logger    zerolog.Logger

	// now is swappable for deterministic tests
	now func() time.Time

	mu      sync.RWMutex
	model   *Model
	version int

	buildMu   sync.Mutex
	lastError string
}

// New creates a predictor. sink may be nil.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(cfg Config, data intelligence.DataSource, artifacts *artifact.Store, sink SnapshotSink, logger zerolog.Logger) *Predictor {
	if cfg.MinBorrowEvents <= 0 {
		cfg.MinBorrowEvents = 100
	}
	if cfg.KeepVersions <= 0 {
		cfg.KeepVersions = 2
	}
	return &Predictor{
		cfg:       cfg,
		data:      data,
		artifacts: artifacts,
		sink:      sink,
		logger:    logger.With().Str("component", "predictor").Logger(),
		now:       time.Now,
	}
}

// Name implements intelligence.Component.
func (p *Predictor) Name() string { return intelligence.ComponentPredictor }

// Ready implements intelligence.Component.
func (p *Predictor) Ready() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.model != nil
}

// Status implements intelligence.Component.
func (p *Predictor) Status() intelligence.ComponentStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	status := intelligence.ComponentStatus{
		Name:      intelligence.ComponentPredictor,
		Ready:     p.model != nil,
		Version:   p.version,
		LastError: p.lastError,
	}
	if p.model != nil {
		status.BuiltAt = p.model.BuiltAt
		status.ItemCount = p.model.SampleCount
	}
	return status
}

// Restore implements intelligence.Component.
func (p *Predictor) Restore(ctx context.Context) error {
	var model Model
	meta, err := p.artifacts.Load(ctx, p.Name(), 0, &model)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.model = &model
	p.version = meta.Version
	p.lastError = ""
	p.mu.Unlock()

	p.logger.Info().
		Int("version", meta.Version).
		Int("samples", model.SampleCount).
		Msg("model restored")
	return nil
}

// Build implements intelligence.Component: derive feature rows from the
// borrow history and fit the regression.
func (p *Predictor) Build(ctx context.Context) error {
	if !p.buildMu.TryLock() {
		return intelligence.ErrBuildInProgress
	}
	defer p.buildMu.Unlock()

	events, err := p.data.ListBorrowEvents(ctx)
	if err != nil {
		return p.fail(fmt.Errorf("list borrow events: %w", err))
	}
	if len(events) < p.cfg.MinBorrowEvents {
		return fmt.Errorf("%w: %d borrow events, need %d",
			intelligence.ErrInsufficientData, len(events), p.cfg.MinBorrowEvents)
	}

	books, err := p.data.ListBooks(ctx)
	if err != nil {
		return p.fail(fmt.Errorf("list books: %w", err))
	}
	byID := make(map[uuid.UUID]*models.Book, len(books))
	for i := range books {
		byID[books[i].ID] = &books[i]
	}

	type sample struct {
		genre, author string
		at            time.Time
		popularity    float64
	}
	samples := make([]sample, 0, len(events))
	genres := make([]string, 0, len(events))
	authors := make([]string, 0, len(events))
	for _, ev := range events {
		book, ok := byID[ev.BookID]
		if !ok {
			continue
		}
		s := sample{
			genre:      book.Genre,
			author:     truncateAuthor(book.Author),
			at:         ev.BorrowedAt,
			popularity: popularityRatio(book),
		}
		samples = append(samples, s)
		genres = append(genres, s.genre)
		authors = append(authors, s.author)
	}
	if len(samples) == 0 {
		return fmt.Errorf("%w: no events reference known books", intelligence.ErrInsufficientData)
	}

	genreCoder := FitLabelEncoder(genres)
	authorCoder := FitLabelEncoder(authors)

	x := make([][]float64, len(samples))
	y := make([]float64, len(samples))
	for i, s := range samples {
		x[i] = featureRow(genreCoder.Encode(s.genre), authorCoder.Encode(s.author), s.at, s.popularity)
		// Every observed borrow is a demand occurrence; there are no
		// negative rows in the history, so the label is constant.
		y[i] = 1
	}

	regression, err := fitLinear(x, y)
	if err != nil {
		return p.fail(fmt.Errorf("fit regression: %w", err))
	}

	model := &Model{
		Regression:  regression,
		GenreCoder:  genreCoder,
		AuthorCoder: authorCoder,
		SampleCount: len(samples),
		BuiltAt:     time.Now(),
	}

	version, err := p.artifacts.Save(ctx, p.Name(), model, artifact.Metadata{
		BuiltAt:   model.BuiltAt,
		ItemCount: len(samples),
	})
	if err != nil {
		return p.fail(fmt.Errorf("save artifact: %w", err))
	}
	if err := p.artifacts.Prune(ctx, p.Name(), p.cfg.KeepVersions); err != nil {
		p.logger.Warn().Err(err).Msg("artifact prune failed")
	}

	p.mu.Lock()
	p.model = model
	p.version = version
	p.lastError = ""
	p.mu.Unlock()

	p.logger.Info().
		Int("version", version).
		Int("samples", len(samples)).
		Int("genres", len(genreCoder.Classes)).
		Msg("model built")
	return nil
}

// fail records the error for Status and returns it.
func (p *Predictor) fail(err error) error {
	p.mu.Lock()
	p.lastError = err.Error()
	p.mu.Unlock()
	return err
}

// featureRow builds the numeric feature vector for one (book, date) pair.
// Column order: genre, author, month, weekday, weekend, holiday, popularity.
func featureRow(genre, author float64, at time.Time, popularity float64) []float64 {
	weekday := float64((int(at.Weekday()) + 6) % 7) // Monday=0 .. Sunday=6
	weekend := 0.0
	if weekday >= 5 {
		weekend = 1
	}
	holiday := 0.0
	if isHoliday(at) {
		holiday = 1
	}
	return []float64{genre, author, float64(at.Month()), weekday, weekend, holiday, popularity}
}

func popularityRatio(book *models.Book) float64 {
	copies := book.TotalCopies
	if copies < 1 {
		copies = 1
	}
	return float64(book.Views) / float64(copies)
}

func truncateAuthor(author string) string {
	if len(author) > maxAuthorLength {
		return author[:maxAuthorLength]
	}
	return author
}

// Predict forecasts daily demand for a book over the next daysAhead days,
// starting today. Cold model and unknown book return structured results,
// not errors, so the API can answer 200. The generated forecast is written
// to the snapshot sink when one is configured.
func (p *Predictor) Predict(ctx context.Context, bookID uuid.UUID, daysAhead int) (*intelligence.Forecast, error) {
	if daysAhead <= 0 {
		daysAhead = 7
	}

	p.mu.RLock()
	model := p.model
	p.mu.RUnlock()

	if model == nil {
		return &intelligence.Forecast{BookID: bookID, Status: intelligence.ForecastNotInitialized}, nil
	}

	book, err := p.data.GetBook(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	if book == nil {
		return &intelligence.Forecast{BookID: bookID, Status: intelligence.ForecastNotFound}, nil
	}

	genre := model.GenreCoder.Encode(book.Genre)
	author := model.AuthorCoder.Encode(truncateAuthor(book.Author))
	popularity := popularityRatio(book)

	today := p.now()
	horizon := make([]intelligence.DailyDemand, 0, daysAhead)
	demandSum := 0
	for i := 0; i < daysAhead; i++ {
		day := today.AddDate(0, 0, i)
		raw := model.Regression.Predict(featureRow(genre, author, day, popularity))

		// Raw response scales x10 into demand units, truncated, floored
		// at zero. Confidence is the raw response capped at 0.9.
		demand := int(raw * 10)
		if demand < 0 {
			demand = 0
		}
		confidence := math.Min(0.9, raw)

		demandSum += demand
		horizon = append(horizon, intelligence.DailyDemand{
			Date:       day.Format("2006-01-02"),
			Demand:     demand,
			Confidence: confidence,
		})
	}

	avg := float64(demandSum) / float64(daysAhead)
	recommended := int(avg * 1.5)
	if book.TotalCopies > recommended {
		recommended = book.TotalCopies
	}
	stockStatus := "low"
	if float64(book.AvailableCopies) >= avg {
		stockStatus = "adequate"
	}

	forecast := &intelligence.Forecast{
		BookID:           bookID,
		Title:            book.Title,
		Status:           intelligence.ForecastOK,
		Horizon:          horizon,
		AvgDailyDemand:   math.Round(avg*100) / 100,
		RecommendedStock: recommended,
		StockStatus:      stockStatus,
		GeneratedAt:      today,
	}

	if p.sink != nil {
		if err := p.sink.PutForecast(ctx, *forecast); err != nil {
			p.logger.Warn().Err(err).Str("book_id", bookID.String()).Msg("forecast snapshot failed")
		}
	}
	return forecast, nil
}

// TopPredictions forecasts the most-viewed books over a 3-day horizon.
// Books whose forecast is not OK are dropped rather than failing the batch.
func (p *Predictor) TopPredictions(ctx context.Context, limit int) ([]intelligence.Forecast, error) {
	if limit <= 0 {
		limit = 5
	}

	books, err := p.data.TopBooksByViews(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("top books: %w", err)
	}

	forecasts := make([]intelligence.Forecast, 0, len(books))
	for i := range books {
		forecast, err := p.Predict(ctx, books[i].ID, topPredictionsHorizon)
		if err != nil {
			p.logger.Warn().Err(err).Str("book_id", books[i].ID.String()).Msg("forecast skipped")
			continue
		}
		if forecast.Status != intelligence.ForecastOK {
			continue
		}
		forecasts = append(forecasts, *forecast)
	}
	return forecasts, nil
}
