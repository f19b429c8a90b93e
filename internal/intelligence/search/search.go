// Shelfwise - Library Catalog Intelligence
// Copyright 2026 Shelfwise Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfwise/shelfwise

// Package search implements embedding-based semantic search over the
// catalog.
//
// Books are embedded from a structured text rendering of their metadata and
// stored in an exact L2 index. Queries embed the free-text input, fetch a
// 2x overfetch of neighbors, dedupe, and hydrate results against live
// storage, falling back to the snapshot captured at index time.
package search

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shelfwise/shelfwise/internal/artifact"
	"github.com/shelfwise/shelfwise/internal/intelligence"
	"github.com/shelfwise/shelfwise/internal/models"
)

// Model is the trained search state persisted as an artifact. IDs, Refs,
// and Vectors are co-indexed by ordinal.
type Model struct {
	IDs       []uuid.UUID
	Refs      []models.BookRef
	Vectors   [][]float32
	Dimension int
	BuiltAt   time.Time
}

// Config tunes the search component.
type Config struct {
	// MinQueryLength rejects degenerate queries.
	MinQueryLength int

	// KeepVersions bounds artifact history.
	KeepVersions int
}

// Search serves semantic queries against the embedded catalog. Queries take
// a shared lock; builds swap the model and index under the exclusive lock.
type Search struct {
	cfg       Config
	data      intelligence.DataSource
	artifacts *artifact.Store
	embedder  Embedder
	logger    zerolog.Logger

	mu      sync.RWMutex
	model   *Model
	index   *flatIndex
	version int

	buildMu   sync.Mutex
	lastError string
}

// New creates a search component.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(cfg Config, data intelligence.DataSource, artifacts *artifact.Store, embedder Embedder, logger zerolog.Logger) *Search {
	if cfg.MinQueryLength <= 0 {
		cfg.MinQueryLength = 2
	}
	if cfg.KeepVersions <= 0 {
		cfg.KeepVersions = 2
	}
	return &Search{
		cfg:       cfg,
		data:      data,
		artifacts: artifacts,
		embedder:  embedder,
		logger:    logger.With().Str("component", "search").Logger(),
	}
}

// Name implements intelligence.Component.
func (s *Search) Name() string { return intelligence.ComponentSearch }

// Ready implements intelligence.Component.
func (s *Search) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model != nil
}

// Status implements intelligence.Component.
func (s *Search) Status() intelligence.ComponentStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := intelligence.ComponentStatus{
		Name:      intelligence.ComponentSearch,
		Ready:     s.model != nil,
		Version:   s.version,
		LastError: s.lastError,
	}
	if s.model != nil {
		status.BuiltAt = s.model.BuiltAt
		status.ItemCount = len(s.model.IDs)
	}
	return status
}

// Restore implements intelligence.Component.
func (s *Search) Restore(ctx context.Context) error {
	var model Model
	meta, err := s.artifacts.Load(ctx, s.Name(), 0, &model)
	if err != nil {
		return err
	}

	s.swap(&model, meta.Version)
	s.logger.Info().
		Int("version", meta.Version).
		Int("books", len(model.IDs)).
		Msg("index restored")
	return nil
}

// Build implements intelligence.Component: embed every book and rebuild the
// index. An empty catalog logs a warning and leaves readiness unchanged
// without error, so a not-yet-populated deployment starts cleanly.
func (s *Search) Build(ctx context.Context) error {
	if !s.buildMu.TryLock() {
		return intelligence.ErrBuildInProgress
	}
	defer s.buildMu.Unlock()

	books, err := s.data.ListBooks(ctx)
	if err != nil {
		return s.fail(fmt.Errorf("list books: %w", err))
	}
	if len(books) == 0 {
		s.logger.Warn().Msg("no books to index, search stays cold")
		return nil
	}

	texts := make([]string, len(books))
	ids := make([]uuid.UUID, len(books))
	refs := make([]models.BookRef, len(books))
	for i := range books {
		texts[i] = books[i].EmbeddingText()
		ids[i] = books[i].ID
		refs[i] = books[i].Ref()
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return s.fail(fmt.Errorf("embed catalog: %w", err))
	}

	model := &Model{
		IDs:       ids,
		Refs:      refs,
		Vectors:   vectors,
		Dimension: s.embedder.Dimension(),
		BuiltAt:   time.Now(),
	}

	version, err := s.artifacts.Save(ctx, s.Name(), model, artifact.Metadata{
		BuiltAt:   model.BuiltAt,
		ItemCount: len(ids),
	})
	if err != nil {
		return s.fail(fmt.Errorf("save artifact: %w", err))
	}
	if err := s.artifacts.Prune(ctx, s.Name(), s.cfg.KeepVersions); err != nil {
		s.logger.Warn().Err(err).Msg("artifact prune failed")
	}

	s.swap(model, version)
	s.logger.Info().
		Int("version", version).
		Int("books", len(ids)).
		Int("dimension", model.Dimension).
		Msg("index built")
	return nil
}

// swap publishes a new model and rebuilds the in-memory index.
func (s *Search) swap(model *Model, version int) {
	index := newFlatIndex(model.Dimension)
	index.add(model.Vectors)

	s.mu.Lock()
	s.model = model
	s.index = index
	s.version = version
	s.lastError = ""
	s.mu.Unlock()
}

// fail records the error for Status and returns it.
func (s *Search) fail(err error) error {
	s.mu.Lock()
	s.lastError = err.Error()
	s.mu.Unlock()
	return err
}

// Query runs a semantic search. Queries below the minimum length fail
// validation; a cold index yields an empty result rather than an error.
// Results are hydrated against live storage where the book still exists,
// otherwise served detached from the index-time snapshot.
func (s *Search) Query(ctx context.Context, query string, limit int) ([]intelligence.SearchResult, error) {
	query = strings.TrimSpace(query)
	if len(query) < s.cfg.MinQueryLength {
		return nil, fmt.Errorf("%w: need at least %d characters", intelligence.ErrQueryTooShort, s.cfg.MinQueryLength)
	}
	if limit <= 0 {
		limit = 10
	}

	s.mu.RLock()
	model, index := s.model, s.index
	s.mu.RUnlock()

	if model == nil {
		return []intelligence.SearchResult{}, nil
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// Overfetch so deduplication still fills the requested limit.
	hits := index.search(vectors[0], 2*limit)

	results := make([]intelligence.SearchResult, 0, limit)
	seen := make(map[uuid.UUID]struct{}, len(hits))
	for _, hit := range hits {
		id := model.IDs[hit.ordinal]
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		result := intelligence.SearchResult{
			Book:  model.Refs[hit.ordinal],
			Score: 1 / (1 + hit.distance),
		}
		if live, err := s.data.GetBook(ctx, id); err == nil && live != nil {
			result.Book = live.Ref()
		} else {
			result.Detached = true
		}

		results = append(results, result)
		if len(results) == limit {
			break
		}
	}
	return results, nil
}

// SimilarToBook finds books near the given one by re-embedding a query
// built from its indexed title and author. An unknown id yields an empty
// result.
func (s *Search) SimilarToBook(ctx context.Context, bookID uuid.UUID, limit int) ([]intelligence.SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	s.mu.RLock()
	model := s.model
	s.mu.RUnlock()

	if model == nil {
		return []intelligence.SearchResult{}, nil
	}

	var ref *models.BookRef
	for i := range model.IDs {
		if model.IDs[i] == bookID {
			ref = &model.Refs[i]
			break
		}
	}
	if ref == nil {
		return []intelligence.SearchResult{}, nil
	}

	query := fmt.Sprintf("Title: %s. Author: %s.", ref.Title, ref.Author)
	results, err := s.Query(ctx, query, limit+1)
	if err != nil {
		return nil, err
	}

	filtered := results[:0]
	for _, r := range results {
		if r.Book.ID == bookID {
			continue
		}
		filtered = append(filtered, r)
	}
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered, nil
}
