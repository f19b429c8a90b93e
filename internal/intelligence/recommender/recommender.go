// Shelfwise - Library Catalog Intelligence
// Copyright 2026 Shelfwise Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfwise/shelfwise

// Package recommender implements content-based and collaborative book
// recommendations.
//
// Content similarity uses TF-IDF over the catalog metadata (title, author,
// genre, sub-genre, description) with cosine scoring. Collaborative
// suggestions count item co-occurrence among readers with overlapping
// borrow histories.
package recommender

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shelfwise/shelfwise/internal/artifact"
	"github.com/shelfwise/shelfwise/internal/intelligence"
	"github.com/shelfwise/shelfwise/internal/models"
)

// ReasonSimilarContent is attached to content-based results.
const ReasonSimilarContent = "similar content"

// ReasonSimilarReaders is attached to collaborative results.
const ReasonSimilarReaders = "borrowed by similar readers"

// Model is the trained recommender state persisted as an artifact. IDs,
// Refs, and Vectors are co-indexed.
type Model struct {
	IDs     []uuid.UUID
	Refs    []models.BookRef
	Vectors []SparseVector

	Vectorizer *Vectorizer

	// UserItems holds the distinct borrowed book ids per user, in first
	// borrow order.
	UserItems map[uuid.UUID][]uuid.UUID

	BuiltAt time.Time
}

// index returns the ordinal of id, or -1.
func (m *Model) index(id uuid.UUID) int {
	for i, candidate := range m.IDs {
		if candidate == id {
			return i
		}
	}
	return -1
}

// Config tunes the recommender.
type Config struct {
	// MaxVocabulary caps the TF-IDF term space.
	MaxVocabulary int

	// KeepVersions bounds artifact history.
	KeepVersions int
}

// Recommender serves content-based and collaborative recommendations.
// Queries take a shared lock; a completed build swaps the model under the
// exclusive lock, so readers keep serving the previous model during builds.
type Recommender struct {
	cfg       Config
	data      intelligence.DataSource
	artifacts *artifact.Store
	logger    zerolog.Logger

	mu      sync.RWMutex
	model   *Model
	version int

	// buildMu serializes builds without blocking queries
	buildMu   sync.Mutex
	lastError string
}

// New creates a recommender backed by the given data source and artifact
// store.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(cfg Config, data intelligence.DataSource, artifacts *artifact.Store, logger zerolog.Logger) *Recommender {
	if cfg.MaxVocabulary <= 0 {
		cfg.MaxVocabulary = 10000
	}
	if cfg.KeepVersions <= 0 {
		cfg.KeepVersions = 2
	}
	return &Recommender{
		cfg:       cfg,
		data:      data,
		artifacts: artifacts,
		logger:    logger.With().Str("component", "recommender").Logger(),
	}
}

// Name implements intelligence.Component.
func (r *Recommender) Name() string { return intelligence.ComponentRecommender }

// Ready implements intelligence.Component.
func (r *Recommender) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.model != nil
}

// Status implements intelligence.Component.
func (r *Recommender) Status() intelligence.ComponentStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := intelligence.ComponentStatus{
		Name:      intelligence.ComponentRecommender,
		Ready:     r.model != nil,
		Version:   r.version,
		LastError: r.lastError,
	}
	if r.model != nil {
		status.BuiltAt = r.model.BuiltAt
		status.ItemCount = len(r.model.IDs)
	}
	return status
}

// Restore implements intelligence.Component: load the latest artifact and
// serve it.
func (r *Recommender) Restore(ctx context.Context) error {
	var model Model
	meta, err := r.artifacts.Load(ctx, r.Name(), 0, &model)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.model = &model
	r.version = meta.Version
	r.lastError = ""
	r.mu.Unlock()

	r.logger.Info().
		Int("version", meta.Version).
		Int("books", len(model.IDs)).
		Msg("model restored")
	return nil
}

// Build implements intelligence.Component: fit TF-IDF vectors and user
// histories from the data source, persist, and swap the model in.
func (r *Recommender) Build(ctx context.Context) error {
	if !r.buildMu.TryLock() {
		return intelligence.ErrBuildInProgress
	}
	defer r.buildMu.Unlock()

	books, err := r.data.ListBooks(ctx)
	if err != nil {
		return r.fail(fmt.Errorf("list books: %w", err))
	}
	if len(books) == 0 {
		return fmt.Errorf("%w: empty catalog", intelligence.ErrInsufficientData)
	}

	events, err := r.data.ListBorrowEvents(ctx)
	if err != nil {
		return r.fail(fmt.Errorf("list borrow events: %w", err))
	}

	docs := make([]string, len(books))
	ids := make([]uuid.UUID, len(books))
	refs := make([]models.BookRef, len(books))
	for i := range books {
		docs[i] = books[i].ContentText()
		ids[i] = books[i].ID
		refs[i] = books[i].Ref()
	}

	vectorizer := NewVectorizer(r.cfg.MaxVocabulary)
	vectors := vectorizer.Fit(docs)

	model := &Model{
		IDs:        ids,
		Refs:       refs,
		Vectors:    vectors,
		Vectorizer: vectorizer,
		UserItems:  buildUserItems(events),
		BuiltAt:    time.Now(),
	}

	version, err := r.artifacts.Save(ctx, r.Name(), model, artifact.Metadata{
		BuiltAt:   model.BuiltAt,
		ItemCount: len(ids),
	})
	if err != nil {
		return r.fail(fmt.Errorf("save artifact: %w", err))
	}
	if err := r.artifacts.Prune(ctx, r.Name(), r.cfg.KeepVersions); err != nil {
		r.logger.Warn().Err(err).Msg("artifact prune failed")
	}

	r.mu.Lock()
	r.model = model
	r.version = version
	r.lastError = ""
	r.mu.Unlock()

	r.logger.Info().
		Int("version", version).
		Int("books", len(ids)).
		Int("vocabulary", len(vectorizer.Vocabulary)).
		Int("readers", len(model.UserItems)).
		Msg("model built")
	return nil
}

// fail records the error for Status and returns it.
func (r *Recommender) fail(err error) error {
	r.mu.Lock()
	r.lastError = err.Error()
	r.mu.Unlock()
	return err
}

// buildUserItems collects the distinct borrowed book ids per user, keeping
// first-borrow order.
func buildUserItems(events []models.BorrowEvent) map[uuid.UUID][]uuid.UUID {
	seen := make(map[uuid.UUID]map[uuid.UUID]struct{})
	items := make(map[uuid.UUID][]uuid.UUID)
	for _, ev := range events {
		userSeen, ok := seen[ev.UserID]
		if !ok {
			userSeen = make(map[uuid.UUID]struct{})
			seen[ev.UserID] = userSeen
		}
		if _, dup := userSeen[ev.BookID]; dup {
			continue
		}
		userSeen[ev.BookID] = struct{}{}
		items[ev.UserID] = append(items[ev.UserID], ev.BookID)
	}
	return items
}

// SimilarTo returns the n books most similar to the given book by cosine
// similarity of their TF-IDF vectors. An unknown id yields an empty result,
// not an error. Ties keep catalog order.
func (r *Recommender) SimilarTo(bookID uuid.UUID, n int) ([]intelligence.Recommendation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.model == nil {
		return nil, intelligence.ErrNotReady
	}
	if n <= 0 {
		return []intelligence.Recommendation{}, nil
	}

	idx := r.model.index(bookID)
	if idx < 0 {
		return []intelligence.Recommendation{}, nil
	}

	query := r.model.Vectors[idx]
	recs := make([]intelligence.Recommendation, 0, len(r.model.IDs)-1)
	for i := range r.model.IDs {
		if i == idx {
			continue
		}
		recs = append(recs, intelligence.Recommendation{
			Book:   r.model.Refs[i],
			Score:  Dot(query, r.model.Vectors[i]),
			Reason: ReasonSimilarContent,
		})
	}

	// Stable keeps catalog order for equal scores.
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Score > recs[j].Score })
	if len(recs) > n {
		recs = recs[:n]
	}
	return recs, nil
}

// ForUser returns collaborative recommendations: candidate books ranked by
// how often they appear in the histories of readers who share at least one
// book with the user. A user with no history yields an empty result so the
// caller can fall back to popularity.
func (r *Recommender) ForUser(ctx context.Context, userID uuid.UUID, n int) ([]intelligence.Recommendation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.model == nil {
		return nil, intelligence.ErrNotReady
	}
	if n <= 0 {
		return []intelligence.Recommendation{}, nil
	}

	own := r.model.UserItems[userID]
	if len(own) == 0 {
		return []intelligence.Recommendation{}, nil
	}
	ownSet := make(map[uuid.UUID]struct{}, len(own))
	for _, id := range own {
		ownSet[id] = struct{}{}
	}

	counts := make(map[uuid.UUID]int)
	for otherID, items := range r.model.UserItems {
		if otherID == userID {
			continue
		}
		overlap := false
		for _, id := range items {
			if _, ok := ownSet[id]; ok {
				overlap = true
				break
			}
		}
		if !overlap {
			continue
		}
		for _, id := range items {
			if _, ok := ownSet[id]; !ok {
				counts[id]++
			}
		}
	}

	if len(counts) == 0 {
		return []intelligence.Recommendation{}, nil
	}

	maxCount := 0
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}

	// Iterate the catalog so ordering is deterministic.
	recs := make([]intelligence.Recommendation, 0, len(counts))
	for i, id := range r.model.IDs {
		count, ok := counts[id]
		if !ok {
			continue
		}
		recs = append(recs, intelligence.Recommendation{
			Book:   r.model.Refs[i],
			Score:  float64(count) / float64(maxCount),
			Reason: ReasonSimilarReaders,
		})
	}

	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Score > recs[j].Score })
	if len(recs) > n {
		recs = recs[:n]
	}
	return recs, nil
}
