// Shelfwise - Library Catalog Intelligence
// Copyright 2026 Shelfwise Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfwise/shelfwise

package search

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shelfwise/shelfwise/internal/artifact"
	"github.com/shelfwise/shelfwise/internal/intelligence"
	"github.com/shelfwise/shelfwise/internal/models"
)

// memSource is an in-memory intelligence.DataSource for tests.
type memSource struct {
	books []models.Book

	// deleted suppresses GetBook hits to simulate removal after indexing.
	deleted map[uuid.UUID]bool
}

func (m *memSource) ListBooks(ctx context.Context) ([]models.Book, error) {
	return m.books, nil
}

func (m *memSource) ListBorrowEvents(ctx context.Context) ([]models.BorrowEvent, error) {
	return nil, nil
}

func (m *memSource) GetBook(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	if m.deleted[id] {
		return nil, nil
	}
	for i := range m.books {
		if m.books[i].ID == id {
			return &m.books[i], nil
		}
	}
	return nil, nil
}

func (m *memSource) TopBooksByViews(ctx context.Context, limit int) ([]models.Book, error) {
	books := m.books
	if len(books) > limit {
		books = books[:limit]
	}
	return books, nil
}

func catalog() []models.Book {
	return []models.Book{
		{ID: uuid.New(), Title: "The Dragon Throne", Author: "Mira Voss", Genre: "fantasy", Description: "dragons and ancient magic in a crumbling kingdom"},
		{ID: uuid.New(), Title: "Steel Orbits", Author: "J. Calder", Genre: "science fiction", Description: "asteroid miners and orbital politics"},
		{ID: uuid.New(), Title: "Salt and Smoke", Author: "R. Iyer", Genre: "cooking", Description: "coastal recipes and preservation techniques"},
	}
}

func newTestSearch(t *testing.T, src *memSource) *Search {
	t.Helper()
	store, err := artifact.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("artifact.NewStore() error = %v", err)
	}
	return New(Config{}, src, store, NewLocalEmbedder(128), zerolog.Nop())
}

func TestQueryTooShort(t *testing.T) {
	s := newTestSearch(t, &memSource{})

	tests := []string{"", " ", "x", "  a  "}
	for _, query := range tests {
		if _, err := s.Query(context.Background(), query, 5); !errors.Is(err, intelligence.ErrQueryTooShort) {
			t.Errorf("Query(%q) error = %v, want ErrQueryTooShort", query, err)
		}
	}
}

func TestQueryColdIndexReturnsEmpty(t *testing.T) {
	s := newTestSearch(t, &memSource{})

	results, err := s.Query(context.Background(), "dragons", 5)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results from cold index, want 0", len(results))
	}
}

func TestBuildEmptyCatalogIsNotAnError(t *testing.T) {
	s := newTestSearch(t, &memSource{})

	if err := s.Build(context.Background()); err != nil {
		t.Fatalf("Build() on empty catalog error = %v, want nil", err)
	}
	if s.Ready() {
		t.Error("Ready() = true after empty build")
	}
}

func TestQueryExactTextMatchesItsBook(t *testing.T) {
	books := catalog()
	s := newTestSearch(t, &memSource{books: books})
	ctx := context.Background()

	if err := s.Build(ctx); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	// A query identical to a book's indexed text lands on that book at
	// distance 0, so score 1.
	results, err := s.Query(ctx, books[0].EmbeddingText(), 3)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(results) == 0 {
		t.Fatal("no results")
	}
	if results[0].Book.ID != books[0].ID {
		t.Errorf("top result = %q, want %q", results[0].Book.Title, books[0].Title)
	}
	if results[0].Score < 0.999 {
		t.Errorf("top score = %f, want ~1", results[0].Score)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Error("scores are not non-increasing")
		}
	}
}

func TestQueryRanksTopicalOverlapHigher(t *testing.T) {
	books := catalog()
	s := newTestSearch(t, &memSource{books: books})
	ctx := context.Background()

	if err := s.Build(ctx); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	results, err := s.Query(ctx, "dragons ancient magic kingdom", 3)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	posDragon, posCooking := -1, -1
	for i, r := range results {
		switch r.Book.ID {
		case books[0].ID:
			posDragon = i
		case books[2].ID:
			posCooking = i
		}
	}
	if posDragon == -1 {
		t.Fatal("dragon book missing from results")
	}
	if posCooking != -1 && posCooking < posDragon {
		t.Error("cooking book ranked above the topically matching one")
	}
}

func TestQueryHydratesDetachedResults(t *testing.T) {
	books := catalog()
	src := &memSource{books: books, deleted: map[uuid.UUID]bool{books[0].ID: true}}
	s := newTestSearch(t, src)
	ctx := context.Background()

	if err := s.Build(ctx); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	results, err := s.Query(ctx, books[0].EmbeddingText(), 3)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	for _, r := range results {
		if r.Book.ID == books[0].ID {
			if !r.Detached {
				t.Error("removed book served without detached flag")
			}
			if r.Book.Title != books[0].Title {
				t.Errorf("detached title = %q, want indexed snapshot %q", r.Book.Title, books[0].Title)
			}
			return
		}
	}
	t.Fatal("removed book absent from results")
}

func TestQueryDeduplicatesByBookID(t *testing.T) {
	books := catalog()
	// The same book appears twice in the source, as after a bad import.
	books = append(books, books[0])
	s := newTestSearch(t, &memSource{books: books})
	ctx := context.Background()

	if err := s.Build(ctx); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	results, err := s.Query(ctx, books[0].EmbeddingText(), 4)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	seen := make(map[uuid.UUID]int)
	for _, r := range results {
		seen[r.Book.ID]++
	}
	if seen[books[0].ID] != 1 {
		t.Errorf("duplicated book appears %d times, want 1", seen[books[0].ID])
	}
}

func TestSimilarToBookExcludesSelf(t *testing.T) {
	books := catalog()
	s := newTestSearch(t, &memSource{books: books})
	ctx := context.Background()

	if err := s.Build(ctx); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	results, err := s.SimilarToBook(ctx, books[0].ID, 2)
	if err != nil {
		t.Fatalf("SimilarToBook() error = %v", err)
	}
	if len(results) > 2 {
		t.Errorf("got %d results, want at most 2", len(results))
	}
	for _, r := range results {
		if r.Book.ID == books[0].ID {
			t.Error("book recommended as similar to itself")
		}
	}
}

func TestSimilarToBookUnknownIDReturnsEmpty(t *testing.T) {
	books := catalog()
	s := newTestSearch(t, &memSource{books: books})
	ctx := context.Background()

	if err := s.Build(ctx); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	results, err := s.SimilarToBook(ctx, uuid.New(), 5)
	if err != nil {
		t.Fatalf("SimilarToBook() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results for unknown id, want 0", len(results))
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	books := catalog()
	src := &memSource{books: books}
	dir := t.TempDir()
	ctx := context.Background()

	store, err := artifact.NewStore(dir)
	if err != nil {
		t.Fatalf("artifact.NewStore() error = %v", err)
	}
	built := New(Config{}, src, store, NewLocalEmbedder(128), zerolog.Nop())
	if err := built.Build(ctx); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	store2, err := artifact.NewStore(dir)
	if err != nil {
		t.Fatalf("artifact.NewStore() error = %v", err)
	}
	restored := New(Config{}, src, store2, NewLocalEmbedder(128), zerolog.Nop())
	if err := restored.Restore(ctx); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if !restored.Ready() {
		t.Fatal("Ready() = false after restore")
	}

	results, err := restored.Query(ctx, books[1].EmbeddingText(), 1)
	if err != nil {
		t.Fatalf("Query() after restore error = %v", err)
	}
	if len(results) != 1 || results[0].Book.ID != books[1].ID {
		t.Error("restored index does not answer like the built one")
	}
}
