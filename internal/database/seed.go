// Shelfwise - Library Catalog Intelligence
// Copyright 2026 Shelfwise Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfwise/shelfwise

package database

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/shelfwise/shelfwise/internal/models"
)

// SeedSampleData populates an empty catalog with a small development
// dataset: a spread of genres plus enough borrow history to train the
// demand predictor. A non-empty catalog is left untouched.
func (c *Catalog) SeedSampleData(ctx context.Context) error {
	n, err := c.CountBooks(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		c.logger.Debug().Int("books", n).Msg("catalog already populated, seed skipped")
		return nil
	}

	books := sampleBooks()
	for i := range books {
		if err := c.AddBook(ctx, &books[i]); err != nil {
			return fmt.Errorf("seed book: %w", err)
		}
	}

	// Deterministic history: a fixed seed keeps development databases
	// comparable across machines.
	rng := rand.New(rand.NewSource(42)) //nolint:gosec // sample data only
	readers := make([]uuid.UUID, 12)
	for i := range readers {
		readers[i] = uuid.New()
	}

	start := time.Now().UTC().AddDate(0, -6, 0)
	for i := 0; i < 160; i++ {
		book := books[rng.Intn(len(books))]
		ev := models.BorrowEvent{
			BookID:     book.ID,
			UserID:     readers[rng.Intn(len(readers))],
			BorrowedAt: start.AddDate(0, 0, rng.Intn(180)),
		}
		if err := c.AddBorrowEvent(ctx, &ev); err != nil {
			return fmt.Errorf("seed borrow event: %w", err)
		}
	}

	c.logger.Info().Int("books", len(books)).Int("events", 160).Msg("sample data seeded")
	return nil
}

func sampleBooks() []models.Book {
	return []models.Book{
		{Title: "The Dragon Throne", Author: "Mira Voss", Genre: "fantasy", SubGenre: "epic", Description: "Dragons and ancient magic in a crumbling kingdom.", TotalCopies: 5, AvailableCopies: 4, Views: 220},
		{Title: "Crown of Embers", Author: "Mira Voss", Genre: "fantasy", SubGenre: "epic", Description: "A young queen wields ancient magic against dragons.", TotalCopies: 3, AvailableCopies: 3, Views: 180},
		{Title: "Steel Orbits", Author: "J. Calder", Genre: "science fiction", SubGenre: "hard sf", Description: "Asteroid miners caught in orbital politics.", TotalCopies: 4, AvailableCopies: 2, Views: 150},
		{Title: "The Silent Array", Author: "J. Calder", Genre: "science fiction", SubGenre: "first contact", Description: "A radio telescope hears something answer back.", TotalCopies: 2, AvailableCopies: 2, Views: 95},
		{Title: "The Quiet Ledger", Author: "A. Brandt", Genre: "mystery", SubGenre: "cozy", Description: "An accountant uncovers a small town conspiracy.", TotalCopies: 3, AvailableCopies: 1, Views: 130},
		{Title: "Harbor Lights", Author: "N. Okafor", Genre: "romance", SubGenre: "contemporary", Description: "Two lighthouse keepers, one winter.", TotalCopies: 2, AvailableCopies: 2, Views: 75},
		{Title: "Salt and Smoke", Author: "R. Iyer", Genre: "cooking", SubGenre: "regional", Description: "Coastal recipes and preservation techniques.", TotalCopies: 2, AvailableCopies: 2, Views: 60},
		{Title: "Monsoon Roads", Author: "R. Iyer", Genre: "travel", SubGenre: "memoir", Description: "A season riding the western ghats.", TotalCopies: 1, AvailableCopies: 1, Views: 45},
	}
}
