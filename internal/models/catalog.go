// Shelfwise - Library Catalog Intelligence
// Copyright 2026 Shelfwise Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfwise/shelfwise

// Package models defines the catalog domain types shared across Shelfwise.
//
// The intelligence core treats these as read-only inputs: Book and
// BorrowEvent are owned by the storage layer and fetched in bulk at model
// build time. BookRef is a detached, display-only variant used when live
// storage is unavailable at query time.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Book is a single catalog item.
type Book struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	Genre           string    `json:"genre"`
	SubGenre        string    `json:"sub_genre,omitempty"`
	Description     string    `json:"description,omitempty"`
	TotalCopies     int       `json:"total_copies"`
	AvailableCopies int       `json:"available_copies"`

	// Views is the popularity signal: how often the book has been
	// viewed or borrowed.
	Views int `json:"views"`
}

// ContentText returns the concatenated textual fields used for
// term-weighted vectorization. Absent fields contribute nothing.
func (b *Book) ContentText() string {
	parts := make([]string, 0, 5)
	for _, s := range []string{b.Title, b.Author, b.Genre, b.SubGenre, b.Description} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// EmbeddingText returns the descriptive text embedded for semantic search.
// Description is truncated so one very long blurb does not dominate the
// embedding input.
func (b *Book) EmbeddingText() string {
	var sb strings.Builder
	sb.WriteString("Title: ")
	sb.WriteString(b.Title)
	sb.WriteString(". Author: ")
	sb.WriteString(b.Author)
	sb.WriteString(". Genre: ")
	sb.WriteString(b.Genre)
	sb.WriteString(".")
	if b.Description != "" {
		desc := b.Description
		if len(desc) > 200 {
			desc = desc[:200]
		}
		sb.WriteString(" Description: ")
		sb.WriteString(desc)
	}
	if b.SubGenre != "" {
		sb.WriteString(" Sub-genre: ")
		sb.WriteString(b.SubGenre)
		sb.WriteString(".")
	}
	return sb.String()
}

// Ref returns the detached record for this book.
func (b *Book) Ref() BookRef {
	return BookRef{
		ID:     b.ID,
		Title:  b.Title,
		Author: b.Author,
		Genre:  b.Genre,
	}
}

// BookRef is a detached record carrying only the fields needed for display.
// It is deliberately distinct from Book at the type level: a BookRef may be
// served from a model artifact's cached metadata when the catalog store
// cannot be reached, and must never be mistaken for a live catalog row.
type BookRef struct {
	ID     uuid.UUID `json:"id"`
	Title  string    `json:"title"`
	Author string    `json:"author"`
	Genre  string    `json:"genre"`
}

// BorrowEvent records one borrow action. One event per consumption; the
// demand predictor derives its training label from the event's existence.
type BorrowEvent struct {
	ID         uuid.UUID `json:"id"`
	BookID     uuid.UUID `json:"book_id"`
	UserID     uuid.UUID `json:"user_id"`
	BorrowedAt time.Time `json:"borrowed_at"`
}
