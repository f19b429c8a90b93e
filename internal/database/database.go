// Shelfwise - Library Catalog Intelligence
// Copyright 2026 Shelfwise Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfwise/shelfwise

// Package database implements the DuckDB-backed catalog store. It is the
// concrete intelligence.DataSource behind the trained components and the
// system of record for books and borrow events.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shelfwise/shelfwise/internal/config"
	"github.com/shelfwise/shelfwise/internal/models"
)

// ErrBookNotFound indicates the book id does not exist in the catalog.
var ErrBookNotFound = errors.New("book not found")

// Catalog wraps the DuckDB connection and provides data access methods.
// Safe for concurrent use; database/sql handles connection pooling.
type Catalog struct {
	conn   *sql.DB
	logger zerolog.Logger
}

// New opens (or creates) the catalog database at cfg.Path and runs the
// schema migration.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(cfg *config.DatabaseConfig, logger zerolog.Logger) (*Catalog, error) {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	connStr := fmt.Sprintf(
		"%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, threads, cfg.MaxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	c := &Catalog{
		conn:   conn,
		logger: logger.With().Str("component", "database").Logger(),
	}
	if err := c.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return c, nil
}

// NewMemory opens an in-memory catalog, used by tests.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewMemory(logger zerolog.Logger) (*Catalog, error) {
	conn, err := sql.Open("duckdb", ":memory:?autoinstall_known_extensions=false&autoload_known_extensions=false")
	if err != nil {
		return nil, fmt.Errorf("open in-memory database: %w", err)
	}

	c := &Catalog{
		conn:   conn,
		logger: logger.With().Str("component", "database").Logger(),
	}
	if err := c.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return c, nil
}

// Close releases the database connection.
func (c *Catalog) Close() error {
	return c.conn.Close()
}

// Ping verifies the connection is alive.
func (c *Catalog) Ping(ctx context.Context) error {
	return c.conn.PingContext(ctx)
}

// migrate creates the schema. Statements are idempotent so startup is safe
// against an existing database.
func (c *Catalog) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS books (
			id UUID PRIMARY KEY,
			title VARCHAR NOT NULL,
			author VARCHAR NOT NULL DEFAULT '',
			genre VARCHAR NOT NULL DEFAULT '',
			sub_genre VARCHAR NOT NULL DEFAULT '',
			description VARCHAR NOT NULL DEFAULT '',
			total_copies INTEGER NOT NULL DEFAULT 1,
			available_copies INTEGER NOT NULL DEFAULT 1,
			views INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS borrow_events (
			id UUID PRIMARY KEY,
			book_id UUID NOT NULL,
			user_id UUID NOT NULL,
			borrowed_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_borrow_events_book ON borrow_events(book_id)`,
		`CREATE INDEX IF NOT EXISTS idx_borrow_events_user ON borrow_events(user_id)`,
	}

	for _, stmt := range stmts {
		if _, err := c.conn.Exec(stmt); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}
	}
	return nil
}

const bookColumns = `id, title, author, genre, sub_genre, description, total_copies, available_copies, views`

// ListBooks implements intelligence.DataSource. Books come back in stable
// insertion order so co-indexed model builds are deterministic.
func (c *Catalog) ListBooks(ctx context.Context) ([]models.Book, error) {
	rows, err := c.conn.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanBooks(rows)
}

// ListBorrowEvents implements intelligence.DataSource, oldest first.
func (c *Catalog) ListBorrowEvents(ctx context.Context) ([]models.BorrowEvent, error) {
	rows, err := c.conn.QueryContext(ctx,
		`SELECT id, book_id, user_id, borrowed_at FROM borrow_events ORDER BY borrowed_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list borrow events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []models.BorrowEvent
	for rows.Next() {
		var (
			ev                  models.BorrowEvent
			idStr, bookStr, usr string
		)
		if err := rows.Scan(&idStr, &bookStr, &usr, &ev.BorrowedAt); err != nil {
			return nil, fmt.Errorf("scan borrow event: %w", err)
		}
		if ev.ID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("parse event id: %w", err)
		}
		if ev.BookID, err = uuid.Parse(bookStr); err != nil {
			return nil, fmt.Errorf("parse event book id: %w", err)
		}
		if ev.UserID, err = uuid.Parse(usr); err != nil {
			return nil, fmt.Errorf("parse event user id: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// GetBook implements intelligence.DataSource. Unknown ids return (nil, nil)
// so cold-path callers can degrade instead of erroring.
func (c *Catalog) GetBook(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	row := c.conn.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = ?`, id.String())

	book, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

// TopBooksByViews implements intelligence.DataSource.
func (c *Catalog) TopBooksByViews(ctx context.Context, limit int) ([]models.Book, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := c.conn.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books ORDER BY views DESC, created_at, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("top books: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanBooks(rows)
}

// AddBook inserts a book.
func (c *Catalog) AddBook(ctx context.Context, book *models.Book) error {
	if book.ID == uuid.Nil {
		book.ID = uuid.New()
	}
	_, err := c.conn.ExecContext(ctx,
		`INSERT INTO books (`+bookColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		book.ID.String(), book.Title, book.Author, book.Genre, book.SubGenre,
		book.Description, book.TotalCopies, book.AvailableCopies, book.Views)
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

// AddBorrowEvent records a borrow.
func (c *Catalog) AddBorrowEvent(ctx context.Context, ev *models.BorrowEvent) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.BorrowedAt.IsZero() {
		ev.BorrowedAt = time.Now().UTC()
	}
	_, err := c.conn.ExecContext(ctx,
		`INSERT INTO borrow_events (id, book_id, user_id, borrowed_at) VALUES (?, ?, ?, ?)`,
		ev.ID.String(), ev.BookID.String(), ev.UserID.String(), ev.BorrowedAt)
	if err != nil {
		return fmt.Errorf("insert borrow event: %w", err)
	}
	return nil
}

// IncrementViews bumps a book's view counter.
func (c *Catalog) IncrementViews(ctx context.Context, id uuid.UUID) error {
	res, err := c.conn.ExecContext(ctx,
		`UPDATE books SET views = views + 1 WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrBookNotFound, id)
	}
	return nil
}

// CountBooks returns the catalog size.
func (c *Catalog) CountBooks(ctx context.Context) (int, error) {
	var n int
	if err := c.conn.QueryRowContext(ctx, `SELECT count(*) FROM books`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return n, nil
}

// scanner abstracts sql.Row and sql.Rows for book scanning.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanBook(s scanner) (*models.Book, error) {
	var (
		book  models.Book
		idStr string
	)
	err := s.Scan(&idStr, &book.Title, &book.Author, &book.Genre, &book.SubGenre,
		&book.Description, &book.TotalCopies, &book.AvailableCopies, &book.Views)
	if err != nil {
		return nil, err
	}
	if book.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("parse book id: %w", err)
	}
	return &book, nil
}

func scanBooks(rows *sql.Rows) ([]models.Book, error) {
	var books []models.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, *book)
	}
	return books, rows.Err()
}
