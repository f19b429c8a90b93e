// Shelfwise - Library Catalog Intelligence
// Copyright 2026 Shelfwise Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfwise/shelfwise

// Package forecaststore persists the latest demand forecast per book in
// BadgerDB, so the most recent forecast survives restarts and can be read
// without re-running the predictor.
package forecaststore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shelfwise/shelfwise/internal/intelligence"
)

// forecastKeyPrefix namespaces forecast entries in the shared keyspace.
const forecastKeyPrefix = "forecast:"

// ErrForecastNotFound indicates no snapshot exists for the book.
var ErrForecastNotFound = errors.New("forecast not found")

// Store keeps the latest forecast per book. It implements
// predictor.SnapshotSink.
type Store struct {
	db     *badger.DB
	logger zerolog.Logger
}

// Open opens (or creates) the store at path. An empty path opens an
// in-memory store, used by tests.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func Open(path string, logger zerolog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open forecast store: %w", err)
	}
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "forecaststore").Logger(),
	}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutForecast stores the forecast as the latest snapshot for its book.
func (s *Store) PutForecast(ctx context.Context, f intelligence.Forecast) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal forecast: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(f.BookID), data)
	})
}

// GetForecast returns the latest snapshot for the book, or
// ErrForecastNotFound.
func (s *Store) GetForecast(ctx context.Context, bookID uuid.UUID) (*intelligence.Forecast, error) {
	var forecast intelligence.Forecast

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(bookID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrForecastNotFound, bookID)
		}
		if err != nil {
			return fmt.Errorf("get forecast: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &forecast)
		})
	})
	if err != nil {
		return nil, err
	}
	return &forecast, nil
}

// ListForecasts returns every stored snapshot.
func (s *Store) ListForecasts(ctx context.Context) ([]intelligence.Forecast, error) {
	var forecasts []intelligence.Forecast

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(forecastKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var f intelligence.Forecast
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &f)
			})
			if err != nil {
				s.logger.Warn().Err(err).Msg("skipping undecodable forecast entry")
				continue
			}
			forecasts = append(forecasts, f)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return forecasts, nil
}

// DeleteForecast removes the snapshot for a book. Deleting a missing entry
// is not an error.
func (s *Store) DeleteForecast(ctx context.Context, bookID uuid.UUID) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(bookID))
	})
}

func key(bookID uuid.UUID) []byte {
	return []byte(forecastKeyPrefix + bookID.String())
}
