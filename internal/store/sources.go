// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/waypost/internal/models"
)

// SourceStore is the persistent catalog of location sources.
type SourceStore struct {
	db *badger.DB
}

// Create stores a new source together with its user index entry.
func (s *SourceStore) Create(ctx context.Context, source *models.Source) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return putSource(txn, source)
	})
}

// Update rewrites an existing source record. Name, sync state, and the
// active flag commit as one unit.
func (s *SourceStore) Update(ctx context.Context, source *models.Source) error {
	source.UpdatedAt = time.Now().UTC()
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(sourceKey(source.ID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrSourceNotFound
			}
			return fmt.Errorf("get source: %w", err)
		}
		return putSource(txn, source)
	})
}

// putSource writes the source record and its index entries inside txn.
func putSource(txn *badger.Txn, source *models.Source) error {
	data, err := json.Marshal(source)
	if err != nil {
		return fmt.Errorf("marshal source: %w", err)
	}
	if err := txn.Set(sourceKey(source.ID), data); err != nil {
		return fmt.Errorf("set source: %w", err)
	}
	if err := txn.Set(sourceUserKey(source.UserID, source.ID), []byte(source.ID)); err != nil {
		return fmt.Errorf("set source user index: %w", err)
	}
	return nil
}

// Get retrieves a source by ID.
func (s *SourceStore) Get(ctx context.Context, id string) (*models.Source, error) {
	var source models.Source
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sourceKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrSourceNotFound
		}
		if err != nil {
			return fmt.Errorf("get source: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &source)
		})
	})
	if err != nil {
		return nil, err
	}
	return &source, nil
}

// ListActiveByType returns all active sources of the given type.
func (s *SourceStore) ListActiveByType(ctx context.Context, sourceType models.SourceType) ([]*models.Source, error) {
	var sources []*models.Source
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(sourceKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var source models.Source
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &source)
			})
			if err != nil {
				return fmt.Errorf("decode source: %w", err)
			}
			if source.Type == sourceType && source.Active {
				src := source
				sources = append(sources, &src)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sources, nil
}

// ListRecentByUserAndType returns the user's sources of the given type
// created after the cutoff.
func (s *SourceStore) ListRecentByUserAndType(ctx context.Context, userID string, sourceType models.SourceType, cutoff time.Time) ([]*models.Source, error) {
	var sources []*models.Source
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(sourceUserKeyPrefix + userID + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var id string
			if err := it.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}

			item, err := txn.Get(sourceKey(id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("get source %s: %w", id, err)
			}

			var source models.Source
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &source)
			}); err != nil {
				return fmt.Errorf("decode source %s: %w", id, err)
			}
			if source.Type == sourceType && source.CreatedAt.After(cutoff) {
				src := source
				sources = append(sources, &src)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sources, nil
}
