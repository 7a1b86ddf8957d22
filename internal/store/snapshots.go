// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/waypost/internal/models"
)

// SnapshotStore is the append-mostly store of timestamped observations.
// Snapshots are never updated or deleted by the pipeline.
type SnapshotStore struct {
	db *badger.DB
}

// Append persists one snapshot with its ordering indexes.
func (s *SnapshotStore) Append(ctx context.Context, snap *models.Snapshot) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return putSnapshot(txn, snap)
	})
}

// putSnapshot writes the snapshot record and its index entries inside txn.
func putSnapshot(txn *badger.Txn, snap *models.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := txn.Set(snapshotKey(snap.ID), data); err != nil {
		return fmt.Errorf("set snapshot: %w", err)
	}
	if err := txn.Set(snapshotUserKey(snap.UserID, snap.ObservedAt, snap.ID), []byte(snap.ID)); err != nil {
		return fmt.Errorf("set snapshot user index: %w", err)
	}
	if err := txn.Set(snapshotSourceKey(snap.SourceID, snap.ObservedAt, snap.ID), []byte(snap.ID)); err != nil {
		return fmt.Errorf("set snapshot source index: %w", err)
	}
	if err := txn.Set(snapshotTypeUserKey(snap.SourceType, snap.UserID, snap.ObservedAt, snap.ID), []byte(snap.ID)); err != nil {
		return fmt.Errorf("set snapshot type index: %w", err)
	}
	return nil
}

// LatestForUser returns the user's most recent snapshot by observation
// timestamp, or nil when the user has none.
func (s *SnapshotStore) LatestForUser(ctx context.Context, userID string) (*models.Snapshot, error) {
	return s.latestByIndex(snapshotUserKeyPrefix + userID + ":")
}

// LatestForSource returns the source's most recent snapshot by observation
// timestamp, or nil when the source has none.
func (s *SnapshotStore) LatestForSource(ctx context.Context, sourceID string) (*models.Snapshot, error) {
	return s.latestByIndex(snapshotSourceKeyPrefix + sourceID + ":")
}

func (s *SnapshotStore) latestByIndex(prefix string) (*models.Snapshot, error) {
	var snap *models.Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration: seek past the end of the prefix range.
		p := []byte(prefix)
		seek := append(append([]byte{}, p...), 0xFF)
		it.Seek(seek)
		if !it.ValidForPrefix(p) {
			return nil
		}

		var id string
		if err := it.Item().Value(func(val []byte) error {
			id = string(val)
			return nil
		}); err != nil {
			return err
		}

		loaded, err := getSnapshot(txn, id)
		if err != nil {
			return err
		}
		snap = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func getSnapshot(txn *badger.Txn, id string) (*models.Snapshot, error) {
	item, err := txn.Get(snapshotKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("snapshot %s missing for index entry", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot %s: %w", id, err)
	}
	var snap models.Snapshot
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &snap)
	}); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return &snap, nil
}

// ExistsNear reports whether a snapshot of the given source type and user
// was observed within the window around observedAt. This is the duplicate
// guard against repeated polls landing on the same physical fix.
func (s *SnapshotStore) ExistsNear(ctx context.Context, sourceType models.SourceType, userID string, observedAt time.Time, window time.Duration) (bool, error) {
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		keyPrefix := snapshotTypeUserKeyPrefix + string(sourceType) + ":" + userID + ":"
		prefix := []byte(keyPrefix)
		seek := []byte(keyPrefix + tsKey(observedAt.Add(-window)))
		upper := []byte(keyPrefix + tsKey(observedAt.Add(window)) + ":\xff")

		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if bytes.Compare(it.Item().Key(), upper) > 0 {
				break
			}
			found = true
			return nil
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// ListForSource returns the source's snapshots ordered by observation
// timestamp ascending.
func (s *SnapshotStore) ListForSource(ctx context.Context, sourceID string) ([]*models.Snapshot, error) {
	var snaps []*models.Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(snapshotSourceKeyPrefix + sourceID + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var id string
			if err := it.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}
			snap, err := getSnapshot(txn, id)
			if err != nil {
				return err
			}
			snaps = append(snaps, snap)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snaps, nil
}
