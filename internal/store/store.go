// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

// Package store persists the pipeline's entities in an embedded BadgerDB:
// the source registry, the snapshot store, per-user consumer settings,
// and the external-identity mapping.
//
// Values are JSON-encoded; secondary index keys provide per-user and
// per-source snapshot ordering by observation timestamp. All mutations a
// consumer performs against a single source in one invocation commit in
// one Badger transaction.
package store

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Sentinel errors for store lookups.
var (
	ErrSourceNotFound   = errors.New("source not found")
	ErrSettingsNotFound = errors.New("consumer settings not found")
	ErrIdentityNotFound = errors.New("external identity not found")
)

// Store wraps a BadgerDB instance and exposes the typed sub-stores.
type Store struct {
	db *badger.DB

	Sources    *SourceStore
	Snapshots  *SnapshotStore
	Settings   *SettingsStore
	Identities *IdentityStore
}

// Open opens (or creates) a durable store at the given directory.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Badger's own logging is too chatty for production
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return newStore(db), nil
}

// OpenInMemory opens an ephemeral store. Used by tests.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory badger: %w", err)
	}
	return newStore(db), nil
}

func newStore(db *badger.DB) *Store {
	s := &Store{db: db}
	s.Sources = &SourceStore{db: db}
	s.Snapshots = &SnapshotStore{db: db}
	s.Settings = &SettingsStore{db: db}
	s.Identities = &IdentityStore{db: db}
	return s
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
