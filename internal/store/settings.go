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

// SettingsStore persists per-user consumer settings.
type SettingsStore struct {
	db *badger.DB
}

// Put stores the settings for a user.
func (s *SettingsStore) Put(ctx context.Context, settings *models.ConsumerSettings) error {
	settings.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(settingsKey(settings.UserID), data)
	})
}

// Get retrieves the settings for a user.
func (s *SettingsStore) Get(ctx context.Context, userID string) (*models.ConsumerSettings, error) {
	var settings models.ConsumerSettings
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(settingsKey(userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrSettingsNotFound
		}
		if err != nil {
			return fmt.Errorf("get settings: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &settings)
		})
	})
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// ListPollingEnabled returns settings of every user with the polling
// consumer enabled.
func (s *SettingsStore) ListPollingEnabled(ctx context.Context) ([]*models.ConsumerSettings, error) {
	return s.list(func(cs *models.ConsumerSettings) bool {
		return cs.Polling.Enabled
	})
}

// FindByRouteEmail returns the settings of the route-enabled user whose
// configured mailbox address matches the sender.
func (s *SettingsStore) FindByRouteEmail(ctx context.Context, email string) (*models.ConsumerSettings, error) {
	matches, err := s.list(func(cs *models.ConsumerSettings) bool {
		return cs.Route.Enabled && cs.Route.Email == email
	})
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrSettingsNotFound
	}
	return matches[0], nil
}

func (s *SettingsStore) list(keep func(*models.ConsumerSettings) bool) ([]*models.ConsumerSettings, error) {
	var result []*models.ConsumerSettings
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(settingsKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var settings models.ConsumerSettings
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &settings)
			})
			if err != nil {
				return fmt.Errorf("decode settings: %w", err)
			}
			if keep(&settings) {
				cs := settings
				result = append(result, &cs)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// IdentityStore maps external provider identifiers to internal users.
type IdentityStore struct {
	db *badger.DB
}

// Put stores an identity mapping.
func (s *IdentityStore) Put(ctx context.Context, identity *models.ExternalIdentity) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(identityKey(identity.Provider, identity.ExternalID), data)
	})
}

// Resolve maps an external identifier to an internal user ID.
func (s *IdentityStore) Resolve(ctx context.Context, provider, externalID string) (string, error) {
	var identity models.ExternalIdentity
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(identityKey(provider, externalID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrIdentityNotFound
		}
		if err != nil {
			return fmt.Errorf("get identity: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &identity)
		})
	})
	if err != nil {
		return "", err
	}
	return identity.UserID, nil
}
