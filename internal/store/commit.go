// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/tomtom215/waypost/internal/models"
)

// CommitSourceSync atomically persists the net effect of one consumer
// invocation against a single source: the (possibly renamed, re-stated,
// re-activated) source record plus any snapshots appended during the
// invocation. Either everything commits or nothing does, so a failure
// mid-invocation never leaves sync state ahead of the persisted points.
func (s *Store) CommitSourceSync(ctx context.Context, source *models.Source, snaps []*models.Snapshot) error {
	source.UpdatedAt = time.Now().UTC()
	return s.db.Update(func(txn *badger.Txn) error {
		if err := putSource(txn, source); err != nil {
			return err
		}
		for _, snap := range snaps {
			if snap.SourceID != source.ID {
				return fmt.Errorf("snapshot %s does not belong to source %s", snap.ID, source.ID)
			}
			if err := putSnapshot(txn, snap); err != nil {
				return err
			}
		}
		return nil
	})
}
