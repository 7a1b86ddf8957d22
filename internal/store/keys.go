// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

package store

import (
	"fmt"
	"time"

	"github.com/tomtom215/waypost/internal/models"
)

// Key prefixes for BadgerDB storage.
const (
	sourceKeyPrefix     = "source:"
	sourceUserKeyPrefix = "source_user:"

	snapshotKeyPrefix         = "snapshot:"
	snapshotUserKeyPrefix     = "snapshot_user:"
	snapshotSourceKeyPrefix   = "snapshot_source:"
	snapshotTypeUserKeyPrefix = "snapshot_type_user:"

	settingsKeyPrefix = "settings:"
	identityKeyPrefix = "identity:"
)

// tsKey renders a timestamp as a fixed-width sortable key segment.
func tsKey(t time.Time) string {
	return fmt.Sprintf("%020d", t.UnixNano())
}

func sourceKey(id string) []byte {
	return []byte(sourceKeyPrefix + id)
}

func sourceUserKey(userID, id string) []byte {
	return []byte(sourceUserKeyPrefix + userID + ":" + id)
}

func snapshotKey(id string) []byte {
	return []byte(snapshotKeyPrefix + id)
}

// snapshotUserKey orders a user's snapshots by observation timestamp.
func snapshotUserKey(userID string, observedAt time.Time, id string) []byte {
	return []byte(snapshotUserKeyPrefix + userID + ":" + tsKey(observedAt) + ":" + id)
}

func snapshotSourceKey(sourceID string, observedAt time.Time, id string) []byte {
	return []byte(snapshotSourceKeyPrefix + sourceID + ":" + tsKey(observedAt) + ":" + id)
}

// snapshotTypeUserKey supports the near-duplicate guard: snapshots of one
// source type for one user, ordered by observation timestamp.
func snapshotTypeUserKey(sourceType models.SourceType, userID string, observedAt time.Time, id string) []byte {
	return []byte(snapshotTypeUserKeyPrefix + string(sourceType) + ":" + userID + ":" + tsKey(observedAt) + ":" + id)
}

func settingsKey(userID string) []byte {
	return []byte(settingsKeyPrefix + userID)
}

func identityKey(provider, externalID string) []byte {
	return []byte(identityKeyPrefix + provider + ":" + externalID)
}
