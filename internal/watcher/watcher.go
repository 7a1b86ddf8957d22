// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

// Package watcher implements the change watcher: a scoped wrapper around
// consumer side effects that diffs a user's latest snapshot before and
// after the wrapped body and emits "location updated" / "location
// changed" notifications.
package watcher

import (
	"context"

	"github.com/tomtom215/waypost/internal/logging"
	"github.com/tomtom215/waypost/internal/models"
	"github.com/tomtom215/waypost/internal/notify"
)

// LatestReader reads a user's most recent snapshot by observation
// timestamp, returning nil when the user has none.
type LatestReader interface {
	LatestForUser(ctx context.Context, userID string) (*models.Snapshot, error)
}

// Watcher wraps consumer bodies and raises change notifications.
type Watcher struct {
	snapshots LatestReader
	bus       *notify.Bus
}

// New creates a watcher over the given snapshot reader and bus.
func New(snapshots LatestReader, bus *notify.Bus) *Watcher {
	return &Watcher{snapshots: snapshots, bus: bus}
}

// Observe runs body, which may create zero or one snapshot for the user,
// and compares the user's latest snapshot before and after.
//
// If the latest snapshot changed by identity, one "location updated"
// notification is emitted carrying (user, from, to). If additionally a
// prior snapshot existed and its coordinate differs from the new one's, a
// "location changed" notification follows. At most one notification of
// each kind fires per call, and "changed" implies "updated".
//
// The diff runs on every exit path. A body failure propagates to the
// caller unchanged; it suppresses notifications only insofar as the
// failure prevented a new snapshot from being committed.
func (w *Watcher) Observe(ctx context.Context, userID string, body func(context.Context) error) error {
	before, err := w.snapshots.LatestForUser(ctx, userID)
	if err != nil {
		return err
	}

	bodyErr := body(ctx)

	after, err := w.snapshots.LatestForUser(ctx, userID)
	if err != nil {
		logging.Err(err).Str("user", userID).Msg("Change watcher could not re-read latest snapshot")
		return bodyErr
	}

	notifyErr := w.emit(ctx, userID, before, after)
	if bodyErr != nil {
		return bodyErr
	}
	return notifyErr
}

func (w *Watcher) emit(ctx context.Context, userID string, before, after *models.Snapshot) error {
	if after == nil || before.Same(after) {
		return nil
	}

	ev := &notify.LocationEvent{UserID: userID, From: before, To: after}
	if err := w.bus.PublishLocationUpdated(ctx, ev); err != nil {
		return err
	}

	if before != nil && !before.Point.Equal(after.Point) {
		if err := w.bus.PublishLocationChanged(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}
