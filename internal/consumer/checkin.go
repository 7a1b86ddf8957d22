// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

package consumer

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/waypost/internal/config"
	"github.com/tomtom215/waypost/internal/logging"
	"github.com/tomtom215/waypost/internal/metrics"
	"github.com/tomtom215/waypost/internal/models"
	"github.com/tomtom215/waypost/internal/store"
	"github.com/tomtom215/waypost/internal/watcher"
)

// CheckinConsumer converts venue check-in events into location history.
// Each accepted event becomes one inactive source carrying the raw event
// plus a single snapshot at the venue's coordinates.
type CheckinConsumer struct {
	cfg     config.CheckinConfig
	store   *store.Store
	watcher *watcher.Watcher
	log     zerolog.Logger
}

func NewCheckinConsumer(cfg config.CheckinConfig, st *store.Store, w *watcher.Watcher) *CheckinConsumer {
	return &CheckinConsumer{
		cfg:     cfg,
		store:   st,
		watcher: w,
		log:     logging.With().Str("component", "checkin-consumer").Logger(),
	}
}

// Process handles one inbound event. Non-checkin event types are ignored
// without error; the returned snapshot is nil in that case.
func (c *CheckinConsumer) Process(ctx context.Context, event *models.CheckinEvent) (*models.Snapshot, error) {
	if !event.IsCheckin() {
		c.log.Debug().Str("type", event.Type).Msg("ignoring non-checkin event")
		return nil, nil
	}

	userID, err := c.store.Identities.Resolve(ctx, c.cfg.Provider, event.User.ID)
	if err != nil {
		if errors.Is(err, store.ErrIdentityNotFound) {
			return nil, &UnknownUserError{Provider: c.cfg.Provider, ExternalID: event.User.ID}
		}
		return nil, fmt.Errorf("resolve %s identity: %w", c.cfg.Provider, err)
	}

	instant, err := event.Instant()
	if err != nil {
		return nil, fmt.Errorf("resolve checkin instant: %w", err)
	}

	source := models.NewSource(event.Venue.Name, userID, models.SourceTypeCheckin)
	source.Checkin = &models.CheckinState{Event: *event}
	snapshot := models.NewSnapshot(source, event.Venue.Location, instant)

	// The identity is only known after resolution, so the change watch
	// wraps the persistence step rather than the whole handler.
	err = c.watcher.Observe(ctx, userID, func(ctx context.Context) error {
		return c.store.CommitSourceSync(ctx, source, []*models.Snapshot{snapshot})
	})
	if err != nil {
		return nil, fmt.Errorf("persist checkin: %w", err)
	}

	metrics.SnapshotsIngested.WithLabelValues(string(models.SourceTypeCheckin)).Inc()
	c.log.Info().
		Str("user_id", userID).
		Str("venue", event.Venue.Name).
		Time("observed_at", instant).
		Msg("checkin recorded")
	return snapshot, nil
}
