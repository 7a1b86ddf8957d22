// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

package consumer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/waypost/internal/config"
	"github.com/tomtom215/waypost/internal/logging"
	"github.com/tomtom215/waypost/internal/metrics"
	"github.com/tomtom215/waypost/internal/models"
	"github.com/tomtom215/waypost/internal/routedoc"
	"github.com/tomtom215/waypost/internal/store"
	"github.com/tomtom215/waypost/internal/watcher"
)

// RouteSyncConsumer incrementally mirrors remote route documents. Inbound
// tracker messages bind a user to a document URL; each sync re-fetches the
// document and persists the points not yet seen.
type RouteSyncConsumer struct {
	cfg     config.RouteConfig
	store   *store.Store
	fetcher routedoc.Fetcher
	watcher *watcher.Watcher
	log     zerolog.Logger
}

func NewRouteSyncConsumer(cfg config.RouteConfig, st *store.Store, fetcher routedoc.Fetcher, w *watcher.Watcher) *RouteSyncConsumer {
	return &RouteSyncConsumer{
		cfg:     cfg,
		store:   st,
		fetcher: fetcher,
		watcher: w,
		log:     logging.With().Str("component", "route-sync-consumer").Logger(),
	}
}

func (c *RouteSyncConsumer) Name() string { return "route-sync" }

// HandleMessage processes one forwarded tracker notification: look up the
// owner by sender address, extract the import URL, bind (or reuse) a source
// for it, then run an immediate sync. A finish marker in the body deactivates
// the source before the sync commits it.
func (c *RouteSyncConsumer) HandleMessage(ctx context.Context, msg *InboundMessage) (*models.Source, error) {
	settings, err := c.store.Settings.FindByRouteEmail(ctx, msg.From)
	if err != nil {
		if errors.Is(err, store.ErrSettingsNotFound) {
			return nil, fmt.Errorf("no user accepts route messages from %q: %w", msg.From, err)
		}
		return nil, fmt.Errorf("resolve sender: %w", err)
	}

	url := ExtractImportURL(msg.Body)
	if url == "" {
		return nil, fmt.Errorf("message from %q carries no import URL", msg.From)
	}

	source, err := c.Bind(ctx, settings.UserID, url)
	if err != nil {
		return nil, err
	}
	if IndicatesFinished(msg.Body) {
		c.log.Info().Str("source_id", source.ID).Msg("message marks activity finished")
		source.Active = false
	}

	syncErr := c.watcher.Observe(ctx, settings.UserID, func(ctx context.Context) error {
		return c.Sync(ctx, source)
	})
	if syncErr != nil {
		return source, syncErr
	}
	return source, nil
}

// Bind returns the user's existing source for the URL if one was created
// within the reuse window, otherwise creates a fresh active source with
// empty sync state.
func (c *RouteSyncConsumer) Bind(ctx context.Context, userID, url string) (*models.Source, error) {
	cutoff := time.Now().UTC().Add(-c.cfg.BindReuseWindow)
	recent, err := c.store.Sources.ListRecentByUserAndType(ctx, userID, models.SourceTypeRouteTrack, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list recent route sources: %w", err)
	}
	for _, s := range recent {
		if s.Route != nil && s.Route.ImportURL == url {
			c.log.Info().Str("source_id", s.ID).Str("url", url).Msg("reusing existing route source")
			return s, nil
		}
	}

	source := models.NewSource(
		fmt.Sprintf("Route at %s", time.Now().UTC().Format(time.RFC3339)),
		userID,
		models.SourceTypeRouteTrack,
	)
	source.Active = true
	source.Route = &models.RouteSyncState{
		ImportURL:   url,
		KnownPoints: make(map[string]models.RoutePoint),
	}
	if err := c.store.Sources.Create(ctx, source); err != nil {
		return nil, fmt.Errorf("create route source: %w", err)
	}
	c.log.Info().Str("source_id", source.ID).Str("url", url).Msg("created route source")
	return source, nil
}

// Sync runs one synchronization of a route source: fetch and parse the
// document, persist unseen points subject to the minimum spacing, rename the
// source after the document, recompute liveness, and commit everything in
// one transaction. Re-running against an unchanged document is a no-op.
func (c *RouteSyncConsumer) Sync(ctx context.Context, source *models.Source) error {
	if source.Route == nil {
		return fmt.Errorf("source %s has no route sync state", source.ID)
	}
	state := source.Route

	data, err := c.fetcher.Fetch(ctx, state.ImportURL)
	if err != nil {
		metrics.RouteDocumentsFetched.WithLabelValues("fetch_error").Inc()
		return fmt.Errorf("fetch route document: %w", err)
	}
	doc, err := routedoc.Parse(data)
	if err != nil {
		metrics.RouteDocumentsFetched.WithLabelValues("parse_error").Inc()
		return err
	}
	metrics.RouteDocumentsFetched.WithLabelValues("ok").Inc()

	// The spacing throttle measures against the newest persisted instant,
	// whether it was written this invocation or an earlier one.
	var lastPersisted time.Time
	if latest, err := c.store.Snapshots.LatestForSource(ctx, source.ID); err != nil {
		return fmt.Errorf("latest snapshot lookup: %w", err)
	} else if latest != nil {
		lastPersisted = latest.ObservedAt
	}

	var snaps []*models.Snapshot
	for _, pt := range doc.Points {
		if _, known := state.KnownPoints[pt.Key]; known {
			continue
		}
		instant := doc.Start.Add(time.Duration(pt.Offset * float64(time.Second)))
		if lastPersisted.IsZero() || instant.Sub(lastPersisted) >= c.cfg.MinPointSpacing {
			snaps = append(snaps, models.NewSnapshot(source, models.Point{Lng: pt.Lng, Lat: pt.Lat}, instant))
			lastPersisted = instant
		}
		state.KnownPoints[pt.Key] = models.RoutePoint{Key: pt.Key, Offset: pt.Offset, Lng: pt.Lng, Lat: pt.Lat}
	}

	if doc.Name != "" {
		source.Name = fmt.Sprintf("%s (%s)", doc.Name, state.ImportURL)
	}

	// A source only transitions active -> inactive here; a finish message
	// or expiry is never undone by a later sync.
	if source.Active && !lastPersisted.IsZero() && time.Since(lastPersisted) > c.cfg.LivenessWindow {
		c.log.Info().Str("source_id", source.ID).Time("last_point", lastPersisted).Msg("route expired, marking inactive")
		source.Active = false
	}

	if err := c.store.CommitSourceSync(ctx, source, snaps); err != nil {
		return fmt.Errorf("commit route sync: %w", err)
	}
	if len(snaps) > 0 {
		metrics.SnapshotsIngested.WithLabelValues(string(models.SourceTypeRouteTrack)).Add(float64(len(snaps)))
	}
	c.log.Info().
		Str("source_id", source.ID).
		Int("new_points", len(snaps)).
		Int("known_points", len(state.KnownPoints)).
		Bool("active", source.Active).
		Msg("route synced")
	return nil
}

// RunPeriodic re-syncs every active route source. A failing source is logged
// and skipped; fetch or parse trouble with one document never blocks the rest.
func (c *RouteSyncConsumer) RunPeriodic(ctx context.Context) error {
	sources, err := c.store.Sources.ListActiveByType(ctx, models.SourceTypeRouteTrack)
	if err != nil {
		metrics.ConsumerRuns.WithLabelValues(c.Name(), "error").Inc()
		return fmt.Errorf("list active route sources: %w", err)
	}

	for _, source := range sources {
		result := c.runOne(ctx, source)
		metrics.ConsumerRuns.WithLabelValues(c.Name(), string(result.Outcome)).Inc()
		if result.Err != nil {
			c.log.Error().Err(result.Err).Str("source_id", result.Unit).Msg("route sync failed")
		}
	}
	return nil
}

func (c *RouteSyncConsumer) runOne(ctx context.Context, source *models.Source) UnitResult {
	result := UnitResult{Unit: source.ID}
	err := c.watcher.Observe(ctx, source.UserID, func(ctx context.Context) error {
		return c.Sync(ctx, source)
	})
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Err = err
		return result
	}
	result.Outcome = OutcomeOK
	return result
}
