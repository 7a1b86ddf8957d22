// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

package consumer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/waypost/internal/config"
	"github.com/tomtom215/waypost/internal/models"
	"github.com/tomtom215/waypost/internal/routedoc"
)

// fakeFetcher serves canned documents keyed by URL.
type fakeFetcher struct {
	mu      sync.Mutex
	docs    map[string][]byte
	fetches int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{docs: map[string][]byte{}}
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	doc, ok := f.docs[url]
	if !ok {
		return nil, fmt.Errorf("fetch %s: not found", url)
	}
	return doc, nil
}

func (f *fakeFetcher) set(url string, doc []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[url] = doc
}

// routeDocument renders a tracker document with the given start time and
// "offset,lng,lat" rows.
func routeDocument(name, start string, rows ...string) []byte {
	return []byte(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2" xmlns:abvio="http://www.abvio.com/xmlschemas/1">
  <Document>
    <abvio:routeName>%s</abvio:routeName>
    <abvio:startTime>%s</abvio:startTime>
    <abvio:coordinateTable>%s
</abvio:coordinateTable>
  </Document>
</kml>`, name, start, strings.Join(rows, "\n")))
}

func routeTestConfig() config.RouteConfig {
	return config.RouteConfig{
		Enabled:         true,
		MinPointSpacing: 0,
		LivenessWindow:  time.Hour,
		BindReuseWindow: 24 * time.Hour,
		FetchTimeout:    10 * time.Second,
		Interval:        time.Minute,
	}
}

const testRouteURL = "http://example.com/routes/1.kml"

func newRouteConsumer(t *testing.T, env *testEnv, cfg config.RouteConfig) (*RouteSyncConsumer, *fakeFetcher) {
	t.Helper()
	fetcher := newFakeFetcher()
	return NewRouteSyncConsumer(cfg, env.store, fetcher, env.watcher), fetcher
}

func mustBind(t *testing.T, c *RouteSyncConsumer, userID, url string) *models.Source {
	t.Helper()
	source, err := c.Bind(context.Background(), userID, url)
	require.NoError(t, err)
	return source
}

func TestSyncPersistsDocumentPoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c, fetcher := newRouteConsumer(t, env, routeTestConfig())
	fetcher.set(testRouteURL, routeDocument("Morning Run", "2013-09-06 00:51:29",
		"1,-122,45",
		"2,-123,44",
	))

	source := mustBind(t, c, "user-1", testRouteURL)
	require.NoError(t, c.Sync(ctx, source))

	snaps, err := env.store.Snapshots.ListForSource(ctx, source.ID)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.True(t, snaps[0].ObservedAt.Equal(time.Date(2013, 9, 6, 0, 51, 30, 0, time.UTC)))
	assert.True(t, snaps[1].ObservedAt.Equal(time.Date(2013, 9, 6, 0, 51, 31, 0, time.UTC)))
	assert.Equal(t, models.Point{Lng: -122, Lat: 45}, snaps[0].Point)
	assert.Equal(t, models.Point{Lng: -123, Lat: 44}, snaps[1].Point)

	stored, err := env.store.Sources.Get(ctx, source.ID)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("Morning Run (%s)", testRouteURL), stored.Name)
	assert.Len(t, stored.Route.KnownPoints, 2)
}

func TestSyncIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c, fetcher := newRouteConsumer(t, env, routeTestConfig())
	fetcher.set(testRouteURL, routeDocument("Morning Run", "2013-09-06 00:51:29",
		"1,-122,45",
		"2,-123,44",
	))

	source := mustBind(t, c, "user-1", testRouteURL)
	require.NoError(t, c.Sync(ctx, source))
	require.NoError(t, c.Sync(ctx, source))

	snaps, err := env.store.Snapshots.ListForSource(ctx, source.ID)
	require.NoError(t, err)
	assert.Len(t, snaps, 2)
}

func TestSyncAppendsOnlyUnseenPoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c, fetcher := newRouteConsumer(t, env, routeTestConfig())
	fetcher.set(testRouteURL, routeDocument("Morning Run", "2013-09-06 00:51:29",
		"1,-122,45",
	))

	source := mustBind(t, c, "user-1", testRouteURL)
	require.NoError(t, c.Sync(ctx, source))

	// The tracker appended a point; the next sync picks up only the new row.
	fetcher.set(testRouteURL, routeDocument("Morning Run", "2013-09-06 00:51:29",
		"1,-122,45",
		"61,-123,44",
	))
	require.NoError(t, c.Sync(ctx, source))

	snaps, err := env.store.Snapshots.ListForSource(ctx, source.ID)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.True(t, snaps[1].ObservedAt.Equal(time.Date(2013, 9, 6, 0, 52, 30, 0, time.UTC)))
}

func TestSyncMinPointSpacing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cfg := routeTestConfig()
	cfg.MinPointSpacing = 15 * time.Second

	c, fetcher := newRouteConsumer(t, env, cfg)
	fetcher.set(testRouteURL, routeDocument("Dense Track", "2013-09-06 00:51:29",
		"0,-122.0,45.0",
		"1,-122.1,45.1",
		"15,-122.2,45.2",
	))

	source := mustBind(t, c, "user-1", testRouteURL)
	require.NoError(t, c.Sync(ctx, source))

	// The first point always persists; +1s is under the spacing floor and
	// is skipped; +15s meets it exactly.
	snaps, err := env.store.Snapshots.ListForSource(ctx, source.ID)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, models.Point{Lng: -122.0, Lat: 45.0}, snaps[0].Point)
	assert.Equal(t, models.Point{Lng: -122.2, Lat: 45.2}, snaps[1].Point)

	// Skipped points are still marked known and never reconsidered.
	stored, err := env.store.Sources.Get(ctx, source.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Route.KnownPoints, 3)
}

func TestSyncExpiresStaleSource(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c, fetcher := newRouteConsumer(t, env, routeTestConfig())
	// All points are years in the past, far beyond the liveness window.
	fetcher.set(testRouteURL, routeDocument("Old Ride", "2013-09-06 00:51:29",
		"1,-122,45",
	))

	source := mustBind(t, c, "user-1", testRouteURL)
	require.True(t, source.Active)
	require.NoError(t, c.Sync(ctx, source))

	stored, err := env.store.Sources.Get(ctx, source.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)
}

func TestSyncKeepsFreshSourceActive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c, fetcher := newRouteConsumer(t, env, routeTestConfig())
	start := time.Now().UTC().Add(-time.Minute).Format("2006-01-02 15:04:05")
	fetcher.set(testRouteURL, routeDocument("Live Ride", start, "1,-122,45"))

	source := mustBind(t, c, "user-1", testRouteURL)
	require.NoError(t, c.Sync(ctx, source))

	stored, err := env.store.Sources.Get(ctx, source.ID)
	require.NoError(t, err)
	assert.True(t, stored.Active)
}

func TestSyncDoesNotReactivate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c, fetcher := newRouteConsumer(t, env, routeTestConfig())
	start := time.Now().UTC().Add(-time.Minute).Format("2006-01-02 15:04:05")
	fetcher.set(testRouteURL, routeDocument("Stopped Ride", start, "1,-122,45"))

	source := mustBind(t, c, "user-1", testRouteURL)
	source.Active = false
	require.NoError(t, c.Sync(ctx, source))

	stored, err := env.store.Sources.Get(ctx, source.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)
}

func TestSyncParseFailure(t *testing.T) {
	env := newTestEnv(t)

	c, fetcher := newRouteConsumer(t, env, routeTestConfig())
	fetcher.set(testRouteURL, []byte("this is not a route document"))

	source := mustBind(t, c, "user-1", testRouteURL)
	err := c.Sync(context.Background(), source)

	var parseErr *routedoc.ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestBindReusesRecentSource(t *testing.T) {
	env := newTestEnv(t)

	c, _ := newRouteConsumer(t, env, routeTestConfig())
	first := mustBind(t, c, "user-1", testRouteURL)
	second := mustBind(t, c, "user-1", testRouteURL)
	assert.Equal(t, first.ID, second.ID)

	// A different URL or a different user gets a fresh source.
	other := mustBind(t, c, "user-1", "http://example.com/routes/2.kml")
	assert.NotEqual(t, first.ID, other.ID)
	foreign := mustBind(t, c, "user-2", testRouteURL)
	assert.NotEqual(t, first.ID, foreign.ID)
}

func TestHandleMessageCreatesAndSyncs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.store.Settings.Put(ctx, &models.ConsumerSettings{
		UserID: "user-1",
		Route:  models.RouteSettings{Enabled: true, Email: "tracker@example.com"},
	}))

	c, fetcher := newRouteConsumer(t, env, routeTestConfig())
	start := time.Now().UTC().Add(-time.Minute).Format("2006-01-02 15:04:05")
	fetcher.set(testRouteURL, routeDocument("Evening Ride", start, "1,-122,45"))

	source, err := c.HandleMessage(ctx, &InboundMessage{
		From: "tracker@example.com",
		Body: "Started Cycling.\nImport Link: " + testRouteURL,
	})
	require.NoError(t, err)
	require.NotNil(t, source)
	assert.Equal(t, "user-1", source.UserID)
	assert.True(t, source.Active)

	snaps, err := env.store.Snapshots.ListForSource(ctx, source.ID)
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
}

func TestHandleMessageFinishDeactivates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.store.Settings.Put(ctx, &models.ConsumerSettings{
		UserID: "user-1",
		Route:  models.RouteSettings{Enabled: true, Email: "tracker@example.com"},
	}))

	c, fetcher := newRouteConsumer(t, env, routeTestConfig())
	start := time.Now().UTC().Add(-time.Minute).Format("2006-01-02 15:04:05")
	fetcher.set(testRouteURL, routeDocument("Evening Ride", start, "1,-122,45"))

	source, err := c.HandleMessage(ctx, &InboundMessage{
		From: "tracker@example.com",
		Body: "Finished Cycling: 12.4 mi\nImport Link: " + testRouteURL,
	})
	require.NoError(t, err)

	stored, err := env.store.Sources.Get(ctx, source.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)
}

func TestHandleMessageUnknownSender(t *testing.T) {
	env := newTestEnv(t)

	c, _ := newRouteConsumer(t, env, routeTestConfig())
	_, err := c.HandleMessage(context.Background(), &InboundMessage{
		From: "stranger@example.com",
		Body: "Import Link: " + testRouteURL,
	})
	require.Error(t, err)
}

func TestHandleMessageWithoutURL(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.store.Settings.Put(ctx, &models.ConsumerSettings{
		UserID: "user-1",
		Route:  models.RouteSettings{Enabled: true, Email: "tracker@example.com"},
	}))

	c, _ := newRouteConsumer(t, env, routeTestConfig())
	_, err := c.HandleMessage(ctx, &InboundMessage{
		From: "tracker@example.com",
		Body: "Started Cycling. No links today.",
	})
	require.Error(t, err)
}

func TestRunPeriodicSyncsActiveSources(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c, fetcher := newRouteConsumer(t, env, routeTestConfig())
	start := time.Now().UTC().Add(-time.Minute).Format("2006-01-02 15:04:05")
	fetcher.set(testRouteURL, routeDocument("Ride A", start, "1,-122,45"))

	active := mustBind(t, c, "user-1", testRouteURL)

	// A broken source must not block the healthy one.
	broken := mustBind(t, c, "user-2", "http://example.com/routes/broken.kml")
	_ = broken

	require.NoError(t, c.RunPeriodic(ctx))

	snaps, err := env.store.Snapshots.ListForSource(ctx, active.ID)
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
}
