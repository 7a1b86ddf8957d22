// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/waypost/internal/config"
	"github.com/tomtom215/waypost/internal/consumer"
	"github.com/tomtom215/waypost/internal/models"
	"github.com/tomtom215/waypost/internal/notify"
	"github.com/tomtom215/waypost/internal/store"
	"github.com/tomtom215/waypost/internal/watcher"
)

type apiEnv struct {
	store   *store.Store
	handler http.Handler
	fetcher *stubFetcher
}

// stubFetcher serves one canned document for every URL.
type stubFetcher struct {
	mu  sync.Mutex
	doc []byte
	err error
}

func (f *stubFetcher) Fetch(context.Context, string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	st, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.Default()
	cfg.Route.Enabled = true
	cfg.Route.MinPointSpacing = 0

	bus := notify.NewBus(cfg.Notify)
	t.Cleanup(func() { _ = bus.Close() })
	w := watcher.New(st.Snapshots, bus)

	fetcher := &stubFetcher{}
	checkins := consumer.NewCheckinConsumer(cfg.Checkin, st, w)
	routes := consumer.NewRouteSyncConsumer(cfg.Route, st, fetcher, w)

	handler := NewHandler(cfg, st, checkins, routes)
	return &apiEnv{
		store:   st,
		handler: Router(handler, cfg.Server.RateLimit),
		fetcher: fetcher,
	}
}

func (e *apiEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	env := newAPIEnv(t)
	rec := env.do(t, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newAPIEnv(t)
	rec := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestCheckinWebhook(t *testing.T) {
	env := newAPIEnv(t)
	ctx := context.Background()

	require.NoError(t, env.store.Identities.Put(ctx, &models.ExternalIdentity{
		Provider:   "foursquare",
		ExternalID: "ext-1",
		UserID:     "user-1",
	}))

	event := models.CheckinEvent{
		Type:      models.EventTypeCheckin,
		Venue:     models.CheckinVenue{Name: "Cafe", Location: models.Point{Lng: -122.3, Lat: 47.6}},
		CreatedAt: 1378428689,
		TimeZone:  "UTC",
		User:      models.CheckinUser{ID: "ext-1"},
	}

	rec := env.do(t, http.MethodPost, "/api/v1/checkin/webhook", event)
	require.Equal(t, http.StatusCreated, rec.Code)

	snap, err := env.store.Snapshots.LatestForUser(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, models.Point{Lng: -122.3, Lat: 47.6}, snap.Point)
}

func TestCheckinWebhookUnknownUser(t *testing.T) {
	env := newAPIEnv(t)

	event := models.CheckinEvent{
		Type:      models.EventTypeCheckin,
		Venue:     models.CheckinVenue{Name: "Cafe"},
		CreatedAt: 1378428689,
		TimeZone:  "UTC",
		User:      models.CheckinUser{ID: "nobody"},
	}

	rec := env.do(t, http.MethodPost, "/api/v1/checkin/webhook", event)
	require.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}

func TestCheckinWebhookIgnoresOtherTypes(t *testing.T) {
	env := newAPIEnv(t)

	event := models.CheckinEvent{Type: "mayorship", TimeZone: "UTC"}
	rec := env.do(t, http.MethodPost, "/api/v1/checkin/webhook", event)
	require.Equal(t, http.StatusAccepted, rec.Code)
}

func TestCheckinWebhookMalformedBody(t *testing.T) {
	env := newAPIEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkin/webhook", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouteMessage(t *testing.T) {
	env := newAPIEnv(t)
	ctx := context.Background()

	require.NoError(t, env.store.Settings.Put(ctx, &models.ConsumerSettings{
		UserID: "user-1",
		Route:  models.RouteSettings{Enabled: true, Email: "tracker@example.com"},
	}))

	start := time.Now().UTC().Add(-time.Minute).Format("2006-01-02 15:04:05")
	env.fetcher.doc = []byte(fmt.Sprintf(`<kml xmlns:abvio="http://www.abvio.com/xmlschemas/1"><Document>
<abvio:routeName>Ride</abvio:routeName>
<abvio:startTime>%s</abvio:startTime>
<abvio:coordinateTable>1,-122,45</abvio:coordinateTable>
</Document></kml>`, start))

	rec := env.do(t, http.MethodPost, "/api/v1/route/message", routeMessageRequest{
		From: "tracker@example.com",
		Body: "Started Cycling.\nImport Link: http://example.com/r.kml",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeResponse(t, rec)
	require.True(t, resp.Success)

	snap, err := env.store.Snapshots.LatestForUser(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, snap)
}

func TestRouteMessageUnknownSender(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/route/message", routeMessageRequest{
		From: "stranger@example.com",
		Body: "Import Link: http://example.com/r.kml",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouteMessageWithoutURL(t *testing.T) {
	env := newAPIEnv(t)
	ctx := context.Background()

	require.NoError(t, env.store.Settings.Put(ctx, &models.ConsumerSettings{
		UserID: "user-1",
		Route:  models.RouteSettings{Enabled: true, Email: "tracker@example.com"},
	}))

	rec := env.do(t, http.MethodPost, "/api/v1/route/message", routeMessageRequest{
		From: "tracker@example.com",
		Body: "No links in this message.",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouteMessageSyncFailureStillBinds(t *testing.T) {
	env := newAPIEnv(t)
	ctx := context.Background()

	require.NoError(t, env.store.Settings.Put(ctx, &models.ConsumerSettings{
		UserID: "user-1",
		Route:  models.RouteSettings{Enabled: true, Email: "tracker@example.com"},
	}))
	env.fetcher.doc = []byte("not a route document")

	rec := env.do(t, http.MethodPost, "/api/v1/route/message", routeMessageRequest{
		From: "tracker@example.com",
		Body: "Import Link: http://example.com/r.kml",
	})
	require.Equal(t, http.StatusBadGateway, rec.Code)

	// The source exists and the periodic sync will retry it.
	sources, err := env.store.Sources.ListActiveByType(ctx, models.SourceTypeRouteTrack)
	require.NoError(t, err)
	assert.Len(t, sources, 1)
}

func TestCurrentLocation(t *testing.T) {
	env := newAPIEnv(t)
	ctx := context.Background()

	source := models.NewSource("somewhere", "user-1", models.SourceTypeCheckin)
	snap := models.NewSnapshot(source, models.Point{Lng: -122.3, Lat: 47.6}, time.Now().UTC())
	require.NoError(t, env.store.CommitSourceSync(ctx, source, []*models.Snapshot{snap}))

	rec := env.do(t, http.MethodGet, "/api/v1/users/user-1/location", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/users/user-2/location", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSourceHistory(t *testing.T) {
	env := newAPIEnv(t)
	ctx := context.Background()

	source := models.NewSource("somewhere", "user-1", models.SourceTypeCheckin)
	snap := models.NewSnapshot(source, models.Point{Lng: -122.3, Lat: 47.6}, time.Now().UTC())
	require.NoError(t, env.store.CommitSourceSync(ctx, source, []*models.Snapshot{snap}))

	rec := env.do(t, http.MethodGet, "/api/v1/sources/"+source.ID+"/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/sources/missing/history", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSettingsRoundTripRedactsPassword(t *testing.T) {
	env := newAPIEnv(t)

	settings := models.ConsumerSettings{
		Polling: models.PollingSettings{
			Enabled:  true,
			Username: "alice@example.com",
			Password: "secret",
			DeviceID: "phone-1",
			Timezone: "UTC",
		},
	}
	rec := env.do(t, http.MethodPut, "/api/v1/users/user-1/settings", settings)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/users/user-1/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")

	stored, err := env.store.Settings.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "secret", stored.Polling.Password)
}

func TestPutSettingsValidation(t *testing.T) {
	env := newAPIEnv(t)

	settings := models.ConsumerSettings{
		Polling: models.PollingSettings{Enabled: true},
	}
	rec := env.do(t, http.MethodPut, "/api/v1/users/user-1/settings", settings)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPutIdentity(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/users/user-1/identities", identityRequest{
		Provider:   "foursquare",
		ExternalID: "ext-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	userID, err := env.store.Identities.Resolve(context.Background(), "foursquare", "ext-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestGetSettingsMissing(t *testing.T) {
	env := newAPIEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/users/nobody/settings", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
