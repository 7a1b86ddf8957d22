// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

package consumer

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tomtom215/waypost/internal/config"
	"github.com/tomtom215/waypost/internal/models"
	"github.com/tomtom215/waypost/internal/notify"
	"github.com/tomtom215/waypost/internal/store"
	"github.com/tomtom215/waypost/internal/watcher"
)

type testEnv struct {
	store   *store.Store
	bus     *notify.Bus
	watcher *watcher.Watcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	bus := notify.NewBus(config.NotifyConfig{TopicPrefix: "test.location", BufferSize: 16})
	t.Cleanup(func() { _ = bus.Close() })

	return &testEnv{
		store:   st,
		bus:     bus,
		watcher: watcher.New(st.Snapshots, bus),
	}
}

// recordingEscalator captures escalations for assertions.
type recordingEscalator struct {
	mu    sync.Mutex
	calls []escalation
}

type escalation struct {
	UserID  string
	Subject string
}

func (r *recordingEscalator) Escalate(_ context.Context, userID, subject, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, escalation{UserID: userID, Subject: subject})
	return nil
}

func (r *recordingEscalator) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// fakeDeviceAPI serves canned sessions keyed by username.
type fakeDeviceAPI struct {
	mu       sync.Mutex
	sessions map[string]*fakeSession
	authErr  error
	authed   int
}

func newFakeDeviceAPI() *fakeDeviceAPI {
	return &fakeDeviceAPI{sessions: map[string]*fakeSession{}}
}

func (f *fakeDeviceAPI) Authenticate(_ context.Context, username, _ string) (DeviceSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authed++
	if f.authErr != nil {
		return nil, f.authErr
	}
	session, ok := f.sessions[username]
	if !ok {
		return nil, &LoginFailureError{Username: username}
	}
	return session, nil
}

type fakeSession struct {
	devices map[string]Device
}

func (s *fakeSession) Devices(_ context.Context) (map[string]Device, error) {
	return s.devices, nil
}

// scriptedDevice replays a sequence of samples, then repeats the last one.
type scriptedDevice struct {
	mu      sync.Mutex
	samples []*models.DeviceSample
	err     error
	calls   int
}

func (d *scriptedDevice) Location(_ context.Context) (*models.DeviceSample, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	idx := d.calls
	if idx >= len(d.samples) {
		idx = len(d.samples) - 1
	}
	d.calls++
	if idx < 0 {
		return nil, nil
	}
	return d.samples[idx], nil
}

func accurateSample(ts int64, lng, lat float64) *models.DeviceSample {
	return &models.DeviceSample{
		LocationFinished:   true,
		HorizontalAccuracy: 10,
		Longitude:          lng,
		Latitude:           lat,
		TimeStamp:          ts,
	}
}

func inaccurateSample(ts int64) *models.DeviceSample {
	return &models.DeviceSample{
		LocationFinished:   true,
		IsInaccurate:       true,
		HorizontalAccuracy: 10,
		TimeStamp:          ts,
	}
}
