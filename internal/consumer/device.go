// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

package consumer

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/waypost/internal/models"
)

// DeviceAPI is the upstream device-location service. Authenticate returns a
// *LoginFailureError when the credentials are rejected; any other error is a
// transport or service fault.
type DeviceAPI interface {
	Authenticate(ctx context.Context, username, password string) (DeviceSession, error)
}

// DeviceSession is an authenticated account on the device API.
type DeviceSession interface {
	// Devices lists the account's devices keyed by device identifier.
	Devices(ctx context.Context) (map[string]Device, error)
}

// Device reports fixes for one physical device.
type Device interface {
	// Location returns the device's current fix. The fix may be partial
	// or inaccurate; callers run it through the accuracy filter.
	Location(ctx context.Context) (*models.DeviceSample, error)
}

// BreakerDeviceAPI wraps a DeviceAPI with a circuit breaker so an upstream
// outage doesn't get hammered by every batch tick. Credential rejections are
// definitive answers, not outages, and do not count toward tripping.
type BreakerDeviceAPI struct {
	inner DeviceAPI
	cb    *gobreaker.CircuitBreaker[DeviceSession]
}

func NewBreakerDeviceAPI(inner DeviceAPI) *BreakerDeviceAPI {
	cb := gobreaker.NewCircuitBreaker[DeviceSession](gobreaker.Settings{
		Name:        "device-api",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var badCreds *LoginFailureError
			return errors.As(err, &badCreds)
		},
	})
	return &BreakerDeviceAPI{inner: inner, cb: cb}
}

func (b *BreakerDeviceAPI) Authenticate(ctx context.Context, username, password string) (DeviceSession, error) {
	return b.cb.Execute(func() (DeviceSession, error) {
		return b.inner.Authenticate(ctx, username, password)
	})
}

// State exposes the breaker state for monitoring.
func (b *BreakerDeviceAPI) State() string {
	return b.cb.State().String()
}
