// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

package consumer

import (
	"fmt"
	"time"
)

// UnknownUserError is returned when an inbound event carries an external
// identity that no local user has claimed.
type UnknownUserError struct {
	Provider   string
	ExternalID string
}

func (e *UnknownUserError) Error() string {
	return fmt.Sprintf("no user bound to %s identity %q", e.Provider, e.ExternalID)
}

// LoginFailureError indicates the device API rejected the stored credentials.
// Implementations of DeviceAPI return it from Authenticate; the batch driver
// treats it as terminal for the affected user.
type LoginFailureError struct {
	Username string
	Err      error
}

func (e *LoginFailureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("device API login failed for %q: %v", e.Username, e.Err)
	}
	return fmt.Sprintf("device API login failed for %q", e.Username)
}

func (e *LoginFailureError) Unwrap() error { return e.Err }

// UnknownDeviceError indicates the authenticated account has no device with
// the configured identifier.
type UnknownDeviceError struct {
	Username string
	DeviceID string
}

func (e *UnknownDeviceError) Error() string {
	return fmt.Sprintf("account %q has no device %q", e.Username, e.DeviceID)
}

// LocationUnavailableError indicates the poll loop could not acquire an
// accurate fix before its wall-clock deadline. It is expected under poor
// reception and is not escalated.
type LocationUnavailableError struct {
	DeviceID string
	Waited   time.Duration
}

func (e *LocationUnavailableError) Error() string {
	return fmt.Sprintf("no accurate location for device %q within %s", e.DeviceID, e.Waited)
}
