// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

package models

import "time"

// ConsumerSettings is the per-user static configuration for the location
// consumers: which consumers are enabled and the credentials/addresses
// they need.
//
// Consumers treat settings as read-only input, except that a consumer may
// disable itself for a user after a fatal external failure (bad
// credentials, missing device).
type ConsumerSettings struct {
	UserID string `json:"user_id"`

	CheckinEnabled bool `json:"checkin_enabled"`

	Polling PollingSettings `json:"polling"`
	Route   RouteSettings   `json:"route"`

	UpdatedAt time.Time `json:"updated_at"`
}

// PollingSettings configures the device-location polling consumer for one
// user.
type PollingSettings struct {
	Enabled  bool   `json:"enabled"`
	Username string `json:"username"`
	Password string `json:"password"`
	DeviceID string `json:"device_id"`
	Timezone string `json:"timezone"` // IANA name used to render sample instants
}

// RouteSettings configures the route-track consumer for one user.
type RouteSettings struct {
	Enabled bool `json:"enabled"`
	// Email is the sender address route-tracking messages arrive from.
	Email string `json:"email"`
}

// ExternalIdentity maps an external provider's user identifier to an
// internal user. Check-in events carry external identifiers only.
type ExternalIdentity struct {
	Provider   string `json:"provider"`
	ExternalID string `json:"external_id"`
	UserID     string `json:"user_id"`
}
