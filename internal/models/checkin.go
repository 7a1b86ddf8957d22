// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

package models

import (
	"fmt"
	"time"
)

// EventTypeCheckin is the only check-in event kind the pipeline consumes.
const EventTypeCheckin = "checkin"

// CheckinEvent is the inbound check-in webhook payload.
type CheckinEvent struct {
	Type      string       `json:"type"`
	Venue     CheckinVenue `json:"venue"`
	CreatedAt int64        `json:"createdAt"` // epoch seconds
	TimeZone  string       `json:"timeZone"`  // IANA name
	User      CheckinUser  `json:"user"`
}

// CheckinVenue names the place a check-in happened at.
type CheckinVenue struct {
	Name     string `json:"name"`
	Location Point  `json:"location"`
}

// CheckinUser carries the external user identifier of the check-in author.
type CheckinUser struct {
	ID string `json:"id"`
}

// IsCheckin reports whether the event kind is one the pipeline consumes.
func (e *CheckinEvent) IsCheckin() bool {
	return e.Type == EventTypeCheckin
}

// Instant returns the event's creation time interpreted in its declared
// timezone.
func (e *CheckinEvent) Instant() (time.Time, error) {
	loc, err := time.LoadLocation(e.TimeZone)
	if err != nil {
		return time.Time{}, fmt.Errorf("load timezone %q: %w", e.TimeZone, err)
	}
	return time.Unix(e.CreatedAt, 0).In(loc), nil
}
