// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

package models

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// SourceType classifies a location feed for querying and grouping.
type SourceType string

// Source type constants.
const (
	// SourceTypeCheckin is a feed created from a single inbound check-in event.
	SourceTypeCheckin SourceType = "checkin"
	// SourceTypeDevicePoll is a feed created from one polled device fix.
	SourceTypeDevicePoll SourceType = "device-poll"
	// SourceTypeRouteTrack is an incrementally-synced route feed.
	SourceTypeRouteTrack SourceType = "route-track"
)

// Source is a named origin of location data.
//
// Sync state is a tagged variant: exactly one of Checkin or Route is set,
// matching the source type. The consumer that owns the source type is the
// only writer and reader of its state.
type Source struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	UserID string     `json:"user_id"`
	Type   SourceType `json:"type"`
	Active bool       `json:"active"`

	Checkin *CheckinState   `json:"checkin_state,omitempty"`
	Route   *RouteSyncState `json:"route_state,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSource creates a source with a fresh ID and creation timestamps.
func NewSource(name, userID string, sourceType SourceType) *Source {
	now := time.Now().UTC()
	return &Source{
		ID:        uuid.New().String(),
		Name:      name,
		UserID:    userID,
		Type:      sourceType,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CheckinState carries the raw check-in event that produced the source.
type CheckinState struct {
	Event CheckinEvent `json:"event"`
}

// RoutePoint is one raw point from a route document.
type RoutePoint struct {
	Key    string  `json:"key"`
	Offset float64 `json:"time"` // seconds since route start
	Lng    float64 `json:"lng"`
	Lat    float64 `json:"lat"`
}

// RouteSyncState is the incremental-sync cursor of a route-track source.
//
// KnownPoints records every point key the consumer has already processed,
// whether or not the point was persisted as a snapshot; keys present here
// are never reconsidered.
type RouteSyncState struct {
	ImportURL   string                `json:"url"`
	KnownPoints map[string]RoutePoint `json:"known_points"`
}

// routeSyncStateWire mirrors RouteSyncState with a raw known_points field
// so legacy encodings can be detected during decode.
type routeSyncStateWire struct {
	ImportURL   string          `json:"url"`
	KnownPoints json.RawMessage `json:"known_points"`
}

// UnmarshalJSON decodes route sync state, migrating the legacy list-shaped
// known_points encoding to an empty map. The migration is one-way and not
// an error: the next sync rebuilds the set from the document.
func (s *RouteSyncState) UnmarshalJSON(data []byte) error {
	var wire routeSyncStateWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	s.ImportURL = wire.ImportURL
	s.KnownPoints = map[string]RoutePoint{}

	if len(wire.KnownPoints) == 0 {
		return nil
	}

	var points map[string]RoutePoint
	if err := json.Unmarshal(wire.KnownPoints, &points); err != nil {
		// Legacy list shape (or anything else non-map): reset to empty.
		return nil
	}
	if points != nil {
		s.KnownPoints = points
	}
	return nil
}
