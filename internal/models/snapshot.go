// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

package models

import (
	"time"

	"github.com/google/uuid"
)

// Point is a geographic coordinate.
type Point struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// Equal reports whether two points have identical coordinates.
func (p Point) Equal(o Point) bool {
	return p.Lng == o.Lng && p.Lat == o.Lat
}

// Snapshot is one observed point-in-time location.
//
// Snapshots are immutable once created: consumers only ever append new
// ones. ObservedAt is source-supplied; CreatedAt is assigned at ingestion
// and never changes. UserID is denormalized from the owning source so
// latest-for-user reads need no join.
type Snapshot struct {
	ID         string     `json:"id"`
	SourceID   string     `json:"source_id"`
	SourceType SourceType `json:"source_type"`
	UserID     string     `json:"user_id"`
	Point      Point      `json:"point"`
	ObservedAt time.Time  `json:"observed_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NewSnapshot creates a snapshot for the given source with an ingestion
// timestamp of now.
func NewSnapshot(source *Source, point Point, observedAt time.Time) *Snapshot {
	return &Snapshot{
		ID:         uuid.New().String(),
		SourceID:   source.ID,
		SourceType: source.Type,
		UserID:     source.UserID,
		Point:      point,
		ObservedAt: observedAt,
		CreatedAt:  time.Now().UTC(),
	}
}

// Same reports whether two snapshots are the same observation by identity.
// Either side may be nil.
func (s *Snapshot) Same(o *Snapshot) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.ID == o.ID
}
