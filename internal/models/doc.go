// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

// Package models defines the persisted entities and wire formats shared
// across the ingestion pipeline: sources, snapshots, per-user consumer
// settings, and the inbound payloads of the check-in and device-location
// boundaries.
//
// A Source is a named feed of location data. Each source carries sync
// state owned exclusively by the consumer that created it; no other
// consumer may interpret it. A Snapshot is one immutable timestamped
// coordinate observation tied to exactly one source.
package models
