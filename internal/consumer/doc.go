// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

// Package consumer implements the location ingestion consumers: check-in
// events, scheduled device polling, and incremental route-document sync.
// Consumers persist through the store, wrap their writes in the change
// watcher, and surface batch health through per-unit outcomes.
package consumer
