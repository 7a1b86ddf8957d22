// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

// Package metrics exposes Prometheus instrumentation for the ingestion
// pipeline: snapshots persisted, consumer batch outcomes, poll attempts,
// and notification emission.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SnapshotsIngested counts persisted snapshots by source type.
	SnapshotsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waypost_snapshots_ingested_total",
			Help: "Total number of snapshots persisted",
		},
		[]string{"source_type"},
	)

	// ConsumerRuns counts per-unit batch outcomes by consumer and outcome.
	ConsumerRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waypost_consumer_runs_total",
			Help: "Total number of per-unit consumer invocations by outcome",
		},
		[]string{"consumer", "outcome"},
	)

	// PollAttempts counts device-location fetch attempts by result.
	PollAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waypost_poll_attempts_total",
			Help: "Total number of device location fetch attempts",
		},
		[]string{"result"}, // "accurate", "inaccurate", "error"
	)

	// NotificationsEmitted counts change notifications by kind.
	NotificationsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waypost_notifications_emitted_total",
			Help: "Total number of location change notifications emitted",
		},
		[]string{"kind"}, // "updated", "changed"
	)

	// Escalations counts user-facing failure escalations by reason.
	Escalations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waypost_escalations_total",
			Help: "Total number of user escalations for durable misconfiguration",
		},
		[]string{"reason"},
	)

	// RouteDocumentsFetched counts route document downloads by result.
	RouteDocumentsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waypost_route_documents_fetched_total",
			Help: "Total number of route document fetches",
		},
		[]string{"result"}, // "ok", "fetch_error", "parse_error"
	)
)
