// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

package api

import (
	"net/http"
	"time"
)

// HealthStatus is the health endpoint payload.
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Consumers struct {
		Checkin bool `json:"checkin"`
		Polling bool `json:"polling"`
		Route   bool `json:"route"`
	} `json:"consumers"`
}

// Health reports process liveness and which consumers are enabled.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
	}
	status.Consumers.Checkin = h.cfg.Checkin.Enabled
	status.Consumers.Polling = h.cfg.Polling.Enabled
	status.Consumers.Route = h.cfg.Route.Enabled

	rw.Success(status)
}
