// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/waypost/internal/store"
)

// CurrentLocation returns the user's most recent snapshot across all
// source types.
func (h *Handler) CurrentLocation(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID := chi.URLParam(r, "id")
	if userID == "" {
		rw.BadRequest("user id is required")
		return
	}

	snapshot, err := h.store.Snapshots.LatestForUser(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("latest snapshot lookup failed")
		rw.InternalError("failed to look up location")
		return
	}
	if snapshot == nil {
		rw.NotFound("no location recorded for this user")
		return
	}
	rw.Success(snapshot)
}

// SourceHistory returns a source's snapshots in observation order.
func (h *Handler) SourceHistory(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	sourceID := chi.URLParam(r, "id")
	if sourceID == "" {
		rw.BadRequest("source id is required")
		return
	}

	if _, err := h.store.Sources.Get(r.Context(), sourceID); err != nil {
		if errors.Is(err, store.ErrSourceNotFound) {
			rw.NotFound("source not found")
			return
		}
		h.log.Error().Err(err).Str("source_id", sourceID).Msg("source lookup failed")
		rw.InternalError("failed to look up source")
		return
	}
	snaps, err := h.store.Snapshots.ListForSource(r.Context(), sourceID)
	if err != nil {
		h.log.Error().Err(err).Str("source_id", sourceID).Msg("source history lookup failed")
		rw.InternalError("failed to list snapshots")
		return
	}
	rw.Success(snaps)
}
