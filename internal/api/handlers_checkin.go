// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/waypost/internal/consumer"
	"github.com/tomtom215/waypost/internal/models"
)

// maxWebhookBody bounds inbound payload reads.
const maxWebhookBody = 1 << 20

// CheckinWebhook ingests one check-in event. Events of other types are
// acknowledged without effect so the sender doesn't retry them.
func (h *Handler) CheckinWebhook(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.cfg.Checkin.Enabled {
		rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "checkin ingestion is disabled")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		rw.BadRequest("failed to read request body")
		return
	}

	var event models.CheckinEvent
	if err := json.Unmarshal(body, &event); err != nil {
		rw.BadRequest("malformed checkin payload")
		return
	}

	snapshot, err := h.checkins.Process(r.Context(), &event)
	if err != nil {
		var unknown *consumer.UnknownUserError
		if errors.As(err, &unknown) {
			h.log.Warn().Str("external_id", unknown.ExternalID).Msg("checkin for unknown user")
			rw.NotFound("no user bound to this identity")
			return
		}
		h.log.Error().Err(err).Msg("checkin processing failed")
		rw.InternalError("failed to process checkin")
		return
	}

	if snapshot == nil {
		rw.Accepted(map[string]string{"status": "ignored"})
		return
	}
	rw.Created(snapshot)
}
