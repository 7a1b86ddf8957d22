// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/waypost/internal/consumer"
	"github.com/tomtom215/waypost/internal/routedoc"
	"github.com/tomtom215/waypost/internal/store"
)

// routeMessageRequest is a forwarded tracker notification.
type routeMessageRequest struct {
	From string `json:"from"`
	Body string `json:"body"`
}

// RouteMessage accepts a forwarded tracker message, binds it to a route
// source, and runs an immediate sync.
func (h *Handler) RouteMessage(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if !h.cfg.Route.Enabled {
		rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "route ingestion is disabled")
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		rw.BadRequest("failed to read request body")
		return
	}

	var req routeMessageRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		rw.BadRequest("malformed message payload")
		return
	}
	if strings.TrimSpace(req.From) == "" {
		rw.BadRequest("sender address is required")
		return
	}

	source, err := h.routes.HandleMessage(r.Context(), &consumer.InboundMessage{
		From: req.From,
		Body: req.Body,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrSettingsNotFound):
			h.log.Warn().Str("from", req.From).Msg("route message from unknown sender")
			rw.NotFound("no user accepts route messages from this sender")
		case source == nil:
			rw.BadRequest(err.Error())
		default:
			// The source is bound; only the initial sync failed. The
			// periodic driver will retry it.
			var parseErr *routedoc.ParseError
			if errors.As(err, &parseErr) {
				h.log.Warn().Err(err).Str("source_id", source.ID).Msg("initial route sync failed")
			} else {
				h.log.Error().Err(err).Str("source_id", source.ID).Msg("initial route sync failed")
			}
			rw.UpstreamFailed("route source bound but initial sync failed")
		}
		return
	}

	rw.Created(source)
}
