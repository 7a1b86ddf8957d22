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

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/waypost/internal/models"
	"github.com/tomtom215/waypost/internal/store"
)

// GetSettings returns a user's consumer settings. Credentials are redacted.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID := chi.URLParam(r, "id")
	settings, err := h.store.Settings.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrSettingsNotFound) {
			rw.NotFound("no settings for this user")
			return
		}
		h.log.Error().Err(err).Str("user_id", userID).Msg("settings lookup failed")
		rw.InternalError("failed to look up settings")
		return
	}

	redacted := *settings
	if redacted.Polling.Password != "" {
		redacted.Polling.Password = "redacted"
	}
	rw.Success(&redacted)
}

// PutSettings replaces a user's consumer settings.
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID := chi.URLParam(r, "id")
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		rw.BadRequest("failed to read request body")
		return
	}

	var settings models.ConsumerSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		rw.BadRequest("malformed settings payload")
		return
	}
	settings.UserID = userID

	if settings.Polling.Enabled {
		if settings.Polling.Username == "" || settings.Polling.DeviceID == "" {
			rw.Error(http.StatusBadRequest, ErrCodeValidationFailed, "polling requires a username and device id")
			return
		}
	}
	if settings.Route.Enabled && strings.TrimSpace(settings.Route.Email) == "" {
		rw.Error(http.StatusBadRequest, ErrCodeValidationFailed, "route tracking requires a sender email")
		return
	}

	if err := h.store.Settings.Put(r.Context(), &settings); err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("settings write failed")
		rw.InternalError("failed to store settings")
		return
	}
	rw.Success(map[string]string{"status": "stored"})
}

// identityRequest binds an external provider identity to the user.
type identityRequest struct {
	Provider   string `json:"provider"`
	ExternalID string `json:"external_id"`
}

// PutIdentity registers an external identity for the user so inbound
// check-in events can be attributed.
func (h *Handler) PutIdentity(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID := chi.URLParam(r, "id")
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		rw.BadRequest("failed to read request body")
		return
	}

	var req identityRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		rw.BadRequest("malformed identity payload")
		return
	}
	if req.Provider == "" || req.ExternalID == "" {
		rw.Error(http.StatusBadRequest, ErrCodeValidationFailed, "provider and external_id are required")
		return
	}

	identity := &models.ExternalIdentity{
		Provider:   req.Provider,
		ExternalID: req.ExternalID,
		UserID:     userID,
	}
	if err := h.store.Identities.Put(r.Context(), identity); err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("identity write failed")
		rw.InternalError("failed to store identity")
		return
	}
	rw.Created(identity)
}
