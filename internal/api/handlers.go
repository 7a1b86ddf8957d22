// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

package api

import (
	"github.com/rs/zerolog"

	"github.com/tomtom215/waypost/internal/config"
	"github.com/tomtom215/waypost/internal/consumer"
	"github.com/tomtom215/waypost/internal/logging"
	"github.com/tomtom215/waypost/internal/store"
)

// Handler bundles the dependencies of all HTTP endpoints.
type Handler struct {
	cfg      *config.Config
	store    *store.Store
	checkins *consumer.CheckinConsumer
	routes   *consumer.RouteSyncConsumer
	log      zerolog.Logger
}

func NewHandler(cfg *config.Config, st *store.Store, checkins *consumer.CheckinConsumer, routes *consumer.RouteSyncConsumer) *Handler {
	return &Handler{
		cfg:      cfg,
		store:    st,
		checkins: checkins,
		routes:   routes,
		log:      logging.With().Str("component", "api").Logger(),
	}
}
