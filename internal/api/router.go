// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/waypost/internal/logging"
)

// Router builds the HTTP routing tree around a Handler.
func Router(h *Handler, rateLimit int) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(rateLimit, time.Minute))

		r.Post("/checkin/webhook", h.CheckinWebhook)
		r.Post("/route/message", h.RouteMessage)
		r.Get("/users/{id}/location", h.CurrentLocation)
		r.Get("/users/{id}/settings", h.GetSettings)
		r.Put("/users/{id}/settings", h.PutSettings)
		r.Post("/users/{id}/identities", h.PutIdentity)
		r.Get("/sources/{id}/history", h.SourceHistory)
	})

	return r
}

// requestLogger logs one line per request. Bodies and credentials never
// reach the log.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logging.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Msg("http request")
	})
}
