// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

// Package main is the entry point for the Waypost server.
//
// Waypost ingests location data from three kinds of feeds - venue check-in
// webhooks, polled device fixes, and incrementally synced route documents -
// and publishes change notifications whenever a user's current location
// moves.
//
// The server initializes components in the following order:
//
//  1. Configuration: layered sources via Koanf v2 (defaults, config file,
//     WAYPOST_* environment variables)
//  2. Storage: BadgerDB holding sources, snapshots, settings, identities
//  3. Notification bus: in-process Watermill pub/sub
//  4. Consumers: check-in, device polling, route sync
//  5. HTTP API and the periodic scheduler, both under suture supervision
//
// Shutdown on SIGINT/SIGTERM drains in-flight HTTP requests and stops the
// scheduler before closing the store.
package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/waypost/internal/api"
	"github.com/tomtom215/waypost/internal/config"
	"github.com/tomtom215/waypost/internal/consumer"
	"github.com/tomtom215/waypost/internal/deviceapi"
	"github.com/tomtom215/waypost/internal/logging"
	"github.com/tomtom215/waypost/internal/notify"
	"github.com/tomtom215/waypost/internal/routedoc"
	"github.com/tomtom215/waypost/internal/store"
	"github.com/tomtom215/waypost/internal/watcher"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("server failed")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	logging.Info().Msg("starting waypost")

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Warn().Err(err).Msg("store close")
		}
	}()

	bus := notify.NewBus(cfg.Notify)
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Warn().Err(err).Msg("notification bus close")
		}
	}()

	w := watcher.New(st.Snapshots, bus)

	checkins := consumer.NewCheckinConsumer(cfg.Checkin, st, w)
	fetcher := routedoc.NewHTTPFetcher(cfg.Route.FetchTimeout)
	routes := consumer.NewRouteSyncConsumer(cfg.Route, st, fetcher, w)

	scheduler, err := consumer.NewScheduler()
	if err != nil {
		return err
	}
	if cfg.Polling.Enabled {
		deviceAPI := consumer.NewBreakerDeviceAPI(deviceapi.New(cfg.Polling.Endpoint, cfg.Polling.MaxWait))
		poller := consumer.NewPollingConsumer(cfg.Polling, deviceAPI, st, w, notify.LogEscalator{})
		if err := scheduler.Add(poller, cfg.Polling.Interval); err != nil {
			return err
		}
	}
	if cfg.Route.Enabled {
		if err := scheduler.Add(routes, cfg.Route.Interval); err != nil {
			return err
		}
	}

	handler := api.NewHandler(cfg, st, checkins, routes)
	server := api.NewServer(cfg.Server, api.Router(handler, cfg.Server.RateLimit))

	sup := suture.New("waypost", suture.Spec{
		EventHook: func(e suture.Event) {
			logging.Warn().Str("event", e.String()).Msg("supervision event")
		},
	})
	sup.Add(server)
	sup.Add(scheduler)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = sup.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logging.Info().Msg("shutdown complete")
	return nil
}
