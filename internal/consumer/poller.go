// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

package consumer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/waypost/internal/config"
	"github.com/tomtom215/waypost/internal/logging"
	"github.com/tomtom215/waypost/internal/metrics"
	"github.com/tomtom215/waypost/internal/models"
	"github.com/tomtom215/waypost/internal/notify"
	"github.com/tomtom215/waypost/internal/store"
	"github.com/tomtom215/waypost/internal/watcher"
)

// PollingConsumer acquires device fixes on a schedule. Each accurate,
// non-duplicate fix becomes one inactive source plus one snapshot.
type PollingConsumer struct {
	cfg       config.PollingConfig
	api       DeviceAPI
	store     *store.Store
	filter    AccuracyFilter
	watcher   *watcher.Watcher
	escalator notify.Escalator
	log       zerolog.Logger
}

func NewPollingConsumer(cfg config.PollingConfig, api DeviceAPI, st *store.Store, w *watcher.Watcher, esc notify.Escalator) *PollingConsumer {
	return &PollingConsumer{
		cfg:       cfg,
		api:       api,
		store:     st,
		filter:    NewAccuracyFilter(cfg.AccuracyThreshold),
		watcher:   w,
		escalator: esc,
		log:       logging.With().Str("component", "polling-consumer").Logger(),
	}
}

func (c *PollingConsumer) Name() string { return "polling" }

// UpdateLocation runs one poll invocation for a user: authenticate, resolve
// the device, wait for an accurate fix, then persist unless a snapshot of
// this type already exists near the fix's instant. A nil snapshot with nil
// error means the fix was a duplicate.
func (c *PollingConsumer) UpdateLocation(ctx context.Context, settings *models.ConsumerSettings) (*models.Snapshot, error) {
	session, err := c.api.Authenticate(ctx, settings.Polling.Username, settings.Polling.Password)
	if err != nil {
		return nil, err
	}

	sample, err := c.acquireSample(ctx, session, settings.Polling.Username, settings.Polling.DeviceID)
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(settings.Polling.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", settings.Polling.Timezone, err)
	}
	instant := sample.Instant(loc)

	dup, err := c.store.Snapshots.ExistsNear(ctx, models.SourceTypeDevicePoll, settings.UserID, instant, c.cfg.DedupWindow)
	if err != nil {
		return nil, fmt.Errorf("dedup lookup: %w", err)
	}
	if dup {
		c.log.Info().
			Str("user_id", settings.UserID).
			Time("observed_at", instant).
			Msg("fix within dedup window of an existing snapshot, skipping")
		return nil, nil
	}

	source := models.NewSource(
		fmt.Sprintf("Device location at %s", instant.Format(time.RFC3339)),
		settings.UserID,
		models.SourceTypeDevicePoll,
	)
	snapshot := models.NewSnapshot(source, sample.Point(), instant)
	if err := c.store.CommitSourceSync(ctx, source, []*models.Snapshot{snapshot}); err != nil {
		return nil, fmt.Errorf("persist device fix: %w", err)
	}

	metrics.SnapshotsIngested.WithLabelValues(string(models.SourceTypeDevicePoll)).Inc()
	c.log.Info().
		Str("user_id", settings.UserID).
		Str("device_id", settings.Polling.DeviceID).
		Time("observed_at", instant).
		Msg("device fix recorded")
	return snapshot, nil
}

// acquireSample polls the device until the accuracy filter accepts a fix or
// the wall-clock deadline expires. Attempts are paced by the configured
// request interval.
func (c *PollingConsumer) acquireSample(ctx context.Context, session DeviceSession, username, deviceID string) (*models.DeviceSample, error) {
	devices, err := session.Devices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	device, ok := devices[deviceID]
	if !ok {
		return nil, &UnknownDeviceError{Username: username, DeviceID: deviceID}
	}

	pollCtx, cancel := context.WithTimeout(ctx, c.cfg.MaxWait)
	defer cancel()
	limiter := rate.NewLimiter(rate.Every(c.cfg.RequestInterval), 1)

	for {
		if err := limiter.Wait(pollCtx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			metrics.PollAttempts.WithLabelValues("timeout").Inc()
			return nil, &LocationUnavailableError{DeviceID: deviceID, Waited: c.cfg.MaxWait}
		}

		sample, err := device.Location(pollCtx)
		if err != nil {
			return nil, fmt.Errorf("fetch device location: %w", err)
		}

		verdict := c.filter.Check(sample)
		if verdict.Accurate() {
			metrics.PollAttempts.WithLabelValues("accurate").Inc()
			return sample, nil
		}
		metrics.PollAttempts.WithLabelValues("inaccurate").Inc()
		c.log.Debug().
			Str("device_id", deviceID).
			Str("reason", verdict.Reason()).
			Dur("retry_in", c.cfg.RequestInterval).
			Msg("fix rejected, waiting")
	}
}

// RunPeriodic polls every user whose settings enable device polling. Unit
// failures never abort the batch: credential and device-identity failures
// disable the unit and escalate to its owner, expected unavailability is
// skipped, anything else is logged.
func (c *PollingConsumer) RunPeriodic(ctx context.Context) error {
	all, err := c.store.Settings.ListPollingEnabled(ctx)
	if err != nil {
		metrics.ConsumerRuns.WithLabelValues(c.Name(), "error").Inc()
		return fmt.Errorf("list polling-enabled users: %w", err)
	}

	for _, settings := range all {
		result := c.runOne(ctx, settings)
		metrics.ConsumerRuns.WithLabelValues(c.Name(), string(result.Outcome)).Inc()
		switch result.Outcome {
		case OutcomeFailed:
			c.log.Error().Err(result.Err).Str("user_id", result.Unit).Msg("poll failed")
		case OutcomeEscalated:
			c.log.Warn().Err(result.Err).Str("user_id", result.Unit).Msg("polling disabled for user")
		default:
			c.log.Debug().Str("user_id", result.Unit).Str("outcome", string(result.Outcome)).Str("reason", result.Reason).Msg("poll finished")
		}
	}
	return nil
}

func (c *PollingConsumer) runOne(ctx context.Context, settings *models.ConsumerSettings) UnitResult {
	result := UnitResult{Unit: settings.UserID}

	var snapshot *models.Snapshot
	err := c.watcher.Observe(ctx, settings.UserID, func(ctx context.Context) error {
		var bodyErr error
		snapshot, bodyErr = c.UpdateLocation(ctx, settings)
		return bodyErr
	})

	switch {
	case err == nil && snapshot != nil:
		result.Outcome = OutcomeOK
	case err == nil:
		result.Outcome = OutcomeSkipped
		result.Reason = "duplicate fix"
	case isTerminal(err):
		c.disable(ctx, settings, err)
		result.Outcome = OutcomeEscalated
		result.Err = err
	case errorIs[*LocationUnavailableError](err):
		result.Outcome = OutcomeSkipped
		result.Reason = "location unavailable"
		result.Err = err
	default:
		result.Outcome = OutcomeFailed
		result.Err = err
	}
	return result
}

// disable switches polling off for the user and notifies them. The settings
// write failing is logged but doesn't resurrect the unit this run.
func (c *PollingConsumer) disable(ctx context.Context, settings *models.ConsumerSettings, cause error) {
	settings.Polling.Enabled = false
	if err := c.store.Settings.Put(ctx, settings); err != nil {
		c.log.Error().Err(err).Str("user_id", settings.UserID).Msg("failed to persist disabled polling settings")
	}
	if err := c.escalator.Escalate(ctx, settings.UserID,
		"Device polling disabled",
		fmt.Sprintf("Device location polling has been turned off for your account: %v. Update your settings to re-enable it.", cause),
	); err != nil {
		c.log.Error().Err(err).Str("user_id", settings.UserID).Msg("escalation failed")
	}
}

func isTerminal(err error) bool {
	return errorIs[*LoginFailureError](err) || errorIs[*UnknownDeviceError](err)
}

func errorIs[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}
