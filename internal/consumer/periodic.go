// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

package consumer

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"

	"github.com/tomtom215/waypost/internal/logging"
)

// Periodic is a consumer that runs on a fixed interval. RunPeriodic handles
// one whole batch; unit-level failures stay inside the batch, and a non-nil
// error means the batch itself could not run.
type Periodic interface {
	Name() string
	RunPeriodic(ctx context.Context) error
}

// Scheduler drives the periodic consumers. All interval jobs register here
// rather than each consumer owning a timer loop.
type Scheduler struct {
	scheduler gocron.Scheduler
	log       zerolog.Logger
}

func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Scheduler{
		scheduler: s,
		log:       logging.With().Str("component", "scheduler").Logger(),
	}, nil
}

// Add registers a periodic consumer at the given interval. Must be called
// before Serve.
func (s *Scheduler) Add(p Periodic, every time.Duration) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), every)
			defer cancel()
			if err := p.RunPeriodic(ctx); err != nil {
				s.log.Error().Err(err).Str("consumer", p.Name()).Msg("batch run failed")
			}
		}),
		gocron.WithName(p.Name()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", p.Name(), err)
	}
	s.log.Info().Str("consumer", p.Name()).Dur("interval", every).Msg("consumer scheduled")
	return nil
}

// Serve runs the scheduler until the context is canceled. It satisfies
// suture.Service.
func (s *Scheduler) Serve(ctx context.Context) error {
	s.scheduler.Start()
	<-ctx.Done()
	if err := s.scheduler.Shutdown(); err != nil {
		s.log.Warn().Err(err).Msg("scheduler shutdown")
	}
	return ctx.Err()
}

func (s *Scheduler) String() string { return "consumer-scheduler" }
