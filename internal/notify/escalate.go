// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

package notify

import (
	"context"

	"github.com/tomtom215/waypost/internal/logging"
	"github.com/tomtom215/waypost/internal/metrics"
)

// Escalator delivers a direct, email-equivalent notification to a user
// about a durable failure that required disabling one of their consumers
// (bad credentials, missing device).
type Escalator interface {
	Escalate(ctx context.Context, userID, subject, body string) error
}

// LogEscalator is the default Escalator: it records the escalation in the
// service log and metrics. Deployments with a mail gateway substitute
// their own implementation.
type LogEscalator struct{}

// Escalate logs the escalation.
func (LogEscalator) Escalate(ctx context.Context, userID, subject, body string) error {
	logging.Warn().
		Str("user", userID).
		Str("subject", subject).
		Str("body", body).
		Msg("User escalation")
	metrics.Escalations.WithLabelValues(subject).Inc()
	return nil
}
