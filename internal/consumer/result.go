// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

package consumer

// Outcome classifies how a single unit of a batch run ended.
type Outcome string

const (
	// OutcomeOK means the unit produced at least one new snapshot.
	OutcomeOK Outcome = "ok"
	// OutcomeSkipped means the unit ran but had nothing new to persist
	// (duplicate fix, no unseen route points, expected unavailability).
	OutcomeSkipped Outcome = "skipped"
	// OutcomeEscalated means the unit hit a terminal condition, was
	// disabled, and its owner was notified.
	OutcomeEscalated Outcome = "escalated"
	// OutcomeFailed means the unit hit an unexpected error. The batch
	// continues with the remaining units.
	OutcomeFailed Outcome = "failed"
)

// UnitResult records the fate of one unit (one user, one source) within a
// batch invocation. Batch drivers log these and never propagate unit errors
// to the scheduler.
type UnitResult struct {
	Unit    string
	Outcome Outcome
	Reason  string
	Err     error
}
