// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

package consumer

import (
	"fmt"

	"github.com/tomtom215/waypost/internal/models"
)

// Verdict reports each condition the accuracy filter evaluated, so callers
// can log exactly why a fix was rejected.
type Verdict struct {
	Missing          bool
	NotFinished      bool
	MarkedInaccurate bool
	MarkedOld        bool
	AboveThreshold   bool

	HorizontalAccuracy float64
	Threshold          float64
}

// Accurate reports whether the fix passed every condition.
func (v Verdict) Accurate() bool {
	return !v.Missing && !v.NotFinished && !v.MarkedInaccurate && !v.MarkedOld && !v.AboveThreshold
}

// Reason returns a short description of the first failing condition, or ""
// if the fix is accurate.
func (v Verdict) Reason() string {
	switch {
	case v.Missing:
		return "no location data"
	case v.NotFinished:
		return "location not ready"
	case v.AboveThreshold:
		return fmt.Sprintf("horizontal accuracy %.1fm exceeds %.1fm", v.HorizontalAccuracy, v.Threshold)
	case v.MarkedInaccurate:
		return "marked inaccurate by device"
	case v.MarkedOld:
		return "marked stale by device"
	default:
		return ""
	}
}

// AccuracyFilter decides whether a device fix is good enough to persist.
// Lower horizontal accuracy is better.
type AccuracyFilter struct {
	threshold float64
}

func NewAccuracyFilter(thresholdMeters float64) AccuracyFilter {
	return AccuracyFilter{threshold: thresholdMeters}
}

// Check evaluates every condition independently; a fix failing one condition
// still reports the state of the others.
func (f AccuracyFilter) Check(sample *models.DeviceSample) Verdict {
	v := Verdict{Threshold: f.threshold}
	if sample == nil {
		v.Missing = true
		return v
	}
	v.HorizontalAccuracy = sample.HorizontalAccuracy
	v.NotFinished = !sample.LocationFinished
	v.MarkedInaccurate = sample.IsInaccurate
	v.MarkedOld = sample.IsOld
	v.AboveThreshold = sample.HorizontalAccuracy > f.threshold
	return v
}
