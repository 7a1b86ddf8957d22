// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

package models

import "time"

// DeviceSample is one raw fix returned by the external device-location API.
//
// A nil *DeviceSample means the service had no fix at all for the device.
type DeviceSample struct {
	LocationFinished   bool    `json:"locationFinished"`
	IsInaccurate       bool    `json:"isInaccurate"`
	IsOld              bool    `json:"isOld"`
	HorizontalAccuracy float64 `json:"horizontalAccuracy"` // meters, lower is better
	Longitude          float64 `json:"longitude"`
	Latitude           float64 `json:"latitude"`
	TimeStamp          int64   `json:"timeStamp"` // epoch milliseconds
}

// Instant returns the sample's observation time rendered in the given
// location.
func (s *DeviceSample) Instant(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.UnixMilli(s.TimeStamp).In(loc)
}

// Point returns the sample's coordinate.
func (s *DeviceSample) Point() Point {
	return Point{Lng: s.Longitude, Lat: s.Latitude}
}
