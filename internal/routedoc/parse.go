// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

// Package routedoc parses the KML-style incremental route documents
// published by route-tracking apps: a route/activity name, a UTC start
// instant, and a newline-delimited coordinate table where each row is
// "offsetSeconds,lng,lat".
package routedoc

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
)

// startTimeLayout is the start-time node format (UTC, no zone suffix).
const startTimeLayout = "2006-01-02 15:04:05"

// ParseError reports a malformed route document.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse route document: %s: %v", e.Reason, e.Err)
	}
	return "parse route document: " + e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Point is one raw coordinate-table row. Key is the raw row text, unique
// within a document and stable across re-fetches.
type Point struct {
	Key    string
	Offset float64 // seconds since route start
	Lng    float64
	Lat    float64
}

// Document is a parsed route document.
type Document struct {
	// Name is the route name, falling back to the activity name; empty
	// when the document names neither.
	Name string
	// Start is the route's UTC start instant.
	Start time.Time
	// Points are the coordinate-table rows in document order.
	Points []Point
}

// Parse decodes a route document. All failures return *ParseError.
func Parse(data []byte) (*Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, &ParseError{Reason: "invalid XML", Err: err}
	}
	root := doc.Root()
	if root == nil {
		return nil, &ParseError{Reason: "empty document"}
	}

	out := &Document{Name: routeName(root)}

	startNode := findFirst(root, "startTime")
	if startNode == nil {
		return nil, &ParseError{Reason: "missing startTime node"}
	}
	start, err := parseStartTime(startNode.Text())
	if err != nil {
		return nil, err
	}
	out.Start = start

	table := findFirst(root, "coordinateTable")
	if table == nil {
		return nil, &ParseError{Reason: "missing coordinateTable node"}
	}
	points, err := parseCoordinateTable(table.Text())
	if err != nil {
		return nil, err
	}
	out.Points = points

	return out, nil
}

// routeName resolves the human-readable name: routeName node first,
// activityName as fallback.
func routeName(root *etree.Element) string {
	if node := findFirst(root, "routeName"); node != nil {
		return strings.TrimSpace(node.Text())
	}
	if node := findFirst(root, "activityName"); node != nil {
		return strings.TrimSpace(node.Text())
	}
	return ""
}

// parseStartTime decodes the first 19 characters of the start-time node
// as a UTC instant; trailing fractional seconds are ignored.
func parseStartTime(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	if len(text) < len(startTimeLayout) {
		return time.Time{}, &ParseError{Reason: fmt.Sprintf("start time %q too short", text)}
	}
	start, err := time.ParseInLocation(startTimeLayout, text[:len(startTimeLayout)], time.UTC)
	if err != nil {
		return time.Time{}, &ParseError{Reason: "invalid start time", Err: err}
	}
	return start, nil
}

// parseCoordinateTable decodes "offset,lng,lat" rows, skipping blank
// lines. The raw row text becomes the point key.
func parseCoordinateTable(text string) ([]Point, error) {
	var points []Point
	for _, row := range strings.Split(text, "\n") {
		row = strings.TrimSpace(row)
		if row == "" {
			continue
		}
		cols := strings.Split(row, ",")
		if len(cols) < 3 {
			return nil, &ParseError{Reason: fmt.Sprintf("coordinate row %q has %d columns", row, len(cols))}
		}
		offset, err := strconv.ParseFloat(cols[0], 64)
		if err != nil {
			return nil, &ParseError{Reason: fmt.Sprintf("coordinate row %q offset", row), Err: err}
		}
		lng, err := strconv.ParseFloat(cols[1], 64)
		if err != nil {
			return nil, &ParseError{Reason: fmt.Sprintf("coordinate row %q longitude", row), Err: err}
		}
		lat, err := strconv.ParseFloat(cols[2], 64)
		if err != nil {
			return nil, &ParseError{Reason: fmt.Sprintf("coordinate row %q latitude", row), Err: err}
		}
		points = append(points, Point{Key: row, Offset: offset, Lng: lng, Lat: lat})
	}
	return points, nil
}

// findFirst walks the tree in document order and returns the first
// element whose local name matches, regardless of namespace prefix.
func findFirst(el *etree.Element, local string) *etree.Element {
	if el.Tag == local {
		return el
	}
	for _, child := range el.ChildElements() {
		if found := findFirst(child, local); found != nil {
			return found
		}
	}
	return nil
}
