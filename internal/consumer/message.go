// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

package consumer

import (
	"regexp"
	"strings"
)

// InboundMessage is a forwarded tracker notification: a sender address the
// settings lookup keys on, and a free-text body carrying the import URL.
type InboundMessage struct {
	From string
	Body string
}

var (
	importLinkPattern = regexp.MustCompile(`Import Link: (.*)`)
	importURLPattern  = regexp.MustCompile(`Import URL: (.*)`)
	finishedPattern   = regexp.MustCompile(`Finished [A-Za-z0-9-_]+:`)
)

// ExtractImportURL pulls the route document URL out of a message body.
// Newer tracker builds label it "Import Link", older ones "Import URL";
// both are accepted. Returns "" when neither label is present.
func ExtractImportURL(body string) string {
	m := importLinkPattern.FindStringSubmatch(body)
	if m == nil {
		m = importURLPattern.FindStringSubmatch(body)
	}
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// IndicatesFinished reports whether the message announces the end of an
// activity ("Finished Cycling:", "Finished Run:", ...).
func IndicatesFinished(body string) bool {
	return finishedPattern.MatchString(body)
}
