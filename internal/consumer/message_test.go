// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

package consumer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractImportURL(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "import link label",
			body: "Started Cycling.\nImport Link: http://example.com/routes/1.kml\nCheers",
			want: "http://example.com/routes/1.kml",
		},
		{
			name: "legacy import url label",
			body: "Started Running.\nImport URL: http://example.com/routes/2.kml",
			want: "http://example.com/routes/2.kml",
		},
		{
			name: "link label wins over url label",
			body: "Import Link: http://example.com/a.kml\nImport URL: http://example.com/b.kml",
			want: "http://example.com/a.kml",
		},
		{
			name: "trailing whitespace trimmed",
			body: "Import Link: http://example.com/routes/3.kml \r",
			want: "http://example.com/routes/3.kml",
		},
		{
			name: "no label",
			body: "Just finished a great ride!",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractImportURL(tt.body))
		})
	}
}

func TestIndicatesFinished(t *testing.T) {
	assert.True(t, IndicatesFinished("Finished Cycling: 12.4 mi in 58:02"))
	assert.True(t, IndicatesFinished("body\nFinished Walk-2: done"))
	assert.False(t, IndicatesFinished("Started Cycling: off we go"))
	assert.False(t, IndicatesFinished("Finished without a colon token"))
}
