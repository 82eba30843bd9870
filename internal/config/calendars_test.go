package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCalendars(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calendars.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadCalendarsValid(t *testing.T) {
	path := writeCalendars(t, `[
		{
			"id": "software-meetings",
			"name": "Software Meetings",
			"url": "https://calendar.example.edu/software.ics",
			"channel": "software-leads",
			"lead_times": ["24h", "15m"],
			"recurrence_aware": true
		},
		{
			"id": "outreach",
			"url": "https://calendar.example.edu/outreach.ics",
			"channel": "general",
			"lead_times": ["1h"]
		}
	]`)

	calendars, err := LoadCalendars(path)
	require.NoError(t, err)
	require.Len(t, calendars, 2)

	assert.Equal(t, "software-meetings", calendars[0].CalendarID)
	assert.Equal(t, "Software Meetings", calendars[0].Name)
	assert.Equal(t, []time.Duration{24 * time.Hour, 15 * time.Minute}, calendars[0].LeadTimes)
	assert.True(t, calendars[0].RecurrenceAware)

	// Name falls back to the id when omitted.
	assert.Equal(t, "outreach", calendars[1].Name)
	assert.False(t, calendars[1].RecurrenceAware)
}

func TestLoadCalendarsRejectsBadInput(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "empty list",
			body:    `[]`,
			wantErr: "no calendars",
		},
		{
			name:    "not json",
			body:    `calendars:`,
			wantErr: "parse calendars file",
		},
		{
			name:    "missing id",
			body:    `[{"url": "https://x.example/c.ics", "channel": "general", "lead_times": ["1h"]}]`,
			wantErr: "id is required",
		},
		{
			name: "duplicate id",
			body: `[
				{"id": "a", "url": "https://x.example/a.ics", "channel": "general", "lead_times": ["1h"]},
				{"id": "a", "url": "https://x.example/b.ics", "channel": "general", "lead_times": ["1h"]}
			]`,
			wantErr: "duplicate id",
		},
		{
			name:    "missing url",
			body:    `[{"id": "a", "channel": "general", "lead_times": ["1h"]}]`,
			wantErr: "url is required",
		},
		{
			name:    "missing channel",
			body:    `[{"id": "a", "url": "https://x.example/a.ics", "lead_times": ["1h"]}]`,
			wantErr: "channel is required",
		},
		{
			name:    "no lead times",
			body:    `[{"id": "a", "url": "https://x.example/a.ics", "channel": "general", "lead_times": []}]`,
			wantErr: "at least one lead time",
		},
		{
			name:    "unparsable lead time",
			body:    `[{"id": "a", "url": "https://x.example/a.ics", "channel": "general", "lead_times": ["tomorrow"]}]`,
			wantErr: "invalid lead time",
		},
		{
			name:    "negative lead time",
			body:    `[{"id": "a", "url": "https://x.example/a.ics", "channel": "general", "lead_times": ["-15m"]}]`,
			wantErr: "must be positive",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadCalendars(writeCalendars(t, tc.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadCalendarsMissingFile(t *testing.T) {
	_, err := LoadCalendars(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read calendars file")
}
