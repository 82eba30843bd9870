package calendar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatorlabs/labbot/internal/model"
	"github.com/gatorlabs/labbot/internal/ports"
)

func icsFeed(lines ...string) string {
	all := append([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//labbot//tests//EN",
	}, lines...)
	all = append(all, "END:VCALENDAR")
	return strings.Join(all, "\r\n") + "\r\n"
}

func weeklyEvent(extra ...string) []string {
	lines := []string{
		"BEGIN:VEVENT",
		"UID:weekly-sync@labbot.test",
		"DTSTAMP:20260101T000000Z",
		"DTSTART:20260309T180000Z",
		"DTEND:20260309T190000Z",
		"SUMMARY:Weekly Software Sync",
		"LOCATION:MALA 3001",
		"RRULE:FREQ=WEEKLY",
	}
	lines = append(lines, extra...)
	return append(lines, "END:VEVENT")
}

func serveICS(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func sourceFor(url string, recurrenceAware bool) *Source {
	return NewSource([]model.CalendarConfig{{
		CalendarID:      "software-meetings",
		Name:            "Software Meetings",
		URL:             url,
		Channel:         "software-leads",
		LeadTimes:       []time.Duration{15 * time.Minute},
		RecurrenceAware: recurrenceAware,
	}}, 5*time.Second)
}

func TestListOccurrencesExpandsWeeklyRecurrence(t *testing.T) {
	server := serveICS(t, icsFeed(weeklyEvent()...))
	source := sourceFor(server.URL, true)

	from := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

	occurrences, err := source.ListOccurrences(context.Background(), "software-meetings", from, to)
	require.NoError(t, err)
	require.Len(t, occurrences, 2)

	assert.Equal(t, time.Date(2026, 3, 9, 18, 0, 0, 0, time.UTC), occurrences[0].StartsAt)
	assert.Equal(t, time.Date(2026, 3, 16, 18, 0, 0, 0, time.UTC), occurrences[1].StartsAt)
	for _, occ := range occurrences {
		assert.Equal(t, "software-meetings", occ.CalendarID)
		assert.Equal(t, "Weekly Software Sync", occ.Title)
		assert.Equal(t, "MALA 3001", occ.Location)
		assert.Equal(t, occ.StartsAt.Add(time.Hour), occ.EndsAt)
		assert.Equal(t, model.NewOccurrenceID("software-meetings", occ.StartsAt), occ.OccurrenceID)
	}
}

func TestListOccurrencesHonorsExdate(t *testing.T) {
	server := serveICS(t, icsFeed(weeklyEvent("EXDATE:20260316T180000Z")...))
	source := sourceFor(server.URL, true)

	from := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

	occurrences, err := source.ListOccurrences(context.Background(), "software-meetings", from, to)
	require.NoError(t, err)
	require.Len(t, occurrences, 1)
	assert.Equal(t, time.Date(2026, 3, 9, 18, 0, 0, 0, time.UTC), occurrences[0].StartsAt)
}

func TestListOccurrencesIgnoresRecurrenceWhenDisabled(t *testing.T) {
	server := serveICS(t, icsFeed(weeklyEvent()...))
	source := sourceFor(server.URL, false)

	// Base start is outside this window; without expansion, nothing shows.
	from := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

	occurrences, err := source.ListOccurrences(context.Background(), "software-meetings", from, to)
	require.NoError(t, err)
	assert.Empty(t, occurrences)
}

func TestListOccurrencesStableIDsAcrossPolls(t *testing.T) {
	server := serveICS(t, icsFeed(weeklyEvent()...))
	source := sourceFor(server.URL, true)

	from := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

	first, err := source.ListOccurrences(context.Background(), "software-meetings", from, to)
	require.NoError(t, err)
	second, err := source.ListOccurrences(context.Background(), "software-meetings", from, to)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].OccurrenceID, second[i].OccurrenceID)
	}
}

func TestListOccurrencesUnknownCalendarID(t *testing.T) {
	server := serveICS(t, icsFeed(weeklyEvent()...))
	source := sourceFor(server.URL, true)

	_, err := source.ListOccurrences(context.Background(), "no-such-calendar", time.Now(), time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, ports.ErrCalendarNotFound)
}

func TestListOccurrencesFeedGone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	}))
	t.Cleanup(server.Close)
	source := sourceFor(server.URL, true)

	_, err := source.ListOccurrences(context.Background(), "software-meetings", time.Now(), time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, ports.ErrCalendarNotFound)
}

func TestListOccurrencesTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	source := sourceFor(url, true)
	_, err := source.ListOccurrences(context.Background(), "software-meetings", time.Now(), time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, ports.ErrSourceUnavailable)
}

func TestListOccurrencesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)
	source := sourceFor(server.URL, true)

	_, err := source.ListOccurrences(context.Background(), "software-meetings", time.Now(), time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, ports.ErrSourceUnavailable)
}

func TestListOccurrencesUnparsableFeed(t *testing.T) {
	server := serveICS(t, "this is not an ics feed")
	source := sourceFor(server.URL, true)

	_, err := source.ListOccurrences(context.Background(), "software-meetings", time.Now(), time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, ports.ErrSourceUnavailable)
}
