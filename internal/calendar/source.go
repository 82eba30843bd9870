package calendar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wb-go/wbf/zlog"

	"github.com/gatorlabs/labbot/internal/model"
	"github.com/gatorlabs/labbot/internal/ports"
)

// Source resolves calendar ids to their ICS feeds and lists concrete event
// occurrences within a window. It implements ports.CalendarSource.
type Source struct {
	client    *http.Client
	calendars map[string]model.CalendarConfig
}

func NewSource(calendars []model.CalendarConfig, fetchTimeout time.Duration) *Source {
	byID := make(map[string]model.CalendarConfig, len(calendars))
	for _, cal := range calendars {
		byID[cal.CalendarID] = cal
	}
	return &Source{
		client: &http.Client{
			Timeout: fetchTimeout,
		},
		calendars: byID,
	}
}

func (s *Source) ListOccurrences(ctx context.Context, calendarID string, from, to time.Time) ([]model.Occurrence, error) {
	cal, ok := s.calendars[calendarID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ports.ErrCalendarNotFound, calendarID)
	}

	body, err := s.fetch(ctx, cal)
	if err != nil {
		return nil, err
	}

	occurrences, err := expandOccurrences(cal, body, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: parse feed for %q: %v", ports.ErrSourceUnavailable, calendarID, err)
	}

	zlog.Logger.Debug().
		Str("calendar_id", calendarID).
		Int("occurrences", len(occurrences)).
		Time("from", from).
		Time("to", to).
		Msg("listed calendar occurrences")

	return occurrences, nil
}

func (s *Source) fetch(ctx context.Context, cal model.CalendarConfig) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cal.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request for %q: %v", ports.ErrSourceUnavailable, cal.CalendarID, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %q: %v", ports.ErrSourceUnavailable, cal.CalendarID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: read feed for %q: %v", ports.ErrSourceUnavailable, cal.CalendarID, err)
		}
		return body, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("%w: %q (%s)", ports.ErrCalendarNotFound, cal.CalendarID, resp.Status)
	default:
		return nil, fmt.Errorf("%w: fetch %q: %s", ports.ErrSourceUnavailable, cal.CalendarID, resp.Status)
	}
}
