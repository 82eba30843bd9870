package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gatorlabs/labbot/internal/model"
)

// calendarEntry is the on-disk shape of one calendar in the calendars file.
// Lead times are written as Go duration strings ("24h", "15m").
type calendarEntry struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	URL             string   `json:"url"`
	Channel         string   `json:"channel"`
	LeadTimes       []string `json:"lead_times"`
	RecurrenceAware bool     `json:"recurrence_aware"`
}

// LoadCalendars reads the calendar list from a JSON file and validates it.
// Malformed entries fail here, at startup, never at poll time.
func LoadCalendars(path string) ([]model.CalendarConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calendars file: %w", err)
	}

	var entries []calendarEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse calendars file: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("calendars file %q lists no calendars", path)
	}

	seen := make(map[string]struct{}, len(entries))
	calendars := make([]model.CalendarConfig, 0, len(entries))

	for i, entry := range entries {
		if entry.ID == "" {
			return nil, fmt.Errorf("calendar #%d: id is required", i)
		}
		if _, dup := seen[entry.ID]; dup {
			return nil, fmt.Errorf("calendar %q: duplicate id", entry.ID)
		}
		seen[entry.ID] = struct{}{}

		if entry.URL == "" {
			return nil, fmt.Errorf("calendar %q: url is required", entry.ID)
		}
		if entry.Channel == "" {
			return nil, fmt.Errorf("calendar %q: channel is required", entry.ID)
		}
		if len(entry.LeadTimes) == 0 {
			return nil, fmt.Errorf("calendar %q: at least one lead time is required", entry.ID)
		}

		leads := make([]time.Duration, 0, len(entry.LeadTimes))
		for _, raw := range entry.LeadTimes {
			lead, err := time.ParseDuration(raw)
			if err != nil {
				return nil, fmt.Errorf("calendar %q: invalid lead time %q: %w", entry.ID, raw, err)
			}
			if lead <= 0 {
				return nil, fmt.Errorf("calendar %q: lead time %q must be positive", entry.ID, raw)
			}
			leads = append(leads, lead)
		}

		name := entry.Name
		if name == "" {
			name = entry.ID
		}

		calendars = append(calendars, model.CalendarConfig{
			CalendarID:      entry.ID,
			Name:            name,
			URL:             entry.URL,
			Channel:         entry.Channel,
			LeadTimes:       leads,
			RecurrenceAware: entry.RecurrenceAware,
		})
	}

	return calendars, nil
}
