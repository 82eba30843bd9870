package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// CalendarConfig describes one monitored calendar. Loaded once at startup
// and never mutated afterwards.
type CalendarConfig struct {
	CalendarID      string          `json:"id"`
	Name            string          `json:"name"`
	URL             string          `json:"url"`
	Channel         string          `json:"channel"` // routing key of the destination chat channel
	LeadTimes       []time.Duration `json:"-"`
	RecurrenceAware bool            `json:"recurrence_aware"`
}

// MaxLeadTime returns the largest configured lead time, or zero if none.
func (c CalendarConfig) MaxLeadTime() time.Duration {
	var max time.Duration
	for _, lead := range c.LeadTimes {
		if lead > max {
			max = lead
		}
	}
	return max
}

// Occurrence is one concrete instance of a calendar event. Occurrences are
// recomputed on every poll; only OccurrenceID outlives a poll cycle, via
// reminder records.
type Occurrence struct {
	OccurrenceID string    `json:"occurrence_id"`
	CalendarID   string    `json:"calendar_id"`
	Title        string    `json:"title"`
	Location     string    `json:"location,omitempty"`
	StartsAt     time.Time `json:"starts_at"`
	EndsAt       time.Time `json:"ends_at"`
}

// NewOccurrenceID derives the stable identifier for an occurrence from its
// calendar and scheduled start time. A rescheduled instance of a recurring
// event therefore gets a fresh identifier and is reminded again at the new
// time, while refetching an unchanged feed always reproduces the same id.
func NewOccurrenceID(calendarID string, startsAt time.Time) string {
	sum := sha256.Sum256([]byte(calendarID + "|" + startsAt.UTC().Format(time.RFC3339)))
	return hex.EncodeToString(sum[:16])
}

// Reminder is one dispatchable unit: a single occurrence at a single lead
// time, routed to the calendar's channel.
type Reminder struct {
	Occurrence   Occurrence    `json:"occurrence"`
	LeadTime     time.Duration `json:"lead_time"`
	Channel      string        `json:"channel"`
	CalendarName string        `json:"calendar_name"`
}

// ReminderRecord marks a reminder as already dispatched. Append-only; at
// most one record exists per (OccurrenceID, LeadTime).
type ReminderRecord struct {
	OccurrenceID string        `json:"occurrence_id" db:"occurrence_id"`
	LeadTime     time.Duration `json:"lead_time" db:"lead_time"`
	SentAt       time.Time     `json:"sent_at" db:"sent_at"`
}
