package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewOccurrenceIDStable(t *testing.T) {
	start := time.Date(2026, 3, 9, 18, 0, 0, 0, time.UTC)

	first := NewOccurrenceID("software-meetings", start)
	second := NewOccurrenceID("software-meetings", start)
	assert.Equal(t, first, second)
	assert.Len(t, first, 32)
}

func TestNewOccurrenceIDNormalizesToUTC(t *testing.T) {
	eastern := time.FixedZone("EST", -5*60*60)
	start := time.Date(2026, 3, 9, 18, 0, 0, 0, time.UTC)
	sameInstant := start.In(eastern)

	assert.Equal(t,
		NewOccurrenceID("software-meetings", start),
		NewOccurrenceID("software-meetings", sameInstant))
}

func TestNewOccurrenceIDDistinguishesInputs(t *testing.T) {
	start := time.Date(2026, 3, 9, 18, 0, 0, 0, time.UTC)

	base := NewOccurrenceID("software-meetings", start)
	assert.NotEqual(t, base, NewOccurrenceID("outreach", start))
	// A rescheduled instance is a new occurrence.
	assert.NotEqual(t, base, NewOccurrenceID("software-meetings", start.Add(30*time.Minute)))
}

func TestMaxLeadTime(t *testing.T) {
	cal := CalendarConfig{LeadTimes: []time.Duration{15 * time.Minute, 24 * time.Hour, time.Hour}}
	assert.Equal(t, 24*time.Hour, cal.MaxLeadTime())

	assert.Zero(t, CalendarConfig{}.MaxLeadTime())
}
