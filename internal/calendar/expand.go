package calendar

import (
	"bytes"
	"sort"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"
	"github.com/wb-go/wbf/zlog"

	"github.com/gatorlabs/labbot/internal/model"
)

// Safety cap so a pathological RRULE cannot blow up a poll.
const maxOccurrencesPerEvent = 1000

// expandOccurrences parses an ICS payload and returns every occurrence
// whose start falls inside [from, to], recurrences expanded and start times
// normalized to UTC. Events that fail to parse are skipped individually so
// one broken VEVENT cannot take out the whole calendar.
func expandOccurrences(cal model.CalendarConfig, body []byte, from, to time.Time) ([]model.Occurrence, error) {
	parsed, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	occurrences := make([]model.Occurrence, 0)

	for _, ve := range parsed.Events() {
		starts, duration, title, location, ok := eventSchedule(cal, ve, from, to)
		if !ok {
			continue
		}
		for _, start := range starts {
			startUTC := start.UTC()
			occurrences = append(occurrences, model.Occurrence{
				OccurrenceID: model.NewOccurrenceID(cal.CalendarID, startUTC),
				CalendarID:   cal.CalendarID,
				Title:        title,
				Location:     location,
				StartsAt:     startUTC,
				EndsAt:       startUTC.Add(duration),
			})
		}
	}

	sort.Slice(occurrences, func(i, j int) bool {
		return occurrences[i].StartsAt.Before(occurrences[j].StartsAt)
	})

	return occurrences, nil
}

// eventSchedule extracts the concrete start times of one VEVENT inside the
// window, along with the event's duration and display fields.
func eventSchedule(cal model.CalendarConfig, ve *ical.VEvent, from, to time.Time) (starts []time.Time, duration time.Duration, title, location string, ok bool) {
	start, err := ve.GetStartAt()
	if err != nil {
		zlog.Logger.Warn().Err(err).Str("calendar_id", cal.CalendarID).Msg("skipping event without parsable DTSTART")
		return nil, 0, "", "", false
	}

	duration = time.Hour
	if end, err := ve.GetEndAt(); err == nil && end.After(start) {
		duration = end.Sub(start)
	}

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		title = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		location = p.Value
	}

	rawRule := ""
	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		rawRule = p.Value
	}

	if rawRule == "" || !cal.RecurrenceAware {
		if !start.Before(from) && !start.After(to) {
			starts = []time.Time{start}
		}
		return starts, duration, title, location, true
	}

	rule, err := rrule.StrToRRule(rawRule)
	if err != nil {
		zlog.Logger.Warn().Err(err).Str("calendar_id", cal.CalendarID).Str("rrule", rawRule).Msg("skipping event with unparsable RRULE")
		return nil, 0, "", "", false
	}
	rule.DTStart(start)

	var set rrule.Set
	set.RRule(rule)
	for _, ex := range exceptionDates(ve) {
		set.ExDate(ex.In(start.Location()))
	}

	starts = set.Between(from.In(start.Location()), to.In(start.Location()), true)
	if len(starts) > maxOccurrencesPerEvent {
		zlog.Logger.Warn().Str("calendar_id", cal.CalendarID).Int("cap", maxOccurrencesPerEvent).Msg("recurrence expansion truncated")
		starts = starts[:maxOccurrencesPerEvent]
	}

	return starts, duration, title, location, true
}

// exceptionDates collects EXDATE values. The property may appear several
// times and each value may carry a comma-separated list.
func exceptionDates(ve *ical.VEvent) []time.Time {
	var out []time.Time
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part); err == nil {
				out = append(out, t)
			}
		}
	}
	return out
}

// parseICSTime handles the basic DATE-TIME and DATE forms that EXDATE uses.
func parseICSTime(v string) (time.Time, error) {
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, time.Local)
	}
	return time.ParseInLocation("20060102", v, time.Local)
}
