package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/wb-go/wbf/ginext"

	"github.com/gatorlabs/labbot/internal/model"
	"github.com/gatorlabs/labbot/internal/ports"
	"github.com/gatorlabs/labbot/internal/service"
)

// ReminderHandler serves the read-only operator API: configured calendars,
// the last poll's occurrences, and the sent-reminder log.
type ReminderHandler struct {
	scheduler *service.Scheduler
	store     ports.DedupStore
}

func NewReminderHandler(scheduler *service.Scheduler, store ports.DedupStore) *ReminderHandler {
	return &ReminderHandler{
		scheduler: scheduler,
		store:     store,
	}
}

func (h *ReminderHandler) Health(c *ginext.Context) {
	c.JSON(http.StatusOK, ginext.H{"status": "ok"})
}

type calendarView struct {
	CalendarID      string   `json:"id"`
	Name            string   `json:"name"`
	Channel         string   `json:"channel"`
	LeadTimes       []string `json:"lead_times"`
	RecurrenceAware bool     `json:"recurrence_aware"`
}

func (h *ReminderHandler) ListCalendars(c *ginext.Context) {
	calendars := h.scheduler.Calendars()
	views := make([]calendarView, 0, len(calendars))
	for _, cal := range calendars {
		leads := make([]string, 0, len(cal.LeadTimes))
		for _, lead := range cal.LeadTimes {
			leads = append(leads, lead.String())
		}
		views = append(views, calendarView{
			CalendarID:      cal.CalendarID,
			Name:            cal.Name,
			Channel:         cal.Channel,
			LeadTimes:       leads,
			RecurrenceAware: cal.RecurrenceAware,
		})
	}
	c.JSON(http.StatusOK, ginext.H{"calendars": views})
}

func (h *ReminderHandler) ListOccurrences(c *ginext.Context) {
	occurrences := h.scheduler.Snapshot()
	if occurrences == nil {
		occurrences = []model.Occurrence{}
	}
	c.JSON(http.StatusOK, ginext.H{"occurrences": occurrences})
}

func (h *ReminderHandler) ListReminders(c *ginext.Context) {
	since := time.Now().Add(-24 * time.Hour)
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.AbortWithStatusJSON(
				http.StatusBadRequest,
				ginext.H{"error": fmt.Sprintf("invalid 'since' parameter, want RFC3339: %s", err.Error())},
			)
			return
		}
		since = parsed
	}

	records, err := h.store.ListSentSince(c.Request.Context(), since)
	if err != nil {
		c.AbortWithStatusJSON(
			http.StatusInternalServerError,
			ginext.H{"error": fmt.Sprintf("couldn't list reminders: %s", err.Error())},
		)
		return
	}
	c.JSON(http.StatusOK, ginext.H{"reminders": records})
}
