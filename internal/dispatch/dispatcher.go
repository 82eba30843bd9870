package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gatorlabs/labbot/internal/model"
	"github.com/gatorlabs/labbot/internal/ports"
)

// Publisher is the slice of the broker publisher the dispatcher needs.
type Publisher interface {
	PublishWithRetry(ctx context.Context, body []byte, routingKey string) error
}

// Message is the wire payload handed to the chat gateway. One message per
// successful Dispatch call.
type Message struct {
	MessageID    string    `json:"message_id"`
	Channel      string    `json:"channel"`
	CalendarID   string    `json:"calendar_id"`
	CalendarName string    `json:"calendar_name"`
	OccurrenceID string    `json:"occurrence_id"`
	Title        string    `json:"title"`
	Location     string    `json:"location,omitempty"`
	StartsAt     time.Time `json:"starts_at"`
	LeadTime     string    `json:"lead_time"`
	Text         string    `json:"text"`
}

// BrokerDispatcher formats reminders and publishes them to the messaging
// exchange. It implements ports.Dispatcher and never retries across ticks;
// a failed publish is the scheduler's problem on the next tick.
type BrokerDispatcher struct {
	publisher Publisher
}

func NewBrokerDispatcher(publisher Publisher) *BrokerDispatcher {
	return &BrokerDispatcher{publisher: publisher}
}

func (d *BrokerDispatcher) Dispatch(ctx context.Context, reminder model.Reminder) error {
	msg := Message{
		MessageID:    uuid.NewString(),
		Channel:      reminder.Channel,
		CalendarID:   reminder.Occurrence.CalendarID,
		CalendarName: reminder.CalendarName,
		OccurrenceID: reminder.Occurrence.OccurrenceID,
		Title:        reminder.Occurrence.Title,
		Location:     reminder.Occurrence.Location,
		StartsAt:     reminder.Occurrence.StartsAt,
		LeadTime:     reminder.LeadTime.String(),
		Text:         FormatText(reminder),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: marshal message: %v", ports.ErrDelivery, err)
	}

	if err := d.publisher.PublishWithRetry(ctx, body, reminder.Channel); err != nil {
		return fmt.Errorf("%w: publish to %q: %v", ports.ErrDelivery, reminder.Channel, err)
	}
	return nil
}

// FormatText renders the human-readable reminder line posted in chat.
func FormatText(reminder model.Reminder) string {
	occ := reminder.Occurrence
	text := fmt.Sprintf("⏰ %s: \"%s\" starts %s (%s)",
		reminder.CalendarName,
		occ.Title,
		leadPhrase(reminder.LeadTime),
		occ.StartsAt.Format("Mon Jan 2 15:04 MST"),
	)
	if occ.Location != "" {
		text += " @ " + occ.Location
	}
	return text
}

func leadPhrase(lead time.Duration) string {
	switch {
	case lead >= 24*time.Hour:
		days := int(lead.Hours() / 24)
		if days == 1 {
			return "in 1 day"
		}
		return fmt.Sprintf("in %d days", days)
	case lead >= time.Hour:
		hours := int(lead.Hours())
		if hours == 1 {
			return "in 1 hour"
		}
		return fmt.Sprintf("in %d hours", hours)
	case lead >= time.Minute:
		minutes := int(lead.Minutes())
		if minutes == 1 {
			return "in 1 minute"
		}
		return fmt.Sprintf("in %d minutes", minutes)
	default:
		return "now"
	}
}
