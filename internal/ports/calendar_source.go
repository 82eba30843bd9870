package ports

import (
	"context"
	"time"

	"github.com/gatorlabs/labbot/internal/model"
)

// CalendarSource lists concrete event occurrences for one calendar inside
// a time window, recurrences already expanded.
type CalendarSource interface {
	ListOccurrences(ctx context.Context, calendarID string, from, to time.Time) ([]model.Occurrence, error)
}
