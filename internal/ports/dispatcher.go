package ports

import (
	"context"

	"github.com/gatorlabs/labbot/internal/model"
)

// Dispatcher delivers one formatted reminder to the messaging surface.
// A nil return means exactly one outbound message went out. Failures are
// reported to the caller; the dispatcher never retries across ticks.
type Dispatcher interface {
	Dispatch(ctx context.Context, reminder model.Reminder) error
}
