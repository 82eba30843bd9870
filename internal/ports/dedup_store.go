package ports

import (
	"context"
	"time"

	"github.com/gatorlabs/labbot/internal/model"
)

// DedupStore is the durable record of already-sent reminders. A record is
// written only after a successful dispatch, so a restart can never replay
// a reminder that was already delivered.
type DedupStore interface {
	// HasSent reports whether a reminder for the (occurrence, lead time)
	// pair has already been dispatched.
	HasSent(ctx context.Context, occurrenceID string, lead time.Duration) (bool, error)

	// MarkSent records a dispatched reminder. Idempotent: marking the same
	// pair twice leaves the store unchanged.
	MarkSent(ctx context.Context, occurrenceID string, lead time.Duration, sentAt time.Time) error

	// ListSentSince returns records dispatched at or after the given time,
	// newest first.
	ListSentSince(ctx context.Context, since time.Time) ([]model.ReminderRecord, error)

	// PruneBefore deletes records sent before the cutoff and returns how
	// many were removed. Housekeeping only; never correctness-critical.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
