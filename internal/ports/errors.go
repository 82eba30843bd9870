package ports

import "errors"

var (
	// ErrSourceUnavailable indicates a transport-level failure while
	// fetching a calendar feed. The scheduler retries on the next tick.
	ErrSourceUnavailable = errors.New("calendar source unavailable")

	// ErrCalendarNotFound indicates the calendar id does not resolve to a
	// feed. Surfaced once at startup validation; fatal for that calendar
	// only.
	ErrCalendarNotFound = errors.New("calendar not found")

	// ErrDelivery indicates the dispatcher failed to hand the reminder to
	// the messaging surface. The scheduler retries on the next tick while
	// the occurrence stays inside the query window.
	ErrDelivery = errors.New("reminder delivery failed")
)
