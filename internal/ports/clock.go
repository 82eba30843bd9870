package ports

import "time"

// Clock abstracts time.Now so the scheduler can be driven deterministically
// in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
