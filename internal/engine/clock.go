package engine

import "time"

// Clock abstracts time.Now() to allow deterministic testing.
// The Generator reads it once per run for the CREATED/DTSTAMP stamps and
// to resolve a zero default year.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current local time.
func (RealClock) Now() time.Time {
	return time.Now()
}
