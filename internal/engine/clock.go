package engine

import "time"

// Clock supplies the current time. Production uses SystemClock; tests pin
// time with a fixed clock so expiry and time windows are deterministic.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current time in UTC.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
