// Package clock abstracts wall-clock reads so checkout math is testable.
package clock

import "time"

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Manual is a hand-advanced clock for tests.
type Manual struct {
	Instant time.Time
}

func (m *Manual) Now() time.Time { return m.Instant }

// Advance moves the manual clock forward.
func (m *Manual) Advance(d time.Duration) { m.Instant = m.Instant.Add(d) }
