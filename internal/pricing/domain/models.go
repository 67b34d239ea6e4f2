// Package domain defines the resolved pricing configuration the fee engine
// consumes. Values are immutable per computation.
package domain

// TimePeriod is one time-of-day ceiling. Hours are wall-clock in the
// business timezone; StartHour > EndHour wraps past midnight.
type TimePeriod struct {
	StartHour int
	EndHour   int
	MaxAmount int64
}

// Wraps reports whether the window crosses midnight.
func (p TimePeriod) Wraps() bool { return p.StartHour > p.EndHour }

// Degenerate reports a zero-width window, which covers no time.
func (p TimePeriod) Degenerate() bool { return p.StartHour == p.EndHour }

// Config is the effective pricing for one lot at one instant: lot overrides
// merged over owner defaults, plus the lot's period rows in stored order.
type Config struct {
	UnitMinutes     int64
	UnitAmount      int64
	DailyCapEnabled bool
	DailyCapAmount  int64
	Periods         []TimePeriod
}

// DailyCapActive reports whether the per-day ceiling applies. A cap of 0 is
// treated as disabled rather than zeroing out the bill.
func (c Config) DailyCapActive() bool {
	return c.DailyCapEnabled && c.DailyCapAmount > 0
}
