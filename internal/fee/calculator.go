// Package fee computes parking charges from a resolved pricing config and a
// pair of instants. The computation is pure: same inputs, same quote.
//
// A stay is first split into local-calendar-day segments (daily caps apply
// per calendar day of actual stay, not per rolling 24h window). Within each
// segment, minutes are partitioned by the configured time-of-day periods;
// each partition is billed with the unit-ceiling rule and capped at its
// period's maximum, minutes outside every period bill uncapped, and the
// day's total is then clamped by the lot-wide daily cap.
package fee

import (
	"errors"
	"sort"
	"time"

	pricingdomain "github.com/openlotlabs/torii/internal/pricing/domain"
)

var (
	ErrInvalidInterval = errors.New("invalid_interval")
	ErrInvalidConfig   = errors.New("invalid_pricing_config")
)

// Quote is the computed charge for a stay, in yen.
type Quote struct {
	Amount          int64 `json:"amount"`
	DurationMinutes int64 `json:"duration_minutes"`
}

// Calculator binds the engine to the business timezone used for day
// boundaries and period windows.
type Calculator struct {
	loc *time.Location
}

func NewCalculator(loc *time.Location) *Calculator {
	if loc == nil {
		loc = time.UTC
	}
	return &Calculator{loc: loc}
}

// Location returns the business timezone the calculator bills in.
func (c *Calculator) Location() *time.Location { return c.loc }

// Compute prices the interval [entry, exit) under cfg.
func (c *Calculator) Compute(cfg pricingdomain.Config, entry, exit time.Time) (Quote, error) {
	if !exit.After(entry) {
		return Quote{}, ErrInvalidInterval
	}
	if cfg.UnitMinutes <= 0 || cfg.UnitAmount < 0 || cfg.DailyCapAmount < 0 {
		return Quote{}, ErrInvalidConfig
	}

	var total int64
	for _, seg := range c.daySegments(entry, exit) {
		day := c.segmentAmount(cfg, seg)
		if cfg.DailyCapActive() && day > cfg.DailyCapAmount {
			day = cfg.DailyCapAmount
		}
		total += day
	}

	return Quote{
		Amount:          total,
		DurationMinutes: ceilMinutes(exit.Sub(entry)),
	}, nil
}

// span is a half-open interval [start, end).
type span struct {
	start time.Time
	end   time.Time
}

func (s span) duration() time.Duration { return s.end.Sub(s.start) }

// daySegments splits [entry, exit) at every local midnight strictly between
// the two instants. A same-day stay yields exactly one segment.
func (c *Calculator) daySegments(entry, exit time.Time) []span {
	var segs []span
	cur := entry.In(c.loc)
	end := exit.In(c.loc)
	for cur.Before(end) {
		boundary := nextMidnight(cur)
		if boundary.After(end) {
			boundary = end
		}
		segs = append(segs, span{start: cur, end: boundary})
		cur = boundary
	}
	return segs
}

// segmentAmount prices one day segment: the empty-period fast path bills the
// whole segment at the unit rate; otherwise minutes are bucketed per period.
func (c *Calculator) segmentAmount(cfg pricingdomain.Config, seg span) int64 {
	if len(cfg.Periods) == 0 {
		return unitCharge(cfg, ceilMinutes(seg.duration()))
	}

	var total int64
	var covered []span
	for _, p := range cfg.Periods {
		overlap := time.Duration(0)
		for _, w := range c.periodWindows(p, seg.start) {
			clipped, ok := intersect(w, seg)
			if !ok {
				continue
			}
			overlap += clipped.duration()
			covered = append(covered, clipped)
		}
		if overlap <= 0 {
			continue
		}
		charge := unitCharge(cfg, ceilMinutes(overlap))
		if charge > p.MaxAmount {
			charge = p.MaxAmount
		}
		total += charge
	}

	// Time outside every configured window bills at the base rate with no
	// ceiling; leaving it free would make a longer stay cheaper than a
	// shorter one under gapped configurations.
	if uncov := uncoveredDuration(seg, covered); uncov > 0 {
		total += unitCharge(cfg, ceilMinutes(uncov))
	}
	return total
}

// periodWindows materializes a period's wall-clock window(s) on the local
// day containing dayAnchor. A wrapping window contributes its before- and
// after-midnight halves within that same day; a degenerate window (start ==
// end) contributes nothing.
func (c *Calculator) periodWindows(p pricingdomain.TimePeriod, dayAnchor time.Time) []span {
	if p.Degenerate() {
		return nil
	}
	t := dayAnchor.In(c.loc)
	y, m, d := t.Date()
	at := func(hour int) time.Time {
		return time.Date(y, m, d, hour, 0, 0, 0, c.loc)
	}
	dayStart := at(0)
	dayEnd := nextMidnight(t)

	if !p.Wraps() {
		return []span{{start: at(p.StartHour), end: at(p.EndHour)}}
	}
	return []span{
		{start: dayStart, end: at(p.EndHour)},
		{start: at(p.StartHour), end: dayEnd},
	}
}

func intersect(a, b span) (span, bool) {
	start := a.start
	if b.start.After(start) {
		start = b.start
	}
	end := a.end
	if b.end.Before(end) {
		end = b.end
	}
	if !end.After(start) {
		return span{}, false
	}
	return span{start: start, end: end}, true
}

// uncoveredDuration returns how much of seg lies outside the union of the
// covered spans. Overlapping periods may double-bill a minute by design, but
// a minute counts as covered once for gap purposes.
func uncoveredDuration(seg span, covered []span) time.Duration {
	if len(covered) == 0 {
		return seg.duration()
	}
	sort.Slice(covered, func(i, j int) bool {
		return covered[i].start.Before(covered[j].start)
	})

	uncov := time.Duration(0)
	cursor := seg.start
	for _, c := range covered {
		if c.start.After(cursor) {
			uncov += c.start.Sub(cursor)
		}
		if c.end.After(cursor) {
			cursor = c.end
		}
	}
	if seg.end.After(cursor) {
		uncov += seg.end.Sub(cursor)
	}
	return uncov
}

// unitCharge applies the ordinary parking rounding rule: round the stay up
// to whole billing units, never down.
func unitCharge(cfg pricingdomain.Config, minutes int64) int64 {
	if minutes <= 0 {
		return 0
	}
	units := (minutes + cfg.UnitMinutes - 1) / cfg.UnitMinutes
	return units * cfg.UnitAmount
}

func ceilMinutes(d time.Duration) int64 {
	ms := d.Milliseconds()
	if ms <= 0 {
		return 0
	}
	return (ms + 59_999) / 60_000
}

// nextMidnight returns the first local midnight strictly after t's day start
// (i.e. the start of the following calendar day).
func nextMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}
