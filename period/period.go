package period

import (
	"fmt"
	"time"

	// Bundled zone database so month boundaries never depend on the host's tzdata.
	_ "time/tzdata"
)

// DefaultTimezone is the civil timezone used when none is configured.
const DefaultTimezone = "Asia/Tokyo"

// MonthKeyLayout formats a civil month as YYYY-MM
const MonthKeyLayout = "2006-01"

// Month is a calendar month in the civil timezone.
// Start is inclusive and End is exclusive; both are absolute instants.
type Month struct {
	Key   string
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside [Start, End)
func (m Month) Contains(t time.Time) bool {
	return !t.Before(m.Start) && t.Before(m.End)
}

// Clock converts instants to the civil timezone and derives month periods.
// The process local timezone is never consulted.
type Clock struct {
	location *time.Location
	now      func() time.Time
}

// NewClock creates a clock for the named timezone
func NewClock(timezone string) (*Clock, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", timezone, err)
	}

	return &Clock{location: loc, now: time.Now}, nil
}

// NewClockAt creates a clock whose notion of "now" is fixed by the given function.
// Used by tests and by replay tooling.
func NewClockAt(timezone string, now func() time.Time) (*Clock, error) {
	c, err := NewClock(timezone)
	if err != nil {
		return nil, err
	}
	c.now = now
	return c, nil
}

// MustClock is NewClock that panics on an unknown timezone
func MustClock(timezone string) *Clock {
	c, err := NewClock(timezone)
	if err != nil {
		panic(err)
	}
	return c
}

// Location returns the civil timezone
func (c *Clock) Location() *time.Location {
	return c.location
}

// Now returns the current instant expressed in the civil timezone
func (c *Clock) Now() time.Time {
	return c.now().In(c.location)
}

// InZone expresses t in the civil timezone without changing the instant
func (c *Clock) InZone(t time.Time) time.Time {
	return t.In(c.location)
}

// MonthOf returns the civil month containing t
func (c *Clock) MonthOf(t time.Time) Month {
	local := t.In(c.location)
	year, month, _ := local.Date()

	start := time.Date(year, month, 1, 0, 0, 0, 0, c.location)
	// time.Date normalizes month 13 to January of the following year
	end := time.Date(year, month+1, 1, 0, 0, 0, 0, c.location)

	return Month{
		Key:   start.Format(MonthKeyLayout),
		Start: start,
		End:   end,
	}
}

// Current returns the civil month containing now
func (c *Clock) Current() Month {
	return c.MonthOf(c.now())
}

// MonthKey returns the YYYY-MM key of the civil month containing t
func (c *Clock) MonthKey(t time.Time) string {
	return c.MonthOf(t).Key
}

// ParseMonth parses a YYYY-MM key into its civil month
func (c *Clock) ParseMonth(key string) (Month, error) {
	t, err := time.ParseInLocation(MonthKeyLayout, key, c.location)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month key %q: %w", key, err)
	}
	return c.MonthOf(t), nil
}
