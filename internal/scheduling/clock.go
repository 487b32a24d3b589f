package scheduling

import "time"

// Clock supplies the current instant in the business timezone.
type Clock interface {
	Now() time.Time
}

// LocationClock reads the wall clock and converts it to a fixed location.
type LocationClock struct {
	Location *time.Location
}

func (c LocationClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// FixedClock always returns the same instant. Used by tests and previews.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

// CivilDate drops the time of day, keeping the calendar date as seen in t's
// own location, and returns it as UTC midnight. All dates handled by this
// package use that representation.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today is the civil date of clock.Now().
func Today(clock Clock) time.Time {
	return CivilDate(clock.Now())
}

// ParseDate parses a YYYY-MM-DD civil date.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, time.UTC)
}

// DateLayout is the ISO calendar date format used in settings and APIs.
const DateLayout = "2006-01-02"
