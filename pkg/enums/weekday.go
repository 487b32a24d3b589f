package enums

import (
	"fmt"
	"strings"
	"time"
)

// Weekday is the Portuguese day name stored on subscriptions and settings.
type Weekday string

const (
	WeekdaySunday    Weekday = "domingo"
	WeekdayMonday    Weekday = "segunda"
	WeekdayTuesday   Weekday = "terca"
	WeekdayWednesday Weekday = "quarta"
	WeekdayThursday  Weekday = "quinta"
	WeekdayFriday    Weekday = "sexta"
	WeekdaySaturday  Weekday = "sabado"
)

var weekdayToTime = map[Weekday]time.Weekday{
	WeekdaySunday:    time.Sunday,
	WeekdayMonday:    time.Monday,
	WeekdayTuesday:   time.Tuesday,
	WeekdayWednesday: time.Wednesday,
	WeekdayThursday:  time.Thursday,
	WeekdayFriday:    time.Friday,
	WeekdaySaturday:  time.Saturday,
}

// String implements fmt.Stringer.
func (w Weekday) String() string {
	return string(w)
}

// IsValid reports whether the value is a known Weekday.
func (w Weekday) IsValid() bool {
	_, ok := weekdayToTime[w]
	return ok
}

// Time maps the day name onto time.Weekday. ok is false for unknown names.
func (w Weekday) Time() (time.Weekday, bool) {
	d, ok := weekdayToTime[Weekday(strings.ToLower(strings.TrimSpace(string(w))))]
	return d, ok
}

// ParseWeekday converts raw input into a Weekday.
func ParseWeekday(value string) (Weekday, error) {
	w := Weekday(strings.ToLower(strings.TrimSpace(value)))
	if w.IsValid() {
		return w, nil
	}
	return "", fmt.Errorf("invalid weekday %q", value)
}

// WeekdayFromTime is the inverse of Weekday.Time.
func WeekdayFromTime(d time.Weekday) Weekday {
	for name, td := range weekdayToTime {
		if td == d {
			return name
		}
	}
	return WeekdayMonday
}
