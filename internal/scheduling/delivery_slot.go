package scheduling

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/johsantss21/Thays-admin/pkg/enums"
)

// TimeOfDay is an hour:minute cutoff.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// DefaultCutoff applies when hora_limite_entrega_dia is missing or malformed.
var DefaultCutoff = TimeOfDay{Hour: 12}

// ParseTimeOfDay accepts "HH:MM" or "HH". Minutes default to zero.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return TimeOfDay{}, fmt.Errorf("empty time of day")
	}
	hourPart, minutePart, hasMinutes := strings.Cut(raw, ":")
	hour, err := strconv.Atoi(hourPart)
	if err != nil || hour < 0 || hour > 23 {
		return TimeOfDay{}, fmt.Errorf("invalid hour in %q", value)
	}
	minute := 0
	if hasMinutes && minutePart != "" {
		// Tolerate "HH:MM:SS".
		minutePart, _, _ = strings.Cut(minutePart, ":")
		minute, err = strconv.Atoi(minutePart)
		if err != nil || minute < 0 || minute > 59 {
			return TimeOfDay{}, fmt.Errorf("invalid minute in %q", value)
		}
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

func (t TimeOfDay) minutes() int { return t.Hour*60 + t.Minute }

func (t TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

// HolidaySet holds civil dates without deliveries.
type HolidaySet map[string]struct{}

// NewHolidaySet builds a set from YYYY-MM-DD strings. Blank entries are ignored.
func NewHolidaySet(dates ...string) HolidaySet {
	set := make(HolidaySet, len(dates))
	for _, d := range dates {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		set[d] = struct{}{}
	}
	return set
}

func (h HolidaySet) Contains(date time.Time) bool {
	if len(h) == 0 {
		return false
	}
	_, ok := h[date.Format(DateLayout)]
	return ok
}

// Dates returns the holidays as sorted YYYY-MM-DD strings.
func (h HolidaySet) Dates() []string {
	out := make([]string, 0, len(h))
	for d := range h {
		out = append(out, d)
	}
	slices.Sort(out)
	return out
}

// DeliverySlot is the date and half-day window assigned to a one-off order.
type DeliverySlot struct {
	Date     time.Time      `json:"delivery_date"`
	TimeSlot enums.TimeSlot `json:"delivery_time_slot"`
}

// NextDeliverySlot assigns the slot for an order confirmed at now (already in
// the business timezone). Up to and including the cutoff the order goes out
// the same afternoon, after it the next morning. The date then rolls forward
// past weekends and holidays.
func NextDeliverySlot(now time.Time, cutoff TimeOfDay, holidays HolidaySet) DeliverySlot {
	current := now.Hour()*60 + now.Minute()
	date := CivilDate(now)
	slot := enums.TimeSlotAfternoon
	if current > cutoff.minutes() {
		date = date.AddDate(0, 0, 1)
		slot = enums.TimeSlotMorning
	}
	for isWeekend(date) || holidays.Contains(date) {
		date = date.AddDate(0, 0, 1)
	}
	return DeliverySlot{Date: date, TimeSlot: slot}
}

func isWeekend(date time.Time) bool {
	wd := date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
