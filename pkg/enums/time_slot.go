package enums

import "fmt"

// TimeSlot is the half-day delivery window.
type TimeSlot string

const (
	TimeSlotMorning   TimeSlot = "manha"
	TimeSlotAfternoon TimeSlot = "tarde"
)

var validTimeSlots = []TimeSlot{
	TimeSlotMorning,
	TimeSlotAfternoon,
}

// String implements fmt.Stringer.
func (t TimeSlot) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TimeSlot.
func (t TimeSlot) IsValid() bool {
	for _, candidate := range validTimeSlots {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTimeSlot converts raw input into a TimeSlot.
func ParseTimeSlot(value string) (TimeSlot, error) {
	for _, candidate := range validTimeSlots {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid time slot %q", value)
}
