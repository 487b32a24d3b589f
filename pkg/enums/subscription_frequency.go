package enums

import "fmt"

// SubscriptionFrequency is the delivery cadence of a subscription.
type SubscriptionFrequency string

const (
	FrequencyDaily    SubscriptionFrequency = "diaria"
	FrequencyWeekly   SubscriptionFrequency = "semanal"
	FrequencyBiweekly SubscriptionFrequency = "quinzenal"
	FrequencyMonthly  SubscriptionFrequency = "mensal"
)

var validSubscriptionFrequencys = []SubscriptionFrequency{
	FrequencyDaily,
	FrequencyWeekly,
	FrequencyBiweekly,
	FrequencyMonthly,
}

// String implements fmt.Stringer.
func (s SubscriptionFrequency) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SubscriptionFrequency.
func (s SubscriptionFrequency) IsValid() bool {
	for _, candidate := range validSubscriptionFrequencys {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSubscriptionFrequency converts raw input into a SubscriptionFrequency.
func ParseSubscriptionFrequency(value string) (SubscriptionFrequency, error) {
	for _, candidate := range validSubscriptionFrequencys {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid subscription frequency %q", value)
}
