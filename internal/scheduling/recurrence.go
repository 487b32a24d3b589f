package scheduling

import (
	"math"
	"time"

	"github.com/johsantss21/Thays-admin/pkg/enums"
)

const (
	nextDeliveryScanDays = 7
	cycleScanDays        = 35
	weeksPerMonth        = 4.33
	defaultMonthlyCount  = 4
)

var monthlyCountByFrequency = map[enums.SubscriptionFrequency]int{
	enums.FrequencyDaily:    20,
	enums.FrequencyWeekly:   4,
	enums.FrequencyBiweekly: 2,
	enums.FrequencyMonthly:  1,
}

// Pattern is the delivery cadence of a subscription.
type Pattern struct {
	Weekday     enums.Weekday
	Weekdays    []string
	Frequency   enums.SubscriptionFrequency
	IsEmergency bool
}

// TargetDays resolves the days of week deliveries fall on. An explicit set
// wins over the single weekday; unknown names are dropped; Monday is the
// fallback when nothing maps.
func (p Pattern) TargetDays() []time.Weekday {
	var days []time.Weekday
	if len(p.Weekdays) > 0 {
		for _, name := range p.Weekdays {
			if d, ok := enums.Weekday(name).Time(); ok {
				days = append(days, d)
			}
		}
	} else if d, ok := p.Weekday.Time(); ok {
		days = append(days, d)
	}
	if len(days) == 0 {
		days = append(days, time.Monday)
	}
	return days
}

// NextDeliveryDate is the first matching date after today, within a week.
func (p Pattern) NextDeliveryDate(today time.Time) time.Time {
	targets := p.TargetDays()
	candidate := CivilDate(today).AddDate(0, 0, 1)
	for i := 0; i < nextDeliveryScanDays; i++ {
		if containsDay(targets, candidate.Weekday()) {
			return candidate
		}
		candidate = candidate.AddDate(0, 0, 1)
	}
	return CivilDate(today).AddDate(0, 0, nextDeliveryScanDays)
}

// DeliveryDates collects up to count matching dates from tomorrow within a
// 35-day window, ascending. Sparse patterns may yield fewer than count.
func (p Pattern) DeliveryDates(today time.Time, count int) []time.Time {
	if count <= 0 {
		return nil
	}
	targets := p.TargetDays()
	dates := make([]time.Time, 0, count)
	candidate := CivilDate(today).AddDate(0, 0, 1)
	for i := 0; i < cycleScanDays && len(dates) < count; i++ {
		if containsDay(targets, candidate.Weekday()) {
			dates = append(dates, candidate)
		}
		candidate = candidate.AddDate(0, 0, 1)
	}
	return dates
}

// MonthlyDeliveryCount is how many deliveries one paid cycle buys.
func (p Pattern) MonthlyDeliveryCount() int {
	if p.IsEmergency {
		return 1
	}
	if len(p.Weekdays) > 0 {
		return int(math.Round(float64(len(p.Weekdays)) * weeksPerMonth))
	}
	if n, ok := monthlyCountByFrequency[p.Frequency]; ok {
		return n
	}
	return defaultMonthlyCount
}

// Cycle is the materialization plan for one paid billing cycle.
type Cycle struct {
	Count int         `json:"monthly_delivery_count"`
	Dates []time.Time `json:"delivery_dates"`
	Next  time.Time   `json:"next_delivery_date"`
}

// PlanCycle computes the deliveries for a cycle paid on today. Next is the
// first materialized date, or NextDeliveryDate when none fit the window.
func (p Pattern) PlanCycle(today time.Time) Cycle {
	count := p.MonthlyDeliveryCount()
	dates := p.DeliveryDates(today, count)
	next := p.NextDeliveryDate(today)
	if len(dates) > 0 {
		next = dates[0]
	}
	return Cycle{Count: count, Dates: dates, Next: next}
}

func containsDay(days []time.Weekday, d time.Weekday) bool {
	for _, candidate := range days {
		if candidate == d {
			return true
		}
	}
	return false
}
