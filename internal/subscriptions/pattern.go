package subscriptions

import (
	"github.com/johsantss21/Thays-admin/internal/scheduling"
	"github.com/johsantss21/Thays-admin/pkg/db/models"
)

// PatternOf is the delivery cadence stored on a subscription row.
func PatternOf(sub *models.Subscription) scheduling.Pattern {
	return scheduling.Pattern{
		Weekday:     sub.DeliveryWeekday,
		Weekdays:    []string(sub.DeliveryWeekdays),
		Frequency:   sub.Frequency,
		IsEmergency: sub.IsEmergency,
	}
}
