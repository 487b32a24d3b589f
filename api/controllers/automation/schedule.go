package automation

import (
	"net/http"

	"github.com/johsantss21/Thays-admin/api/responses"
	"github.com/johsantss21/Thays-admin/api/validators"
	"github.com/johsantss21/Thays-admin/internal/scheduling"
	"github.com/johsantss21/Thays-admin/pkg/enums"
	pkgerrors "github.com/johsantss21/Thays-admin/pkg/errors"
	"github.com/johsantss21/Thays-admin/pkg/logger"
)

type schedulePreviewRequest struct {
	DeliveryWeekday  string   `json:"delivery_weekday" validate:"omitempty,weekday"`
	DeliveryWeekdays []string `json:"delivery_weekdays" validate:"omitempty,max=7,dive,weekday"`
	Frequency        string   `json:"frequency" validate:"omitempty,frequency"`
	IsEmergency      bool     `json:"is_emergency"`
}

type schedulePreviewResponse struct {
	MonthlyDeliveryCount int      `json:"monthly_delivery_count"`
	DeliveryDates        []string `json:"delivery_dates"`
	NextDeliveryDate     string   `json:"next_delivery_date"`
}

// SchedulePreview plans one billing cycle for a delivery pattern as if it
// were paid today.
func SchedulePreview(clock scheduling.Clock, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if clock == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "scheduling unavailable"))
			return
		}

		var payload schedulePreviewRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pattern := scheduling.Pattern{
			Weekday:     enums.Weekday(payload.DeliveryWeekday),
			Weekdays:    payload.DeliveryWeekdays,
			Frequency:   enums.SubscriptionFrequency(payload.Frequency),
			IsEmergency: payload.IsEmergency,
		}
		cycle := pattern.PlanCycle(scheduling.Today(clock))

		dates := make([]string, 0, len(cycle.Dates))
		for _, d := range cycle.Dates {
			dates = append(dates, d.Format(scheduling.DateLayout))
		}
		responses.WriteSuccess(w, schedulePreviewResponse{
			MonthlyDeliveryCount: cycle.Count,
			DeliveryDates:        dates,
			NextDeliveryDate:     cycle.Next.Format(scheduling.DateLayout),
		})
	}
}
