package automation

import (
	"net/http"
	"time"

	"github.com/johsantss21/Thays-admin/api/responses"
	"github.com/johsantss21/Thays-admin/internal/scheduling"
	"github.com/johsantss21/Thays-admin/internal/settings"
	pkgerrors "github.com/johsantss21/Thays-admin/pkg/errors"
	"github.com/johsantss21/Thays-admin/pkg/logger"
)

type deliverySlotResponse struct {
	DeliveryDate string `json:"delivery_date"`
	TimeSlot     string `json:"delivery_time_slot"`
	Cutoff       string `json:"cutoff"`
	EvaluatedAt  string `json:"evaluated_at"`
}

// DeliverySlot returns the slot a one-off order confirmed right now would get.
func DeliverySlot(provider settings.Provider, clock scheduling.Clock, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if provider == nil || clock == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "scheduling unavailable"))
			return
		}

		now := clock.Now()
		cutoff := provider.CutoffTime(r.Context())
		slot := scheduling.NextDeliverySlot(now, cutoff, provider.Holidays(r.Context()))

		responses.WriteSuccess(w, deliverySlotResponse{
			DeliveryDate: slot.Date.Format(scheduling.DateLayout),
			TimeSlot:     string(slot.TimeSlot),
			Cutoff:       cutoff.String(),
			EvaluatedAt:  now.Format(time.RFC3339),
		})
	}
}
