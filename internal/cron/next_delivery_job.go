package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/datatypes"

	"github.com/johsantss21/Thays-admin/internal/scheduling"
	"github.com/johsantss21/Thays-admin/internal/subscriptions"
	"github.com/johsantss21/Thays-admin/pkg/db/models"
	"github.com/johsantss21/Thays-admin/pkg/logger"
)

const defaultRefreshLimit = 500

type NextDeliveryRefreshJobParams struct {
	Logger        *logger.Logger
	Subscriptions subscriptions.Repository
	Clock         scheduling.Clock
	Limit         int
}

// NewNextDeliveryRefreshJob moves stale next_delivery_date values of active
// subscriptions forward: to the earliest waiting delivery on or after today,
// else to the next date matching the subscription's cadence.
func NewNextDeliveryRefreshJob(params NextDeliveryRefreshJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscriptions repository required")
	}
	clock := params.Clock
	if clock == nil {
		clock = scheduling.LocationClock{}
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultRefreshLimit
	}
	return &nextDeliveryRefreshJob{
		logg:  params.Logger,
		subs:  params.Subscriptions,
		clock: clock,
		limit: limit,
	}, nil
}

type nextDeliveryRefreshJob struct {
	logg  *logger.Logger
	subs  subscriptions.Repository
	clock scheduling.Clock
	limit int
}

func (j *nextDeliveryRefreshJob) Name() string { return "next-delivery-refresh" }

func (j *nextDeliveryRefreshJob) Run(ctx context.Context) error {
	today := scheduling.Today(j.clock)
	stale, err := j.subs.ListActiveWithNextDeliveryBefore(ctx, today, j.limit)
	if err != nil {
		return fmt.Errorf("list stale subscriptions: %w", err)
	}

	var errs error
	refreshed := 0
	for i := range stale {
		if err := j.refresh(ctx, &stale[i], today); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("subscription %s: %w", stale[i].ID, err))
			continue
		}
		refreshed++
	}

	reportCtx := j.logg.WithFields(ctx, map[string]any{
		"today":      today.Format(scheduling.DateLayout),
		"candidates": len(stale),
		"refreshed":  refreshed,
		"failed":     len(multierr.Errors(errs)),
	})
	j.logg.Info(reportCtx, "next delivery refresh complete")
	return errs
}

func (j *nextDeliveryRefreshJob) refresh(ctx context.Context, sub *models.Subscription, today time.Time) error {
	next := subscriptions.PatternOf(sub).NextDeliveryDate(today)
	earliest, err := j.subs.EarliestWaitingDelivery(ctx, sub.ID, today)
	if err != nil {
		return fmt.Errorf("earliest waiting delivery: %w", err)
	}
	if earliest != nil {
		next = time.Time(earliest.DeliveryDate)
	}
	return j.subs.Update(ctx, sub.ID, map[string]any{"next_delivery_date": datatypes.Date(next)})
}
