// Package deliveries builds the per-day delivery feed consumed by route
// planning automations.
package deliveries

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/johsantss21/Thays-admin/internal/orders"
	"github.com/johsantss21/Thays-admin/internal/scheduling"
	"github.com/johsantss21/Thays-admin/internal/settings"
	"github.com/johsantss21/Thays-admin/internal/subscriptions"
	"github.com/johsantss21/Thays-admin/pkg/enums"
)

type OrderStop struct {
	OrderID        uuid.UUID            `json:"order_id"`
	OrderNumber    string               `json:"order_number"`
	CustomerID     *uuid.UUID           `json:"customer_id,omitempty"`
	TimeSlot       *enums.TimeSlot      `json:"delivery_time_slot,omitempty"`
	PaymentStatus  enums.PaymentStatus  `json:"payment_status"`
	DeliveryStatus enums.DeliveryStatus `json:"delivery_status"`
	TotalAmount    decimal.Decimal      `json:"total_amount"`
}

type SubscriptionStop struct {
	DeliveryID     uuid.UUID            `json:"delivery_id"`
	SubscriptionID uuid.UUID            `json:"subscription_id"`
	PaymentStatus  enums.PaymentStatus  `json:"payment_status"`
	DeliveryStatus enums.DeliveryStatus `json:"delivery_status"`
	TotalAmount    decimal.Decimal      `json:"total_amount"`
}

// Feed is everything due on one civil date.
type Feed struct {
	Date                   string             `json:"date"`
	OperatingDay           bool               `json:"operating_day"`
	Holiday                bool               `json:"holiday"`
	Orders                 []OrderStop        `json:"orders"`
	SubscriptionDeliveries []SubscriptionStop `json:"subscription_deliveries"`
}

type Service interface {
	DayFeed(ctx context.Context, date time.Time) (Feed, error)
}

type ServiceParams struct {
	Orders        orders.Repository
	Subscriptions subscriptions.Repository
	Settings      settings.Provider
}

type service struct {
	orders   orders.Repository
	subs     subscriptions.Repository
	settings settings.Provider
}

func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscriptions repository required")
	}
	if params.Settings == nil {
		return nil, fmt.Errorf("settings provider required")
	}
	return &service{orders: params.Orders, subs: params.Subscriptions, settings: params.Settings}, nil
}

func (s *service) DayFeed(ctx context.Context, date time.Time) (Feed, error) {
	date = scheduling.CivilDate(date)
	holiday := s.settings.Holidays(ctx).Contains(date)
	feed := Feed{
		Date:                   date.Format(scheduling.DateLayout),
		Holiday:                holiday,
		OperatingDay:           !holiday && slices.Contains(s.settings.OperatingDays(ctx), date.Weekday()),
		Orders:                 []OrderStop{},
		SubscriptionDeliveries: []SubscriptionStop{},
	}

	orderRows, err := s.orders.ListForDeliveryDate(ctx, date)
	if err != nil {
		return Feed{}, fmt.Errorf("list orders: %w", err)
	}
	for _, o := range orderRows {
		feed.Orders = append(feed.Orders, OrderStop{
			OrderID:        o.ID,
			OrderNumber:    o.OrderNumber,
			CustomerID:     o.CustomerID,
			TimeSlot:       o.DeliveryTimeSlot,
			PaymentStatus:  o.PaymentStatus,
			DeliveryStatus: o.DeliveryStatus,
			TotalAmount:    o.TotalAmount,
		})
	}

	deliveryRows, err := s.subs.ListDeliveriesForDate(ctx, date)
	if err != nil {
		return Feed{}, fmt.Errorf("list subscription deliveries: %w", err)
	}
	for _, d := range deliveryRows {
		feed.SubscriptionDeliveries = append(feed.SubscriptionDeliveries, SubscriptionStop{
			DeliveryID:     d.ID,
			SubscriptionID: d.SubscriptionID,
			PaymentStatus:  d.PaymentStatus,
			DeliveryStatus: d.DeliveryStatus,
			TotalAmount:    d.TotalAmount,
		})
	}
	return feed, nil
}
