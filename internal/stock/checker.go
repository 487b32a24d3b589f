// Package stock compares subscription item quantities against product stock.
// Findings are advisory; nothing here blocks a payment or delivery transition.
package stock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/johsantss21/Thays-admin/internal/repo"
	"github.com/johsantss21/Thays-admin/pkg/db/models"
)

// Shortfall is one item whose product stock cannot cover the subscribed quantity.
type Shortfall struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Available int       `json:"available"`
	Required  int       `json:"required"`
}

// Report is the result of a stock check.
type Report struct {
	OK         bool        `json:"ok"`
	Shortfalls []Shortfall `json:"shortfalls"`
}

// Checker runs stock checks for a subscription.
type Checker interface {
	Check(ctx context.Context, subscriptionID uuid.UUID) (Report, error)
}

type checker struct {
	base repo.Base
}

// NewChecker returns a Checker reading subscription_items and products.
func NewChecker(db *gorm.DB) Checker {
	return &checker{base: repo.NewBase(db)}
}

func (c *checker) Check(ctx context.Context, subscriptionID uuid.UUID) (Report, error) {
	var items []models.SubscriptionItem
	if err := c.base.DB(ctx).
		Preload("Product").
		Where("subscription_id = ?", subscriptionID).
		Find(&items).Error; err != nil {
		return Report{}, fmt.Errorf("load subscription items: %w", err)
	}
	return Evaluate(items), nil
}

// Evaluate flags every item whose product stock is below its quantity. Items
// whose product row is gone are skipped; there is no stock to compare.
func Evaluate(items []models.SubscriptionItem) Report {
	report := Report{OK: true, Shortfalls: []Shortfall{}}
	for _, item := range items {
		product := item.Product
		if product == nil || product.Stock >= item.Quantity {
			continue
		}
		report.OK = false
		report.Shortfalls = append(report.Shortfalls, Shortfall{
			ProductID: item.ProductID,
			Name:      product.Name,
			Available: product.Stock,
			Required:  item.Quantity,
		})
	}
	return report
}
