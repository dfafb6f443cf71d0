package repo

import (
	"context"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func (r *GormRepo) OrderItemsForProductsSince(ctx context.Context, productIDs []uuid.UUID, since time.Time) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if len(productIDs) == 0 {
		return items, nil
	}
	err := r.db(ctx).
		Where("product_id IN ? AND created_at >= ?", productIDs, since).
		Order("created_at DESC, id ASC").
		Find(&items).Error
	return items, err
}

type ReportFilter struct {
	Start      *time.Time
	End        *time.Time
	CategoryID *uuid.UUID
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
}

// OrderItems returns order items matching f, newest first.
func (r *GormRepo) OrderItems(ctx context.Context, f ReportFilter) ([]models.OrderItem, error) {
	q := r.db(ctx).Model(&models.OrderItem{})
	if f.Start != nil {
		q = q.Where("created_at >= ?", *f.Start)
	}
	if f.End != nil {
		q = q.Where("created_at <= ?", *f.End)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.MinPrice != nil {
		q = q.Where("price_at_purchase >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price_at_purchase <= ?", *f.MaxPrice)
	}

	var items []models.OrderItem
	err := q.Order("created_at DESC, id ASC").Find(&items).Error
	return items, err
}
