package repo

import (
	"context"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func orderItemsInOrder(db *gorm.DB) *gorm.DB {
	return db.Order("order_items.created_at ASC, order_items.id ASC")
}

// CreateOrder inserts the order together with its items.
func (r *GormRepo) CreateOrder(ctx context.Context, o *models.Order) error {
	return r.db(ctx).Create(o).Error
}

func (r *GormRepo) OrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var o models.Order
	if err := r.db(ctx).Preload("Items", orderItemsInOrder).Where("id = ?", id).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// LockOrder reads the order FOR UPDATE together with its items.
func (r *GormRepo) LockOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var o models.Order
	if err := r.db(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items", orderItemsInOrder).
		Where("id = ?", id).
		First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormRepo) ListOrdersByUser(ctx context.Context, userID uuid.UUID, offset, limit int) (int64, []models.Order, error) {
	return r.listOrders(ctx, r.db(ctx).Model(&models.Order{}).Where("user_id = ?", userID), offset, limit)
}

// ListOrders lists every order, optionally filtered by status.
func (r *GormRepo) ListOrders(ctx context.Context, status models.OrderStatus, offset, limit int) (int64, []models.Order, error) {
	q := r.db(ctx).Model(&models.Order{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	return r.listOrders(ctx, q, offset, limit)
}

func (r *GormRepo) listOrders(_ context.Context, q *gorm.DB, offset, limit int) (int64, []models.Order, error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Order, 0, limit)
	if err := q.Preload("Items", orderItemsInOrder).
		Order("created_at DESC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error {
	return r.db(ctx).Model(&models.Order{}).Where("id = ?", id).Update("status", status).Error
}

func (r *GormRepo) SetOrderPaid(ctx context.Context, id uuid.UUID, paid bool) error {
	return r.db(ctx).Model(&models.Order{}).Where("id = ?", id).Update("paid", paid).Error
}

// HasReviewableOrder reports whether the user has a delivered and paid order containing the product.
func (r *GormRepo) HasReviewableOrder(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var n int64
	err := r.db(ctx).Model(&models.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.user_id = ? AND orders.status = ? AND orders.paid = ? AND order_items.product_id = ?",
			userID, models.OrderStatusDelivered, true, productID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ReviewableProductIDs lists distinct products from the user's delivered and paid orders.
func (r *GormRepo) ReviewableProductIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db(ctx).Model(&models.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.user_id = ? AND orders.status = ? AND orders.paid = ?",
			userID, models.OrderStatusDelivered, true).
		Distinct("order_items.product_id").
		Pluck("order_items.product_id", &ids).Error
	return ids, err
}

func (r *GormRepo) CountOrdersByStatus(ctx context.Context, status models.OrderStatus) (int64, error) {
	var n int64
	if err := r.db(ctx).Model(&models.Order{}).Where("status = ?", status).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// OrderTotalsSince sums order totals in Go so numeric columns behave the same on every driver.
func (r *GormRepo) OrderTotalsSince(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	var totals []decimal.Decimal
	if err := r.db(ctx).Model(&models.Order{}).
		Where("created_at >= ? AND status <> ?", since, models.OrderStatusCancelled).
		Pluck("total", &totals).Error; err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, t := range totals {
		sum = sum.Add(t)
	}
	return sum, nil
}

func (r *GormRepo) LatestOrders(ctx context.Context, limit int) ([]models.Order, error) {
	var items []models.Order
	err := r.db(ctx).Order("created_at DESC, id ASC").Limit(limit).Find(&items).Error
	return items, err
}
