package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
}

func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, v := range orderTransitions[s] {
		if v == next {
			return true
		}
	}
	return false
}

type Order struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"                 json:"id"`
	UserID    uuid.UUID       `gorm:"type:uuid;index;not null"             json:"user_id"`
	Status    OrderStatus     `gorm:"type:varchar(16);not null;index"      json:"status"`
	Paid      bool            `gorm:"not null;default:false"               json:"paid"`
	Total     decimal.Decimal `gorm:"type:numeric(12,2);not null"          json:"total"`
	Items     []OrderItem     `gorm:"constraint:OnDelete:CASCADE"          json:"items"`
	CreatedAt time.Time       `gorm:"index"                                json:"created_at"`
	UpdatedAt time.Time       `                                            json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// Reviewable reports whether the order makes its products eligible for review.
func (o Order) Reviewable() bool {
	return o.Status == OrderStatusDelivered && o.Paid
}

// OrderItem is a price snapshot taken at checkout.
type OrderItem struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"            json:"id"`
	OrderID         uuid.UUID       `gorm:"type:uuid;index;not null"        json:"order_id"`
	ProductID       uuid.UUID       `gorm:"type:uuid;index;not null"        json:"product_id"`
	CategoryID      *uuid.UUID      `gorm:"type:uuid;index"                 json:"category_id,omitempty"`
	ProductName     string          `gorm:"not null"                        json:"product_name"`
	Quantity        int             `gorm:"not null;check:quantity > 0"     json:"quantity"`
	PriceAtPurchase decimal.Decimal `gorm:"type:numeric(12,2);not null"     json:"price_at_purchase"`
	CreatedAt       time.Time       `gorm:"index"                           json:"created_at"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.PriceAtPurchase.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
