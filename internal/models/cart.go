package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Cart belongs to exactly one of a user or an anonymous session.
type Cart struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"          json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;uniqueIndex"         json:"user_id,omitempty"`
	SessionKey *string    `gorm:"uniqueIndex"                   json:"-"`
	Items      []CartItem `gorm:"constraint:OnDelete:CASCADE"   json:"items"`
	CreatedAt  time.Time  `                                     json:"created_at"`
	UpdatedAt  time.Time  `                                     json:"updated_at"`
}

func (c *Cart) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

func (c Cart) TotalQuantity() int {
	total := 0
	for _, it := range c.Items {
		total += it.Quantity
	}
	return total
}

type CartItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"                           json:"id"`
	CartID    uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_cart_product;not null" json:"cart_id"`
	ProductID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_cart_product;not null" json:"product_id"`
	Product   *Product  `                                                      json:"product,omitempty"`
	Quantity  int       `gorm:"not null;check:quantity > 0"                    json:"quantity"`
	CreatedAt time.Time `                                                      json:"created_at"`
	UpdatedAt time.Time `                                                      json:"updated_at"`
}

func (c *CartItem) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

func (CartItem) TableName() string {
	return "cart_items"
}
