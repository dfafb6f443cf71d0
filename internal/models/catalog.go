package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Category struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"   json:"id"`
	Name        string    `gorm:"uniqueIndex;not null"   json:"name"`
	Slug        string    `gorm:"uniqueIndex;not null"   json:"slug"`
	Description string    `                              json:"description"`
	CreatedAt   time.Time `                              json:"created_at"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

type Product struct {
	ID                 uuid.UUID                   `gorm:"type:uuid;primaryKey"                                                      json:"id"`
	Name               string                      `gorm:"not null"                                                                  json:"name"`
	Slug               string                      `gorm:"uniqueIndex;not null"                                                      json:"slug"`
	Description        string                      `                                                                                 json:"description"`
	Brand              string                      `gorm:"index"                                                                     json:"brand"`
	Tags               datatypes.JSONSlice[string] `                                                                                 json:"tags"`
	Images             datatypes.JSONSlice[string] `                                                                                 json:"images"`
	Price              decimal.Decimal             `gorm:"type:numeric(12,2);not null"                                               json:"price"`
	DiscountPercentage int                         `gorm:"not null;default:0;check:discount_percentage >= 0 AND discount_percentage <= 100" json:"discount_percentage"`
	Stock              int                         `gorm:"not null;default:0;check:stock >= 0"                                       json:"stock"`
	CategoryID         *uuid.UUID                  `gorm:"type:uuid;index"                                                           json:"category_id,omitempty"`
	Category           *Category                   `                                                                                 json:"category,omitempty"`
	Rating             float64                     `gorm:"not null;default:0"                                                        json:"rating"`
	IsPublished        bool                        `gorm:"not null;default:false;index"                                              json:"is_published"`
	IsBestseller       bool                        `gorm:"not null;default:false"                                                    json:"is_bestseller"`
	CreatedAt          time.Time                   `gorm:"index"                                                                     json:"created_at"`
	UpdatedAt          time.Time                   `                                                                                 json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

func (p Product) EffectivePrice() decimal.Decimal {
	return EffectivePrice(p.Price, p.DiscountPercentage)
}

var hundred = decimal.NewFromInt(100)

// EffectivePrice applies a percentage discount and rounds to cents.
func EffectivePrice(price decimal.Decimal, discountPercentage int) decimal.Decimal {
	if discountPercentage <= 0 {
		return price.Round(2)
	}
	if discountPercentage >= 100 {
		return decimal.Zero
	}
	factor := decimal.NewFromInt(int64(100 - discountPercentage))
	return price.Mul(factor).Div(hundred).Round(2)
}
