package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MinRating = 1
	MaxRating = 5
)

type Review struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"                                 json:"id"`
	ProductID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_review_user_product;not null" json:"product_id"`
	UserID    uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_review_user_product;not null" json:"user_id"`
	Rating    int       `gorm:"not null;check:rating >= 1 AND rating <= 5"           json:"rating"`
	Body      string    `gorm:"type:text"                                            json:"body"`
	CreatedAt time.Time `                                                            json:"created_at"`
	UpdatedAt time.Time `                                                            json:"updated_at"`
}

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
