package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PaymentTypeCreditCard = "credit_card"
	PaymentTypePayPal     = "paypal"
)

// PaymentMethod keeps only a masked hint, never the full card number.
type PaymentMethod struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"       json:"id"`
	UserID         uuid.UUID `gorm:"type:uuid;index;not null"   json:"user_id"`
	Type           string    `gorm:"type:varchar(16);not null"  json:"type"`
	HolderName     string    `                                  json:"holder_name"`
	LastFourDigits string    `                                  json:"last_four_digits"`
	CreatedAt      time.Time `                                  json:"created_at"`
	UpdatedAt      time.Time `                                  json:"updated_at"`
}

func (p *PaymentMethod) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
