package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Sale struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey"         json:"id"`
	Name               string     `gorm:"not null"                     json:"name"`
	StartDate          time.Time  `gorm:"not null;index"               json:"start_date"`
	EndDate            *time.Time `gorm:"index"                        json:"end_date,omitempty"`
	DiscountPercentage int        `gorm:"not null"                     json:"discount_percentage"`
	Products           []Product  `gorm:"many2many:sale_products"      json:"products,omitempty"`
	AppliedAt          *time.Time `                                    json:"applied_at,omitempty"`
	RevertedAt         *time.Time `                                    json:"reverted_at,omitempty"`
	CreatedAt          time.Time  `                                    json:"created_at"`
	UpdatedAt          time.Time  `                                    json:"updated_at"`
}

func (s *Sale) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

func (s Sale) Started(now time.Time) bool {
	return !s.StartDate.After(now)
}

func (s Sale) Ended(now time.Time) bool {
	return s.EndDate != nil && !s.EndDate.After(now)
}

func (s Sale) ProductIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s.Products))
	for _, p := range s.Products {
		ids = append(ids, p.ID)
	}
	return ids
}
