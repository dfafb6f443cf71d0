package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Subscriber struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"        json:"id"`
	Email          string     `gorm:"uniqueIndex;not null"        json:"email"`
	Token          string     `gorm:"uniqueIndex;not null"        json:"-"`
	IsSubscribed   bool       `gorm:"not null;default:false;index" json:"is_subscribed"`
	ConfirmedAt    *time.Time `                                   json:"confirmed_at,omitempty"`
	UnsubscribedAt *time.Time `                                   json:"unsubscribed_at,omitempty"`
	CreatedAt      time.Time  `                                   json:"created_at"`
}

func (s *Subscriber) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	if s.Token == "" {
		s.Token = uuid.NewString()
	}
	return nil
}
