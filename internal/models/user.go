package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID                    uuid.UUID  `gorm:"type:uuid;primaryKey"       json:"id"`
	Email                 string     `gorm:"uniqueIndex;not null"       json:"email"`
	PasswordHash          string     `gorm:"not null"                   json:"-"`
	Role                  string     `gorm:"not null;default:user"      json:"role"`
	FirstName             string     `gorm:"size:100"                   json:"first_name"`
	LastName              string     `gorm:"size:100"                   json:"last_name"`
	Phone                 string     `gorm:"size:32"                    json:"phone"`
	ShippingAddress       Address    `gorm:"embedded;embeddedPrefix:shipping_" json:"default_shipping_address"`
	EmailVerified         bool       `gorm:"not null;default:false"     json:"email_verified"`
	VerifiedAt            *time.Time `                                  json:"verified_at,omitempty"`
	VerificationToken     *string    `gorm:"uniqueIndex"                json:"-"`
	VerificationExpiresAt *time.Time `                                  json:"-"`
	CreatedAt             time.Time  `                                  json:"created_at"`
}

// Address is a postal address; Country is an ISO 3166 alpha-2 code.
type Address struct {
	Street     string `gorm:"size:255" json:"street"`
	City       string `gorm:"size:120" json:"city"`
	PostalCode string `gorm:"size:20"  json:"postal_code"`
	Country    string `gorm:"size:2"   json:"country"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"          json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null"      json:"user_id"`
	TokenHash string    `gorm:"uniqueIndex;not null"          json:"-"`
	JTI       string    `gorm:"uniqueIndex;not null"          json:"jti"`
	ExpiresAt time.Time `gorm:"not null"                      json:"expires_at"`
	Revoked   bool      `gorm:"not null;default:false"        json:"revoked"`
	CreatedAt time.Time `                                     json:"created_at"`
}

func (t *RefreshToken) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

func (t RefreshToken) Usable(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}
