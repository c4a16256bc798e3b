package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User describes storefront accounts. IsAdmin bypasses role lookups entirely,
// IsBanned blocks all gated endpoints regardless of roles or entitlements.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	IsAdmin  bool `gorm:"default:false" json:"is_admin"`
	IsBanned bool `gorm:"default:false" json:"is_banned"`

	IsPremium             bool       `gorm:"default:false" json:"is_premium"`
	SubscriptionID        string     `json:"subscription_id,omitempty"`
	SubscriptionExpiresAt *time.Time `json:"subscription_expires_at,omitempty"`

	Purchases []Purchase `gorm:"foreignKey:UserID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// HasActiveSubscription reports whether the subscription window covers the
// supplied instant. Expiry is strict: an expiry equal to now is not active.
func (u *User) HasActiveSubscription(now time.Time) bool {
	return u.SubscriptionExpiresAt != nil && u.SubscriptionExpiresAt.After(now)
}
