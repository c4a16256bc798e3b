package models

import "time"

// UserRole records a role held by a user together with assignment
// provenance. The (user, role) pair is unique; replacement semantics are
// implemented by deleting and re-inserting a user's rows in one transaction.
type UserRole struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	UserID     string    `gorm:"type:uuid;not null;uniqueIndex:idx_user_role" json:"user_id"`
	RoleID     string    `gorm:"type:uuid;not null;uniqueIndex:idx_user_role;index" json:"role_id"`
	AssignedBy string    `gorm:"type:uuid" json:"assigned_by"`
	AssignedAt time.Time `json:"assigned_at"`

	Role *Role `gorm:"foreignKey:RoleID" json:"role,omitempty"`
}
