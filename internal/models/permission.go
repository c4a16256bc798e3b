package models

// Permission mirrors a catalog entry in the database so role_permissions
// rows have a referenceable target. The ID is the dotted permission name
// (e.g. "roles.assign"); rows are written only by the catalog sync.
type Permission struct {
	ID          string `gorm:"primaryKey" json:"id"`
	Category    string `gorm:"not null;index" json:"category"`
	Action      string `gorm:"not null" json:"action"`
	Description string `json:"description"`

	Roles []Role `gorm:"many2many:role_permissions;" json:"roles,omitempty"`
}
