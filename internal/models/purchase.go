package models

// Purchase is an append-only record of a completed checkout. Rows are never
// updated or deleted; their existence alone drives one-time entitlement.
type Purchase struct {
	BaseModel

	UserID        string  `gorm:"type:uuid;not null;index:idx_purchase_user_product" json:"user_id"`
	ProductID     string  `gorm:"type:uuid;not null;index:idx_purchase_user_product" json:"product_id"`
	TransactionID string  `gorm:"uniqueIndex;not null" json:"transaction_id"`
	Price         float64 `json:"price"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}
