package models

// DownloadEvent is an analytics record written on every granted download.
// Writes are best-effort and never block delivery.
type DownloadEvent struct {
	BaseModel

	UserID    string `gorm:"type:uuid;not null;index" json:"user_id"`
	ProductID string `gorm:"type:uuid;not null;index" json:"product_id"`
}
