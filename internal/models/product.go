package models

// Product is the delivery-relevant subset of the catalog. VaultFolder marks
// products served by the external delivery vault; ExternalURL is a last-resort
// redirect target when neither a vault folder nor an uploaded file exists.
type Product struct {
	BaseModel

	Name        string  `gorm:"not null" json:"name"`
	Slug        string  `gorm:"uniqueIndex;not null" json:"slug"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`

	SubscriptionOnly bool   `gorm:"default:false;index" json:"subscription_only"`
	VaultFolder      string `json:"vault_folder,omitempty"`
	ExternalURL      string `json:"external_url,omitempty"`

	Versions []ProductVersion `gorm:"foreignKey:ProductID" json:"versions,omitempty"`
}

// ProductVersion tracks uploaded release files for a product. The newest row
// by creation time is "the latest version" for local file delivery.
type ProductVersion struct {
	BaseModel

	ProductID string `gorm:"type:uuid;not null;index" json:"product_id"`
	Version   string `gorm:"not null" json:"version"`
	FileName  string `json:"file_name"`
	FilePath  string `json:"-"`
}
