package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/modlocker/modlocker/internal/models"
	"github.com/modlocker/modlocker/internal/permissions"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.UserRole{},
		&models.Product{},
		&models.ProductVersion{},
		&models.Purchase{},
		&models.DownloadEvent{},
		&models.AuditLog{},
		&models.CacheEntry{},
	)
}

// seedRole describes a built-in role and its default permission grants.
type seedRole struct {
	ID          string
	Name        string
	Description string
	Permissions []string
}

// SeedData syncs the permission catalog and provisions built-in system roles.
// Safe to run on every start; existing rows are left untouched.
func SeedData(ctx context.Context, db *gorm.DB) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := permissions.Sync(ctx, db); err != nil {
		return err
	}

	roles := []seedRole{
		{
			ID:          "moderator",
			Name:        "Moderator",
			Description: "Community moderation and content review",
			Permissions: []string{"dashboard.view", "users.view", "users.ban", "mod.view", "content.view", "support.view", "support.create"},
		},
		{
			ID:          "support",
			Name:        "Support",
			Description: "Support ticket handling",
			Permissions: []string{"support.view", "support.create"},
		},
	}

	for _, seed := range roles {
		var existing models.Role
		err := db.WithContext(ctx).First(&existing, "id = ?", seed.ID).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return fmt.Errorf("seed role %s: %w", seed.ID, err)
		}

		role := models.Role{
			BaseModel:   models.BaseModel{ID: seed.ID},
			Name:        seed.Name,
			Description: seed.Description,
			IsSystem:    true,
		}
		if err := db.WithContext(ctx).Create(&role).Error; err != nil {
			return fmt.Errorf("seed role %s: %w", seed.ID, err)
		}

		var perms []models.Permission
		if err := db.WithContext(ctx).Where("id IN ?", seed.Permissions).Find(&perms).Error; err != nil {
			return fmt.Errorf("seed role %s permissions: %w", seed.ID, err)
		}
		if err := db.WithContext(ctx).Model(&role).Association("Permissions").Replace(perms); err != nil {
			return fmt.Errorf("seed role %s permissions: %w", seed.ID, err)
		}
	}

	return nil
}
