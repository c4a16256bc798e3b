package permissions

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/modlocker/modlocker/internal/models"
)

// Sync persists the registered catalog to the backing database so that
// role_permissions rows always reference a live permission row.
func Sync(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("permission: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	perms := All()
	if len(perms) == 0 {
		return nil
	}

	tx := db.WithContext(ctx)
	for _, perm := range perms {
		record := models.Permission{
			ID:          perm.ID,
			Category:    perm.Category,
			Action:      perm.Action,
			Description: perm.Description,
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"category", "action", "description"}),
		}).Create(&record).Error; err != nil {
			return fmt.Errorf("permission: sync %s: %w", perm.ID, err)
		}
	}

	return nil
}
