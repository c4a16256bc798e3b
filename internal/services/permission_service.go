package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/modlocker/modlocker/internal/models"
	"github.com/modlocker/modlocker/internal/permissions"
	apperrors "github.com/modlocker/modlocker/pkg/errors"
)

var (
	// ErrRoleNotFound indicates the requested role does not exist.
	ErrRoleNotFound = apperrors.New("ROLE_NOT_FOUND", "Role not found", http.StatusNotFound)
	// ErrSystemRoleImmutable prevents destructive operations on system roles.
	ErrSystemRoleImmutable = apperrors.New("ROLE_SYSTEM_IMMUTABLE", "System roles cannot be deleted or renamed", http.StatusConflict)
)

// PermissionService provides role lifecycle management and permission assignment.
type PermissionService struct {
	db           *gorm.DB
	auditService *AuditService
}

// NewPermissionService constructs a PermissionService using the provided database handle.
func NewPermissionService(db *gorm.DB, audit *AuditService) (*PermissionService, error) {
	if db == nil {
		return nil, errors.New("permission service: db is required")
	}
	return &PermissionService{
		db:           db,
		auditService: audit,
	}, nil
}

// CreateRoleInput describes the payload accepted by CreateRole. Roles
// created through the API are never system roles; only seed data sets
// IsSystem.
type CreateRoleInput struct {
	Name          string
	Description   string
	PermissionIDs []string
}

// UpdateRoleInput describes mutable fields on a role. A nil PermissionIDs
// leaves the role's permissions untouched; a non-nil (possibly empty) slice
// replaces them in full.
type UpdateRoleInput struct {
	Name          string
	Description   string
	PermissionIDs []string
}

// CreateRole registers a new role and attaches its initial permission set.
func (s *PermissionService) CreateRole(ctx context.Context, input CreateRoleInput) (*models.Role, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("role name is required")
	}

	permIDs := normaliseIDs(input.PermissionIDs)
	if err := validateCatalogIDs(permIDs); err != nil {
		return nil, err
	}

	role := &models.Role{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(role).Error; err != nil {
			if isUniqueConstraintError(err) {
				return apperrors.NewBadRequest("role name already exists")
			}
			return fmt.Errorf("permission service: create role: %w", err)
		}
		return replaceRolePermissions(tx, role, permIDs)
	})
	if err != nil {
		return nil, err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "role.create",
		Resource: role.ID,
		Result:   "success",
		Metadata: map[string]any{
			"name":        role.Name,
			"permissions": permIDs,
		},
	})

	return role, nil
}

// UpdateRole modifies role metadata and optionally replaces its permissions.
func (s *PermissionService) UpdateRole(ctx context.Context, roleID string, input UpdateRoleInput) (*models.Role, error) {
	ctx = ensureContext(ctx)

	if input.PermissionIDs != nil {
		input.PermissionIDs = normaliseIDs(input.PermissionIDs)
		if err := validateCatalogIDs(input.PermissionIDs); err != nil {
			return nil, err
		}
	}

	var role models.Role

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&role, "id = ?", roleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoleNotFound
			}
			return fmt.Errorf("permission service: load role: %w", err)
		}

		if role.IsSystem {
			if name := strings.TrimSpace(input.Name); name != "" && name != role.Name {
				return ErrSystemRoleImmutable
			}
		}

		updates := map[string]any{}
		if name := strings.TrimSpace(input.Name); name != "" && name != role.Name {
			updates["name"] = name
		}
		if desc := strings.TrimSpace(input.Description); desc != role.Description {
			updates["description"] = desc
		}

		if len(updates) > 0 {
			if err := tx.Model(&role).Updates(updates).Error; err != nil {
				if isUniqueConstraintError(err) {
					return apperrors.NewBadRequest("role name already exists")
				}
				return fmt.Errorf("permission service: update role: %w", err)
			}
		}

		if input.PermissionIDs != nil {
			if err := replaceRolePermissions(tx, &role, input.PermissionIDs); err != nil {
				return err
			}
		}

		return tx.First(&role, "id = ?", roleID).Error
	})
	if err != nil {
		return nil, err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "role.update",
		Resource: role.ID,
		Result:   "success",
		Metadata: map[string]any{
			"name": role.Name,
		},
	})

	return &role, nil
}

// DeleteRole removes a non-system role together with every user_roles and
// role_permissions row referencing it, all inside one transaction so a
// concurrent permission check never observes a half-deleted role.
func (s *PermissionService) DeleteRole(ctx context.Context, roleID string) error {
	ctx = ensureContext(ctx)

	var role models.Role

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&role, "id = ?", roleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoleNotFound
			}
			return fmt.Errorf("permission service: load role: %w", err)
		}

		if role.IsSystem {
			return ErrSystemRoleImmutable
		}

		// Join rows go first so no orphans survive a partial failure.
		if err := tx.Where("role_id = ?", role.ID).Delete(&models.UserRole{}).Error; err != nil {
			return fmt.Errorf("permission service: clear role assignments: %w", err)
		}
		if err := tx.Model(&role).Association("Permissions").Clear(); err != nil {
			return fmt.Errorf("permission service: clear role permissions: %w", err)
		}
		if err := tx.Delete(&role).Error; err != nil {
			return fmt.Errorf("permission service: delete role: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "role.delete",
		Resource: role.ID,
		Result:   "success",
		Metadata: map[string]any{
			"name": role.Name,
		},
	})

	return nil
}

// GetRole loads a single role with its permissions.
func (s *PermissionService) GetRole(ctx context.Context, roleID string) (*models.Role, error) {
	ctx = ensureContext(ctx)

	var role models.Role
	if err := s.db.WithContext(ctx).Preload("Permissions").First(&role, "id = ?", roleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("permission service: load role: %w", err)
	}
	return &role, nil
}

// ListRoles returns all roles ordered by creation date.
func (s *PermissionService) ListRoles(ctx context.Context) ([]models.Role, error) {
	ctx = ensureContext(ctx)

	var roles []models.Role
	if err := s.db.WithContext(ctx).Preload("Permissions").Order("created_at ASC").Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("permission service: list roles: %w", err)
	}
	return roles, nil
}

// SetRolePermissions replaces the role's permission set in full.
func (s *PermissionService) SetRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	ctx = ensureContext(ctx)

	permissionIDs = normaliseIDs(permissionIDs)
	if err := validateCatalogIDs(permissionIDs); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var role models.Role
		if err := tx.First(&role, "id = ?", roleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoleNotFound
			}
			return fmt.Errorf("permission service: load role: %w", err)
		}
		return replaceRolePermissions(tx, &role, permissionIDs)
	})
	if err != nil {
		return err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "role.set_permissions",
		Resource: roleID,
		Result:   "success",
		Metadata: map[string]any{
			"permission_ids": permissionIDs,
		},
	})

	return nil
}

// replaceRolePermissions swaps the role's role_permissions rows for the
// supplied set. Callers run it inside a transaction so readers never see the
// intermediate empty state.
func replaceRolePermissions(tx *gorm.DB, role *models.Role, permissionIDs []string) error {
	if len(permissionIDs) == 0 {
		if err := tx.Model(role).Association("Permissions").Clear(); err != nil {
			return fmt.Errorf("permission service: clear permissions: %w", err)
		}
		return nil
	}

	var perms []models.Permission
	if err := tx.Where("id IN ?", permissionIDs).Find(&perms).Error; err != nil {
		return fmt.Errorf("permission service: load permissions: %w", err)
	}
	if len(perms) != len(permissionIDs) {
		return apperrors.NewBadRequest("some permissions are missing from the catalog")
	}

	if err := tx.Model(role).Association("Permissions").Replace(perms); err != nil {
		return fmt.Errorf("permission service: replace permissions: %w", err)
	}
	return nil
}

// validateCatalogIDs rejects permission names absent from the registry
// before any database work happens.
func validateCatalogIDs(permissionIDs []string) error {
	for _, id := range permissionIDs {
		if _, ok := permissions.Get(id); !ok {
			return apperrors.NewBadRequest(fmt.Sprintf("%s %q", permissions.ErrUnknownPermission.Error(), id))
		}
	}
	return nil
}
