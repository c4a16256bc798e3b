package permissions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/modlocker/modlocker/internal/models"
)

// Checker resolves effective permissions for users against the catalog.
// Every call reads fresh state; nothing is cached between requests, so a
// role-assignment write is always visible to the next check.
type Checker struct {
	db *gorm.DB
}

// NewChecker constructs a permission checker backed by the provided database.
func NewChecker(db *gorm.DB) (*Checker, error) {
	if db == nil {
		return nil, errors.New("permission checker: db is required")
	}
	return &Checker{db: db}, nil
}

// EffectivePermissions returns the user's permission set sorted by
// (category, action). Administrators receive the entire catalog without any
// role table lookups; everyone else gets the union across assigned roles.
func (c *Checker) EffectivePermissions(ctx context.Context, userID string) ([]*Permission, error) {
	ctx = ensureContext(ctx)

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("permission checker: user id is required")
	}

	var user models.User
	if err := c.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("permission checker: load user: %w", err)
	}

	if user.IsAdmin {
		return All(), nil
	}

	var assignments []models.UserRole
	if err := c.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("permission checker: load user roles: %w", err)
	}

	if len(assignments) == 0 {
		return nil, nil
	}

	roleIDs := make([]string, 0, len(assignments))
	for _, assignment := range assignments {
		roleIDs = append(roleIDs, assignment.RoleID)
	}

	var roles []models.Role
	if err := c.db.WithContext(ctx).
		Preload("Permissions").
		Where("id IN ?", roleIDs).
		Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("permission checker: load roles: %w", err)
	}

	seen := make(map[string]struct{})
	var perms []*Permission
	for _, role := range roles {
		for _, perm := range role.Permissions {
			if _, ok := seen[perm.ID]; ok {
				continue
			}
			seen[perm.ID] = struct{}{}
			perms = append(perms, &Permission{
				ID:          perm.ID,
				Category:    perm.Category,
				Action:      perm.Action,
				Description: perm.Description,
			})
		}
	}

	SortPermissions(perms)
	return perms, nil
}

// Check determines whether the user holds the named permission.
func (c *Checker) Check(ctx context.Context, userID, permissionID string) (bool, error) {
	permissionID = strings.TrimSpace(permissionID)
	if permissionID == "" {
		return false, errors.New("permission checker: permission id is required")
	}
	if _, ok := Get(permissionID); !ok {
		return false, fmt.Errorf("%w %q", ErrUnknownPermission, permissionID)
	}

	perms, err := c.EffectivePermissions(ctx, userID)
	if err != nil {
		return false, err
	}

	for _, perm := range perms {
		if perm.ID == permissionID {
			return true, nil
		}
	}
	return false, nil
}

// CheckAny reports whether the user holds at least one of the named permissions.
func (c *Checker) CheckAny(ctx context.Context, userID string, permissionIDs []string) (bool, error) {
	if len(permissionIDs) == 0 {
		return false, nil
	}

	perms, err := c.EffectivePermissions(ctx, userID)
	if err != nil {
		return false, err
	}

	held := make(map[string]struct{}, len(perms))
	for _, perm := range perms {
		held[perm.ID] = struct{}{}
	}

	for _, id := range permissionIDs {
		if _, ok := held[strings.TrimSpace(id)]; ok {
			return true, nil
		}
	}
	return false, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
