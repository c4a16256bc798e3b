package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/modlocker/modlocker/internal/database/testutil"
	"github.com/modlocker/modlocker/internal/models"
	apperrors "github.com/modlocker/modlocker/pkg/errors"
)

func setupPermissionService(t *testing.T) (*gorm.DB, *PermissionService) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	audit, err := NewAuditService(db)
	require.NoError(t, err)
	svc, err := NewPermissionService(db, audit)
	require.NoError(t, err)
	return db, svc
}

func TestCreateRoleWithPermissions(t *testing.T) {
	_, svc := setupPermissionService(t)

	role, err := svc.CreateRole(context.Background(), CreateRoleInput{
		Name:          "editors",
		Description:   "Content editors",
		PermissionIDs: []string{"content.view", "content.edit"},
	})
	require.NoError(t, err)
	require.False(t, role.IsSystem)

	loaded, err := svc.GetRole(context.Background(), role.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Permissions, 2)
}

func TestCreateRoleRejectsUnknownPermission(t *testing.T) {
	_, svc := setupPermissionService(t)

	_, err := svc.CreateRole(context.Background(), CreateRoleInput{
		Name:          "broken",
		PermissionIDs: []string{"nonexistent.permission"},
	})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 400, appErr.StatusCode)
}

func TestCreateRoleDuplicateName(t *testing.T) {
	_, svc := setupPermissionService(t)

	_, err := svc.CreateRole(context.Background(), CreateRoleInput{Name: "editors"})
	require.NoError(t, err)

	_, err = svc.CreateRole(context.Background(), CreateRoleInput{Name: "editors"})
	require.Error(t, err)
}

func TestUpdateRoleReplacesPermissions(t *testing.T) {
	_, svc := setupPermissionService(t)

	role, err := svc.CreateRole(context.Background(), CreateRoleInput{
		Name:          "editors",
		PermissionIDs: []string{"content.view", "content.edit"},
	})
	require.NoError(t, err)

	updated, err := svc.UpdateRole(context.Background(), role.ID, UpdateRoleInput{
		Name:          "publishers",
		PermissionIDs: []string{"content.publish"},
	})
	require.NoError(t, err)
	require.Equal(t, "publishers", updated.Name)

	loaded, err := svc.GetRole(context.Background(), role.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Permissions, 1)
	require.Equal(t, "content.publish", loaded.Permissions[0].ID)
}

func TestUpdateRoleNilPermissionsLeavesSetUntouched(t *testing.T) {
	_, svc := setupPermissionService(t)

	role, err := svc.CreateRole(context.Background(), CreateRoleInput{
		Name:          "editors",
		PermissionIDs: []string{"content.view"},
	})
	require.NoError(t, err)

	_, err = svc.UpdateRole(context.Background(), role.ID, UpdateRoleInput{Description: "updated"})
	require.NoError(t, err)

	loaded, err := svc.GetRole(context.Background(), role.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Permissions, 1)
}

func TestDeleteRoleCascades(t *testing.T) {
	db, svc := setupPermissionService(t)

	role, err := svc.CreateRole(context.Background(), CreateRoleInput{
		Name:          "editors",
		PermissionIDs: []string{"content.view"},
	})
	require.NoError(t, err)

	user := models.User{Username: "alice", Email: "alice@example.com", Password: "x"}
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, db.Create(&models.UserRole{UserID: user.ID, RoleID: role.ID}).Error)

	require.NoError(t, svc.DeleteRole(context.Background(), role.ID))

	_, err = svc.GetRole(context.Background(), role.ID)
	require.ErrorIs(t, err, ErrRoleNotFound)

	var assignments int64
	require.NoError(t, db.Model(&models.UserRole{}).Where("role_id = ?", role.ID).Count(&assignments).Error)
	require.Zero(t, assignments)
}

func TestDeleteSystemRoleConflicts(t *testing.T) {
	db, svc := setupPermissionService(t)

	var system models.Role
	require.NoError(t, db.First(&system, "is_system = ?", true).Error)

	err := svc.DeleteRole(context.Background(), system.ID)
	require.ErrorIs(t, err, ErrSystemRoleImmutable)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 409, appErr.StatusCode)
}

func TestSetRolePermissionsFullReplace(t *testing.T) {
	_, svc := setupPermissionService(t)

	role, err := svc.CreateRole(context.Background(), CreateRoleInput{
		Name:          "support-tier2",
		PermissionIDs: []string{"support.view", "support.create"},
	})
	require.NoError(t, err)

	require.NoError(t, svc.SetRolePermissions(context.Background(), role.ID, []string{"support.delete"}))

	loaded, err := svc.GetRole(context.Background(), role.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Permissions, 1)
	require.Equal(t, "support.delete", loaded.Permissions[0].ID)
}

func TestSetRolePermissionsEmptyClears(t *testing.T) {
	_, svc := setupPermissionService(t)

	role, err := svc.CreateRole(context.Background(), CreateRoleInput{
		Name:          "editors",
		PermissionIDs: []string{"content.view"},
	})
	require.NoError(t, err)

	require.NoError(t, svc.SetRolePermissions(context.Background(), role.ID, nil))

	loaded, err := svc.GetRole(context.Background(), role.ID)
	require.NoError(t, err)
	require.Empty(t, loaded.Permissions)
}
