package permissions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/modlocker/modlocker/internal/models"
)

func setupCheckerTest(t *testing.T) (*gorm.DB, *Checker) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.UserRole{},
	))
	require.NoError(t, Sync(context.Background(), db))

	checker, err := NewChecker(db)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db, checker
}

func createRoleWithPermissions(t *testing.T, db *gorm.DB, name string, permissionIDs ...string) *models.Role {
	t.Helper()

	role := &models.Role{Name: name}
	require.NoError(t, db.Create(role).Error)

	var perms []models.Permission
	require.NoError(t, db.Where("id IN ?", permissionIDs).Find(&perms).Error)
	require.Len(t, perms, len(permissionIDs))
	require.NoError(t, db.Model(role).Association("Permissions").Replace(perms))

	return role
}

func assignRole(t *testing.T, db *gorm.DB, userID, roleID string) {
	t.Helper()
	require.NoError(t, db.Create(&models.UserRole{
		UserID:     userID,
		RoleID:     roleID,
		AssignedAt: time.Now(),
	}).Error)
}

func TestAdminReceivesFullCatalog(t *testing.T) {
	db, checker := setupCheckerTest(t)

	admin := &models.User{Username: "root", Email: "root@example.com", Password: "x", IsAdmin: true}
	require.NoError(t, db.Create(admin).Error)

	perms, err := checker.EffectivePermissions(context.Background(), admin.ID)
	require.NoError(t, err)
	require.Len(t, perms, len(All()))

	// Role assignments must not matter for admins.
	role := createRoleWithPermissions(t, db, "Support", "support.view")
	assignRole(t, db, admin.ID, role.ID)

	again, err := checker.EffectivePermissions(context.Background(), admin.ID)
	require.NoError(t, err)
	require.Len(t, again, len(All()))
}

func TestEffectivePermissionsUnionAcrossRoles(t *testing.T) {
	db, checker := setupCheckerTest(t)

	user := &models.User{Username: "staff", Email: "staff@example.com", Password: "x"}
	require.NoError(t, db.Create(user).Error)

	support := createRoleWithPermissions(t, db, "Support", "support.view", "support.create")
	content := createRoleWithPermissions(t, db, "Editors", "content.view", "support.view")
	assignRole(t, db, user.ID, support.ID)
	assignRole(t, db, user.ID, content.ID)

	perms, err := checker.EffectivePermissions(context.Background(), user.ID)
	require.NoError(t, err)

	ids := make([]string, 0, len(perms))
	for _, perm := range perms {
		ids = append(ids, perm.ID)
	}
	// support.view held by both roles appears once.
	require.ElementsMatch(t, []string{"content.view", "support.create", "support.view"}, ids)
}

func TestUnassignRestoresPriorSet(t *testing.T) {
	db, checker := setupCheckerTest(t)

	user := &models.User{Username: "temp", Email: "temp@example.com", Password: "x"}
	require.NoError(t, db.Create(user).Error)

	support := createRoleWithPermissions(t, db, "Support", "support.view")
	assignRole(t, db, user.ID, support.ID)

	extra := createRoleWithPermissions(t, db, "Editors", "content.edit")
	assignRole(t, db, user.ID, extra.ID)

	require.NoError(t, db.Where("user_id = ? AND role_id = ?", user.ID, extra.ID).Delete(&models.UserRole{}).Error)

	perms, err := checker.EffectivePermissions(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, perms, 1)
	require.Equal(t, "support.view", perms[0].ID)
}

func TestCheckAndCheckAny(t *testing.T) {
	db, checker := setupCheckerTest(t)

	user := &models.User{Username: "helper", Email: "helper@example.com", Password: "x"}
	require.NoError(t, db.Create(user).Error)

	support := createRoleWithPermissions(t, db, "Support", "support.view", "support.create")
	assignRole(t, db, user.ID, support.ID)

	allowed, err := checker.Check(context.Background(), user.ID, "support.delete")
	require.NoError(t, err)
	require.False(t, allowed)

	allowed, err = checker.Check(context.Background(), user.ID, "support.create")
	require.NoError(t, err)
	require.True(t, allowed)

	any, err := checker.CheckAny(context.Background(), user.ID, []string{"support.create", "roles.edit"})
	require.NoError(t, err)
	require.True(t, any)

	any, err = checker.CheckAny(context.Background(), user.ID, []string{"roles.edit", "roles.delete"})
	require.NoError(t, err)
	require.False(t, any)
}

func TestCheckRejectsUnknownPermission(t *testing.T) {
	db, checker := setupCheckerTest(t)

	user := &models.User{Username: "nobody", Email: "nobody@example.com", Password: "x"}
	require.NoError(t, db.Create(user).Error)

	_, err := checker.Check(context.Background(), user.ID, "missing.permission")
	require.ErrorIs(t, err, ErrUnknownPermission)
}

func TestNoRolesMeansNoPermissions(t *testing.T) {
	db, checker := setupCheckerTest(t)

	user := &models.User{Username: "fresh", Email: "fresh@example.com", Password: "x"}
	require.NoError(t, db.Create(user).Error)

	perms, err := checker.EffectivePermissions(context.Background(), user.ID)
	require.NoError(t, err)
	require.Empty(t, perms)
}
