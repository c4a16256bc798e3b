package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/modlocker/modlocker/internal/database/testutil"
	"github.com/modlocker/modlocker/internal/models"
	"github.com/modlocker/modlocker/pkg/crypto"
)

func setupUserService(t *testing.T) (*gorm.DB, *UserService) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	audit, err := NewAuditService(db)
	require.NoError(t, err)
	svc, err := NewUserService(db, audit)
	require.NoError(t, err)
	return db, svc
}

func TestCreateUserHashesPassword(t *testing.T) {
	_, svc := setupUserService(t)

	user, err := svc.CreateUser(context.Background(), CreateUserInput{
		Username: "alice",
		Email:    "Alice@Example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", user.Email)
	require.NotEqual(t, "correct horse", user.Password)
	require.True(t, crypto.VerifyPassword(user.Password, "correct horse"))
}

func TestCreateUserRejectsShortPassword(t *testing.T) {
	_, svc := setupUserService(t)

	_, err := svc.CreateUser(context.Background(), CreateUserInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "short",
	})
	require.Error(t, err)
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	_, svc := setupUserService(t)

	_, err := svc.CreateUser(context.Background(), CreateUserInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)

	_, err = svc.CreateUser(context.Background(), CreateUserInput{
		Username: "alice",
		Email:    "alice2@example.com",
		Password: "correct horse",
	})
	require.Error(t, err)
}

func TestListUsersSearch(t *testing.T) {
	db, svc := setupUserService(t)

	createTestUser(t, db, "alice")
	createTestUser(t, db, "bob")
	createTestUser(t, db, "alicia")

	users, total, err := svc.ListUsers(context.Background(), ListUsersOptions{Search: "ali"})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, users, 2)
}

func TestListUsersPagination(t *testing.T) {
	db, svc := setupUserService(t)

	for _, name := range []string{"u1", "u2", "u3"} {
		createTestUser(t, db, name)
	}

	users, total, err := svc.ListUsers(context.Background(), ListUsersOptions{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, users, 1)
}

func TestSetBanned(t *testing.T) {
	db, svc := setupUserService(t)

	user := createTestUser(t, db, "alice")

	banned, err := svc.SetBanned(context.Background(), user.ID, true)
	require.NoError(t, err)
	require.True(t, banned.IsBanned)

	unbanned, err := svc.SetBanned(context.Background(), user.ID, false)
	require.NoError(t, err)
	require.False(t, unbanned.IsBanned)
}

func TestDeleteUserClearsAssignments(t *testing.T) {
	db, svc := setupUserService(t)

	user := createTestUser(t, db, "alice")
	role := createTestRole(t, db, "editors")
	require.NoError(t, db.Create(&models.UserRole{UserID: user.ID, RoleID: role.ID}).Error)

	require.NoError(t, svc.DeleteUser(context.Background(), user.ID))

	_, err := svc.GetUser(context.Background(), user.ID)
	require.ErrorIs(t, err, ErrUserNotFound)

	var assignments int64
	require.NoError(t, db.Model(&models.UserRole{}).Where("user_id = ?", user.ID).Count(&assignments).Error)
	require.Zero(t, assignments)
}

func TestGetUserNotFound(t *testing.T) {
	_, svc := setupUserService(t)

	_, err := svc.GetUser(context.Background(), "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, ErrUserNotFound)
}
