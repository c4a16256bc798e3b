package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/modlocker/modlocker/internal/database/testutil"
	"github.com/modlocker/modlocker/internal/models"
	"github.com/modlocker/modlocker/internal/permissions"
	"github.com/modlocker/modlocker/pkg/response"
)

func setupPermissionRouter(t *testing.T, permissionID string) (*gorm.DB, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	checker, err := permissions.NewChecker(db)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/guarded", func(c *gin.Context) {
		// Stand-in for Auth: tests inject the user via a header.
		if id := c.GetHeader("X-Test-User"); id != "" {
			c.Set(CtxUserIDKey, id)
		}
		c.Next()
	}, RequirePermission(checker, permissionID), func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"ok": true})
	})
	return db, r
}

func grantPermissionRole(t *testing.T, db *gorm.DB, user *models.User, permissionIDs ...string) {
	t.Helper()

	var perms []models.Permission
	require.NoError(t, db.Where("id IN ?", permissionIDs).Find(&perms).Error)
	require.Len(t, perms, len(permissionIDs))

	role := &models.Role{Name: "role-" + user.Username}
	require.NoError(t, db.Create(role).Error)
	require.NoError(t, db.Model(role).Association("Permissions").Replace(perms))
	require.NoError(t, db.Create(&models.UserRole{UserID: user.ID, RoleID: role.ID}).Error)
}

func guardedRequest(r *gin.Engine, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	if userID != "" {
		req.Header.Set("X-Test-User", userID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequirePermissionAllows(t *testing.T) {
	db, r := setupPermissionRouter(t, "content.view")

	user := createAuthUser(t, db, "alice", false)
	grantPermissionRole(t, db, user, "content.view")

	w := guardedRequest(r, user.ID)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRequirePermissionDeniesNamingPermission(t *testing.T) {
	db, r := setupPermissionRouter(t, "content.publish")

	user := createAuthUser(t, db, "alice", false)
	grantPermissionRole(t, db, user, "content.view")

	w := guardedRequest(r, user.ID)
	require.Equal(t, http.StatusForbidden, w.Code)

	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	require.Equal(t, "FORBIDDEN", body.Error.Code)
	require.Equal(t, "content.publish", body.Error.Details["permission"])
}

func TestRequirePermissionAdminBypass(t *testing.T) {
	db, r := setupPermissionRouter(t, "system.settings")

	admin := &models.User{
		Username: "root",
		Email:    "root@example.com",
		Password: "hashed",
		IsAdmin:  true,
	}
	require.NoError(t, db.Create(admin).Error)

	w := guardedRequest(r, admin.ID)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRequirePermissionUnauthenticated(t *testing.T) {
	_, r := setupPermissionRouter(t, "content.view")

	w := guardedRequest(r, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
