package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/modlocker/modlocker/internal/permissions"
	apperrors "github.com/modlocker/modlocker/pkg/errors"
	"github.com/modlocker/modlocker/pkg/metrics"
	"github.com/modlocker/modlocker/pkg/response"
)

// RequirePermission checks that the authenticated user holds the provided
// permission. The denied payload names the missing permission so clients can
// explain the refusal.
func RequirePermission(checker *permissions.Checker, permissionID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get(CtxUserIDKey)
		if !ok {
			response.Error(c, apperrors.ErrUnauthenticated)
			c.Abort()
			return
		}
		userID, _ := v.(string)

		allowed, err := checker.Check(c.Request.Context(), userID, permissionID)
		if err != nil {
			metrics.PermissionChecks.WithLabelValues(permissionID, "error").Inc()
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": gin.H{"code": apperrors.ErrInternalServer.Code, "message": "permission check failed"}})
			return
		}
		if !allowed {
			metrics.PermissionChecks.WithLabelValues(permissionID, "denied").Inc()
			response.Error(c, apperrors.ErrForbidden.WithDetails(map[string]any{
				"permission": permissionID,
			}))
			c.Abort()
			return
		}
		metrics.PermissionChecks.WithLabelValues(permissionID, "allowed").Inc()
		c.Next()
	}
}

// RequireAnyPermission passes when the user holds at least one of the listed
// permissions.
func RequireAnyPermission(checker *permissions.Checker, permissionIDs ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get(CtxUserIDKey)
		if !ok {
			response.Error(c, apperrors.ErrUnauthenticated)
			c.Abort()
			return
		}
		userID, _ := v.(string)

		allowed, err := checker.CheckAny(c.Request.Context(), userID, permissionIDs)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": gin.H{"code": apperrors.ErrInternalServer.Code, "message": "permission check failed"}})
			return
		}
		if !allowed {
			response.Error(c, apperrors.ErrForbidden.WithDetails(map[string]any{
				"permissions": permissionIDs,
			}))
			c.Abort()
			return
		}
		c.Next()
	}
}
