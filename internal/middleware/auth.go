package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	iauth "github.com/modlocker/modlocker/internal/auth"
	"github.com/modlocker/modlocker/internal/auditctx"
	"github.com/modlocker/modlocker/internal/models"
	apperrors "github.com/modlocker/modlocker/pkg/errors"
	"github.com/modlocker/modlocker/pkg/response"
)

const (
	CtxUserKey   = "authUser"
	CtxUserIDKey = "userID"
)

// Auth enforces JWT authentication and loads the account behind the token.
// Admin and ban state are read fresh from the database on every request, so a
// ban or demotion takes effect immediately instead of at token expiry.
func Auth(jwt *iauth.JWTService, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			response.Error(c, apperrors.ErrUnauthenticated)
			c.Abort()
			return
		}

		claims, err := jwt.ValidateAccessToken(strings.TrimSpace(authz[7:]))
		if err != nil {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, apperrors.ErrUnauthenticated)
			c.Abort()
			return
		}

		var user models.User
		if err := db.WithContext(c.Request.Context()).First(&user, "id = ?", claims.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				response.Error(c, apperrors.ErrUnauthenticated)
			} else {
				response.Error(c, apperrors.ErrInternalServer)
			}
			c.Abort()
			return
		}

		if user.IsBanned {
			response.Error(c, apperrors.ErrUserBanned)
			c.Abort()
			return
		}

		c.Set(CtxUserKey, &user)
		c.Set(CtxUserIDKey, user.ID)

		ctx := auditctx.WithActor(c.Request.Context(), auditctx.Actor{
			UserID:    user.ID,
			Username:  user.Username,
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// CurrentUser returns the authenticated account stored by Auth.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(CtxUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}
