package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/modlocker/modlocker/internal/middleware"
	"github.com/modlocker/modlocker/internal/permissions"
	apperrors "github.com/modlocker/modlocker/pkg/errors"
	"github.com/modlocker/modlocker/pkg/response"
)

type MeHandler struct {
	checker *permissions.Checker
}

func NewMeHandler(db *gorm.DB) (*MeHandler, error) {
	checker, err := permissions.NewChecker(db)
	if err != nil {
		return nil, err
	}
	return &MeHandler{checker: checker}, nil
}

// GET /api/me/permissions returns the caller's effective permission set.
// Admins report the full catalog.
func (h *MeHandler) Permissions(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, apperrors.ErrUnauthenticated)
		return
	}

	perms, err := h.checker.EffectivePermissions(requestContext(c), user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	ids := make([]string, 0, len(perms))
	for _, perm := range perms {
		ids = append(ids, perm.ID)
	}

	response.Success(c, http.StatusOK, gin.H{
		"is_admin":    user.IsAdmin,
		"permissions": ids,
	})
}
