package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/modlocker/modlocker/internal/handlers"
	"github.com/modlocker/modlocker/internal/middleware"
	"github.com/modlocker/modlocker/internal/permissions"
)

func registerAuditRoutes(api *gin.RouterGroup, db *gorm.DB, checker *permissions.Checker) error {
	handler, err := handlers.NewAuditHandler(db)
	if err != nil {
		return err
	}

	api.GET("/audit", middleware.RequirePermission(checker, "system.audit"), handler.List)

	return nil
}
