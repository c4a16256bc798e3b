package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/modlocker/modlocker/internal/handlers"
	"github.com/modlocker/modlocker/internal/middleware"
	"github.com/modlocker/modlocker/internal/permissions"
	"github.com/modlocker/modlocker/internal/services"
)

func registerRoleRoutes(api *gin.RouterGroup, db *gorm.DB, audit *services.AuditService, checker *permissions.Checker) error {
	handler, err := handlers.NewRoleHandler(db, audit)
	if err != nil {
		return err
	}

	roles := api.Group("/roles")
	{
		roles.GET("", middleware.RequirePermission(checker, "roles.view"), handler.List)
		roles.GET("/:id", middleware.RequirePermission(checker, "roles.view"), handler.Get)
		roles.POST("", middleware.RequirePermission(checker, "roles.create"), handler.Create)
		roles.PUT("/:id", middleware.RequirePermission(checker, "roles.edit"), handler.Update)
		roles.DELETE("/:id", middleware.RequirePermission(checker, "roles.delete"), handler.Delete)
	}

	api.GET("/permissions/registry", middleware.RequirePermission(checker, "roles.view"), handler.Registry)

	return nil
}
