package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/modlocker/modlocker/internal/handlers"
	"github.com/modlocker/modlocker/internal/middleware"
	"github.com/modlocker/modlocker/internal/permissions"
	"github.com/modlocker/modlocker/internal/services"
)

func registerUserRoutes(api *gin.RouterGroup, db *gorm.DB, audit *services.AuditService, checker *permissions.Checker) error {
	handler, err := handlers.NewUserHandler(db, audit)
	if err != nil {
		return err
	}

	users := api.Group("/users")
	{
		users.GET("", middleware.RequirePermission(checker, "users.view"), handler.List)
		users.GET("/:id", middleware.RequirePermission(checker, "users.view"), handler.Get)
		users.POST("/:id/ban", middleware.RequirePermission(checker, "users.ban"), handler.SetBanned)
		users.GET("/:id/roles", middleware.RequirePermission(checker, "users.view"), handler.ListRoles)
		users.PUT("/:id/roles", middleware.RequirePermission(checker, "roles.assign"), handler.SetRoles)
		users.POST("/:id/roles", middleware.RequirePermission(checker, "roles.assign"), handler.AddRoles)
	}

	api.POST("/bulk-role-assignment", middleware.RequirePermission(checker, "roles.assign"), handler.BulkAssign)

	return nil
}
