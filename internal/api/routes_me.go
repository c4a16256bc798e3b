package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/modlocker/modlocker/internal/handlers"
)

func registerMeRoutes(api *gin.RouterGroup, db *gorm.DB) error {
	handler, err := handlers.NewMeHandler(db)
	if err != nil {
		return err
	}

	api.GET("/me/permissions", handler.Permissions)

	return nil
}
