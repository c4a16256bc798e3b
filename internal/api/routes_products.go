package api

import (
	"github.com/gin-gonic/gin"

	"github.com/modlocker/modlocker/internal/handlers"
	"github.com/modlocker/modlocker/internal/services"
)

func registerProductRoutes(api *gin.RouterGroup, licenses *services.LicenseService, entitlements *services.EntitlementService) error {
	handler, err := handlers.NewProductHandler(licenses, entitlements)
	if err != nil {
		return err
	}

	products := api.Group("/products")
	{
		// Entitlement is checked per user inside the license service, not
		// through the permission registry.
		products.GET("/locker", handler.Locker)
		products.GET("/:id/download", handler.Download)
	}

	return nil
}
