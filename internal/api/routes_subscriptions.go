package api

import (
	"github.com/gin-gonic/gin"

	"github.com/modlocker/modlocker/internal/handlers"
	"github.com/modlocker/modlocker/internal/services"
)

func registerSubscriptionRoutes(api *gin.RouterGroup, entitlements *services.EntitlementService) error {
	handler, err := handlers.NewSubscriptionHandler(entitlements)
	if err != nil {
		return err
	}

	subs := api.Group("/subscriptions")
	{
		subs.POST("/checkout", handler.Checkout)
		subs.POST("/activate", handler.Activate)
	}

	return nil
}
