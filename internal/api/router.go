package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/modlocker/modlocker/internal/app"
	iauth "github.com/modlocker/modlocker/internal/auth"
	"github.com/modlocker/modlocker/internal/cache"
	"github.com/modlocker/modlocker/internal/grants"
	"github.com/modlocker/modlocker/internal/handlers"
	"github.com/modlocker/modlocker/internal/middleware"
	"github.com/modlocker/modlocker/internal/payments"
	"github.com/modlocker/modlocker/internal/permissions"
	"github.com/modlocker/modlocker/internal/services"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, store cache.Store, grantStore grants.Store, paymentsClient payments.Client) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if grantStore == nil {
		return nil, fmt.Errorf("grant store must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	if cfg.Server.RateLimit.Enabled {
		r.Use(middleware.RateLimit(store, cfg.Server.RateLimit.MaxRequests, cfg.Server.RateLimit.Window))
	}

	// Public monitoring surface
	if cfg.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health(db))
	}
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	checker, err := permissions.NewChecker(db)
	if err != nil {
		return nil, err
	}

	audit, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	entitlements, err := services.NewEntitlementService(db, store, paymentsClient, audit)
	if err != nil {
		return nil, err
	}
	licenses, err := services.NewLicenseService(db, grantStore, entitlements, audit, services.VaultConfig{
		Host: cfg.Delivery.VaultHost,
		Port: cfg.Delivery.VaultPort,
	})
	if err != nil {
		return nil, err
	}

	api := r.Group("/api")
	api.Use(middleware.Auth(jwt, db))

	if err := registerRoleRoutes(api, db, audit, checker); err != nil {
		return nil, err
	}
	if err := registerUserRoutes(api, db, audit, checker); err != nil {
		return nil, err
	}
	if err := registerMeRoutes(api, db); err != nil {
		return nil, err
	}
	if err := registerProductRoutes(api, licenses, entitlements); err != nil {
		return nil, err
	}
	if err := registerSubscriptionRoutes(api, entitlements); err != nil {
		return nil, err
	}
	if err := registerAuditRoutes(api, db, checker); err != nil {
		return nil, err
	}

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
