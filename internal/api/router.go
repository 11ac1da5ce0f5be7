package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/charlesng35/grantstore/internal/app"
	iauth "github.com/charlesng35/grantstore/internal/auth"
	"github.com/charlesng35/grantstore/internal/handlers"
	"github.com/charlesng35/grantstore/internal/middleware"
	"github.com/charlesng35/grantstore/internal/permissions"
	"github.com/charlesng35/grantstore/internal/services"
)

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	registerHealthRoutes(r, db)

	checker, err := permissions.NewChecker(db)
	if err != nil {
		return nil, err
	}

	auditSvc, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}

	opts := append(cfg.Authorization.ServiceOptions(), services.WithAuthorizationAudit(auditSvc))
	authorizationSvc, err := services.NewAuthorizationService(db, opts...)
	if err != nil {
		return nil, err
	}

	api := r.Group("/api")
	api.Use(middleware.Auth(jwt))

	authorizationHandler, err := handlers.NewAuthorizationHandler(authorizationSvc, cfg.Authorization.QueryDefaults())
	if err != nil {
		return nil, err
	}
	registerAuthorizationRoutes(api, authorizationHandler, checker)

	if err := registerAuditRoutes(api, auditSvc, checker); err != nil {
		return nil, err
	}
	if err := registerMeRoutes(api, checker); err != nil {
		return nil, err
	}

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
