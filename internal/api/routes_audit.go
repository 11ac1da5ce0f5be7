package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/grantstore/internal/handlers"
	"github.com/charlesng35/grantstore/internal/middleware"
	"github.com/charlesng35/grantstore/internal/permissions"
	"github.com/charlesng35/grantstore/internal/services"
)

func registerAuditRoutes(api *gin.RouterGroup, svc *services.AuditService, checker middleware.PermissionChecker) error {
	auditHandler, err := handlers.NewAuditHandler(svc)
	if err != nil {
		return err
	}

	api.GET("/audit", middleware.RequirePermission(checker, permissions.AuditView), auditHandler.List)
	return nil
}
