package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/grantstore/internal/handlers"
	"github.com/charlesng35/grantstore/internal/middleware"
	"github.com/charlesng35/grantstore/internal/permissions"
)

func registerAuthorizationRoutes(api *gin.RouterGroup, handler *handlers.AuthorizationHandler, checker middleware.PermissionChecker) {
	if api == nil || handler == nil || checker == nil {
		return
	}

	view := middleware.RequirePermission(checker, permissions.AuthorizationView)
	manage := middleware.RequirePermission(checker, permissions.AuthorizationManage)

	grants := api.Group("/authorizations")
	{
		grants.GET("", view, handler.List)
		grants.GET("/:id", view, handler.Get)
		grants.GET("/:id/edit", manage, handler.GetForEdit)
		grants.POST("", manage, handler.Create)
		grants.PUT("/:id", manage, handler.Update)
		grants.DELETE("", manage, handler.Delete)
	}
}
