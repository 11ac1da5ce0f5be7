package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/grantstore/internal/handlers"
)

func registerMeRoutes(api *gin.RouterGroup, perms handlers.PermissionLister) error {
	meHandler, err := handlers.NewMeHandler(perms)
	if err != nil {
		return err
	}

	me := api.Group("/me")
	me.GET("/permissions", meHandler.Permissions)
	return nil
}
