package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/grantstore/internal/database"
	"github.com/charlesng35/grantstore/pkg/logger"
)

// Health reports readiness, including database reachability.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(requestContext(c), 2*time.Second)
		defer cancel()

		if err := database.Ping(ctx, db); err != nil {
			logger.WithModule("http").Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success":    false,
				"status":     "unavailable",
				"checked_at": time.Now().UTC(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":    true,
			"status":     "ok",
			"checked_at": time.Now().UTC(),
		})
	}
}
