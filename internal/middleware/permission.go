package middleware

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/grantstore/pkg/errors"
	"github.com/charlesng35/grantstore/pkg/metrics"
	"github.com/charlesng35/grantstore/pkg/response"
)

// PermissionChecker decides whether a user holds a capability permission.
type PermissionChecker interface {
	Check(ctx context.Context, userID, permissionID string) (bool, error)
}

// RequirePermission checks that the authenticated user has the provided permission ID.
func RequirePermission(checker PermissionChecker, permissionID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(CtxUserIDKey)
		if userID == "" {
			response.Error(c, errors.ErrUnauthorized)
			return
		}

		allowed, err := checker.Check(c.Request.Context(), userID, permissionID)
		if err != nil {
			metrics.PermissionChecks.WithLabelValues(permissionID, "error").Inc()
			response.Error(c, errors.ErrInternalServer.WithInternal(fmt.Errorf("permission %s for user %s: %w", permissionID, userID, err)))
			return
		}
		if !allowed {
			metrics.PermissionChecks.WithLabelValues(permissionID, "denied").Inc()
			response.Error(c, errors.ErrForbidden)
			return
		}

		metrics.PermissionChecks.WithLabelValues(permissionID, "allowed").Inc()
		c.Next()
	}
}
