package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/grantstore/internal/auditctx"
	iauth "github.com/charlesng35/grantstore/internal/auth"
	"github.com/charlesng35/grantstore/pkg/errors"
	"github.com/charlesng35/grantstore/pkg/response"
)

const (
	CtxClaimsKey   = "authClaims"
	CtxUserIDKey   = "userID"
	CtxUsernameKey = "username"
)

// Auth enforces JWT authentication and places the acting user in the gin context.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := iauth.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			unauthorized(c)
			return
		}

		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			// expired, malformed and forged tokens all surface as 401
			unauthorized(c)
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.UserID)
		if claims.Username != "" {
			c.Set(CtxUsernameKey, claims.Username)
		}
		c.Request = c.Request.WithContext(auditctx.WithOrigin(c.Request.Context(), auditctx.Origin{
			UserID:    claims.UserID,
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}))

		c.Next()
	}
}

func unauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	response.Error(c, errors.ErrUnauthorized)
}
