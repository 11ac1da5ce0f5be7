package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/grantstore/internal/permissions"
	apperrors "github.com/charlesng35/grantstore/pkg/errors"
	"github.com/charlesng35/grantstore/pkg/response"
)

// PermissionLister resolves the capability permissions a user holds.
type PermissionLister interface {
	Permissions(ctx context.Context, userID string) ([]string, error)
}

// MeHandler describes the calling user.
type MeHandler struct {
	perms PermissionLister
}

func NewMeHandler(perms PermissionLister) (*MeHandler, error) {
	if perms == nil {
		return nil, errors.New("me handler: permission lister is required")
	}
	return &MeHandler{perms: perms}, nil
}

// GET /api/me/permissions
func (h *MeHandler) Permissions(c *gin.Context) {
	userID := actingUserID(c)
	ids, err := h.perms.Permissions(requestContext(c), userID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		response.Error(c, apperrors.ErrUnauthorized.WithMessage("account no longer exists"))
		return
	case errors.Is(err, permissions.ErrUserInactive):
		response.Error(c, apperrors.ErrForbidden.WithMessage("account is inactive"))
		return
	case err != nil:
		response.Error(c, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	response.Success(c, http.StatusOK, gin.H{"user_id": userID, "permissions": ids})
}
