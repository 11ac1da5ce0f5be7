package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/grantstore/internal/models"
	"github.com/charlesng35/grantstore/internal/services"
	apperrors "github.com/charlesng35/grantstore/pkg/errors"
	"github.com/charlesng35/grantstore/pkg/response"
)

const (
	// HeaderPrincipalAllLabel overrides the display label of the all-principals grant.
	HeaderPrincipalAllLabel = "X-Principal-All-Label"
	// HeaderPrincipalAnonymousLabel overrides the display label of the anonymous grant.
	HeaderPrincipalAnonymousLabel = "X-Principal-Anonymous-Label"

	appointResourceParam = "appointResource"
)

// AuthorizationHandler exposes the authorization store over HTTP.
type AuthorizationHandler struct {
	svc      *services.AuthorizationService
	defaults services.QueryContext
}

// NewAuthorizationHandler builds the handler; defaults supply labels and the resource type filter.
func NewAuthorizationHandler(svc *services.AuthorizationService, defaults services.QueryContext) (*AuthorizationHandler, error) {
	if svc == nil {
		return nil, errors.New("authorization handler: service is required")
	}
	return &AuthorizationHandler{svc: svc, defaults: defaults}, nil
}

type authorizationRequest struct {
	Resource      string `json:"resource" validate:"max=255"`
	ResourceType  string `json:"resource_type" validate:"max=64"`
	Principal     string `json:"principal" validate:"max=255"`
	PrincipalType string `json:"principal_type" validate:"max=32"`
	Permission    *int   `json:"permission" validate:"required"`
}

type deleteAuthorizationsRequest struct {
	IDs []string `json:"ids" validate:"omitempty,dive,max=128"`
}

// GET /api/authorizations
func (h *AuthorizationHandler) List(c *gin.Context) {
	paging := services.PagingQuery{
		Page:     parseIntQuery(c, "page", 1),
		PageSize: parseIntQuery(c, "per_page", 0),
		Keyword:  c.Query("keyword"),
	}
	qc := h.queryContext(c)

	var (
		page services.Page
		err  error
	)
	if resource, scoped := appointResource(c); scoped {
		page, err = h.svc.QueryForAppointResource(requestContext(c), actingUserID(c), resource, paging, qc)
	} else {
		page, err = h.svc.Query(requestContext(c), actingUserID(c), paging, qc)
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, page.Items, response.NewMeta(page.Page, page.PageSize, page.Total))
}

// GET /api/authorizations/:id
func (h *AuthorizationHandler) Get(c *gin.Context) {
	grant, err := h.svc.GetByID(requestContext(c), actingUserID(c), c.Param("id"), h.queryContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if resource, scoped := appointResource(c); scoped && grant.Resource != resource {
		response.Error(c, services.ErrAuthorizationNotFound)
		return
	}
	response.Success(c, http.StatusOK, grant)
}

// GET /api/authorizations/:id/edit
func (h *AuthorizationHandler) GetForEdit(c *gin.Context) {
	grant, err := h.scopedForEdit(c, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, grant)
}

// POST /api/authorizations
func (h *AuthorizationHandler) Create(c *gin.Context) {
	var req authorizationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	input, err := req.toInput(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	id, err := h.svc.Add(requestContext(c), actingUserID(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"id": id})
}

// PUT /api/authorizations/:id
func (h *AuthorizationHandler) Update(c *gin.Context) {
	var req authorizationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	input, err := req.toInput(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	input.ID = c.Param("id")

	// the stored grant must already sit inside the appointed resource
	if _, scoped := appointResource(c); scoped {
		if _, err := h.scopedForEdit(c, input.ID); err != nil {
			response.Error(c, err)
			return
		}
	}

	if err := h.svc.Update(requestContext(c), actingUserID(c), input); err != nil {
		response.Error(c, err)
		return
	}

	grant, err := h.svc.GetByIDForEdit(requestContext(c), actingUserID(c), input.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, grant)
}

// DELETE /api/authorizations
func (h *AuthorizationHandler) Delete(c *gin.Context) {
	var req deleteAuthorizationsRequest
	if !bindAndValidate(c, &req) {
		return
	}

	var (
		deleted int64
		err     error
	)
	if resource, scoped := appointResource(c); scoped {
		deleted, err = h.svc.DeleteByIDsForAppointResource(requestContext(c), actingUserID(c), resource, req.IDs)
	} else {
		deleted, err = h.svc.DeleteByIDs(requestContext(c), actingUserID(c), req.IDs)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": deleted})
}

// scopedForEdit loads a grant for editing, hiding it when it lies outside appointResource.
func (h *AuthorizationHandler) scopedForEdit(c *gin.Context, id string) (*models.Authorization, error) {
	grant, err := h.svc.GetByIDForEdit(requestContext(c), actingUserID(c), id)
	if err != nil {
		return nil, err
	}
	if resource, scoped := appointResource(c); scoped && grant.Resource != resource {
		return nil, services.ErrAuthorizationNotFound
	}
	return grant, nil
}

// toInput converts the payload, enforcing the appointResource scope when present.
func (r authorizationRequest) toInput(c *gin.Context) (services.AuthorizationInput, error) {
	input := services.AuthorizationInput{
		Resource:      strings.TrimSpace(r.Resource),
		ResourceType:  r.ResourceType,
		Principal:     r.Principal,
		PrincipalType: r.PrincipalType,
	}
	if r.Permission != nil {
		input.Permission = *r.Permission
	}

	if resource, scoped := appointResource(c); scoped {
		if input.Resource == "" {
			input.Resource = resource
		}
		if input.Resource != resource {
			return input, apperrors.NewBadRequest("resource must match " + appointResourceParam)
		}
	}
	return input, nil
}

// queryContext starts from the configured defaults and applies per-request overrides.
func (h *AuthorizationHandler) queryContext(c *gin.Context) services.QueryContext {
	qc := h.defaults
	if label := strings.TrimSpace(c.GetHeader(HeaderPrincipalAllLabel)); label != "" {
		qc.PrincipalAllLabel = label
	}
	if label := strings.TrimSpace(c.GetHeader(HeaderPrincipalAnonymousLabel)); label != "" {
		qc.PrincipalAnonymousLabel = label
	}
	// an explicit empty resource_type lists every category
	if resourceType, ok := c.GetQuery("resource_type"); ok {
		qc.ResourceType = strings.TrimSpace(resourceType)
	}
	return qc
}

func appointResource(c *gin.Context) (string, bool) {
	resource := strings.TrimSpace(c.Query(appointResourceParam))
	return resource, resource != ""
}
