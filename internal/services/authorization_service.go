package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/grantstore/internal/models"
	"github.com/charlesng35/grantstore/pkg/logger"
	"github.com/charlesng35/grantstore/pkg/metrics"
	"github.com/charlesng35/grantstore/pkg/validator"
)

// deleteBatchSize bounds the ids bound into one DELETE statement.
const deleteBatchSize = 500

// AuthorizationInput carries the caller-supplied fields of a grant.
// ID is ignored by Add and required by Update. CreateUserID is never persisted
// from input; the acting user is recorded on Add instead.
type AuthorizationInput struct {
	ID            string `json:"id"`
	Resource      string `json:"resource" validate:"notblank"`
	ResourceType  string `json:"resource_type" validate:"notblank"`
	Principal     string `json:"principal" validate:"notblank"`
	PrincipalType string `json:"principal_type" validate:"notblank"`
	Permission    int    `json:"permission"`
	CreateUserID  string `json:"create_user_id,omitempty"`
}

// AuthorizationService stores principal to resource permission grants.
type AuthorizationService struct {
	db              *gorm.DB
	audit           *AuditService
	log             *zap.Logger
	minPermission   int
	maxPermission   int
	defaultPageSize int
}

// AuthorizationOption customises the authorization service.
type AuthorizationOption func(*AuthorizationService)

// WithAuthorizationAudit records grant mutations through the audit service.
func WithAuthorizationAudit(audit *AuditService) AuthorizationOption {
	return func(s *AuthorizationService) {
		s.audit = audit
	}
}

// WithPermissionRange narrows the accepted permission window. Invalid ranges are ignored.
func WithPermissionRange(min, max int) AuthorizationOption {
	return func(s *AuthorizationService) {
		if min < models.PermissionNoneStart || max > models.PermissionMax || min > max {
			return
		}
		s.minPermission = min
		s.maxPermission = max
	}
}

// WithDefaultPageSize sets the page size used when a query does not specify one.
func WithDefaultPageSize(size int) AuthorizationOption {
	return func(s *AuthorizationService) {
		if size > 0 && size <= maxAuthorizationPageSize {
			s.defaultPageSize = size
		}
	}
}

// WithAuthorizationLogger overrides the module logger.
func WithAuthorizationLogger(log *zap.Logger) AuthorizationOption {
	return func(s *AuthorizationService) {
		if log != nil {
			s.log = log
		}
	}
}

// NewAuthorizationService constructs an AuthorizationService backed by db.
func NewAuthorizationService(db *gorm.DB, opts ...AuthorizationOption) (*AuthorizationService, error) {
	if db == nil {
		return nil, errors.New("authorization service: db is required")
	}

	svc := &AuthorizationService{
		db:              db,
		log:             logger.WithModule("authorization"),
		minPermission:   models.PermissionNoneStart,
		maxPermission:   models.PermissionMax,
		defaultPageSize: defaultAuthorizationPageSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc, nil
}

// PermissionRange reports the inclusive permission window enforced on writes.
func (s *AuthorizationService) PermissionRange() (int, int) {
	return s.minPermission, s.maxPermission
}

// Add validates and persists a new grant owned by actingUserID, returning its id.
func (s *AuthorizationService) Add(ctx context.Context, actingUserID string, input AuthorizationInput) (string, error) {
	ctx = ensureContext(ctx)

	checked, err := s.checkInput(input)
	if err != nil {
		s.observe("add", err)
		return "", err
	}

	grant := models.Authorization{
		BaseModel:     models.BaseModel{ID: uuid.NewString()},
		Resource:      checked.Resource,
		ResourceType:  checked.ResourceType,
		Principal:     checked.Principal,
		PrincipalType: checked.PrincipalType,
		Permission:    checked.Permission,
		CreateUserID:  strings.TrimSpace(actingUserID),
	}

	if err := s.db.WithContext(ctx).Create(&grant).Error; err != nil {
		err = s.storageError("create", err)
		s.observe("add", err)
		return "", err
	}

	s.observe("add", nil)
	metrics.Authorizations.Inc()
	s.log.Info("authorization created",
		zap.String("id", grant.ID),
		zap.String("actor", grant.CreateUserID),
		zap.String("resource", grant.Resource),
		zap.String("principal", grant.Principal),
		zap.Int("permission", grant.Permission),
	)
	recordAudit(s.audit, s.log, ctx, AuditEntry{
		Actor:    actingUserID,
		Action:   "authorization.create",
		Resource: auditResource(grant.ID),
		Result:   auditResultSuccess,
		Metadata: grantMetadata(&grant),
	})

	return grant.ID, nil
}

// Update replaces the mutable fields of an existing grant. The id and creator are preserved.
func (s *AuthorizationService) Update(ctx context.Context, actingUserID string, input AuthorizationInput) error {
	ctx = ensureContext(ctx)

	id := strings.TrimSpace(input.ID)
	if id == "" {
		err := ErrAuthorizationInvalid.WithMessage("id is required")
		s.observe("update", err)
		return err
	}

	checked, err := s.checkInput(input)
	if err != nil {
		s.observe("update", err)
		return err
	}

	var before, after models.Authorization
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).Take(&before).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAuthorizationNotFound
			}
			return s.storageError("load", err)
		}

		updates := map[string]any{
			"resource":       checked.Resource,
			"resource_type":  checked.ResourceType,
			"principal":      checked.Principal,
			"principal_type": checked.PrincipalType,
			"permission":     checked.Permission,
		}
		after = before
		after.Resource = checked.Resource
		after.ResourceType = checked.ResourceType
		after.Principal = checked.Principal
		after.PrincipalType = checked.PrincipalType
		after.Permission = checked.Permission
		if err := tx.Model(&after).Updates(updates).Error; err != nil {
			return s.storageError("update", err)
		}
		return nil
	})
	if err != nil {
		s.observe("update", err)
		return err
	}

	s.observe("update", nil)
	s.log.Info("authorization updated",
		zap.String("id", id),
		zap.String("actor", strings.TrimSpace(actingUserID)),
		zap.String("resource", checked.Resource),
		zap.Int("permission", checked.Permission),
	)
	metadata := grantMetadata(&after)
	metadata["previous"] = grantMetadata(&before)
	recordAudit(s.audit, s.log, ctx, AuditEntry{
		Actor:    actingUserID,
		Action:   "authorization.update",
		Resource: auditResource(id),
		Result:   auditResultSuccess,
		Metadata: metadata,
	})

	return nil
}

// GetByID returns a grant with principal labels resolved from qc.
func (s *AuthorizationService) GetByID(ctx context.Context, actingUserID, id string, qc QueryContext) (*models.Authorization, error) {
	grant, err := s.load(ensureContext(ctx), id)
	if err != nil {
		s.observe("get", err)
		return nil, err
	}
	grant.PrincipalLabel = qc.label(grant)
	s.observe("get", nil)
	return grant, nil
}

// GetByIDForEdit returns a grant exactly as stored, without display labels.
func (s *AuthorizationService) GetByIDForEdit(ctx context.Context, actingUserID, id string) (*models.Authorization, error) {
	grant, err := s.load(ensureContext(ctx), id)
	s.observe("get_for_edit", err)
	if err != nil {
		return nil, err
	}
	return grant, nil
}

// DeleteByIDs removes the grants whose ids are listed and reports how many were deleted.
// Unknown ids are skipped; an empty set is a no-op.
func (s *AuthorizationService) DeleteByIDs(ctx context.Context, actingUserID string, ids []string) (int64, error) {
	return s.deleteByIDs(ensureContext(ctx), actingUserID, "", ids)
}

// DeleteByIDsForAppointResource is DeleteByIDs limited to grants on resourceID;
// listed grants on other resources are skipped.
func (s *AuthorizationService) DeleteByIDsForAppointResource(ctx context.Context, actingUserID, resourceID string, ids []string) (int64, error) {
	resourceID = strings.TrimSpace(resourceID)
	if resourceID == "" {
		err := ErrAuthorizationInvalid.WithMessage("resource is required")
		s.observe("delete", err)
		return 0, err
	}
	return s.deleteByIDs(ensureContext(ctx), actingUserID, resourceID, ids)
}

func (s *AuthorizationService) deleteByIDs(ctx context.Context, actingUserID, resource string, ids []string) (int64, error) {
	ids = normaliseIDs(ids)
	if len(ids) == 0 {
		s.observe("delete", nil)
		return 0, nil
	}

	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for start := 0; start < len(ids); start += deleteBatchSize {
			end := min(start+deleteBatchSize, len(ids))
			batch := tx.Where("id IN ?", ids[start:end])
			if resource != "" {
				batch = batch.Where("resource = ?", resource)
			}
			result := batch.Delete(&models.Authorization{})
			if result.Error != nil {
				return result.Error
			}
			deleted += result.RowsAffected
		}
		return nil
	})
	if err != nil {
		err = s.storageError("delete", err)
		s.observe("delete", err)
		return 0, err
	}

	s.observe("delete", nil)
	if deleted > 0 {
		metrics.Authorizations.Sub(float64(deleted))
	}
	s.log.Info("authorizations deleted",
		zap.Strings("ids", ids),
		zap.Int64("deleted", deleted),
		zap.String("actor", strings.TrimSpace(actingUserID)),
	)
	recordAudit(s.audit, s.log, ctx, AuditEntry{
		Actor:    actingUserID,
		Action:   "authorization.delete",
		Resource: "authorization",
		Result:   auditResultSuccess,
		Metadata: map[string]any{
			"ids":     ids,
			"deleted": deleted,
		},
	})

	return deleted, nil
}

// Query returns one page of grants, restricted to qc.ResourceType when set.
func (s *AuthorizationService) Query(ctx context.Context, actingUserID string, paging PagingQuery, qc QueryContext) (Page, error) {
	page, err := s.page(ensureContext(ctx), "", paging, qc)
	s.observe("query", err)
	return page, err
}

// QueryForAppointResource is Query limited to grants on resourceID.
func (s *AuthorizationService) QueryForAppointResource(ctx context.Context, actingUserID, resourceID string, paging PagingQuery, qc QueryContext) (Page, error) {
	resourceID = strings.TrimSpace(resourceID)
	if resourceID == "" {
		err := ErrAuthorizationInvalid.WithMessage("resource is required")
		s.observe("query_resource", err)
		return Page{}, err
	}

	page, err := s.page(ensureContext(ctx), resourceID, paging, qc)
	s.observe("query_resource", err)
	return page, err
}

// Count returns the number of stored grants.
func (s *AuthorizationService) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.WithContext(ensureContext(ctx)).Model(&models.Authorization{}).Count(&total).Error; err != nil {
		return 0, s.storageError("count", err)
	}
	return total, nil
}

// checkInput trims and validates a grant, returning the normalised copy.
func (s *AuthorizationService) checkInput(input AuthorizationInput) (AuthorizationInput, error) {
	input.ID = strings.TrimSpace(input.ID)
	input.Resource = strings.TrimSpace(input.Resource)
	input.ResourceType = strings.TrimSpace(input.ResourceType)
	input.Principal = strings.TrimSpace(input.Principal)
	input.PrincipalType = strings.TrimSpace(input.PrincipalType)

	if err := validator.ValidateStruct(input); err != nil {
		var failures validator.ValidationErrors
		if errors.As(err, &failures) {
			return input, ErrAuthorizationInvalid.WithMessage(strings.Join(failures.Fields(), ", ") + " is required")
		}
		return input, ErrAuthorizationInvalid.WithInternal(err)
	}

	if input.Permission < s.minPermission || input.Permission > s.maxPermission {
		return input, ErrAuthorizationInvalid.WithMessage(
			fmt.Sprintf("permission must be between %d and %d", s.minPermission, s.maxPermission),
		)
	}

	return input, nil
}

func (s *AuthorizationService) load(ctx context.Context, id string) (*models.Authorization, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrAuthorizationNotFound
	}

	var grant models.Authorization
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&grant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAuthorizationNotFound
		}
		return nil, s.storageError("get", err)
	}
	return &grant, nil
}

func (s *AuthorizationService) page(ctx context.Context, resource string, paging PagingQuery, qc QueryContext) (Page, error) {
	paging = paging.normalise(s.defaultPageSize)

	query := s.db.WithContext(ctx).Model(&models.Authorization{})
	if resourceType := strings.TrimSpace(qc.ResourceType); resourceType != "" {
		query = query.Where("resource_type = ?", resourceType)
	}
	if resource != "" {
		query = query.Where("resource = ?", resource)
	}
	if paging.Keyword != "" {
		pattern := paging.keywordPattern()
		query = query.Where(
			"LOWER(resource) LIKE ? ESCAPE '"+likeEscape+"' OR LOWER(principal) LIKE ? ESCAPE '"+likeEscape+"'",
			pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return Page{}, s.storageError("count", err)
	}

	items := make([]models.Authorization, 0, paging.PageSize)
	if int64(paging.offset()) >= total {
		return Page{Items: items, Total: total, Page: paging.Page, PageSize: paging.PageSize}, nil
	}
	if err := query.
		Order("created_at ASC").
		Order("id ASC").
		Offset(paging.offset()).
		Limit(paging.PageSize).
		Find(&items).Error; err != nil {
		return Page{}, s.storageError("query", err)
	}

	for i := range items {
		items[i].PrincipalLabel = qc.label(&items[i])
	}

	return Page{
		Items:    items,
		Total:    total,
		Page:     paging.Page,
		PageSize: paging.PageSize,
	}, nil
}

func (s *AuthorizationService) storageError(op string, err error) error {
	if isUniqueConstraintError(err) {
		return ErrAuthorizationExists.WithInternal(err)
	}
	s.log.Error("authorization storage failure", zap.String("operation", op), zap.Error(err))
	return fmt.Errorf("authorization service: %s: %w", op, err)
}

func (s *AuthorizationService) observe(operation string, err error) {
	metrics.AuthorizationOperations.WithLabelValues(operation, operationResult(err)).Inc()
}

func operationResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrAuthorizationInvalid):
		return "invalid"
	case errors.Is(err, ErrAuthorizationNotFound):
		return "not_found"
	case errors.Is(err, ErrAuthorizationExists):
		return "conflict"
	default:
		return "error"
	}
}

func auditResource(id string) string {
	return "authorization:" + id
}

func grantMetadata(grant *models.Authorization) map[string]any {
	return map[string]any{
		"resource":       grant.Resource,
		"resource_type":  grant.ResourceType,
		"principal":      grant.Principal,
		"principal_type": grant.PrincipalType,
		"permission":     grant.Permission,
		"level":          models.PermissionLevelName(grant.Permission),
	}
}
