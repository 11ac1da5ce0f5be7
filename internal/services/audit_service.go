package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/grantstore/internal/auditctx"
	"github.com/charlesng35/grantstore/internal/models"
)

const (
	auditResultSuccess = "success"

	defaultAuditPageSize = 50
)

// AuditEntry is one event to record. A blank Actor is stored as NULL; blank
// IPAddress and UserAgent are taken from the request origin in ctx.
type AuditEntry struct {
	Actor     string
	Action    string
	Resource  string
	Result    string
	IPAddress string
	UserAgent string
	Metadata  map[string]any
}

// AuditQuery selects a page of audit logs. Empty filters match everything.
type AuditQuery struct {
	Page     int
	PageSize int

	Actor    string
	Action   string
	Result   string
	Resource string
	Since    *time.Time
	Until    *time.Time
}

// AuditPage is one page of audit logs, newest first.
type AuditPage struct {
	Items    []models.AuditLog `json:"items"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// AuditService records who changed which grant.
type AuditService struct {
	db *gorm.DB
}

// NewAuditService constructs an AuditService using the provided database handle.
func NewAuditService(db *gorm.DB) (*AuditService, error) {
	if db == nil {
		return nil, errors.New("audit service: db is required")
	}
	return &AuditService{db: db}, nil
}

// Log stores entry. Action and Result are mandatory.
func (s *AuditService) Log(ctx context.Context, entry AuditEntry) error {
	ctx = ensureContext(ctx)

	record := models.AuditLog{
		UserID:    actorPointer(entry.Actor),
		Action:    strings.TrimSpace(entry.Action),
		Resource:  strings.TrimSpace(entry.Resource),
		Result:    strings.TrimSpace(entry.Result),
		IPAddress: strings.TrimSpace(entry.IPAddress),
		UserAgent: strings.TrimSpace(entry.UserAgent),
	}
	switch {
	case record.Action == "":
		return errors.New("audit service: action is required")
	case record.Result == "":
		return errors.New("audit service: result is required")
	}

	if len(entry.Metadata) > 0 {
		raw, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("audit service: marshal metadata: %w", err)
		}
		record.Metadata = datatypes.JSON(raw)
	}

	if origin, ok := auditctx.OriginFrom(ctx); ok {
		record.IPAddress = firstNonEmpty(record.IPAddress, origin.IPAddress)
		record.UserAgent = firstNonEmpty(record.UserAgent, origin.UserAgent)
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("audit service: create log: %w", err)
	}
	return nil
}

// List returns the page of logs matching q, newest first.
func (s *AuditService) List(ctx context.Context, q AuditQuery) (AuditPage, error) {
	paging := PagingQuery{Page: q.Page, PageSize: q.PageSize}.normalise(defaultAuditPageSize)
	out := AuditPage{Page: paging.Page, PageSize: paging.PageSize}

	query := q.apply(s.db.WithContext(ensureContext(ctx)).Model(&models.AuditLog{}))
	if err := query.Count(&out.Total).Error; err != nil {
		return AuditPage{}, fmt.Errorf("audit service: count logs: %w", err)
	}

	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Offset(paging.offset()).
		Limit(paging.PageSize).
		Find(&out.Items).Error
	if err != nil {
		return AuditPage{}, fmt.Errorf("audit service: list logs: %w", err)
	}
	return out, nil
}

// CleanupOlderThan deletes logs created more than retentionDays ago.
func (s *AuditService) CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, errors.New("audit service: retentionDays must be positive")
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	res := s.db.WithContext(ensureContext(ctx)).Where("created_at < ?", cutoff).Delete(&models.AuditLog{})
	if res.Error != nil {
		return 0, fmt.Errorf("audit service: cleanup logs: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (q AuditQuery) apply(db *gorm.DB) *gorm.DB {
	for column, value := range map[string]string{
		"user_id":  q.Actor,
		"action":   q.Action,
		"result":   q.Result,
		"resource": q.Resource,
	} {
		if value = strings.TrimSpace(value); value != "" {
			db = db.Where(column+" = ?", value)
		}
	}
	if q.Since != nil {
		db = db.Where("created_at >= ?", *q.Since)
	}
	if q.Until != nil {
		db = db.Where("created_at <= ?", *q.Until)
	}
	return db
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
