package services

import (
	"math"
	"strings"

	"github.com/charlesng35/grantstore/internal/models"
)

const (
	defaultAuthorizationPageSize = 20
	maxAuthorizationPageSize     = 200
)

// QueryContext carries per-request presentation settings for grant queries.
// It is passed explicitly to every read operation and never mutates stored data.
type QueryContext struct {
	PrincipalAllLabel       string
	PrincipalAnonymousLabel string
	// ResourceType restricts list queries to one resource category; empty means all.
	ResourceType string
}

// DefaultQueryContext returns the labels and resource type used when a caller supplies none.
func DefaultQueryContext() QueryContext {
	return QueryContext{
		PrincipalAllLabel:       "All principals",
		PrincipalAnonymousLabel: "Anonymous",
		ResourceType:            models.SchemaResourceType,
	}
}

// label resolves the display label for a grant's principal, if it is reserved.
func (q QueryContext) label(grant *models.Authorization) string {
	switch {
	case grant.IsAllPrincipals():
		return q.PrincipalAllLabel
	case grant.IsAnonymousPrincipal():
		return q.PrincipalAnonymousLabel
	default:
		return ""
	}
}

// PagingQuery selects one page of grants.
type PagingQuery struct {
	Page     int
	PageSize int
	// Keyword matches case-insensitively against resource and principal.
	Keyword string
}

func (p PagingQuery) normalise(defaultSize int) PagingQuery {
	if defaultSize <= 0 || defaultSize > maxAuthorizationPageSize {
		defaultSize = defaultAuthorizationPageSize
	}
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = defaultSize
	}
	if p.PageSize > maxAuthorizationPageSize {
		p.PageSize = maxAuthorizationPageSize
	}
	// keep (Page-1)*PageSize from overflowing into a negative offset
	if last := math.MaxInt / p.PageSize; p.Page > last {
		p.Page = last
	}
	p.Keyword = strings.TrimSpace(p.Keyword)
	return p
}

func (p PagingQuery) offset() int {
	return (p.Page - 1) * p.PageSize
}

// keywordPattern turns Keyword into a lowercase LIKE pattern with its
// wildcards escaped by likeEscape.
func (p PagingQuery) keywordPattern() string {
	keyword := strings.NewReplacer(
		likeEscape, likeEscape+likeEscape,
		"%", likeEscape+"%",
		"_", likeEscape+"_",
	).Replace(strings.ToLower(p.Keyword))
	return "%" + keyword + "%"
}

// likeEscape is the LIKE escape character; a backslash would need
// quoting on mysql.
const likeEscape = "!"

// Page is a single page of grants plus the total number of matches.
type Page struct {
	Items    []models.Authorization `json:"items"`
	Total    int64                  `json:"total"`
	Page     int                    `json:"page"`
	PageSize int                    `json:"page_size"`
}
