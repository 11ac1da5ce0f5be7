package models

// Permission levels understood by the authorization store. A grant's level
// must fall within [PermissionNoneStart, PermissionMax]; deployments may
// narrow the accepted window through configuration.
const (
	PermissionNoneStart   = 0
	PermissionReadStart   = 64
	PermissionEditStart   = 128
	PermissionDeleteStart = 192
	PermissionMax         = 255
)

// Principal types.
const (
	PrincipalTypeUser      = "USER"
	PrincipalTypeRole      = "ROLE"
	PrincipalTypeAll       = "ALL"
	PrincipalTypeAnonymous = "ANONYMOUS"
)

// Reserved principal values.
const (
	PrincipalAll       = "__all__"
	PrincipalAnonymous = "__anonymous__"
)

// SchemaResourceType is the default resource category for grants.
const SchemaResourceType = "SCHEMA"

// Authorization grants a principal a permission level on one resource.
type Authorization struct {
	BaseModel

	Resource      string `gorm:"type:varchar(255);not null;uniqueIndex:idx_authorization_grant,priority:2;index" json:"resource"`
	ResourceType  string `gorm:"type:varchar(64);not null;uniqueIndex:idx_authorization_grant,priority:1" json:"resource_type"`
	Principal     string `gorm:"type:varchar(255);not null;uniqueIndex:idx_authorization_grant,priority:4" json:"principal"`
	PrincipalType string `gorm:"type:varchar(32);not null;uniqueIndex:idx_authorization_grant,priority:3" json:"principal_type"`
	Permission    int    `gorm:"not null" json:"permission"`
	CreateUserID  string `gorm:"type:varchar(128);not null;index" json:"create_user_id"`

	// PrincipalLabel is a display name for reserved principals, filled at query time.
	PrincipalLabel string `gorm:"-" json:"principal_label,omitempty"`
}

// TableName overrides the default table name for GORM.
func (Authorization) TableName() string {
	return "authorizations"
}

// IsAllPrincipals reports whether the grant targets every principal.
func (a *Authorization) IsAllPrincipals() bool {
	return a.PrincipalType == PrincipalTypeAll || a.Principal == PrincipalAll
}

// IsAnonymousPrincipal reports whether the grant targets anonymous callers.
func (a *Authorization) IsAnonymousPrincipal() bool {
	return a.PrincipalType == PrincipalTypeAnonymous || a.Principal == PrincipalAnonymous
}

// PermissionLevelName maps a permission value onto its named band.
func PermissionLevelName(permission int) string {
	switch {
	case permission >= PermissionDeleteStart:
		return "delete"
	case permission >= PermissionEditStart:
		return "edit"
	case permission >= PermissionReadStart:
		return "read"
	default:
		return "none"
	}
}
