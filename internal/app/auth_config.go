package app

import (
	"strings"

	"github.com/charlesng35/grantstore/internal/auth"
	"github.com/charlesng35/grantstore/internal/database"
	"github.com/charlesng35/grantstore/internal/services"
)

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}

	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		Audience:       c.JWT.Audience,
		AccessTokenTTL: ttl,
	}
}

// ServiceOptions converts AuthorizationConfig into AuthorizationService options.
// The permission range is passed through as configured; LoadConfig defaults
// it to the full band, so 0..0 means "level 0 only".
func (c AuthorizationConfig) ServiceOptions() []services.AuthorizationOption {
	return []services.AuthorizationOption{
		services.WithDefaultPageSize(c.DefaultPageSize),
		services.WithPermissionRange(c.PermissionMin, c.PermissionMax),
	}
}

// QueryDefaults returns the QueryContext applied when a request supplies no overrides.
func (c AuthorizationConfig) QueryDefaults() services.QueryContext {
	qc := services.DefaultQueryContext()
	if label := strings.TrimSpace(c.PrincipalAllLabel); label != "" {
		qc.PrincipalAllLabel = label
	}
	if label := strings.TrimSpace(c.PrincipalAnonymousLabel); label != "" {
		qc.PrincipalAnonymousLabel = label
	}
	// unlike the labels, an empty resource type is meaningful: no category filter
	qc.ResourceType = strings.TrimSpace(c.DefaultResourceType)
	return qc
}

// ConnectionConfig converts DatabaseConfig into database.Open parameters,
// selecting the host credentials that match the driver.
func (c DatabaseConfig) ConnectionConfig() database.Config {
	cfg := database.Config{
		Driver:          c.Driver,
		Path:            c.Path,
		DSN:             c.DSN,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		SlowThreshold:   c.SlowQueryThreshold,
	}

	var hostAuth DBAuthConfig
	switch strings.ToLower(strings.TrimSpace(c.Driver)) {
	case "postgres", "postgresql":
		hostAuth = c.Postgres
	case "mysql":
		hostAuth = c.MySQL
	default:
		return cfg
	}

	cfg.Host = hostAuth.Host
	cfg.Port = hostAuth.Port
	cfg.Name = hostAuth.Database
	cfg.User = hostAuth.Username
	cfg.Password = hostAuth.Password
	cfg.Options = hostAuth.Options
	return cfg
}
