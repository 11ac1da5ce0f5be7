package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/grantstore/internal/api"
	"github.com/charlesng35/grantstore/internal/app"
	"github.com/charlesng35/grantstore/internal/app/maintenance"
	iauth "github.com/charlesng35/grantstore/internal/auth"
	"github.com/charlesng35/grantstore/internal/database"
	"github.com/charlesng35/grantstore/internal/models"
	"github.com/charlesng35/grantstore/internal/services"
	"github.com/charlesng35/grantstore/pkg/metrics"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB       *gorm.DB
	JWT      *iauth.JWTService
	AuditSvc *services.AuditService
	Grants   *services.AuthorizationService
	Cleaner  *maintenance.Cleaner
	Router   *gin.Engine
}

// bootstrapRuntime initialises the database, services, maintenance jobs and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg, log)
	if err != nil {
		return nil, err
	}

	if username := strings.TrimSpace(cfg.Auth.RootUsername); username != "" {
		id, err := database.EnsureRootUser(ctx, stack.DB, username)
		if err != nil {
			return nil, fmt.Errorf("ensure root user: %w", err)
		}
		log.Info("root user ready", zap.String("username", username), zap.String("user_id", id))
	}

	stack.JWT, err = iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	stack.AuditSvc, err = services.NewAuditService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise audit service: %w", err)
	}

	stack.Grants, err = services.NewAuthorizationService(stack.DB, cfg.Authorization.ServiceOptions()...)
	if err != nil {
		return nil, fmt.Errorf("initialise authorization service: %w", err)
	}

	total, err := stack.Grants.Count(ctx)
	if err != nil {
		return nil, err
	}
	metrics.Authorizations.Set(float64(total))

	stack.Cleaner = maintenance.NewCleaner(stack.AuditSvc, stack.Grants,
		maintenance.WithAuditRetentionDays(cfg.Audit.RetentionDays),
		maintenance.WithAuditSchedule(cfg.Audit.Schedule),
	)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	stack.Router, err = api.NewRouter(stack.DB, stack.JWT, cfg)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// IssueToken signs an access token for an existing active user.
func (s *runtimeStack) IssueToken(ctx context.Context, username string) (string, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("user %q not found", username)
	}
	if err != nil {
		return "", fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		return "", fmt.Errorf("user %q is inactive", username)
	}

	return s.JWT.GenerateAccessToken(iauth.AccessTokenInput{UserID: user.ID, Username: user.Username})
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	var errs error
	if s.Cleaner != nil {
		// running jobs still use the database, so wait for them before closing it
		select {
		case <-s.Cleaner.Stop().Done():
		case <-ctx.Done():
			errs = multierr.Append(errs, fmt.Errorf("maintenance jobs still running: %w", ctx.Err()))
		}
		s.Cleaner = nil
	}

	if s.DB != nil {
		errs = multierr.Append(errs, closeDatabase(s.DB))
		s.DB = nil
	}

	for _, err := range multierr.Errors(errs) {
		log.Warn("shutdown cleanup failed", zap.Error(err))
	}
}

func initialiseDatabase(cfg *app.Config, log *zap.Logger) (*gorm.DB, error) {
	dbCfg := cfg.Database.ConnectionConfig()
	dbCfg.Logger = log.Named("database")
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		_ = closeDatabase(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	driver := strings.ToLower(strings.TrimSpace(dbCfg.Driver))
	if driver == "" {
		driver = "sqlite"
	}
	log.Info("database connected", zap.String("driver", driver))

	return db, nil
}

func closeDatabase(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("obtain sql DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
