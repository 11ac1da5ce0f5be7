package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/grantstore/internal/models"
	"github.com/charlesng35/grantstore/internal/permissions"
)

// System role identifiers created by SeedData.
const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.Authorization{},
		&models.AuditLog{},
	)
}

// SeedData registers permissions and the built-in roles.
func SeedData(ctx context.Context, db *gorm.DB) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := permissions.Sync(ctx, db); err != nil {
		return err
	}

	roles := []struct {
		role        models.Role
		permissions []string
	}{
		{
			role: models.Role{
				BaseModel:   models.BaseModel{ID: RoleAdmin},
				Name:        "Administrator",
				Description: "Manage authorization grants and read audit logs",
				IsSystem:    true,
			},
			permissions: []string{
				permissions.AuthorizationView,
				permissions.AuthorizationManage,
				permissions.AuditView,
			},
		},
		{
			role: models.Role{
				BaseModel:   models.BaseModel{ID: RoleViewer},
				Name:        "Viewer",
				Description: "Read-only access to authorization grants",
				IsSystem:    true,
			},
			permissions: []string{permissions.AuthorizationView},
		},
	}

	tx := db.WithContext(ctx)
	for _, seed := range roles {
		role := seed.role
		if err := tx.Where(models.Role{BaseModel: models.BaseModel{ID: role.ID}}).Attrs(role).FirstOrCreate(&models.Role{}).Error; err != nil {
			return fmt.Errorf("seed role %s: %w", role.ID, err)
		}
		if err := attachRolePermissions(tx, role.ID, seed.permissions); err != nil {
			return fmt.Errorf("seed role %s permissions: %w", role.ID, err)
		}
	}

	return nil
}

// EnsureRootUser returns the id of the named root user, creating it when absent.
func EnsureRootUser(ctx context.Context, db *gorm.DB, username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", errors.New("root username is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var user models.User
	err := db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	switch {
	case err == nil:
		if !user.IsRoot || !user.IsActive {
			if err := db.WithContext(ctx).Model(&user).Updates(map[string]any{"is_root": true, "is_active": true}).Error; err != nil {
				return "", fmt.Errorf("promote root user: %w", err)
			}
		}
		return user.ID, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			Username:    username,
			DisplayName: username,
			IsRoot:      true,
			IsActive:    true,
		}
		if err := db.WithContext(ctx).Create(&user).Error; err != nil {
			return "", fmt.Errorf("create root user: %w", err)
		}
		return user.ID, nil
	default:
		return "", fmt.Errorf("load root user: %w", err)
	}
}
