package permissions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/grantstore/internal/models"
)

// Sync writes the Default registry to the permissions table.
func Sync(ctx context.Context, db *gorm.DB) error {
	return Default.Sync(ctx, db)
}

// Sync upserts every definition so role assignments can reference it.
// Rows for ids no longer registered are left untouched.
func (r *Registry) Sync(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("permission: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := r.Validate(); err != nil {
		return err
	}

	defs := r.All()
	if len(defs) == 0 {
		return nil
	}

	records := make([]models.Permission, 0, len(defs))
	for _, def := range defs {
		dependsOn, err := jsonList(def.DependsOn)
		if err != nil {
			return fmt.Errorf("permission: encode %s: %w", def.ID, err)
		}
		implies, err := jsonList(def.Implies)
		if err != nil {
			return fmt.Errorf("permission: encode %s: %w", def.ID, err)
		}
		records = append(records, models.Permission{
			BaseModel:   models.BaseModel{ID: def.ID},
			Module:      def.Module,
			Description: def.Description,
			DependsOn:   dependsOn,
			Implies:     implies,
		})
	}

	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"module", "description", "depends_on", "implies", "updated_at"}),
	}).Create(&records).Error
	if err != nil {
		return fmt.Errorf("permission: sync: %w", err)
	}
	return nil
}

func jsonList(ids []string) (datatypes.JSON, error) {
	if ids == nil {
		ids = []string{}
	}
	encoded, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(encoded), nil
}
