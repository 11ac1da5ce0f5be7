package database

import (
	"gorm.io/gorm"

	"github.com/charlesng35/grantstore/internal/models"
)

// attachRolePermissions links the listed permissions to the role, skipping
// ones it already holds. Unknown permission ids are ignored.
func attachRolePermissions(tx *gorm.DB, roleID string, permissionIDs []string) error {
	if len(permissionIDs) == 0 {
		return nil
	}

	role := models.Role{BaseModel: models.BaseModel{ID: roleID}}
	if err := tx.Preload("Permissions").Take(&role, "id = ?", roleID).Error; err != nil {
		return err
	}

	held := make(map[string]bool, len(role.Permissions))
	for _, perm := range role.Permissions {
		held[perm.ID] = true
	}

	var missing []string
	for _, id := range permissionIDs {
		if !held[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	var perms []models.Permission
	if err := tx.Where("id IN ?", missing).Find(&perms).Error; err != nil {
		return err
	}
	if len(perms) == 0 {
		return nil
	}
	return tx.Model(&role).Association("Permissions").Append(perms)
}
