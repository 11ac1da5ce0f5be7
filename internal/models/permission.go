package models

import "gorm.io/datatypes"

// Permission mirrors a registered capability so roles can reference it.
// DependsOn and Implies hold JSON arrays of permission ids.
type Permission struct {
	BaseModel

	Module      string         `gorm:"not null;index" json:"module"`
	Description string         `json:"description"`
	DependsOn   datatypes.JSON `json:"depends_on"`
	Implies     datatypes.JSON `json:"implies"`

	Roles []Role `gorm:"many2many:role_permissions;" json:"roles,omitempty"`
}
