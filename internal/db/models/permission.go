package models

import "time"

// AccessScope classifies where a permission applies.
type AccessScope string

const (
	// ScopeGlobal applies system wide, across all makerspaces.
	ScopeGlobal AccessScope = "global"
	// ScopeMakerspace applies within a single makerspace tenant.
	ScopeMakerspace AccessScope = "makerspace"
	// ScopeSelf applies only to the acting member's own resources.
	ScopeSelf AccessScope = "self"
)

// Permission represents a specific permission in the authorization system.
// Permissions define granular access rights to resources and actions.
// They are assigned to roles, which are then assigned to members directly
// or inherited through a role's parent chain.
type Permission struct {
	// ID is the unique identifier for the permission.
	ID uint `gorm:"primaryKey"`
	// Name is the human-readable display name of the permission.
	Name string `gorm:"size:100;not null"`
	// Codename is the unique, stable string key (e.g. "view_members").
	Codename string `gorm:"unique;size:100;not null"`
	// Description provides a human-readable explanation of what this permission grants.
	Description string `gorm:"size:255"`
	// AccessScope is whether the permission applies globally, per makerspace, or to self only.
	AccessScope AccessScope `gorm:"type:varchar(20);not null;default:'makerspace'"`
	// IsSystem marks a seeded permission that cannot be deleted or have its codename changed.
	IsSystem bool `gorm:"default:false"`
	// IsActive indicates whether the permission currently grants anything.
	IsActive bool
	// RequiresTwoFactor requires the acting session to be two-factor verified.
	RequiresTwoFactor bool `gorm:"default:false"`
	// ResourceRestrictions optionally narrows the permission to resource types or fields.
	ResourceRestrictions JSONMap `gorm:"type:text"`
	// CreatedAt is the timestamp when the permission was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the permission was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Permission model.
func (Permission) TableName() string {
	return "permissions"
}
