package models

import "time"

// RoleType classifies a role within the platform's fixed hierarchy.
type RoleType string

const (
	// RoleTypeSuperAdmin is the platform wide administrator role.
	RoleTypeSuperAdmin RoleType = "super_admin"
	// RoleTypeMakerspaceAdmin administers a single makerspace.
	RoleTypeMakerspaceAdmin RoleType = "makerspace_admin"
	// RoleTypeStaff is makerspace staff with day-to-day operational rights.
	RoleTypeStaff RoleType = "staff"
	// RoleTypeMember is a regular makerspace member.
	RoleTypeMember RoleType = "member"
	// RoleTypeServiceProvider is an external provider fulfilling service orders.
	RoleTypeServiceProvider RoleType = "service_provider"
	// RoleTypeGuest is a visitor with minimal rights.
	RoleTypeGuest RoleType = "guest"
	// RoleTypeCustom is an admin-defined role outside the fixed catalog.
	RoleTypeCustom RoleType = "custom"
)

// Role represents a role in the role-based access control (RBAC) system.
// Roles bundle permissions and may inherit from a single parent role; the
// effective permission set of a role is its own permissions plus everything
// reachable through the parent chain. A role is either global
// (MakerspaceID nil) or scoped to one makerspace tenant.
type Role struct {
	// ID is the unique identifier for the role.
	ID uint `gorm:"primaryKey"`
	// Name is the role name, unique within its makerspace scope.
	Name string `gorm:"size:100;not null;uniqueIndex:idx_roles_name_scope"`
	// MakerspaceID scopes the role to one tenant; nil means global.
	MakerspaceID *string `gorm:"size:64;index;uniqueIndex:idx_roles_name_scope"`
	// Description provides a human-readable description of the role's purpose.
	Description string `gorm:"size:255"`
	// RoleType classifies the role within the platform hierarchy.
	RoleType RoleType `gorm:"type:varchar(30);not null;default:'custom'"`
	// IsSystem indicates if this is a seeded role that cannot be deleted.
	IsSystem bool `gorm:"default:false"`
	// IsActive indicates whether the role currently grants anything.
	IsActive bool
	// IsAssignable indicates whether the role may be granted to members.
	IsAssignable bool
	// MaxAssignments caps the number of concurrent holders; nil means unlimited.
	MaxAssignments *int
	// IsDefault marks the role granted to newly registered members.
	IsDefault bool `gorm:"default:false"`
	// PriorityLevel orders roles; higher wins tie-breaks and config merges.
	PriorityLevel int `gorm:"default:0"`
	// ParentRoleID links to an optional single parent role whose effective
	// permissions are inherited. The schema does not enforce acyclicity;
	// resolution defends against cycles with a visited set.
	ParentRoleID *uint
	// ParentRole is the associated parent role (loaded via foreign key).
	ParentRole *Role `gorm:"foreignKey:ParentRoleID"`
	// SessionTimeoutMinutes overrides the session lifetime for holders; 0 means unset.
	SessionTimeoutMinutes int `gorm:"default:0"`
	// AllowedIPRanges restricts logins for holders to these CIDR ranges.
	AllowedIPRanges StringList `gorm:"type:text"`
	// RequiresTwoFactor forces two-factor verification for holders' sessions.
	RequiresTwoFactor bool `gorm:"default:false"`
	// MaxConcurrentSessions caps concurrent active sessions for holders; 0 means unset.
	MaxConcurrentSessions int `gorm:"default:0"`
	// FeatureFlags is an open configuration map merged across a member's roles.
	FeatureFlags JSONMap `gorm:"type:text"`
	// DashboardConfig is an open configuration map merged across a member's roles.
	DashboardConfig JSONMap `gorm:"type:text"`
	// MenuRestrictions is an open configuration map merged across a member's roles.
	MenuRestrictions JSONMap `gorm:"type:text"`
	// RequiredMembershipPlans limits assignment to members on these plans.
	RequiredMembershipPlans StringList `gorm:"type:text"`
	// ExcludedMembershipPlans blocks assignment for members on these plans.
	ExcludedMembershipPlans StringList `gorm:"type:text"`
	// CreatedAt is the timestamp when the role was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the role was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Role model.
func (Role) TableName() string {
	return "roles"
}
