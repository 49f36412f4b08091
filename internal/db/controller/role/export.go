package role

import (
	"errors"

	"gorm.io/gorm"

	"github.com/makrcave/makrcave-access/internal/db/models"
)

// ErrImportNameTaken is returned when an imported role name already exists
// in the target scope.
var ErrImportNameTaken = errors.New("imported role name already exists in this makerspace")

// Export is the portable JSON shape of a role. Permissions travel by
// codename and parents by name, so an export survives ID changes between
// installations.
type Export struct {
	Name                    string            `json:"name"`
	RoleType                models.RoleType   `json:"role_type"`
	Description             string            `json:"description"`
	ParentRoleName          string            `json:"parent_role_name,omitempty"`
	PriorityLevel           int               `json:"priority_level"`
	IsAssignable            bool              `json:"is_assignable"`
	MaxAssignments          *int              `json:"max_assignments,omitempty"`
	SessionTimeoutMinutes   int               `json:"session_timeout_minutes,omitempty"`
	AllowedIPRanges         models.StringList `json:"allowed_ip_ranges,omitempty"`
	RequiresTwoFactor       bool              `json:"requires_two_factor"`
	MaxConcurrentSessions   int               `json:"max_concurrent_sessions,omitempty"`
	FeatureFlags            models.JSONMap    `json:"feature_flags,omitempty"`
	DashboardConfig         models.JSONMap    `json:"dashboard_config,omitempty"`
	MenuRestrictions        models.JSONMap    `json:"menu_restrictions,omitempty"`
	RequiredMembershipPlans models.StringList `json:"required_membership_plans,omitempty"`
	ExcludedMembershipPlans models.StringList `json:"excluded_membership_plans,omitempty"`
	Permissions             []string          `json:"permissions"`
}

// ExportRole serializes one role to its portable shape with its direct
// permission codenames.
func ExportRole(db *gorm.DB, id uint) (*Export, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	role, err := Get(db, id)
	if err != nil {
		return nil, err
	}

	out := &Export{
		Name:                    role.Name,
		RoleType:                role.RoleType,
		Description:             role.Description,
		PriorityLevel:           role.PriorityLevel,
		IsAssignable:            role.IsAssignable,
		MaxAssignments:          role.MaxAssignments,
		SessionTimeoutMinutes:   role.SessionTimeoutMinutes,
		AllowedIPRanges:         role.AllowedIPRanges,
		RequiresTwoFactor:       role.RequiresTwoFactor,
		MaxConcurrentSessions:   role.MaxConcurrentSessions,
		FeatureFlags:            role.FeatureFlags,
		DashboardConfig:         role.DashboardConfig,
		MenuRestrictions:        role.MenuRestrictions,
		RequiredMembershipPlans: role.RequiredMembershipPlans,
		ExcludedMembershipPlans: role.ExcludedMembershipPlans,
	}

	if role.ParentRoleID != nil {
		parent, err := Get(db, *role.ParentRoleID)
		if err == nil {
			out.ParentRoleName = parent.Name
		} else if !errors.Is(err, ErrRoleNotFound) {
			return nil, err
		}
	}

	codes, err := DirectPermissions(db, role.ID)
	if err != nil {
		return nil, err
	}

	out.Permissions = codes

	return out, nil
}

// ImportRole creates a custom role in the given makerspace scope from its
// portable shape. The parent is resolved by name within the same scope and
// skipped silently if absent; unknown permission codenames fail the import.
func ImportRole(db *gorm.DB, in *Export, makerspaceID *string) (*models.Role, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if in.Name == "" {
		return nil, ErrNameEmpty
	}

	if err := checkNameFree(db, in.Name, makerspaceID, 0); err != nil {
		if errors.Is(err, ErrNameExists) {
			return nil, ErrImportNameTaken
		}
		return nil, err
	}

	roleType := in.RoleType
	if roleType == "" {
		roleType = models.RoleTypeCustom
	}

	role := models.Role{
		Name:                    in.Name,
		RoleType:                roleType,
		Description:             in.Description,
		MakerspaceID:            makerspaceID,
		PriorityLevel:           in.PriorityLevel,
		IsActive:                true,
		IsAssignable:            in.IsAssignable,
		MaxAssignments:          in.MaxAssignments,
		SessionTimeoutMinutes:   in.SessionTimeoutMinutes,
		AllowedIPRanges:         in.AllowedIPRanges,
		RequiresTwoFactor:       in.RequiresTwoFactor,
		MaxConcurrentSessions:   in.MaxConcurrentSessions,
		FeatureFlags:            in.FeatureFlags,
		DashboardConfig:         in.DashboardConfig,
		MenuRestrictions:        in.MenuRestrictions,
		RequiredMembershipPlans: in.RequiredMembershipPlans,
		ExcludedMembershipPlans: in.ExcludedMembershipPlans,
	}

	if in.ParentRoleName != "" {
		parent, err := getByNameInScope(db, in.ParentRoleName, makerspaceID)
		if err == nil {
			role.ParentRoleID = &parent.ID
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if err := db.Create(&role).Error; err != nil {
		return nil, err
	}

	if len(in.Permissions) > 0 {
		if err := SetPermissions(db, role.ID, in.Permissions); err != nil {
			return nil, err
		}
	}

	return &role, nil
}
