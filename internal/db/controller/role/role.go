// Package role provides CRUD operations and permission resolution for roles.
package role

import (
	"errors"

	"gorm.io/gorm"

	"github.com/makrcave/makrcave-access/internal/db/models"
)

const (
	whereRoleID   = "role_id = ?"
	whereMemberID = "member_id = ?"
)

var (
	// ErrRoleNotFound is returned when a role is not found.
	ErrRoleNotFound = errors.New("role not found")
	// ErrNameEmpty is returned when creating a role with an empty name.
	ErrNameEmpty = errors.New("role name cannot be empty")
	// ErrNameExists is returned when the role name is taken within its scope.
	ErrNameExists = errors.New("role with this name already exists in this makerspace")
	// ErrSystemRole is returned on attempts to delete a system role or flip
	// its system flag.
	ErrSystemRole = errors.New("system roles cannot be deleted or have their system flag changed")
	// ErrRoleInUse is returned when deleting a role still held by members.
	ErrRoleInUse = errors.New("role is still assigned to one or more members")
	// ErrParentNotFound is returned when the referenced parent role does not exist.
	ErrParentNotFound = errors.New("parent role not found")
	// ErrParentCycle is returned when a parent edge would close an inheritance cycle.
	ErrParentCycle = errors.New("parent role would create an inheritance cycle")
	// ErrInheritanceTooDeep is returned when a parent chain exceeds
	// MaxInheritanceDepth without revisiting a role. This is a data
	// integrity condition, not a truncation.
	ErrInheritanceTooDeep = errors.New("role inheritance chain exceeds maximum depth")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")

	// ErrRoleNotAssignable is returned when the role is flagged unassignable.
	ErrRoleNotAssignable = errors.New("role is not assignable")
	// ErrRoleInactive is returned when the role is inactive.
	ErrRoleInactive = errors.New("role is not active")
	// ErrMakerspaceMismatch is returned when the role is scoped to a
	// different makerspace than the member.
	ErrMakerspaceMismatch = errors.New("role belongs to a different makerspace")
	// ErrMaxAssignmentsReached is returned when the role's holder cap is exhausted.
	ErrMaxAssignmentsReached = errors.New("role has reached its maximum number of assignments")
	// ErrMembershipPlanExcluded is returned when the member's plan blocks the role.
	ErrMembershipPlanExcluded = errors.New("member's membership plan is not eligible for this role")
)

// ListFilter narrows List results.
type ListFilter struct {
	// MakerspaceID limits results to one tenant's roles plus global roles.
	MakerspaceID *string
	Search       string
	ActiveOnly   bool
	Limit        int
	Offset       int
}

// Get retrieves a role by its ID.
func Get(db *gorm.DB, id uint) (*models.Role, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var role models.Role
	result := db.First(&role, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, result.Error
	}

	return &role, nil
}

// List retrieves roles matching the filter ordered by priority (highest
// first), with the total count before pagination. A makerspace filter also
// includes global roles, which every tenant sees.
func List(db *gorm.DB, filter ListFilter) ([]models.Role, int64, error) {
	if db == nil {
		return nil, 0, ErrDBNil
	}

	var (
		roles []models.Role
		total int64
		tx    = db.Model(&models.Role{})
	)

	if filter.MakerspaceID != nil {
		tx = tx.Where("makerspace_id = ? OR makerspace_id IS NULL", *filter.MakerspaceID)
	}

	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		tx = tx.Where("name LIKE ? OR description LIKE ?", like, like)
	}

	if filter.ActiveOnly {
		tx = tx.Where("is_active = ?", true)
	}

	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		tx = tx.Limit(filter.Limit).Offset(filter.Offset)
	}

	if err := tx.Order("priority_level DESC, id ASC").Find(&roles).Error; err != nil {
		return nil, 0, err
	}

	return roles, total, nil
}

// Create creates a new role. The name must be unused within the role's
// makerspace scope and a parent reference must exist and not close a cycle.
func Create(db *gorm.DB, role *models.Role) error {
	if db == nil {
		return ErrDBNil
	}
	if role.Name == "" {
		return ErrNameEmpty
	}

	if err := checkNameFree(db, role.Name, role.MakerspaceID, 0); err != nil {
		return err
	}

	if role.ParentRoleID != nil {
		if _, err := Get(db, *role.ParentRoleID); err != nil {
			if errors.Is(err, ErrRoleNotFound) {
				return ErrParentNotFound
			}
			return err
		}
	}

	return db.Create(role).Error
}

// Update applies changes to an existing role. The system flag is immutable
// and a new parent edge is rejected if it would close an inheritance cycle.
func Update(db *gorm.DB, id uint, updated *models.Role) (*models.Role, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	role, err := Get(db, id)
	if err != nil {
		return nil, err
	}

	if role.IsSystem != updated.IsSystem {
		return nil, ErrSystemRole
	}

	if updated.Name != "" && updated.Name != role.Name {
		if err := checkNameFree(db, updated.Name, role.MakerspaceID, id); err != nil {
			return nil, err
		}

		role.Name = updated.Name
	}

	if err := reparent(db, role, updated.ParentRoleID); err != nil {
		return nil, err
	}

	role.Description = updated.Description
	if updated.RoleType != "" {
		role.RoleType = updated.RoleType
	}

	role.IsActive = updated.IsActive
	role.IsAssignable = updated.IsAssignable
	role.MaxAssignments = updated.MaxAssignments
	role.IsDefault = updated.IsDefault
	role.PriorityLevel = updated.PriorityLevel
	role.SessionTimeoutMinutes = updated.SessionTimeoutMinutes
	role.AllowedIPRanges = updated.AllowedIPRanges
	role.RequiresTwoFactor = updated.RequiresTwoFactor
	role.MaxConcurrentSessions = updated.MaxConcurrentSessions
	role.FeatureFlags = updated.FeatureFlags
	role.DashboardConfig = updated.DashboardConfig
	role.MenuRestrictions = updated.MenuRestrictions
	role.RequiredMembershipPlans = updated.RequiredMembershipPlans
	role.ExcludedMembershipPlans = updated.ExcludedMembershipPlans

	if err := db.Save(role).Error; err != nil {
		return nil, err
	}

	return role, nil
}

// Delete deletes a custom role. System roles and roles still held by at
// least one member survive any delete attempt. Child roles pointing at the
// deleted role are detached rather than cascaded.
func Delete(db *gorm.DB, id uint) error {
	if db == nil {
		return ErrDBNil
	}

	role, err := Get(db, id)
	if err != nil {
		return err
	}

	if role.IsSystem {
		return ErrSystemRole
	}

	holders, err := AssignmentCount(db, id)
	if err != nil {
		return err
	}

	if holders > 0 {
		return ErrRoleInUse
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Role{}).
			Where("parent_role_id = ?", id).
			Update("parent_role_id", nil).Error; err != nil {
			return err
		}

		if err := tx.Where(whereRoleID, id).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Role{}, id).Error
	})
}

// AssignmentCount returns the number of members currently holding the role.
func AssignmentCount(db *gorm.DB, roleID uint) (int64, error) {
	if db == nil {
		return 0, ErrDBNil
	}

	var count int64
	err := db.Model(&models.MemberRole{}).Where(whereRoleID, roleID).Count(&count).Error

	return count, err
}

// CanAssignTo checks every assignment precondition of the role against the
// member: assignable, active, makerspace scope, plan restrictions and the
// holder cap. Returns nil when the grant is allowed, or the specific
// violated rule.
func CanAssignTo(db *gorm.DB, role *models.Role, member *models.Member) error {
	if db == nil {
		return ErrDBNil
	}

	if !role.IsAssignable {
		return ErrRoleNotAssignable
	}

	if !role.IsActive {
		return ErrRoleInactive
	}

	if role.MakerspaceID != nil {
		if member.MakerspaceID == nil || *member.MakerspaceID != *role.MakerspaceID {
			return ErrMakerspaceMismatch
		}
	}

	if len(role.RequiredMembershipPlans) > 0 && !contains(role.RequiredMembershipPlans, member.MembershipPlan) {
		return ErrMembershipPlanExcluded
	}

	if contains(role.ExcludedMembershipPlans, member.MembershipPlan) {
		return ErrMembershipPlanExcluded
	}

	if role.MaxAssignments != nil {
		holders, err := AssignmentCount(db, role.ID)
		if err != nil {
			return err
		}

		if holders >= int64(*role.MaxAssignments) {
			return ErrMaxAssignmentsReached
		}
	}

	return nil
}

// RolesOfMember returns every role the member currently holds, highest
// priority first.
func RolesOfMember(db *gorm.DB, memberID uint64) ([]models.Role, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var roles []models.Role
	err := db.Table("roles").
		Joins("JOIN member_roles ON member_roles.role_id = roles.id").
		Where("member_roles.member_id = ?", memberID).
		Order("roles.priority_level DESC").
		Find(&roles).Error
	if err != nil {
		return nil, err
	}

	return roles, nil
}

// checkNameFree verifies the name is unused within the makerspace scope,
// ignoring the role with id self (0 for creates).
func checkNameFree(db *gorm.DB, name string, makerspaceID *string, self uint) error {
	tx := db.Model(&models.Role{}).Where("name = ?", name)

	if makerspaceID == nil {
		tx = tx.Where("makerspace_id IS NULL")
	} else {
		tx = tx.Where("makerspace_id = ?", *makerspaceID)
	}

	if self != 0 {
		tx = tx.Where("id <> ?", self)
	}

	var count int64
	if err := tx.Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return ErrNameExists
	}

	return nil
}

func contains(list models.StringList, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}

	return false
}
