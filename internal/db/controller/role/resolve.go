package role

import (
	"errors"
	"sort"

	"gorm.io/gorm"

	"github.com/makrcave/makrcave-access/internal/db/models"
)

// MaxInheritanceDepth bounds parent chain traversal. A chain longer than
// this without revisiting a role indicates corrupted data.
const MaxInheritanceDepth = 50

// DirectPermissions returns the codenames granted directly to the role,
// ignoring inheritance. Only active permissions count.
func DirectPermissions(db *gorm.DB, roleID uint) ([]string, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var codes []string
	err := db.Table("permissions").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ? AND permissions.is_active = ?", roleID, true).
		Pluck("permissions.codename", &codes).Error
	if err != nil {
		return nil, err
	}

	return codes, nil
}

// EffectivePermissions returns the union of the role's direct permissions
// and those of every ancestor, walking the parent chain. A revisited role
// ends the walk with the permissions gathered so far, so a cycle in stored
// data degrades to a finite set instead of hanging the resolver. A chain
// deeper than MaxInheritanceDepth without a revisit fails with
// ErrInheritanceTooDeep. The result is sorted for stable comparison.
func EffectivePermissions(db *gorm.DB, roleID uint) ([]string, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	set := make(map[string]struct{})
	if err := collectPermissions(db, roleID, set); err != nil {
		return nil, err
	}

	return sortedKeys(set), nil
}

// EffectivePermissionsForMember returns the union of effective permissions
// across every role the member holds. A member with no roles gets an empty
// set, not an error.
func EffectivePermissionsForMember(db *gorm.DB, memberID uint64) ([]string, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var memberRoles []models.MemberRole
	if err := db.Where(whereMemberID, memberID).Find(&memberRoles).Error; err != nil {
		return nil, err
	}

	set := make(map[string]struct{})
	for _, mr := range memberRoles {
		if err := collectPermissions(db, mr.RoleID, set); err != nil {
			return nil, err
		}
	}

	return sortedKeys(set), nil
}

// MergedDashboardConfig merges the dashboard configuration of every role the
// member holds, applying roles in ascending priority so higher priority
// roles override lower ones key by key.
func MergedDashboardConfig(db *gorm.DB, memberID uint64) (models.JSONMap, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	roles, err := RolesOfMember(db, memberID)
	if err != nil {
		return nil, err
	}

	// RolesOfMember orders highest priority first; merge walks the reverse.
	merged := models.JSONMap{}
	for i := len(roles) - 1; i >= 0; i-- {
		for k, v := range roles[i].DashboardConfig {
			merged[k] = v
		}
	}

	return merged, nil
}

// collectPermissions walks the parent chain starting at roleID, adding each
// role's direct permissions to set.
func collectPermissions(db *gorm.DB, roleID uint, set map[string]struct{}) error {
	visited := make(map[uint]struct{})

	current := &roleID
	for depth := 0; current != nil; depth++ {
		if _, seen := visited[*current]; seen {
			return nil
		}

		if depth >= MaxInheritanceDepth {
			return ErrInheritanceTooDeep
		}

		visited[*current] = struct{}{}

		role, err := Get(db, *current)
		if err != nil {
			// A dangling parent reference ends the chain quietly.
			if errors.Is(err, ErrRoleNotFound) && depth > 0 {
				return nil
			}
			return err
		}

		codes, err := DirectPermissions(db, role.ID)
		if err != nil {
			return err
		}

		for _, code := range codes {
			set[code] = struct{}{}
		}

		current = role.ParentRoleID
	}

	return nil
}

// reparent validates and applies a parent change. Setting a parent that is,
// or descends from, the role itself would close a cycle and is rejected.
func reparent(db *gorm.DB, role *models.Role, newParentID *uint) error {
	if equalParent(role.ParentRoleID, newParentID) {
		return nil
	}

	if newParentID != nil {
		if *newParentID == role.ID {
			return ErrParentCycle
		}

		parent, err := Get(db, *newParentID)
		if err != nil {
			if errors.Is(err, ErrRoleNotFound) {
				return ErrParentNotFound
			}
			return err
		}

		ancestor := parent
		for depth := 0; ancestor.ParentRoleID != nil; depth++ {
			if depth >= MaxInheritanceDepth {
				return ErrInheritanceTooDeep
			}

			if *ancestor.ParentRoleID == role.ID {
				return ErrParentCycle
			}

			ancestor, err = Get(db, *ancestor.ParentRoleID)
			if err != nil {
				if errors.Is(err, ErrRoleNotFound) {
					break
				}
				return err
			}
		}
	}

	role.ParentRoleID = newParentID

	return nil
}

func equalParent(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}

	return *a == *b
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
