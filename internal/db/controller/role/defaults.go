package role

import (
	"errors"

	"gorm.io/gorm"

	"github.com/makrcave/makrcave-access/internal/auth/perm"
	"github.com/makrcave/makrcave-access/internal/db/models"
)

// systemRole is one row of the fixed default role hierarchy.
type systemRole struct {
	name        string
	roleType    models.RoleType
	description string
	priority    int
	parent      string
	assignable  bool
	isDefault   bool
	twoFactor   bool
	permissions []string
}

// defaultHierarchy is seeded per makerspace (and once globally for the
// platform roles). Each entry inherits its parent's permissions, so the
// permission lists here are only the deltas.
var defaultHierarchy = []systemRole{ //nolint:gochecknoglobals
	{
		name:        "Guest",
		roleType:    models.RoleTypeGuest,
		description: "Unverified visitor with read-only access to public areas",
		priority:    10,
		assignable:  true,
		permissions: []string{perm.EquipmentView},
	},
	{
		name:        "Member",
		roleType:    models.RoleTypeMember,
		description: "Regular makerspace member",
		priority:    20,
		parent:      "Guest",
		assignable:  true,
		isDefault:   true,
		permissions: []string{
			perm.DashboardView,
			perm.SessionsViewOwn,
			perm.EquipmentReserve,
			perm.ProjectsViewOwn,
			perm.BillingViewOwn,
			perm.InventoryView,
		},
	},
	{
		name:        "Service Provider",
		roleType:    models.RoleTypeServiceProvider,
		description: "External provider fulfilling service orders",
		priority:    30,
		parent:      "Member",
		assignable:  true,
		permissions: []string{
			perm.ServiceOrdersView,
			perm.ServiceOrdersManage,
		},
	},
	{
		name:        "Staff",
		roleType:    models.RoleTypeStaff,
		description: "Makerspace staff with day-to-day operational rights",
		priority:    50,
		parent:      "Member",
		assignable:  true,
		permissions: []string{
			perm.MembersView,
			perm.RolesView,
			perm.PermissionsView,
			perm.InventoryManage,
			perm.EquipmentManage,
			perm.ProjectsView,
			perm.ReservationsView,
			perm.ReservationsManage,
		},
	},
	{
		name:        "Makerspace Admin",
		roleType:    models.RoleTypeMakerspaceAdmin,
		description: "Administrator of a single makerspace",
		priority:    80,
		parent:      "Staff",
		assignable:  true,
		twoFactor:   true,
		permissions: []string{
			perm.MembersManage,
			perm.MembersSuspend,
			perm.RolesManage,
			perm.RolesAssign,
			perm.SessionsManage,
			perm.PasswordPolicyView,
			perm.PasswordPolicyManage,
			perm.AuditLogView,
			perm.AuditLogExport,
			perm.AccessStatsView,
			perm.ProjectsManage,
			perm.BillingManage,
		},
	},
	{
		name:        "Super Admin",
		roleType:    models.RoleTypeSuperAdmin,
		description: "Platform operator with unrestricted access",
		priority:    100,
		parent:      "Makerspace Admin",
		assignable:  false,
		twoFactor:   true,
		permissions: []string{
			perm.PermissionsManage,
			perm.MakerspacesManage,
			perm.SystemSettings,
		},
	},
}

// SeedDefaults creates the system role hierarchy scoped to the given
// makerspace, or the global hierarchy when makerspaceID is nil. Idempotent;
// roles that already exist in the scope keep their current permission sets.
func SeedDefaults(db *gorm.DB, makerspaceID *string) error {
	if db == nil {
		return ErrDBNil
	}

	created := make(map[string]uint, len(defaultHierarchy))

	for _, entry := range defaultHierarchy {
		existing, err := getByNameInScope(db, entry.name, makerspaceID)
		if err == nil {
			created[entry.name] = existing.ID
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		role := models.Role{
			Name:              entry.name,
			RoleType:          entry.roleType,
			Description:       entry.description,
			MakerspaceID:      makerspaceID,
			PriorityLevel:     entry.priority,
			IsSystem:          true,
			IsActive:          true,
			IsAssignable:      entry.assignable,
			IsDefault:         entry.isDefault,
			RequiresTwoFactor: entry.twoFactor,
		}

		if entry.parent != "" {
			parentID, ok := created[entry.parent]
			if ok {
				role.ParentRoleID = &parentID
			}
		}

		if err := db.Create(&role).Error; err != nil {
			return err
		}

		created[entry.name] = role.ID

		if err := SetPermissions(db, role.ID, entry.permissions); err != nil {
			return err
		}
	}

	return nil
}

func getByNameInScope(db *gorm.DB, name string, makerspaceID *string) (*models.Role, error) {
	tx := db.Where("name = ?", name)
	if makerspaceID == nil {
		tx = tx.Where("makerspace_id IS NULL")
	} else {
		tx = tx.Where("makerspace_id = ?", *makerspaceID)
	}

	var role models.Role
	if err := tx.First(&role).Error; err != nil {
		return nil, err
	}

	return &role, nil
}
