package permission

import (
	"gorm.io/gorm"

	"github.com/makrcave/makrcave-access/internal/auth/perm"
	"github.com/makrcave/makrcave-access/internal/db/models"
)

// catalogEntry is one row of the fixed default permission catalog.
type catalogEntry struct {
	codename    string
	name        string
	description string
	scope       models.AccessScope
	twoFactor   bool
}

// defaultCatalog is the product's fixed permission catalog, seeded once at
// bootstrap. Entries are data, not logic; the authoritative codename
// constants live in the auth package.
var defaultCatalog = []catalogEntry{ //nolint:gochecknoglobals
	{perm.DashboardView, "View Dashboard", "View the makerspace dashboard", models.ScopeMakerspace, false},

	{perm.MembersView, "View Members", "View member profiles and lists", models.ScopeMakerspace, false},
	{perm.MembersManage, "Manage Members", "Create, edit and deactivate members", models.ScopeMakerspace, false},
	{perm.MembersSuspend, "Suspend Members", "Suspend and reinstate member accounts", models.ScopeMakerspace, false},

	{perm.RolesView, "View Roles", "View roles and their permissions", models.ScopeMakerspace, false},
	{perm.RolesManage, "Manage Roles", "Create, edit and delete custom roles", models.ScopeMakerspace, true},
	{perm.RolesAssign, "Assign Roles", "Grant and revoke member roles", models.ScopeMakerspace, true},
	{perm.PermissionsView, "View Permissions", "View the permission catalog", models.ScopeGlobal, false},
	{perm.PermissionsManage, "Manage Permissions", "Create and edit custom permissions", models.ScopeGlobal, true},

	{perm.SessionsViewOwn, "View Own Sessions", "List the member's own login sessions", models.ScopeSelf, false},
	{perm.SessionsManage, "Manage Sessions", "List and terminate member sessions", models.ScopeMakerspace, false},
	{perm.PasswordPolicyView, "View Password Policy", "View password policies", models.ScopeMakerspace, false},
	{perm.PasswordPolicyManage, "Manage Password Policy", "Create and edit password policies", models.ScopeMakerspace, true},
	{perm.AuditLogView, "View Audit Log", "Query the role assignment ledger", models.ScopeMakerspace, false},
	{perm.AuditLogExport, "Export Audit Log", "Export the role assignment ledger", models.ScopeMakerspace, false},
	{perm.AccessStatsView, "View Access Stats", "View access control statistics", models.ScopeMakerspace, false},

	{perm.InventoryView, "View Inventory", "View inventory items and stock", models.ScopeMakerspace, false},
	{perm.InventoryManage, "Manage Inventory", "Add, issue and adjust inventory", models.ScopeMakerspace, false},
	{perm.EquipmentView, "View Equipment", "View equipment and availability", models.ScopeMakerspace, false},
	{perm.EquipmentReserve, "Reserve Equipment", "Reserve equipment slots", models.ScopeSelf, false},
	{perm.EquipmentManage, "Manage Equipment", "Register and maintain equipment", models.ScopeMakerspace, false},
	{perm.ProjectsViewOwn, "View Own Projects", "View the member's own projects", models.ScopeSelf, false},
	{perm.ProjectsView, "View Projects", "View all makerspace projects", models.ScopeMakerspace, false},
	{perm.ProjectsManage, "Manage Projects", "Edit and archive any project", models.ScopeMakerspace, false},
	{perm.ReservationsView, "View Reservations", "View all equipment reservations", models.ScopeMakerspace, false},
	{perm.ReservationsManage, "Manage Reservations", "Approve and cancel reservations", models.ScopeMakerspace, false},
	{perm.BillingViewOwn, "View Own Billing", "View the member's own invoices", models.ScopeSelf, false},
	{perm.BillingManage, "Manage Billing", "Manage makerspace billing records", models.ScopeMakerspace, true},
	{perm.ServiceOrdersView, "View Service Orders", "View 3D printing service orders", models.ScopeMakerspace, false},
	{perm.ServiceOrdersManage, "Manage Service Orders", "Accept and dispatch service orders", models.ScopeMakerspace, false},

	{perm.MakerspacesManage, "Manage Makerspaces", "Provision and configure makerspace tenants", models.ScopeGlobal, true},
	{perm.SystemSettings, "Manage System Settings", "Manage platform wide settings", models.ScopeGlobal, true},
}

// SeedDefaults inserts every catalog permission that does not exist yet.
// Safe to call repeatedly; existing rows are left untouched so tenant admins
// keep their description edits.
func SeedDefaults(db *gorm.DB) error {
	if db == nil {
		return ErrDBNil
	}

	for _, entry := range defaultCatalog {
		var count int64
		if err := db.Model(&models.Permission{}).
			Where(codenameQueryPattern, entry.codename).
			Count(&count).Error; err != nil {
			return err
		}

		if count > 0 {
			continue
		}

		perm := models.Permission{
			Name:              entry.name,
			Codename:          entry.codename,
			Description:       entry.description,
			AccessScope:       entry.scope,
			IsSystem:          true,
			IsActive:          true,
			RequiresTwoFactor: entry.twoFactor,
		}

		if err := db.Create(&perm).Error; err != nil {
			return err
		}
	}

	return nil
}
