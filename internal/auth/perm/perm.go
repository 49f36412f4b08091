// Package perm defines the permission codenames known to the platform.
// It is a leaf package so both the catalog seeding and the enforcement
// layer can reference the same constants without import cycles.
package perm

// Permission codenames used for role-based access control (RBAC). The
// seeded catalog rows carry the scope and 2FA metadata for each code.
const (
	// DashboardView allows viewing the makerspace dashboard.
	DashboardView = "view_dashboard"

	// MembersView allows viewing member profiles and lists.
	MembersView = "view_members"
	// MembersManage allows creating, editing and deactivating members.
	MembersManage = "manage_members"
	// MembersSuspend allows suspending and reinstating member accounts.
	MembersSuspend = "suspend_members"

	// RolesView allows viewing roles and their permissions.
	RolesView = "view_roles"
	// RolesManage allows creating, editing and deleting custom roles.
	RolesManage = "manage_roles"
	// RolesAssign allows granting and revoking member roles.
	RolesAssign = "assign_roles"
	// PermissionsView allows viewing the permission catalog.
	PermissionsView = "view_permissions"
	// PermissionsManage allows creating and editing custom permissions.
	PermissionsManage = "manage_permissions"

	// SessionsViewOwn allows listing the member's own login sessions.
	SessionsViewOwn = "view_own_sessions"
	// SessionsManage allows listing and terminating member sessions.
	SessionsManage = "manage_sessions"
	// PasswordPolicyView allows viewing password policies.
	PasswordPolicyView = "view_password_policy"
	// PasswordPolicyManage allows creating and editing password policies.
	PasswordPolicyManage = "manage_password_policy"
	// AuditLogView allows querying the role assignment ledger.
	AuditLogView = "view_audit_log"
	// AuditLogExport allows exporting the role assignment ledger.
	AuditLogExport = "export_audit_log"
	// AccessStatsView allows viewing access control statistics.
	AccessStatsView = "view_access_stats"

	// InventoryView allows viewing inventory items and stock.
	InventoryView = "view_inventory"
	// InventoryManage allows adding, issuing and adjusting inventory.
	InventoryManage = "manage_inventory"
	// EquipmentView allows viewing equipment and availability.
	EquipmentView = "view_equipment"
	// EquipmentReserve allows reserving equipment slots.
	EquipmentReserve = "reserve_equipment"
	// EquipmentManage allows registering and maintaining equipment.
	EquipmentManage = "manage_equipment"
	// ProjectsViewOwn allows viewing the member's own projects.
	ProjectsViewOwn = "view_own_projects"
	// ProjectsView allows viewing all makerspace projects.
	ProjectsView = "view_projects"
	// ProjectsManage allows editing and archiving any project.
	ProjectsManage = "manage_projects"
	// ReservationsView allows viewing all equipment reservations.
	ReservationsView = "view_reservations"
	// ReservationsManage allows approving and cancelling reservations.
	ReservationsManage = "manage_reservations"
	// BillingViewOwn allows viewing the member's own invoices.
	BillingViewOwn = "view_own_billing"
	// BillingManage allows managing makerspace billing records.
	BillingManage = "manage_billing"
	// ServiceOrdersView allows viewing 3D printing service orders.
	ServiceOrdersView = "view_service_orders"
	// ServiceOrdersManage allows accepting and dispatching service orders.
	ServiceOrdersManage = "manage_service_orders"

	// MakerspacesManage allows provisioning and configuring tenants.
	MakerspacesManage = "manage_makerspaces"
	// SystemSettings allows managing platform wide settings.
	SystemSettings = "manage_system_settings"
)
