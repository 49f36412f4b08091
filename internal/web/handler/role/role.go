// Package role exposes the role store endpoints: CRUD, direct and effective
// permission sets, and portable import/export.
package role

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/makrcave/makrcave-access/internal/auth"
	"github.com/makrcave/makrcave-access/internal/auth/perm"
	"github.com/makrcave/makrcave-access/internal/config"
	controller "github.com/makrcave/makrcave-access/internal/db/controller/role"
	"github.com/makrcave/makrcave-access/internal/db/models"
	"github.com/makrcave/makrcave-access/internal/web/handler"
)

// Path is the base path of the role endpoints.
const Path = handler.RootPath + "/roles"

// Service is the role handler service.
type Service struct {
	handler.Service
	cfg       *config.Config
	db        *gorm.DB
	validator *validator.Validate
}

// Handler is the role handler.
var Handler = Service{}

// Init initializes the role handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg
	s.validator = validator.New()

	app.Get(Path,
		auth.RequirePermission(authService, perm.RolesView),
		s.List,
	)
	app.Get(Path+"/:id",
		auth.RequirePermission(authService, perm.RolesView),
		s.Get,
	)
	app.Get(Path+"/:id/permissions",
		auth.RequirePermission(authService, perm.RolesView),
		s.Permissions,
	)
	app.Get(Path+"/:id/export",
		auth.RequirePermission(authService, perm.RolesView),
		s.Export,
	)
	app.Post(Path,
		auth.RequirePermission(authService, perm.RolesManage),
		s.Create,
	)
	app.Post(Path+"/import",
		auth.RequirePermission(authService, perm.RolesManage),
		s.Import,
	)
	app.Put(Path+"/:id",
		auth.RequirePermission(authService, perm.RolesManage),
		s.Update,
	)
	app.Put(Path+"/:id/permissions",
		auth.RequirePermission(authService, perm.RolesManage),
		s.SetPermissions,
	)
	app.Delete(Path+"/:id",
		auth.RequirePermission(authService, perm.RolesManage),
		s.Delete,
	)
}

// List handles GET /roles. Tenant-scoped callers see their own roles plus
// the global ones.
func (s *Service) List(c *fiber.Ctx) error {
	principal := auth.PrincipalFrom(c)

	filter := controller.ListFilter{
		Search:     c.Query("search"),
		ActiveOnly: c.QueryBool("active_only"),
		Limit:      c.QueryInt("limit"),
		Offset:     c.QueryInt("offset"),
	}

	if principal != nil && principal.MakerspaceID != nil {
		filter.MakerspaceID = principal.MakerspaceID
	}

	roles, total, err := controller.List(s.db, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to list roles")

		return handler.JSONError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return c.JSON(fiber.Map{"roles": roles, "total": total})
}

// Get handles GET /roles/:id.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, "invalid role id")
	}

	r, err := controller.Get(s.db, id)
	if err != nil {
		return statusFor(c, err)
	}

	return c.JSON(r)
}

// Permissions handles GET /roles/:id/permissions: the direct set plus the
// effective set resolved through the parent chain.
func (s *Service) Permissions(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, "invalid role id")
	}

	direct, err := controller.DirectPermissions(s.db, id)
	if err != nil {
		return statusFor(c, err)
	}

	effective, err := controller.EffectivePermissions(s.db, id)
	if err != nil {
		return statusFor(c, err)
	}

	return c.JSON(fiber.Map{"direct": direct, "effective": effective})
}

type upsertRequest struct {
	Name                    string            `json:"name" validate:"required"`
	RoleType                models.RoleType   `json:"role_type"`
	Description             string            `json:"description"`
	MakerspaceID            *string           `json:"makerspace_id"`
	ParentRoleID            *uint             `json:"parent_role_id"`
	PriorityLevel           int               `json:"priority_level"`
	IsActive                bool              `json:"is_active"`
	IsAssignable            bool              `json:"is_assignable"`
	IsDefault               bool              `json:"is_default"`
	MaxAssignments          *int              `json:"max_assignments"`
	SessionTimeoutMinutes   int               `json:"session_timeout_minutes"`
	AllowedIPRanges         models.StringList `json:"allowed_ip_ranges"`
	RequiresTwoFactor       bool              `json:"requires_two_factor"`
	MaxConcurrentSessions   int               `json:"max_concurrent_sessions"`
	FeatureFlags            models.JSONMap    `json:"feature_flags"`
	DashboardConfig         models.JSONMap    `json:"dashboard_config"`
	MenuRestrictions        models.JSONMap    `json:"menu_restrictions"`
	RequiredMembershipPlans models.StringList `json:"required_membership_plans"`
	ExcludedMembershipPlans models.StringList `json:"excluded_membership_plans"`
	Permissions             []string          `json:"permissions"`
}

func (r *upsertRequest) toModel() models.Role {
	roleType := r.RoleType
	if roleType == "" {
		roleType = models.RoleTypeCustom
	}

	return models.Role{
		Name:                    r.Name,
		RoleType:                roleType,
		Description:             r.Description,
		MakerspaceID:            r.MakerspaceID,
		ParentRoleID:            r.ParentRoleID,
		PriorityLevel:           r.PriorityLevel,
		IsActive:                r.IsActive,
		IsAssignable:            r.IsAssignable,
		IsDefault:               r.IsDefault,
		MaxAssignments:          r.MaxAssignments,
		SessionTimeoutMinutes:   r.SessionTimeoutMinutes,
		AllowedIPRanges:         r.AllowedIPRanges,
		RequiresTwoFactor:       r.RequiresTwoFactor,
		MaxConcurrentSessions:   r.MaxConcurrentSessions,
		FeatureFlags:            r.FeatureFlags,
		DashboardConfig:         r.DashboardConfig,
		MenuRestrictions:        r.MenuRestrictions,
		RequiredMembershipPlans: r.RequiredMembershipPlans,
		ExcludedMembershipPlans: r.ExcludedMembershipPlans,
	}
}

// Create handles POST /roles: creates a custom role, optionally with an
// initial permission set. Tenant-scoped callers can only create roles in
// their own makerspace.
func (s *Service) Create(c *fiber.Ctx) error {
	// New roles are active and assignable unless the body says otherwise.
	req := &upsertRequest{IsActive: true, IsAssignable: true}
	if err := c.BodyParser(req); err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := s.validator.Struct(req); err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, err.Error())
	}

	principal := auth.PrincipalFrom(c)
	if principal != nil && principal.MakerspaceID != nil {
		req.MakerspaceID = principal.MakerspaceID
	}

	r := req.toModel()

	if err := controller.Create(s.db, &r); err != nil {
		return statusFor(c, err)
	}

	if len(req.Permissions) > 0 {
		if err := controller.SetPermissions(s.db, r.ID, req.Permissions); err != nil {
			return statusFor(c, err)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(r)
}

// Update handles PUT /roles/:id.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, "invalid role id")
	}

	req := new(upsertRequest)
	if err := c.BodyParser(req); err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, "invalid request body")
	}

	updated := req.toModel()

	r, err := controller.Update(s.db, id, &updated)
	if err != nil {
		return statusFor(c, err)
	}

	return c.JSON(r)
}

type setPermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

// SetPermissions handles PUT /roles/:id/permissions: replaces the role's
// direct permission set.
func (s *Service) SetPermissions(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, "invalid role id")
	}

	req := new(setPermissionsRequest)
	if err := c.BodyParser(req); err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := controller.SetPermissions(s.db, id, req.Permissions); err != nil {
		return statusFor(c, err)
	}

	effective, err := controller.EffectivePermissions(s.db, id)
	if err != nil {
		return statusFor(c, err)
	}

	return c.JSON(fiber.Map{"direct": req.Permissions, "effective": effective})
}

// Delete handles DELETE /roles/:id.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, "invalid role id")
	}

	if err := controller.Delete(s.db, id); err != nil {
		return statusFor(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Export handles GET /roles/:id/export: the portable JSON shape of one role.
func (s *Service) Export(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, "invalid role id")
	}

	out, err := controller.ExportRole(s.db, id)
	if err != nil {
		return statusFor(c, err)
	}

	return c.JSON(out)
}

// Import handles POST /roles/import: creates a role from its portable
// shape in the caller's makerspace scope.
func (s *Service) Import(c *fiber.Ctx) error {
	in := new(controller.Export)
	if err := c.BodyParser(in); err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, "invalid request body")
	}

	var makerspaceID *string
	if principal := auth.PrincipalFrom(c); principal != nil {
		makerspaceID = principal.MakerspaceID
	}

	r, err := controller.ImportRole(s.db, in, makerspaceID)
	if err != nil {
		return statusFor(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(r)
}

func parseID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)

	return uint(id), err
}

func statusFor(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, controller.ErrRoleNotFound),
		errors.Is(err, controller.ErrParentNotFound):
		return handler.JSONError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, controller.ErrNameExists),
		errors.Is(err, controller.ErrImportNameTaken):
		return handler.JSONError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, controller.ErrSystemRole):
		return handler.JSONError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, controller.ErrNameEmpty),
		errors.Is(err, controller.ErrParentCycle),
		errors.Is(err, controller.ErrRoleInUse),
		errors.Is(err, controller.ErrUnknownCodename):
		return handler.JSONError(c, fiber.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Msg("role operation failed")

		return handler.JSONError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
