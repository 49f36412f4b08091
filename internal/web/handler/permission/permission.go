// Package permission exposes the permission catalog endpoints.
package permission

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
	controller "github.com/makrcave/makrcave-access/internal/db/controller/permission"
	"github.com/makrcave/makrcave-access/internal/db/models"
	"github.com/makrcave/makrcave-access/internal/web/handler"
)

// Path is the base path of the permission catalog endpoints.
const Path = handler.RootPath + "/permissions"

// Service is the permission catalog handler service.
type Service struct {
	handler.Service
	cfg       *config.Config
	db        *gorm.DB
	validator *validator.Validate
}

// Handler is the permission catalog handler.
var Handler = Service{}

// Init initializes the permission catalog handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg
	s.validator = validator.New()

	app.Get(Path,
		auth.RequirePermission(authService, perm.PermissionsView),
		s.List,
	)
	app.Get(Path+"/:id",
		auth.RequirePermission(authService, perm.PermissionsView),
		s.Get,
	)
	app.Post(Path,
		auth.RequirePermission(authService, perm.PermissionsManage),
		s.Create,
	)
	app.Put(Path+"/:id",
		auth.RequirePermission(authService, perm.PermissionsManage),
		s.Update,
	)
	app.Delete(Path+"/:id",
		auth.RequirePermission(authService, perm.PermissionsManage),
		s.Delete,
	)
}

// List handles GET /permissions with search, scope and pagination filters.
func (s *Service) List(c *fiber.Ctx) error {
	filter := controller.ListFilter{
		Search:      c.Query("search"),
		AccessScope: models.AccessScope(c.Query("scope")),
		ActiveOnly:  c.QueryBool("active_only"),
		Limit:       c.QueryInt("limit"),
		Offset:      c.QueryInt("offset"),
	}

	perms, total, err := controller.List(s.db, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to list permissions")

		return handler.JSONError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return c.JSON(fiber.Map{"permissions": perms, "total": total})
}

// Get handles GET /permissions/:id.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, "invalid permission id")
	}

	p, err := controller.Get(s.db, id)
	if err != nil {
		return statusFor(c, err)
	}

	return c.JSON(p)
}

type upsertRequest struct {
	Name                 string             `json:"name" validate:"required"`
	Codename             string             `json:"codename"`
	Description          string             `json:"description"`
	AccessScope          models.AccessScope `json:"access_scope" validate:"omitempty,oneof=global makerspace self"`
	IsActive             bool               `json:"is_active"`
	RequiresTwoFactor    bool               `json:"requires_two_factor"`
	ResourceRestrictions models.JSONMap     `json:"resource_restrictions"`
}

// Create handles POST /permissions: creates a custom catalog entry.
func (s *Service) Create(c *fiber.Ctx) error {
	req := new(upsertRequest)
	if err := c.BodyParser(req); err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := s.validator.Struct(req); err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, err.Error())
	}

	scope := req.AccessScope
	if scope == "" {
		scope = models.ScopeMakerspace
	}

	p := models.Permission{
		Name:                 req.Name,
		Codename:             req.Codename,
		Description:          req.Description,
		AccessScope:          scope,
		IsActive:             true,
		RequiresTwoFactor:    req.RequiresTwoFactor,
		ResourceRestrictions: req.ResourceRestrictions,
	}

	if err := controller.Create(s.db, &p); err != nil {
		return statusFor(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(p)
}

// Update handles PUT /permissions/:id.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, "invalid permission id")
	}

	req := new(upsertRequest)
	if err := c.BodyParser(req); err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, "invalid request body")
	}

	updated := models.Permission{
		Name:                 req.Name,
		Codename:             req.Codename,
		Description:          req.Description,
		AccessScope:          req.AccessScope,
		IsActive:             req.IsActive,
		RequiresTwoFactor:    req.RequiresTwoFactor,
		ResourceRestrictions: req.ResourceRestrictions,
	}

	p, err := controller.Update(s.db, id, &updated)
	if err != nil {
		return statusFor(c, err)
	}

	return c.JSON(p)
}

// Delete handles DELETE /permissions/:id.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, "invalid permission id")
	}

	if err := controller.Delete(s.db, id); err != nil {
		return statusFor(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func parseID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)

	return uint(id), err
}

func statusFor(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, controller.ErrPermissionNotFound):
		return handler.JSONError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, controller.ErrCodenameExists):
		return handler.JSONError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, controller.ErrSystemPermission):
		return handler.JSONError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, controller.ErrCodenameEmpty):
		return handler.JSONError(c, fiber.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Msg("permission operation failed")

		return handler.JSONError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
