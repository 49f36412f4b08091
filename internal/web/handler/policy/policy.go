// Package policy exposes the password policy endpoints, including effective
// policy resolution and candidate password validation.
package policy

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
	controller "github.com/makrcave/makrcave-access/internal/db/controller/policy"
	"github.com/makrcave/makrcave-access/internal/db/models"
	"github.com/makrcave/makrcave-access/internal/password"
	"github.com/makrcave/makrcave-access/internal/web/handler"
)

// Path is the base path of the password policy endpoints.
const Path = handler.RootPath + "/password-policies"

// Service is the password policy handler service.
type Service struct {
	handler.Service
	cfg       *config.Config
	db        *gorm.DB
	validator *validator.Validate
}

// Handler is the password policy handler.
var Handler = Service{}

// Init initializes the password policy handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg
	s.validator = validator.New()

	app.Get(Path,
		auth.RequirePermission(authService, perm.PasswordPolicyView),
		s.List,
	)
	app.Get(Path+"/effective",
		auth.RequirePermission(authService, perm.PasswordPolicyView),
		s.Effective,
	)
	// password validation needs no admin permission: any authenticated
	// member may check a candidate against their own effective policy
	app.Post(Path+"/validate", s.Validate)
	app.Get(Path+"/:id",
		auth.RequirePermission(authService, perm.PasswordPolicyView),
		s.Get,
	)
	app.Post(Path,
		auth.RequirePermission(authService, perm.PasswordPolicyManage),
		s.Create,
	)
	app.Put(Path+"/:id",
		auth.RequirePermission(authService, perm.PasswordPolicyManage),
		s.Update,
	)
	app.Delete(Path+"/:id",
		auth.RequirePermission(authService, perm.PasswordPolicyManage),
		s.Delete,
	)
}

// List handles GET /password-policies. Tenant-scoped callers see their own
// policies plus the global ones.
func (s *Service) List(c *fiber.Ctx) error {
	var makerspaceID *string
	if principal := auth.PrincipalFrom(c); principal != nil {
		makerspaceID = principal.MakerspaceID
	}

	policies, err := controller.List(s.db, makerspaceID)
	if err != nil {
		log.Error().Err(err).Msg("failed to list password policies")

		return handler.JSONError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return c.JSON(fiber.Map{"policies": policies, "total": len(policies)})
}

// Effective handles GET /password-policies/effective: the policy actually
// governing the caller's makerspace after fallback resolution.
func (s *Service) Effective(c *fiber.Ctx) error {
	var makerspaceID *string
	if principal := auth.PrincipalFrom(c); principal != nil {
		makerspaceID = principal.MakerspaceID
	}

	pol, err := controller.EffectiveFor(s.db, makerspaceID)
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve effective policy")

		return handler.JSONError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return c.JSON(pol)
}

// Get handles GET /password-policies/:id.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, "invalid policy id")
	}

	pol, err := controller.Get(s.db, id)
	if err != nil {
		return statusFor(c, err)
	}

	return c.JSON(pol)
}

// Create handles POST /password-policies. Tenant-scoped callers can only
// create policies for their own makerspace.
func (s *Service) Create(c *fiber.Ctx) error {
	// Parse over the built-in defaults so omitted fields keep sane values.
	defaults := models.DefaultPasswordPolicy()
	defaults.Name = ""

	pol := &defaults
	if err := c.BodyParser(pol); err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if principal := auth.PrincipalFrom(c); principal != nil && principal.MakerspaceID != nil {
		pol.MakerspaceID = principal.MakerspaceID
	}

	pol.ID = 0
	pol.IsActive = true

	if err := controller.Create(s.db, pol); err != nil {
		return statusFor(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(pol)
}

// Update handles PUT /password-policies/:id.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, "invalid policy id")
	}

	updated := new(models.PasswordPolicy)
	if err := c.BodyParser(updated); err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, "invalid request body")
	}

	pol, err := controller.Update(s.db, id, updated)
	if err != nil {
		return statusFor(c, err)
	}

	return c.JSON(pol)
}

// Delete handles DELETE /password-policies/:id.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, "invalid policy id")
	}

	if err := controller.Delete(s.db, id); err != nil {
		return statusFor(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

type validateRequest struct {
	Password string `json:"password" validate:"required"`
}

// Validate handles POST /password-policies/validate: checks a candidate
// password against the caller's effective policy without storing anything.
func (s *Service) Validate(c *fiber.Ctx) error {
	req := new(validateRequest)
	if err := c.BodyParser(req); err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := s.validator.Struct(req); err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, "password is required")
	}

	var makerspaceID *string
	if principal := auth.PrincipalFrom(c); principal != nil {
		makerspaceID = principal.MakerspaceID
	}

	pol, err := controller.EffectiveFor(s.db, makerspaceID)
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve effective policy")

		return handler.JSONError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return c.JSON(password.Validate(req.Password, pol))
}

func parseID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)

	return uint(id), err
}

func statusFor(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, controller.ErrPolicyNotFound):
		return handler.JSONError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, controller.ErrNameEmpty),
		errors.Is(err, controller.ErrLengthBounds):
		return handler.JSONError(c, fiber.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Msg("password policy operation failed")

		return handler.JSONError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
