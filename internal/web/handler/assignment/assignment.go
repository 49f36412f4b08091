// Package assignment exposes the role grant and revoke endpoints, single
// and bulk.
package assignment

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/makrcave/makrcave-access/internal/auth"
	"github.com/makrcave/makrcave-access/internal/auth/perm"
	"github.com/makrcave/makrcave-access/internal/config"
	controller "github.com/makrcave/makrcave-access/internal/db/controller/assignment"
	"github.com/makrcave/makrcave-access/internal/db/controller/role"
	"github.com/makrcave/makrcave-access/internal/web/handler"
)

// Path is the base path of the assignment endpoints.
const Path = handler.RootPath + "/assignments"

// Service is the assignment handler service.
type Service struct {
	handler.Service
	cfg       *config.Config
	db        *gorm.DB
	validator *validator.Validate
}

// Handler is the assignment handler.
var Handler = Service{}

// Init initializes the assignment handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg
	s.validator = validator.New()

	app.Post(Path,
		auth.RequirePermission(authService, perm.RolesAssign),
		s.Assign,
	)
	app.Post(Path+"/revoke",
		auth.RequirePermission(authService, perm.RolesAssign),
		s.Revoke,
	)
	app.Post(Path+"/bulk",
		auth.RequirePermission(authService, perm.RolesAssign),
		s.BulkAssign,
	)
	app.Post(Path+"/bulk-revoke",
		auth.RequirePermission(authService, perm.RolesAssign),
		s.BulkRevoke,
	)
}

type changeRequest struct {
	MemberID      uint64     `json:"member_id" validate:"required"`
	RoleID        uint       `json:"role_id" validate:"required"`
	Reason        string     `json:"reason"`
	EffectiveDate *time.Time `json:"effective_date"`
	ExpiryDate    *time.Time `json:"expiry_date"`
}

type bulkRequest struct {
	Changes []changeRequest `json:"changes" validate:"required,min=1,dive"`
	Reason  string          `json:"reason"`
}

func (s *Service) toChange(c *fiber.Ctx, req changeRequest) controller.Change {
	change := controller.Change{
		MemberID:      req.MemberID,
		RoleID:        req.RoleID,
		Reason:        req.Reason,
		EffectiveDate: req.EffectiveDate,
		ExpiryDate:    req.ExpiryDate,
	}

	if principal := auth.PrincipalFrom(c); principal != nil {
		change.ModifiedBy = principal.MemberID
	}

	return change
}

// Assign handles POST /assignments: grants one role to one member and
// writes the audit entry in the same transaction.
func (s *Service) Assign(c *fiber.Ctx) error {
	req := new(changeRequest)
	if err := c.BodyParser(req); err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := s.validator.Struct(req); err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := controller.Assign(s.db, s.toChange(c, *req)); err != nil {
		return statusFor(c, err)
	}

	return c.SendStatus(fiber.StatusCreated)
}

// Revoke handles POST /assignments/revoke: removes one role from one member
// with its audit entry.
func (s *Service) Revoke(c *fiber.Ctx) error {
	req := new(changeRequest)
	if err := c.BodyParser(req); err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := s.validator.Struct(req); err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := controller.Revoke(s.db, s.toChange(c, *req)); err != nil {
		return statusFor(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// BulkAssign handles POST /assignments/bulk: applies every grant
// independently and reports per-pair outcomes with 200 regardless of
// individual failures.
func (s *Service) BulkAssign(c *fiber.Ctx) error {
	req := new(bulkRequest)
	if err := c.BodyParser(req); err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := s.validator.Struct(req); err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, err.Error())
	}

	changes := make([]controller.Change, 0, len(req.Changes))
	for _, cr := range req.Changes {
		if cr.Reason == "" {
			cr.Reason = req.Reason
		}

		changes = append(changes, s.toChange(c, cr))
	}

	results, err := controller.BulkAssign(s.db, changes)
	if err != nil {
		log.Error().Err(err).Msg("bulk assign failed")

		return handler.JSONError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return c.JSON(fiber.Map{"results": results})
}

// BulkRevoke handles POST /assignments/bulk-revoke.
func (s *Service) BulkRevoke(c *fiber.Ctx) error {
	req := new(bulkRequest)
	if err := c.BodyParser(req); err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := s.validator.Struct(req); err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, err.Error())
	}

	changes := make([]controller.Change, 0, len(req.Changes))
	for _, cr := range req.Changes {
		if cr.Reason == "" {
			cr.Reason = req.Reason
		}

		changes = append(changes, s.toChange(c, cr))
	}

	results, err := controller.BulkRevoke(s.db, changes)
	if err != nil {
		log.Error().Err(err).Msg("bulk revoke failed")

		return handler.JSONError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return c.JSON(fiber.Map{"results": results})
}

func statusFor(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, controller.ErrMemberNotFound),
		errors.Is(err, role.ErrRoleNotFound):
		return handler.JSONError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, controller.ErrAlreadyAssigned):
		return handler.JSONError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, controller.ErrNotAssigned),
		errors.Is(err, role.ErrRoleNotAssignable),
		errors.Is(err, role.ErrRoleInactive),
		errors.Is(err, role.ErrMakerspaceMismatch),
		errors.Is(err, role.ErrMaxAssignmentsReached),
		errors.Is(err, role.ErrMembershipPlanExcluded):
		return handler.JSONError(c, fiber.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Msg("assignment operation failed")

		return handler.JSONError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
