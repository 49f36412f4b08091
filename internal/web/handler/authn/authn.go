// Package authn exposes the authentication endpoints: login, logout and
// password change.
package authn

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/makrcave/makrcave-access/internal/auth"
	"github.com/makrcave/makrcave-access/internal/config"
	"github.com/makrcave/makrcave-access/internal/db/controller/policy"
	"github.com/makrcave/makrcave-access/internal/db/controller/session"
	"github.com/makrcave/makrcave-access/internal/password"
	"github.com/makrcave/makrcave-access/internal/web/handler"
)

const (
	// Path is the base path of the authentication endpoints.
	Path = handler.RootPath + "/auth"

	// LoginPath is the only endpoint reachable without a bearer token.
	LoginPath = Path + "/login"
)

// Service is the authentication handler service.
type Service struct {
	handler.Service
	cfg         *config.Config
	db          *gorm.DB
	authService *auth.Service
	validator   *validator.Validate
}

// Handler is the authentication handler.
var Handler = Service{}

// Init initializes the authentication handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg
	s.authService = authService
	s.validator = validator.New()

	app.Post(LoginPath, s.Login)
	app.Post(Path+"/logout", s.Logout)
	app.Post(Path+"/password", s.ChangePassword)
	app.Get(Path+"/me", s.Me)
}

// Login handles POST /auth/login: authenticates the member and issues a
// session token.
func (s *Service) Login(c *fiber.Ctx) error {
	req := new(auth.LoginRequest)
	if err := c.BodyParser(req); err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := s.validator.Struct(req); err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, "email and password are required")
	}

	req.IPAddress = c.IP()
	req.UserAgent = c.Get(fiber.HeaderUserAgent)

	member, sess, err := s.authService.Login(*req)
	if err != nil {
		return loginError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token":      sess.SessionToken,
		"expires_at": sess.ExpiresAt,
		"member_id":  member.ID,
	})
}

// Logout handles POST /auth/logout: ends the session backing the bearer
// token. Always succeeds from the client's point of view.
func (s *Service) Logout(c *fiber.Ctx) error {
	token := strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")

	if err := s.authService.Logout(token); err != nil {
		log.Error().Err(err).Msg("logout failed")

		return handler.JSONError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// ChangePassword handles POST /auth/password: validates the new password
// against the effective policy, then rotates it. The member's other
// sessions are terminated when the policy demands it.
func (s *Service) ChangePassword(c *fiber.Ctx) error {
	principal := auth.PrincipalFrom(c)
	if principal == nil {
		return handler.JSONError(c, fiber.StatusUnauthorized, "authentication required")
	}

	req := new(changePasswordRequest)
	if err := c.BodyParser(req); err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := s.validator.Struct(req); err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, "current and new password are required")
	}

	pol, err := policy.EffectiveFor(s.db, principal.MakerspaceID)
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve effective password policy")

		return handler.JSONError(c, fiber.StatusInternalServerError, "internal server error")
	}

	result := password.Validate(req.NewPassword, pol)
	if !result.Valid {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "password does not meet policy requirements",
			"errors": result.Errors,
		})
	}

	if err := s.authService.ChangePassword(principal.MemberID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return handler.JSONError(c, fiber.StatusForbidden, "current password is incorrect")
		}

		log.Error().Err(err).Msg("password change failed")

		return handler.JSONError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Me handles GET /auth/me: returns the caller's identity and effective
// permission set.
func (s *Service) Me(c *fiber.Ctx) error {
	principal := auth.PrincipalFrom(c)
	if principal == nil {
		return handler.JSONError(c, fiber.StatusUnauthorized, "authentication required")
	}

	active, err := session.CountActive(s.db, principal.MemberID)
	if err != nil {
		log.Error().Err(err).Msg("failed to count active sessions")

		return handler.JSONError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return c.JSON(fiber.Map{
		"member_id":           principal.MemberID,
		"email":               principal.Email,
		"makerspace_id":       principal.MakerspaceID,
		"permissions":         principal.Permissions(),
		"two_factor_verified": principal.TwoFactorVerified,
		"active_sessions":     active,
	})
}

func loginError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return handler.JSONError(c, fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrAccountDisabled),
		errors.Is(err, auth.ErrAccountLocked),
		errors.Is(err, auth.ErrTwoFactorNotEnrolled):
		return handler.JSONError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, auth.ErrTwoFactorRequired),
		errors.Is(err, auth.ErrInvalidTwoFactorCode):
		return handler.JSONError(c, fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, session.ErrSessionCapReached):
		return handler.JSONError(c, fiber.StatusConflict, err.Error())
	default:
		log.Error().Err(err).Msg("login failed")

		return handler.JSONError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
