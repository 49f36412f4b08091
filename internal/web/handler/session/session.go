// Package session exposes the session registry endpoints: listing,
// termination and sliding renewal.
package session

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/makrcave/makrcave-access/internal/auth"
	"github.com/makrcave/makrcave-access/internal/auth/perm"
	"github.com/makrcave/makrcave-access/internal/config"
	controller "github.com/makrcave/makrcave-access/internal/db/controller/session"
	"github.com/makrcave/makrcave-access/internal/db/models"
	"github.com/makrcave/makrcave-access/internal/web/handler"
)

const (
	// Path is the base path of the session endpoints.
	Path = handler.RootPath + "/sessions"

	// MembersPath is the base path of per-member session administration.
	MembersPath = handler.RootPath + "/members/:memberID/sessions"
)

// Service is the session handler service.
type Service struct {
	handler.Service
	cfg         *config.Config
	db          *gorm.DB
	authService *auth.Service
}

// Handler is the session handler.
var Handler = Service{}

// Init initializes the session handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg
	s.authService = authService

	app.Get(Path,
		auth.RequirePermission(authService, perm.SessionsViewOwn),
		s.ListOwn,
	)
	app.Post(Path+"/extend",
		auth.RequirePermission(authService, perm.SessionsViewOwn),
		s.Extend,
	)
	app.Get(MembersPath,
		auth.RequirePermission(authService, perm.SessionsManage),
		s.ListForMember,
	)
	app.Delete(MembersPath,
		auth.RequirePermission(authService, perm.SessionsManage),
		s.TerminateAll,
	)
	app.Delete(Path+"/:id",
		auth.RequirePermission(authService, perm.SessionsManage),
		s.Terminate,
	)
}

// ListOwn handles GET /sessions: the caller's live sessions.
func (s *Service) ListOwn(c *fiber.Ctx) error {
	principal := auth.PrincipalFrom(c)
	if principal == nil {
		return handler.JSONError(c, fiber.StatusUnauthorized, "authentication required")
	}

	sessions, err := controller.ListActive(s.db, principal.MemberID)
	if err != nil {
		log.Error().Err(err).Msg("failed to list sessions")

		return handler.JSONError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return c.JSON(fiber.Map{"sessions": sanitize(sessions), "total": len(sessions)})
}

// ListForMember handles GET /members/:memberID/sessions.
func (s *Service) ListForMember(c *fiber.Ctx) error {
	memberID, err := strconv.ParseUint(c.Params("memberID"), 10, 64)
	if err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, "invalid member id")
	}

	sessions, err := controller.ListActive(s.db, memberID)
	if err != nil {
		log.Error().Err(err).Msg("failed to list sessions")

		return handler.JSONError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return c.JSON(fiber.Map{"sessions": sanitize(sessions), "total": len(sessions)})
}

// Extend handles POST /sessions/extend: renews the caller's own session.
func (s *Service) Extend(c *fiber.Ctx) error {
	principal := auth.PrincipalFrom(c)
	if principal == nil {
		return handler.JSONError(c, fiber.StatusUnauthorized, "authentication required")
	}

	member, err := s.authService.GetMember(principal.MemberID)
	if err != nil {
		return handler.JSONError(c, fiber.StatusInternalServerError, "internal server error")
	}

	lifetime, err := controller.TimeoutFor(s.db, member, s.cfg.Session.TokenLifetime)
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve session lifetime")

		return handler.JSONError(c, fiber.StatusInternalServerError, "internal server error")
	}

	sess, err := controller.Extend(s.db, principal.SessionID, lifetime)
	if err != nil {
		return statusFor(c, err)
	}

	return c.JSON(fiber.Map{"expires_at": sess.ExpiresAt})
}

// Terminate handles DELETE /sessions/:id: forced termination by an
// administrator. Terminating an already ended session reports a conflict.
func (s *Service) Terminate(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, "invalid session id")
	}

	if err := controller.Terminate(s.db, id, models.EndReasonAdmin); err != nil {
		return statusFor(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// TerminateAll handles DELETE /members/:memberID/sessions: ends every live
// session of the member.
func (s *Service) TerminateAll(c *fiber.Ctx) error {
	memberID, err := strconv.ParseUint(c.Params("memberID"), 10, 64)
	if err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, "invalid member id")
	}

	ended, err := controller.TerminateAll(s.db, memberID, models.EndReasonAdmin)
	if err != nil {
		log.Error().Err(err).Msg("failed to terminate sessions")

		return handler.JSONError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return c.JSON(fiber.Map{"terminated": ended})
}

// sessionView is the client-facing session shape; the bearer token never
// leaves the server once issued.
type sessionView struct {
	ID           uint64 `json:"id"`
	IPAddress    string `json:"ip_address"`
	UserAgent    string `json:"user_agent"`
	Location     string `json:"location,omitempty"`
	LastActivity string `json:"last_activity"`
	ExpiresAt    string `json:"expires_at"`
	LoginMethod  string `json:"login_method"`
	CreatedAt    string `json:"created_at"`
}

func sanitize(sessions []models.UserSession) []sessionView {
	views := make([]sessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, sessionView{
			ID:           sess.ID,
			IPAddress:    sess.IPAddress,
			UserAgent:    sess.UserAgent,
			Location:     sess.Location,
			LastActivity: sess.LastActivity.Format(time.RFC3339),
			ExpiresAt:    sess.ExpiresAt.Format(time.RFC3339),
			LoginMethod:  sess.LoginMethod,
			CreatedAt:    sess.CreatedAt.Format(time.RFC3339),
		})
	}

	return views
}

func statusFor(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, controller.ErrSessionNotFound):
		return handler.JSONError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, controller.ErrSessionAlreadyEnded):
		return handler.JSONError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, controller.ErrSessionExpired):
		return handler.JSONError(c, fiber.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Msg("session operation failed")

		return handler.JSONError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
