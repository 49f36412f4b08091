// Package auditlog exposes the role assignment ledger: filtered queries and
// JSON/CSV export.
package auditlog

import (
	"bytes"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/makrcave/makrcave-access/internal/auth"
	"github.com/makrcave/makrcave-access/internal/auth/perm"
	"github.com/makrcave/makrcave-access/internal/config"
	"github.com/makrcave/makrcave-access/internal/db/controller/assignment"
	"github.com/makrcave/makrcave-access/internal/db/models"
	"github.com/makrcave/makrcave-access/internal/web/handler"
)

// Path is the base path of the audit log endpoints.
const Path = handler.RootPath + "/audit/assignments"

// Service is the audit log handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	db  *gorm.DB
}

// Handler is the audit log handler.
var Handler = Service{}

// Init initializes the audit log handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg

	app.Get(Path,
		auth.RequirePermission(authService, perm.AuditLogView),
		s.List,
	)
	app.Get(Path+"/export",
		auth.RequirePermission(authService, perm.AuditLogExport),
		s.Export,
	)
}

func filterFromQuery(c *fiber.Ctx) assignment.LogFilter {
	filter := assignment.LogFilter{
		Action: models.AssignmentAction(c.Query("action")),
		Limit:  c.QueryInt("limit"),
		Offset: c.QueryInt("offset"),
	}

	if memberID, err := strconv.ParseUint(c.Query("member_id"), 10, 64); err == nil {
		filter.MemberID = memberID
	}

	if roleID, err := strconv.ParseUint(c.Query("role_id"), 10, 32); err == nil {
		filter.RoleID = uint(roleID)
	}

	if from, err := time.Parse(time.RFC3339, c.Query("from")); err == nil {
		filter.From = &from
	}

	if to, err := time.Parse(time.RFC3339, c.Query("to")); err == nil {
		filter.To = &to
	}

	return filter
}

// List handles GET /audit/assignments with member, role, action and time
// range filters.
func (s *Service) List(c *fiber.Ctx) error {
	entries, total, err := assignment.ListLog(s.db, filterFromQuery(c))
	if err != nil {
		log.Error().Err(err).Msg("failed to query assignment log")

		return handler.JSONError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return c.JSON(fiber.Map{"entries": entries, "total": total})
}

// Export handles GET /audit/assignments/export?format=json|csv. CSV is the
// default; the same filters as List apply.
func (s *Service) Export(c *fiber.Ctx) error {
	filter := filterFromQuery(c)

	if c.Query("format") == "json" {
		entries, _, err := assignment.ListLog(s.db, filter)
		if err != nil {
			log.Error().Err(err).Msg("failed to export assignment log")

			return handler.JSONError(c, fiber.StatusInternalServerError, "internal server error")
		}

		c.Set(fiber.HeaderContentDisposition, `attachment; filename="assignment-log.json"`)

		return c.JSON(entries)
	}

	var buf bytes.Buffer
	if err := assignment.WriteCSV(s.db, &buf, filter); err != nil {
		log.Error().Err(err).Msg("failed to export assignment log")

		return handler.JSONError(c, fiber.StatusInternalServerError, "internal server error")
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="assignment-log.csv"`)

	return c.Send(buf.Bytes())
}
