// Package summary exposes the access control read models: the per-member
// access summary and platform-wide statistics.
package summary

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/makrcave/makrcave-access/internal/auth"
	"github.com/makrcave/makrcave-access/internal/auth/perm"
	"github.com/makrcave/makrcave-access/internal/config"
	"github.com/makrcave/makrcave-access/internal/db/controller/role"
	sessioncontroller "github.com/makrcave/makrcave-access/internal/db/controller/session"
	"github.com/makrcave/makrcave-access/internal/db/models"
	"github.com/makrcave/makrcave-access/internal/web/handler"
)

// Service is the summary handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	db  *gorm.DB
}

// Handler is the summary handler.
var Handler = Service{}

// Init initializes the summary handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg

	app.Get(handler.RootPath+"/members/:memberID/access-summary",
		auth.RequirePermission(authService, perm.MembersView),
		s.MemberSummary,
	)
	app.Get(handler.RootPath+"/access/stats",
		auth.RequirePermission(authService, perm.AccessStatsView),
		s.Stats,
	)
}

// roleView is the summary shape of one held role.
type roleView struct {
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	PriorityLevel int    `json:"priority_level"`
}

// MemberSummary handles GET /members/:memberID/access-summary: held roles,
// effective permissions, merged dashboard configuration and live session
// count in one read model.
func (s *Service) MemberSummary(c *fiber.Ctx) error {
	memberID, err := strconv.ParseUint(c.Params("memberID"), 10, 64)
	if err != nil {
		return handler.JSONError(c, fiber.StatusBadRequest, "invalid member id")
	}

	var member models.Member
	if err := s.db.First(&member, memberID).Error; err != nil {
		return handler.JSONError(c, fiber.StatusNotFound, "member not found")
	}

	roles, err := role.RolesOfMember(s.db, memberID)
	if err != nil {
		return s.internal(c, err, "failed to load member roles")
	}

	permissions, err := role.EffectivePermissionsForMember(s.db, memberID)
	if err != nil {
		return s.internal(c, err, "failed to resolve member permissions")
	}

	dashboard, err := role.MergedDashboardConfig(s.db, memberID)
	if err != nil {
		return s.internal(c, err, "failed to merge dashboard config")
	}

	activeSessions, err := sessioncontroller.CountActive(s.db, memberID)
	if err != nil {
		return s.internal(c, err, "failed to count sessions")
	}

	roleViews := make([]roleView, 0, len(roles))
	for _, r := range roles {
		roleViews = append(roleViews, roleView{ID: r.ID, Name: r.Name, PriorityLevel: r.PriorityLevel})
	}

	return c.JSON(fiber.Map{
		"member_id":             member.ID,
		"email":                 member.Email,
		"makerspace_id":         member.MakerspaceID,
		"active":                member.Active,
		"account_locked":        member.IsAccountLocked(),
		"two_factor_enabled":    member.TwoFactorEnabled,
		"roles":                 roleViews,
		"effective_permissions": permissions,
		"dashboard_config":      dashboard,
		"active_sessions":       activeSessions,
	})
}

// Stats handles GET /access/stats: aggregate counts across the access
// control stores, including denial counts from the last 24 hours.
func (s *Service) Stats(c *fiber.Ctx) error {
	counts := map[string]int64{}

	for name, model := range map[string]interface{}{
		"members":       &models.Member{},
		"roles":         &models.Role{},
		"permissions":   &models.Permission{},
		"assignments":   &models.MemberRole{},
		"audit_entries": &models.RoleAssignmentLog{},
	} {
		var n int64
		if err := s.db.Model(model).Count(&n).Error; err != nil {
			return s.internal(c, err, "failed to count "+name)
		}

		counts[name] = n
	}

	var activeSessions int64
	err := s.db.Model(&models.UserSession{}).
		Where("is_active = ? AND expires_at > ?", true, time.Now()).
		Count(&activeSessions).Error
	if err != nil {
		return s.internal(c, err, "failed to count sessions")
	}

	var lockedMembers int64
	err = s.db.Model(&models.Member{}).
		Where("account_locked = ?", true).
		Count(&lockedMembers).Error
	if err != nil {
		return s.internal(c, err, "failed to count locked members")
	}

	since := time.Now().Add(-24 * time.Hour)

	var recentDenials int64
	err = s.db.Model(&models.AccessLog{}).
		Where("granted = ? AND created_at >= ?", false, since).
		Count(&recentDenials).Error
	if err != nil {
		return s.internal(c, err, "failed to count denials")
	}

	return c.JSON(fiber.Map{
		"members":          counts["members"],
		"roles":            counts["roles"],
		"permissions":      counts["permissions"],
		"assignments":      counts["assignments"],
		"audit_entries":    counts["audit_entries"],
		"active_sessions":  activeSessions,
		"locked_members":   lockedMembers,
		"denials_last_24h": recentDenials,
	})
}

func (s *Service) internal(c *fiber.Ctx, err error, msg string) error {
	log.Error().Err(err).Msg(msg)

	return handler.JSONError(c, fiber.StatusInternalServerError, "internal server error")
}
