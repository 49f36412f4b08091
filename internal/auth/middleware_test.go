package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/makrcave/makrcave-access/internal/db/models"
)

func newGuardedApp(t *testing.T) (*fiber.App, *Service, *gorm.DB) {
	t.Helper()

	service, db := newTestService(t)

	app := fiber.New()
	app.Use("/api", Middleware(service, "/api/open"))
	app.Get("/api/open", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/api/anyone", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/api/guarded", RequirePermission(service, "operate_laser"),
		func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/api/either", RequireAnyPermission(service, "operate_laser", "view_equipment"),
		func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/api/vault", RequirePermission(service, "manage_vault"),
		func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	return app, service, db
}

func perform(t *testing.T, app *fiber.App, target, token string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err, "app.Test failed")

	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func loginSession(t *testing.T, service *Service, db *gorm.DB, email string, codenames ...string) (*models.Member, *models.UserSession) {
	t.Helper()

	member := seedMember(t, db, email, "pw-Valid7")

	if len(codenames) > 0 {
		r := models.Role{Name: email + "-role", IsActive: true}
		require.NoError(t, db.Create(&r).Error)

		for _, code := range codenames {
			perm := models.Permission{Name: code, Codename: code, IsActive: true}
			require.NoError(t, db.Create(&perm).Error)
			require.NoError(t, db.Create(&models.RolePermission{RoleID: r.ID, PermissionID: perm.ID}).Error)
		}

		require.NoError(t, db.Create(&models.MemberRole{MemberID: member.ID, RoleID: r.ID}).Error)
	}

	_, sess, err := service.Login(LoginRequest{Email: email, Password: "pw-Valid7"})
	require.NoError(t, err)

	return member, sess
}

func TestMiddleware(t *testing.T) {
	app, service, db := newGuardedApp(t)

	t.Run("skip path passes through", func(t *testing.T) {
		resp := perform(t, app, "/api/open", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("missing token", func(t *testing.T) {
		resp := perform(t, app, "/api/anyone", "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("unknown token", func(t *testing.T) {
		resp := perform(t, app, "/api/anyone", "bogus")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("valid session", func(t *testing.T) {
		_, sess := loginSession(t, service, db, "a@x.y")

		resp := perform(t, app, "/api/anyone", sess.SessionToken)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("expired session rejected despite active flag", func(t *testing.T) {
		_, sess := loginSession(t, service, db, "b@x.y")
		require.NoError(t, db.Model(&models.UserSession{}).
			Where("id = ?", sess.ID).
			Update("expires_at", time.Now().Add(-time.Minute)).Error)

		resp := perform(t, app, "/api/anyone", sess.SessionToken)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("deactivated member rejected", func(t *testing.T) {
		member, sess := loginSession(t, service, db, "c@x.y")
		require.NoError(t, db.Model(&models.Member{}).
			Where("id = ?", member.ID).
			Update("active", false).Error)

		resp := perform(t, app, "/api/anyone", sess.SessionToken)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestRequirePermission(t *testing.T) {
	app, service, db := newGuardedApp(t)

	t.Run("permission held", func(t *testing.T) {
		_, sess := loginSession(t, service, db, "holder@x.y", "operate_laser")

		resp := perform(t, app, "/api/guarded", sess.SessionToken)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("denial returns 403 and is logged", func(t *testing.T) {
		member, sess := loginSession(t, service, db, "plain@x.y")

		resp := perform(t, app, "/api/guarded", sess.SessionToken)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		var entry models.AccessLog
		require.NoError(t, db.Where("member_id = ?", member.ID).First(&entry).Error)
		assert.False(t, entry.Granted)
		assert.Equal(t, "operate_laser", entry.PermissionCode)
		assert.Equal(t, "/api/guarded", entry.Path)
	})

	t.Run("two-factor flagged permission needs verified session", func(t *testing.T) {
		_, sess := loginSession(t, service, db, "2fa@x.y", "manage_vault")

		require.NoError(t, db.Model(&models.Permission{}).
			Where("codename = ?", "manage_vault").
			Update("requires_two_factor", true).Error)

		resp := perform(t, app, "/api/vault", sess.SessionToken)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		// a 2FA verified session passes
		require.NoError(t, db.Model(&models.UserSession{}).
			Where("id = ?", sess.ID).
			Update("two_factor_verified", true).Error)

		resp = perform(t, app, "/api/vault", sess.SessionToken)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestRequireAnyPermission(t *testing.T) {
	app, service, db := newGuardedApp(t)

	t.Run("one of the set suffices", func(t *testing.T) {
		_, sess := loginSession(t, service, db, "viewer@x.y", "view_equipment")

		resp := perform(t, app, "/api/either", sess.SessionToken)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("none of the set", func(t *testing.T) {
		_, sess := loginSession(t, service, db, "nobody@x.y")

		resp := perform(t, app, "/api/either", sess.SessionToken)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}
