package authn

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/makrcave/makrcave-access/internal/auth"
	"github.com/makrcave/makrcave-access/internal/config"
	"github.com/makrcave/makrcave-access/internal/db/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to open sqlite in-memory db")

	err = db.AutoMigrate(
		&models.Member{},
		&models.Permission{},
		&models.Role{},
		&models.RolePermission{},
		&models.MemberRole{},
		&models.UserSession{},
		&models.PasswordPolicy{},
		&models.AccessLog{},
	)
	require.NoError(t, err, "failed to migrate models")

	return db
}

// newTestApp wires the bearer-token middleware and the authentication
// handler the same way the web service does.
func newTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	db := newTestDB(t)
	cfg := &config.Config{Session: config.Session{TokenLifetime: 480}}
	authService := auth.NewService(db, cfg)

	app := fiber.New()
	app.Use(Path, auth.Middleware(authService, LoginPath))

	var s Service
	s.Init(app, cfg, db, authService)

	return app, db
}

func seedMember(t *testing.T, db *gorm.DB, email, password string) *models.Member {
	t.Helper()

	m := models.Member{
		Active:   true,
		Email:    email,
		Username: email,
		Password: models.HashPassword(password),
	}
	require.NoError(t, db.Create(&m).Error)

	return &m
}

func performJSON(t *testing.T, app *fiber.App, method, target, token, body string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err, "app.Test failed")

	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))

	return body
}

func login(t *testing.T, app *fiber.App, email, password string) string {
	t.Helper()

	resp := performJSON(t, app, http.MethodPost, LoginPath, "",
		`{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	return token
}

func TestLogin(t *testing.T) {
	app, db := newTestApp(t)
	seedMember(t, db, "m@x.y", "correct-Horse7")

	t.Run("malformed body", func(t *testing.T) {
		resp := performJSON(t, app, http.MethodPost, LoginPath, "", "{")
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("missing fields", func(t *testing.T) {
		resp := performJSON(t, app, http.MethodPost, LoginPath, "", `{"email":"m@x.y"}`)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("wrong password", func(t *testing.T) {
		resp := performJSON(t, app, http.MethodPost, LoginPath, "",
			`{"email":"m@x.y","password":"wrong"}`)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("disabled account", func(t *testing.T) {
		off := models.Member{Email: "off@x.y", Username: "off", Password: models.HashPassword("pw")}
		require.NoError(t, db.Create(&off).Error)

		resp := performJSON(t, app, http.MethodPost, LoginPath, "",
			`{"email":"off@x.y","password":"pw"}`)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("successful login", func(t *testing.T) {
		resp := performJSON(t, app, http.MethodPost, LoginPath, "",
			`{"email":"m@x.y","password":"correct-Horse7"}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.NotEmpty(t, body["token"])
		assert.NotEmpty(t, body["expires_at"])
		assert.EqualValues(t, 1, body["member_id"])
	})
}

func TestMe(t *testing.T) {
	app, db := newTestApp(t)
	seedMember(t, db, "m@x.y", "correct-Horse7")

	t.Run("without token", func(t *testing.T) {
		resp := performJSON(t, app, http.MethodGet, Path+"/me", "", "")
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("with bogus token", func(t *testing.T) {
		resp := performJSON(t, app, http.MethodGet, Path+"/me", "bogus", "")
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("with session token", func(t *testing.T) {
		token := login(t, app, "m@x.y", "correct-Horse7")

		resp := performJSON(t, app, http.MethodGet, Path+"/me", token, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, "m@x.y", body["email"])
		assert.EqualValues(t, 1, body["active_sessions"])
	})
}

func TestLogout(t *testing.T) {
	app, db := newTestApp(t)
	seedMember(t, db, "m@x.y", "correct-Horse7")

	token := login(t, app, "m@x.y", "correct-Horse7")

	resp := performJSON(t, app, http.MethodPost, Path+"/logout", token, "")
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// the ended session no longer authenticates
	resp = performJSON(t, app, http.MethodGet, Path+"/me", token, "")
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestChangePassword(t *testing.T) {
	app, db := newTestApp(t)
	seedMember(t, db, "m@x.y", "old-Password7")

	token := login(t, app, "m@x.y", "old-Password7")

	t.Run("policy violations reported", func(t *testing.T) {
		resp := performJSON(t, app, http.MethodPost, Path+"/password", token,
			`{"current_password":"old-Password7","new_password":"weak"}`)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.NotEmpty(t, body["errors"])
	})

	t.Run("wrong current password", func(t *testing.T) {
		resp := performJSON(t, app, http.MethodPost, Path+"/password", token,
			`{"current_password":"nope","new_password":"new-Password7"}`)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("successful change ends the session", func(t *testing.T) {
		resp := performJSON(t, app, http.MethodPost, Path+"/password", token,
			`{"current_password":"old-Password7","new_password":"new-Password7"}`)
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		// built-in policy forces logout on password change
		resp = performJSON(t, app, http.MethodGet, Path+"/me", token, "")
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		login(t, app, "m@x.y", "new-Password7")
	})
}
