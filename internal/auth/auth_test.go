package auth

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/makrcave/makrcave-access/internal/config"
	"github.com/makrcave/makrcave-access/internal/db/controller/session"
	"github.com/makrcave/makrcave-access/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

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
	require.NoError(t, err, "failed to migrate test database")

	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db := setupTestDB(t)
	cfg := config.Config{Session: config.Session{TokenLifetime: 480}}

	return NewService(db, &cfg), db
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

func TestLogin(t *testing.T) {
	service, db := newTestService(t)
	member := seedMember(t, db, "m@x.y", "correct-Horse7")

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := service.Login(LoginRequest{Email: "nobody@x.y", Password: "x"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("disabled account", func(t *testing.T) {
		disabled := models.Member{Email: "off@x.y", Username: "off", Password: models.HashPassword("pw")}
		require.NoError(t, db.Create(&disabled).Error)

		_, _, err := service.Login(LoginRequest{Email: "off@x.y", Password: "pw"})
		assert.ErrorIs(t, err, ErrAccountDisabled)
	})

	t.Run("wrong password counts toward lockout", func(t *testing.T) {
		_, _, err := service.Login(LoginRequest{Email: member.Email, Password: "wrong"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		var got models.Member
		require.NoError(t, db.First(&got, member.ID).Error)
		assert.Equal(t, 1, got.FailedLoginAttempts)
	})

	t.Run("successful login resets the counter", func(t *testing.T) {
		gotMember, sess, err := service.Login(LoginRequest{
			Email:     member.Email,
			Password:  "correct-Horse7",
			IPAddress: "10.0.0.1",
			UserAgent: "go-test",
		})
		require.NoError(t, err)

		assert.Zero(t, gotMember.FailedLoginAttempts)
		assert.True(t, sess.IsActive)
		assert.NotEmpty(t, sess.SessionToken)
		assert.Equal(t, "10.0.0.1", sess.IPAddress)
		assert.False(t, sess.TwoFactorVerified)
	})
}

func TestLoginLockout(t *testing.T) {
	service, db := newTestService(t)
	member := seedMember(t, db, "m@x.y", "correct-Horse7")

	// built-in default policy locks after 5 failures
	for i := 0; i < 5; i++ {
		_, _, err := service.Login(LoginRequest{Email: member.Email, Password: "wrong"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	t.Run("locked even with the right password", func(t *testing.T) {
		_, _, err := service.Login(LoginRequest{Email: member.Email, Password: "correct-Horse7"})
		assert.ErrorIs(t, err, ErrAccountLocked)
	})

	t.Run("lapsed lockout self-heals and persists", func(t *testing.T) {
		past := time.Now().Add(-time.Minute)
		require.NoError(t, db.Model(&models.Member{}).
			Where("id = ?", member.ID).
			Update("account_locked_until", past).Error)

		_, _, err := service.Login(LoginRequest{Email: member.Email, Password: "correct-Horse7"})
		require.NoError(t, err)

		var got models.Member
		require.NoError(t, db.First(&got, member.ID).Error)
		assert.False(t, got.AccountLocked)
		assert.Nil(t, got.AccountLockedUntil)
		assert.Zero(t, got.FailedLoginAttempts)
	})
}

func TestLoginSessionCap(t *testing.T) {
	service, db := newTestService(t)
	member := seedMember(t, db, "m@x.y", "correct-Horse7")

	pol := models.PasswordPolicy{Name: "tight", IsActive: true, MaxConcurrentSessions: 2}
	require.NoError(t, db.Create(&pol).Error)

	for i := 0; i < 2; i++ {
		_, _, err := service.Login(LoginRequest{Email: member.Email, Password: "correct-Horse7"})
		require.NoError(t, err)
	}

	_, _, err := service.Login(LoginRequest{Email: member.Email, Password: "correct-Horse7"})
	assert.ErrorIs(t, err, session.ErrSessionCapReached)
}

func TestLoginTwoFactor(t *testing.T) {
	service, db := newTestService(t)
	member := seedMember(t, db, "m@x.y", "correct-Horse7")

	guarded := models.Role{Name: "Admin", IsActive: true, RequiresTwoFactor: true}
	require.NoError(t, db.Create(&guarded).Error)
	require.NoError(t, db.Create(&models.MemberRole{MemberID: member.ID, RoleID: guarded.ID}).Error)

	t.Run("not enrolled", func(t *testing.T) {
		_, _, err := service.Login(LoginRequest{Email: member.Email, Password: "correct-Horse7"})
		assert.ErrorIs(t, err, ErrTwoFactorNotEnrolled)
	})

	secret, url, err := GenerateTOTPSecret(member.Email)
	require.NoError(t, err)
	assert.Contains(t, url, "otpauth://")

	require.NoError(t, db.Model(&models.Member{}).
		Where("id = ?", member.ID).
		Updates(map[string]interface{}{
			"two_factor_secret":  secret,
			"two_factor_enabled": true,
		}).Error)

	t.Run("code missing", func(t *testing.T) {
		_, _, err := service.Login(LoginRequest{Email: member.Email, Password: "correct-Horse7"})
		assert.ErrorIs(t, err, ErrTwoFactorRequired)
	})

	t.Run("wrong code", func(t *testing.T) {
		_, _, err := service.Login(LoginRequest{
			Email:         member.Email,
			Password:      "correct-Horse7",
			TwoFactorCode: "000000",
		})
		assert.ErrorIs(t, err, ErrInvalidTwoFactorCode)
	})

	t.Run("valid code", func(t *testing.T) {
		code, err := totp.GenerateCode(secret, time.Now())
		require.NoError(t, err)

		_, sess, err := service.Login(LoginRequest{
			Email:         member.Email,
			Password:      "correct-Horse7",
			TwoFactorCode: code,
		})
		require.NoError(t, err)
		assert.True(t, sess.TwoFactorVerified)
	})
}

func TestLogout(t *testing.T) {
	service, db := newTestService(t)
	member := seedMember(t, db, "m@x.y", "correct-Horse7")

	_, sess, err := service.Login(LoginRequest{Email: member.Email, Password: "correct-Horse7"})
	require.NoError(t, err)

	require.NoError(t, service.Logout(sess.SessionToken))

	var got models.UserSession
	require.NoError(t, db.First(&got, sess.ID).Error)
	assert.False(t, got.IsActive)
	assert.Equal(t, models.EndReasonLogout, got.EndReason)

	// idempotent, unknown tokens absorbed
	assert.NoError(t, service.Logout(sess.SessionToken))
	assert.NoError(t, service.Logout("no-such-token"))
}

func TestChangePassword(t *testing.T) {
	service, db := newTestService(t)
	member := seedMember(t, db, "m@x.y", "old-Password7")

	_, _, err := service.Login(LoginRequest{Email: member.Email, Password: "old-Password7"})
	require.NoError(t, err)

	t.Run("wrong current password", func(t *testing.T) {
		err := service.ChangePassword(member.ID, "nope", "new-Password7")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("change terminates sessions", func(t *testing.T) {
		require.NoError(t, service.ChangePassword(member.ID, "old-Password7", "new-Password7"))

		var got models.Member
		require.NoError(t, db.First(&got, member.ID).Error)
		assert.True(t, got.VerifyPassword("new-Password7"))
		assert.NotNil(t, got.PasswordChangedAt)

		var live int64
		require.NoError(t, db.Model(&models.UserSession{}).
			Where("member_id = ? AND is_active = ?", member.ID, true).
			Count(&live).Error)
		assert.Zero(t, live, "built-in policy forces logout on password change")

		_, _, err := service.Login(LoginRequest{Email: member.Email, Password: "new-Password7"})
		assert.NoError(t, err)
	})
}

func TestHasPermission(t *testing.T) {
	service, db := newTestService(t)
	member := seedMember(t, db, "m@x.y", "pw")

	perm := models.Permission{Name: "Operate Laser", Codename: "operate_laser", IsActive: true}
	require.NoError(t, db.Create(&perm).Error)

	r := models.Role{Name: "Operator", IsActive: true}
	require.NoError(t, db.Create(&r).Error)
	require.NoError(t, db.Create(&models.RolePermission{RoleID: r.ID, PermissionID: perm.ID}).Error)
	require.NoError(t, db.Create(&models.MemberRole{MemberID: member.ID, RoleID: r.ID}).Error)

	ok, err := service.HasPermission(member.ID, "operate_laser")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = service.HasPermission(member.ID, "manage_roles")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = service.HasAnyPermission(member.ID, "manage_roles", "operate_laser")
	require.NoError(t, err)
	assert.True(t, ok)
}
