package daemon

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/makrcave/makrcave-access/internal/config"
	"github.com/makrcave/makrcave-access/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	require.NoError(t, db.AutoMigrate(
		&models.Member{},
		&models.Permission{},
		&models.Role{},
		&models.RolePermission{},
		&models.MemberRole{},
		&models.RoleAssignmentLog{},
		&models.UserSession{},
		&models.PasswordPolicy{},
		&models.AccessLog{},
	), "failed to migrate test database")

	return db
}

func TestSeedBootstrapAdmin(t *testing.T) {
	db := setupTestDB(t)

	cfg := &config.Config{}
	cfg.Bootstrap.AdminEmail = "root@example.com"
	cfg.Bootstrap.AdminPassword = "Bootstrap-Pass1"

	require.NoError(t, seed(cfg, db))

	var admin models.Member
	require.NoError(t, db.Where("email = ?", "root@example.com").First(&admin).Error)
	assert.True(t, admin.Active)
	assert.Equal(t, "admin", admin.Username)

	var superAdmin models.Role
	require.NoError(t, db.Where("name = ?", "Super Admin").First(&superAdmin).Error)

	var grant models.MemberRole
	require.NoError(t, db.Where("member_id = ? AND role_id = ?", admin.ID, superAdmin.ID).
		First(&grant).Error)
	assert.Equal(t, admin.ID, grant.AssignedBy)

	t.Run("bootstrap grant is in the audit ledger", func(t *testing.T) {
		var entries []models.RoleAssignmentLog
		require.NoError(t, db.Find(&entries).Error)
		require.Len(t, entries, 1)

		entry := entries[0]
		assert.Equal(t, models.ActionAssigned, entry.Action)
		assert.Equal(t, admin.ID, entry.MemberID)
		assert.Equal(t, admin.ID, entry.ModifiedBy)
		assert.Equal(t, superAdmin.ID, entry.RoleID)
		assert.Empty(t, entry.PreviousPermissions)
		assert.NotEmpty(t, entry.NewPermissions, "snapshot must hold the granted permission set")
	})

	t.Run("reseed is a no-op once members exist", func(t *testing.T) {
		require.NoError(t, seed(cfg, db))

		var members int64
		require.NoError(t, db.Model(&models.Member{}).Count(&members).Error)
		assert.EqualValues(t, 1, members)

		var entries int64
		require.NoError(t, db.Model(&models.RoleAssignmentLog{}).Count(&entries).Error)
		assert.EqualValues(t, 1, entries)
	})
}
