package permission

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/makrcave/makrcave-access/internal/auth/perm"
	"github.com/makrcave/makrcave-access/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	err = db.AutoMigrate(&models.Permission{}, &models.RolePermission{})
	require.NoError(t, err, "failed to migrate test database")

	return db
}

func TestCreate(t *testing.T) {
	db := setupTestDB(t)

	testCases := []struct {
		name          string
		dbParam       *gorm.DB
		permission    models.Permission
		expectedError error
	}{
		{
			name:          "nil database",
			dbParam:       nil,
			permission:    models.Permission{Codename: "x"},
			expectedError: ErrDBNil,
		},
		{
			name:          "empty codename",
			dbParam:       db,
			permission:    models.Permission{Name: "No Code"},
			expectedError: ErrCodenameEmpty,
		},
		{
			name:    "successful create",
			dbParam: db,
			permission: models.Permission{
				Name:        "Operate Laser",
				Codename:    "operate_laser",
				AccessScope: models.ScopeMakerspace,
				IsActive:    true,
			},
		},
		{
			name:          "duplicate codename",
			dbParam:       db,
			permission:    models.Permission{Name: "Again", Codename: "operate_laser"},
			expectedError: ErrCodenameExists,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := tc.permission
			err := Create(tc.dbParam, &p)
			if tc.expectedError != nil {
				assert.ErrorIs(t, err, tc.expectedError)
			} else {
				assert.NoError(t, err)
				assert.NotZero(t, p.ID)
			}
		})
	}
}

func TestGetByCodename(t *testing.T) {
	db := setupTestDB(t)

	p := models.Permission{Name: "Operate Laser", Codename: "operate_laser", IsActive: true}
	require.NoError(t, Create(db, &p))

	got, err := GetByCodename(db, "operate_laser")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = GetByCodename(db, "does_not_exist")
	assert.ErrorIs(t, err, ErrPermissionNotFound)

	_, err = GetByCodename(db, "")
	assert.ErrorIs(t, err, ErrCodenameEmpty)
}

func TestUpdate(t *testing.T) {
	db := setupTestDB(t)

	system := models.Permission{Name: "Sys", Codename: "sys_code", IsSystem: true, IsActive: true}
	require.NoError(t, db.Create(&system).Error)

	custom := models.Permission{Name: "Custom", Codename: "custom_code", IsActive: true}
	require.NoError(t, db.Create(&custom).Error)

	t.Run("system codename is immutable", func(t *testing.T) {
		_, err := Update(db, system.ID, &models.Permission{Codename: "renamed"})
		assert.ErrorIs(t, err, ErrSystemPermission)
	})

	t.Run("system description stays editable", func(t *testing.T) {
		updated, err := Update(db, system.ID, &models.Permission{
			Codename:    "sys_code",
			Description: "clarified",
			IsActive:    true,
		})
		require.NoError(t, err)
		assert.Equal(t, "clarified", updated.Description)
	})

	t.Run("codename conflict", func(t *testing.T) {
		_, err := Update(db, custom.ID, &models.Permission{Codename: "sys_code"})
		assert.ErrorIs(t, err, ErrCodenameExists)
	})

	t.Run("successful rename", func(t *testing.T) {
		updated, err := Update(db, custom.ID, &models.Permission{Codename: "custom_code_v2", IsActive: true})
		require.NoError(t, err)
		assert.Equal(t, "custom_code_v2", updated.Codename)
	})
}

func TestDelete(t *testing.T) {
	db := setupTestDB(t)

	system := models.Permission{Name: "Sys", Codename: "sys_code", IsSystem: true}
	require.NoError(t, db.Create(&system).Error)

	custom := models.Permission{Name: "Custom", Codename: "custom_code"}
	require.NoError(t, db.Create(&custom).Error)
	require.NoError(t, db.Create(&models.RolePermission{RoleID: 1, PermissionID: custom.ID}).Error)

	t.Run("system permission survives delete", func(t *testing.T) {
		err := Delete(db, system.ID)
		assert.ErrorIs(t, err, ErrSystemPermission)
	})

	t.Run("delete cascades role grants", func(t *testing.T) {
		require.NoError(t, Delete(db, custom.ID))

		_, err := Get(db, custom.ID)
		assert.ErrorIs(t, err, ErrPermissionNotFound)

		var grants int64
		require.NoError(t, db.Model(&models.RolePermission{}).
			Where("permission_id = ?", custom.ID).Count(&grants).Error)
		assert.Zero(t, grants)
	})
}

func TestList(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, SeedDefaults(db))

	t.Run("all", func(t *testing.T) {
		perms, total, err := List(db, ListFilter{})
		require.NoError(t, err)
		assert.Len(t, perms, len(defaultCatalog))
		assert.EqualValues(t, len(defaultCatalog), total)
	})

	t.Run("by scope", func(t *testing.T) {
		perms, _, err := List(db, ListFilter{AccessScope: models.ScopeSelf})
		require.NoError(t, err)
		for _, p := range perms {
			assert.Equal(t, models.ScopeSelf, p.AccessScope)
		}
		assert.NotEmpty(t, perms)
	})

	t.Run("search", func(t *testing.T) {
		perms, _, err := List(db, ListFilter{Search: "audit"})
		require.NoError(t, err)
		assert.Len(t, perms, 2)
	})

	t.Run("paginated", func(t *testing.T) {
		perms, total, err := List(db, ListFilter{Limit: 5})
		require.NoError(t, err)
		assert.Len(t, perms, 5)
		assert.EqualValues(t, len(defaultCatalog), total)
	})
}

func TestSeedDefaults(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, SeedDefaults(db))

	var count int64
	require.NoError(t, db.Model(&models.Permission{}).Count(&count).Error)
	assert.EqualValues(t, len(defaultCatalog), count)

	// edits survive re-seeding
	seeded, err := GetByCodename(db, perm.RolesManage)
	require.NoError(t, err)
	assert.True(t, seeded.IsSystem)
	assert.True(t, seeded.RequiresTwoFactor)

	seeded.Description = "edited by admin"
	require.NoError(t, db.Save(seeded).Error)

	require.NoError(t, SeedDefaults(db))

	again, err := GetByCodename(db, perm.RolesManage)
	require.NoError(t, err)
	assert.Equal(t, "edited by admin", again.Description)

	require.NoError(t, db.Model(&models.Permission{}).Count(&count).Error)
	assert.EqualValues(t, len(defaultCatalog), count)
}
