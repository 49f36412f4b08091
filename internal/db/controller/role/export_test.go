package role

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makrcave/makrcave-access/internal/db/models"
)

func TestExportImportRole(t *testing.T) {
	db := setupTestDB(t)
	seedPermissions(t, db, "p.a", "p.b")

	parent := createRole(t, db, "Parent", nil, "p.a")
	child := createRole(t, db, "Child", &parent.ID, "p.b")

	exported, err := ExportRole(db, child.ID)
	require.NoError(t, err)

	assert.Equal(t, "Child", exported.Name)
	assert.Equal(t, "Parent", exported.ParentRoleName)
	assert.Equal(t, []string{"p.b"}, exported.Permissions)

	t.Run("import into another scope", func(t *testing.T) {
		ms := "ms-1"
		imported, err := ImportRole(db, exported, &ms)
		require.NoError(t, err)

		assert.Equal(t, "Child", imported.Name)
		require.NotNil(t, imported.MakerspaceID)
		assert.Equal(t, ms, *imported.MakerspaceID)
		// parent lives in the global scope, not ms-1, so the edge is dropped
		assert.Nil(t, imported.ParentRoleID)

		codes, err := DirectPermissions(db, imported.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"p.b"}, codes)
	})

	t.Run("import with resolvable parent", func(t *testing.T) {
		ms := "ms-2"
		importedParent, err := ImportRole(db, &Export{Name: "Parent"}, &ms)
		require.NoError(t, err)

		imported, err := ImportRole(db, exported, &ms)
		require.NoError(t, err)
		require.NotNil(t, imported.ParentRoleID)
		assert.Equal(t, importedParent.ID, *imported.ParentRoleID)
	})

	t.Run("import keeps the unassignable flag", func(t *testing.T) {
		ms := "ms-3"
		locked := Export{Name: "Locked", IsAssignable: false}

		imported, err := ImportRole(db, &locked, &ms)
		require.NoError(t, err)

		stored, err := Get(db, imported.ID)
		require.NoError(t, err)
		assert.False(t, stored.IsAssignable, "stored role must stay unassignable")
		assert.ErrorIs(t, CanAssignTo(db, stored, &models.Member{}), ErrRoleNotAssignable)
	})

	t.Run("name collision in scope", func(t *testing.T) {
		_, err := ImportRole(db, exported, nil)
		assert.ErrorIs(t, err, ErrImportNameTaken)
	})

	t.Run("unknown permission codename", func(t *testing.T) {
		bad := Export{Name: "Bad", Permissions: []string{"p.bogus"}}
		_, err := ImportRole(db, &bad, nil)
		assert.ErrorIs(t, err, ErrUnknownCodename)
	})
}
