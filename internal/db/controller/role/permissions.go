package role

import (
	"errors"

	"gorm.io/gorm"

	"github.com/makrcave/makrcave-access/internal/db/models"
)

// ErrUnknownCodename is returned when a permission codename does not exist
// in the catalog.
var ErrUnknownCodename = errors.New("unknown permission codename")

// SetPermissions replaces the role's direct permission set with exactly the
// given codenames, atomically. Unknown codenames fail the whole call before
// anything changes.
func SetPermissions(db *gorm.DB, roleID uint, codenames []string) error {
	if db == nil {
		return ErrDBNil
	}

	if _, err := Get(db, roleID); err != nil {
		return err
	}

	ids, err := resolveCodenames(db, codenames)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(whereRoleID, roleID).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}

		for _, permID := range ids {
			rp := models.RolePermission{RoleID: roleID, PermissionID: permID}
			if err := tx.Create(&rp).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// AddPermission grants one permission to the role. Granting an already held
// permission is a no-op.
func AddPermission(db *gorm.DB, roleID uint, codename string) error {
	if db == nil {
		return ErrDBNil
	}

	if _, err := Get(db, roleID); err != nil {
		return err
	}

	ids, err := resolveCodenames(db, []string{codename})
	if err != nil {
		return err
	}

	var count int64
	err = db.Model(&models.RolePermission{}).
		Where("role_id = ? AND permission_id = ?", roleID, ids[0]).
		Count(&count).Error
	if err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	rp := models.RolePermission{RoleID: roleID, PermissionID: ids[0]}

	return db.Create(&rp).Error
}

// RemovePermission revokes one direct permission from the role. Removing a
// permission the role does not hold is a no-op; an inherited permission
// cannot be removed here and stays effective.
func RemovePermission(db *gorm.DB, roleID uint, codename string) error {
	if db == nil {
		return ErrDBNil
	}

	if _, err := Get(db, roleID); err != nil {
		return err
	}

	ids, err := resolveCodenames(db, []string{codename})
	if err != nil {
		return err
	}

	return db.Where("role_id = ? AND permission_id = ?", roleID, ids[0]).
		Delete(&models.RolePermission{}).Error
}

// resolveCodenames maps codenames to permission IDs, failing on the first
// unknown one.
func resolveCodenames(db *gorm.DB, codenames []string) ([]uint, error) {
	ids := make([]uint, 0, len(codenames))

	for _, code := range codenames {
		var perm models.Permission
		result := db.Where("codename = ?", code).First(&perm)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return nil, ErrUnknownCodename
			}
			return nil, result.Error
		}

		ids = append(ids, perm.ID)
	}

	return ids, nil
}
