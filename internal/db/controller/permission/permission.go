// Package permission provides CRUD operations for the permission catalog.
package permission

import (
	"errors"

	"gorm.io/gorm"

	"github.com/makrcave/makrcave-access/internal/db/models"
)

const (
	codenameQueryPattern = "codename = ?"
)

var (
	// ErrPermissionNotFound is returned when a permission is not found.
	ErrPermissionNotFound = errors.New("permission not found")
	// ErrCodenameEmpty is returned when creating a permission with an empty codename.
	ErrCodenameEmpty = errors.New("permission codename cannot be empty")
	// ErrCodenameExists is returned when the codename is already taken.
	ErrCodenameExists = errors.New("permission with this codename already exists")
	// ErrSystemPermission is returned on attempts to delete a system
	// permission or change its codename.
	ErrSystemPermission = errors.New("system permissions cannot be deleted or have their codename changed")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// ListFilter narrows List results.
type ListFilter struct {
	Search      string
	AccessScope models.AccessScope
	ActiveOnly  bool
	Limit       int
	Offset      int
}

// Get retrieves a permission by its ID.
func Get(db *gorm.DB, id uint) (*models.Permission, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var perm models.Permission
	result := db.First(&perm, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrPermissionNotFound
		}
		return nil, result.Error
	}

	return &perm, nil
}

// GetByCodename retrieves a permission by its stable codename.
func GetByCodename(db *gorm.DB, codename string) (*models.Permission, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if codename == "" {
		return nil, ErrCodenameEmpty
	}

	var perm models.Permission
	result := db.Where(codenameQueryPattern, codename).First(&perm)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrPermissionNotFound
		}
		return nil, result.Error
	}

	return &perm, nil
}

// List retrieves permissions matching the filter, newest first, with the
// total count before pagination.
func List(db *gorm.DB, filter ListFilter) ([]models.Permission, int64, error) {
	if db == nil {
		return nil, 0, ErrDBNil
	}

	var (
		perms []models.Permission
		total int64
		tx    = db.Model(&models.Permission{})
	)

	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		tx = tx.Where("codename LIKE ? OR name LIKE ? OR description LIKE ?", like, like, like)
	}

	if filter.AccessScope != "" {
		tx = tx.Where("access_scope = ?", filter.AccessScope)
	}

	if filter.ActiveOnly {
		tx = tx.Where("is_active = ?", true)
	}

	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		tx = tx.Limit(filter.Limit).Offset(filter.Offset)
	}

	if err := tx.Order("id DESC").Find(&perms).Error; err != nil {
		return nil, 0, err
	}

	return perms, total, nil
}

// Create creates a new custom permission. The codename must be unused.
func Create(db *gorm.DB, perm *models.Permission) error {
	if db == nil {
		return ErrDBNil
	}
	if perm.Codename == "" {
		return ErrCodenameEmpty
	}

	var existing models.Permission
	result := db.Where(codenameQueryPattern, perm.Codename).First(&existing)
	if result.Error == nil {
		return ErrCodenameExists
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return result.Error
	}

	return db.Create(perm).Error
}

// Update applies changes to an existing permission. Changing the codename of
// a system permission is rejected; other fields of system permissions stay
// editable (descriptions get corrected in place in practice).
func Update(db *gorm.DB, id uint, updated *models.Permission) (*models.Permission, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	perm, err := Get(db, id)
	if err != nil {
		return nil, err
	}

	if perm.IsSystem && updated.Codename != "" && updated.Codename != perm.Codename {
		return nil, ErrSystemPermission
	}

	if updated.Codename != "" && updated.Codename != perm.Codename {
		var existing models.Permission
		result := db.Where(codenameQueryPattern, updated.Codename).First(&existing)
		if result.Error == nil {
			return nil, ErrCodenameExists
		}
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, result.Error
		}

		perm.Codename = updated.Codename
	}

	if updated.Name != "" {
		perm.Name = updated.Name
	}

	perm.Description = updated.Description
	if updated.AccessScope != "" {
		perm.AccessScope = updated.AccessScope
	}

	perm.IsActive = updated.IsActive
	perm.RequiresTwoFactor = updated.RequiresTwoFactor
	perm.ResourceRestrictions = updated.ResourceRestrictions

	if err := db.Save(perm).Error; err != nil {
		return nil, err
	}

	return perm, nil
}

// Delete deletes a custom permission by ID. System permissions are immutable
// and survive any delete attempt.
func Delete(db *gorm.DB, id uint) error {
	if db == nil {
		return ErrDBNil
	}

	perm, err := Get(db, id)
	if err != nil {
		return err
	}

	if perm.IsSystem {
		return ErrSystemPermission
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("permission_id = ?", id).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Permission{}, id).Error
	})
}
