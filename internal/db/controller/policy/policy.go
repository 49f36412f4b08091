// Package policy manages password policies and their tenant-to-global
// fallback resolution.
package policy

import (
	"errors"

	"gorm.io/gorm"

	"github.com/makrcave/makrcave-access/internal/db/models"
)

var (
	// ErrPolicyNotFound is returned when a policy is not found.
	ErrPolicyNotFound = errors.New("password policy not found")
	// ErrNameEmpty is returned when creating a policy with an empty name.
	ErrNameEmpty = errors.New("policy name cannot be empty")
	// ErrLengthBounds is returned when the maximum length undercuts the minimum.
	ErrLengthBounds = errors.New("maximum password length cannot be less than minimum length")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Get retrieves a policy by its ID.
func Get(db *gorm.DB, id uint) (*models.PasswordPolicy, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var pol models.PasswordPolicy
	result := db.First(&pol, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrPolicyNotFound
		}
		return nil, result.Error
	}

	return &pol, nil
}

// List retrieves every policy, optionally limited to one makerspace scope
// plus global policies.
func List(db *gorm.DB, makerspaceID *string) ([]models.PasswordPolicy, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	tx := db.Model(&models.PasswordPolicy{})
	if makerspaceID != nil {
		tx = tx.Where("makerspace_id = ? OR makerspace_id IS NULL", *makerspaceID)
	}

	var policies []models.PasswordPolicy
	if err := tx.Order("created_at DESC").Find(&policies).Error; err != nil {
		return nil, err
	}

	return policies, nil
}

// Create creates a new policy after validating its internal consistency.
func Create(db *gorm.DB, pol *models.PasswordPolicy) error {
	if db == nil {
		return ErrDBNil
	}

	if err := check(pol); err != nil {
		return err
	}

	if pol.SpecialChars == "" {
		pol.SpecialChars = models.DefaultSpecialChars
	}

	return db.Create(pol).Error
}

// Update applies changes to an existing policy.
func Update(db *gorm.DB, id uint, updated *models.PasswordPolicy) (*models.PasswordPolicy, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	pol, err := Get(db, id)
	if err != nil {
		return nil, err
	}

	if err := check(updated); err != nil {
		return nil, err
	}

	updated.ID = pol.ID
	updated.CreatedAt = pol.CreatedAt

	if err := db.Save(updated).Error; err != nil {
		return nil, err
	}

	return updated, nil
}

// Delete deletes a policy. Deleting a policy never orphans a tenant:
// resolution falls back to the global policy or the built-in default.
func Delete(db *gorm.DB, id uint) error {
	if db == nil {
		return ErrDBNil
	}

	if _, err := Get(db, id); err != nil {
		return err
	}

	return db.Delete(&models.PasswordPolicy{}, id).Error
}

// EffectiveFor resolves the policy governing the given makerspace: the most
// recently created active policy of the tenant, else the most recently
// created active global policy, else the built-in default. Always returns a
// usable policy.
func EffectiveFor(db *gorm.DB, makerspaceID *string) (*models.PasswordPolicy, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if makerspaceID != nil {
		pol, err := latestActive(db, db.Where("makerspace_id = ?", *makerspaceID))
		if err != nil {
			return nil, err
		}
		if pol != nil {
			return pol, nil
		}
	}

	pol, err := latestActive(db, db.Where("makerspace_id IS NULL"))
	if err != nil {
		return nil, err
	}
	if pol != nil {
		return pol, nil
	}

	fallback := models.DefaultPasswordPolicy()

	return &fallback, nil
}

func latestActive(db *gorm.DB, scoped *gorm.DB) (*models.PasswordPolicy, error) {
	var pol models.PasswordPolicy
	err := scoped.Where("is_active = ?", true).
		Order("created_at DESC").
		First(&pol).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &pol, nil
}

func check(pol *models.PasswordPolicy) error {
	if pol.Name == "" {
		return ErrNameEmpty
	}

	if pol.MaxLength > 0 && pol.MaxLength < pol.MinLength {
		return ErrLengthBounds
	}

	return nil
}
