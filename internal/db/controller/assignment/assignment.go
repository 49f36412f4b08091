// Package assignment manages member role grants and the append-only audit
// ledger recording every change with effective-permission snapshots.
package assignment

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/makrcave/makrcave-access/internal/db/controller/role"
	"github.com/makrcave/makrcave-access/internal/db/models"
)

var (
	// ErrMemberNotFound is returned when the member does not exist.
	ErrMemberNotFound = errors.New("member not found")
	// ErrAlreadyAssigned is returned when the member already holds the role.
	ErrAlreadyAssigned = errors.New("member already holds this role")
	// ErrNotAssigned is returned when revoking a role the member does not hold.
	ErrNotAssigned = errors.New("member does not hold this role")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Change describes one assign or revoke request.
type Change struct {
	MemberID      uint64
	RoleID        uint
	ModifiedBy    uint64
	Reason        string
	EffectiveDate *time.Time
	ExpiryDate    *time.Time
}

// PairResult reports the outcome of one member/role pair in a bulk call.
type PairResult struct {
	MemberID uint64 `json:"member_id"`
	RoleID   uint   `json:"role_id"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// Assign grants the role to the member and appends one ledger entry carrying
// the member's effective permissions before and after the grant. The grant,
// its precondition checks and the ledger write share one transaction; the
// role row is locked so two concurrent grants cannot both pass a holder cap
// check.
func Assign(db *gorm.DB, change Change) error {
	if db == nil {
		return ErrDBNil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var member models.Member
		if err := tx.First(&member, change.MemberID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMemberNotFound
			}
			return err
		}

		var r models.Role
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&r, change.RoleID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return role.ErrRoleNotFound
			}
			return err
		}

		var held int64
		err = tx.Model(&models.MemberRole{}).
			Where("member_id = ? AND role_id = ?", change.MemberID, change.RoleID).
			Count(&held).Error
		if err != nil {
			return err
		}
		if held > 0 {
			return ErrAlreadyAssigned
		}

		if err := role.CanAssignTo(tx, &r, &member); err != nil {
			return err
		}

		before, err := role.EffectivePermissionsForMember(tx, change.MemberID)
		if err != nil {
			return err
		}

		mr := models.MemberRole{
			MemberID:      change.MemberID,
			RoleID:        change.RoleID,
			AssignedBy:    change.ModifiedBy,
			EffectiveDate: change.EffectiveDate,
			ExpiryDate:    change.ExpiryDate,
		}
		if err := tx.Create(&mr).Error; err != nil {
			return err
		}

		after, err := role.EffectivePermissionsForMember(tx, change.MemberID)
		if err != nil {
			return err
		}

		entry := models.RoleAssignmentLog{
			RoleID:              change.RoleID,
			MemberID:            change.MemberID,
			ModifiedBy:          change.ModifiedBy,
			Action:              models.ActionAssigned,
			PreviousPermissions: models.StringList(before),
			NewPermissions:      models.StringList(after),
			Reason:              change.Reason,
			EffectiveDate:       change.EffectiveDate,
			ExpiryDate:          change.ExpiryDate,
		}

		return tx.Create(&entry).Error
	})
}

// Revoke removes the role from the member and appends one ledger entry with
// before and after snapshots, in one transaction with the removal.
func Revoke(db *gorm.DB, change Change) error {
	if db == nil {
		return ErrDBNil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var mr models.MemberRole
		err := tx.Where("member_id = ? AND role_id = ?", change.MemberID, change.RoleID).
			First(&mr).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotAssigned
			}
			return err
		}

		before, err := role.EffectivePermissionsForMember(tx, change.MemberID)
		if err != nil {
			return err
		}

		err = tx.Where("member_id = ? AND role_id = ?", change.MemberID, change.RoleID).
			Delete(&models.MemberRole{}).Error
		if err != nil {
			return err
		}

		after, err := role.EffectivePermissionsForMember(tx, change.MemberID)
		if err != nil {
			return err
		}

		entry := models.RoleAssignmentLog{
			RoleID:              change.RoleID,
			MemberID:            change.MemberID,
			ModifiedBy:          change.ModifiedBy,
			Action:              models.ActionRevoked,
			PreviousPermissions: models.StringList(before),
			NewPermissions:      models.StringList(after),
			Reason:              change.Reason,
		}

		return tx.Create(&entry).Error
	})
}

// BulkAssign applies every change independently and reports per-pair
// outcomes. One failing pair does not roll back the others.
func BulkAssign(db *gorm.DB, changes []Change) ([]PairResult, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	results := make([]PairResult, 0, len(changes))
	for _, change := range changes {
		result := PairResult{MemberID: change.MemberID, RoleID: change.RoleID, Success: true}

		if err := Assign(db, change); err != nil {
			result.Success = false
			result.Error = err.Error()
		}

		results = append(results, result)
	}

	return results, nil
}

// BulkRevoke applies every revocation independently and reports per-pair
// outcomes.
func BulkRevoke(db *gorm.DB, changes []Change) ([]PairResult, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	results := make([]PairResult, 0, len(changes))
	for _, change := range changes {
		result := PairResult{MemberID: change.MemberID, RoleID: change.RoleID, Success: true}

		if err := Revoke(db, change); err != nil {
			result.Success = false
			result.Error = err.Error()
		}

		results = append(results, result)
	}

	return results, nil
}
