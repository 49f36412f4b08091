package daemon

import (
	"gorm.io/gorm"

	"github.com/makrcave/makrcave-access/internal/config"
	"github.com/makrcave/makrcave-access/internal/db/controller/permission"
	"github.com/makrcave/makrcave-access/internal/db/controller/role"
	"github.com/makrcave/makrcave-access/internal/db/models"
)

// seed populates the permission catalog, the global role hierarchy and, on
// a fresh database, the bootstrap super admin account. Safe to run on every
// start.
func seed(cfg *config.Config, db *gorm.DB) error {
	if err := permission.SeedDefaults(db); err != nil {
		return err
	}

	if err := role.SeedDefaults(db, nil); err != nil {
		return err
	}

	var count int64
	if err := db.Model(&models.Member{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	email := cfg.Bootstrap.AdminEmail
	if email == "" {
		email = "admin@localhost"
	}

	adminPassword := cfg.Bootstrap.AdminPassword
	if adminPassword == "" {
		adminPassword = "changeme"
	}

	admin := models.Member{
		Active:   true,
		Email:    email,
		Username: "admin",
		Password: models.HashPassword(adminPassword),
	}

	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	superAdmins, _, err := role.List(db, role.ListFilter{Search: "Super Admin"})
	if err != nil {
		return err
	}

	if len(superAdmins) == 0 {
		return nil
	}

	// The seeded Super Admin role is deliberately unassignable, so the
	// bootstrap grant is written directly rather than through the assignment
	// controller. The audit ledger entry is written all the same: every
	// grant leaves a trace, the bootstrap one included.
	return db.Transaction(func(tx *gorm.DB) error {
		before, err := role.EffectivePermissionsForMember(tx, admin.ID)
		if err != nil {
			return err
		}

		grant := models.MemberRole{
			MemberID:   admin.ID,
			RoleID:     superAdmins[0].ID,
			AssignedBy: admin.ID,
		}

		if err := tx.Create(&grant).Error; err != nil {
			return err
		}

		after, err := role.EffectivePermissionsForMember(tx, admin.ID)
		if err != nil {
			return err
		}

		entry := models.RoleAssignmentLog{
			RoleID:              grant.RoleID,
			MemberID:            admin.ID,
			ModifiedBy:          admin.ID,
			Action:              models.ActionAssigned,
			PreviousPermissions: models.StringList(before),
			NewPermissions:      models.StringList(after),
			Reason:              "bootstrap administrator account",
		}

		return tx.Create(&entry).Error
	})
}
