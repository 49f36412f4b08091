// Package auth implements authentication and permission enforcement: login
// with lockout and 2FA, bearer-token session resolution and the
// RequirePermission middleware guarding every route.
package auth

import (
	"errors"

	"gorm.io/gorm"

	"github.com/makrcave/makrcave-access/internal/config"
	"github.com/makrcave/makrcave-access/internal/db/controller/role"
	"github.com/makrcave/makrcave-access/internal/db/models"
)

// Service resolves principals and answers permission questions. All checks
// go through the database so permission changes take effect on the next
// request without restarts.
type Service struct {
	db  *gorm.DB
	cfg *config.Config
}

// NewService creates an auth service bound to the given database and
// configuration.
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{db: db, cfg: cfg}
}

// GetMember retrieves a member by ID.
func (s *Service) GetMember(id uint64) (*models.Member, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	var member models.Member
	result := s.db.First(&member, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, result.Error
	}

	return &member, nil
}

// GetMemberByEmail retrieves a member by login email.
func (s *Service) GetMemberByEmail(email string) (*models.Member, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	var member models.Member
	result := s.db.Where("email = ?", email).First(&member)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, result.Error
	}

	return &member, nil
}

// MemberPermissions returns the member's effective permission codenames:
// the union across every held role, each resolved through its parent chain.
func (s *Service) MemberPermissions(memberID uint64) ([]string, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	return role.EffectivePermissionsForMember(s.db, memberID)
}

// HasPermission reports whether the member effectively holds the permission.
func (s *Service) HasPermission(memberID uint64, codename string) (bool, error) {
	codes, err := s.MemberPermissions(memberID)
	if err != nil {
		return false, err
	}

	for _, code := range codes {
		if code == codename {
			return true, nil
		}
	}

	return false, nil
}

// HasAnyPermission reports whether the member effectively holds at least one
// of the permissions.
func (s *Service) HasAnyPermission(memberID uint64, codenames ...string) (bool, error) {
	codes, err := s.MemberPermissions(memberID)
	if err != nil {
		return false, err
	}

	held := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		held[code] = struct{}{}
	}

	for _, code := range codenames {
		if _, ok := held[code]; ok {
			return true, nil
		}
	}

	return false, nil
}

// DB exposes the underlying connection for handlers that compose controller
// calls with principal checks.
func (s *Service) DB() *gorm.DB {
	return s.db
}

// Config exposes the service configuration.
func (s *Service) Config() *config.Config {
	return s.cfg
}
