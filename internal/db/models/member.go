package models

import (
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog/log"
)

// Member represents a makerspace member account in the system.
// Members hold roles through the member_roles junction table and own their
// login sessions and lockout counters. Only the access-control-relevant
// surface of a member lives here; profile and membership-plan lifecycle are
// managed by the membership service.
type Member struct {
	// ID is the unique identifier for the member.
	ID uint64 `gorm:"primaryKey"`
	// Active indicates whether the account is active and can log in.
	Active bool
	// Email is the unique email address used for login.
	Email string `gorm:"unique;size:255;not null"`
	// Username is the unique display handle.
	Username string `gorm:"unique;size:100;not null"`
	// Password is the Argon2id hashed password.
	Password string `gorm:"size:255"`
	// FirstName is the member's first or given name.
	FirstName string `gorm:"size:100"`
	// LastName is the member's last or family name.
	LastName string `gorm:"size:100"`
	// MakerspaceID scopes the member to one tenant; nil for platform accounts.
	MakerspaceID *string `gorm:"size:64;index"`
	// MembershipPlan is the member's current plan key, consulted by role
	// assignment plan restrictions.
	MembershipPlan string `gorm:"size:100"`
	// DefaultRoleID is the single display role kept for backward
	// compatibility; authorization always uses the member_roles set.
	DefaultRoleID *uint
	// DefaultRole is the associated display role.
	DefaultRole *Role `gorm:"foreignKey:DefaultRoleID"`
	// FailedLoginAttempts counts consecutive failed logins since the last success.
	FailedLoginAttempts int `gorm:"default:0"`
	// AccountLocked indicates the account is locked out from logging in.
	AccountLocked bool `gorm:"default:false"`
	// AccountLockedUntil is when a lockout lapses; nil while unlocked.
	AccountLockedUntil *time.Time
	// TwoFactorSecret is the TOTP shared secret; empty until 2FA enrollment.
	TwoFactorSecret string `gorm:"size:255"`
	// TwoFactorEnabled indicates the member completed 2FA enrollment.
	TwoFactorEnabled bool `gorm:"default:false"`
	// PasswordChangedAt is when the password was last changed, consulted by
	// password max-age policies.
	PasswordChangedAt *time.Time
	// CreatedAt is the timestamp when the member was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the member was last updated (managed by GORM).
	UpdatedAt time.Time
	// DeletedAt is the soft delete timestamp (nil if not deleted, managed by GORM).
	DeletedAt *time.Time
}

// TableName specifies the database table name for the Member model.
func (Member) TableName() string {
	return "members"
}

// HashPassword hashes a plaintext password using the Argon2id algorithm.
// It uses the default Argon2id parameters for secure password hashing.
func HashPassword(password string) string {
	hashedPassword, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		log.Fatal().Msgf("failed to hash password: %v", err)
	}

	return hashedPassword
}

// VerifyPassword verifies a plaintext password against the member's stored hashed password.
// It uses constant-time comparison to prevent timing attacks.
// Returns true if the password matches, false otherwise.
func (m *Member) VerifyPassword(password string) bool {
	match, err := argon2id.ComparePasswordAndHash(password, m.Password)
	if err != nil {
		log.Error().Msgf("failed to verify password: %v", err)
		return false
	}

	return match
}

// IncrementFailedLogins bumps the failed-login counter and, once it reaches
// maxAttempts, locks the account until now plus lockoutMinutes. The caller
// persists the mutated member.
func (m *Member) IncrementFailedLogins(maxAttempts, lockoutMinutes int) {
	m.FailedLoginAttempts++

	if maxAttempts > 0 && m.FailedLoginAttempts >= maxAttempts {
		until := time.Now().Add(time.Duration(lockoutMinutes) * time.Minute)
		m.AccountLocked = true
		m.AccountLockedUntil = &until
	}
}

// IsAccountLocked reports whether the account is currently locked out.
// A lockout whose expiry has passed self-heals: the locked flag and the
// failed-attempt counter are cleared and false is returned. The caller
// persists the mutated member when the lock state changed.
func (m *Member) IsAccountLocked() bool {
	if !m.AccountLocked {
		return false
	}

	if m.AccountLockedUntil != nil && time.Now().After(*m.AccountLockedUntil) {
		m.AccountLocked = false
		m.AccountLockedUntil = nil
		m.FailedLoginAttempts = 0

		return false
	}

	return true
}

// ResetFailedLogins zeroes the failed-login counter and clears any lock
// state. Called on successful authentication.
func (m *Member) ResetFailedLogins() {
	m.FailedLoginAttempts = 0
	m.AccountLocked = false
	m.AccountLockedUntil = nil
}

// CanCreateNewSession reports whether the account is in a state that allows
// a new login session: active and not locked out. The concurrent-session cap
// is checked separately by the session registry, which owns the count.
func (m *Member) CanCreateNewSession() bool {
	return m.Active && !m.IsAccountLocked()
}
