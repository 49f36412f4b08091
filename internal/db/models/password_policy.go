package models

import "time"

// PasswordPolicy holds the configurable password strength, lockout, 2FA and
// session rules of one makerspace, or the global fallback when MakerspaceID
// is nil. The effective policy for a tenant is resolved tenant-specific
// first, then global, then a built-in default. Field defaults are applied in
// code via DefaultPasswordPolicy, never by the schema, so a stored false or
// zero always means exactly that.
type PasswordPolicy struct {
	// ID is the unique identifier for the policy.
	ID uint `gorm:"primaryKey"`
	// Name labels the policy for administrators.
	Name string `gorm:"size:100;not null"`
	// Description provides a human-readable description of the policy.
	Description string `gorm:"size:255"`
	// MakerspaceID scopes the policy to one tenant; nil means global fallback.
	MakerspaceID *string `gorm:"size:64;index"`
	// IsActive marks the policy as in force.
	IsActive bool

	// MinLength is the minimum password length.
	MinLength int
	// MaxLength is the maximum password length. Must be >= MinLength.
	MaxLength int
	// RequireUppercase requires at least one upper case letter.
	RequireUppercase bool
	// RequireLowercase requires at least one lower case letter.
	RequireLowercase bool
	// RequireDigit requires at least one decimal digit.
	RequireDigit bool
	// RequireSpecialChar requires at least one character from SpecialChars.
	RequireSpecialChar bool
	// SpecialChars is the set of characters counting as special.
	SpecialChars string `gorm:"size:100"`

	// PreventReuseCount blocks reusing this many previous passwords.
	PreventReuseCount int
	// MaxAgeDays forces a password change after this many days; 0 disables.
	MaxAgeDays int
	// WarnBeforeExpiryDays starts expiry warnings this many days ahead.
	WarnBeforeExpiryDays int

	// MaxFailedAttempts locks the account after this many failed logins.
	MaxFailedAttempts int
	// LockoutDurationMinutes is how long a lockout lasts.
	LockoutDurationMinutes int
	// ProgressiveLockout is a configuration hook for escalating lockout
	// durations on repeated violations. No escalation formula is applied by
	// this service; adopting products define one.
	ProgressiveLockout bool

	// RequireTwoFactor forces 2FA for all members under this policy.
	RequireTwoFactor bool
	// TwoFactorRequiredRoles lists role names whose holders must use 2FA.
	TwoFactorRequiredRoles StringList `gorm:"type:text"`
	// AllowedTwoFactorMethods lists the permitted 2FA methods (e.g. "totp").
	AllowedTwoFactorMethods StringList `gorm:"type:text"`

	// SessionTimeoutMinutes is the default session lifetime under this policy.
	SessionTimeoutMinutes int
	// IdleTimeoutMinutes ends sessions idle for this long; 0 disables.
	IdleTimeoutMinutes int
	// MaxConcurrentSessions caps concurrent live sessions per member.
	MaxConcurrentSessions int
	// ForceLogoutOnPasswordChange terminates all sessions after a password change.
	ForceLogoutOnPasswordChange bool

	// CreatedAt is the timestamp when the policy was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the policy was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the PasswordPolicy model.
func (PasswordPolicy) TableName() string {
	return "password_policies"
}

// DefaultSpecialChars is the special character set applied when a policy
// does not override it.
const DefaultSpecialChars = "!@#$%^&*()_+-=[]{}|;:,.<>?"

// DefaultPasswordPolicy returns the built-in policy used when neither a
// tenant nor a global policy exists. It is never persisted.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		Name:                        "Built-in Default",
		IsActive:                    true,
		MinLength:                   8,
		MaxLength:                   128,
		RequireUppercase:            true,
		RequireLowercase:            true,
		RequireDigit:                true,
		SpecialChars:                DefaultSpecialChars,
		WarnBeforeExpiryDays:        7,
		MaxFailedAttempts:           5,
		LockoutDurationMinutes:      15,
		SessionTimeoutMinutes:       480,
		MaxConcurrentSessions:       5,
		ForceLogoutOnPasswordChange: true,
	}
}
