package models

import "time"

// Session end reasons recorded when a session is terminated.
const (
	// EndReasonLogout marks a member initiated logout.
	EndReasonLogout = "logout"
	// EndReasonExpired marks termination by the expiry sweep.
	EndReasonExpired = "expired"
	// EndReasonAdmin marks a forced termination by an administrator.
	EndReasonAdmin = "admin_terminated"
	// EndReasonPasswordChange marks the forced logout after a password change.
	EndReasonPasswordChange = "password_changed"
)

// UserSession tracks one login session of a member. A session is live only
// while it is both active and unexpired; expiry is computed lazily from
// ExpiresAt, so callers must always combine the two checks rather than trust
// IsActive alone (a background sweep flipping stale flags may not have run).
type UserSession struct {
	// ID is the unique identifier for the session.
	ID uint64 `gorm:"primaryKey"`
	// MemberID is the owning member.
	MemberID uint64 `gorm:"index;not null"`
	// Member is the associated member (loaded via foreign key).
	Member Member `gorm:"foreignKey:MemberID;constraint:OnDelete:CASCADE"`
	// SessionToken is the unique opaque bearer token for this session.
	SessionToken string `gorm:"unique;size:128;not null"`
	// IPAddress is the client address at login.
	IPAddress string `gorm:"size:45"`
	// UserAgent is the client user agent at login.
	UserAgent string `gorm:"size:255"`
	// Location is an optional geo hint derived from the IP.
	Location string `gorm:"size:100"`
	// IsActive is false once the session was terminated.
	IsActive bool
	// LastActivity is refreshed on sliding-expiration renewal.
	LastActivity time.Time
	// ExpiresAt is the hard expiry of the session.
	ExpiresAt time.Time
	// TwoFactorVerified marks the session as having passed a 2FA challenge.
	TwoFactorVerified bool `gorm:"default:false"`
	// LoginMethod records how the session was established (e.g. "password").
	LoginMethod string `gorm:"size:30"`
	// DeviceFingerprint is an optional client supplied device identifier.
	DeviceFingerprint string `gorm:"size:128"`
	// EndedAt is when the session was terminated; nil while active.
	EndedAt *time.Time
	// EndReason records why the session ended.
	EndReason string `gorm:"size:50"`
	// CreatedAt is the timestamp when the session was created (managed by GORM).
	CreatedAt time.Time
}

// TableName specifies the database table name for the UserSession model.
func (UserSession) TableName() string {
	return "user_sessions"
}

// IsExpired reports whether the session's hard expiry has passed.
func (s *UserSession) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
