// Package session manages the login session registry: token issuance,
// concurrency caps, expiry and termination.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/makrcave/makrcave-access/internal/db/controller/policy"
	"github.com/makrcave/makrcave-access/internal/db/controller/role"
	"github.com/makrcave/makrcave-access/internal/db/models"
)

const (
	tokenBytes = 32

	// fallbackMaxConcurrent applies when neither a role nor a policy caps
	// concurrent sessions.
	fallbackMaxConcurrent = 5

	whereLiveSession = "member_id = ? AND is_active = ? AND expires_at > ?"
)

var (
	// ErrSessionNotFound is returned when a session is not found.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionAlreadyEnded is returned when terminating a session twice.
	ErrSessionAlreadyEnded = errors.New("session already ended")
	// ErrSessionExpired is returned when extending an expired session.
	ErrSessionExpired = errors.New("session has expired")
	// ErrSessionCapReached is returned when the member's concurrent session
	// cap leaves no headroom for a new login.
	ErrSessionCapReached = errors.New("maximum concurrent sessions reached")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// GenerateToken returns a new opaque session token: 32 random bytes, hex
// encoded.
func GenerateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(buf), nil
}

// Create issues a new session for the member, enforcing the concurrent
// session cap. The session token is generated here; the caller is expected
// to have authenticated the member already.
func Create(db *gorm.DB, member *models.Member, lifetimeMinutes int, ip, userAgent, loginMethod string) (*models.UserSession, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	limit, err := MaxConcurrentFor(db, member)
	if err != nil {
		return nil, err
	}

	active, err := CountActive(db, member.ID)
	if err != nil {
		return nil, err
	}

	if active >= int64(limit) {
		return nil, ErrSessionCapReached
	}

	token, err := GenerateToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sess := models.UserSession{
		MemberID:     member.ID,
		SessionToken: token,
		IPAddress:    ip,
		UserAgent:    userAgent,
		IsActive:     true,
		LastActivity: now,
		ExpiresAt:    now.Add(time.Duration(lifetimeMinutes) * time.Minute),
		LoginMethod:  loginMethod,
	}

	if err := db.Create(&sess).Error; err != nil {
		return nil, err
	}

	return &sess, nil
}

// Get retrieves a session by its ID.
func Get(db *gorm.DB, id uint64) (*models.UserSession, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var sess models.UserSession
	result := db.First(&sess, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, result.Error
	}

	return &sess, nil
}

// GetByToken retrieves a session by its bearer token, live or not. Callers
// authenticating requests must still check IsActive and expiry.
func GetByToken(db *gorm.DB, token string) (*models.UserSession, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var sess models.UserSession
	result := db.Where("session_token = ?", token).First(&sess)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, result.Error
	}

	return &sess, nil
}

// CountActive counts the member's live sessions: active and unexpired.
// A session whose expiry passed but whose active flag has not been swept yet
// does not count against the cap.
func CountActive(db *gorm.DB, memberID uint64) (int64, error) {
	if db == nil {
		return 0, ErrDBNil
	}

	var count int64
	err := db.Model(&models.UserSession{}).
		Where(whereLiveSession, memberID, true, time.Now()).
		Count(&count).Error

	return count, err
}

// ListActive retrieves the member's live sessions, most recent activity
// first.
func ListActive(db *gorm.DB, memberID uint64) ([]models.UserSession, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var sessions []models.UserSession
	err := db.Where(whereLiveSession, memberID, true, time.Now()).
		Order("last_activity DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}

	return sessions, nil
}

// Terminate ends a session with the given reason. Terminating an already
// ended session is reported as a failure, not absorbed, so audit trails
// show who actually ended it.
func Terminate(db *gorm.DB, id uint64, reason string) error {
	if db == nil {
		return ErrDBNil
	}

	sess, err := Get(db, id)
	if err != nil {
		return err
	}

	if !sess.IsActive {
		return ErrSessionAlreadyEnded
	}

	now := time.Now()
	sess.IsActive = false
	sess.EndedAt = &now
	sess.EndReason = reason

	return db.Save(sess).Error
}

// TerminateAll ends every live session of the member with the given reason
// and returns how many were ended. Used on password changes and account
// suspension.
func TerminateAll(db *gorm.DB, memberID uint64, reason string) (int64, error) {
	if db == nil {
		return 0, ErrDBNil
	}

	now := time.Now()
	result := db.Model(&models.UserSession{}).
		Where(whereLiveSession, memberID, true, now).
		Updates(map[string]interface{}{
			"is_active":  false,
			"ended_at":   now,
			"end_reason": reason,
		})

	return result.RowsAffected, result.Error
}

// Extend renews a live session: the hard expiry moves to now plus the given
// lifetime and the activity timestamp is refreshed. Ended or expired
// sessions cannot be revived.
func Extend(db *gorm.DB, id uint64, lifetimeMinutes int) (*models.UserSession, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	sess, err := Get(db, id)
	if err != nil {
		return nil, err
	}

	if !sess.IsActive {
		return nil, ErrSessionAlreadyEnded
	}

	if sess.IsExpired() {
		return nil, ErrSessionExpired
	}

	now := time.Now()
	sess.LastActivity = now
	sess.ExpiresAt = now.Add(time.Duration(lifetimeMinutes) * time.Minute)

	if err := db.Save(sess).Error; err != nil {
		return nil, err
	}

	return sess, nil
}

// SweepExpired flips the active flag of sessions whose expiry has passed,
// recording the expiry end reason. Returns how many sessions were swept.
// Liveness checks never depend on the sweep having run.
func SweepExpired(db *gorm.DB) (int64, error) {
	if db == nil {
		return 0, ErrDBNil
	}

	now := time.Now()
	result := db.Model(&models.UserSession{}).
		Where("is_active = ? AND expires_at <= ?", true, now).
		Updates(map[string]interface{}{
			"is_active":  false,
			"ended_at":   now,
			"end_reason": models.EndReasonExpired,
		})

	return result.RowsAffected, result.Error
}

// MaxConcurrentFor resolves the member's concurrent session cap: the value
// of the highest priority role that sets one, else the effective password
// policy's cap, else the built-in fallback.
func MaxConcurrentFor(db *gorm.DB, member *models.Member) (int, error) {
	if db == nil {
		return 0, ErrDBNil
	}

	roles, err := role.RolesOfMember(db, member.ID)
	if err != nil {
		return 0, err
	}

	for _, r := range roles {
		if r.MaxConcurrentSessions > 0 {
			return r.MaxConcurrentSessions, nil
		}
	}

	pol, err := policy.EffectiveFor(db, member.MakerspaceID)
	if err != nil {
		return 0, err
	}

	if pol.MaxConcurrentSessions > 0 {
		return pol.MaxConcurrentSessions, nil
	}

	return fallbackMaxConcurrent, nil
}

// TimeoutFor resolves the member's session lifetime in minutes: the value of
// the highest priority role that sets one, else the effective policy's
// session timeout, else the supplied default.
func TimeoutFor(db *gorm.DB, member *models.Member, defaultMinutes int) (int, error) {
	if db == nil {
		return 0, ErrDBNil
	}

	roles, err := role.RolesOfMember(db, member.ID)
	if err != nil {
		return 0, err
	}

	for _, r := range roles {
		if r.SessionTimeoutMinutes > 0 {
			return r.SessionTimeoutMinutes, nil
		}
	}

	pol, err := policy.EffectiveFor(db, member.MakerspaceID)
	if err != nil {
		return 0, err
	}

	if pol.SessionTimeoutMinutes > 0 {
		return pol.SessionTimeoutMinutes, nil
	}

	return defaultMinutes, nil
}
