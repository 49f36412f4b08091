package auth

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/makrcave/makrcave-access/internal/db/controller/policy"
	"github.com/makrcave/makrcave-access/internal/db/controller/role"
	"github.com/makrcave/makrcave-access/internal/db/controller/session"
	"github.com/makrcave/makrcave-access/internal/db/models"
)

// LoginRequest carries one authentication attempt.
type LoginRequest struct {
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required"`
	TwoFactorCode string `json:"two_factor_code,omitempty"`
	IPAddress     string `json:"-"`
	UserAgent     string `json:"-"`
}

// Login authenticates the member and issues a session. The failure order is
// fixed: unknown email, disabled account, lockout, wrong password (counted
// against the lockout threshold), missing or wrong 2FA, session cap. Only a
// fully passed chain creates a session.
func (s *Service) Login(req LoginRequest) (*models.Member, *models.UserSession, error) {
	if s.db == nil {
		return nil, nil, ErrDBNil
	}

	member, err := s.GetMemberByEmail(req.Email)
	if err != nil {
		return nil, nil, err
	}

	if !member.Active {
		return nil, nil, ErrAccountDisabled
	}

	pol, err := policy.EffectiveFor(s.db, member.MakerspaceID)
	if err != nil {
		return nil, nil, err
	}

	wasLocked := member.AccountLocked

	if member.IsAccountLocked() {
		return nil, nil, ErrAccountLocked
	}

	// IsAccountLocked self-heals an elapsed lockout in memory; persist the
	// cleared state so the next attempt does not re-check a stale lock.
	if wasLocked {
		if err := s.db.Save(member).Error; err != nil {
			return nil, nil, err
		}
	}

	if !member.VerifyPassword(req.Password) {
		member.IncrementFailedLogins(pol.MaxFailedAttempts, pol.LockoutDurationMinutes)
		if err := s.db.Save(member).Error; err != nil {
			return nil, nil, err
		}

		log.Info().
			Uint64("member_id", member.ID).
			Int("failed_attempts", member.FailedLoginAttempts).
			Bool("locked", member.AccountLocked).
			Msg("failed login attempt")

		return nil, nil, ErrInvalidCredentials
	}

	needsTwoFactor, err := s.twoFactorRequired(member, pol)
	if err != nil {
		return nil, nil, err
	}

	twoFactorVerified := false
	if needsTwoFactor {
		if !member.TwoFactorEnabled || member.TwoFactorSecret == "" {
			return nil, nil, ErrTwoFactorNotEnrolled
		}

		if req.TwoFactorCode == "" {
			return nil, nil, ErrTwoFactorRequired
		}

		if !VerifyTOTP(member.TwoFactorSecret, req.TwoFactorCode) {
			return nil, nil, ErrInvalidTwoFactorCode
		}

		twoFactorVerified = true
	}

	member.ResetFailedLogins()
	if err := s.db.Save(member).Error; err != nil {
		return nil, nil, err
	}

	lifetime, err := session.TimeoutFor(s.db, member, s.cfg.Session.TokenLifetime)
	if err != nil {
		return nil, nil, err
	}

	sess, err := session.Create(s.db, member, lifetime, req.IPAddress, req.UserAgent, "password")
	if err != nil {
		return nil, nil, err
	}

	if twoFactorVerified {
		sess.TwoFactorVerified = true
		if err := s.db.Save(sess).Error; err != nil {
			return nil, nil, err
		}
	}

	log.Info().
		Uint64("member_id", member.ID).
		Uint64("session_id", sess.ID).
		Str("ip", req.IPAddress).
		Msg("member logged in")

	return member, sess, nil
}

// Logout ends the session backing the given bearer token. Unknown tokens
// are absorbed: logout is idempotent from the client's point of view.
func (s *Service) Logout(token string) error {
	if s.db == nil {
		return ErrDBNil
	}

	sess, err := session.GetByToken(s.db, token)
	if err != nil {
		return nil
	}

	if !sess.IsActive {
		return nil
	}

	now := time.Now()
	sess.IsActive = false
	sess.EndedAt = &now
	sess.EndReason = models.EndReasonLogout

	return s.db.Save(sess).Error
}

// ChangePassword sets a new password after validating the current one, and
// terminates the member's other sessions when the effective policy demands
// a forced logout.
func (s *Service) ChangePassword(memberID uint64, current, updated string) error {
	if s.db == nil {
		return ErrDBNil
	}

	member, err := s.GetMember(memberID)
	if err != nil {
		return err
	}

	if !member.VerifyPassword(current) {
		return ErrInvalidCredentials
	}

	now := time.Now()
	member.Password = models.HashPassword(updated)
	member.PasswordChangedAt = &now

	if err := s.db.Save(member).Error; err != nil {
		return err
	}

	pol, err := policy.EffectiveFor(s.db, member.MakerspaceID)
	if err != nil {
		return err
	}

	if pol.ForceLogoutOnPasswordChange {
		ended, err := session.TerminateAll(s.db, member.ID, models.EndReasonPasswordChange)
		if err != nil {
			return err
		}

		log.Info().
			Uint64("member_id", member.ID).
			Int64("sessions_ended", ended).
			Msg("sessions terminated after password change")
	}

	return nil
}

// twoFactorRequired decides whether this login needs a TOTP challenge: the
// policy's global flag, a role-name listed in the policy, or any held role
// flagged for 2FA.
func (s *Service) twoFactorRequired(member *models.Member, pol *models.PasswordPolicy) (bool, error) {
	if pol.RequireTwoFactor {
		return true, nil
	}

	roles, err := role.RolesOfMember(s.db, member.ID)
	if err != nil {
		return false, err
	}

	for _, r := range roles {
		if r.RequiresTwoFactor {
			return true, nil
		}

		for _, name := range pol.TwoFactorRequiredRoles {
			if r.Name == name {
				return true, nil
			}
		}
	}

	return false, nil
}
