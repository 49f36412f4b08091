package auth

// Principal is the authenticated caller attached to a request after the
// bearer token resolves to a live session. The permission set is the
// member's full effective set, resolved once per request.
type Principal struct {
	// MemberID identifies the authenticated member.
	MemberID uint64
	// SessionID is the live session backing this request.
	SessionID uint64
	// Email is the member's login email.
	Email string
	// MakerspaceID is the member's tenant; nil for platform accounts.
	MakerspaceID *string
	// TwoFactorVerified is true when the backing session passed a 2FA challenge.
	TwoFactorVerified bool

	permissions map[string]struct{}
}

// NewPrincipal builds a principal carrying the given effective permission
// codenames.
func NewPrincipal(memberID, sessionID uint64, email string, makerspaceID *string, twoFactor bool, permissions []string) *Principal {
	set := make(map[string]struct{}, len(permissions))
	for _, code := range permissions {
		set[code] = struct{}{}
	}

	return &Principal{
		MemberID:          memberID,
		SessionID:         sessionID,
		Email:             email,
		MakerspaceID:      makerspaceID,
		TwoFactorVerified: twoFactor,
		permissions:       set,
	}
}

// Can reports whether the principal holds the permission codename.
func (p *Principal) Can(codename string) bool {
	if p == nil {
		return false
	}

	_, ok := p.permissions[codename]

	return ok
}

// CanAny reports whether the principal holds at least one of the codenames.
func (p *Principal) CanAny(codenames ...string) bool {
	for _, code := range codenames {
		if p.Can(code) {
			return true
		}
	}

	return false
}

// Permissions returns the principal's effective permission codenames.
func (p *Principal) Permissions() []string {
	if p == nil {
		return nil
	}

	out := make([]string, 0, len(p.permissions))
	for code := range p.permissions {
		out = append(out, code)
	}

	return out
}
