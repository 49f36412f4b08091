package auth

import "errors"

var (
	// ErrInvalidCredentials is returned when the email or password is wrong.
	// Deliberately indistinguishable between the two cases.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountDisabled is returned when the account is deactivated.
	ErrAccountDisabled = errors.New("account is disabled")
	// ErrAccountLocked is returned while a lockout is in force.
	ErrAccountLocked = errors.New("account is temporarily locked")
	// ErrTwoFactorRequired is returned when login needs a TOTP code that was
	// not supplied.
	ErrTwoFactorRequired = errors.New("two-factor code required")
	// ErrInvalidTwoFactorCode is returned when the supplied TOTP code fails
	// verification.
	ErrInvalidTwoFactorCode = errors.New("invalid two-factor code")
	// ErrTwoFactorNotEnrolled is returned when policy demands 2FA but the
	// member never enrolled.
	ErrTwoFactorNotEnrolled = errors.New("two-factor authentication not enrolled")
	// ErrMissingToken is returned when a request carries no bearer token.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken is returned when the bearer token matches no live session.
	ErrInvalidToken = errors.New("invalid or expired session token")
	// ErrPermissionDenied is returned when the principal lacks the required
	// permission.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)
