package auth

import (
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const totpIssuer = "MakrCave"

// GenerateTOTPSecret creates a new TOTP enrollment for the member and
// returns the shared secret plus the otpauth:// provisioning URL for QR
// display.
func GenerateTOTPSecret(email string) (secret, url string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: email,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", "", err
	}

	return key.Secret(), key.URL(), nil
}

// VerifyTOTP checks a 6-digit code against the shared secret, allowing the
// library default clock skew of one period.
func VerifyTOTP(secret, code string) bool {
	return totp.Validate(code, secret)
}
