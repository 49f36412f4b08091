// Package password validates candidate passwords against a policy and
// scores their strength. Validation is pure: no database access, no
// clock, so the same password and policy always produce the same result.
package password

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/makrcave/makrcave-access/internal/db/models"
)

// Strength score weights. The score is informational and never gates
// acceptance on its own; only the policy rule violations do.
const (
	lengthScoreCap   = 25
	lengthScoreRate  = 2
	classScore       = 15
	specialScore     = 20
	commonPenalty    = 50
	maxStrengthScore = 100
)

// commonPasswords is the deny list penalized in strength scoring. Matching
// is case-insensitive on the whole password.
var commonPasswords = []string{ //nolint:gochecknoglobals
	"password", "123456", "qwerty", "admin",
}

// Result is the outcome of validating one candidate password.
type Result struct {
	// Valid is true when the password violates no policy rule.
	Valid bool `json:"valid"`
	// Errors lists every violated rule in human-readable form.
	Errors []string `json:"errors,omitempty"`
	// StrengthScore rates the password from 0 (weakest) to 100.
	StrengthScore int `json:"strength_score"`
}

// Validate checks the candidate against every rule of the policy and scores
// its strength. All violations are collected, not just the first, so a form
// can surface the complete list at once.
func Validate(candidate string, policy *models.PasswordPolicy) Result {
	var violations []string

	// Length limits count characters, not bytes, so multi-byte runes
	// (accents, CJK) are not over-counted.
	length := utf8.RuneCountInString(candidate)
	if length < policy.MinLength {
		violations = append(violations,
			fmt.Sprintf("password must be at least %d characters long", policy.MinLength))
	}

	if policy.MaxLength > 0 && length > policy.MaxLength {
		violations = append(violations,
			fmt.Sprintf("password must be at most %d characters long", policy.MaxLength))
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range candidate {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	specials := policy.SpecialChars
	if specials == "" {
		specials = models.DefaultSpecialChars
	}

	hasSpecial := strings.ContainsAny(candidate, specials)

	if policy.RequireUppercase && !hasUpper {
		violations = append(violations, "password must contain at least one uppercase letter")
	}

	if policy.RequireLowercase && !hasLower {
		violations = append(violations, "password must contain at least one lowercase letter")
	}

	if policy.RequireDigit && !hasDigit {
		violations = append(violations, "password must contain at least one digit")
	}

	if policy.RequireSpecialChar && !hasSpecial {
		violations = append(violations,
			fmt.Sprintf("password must contain at least one special character (%s)", specials))
	}

	return Result{
		Valid:         len(violations) == 0,
		Errors:        violations,
		StrengthScore: score(candidate, hasUpper, hasLower, hasDigit, hasSpecial),
	}
}

// score rates the candidate: up to 25 points for length (2 per character),
// 15 each for containing upper case, lower case and digits, 20 for a
// special character, and a 50 point penalty for well-known passwords. The
// result is clamped to [0, 100].
func score(candidate string, hasUpper, hasLower, hasDigit, hasSpecial bool) int {
	total := utf8.RuneCountInString(candidate) * lengthScoreRate
	if total > lengthScoreCap {
		total = lengthScoreCap
	}

	if hasUpper {
		total += classScore
	}

	if hasLower {
		total += classScore
	}

	if hasDigit {
		total += classScore
	}

	if hasSpecial {
		total += specialScore
	}

	lowered := strings.ToLower(candidate)
	for _, common := range commonPasswords {
		if lowered == common {
			total -= commonPenalty
			break
		}
	}

	if total < 0 {
		total = 0
	}

	if total > maxStrengthScore {
		total = maxStrengthScore
	}

	return total
}
