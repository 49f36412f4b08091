package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/makrcave/makrcave-access/internal/db/controller/permission"
	"github.com/makrcave/makrcave-access/internal/db/controller/session"
	"github.com/makrcave/makrcave-access/internal/db/models"
)

// principalKey is the fiber locals key carrying the request principal.
const principalKey = "principal"

const bearerPrefix = "Bearer "

// PrincipalFrom returns the principal attached to the request, or nil when
// the request is unauthenticated.
func PrincipalFrom(c *fiber.Ctx) *Principal {
	p, _ := c.Locals(principalKey).(*Principal)

	return p
}

// Middleware resolves the Authorization bearer token to a live session and
// attaches the principal to the request. Requests without a valid live
// session are rejected with 401 before any handler runs. Paths listed in
// skip pass through unauthenticated.
func Middleware(service *Service, skip ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		for _, path := range skip {
			if c.Path() == path {
				return c.Next()
			}
		}

		header := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(header, bearerPrefix) {
			return unauthorized(c, ErrMissingToken)
		}

		token := strings.TrimPrefix(header, bearerPrefix)

		sess, err := session.GetByToken(service.DB(), token)
		if err != nil {
			return unauthorized(c, ErrInvalidToken)
		}

		// Active alone is not enough: an expired session the sweep has not
		// flipped yet must not authenticate.
		if !sess.IsActive || sess.IsExpired() {
			return unauthorized(c, ErrInvalidToken)
		}

		member, err := service.GetMember(sess.MemberID)
		if err != nil {
			return unauthorized(c, ErrInvalidToken)
		}

		if !member.Active || member.IsAccountLocked() {
			return unauthorized(c, ErrInvalidToken)
		}

		codes, err := service.MemberPermissions(member.ID)
		if err != nil {
			log.Error().Err(err).Uint64("member_id", member.ID).
				Msg("failed to resolve member permissions")

			return c.Status(fiber.StatusInternalServerError).
				JSON(fiber.Map{"error": "internal server error"})
		}

		principal := NewPrincipal(member.ID, sess.ID, member.Email,
			member.MakerspaceID, sess.TwoFactorVerified, codes)
		c.Locals(principalKey, principal)

		return c.Next()
	}
}

// RequirePermission guards a route with one permission codename. Denials
// are written to the access log before the 403 goes out; permissions whose
// catalog row demands two-factor also require a 2FA-verified session.
func RequirePermission(service *Service, codename string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal := PrincipalFrom(c)
		if principal == nil {
			return unauthorized(c, ErrMissingToken)
		}

		if !principal.Can(codename) {
			recordDenial(service, c, principal, codename, "permission not held")

			return forbidden(c, "insufficient permissions")
		}

		perm, err := permission.GetByCodename(service.DB(), codename)
		if err == nil && perm.RequiresTwoFactor && !principal.TwoFactorVerified {
			recordDenial(service, c, principal, codename, "two-factor verification required")

			return forbidden(c, "two-factor verification required")
		}

		return c.Next()
	}
}

// RequireAnyPermission guards a route with a set of alternatives; holding
// any one of them grants access.
func RequireAnyPermission(service *Service, codenames ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal := PrincipalFrom(c)
		if principal == nil {
			return unauthorized(c, ErrMissingToken)
		}

		if !principal.CanAny(codenames...) {
			recordDenial(service, c, principal, strings.Join(codenames, ","), "permission not held")

			return forbidden(c, "insufficient permissions")
		}

		return c.Next()
	}
}

func recordDenial(service *Service, c *fiber.Ctx, principal *Principal, codename, detail string) {
	memberID := principal.MemberID
	entry := models.AccessLog{
		MemberID:       &memberID,
		PermissionCode: codename,
		Granted:        false,
		Method:         c.Method(),
		Path:           c.Path(),
		IPAddress:      c.IP(),
		Detail:         detail,
	}

	if err := service.DB().Create(&entry).Error; err != nil {
		log.Error().Err(err).Msg("failed to write access log entry")
	}
}

func unauthorized(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
}

func forbidden(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": msg})
}
