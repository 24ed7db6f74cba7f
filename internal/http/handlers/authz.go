package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"wapistore/internal/apperr"
	"wapistore/internal/auth"
	"wapistore/internal/domain"
	applog "wapistore/internal/log"
	"wapistore/internal/metrics"
	"wapistore/internal/services"
)

const localIdentity = "identity"

// credential reads the session token from the Authorization header or the cookie.
func credential(c *fiber.Ctx) string {
	if h := c.Get(fiber.HeaderAuthorization); h != "" {
		if tok, found := strings.CutPrefix(h, "Bearer "); found {
			return strings.TrimSpace(tok)
		}
	}
	return c.Cookies(auth.CookieName)
}

func hasBearer(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
}

// Identify resolves the caller once per request and stores it for Caller.
func Identify(authSvc *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := authSvc.Resolve(c.UserContext(), credential(c))
		if err != nil {
			return err
		}
		c.Locals(localIdentity, id)
		if !id.Anonymous() {
			c.Locals(applog.LocalUserID, id.UserID)
		}
		return c.Next()
	}
}

// Caller returns the identity resolved by Identify; anonymous when absent.
func Caller(c *fiber.Ctx) auth.Identity {
	id, _ := c.Locals(localIdentity).(auth.Identity)
	return id
}

// RequireRole gates a route on the caller's role. Denials are uniform.
func RequireRole(m *metrics.Metrics, roles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := Caller(c)
		if err := auth.Require(id, roles...); err != nil {
			m.AccessDenied()
			applog.Security(c, "access.denied", map[string]any{"role": string(id.Role), "anonymous": id.Anonymous()})
			return err
		}
		return c.Next()
	}
}

// RequireUser admits any signed-in caller.
func RequireUser(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if Caller(c).Anonymous() {
			m.AccessDenied()
			applog.Security(c, "access.denied", map[string]any{"anonymous": true})
			return apperr.Unauthenticated()
		}
		return c.Next()
	}
}
