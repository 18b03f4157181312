package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/nusacloud/billing-api/internal/auth"
	"github.com/nusacloud/billing-api/internal/httpserver/httputil"
	"github.com/nusacloud/billing-api/internal/scope"
)

// requireAuth resolves the bearer header or session cookie into an identity
// and stores it on the request context.
func requireAuth(tokens *auth.TokenManager, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := bearerToken(c)
		if raw == "" {
			raw = c.Cookies(cookieName)
		}
		if raw == "" {
			return httputil.WriteError(c, fiber.StatusUnauthorized, "missing credentials")
		}

		id, err := tokens.Parse(raw)
		if err != nil {
			return httputil.WriteError(c, fiber.StatusUnauthorized, "invalid or expired token")
		}

		c.Locals(identityKey, id)
		return c.Next()
	}
}

// requireAdmin gates a route group to admin identities. Must run after
// requireAuth.
func requireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if scope.Role(identity(c).Role) != scope.RoleAdmin {
			return httputil.WriteError(c, fiber.StatusForbidden, "admin access required")
		}
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) string {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
