package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/nusacloud/billing-api/internal/auth"
)

func newAuthedApp(t *testing.T) (*fiber.App, *auth.TokenManager) {
	t.Helper()
	tokens, err := auth.NewTokenManager("test-secret-test-secret-test-secret", time.Hour, "billing-api")
	require.NoError(t, err)

	app := fiber.New()
	group := app.Group("/p", requireAuth(tokens, "token"))
	group.Get("/me", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"role": identity(c).Role})
	})
	group.Get("/admin", requireAdmin(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app, tokens
}

func TestRequireAuthRejectsMissingAndBadTokens(t *testing.T) {
	app, _ := newAuthedApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/p/me", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest("GET", "/p/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequireAuthAcceptsBearerAndCookie(t *testing.T) {
	app, tokens := newAuthedApp(t)
	token, _, err := tokens.Generate(auth.Identity{UserID: "u1", Email: "a@b.id", Role: "client", ClientID: "c1"})
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/p/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest("GET", "/p/me", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireAdminBlocksClients(t *testing.T) {
	app, tokens := newAuthedApp(t)

	clientToken, _, err := tokens.Generate(auth.Identity{UserID: "u1", Role: "client", ClientID: "c1"})
	require.NoError(t, err)
	req := httptest.NewRequest("GET", "/p/admin", nil)
	req.Header.Set("Authorization", "Bearer "+clientToken)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	adminToken, _, err := tokens.Generate(auth.Identity{UserID: "u2", Role: "admin"})
	require.NoError(t, err)
	req = httptest.NewRequest("GET", "/p/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}
