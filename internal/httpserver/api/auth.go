package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nusacloud/billing-api/internal/auth"
	"github.com/nusacloud/billing-api/internal/httpserver/httputil"
)

type userPayload struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	ClientID    string `json:"clientId,omitempty"`
	PasswordSet bool   `json:"passwordSet"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      userPayload `json:"user"`
}

func (h *handler) login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return httputil.WriteError(c, fiber.StatusBadRequest, "email and password are required")
	}

	session, err := h.auth.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return writeServiceError(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.container.Config.Auth.CookieName,
		Value:    session.Token,
		Expires:  session.ExpiresAt,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.JSON(loginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      sessionUser(session.Identity, session.PasswordSet),
	})
}

func (h *handler) logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     h.container.Config.Auth.CookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(fiber.Map{"loggedOut": true})
}

func (h *handler) me(c *fiber.Ctx) error {
	id := identity(c)
	return c.JSON(fiber.Map{"user": userPayload{
		ID:          id.UserID,
		Email:       id.Email,
		Role:        id.Role,
		ClientID:    id.ClientID,
		PasswordSet: true,
	}})
}

type registerRequest struct {
	Email    string `json:"email"`
	Role     string `json:"role"`
	ClientID string `json:"clientId"`
}

func (h *handler) register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Email) == "" {
		return httputil.WriteError(c, fiber.StatusBadRequest, "email is required")
	}

	var clientID *string
	if strings.TrimSpace(req.ClientID) != "" {
		clientID = &req.ClientID
	}

	reg, err := h.auth.Register(c.Context(), req.Email, req.Role, clientID)
	if err != nil {
		return writeServiceError(c, err)
	}

	user := userPayload{
		ID:          reg.User.ID,
		Email:       reg.User.Email,
		Role:        reg.User.Role,
		PasswordSet: reg.User.PasswordSet,
	}
	if reg.User.ClientID != nil {
		user.ClientID = *reg.User.ClientID
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user":         user,
		"tempPassword": reg.TempPassword,
	})
}

type passwordSetupRequest struct {
	NewPassword string `json:"newPassword"`
}

func (h *handler) completePasswordSetup(c *fiber.Ctx) error {
	var req passwordSetupRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.NewPassword) < 8 {
		return httputil.WriteError(c, fiber.StatusBadRequest, "password must be at least 8 characters")
	}

	if err := h.auth.CompletePasswordSetup(c.Context(), identity(c).UserID, req.NewPassword); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(fiber.Map{"passwordSet": true})
}

func sessionUser(id auth.Identity, passwordSet bool) userPayload {
	return userPayload{
		ID:          id.UserID,
		Email:       id.Email,
		Role:        id.Role,
		ClientID:    id.ClientID,
		PasswordSet: passwordSet,
	}
}
