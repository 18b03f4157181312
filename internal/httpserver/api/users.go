package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nusacloud/billing-api/internal/httpserver/httputil"
)

// myClient resolves the caller's client display name for the portal header.
func (h *handler) myClient(c *fiber.Ctx) error {
	id := identity(c)
	if id.ClientID == "" {
		return httputil.WriteError(c, fiber.StatusNotFound, "not found")
	}

	name, err := h.directory.ClientName(c.Context(), id.ClientID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(fiber.Map{"clientId": id.ClientID, "clientName": name})
}
