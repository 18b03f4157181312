package api

import (
	"github.com/gofiber/fiber/v2"
)

func (h *handler) listClients(c *fiber.Ctx) error {
	clients, err := h.directory.Clients(c.Context())
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(fiber.Map{"clients": clients})
}

func (h *handler) listUsers(c *fiber.Ctx) error {
	users, err := h.directory.Users(c.Context())
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(fiber.Map{"users": users})
}

func (h *handler) deleteUser(c *fiber.Ctx) error {
	if err := h.directory.DeleteUser(c.Context(), c.Params("userID")); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": true})
}
