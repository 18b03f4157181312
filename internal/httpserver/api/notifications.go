package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nusacloud/billing-api/internal/scope"
)

func (h *handler) listNotifications(c *fiber.Ctx) error {
	id := identity(c)
	items, err := h.notifications.Unread(c.Context(), scope.Role(id.Role), id.ClientID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(fiber.Map{"notifications": items})
}

func (h *handler) markNotificationRead(c *fiber.Ctx) error {
	id := identity(c)
	if err := h.notifications.MarkRead(c.Context(), scope.Role(id.Role), id.ClientID, c.Params("notificationID")); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(fiber.Map{"read": true})
}

func (h *handler) deleteNotification(c *fiber.Ctx) error {
	id := identity(c)
	if err := h.notifications.Delete(c.Context(), scope.Role(id.Role), id.ClientID, c.Params("notificationID")); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": true})
}
