package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/nusacloud/billing-api/internal/httpserver/httputil"
)

func (h *handler) listInternalEmails(c *fiber.Ctx) error {
	emails, err := h.settings.Emails(c.Context())
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(fiber.Map{"emails": emails})
}

type addEmailRequest struct {
	Email string `json:"email"`
}

func (h *handler) addInternalEmail(c *fiber.Ctx) error {
	var req addEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
	}

	email, err := h.settings.AddEmail(c.Context(), req.Email)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(email)
}

func (h *handler) deleteInternalEmail(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("emailID"), 10, 64)
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "emailID must be an integer")
	}

	if err := h.settings.RemoveEmail(c.Context(), id); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": true})
}
