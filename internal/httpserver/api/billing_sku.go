package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nusacloud/billing-api/internal/httpserver/httputil"
)

func (h *handler) skuTrend(c *fiber.Ctx) error {
	params, err := parseRangeParams(c)
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	}

	out, err := h.reporting.SkuTrend(c.Context(), caller(c), c.Query("clientId"), c.Query("projectId"), params)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(out)
}

func (h *handler) skuBreakdown(c *fiber.Ctx) error {
	params, err := parseRangeParams(c)
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	}

	out, err := h.reporting.SkuBreakdown(c.Context(), caller(c), c.Query("clientId"), c.Query("projectId"), params)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(out)
}
