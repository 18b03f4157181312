package api

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/nusacloud/billing-api/internal/httpserver/httputil"
	"github.com/nusacloud/billing-api/internal/services/reporting"
)

func (h *handler) dailyServiceBreakdown(c *fiber.Ctx) error {
	return h.dailyBreakdown(c, h.reporting.DailyServiceBreakdown)
}

func (h *handler) dailyProjectBreakdown(c *fiber.Ctx) error {
	return h.dailyBreakdown(c, h.reporting.DailyProjectBreakdown)
}

func (h *handler) projectDailyBreakdown(c *fiber.Ctx) error {
	params, err := parseRangeParams(c)
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	}

	out, err := h.reporting.ProjectDailyBreakdown(c.Context(), caller(c), c.Query("clientId"), c.Params("projectID"), params)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(out)
}

func (h *handler) rangeTotals(c *fiber.Ctx) error {
	params, err := parseRangeParams(c)
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	}

	out, err := h.reporting.RangeServiceTotals(c.Context(), caller(c), c.Query("clientId"), params)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(out)
}

func (h *handler) dailyBreakdown(c *fiber.Ctx, fetch func(ctx context.Context, caller reporting.Caller, clientID string, p reporting.Params) (*reporting.DailyBreakdown, error)) error {
	params, err := parseRangeParams(c)
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	}

	out, err := fetch(c.Context(), caller(c), c.Query("clientId"), params)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(out)
}
