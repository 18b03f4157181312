package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/nusacloud/billing-api/internal/httpserver/httputil"
	"github.com/nusacloud/billing-api/internal/services/reporting"
)

func (h *handler) projects(c *fiber.Ctx) error {
	projects, err := h.reporting.Projects(c.Context(), caller(c), c.Query("clientId"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(fiber.Map{"projects": projects})
}

func (h *handler) summary(c *fiber.Ctx) error {
	month, err := parseIntParam(c, "month")
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	}
	year, err := parseIntParam(c, "year")
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	}

	summary, err := h.reporting.Summary(c.Context(), caller(c), c.Query("clientId"), month, year)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(summary)
}

func (h *handler) serviceBreakdown(c *fiber.Ctx) error {
	return h.breakdown(c, h.reporting.ServiceBreakdown)
}

func (h *handler) projectBreakdown(c *fiber.Ctx) error {
	return h.breakdown(c, h.reporting.ProjectBreakdown)
}

func (h *handler) breakdown(c *fiber.Ctx, fetch func(ctx context.Context, caller reporting.Caller, clientID string, month, year int) (*reporting.Breakdown, error)) error {
	month, err := parseIntParam(c, "month")
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	}
	year, err := parseIntParam(c, "year")
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	}

	out, err := fetch(c.Context(), caller(c), c.Query("clientId"), month, year)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(out)
}

func (h *handler) monthlyUsage(c *fiber.Ctx) error {
	months, err := parseIntParam(c, "months")
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	}

	usage, err := h.reporting.MonthlyUsage(c.Context(), caller(c), c.Query("clientId"), months, c.Query("groupBy", "service"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(usage)
}

func (h *handler) getBudget(c *fiber.Ctx) error {
	budget, err := h.reporting.Budget(c.Context(), caller(c), c.Query("clientId"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(budget)
}

type budgetRequest struct {
	Value        float64 `json:"value"`
	ThresholdPct int     `json:"thresholdPct"`
}

func (h *handler) updateBudget(c *fiber.Ctx) error {
	var req budgetRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
	}

	budget, err := h.reporting.UpdateBudget(c.Context(), caller(c), c.Query("clientId"), decimal.NewFromFloat(req.Value), req.ThresholdPct)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(budget)
}
