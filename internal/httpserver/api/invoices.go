package api

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nusacloud/billing-api/internal/httpserver/httputil"
	"github.com/nusacloud/billing-api/internal/scope"
	"github.com/nusacloud/billing-api/internal/services/invoices"
	"github.com/nusacloud/billing-api/internal/storage/blob"
	"github.com/nusacloud/billing-api/internal/store"
)

func (h *handler) listInvoices(c *fiber.Ctx) error {
	id := identity(c)
	items, err := h.invoices.ListForClient(c.Context(), scope.Role(id.Role), id.ClientID, c.Query("clientId"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(fiber.Map{"invoices": items})
}

func (h *handler) adminListInvoices(c *fiber.Ctx) error {
	page, perPage, err := parsePagination(c)
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	}
	month, err := parseIntParam(c, "month")
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	}
	year, err := parseIntParam(c, "year")
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	}

	list, err := h.invoices.ListAdmin(c.Context(), store.InvoiceFilter{
		Status:   c.Query("status"),
		ClientID: c.Query("clientId"),
		Month:    month,
		Year:     year,
		Page:     page,
		PerPage:  perPage,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(list)
}

type invoiceStatusRequest struct {
	Status string `json:"status"`
}

func (h *handler) updateInvoiceStatus(c *fiber.Ctx) error {
	var req invoiceStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.invoices.UpdateStatus(c.Context(), c.Params("invoiceID"), req.Status); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(fiber.Map{"updated": true})
}

type invoiceDetailsRequest struct {
	Status      *string `json:"status"`
	PaymentDate *string `json:"paymentDate"`
	Notes       *string `json:"notes"`
}

func (h *handler) updateInvoiceDetails(c *fiber.Ctx) error {
	var req invoiceDetailsRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid request body")
	}

	patch := invoices.DetailsPatch{Status: req.Status, Notes: req.Notes}
	if req.PaymentDate != nil && strings.TrimSpace(*req.PaymentDate) != "" {
		t, err := time.Parse("2006-01-02", *req.PaymentDate)
		if err != nil {
			return httputil.WriteError(c, fiber.StatusBadRequest, "paymentDate must be YYYY-MM-DD")
		}
		patch.PaymentDate = &t
	}

	if err := h.invoices.UpdateDetails(c.Context(), c.Params("invoiceID"), patch); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(fiber.Map{"updated": true})
}

func (h *handler) invoiceViewURL(c *fiber.Ctx) error {
	id := identity(c)
	invoiceID := c.Params("invoiceID")

	url, err := h.invoices.ViewURL(c.Context(), scope.Role(id.Role), id.ClientID, invoiceID)
	if errors.Is(err, blob.ErrSignedURLUnavailable) {
		// Local storage cannot presign; point the caller at the streaming route.
		return c.JSON(fiber.Map{"url": "/api/invoices/" + invoiceID + "/document"})
	}
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(fiber.Map{"url": url})
}

func (h *handler) invoiceDocument(c *fiber.Ctx) error {
	id := identity(c)
	rc, info, err := h.invoices.Document(c.Context(), scope.Role(id.Role), id.ClientID, c.Params("invoiceID"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return sendDocument(c, rc, info)
}

func (h *handler) invoicePDF(c *fiber.Ctx) error {
	id := identity(c)
	pdf, err := h.invoices.GeneratePDF(c.Context(), scope.Role(id.Role), id.ClientID, c.Params("invoiceID"))
	if err != nil {
		return writeServiceError(c, err)
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="invoice.pdf"`)
	return c.Send(pdf)
}
