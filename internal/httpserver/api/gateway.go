package api

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/nusacloud/billing-api/internal/httpserver/httputil"
	"github.com/nusacloud/billing-api/internal/services/gateway"
	"github.com/nusacloud/billing-api/internal/storage/blob"
	"github.com/nusacloud/billing-api/internal/store"
)

func (h *handler) listGatewayClients(c *fiber.Ctx) error {
	clients, err := h.gateway.Clients(c.Context())
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(fiber.Map{"clients": clients})
}

func (h *handler) listGatewayContracts(c *fiber.Ctx) error {
	page, perPage, err := parsePagination(c)
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	}
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 15
	}
	month, err := parseIntParam(c, "month")
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	}
	year, err := parseIntParam(c, "year")
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	}

	items, total, err := h.gateway.List(c.Context(), store.GatewayContractFilter{
		Month:   month,
		Year:    year,
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		return writeServiceError(c, err)
	}

	totalPages := (total + perPage - 1) / perPage
	return c.JSON(fiber.Map{
		"pagination": fiber.Map{
			"totalItems":  total,
			"totalPages":  totalPages,
			"currentPage": page,
			"limit":       perPage,
		},
		"data": items,
	})
}

func (h *handler) gatewayContractDetails(c *fiber.Ctx) error {
	item, err := h.gateway.Details(c.Context(), c.Params("gwContractID"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(item)
}

func (h *handler) createGatewayContract(c *fiber.Ctx) error {
	clientID := strings.TrimSpace(c.FormValue("clientId"))
	if clientID == "" {
		return httputil.WriteError(c, fiber.StatusBadRequest, "clientId is required")
	}
	start, end, err := contractDates(c, true)
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	}

	in := gateway.CreateInput{
		ClientID:      clientID,
		StartDate:     start,
		EndDate:       end,
		Notes:         strings.TrimSpace(c.FormValue("notes")),
		ContactEmails: formEmails(c),
	}
	doc, closeDoc, err := formDocument(c)
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	}
	if doc != nil {
		defer closeDoc()
		in.Document = doc.file
		in.Filename = doc.filename
		in.ContentType = doc.contentType
	}

	item, err := h.gateway.Create(c.Context(), in)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

func (h *handler) updateGatewayContract(c *fiber.Ctx) error {
	start, end, err := contractDates(c, false)
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	}

	in := gateway.UpdateInput{
		StartDate:     start,
		EndDate:       end,
		Notes:         strings.TrimSpace(c.FormValue("notes")),
		ContactEmails: formEmails(c),
	}
	doc, closeDoc, err := formDocument(c)
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	}
	if doc != nil {
		defer closeDoc()
		in.Document = doc.file
		in.Filename = doc.filename
		in.ContentType = doc.contentType
	}

	item, err := h.gateway.Update(c.Context(), c.Params("gwContractID"), in)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(item)
}

func (h *handler) deleteGatewayContract(c *fiber.Ctx) error {
	if err := h.gateway.Delete(c.Context(), c.Params("gwContractID")); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": true})
}

func (h *handler) gatewayContractViewURL(c *fiber.Ctx) error {
	contractID := c.Params("gwContractID")
	url, err := h.gateway.ViewURL(c.Context(), contractID)
	if errors.Is(err, blob.ErrSignedURLUnavailable) {
		return c.JSON(fiber.Map{"url": "/api/admin/gateway/contracts/" + contractID + "/document"})
	}
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(fiber.Map{"url": url})
}

func (h *handler) gatewayContractDocument(c *fiber.Ctx) error {
	rc, info, err := h.gateway.Document(c.Context(), c.Params("gwContractID"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return sendDocument(c, rc, info)
}

// formEmails reads the contactEmails multipart field, splitting comma lists.
// Returns nil when the field is absent so updates leave the stored list
// untouched.
func formEmails(c *fiber.Ctx) []string {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil
	}
	values, ok := form.Value["contactEmails"]
	if !ok {
		return nil
	}
	out := []string{}
	for _, v := range values {
		for _, e := range strings.Split(v, ",") {
			if e = strings.TrimSpace(e); e != "" {
				out = append(out, e)
			}
		}
	}
	return out
}
