package api

import (
	"errors"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nusacloud/billing-api/internal/httpserver/httputil"
	"github.com/nusacloud/billing-api/internal/scope"
	"github.com/nusacloud/billing-api/internal/services/contracts"
	"github.com/nusacloud/billing-api/internal/storage/blob"
	"github.com/nusacloud/billing-api/internal/store"
)

func (h *handler) listContracts(c *fiber.Ctx) error {
	id := identity(c)
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

	// Admins may list across clients; client callers are pinned to their own.
	clientID := c.Query("clientId")
	if scope.Role(id.Role) != scope.RoleAdmin {
		clientID, err = scope.Resolve(scope.Role(id.Role), id.ClientID, clientID)
		if err != nil {
			return writeServiceError(c, err)
		}
	}

	items, total, err := h.contracts.List(c.Context(), store.ContractFilter{
		ClientID: clientID,
		Month:    month,
		Year:     year,
		Page:     page,
		PerPage:  perPage,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(fiber.Map{"contracts": items, "total": total})
}

func (h *handler) createContract(c *fiber.Ctx) error {
	clientID := strings.TrimSpace(c.FormValue("clientId"))
	number := strings.TrimSpace(c.FormValue("contractNumber"))
	if clientID == "" || number == "" {
		return httputil.WriteError(c, fiber.StatusBadRequest, "clientId and contractNumber are required")
	}
	start, end, err := contractDates(c, true)
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	}

	in := contracts.CreateInput{
		ClientID:       clientID,
		ContractNumber: number,
		StartDate:      start,
		EndDate:        end,
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

	item, err := h.contracts.Create(c.Context(), in)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

func (h *handler) updateContract(c *fiber.Ctx) error {
	start, end, err := contractDates(c, false)
	if err != nil {
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	}

	in := contracts.UpdateInput{
		ContractNumber: strings.TrimSpace(c.FormValue("contractNumber")),
		StartDate:      start,
		EndDate:        end,
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

	item, err := h.contracts.Update(c.Context(), c.Params("contractID"), in)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(item)
}

func (h *handler) deleteContract(c *fiber.Ctx) error {
	if err := h.contracts.Delete(c.Context(), c.Params("contractID")); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": true})
}

func (h *handler) contractViewURL(c *fiber.Ctx) error {
	id := identity(c)
	contractID := c.Params("contractID")

	url, err := h.contracts.ViewURL(c.Context(), scope.Role(id.Role), id.ClientID, contractID)
	if errors.Is(err, blob.ErrSignedURLUnavailable) {
		return c.JSON(fiber.Map{"url": "/api/contracts/" + contractID + "/document"})
	}
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(fiber.Map{"url": url})
}

func (h *handler) contractDocument(c *fiber.Ctx) error {
	id := identity(c)
	rc, info, err := h.contracts.Document(c.Context(), scope.Role(id.Role), id.ClientID, c.Params("contractID"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return sendDocument(c, rc, info)
}

// contractDates parses startDate/endDate form fields. When required is false,
// missing fields come back as zero times so the service leaves them untouched.
func contractDates(c *fiber.Ctx, required bool) (start, end time.Time, err error) {
	parse := func(name string) (time.Time, error) {
		raw := strings.TrimSpace(c.FormValue(name))
		if raw == "" {
			if required {
				return time.Time{}, errors.New(name + " is required")
			}
			return time.Time{}, nil
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, errors.New(name + " must be YYYY-MM-DD")
		}
		return t, nil
	}

	if start, err = parse("startDate"); err != nil {
		return start, end, err
	}
	end, err = parse("endDate")
	return start, end, err
}

type uploadedDocument struct {
	file        multipart.File
	filename    string
	contentType string
}

// formDocument opens the optional "document" multipart file. The returned
// close func is non-nil whenever the document is.
func formDocument(c *fiber.Ctx) (*uploadedDocument, func(), error) {
	fh, err := c.FormFile("document")
	if err != nil {
		// Missing file is fine; the document is optional.
		return nil, nil, nil
	}

	f, err := fh.Open()
	if err != nil {
		return nil, nil, errors.New("unreadable document upload")
	}
	return &uploadedDocument{
		file:        f,
		filename:    fh.Filename,
		contentType: fh.Header.Get(fiber.HeaderContentType),
	}, func() { _ = f.Close() }, nil
}
