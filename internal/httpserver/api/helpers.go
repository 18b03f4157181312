package api

import (
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nusacloud/billing-api/internal/auth"
	"github.com/nusacloud/billing-api/internal/httpserver/httputil"
	"github.com/nusacloud/billing-api/internal/scope"
	"github.com/nusacloud/billing-api/internal/services/contracts"
	"github.com/nusacloud/billing-api/internal/services/gateway"
	"github.com/nusacloud/billing-api/internal/services/invoices"
	"github.com/nusacloud/billing-api/internal/services/reporting"
	"github.com/nusacloud/billing-api/internal/services/settings"
	"github.com/nusacloud/billing-api/internal/storage/blob"
	"github.com/nusacloud/billing-api/internal/store"
	"github.com/nusacloud/billing-api/internal/timeutil"
)

const identityKey = "identity"

// identity returns the authenticated caller stored by the auth middleware.
func identity(c *fiber.Ctx) auth.Identity {
	if id, ok := c.Locals(identityKey).(auth.Identity); ok {
		return id
	}
	return auth.Identity{}
}

// caller converts the request identity into a reporting scope caller.
func caller(c *fiber.Ctx) reporting.Caller {
	id := identity(c)
	return reporting.Caller{Role: scope.Role(id.Role), ClientID: id.ClientID}
}

// writeServiceError maps service sentinel errors onto the API's status
// taxonomy. Unrecognized errors become opaque 500s.
func writeServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, scope.ErrClientRequired),
		errors.Is(err, scope.ErrUnknownRole),
		errors.Is(err, timeutil.ErrStartAfterEnd),
		errors.Is(err, timeutil.ErrRangeTooLong),
		errors.Is(err, timeutil.ErrInvalidMonth),
		errors.Is(err, reporting.ErrInvalidGroupBy),
		errors.Is(err, reporting.ErrInvalidBudget),
		errors.Is(err, reporting.ErrProjectRequired),
		errors.Is(err, contracts.ErrInvalidDates),
		errors.Is(err, gateway.ErrInvalidDates),
		errors.Is(err, gateway.ErrInvalidEmail),
		errors.Is(err, settings.ErrInvalidEmail),
		errors.Is(err, auth.ErrInvalidRole):
		return httputil.WriteError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, scope.ErrNoClient):
		return httputil.WriteError(c, fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, scope.ErrCrossTenant):
		return httputil.WriteError(c, fiber.StatusForbidden, "forbidden")
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, blob.ErrNotFound),
		errors.Is(err, invoices.ErrNoDocument):
		return httputil.WriteError(c, fiber.StatusNotFound, "not found")
	case errors.Is(err, invoices.ErrInvalidStatus),
		errors.Is(err, auth.ErrEmailTaken):
		return httputil.WriteError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrRateLimited):
		return httputil.WriteError(c, fiber.StatusTooManyRequests, err.Error())
	default:
		return httputil.WriteError(c, fiber.StatusInternalServerError, "internal error")
	}
}

// parseRangeParams reads start_date/end_date/month/year query parameters.
// Dates use ISO 2006-01-02; the camelCase spellings are accepted too for
// callers that use them.
func parseRangeParams(c *fiber.Ctx) (reporting.Params, error) {
	var p reporting.Params

	if raw := dateParam(c, "start_date", "startDate"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return p, errors.New("start_date must be YYYY-MM-DD")
		}
		p.Start = &t
	}
	if raw := dateParam(c, "end_date", "endDate"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return p, errors.New("end_date must be YYYY-MM-DD")
		}
		p.End = &t
	}
	if (p.Start == nil) != (p.End == nil) {
		return p, errors.New("start_date and end_date must be provided together")
	}

	var err error
	if p.Month, err = parseIntParam(c, "month"); err != nil {
		return p, err
	}
	if p.Year, err = parseIntParam(c, "year"); err != nil {
		return p, err
	}
	return p, nil
}

func dateParam(c *fiber.Ctx, names ...string) string {
	for _, name := range names {
		if raw := strings.TrimSpace(c.Query(name)); raw != "" {
			return raw
		}
	}
	return ""
}

func parseIntParam(c *fiber.Ctx, name string) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.New(name + " must be a non-negative integer")
	}
	return v, nil
}

// sendDocument streams a blob to the response. fasthttp closes the reader
// once the body has been sent.
func sendDocument(c *fiber.Ctx, rc io.ReadCloser, info blob.ObjectInfo) error {
	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Set(fiber.HeaderContentType, contentType)
	if info.Size > 0 {
		return c.SendStream(rc, int(info.Size))
	}
	return c.SendStream(rc)
}

// parsePagination reads page/perPage with sane caps.
func parsePagination(c *fiber.Ctx) (page, perPage int, err error) {
	if page, err = parseIntParam(c, "page"); err != nil {
		return 0, 0, err
	}
	if perPage, err = parseIntParam(c, "perPage"); err != nil {
		return 0, 0, err
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage, nil
}
