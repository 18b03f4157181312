package invoices

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nusacloud/billing-api/internal/format"
	"github.com/nusacloud/billing-api/internal/scope"
	"github.com/nusacloud/billing-api/internal/store"
)

type stubQueries struct {
	invoices map[string]*store.Invoice
	listing  []store.InvoiceListing
	total    int

	statusUpdates map[string]string
}

func (s *stubQueries) ListByClient(_ context.Context, clientID string) ([]store.Invoice, error) {
	var out []store.Invoice
	for _, inv := range s.invoices {
		if inv.ClientID == clientID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (s *stubQueries) ListAdmin(context.Context, store.InvoiceFilter) ([]store.InvoiceListing, int, error) {
	return s.listing, s.total, nil
}

func (s *stubQueries) ByID(_ context.Context, id string) (*store.Invoice, error) {
	if inv, ok := s.invoices[id]; ok {
		return inv, nil
	}
	return nil, store.ErrNotFound
}

func (s *stubQueries) UpdateStatus(_ context.Context, id, status string) error {
	if _, ok := s.invoices[id]; !ok {
		return store.ErrNotFound
	}
	if s.statusUpdates == nil {
		s.statusUpdates = map[string]string{}
	}
	s.statusUpdates[id] = status
	return nil
}

func (s *stubQueries) UpdateDetails(_ context.Context, id string, _ *string, _ *time.Time, _ *string) error {
	if _, ok := s.invoices[id]; !ok {
		return store.ErrNotFound
	}
	return nil
}

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func newTestService(q *stubQueries) *Service {
	return NewService(q, nil, nil, format.NewFormatter(format.Indonesian), nil, time.Minute, nil)
}

func TestUpdateStatusValidation(t *testing.T) {
	q := &stubQueries{invoices: map[string]*store.Invoice{
		"i1": {ID: "i1", ClientID: "c1", Status: "pending"},
	}}
	svc := newTestService(q)
	ctx := context.Background()

	require.ErrorIs(t, svc.UpdateStatus(ctx, "i1", "approved-ish"), ErrInvalidStatus)
	require.ErrorIs(t, svc.UpdateStatus(ctx, "missing", "paid"), store.ErrNotFound)

	require.NoError(t, svc.UpdateStatus(ctx, "i1", "paid"))
	require.Equal(t, "paid", q.statusUpdates["i1"])

	// re-applying the current status is idempotent
	require.NoError(t, svc.UpdateStatus(ctx, "i1", "paid"))
}

func TestListAdminGroupsByMonth(t *testing.T) {
	amount := decimal.NewFromInt(2500000)
	q := &stubQueries{
		listing: []store.InvoiceListing{
			{Invoice: store.Invoice{ID: "i1", InvoiceNumber: "INV-003", PeriodMonth: month(2024, time.March), Amount: amount, Status: "pending"}, ClientName: "PT Alpha"},
			{Invoice: store.Invoice{ID: "i2", InvoiceNumber: "INV-002", PeriodMonth: month(2024, time.March), Amount: amount, Status: "paid"}, ClientName: "PT Beta"},
			{Invoice: store.Invoice{ID: "i3", InvoiceNumber: "INV-001", PeriodMonth: month(2024, time.February), Amount: amount, Status: "paid"}, ClientName: "PT Alpha"},
		},
		total: 3,
	}
	svc := newTestService(q)

	got, err := svc.ListAdmin(context.Background(), store.InvoiceFilter{Page: 1, PerPage: 2})
	require.NoError(t, err)

	require.Len(t, got.Groups, 2)
	require.Equal(t, "March 2024", got.Groups[0].Month)
	require.Len(t, got.Groups[0].Invoices, 2)
	require.Equal(t, "February 2024", got.Groups[1].Month)
	require.Equal(t, 3, got.Total)
	require.Equal(t, 2, got.TotalPages)
	require.Equal(t, "Rp 2.500.000,00", got.Groups[0].Invoices[0].Amount)
}

func TestViewURLEnforcesOwnership(t *testing.T) {
	q := &stubQueries{invoices: map[string]*store.Invoice{
		"i1": {ID: "i1", ClientID: "c1", FileKey: "invoices/i1.pdf"},
		"i2": {ID: "i2", ClientID: "c1"},
	}}
	svc := newTestService(q)
	ctx := context.Background()

	_, err := svc.ViewURL(ctx, scope.RoleClient, "c2", "i1")
	require.ErrorIs(t, err, scope.ErrCrossTenant)

	_, err = svc.ViewURL(ctx, scope.RoleClient, "c1", "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.ViewURL(ctx, scope.RoleClient, "c1", "i2")
	require.ErrorIs(t, err, ErrNoDocument)
}

func TestListForClientScope(t *testing.T) {
	q := &stubQueries{invoices: map[string]*store.Invoice{
		"i1": {ID: "i1", ClientID: "c1", InvoiceNumber: "INV-001", PeriodMonth: month(2024, time.January), Amount: decimal.NewFromInt(100), Status: "paid", FileKey: "k"},
	}}
	svc := newTestService(q)
	ctx := context.Background()

	items, err := svc.ListForClient(ctx, scope.RoleClient, "c1", "")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "January 2024", items[0].Period)
	require.True(t, items[0].HasDocument)

	_, err = svc.ListForClient(ctx, scope.RoleClient, "c1", "c2")
	require.ErrorIs(t, err, scope.ErrCrossTenant)

	_, err = svc.ListForClient(ctx, scope.RoleAdmin, "", "")
	require.ErrorIs(t, err, scope.ErrClientRequired)
}
