package contracts

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nusacloud/billing-api/internal/storage/blob"
	"github.com/nusacloud/billing-api/internal/store"
)

type stubQueries struct {
	contracts map[string]*store.Contract
	created   []store.Contract
	deleted   []string
}

func (s *stubQueries) Create(_ context.Context, c store.Contract) (*store.Contract, error) {
	c.ID = "ct1"
	s.created = append(s.created, c)
	return &c, nil
}

func (s *stubQueries) ByID(_ context.Context, id string) (*store.Contract, error) {
	if c, ok := s.contracts[id]; ok {
		return c, nil
	}
	return nil, store.ErrNotFound
}

func (s *stubQueries) List(context.Context, store.ContractFilter) ([]store.ContractListing, int, error) {
	var out []store.ContractListing
	for _, c := range s.contracts {
		out = append(out, store.ContractListing{Contract: *c})
	}
	return out, len(out), nil
}

func (s *stubQueries) Update(_ context.Context, id string, c store.Contract) (*store.Contract, error) {
	existing, ok := s.contracts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	updated := *existing
	if c.ContractNumber != "" {
		updated.ContractNumber = c.ContractNumber
	}
	if c.FileKey != "" {
		updated.FileKey = c.FileKey
	}
	s.contracts[id] = &updated
	return &updated, nil
}

func (s *stubQueries) Delete(_ context.Context, id string) error {
	if _, ok := s.contracts[id]; !ok {
		return store.ErrNotFound
	}
	s.deleted = append(s.deleted, id)
	delete(s.contracts, id)
	return nil
}

type stubBlob struct {
	objects map[string][]byte
	deleted []string
}

func (s *stubBlob) Put(_ context.Context, key string, body io.Reader, _ blob.PutOptions) (blob.ObjectInfo, error) {
	data, _ := io.ReadAll(body)
	if s.objects == nil {
		s.objects = map[string][]byte{}
	}
	s.objects[key] = data
	return blob.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (s *stubBlob) Get(_ context.Context, key string) (io.ReadCloser, blob.ObjectInfo, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, blob.ObjectInfo{}, blob.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(string(data))), blob.ObjectInfo{Key: key}, nil
}

func (s *stubBlob) Delete(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	delete(s.objects, key)
	return nil
}

func (s *stubBlob) SignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://signed.example/" + key, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestService(q *stubQueries, b *stubBlob, now time.Time) *Service {
	svc := NewService(q, b, time.Minute, nil)
	svc.now = func() time.Time { return now }
	return svc
}

func TestStatusDerivation(t *testing.T) {
	now := day(2024, time.June, 15)
	svc := newTestService(&stubQueries{}, &stubBlob{}, now)

	tests := []struct {
		name string
		end  time.Time
		want string
	}{
		{"already over", day(2024, time.June, 1), StatusExpired},
		{"inside warning window", day(2024, time.July, 1), StatusExpiringSoon},
		{"exactly 30 days out", day(2024, time.July, 15), StatusExpiringSoon},
		{"well in the future", day(2025, time.January, 1), StatusActive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, svc.StatusFor(tt.end))
		})
	}
}

func TestCreateRejectsBackwardsDates(t *testing.T) {
	svc := newTestService(&stubQueries{}, &stubBlob{}, day(2024, time.June, 15))
	_, err := svc.Create(context.Background(), CreateInput{
		ClientID:  "c1",
		StartDate: day(2024, time.June, 10),
		EndDate:   day(2024, time.June, 1),
	})
	require.ErrorIs(t, err, ErrInvalidDates)
}

func TestCreateUploadsDocument(t *testing.T) {
	q := &stubQueries{}
	b := &stubBlob{}
	svc := newTestService(q, b, day(2024, time.June, 15))

	item, err := svc.Create(context.Background(), CreateInput{
		ClientID:       "c1",
		ContractNumber: "CTR-001",
		StartDate:      day(2024, time.January, 1),
		EndDate:        day(2025, time.January, 1),
		Document:       strings.NewReader("pdf bytes"),
		Filename:       "agreement.pdf",
		ContentType:    "application/pdf",
	})
	require.NoError(t, err)
	require.True(t, item.HasDocument)
	require.Equal(t, StatusActive, item.Status)
	require.Len(t, b.objects, 1)
	require.Len(t, q.created, 1)
	require.NotEmpty(t, q.created[0].FileKey)
	require.True(t, strings.HasPrefix(q.created[0].FileKey, "contracts/c1/"))
	require.True(t, strings.HasSuffix(q.created[0].FileKey, ".pdf"))
}

func TestUpdateReplacesDocumentAndCleansOld(t *testing.T) {
	q := &stubQueries{contracts: map[string]*store.Contract{
		"ct1": {ID: "ct1", ClientID: "c1", ContractNumber: "CTR-001", FileKey: "contracts/c1/old.pdf",
			StartDate: day(2024, time.January, 1), EndDate: day(2025, time.January, 1)},
	}}
	b := &stubBlob{objects: map[string][]byte{"contracts/c1/old.pdf": []byte("old")}}
	svc := newTestService(q, b, day(2024, time.June, 15))

	item, err := svc.Update(context.Background(), "ct1", UpdateInput{
		Document:    strings.NewReader("new"),
		Filename:    "new.pdf",
		ContentType: "application/pdf",
	})
	require.NoError(t, err)
	require.True(t, item.HasDocument)
	require.Contains(t, b.deleted, "contracts/c1/old.pdf")
}

func TestDeleteRemovesDocumentBestEffort(t *testing.T) {
	q := &stubQueries{contracts: map[string]*store.Contract{
		"ct1": {ID: "ct1", ClientID: "c1", FileKey: "contracts/c1/doc.pdf",
			StartDate: day(2024, time.January, 1), EndDate: day(2025, time.January, 1)},
	}}
	b := &stubBlob{objects: map[string][]byte{"contracts/c1/doc.pdf": []byte("doc")}}
	svc := newTestService(q, b, day(2024, time.June, 15))

	require.NoError(t, svc.Delete(context.Background(), "ct1"))
	require.Contains(t, b.deleted, "contracts/c1/doc.pdf")
	require.ErrorIs(t, svc.Delete(context.Background(), "ct1"), store.ErrNotFound)
}
