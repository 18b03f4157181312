package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nusacloud/billing-api/internal/store"
)

type stubDirectory struct {
	users       map[string]*store.User
	created     []*store.User
	passwordSet []string
}

func (s *stubDirectory) ByEmail(_ context.Context, email string) (*store.User, error) {
	if u, ok := s.users[email]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func (s *stubDirectory) Create(_ context.Context, email, hash, role string, clientID *string) (*store.User, error) {
	u := &store.User{ID: "u-" + email, Email: email, PasswordHash: hash, Role: role, ClientID: clientID}
	s.created = append(s.created, u)
	return u, nil
}

func (s *stubDirectory) SetPassword(_ context.Context, id, hash string) error {
	s.passwordSet = append(s.passwordSet, id)
	return nil
}

func (s *stubDirectory) MarkPasswordSet(_ context.Context, id string) error {
	s.passwordSet = append(s.passwordSet, id)
	return nil
}

type stubLimiter struct{ allowed bool }

func (s stubLimiter) Allow(context.Context, string) (bool, error) { return s.allowed, nil }

func newTestTokens(t *testing.T) *TokenManager {
	t.Helper()
	tm, err := NewTokenManager("test-secret", time.Hour, "billing-api")
	require.NoError(t, err)
	return tm
}

func TestTokenRoundTrip(t *testing.T) {
	tm := newTestTokens(t)

	want := Identity{UserID: "u1", Email: "a@b.id", Role: "client", ClientID: "c1"}
	token, exp, err := tm.Generate(want)
	require.NoError(t, err)
	require.True(t, exp.After(time.Now()))

	got, err := tm.Parse(token)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestTokenParseRejectsGarbage(t *testing.T) {
	tm := newTestTokens(t)

	_, err := tm.Parse("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)

	other, err := NewTokenManager("other-secret", time.Hour, "billing-api")
	require.NoError(t, err)
	token, _, err := other.Generate(Identity{UserID: "u1", Role: "client"})
	require.NoError(t, err)

	_, err = tm.Parse(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestLoginSuccess(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	clientID := "c1"
	dir := &stubDirectory{users: map[string]*store.User{
		"a@b.id": {ID: "u1", Email: "a@b.id", PasswordHash: hash, Role: "client", ClientID: &clientID, PasswordSet: true},
	}}
	svc := NewService(dir, newTestTokens(t), stubLimiter{allowed: true}, nil)

	sess, err := svc.Login(context.Background(), "A@B.id", "s3cret")
	require.NoError(t, err)
	require.Equal(t, "u1", sess.Identity.UserID)
	require.Equal(t, "c1", sess.Identity.ClientID)
	require.True(t, sess.PasswordSet)
	require.NotEmpty(t, sess.Token)
}

func TestLoginWrongPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	dir := &stubDirectory{users: map[string]*store.User{
		"a@b.id": {ID: "u1", Email: "a@b.id", PasswordHash: hash, Role: "admin"},
	}}
	svc := NewService(dir, newTestTokens(t), stubLimiter{allowed: true}, nil)

	_, err = svc.Login(context.Background(), "a@b.id", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "nobody@b.id", "s3cret")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRateLimited(t *testing.T) {
	dir := &stubDirectory{users: map[string]*store.User{}}
	svc := NewService(dir, newTestTokens(t), stubLimiter{allowed: false}, nil)

	_, err := svc.Login(context.Background(), "a@b.id", "s3cret")
	require.ErrorIs(t, err, ErrRateLimited)
}

func TestRegisterClientRequiresClientID(t *testing.T) {
	dir := &stubDirectory{users: map[string]*store.User{}}
	svc := NewService(dir, newTestTokens(t), nil, nil)

	_, err := svc.Register(context.Background(), "new@b.id", "client", nil)
	require.ErrorIs(t, err, ErrInvalidRole)

	clientID := "c1"
	reg, err := svc.Register(context.Background(), "new@b.id", "client", &clientID)
	require.NoError(t, err)
	require.NotEmpty(t, reg.TempPassword)
	require.Equal(t, "client", reg.User.Role)

	// the temp password must verify against the stored hash
	ok, err := VerifyPassword(reg.TempPassword, reg.User.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	dir := &stubDirectory{users: map[string]*store.User{
		"a@b.id": {ID: "u1", Email: "a@b.id", Role: "admin"},
	}}
	svc := NewService(dir, newTestTokens(t), nil, nil)

	_, err := svc.Register(context.Background(), "a@b.id", "admin", nil)
	require.ErrorIs(t, err, ErrEmailTaken)
}
