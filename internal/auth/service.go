package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nusacloud/billing-api/internal/store"
)

var (
	// ErrInvalidCredentials covers unknown emails and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRateLimited reports too many login attempts for one email.
	ErrRateLimited = errors.New("too many login attempts")
	// ErrEmailTaken reports a registration against an existing email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidRole reports a registration with an unknown role.
	ErrInvalidRole = errors.New("invalid role")
)

// UserDirectory is the slice of the user store the auth service needs.
type UserDirectory interface {
	ByEmail(ctx context.Context, email string) (*store.User, error)
	Create(ctx context.Context, email, passwordHash, role string, clientID *string) (*store.User, error)
	SetPassword(ctx context.Context, id, passwordHash string) error
	MarkPasswordSet(ctx context.Context, id string) error
}

// LoginLimiter gates login attempts per email.
type LoginLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Service implements login, registration and password lifecycle.
type Service struct {
	users   UserDirectory
	tokens  *TokenManager
	limiter LoginLimiter
	logger  *slog.Logger
}

func NewService(users UserDirectory, tokens *TokenManager, limiter LoginLimiter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{users: users, tokens: tokens, limiter: limiter, logger: logger}
}

// Session is a successful login result.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Identity  Identity
	// PasswordSet is false while the account still runs on its temp password.
	PasswordSet bool
}

// Login verifies credentials and issues a session token. The limiter runs
// before any password work so hammering one email stays cheap.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, email)
		if err != nil {
			// Redis being down must not lock everyone out.
			s.logger.Warn("login limiter unavailable", "error", err)
		} else if !allowed {
			return nil, ErrRateLimited
		}
	}

	user, err := s.users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("look up user: %w", err)
	}

	ok, err := VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}

	id := Identity{UserID: user.ID, Email: user.Email, Role: user.Role}
	if user.ClientID != nil {
		id.ClientID = *user.ClientID
	}

	token, exp, err := s.tokens.Generate(id)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &Session{Token: token, ExpiresAt: exp, Identity: id, PasswordSet: user.PasswordSet}, nil
}

// Registration is the result of creating an account: the stored user plus
// the one-time temp password to hand to them out of band.
type Registration struct {
	User         *store.User
	TempPassword string
}

// Register creates an account with a generated temp password. Client-role
// accounts must name their client.
func (s *Service) Register(ctx context.Context, email, role string, clientID *string) (*Registration, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email required", ErrInvalidCredentials)
	}

	switch role {
	case "admin":
		clientID = nil
	case "client":
		if clientID == nil || *clientID == "" {
			return nil, fmt.Errorf("%w: client role requires a client id", ErrInvalidRole)
		}
	default:
		return nil, ErrInvalidRole
	}

	if _, err := s.users.ByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	temp, err := GenerateTempPassword(12)
	if err != nil {
		return nil, err
	}
	hash, err := HashPassword(temp)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Create(ctx, email, hash, role, clientID)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID, "role", role)
	return &Registration{User: user, TempPassword: temp}, nil
}

// CompletePasswordSetup replaces the temp password when newPassword is
// non-empty, otherwise just flips the password_set flag.
func (s *Service) CompletePasswordSetup(ctx context.Context, userID, newPassword string) error {
	if newPassword == "" {
		return s.users.MarkPasswordSet(ctx, userID)
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.users.SetPassword(ctx, userID, hash)
}
