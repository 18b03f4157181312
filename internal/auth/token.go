package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken reports a token that failed signature or claim checks.
var ErrInvalidToken = errors.New("invalid token")

// Identity is the authenticated caller extracted from a session token.
// ClientID is empty for admins.
type Identity struct {
	UserID   string
	Email    string
	Role     string
	ClientID string
}

// TokenManager signs and verifies HS256 session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

func NewTokenManager(secret string, ttl time.Duration, issuer string) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("token secret required")
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be > 0")
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, issuer: issuer}, nil
}

// Generate signs a session token for the identity and returns it with its
// expiry.
func (tm *TokenManager) Generate(id Identity) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(tm.ttl)

	claims := jwt.MapClaims{
		"sub":      id.UserID,
		"email":    id.Email,
		"role":     id.Role,
		"clientId": id.ClientID,
		"iat":      now.Unix(),
		"exp":      exp.Unix(),
		"iss":      tm.issuer,
		"jti":      uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies a session token and returns the embedded identity.
func (tm *TokenManager) Parse(raw string) (Identity, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return tm.secret, nil
	}, jwt.WithExpirationRequired(), jwt.WithIssuer(tm.issuer))
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}

	id := Identity{
		UserID:   claimString(claims, "sub"),
		Email:    claimString(claims, "email"),
		Role:     claimString(claims, "role"),
		ClientID: claimString(claims, "clientId"),
	}
	if id.UserID == "" || id.Role == "" {
		return Identity{}, ErrInvalidToken
	}
	return id, nil
}

func claimString(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
