package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/merchantgate/server/internal/utils/middleware"
)

// ErrInvalidToken is returned when a token fails validation.
var ErrInvalidToken = errors.New("invalid or expired token")

const defaultTokenExpiry = 15 * time.Minute

// tokenClaims is the JWT payload for merchant access tokens.
type tokenClaims struct {
	jwt.RegisteredClaims
	Merchant string `json:"merchant"`
}

// Manager issues and validates merchant access tokens. Callers exchange an
// API key for a short-lived token at the token endpoint; subsequent requests
// carry the token as a bearer credential.
type Manager struct {
	secret []byte
	expiry time.Duration
}

// NewManager creates a token manager. A zero expiry falls back to 15 minutes.
func NewManager(secret string, expiry time.Duration) *Manager {
	if expiry <= 0 {
		expiry = defaultTokenExpiry
	}
	return &Manager{secret: []byte(secret), expiry: expiry}
}

// IssueToken signs a token for the given merchant identifier.
func (m *Manager) IssueToken(merchant string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(m.expiry)
	claims := &tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "merchantgate",
			Subject:   merchant,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		Merchant: merchant,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken parses and verifies a token, returning the merchant identity.
func (m *Manager) ValidateToken(tokenString string) (*middleware.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	merchant := claims.Merchant
	if merchant == "" {
		merchant = claims.Subject
	}
	return &middleware.Claims{Merchant: merchant}, nil
}

// Expiry returns the configured access token lifetime.
func (m *Manager) Expiry() time.Duration {
	return m.expiry
}
