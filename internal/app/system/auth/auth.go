// Package auth issues and verifies the bearer tokens the mobile clients
// authenticate with, and exposes the request-context identity that
// handlers and policies consume.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/canvashub/canvashub/internal/domain/models"
	"github.com/canvashub/canvashub/internal/domain/roles"
)

// Identity is the authenticated caller as handlers see it. Policies take
// these fields, never the raw token.
type Identity struct {
	UserID         string
	Username       string
	Role           roles.Role
	OrganizationID string
}

type ctxKey int

const identityKey ctxKey = 0

// WithUser returns a context carrying the identity.
func WithUser(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// CurrentUser returns the authenticated identity for the request, if any.
func CurrentUser(r *http.Request) (*Identity, bool) {
	id, ok := r.Context().Value(identityKey).(*Identity)
	return id, ok && id != nil
}

// WithTestUser attaches an identity to a request. Test helper.
func WithTestUser(r *http.Request, id *Identity) *http.Request {
	return r.WithContext(WithUser(r.Context(), id))
}

// Manager signs and parses HS256 bearer tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager builds a token manager from the configured signing key and
// token lifetime.
func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl}
}

type claims struct {
	Username       string `json:"username"`
	Role           string `json:"role"`
	OrganizationID string `json:"org_id,omitempty"`
	jwt.RegisteredClaims
}

var (
	ErrInvalidToken = errors.New("invalid or expired token")
)

// IssueToken signs a token for the user. Returns the token string and its
// expiry.
func (m *Manager) IssueToken(u *models.User, now time.Time) (string, time.Time, error) {
	exp := now.Add(m.ttl)
	c := claims{
		Username:       u.Username,
		Role:           string(u.Role),
		OrganizationID: u.OrganizationID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tok, exp, nil
}

// ParseToken verifies a token string and returns the embedded identity.
func (m *Manager) ParseToken(tok string) (*Identity, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(tok, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	role, ok := roles.Parse(c.Role)
	if !ok {
		return nil, ErrInvalidToken
	}
	return &Identity{
		UserID:         c.Subject,
		Username:       c.Username,
		Role:           role,
		OrganizationID: c.OrganizationID,
	}, nil
}

// BearerToken extracts the token from an Authorization header, if present.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}
