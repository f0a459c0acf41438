// Package auth defines session token identity for API requests. Tokens are
// issued by an external authentication provider; this system only stores the
// HMAC-SHA256 hash and resolves it to a user identity.
package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when no active session matches a token hash.
var ErrNotFound = errors.New("session not found")

// ScopeAdmin gates the back-office product management endpoints.
const ScopeAdmin = "admin"

// Session is a stored session token record.
type Session struct {
	ID        string
	TokenHash string
	UserID    string
	Name      string
	Scopes    []string
}

// HasScope reports whether the session carries the given scope.
func (s *Session) HasScope(scope string) bool {
	for _, sc := range s.Scopes {
		if sc == scope {
			return true
		}
	}
	return false
}

// Repository provides session lookup by token hash.
type Repository interface {
	FindByTokenHash(ctx context.Context, hash string) (*Session, error)
}

// identityKey is the context key for the authenticated identity.
type identityKey struct{}

// Identity is the authenticated caller attached to a request context.
type Identity struct {
	UserID string
	Scopes []string
}

// IsAdmin reports whether the identity carries the admin scope.
func (id Identity) IsAdmin() bool {
	for _, sc := range id.Scopes {
		if sc == ScopeAdmin {
			return true
		}
	}
	return false
}

// WithIdentity returns a context carrying the identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext extracts the identity set by the auth middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
