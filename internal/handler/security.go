package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/reworn/storefront/internal/domain/auth"
)

// Authenticate resolves the bearer token to a session identity. Tokens are
// never stored in clear: the HMAC-SHA256 of the presented token is looked up,
// then compared in constant time against the stored hash to guard against a
// repository returning a stale or wrong row.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			respondError(w, r, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}

		mac := hmac.New(sha256.New, h.pepper)
		mac.Write([]byte(token))
		hash := mac.Sum(nil)

		s, err := h.sessions.FindByTokenHash(r.Context(), hex.EncodeToString(hash))
		if err != nil {
			respondError(w, r, http.StatusUnauthorized, "unauthorized", "invalid session token")
			return
		}

		stored, err := hex.DecodeString(s.TokenHash)
		if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
			respondError(w, r, http.StatusUnauthorized, "unauthorized", "invalid session token")
			return
		}

		ctx := auth.WithIdentity(r.Context(), auth.Identity{
			UserID: s.UserID,
			Scopes: s.Scopes,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin gates back-office routes on the admin scope. It must run
// after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFromContext(r.Context())
		if !ok || !id.IsAdmin() {
			respondError(w, r, http.StatusForbidden, "forbidden", "admin scope required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// currentUser extracts the authenticated user ID. Routes behind Authenticate
// always have one; the fallback guards against middleware misordering.
func currentUser(r *http.Request) (string, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok || id.UserID == "" {
		return "", false
	}
	return id.UserID, true
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}
