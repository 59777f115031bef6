package auth

import (
	"context"
	"encoding/json"
	"net/http"
)

// CookieName is the auth cookie carrying the JWT. HttpOnly so JavaScript can
// never read it, SameSite=Strict so the browser withholds it on any
// cross-site request.
const CookieName = "access_token"

// contextKey is an unexported type for context keys in this package — only
// this package can create (and therefore read or shadow) the identity value.
type contextKey string

const identityKey contextKey = "identity"

// RequireAuth enforces authentication on protected routes.
//
// It reads the JWT from the auth cookie, validates it, and stores the
// Identity in the request context. A missing cookie yields 401 (the caller
// never authenticated); a present-but-invalid or expired token yields 403.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(CookieName)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}

			id, err := tokens.Validate(cookie.Value)
			if err != nil {
				writeAuthError(w, http.StatusForbidden, "forbidden", "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext retrieves the authenticated caller from the request
// context. Returns (Identity{}, false) for anonymous requests.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != ""
}

// writeAuthError emits the same error envelope the handler package uses. The
// middleware can't import that package (it would cycle), so the tiny struct
// is duplicated here.
func writeAuthError(w http.ResponseWriter, status int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   errType,
		"message": message,
	})
}
