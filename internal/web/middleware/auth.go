package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/crewpix/crewpix/internal/auth"
)

type contextKey string

const identityContextKey contextKey = "identity"

// RequireAuth is middleware that requires a valid session or, when
// adminToken is non-empty, a matching Bearer API token. The resolved
// identity is stored in the request context.
func RequireAuth(sm *SessionManager, adminToken string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := resolveIdentity(sm, adminToken, r)
			if !ok {
				writeUnauthorized(w)
				return
			}

			// Add identity to context
			ctx := context.WithValue(r.Context(), identityContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeUnauthorized emits the same JSON error envelope as the handlers.
func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"success": false, "code": "Unauthorized", "message": "authentication required"}`))
}

func resolveIdentity(sm *SessionManager, adminToken string, r *http.Request) (auth.Identity, bool) {
	if session := sm.GetSessionFromRequest(r); session != nil {
		return session.Identity(), true
	}

	if adminToken != "" {
		authHeader := r.Header.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") &&
			strings.TrimPrefix(authHeader, "Bearer ") == adminToken {
			return auth.Identity{UserID: "admin", Role: auth.RoleAdmin}, true
		}
	}

	return auth.Identity{}, false
}

// GetIdentityFromContext retrieves the identity from the request context
func GetIdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(auth.Identity)
	return identity, ok
}

// SetIdentityInContext adds an identity to the context.
// This is primarily for testing - use RequireAuth middleware in production.
func SetIdentityInContext(ctx context.Context, identity auth.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}
