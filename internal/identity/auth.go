package identity

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

type contextKey string

const adminIDKey contextKey = "vigil_admin_id"

// ErrNotAuthenticated is returned when no admin identity is present on the
// request context.
var ErrNotAuthenticated = errors.New("identity: not authenticated")

// AuthMiddleware resolves a bearer token (Authorization header or
// vigil_session cookie) to an admin identity and stores it in the request
// context. Requests without a valid token pass through unauthenticated;
// individual handlers decide whether that is acceptable.
func (s *Service) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			if cookie, err := r.Cookie("vigil_session"); err == nil {
				token = cookie.Value
			}
		}

		if token != "" {
			if id, ok := s.Lookup(token); ok {
				r = r.WithContext(context.WithValue(r.Context(), adminIDKey, id))
			}
		}

		next.ServeHTTP(w, r)
	})
}

// AdminFromContext returns the authenticated admin's ID, or
// ErrNotAuthenticated when the request carried no valid token.
func AdminFromContext(ctx context.Context) (string, error) {
	id, ok := ctx.Value(adminIDKey).(string)
	if !ok || id == "" {
		return "", ErrNotAuthenticated
	}
	return id, nil
}

// WithAdmin returns a context carrying the given admin ID. Used by tests and
// internal dispatch paths.
func WithAdmin(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, adminIDKey, id)
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}
