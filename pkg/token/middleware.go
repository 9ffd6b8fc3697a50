package token

import (
	"context"
	"net/http"
	"strings"
)

type contextKey struct{ name string }

var userIDContextKey = &contextKey{name: "user_id"}

// UserID returns the authenticated user ID stored in the context.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDContextKey).(string)
	return id, ok
}

// WithUserID stores an authenticated user ID in the context. Exposed for
// tests and internal dispatch.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// Middleware authenticates requests with a bearer token. The token is read
// from the Authorization header, or from the "token" query parameter as a
// fallback for transports that cannot set custom headers (EventSource).
func (s *Service) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				raw = r.URL.Query().Get("token")
			}
			if raw == "" {
				http.Error(w, "missing token", http.StatusUnauthorized)
				return
			}

			claims, err := s.Parse(raw)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), claims.UserID)))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
