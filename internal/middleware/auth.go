package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/monoize-go/monoize/internal/core"
)

type contextKey int

const principalContextKey contextKey = iota

// PrincipalFromContext returns the Principal an AuthMiddleware attached
// to the request context, if any.
func PrincipalFromContext(ctx context.Context) (*core.Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(*core.Principal)
	return p, ok
}

// AuthMiddleware resolves the request's bearer token to a Principal via
// an Authenticator and attaches it to the request context, per spec.md
// §6. Grounded on the teacher's AuthMiddleware, generalized from a
// single shared proxy key to per-tenant token resolution.
type AuthMiddleware struct {
	authenticator core.Authenticator
	logger        *slog.Logger
}

func NewAuthMiddleware(authenticator core.Authenticator, logger *slog.Logger) Middleware {
	am := &AuthMiddleware{authenticator: authenticator, logger: logger}
	return am.middleware
}

func (am *AuthMiddleware) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			am.logger.Warn("missing authentication token", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
			http.Error(w, `{"error":{"message":"missing authentication token","type":"invalid_request_error","code":"unauthenticated"}}`, http.StatusUnauthorized)
			return
		}

		principal, err := am.authenticator.Authenticate(r.Context(), token)
		if err != nil {
			am.logger.Warn("authentication failed", "error", err, "remote_addr", r.RemoteAddr)
			http.Error(w, `{"error":{"message":"invalid api key","type":"invalid_request_error","code":"unauthenticated"}}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), principalContextKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken extracts a token from Authorization: Bearer, x-api-key,
// or X-Goog-Api-Key, covering the three credential conventions the
// five wire dialects present it under (spec.md §6).
func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if key := r.Header.Get("x-api-key"); key != "" {
		return key
	}
	if key := r.Header.Get("X-Goog-Api-Key"); key != "" {
		return key
	}
	return ""
}
