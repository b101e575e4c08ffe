package auth

import (
	"context"
	"net/http"
	"strings"

	"pair-relay/domain"
)

type contextKey string

const IdentityKey contextKey = "identity"

type verifier interface {
	Verify(token string) (domain.Identity, error)
}

// Middleware rejects HTTP requests without a valid "Bearer <token>" header
// and injects the identity into the request context.
func Middleware(v verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenStr, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenStr == "" {
				http.Error(w, "authorization token is missing", http.StatusUnauthorized)
				return
			}
			identity, err := v.Verify(tokenStr)
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), IdentityKey, identity)))
		})
	}
}

// IdentityFromContext returns the identity injected by Middleware.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(domain.Identity)
	return identity, ok
}
