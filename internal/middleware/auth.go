package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey int

const bearerKey contextKey = iota

// BearerFromContext returns the bearer token accepted by RequireBearer.
func BearerFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(bearerKey).(string); ok {
		return v
	}
	return ""
}

// TokenValidator decides whether a bearer token may sign uploads.
type TokenValidator func(token string) bool

// AnyToken accepts every non-empty token.
func AnyToken(string) bool { return true }

// RequireBearer rejects requests without an acceptable Authorization bearer token.
func RequireBearer(valid TokenValidator) func(http.Handler) http.Handler {
	if valid == nil {
		valid = AnyToken
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="upload-signer"`)
				http.Error(w, `{"error":"missing bearer token"}`, http.StatusUnauthorized)
				return
			}
			if !valid(token) {
				http.Error(w, `{"error":"token not allowed"}`, http.StatusForbidden)
				return
			}
			ctx := context.WithValue(r.Context(), bearerKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
