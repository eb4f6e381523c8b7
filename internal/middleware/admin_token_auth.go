package middleware

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	defaultAdminTokenHeader = "X-Admin-Token"
	bearerPrefix            = "Bearer "
)

// AdminTokenAuthConfig controls shared-token authentication for admin endpoints.
type AdminTokenAuthConfig struct {
	Token string
	// HeaderName defaults to X-Admin-Token. A bearer Authorization header
	// is always accepted as well.
	HeaderName string
}

// AdminIdentity records how an admin request was authenticated.
type AdminIdentity struct {
	Method string
	Header string
}

type adminIdentityKey struct{}

// WithAdminIdentity stores the identity in ctx.
func WithAdminIdentity(ctx context.Context, id AdminIdentity) context.Context {
	return context.WithValue(ctx, adminIdentityKey{}, id)
}

// AdminIdentityFromContext returns the identity set by AdminTokenAuthMiddleware.
func AdminIdentityFromContext(ctx context.Context) (AdminIdentity, bool) {
	id, ok := ctx.Value(adminIdentityKey{}).(AdminIdentity)
	return id, ok
}

// AdminTokenAuthMiddleware validates a shared admin token from request headers.
func AdminTokenAuthMiddleware(cfg AdminTokenAuthConfig) (func(http.Handler) http.Handler, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("admin auth token is required")
	}
	headerName := strings.TrimSpace(cfg.HeaderName)
	if headerName == "" {
		headerName = defaultAdminTokenHeader
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided, source := adminToken(r, headerName)
			if provided == "" || !constantTimeTokenMatch(provided, token) {
				writeAdminUnauthorized(w)
				return
			}

			ctx := WithAdminIdentity(r.Context(), AdminIdentity{
				Method: "admin_token",
				Header: source,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}, nil
}

func adminToken(r *http.Request, headerName string) (string, string) {
	if provided := strings.TrimSpace(r.Header.Get(headerName)); provided != "" {
		return provided, headerName
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(auth, bearerPrefix)), "Authorization"
	}
	return "", ""
}

func constantTimeTokenMatch(provided string, expected string) bool {
	providedDigest := sha256.Sum256([]byte(provided))
	expectedDigest := sha256.Sum256([]byte(expected))
	return subtle.ConstantTimeCompare(providedDigest[:], expectedDigest[:]) == 1
}

func writeAdminUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = fmt.Fprint(w, `{"error":"unauthorized"}`)
}
