package server

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/poiesic/memvault/core"
)

// OwnerHeader carries the authenticated owner identity.
const OwnerHeader = "X-Owner-ID"

type ownerKey struct{}

// AuthMiddleware returns middleware that validates a Bearer token.
// If enabled is false, all requests pass through (disabled mode).
// If enabled is true, requests must carry a valid "Authorization: Bearer <token>" header.
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// OwnerMiddleware rejects requests without an owner identity and stores the
// owner in the request context.
func OwnerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := core.OwnerID(strings.TrimSpace(r.Header.Get(OwnerHeader)))
		if owner == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody("missing owner identity"))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey{}, owner)))
	})
}

func ownerFrom(ctx context.Context) core.OwnerID {
	owner, _ := ctx.Value(ownerKey{}).(core.OwnerID)
	return owner
}
