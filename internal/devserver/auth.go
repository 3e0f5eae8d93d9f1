package devserver

import (
	"context"
	"net/http"
	"strings"
)

type claimsKey struct{}

// publicPaths are reachable without a bearer token.
var publicPaths = []string{
	"/health",
	"/api/auth/signin",
	"/api/auth/signup",
	"/api/auth/oauth/",
}

func isPublic(path string) bool {
	if !strings.HasPrefix(path, "/api/") {
		return true
	}
	for _, prefix := range publicPaths {
		if strings.HasSuffix(prefix, "/") {
			if strings.HasPrefix(path, prefix) {
				return true
			}
			continue
		}
		if path == prefix {
			return true
		}
	}
	return false
}

// BearerAuthMiddleware rejects /api requests without a valid, unrevoked
// token and stores the verified claims on the request context.
func BearerAuthMiddleware(issuer *TokenIssuer, store *Store, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(auth, prefix) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		claims, err := issuer.Verify(auth[len(prefix):])
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		revoked, err := store.IsRevoked(claims.TokenID)
		if err != nil {
			writeServiceError(w, unavailableError("failed to check token", err))
			return
		}
		if revoked {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		noteUser(r, claims.UserID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

func claimsFrom(r *http.Request) (Claims, bool) {
	claims, ok := r.Context().Value(claimsKey{}).(Claims)
	return claims, ok && claims.UserID != ""
}
