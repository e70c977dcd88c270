package gateway

import (
	"context"
	"net/http"
	"strings"

	"github.com/markb/plcgate/internal/oauth"
)

type contextKey string

const identityContextKey contextKey = "identity"

// Identity is the caller resolved from upstream-verified claims. The gateway
// sits behind an authorizer that has already validated the token signature;
// here the claims are only decoded, never re-verified.
type Identity struct {
	UserID string
	Email  string
	Claims map[string]any
}

// resolveIdentity attaches the caller identity when a bearer token with
// decodable claims is present. Requests without one pass through without an
// identity; handlers that require one fail closed.
func resolveIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
			next.ServeHTTP(w, r)
			return
		}

		token := strings.TrimSpace(authHeader[len("bearer "):])
		claims := oauth.DecodeClaims(token)
		if claims == nil {
			next.ServeHTTP(w, r)
			return
		}

		identity := &Identity{Claims: claims}
		if sub, ok := claims["sub"].(string); ok {
			identity.UserID = sub
		}
		if email, ok := claims["email"].(string); ok {
			identity.Email = email
		}

		ctx := context.WithValue(r.Context(), identityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IdentityFromContext returns the resolved identity, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	identity, _ := ctx.Value(identityContextKey).(*Identity)
	return identity
}
