package middleware

import (
	"net/http"
	"strings"

	"github.com/fablekeep/fablekeep/pkg/authz"
	"github.com/fablekeep/fablekeep/pkg/contextkeys"
	"github.com/fablekeep/fablekeep/pkg/fault"
	"github.com/fablekeep/fablekeep/pkg/httputil"
	"github.com/fablekeep/fablekeep/pkg/token"
)

// TokenVerifier validates an access token string and returns its claims.
type TokenVerifier interface {
	VerifyAccessToken(tokenString string) (*token.Claims, error)
}

// AuthMiddleware authenticates requests from a Bearer access token and puts
// the resulting subject into the request context. In optional mode a missing
// header passes through as anonymous; a present but invalid token is still
// rejected, so clients can never downgrade a bad credential to anonymous.
type AuthMiddleware struct {
	verifier TokenVerifier
	optional bool
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(verifier TokenVerifier, optional bool) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		optional: optional,
	}
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteErrorCode(w, fault.KindUnauthorized, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.WriteErrorCode(w, fault.KindUnauthorized, "invalid authorization header format")
			return
		}

		claims, err := m.verifier.VerifyAccessToken(parts[1])
		if err != nil {
			httputil.WriteFault(w, err)
			return
		}

		subject, err := claims.AuthSubject()
		if err != nil {
			httputil.WriteFault(w, err)
			return
		}

		ctx := contextkeys.WithSubject(r.Context(), subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetSubject extracts the authenticated subject from the request, or nil for
// anonymous.
func GetSubject(r *http.Request) *authz.Subject {
	return contextkeys.GetSubject(r.Context())
}

// RequireAuthenticated rejects anonymous requests.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetSubject(r) == nil {
			httputil.WriteErrorCode(w, fault.KindUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole creates middleware that checks for a specific role
func RequireRole(role authz.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := GetSubject(r)
			if subject == nil {
				httputil.WriteErrorCode(w, fault.KindUnauthorized, "authentication required")
				return
			}

			if subject.Role != role {
				httputil.WriteErrorCode(w, fault.KindForbidden, "insufficient role")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
