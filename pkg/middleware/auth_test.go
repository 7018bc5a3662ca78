package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fablekeep/fablekeep/pkg/authz"
	"github.com/fablekeep/fablekeep/pkg/fault"
	"github.com/fablekeep/fablekeep/pkg/token"
)

// fakeVerifier scripts VerifyAccessToken by token string.
type fakeVerifier struct {
	claims map[string]*token.Claims
	errs   map[string]error
}

func (f *fakeVerifier) VerifyAccessToken(tokenString string) (*token.Claims, error) {
	if err, ok := f.errs[tokenString]; ok {
		return nil, err
	}
	if c, ok := f.claims[tokenString]; ok {
		return c, nil
	}
	return nil, fault.New(fault.KindTokenInvalid, "token.Verify", "unknown token")
}

func claimsFor(id uuid.UUID, role authz.Role) *token.Claims {
	return &token.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: id.String()},
		Role:             role,
	}
}

func subjectEcho(t *testing.T, captured **authz.Subject) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = GetSubject(r)
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	id := uuid.New()
	verifier := &fakeVerifier{claims: map[string]*token.Claims{
		"good": claimsFor(id, authz.RoleModerator),
	}}
	m := NewAuthMiddleware(verifier, false)

	var got *authz.Subject
	handler := m.Handler(subjectEcho(t, &got))

	req := httptest.NewRequest("GET", "/characters", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, authz.RoleModerator, got.Role)
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	m := NewAuthMiddleware(&fakeVerifier{}, false)
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run")
	}))

	req := httptest.NewRequest("GET", "/characters", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
}

func TestAuthMiddleware_OptionalAllowsAnonymous(t *testing.T) {
	m := NewAuthMiddleware(&fakeVerifier{}, true)

	var got *authz.Subject
	handler := m.Handler(subjectEcho(t, &got))

	req := httptest.NewRequest("GET", "/characters", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, got)
}

func TestAuthMiddleware_OptionalStillRejectsBadToken(t *testing.T) {
	verifier := &fakeVerifier{errs: map[string]error{
		"expired": fault.New(fault.KindTokenExpired, "token.Verify", "token is expired"),
	}}
	m := NewAuthMiddleware(verifier, true)
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run")
	}))

	req := httptest.NewRequest("GET", "/characters", nil)
	req.Header.Set("Authorization", "Bearer expired")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TOKEN_EXPIRED")
}

func TestAuthMiddleware_BadHeaderFormat(t *testing.T) {
	m := NewAuthMiddleware(&fakeVerifier{}, false)
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run")
	}))

	for _, header := range []string{"good", "Basic Zm9vOmJhcg==", "Bearer"} {
		req := httptest.NewRequest("GET", "/characters", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
	}
}

func TestRequireAuthenticated(t *testing.T) {
	handler := RequireAuthenticated(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/auth/logout", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	id := uuid.New()
	verifier := &fakeVerifier{claims: map[string]*token.Claims{
		"user":  claimsFor(id, authz.RoleUser),
		"admin": claimsFor(id, authz.RoleAdmin),
	}}
	auth := NewAuthMiddleware(verifier, false)

	handler := auth.Handler(RequireRole(authz.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest("DELETE", "/admin/tokens", nil)
	req.Header.Set("Authorization", "Bearer user")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest("DELETE", "/admin/tokens", nil)
	req.Header.Set("Authorization", "Bearer admin")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
