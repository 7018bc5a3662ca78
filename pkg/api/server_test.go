package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fablekeep/fablekeep/pkg/authz"
	"github.com/fablekeep/fablekeep/pkg/content"
	"github.com/fablekeep/fablekeep/pkg/storage"
	"github.com/fablekeep/fablekeep/pkg/token"
)

const testSigningSecret = "0123456789abcdef0123456789abcdef"

type testEnv struct {
	server *Server
	store  *storage.MemoryStore
	tokens *token.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := storage.NewMemoryStore()
	svc, err := token.NewService(store, token.StaticSecret(testSigningSecret), token.Config{
		Issuer:     "fablekeep-test",
		Audience:   "fablekeep-api",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	}, nil)
	require.NoError(t, err)

	return &testEnv{
		server: NewServer(Options{Store: store, Tokens: svc}),
		store:  store,
		tokens: svc,
	}
}

func (e *testEnv) seedAccount(t *testing.T, email, password string, role authz.Role) *storage.Account {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	acct := &storage.Account{
		ID:           uuid.New(),
		Email:        email,
		Username:     "user-" + email,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	e.store.AddAccount(acct)
	return acct
}

func (e *testEnv) accessToken(t *testing.T, acct *storage.Account) string {
	t.Helper()
	tok, err := e.tokens.IssueAccessToken(authz.Subject{ID: acct.ID, Role: acct.Role})
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, accessToken string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	w := httptest.NewRecorder()
	e.server.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dest))
}

func (e *testEnv) seedCharacter(name string, level int, vis authz.Visibility, owner *uuid.UUID, createdAt time.Time) *content.Character {
	c := &content.Character{
		ID:         uuid.New(),
		Name:       name,
		Level:      level,
		Visibility: vis,
		OwnerID:    owner,
		CreatedAt:  createdAt,
	}
	e.store.AddCharacter(c)
	return c
}
