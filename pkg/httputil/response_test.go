package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fablekeep/fablekeep/pkg/fault"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"message": "success"}

	err := WriteJSON(w, http.StatusOK, data)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "success")
}

func TestWriteFault_ClassifiedError(t *testing.T) {
	w := httptest.NewRecorder()

	WriteFault(w, fault.New(fault.KindForbidden, "authz.Check", "action denied"))

	assert.Equal(t, http.StatusForbidden, w.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "FORBIDDEN", body.Error)
	assert.Equal(t, "action denied", body.Message)
}

func TestWriteFault_KindStatuses(t *testing.T) {
	cases := []struct {
		kind   fault.Kind
		status int
		code   string
	}{
		{fault.KindUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
		{fault.KindTokenExpired, http.StatusUnauthorized, "TOKEN_EXPIRED"},
		{fault.KindTokenInvalid, http.StatusUnauthorized, "TOKEN_INVALID"},
		{fault.KindNotFound, http.StatusNotFound, "RESOURCE_NOT_FOUND"},
		{fault.KindRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},
		{fault.KindDatabase, http.StatusServiceUnavailable, "DATABASE_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteFault(w, fault.New(tc.kind, "op", "msg"))
			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), tc.code)
		})
	}
}

func TestWriteFault_UnclassifiedError(t *testing.T) {
	w := httptest.NewRecorder()

	WriteFault(w, errors.New("plain error"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL")
	// Unclassified error text never leaks to clients.
	assert.NotContains(t, w.Body.String(), "plain error")
}

func TestWriteBadRequest(t *testing.T) {
	w := httptest.NewRecorder()

	WriteBadRequest(w, "invalid input")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "BAD_REQUEST")
	assert.Contains(t, w.Body.String(), "invalid input")
}

func TestWriteCreated(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]int{"id": 123}

	err := WriteCreated(w, data)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "123")
}

func TestWriteNoContent(t *testing.T) {
	w := httptest.NewRecorder()

	WriteNoContent(w)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}
