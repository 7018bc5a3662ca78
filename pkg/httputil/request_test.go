package httputil

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
)

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		expectError bool
	}{
		{
			name:        "valid JSON",
			body:        `{"name": "test"}`,
			expectError: false,
		},
		{
			name:        "invalid JSON",
			body:        `{invalid}`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/test", bytes.NewBufferString(tt.body))
			var dest map[string]string

			err := ParseJSON(req, &dest)

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, "test", dest["name"])
			}
		})
	}
}

func TestParseJSONOrError(t *testing.T) {
	req := httptest.NewRequest("POST", "/test", bytes.NewBufferString(`{invalid}`))
	w := httptest.NewRecorder()
	var dest map[string]string

	ok := ParseJSONOrError(w, req, &dest)

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParsePathUUID(t *testing.T) {
	id := uuid.New()

	req := httptest.NewRequest("GET", "/characters/"+id.String(), nil)
	req = mux.SetURLVars(req, map[string]string{"id": id.String()})
	w := httptest.NewRecorder()

	got, ok := ParsePathUUID(w, req, "id")
	assert.True(t, ok)
	assert.Equal(t, id, got)

	req = httptest.NewRequest("GET", "/characters/not-a-uuid", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "not-a-uuid"})
	w = httptest.NewRecorder()

	_, ok = ParsePathUUID(w, req, "id")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest("GET", "/characters?limit=25", nil)

	val, err := ParseQueryInt(req, "limit", 20)
	assert.NoError(t, err)
	assert.Equal(t, 25, val)

	val, err = ParseQueryInt(req, "missing", 20)
	assert.NoError(t, err)
	assert.Equal(t, 20, val)

	req = httptest.NewRequest("GET", "/characters?limit=abc", nil)
	_, err = ParseQueryInt(req, "limit", 20)
	assert.Error(t, err)
}

func TestParseQueryString(t *testing.T) {
	req := httptest.NewRequest("GET", "/characters?sort=level", nil)

	assert.Equal(t, "level", ParseQueryString(req, "sort", "name"))
	assert.Equal(t, "name", ParseQueryString(req, "missing", "name"))
}

func TestRequireNonEmpty(t *testing.T) {
	w := httptest.NewRecorder()
	assert.True(t, RequireNonEmpty(w, "value", "field"))

	w = httptest.NewRecorder()
	assert.False(t, RequireNonEmpty(w, "", "field"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
