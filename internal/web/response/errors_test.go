package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestRenderError(t *testing.T) {
	tests := []struct {
		name   string
		render func(w http.ResponseWriter)
		status int
		code   string
		msg    string
	}{
		{"not found", func(w http.ResponseWriter) { RenderNotFound(w, "") }, http.StatusNotFound, "not_found", "Resource not found"},
		{"bad request", func(w http.ResponseWriter) { RenderBadRequest(w, "path is required") }, http.StatusBadRequest, "bad_request", "path is required"},
		{"internal", RenderInternalError, http.StatusInternalServerError, "internal_error", "An unexpected error occurred"},
		{"custom code", func(w http.ResponseWriter) {
			RenderErrorWithCode(w, http.StatusNotFound, errors.New("model Ghost is not registered"), "unknown_model")
		}, http.StatusNotFound, "unknown_model", "model Ghost is not registered"},
		{"unmapped status", func(w http.ResponseWriter) { RenderError(w, http.StatusTeapot, errors.New("short and stout")) }, http.StatusTeapot, "http_418", "short and stout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.render(w)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

			body := decode(t, w)
			assert.Equal(t, "error", body.Error)
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.msg, body.Message)
		})
	}
}

func TestRenderErrorWithDetails(t *testing.T) {
	w := httptest.NewRecorder()
	RenderErrorWithDetails(w, http.StatusBadRequest, errors.New("invalid"), map[string]any{"field": "path"})

	body := decode(t, w)
	assert.Equal(t, "path", body.Details["field"])
}

func TestRenderMethodNotAllowed(t *testing.T) {
	w := httptest.NewRecorder()
	RenderMethodNotAllowed(w, []string{"GET", "POST"})

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "GET, POST", w.Header().Get("Allow"))
}
