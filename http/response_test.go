package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sagarc03/storegate"
	gatehttp "github.com/sagarc03/storegate/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) gatehttp.ErrorResponse {
	t.Helper()
	var body gatehttp.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"container not found", fmt.Errorf("container ghost: %w", storegate.ErrContainerNotFound), http.StatusNotFound, "container_not_found"},
		{"not found", storegate.ErrNotFound, http.StatusNotFound, "not_found"},
		{"empty payload", storegate.ErrEmptyPayload, http.StatusBadRequest, "empty_payload"},
		{"invalid input", storegate.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
		{"unauthorized", fmt.Errorf("%w: signature expired", storegate.ErrUnauthorized), http.StatusForbidden, "unauthorized"},
		{"insert conflict", storegate.ErrInsertConflict, http.StatusConflict, "insert_conflict"},
		{"object exists", storegate.ErrObjectExists, http.StatusConflict, "object_exists"},
		{"backend unavailable", storegate.BackendError("insert", errors.New("connection reset")), http.StatusServiceUnavailable, "backend_unavailable"},
		{"deadline", context.DeadlineExceeded, http.StatusServiceUnavailable, "backend_unavailable"},
		{"invalid configuration", storegate.ErrInvalidConfiguration, http.StatusInternalServerError, "invalid_configuration"},
		{"payload too large", &http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge, "payload_too_large"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			gatehttp.HandleError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Error)
		})
	}
}

func TestHandleError_HidesServerDetails(t *testing.T) {
	rec := httptest.NewRecorder()

	gatehttp.HandleError(rec, fmt.Errorf("dial tcp 10.0.0.7:5432: %w", storegate.ErrInvalidConfiguration))

	body := decodeError(t, rec)
	assert.NotContains(t, body.Message, "10.0.0.7")
}

func TestHandleError_ShowsClientDetails(t *testing.T) {
	rec := httptest.NewRecorder()

	gatehttp.HandleError(rec, fmt.Errorf("container ghost: %w", storegate.ErrContainerNotFound))

	assert.Equal(t, "container ghost: container not found", decodeError(t, rec).Message)
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	err := gatehttp.WriteJSON(rec, http.StatusCreated, map[string]string{"status": "ok"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()

	gatehttp.WriteError(rec, http.StatusTeapot, "teapot", "short and stout")

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.JSONEq(t, `{"error":"teapot","message":"short and stout"}`, rec.Body.String())
}
