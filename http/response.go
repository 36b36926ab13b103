package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sagarc03/storegate"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type errorMapping struct {
	status  int
	message string
}

// Keyed by storegate.ErrorKind. An empty message means err.Error() is shown.
var errorMappings = map[string]errorMapping{
	"container_not_found":   {http.StatusNotFound, ""},
	"not_found":             {http.StatusNotFound, "Not found"},
	"empty_payload":         {http.StatusBadRequest, "Payload is empty"},
	"invalid_input":         {http.StatusBadRequest, ""},
	"unauthorized":          {http.StatusForbidden, ""},
	"insert_conflict":       {http.StatusConflict, "Record already exists"},
	"object_exists":         {http.StatusConflict, "Object already exists"},
	"backend_unavailable":   {http.StatusServiceUnavailable, "Storage backend unavailable"},
	"invalid_configuration": {http.StatusInternalServerError, "Storage backend is misconfigured"},
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError writes the status and error code matching the kind of err.
// Server-side failures are logged; their details are not sent to the client.
func HandleError(w http.ResponseWriter, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) || errors.Is(err, ErrPayloadTooLarge) {
		WriteError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Payload exceeds the upload limit")
		return
	}

	kind := storegate.ErrorKind(err)
	mapping, ok := errorMappings[kind]
	if !ok {
		slog.Error("request error", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
		return
	}

	if mapping.status >= http.StatusInternalServerError {
		slog.Error("request error", "error", err, "kind", kind)
	}

	message := mapping.message
	if message == "" {
		message = err.Error()
	}

	WriteError(w, mapping.status, kind, message)
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}
