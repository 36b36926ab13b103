package storegate

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrContainerNotFound is returned when the referenced container does not exist
	ErrContainerNotFound = errors.New("container not found")
	// ErrEmptyPayload is returned when an upload carries no bytes
	ErrEmptyPayload = errors.New("empty payload")
	// ErrInsertConflict is returned when an entity with the same keys already exists
	ErrInsertConflict = errors.New("insert conflict")
	// ErrBackendUnavailable is returned when a backing store cannot be reached or timed out
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrInvalidConfiguration is returned when store endpoints or credentials resolve to nothing usable
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when a record or object is not found
	ErrNotFound = errors.New("not found")
	// ErrObjectExists is returned when an upload would overwrite an object and overwrites are disabled
	ErrObjectExists = errors.New("object already exists")
	// ErrUnauthorized is returned when grant verification fails
	ErrUnauthorized = errors.New("unauthorized")
)

var knownKinds = []struct {
	err  error
	name string
}{
	{ErrContainerNotFound, "container_not_found"},
	{ErrEmptyPayload, "empty_payload"},
	{ErrInsertConflict, "insert_conflict"},
	{ErrObjectExists, "object_exists"},
	{ErrInvalidConfiguration, "invalid_configuration"},
	{ErrInvalidInput, "invalid_input"},
	{ErrNotFound, "not_found"},
	{ErrUnauthorized, "unauthorized"},
	{ErrBackendUnavailable, "backend_unavailable"},
}

// ErrorKind returns a stable snake_case name for the error kind carried by err.
// It returns "ok" for a nil error and "internal" for errors of no known kind.
func ErrorKind(err error) string {
	if err == nil {
		return "ok"
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "backend_unavailable"
	}

	for _, k := range knownKinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}

	return "internal"
}

// BackendError wraps an error returned by a backing store. Errors that already
// carry a known kind keep it; everything else, including context cancellation
// and deadlines, becomes ErrBackendUnavailable.
func BackendError(op string, err error) error {
	if err == nil {
		return nil
	}

	for _, k := range knownKinds {
		if errors.Is(err, k.err) {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return fmt.Errorf("%s: %w: %w", op, ErrBackendUnavailable, err)
}

// KindError is the inverse of ErrorKind: it returns the sentinel error named
// by kind, or nil when the name is unknown.
func KindError(kind string) error {
	for _, k := range knownKinds {
		if k.name == kind {
			return k.err
		}
	}
	return nil
}
