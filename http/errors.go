package http

import "errors"

var (
	// ErrMissingFile is returned when a multipart upload has no file part.
	ErrMissingFile = errors.New("missing file part")
	// ErrPayloadTooLarge is returned when a request body exceeds the upload limit.
	ErrPayloadTooLarge = errors.New("payload too large")
)
