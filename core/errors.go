package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for classification.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limited")
	ErrBadRequest   = errors.New("bad request")
	ErrNotFound     = errors.New("not found")
	ErrServer       = errors.New("server error")
	ErrNetwork      = errors.New("network error")
	ErrDecode       = errors.New("decode error")
)

// Validation errors with actionable guidance.
var (
	ErrServerURLRequired = errors.New("server URL required: pass --server-url or set the SD_SERVER_URL environment variable")
)

// ServerError represents a failed exchange with the sd-server, either a
// connection-level failure or a non-2xx response.
type ServerError struct {
	// Status is the HTTP status code, 0 for connection-level failures.
	Status  int
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("sd-server: %s", e.Message)
	}
	return fmt.Sprintf("sd-server: %s (status=%d, code=%s)", e.Message, e.Status, e.Code)
}

// Unwrap returns the sentinel classifying this failure.
func (e *ServerError) Unwrap() error {
	return e.Err
}

// DecodeKind classifies a response decoding failure.
type DecodeKind string

const (
	// DecodeMalformedJSON means the response body is not valid JSON.
	DecodeMalformedJSON DecodeKind = "malformed_json"
	// DecodeUnexpectedShape means the body parsed but lacks the data array.
	DecodeUnexpectedShape DecodeKind = "unexpected_shape"
	// DecodeMissingImage means a record has no base64 image payload.
	DecodeMissingImage DecodeKind = "missing_image_data"
	// DecodeBadEncoding means a record's payload is not valid base64.
	DecodeBadEncoding DecodeKind = "bad_encoding"
)

// DecodeError reports a structural or encoding defect in a generation
// response. Decoding is all-or-nothing: the first defect aborts the whole
// decode and no partial results are returned.
type DecodeError struct {
	Kind DecodeKind
	// Index is the failing record's position for per-record kinds, -1 when
	// the failure is not tied to a record.
	Index int
	Err   error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	switch e.Kind {
	case DecodeMalformedJSON:
		return fmt.Sprintf("invalid JSON response: %v", e.Err)
	case DecodeUnexpectedShape:
		return `unexpected response format (no "data" array)`
	case DecodeMissingImage:
		return fmt.Sprintf("no image data found for item %d", e.Index)
	case DecodeBadEncoding:
		return fmt.Sprintf("failed to decode base64 data for item %d: %v", e.Index, e.Err)
	default:
		return string(e.Kind)
	}
}

// Unwrap returns the underlying error, if any.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is reports ErrDecode for all decode failures so callers can classify
// without inspecting the kind.
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}
