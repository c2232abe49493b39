package modio

import (
	"errors"
	"fmt"
)

// Sentinel errors for mod.io API operations.
var (
	// ErrUnauthorized is returned before a request is issued when the
	// endpoint requires an API token and none is configured.
	ErrUnauthorized = errors.New("modio: endpoint requires an API token but none is configured")

	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("modio: resource not found")
)

// TransportError indicates a network failure or a non-2xx response.
type TransportError struct {
	URL        string
	StatusCode int // 0 when the request never produced a response
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("modio: request to %s failed with status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("modio: request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError indicates a response body that does not match the expected schema.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("modio: failed to decode response from %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
