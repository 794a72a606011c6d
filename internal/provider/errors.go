package provider

import (
	"errors"
	"fmt"
)

// ErrNotConfigured means the provider endpoint or credential is missing.
var ErrNotConfigured = errors.New("provider not configured")

// ErrInvalidResponse means a 2xx body was not a usable chat completion.
var ErrInvalidResponse = errors.New("invalid provider response")

// StatusError is a non-2xx provider reply.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider returned status %d", e.StatusCode)
}

// TransportError wraps a failure to reach the provider at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "provider request failed: " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }
