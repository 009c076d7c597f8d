package npmrc

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse is returned when the auth endpoint body has no usable
// _auth entry.
var ErrMalformedResponse = errors.New("malformed auth response")

// RequestError reports a failure to reach the auth endpoint, after the HTTP
// client's retries were exhausted.
type RequestError struct {
	URL   string
	Cause error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("requesting auth token from %s: %v", e.URL, e.Cause)
}

func (e *RequestError) Unwrap() error {
	return e.Cause
}

// AuthRejectedError reports a non-success status from the auth endpoint.
type AuthRejectedError struct {
	URL        string
	StatusCode int
}

func (e *AuthRejectedError) Error() string {
	return fmt.Sprintf("auth endpoint %s rejected credentials: status %d", e.URL, e.StatusCode)
}

// FilesystemError reports a failure to read or write the config file.
type FilesystemError struct {
	Op    string // "read" or "write"
	Path  string
	Cause error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Cause)
}

func (e *FilesystemError) Unwrap() error {
	return e.Cause
}
