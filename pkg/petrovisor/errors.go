package petrovisor

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Sentinel errors.
var (
	// ErrNoCredentials is returned by New when neither a token, a key nor a
	// username and password pair is configured.
	ErrNoCredentials = errors.New("petrovisor: neither token nor key nor username and password are defined")
	// ErrNoDiscoveryURL is returned by New when a discovery URL is needed but missing.
	ErrNoDiscoveryURL = errors.New("petrovisor: discovery url is undefined")
	// ErrUnknownName is matched by every *UnknownNameError.
	ErrUnknownName = errors.New("petrovisor: unknown name")
	// ErrNotFound reports an item the service does not know.
	ErrNotFound = errors.New("petrovisor: not found")
	// ErrPollTimeout is returned when a bounded wait expires.
	ErrPollTimeout = errors.New("petrovisor: poll timeout")
)

// APIError represents an error status returned by the PetroVisor web API.
// Callers should prefer the predicate functions (IsNotFound, IsUnauthorized, etc.)
// to inspect errors rather than asserting on this type directly.
type APIError struct {
	operation  string
	statusCode int
	message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.operation, e.statusCode, e.message)
}

func newAPIError(operation string, statusCode int, message string) *APIError {
	return &APIError{
		operation:  operation,
		statusCode: statusCode,
		message:    message,
	}
}

// StatusCode returns the HTTP status code from the response.
func (e *APIError) StatusCode() int { return e.statusCode }

// Message returns the response body or status text.
func (e *APIError) Message() string { return e.message }

// Operation returns a short description of the API call that failed.
func (e *APIError) Operation() string { return e.operation }

// IsNotFound reports whether err is an API error with HTTP 404 status.
func IsNotFound(err error) bool { return HasStatusCode(err, http.StatusNotFound) }

// IsUnauthorized reports whether err is an API error with HTTP 401 status.
func IsUnauthorized(err error) bool { return HasStatusCode(err, http.StatusUnauthorized) }

// IsForbidden reports whether err is an API error with HTTP 403 status.
func IsForbidden(err error) bool { return HasStatusCode(err, http.StatusForbidden) }

// IsBadRequest reports whether err is an API error with HTTP 400 status.
func IsBadRequest(err error) bool { return HasStatusCode(err, http.StatusBadRequest) }

// HasStatusCode reports whether err is an API error whose HTTP status code matches.
func HasStatusCode(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.statusCode == code
}

// UnknownNameError reports a name that matches none of the known names of
// an enumeration or route table.
type UnknownNameError struct {
	Kind  string
	Name  string
	Known []string
}

func (e *UnknownNameError) Error() string {
	known := append([]string(nil), e.Known...)
	sort.Strings(known)
	return fmt.Sprintf("petrovisor: unknown %s %q, use one of: %s", e.Kind, e.Name, strings.Join(known, ", "))
}

// Is makes errors.Is(err, ErrUnknownName) hold.
func (e *UnknownNameError) Is(target error) bool { return target == ErrUnknownName }

// AuthError reports a failed token request.
type AuthError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *AuthError) Error() string {
	msg := e.Code
	if e.Description != "" {
		msg += ": " + e.Description
	}
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("petrovisor: token request failed (HTTP %d): %s", e.StatusCode, msg)
}

// DecodeError reports a response body that does not decode into the
// expected result type.
type DecodeError struct {
	Operation string
	Body      []byte
	Err       error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: decode response: %v", e.Operation, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
