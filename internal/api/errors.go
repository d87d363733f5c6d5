// Package api provides the HTTP session and request layer for the AMEE
// carbon-accounting REST service: local route validation, token-based
// sessions with a single re-authentication retry, and JSON decoding.
package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the request layer. Use errors.Is to check.
var (
	ErrInvalidPath    = errors.New("api: invalid path")
	ErrAuthentication = errors.New("api: authentication failed")
	ErrRequest        = errors.New("api: request failed")
)

// Sentinel errors for HTTP status classification. A RequestError carrying
// one of these matches both the status sentinel and ErrRequest.
var (
	ErrBadRequest  = errors.New("api: bad request")
	ErrForbidden   = errors.New("api: forbidden")
	ErrNotFound    = errors.New("api: not found")
	ErrConflict    = errors.New("api: conflict")
	ErrServerError = errors.New("api: server error")
)

// PathError reports a (verb, path) pair rejected by the route rules.
// No network call is made when this error is returned.
type PathError struct {
	Verb string
	Path string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("api: invalid path %q for %s", e.Path, e.Verb)
}

func (e *PathError) Unwrap() error {
	return ErrInvalidPath
}

// AuthError reports credentials that the service refused, or that were
// never configured. StatusCode is zero when no request was sent.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	if e.StatusCode == 0 {
		return "api: authentication failed: " + e.Message
	}

	return fmt.Sprintf("api: authentication failed: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *AuthError) Unwrap() error {
	return ErrAuthentication
}

// RequestError wraps a transport failure, a non-2xx response, or a body
// that is not valid JSON.
type RequestError struct {
	Verb       string
	Path       string
	StatusCode int    // 0 for transport and decode failures
	Message    string // response body or failure description
	Err        error  // underlying cause or status sentinel, may be nil
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("api: %s %s: HTTP %d: %s", e.Verb, e.Path, e.StatusCode, e.Message)
	}

	return fmt.Sprintf("api: %s %s: %s", e.Verb, e.Path, e.Message)
}

// Unwrap exposes both ErrRequest and the underlying cause.
func (e *RequestError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRequest}
	}

	return []error{ErrRequest, e.Err}
}

// classifyStatus maps a non-2xx HTTP status code to a sentinel error.
// Returns nil for codes without a dedicated sentinel.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}
