package calendar

import (
	"errors"
	"fmt"
)

// ErrAuth matches any *AuthError.
var ErrAuth = errors.New("authentication failed")

// AuthError reports a failure to obtain an access token: missing or
// malformed credentials, an unparsable private key, a signing failure, or a
// rejected token exchange.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("auth error: %s", e.Op)
	}
	return fmt.Sprintf("auth error: %s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrAuth.
func (e *AuthError) Is(target error) bool {
	return target == ErrAuth
}

// NewAuthError creates an AuthError for the given operation.
func NewAuthError(op string, err error) *AuthError {
	return &AuthError{Op: op, Err: err}
}

// APIError represents a non-2xx response from the calendar API.
type APIError struct {
	StatusCode int
	Status     string
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d: %s (URL: %s)", e.StatusCode, e.Status, e.URL)
	}
	return fmt.Sprintf("HTTP %d: %s (URL: %s): %s", e.StatusCode, e.Status, e.URL, e.Body)
}

// NewAPIError creates a new APIError
func NewAPIError(statusCode int, status, url, body string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Status:     status,
		URL:        url,
		Body:       body,
	}
}
