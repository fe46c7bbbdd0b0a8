package api

import (
	"errors"
	"fmt"
)

// Common API errors.
var (
	// ErrInsufficientPermission indicates the API key cannot list
	// conversations. Session-scoped keys trigger this; a full API key from
	// the account settings is required.
	ErrInsufficientPermission = errors.New(
		"API key does not have permission to access conversations; use a full API key from your account settings")

	// ErrAuthenticationFailed indicates a runtime host rejected the
	// session API key or bearer fallback.
	ErrAuthenticationFailed = errors.New("authentication failed: invalid session API key")

	// ErrRepositoryUnavailable indicates the workspace git repository is
	// missing or corrupted.
	ErrRepositoryUnavailable = errors.New("git repository not available or corrupted")

	// ErrServerUnavailable indicates a 5xx from the service; the resource
	// may be inaccessible or unavailable.
	ErrServerUnavailable = errors.New("server error: resource may be inaccessible or unavailable")

	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")
)

// NotFoundError wraps ErrNotFound with resource details.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NewNotFoundError creates a typed not found error.
func NewNotFoundError(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// ActionFailedError reports a mutating call that came back non-200,
// carrying the status code and raw response body.
type ActionFailedError struct {
	Status int
	Body   string
}

func (e *ActionFailedError) Error() string {
	return fmt.Sprintf("API call failed - HTTP %d: %s", e.Status, e.Body)
}

// StatusError is an untranslated HTTP failure, the generic case for status
// codes that have no dedicated meaning for the operation.
type StatusError struct {
	Op     string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("failed to %s: HTTP %d", e.Op, e.Status)
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAuthFailure checks for either authentication error variant.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrAuthenticationFailed) || errors.Is(err, ErrInsufficientPermission)
}
