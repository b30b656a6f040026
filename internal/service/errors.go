package service

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the services. The API layer maps them to status
// codes; callers check them with errors.Is.
var (
	// ErrNotOwned indicates the task belongs to a different user than the caller.
	// API layer should map this to HTTP 403 Forbidden.
	ErrNotOwned = errors.New("resource is owned by another user")

	// ErrInvalidRetention is returned for a negative purge retention.
	ErrInvalidRetention = errors.New("retention days cannot be negative")
)

// ServiceError wraps an unexpected failure with the service and operation it
// happened in. Expected conditions (not found, not owned, validation) are
// returned unwrapped or wrapped with fmt.Errorf instead.
type ServiceError struct {
	Service string
	Op      string
	Err     error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s service %s operation failed: %v", e.Service, e.Op, e.Err)
	}
	return fmt.Sprintf("%s service %s operation failed", e.Service, e.Op)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a ServiceError.
func NewServiceError(service, op string, err error) error {
	return &ServiceError{Service: service, Op: op, Err: err}
}
