package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}

	// ForbiddenError indicates authorization failure
	ForbiddenError struct {
		Message string
	}

	// PayloadTooLargeError indicates an upload above the permitted size
	PayloadTooLargeError struct {
		Message string
		Limit   int64
	}
)

func (e *NotFoundError) Error() string        { return e.Message }
func (e *ValidationError) Error() string      { return e.Message }
func (e *UnauthorizedError) Error() string    { return e.Message }
func (e *ForbiddenError) Error() string       { return e.Message }
func (e *PayloadTooLargeError) Error() string { return e.Message }

func (e *NotFoundError) StatusCode() int        { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int      { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int    { return http.StatusUnauthorized }
func (e *ForbiddenError) StatusCode() int       { return http.StatusForbidden }
func (e *PayloadTooLargeError) StatusCode() int { return http.StatusRequestEntityTooLarge }

func (e *NotFoundError) Is(target error) bool        { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool      { return target == ErrValidation }
func (e *UnauthorizedError) Is(target error) bool    { return target == ErrUnauthorized }
func (e *ForbiddenError) Is(target error) bool       { return target == ErrForbidden }
func (e *PayloadTooLargeError) Is(target error) bool { return target == ErrTooLarge }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrTooLarge     = errors.New("payload too large")

	// ErrStorageUnavailable marks object store failures caused by missing
	// credentials or an unreachable endpoint.
	ErrStorageUnavailable = errors.New("object storage unavailable")

	// ErrTransient marks retryable database failures (deadlock, serialization, timeout).
	ErrTransient = errors.New("transient failure")
)

// ConflictError represents a resource conflict with details about the existing resource
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // channel, folder, page, pending
	ResourceID   string // ID of the existing/conflicting resource
}

func (e *ConflictError) Error() string {
	return e.Message
}

func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
