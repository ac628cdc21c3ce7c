// Package apierror provides standardized error response structures for the API
// and the typed errors services raise. All errors returned to clients go
// through this package to ensure consistency and to prevent leaking internal
// details (stack traces, DB errors, etc.).
package apierror

import "fmt"

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// ValidationError wraps multiple field errors. A validation failure voids the
// whole request: no partial effect survives it.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "validation failed", Fields: fields}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Detail, e.Fields)
}

// NotFoundError marks a lookup of an unknown task or product. Mapped to 404.
type NotFoundError struct {
	Detail string
}

func NewNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Detail: fmt.Sprintf(format, args...)}
}

func (e *NotFoundError) Error() string { return e.Detail }

// ConflictError marks an aggregation re-attempt or a batch mismatch. The
// detail wording is part of the API contract and must not change.
type ConflictError struct {
	Detail string
}

func NewConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Detail: fmt.Sprintf(format, args...)}
}

func (e *ConflictError) Error() string { return e.Detail }
