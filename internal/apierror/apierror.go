// Package apierror provides standardized error response structures for the API
// plus the sentinel error taxonomy used across the service layer.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

import (
	"errors"
	"net/http"
)

// Sentinel errors classifying every failure the services can produce.
// Services wrap them with %w so errors.Is keeps working through the chain;
// handlers map them to HTTP statuses via StatusFor.
var (
	// ErrNotFound — referenced product/sale/business/location absent.
	ErrNotFound = errors.New("not found")
	// ErrValidation — malformed input: negative magnitude, unknown movement
	// kind, price below zero, plan limit exceeded.
	ErrValidation = errors.New("validation error")
	// ErrConflict — uniqueness collision (sale number race); recoverable by retry.
	ErrConflict = errors.New("conflict")
	// ErrInsufficientStock — a subtracting movement would drive the stock
	// snapshot below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrStorageUnavailable — storage-layer failure (timeout, connectivity,
	// retries exhausted). Propagated, never swallowed.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// StatusFor maps a service error to its HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrInsufficientStock):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "validation error", Fields: fields}
}
