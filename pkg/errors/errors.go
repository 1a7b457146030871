// Package errors defines the coded error taxonomy for the retrieval service.
//
// Every failure class carries a stable code and an HTTP status so the thin
// transport layer can map business errors without inspecting messages.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a coded business error.
type Error struct {
	// Code is a stable machine-readable identifier.
	Code string `json:"code"`

	// HTTPStatus is the status the transport layer should respond with.
	HTTPStatus int `json:"-"`

	// Message is a human-readable description.
	Message string `json:"message"`

	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches errors by code, so wrapped instances compare equal to their
// registered sentinel.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy of the error carrying the underlying cause.
func (e *Error) WithCause(cause error) *Error {
	return &Error{Code: e.Code, HTTPStatus: e.HTTPStatus, Message: e.Message, cause: cause}
}

// WithMessagef returns a copy of the error with a formatted message.
func (e *Error) WithMessagef(format string, args ...any) *Error {
	return &Error{Code: e.Code, HTTPStatus: e.HTTPStatus, Message: fmt.Sprintf(format, args...), cause: e.cause}
}

// New creates a coded error.
func New(code string, httpStatus int, message string) *Error {
	return &Error{Code: code, HTTPStatus: httpStatus, Message: message}
}

// Service error registry.
var (
	// ErrInvalidRequest covers validation failures rejected before any I/O,
	// such as an empty query or an unapproved embedding model.
	ErrInvalidRequest = New("ragd.invalid_request", http.StatusBadRequest, "invalid request parameters")

	// ErrModelNotApproved is a validation failure for an embedding model
	// outside the configured allow list.
	ErrModelNotApproved = New("ragd.model_not_approved", http.StatusBadRequest, "embedding model is not approved")

	// ErrProviderUnavailable means the embedding/generation endpoint is
	// unreachable or the model could not be resolved after a pull attempt.
	ErrProviderUnavailable = New("ragd.provider_unavailable", http.StatusServiceUnavailable, "embedding provider unavailable")

	// ErrStoreFailure means the vector database returned non-success for
	// an upsert, search, delete or count.
	ErrStoreFailure = New("ragd.store_failure", http.StatusBadGateway, "vector store operation failed")

	// ErrDimensionMismatch means an embedded vector does not match the
	// collection's configured dimensionality. Fatal for that ingestion.
	ErrDimensionMismatch = New("ragd.dimension_mismatch", http.StatusInternalServerError, "embedding dimension mismatch")

	// ErrIndexFailed means no chunk of a document could be indexed.
	ErrIndexFailed = New("ragd.index_failed", http.StatusInternalServerError, "document indexing failed")

	// ErrTokenize means the token encoder rejected a document's text.
	ErrTokenize = New("ragd.tokenize_failed", http.StatusUnprocessableEntity, "failed to tokenize document")
)

// HTTPStatus extracts the HTTP status from an error chain, defaulting to 500.
func HTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.HTTPStatus
	}
	return http.StatusInternalServerError
}

// Code extracts the stable code from an error chain, or "ragd.internal".
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "ragd.internal"
}
