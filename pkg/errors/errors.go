// Package errors defines custom error types and error handling utilities for the key registry.
// This package provides structured error kinds that map to HTTP status codes.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Code identifies the kind of a RegistryError.
type Code string

const (
	CodeNotFound          Code = "not_found"
	CodeInvalidTransition Code = "invalid_transition"
	CodeValidation        Code = "validation_error"
	CodeTokenExpired      Code = "token_expired"
	CodeTokenNotFound     Code = "token_not_found"
	CodeCancelled         Code = "cancelled"
	CodeConflict          Code = "conflict"
	CodeInternal          Code = "internal_error"
)

// ================================================================================
// Base Error Interface
// ================================================================================

// RegistryError represents a structured error with additional metadata
type RegistryError interface {
	error

	// Code returns the error kind
	Code() Code

	// HTTPStatus returns the HTTP status code
	HTTPStatus() int

	// Description returns a human-readable description
	Description() string

	// Unwrap returns the underlying error for error chain support
	Unwrap() error

	// WithCause adds a cause error to the error chain
	WithCause(cause error) RegistryError

	// WithMetadata adds additional context metadata
	WithMetadata(key string, value interface{}) RegistryError

	// Metadata returns all metadata
	Metadata() map[string]interface{}
}

// ================================================================================
// Base Error Implementation
// ================================================================================

type baseError struct {
	code        Code
	httpStatus  int
	description string
	message     string
	cause       error
	metadata    map[string]interface{}
}

// Error implements the error interface
func (e *baseError) Error() string {
	if e.message != "" {
		return e.message
	}
	return e.description
}

func (e *baseError) Code() Code          { return e.code }
func (e *baseError) HTTPStatus() int     { return e.httpStatus }
func (e *baseError) Description() string { return e.description }
func (e *baseError) Unwrap() error       { return e.cause }

// Is matches any RegistryError of the same code, so the Kind sentinels
// below work with errors.Is.
func (e *baseError) Is(target error) bool {
	t, ok := target.(*baseError)
	if !ok {
		return false
	}
	return t.code == e.code
}

func (e *baseError) WithCause(cause error) RegistryError {
	e.cause = cause
	return e
}

func (e *baseError) WithMetadata(key string, value interface{}) RegistryError {
	if e.metadata == nil {
		e.metadata = make(map[string]interface{})
	}
	e.metadata[key] = value
	return e
}

func (e *baseError) Metadata() map[string]interface{} {
	return e.metadata
}

// NewError creates a new RegistryError with the specified parameters
func NewError(code Code, httpStatus int, description string, message string) RegistryError {
	return &baseError{
		code:        code,
		httpStatus:  httpStatus,
		description: description,
		message:     message,
		metadata:    make(map[string]interface{}),
	}
}

// ================================================================================
// Kind Sentinels
// ================================================================================

// Sentinels for errors.Is comparisons. They carry no metadata and must not be mutated.
var (
	ErrKindNotFound          error = &baseError{code: CodeNotFound}
	ErrKindInvalidTransition error = &baseError{code: CodeInvalidTransition}
	ErrKindValidation        error = &baseError{code: CodeValidation}
	ErrKindTokenExpired      error = &baseError{code: CodeTokenExpired}
	ErrKindTokenNotFound     error = &baseError{code: CodeTokenNotFound}
	ErrKindCancelled         error = &baseError{code: CodeCancelled}
	ErrKindConflict          error = &baseError{code: CodeConflict}
)

// ================================================================================
// Domain-Specific Error Constructors
// ================================================================================

// ErrNotFound creates an unknown record error
func ErrNotFound(resource, id string) RegistryError {
	return NewError(
		CodeNotFound,
		http.StatusNotFound,
		"The requested resource was not found.",
		fmt.Sprintf("%s not found: %s", resource, id),
	).WithMetadata("resource", resource).
		WithMetadata("id", id)
}

// ErrInvalidTransition creates a disallowed lifecycle change error
func ErrInvalidTransition(id, from, action, reason string) RegistryError {
	msg := fmt.Sprintf("cannot %s key %s in state %s", action, id, from)
	if reason != "" {
		msg += ": " + reason
	}
	return NewError(
		CodeInvalidTransition,
		http.StatusConflict,
		"The requested lifecycle transition is not permitted from the current state.",
		msg,
	).WithMetadata("id", id).
		WithMetadata("from", from).
		WithMetadata("action", action)
}

// ErrValidation creates a malformed input error
func ErrValidation(field, reason string) RegistryError {
	return NewError(
		CodeValidation,
		http.StatusBadRequest,
		"The request includes an invalid parameter value or is otherwise malformed.",
		fmt.Sprintf("invalid %s: %s", field, reason),
	).WithMetadata("field", field)
}

// ErrTokenExpired creates an expired confirmation token error
func ErrTokenExpired(token string) RegistryError {
	return NewError(
		CodeTokenExpired,
		http.StatusGone,
		"The confirmation token has expired. Request the bulk action again.",
		fmt.Sprintf("confirmation token expired: %s", token),
	).WithMetadata("token", token)
}

// ErrTokenNotFound creates an unknown or already used confirmation token error
func ErrTokenNotFound(token string) RegistryError {
	return NewError(
		CodeTokenNotFound,
		http.StatusNotFound,
		"The confirmation token is unknown or was already used.",
		fmt.Sprintf("confirmation token not found: %s", token),
	).WithMetadata("token", token)
}

// ErrCancelled creates a cooperative cancellation error
func ErrCancelled(cause error) RegistryError {
	return NewError(
		CodeCancelled,
		http.StatusRequestTimeout,
		"The operation was cancelled before completion.",
		"operation cancelled",
	).WithCause(cause)
}

// ErrConflict creates a duplicate resource error
func ErrConflict(resource, id string) RegistryError {
	return NewError(
		CodeConflict,
		http.StatusConflict,
		"The resource already exists.",
		fmt.Sprintf("%s already exists: %s", resource, id),
	).WithMetadata("resource", resource).
		WithMetadata("id", id)
}

// ErrInternal creates an unexpected failure error
func ErrInternal(message string, cause error) RegistryError {
	return NewError(
		CodeInternal,
		http.StatusInternalServerError,
		"The server encountered an unexpected condition that prevented it from fulfilling the request.",
		message,
	).WithCause(cause)
}

// ================================================================================
// Error Validation Utilities
// ================================================================================

// AsRegistryError finds the first RegistryError in err's chain
func AsRegistryError(err error) (RegistryError, bool) {
	var regErr RegistryError
	if stderrors.As(err, &regErr) {
		return regErr, true
	}
	return nil, false
}

// CodeOf returns the code of err, or CodeInternal for foreign errors
func CodeOf(err error) Code {
	if regErr, ok := AsRegistryError(err); ok {
		return regErr.Code()
	}
	return CodeInternal
}

// Is is a shorthand for the standard errors.Is
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As is a shorthand for the standard errors.As
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// IsNotFound reports whether err is a NotFound error
func IsNotFound(err error) bool { return stderrors.Is(err, ErrKindNotFound) }

// IsInvalidTransition reports whether err is an InvalidTransition error
func IsInvalidTransition(err error) bool { return stderrors.Is(err, ErrKindInvalidTransition) }

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool { return stderrors.Is(err, ErrKindValidation) }

// ShouldLogError determines if an error should be logged at error level
func ShouldLogError(err error) bool {
	if regErr, ok := AsRegistryError(err); ok {
		return regErr.HTTPStatus() >= 500
	}
	return true
}

// ================================================================================
// Error Response Builder
// ================================================================================

// ErrorResponse represents the JSON structure for error responses
type ErrorResponse struct {
	Error            string                 `json:"error"`
	ErrorDescription string                 `json:"error_description"`
	Message          string                 `json:"message,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// ToErrorResponse converts a RegistryError to an ErrorResponse
func ToErrorResponse(err RegistryError) *ErrorResponse {
	resp := &ErrorResponse{
		Error:            string(err.Code()),
		ErrorDescription: err.Description(),
		Message:          err.Error(),
	}
	if len(err.Metadata()) > 0 {
		resp.Metadata = err.Metadata()
	}
	return resp
}

// ToGenericErrorResponse converts any error to an ErrorResponse and its HTTP status
func ToGenericErrorResponse(err error) (int, *ErrorResponse) {
	if regErr, ok := AsRegistryError(err); ok {
		return regErr.HTTPStatus(), ToErrorResponse(regErr)
	}
	return http.StatusInternalServerError, &ErrorResponse{
		Error:            string(CodeInternal),
		ErrorDescription: "An unexpected error occurred",
	}
}
