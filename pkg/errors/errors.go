package errors

import (
	"fmt"
	"net/http"
	"strings"
)

// Common application errors
var (
	ErrNotFound         = NewNotFoundError("resource", "resource not found")
	ErrAlreadyExists    = NewAlreadyExistsError("resource", "resource already exists")
	ErrInternal         = NewInternalError("internal server error", nil)
	ErrUnauthorized     = NewUnauthorizedError("Please sign in.")
	ErrPermissionDenied = NewPermissionDeniedError("permission denied")
)

// FieldError is a single failed rule for one form field.
type FieldError struct {
	Field   string // Field is the human-readable field name, e.g. "Name"
	Message string // Message is the rule message, e.g. "can't be blank"
}

// FullMessage joins the field name and message the way forms display them.
func (f FieldError) FullMessage() string {
	if f.Field == "" {
		return f.Message
	}
	return f.Field + " " + f.Message
}

// ValidationError represents a validation failure with field-level details.
// All failed rules are collected, never just the first one.
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError creates a validation error with a single field failure
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// Add appends a field failure.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// HasErrors reports whether any rule failed.
func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

// FullMessages returns every failure as "<Field> <message>".
func (e *ValidationError) FullMessages() []string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.FullMessage()
	}
	return msgs
}

// Summary is the headline shown above the messages.
func (e *ValidationError) Summary() string {
	if len(e.Fields) == 1 {
		return "The form contains 1 error."
	}
	return fmt.Sprintf("The form contains %d errors.", len(e.Fields))
}

// On returns the messages recorded for one field.
func (e *ValidationError) On(field string) []string {
	var out []string
	for _, f := range e.Fields {
		if f.Field == field {
			out = append(out, f.Message)
		}
	}
	return out
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return e.Summary() + " " + strings.Join(e.FullMessages(), ", ")
}

// HTTPStatus returns the HTTP status for this error
func (e *ValidationError) HTTPStatus() int {
	return http.StatusUnprocessableEntity
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	Message  string
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource, message string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		Message:  message,
	}
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// HTTPStatus returns the HTTP status for this error
func (e *NotFoundError) HTTPStatus() int {
	return http.StatusNotFound
}

// AlreadyExistsError represents a resource already exists error
type AlreadyExistsError struct {
	Resource string
	Message  string
}

// NewAlreadyExistsError creates a new already exists error
func NewAlreadyExistsError(resource, message string) *AlreadyExistsError {
	return &AlreadyExistsError{
		Resource: resource,
		Message:  message,
	}
}

// Error implements the error interface
func (e *AlreadyExistsError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s already exists", e.Resource)
}

// HTTPStatus returns the HTTP status for this error
func (e *AlreadyExistsError) HTTPStatus() int {
	return http.StatusConflict
}

// UnauthorizedError means the caller has no valid session.
type UnauthorizedError struct {
	Message string
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *UnauthorizedError {
	return &UnauthorizedError{Message: message}
}

// Error implements the error interface
func (e *UnauthorizedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// HTTPStatus returns the HTTP status for this error
func (e *UnauthorizedError) HTTPStatus() int {
	return http.StatusUnauthorized
}

// PermissionDeniedError means the caller is signed in but the action is not allowed.
type PermissionDeniedError struct {
	Message string
}

// NewPermissionDeniedError creates a new permission denied error
func NewPermissionDeniedError(message string) *PermissionDeniedError {
	return &PermissionDeniedError{Message: message}
}

// Error implements the error interface
func (e *PermissionDeniedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "permission denied"
}

// HTTPStatus returns the HTTP status for this error
func (e *PermissionDeniedError) HTTPStatus() int {
	return http.StatusForbidden
}

// InternalError represents an internal server error with context
type InternalError struct {
	Message string
	Err     error
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *InternalError {
	return &InternalError{
		Message: message,
		Err:     err,
	}
}

// Error implements the error interface
func (e *InternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *InternalError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status for this error
func (e *InternalError) HTTPStatus() int {
	return http.StatusInternalServerError
}

// HTTPStatuser is implemented by errors that know their HTTP status
type HTTPStatuser interface {
	HTTPStatus() int
}
