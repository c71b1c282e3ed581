package entity

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced by the framework.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeNoPermission = "ERR_NO_PERMISSION"
	CodeNotFound     = "ERR_ENTITY_NOT_FOUND"
)

// Error is the structured error surface of the framework. Details carry
// machine-readable context suitable for direct display: field violations
// for validation errors, the relation id for permission errors.
type Error struct {
	Code       string `json:"code"`
	HTTPStatus int    `json:"-"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Violation names one failed validation rule on one field.
type Violation struct {
	Type    string `json:"type"`
	Field   string `json:"field"`
	Message string `json:"message,omitempty"`
}

// NewValidationError builds a VALIDATION_ERROR carrying all collected
// field violations. No field is persisted when any field fails.
func NewValidationError(violations ...Violation) *Error {
	msg := "parameters validation error"
	if len(violations) == 1 {
		msg = fmt.Sprintf("field %q failed %s validation", violations[0].Field, violations[0].Type)
	}

	return &Error{
		Code:       CodeValidation,
		HTTPStatus: http.StatusUnprocessableEntity,
		Message:    msg,
		Details:    violations,
	}
}

// NewRequiredError reports a missing mandatory field or relation.
func NewRequiredError(field string) *Error {
	return &Error{
		Code:       CodeValidation,
		HTTPStatus: http.StatusUnprocessableEntity,
		Message:    fmt.Sprintf("%s is required", field),
		Details:    []Violation{{Type: "required", Field: field}},
	}
}

// NewNoPermissionError reports that the caller lacks the relation
// required to access the entity. The relation id lands in the details.
func NewNoPermissionError(relation, id string) *Error {
	return &Error{
		Code:       CodeNoPermission,
		HTTPStatus: http.StatusForbidden,
		Message:    fmt.Sprintf("you have no right for the %s '%s'", relation, id),
		Details:    map[string]any{relation: id},
	}
}

// NewNotFoundError reports a missing entity. Soft-deleted entities are
// indistinguishable from absent ones to unprivileged callers.
func NewNotFoundError(name, id string) *Error {
	return &Error{
		Code:       CodeNotFound,
		HTTPStatus: http.StatusNotFound,
		Message:    fmt.Sprintf("%s '%s' not found", name, id),
		Details:    map[string]any{"id": id},
	}
}

// AsError unwraps err to the framework error type.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}

	return nil, false
}

func IsValidation(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code == CodeValidation
}

func IsNoPermission(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code == CodeNoPermission
}

func IsNotFound(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code == CodeNotFound
}
