package services

import (
	"errors"
	"fmt"

	"github.com/chalk-edu/chalk/internal/validator"
)

var (
	ErrNotFound         = errors.New("resource not found")
	ErrForbidden        = errors.New("forbidden")
	ErrUnauthorized     = errors.New("authentication required")
	ErrValidationFailed = errors.New("validation failed")
	ErrConflict         = errors.New("conflict")
)

var (
	ErrExerciseNotFound   = notFound("exercise")
	ErrTestNotFound       = notFound("test")
	ErrCourseNotFound     = notFound("course")
	ErrDraftNotFound      = notFound("draft")
	ErrResolutionNotFound = notFound("resolution")
)

type notFound string

func (n notFound) Error() string { return string(n) + " not found" }

func (n notFound) Is(target error) bool { return target == ErrNotFound }

type ValidationError = validator.ValidationError
type ValidationErrors = validator.ValidationErrors

func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: message, Value: value, Rule: "business_logic"}
}

// invalid wraps a domain error so that handlers answer 400
func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrValidationFailed, err)
}

// PermissionError describes a refused action. It matches ErrForbidden.
type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID string `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func NewPermissionError(userID, resourceID, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s %s: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func (e *PermissionError) Is(target error) bool { return target == ErrForbidden }
