package service

import (
	"errors"
	"fmt"

	"github.com/ilham-education/ilham-backend/internal/models"
)

type ValidationError struct {
	Message string
	Details interface{}
}

func (e *ValidationError) Error() string { return e.Message }

type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

// ConflictError is a uniqueness violation. ExistingID points at the row that
// already holds the unique value when one is known.
type ConflictError struct {
	Message    string
	ExistingID string
}

func (e *ConflictError) Error() string { return e.Message }

type DuplicateApplicationError struct {
	Status models.ApplicationStatus
}

func (e *DuplicateApplicationError) Error() string {
	return fmt.Sprintf("Student already has a %s application to this university", e.Status)
}

type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string { return e.Message }

type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string { return e.Message }

// VerificationRequiredError is returned by Login for accounts that have not
// confirmed their email yet.
type VerificationRequiredError struct {
	Email string
}

func (e *VerificationRequiredError) Error() string {
	return "Please verify your email before logging in"
}

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func notFound(resource string) error {
	return &NotFoundError{Resource: resource}
}

func forbidden(message string) error {
	return &ForbiddenError{Message: message}
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
