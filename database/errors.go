package database

import (
	"errors"
	"fmt"
)

// DBError carries the name of the analysis, ranking or product query that failed
type DBError struct {
	Operation string
	Err       error
}

func (e *DBError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Operation, e.Err)
}

func (e *DBError) Unwrap() error {
	return e.Err
}

// NotFoundError reports an unknown category or a missing analysis or ranking
type NotFoundError struct {
	Resource string
	ID       interface{}
}

func (e *NotFoundError) Error() string {
	if e.ID == nil {
		return fmt.Sprintf("%s does not exist", e.Resource)
	}
	return fmt.Sprintf("%s %v does not exist", e.Resource, e.ID)
}

// ValidationError rejects an input such as a time range, backend name or port
// before any query runs.
type ValidationError struct {
	Field  string
	Reason string
	Value  interface{}
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// WrapDBError tags err with the storage operation; nil stays nil
func WrapDBError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return &DBError{Operation: operation, Err: err}
}

// NewNotFoundErrorWithID reports that resource id is unknown, e.g. a category
// outside the catalog.
func NewNotFoundErrorWithID(resource string, id interface{}) error {
	return &NotFoundError{Resource: resource, ID: id}
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NewValidationErrorWithValue includes the rejected value in the message
func NewValidationErrorWithValue(field, reason string, value interface{}) error {
	return &ValidationError{Field: field, Reason: reason, Value: value}
}

// IsNotFound reports whether err wraps a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err wraps a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// OperationOf returns the failing storage operation, or "" when err is not a DBError
func OperationOf(err error) string {
	var dbErr *DBError
	if errors.As(err, &dbErr) {
		return dbErr.Operation
	}
	return ""
}
