package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates that a requested resource was not found.
	ErrNotFound = errors.New("resource not found")
	// ErrCustomerNotFound is returned when an email does not identify a stored customer.
	ErrCustomerNotFound = fmt.Errorf("customer %w", ErrNotFound)
	// ErrSegmentNotFound is returned when a segment id is unknown.
	ErrSegmentNotFound = fmt.Errorf("segment %w", ErrNotFound)
	// ErrCampaignNotFound is returned when a campaign id is unknown.
	ErrCampaignNotFound = fmt.Errorf("campaign %w", ErrNotFound)

	// ErrDuplicateEntry indicates a unique constraint violation.
	ErrDuplicateEntry = errors.New("duplicate entry")
	// ErrCampaignAlreadyDispatched guards the CREATED -> terminal transition.
	ErrCampaignAlreadyDispatched = errors.New("campaign already dispatched")
	// ErrDispatchInProgress is returned when a send for the same campaign is already running.
	ErrDispatchInProgress = errors.New("campaign dispatch already in progress")
	// ErrDependencyUnavailable marks an optional collaborator (queue, suggestion service) as down.
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// ErrValidation is the class of every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrStorage is the class of every *StorageError.
	ErrStorage = errors.New("storage failure")
)

// ValidationError reports malformed or missing input. Never retried.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// StorageError wraps a persistence failure. It is fatal to the current operation.
type StorageError struct {
	Op  string
	Err error
}

func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }
