package core

import (
	"errors"
	"fmt"
)

// Validation errors
var (
	ErrInvalidJobTypeName = errors.New("jobs: invalid job type name (must be alphanumeric, start with letter)")
	ErrJobTypeNameTooLong = errors.New("jobs: job type name too long")
	ErrInvalidStoreName   = errors.New("jobs: invalid store name")
	ErrStoreNameTooLong   = errors.New("jobs: store name too long")
	ErrTopicTooLong       = errors.New("jobs: topic exceeds maximum length")
	ErrJobArgsTooLarge    = errors.New("jobs: job arguments exceed size limit")
)

// Configuration and lifecycle errors
var (
	ErrNoHandler               = errors.New("jobs: no handler registered for job type")
	ErrDuplicateHandler        = errors.New("jobs: duplicate handler for job type")
	ErrStoreNotInitialized     = errors.New("jobs: store is not initialized")
	ErrStoreAlreadyInitialized = errors.New("jobs: store is already initialized")
	ErrQueueClosed             = errors.New("jobs: queue is closed")
	ErrCorruptRecord           = errors.New("jobs: corrupt persisted record")
	ErrAttemptFinished         = errors.New("jobs: checkpoint after the attempt finished")
)

// ConfigurationError indicates a condition that retrying cannot fix, such as
// a job type without a registered handler.
type ConfigurationError struct {
	JobType string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.JobType == "" {
		return fmt.Sprintf("configuration: %v", e.Err)
	}
	return fmt.Sprintf("configuration: job type %q: %v", e.JobType, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Configuration wraps err as a ConfigurationError for jobType.
func Configuration(jobType string, err error) error {
	return &ConfigurationError{JobType: jobType, Err: err}
}

// PersistenceError wraps a storage backend failure.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("persistence: %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// HandlerError wraps a failure returned (or panicked) by handler logic.
type HandlerError struct {
	JobType string
	Err     error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %q: %v", e.JobType, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// IsConfigurationError reports whether err is, or wraps, a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
