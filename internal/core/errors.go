package core

import (
	"errors"
	"fmt"
)

// Error categories. Callers classify failures with errors.Is.
var (
	// ErrValidation marks input that was rejected before any mutation.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a reference to a task id that is not in the store.
	ErrNotFound = errors.New("not found")
	// ErrExternalService marks a failure talking to the knowledge corpus.
	ErrExternalService = errors.New("external service unavailable")
	// ErrPersistence marks a read or write failure on a persisted document.
	ErrPersistence = errors.New("persistence failure")
	// ErrCyclicDependency is wrapped together with ErrValidation when a
	// dependency list would close a cycle.
	ErrCyclicDependency = errors.New("cyclic dependency detected")
)

func validationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFoundErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func persistenceError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

func externalServiceError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrExternalService, err)
}
