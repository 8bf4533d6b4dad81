package registry

import (
	"context"
	"errors"
)

// engineNotFoundError signals dispatch to an unknown or unavailable engine.
type engineNotFoundError struct{ name string }

func (e engineNotFoundError) Error() string { return "engine not found: " + e.name }

// ErrEngineNotFound constructs an engineNotFoundError.
func ErrEngineNotFound(name string) error { return engineNotFoundError{name: name} }

// IsEngineNotFound reports whether err indicates a missing or unavailable
// engine name.
func IsEngineNotFound(err error) bool {
	var e engineNotFoundError
	return errors.As(err, &e)
}

// processingError wraps an engine-local failure with the engine's name.
type processingError struct {
	engine string
	cause  error
}

func (e processingError) Error() string { return "engine " + e.engine + ": " + e.cause.Error() }

func (e processingError) Unwrap() error { return e.cause }

// IsProcessingError reports whether err wraps an engine-local failure.
func IsProcessingError(err error) bool {
	var e processingError
	return errors.As(err, &e)
}

// IsCancelled reports whether err stems from caller cancellation or a
// deadline, including when wrapped inside a processing error.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
