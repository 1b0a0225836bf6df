package drawdown

import (
	"errors"
	"fmt"
)

// Domain errors for drawdown runs.
var (
	// ErrInvalidConfig indicates a configuration rejected before stepping.
	ErrInvalidConfig = errors.New("drawdown: invalid configuration")

	// ErrNotConfigured indicates Run was called before Configure.
	ErrNotConfigured = errors.New("drawdown: simulator not configured")

	// ErrNonFinite indicates a NaN or Inf appeared in the reservoir state.
	ErrNonFinite = errors.New("drawdown: non-finite value in state")
)

// ConfigurationError names the offending setting.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("drawdown: invalid %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ConfigurationError) Is(target error) bool { return target == ErrInvalidConfig }

func invalid(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Err: fmt.Errorf(format, args...)}
}

// ComputationError wraps a failure with the step that produced it.
type ComputationError struct {
	Step  int
	Field string
	Value float64
	Err   error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("drawdown: step %d: %s=%v: %v", e.Step, e.Field, e.Value, e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }
