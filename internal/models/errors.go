package models

import (
	"errors"
	"fmt"
)

// ErrInference marks a failed detector or describer call. The pipeline
// absorbs these by degrading to empty inputs instead of halting.
var ErrInference = errors.New("inference failed")

// ConfigError is fatal at construction and never recovered.
type ConfigError struct {
	Param  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Param, e.Reason)
}

// ValidationError rejects malformed data at the point of construction.
// It terminates the run that produced it.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// CallbackError wraps a failure from a caller-supplied result consumer.
// Frame metrics are recorded before it propagates.
type CallbackError struct {
	Frame int64
	Err   error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("result callback failed at frame %d: %v", e.Frame, e.Err)
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}
