package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Caller-contract violations
	ErrInvalidArgument = errors.New("invalid argument")

	// Requests too large to materialize
	ErrResourceExhausted = errors.New("resource exhausted")

	// Critical-value lookups
	ErrUnknownSignificance = errors.New("no critical value for significance level")
)

// ArgumentError describes which parameter broke which constraint.
type ArgumentError struct {
	Param      string
	Value      interface{}
	Constraint string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%v: %s=%v, must be %s", ErrInvalidArgument, e.Param, e.Value, e.Constraint)
}

func (e *ArgumentError) Unwrap() error {
	return ErrInvalidArgument
}

// Error constructors with context
func NewArgumentError(param string, value interface{}, constraint string) error {
	return &ArgumentError{Param: param, Value: value, Constraint: constraint}
}

func NewResourceError(resource string, requested, limit int) error {
	return fmt.Errorf("%w: %s requested %d exceeds limit %d", ErrResourceExhausted, resource, requested, limit)
}

func NewUnknownSignificanceError(trials int, confidence float64) error {
	return fmt.Errorf("%w: trials=%d confidence=%g", ErrUnknownSignificance, trials, confidence)
}

// Error checking helpers
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

func IsResourceExhausted(err error) bool {
	return errors.Is(err, ErrResourceExhausted)
}

func IsUnknownSignificance(err error) bool {
	return errors.Is(err, ErrUnknownSignificance)
}

// ArgumentParam returns the offending parameter name, or "" if err is not an ArgumentError.
func ArgumentParam(err error) string {
	var argErr *ArgumentError
	if errors.As(err, &argErr) {
		return argErr.Param
	}
	return ""
}
