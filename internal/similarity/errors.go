package similarity

import (
	"errors"
	"fmt"
)

// Error categories. Use errors.Is to classify an error returned by this
// package or by the search engine.
var (
	ErrValidation        = errors.New("validation error")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrDegenerateVector  = errors.New("degenerate vector")
	ErrProvider          = errors.New("embedding provider error")
)

// Error wraps a category sentinel with the failing operation and a
// human-readable detail.
type Error struct {
	Op     string // operation name, e.g. "Compare"
	Err    error  // category sentinel or wrapped cause
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Err, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Validationf returns an ErrValidation error for op.
func Validationf(op, format string, args ...any) *Error {
	return &Error{Op: op, Err: ErrValidation, Detail: fmt.Sprintf(format, args...)}
}

// ProviderErr wraps a provider failure as ErrProvider, keeping cause reachable
// through errors.Is / errors.As.
func ProviderErr(op string, cause error) *Error {
	return &Error{Op: op, Err: fmt.Errorf("%w: %w", ErrProvider, cause)}
}

func dimensionErr(op, format string, args ...any) *Error {
	return &Error{Op: op, Err: ErrDimensionMismatch, Detail: fmt.Sprintf(format, args...)}
}

func degenerateErr(op, format string, args ...any) *Error {
	return &Error{Op: op, Err: ErrDegenerateVector, Detail: fmt.Sprintf(format, args...)}
}
