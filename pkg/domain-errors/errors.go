// Package domainerrors provides coded errors for the pipeline. Services wrap
// infrastructure errors with a code and a stable message; callers branch on
// the code, never on message text.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers that need to decide between skipping a
// person, recording a defect, or failing the run.
type Code string

const (
	// CodeValidation marks raw input a delegate declared non-tolerable,
	// e.g. a period that ends before it starts.
	CodeValidation Code = "validation"

	// CodeNormalization marks a failure inside the normalizer itself.
	CodeNormalization Code = "normalization"

	// CodeInvariantViolation marks an internal precondition failure, such as
	// the span builder receiving periods that overlap. These indicate a
	// programming defect upstream and must never be retried.
	CodeInvariantViolation Code = "invariant_violation"

	// CodeNotFound marks a missing entity in a store.
	CodeNotFound Code = "not_found"

	// CodeUnavailable marks a transient infrastructure failure.
	CodeUnavailable Code = "unavailable"

	// CodeInternal is the catch-all for unexpected failures.
	CodeInternal Code = "internal"
)

// Error is a coded error with an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a coded error with no cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a code and message. Returns nil if err is nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err or any error in its chain carries the code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// CodeOf returns the outermost code in the chain, or CodeInternal when err
// carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Is delegates to errors.Is for sentinel comparisons.
func Is(err, target error) bool { return errors.Is(err, target) }
