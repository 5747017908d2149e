package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// AssertionError signals that a step's expected condition was not met.
//
// Distinct from a generic step failure: propagation out of Run is gated by
// Policy.HaltOnFailedAssertion, while generic failures are gated by
// Policy.ContinueOnError.
type AssertionError struct {
	// Message describes the unmet expectation.
	Message string

	// Cause is the underlying error, if the assertion wraps one.
	Cause error
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("assertion failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("assertion failed: %s", e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *AssertionError) Unwrap() error {
	return e.Cause
}

// NewAssertionError creates an AssertionError with a formatted message.
func NewAssertionError(format string, args ...any) *AssertionError {
	return &AssertionError{Message: fmt.Sprintf(format, args...)}
}

// StepError wraps a generic step failure together with the run's report.
//
// Callers catching a StepError get the original cause plus enough context
// (the full ledger up to and including the failed step, and any skip-drained
// entries) to report which step failed, with what input, and why.
type StepError struct {
	// Kind is the failed step's resolved display keyword.
	Kind string

	// Title is the failed step's display title.
	Title string

	// Cause is the error the step's function returned.
	Cause error

	// Report references the run's ledger as of the failure.
	Report *Report
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("step %q (%s) failed: %v", e.Title, e.Kind, e.Cause)
}

// Unwrap returns the original step failure.
func (e *StepError) Unwrap() error {
	return e.Cause
}

// SkippedError is the synthetic fault attached to steps drained from the
// queue without executing, after a halting failure. It is deliberately not
// the original step's fault so a consumer can tell "never ran" apart from
// "ran and failed".
type SkippedError struct {
	// Kind is the skipped step's resolved display keyword.
	Kind string

	// Title is the skipped step's display title.
	Title string
}

// Error implements the error interface.
func (e *SkippedError) Error() string {
	return fmt.Sprintf("step %q (%s) skipped due to previous failure", e.Title, e.Kind)
}

// IsAssertionError reports whether err is (or wraps) an AssertionError.
func IsAssertionError(err error) bool {
	var ae *AssertionError
	return errors.As(err, &ae)
}

// IsSkipped reports whether err is (or wraps) a SkippedError.
func IsSkipped(err error) bool {
	var se *SkippedError
	return errors.As(err, &se)
}

// IsCancellation reports whether err is attributable to cooperative
// cancellation: the caller's context firing or a per-step timeout elapsing.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
