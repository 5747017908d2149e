package pipeline

import "time"

// Policy is the failure-handling configuration for one run.
//
// Constructed once per run and read-only during execution. Both booleans
// are explicit, required decisions: there are no framework-wide defaults
// for continue-after-failure behavior, so the zero value ("record the
// first generic failure and halt without draining; record failed
// assertions and continue") is itself a deliberate choice callers opt
// into, not a guess.
type Policy struct {
	// ContinueOnError keeps the loop running after a generic step
	// failure, using the previously held state. When false, the failure
	// halts the run and propagates as a StepError.
	ContinueOnError bool

	// HaltOnFailedAssertion rethrows an AssertionError immediately after
	// recording it, running no further steps and draining nothing. When
	// false, failed assertions are recorded and the loop continues.
	HaltOnFailedAssertion bool

	// StepTimeout bounds each step's execution. When positive, the
	// executor derives a context that auto-cancels after this duration and
	// passes it to the step's function. Zero means no per-step bound.
	StepTimeout time.Duration

	// MarkRemainingAsSkipped drains every still-queued step into the
	// result ledger as a synthetic skipped entry when a generic failure
	// halts the run. Only consulted when ContinueOnError is false.
	MarkRemainingAsSkipped bool
}
