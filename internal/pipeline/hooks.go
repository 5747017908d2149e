package pipeline

// StepMeta is the metadata handed to before-step observers.
//
// Deliberately state-free: observers see what is about to run (keyword,
// title, phase, connective) but never the state value, keeping reporters
// decoupled from the state type.
type StepMeta struct {
	Kind       string
	Title      string
	Phase      Phase
	Connective Connective
}

// BeforeStepHook observes a step immediately before it executes.
type BeforeStepHook func(meta StepMeta)

// AfterStepHook observes a step's ResultEntry immediately after it is
// recorded. Fires for attempted steps only, not for skip-drained entries.
type AfterStepHook func(entry ResultEntry)

// hooks holds the observer lists for one executor.
//
// Observers are explicit slices rather than nullable fields: zero
// observers is a zero-length slice, so the no-observer case is a cheap
// emptiness check with no nil-delegate idiom.
//
// Hooks run best-effort on the executing goroutine. The engine does not
// recover panics raised by a hook; a panicking observer is the caller's
// problem.
type hooks struct {
	before []BeforeStepHook
	after  []AfterStepHook
}

// fireBefore invokes all before-step observers in registration order.
func (h *hooks) fireBefore(meta StepMeta) {
	for _, fn := range h.before {
		fn(meta)
	}
}

// fireAfter invokes all after-step observers in registration order.
func (h *hooks) fireAfter(entry ResultEntry) {
	for _, fn := range h.after {
		fn(entry)
	}
}
