package pipeline

import (
	"context"
	"strings"
)

// Phase identifies a step's role in the scenario: setup, action, or assertion.
type Phase int

const (
	// PhaseGiven establishes preconditions.
	PhaseGiven Phase = iota + 1
	// PhaseWhen performs the action under test.
	PhaseWhen
	// PhaseThen asserts on the resulting state.
	PhaseThen
)

// String returns the display literal for the phase.
func (p Phase) String() string {
	switch p {
	case PhaseGiven:
		return "Given"
	case PhaseWhen:
		return "When"
	case PhaseThen:
		return "Then"
	default:
		return "Unknown"
	}
}

// Connective distinguishes a phase-opening step from an And/But continuation.
type Connective int

const (
	// ConnPrimary marks a step that opens its phase (Given/When/Then).
	ConnPrimary Connective = iota
	// ConnAnd continues the previous step's phase.
	ConnAnd
	// ConnBut continues the previous step's phase with a contrast reading.
	ConnBut
)

// String returns the display literal for the connective.
func (c Connective) String() string {
	switch c {
	case ConnAnd:
		return "And"
	case ConnBut:
		return "But"
	default:
		return "Primary"
	}
}

// Keyword resolves the display keyword for a (phase, connective) pair.
//
// And/But connectives render as their own literal; primary steps render
// as the phase literal. Pure function, no failure modes. The resolved
// keyword is stamped into ResultEntry.Kind and IOEntry.Kind.
//
// Phase inheritance for connectives is a caller concern: a step enqueued
// with ConnAnd or ConnBut must carry the same Phase as the step enqueued
// immediately before it. The chain builder in the scenario package applies
// that rule; the resolver only maps to a literal.
func Keyword(phase Phase, connective Connective) string {
	switch connective {
	case ConnAnd, ConnBut:
		return connective.String()
	default:
		return phase.String()
	}
}

// Func is a state-transforming step body.
//
// The context is the step's cancellation signal: the caller's context, or
// one derived from it that auto-cancels when the policy's per-step timeout
// elapses. Implementations that block should honor it.
//
// On success, return the new state. On failure, return any error; the
// executor classifies it (cancellation, assertion, generic) and discards
// the returned state.
type Func[S any] func(ctx context.Context, state S) (S, error)

// Step is an immutable description of one unit of work.
//
// Steps are created when the caller enqueues them and consumed exactly
// once by the executor (removed from the queue on dequeue).
type Step[S any] struct {
	Phase      Phase
	Connective Connective
	Title      string
	Func       Func[S]
}

// DisplayTitle returns the step title, falling back to the phase literal
// when the title is empty or whitespace-only.
func (s Step[S]) DisplayTitle() string {
	if strings.TrimSpace(s.Title) == "" {
		return s.Phase.String()
	}
	return s.Title
}

// Keyword resolves the step's display keyword.
func (s Step[S]) Keyword() string {
	return Keyword(s.Phase, s.Connective)
}
