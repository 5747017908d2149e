package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Executor runs queued steps sequentially against an evolving state value.
//
// One executor serves one run at a time: the queue, ledgers, and state
// cell it mutates during Run are exclusively owned for the duration of the
// call. Run many scenarios concurrently by giving each its own executor,
// queue, and seed.
type Executor[S any] struct {
	policy Policy
	clock  *Clock
	hooks  hooks
	logger *slog.Logger
}

// Option configures an Executor.
type Option[S any] func(*Executor[S])

// WithBeforeStep registers an observer invoked before each step executes.
// Multiple observers fire in registration order.
func WithBeforeStep[S any](fn BeforeStepHook) Option[S] {
	return func(x *Executor[S]) {
		x.hooks.before = append(x.hooks.before, fn)
	}
}

// WithAfterStep registers an observer invoked with each attempted step's
// ResultEntry. Multiple observers fire in registration order.
func WithAfterStep[S any](fn AfterStepHook) Option[S] {
	return func(x *Executor[S]) {
		x.hooks.after = append(x.hooks.after, fn)
	}
}

// WithLogger sets the executor's structured logger.
// Defaults to slog.Default().
func WithLogger[S any](logger *slog.Logger) Option[S] {
	return func(x *Executor[S]) {
		x.logger = logger
	}
}

// New creates an Executor with the given failure-handling policy.
func New[S any](policy Policy, opts ...Option[S]) *Executor[S] {
	x := &Executor[S]{
		policy: policy,
		clock:  NewClock(),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(x)
	}

	return x
}

// Run executes queued steps in FIFO order against the seed state.
//
// The queue's contents are not mutated, but the queue is drained: every
// step is dequeued at most once. The returned RunResult is always valid
// and readable, including when Run also returns an error.
//
// The returned error is nil for a run with no halting fault (individual
// steps may still have failed under ContinueOnError or a non-halting
// assertion policy; inspect the report). A halting assertion propagates
// as *AssertionError, a halting generic failure as *StepError wrapping
// the cause and the report, and cancellation as the context's error.
func (x *Executor[S]) Run(ctx context.Context, queue *Queue[S], seed S) (*RunResult[S], error) {
	result := &RunResult[S]{
		Report:    NewReport(),
		IO:        []IOEntry[S]{},
		LastState: seed,
	}
	state := seed

	for {
		// Cooperative cancellation check between steps. Whatever was
		// recorded up to this point stays valid and readable.
		if err := ctx.Err(); err != nil {
			x.logger.Info("run cancelled between steps",
				"recorded", len(result.Report.Entries),
				"remaining", queue.Len(),
			)
			return result, fmt.Errorf("run cancelled: %w", err)
		}

		step, ok := queue.Dequeue()
		if !ok {
			return result, nil
		}

		outcome, err := x.runStep(ctx, step, queue, state, result)
		if err != nil {
			return result, err
		}
		state = outcome
	}
}

// runStep executes one step: hook, snapshot, timed execution, single-shot
// recording, failure classification, and policy application.
//
// Returns the state to carry into the next step, or a non-nil error when
// the run must halt.
func (x *Executor[S]) runStep(ctx context.Context, step Step[S], queue *Queue[S], state S, result *RunResult[S]) (S, error) {
	kind := step.Keyword()
	title := step.DisplayTitle()

	// Before-step observers see only metadata, never state.
	x.hooks.fireBefore(StepMeta{
		Kind:       kind,
		Title:      title,
		Phase:      step.Phase,
		Connective: step.Connective,
	})

	// Derive a time-bounded context when a per-step timeout is configured;
	// otherwise the step runs on the caller's context directly.
	stepCtx := ctx
	cancel := func() {}
	if x.policy.StepTimeout > 0 {
		stepCtx, cancel = context.WithTimeout(ctx, x.policy.StepTimeout)
	}
	defer cancel()

	input := state
	started := time.Now()

	// Single-shot recording guard: normal return, assertion failure,
	// generic failure, and cancellation all converge here, and exactly
	// one ResultEntry (plus one IOEntry - this step was attempted) is
	// appended no matter which exit path runs first.
	captured := false
	capture := func(faultErr error, output S) {
		if captured {
			return
		}
		captured = true

		entry := ResultEntry{
			Seq:     x.clock.Next(),
			Kind:    kind,
			Title:   title,
			Elapsed: time.Since(started),
			Err:     faultErr,
		}
		result.Report.Append(entry)
		result.IO = append(result.IO, IOEntry[S]{
			Seq:    entry.Seq,
			Kind:   kind,
			Title:  title,
			Input:  input,
			Output: output,
		})
		x.hooks.fireAfter(entry)
	}

	next, execErr := x.exec(stepCtx, step, state)
	elapsed := time.Since(started)

	switch {
	case execErr == nil:
		capture(nil, next)
		result.LastState = next

		x.logger.Debug("step passed",
			"kind", kind,
			"title", title,
			"elapsed", elapsed,
		)
		return next, nil

	case ctx.Err() != nil && IsCancellation(execErr):
		// Caller's context fired mid-step. The in-flight step still gets
		// its completion bookkeeping, but the entry carries no error
		// from this cause; the cancellation signal itself propagates to
		// the caller regardless of policy.
		capture(nil, input)

		x.logger.Info("run cancelled during step",
			"kind", kind,
			"title", title,
		)
		return state, fmt.Errorf("run cancelled during step %q: %w", title, ctx.Err())

	case errors.Is(stepCtx.Err(), context.DeadlineExceeded) && IsCancellation(execErr):
		// Per-step timeout. The fault is attributable to cancellation,
		// not the step's own logic; continuation follows the generic
		// failure policy.
		timeoutErr := fmt.Errorf("step timed out after %s: %w", x.policy.StepTimeout, execErr)
		capture(timeoutErr, input)

		x.logger.Warn("step timed out",
			"kind", kind,
			"title", title,
			"timeout", x.policy.StepTimeout,
		)
		return x.applyFailurePolicy(step, queue, timeoutErr, state, result)

	case IsAssertionError(execErr):
		capture(execErr, input)

		x.logger.Info("assertion failed",
			"kind", kind,
			"title", title,
			"error", execErr,
		)
		if x.policy.HaltOnFailedAssertion {
			// Rethrow immediately after recording: no further steps, no
			// skip-draining.
			return state, execErr
		}
		// Continue with the previously held state; the failed step
		// produced no new value.
		return state, nil

	default:
		capture(execErr, input)

		x.logger.Info("step failed",
			"kind", kind,
			"title", title,
			"error", execErr,
		)
		return x.applyFailurePolicy(step, queue, execErr, state, result)
	}
}

// exec invokes the step's function, guarding against a step enqueued
// without one.
func (x *Executor[S]) exec(ctx context.Context, step Step[S], state S) (S, error) {
	if step.Func == nil {
		return state, fmt.Errorf("step %q has no function", step.DisplayTitle())
	}
	return step.Func(ctx, state)
}

// applyFailurePolicy decides what a recorded generic failure does to the
// rest of the run: continue with the held state, or halt - optionally
// draining the remaining queue as skipped - and propagate a StepError.
func (x *Executor[S]) applyFailurePolicy(step Step[S], queue *Queue[S], execErr error, state S, result *RunResult[S]) (S, error) {
	if x.policy.ContinueOnError {
		return state, nil
	}

	if x.policy.MarkRemainingAsSkipped {
		x.drainAsSkipped(queue, result)
	}

	return state, &StepError{
		Kind:   step.Keyword(),
		Title:  step.DisplayTitle(),
		Cause:  execErr,
		Report: result.Report,
	}
}

// drainAsSkipped records every still-queued step as a synthetic skipped
// entry, in original queue order: zero elapsed time, a SkippedError
// distinguishable from the halting fault, and no lineage entry.
func (x *Executor[S]) drainAsSkipped(queue *Queue[S], result *RunResult[S]) {
	for {
		step, ok := queue.Dequeue()
		if !ok {
			return
		}

		kind := step.Keyword()
		title := step.DisplayTitle()
		result.Report.Append(ResultEntry{
			Seq:   x.clock.Next(),
			Kind:  kind,
			Title: title,
			Err:   &SkippedError{Kind: kind, Title: title},
		})

		x.logger.Debug("step skipped after halting failure",
			"kind", kind,
			"title", title,
		)
	}
}
