package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// discardLogger suppresses executor logs in tests.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newExecutor builds an int-state executor with logs discarded.
func newExecutor(policy Policy, opts ...Option[int]) *Executor[int] {
	opts = append(opts, WithLogger[int](discardLogger()))
	return New[int](policy, opts...)
}

// enqueue is a shorthand for building a primary step.
func enqueue(q *Queue[int], phase Phase, conn Connective, title string, fn Func[int]) {
	q.Enqueue(Step[int]{Phase: phase, Connective: conn, Title: title, Func: fn})
}

func TestRun_AllStepsPass(t *testing.T) {
	// Given "seed" -> 1, When "add one" -> x+1, Then "equals two" -> x==2
	q := NewQueue[int]()
	enqueue(q, PhaseGiven, ConnPrimary, "seed", func(_ context.Context, _ int) (int, error) {
		return 1, nil
	})
	enqueue(q, PhaseWhen, ConnPrimary, "add one", func(_ context.Context, x int) (int, error) {
		return x + 1, nil
	})
	enqueue(q, PhaseThen, ConnPrimary, "equals two", func(_ context.Context, x int) (int, error) {
		if x != 2 {
			return x, NewAssertionError("expected 2, got %d", x)
		}
		return x, nil
	})

	x := newExecutor(Policy{HaltOnFailedAssertion: true})
	result, err := x.Run(context.Background(), q, 0)
	require.NoError(t, err)

	require.Len(t, result.Report.Entries, 3)
	for _, e := range result.Report.Entries {
		assert.True(t, e.Passed(), "entry %q should pass", e.Title)
	}
	assert.Len(t, result.IO, 3)
	assert.Equal(t, 2, result.LastState)
	assert.Equal(t, []string{"Given", "When", "Then"}, recordedKinds(result.Report))
}

func TestRun_GenericFault_HaltWithoutDrain(t *testing.T) {
	// Given -> 1, When "boom" -> fails, Then "unreached" never recorded.
	boom := errors.New("boom")
	reached := false

	q := NewQueue[int]()
	enqueue(q, PhaseGiven, ConnPrimary, "seed", func(_ context.Context, _ int) (int, error) {
		return 1, nil
	})
	enqueue(q, PhaseWhen, ConnPrimary, "boom", func(_ context.Context, x int) (int, error) {
		return x, boom
	})
	enqueue(q, PhaseThen, ConnPrimary, "unreached", func(_ context.Context, x int) (int, error) {
		reached = true
		return x, nil
	})

	x := newExecutor(Policy{ContinueOnError: false, MarkRemainingAsSkipped: false})
	result, err := x.Run(context.Background(), q, 0)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.ErrorIs(t, stepErr, boom, "StepError should wrap the original cause")
	assert.Equal(t, "When", stepErr.Kind)
	assert.Equal(t, "boom", stepErr.Title)
	assert.Same(t, result.Report, stepErr.Report, "StepError should carry the run's ledger")

	require.Len(t, result.Report.Entries, 2)
	assert.True(t, result.Report.Entries[0].Passed())
	assert.False(t, result.Report.Entries[1].Passed())
	assert.False(t, reached, "step after the halting fault must not run")
}

func TestRun_GenericFault_SkipDrain(t *testing.T) {
	boom := errors.New("boom")

	q := NewQueue[int]()
	enqueue(q, PhaseGiven, ConnPrimary, "seed", func(_ context.Context, _ int) (int, error) {
		return 1, nil
	})
	enqueue(q, PhaseWhen, ConnPrimary, "boom", func(_ context.Context, x int) (int, error) {
		return x, boom
	})
	enqueue(q, PhaseThen, ConnPrimary, "unreached", func(_ context.Context, x int) (int, error) {
		return x, nil
	})

	x := newExecutor(Policy{ContinueOnError: false, MarkRemainingAsSkipped: true})
	result, err := x.Run(context.Background(), q, 0)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)

	require.Len(t, result.Report.Entries, 3)
	third := result.Report.Entries[2]
	assert.True(t, third.Skipped(), "drained step should carry a SkippedError")
	assert.NotErrorIs(t, third.Err, boom, "synthetic skip fault must be distinguishable from the halting fault")
	assert.Zero(t, third.Elapsed, "skip-drained entries have zero elapsed time")

	// Skipped steps get no lineage.
	assert.Len(t, result.IO, 2)
	assert.Equal(t, 0, q.Len(), "queue fully drained")
}

func TestRun_SkipDrain_PreservesQueueOrder(t *testing.T) {
	q := NewQueue[int]()
	enqueue(q, PhaseGiven, ConnPrimary, "boom", func(_ context.Context, x int) (int, error) {
		return x, errors.New("boom")
	})
	for _, title := range []string{"s1", "s2", "s3"} {
		enqueue(q, PhaseThen, ConnPrimary, title, func(_ context.Context, x int) (int, error) {
			return x, nil
		})
	}

	x := newExecutor(Policy{MarkRemainingAsSkipped: true})
	result, err := x.Run(context.Background(), q, 0)
	require.Error(t, err)

	require.Len(t, result.Report.Entries, 4)
	assert.Equal(t, "s1", result.Report.Entries[1].Title)
	assert.Equal(t, "s2", result.Report.Entries[2].Title)
	assert.Equal(t, "s3", result.Report.Entries[3].Title)
}

func TestRun_ConnectiveKeywords(t *testing.T) {
	// Given -> 5, When "double", Then ">=10", And "<=20", But "!=11".
	q := NewQueue[int]()
	enqueue(q, PhaseGiven, ConnPrimary, "seed", func(_ context.Context, _ int) (int, error) {
		return 5, nil
	})
	enqueue(q, PhaseWhen, ConnPrimary, "double", func(ctx context.Context, x int) (int, error) {
		// Simulate asynchronous work that honors the context.
		select {
		case <-time.After(10 * time.Millisecond):
			return x * 2, nil
		case <-ctx.Done():
			return x, ctx.Err()
		}
	})
	enqueue(q, PhaseThen, ConnPrimary, ">=10", func(_ context.Context, x int) (int, error) {
		if x < 10 {
			return x, NewAssertionError("expected >=10, got %d", x)
		}
		return x, nil
	})
	enqueue(q, PhaseThen, ConnAnd, "<=20", func(_ context.Context, x int) (int, error) {
		if x > 20 {
			return x, NewAssertionError("expected <=20, got %d", x)
		}
		return x, nil
	})
	enqueue(q, PhaseThen, ConnBut, "!=11", func(_ context.Context, x int) (int, error) {
		if x == 11 {
			return x, NewAssertionError("expected !=11")
		}
		return x, nil
	})

	x := newExecutor(Policy{HaltOnFailedAssertion: true})
	result, err := x.Run(context.Background(), q, 0)
	require.NoError(t, err)

	require.Len(t, result.Report.Entries, 5)
	assert.Equal(t, []string{"Given", "When", "Then", "And", "But"}, recordedKinds(result.Report))
	assert.True(t, result.Report.Passed())
	assert.Equal(t, 10, result.LastState)
}

func TestRun_ContinueOnError_ReachesEndWithHeldState(t *testing.T) {
	boom := errors.New("boom")
	var observed []int

	q := NewQueue[int]()
	enqueue(q, PhaseGiven, ConnPrimary, "seed", func(_ context.Context, _ int) (int, error) {
		return 7, nil
	})
	enqueue(q, PhaseWhen, ConnPrimary, "boom", func(_ context.Context, x int) (int, error) {
		return 999, boom // Returned state must be discarded on failure.
	})
	enqueue(q, PhaseThen, ConnPrimary, "observe", func(_ context.Context, x int) (int, error) {
		observed = append(observed, x)
		return x, nil
	})

	x := newExecutor(Policy{ContinueOnError: true})
	result, err := x.Run(context.Background(), q, 0)
	require.NoError(t, err, "continue-on-error runs never halt on generic faults")

	require.Len(t, result.Report.Entries, 3)
	assert.False(t, result.Report.Entries[1].Passed())
	assert.Equal(t, []int{7}, observed, "step after the fault receives the pre-fault state")

	// The faulting step's lineage shows no state change.
	require.Len(t, result.IO, 3)
	assert.Equal(t, result.IO[1].Input, result.IO[1].Output)
	assert.Equal(t, 7, result.LastState)
}

func TestRun_AssertionFault_Halt(t *testing.T) {
	q := NewQueue[int]()
	enqueue(q, PhaseGiven, ConnPrimary, "seed", func(_ context.Context, _ int) (int, error) {
		return 1, nil
	})
	enqueue(q, PhaseThen, ConnPrimary, "never two", func(_ context.Context, x int) (int, error) {
		return x, NewAssertionError("expected 2, got %d", x)
	})
	enqueue(q, PhaseThen, ConnAnd, "unreached", func(_ context.Context, x int) (int, error) {
		return x, nil
	})

	// MarkRemainingAsSkipped must not apply to assertion halts: the
	// assertion rethrows immediately, without draining.
	x := newExecutor(Policy{HaltOnFailedAssertion: true, MarkRemainingAsSkipped: true})
	result, err := x.Run(context.Background(), q, 0)

	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	require.Len(t, result.Report.Entries, 2, "no skip-draining on assertion halt")
	assert.False(t, result.Report.Entries[1].Passed())
	assert.Equal(t, 1, result.LastState)
}

func TestRun_AssertionFault_Continue(t *testing.T) {
	var observed []int

	q := NewQueue[int]()
	enqueue(q, PhaseGiven, ConnPrimary, "seed", func(_ context.Context, _ int) (int, error) {
		return 1, nil
	})
	enqueue(q, PhaseThen, ConnPrimary, "never two", func(_ context.Context, x int) (int, error) {
		return x, NewAssertionError("expected 2, got %d", x)
	})
	enqueue(q, PhaseThen, ConnAnd, "observe", func(_ context.Context, x int) (int, error) {
		observed = append(observed, x)
		return x, nil
	})

	x := newExecutor(Policy{HaltOnFailedAssertion: false})
	result, err := x.Run(context.Background(), q, 0)
	require.NoError(t, err)

	require.Len(t, result.Report.Entries, 3)
	assert.False(t, result.Report.Entries[1].Passed())
	assert.True(t, IsAssertionError(result.Report.Entries[1].Err))
	assert.Equal(t, []int{1}, observed, "loop continues with the previously held state")
}

func TestRun_StepTimeout_RecordedAsCancellation(t *testing.T) {
	q := NewQueue[int]()
	enqueue(q, PhaseWhen, ConnPrimary, "stall", func(ctx context.Context, x int) (int, error) {
		select {
		case <-time.After(5 * time.Second):
			return x, nil
		case <-ctx.Done():
			return x, ctx.Err()
		}
	})
	enqueue(q, PhaseThen, ConnPrimary, "after stall", func(_ context.Context, x int) (int, error) {
		return x + 1, nil
	})

	x := newExecutor(Policy{ContinueOnError: true, StepTimeout: 20 * time.Millisecond})
	result, err := x.Run(context.Background(), q, 0)
	require.NoError(t, err, "per policy execution may continue after a timeout")

	require.Len(t, result.Report.Entries, 2)
	stalled := result.Report.Entries[0]
	assert.False(t, stalled.Passed())
	assert.True(t, IsCancellation(stalled.Err), "timeout fault must be attributable to cancellation")
	assert.True(t, result.Report.Entries[1].Passed(), "caller's own context still live, loop continues")
}

func TestRun_StepTimeout_HaltWrapsStepError(t *testing.T) {
	q := NewQueue[int]()
	enqueue(q, PhaseWhen, ConnPrimary, "stall", func(ctx context.Context, x int) (int, error) {
		<-ctx.Done()
		return x, ctx.Err()
	})

	x := newExecutor(Policy{ContinueOnError: false, StepTimeout: 10 * time.Millisecond})
	_, err := x.Run(context.Background(), q, 0)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.True(t, IsCancellation(err), "cause remains attributable to the deadline")
}

func TestRun_ExternalCancellation_BeforeAnyStep(t *testing.T) {
	q := NewQueue[int]()
	enqueue(q, PhaseGiven, ConnPrimary, "seed", func(_ context.Context, x int) (int, error) {
		return 1, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	x := newExecutor(Policy{})
	result, err := x.Run(ctx, q, 0)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, result.Report.Entries, "ledger as-is: nothing was attempted")
}

func TestRun_ExternalCancellation_MidStep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	q := NewQueue[int]()
	enqueue(q, PhaseGiven, ConnPrimary, "seed", func(_ context.Context, _ int) (int, error) {
		return 1, nil
	})
	enqueue(q, PhaseWhen, ConnPrimary, "interrupted", func(stepCtx context.Context, x int) (int, error) {
		cancel()
		<-stepCtx.Done()
		return x, stepCtx.Err()
	})
	enqueue(q, PhaseThen, ConnPrimary, "unreached", func(_ context.Context, x int) (int, error) {
		return x, nil
	})

	// Cancellation always propagates, regardless of policy.
	x := newExecutor(Policy{ContinueOnError: true})
	result, err := x.Run(ctx, q, 0)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	// The in-flight step still got its completion bookkeeping, but the
	// entry carries no error from the cancellation.
	require.Len(t, result.Report.Entries, 2)
	interrupted := result.Report.Entries[1]
	assert.NoError(t, interrupted.Err)
	assert.Equal(t, 1, result.LastState, "no new value committed by the interrupted step")
}

func TestRun_BlankTitle_FallsBackToPhase(t *testing.T) {
	q := NewQueue[int]()
	enqueue(q, PhaseGiven, ConnPrimary, "", func(_ context.Context, x int) (int, error) {
		return 1, nil
	})
	enqueue(q, PhaseWhen, ConnPrimary, "   ", func(_ context.Context, x int) (int, error) {
		return x, nil
	})

	x := newExecutor(Policy{})
	result, err := x.Run(context.Background(), q, 0)
	require.NoError(t, err)

	require.Len(t, result.Report.Entries, 2)
	assert.Equal(t, "Given", result.Report.Entries[0].Title)
	assert.Equal(t, "When", result.Report.Entries[1].Title)
}

func TestRun_ExactlyOneEntryPerStep(t *testing.T) {
	// Success, assertion fault, and generic fault paths must each record
	// exactly once; the after hook counts recordings.
	recorded := map[string]int{}

	q := NewQueue[int]()
	enqueue(q, PhaseGiven, ConnPrimary, "ok", func(_ context.Context, x int) (int, error) {
		return x, nil
	})
	enqueue(q, PhaseThen, ConnPrimary, "assert", func(_ context.Context, x int) (int, error) {
		return x, NewAssertionError("nope")
	})
	enqueue(q, PhaseWhen, ConnPrimary, "fault", func(_ context.Context, x int) (int, error) {
		return x, errors.New("boom")
	})

	x := newExecutor(Policy{ContinueOnError: true, HaltOnFailedAssertion: false},
		WithAfterStep[int](func(e ResultEntry) {
			recorded[e.Title]++
		}),
	)
	result, err := x.Run(context.Background(), q, 0)
	require.NoError(t, err)

	require.Len(t, result.Report.Entries, 3)
	assert.Equal(t, map[string]int{"ok": 1, "assert": 1, "fault": 1}, recorded)
}

func TestRun_Hooks_BeforeSeesMetadataOnly(t *testing.T) {
	var metas []StepMeta
	var entries []ResultEntry

	q := NewQueue[int]()
	enqueue(q, PhaseGiven, ConnPrimary, "seed", func(_ context.Context, _ int) (int, error) {
		return 1, nil
	})
	enqueue(q, PhaseGiven, ConnAnd, "more", func(_ context.Context, x int) (int, error) {
		return x + 1, nil
	})

	x := newExecutor(Policy{},
		WithBeforeStep[int](func(m StepMeta) { metas = append(metas, m) }),
		WithAfterStep[int](func(e ResultEntry) { entries = append(entries, e) }),
	)
	_, err := x.Run(context.Background(), q, 0)
	require.NoError(t, err)

	require.Len(t, metas, 2)
	assert.Equal(t, StepMeta{Kind: "Given", Title: "seed", Phase: PhaseGiven, Connective: ConnPrimary}, metas[0])
	assert.Equal(t, StepMeta{Kind: "And", Title: "more", Phase: PhaseGiven, Connective: ConnAnd}, metas[1])

	require.Len(t, entries, 2)
	assert.True(t, entries[0].Passed())
}

func TestRun_NoHooks_NoObserverCost(t *testing.T) {
	q := NewQueue[int]()
	enqueue(q, PhaseGiven, ConnPrimary, "seed", func(_ context.Context, _ int) (int, error) {
		return 1, nil
	})

	// Zero observers is a zero-length list; Run must simply not invoke
	// anything.
	x := newExecutor(Policy{})
	result, err := x.Run(context.Background(), q, 0)
	require.NoError(t, err)
	assert.Len(t, result.Report.Entries, 1)
}

func TestRun_NilStepFunc_IsGenericFault(t *testing.T) {
	q := NewQueue[int]()
	q.Enqueue(Step[int]{Phase: PhaseWhen, Connective: ConnPrimary, Title: "empty"})

	x := newExecutor(Policy{})
	result, err := x.Run(context.Background(), q, 0)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	require.Len(t, result.Report.Entries, 1)
	assert.False(t, result.Report.Entries[0].Passed())
}

func TestRun_SeqStrictlyIncreasing(t *testing.T) {
	q := NewQueue[int]()
	for i := 0; i < 5; i++ {
		title := fmt.Sprintf("step-%d", i)
		enqueue(q, PhaseWhen, ConnPrimary, title, func(_ context.Context, x int) (int, error) {
			return x + 1, nil
		})
	}

	x := newExecutor(Policy{})
	result, err := x.Run(context.Background(), q, 0)
	require.NoError(t, err)

	var last int64
	for _, e := range result.Report.Entries {
		assert.Greater(t, e.Seq, last)
		last = e.Seq
	}
}

func TestRun_LastStateTracksLatestSuccess(t *testing.T) {
	q := NewQueue[int]()
	enqueue(q, PhaseGiven, ConnPrimary, "one", func(_ context.Context, _ int) (int, error) {
		return 1, nil
	})
	enqueue(q, PhaseWhen, ConnPrimary, "boom", func(_ context.Context, x int) (int, error) {
		return 42, errors.New("boom")
	})

	x := newExecutor(Policy{ContinueOnError: true})
	result, err := x.Run(context.Background(), q, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, result.LastState, "last-held value equals the latest successful output")
}

// recordedKinds extracts the resolved keywords from a report in order.
func recordedKinds(r *Report) []string {
	kinds := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		kinds[i] = e.Kind
	}
	return kinds
}
