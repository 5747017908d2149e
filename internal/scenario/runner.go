package scenario

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JerrettDavis/TinyBDD-sub003/internal/pipeline"
)

// Runner executes declarative scenarios against the pipeline engine.
//
// Each Run call builds a fresh queue, executor, and state, so a single
// Runner may serve many scenarios (sequentially or concurrently) without
// shared mutable state.
type Runner struct {
	registry *Registry
	tokens   TokenGenerator
	logger   *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRegistry replaces the built-in op registry.
func WithRegistry(r *Registry) RunnerOption {
	return func(rn *Runner) {
		rn.registry = r
	}
}

// WithTokenGenerator replaces the run token generator.
// Tests use a fixed generator for deterministic output.
func WithTokenGenerator(g TokenGenerator) RunnerOption {
	return func(rn *Runner) {
		rn.tokens = g
	}
}

// WithRunnerLogger sets the structured logger passed to executors.
func WithRunnerLogger(l *slog.Logger) RunnerOption {
	return func(rn *Runner) {
		rn.logger = l
	}
}

// NewRunner creates a Runner with the built-in registry and UUIDv7 run
// tokens.
func NewRunner(opts ...RunnerOption) *Runner {
	rn := &Runner{
		registry: NewRegistry(),
		tokens:   UUIDv7Generator{},
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(rn)
	}

	return rn
}

// Outcome is the product of one scenario run.
type Outcome struct {
	// Token correlates this run across report, lineage, and archive.
	Token string

	// Scenario is the scenario name.
	Scenario string

	// Result exposes the run's ledgers and last-held state. Always
	// populated, including for halted runs.
	Result *pipeline.RunResult[State]

	// HaltErr is non-nil when the run halted before draining the queue
	// normally: a rethrown assertion, a StepError, or cancellation.
	HaltErr error
}

// Passed reports overall scenario success: no halt and every recorded
// step passed.
func (o *Outcome) Passed() bool {
	return o.HaltErr == nil && o.Result.Report.Passed()
}

// Run executes a loaded scenario and returns its outcome.
//
// Build problems (unknown op, bad args, bad policy) are returned as an
// error: the scenario never started. Execution failures are not errors
// at this level - they land in Outcome.HaltErr and the report, so the
// caller can render partial results.
func (rn *Runner) Run(ctx context.Context, sc *Scenario) (*Outcome, error) {
	policy, err := sc.BuildPolicy()
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
	}

	queue, err := sc.BuildQueue(rn.registry)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
	}

	token := sc.RunToken
	if token == "" {
		token = rn.tokens.Generate()
	}

	logger := rn.logger.With("scenario", sc.Name, "run_token", token)
	executor := pipeline.New[State](policy, pipeline.WithLogger[State](logger))

	logger.Info("scenario starting", "steps", queue.Len())

	result, haltErr := executor.Run(ctx, queue, sc.SeedState())

	passed, failed, skipped := result.Report.Counts()
	logger.Info("scenario finished",
		"passed", passed,
		"failed", failed,
		"skipped", skipped,
		"halted", haltErr != nil,
	)

	return &Outcome{
		Token:    token,
		Scenario: sc.Name,
		Result:   result,
		HaltErr:  haltErr,
	}, nil
}
