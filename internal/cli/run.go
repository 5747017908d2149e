package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/JerrettDavis/TinyBDD-sub003/internal/archive"
	"github.com/JerrettDavis/TinyBDD-sub003/internal/report"
	"github.com/JerrettDavis/TinyBDD-sub003/internal/scenario"
)

// Error codes reported in JSON output.
const (
	ErrCodeBadPath    = "E001" // path missing or no scenario files found
	ErrCodeParse      = "E002" // malformed or invalid scenario file
	ErrCodeSchema     = "E003" // schema violation
	ErrCodeDatabase   = "E004" // archive database error
	ErrCodeRunFailure = "E005" // scenario failed or halted
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Filter   string

	// TokenGenerator allows overriding the run token generator (for
	// testing). If nil, defaults to UUIDv7.
	TokenGenerator scenario.TokenGenerator
}

// runSummary is the JSON payload for one executed scenario.
type runSummary struct {
	File     string `json:"file"`
	Scenario string `json:"scenario"`
	RunToken string `json:"run_token"`
	Passed   int    `json:"passed"`
	Failed   int    `json:"failed"`
	Skipped  int    `json:"skipped"`
	Halted   bool   `json:"halted"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario-file-or-dir>...",
		Short: "Execute scenario files",
		Long: `Execute declarative scenario YAML files.

Each file is loaded, validated, and executed through the step pipeline.
The per-step result report prints to stdout; with --db, each finished
run is archived with its result ledger and input/output lineage.

Example:
  tinybdd run ./scenarios
  tinybdd run --db ./runs.db --filter 'checkout*' ./scenarios`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite archive database (optional)")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "glob filter on scenario file names")

	return cmd
}

func runScenarios(opts *RunOptions, args []string, cmd *cobra.Command) error {
	logLevel := slog.LevelWarn
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	}))

	files, err := findScenarioFiles(args, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to collect scenario files", err)
	}
	if len(files) == 0 {
		return NewExitError(ExitCommandError, "no scenario files found")
	}

	var store *archive.Store
	if opts.Database != "" {
		store, err = archive.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open archive database", err)
		}
		defer func() {
			if closeErr := store.Close(); closeErr != nil {
				logger.Error("error closing archive database", "error", closeErr)
			}
		}()
	}

	runnerOpts := []scenario.RunnerOption{scenario.WithRunnerLogger(logger)}
	if opts.TokenGenerator != nil {
		runnerOpts = append(runnerOpts, scenario.WithTokenGenerator(opts.TokenGenerator))
	}
	runner := scenario.NewRunner(runnerOpts...)

	// Interrupt cancels the in-flight run; remaining files are not started.
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	summaries := []runSummary{}
	anyFailed := false

	for _, file := range files {
		if ctx.Err() != nil {
			return WrapExitError(ExitFailure, "run interrupted", ctx.Err())
		}

		summary, err := runOneScenario(ctx, runner, store, formatter, file)
		if err != nil {
			return err
		}

		summaries = append(summaries, *summary)
		if summary.Halted || summary.Failed > 0 {
			anyFailed = true
		}
	}

	if opts.Format == "json" {
		if err := formatter.Success(summaries); err != nil {
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
	}

	if anyFailed {
		return NewExitError(ExitFailure, "one or more scenarios failed")
	}
	return nil
}

func runOneScenario(ctx context.Context, runner *scenario.Runner, store *archive.Store, formatter *OutputFormatter, file string) (*runSummary, error) {
	formatter.VerboseLog("loading %s", file)

	sc, err := scenario.Load(file)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to load %s", file), err)
	}

	startedAt := time.Now()
	outcome, err := runner.Run(ctx, sc)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to start %s", file), err)
	}

	if formatter.Format == "text" {
		if err := report.Render(formatter.Writer, outcome.Scenario, outcome.Token, outcome.Result.Report); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to write report", err)
		}
	}

	if store != nil {
		rec, err := archive.FromOutcome(outcome, startedAt)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to build archive record", err)
		}
		if err := store.WriteRun(ctx, rec); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to archive run", err)
		}
		formatter.VerboseLog("archived run %s", outcome.Token)
	}

	// Cancellation propagates: nothing after the interrupted step ran.
	if outcome.HaltErr != nil && ctx.Err() != nil {
		return nil, WrapExitError(ExitFailure, "run interrupted", outcome.HaltErr)
	}

	passed, failed, skipped := outcome.Result.Report.Counts()
	return &runSummary{
		File:     file,
		Scenario: outcome.Scenario,
		RunToken: outcome.Token,
		Passed:   passed,
		Failed:   failed,
		Skipped:  skipped,
		Halted:   outcome.HaltErr != nil,
	}, nil
}

// findScenarioFiles expands file and directory arguments into a sorted,
// de-duplicated list of scenario YAML files. The filter matches against
// base names.
func findScenarioFiles(args []string, filter string) ([]string, error) {
	seen := map[string]bool{}
	files := []string{}

	add := func(path string) error {
		base := filepath.Base(path)
		if filter != "" {
			ok, err := filepath.Match(filter, base)
			if err != nil {
				return fmt.Errorf("bad filter %q: %w", filter, err)
			}
			if !ok {
				return nil
			}
		}
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
		return nil
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			if err := add(arg); err != nil {
				return nil, err
			}
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			ext := filepath.Ext(entry.Name())
			if ext != ".yaml" && ext != ".yml" {
				continue
			}
			if err := add(filepath.Join(arg, entry.Name())); err != nil {
				return nil, err
			}
		}
	}

	sort.Strings(files)
	return files, nil
}
