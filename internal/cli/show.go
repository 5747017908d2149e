package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JerrettDavis/TinyBDD-sub003/internal/archive"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database string
	IO       bool
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show [run-token]",
		Short: "Show archived runs",
		Long: `Show archived runs from a run database.

Without a token, lists all archived runs newest first. With a token,
prints the run's result ledger; add --io for the input/output lineage.

Example:
  tinybdd show --db ./runs.db
  tinybdd show --db ./runs.db 0198b2e3-... --io`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite archive database (required)")
	cmd.Flags().BoolVar(&opts.IO, "io", false, "include input/output lineage")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runShow(opts *ShowOptions, args []string, cmd *cobra.Command) error {
	store, err := archive.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open archive database", err)
	}
	defer store.Close()

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	ctx := cmd.Context()

	if len(args) == 0 {
		return showRunList(ctx, store, formatter)
	}
	return showRun(ctx, store, formatter, opts.IO, args[0])
}

func showRunList(ctx context.Context, store *archive.Store, formatter *OutputFormatter) error {
	summaries, err := store.ListRuns(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	if formatter.Format == "json" {
		payload := make([]map[string]any, 0, len(summaries))
		for _, sum := range summaries {
			payload = append(payload, map[string]any{
				"token":      sum.Token,
				"scenario":   sum.Scenario,
				"started_at": sum.StartedAt.Format(time.RFC3339Nano),
				"halted":     sum.Halted,
				"passed":     sum.Passed,
				"failed":     sum.Failed,
				"skipped":    sum.Skipped,
			})
		}
		return formatter.Success(payload)
	}

	if len(summaries) == 0 {
		fmt.Fprintln(formatter.Writer, "no archived runs")
		return nil
	}

	for _, sum := range summaries {
		status := "passed"
		if sum.Halted || sum.Failed > 0 {
			status = "failed"
		}
		fmt.Fprintf(formatter.Writer, "%s  %-10s %s (%d passed, %d failed, %d skipped)\n",
			sum.Token, status, sum.Scenario, sum.Passed, sum.Failed, sum.Skipped)
	}
	return nil
}

func showRun(ctx context.Context, store *archive.Store, formatter *OutputFormatter, withIO bool, token string) error {
	rec, err := store.ReadRun(ctx, token)
	if err != nil {
		if errors.Is(err, archive.ErrRunNotFound) {
			return WrapExitError(ExitCommandError, "run not found", err)
		}
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	if formatter.Format == "json" {
		// The archived snapshot is already canonical JSON; re-emit it
		// verbatim inside the response.
		payload := map[string]any{
			"token":      rec.Token,
			"scenario":   rec.Scenario,
			"started_at": rec.StartedAt.Format(time.RFC3339Nano),
			"halted":     rec.Halted,
			"snapshot":   json.RawMessage(rec.Snapshot),
		}
		if withIO {
			payload["io"] = rec.IO
		}
		return formatter.Success(payload)
	}

	fmt.Fprintf(formatter.Writer, "scenario: %s\n", rec.Scenario)
	fmt.Fprintf(formatter.Writer, "run:      %s\n", rec.Token)
	fmt.Fprintf(formatter.Writer, "started:  %s\n\n", rec.StartedAt.Format(time.RFC3339))

	for _, step := range rec.Steps {
		glyph := glyphPassedText
		switch step.Status {
		case "failed":
			glyph = glyphFailedText
		case "skipped":
			glyph = glyphSkippedText
		}
		fmt.Fprintf(formatter.Writer, "  %s %s %s\n", glyph, step.Kind, step.Title)
		if step.Error != "" {
			fmt.Fprintf(formatter.Writer, "      error: %s\n", step.Error)
		}
	}

	fmt.Fprintf(formatter.Writer, "\n%d passed, %d failed, %d skipped\n", rec.Passed, rec.Failed, rec.Skipped)

	if withIO {
		fmt.Fprintln(formatter.Writer, "\nlineage:")
		for _, io := range rec.IO {
			fmt.Fprintf(formatter.Writer, "  [%d] %s %s\n", io.Seq, io.Kind, io.Title)
			fmt.Fprintf(formatter.Writer, "      in:  %s\n", io.Input)
			fmt.Fprintf(formatter.Writer, "      out: %s\n", io.Output)
		}
	}

	return nil
}

// Status glyphs reused by show's text output.
const (
	glyphPassedText  = "✓"
	glyphFailedText  = "✗"
	glyphSkippedText = "-"
)
