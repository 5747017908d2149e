package report

import (
	"fmt"
	"io"
	"time"

	"github.com/JerrettDavis/TinyBDD-sub003/internal/pipeline"
)

// Status glyphs for text reports.
const (
	glyphPassed  = "✓"
	glyphFailed  = "✗"
	glyphSkipped = "-"
)

// Render writes a human-readable text report for one run.
//
// Skipped steps print without a duration: they were never attempted, so
// a "0s" would misread as an instant step.
func Render(w io.Writer, scenarioName, runToken string, rep *pipeline.Report) error {
	if _, err := fmt.Fprintf(w, "scenario: %s\n", scenarioName); err != nil {
		return err
	}
	if runToken != "" {
		if _, err := fmt.Fprintf(w, "run:      %s\n", runToken); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	for _, entry := range rep.Entries {
		if err := renderEntry(w, entry); err != nil {
			return err
		}
	}

	passed, failed, skipped := rep.Counts()
	_, err := fmt.Fprintf(w, "\n%d passed, %d failed, %d skipped\n", passed, failed, skipped)
	return err
}

func renderEntry(w io.Writer, entry pipeline.ResultEntry) error {
	switch {
	case entry.Skipped():
		_, err := fmt.Fprintf(w, "  %s %s %s\n", glyphSkipped, entry.Kind, entry.Title)
		return err
	case entry.Passed():
		_, err := fmt.Fprintf(w, "  %s %s %s (%s)\n",
			glyphPassed, entry.Kind, entry.Title, formatElapsed(entry.Elapsed))
		return err
	default:
		if _, err := fmt.Fprintf(w, "  %s %s %s (%s)\n",
			glyphFailed, entry.Kind, entry.Title, formatElapsed(entry.Elapsed)); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "      error: %v\n", entry.Err)
		return err
	}
}

// formatElapsed rounds to keep report lines readable; raw durations
// carry nanosecond noise.
func formatElapsed(d time.Duration) string {
	return d.Round(10 * time.Microsecond).String()
}
