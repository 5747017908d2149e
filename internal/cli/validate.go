package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JerrettDavis/TinyBDD-sub003/internal/scenario"
)

// ValidationResult holds validation results for one file.
type ValidationResult struct {
	File   string   `json:"file"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario-file-or-dir>...",
		Short: "Validate scenario files without executing them",
		Long: `Validate scenario YAML files without executing them.

Each file is checked twice: against the CUE schema (field types, keyword
literals, unknown fields) and by structural validation (required fields,
connective placement, timeout syntax). All problems are reported; the
command does not stop at the first bad file.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	files, err := findScenarioFiles(args, "")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to collect scenario files", err)
	}
	if len(files) == 0 {
		return NewExitError(ExitCommandError, "no scenario files found")
	}

	results := make([]ValidationResult, 0, len(files))
	anyInvalid := false

	for _, file := range files {
		result := validateFile(file)
		if !result.Valid {
			anyInvalid = true
		}
		results = append(results, result)
	}

	if opts.Format == "json" {
		if err := formatter.Success(results); err != nil {
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
	} else {
		for _, result := range results {
			if result.Valid {
				fmt.Fprintf(formatter.Writer, "ok   %s\n", result.File)
				continue
			}
			fmt.Fprintf(formatter.Writer, "FAIL %s\n", result.File)
			for _, msg := range result.Errors {
				fmt.Fprintf(formatter.Writer, "     %s\n", msg)
			}
		}
	}

	if anyInvalid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}

// validateFile runs both validation layers on one file. Schema and
// structural errors are collected together so a single pass reports
// everything wrong with the file.
func validateFile(path string) ValidationResult {
	result := ValidationResult{File: path, Valid: true}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	if err := scenario.ValidateDocument(data); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
	}

	if _, err := scenario.Parse(data); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
	}

	return result
}
