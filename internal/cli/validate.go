package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/clafer/internal/compiler"
)

// FileResult holds validation results for one fixture file.
type FileResult struct {
	File    string                     `json:"file"`
	Fixture string                     `json:"fixture,omitempty"`
	Valid   bool                       `json:"valid"`
	Errors  []compiler.ValidationError `json:"errors,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool         `json:"valid"`
	Files []FileResult `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <path>...",
		Short: "Validate fixtures",
		Long: `Validate fixture scripts (.js) and CUE fixtures (.cue).

Every problem is reported in one pass: statement errors found while
loading, then unresolved names, cycles, cardinality and scope errors
and unbound constraint variables. Directories are searched recursively.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter, err := opts.formatter(cmd)
	if err != nil {
		return err
	}
	mode, err := opts.mode()
	if err != nil {
		return err
	}
	log := opts.logger()

	files, err := CollectFixtureFiles(paths)
	if err != nil {
		return loadErrorExit(formatter, err)
	}
	formatter.VerboseLog("Found %d fixture file(s)", len(files))

	result := ValidationResult{Valid: true, Files: make([]FileResult, 0, len(files))}
	total := 0
	for _, file := range files {
		loaded := LoadFixture(file, mode)
		fr := FileResult{File: file, Valid: loaded.Valid(), Errors: loaded.Errors}
		if loaded.Fixture != nil {
			fr.Fixture = loaded.Fixture.Name
		}
		log.Debug("validated fixture", "file", file, "errors", len(loaded.Errors))

		result.Files = append(result.Files, fr)
		result.Valid = result.Valid && fr.Valid
		total += len(fr.Errors)
	}

	if result.Valid {
		return outputValidateSuccess(formatter, result)
	}
	return outputValidationErrors(formatter, result, total)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	for _, f := range result.Files {
		formatter.VerboseLog("✓ %s", f.File)
	}
	fmt.Fprintf(formatter.Writer, "✓ All fixtures valid (%d file(s))\n", len(result.Files))
	return nil
}

// outputValidationErrors outputs every error of every invalid file.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult, total int) error {
	if formatter.Format == "json" {
		first := firstError(result)
		if err := formatter.Failure(first.Code, first.Message, result); err != nil {
			return err
		}
		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", total))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	for _, f := range result.Files {
		if f.Valid {
			continue
		}
		fmt.Fprintln(formatter.Writer)
		fmt.Fprintln(formatter.Writer, f.File)
		for _, err := range f.Errors {
			if err.Line > 0 {
				fmt.Fprintf(formatter.Writer, "  line %d: %s: %s: %s\n", err.Line, err.Code, err.Field, err.Message)
			} else {
				fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n", err.Code, err.Field, err.Message)
			}
		}
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", total))
}

func firstError(result ValidationResult) compiler.ValidationError {
	for _, f := range result.Files {
		if len(f.Errors) > 0 {
			return f.Errors[0]
		}
	}
	return compiler.ValidationError{Code: ErrCodeGeneric, Message: "validation failed"}
}

// loadValid loads a single fixture and fails with the validation report
// unless it is valid. Used by commands that need a well-formed fixture.
func loadValid(opts *RootOptions, formatter *OutputFormatter, path string) (LoadedFixture, error) {
	mode, err := opts.mode()
	if err != nil {
		return LoadedFixture{}, err
	}
	loaded := LoadFixture(path, mode)
	if loaded.Valid() {
		return loaded, nil
	}
	if len(loaded.Errors) == 1 && loaded.Errors[0].Code == ErrCodeNotFound {
		_ = formatter.Error(ErrCodeNotFound, loaded.Errors[0].Message, nil)
		return loaded, NewExitError(ExitCommandError, loaded.Errors[0].Message)
	}
	result := ValidationResult{Files: []FileResult{{File: path, Errors: loaded.Errors}}}
	return loaded, outputValidationErrors(formatter, result, len(loaded.Errors))
}
