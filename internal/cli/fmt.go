package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/clafer/internal/compiler"
	"github.com/roach88/clafer/internal/script"
)

// FmtOptions holds flags for the fmt command.
type FmtOptions struct {
	*RootOptions
	Write bool // rewrite files in place
	Check bool // report unformatted files, change nothing
}

// FormattedFile is the fmt output for one file.
type FormattedFile struct {
	File    string `json:"file"`
	Source  string `json:"source,omitempty"`
	Changed bool   `json:"changed"`
}

// NewFmtCommand creates the fmt command.
func NewFmtCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FmtOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fmt <file>...",
		Short: "Print fixtures in canonical script form",
		Long: `Print fixtures in canonical script form.

The output reconstructs an equivalent fixture: scope header first, then
declarations, references and constraints in declaration order, moved
only where a clafer must be declared before it is mentioned. CUE
fixtures are printed as scripts.

Exit codes:
  0 - Formatted (or already formatted with --check)
  1 - Invalid fixture, --check found unformatted files, or --write
      would drop comments
  2 - Command error`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFmt(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVarP(&opts.Write, "write", "w", false, "write result to the source file")
	cmd.Flags().BoolVar(&opts.Check, "check", false, "exit 1 if any file is not formatted")
	cmd.MarkFlagsMutuallyExclusive("write", "check")

	return cmd
}

func runFmt(opts *FmtOptions, paths []string, cmd *cobra.Command) error {
	formatter, err := opts.formatter(cmd)
	if err != nil {
		return err
	}
	if opts.Write || opts.Check {
		for _, path := range paths {
			if filepath.Ext(path) == compiler.ExtCUE {
				msg := fmt.Sprintf("%s: --write and --check apply to scripts only", path)
				_ = formatter.Error(ErrCodeGeneric, msg, nil)
				return NewExitError(ExitCommandError, msg)
			}
		}
	}

	var out []FormattedFile
	var sources [][]byte
	var unformatted, commented []string
	for _, path := range paths {
		loaded, err := loadValid(opts.RootOptions, formatter, path)
		if err != nil {
			return err
		}
		src, err := script.Format(loaded.Fixture)
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitFailure, path, err)
		}

		ff := FormattedFile{File: path, Source: string(src)}
		if filepath.Ext(path) == compiler.ExtScript {
			orig, err := os.ReadFile(path)
			if err != nil {
				return WrapExitError(ExitCommandError, path, err)
			}
			ff.Changed = !bytes.Equal(orig, src)
			if ff.Changed && script.HasComments(string(orig)) {
				commented = append(commented, path)
				opts.logger().Warn("formatting drops comments", "file", path)
			}
		}
		if ff.Changed && opts.Check {
			unformatted = append(unformatted, path)
		}
		if opts.Check || opts.Write {
			ff.Source = ""
		}
		out = append(out, ff)
		sources = append(sources, src)
	}

	// No file is written while any would lose comments.
	if opts.Write && len(commented) > 0 {
		msg := fmt.Sprintf("%s: contains comments that formatting would drop", strings.Join(commented, ", "))
		_ = formatter.Error(ErrCodeComments, msg, map[string][]string{"files": commented})
		return NewExitError(ExitFailure, msg)
	}
	if opts.Write {
		for i, ff := range out {
			if !ff.Changed {
				continue
			}
			if err := os.WriteFile(ff.File, sources[i], 0o644); err != nil {
				_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
				return WrapExitError(ExitCommandError, ErrCodeWriteFailed, err)
			}
			opts.logger().Info("formatted", "file", ff.File)
		}
	}

	if formatter.Format == "json" {
		if len(unformatted) > 0 {
			if err := formatter.Failure(ErrCodeGeneric, fmt.Sprintf("%d file(s) not formatted", len(unformatted)), out); err != nil {
				return err
			}
			return NewExitError(ExitFailure, fmt.Sprintf("%d file(s) not formatted", len(unformatted)))
		}
		return formatter.Success(out)
	}

	w := formatter.Writer
	switch {
	case opts.Check:
		for _, path := range unformatted {
			fmt.Fprintln(w, path)
		}
		if len(unformatted) > 0 {
			return NewExitError(ExitFailure, fmt.Sprintf("%d file(s) not formatted", len(unformatted)))
		}
	case opts.Write:
		for _, ff := range out {
			if ff.Changed {
				fmt.Fprintln(w, ff.File)
			}
		}
	default:
		for i, ff := range out {
			if len(out) > 1 {
				if i > 0 {
					fmt.Fprintln(w)
				}
				fmt.Fprintf(w, "// %s\n", ff.File)
			}
			fmt.Fprint(w, ff.Source)
		}
	}
	return nil
}
