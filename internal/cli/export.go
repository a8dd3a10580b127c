package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/clafer/internal/ir"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	As     string // "json" | "yaml"
	Output string // file to write instead of stdout
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export a fixture as canonical JSON or YAML",
		Long: `Export a validated fixture as data.

JSON output is RFC 8785 canonical JSON: the same bytes the fixture
digest is computed over, plus the fixture name and digest.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", "json", "document format (json|yaml)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write to file instead of stdout")

	return cmd
}

func runExport(opts *ExportOptions, path string, cmd *cobra.Command) error {
	formatter, err := opts.formatter(cmd)
	if err != nil {
		return err
	}
	if opts.As != "json" && opts.As != "yaml" {
		msg := fmt.Sprintf("invalid --as %q: must be json or yaml", opts.As)
		_ = formatter.Error(ErrCodeGeneric, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	loaded, err := loadValid(opts.RootOptions, formatter, path)
	if err != nil {
		return err
	}
	data, err := exportDocument(loaded.Fixture, opts.As)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "export", err)
	}

	if opts.Output == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(opts.Output, data, 0o644); err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeWriteFailed, err)
	}
	formatter.VerboseLog("wrote %s", opts.Output)
	return nil
}

// exportDocument renders the fixture's canonical map with its name and digest.
func exportDocument(f *ir.Fixture, as string) ([]byte, error) {
	digest, err := ir.FixtureDigest(f)
	if err != nil {
		return nil, err
	}
	doc := ir.CanonicalMap(f)
	doc["name"] = f.Name
	doc["digest"] = digest

	if as == "yaml" {
		return yaml.Marshal(doc)
	}
	data, err := ir.MarshalCanonical(doc)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
