package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/clafer/internal/config"
	"github.com/roach88/clafer/internal/script"
)

// RootOptions holds global flags for all commands. The root command fills
// it from config.Load; commands built on their own use the zero values
// plus whatever the caller sets.
type RootOptions struct {
	Verbose     bool
	Format      string // "json" | "text"
	ConfigFile  string
	CatalogPath string
	LoadMode    string // "collect" | "failfast"
	GoldenDir   string

	Config *config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the clafer CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "clafer",
		Short: "clafer - fixture model toolkit",
		Long: `Build, validate and re-serialize clafer fixtures.

Fixtures declare clafers with cardinalities, containment, inheritance,
references and constraints, plus the scope bounds a solver consumes.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", config.DefaultFormat, "output format (json|text)")
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (default: clafer.yaml, searched upward)")
	flags.StringVar(&opts.CatalogPath, "catalog", "", "path to the fixture catalog database")
	flags.StringVar(&opts.LoadMode, "load-mode", "", "statement error handling (collect|failfast)")
	flags.StringVar(&opts.GoldenDir, "golden-dir", "", "directory holding scenario golden files")

	// Add subcommands
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewFmtCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewCatalogCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// load resolves configuration and sets up logging.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func (o *RootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.ConfigFile, cmd.Root().PersistentFlags())
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return NewExitError(ExitCommandError, err.Error())
	}
	o.Config = cfg
	o.Format = cfg.Format
	o.Verbose = cfg.Verbose
	o.CatalogPath = cfg.CatalogPath
	o.LoadMode = cfg.LoadMode
	o.GoldenDir = cfg.GoldenDir

	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	o.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(o.Logger)

	if cfg.File != "" {
		o.Logger.Debug("config loaded", "file", cfg.File)
	}
	return nil
}

// logger returns the configured logger, or one that discards output.
func (o *RootOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mode returns the script load mode named by LoadMode.
func (o *RootOptions) mode() (script.LoadMode, error) {
	cfg := config.Config{LoadMode: o.LoadMode}
	mode, err := cfg.Mode()
	if err != nil {
		return 0, NewExitError(ExitCommandError, err.Error())
	}
	return mode, nil
}

// formatter builds the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) (*OutputFormatter, error) {
	if !isValidFormat(o.Format) {
		return nil, NewExitError(ExitCommandError,
			fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}, nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return format == "" || slices.Contains(ValidFormats, format)
}
