package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/clafer/internal/config"
	"github.com/roach88/clafer/internal/store"
)

// CatalogEntry is the CLI view of a catalogued fixture.
type CatalogEntry struct {
	ID          string `json:"id"`
	Digest      string `json:"digest"`
	Name        string `json:"name"`
	Clafers     int    `json:"clafers"`
	Constraints int    `json:"constraints"`
	Seq         int64  `json:"seq"`
	Created     bool   `json:"created,omitempty"`
	Source      string `json:"source,omitempty"`
}

func catalogEntry(e store.Entry) CatalogEntry {
	return CatalogEntry{
		ID:          e.ID,
		Digest:      e.Digest,
		Name:        e.Name,
		Clafers:     e.Clafers,
		Constraints: e.Constraints,
		Seq:         e.Seq,
	}
}

// NewCatalogCommand creates the catalog command and its subcommands.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Store validated fixtures by digest",
		Long: `Store validated fixtures by digest.

The catalog is a SQLite database (--catalog, default .clafer/catalog.db
under the project root). Each fixture is kept once per digest together
with its canonical script and canonical JSON.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "add <file>...",
		Short:         "Validate fixtures and add them to the catalog",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogAdd(rootOpts, args, cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "List catalogued fixtures",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogList(rootOpts, cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "show <digest|id|name>",
		Short:         "Print a catalogued fixture",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogShow(rootOpts, args[0], cmd)
		},
	})

	return cmd
}

// openCatalog opens the catalog database, creating its directory.
func openCatalog(opts *RootOptions, formatter *OutputFormatter) (*store.Store, error) {
	path := opts.CatalogPath
	if path == "" {
		path = config.DefaultCatalogPath
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return nil, WrapExitError(ExitCommandError, "create catalog directory", err)
		}
	}
	st, err := store.Open(path)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "open catalog", err)
	}
	opts.logger().Debug("catalog opened", "path", path)
	return st, nil
}

func runCatalogAdd(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter, err := opts.formatter(cmd)
	if err != nil {
		return err
	}

	// Validate everything before touching the catalog.
	var loaded []LoadedFixture
	for _, path := range paths {
		lf, err := loadValid(opts, formatter, path)
		if err != nil {
			return err
		}
		loaded = append(loaded, lf)
	}

	st, err := openCatalog(opts, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	added := make([]CatalogEntry, 0, len(loaded))
	for _, lf := range loaded {
		entry, created, err := st.Put(cmd.Context(), lf.Fixture)
		if err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, ErrCodeWriteFailed, err)
		}
		opts.logger().Info("catalogued", "fixture", entry.Name, "digest", entry.Digest, "created", created)
		ce := catalogEntry(entry)
		ce.Created = created
		added = append(added, ce)
	}

	if formatter.Format == "json" {
		return formatter.Success(added)
	}
	for _, e := range added {
		status := "added"
		if !e.Created {
			status = "exists"
		}
		fmt.Fprintf(formatter.Writer, "%s %s %s\n", status, e.Digest, e.Name)
	}
	return nil
}

func runCatalogList(opts *RootOptions, cmd *cobra.Command) error {
	formatter, err := opts.formatter(cmd)
	if err != nil {
		return err
	}
	st, err := openCatalog(opts, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	entries, err := st.List(cmd.Context())
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "list catalog", err)
	}

	out := make([]CatalogEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, catalogEntry(e))
	}
	if formatter.Format == "json" {
		return formatter.Success(out)
	}
	renderCatalog(formatter.Writer, out)
	return nil
}

func renderCatalog(w io.Writer, entries []CatalogEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "(empty catalog)")
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Seq", "Name", "Digest", "Clafers", "Constraints"})
	for _, e := range entries {
		t.AppendRow(table.Row{e.Seq, e.Name, e.Digest, e.Clafers, e.Constraints})
	}
	t.Render()
}

func runCatalogShow(opts *RootOptions, key string, cmd *cobra.Command) error {
	formatter, err := opts.formatter(cmd)
	if err != nil {
		return err
	}
	st, err := openCatalog(opts, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	entry, err := st.Resolve(cmd.Context(), key)
	if errors.Is(err, store.ErrNotFound) {
		msg := fmt.Sprintf("no catalogued fixture matches %q", key)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitFailure, msg)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "show", err)
	}

	if formatter.Format == "json" {
		ce := catalogEntry(entry)
		ce.Source = entry.Source
		return formatter.Success(ce)
	}
	_, err = io.WriteString(formatter.Writer, entry.Source)
	return err
}
