package cli

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/clafer/internal/ir"
)

// ClaferInfo is one row of the inspect table.
type ClaferInfo struct {
	Name      string `json:"name"`
	Abstract  bool   `json:"abstract"`
	Card      string `json:"card"`
	Parent    string `json:"parent,omitempty"`
	Super     string `json:"super,omitempty"`
	Ref       string `json:"ref,omitempty"`
	RefUnique bool   `json:"ref_unique,omitempty"`
	Scope     int    `json:"scope"`
}

// InspectResult summarizes a validated fixture.
type InspectResult struct {
	File        string       `json:"file"`
	Fixture     string       `json:"fixture"`
	Digest      string       `json:"digest"`
	Clafers     []ClaferInfo `json:"clafers"`
	Constraints int          `json:"constraints"`
	Statements  int          `json:"statements"`
	Scope       ir.Scope     `json:"scope"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "inspect <file>",
		Short:         "Show the clafers, scopes and digest of a fixture",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts, args[0], cmd)
		},
	}
}

func runInspect(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter, err := opts.formatter(cmd)
	if err != nil {
		return err
	}
	loaded, err := loadValid(opts, formatter, path)
	if err != nil {
		return err
	}

	result, err := inspectFixture(path, loaded.Fixture)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "inspect", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	renderInspect(formatter.Writer, result)
	return nil
}

func inspectFixture(path string, f *ir.Fixture) (InspectResult, error) {
	digest, err := ir.FixtureDigest(f)
	if err != nil {
		return InspectResult{}, err
	}
	result := InspectResult{
		File:        path,
		Fixture:     f.Name,
		Digest:      digest,
		Clafers:     make([]ClaferInfo, 0, len(f.Order)),
		Constraints: f.ConstraintCount(),
		Statements:  len(f.Statements),
		Scope:       f.Scope,
	}
	for _, c := range f.ClafersInOrder() {
		scope, err := f.ScopeOf(c.Name)
		if err != nil {
			return InspectResult{}, err
		}
		info := ClaferInfo{
			Name:     c.Name,
			Abstract: c.Abstract,
			Card:     c.Card.String(),
			Parent:   c.Parent,
			Super:    c.Super,
			Scope:    scope,
		}
		if c.Ref != nil {
			info.Ref = c.Ref.Target
			info.RefUnique = c.Ref.Unique
		}
		result.Clafers = append(result.Clafers, info)
	}
	return result, nil
}

func renderInspect(w io.Writer, r InspectResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Clafer", "Abstract", "Card", "Parent", "Super", "Ref", "Scope"})
	for _, c := range r.Clafers {
		ref := c.Ref
		if c.RefUnique {
			ref += " (unique)"
		}
		abstract := ""
		if c.Abstract {
			abstract = "yes"
		}
		t.AppendRow(table.Row{c.Name, abstract, c.Card, c.Parent, c.Super, ref, c.Scope})
	}
	t.Render()

	fmt.Fprintf(w, "%s: %d clafer(s), %d constraint(s), %d statement(s)\n",
		r.Fixture, len(r.Clafers), r.Constraints, r.Statements)
	fmt.Fprintf(w, "int range %d..%d, string length %d\n",
		r.Scope.IntLow, r.Scope.IntHigh, r.Scope.StringLength)
	fmt.Fprintf(w, "digest %s\n", r.Digest)
}
