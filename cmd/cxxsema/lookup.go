package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"cxxsema/internal/driver"
	"cxxsema/internal/encoding"
	"cxxsema/internal/store"
	"cxxsema/internal/symbols"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup [flags] <name> [file|dir]...",
	Short: "Resolve a possibly qualified name at namespace scope",
	Long: `Look a name up from the global scope of each file, the way an
unqualified (or, for A::b, qualified) reference at file scope would see it.
Without files the name is searched in the runs saved with --db.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLookup,
}

var (
	lookupContext string
	lookupRun     string
	lookupFile    string
)

func init() {
	lookupCmd.Flags().StringVar(&lookupContext, "context", "default", "lookup context (default|elaborated|type|scope)")
	lookupCmd.Flags().StringVar(&lookupRun, "run", "", "restrict a database lookup to one run id")
	lookupCmd.Flags().StringVar(&lookupFile, "file", "", "restrict a database lookup to the latest run of this path")
}

// lookupMatch is one symbol found by lookup.
type lookupMatch struct {
	Path       string `json:"path" yaml:"path"`
	Line       uint32 `json:"line,omitempty" yaml:"line,omitempty"`
	Col        uint32 `json:"col,omitempty" yaml:"col,omitempty"`
	Kind       string `json:"kind" yaml:"kind"`
	Qualified  string `json:"qualified" yaml:"qualified"`
	Type       string `json:"type,omitempty" yaml:"type,omitempty"`
	Definition bool   `json:"definition" yaml:"definition"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
}

func parseLookupContext(s string) (symbols.LookupContext, error) {
	switch strings.ToLower(s) {
	case "", "default":
		return symbols.ContextDefault, nil
	case "elaborated":
		return symbols.ContextElaborated, nil
	case "type":
		return symbols.ContextType, nil
	case "scope":
		return symbols.ContextScope, nil
	default:
		return 0, fmt.Errorf("unknown lookup context %q (expected default|elaborated|type|scope)", s)
	}
}

func runLookup(cmd *cobra.Command, args []string) error {
	name := strings.TrimSpace(args[0])
	if name == "" {
		return errors.New("empty name")
	}
	if len(args) == 1 {
		return lookupStored(cmd, name)
	}
	ctx, err := parseLookupContext(lookupContext)
	if err != nil {
		return err
	}

	results, err := analyzePaths(cmd, args[1:], true)
	if err != nil {
		return err
	}
	var matches []lookupMatch
	for _, res := range results {
		if !loaded(res) {
			continue
		}
		matches = append(matches, lookupIn(res, encoding.ParseQualified(name), ctx)...)
	}

	if !structured() {
		reportDiagnostics(cmd, results)
	}
	if err := printMatches(cmd, matches); err != nil {
		return err
	}
	for _, m := range matches {
		if m.Error == "" {
			return nil
		}
	}
	return errFailed
}

func lookupIn(res *driver.Result, name encoding.Encoding, ctx symbols.LookupContext) []lookupMatch {
	table := res.Session.Table
	found, err := table.Lookup(table.Root(), name, ctx)
	if err != nil {
		return []lookupMatch{{Path: res.Path, Error: err.Error()}}
	}
	snap := table.Snapshot()
	out := make([]lookupMatch, 0, found.Len())
	for _, id := range found {
		sym := table.Symbol(id)
		pos := res.Position(sym.Node)
		m := lookupMatch{
			Path:       res.Path,
			Line:       pos.Line,
			Col:        pos.Col,
			Kind:       sym.Kind.String(),
			Qualified:  snap.QualifiedName(id),
			Definition: sym.Definition,
		}
		if sym.Type != "" {
			m.Type = sym.Type.Unmangled()
		}
		out = append(out, m)
	}
	return out
}

func printMatches(cmd *cobra.Command, matches []lookupMatch) error {
	if structured() {
		if matches == nil {
			matches = []lookupMatch{}
		}
		return writeStructured(cmd.OutOrStdout(), matches)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, m := range matches {
		if m.Error != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", m.Path, m.Error)
			continue
		}
		fmt.Fprintf(tw, "%s:%d:%d\t%s\t%s\t%s\n", m.Path, m.Line, m.Col, m.Kind, m.Qualified, m.Type)
	}
	return tw.Flush()
}

// lookupStored answers from the database: by encoded simple name within
// one run, or by qualified name across all runs.
func lookupStored(cmd *cobra.Command, name string) error {
	path := state.cfg.Store.Path
	if path == "" {
		return errors.New("lookup needs files to analyze or a database (--db)")
	}
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	run := lookupRun
	if run == "" && lookupFile != "" {
		if run, err = st.LatestRun(cmd.Context(), lookupFile); err != nil {
			return err
		}
	}
	rows, err := findStored(cmd, st, run, name)
	if err != nil {
		return err
	}

	if structured() {
		if rows == nil {
			rows = []store.SymbolRow{}
		}
		if err := writeStructured(cmd.OutOrStdout(), rows); err != nil {
			return err
		}
	} else {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, row := range rows {
			fmt.Fprintf(tw, "%s\t%d:%d\t%s\t%s\t%s\n", row.Run, row.Line, row.Col, row.Kind, row.Qualified, row.TypeDisplay)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	if len(rows) == 0 {
		if !state.quiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: not found\n", name)
		}
		return errFailed
	}
	return nil
}

func findStored(cmd *cobra.Command, st *store.Store, run, name string) ([]store.SymbolRow, error) {
	enc := encoding.ParseQualified(name)
	if run != "" && enc.IsSimpleName() {
		return st.FindSymbols(cmd.Context(), run, enc)
	}
	rows, err := st.FindQualified(cmd.Context(), strings.TrimPrefix(name, "::"))
	if err != nil || run == "" {
		return rows, err
	}
	kept := rows[:0]
	for _, row := range rows {
		if row.Run == run {
			kept = append(kept, row)
		}
	}
	return kept, nil
}
