package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"cxxsema/internal/diagfmt"
	"cxxsema/internal/driver"
	"cxxsema/internal/observ"
	"cxxsema/internal/store"
	"cxxsema/internal/symbols"
	"cxxsema/internal/version"
)

var symbolsCmd = &cobra.Command{
	Use:   "symbols [flags] <file|dir>...",
	Short: "Print the scope tree and symbol table of translation units",
	Long: `Analyze C and C++ files and print their scope tree. With --db every
analysis is also saved as a run that lookup can query later.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSymbols,
}

var symbolsIndent int

func init() {
	symbolsCmd.Flags().IntVar(&symbolsIndent, "indent", 2, "spaces per scope level in text output")
}

type symbolsReport struct {
	Path        string                    `json:"path" yaml:"path"`
	Language    string                    `json:"language" yaml:"language"`
	Cached      bool                      `json:"cached" yaml:"cached"`
	Run         string                    `json:"run,omitempty" yaml:"run,omitempty"`
	Table       *symbols.Snapshot         `json:"table,omitempty" yaml:"table,omitempty"`
	Timing      *observ.Report            `json:"timing,omitempty" yaml:"timing,omitempty"`
	Diagnostics diagfmt.DiagnosticsOutput `json:"diagnostics" yaml:"diagnostics"`
}

func runSymbols(cmd *cobra.Command, args []string) error {
	results, err := analyzePaths(cmd, args, true)
	if err != nil {
		return err
	}
	runs, err := saveRuns(cmd, results)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if structured() {
		reports := make([]symbolsReport, 0, len(results))
		for i, res := range results {
			r := symbolsReport{
				Path:        res.Path,
				Language:    res.Language.String(),
				Cached:      res.Cached,
				Run:         runs[i],
				Diagnostics: fileDiagnostics(res),
			}
			if loaded(res) {
				r.Table = res.Session.Table.Snapshot()
			}
			if state.timings {
				r.Timing = res.Timing
			}
			reports = append(reports, r)
		}
		if err := writeStructured(out, reports); err != nil {
			return err
		}
	} else {
		header := color.New(color.Bold)
		for _, res := range results {
			if !loaded(res) {
				continue
			}
			if len(results) > 1 {
				if _, err := header.Fprintf(out, "== %s ==\n", res.Path); err != nil {
					return err
				}
			}
			if err := symbols.Dump(out, res.Session.Table, symbols.DumpOptions{
				Color:  state.useColor,
				Indent: symbolsIndent,
			}); err != nil {
				return err
			}
		}
		reportDiagnostics(cmd, results)
	}

	if failed(results) {
		return errFailed
	}
	return nil
}

// saveRuns stores every loaded result when a database is configured. The
// returned ids line up with results; unsaved entries are empty.
func saveRuns(cmd *cobra.Command, results []*driver.Result) ([]string, error) {
	ids := make([]string, len(results))
	path := state.cfg.Store.Path
	if path == "" {
		return ids, nil
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	for i, res := range results {
		if !loaded(res) {
			continue
		}
		id, err := st.SaveRun(cmd.Context(), store.Run{
			Path:        res.Path,
			Language:    res.Language.String(),
			ToolVersion: version.Plain(),
			Snapshot:    res.Session.Table.Snapshot(),
			Position:    res.Position,
		})
		if err != nil {
			return nil, fmt.Errorf("save %s: %w", res.Path, err)
		}
		ids[i] = id
		if !state.quiet && !structured() {
			fmt.Fprintf(cmd.ErrOrStderr(), "saved run %s for %s\n", id, res.Path)
		}
	}
	return ids, nil
}
