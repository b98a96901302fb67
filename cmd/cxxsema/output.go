package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"cxxsema/internal/diag"
	"cxxsema/internal/diagfmt"
	"cxxsema/internal/driver"
)

func structured() bool {
	return state.cfg.Output.Format != "text"
}

// writeStructured encodes v as JSON or YAML per the output format.
func writeStructured(w io.Writer, v any) error {
	switch state.cfg.Output.Format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

// expandPaths replaces directory arguments by the sources under them.
func expandPaths(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		st, err := os.Stat(arg)
		if err != nil || !st.IsDir() {
			// missing files surface as load diagnostics
			out = append(out, arg)
			continue
		}
		files, err := driver.ListSources(arg)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", arg, err)
		}
		out = append(out, files...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no C or C++ sources in %v", args)
	}
	return out, nil
}

func analyzePaths(cmd *cobra.Command, args []string, skipCalls bool) ([]*driver.Result, error) {
	paths, err := expandPaths(args)
	if err != nil {
		return nil, err
	}
	opts, err := analysisOptions(skipCalls)
	if err != nil {
		return nil, err
	}
	return driver.AnalyzeFiles(cmd.Context(), paths, opts)
}

// loaded reports whether the result's file could be read.
func loaded(res *driver.Result) bool {
	return res != nil && res.Session != nil && res.Session.FileSet.Get(res.File) != nil
}

// reportDiagnostics pretty-prints each result's diagnostics to stderr.
// With --quiet only errors are shown.
func reportDiagnostics(cmd *cobra.Command, results []*driver.Result) {
	for _, res := range results {
		bag := res.Session.Bag
		if state.quiet {
			bag = errorsOnly(bag)
		}
		if bag.Len() == 0 {
			continue
		}
		bag.Sort()
		diagfmt.Pretty(cmd.ErrOrStderr(), bag, res.Session.FileSet, diagfmt.PrettyOpts{
			Color:     state.useColor,
			ShowNotes: true,
			Context:   true,
		})
	}
}

func errorsOnly(bag *diag.Bag) *diag.Bag {
	out := diag.NewBag(0)
	for _, d := range bag.Items() {
		if d.Severity >= diag.SevError {
			out.Add(d)
		}
	}
	return out
}

// failed reports whether any result carries an error diagnostic.
func failed(results []*driver.Result) bool {
	for _, res := range results {
		if res.Session.Bag.HasErrors() {
			return true
		}
	}
	return false
}

// fileDiagnostics is the structured rendering of one result's bag.
func fileDiagnostics(res *driver.Result) diagfmt.DiagnosticsOutput {
	return diagfmt.BuildDiagnosticsOutput(res.Session.Bag, res.Session.FileSet, diagfmt.JSONOpts{
		IncludePositions: true,
		IncludeNotes:     true,
	})
}
