package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"cxxsema/internal/driver"
	"cxxsema/internal/symbols"
)

var callsCmd = &cobra.Command{
	Use:   "calls [flags] <file|dir>...",
	Short: "List call sites with their overload candidates",
	Long: `Print every call expression with the candidate functions its callee
name found and the ones viable for the number of arguments given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCalls,
}

var callsUnresolved bool

func init() {
	callsCmd.Flags().BoolVar(&callsUnresolved, "unresolved", false, "only show calls without a single viable candidate")
}

type callReport struct {
	Path       string   `json:"path" yaml:"path"`
	Line       uint32   `json:"line" yaml:"line"`
	Col        uint32   `json:"col" yaml:"col"`
	Callee     string   `json:"callee" yaml:"callee"`
	Args       []string `json:"args" yaml:"args"`
	Candidates []string `json:"candidates" yaml:"candidates"`
	Viable     []string `json:"viable" yaml:"viable"`
	Target     string   `json:"target,omitempty" yaml:"target,omitempty"`
	Error      string   `json:"error,omitempty" yaml:"error,omitempty"`
}

func runCalls(cmd *cobra.Command, args []string) error {
	results, err := analyzePaths(cmd, args, false)
	if err != nil {
		return err
	}
	var reports []callReport
	for _, res := range results {
		if !loaded(res) || res.Unit == nil {
			continue
		}
		reports = append(reports, callReports(res)...)
	}

	if structured() {
		if reports == nil {
			reports = []callReport{}
		}
		return writeStructured(cmd.OutOrStdout(), reports)
	}

	out := cmd.OutOrStdout()
	loc := color.New(color.Bold)
	bad := color.New(color.FgRed)
	for _, r := range reports {
		status := fmt.Sprintf("%d of %d viable", len(r.Viable), len(r.Candidates))
		if r.Target != "" {
			status = "-> " + r.Target
		} else if r.Error != "" {
			status = bad.Sprint(r.Error)
		}
		fmt.Fprintf(out, "%s %s(%s) %s\n", loc.Sprintf("%s:%d:%d:", r.Path, r.Line, r.Col),
			r.Callee, strings.Join(r.Args, ", "), status)
		if r.Target == "" {
			for _, v := range r.Viable {
				fmt.Fprintf(out, "    %s\n", v)
			}
		}
	}
	reportDiagnostics(cmd, results)
	if failed(results) {
		return errFailed
	}
	return nil
}

func callReports(res *driver.Result) []callReport {
	table := res.Session.Table
	snap := table.Snapshot()
	describe := func(set symbols.SymbolSet) []string {
		out := make([]string, 0, set.Len())
		for _, id := range set {
			out = append(out, describeSymbol(snap, table.Symbol(id), id))
		}
		return out
	}

	var out []callReport
	for i := range res.Unit.Calls {
		call := &res.Unit.Calls[i]
		target, resolved := call.Target()
		if callsUnresolved && resolved {
			continue
		}
		start, _ := res.Session.FileSet.Resolve(call.Span)
		r := callReport{
			Path:       res.Path,
			Line:       start.Line,
			Col:        start.Col,
			Callee:     call.Callee.Unmangled(),
			Args:       make([]string, 0, len(call.Args)),
			Candidates: describe(call.Candidates),
			Viable:     describe(call.Viable),
		}
		for _, arg := range call.Args {
			r.Args = append(r.Args, arg.Unmangled())
		}
		if resolved {
			r.Target = describeSymbol(snap, table.Symbol(target), target)
		}
		if call.Err != nil {
			r.Error = call.Err.Error()
		}
		out = append(out, r)
	}
	return out
}

// describeSymbol renders "ns::f: int(char)".
func describeSymbol(snap *symbols.Snapshot, sym *symbols.Symbol, id symbols.SymbolID) string {
	name := snap.QualifiedName(id)
	if sym == nil || sym.Type == "" {
		return name
	}
	return name + ": " + sym.Type.Unmangled()
}
