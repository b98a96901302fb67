package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"cxxsema/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "cxxsema",
	Short: "C and C++ scope and symbol table analyzer",
	Long: `cxxsema builds the scope tree and symbol table of C and C++ translation
units, answers name lookup queries and reports overload viability at call sites`,
	SilenceUsage:      true,
	PersistentPreRunE: prepareRun,
}

// errFailed reports that diagnostics were already printed.
var errFailed = errors.New("analysis reported errors")

// main registers subcommands and persistent flags, then executes the root
// command. Any error exits with status 1.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(symbolsCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(callsCmd)
	rootCmd.AddCommand(unmangleCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(versionCmd)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "path to cxxsema.toml (default: search upwards from the working directory)")
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.String("format", "text", "output format (text|json|yaml)")
	flags.String("lang", "", "force the language (c|c++); default picks it per file extension")
	flags.Int("max-diagnostics", 100, "maximum number of diagnostics per file")
	flags.Int("jobs", 0, "files analyzed in parallel (0 = GOMAXPROCS)")
	flags.Bool("quiet", false, "suppress non-essential output")
	flags.Bool("timings", false, "report per-phase timings")
	flags.Bool("cache", false, "reuse analyses from the disk cache when call sites are not needed")
	flags.String("cache-dir", "", "disk cache directory (default $XDG_CACHE_HOME/cxxsema)")
	flags.String("db", "", "SQLite database to save or query analyses")
	flags.String("trace", "", "trace output file (- for stderr)")
	flags.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	flags.String("trace-format", "auto", "trace format (auto|text|ndjson)")
	flags.String("trace-mode", "stream", "trace storage (stream|ring|both)")
	flags.StringSlice("trace-scopes", nil, "only trace these scopes (driver,pass,unit,lookup)")
	flags.Int("trace-ring-size", 4096, "events kept in ring mode")
	flags.String("cpu-profile", "", "write a CPU profile to this file")
	flags.String("mem-profile", "", "write a heap profile to this file on exit")
	flags.String("runtime-trace", "", "write a Go execution trace to this file")

	rootCmd.SilenceErrors = true
	err := rootCmd.Execute()
	// runs whether or not the command failed
	finishRun(rootCmd)
	if err != nil {
		if !errors.Is(err, errFailed) {
			rootCmd.PrintErrln("error:", err)
		}
		os.Exit(1)
	}
}

// isTerminal reports whether f is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
