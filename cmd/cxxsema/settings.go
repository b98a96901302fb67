package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"cxxsema/internal/config"
	"cxxsema/internal/driver"
	"cxxsema/internal/prof"
)

// flagKeys maps persistent flags to configuration keys.
var flagKeys = map[string]string{
	"lang":            "analysis.language",
	"max-diagnostics": "analysis.max_diagnostics",
	"jobs":            "analysis.jobs",
	"cache":           "cache.enabled",
	"cache-dir":       "cache.dir",
	"db":              "store.path",
	"trace":           "trace.output",
	"trace-level":     "trace.level",
	"trace-format":    "trace.format",
	"trace-mode":      "trace.mode",
	"trace-scopes":    "trace.scopes",
	"trace-ring-size": "trace.ring_size",
	"format":          "output.format",
	"color":           "output.color",
}

// runState is what prepareRun resolved for the running command.
type runState struct {
	cfg      config.Config
	file     *config.File
	useColor bool
	quiet    bool
	timings  bool
	cache    *driver.DiskCache
	profiler *prof.Profiler
	cleanup  func()
}

var state = &runState{cleanup: func() {}}

func prepareRun(cmd *cobra.Command, args []string) error {
	cfg, file, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	state.cfg = cfg
	state.file = file
	state.useColor = colorEnabled(cfg.Output.Color)
	color.NoColor = !state.useColor

	flags := cmd.Root().PersistentFlags()
	if state.quiet, err = flags.GetBool("quiet"); err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}
	if state.timings, err = flags.GetBool("timings"); err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}

	if state.profiler, err = setupProfiling(cmd); err != nil {
		return err
	}
	cleanup, err := setupTracing(cmd, cfg.Trace)
	if err != nil {
		return err
	}
	state.cleanup = cleanup
	return nil
}

// setupProfiling starts the profiles requested by persistent flags.
func setupProfiling(cmd *cobra.Command) (*prof.Profiler, error) {
	flags := cmd.Root().PersistentFlags()
	var paths prof.Paths
	var err error
	if paths.CPU, err = flags.GetString("cpu-profile"); err != nil {
		return nil, fmt.Errorf("failed to get cpu-profile flag: %w", err)
	}
	if paths.Heap, err = flags.GetString("mem-profile"); err != nil {
		return nil, fmt.Errorf("failed to get mem-profile flag: %w", err)
	}
	if paths.Trace, err = flags.GetString("runtime-trace"); err != nil {
		return nil, fmt.Errorf("failed to get runtime-trace flag: %w", err)
	}
	if paths.Empty() {
		return nil, nil
	}
	return prof.Start(paths)
}

func finishRun(cmd *cobra.Command) {
	if state.cache != nil {
		if err := state.cache.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "cache: close error: %v\n", err)
		}
		state.cache = nil
	}
	state.cleanup()
	state.cleanup = func() {}
	if err := state.profiler.Stop(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "profile: %v\n", err)
	}
	state.profiler = nil
}

// loadSettings layers defaults, cxxsema.toml, CXXSEMA_* variables and
// flags, in increasing precedence.
func loadSettings(cmd *cobra.Command) (config.Config, *config.File, error) {
	flags := cmd.Root().PersistentFlags()
	path, err := flags.GetString("config")
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("failed to get config flag: %w", err)
	}

	var file *config.File
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return config.Config{}, nil, err
		}
		file = &config.File{Path: path, Root: filepath.Dir(path), Config: cfg}
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return config.Config{}, nil, err
		}
		found, ok, err := config.Discover(wd)
		if err != nil {
			return config.Config{}, nil, err
		}
		if ok {
			file = found
		}
	}

	base := config.Default()
	if file != nil {
		base = file.Config
	}
	v := config.NewViper(base)
	for name, key := range flagKeys {
		if err := config.BindFlag(v, key, flags.Lookup(name)); err != nil {
			return config.Config{}, nil, err
		}
	}
	cfg, err := config.Resolve(v)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, file, nil
}

func colorEnabled(mode string) bool {
	switch mode {
	case "on":
		return true
	case "off":
		return false
	default:
		return isTerminal(os.Stdout)
	}
}

// analysisOptions builds driver options from the resolved configuration.
// The disk cache is opened only for runs that skip call sites.
func analysisOptions(skipCalls bool) (driver.Options, error) {
	cfg := state.cfg
	opts := driver.Options{
		Language:       cfg.Analysis.Language,
		MaxDiagnostics: cfg.Analysis.MaxDiagnostics,
		Jobs:           cfg.Analysis.Jobs,
		SkipCalls:      skipCalls,
		Timings:        state.timings,
	}
	if cfg.Cache.Enabled && skipCalls {
		dir := cfg.Cache.Dir
		if dir == "" {
			var err error
			if dir, err = driver.DefaultCacheDir("cxxsema"); err != nil {
				return opts, fmt.Errorf("cache directory: %w", err)
			}
		}
		cache, err := driver.OpenDiskCache(dir)
		if err != nil {
			return opts, fmt.Errorf("open cache: %w", err)
		}
		state.cache = cache
		opts.Cache = cache
	}
	return opts, nil
}
