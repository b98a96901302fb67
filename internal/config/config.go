// Package config loads cxxsema.toml and layers environment variables and
// command-line flags over it.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"cxxsema/internal/frontend/cxx"
	"cxxsema/internal/trace"
)

// FileName is the project configuration file searched for.
const FileName = "cxxsema.toml"

// Config is the whole configuration. Every section is optional.
type Config struct {
	Analysis AnalysisConfig `toml:"analysis" mapstructure:"analysis"`
	Cache    CacheConfig    `toml:"cache" mapstructure:"cache"`
	Store    StoreConfig    `toml:"store" mapstructure:"store"`
	Trace    TraceConfig    `toml:"trace" mapstructure:"trace"`
	Output   OutputConfig   `toml:"output" mapstructure:"output"`
}

type AnalysisConfig struct {
	// Language forces "c" or "c++"; empty picks it per file extension.
	Language       string `toml:"language" mapstructure:"language"`
	MaxDiagnostics int    `toml:"max_diagnostics" mapstructure:"max_diagnostics"`
	Jobs           int    `toml:"jobs" mapstructure:"jobs"`
}

type CacheConfig struct {
	Enabled bool `toml:"enabled" mapstructure:"enabled"`
	// Dir defaults to $XDG_CACHE_HOME/cxxsema.
	Dir string `toml:"dir" mapstructure:"dir"`
}

type StoreConfig struct {
	// Path of the SQLite database; empty disables saving runs.
	Path string `toml:"path" mapstructure:"path"`
}

type TraceConfig struct {
	Level  string `toml:"level" mapstructure:"level"`
	Output string `toml:"output" mapstructure:"output"`
	Format string `toml:"format" mapstructure:"format"`
	Mode   string `toml:"mode" mapstructure:"mode"`
	// Scopes narrows tracing to some of driver, pass, unit and lookup.
	Scopes   []string `toml:"scopes" mapstructure:"scopes"`
	RingSize int      `toml:"ring_size" mapstructure:"ring_size"`
}

type OutputConfig struct {
	Format string `toml:"format" mapstructure:"format"`
	Color  string `toml:"color" mapstructure:"color"`
}

// Default returns the configuration used when no file is found.
func Default() Config {
	return Config{
		Analysis: AnalysisConfig{MaxDiagnostics: 100},
		Trace:    TraceConfig{Level: "off", Output: "-", Format: "auto", Mode: "stream", RingSize: 4096},
		Output:   OutputConfig{Format: "text", Color: "auto"},
	}
}

// File is a loaded configuration file.
type File struct {
	Path   string
	Root   string
	Config Config
}

// Find walks up from startDir to locate cxxsema.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover finds and loads the nearest cxxsema.toml. ok is false when
// there is none.
func Discover(startDir string) (*File, bool, error) {
	path, ok, err := Find(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, true, err
	}
	return &File{Path: path, Root: filepath.Dir(path), Config: cfg}, true, nil
}

// Load decodes path over the defaults. Unknown keys are errors so that
// typos do not go unnoticed.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("cache", "dir") && cfg.Cache.Dir != "" && !filepath.IsAbs(cfg.Cache.Dir) {
		cfg.Cache.Dir = filepath.Join(filepath.Dir(path), cfg.Cache.Dir)
	}
	if meta.IsDefined("store", "path") && cfg.Store.Path != "" && !filepath.IsAbs(cfg.Store.Path) {
		cfg.Store.Path = filepath.Join(filepath.Dir(path), cfg.Store.Path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Error names the offending field.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

// Validate checks enumerated values and ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Analysis.Language != "" {
		if _, err := cxx.ParseLanguage(c.Analysis.Language); err != nil {
			errs = append(errs, &Error{Field: "analysis.language", Message: err.Error()})
		}
	}
	if c.Analysis.MaxDiagnostics < 0 {
		errs = append(errs, &Error{Field: "analysis.max_diagnostics", Message: "must not be negative"})
	}
	if c.Analysis.Jobs < 0 {
		errs = append(errs, &Error{Field: "analysis.jobs", Message: "must not be negative"})
	}
	if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
		errs = append(errs, &Error{Field: "trace.level", Message: err.Error()})
	}
	if _, err := trace.ParseFormat(c.Trace.Format); err != nil {
		errs = append(errs, &Error{Field: "trace.format", Message: err.Error()})
	}
	if _, err := trace.ParseMode(c.Trace.Mode); err != nil {
		errs = append(errs, &Error{Field: "trace.mode", Message: err.Error()})
	}
	if _, err := trace.ParseScopes(c.Trace.Scopes); err != nil {
		errs = append(errs, &Error{Field: "trace.scopes", Message: err.Error()})
	}
	if c.Trace.RingSize < 0 {
		errs = append(errs, &Error{Field: "trace.ring_size", Message: "must not be negative"})
	}
	switch c.Output.Format {
	case "text", "json", "yaml":
	default:
		errs = append(errs, &Error{Field: "output.format", Message: fmt.Sprintf("%q is not one of text, json, yaml", c.Output.Format)})
	}
	switch c.Output.Color {
	case "auto", "on", "off":
	default:
		errs = append(errs, &Error{Field: "output.color", Message: fmt.Sprintf("%q is not one of auto, on, off", c.Output.Color)})
	}
	return errors.Join(errs...)
}
