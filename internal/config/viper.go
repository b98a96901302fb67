package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"cxxsema/internal/trace"
)

// EnvPrefix is the prefix of environment overrides: CXXSEMA_OUTPUT_FORMAT
// overrides output.format.
const EnvPrefix = "CXXSEMA"

// NewViper layers CXXSEMA_* variables over base. Flags bound later with
// BindFlag take precedence over both.
func NewViper(base Config) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("analysis.language", base.Analysis.Language)
	v.SetDefault("analysis.max_diagnostics", base.Analysis.MaxDiagnostics)
	v.SetDefault("analysis.jobs", base.Analysis.Jobs)
	v.SetDefault("cache.enabled", base.Cache.Enabled)
	v.SetDefault("cache.dir", base.Cache.Dir)
	v.SetDefault("store.path", base.Store.Path)
	v.SetDefault("trace.level", base.Trace.Level)
	v.SetDefault("trace.output", base.Trace.Output)
	v.SetDefault("trace.format", base.Trace.Format)
	v.SetDefault("trace.mode", base.Trace.Mode)
	v.SetDefault("trace.scopes", base.Trace.Scopes)
	v.SetDefault("trace.ring_size", base.Trace.RingSize)
	v.SetDefault("output.format", base.Output.Format)
	v.SetDefault("output.color", base.Output.Color)
	return v
}

// BindFlag makes a command-line flag override key when it is set.
func BindFlag(v *viper.Viper, key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("bind %s: no such flag", key)
	}
	return v.BindPFlag(key, flag)
}

// Resolve reads the layered configuration back and validates it.
func Resolve(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Tracer converts the [trace] section.
func (c TraceConfig) Tracer() (trace.Config, error) {
	level, err := trace.ParseLevel(c.Level)
	if err != nil {
		return trace.Config{}, err
	}
	format, err := trace.ParseFormat(c.Format)
	if err != nil {
		return trace.Config{}, err
	}
	mode, err := trace.ParseMode(c.Mode)
	if err != nil {
		return trace.Config{}, err
	}
	scopes, err := trace.ParseScopes(c.Scopes)
	if err != nil {
		return trace.Config{}, err
	}
	return trace.Config{
		Level:      level,
		Scopes:     scopes,
		Mode:       mode,
		Format:     format,
		OutputPath: c.Output,
		RingSize:   c.RingSize,
	}, nil
}
