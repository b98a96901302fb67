package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"cxxsema/internal/trace"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDiscoverWalksUp(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
[analysis]
language = "c"
max_diagnostics = 5

[cache]
enabled = true
dir = ".cache"

[output]
format = "yaml"
`)
	nested := filepath.Join(root, "src", "deep")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	file, ok, err := Discover(nested)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, root, file.Root)
	require.Equal(t, "c", file.Config.Analysis.Language)
	require.Equal(t, 5, file.Config.Analysis.MaxDiagnostics)
	require.True(t, file.Config.Cache.Enabled)
	require.Equal(t, filepath.Join(root, ".cache"), file.Config.Cache.Dir)
	require.Equal(t, "yaml", file.Config.Output.Format)
	// untouched sections keep their defaults
	require.Equal(t, "auto", file.Config.Output.Color)
	require.Equal(t, "off", file.Config.Trace.Level)
}

func TestDiscoverNone(t *testing.T) {
	file, ok, err := Discover(t.TempDir())
	require.NoError(t, err)
	if ok {
		// a cxxsema.toml above the temp dir would be picked up
		t.Skipf("found %s above the temp dir", file.Path)
	}
	require.Nil(t, file)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "[output]\nformt = \"json\"\n")
	_, err := Load(path)
	require.ErrorContains(t, err, "output.formt")
}

func TestLoadValidates(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
[analysis]
language = "fortran"
[output]
format = "xml"
[trace]
level = "loud"
`)
	_, err := Load(path)
	require.Error(t, err)
	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
	require.ErrorContains(t, err, "analysis.language")
	require.ErrorContains(t, err, "output.format")
	require.ErrorContains(t, err, "trace.level")
}

func TestViperLayers(t *testing.T) {
	base := Default()
	base.Output.Format = "json"
	base.Analysis.Jobs = 2

	t.Setenv("CXXSEMA_ANALYSIS_JOBS", "7")
	t.Setenv("CXXSEMA_CACHE_ENABLED", "true")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("format", "text", "")
	flags.String("trace-level", "off", "")

	v := NewViper(base)
	require.NoError(t, BindFlag(v, "output.format", flags.Lookup("format")))
	require.NoError(t, BindFlag(v, "trace.level", flags.Lookup("trace-level")))
	require.Error(t, BindFlag(v, "output.color", flags.Lookup("color")))

	cfg, err := Resolve(v)
	require.NoError(t, err)
	require.Equal(t, "json", cfg.Output.Format, "an unset flag keeps the file value")
	require.Equal(t, 7, cfg.Analysis.Jobs)
	require.True(t, cfg.Cache.Enabled)

	require.NoError(t, flags.Set("format", "yaml"))
	require.NoError(t, flags.Set("trace-level", "debug"))
	cfg, err = Resolve(v)
	require.NoError(t, err)
	require.Equal(t, "yaml", cfg.Output.Format)

	tc, err := cfg.Trace.Tracer()
	require.NoError(t, err)
	require.Equal(t, trace.LevelDebug, tc.Level)
	require.Equal(t, trace.ModeStream, tc.Mode)
}

func TestTraceScopes(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
[trace]
level = "debug"
mode = "ring"
scopes = ["unit", "lookup"]
ring_size = 64
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	tc, err := cfg.Trace.Tracer()
	require.NoError(t, err)
	require.Equal(t, 64, tc.RingSize)
	require.True(t, tc.Scopes.Has(trace.ScopeLookup))
	require.False(t, tc.Scopes.Has(trace.ScopePass))

	path = writeConfig(t, t.TempDir(), "[trace]\nscopes = [\"everything\"]\n")
	_, err = Load(path)
	require.ErrorContains(t, err, "trace.scopes")
}
