//go:build cgo

package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"cxxsema/internal/encoding"
	"cxxsema/internal/symbols"
)

const shapes = `
namespace geo {
struct point { int x, y; };
double norm(point p);
}
int main() { return 0; }
`

func TestAnalyzeSourceUsesCache(t *testing.T) {
	cache, err := OpenDiskCache(t.TempDir())
	require.NoError(t, err)
	defer cache.Close()
	opts := Options{Cache: cache, SkipCalls: true, Timings: true}

	first, err := AnalyzeSource(context.Background(), "shapes.cc", []byte(shapes), opts)
	require.NoError(t, err)
	require.False(t, first.Cached)
	require.NotNil(t, first.Unit)

	second, err := AnalyzeSource(context.Background(), "shapes.cc", []byte(shapes), opts)
	require.NoError(t, err)
	require.True(t, second.Cached)
	require.Nil(t, second.Unit)
	require.Equal(t, first.Session.Table.Symbols.Len(), second.Session.Table.Symbols.Len())

	found, err := second.Session.Table.Lookup(second.Session.Table.Root(),
		encoding.ParseQualified("geo::point::y"), symbols.ContextDefault)
	require.NoError(t, err)
	id, ok := found.Single()
	require.True(t, ok)
	pos := second.Position(second.Session.Table.Symbol(id).Node)
	require.Equal(t, uint32(3), pos.Line)
}

func TestAnalyzeFilesKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i, src := range []string{"int a;", "int b; int c;", "struct s { int d; };"} {
		p := filepath.Join(dir, string(rune('a'+i))+".c")
		require.NoError(t, os.WriteFile(p, []byte(src), 0o600))
		paths = append(paths, p)
	}
	results, err := AnalyzeFiles(context.Background(), paths, Options{Jobs: 2})
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		require.Equal(t, paths[i], r.Path)
		require.NotNil(t, r.Unit)
	}
	require.Equal(t, 2, results[1].Unit.Declared)
}
