package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"cxxsema/internal/diag"
	"cxxsema/internal/encoding"
	"cxxsema/internal/frontend/cxx"
	"cxxsema/internal/source"
	"cxxsema/internal/symbols"
	"cxxsema/internal/syntax"
)

// fakeSession builds by hand what the front end would produce for
// "namespace N { int x; }".
func fakeSession(t *testing.T) *Result {
	t.Helper()
	s := NewSession(Options{})
	file := s.FileSet.AddVirtual("n.cc", []byte("namespace N { int x; }"))
	ns := s.Nodes.New(syntax.KindNamespace, source.Span{File: file, Start: 0, End: 22}, "namespace N")
	decl := s.Nodes.New(syntax.KindDeclarator, source.Span{File: file, Start: 18, End: 19}, "x")

	r := symbols.NewResolver(s.Table, symbols.ResolverOptions{Nodes: s.Nodes, Reporter: s.Reporter()})
	scope, err := r.EnterNamespace(ns, encoding.Name("N"))
	require.NoError(t, err)
	_, err = r.Declare(encoding.Name("x"), symbols.NewVariable(encoding.Builtin(encoding.TagInt), decl, true))
	require.NoError(t, err)
	r.Leave(scope)

	diag.ReportWarning(s.Reporter(), diag.SemaUndefined, source.Span{File: file, Start: 18, End: 19}, "kept").Emit()
	diag.ReportWarning(s.Reporter(), diag.IOCacheError, source.Span{File: file}, "dropped").Emit()
	return &Result{Path: "n.cc", File: file, Language: cxx.LangCXX, Session: s}
}

func TestDiskCacheRoundTrip(t *testing.T) {
	cache, err := OpenDiskCache(t.TempDir())
	require.NoError(t, err)
	defer func() { require.NoError(t, cache.Close()) }()

	res := fakeSession(t)
	key := unitDigest(cxx.LangCXX, res.Session.FileSet.Get(res.File).Hash)

	var miss DiskPayload
	ok, err := cache.Get(key, &miss)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, cache.Put(key, sessionToPayload(res)))

	var payload DiskPayload
	ok, err = cache.Get(key, &payload)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "n.cc", payload.Path)
	require.Equal(t, "c++", payload.Language)

	restored := NewSession(Options{})
	restored.FileSet.AddVirtual("n.cc", []byte("namespace N { int x; }"))
	require.NoError(t, restoreSession(restored, &payload))

	found, err := restored.Table.Lookup(restored.Table.Root(), encoding.QualifiedName(encoding.Name("N"), encoding.Name("x")), symbols.ContextDefault)
	require.NoError(t, err)
	id, single := found.Single()
	require.True(t, single)
	sym := restored.Table.Symbol(id)
	require.Equal(t, encoding.Builtin(encoding.TagInt), sym.Type)
	require.Equal(t, "x", restored.Nodes.Get(sym.Node).Text)

	items := restored.Bag.Items()
	require.Len(t, items, 1)
	require.Equal(t, "kept", items[0].Message)
}

func TestDiskCacheKeyDependsOnLanguage(t *testing.T) {
	var content [32]byte
	require.NotEqual(t, unitDigest(cxx.LangC, content), unitDigest(cxx.LangCXX, content))
}

func TestDiskCacheIgnoresOtherSchema(t *testing.T) {
	cache, err := OpenDiskCache(t.TempDir())
	require.NoError(t, err)
	defer cache.Close()

	key := Digest{1}
	payload := sessionToPayload(fakeSession(t))
	payload.Schema = diskCacheSchemaVersion + 1
	raw, err := msgpack.Marshal(payload)
	require.NoError(t, err)
	p := cache.pathFor(key)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, cache.enc.EncodeAll(raw, nil), 0o600))

	var out DiskPayload
	ok, err := cache.Get(key, &out)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, cache.Put(key, payload))
	ok, err = cache.Get(key, &out)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, cache.DropAll())
	ok, err = cache.Get(key, &out)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDiskCacheCorruptEntry(t *testing.T) {
	dir := t.TempDir()
	cache, err := OpenDiskCache(dir)
	require.NoError(t, err)
	defer cache.Close()

	key := Digest{2}
	p := cache.pathFor(key)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("not zstd"), 0o600))

	var out DiskPayload
	_, err = cache.Get(key, &out)
	require.Error(t, err)
}

func TestListSources(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.cc", "a.c", "inc/x.hpp", ".git/y.c", "notes.txt"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, nil, 0o600))
	}
	files, err := ListSources(dir)
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "a.c"),
		filepath.Join(dir, "b.cc"),
		filepath.Join(dir, "inc", "x.hpp"),
	}, files)
}

func TestAnalyzeFileMissing(t *testing.T) {
	res, err := AnalyzeFile(context.Background(), filepath.Join(t.TempDir(), "nope.c"), Options{})
	require.NoError(t, err)
	require.Equal(t, cxx.LangC, res.Language)
	require.Nil(t, res.Unit)
	items := res.Session.Bag.Items()
	require.Len(t, items, 1)
	require.Equal(t, diag.IOLoadFileError, items[0].Code)
}
