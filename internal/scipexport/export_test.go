package scipexport

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/sourcegraph/scip/bindings/go/scip"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"cxxsema/internal/driver"
	"cxxsema/internal/encoding"
	"cxxsema/internal/frontend/cxx"
	"cxxsema/internal/source"
	"cxxsema/internal/symbols"
	"cxxsema/internal/syntax"
)

const geoSrc = `namespace geo {
struct point { int x; };
int f(int);
int f(int, int);
}
namespace { int hidden; }
`

// geoResult declares by hand what the front end produces for geoSrc.
func geoResult(t *testing.T, root string) *driver.Result {
	t.Helper()
	s := driver.NewSession(driver.Options{})
	path := filepath.Join(root, "src", "geo.cc")
	file := s.FileSet.AddVirtual(path, []byte(geoSrc))
	at := func(kind syntax.Kind, text string) syntax.NodeID {
		start := bytes.Index([]byte(geoSrc), []byte(text))
		require.GreaterOrEqual(t, start, 0, text)
		span := source.Span{File: file, Start: uint32(start), End: uint32(start + len(text))}
		return s.Nodes.New(kind, span, text)
	}
	intT := encoding.Builtin(encoding.TagInt)

	r := symbols.NewResolver(s.Table, symbols.ResolverOptions{Nodes: s.Nodes, Reporter: s.Reporter()})
	ns, err := r.EnterNamespace(at(syntax.KindNamespace, "geo"), encoding.Name("geo"))
	require.NoError(t, err)
	classNode := at(syntax.KindClass, "point")
	_, err = r.DeclareClass(encoding.Name("point"), symbols.NewClass(encoding.Name("point"), classNode, true))
	require.NoError(t, err)
	cls, err := r.EnterClass(classNode, encoding.Name("point"), nil)
	require.NoError(t, err)
	_, err = r.Declare(encoding.Name("x"), symbols.NewVariable(intT, at(syntax.KindDeclarator, "x"), true))
	require.NoError(t, err)
	r.Leave(cls)
	_, err = r.DeclareFunction(encoding.Name("f"), symbols.NewFunction(encoding.FunctionType(intT, intT), at(syntax.KindDeclarator, "f(int)"), false, 1, 0))
	require.NoError(t, err)
	_, err = r.DeclareFunction(encoding.Name("f"), symbols.NewFunction(encoding.FunctionType(intT, intT, intT), at(syntax.KindDeclarator, "f(int, int)"), false, 2, 0))
	require.NoError(t, err)
	r.Leave(ns)
	anon, err := r.EnterNamespace(at(syntax.KindNamespace, "namespace {"), "")
	require.NoError(t, err)
	_, err = r.Declare(encoding.Name("hidden"), symbols.NewVariable(intT, at(syntax.KindDeclarator, "hidden"), true))
	require.NoError(t, err)
	r.Leave(anon)

	return &driver.Result{Path: path, File: file, Language: cxx.LangCXX, Session: s}
}

func TestBuildDocument(t *testing.T) {
	root := t.TempDir()
	index, err := Build([]*driver.Result{geoResult(t, root), nil}, Options{ProjectRoot: root})
	require.NoError(t, err)
	require.Len(t, index.Documents, 1)

	doc := index.Documents[0]
	require.Equal(t, "src/geo.cc", doc.RelativePath)
	require.Equal(t, scip.Language_CPP.String(), doc.Language)

	byName := map[string]*scip.SymbolInformation{}
	for _, info := range doc.Symbols {
		byName[info.Symbol] = info
		_, err := scip.ParseSymbol(info.Symbol)
		require.NoError(t, err, info.Symbol)
	}
	require.Contains(t, byName, "cxxsema . . . geo/")
	require.Contains(t, byName, "cxxsema . . . geo/point#")
	require.Contains(t, byName, "cxxsema . . . geo/f().")
	require.Contains(t, byName, "cxxsema . . . geo/f(+1).")

	x := byName["cxxsema . . . geo/point#x."]
	require.NotNil(t, x)
	require.Equal(t, scip.SymbolInformation_Field, x.Kind)
	require.Equal(t, "cxxsema . . . geo/point#", x.EnclosingSymbol)
	require.Equal(t, "cxxsema . . . geo/", byName["cxxsema . . . geo/point#"].EnclosingSymbol)

	for name := range byName {
		require.NotContains(t, name, "hidden", "anonymous namespace members are local")
	}

	var point *scip.Occurrence
	var forward int
	for _, occ := range doc.Occurrences {
		if occ.Symbol == "cxxsema . . . geo/point#" {
			point = occ
		}
		if occ.SymbolRoles&int32(scip.SymbolRole_ForwardDefinition) != 0 {
			forward++
		}
	}
	require.NotNil(t, point)
	require.Equal(t, []int32{1, 7, 12}, point.Range)
	require.Equal(t, int32(scip.SymbolRole_Definition), point.SymbolRoles)
	require.Equal(t, 2, forward, "both f prototypes are declarations")
}

func TestWriteRoundTrip(t *testing.T) {
	root := t.TempDir()
	index, err := Build([]*driver.Result{geoResult(t, root)}, Options{ProjectRoot: root, Arguments: []string{"export"}})
	require.NoError(t, err)

	path := filepath.Join(root, "index.scip")
	require.NoError(t, WriteFile(path, index))

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, index))
	var back scip.Index
	require.NoError(t, proto.Unmarshal(buf.Bytes(), &back))
	require.Equal(t, "cxxsema", back.Metadata.ToolInfo.Name)
	require.Equal(t, []string{"export"}, back.Metadata.ToolInfo.Arguments)
	require.Len(t, back.Documents, 1)
	require.Equal(t, len(index.Documents[0].Symbols), len(back.Documents[0].Symbols))
}

func TestEscape(t *testing.T) {
	require.Equal(t, "point", escape("point"))
	require.Equal(t, "`box<int>`", escape("box<int>"))
	require.Equal(t, "```0001`", escape("`0001"))
	require.Equal(t, "``", escape(""))
}
