// Package scipexport turns analysis results into a SCIP index so that
// code-intelligence tools can navigate C and C++ declarations.
package scipexport

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	"cxxsema/internal/driver"
	"cxxsema/internal/encoding"
	"cxxsema/internal/frontend/cxx"
	"cxxsema/internal/source"
	"cxxsema/internal/symbols"
	"cxxsema/internal/syntax"
	"cxxsema/internal/version"
)

// Scheme prefixes every global symbol string.
const Scheme = "cxxsema"

// Options configure Build.
type Options struct {
	// ProjectRoot is the directory document paths are made relative to.
	ProjectRoot string
	// Arguments are recorded in the index metadata.
	Arguments []string
}

// Build creates one document per result. Results without a session are
// skipped.
func Build(results []*driver.Result, opts Options) (*scip.Index, error) {
	root, err := filepath.Abs(opts.ProjectRoot)
	if err != nil {
		return nil, err
	}
	index := &scip.Index{
		Metadata: &scip.Metadata{
			Version: scip.ProtocolVersion_UnspecifiedProtocolVersion,
			ToolInfo: &scip.ToolInfo{
				Name:      "cxxsema",
				Version:   version.Plain(),
				Arguments: opts.Arguments,
			},
			ProjectRoot:          "file://" + filepath.ToSlash(root),
			TextDocumentEncoding: scip.TextEncoding_UTF8,
		},
	}
	for _, res := range results {
		if res == nil || res.Session == nil || res.Session.FileSet.Get(res.File) == nil {
			continue
		}
		doc, err := document(res, root)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", res.Path, err)
		}
		index.Documents = append(index.Documents, doc)
	}
	return index, nil
}

// Write serializes the index as protobuf.
func Write(w io.Writer, index *scip.Index) error {
	data, err := proto.Marshal(index)
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// WriteFile writes the index to path, conventionally index.scip.
func WriteFile(path string, index *scip.Index) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, index); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

type builder struct {
	res   *driver.Result
	snap  *symbols.Snapshot
	names map[symbols.SymbolID]string
	doc   *scip.Document
}

func document(res *driver.Result, root string) (*scip.Document, error) {
	rel := res.Path
	if abs, err := filepath.Abs(res.Path); err == nil {
		if r, err := filepath.Rel(root, abs); err == nil && !strings.HasPrefix(r, "..") {
			rel = r
		}
	}
	lang := scip.Language_CPP
	if res.Language == cxx.LangC {
		lang = scip.Language_C
	}
	b := &builder{
		res:   res,
		snap:  res.Session.Table.Snapshot(),
		names: make(map[symbols.SymbolID]string),
		doc: &scip.Document{
			Language:         lang.String(),
			RelativePath:     filepath.ToSlash(rel),
			PositionEncoding: scip.PositionEncoding_UTF8CodeUnitOffsetFromLineStart,
		},
	}
	b.disambiguate()
	for i := range b.snap.Symbols {
		b.symbol(&b.snap.Symbols[i])
	}
	if res.Unit != nil {
		for i := range res.Unit.Calls {
			b.call(&res.Unit.Calls[i])
		}
	}
	return b.doc, nil
}

// disambiguate names every symbol up front so overloads get stable
// suffixes in declaration order.
func (b *builder) disambiguate() {
	overloads := make(map[string]int)
	for i := range b.snap.Symbols {
		rec := &b.snap.Symbols[i]
		if b.isLocal(rec) {
			b.names[rec.ID] = "local " + strconv.FormatUint(uint64(rec.ID), 10)
			continue
		}
		kind, _ := symbols.ParseSymbolKind(rec.Kind)
		var desc string
		name := escape(encoding.FromBytes(rec.Name).Unmangled())
		switch {
		case kind == symbols.SymbolNamespace:
			desc = name + "/"
		case kind.IsFunction():
			key := strconv.FormatUint(uint64(rec.Scope), 10) + "\x00" + name
			n := overloads[key]
			overloads[key] = n + 1
			dis := ""
			if n > 0 {
				dis = "+" + strconv.Itoa(n)
			}
			desc = name + "(" + dis + ")."
		case kind.IsTypeName() || kind == symbols.SymbolClassTemplate:
			desc = name + "#"
		default:
			desc = name + "."
		}
		b.names[rec.ID] = Scheme + " . . . " + b.prefix(rec) + desc
	}
}

func (b *builder) prefix(rec *symbols.SymbolRecord) string {
	var sb strings.Builder
	for _, scope := range b.snap.Enclosing(rec.ID) {
		sb.WriteString(escape(encoding.FromBytes(scope.Name).Unmangled()))
		if scope.Kind == symbols.ScopeClass.String() {
			sb.WriteByte('#')
		} else {
			sb.WriteByte('/')
		}
	}
	return sb.String()
}

// isLocal reports symbols that cannot be named from another translation
// unit: anything inside a function, a template parameter list or an
// anonymous namespace.
func (b *builder) isLocal(rec *symbols.SymbolRecord) bool {
	for scope := b.snap.Scope(rec.Scope); scope != nil; scope = b.snap.Scope(scope.Outer) {
		switch scope.Kind {
		case symbols.ScopeNamespace.String():
			if len(scope.Name) == 0 && scope.Outer.IsValid() {
				return true
			}
		case symbols.ScopeClass.String():
		default:
			return true
		}
	}
	return false
}

func (b *builder) symbol(rec *symbols.SymbolRecord) {
	kind, _ := symbols.ParseSymbolKind(rec.Kind)
	name := b.names[rec.ID]
	if !strings.HasPrefix(name, "local ") {
		info := &scip.SymbolInformation{
			Symbol:      name,
			Kind:        scipKind(kind, b.snap.Scope(rec.Scope)),
			DisplayName: encoding.FromBytes(rec.Name).Unmangled(),
		}
		if len(rec.Type) > 0 && kind != symbols.SymbolNamespace {
			info.Documentation = []string{"```cpp\n" + signature(rec) + "\n```"}
		}
		if enclosing := b.enclosingSymbol(rec); enclosing != "" {
			info.EnclosingSymbol = enclosing
		}
		b.doc.Symbols = append(b.doc.Symbols, info)
	}

	rng, ok := b.rangeOf(b.res.Session.Nodes.Span(rec.Node))
	if !ok || rec.Node == syntax.NoNodeID {
		return
	}
	role := int32(scip.SymbolRole_Definition)
	if !rec.Definition {
		role = int32(scip.SymbolRole_ForwardDefinition)
	}
	b.doc.Occurrences = append(b.doc.Occurrences, &scip.Occurrence{
		Range:       rng,
		Symbol:      name,
		SymbolRoles: role,
	})
}

// enclosingSymbol finds the namespace or class symbol owning rec's scope.
func (b *builder) enclosingSymbol(rec *symbols.SymbolRecord) string {
	enclosing := b.snap.Enclosing(rec.ID)
	if len(enclosing) == 0 {
		return ""
	}
	scope := enclosing[len(enclosing)-1]
	outer := b.snap.Scope(scope.Outer)
	if outer == nil {
		return ""
	}
	for _, id := range outer.Symbols {
		sym := b.snap.Symbol(id)
		if sym == nil || string(sym.Name) != string(scope.Name) {
			continue
		}
		switch sym.Kind {
		case symbols.SymbolNamespace.String(), symbols.SymbolClass.String(), symbols.SymbolClassTemplate.String():
			return b.names[id]
		}
	}
	return ""
}

func (b *builder) call(site *cxx.CallSite) {
	target, ok := site.Target()
	if !ok {
		return
	}
	rng, ok := b.rangeOf(site.Span)
	if !ok {
		return
	}
	b.doc.Occurrences = append(b.doc.Occurrences, &scip.Occurrence{
		Range:  rng,
		Symbol: b.names[target],
	})
}

// rangeOf converts a span to SCIP's zero-based [line, col, (endLine,) endCol].
func (b *builder) rangeOf(span source.Span) ([]int32, bool) {
	if span.Empty() {
		return nil, false
	}
	start, end := b.res.Session.FileSet.Resolve(span)
	if start.Line == 0 {
		return nil, false
	}
	sl, sc := int32(start.Line-1), int32(start.Col-1) //nolint:gosec // positions fit
	el, ec := int32(end.Line-1), int32(end.Col-1)     //nolint:gosec // positions fit
	if sl == el {
		return []int32{sl, sc, ec}, true
	}
	return []int32{sl, sc, el, ec}, true
}

func signature(rec *symbols.SymbolRecord) string {
	name := encoding.FromBytes(rec.Name).Unmangled()
	typ := encoding.FromBytes(rec.Type).Unmangled()
	switch rec.Kind {
	case symbols.SymbolTypedef.String():
		return "typedef " + typ + " " + name
	case symbols.SymbolClass.String(), symbols.SymbolClassTemplate.String(), symbols.SymbolEnum.String(), symbols.SymbolType.String():
		return typ
	}
	return name + ": " + typ
}

func scipKind(kind symbols.SymbolKind, scope *symbols.ScopeRecord) scip.SymbolInformation_Kind {
	inClass := scope != nil && scope.Kind == symbols.ScopeClass.String()
	switch kind {
	case symbols.SymbolNamespace:
		return scip.SymbolInformation_Namespace
	case symbols.SymbolClass, symbols.SymbolClassTemplate:
		return scip.SymbolInformation_Class
	case symbols.SymbolEnum:
		return scip.SymbolInformation_Enum
	case symbols.SymbolType, symbols.SymbolTypedef:
		return scip.SymbolInformation_TypeAlias
	case symbols.SymbolFunction, symbols.SymbolFunctionTemplate:
		if inClass {
			return scip.SymbolInformation_Method
		}
		return scip.SymbolInformation_Function
	case symbols.SymbolConst:
		return scip.SymbolInformation_Constant
	case symbols.SymbolDependent:
		return scip.SymbolInformation_TypeParameter
	case symbols.SymbolVariable:
		if inClass {
			return scip.SymbolInformation_Field
		}
		return scip.SymbolInformation_Variable
	}
	return scip.SymbolInformation_UnspecifiedKind
}

// escape backquotes descriptor names that are not plain identifiers.
func escape(name string) string {
	plain := name != ""
	for _, r := range name {
		if !(r == '_' || r == '+' || r == '-' || r == '$' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			plain = false
			break
		}
	}
	if plain {
		return name
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
