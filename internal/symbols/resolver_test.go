package symbols

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"cxxsema/internal/diag"
	"cxxsema/internal/encoding"
	"cxxsema/internal/source"
	"cxxsema/internal/syntax"
)

func newResolverFixture(t *testing.T) (*fixture, *Resolver, *diag.Bag) {
	t.Helper()
	f := newFixture(t)
	bag := diag.NewBag(0)
	r := NewResolver(f.table, ResolverOptions{Reporter: diag.BagReporter{Bag: bag}, Nodes: f.nodes})
	return f, r, bag
}

func mustScope(t *testing.T) func(ScopeID, error) ScopeID {
	return func(id ScopeID, err error) ScopeID {
		t.Helper()
		if err != nil {
			t.Fatalf("enter scope: %v", err)
		}
		return id
	}
}

func TestResolverReopensNamespace(t *testing.T) {
	f, r, bag := newResolverFixture(t)
	first := f.node(syntax.KindNamespace, "N")
	n1 := mustScope(t)(r.EnterNamespace(first, encoding.Name("N")))
	a := f.node(syntax.KindDeclarator, "a")
	if _, err := r.Declare(encoding.Name("a"), NewVariable(tInt, a, true)); err != nil {
		t.Fatal(err)
	}
	r.Leave(n1)

	second := f.node(syntax.KindNamespace, "N")
	n2 := mustScope(t)(r.EnterNamespace(second, encoding.Name("N")))
	if n1 != n2 {
		t.Fatalf("expected the reopened namespace to reuse scope %d, got %d", n1, n2)
	}
	r.Leave(n2)

	if got, ok := f.table.FindScope(f.table.Root(), second); !ok || got != n1 {
		t.Fatalf("expected the second node registered for %d, got %d", n1, got)
	}
	if got := len(f.table.Scope(f.table.Root()).Children); got != 1 {
		t.Fatalf("expected one child scope, got %d", got)
	}
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	if err := f.table.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestResolverAnonymousNamespaceIsUsed(t *testing.T) {
	f, r, _ := newResolverFixture(t)
	ns := mustScope(t)(r.EnterNamespace(f.node(syntax.KindNamespace, ""), ""))
	hidden, _ := r.Declare(encoding.Name("hidden"), NewVariable(tInt, f.node(syntax.KindDeclarator, "hidden"), true))
	r.Leave(ns)
	got, err := f.table.Lookup(f.table.Root(), encoding.Name("hidden"), ContextDefault)
	if err != nil || len(got) != 1 || got[0] != hidden {
		t.Fatalf("expected anonymous namespace member, got %v (%v)", got, err)
	}
}

func TestResolverFunctionReplacesPrototype(t *testing.T) {
	f, r, bag := newResolverFixture(t)
	root := f.table.Root()
	protoNode := f.node(syntax.KindPrototype, "f(int p)")
	proto := mustScope(t)(r.EnterPrototype(protoNode))
	p, _ := r.Declare(encoding.Name("p"), NewVariable(tInt, f.node(syntax.KindDeclarator, "p"), true))
	r.Leave(proto)
	if _, err := r.Declare(encoding.Name("f"), NewFunction(encoding.FunctionType(tInt, tInt), f.node(syntax.KindFunction, "f"), true, 1, 0)); err != nil {
		t.Fatal(err)
	}

	bodyNode := f.node(syntax.KindFunction, "f")
	fn := mustScope(t)(r.EnterFunction(bodyNode, encoding.Name("f"), proto, NoScopeID))
	got, err := r.Lookup(encoding.Name("p"), ContextDefault)
	if err != nil || len(got) != 1 || got[0] != p {
		t.Fatalf("expected the parameter, got %v (%v)", got, err)
	}
	r.Leave(fn)

	if _, ok := f.table.FindScope(root, protoNode); ok {
		t.Fatalf("prototype should no longer be registered")
	}
	if got, ok := f.table.FindScope(root, bodyNode); !ok || got != fn {
		t.Fatalf("expected function scope under body node")
	}
	if err := f.table.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
}

func TestResolverClassTemplate(t *testing.T) {
	f, r, _ := newResolverFixture(t)
	root := f.table.Root()
	tparams := mustScope(t)(r.EnterTemplateParams(f.node(syntax.KindTemplateParams, "template<class T>")))
	tp, _ := r.Declare(encoding.Name("T"), NewDependent(encoding.Name("T"), f.node(syntax.KindDeclarator, "T")))
	classNode := f.node(syntax.KindClass, "box")
	tmpl, err := r.DeclareClass(encoding.Name("box"), NewClassTemplate(encoding.Name("box"), classNode, true))
	if err != nil {
		t.Fatal(err)
	}
	if sym := f.table.Symbol(tmpl); sym.Scope != root {
		t.Fatalf("expected the template declared in the root, got scope %d", sym.Scope)
	}
	class := mustScope(t)(r.EnterClass(classNode, encoding.Name("box"), nil))
	if s := f.table.Scope(class); s.Outer != root || s.TemplateParams != tparams {
		t.Fatalf("unexpected class links %+v", s)
	}
	got, err := r.Lookup(encoding.Name("T"), ContextType)
	if err != nil || len(got) != 1 || got[0] != tp {
		t.Fatalf("expected the template parameter, got %v (%v)", got, err)
	}
	r.Leave(class)
	r.Leave(tparams)

	if _, err := f.table.Lookup(root, encoding.Name("T"), ContextDefault); !IsUndefined(err) {
		t.Fatalf("template parameter leaked out: %v", err)
	}
	if err := f.table.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestResolverMergesForwardDeclaration(t *testing.T) {
	f, r, bag := newResolverFixture(t)
	fwd, err := r.DeclareClass(encoding.Name("A"), NewClass(encoding.Name("A"), f.node(syntax.KindClass, "A"), false))
	if err != nil {
		t.Fatal(err)
	}
	defNode := f.node(syntax.KindClass, "A")
	def, err := r.DeclareClass(encoding.Name("A"), NewClass(encoding.Name("A"), defNode, true))
	if err != nil || def != fwd {
		t.Fatalf("expected the forward declaration to be defined in place, got %d (%v)", def, err)
	}
	again, err := r.DeclareClass(encoding.Name("A"), NewClass(encoding.Name("A"), f.node(syntax.KindClass, "A"), false))
	if err != nil || again != fwd {
		t.Fatalf("expected a later forward declaration to resolve to %d, got %d (%v)", fwd, again, err)
	}
	if _, err := r.DeclareClass(encoding.Name("A"), NewClass(encoding.Name("A"), f.node(syntax.KindClass, "A"), true)); !IsMultiplyDefined(err) {
		t.Fatalf("expected redefinition error, got %v", err)
	}
	if bag.Len() != 1 || bag.Items()[0].Code != diag.SemaMultiplyDefined {
		t.Fatalf("expected one redefinition diagnostic, got %v", bag.Items())
	}
}

func TestResolverReportsDuplicates(t *testing.T) {
	fs := source.NewFileSet()
	file := fs.AddVirtual("dup.cc", []byte("int x;\nint x;\n"))
	f, r, bag := newResolverFixture(t)
	first := f.nodes.New(syntax.KindDeclarator, source.Span{File: file, Start: 4, End: 5}, "x")
	second := f.nodes.New(syntax.KindDeclarator, source.Span{File: file, Start: 11, End: 12}, "x")
	if _, err := r.Declare(encoding.Name("x"), NewVariable(tInt, first, true)); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Declare(encoding.Name("x"), NewVariable(tInt, second, true)); !IsMultiplyDefined(err) {
		t.Fatalf("expected MultiplyDefined, got %v", err)
	}
	items := bag.Items()
	if len(items) != 1 {
		t.Fatalf("expected one diagnostic, got %d", len(items))
	}
	d := items[0]
	if d.Code != diag.SemaMultiplyDefined || d.Primary.Start != 11 {
		t.Fatalf("unexpected diagnostic %+v", d)
	}
	if len(d.Notes) != 1 || d.Notes[0].Span.Start != 4 || d.Notes[0].Msg != "previous declaration here" {
		t.Fatalf("expected a note at the first declaration, got %+v", d.Notes)
	}
}

func TestResolverUseNamespace(t *testing.T) {
	f, r, bag := newResolverFixture(t)
	b := mustScope(t)(r.EnterNamespace(f.node(syntax.KindNamespace, "B"), encoding.Name("B")))
	v, _ := r.Declare(encoding.Name("v"), NewVariable(tInt, f.node(syntax.KindDeclarator, "v"), true))
	r.Leave(b)
	a := mustScope(t)(r.EnterNamespace(f.node(syntax.KindNamespace, "A"), encoding.Name("A")))
	if err := r.UseNamespace(f.node(syntax.KindUsingDirective, "B"), encoding.Name("B")); err != nil {
		t.Fatalf("using: %v", err)
	}
	got, err := r.Lookup(encoding.Name("v"), ContextDefault)
	if err != nil || len(got) != 1 || got[0] != v {
		t.Fatalf("expected v, got %v (%v)", got, err)
	}
	r.Leave(a)

	if err := r.UseNamespace(f.node(syntax.KindUsingDirective, "Nope"), encoding.Name("Nope")); !IsUndefined(err) {
		t.Fatalf("expected Undefined, got %v", err)
	}
	class := mustScope(t)(r.EnterClass(f.node(syntax.KindClass, "C"), encoding.Name("C"), nil))
	if err := r.UseNamespace(f.node(syntax.KindUsingDirective, "B"), encoding.Name("B")); !IsInternal(err) {
		t.Fatalf("expected InternalError inside a class, got %v", err)
	}
	r.Leave(class)
	codes := make([]diag.Code, 0, bag.Len())
	for _, d := range bag.Items() {
		codes = append(codes, d.Code)
	}
	if len(codes) != 2 || codes[0] != diag.SemaUndefined || codes[1] != diag.SemaBadUsing {
		t.Fatalf("unexpected diagnostics %v", codes)
	}
}

func TestResolverLeaveMismatchWarns(t *testing.T) {
	f, r, bag := newResolverFixture(t)
	outer := mustScope(t)(r.EnterBlock(f.node(syntax.KindBlock, "")))
	mustScope(t)(r.EnterBlock(f.node(syntax.KindBlock, "")))
	r.Leave(outer)
	if r.Depth() != 2 {
		t.Fatalf("expected one scope popped, depth %d", r.Depth())
	}
	if bag.Len() != 1 || bag.Items()[0].Code != diag.SemaScopeMismatch {
		t.Fatalf("expected a scope mismatch warning, got %v", bag.Items())
	}
	r.Leave(outer)
	r.Leave(NoScopeID)
	if r.Depth() != 1 || r.CurrentScope() != f.table.Root() {
		t.Fatalf("the root must stay open")
	}
}

func TestDumpAndSnapshot(t *testing.T) {
	f, r, _ := newResolverFixture(t)
	ns := mustScope(t)(r.EnterNamespace(f.node(syntax.KindNamespace, "N"), encoding.Name("N")))
	value := int64(3)
	r.Declare(encoding.Name("k"), NewConst(encoding.ConstOf(tInt), f.node(syntax.KindDeclarator, "k"), true, &value))
	r.Declare(encoding.Name("f"), NewFunctionTemplate(encoding.FunctionType(encoding.Builtin(encoding.TagVoid), tInt), f.node(syntax.KindFunction, "f"), false, 1, 0))
	r.Leave(ns)
	r.Declare(encoding.Name("p"), NewVariable(encoding.PointerTo(tChar), f.node(syntax.KindDeclarator, "p"), true))

	var buf bytes.Buffer
	if err := Dump(&buf, f.table, DumpOptions{}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"Namespace '<global>':",
		"  Namespace:" + pad(10) + "N",
		"  Variable:" + pad(9) + "p char*",
		"  Namespace 'N':",
		"    Const:" + pad(6) + "k const int (3)",
		"    Function template: f void(int) [declared]",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in\n%s", want, out)
		}
	}

	data, err := json.Marshal(f.table.Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatal(err)
	}
	restored, err := Restore(&snap)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	got, err := restored.Lookup(restored.Root(), encoding.ParseQualified("N::k"), ContextDefault)
	if err != nil || len(got) != 1 {
		t.Fatalf("lookup in restored table: %v (%v)", got, err)
	}
	if sym := restored.Symbol(got[0]); sym.Value == nil || *sym.Value != 3 || sym.Type != encoding.ConstOf(tInt) {
		t.Fatalf("unexpected restored symbol %+v", sym)
	}
	var again bytes.Buffer
	if err := Dump(&again, restored, DumpOptions{}); err != nil {
		t.Fatal(err)
	}
	if again.String() != out {
		t.Fatalf("dump differs after restore:\n%s\nvs\n%s", again.String(), out)
	}
}

// pad returns the spaces that follow a label of width w in Dump output.
func pad(w int) string { return strings.Repeat(" ", labelWidth-w+1) }

func TestResolverDeclareFunctionMergesRedeclaration(t *testing.T) {
	f, r, bag := newResolverFixture(t)
	typ := encoding.FunctionType(tInt, tInt)
	decl, err := r.DeclareFunction(encoding.Name("f"), NewFunction(typ, f.node(syntax.KindPrototype, "f"), false, 1, 0))
	if err != nil {
		t.Fatal(err)
	}
	body := f.node(syntax.KindFunction, "f")
	def, err := r.DeclareFunction(encoding.Name("f"), NewFunction(typ, body, true, 1, 0))
	if err != nil || def != decl {
		t.Fatalf("expected the definition to reuse %d, got %d (%v)", decl, def, err)
	}
	if sym := f.table.Symbol(def); !sym.Definition || sym.Node != body {
		t.Fatalf("expected the symbol to move to its definition, got %+v", sym)
	}
	other, err := r.DeclareFunction(encoding.Name("f"), NewFunction(encoding.FunctionType(tInt, tChar), f.node(syntax.KindPrototype, "f"), false, 1, 0))
	if err != nil || other == decl {
		t.Fatalf("expected a distinct overload, got %d (%v)", other, err)
	}
	if _, err := r.DeclareFunction(encoding.Name("f"), NewFunction(typ, f.node(syntax.KindFunction, "f"), true, 1, 0)); !IsMultiplyDefined(err) {
		t.Fatalf("expected a redefinition error, got %v", err)
	}
	if bag.Len() != 1 {
		t.Fatalf("expected one diagnostic, got %v", bag.Items())
	}
}

func TestResolverDeclareFunctionMergesDefaults(t *testing.T) {
	f, r, bag := newResolverFixture(t)
	typ := encoding.FunctionType(encoding.Builtin(encoding.TagVoid), tInt, tInt, tInt)

	first := NewFunction(typ, f.node(syntax.KindPrototype, "h"), false, 3, 0)
	first.MergeDefaults([]bool{false, false, true})
	id, err := r.DeclareFunction(encoding.Name("h"), first)
	if err != nil {
		t.Fatal(err)
	}
	if sym := f.table.Symbol(id); sym.DefaultArgs != 1 {
		t.Fatalf("expected one trailing default, got %+v", sym)
	}

	second := NewFunction(typ, f.node(syntax.KindPrototype, "h"), false, 3, 0)
	second.MergeDefaults([]bool{false, true, false})
	if again, err := r.DeclareFunction(encoding.Name("h"), second); err != nil || again != id {
		t.Fatalf("expected the redeclaration to reuse %d, got %d (%v)", id, again, err)
	}
	sym := f.table.Symbol(id)
	if sym.DefaultArgs != 2 {
		t.Fatalf("expected two trailing defaults after the merge, got %+v", sym)
	}

	// a gap keeps the leading default out of the trailing run
	gap := NewFunction(encoding.FunctionType(tInt, tInt, tInt), f.node(syntax.KindPrototype, "g"), false, 2, 0)
	gap.MergeDefaults([]bool{true, false})
	if gap.DefaultArgs != 0 {
		t.Fatalf("expected no trailing defaults, got %d", gap.DefaultArgs)
	}

	data, err := json.Marshal(f.table.Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatal(err)
	}
	restored, err := Restore(&snap)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := restored.Symbol(id); got.DefaultArgs != 2 || len(got.Defaulted) != 3 || !got.Defaulted[1] || !got.Defaulted[2] {
		t.Fatalf("defaults lost in the snapshot: %+v", got)
	}
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics %v", bag.Items())
	}
}

func TestResolverNestedTemplateParameters(t *testing.T) {
	// template<class T> struct S { template<class U> void f(U, T); };
	f, r, bag := newResolverFixture(t)
	outerParams := mustScope(t)(r.EnterTemplateParams(f.node(syntax.KindTemplateParams, "template<class T>")))
	tp, _ := r.Declare(encoding.Name("T"), NewDependent(encoding.Name("T"), f.node(syntax.KindDeclarator, "T")))
	classNode := f.node(syntax.KindClass, "S")
	if _, err := r.DeclareClass(encoding.Name("S"), NewClassTemplate(encoding.Name("S"), classNode, true)); err != nil {
		t.Fatal(err)
	}
	class := mustScope(t)(r.EnterClass(classNode, encoding.Name("S"), nil))

	innerParams := mustScope(t)(r.EnterTemplateParams(f.node(syntax.KindTemplateParams, "template<class U>")))
	if s := f.table.Scope(innerParams); s.OuterTemplateParams != outerParams {
		t.Fatalf("expected the member template to chain to %d, got %+v", outerParams, s)
	}
	up, _ := r.Declare(encoding.Name("U"), NewDependent(encoding.Name("U"), f.node(syntax.KindDeclarator, "U")))
	for name, want := range map[string]SymbolID{"T": tp, "U": up} {
		got, err := f.table.Lookup(innerParams, encoding.Name(name), ContextType)
		if err != nil || len(got) != 1 || got[0] != want {
			t.Fatalf("%s from the member template parameters: %v (%v)", name, got, err)
		}
	}

	fnType := encoding.FunctionType(encoding.Builtin(encoding.TagVoid), encoding.Name("U"), encoding.Name("T"))
	if _, err := r.DeclareFunction(encoding.Name("f"), NewFunctionTemplate(fnType, f.node(syntax.KindDeclarator, "f"), false, 2, 0)); err != nil {
		t.Fatal(err)
	}
	proto := mustScope(t)(r.EnterPrototype(f.node(syntax.KindPrototype, "(U, T)")))
	if s := f.table.Scope(proto); s.TemplateParams != innerParams || s.Outer != class {
		t.Fatalf("unexpected prototype links %+v", s)
	}
	for name, want := range map[string]SymbolID{"T": tp, "U": up} {
		got, err := r.Lookup(encoding.Name(name), ContextType)
		if err != nil || len(got) != 1 || got[0] != want {
			t.Fatalf("%s from the prototype of f: %v (%v)", name, got, err)
		}
	}
	r.Leave(proto)
	r.Leave(innerParams)

	if _, err := f.table.Lookup(class, encoding.Name("U"), ContextType); !IsUndefined(err) {
		t.Fatalf("member template parameter visible in the class: %v", err)
	}
	r.Leave(class)
	r.Leave(outerParams)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
}
