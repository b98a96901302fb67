//go:build cgo

package cxx

import (
	"context"
	"errors"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"cxxsema/internal/diag"
	"cxxsema/internal/encoding"
	"cxxsema/internal/source"
	"cxxsema/internal/symbols"
	"cxxsema/internal/syntax"
	"cxxsema/internal/trace"
)

// maxSyntaxErrors caps the parse error diagnostics of one unit.
const maxSyntaxErrors = 20

// Analyze parses src and declares everything it finds into opts.Table.
// Semantic problems become diagnostics on opts.Reporter; the returned error
// is reserved for parse failures, cancellation and broken table invariants.
func Analyze(ctx context.Context, file source.FileID, src []byte, opts Options) (*Unit, error) {
	if opts.Table == nil || opts.Nodes == nil {
		return nil, errors.New("cxx: Analyze needs a symbol table and a node arena")
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.FromContext(ctx)
	}
	namer := opts.Namer
	if namer == nil {
		namer = &encoding.AnonymousNamer{}
	}

	span := trace.Begin(tracer, trace.ScopePass, "parse", trace.ParentSpan(ctx))
	tree, err := Parse(ctx, src, opts.Language)
	span.End("")
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	w := &walker{
		ctx:      ctx,
		src:      src,
		file:     file,
		nodes:    opts.Nodes,
		table:    opts.Table,
		reporter: opts.Reporter,
		tracer:   tracer,
		namer:    namer,
		calls:    !opts.SkipCalls,
		unit:     &Unit{File: file, Language: opts.Language},
	}
	w.res = symbols.NewResolver(opts.Table, symbols.ResolverOptions{Reporter: opts.Reporter, Nodes: opts.Nodes})

	span = trace.Begin(tracer, trace.ScopePass, "declare", trace.ParentSpan(ctx))
	before := opts.Table.Symbols.Len()
	root := tree.RootNode()
	w.unit.Root = w.register(root, syntax.KindTranslationUnit)
	if root.HasError() {
		w.syntaxErrors(root)
	}
	w.children(root)
	w.unit.Declared = opts.Table.Symbols.Len() - before
	span.WithExtra("symbols", strconv.Itoa(w.unit.Declared)).
		WithExtra("calls", strconv.Itoa(len(w.unit.Calls))).
		End("")
	if w.fatal != nil {
		return w.unit, w.fatal
	}
	return w.unit, nil
}

type walker struct {
	ctx      context.Context
	src      []byte
	file     source.FileID
	nodes    *syntax.Nodes
	table    *symbols.Table
	res      *symbols.Resolver
	reporter diag.Reporter
	tracer   trace.Tracer
	namer    *encoding.AnonymousNamer
	calls    bool
	unit     *Unit

	// template is set while the declaration directly owned by a template
	// parameter list is being walked.
	template    bool
	parseErrors int
	fatal       error
}

func (w *walker) span(n *sitter.Node) source.Span {
	return source.Span{File: w.file, Start: n.StartByte(), End: n.EndByte()}
}

func (w *walker) text(n *sitter.Node) string { return n.Content(w.src) }

func (w *walker) register(n *sitter.Node, kind syntax.Kind) syntax.NodeID {
	return w.nodes.New(kind, w.span(n), excerpt(w.text(n)))
}

// excerpt keeps the first line of s, shortened for messages.
func excerpt(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > 48 {
		s = string(r[:48]) + "..."
	}
	return s
}

// check records InternalErrors, which abort the unit. Everything else has
// been reported already.
func (w *walker) check(err error) {
	if err != nil && w.fatal == nil && symbols.IsInternal(err) && !symbols.IsBadUsing(err) {
		w.fatal = err
	}
}

func (w *walker) stopped() bool {
	if w.fatal != nil {
		return true
	}
	if err := w.ctx.Err(); err != nil {
		w.fatal = err
		return true
	}
	return false
}

func (w *walker) takeTemplate() bool {
	t := w.template
	w.template = false
	return t
}

func (w *walker) children(n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if w.stopped() {
			return
		}
		w.node(n.NamedChild(i))
	}
}

func (w *walker) node(n *sitter.Node) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "namespace_definition":
		w.namespace(n)
	case "class_specifier", "struct_specifier", "union_specifier", "enum_specifier":
		w.typeSpecifier(n, true)
	case "function_definition":
		w.functionDefinition(n)
	case "declaration", "field_declaration":
		w.declaration(n, false)
	case "type_definition":
		w.declaration(n, true)
	case "alias_declaration":
		w.alias(n)
	case "using_declaration":
		w.using(n)
	case "template_declaration":
		w.templateDeclaration(n)
	case "compound_statement", "for_statement", "for_range_loop":
		w.block(n)
	case "call_expression":
		w.call(n)
	case "comment", "preproc_include", "preproc_def", "preproc_function_def", "preproc_call",
		"access_specifier", "string_literal", "number_literal", "char_literal":
	default:
		w.children(n)
	}
}

func (w *walker) syntaxErrors(n *sitter.Node) {
	if w.parseErrors >= maxSyntaxErrors {
		return
	}
	switch {
	case n.IsMissing():
		w.parseErrors++
		diag.ReportError(w.reporter, diag.SynParseError, w.span(n), "missing '"+n.Type()+"'").Emit()
		return
	case n.Type() == "ERROR":
		w.parseErrors++
		diag.ReportError(w.reporter, diag.SynParseError, w.span(n), "syntax error near '"+excerpt(w.text(n))+"'").Emit()
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c != nil && (c.HasError() || c.IsMissing()) {
			w.syntaxErrors(c)
		}
	}
}

func (w *walker) namespace(n *sitter.Node) {
	node := w.register(n, syntax.KindNamespace)
	names := []string{""}
	nameNode := n.ChildByFieldName("name")
	if nameNode != nil {
		names = names[:0]
		for _, part := range strings.Split(w.text(nameNode), "::") {
			part = strings.TrimSpace(part)
			if part != "" {
				names = append(names, part)
			}
		}
	}
	opened := make([]symbols.ScopeID, 0, len(names))
	for _, name := range names {
		var enc encoding.Encoding
		if name != "" {
			enc = w.identifier(nameNode, name)
		}
		id, err := w.res.EnterNamespace(node, enc)
		w.check(err)
		opened = append(opened, id)
	}
	if body := n.ChildByFieldName("body"); body != nil {
		w.children(body)
	}
	for i := len(opened) - 1; i >= 0; i-- {
		w.res.Leave(opened[i])
	}
}

// typeSpecifier handles class, struct, union and enum specifiers and returns
// the name they introduce or refer to. standalone is set for "struct S;".
func (w *walker) typeSpecifier(n *sitter.Node, standalone bool) encoding.Encoding {
	tmpl := w.takeTemplate()
	isEnum := n.Type() == "enum_specifier"
	var name encoding.Encoding
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		name = w.name(nameNode)
	} else {
		name = w.namer.Anonymous()
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		w.elaborated(n, name, isEnum, tmpl, standalone)
		return name
	}
	if isEnum {
		w.enum(n, name, body)
		return name
	}

	node := w.register(n, syntax.KindClass)
	if !name.IsQualified() && !name.IsTemplateID() {
		sym := symbols.NewClass(name, node, true)
		if tmpl {
			sym = symbols.NewClassTemplate(name, node, true)
		}
		_, err := w.res.DeclareClass(name, sym)
		w.check(err)
	}
	bases := w.bases(n)
	scope, err := w.res.EnterClass(node, lastComponent(name), bases)
	w.check(err)
	w.children(body)
	w.res.Leave(scope)
	return name
}

// elaborated handles a class or enum named without a body. A forward
// declaration always declares; an elaborated reference declares only when
// the name is not visible yet.
func (w *walker) elaborated(n *sitter.Node, name encoding.Encoding, isEnum, tmpl, standalone bool) {
	if name.IsQualified() || name.IsTemplateID() {
		return
	}
	if !standalone {
		_, ok, err := w.res.Probe(name, symbols.ContextElaborated)
		w.check(err)
		if ok || err != nil {
			return
		}
	}
	var sym symbols.Symbol
	switch {
	case isEnum:
		sym = symbols.NewEnum(name, w.register(n, syntax.KindEnum), false)
	case tmpl:
		sym = symbols.NewClassTemplate(name, w.register(n, syntax.KindClass), false)
	default:
		sym = symbols.NewClass(name, w.register(n, syntax.KindClass), false)
	}
	_, err := w.res.DeclareClass(name, sym)
	w.check(err)
}

// bases resolves the base class list of a class specifier to scopes.
// Dependent and unresolved bases are skipped.
func (w *walker) bases(n *sitter.Node) []symbols.ScopeID {
	var clause *sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == "base_class_clause" {
			clause = c
			break
		}
	}
	if clause == nil {
		return nil
	}
	var out []symbols.ScopeID
	for i := 0; i < int(clause.NamedChildCount()); i++ {
		c := clause.NamedChild(i)
		switch c.Type() {
		case "type_identifier", "qualified_identifier", "template_type":
		default:
			continue
		}
		name := w.name(c)
		found, err := w.res.Lookup(name, symbols.ContextScope)
		if err != nil {
			w.check(w.res.Report(err, w.register(c, syntax.KindDeclarator)))
			continue
		}
		id, ok := found.Single()
		if !ok || w.table.Symbol(id).Kind == symbols.SymbolDependent {
			continue
		}
		scope, err := w.table.FindSymbolScope(name, id)
		if err != nil {
			w.check(w.res.Report(err, w.register(c, syntax.KindDeclarator)))
			continue
		}
		out = append(out, scope)
	}
	return out
}

// enum declares an enumeration and, for unscoped enums, its enumerators in
// the enclosing scope.
func (w *walker) enum(n *sitter.Node, name encoding.Encoding, body *sitter.Node) {
	node := w.register(n, syntax.KindEnum)
	if !name.IsQualified() {
		_, err := w.res.DeclareClass(name, symbols.NewEnum(name, node, true))
		w.check(err)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if t := n.Child(i).Type(); t == "class" || t == "struct" {
			return // enums have no member scope, so scoped enumerators are skipped
		}
	}
	var typ encoding.Encoding
	typ.SimpleConst()
	next := int64(0)
	for i := 0; i < int(body.NamedChildCount()); i++ {
		e := body.NamedChild(i)
		if e.Type() != "enumerator" {
			continue
		}
		nameNode := e.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		if value := e.ChildByFieldName("value"); value != nil {
			if v, ok := w.constInt(value); ok {
				next = v
			}
		}
		v := next
		next++
		_, err := w.res.Declare(w.identifier(nameNode, w.text(nameNode)), symbols.NewConst(typ, w.register(nameNode, syntax.KindDeclarator), true, &v))
		w.check(err)
	}
}

func (w *walker) templateDeclaration(n *sitter.Node) {
	params := n.ChildByFieldName("parameters")
	if params == nil {
		w.children(n)
		return
	}
	scope, err := w.res.EnterTemplateParams(w.register(params, syntax.KindTemplateParams))
	w.check(err)
	for i := 0; i < int(params.NamedChildCount()); i++ {
		w.templateParameter(params.NamedChild(i))
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if sameNode(c, params) || c.Type() == "requires_clause" {
			continue
		}
		if w.stopped() {
			break
		}
		w.template = true
		w.node(c)
		w.template = false
	}
	w.res.Leave(scope)
}

func (w *walker) templateParameter(p *sitter.Node) {
	var nameNode *sitter.Node
	dependent := true
	switch p.Type() {
	case "type_parameter_declaration", "variadic_type_parameter_declaration":
		nameNode = firstOfType(p, "type_identifier")
	case "optional_type_parameter_declaration":
		nameNode = p.ChildByFieldName("name")
	case "template_template_parameter_declaration":
		for i := 0; i < int(p.NamedChildCount()); i++ {
			if c := p.NamedChild(i); strings.HasSuffix(c.Type(), "type_parameter_declaration") {
				w.templateParameter(c)
			}
		}
		return
	case "parameter_declaration", "optional_parameter_declaration", "variadic_parameter_declaration":
		dependent = false
	default:
		return
	}
	if dependent {
		if nameNode == nil {
			return
		}
		name := w.identifier(nameNode, w.text(nameNode))
		_, err := w.res.Declare(name, symbols.NewDependent(name, w.register(nameNode, syntax.KindDeclarator)))
		w.check(err)
		return
	}
	// non-type parameter
	base := w.baseType(p, p.ChildByFieldName("type"))
	d := w.declarator(p.ChildByFieldName("declarator"), base)
	if d.name.Empty() {
		return
	}
	_, err := w.res.Declare(d.name, symbols.NewConst(d.typ, w.register(d.nameNode, syntax.KindDeclarator), true, nil))
	w.check(err)
}

// declaration handles declarations, member declarations and typedefs.
func (w *walker) declaration(n *sitter.Node, typedef bool) {
	tmpl := w.takeTemplate()
	typeNode := n.ChildByFieldName("type")
	decls := fieldChildren(n, "declarator")
	if len(decls) == 0 {
		if typeNode != nil && isClassSpecifier(typeNode) {
			w.template = tmpl
			w.typeSpecifier(typeNode, true)
		}
		return
	}
	var base encoding.Encoding
	if typeNode == nil {
		base = encoding.Builtin(encoding.TagNoReturn) // constructor, destructor, conversion
	} else {
		base = w.baseType(n, typeNode)
	}
	extern := w.hasSpecifier(n, "extern")
	for _, dn := range decls {
		if w.stopped() {
			return
		}
		w.declare(dn, base, typedef, extern, tmpl)
	}
	if value := n.ChildByFieldName("default_value"); value != nil {
		w.node(value)
	}
}

func (w *walker) declare(dn *sitter.Node, base encoding.Encoding, typedef, extern, tmpl bool) {
	d := w.declarator(dn, base)
	if d.name.Empty() {
		return
	}
	switch {
	case typedef:
		node := w.register(d.nameNode, syntax.KindDeclarator)
		_, err := w.res.Declare(d.name, symbols.NewTypedef(d.typ, node, w.aliasTarget(d.typ)))
		w.check(err)
	case d.fn != nil:
		_, ps := w.prototype(d.fn)
		if d.name.IsQualified() || d.name.IsTemplateID() {
			return
		}
		node := w.register(d.nameNode, syntax.KindDeclarator)
		_, err := w.res.DeclareFunction(d.name, functionSymbol(d.typ, node, false, ps, tmpl))
		w.check(err)
	default:
		if d.init != nil {
			w.node(d.init)
		}
		if d.name.IsQualified() {
			return // definition of a static member declared in its class
		}
		node := w.register(d.nameNode, syntax.KindDeclarator)
		sym := symbols.NewVariable(d.typ, node, !extern)
		if d.typ.Front() == encoding.TagConst && d.init != nil {
			if v, ok := w.constInt(d.init); ok {
				sym = symbols.NewConst(d.typ, node, true, &v)
			}
		}
		_, err := w.res.Declare(d.name, sym)
		w.check(err)
	}
}

func functionSymbol(typ encoding.Encoding, node syntax.NodeID, definition bool, ps params, tmpl bool) symbols.Symbol {
	sym := symbols.NewFunction(typ, node, definition, len(ps.list), 0)
	if tmpl {
		sym = symbols.NewFunctionTemplate(typ, node, definition, len(ps.list), 0)
	}
	sym.MergeDefaults(ps.defaulted)
	return sym
}

// aliasTarget finds the entity a typedef of typ refers to. Several visible
// type names are fine as long as they all alias the same entity, as after
// "struct S {}; typedef struct S S;".
func (w *walker) aliasTarget(typ encoding.Encoding) symbols.SymbolID {
	if !typ.IsSimpleName() && !typ.IsQualified() && !typ.IsTemplateID() {
		return symbols.NoSymbolID
	}
	found, ok, err := w.res.Probe(typ, symbols.ContextType)
	w.check(err)
	if !ok {
		return symbols.NoSymbolID
	}
	target := symbols.NoSymbolID
	for _, id := range found {
		resolved, _ := w.table.ResolveTypedef(id)
		if target.IsValid() && resolved != target {
			return symbols.NoSymbolID
		}
		target = resolved
	}
	return target
}

// prototype opens the parameter scope of a function declarator, declares
// the named parameters and closes it again.
func (w *walker) prototype(fn *sitter.Node) (symbols.ScopeID, params) {
	ps := w.parameters(fn.ChildByFieldName("parameters"))
	scope, err := w.res.EnterPrototype(w.register(fn, syntax.KindPrototype))
	w.check(err)
	for _, p := range ps.list {
		if p.name.Empty() {
			continue
		}
		_, err := w.res.Declare(p.name, symbols.NewVariable(p.typ, w.register(p.nameNode, syntax.KindDeclarator), true))
		w.check(err)
	}
	w.res.Leave(scope)
	return scope, ps
}

func (w *walker) functionDefinition(n *sitter.Node) {
	tmpl := w.takeTemplate()
	base := encoding.Builtin(encoding.TagNoReturn)
	if typeNode := n.ChildByFieldName("type"); typeNode != nil {
		base = w.baseType(n, typeNode)
	}
	d := w.declarator(n.ChildByFieldName("declarator"), base)
	if d.fn == nil || d.name.Empty() {
		w.children(n)
		return
	}
	proto, ps := w.prototype(d.fn)
	node := w.register(n, syntax.KindFunction)
	class := symbols.NoScopeID
	switch {
	case d.name.IsTemplateID():
	case d.name.IsQualified():
		class = w.ownerClass(d.name.Scope(), node)
	default:
		_, err := w.res.DeclareFunction(d.name, functionSymbol(d.typ, node, true, ps, tmpl))
		w.check(err)
	}
	scope, err := w.res.EnterFunction(node, lastComponent(d.name), proto, class)
	w.check(err)
	if !scope.IsValid() {
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == "field_initializer_list" {
			w.children(c)
		}
	}
	if body := n.ChildByFieldName("body"); body != nil {
		w.children(body)
	}
	w.res.Leave(scope)
}

// ownerClass resolves the scope part of an out-of-line member definition.
// Only classes are returned; a namespace qualifier yields no owner.
func (w *walker) ownerClass(scopeName encoding.Encoding, node syntax.NodeID) symbols.ScopeID {
	found, err := w.res.Lookup(scopeName, symbols.ContextScope)
	if err != nil {
		w.check(w.res.Report(err, node))
		return symbols.NoScopeID
	}
	id, ok := found.Single()
	if !ok {
		return symbols.NoScopeID
	}
	scope, err := w.table.FindSymbolScope(scopeName, id)
	if err != nil {
		w.check(w.res.Report(err, node))
		return symbols.NoScopeID
	}
	if s := w.table.Scope(scope); s == nil || s.Kind != symbols.ScopeClass {
		return symbols.NoScopeID
	}
	return scope
}

func (w *walker) alias(n *sitter.Node) {
	w.takeTemplate()
	nameNode := n.ChildByFieldName("name")
	typeNode := n.ChildByFieldName("type")
	if nameNode == nil || typeNode == nil {
		return
	}
	typ := w.typeDescriptor(typeNode)
	name := w.identifier(nameNode, w.text(nameNode))
	_, err := w.res.Declare(name, symbols.NewTypedef(typ, w.register(nameNode, syntax.KindDeclarator), w.aliasTarget(typ)))
	w.check(err)
}

// using handles using-directives. Using-declarations are not modeled.
func (w *walker) using(n *sitter.Node) {
	directive := false
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == "namespace" {
			directive = true
			break
		}
	}
	count := int(n.NamedChildCount())
	if !directive || count == 0 {
		return
	}
	target := n.NamedChild(count - 1)
	w.check(w.res.UseNamespace(w.register(n, syntax.KindUsingDirective), w.name(target)))
}

func (w *walker) block(n *sitter.Node) {
	scope, err := w.res.EnterBlock(w.register(n, syntax.KindBlock))
	w.check(err)
	w.children(n)
	w.res.Leave(scope)
}

func isClassSpecifier(n *sitter.Node) bool {
	switch n.Type() {
	case "class_specifier", "struct_specifier", "union_specifier", "enum_specifier":
		return true
	}
	return false
}

func (w *walker) hasSpecifier(n *sitter.Node, keyword string) bool {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "storage_class_specifier" && w.text(c) == keyword {
			return true
		}
	}
	return false
}

// fieldChildren returns every child of n stored under field, in order.
func fieldChildren(n *sitter.Node, field string) []*sitter.Node {
	cursor := sitter.NewTreeCursor(n)
	defer cursor.Close()
	if !cursor.GoToFirstChild() {
		return nil
	}
	var out []*sitter.Node
	for {
		if cursor.CurrentFieldName() == field {
			out = append(out, cursor.CurrentNode())
		}
		if !cursor.GoToNextSibling() {
			return out
		}
	}
}

func firstOfType(n *sitter.Node, typ string) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == typ {
			return c
		}
	}
	return nil
}

func lastNamed(n *sitter.Node) *sitter.Node {
	if count := int(n.NamedChildCount()); count > 0 {
		return n.NamedChild(count - 1)
	}
	return nil
}

func sameNode(a, b *sitter.Node) bool {
	return a != nil && b != nil && a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

// lastComponent returns the unqualified tail of a name.
func lastComponent(name encoding.Encoding) encoding.Encoding {
	if !name.IsQualified() {
		return name
	}
	comps, err := name.Components()
	if err != nil || len(comps) == 0 {
		return name
	}
	return comps[len(comps)-1]
}
