package symbols

import (
	"errors"
	"fmt"

	"cxxsema/internal/diag"
	"cxxsema/internal/encoding"
	"cxxsema/internal/source"
	"cxxsema/internal/syntax"
)

// ResolverOptions configures resolver construction.
type ResolverOptions struct {
	Reporter diag.Reporter
	// Nodes resolves node ids to spans for diagnostics. May be nil.
	Nodes *syntax.Nodes
}

// Resolver drives scope management while a front end walks a translation
// unit: it keeps the stack of open scopes, declares into the right one and
// turns table errors into diagnostics.
type Resolver struct {
	table                 *Table
	nodes                 *syntax.Nodes
	reporter              diag.Reporter
	stack                 []ScopeID
	scopeMismatchReported map[ScopeID]bool
}

// NewResolver wires a resolver to table with the root namespace open.
func NewResolver(table *Table, opts ResolverOptions) *Resolver {
	r := &Resolver{
		table:                 table,
		nodes:                 opts.Nodes,
		reporter:              opts.Reporter,
		stack:                 make([]ScopeID, 0, 8),
		scopeMismatchReported: make(map[ScopeID]bool),
	}
	r.stack = append(r.stack, table.Root())
	return r
}

// Table returns the table being populated.
func (r *Resolver) Table() *Table { return r.table }

// CurrentScope returns the scope at the top of the stack.
func (r *Resolver) CurrentScope() ScopeID {
	if len(r.stack) == 0 {
		return NoScopeID
	}
	return r.stack[len(r.stack)-1]
}

// Depth reports how many scopes are open, the root included.
func (r *Resolver) Depth() int { return len(r.stack) }

func (r *Resolver) push(id ScopeID) ScopeID {
	r.stack = append(r.stack, id)
	return id
}

// templateContext splits the top of the stack: when a template parameter
// list is open, entities declared by the template belong to its outer scope
// and see the parameters through their TemplateParams link.
func (r *Resolver) templateContext() (outer, params ScopeID) {
	top := r.CurrentScope()
	if scope := r.table.Scopes.Get(top); scope != nil && scope.Kind == ScopeTemplateParameter {
		return scope.Outer, top
	}
	return top, NoScopeID
}

// EnterNamespace opens the namespace called name (empty for an anonymous
// one). Reopening an existing namespace re-registers it under node. The
// namespace is entered even when declaring its name fails.
func (r *Resolver) EnterNamespace(node syntax.NodeID, name encoding.Encoding) (ScopeID, error) {
	parent := r.CurrentScope()
	if existing, ok := r.table.FindNamespace(parent, name); ok {
		if err := r.table.DeclareScope(parent, node, existing); err != nil {
			return r.push(existing), r.report(err, node)
		}
		return r.push(existing), nil
	}
	id := r.table.Scopes.New(ScopeNamespace, parent, node, name)
	if err := r.table.DeclareScope(parent, node, id); err != nil {
		return r.push(id), r.report(err, node)
	}
	var err error
	if name.Empty() {
		// unnamed namespaces behave as if nominated by a using-directive
		err = r.table.Use(parent, id)
	} else {
		_, err = r.table.Declare(parent, name, NewNamespace(node))
	}
	return r.push(id), r.report(err, node)
}

// EnterClass opens the body of a class. bases are the scopes of its direct
// base classes in declaration order.
func (r *Resolver) EnterClass(node syntax.NodeID, name encoding.Encoding, bases []ScopeID) (ScopeID, error) {
	outer, params := r.templateContext()
	id := r.table.Scopes.New(ScopeClass, outer, node, name)
	scope := r.table.Scopes.Get(id)
	scope.Bases = append(scope.Bases, bases...)
	scope.TemplateParams = params
	err := r.table.DeclareScope(outer, node, id)
	return r.push(id), r.report(err, node)
}

// EnterPrototype opens the parameter list of a function declarator.
func (r *Resolver) EnterPrototype(node syntax.NodeID) (ScopeID, error) {
	outer, params := r.templateContext()
	id := r.table.Scopes.New(ScopePrototype, outer, node, "")
	r.table.Scopes.Get(id).TemplateParams = params
	err := r.table.DeclareScope(outer, node, id)
	return r.push(id), r.report(err, node)
}

// EnterFunction opens a function body whose parameters were declared in
// prototype. The body replaces the prototype in its outer scope's nested
// table. class is the owning class of an out-of-line member definition.
func (r *Resolver) EnterFunction(node syntax.NodeID, name encoding.Encoding, prototype, class ScopeID) (ScopeID, error) {
	proto := r.table.Scopes.Get(prototype)
	if proto == nil || proto.Kind != ScopePrototype {
		err := internalErrorf("function body without a prototype scope")
		return NoScopeID, r.report(err, node)
	}
	outer := proto.Outer
	if err := r.table.RemoveScope(outer, proto.Node); err != nil {
		return NoScopeID, r.report(err, node)
	}
	id := r.table.Scopes.New(ScopeFunction, outer, node, name)
	scope := r.table.Scopes.Get(id)
	scope.Prototype = prototype
	scope.TemplateParams = proto.TemplateParams
	scope.Class = class
	err := r.table.DeclareScope(outer, node, id)
	return r.push(id), r.report(err, node)
}

// EnterBlock opens a compound statement.
func (r *Resolver) EnterBlock(node syntax.NodeID) (ScopeID, error) {
	parent := r.CurrentScope()
	id := r.table.Scopes.New(ScopeLocal, parent, node, "")
	err := r.table.DeclareScope(parent, node, id)
	return r.push(id), r.report(err, node)
}

// EnterTemplateParams opens a template parameter list.
func (r *Resolver) EnterTemplateParams(node syntax.NodeID) (ScopeID, error) {
	parent := r.CurrentScope()
	id := r.table.Scopes.New(ScopeTemplateParameter, parent, node, "")
	if p := r.table.Scopes.Get(parent); p != nil {
		switch {
		case p.Kind == ScopeTemplateParameter:
			r.table.Scopes.Get(id).OuterTemplateParams = parent
		case p.TemplateParams.IsValid():
			r.table.Scopes.Get(id).OuterTemplateParams = p.TemplateParams
		}
	}
	err := r.table.DeclareScope(parent, node, id)
	return r.push(id), r.report(err, node)
}

// Leave pops the current scope, validating against the expected one. In debug
// builds a mismatch triggers panic; release builds emit a warning diagnostic.
func (r *Resolver) Leave(expected ScopeID) {
	if len(r.stack) <= 1 {
		return // the root stays open
	}
	top := r.stack[len(r.stack)-1]
	if expected.IsValid() && top != expected {
		debugScopeMismatch(expected, top)
		r.reportScopeMismatch(expected, top)
	}
	r.stack = r.stack[:len(r.stack)-1]
}

// declaringScope is where a symbol of kind declared at the current point
// lands. Entities introduced by a template skip its parameter scope.
func (r *Resolver) declaringScope(kind SymbolKind) ScopeID {
	switch kind {
	case SymbolClass, SymbolClassTemplate, SymbolEnum, SymbolFunction, SymbolFunctionTemplate, SymbolTypedef:
		outer, _ := r.templateContext()
		return outer
	}
	return r.CurrentScope()
}

// Declare installs sym under name in the current declaring scope.
func (r *Resolver) Declare(name encoding.Encoding, sym Symbol) (SymbolID, error) {
	id, err := r.table.Declare(r.declaringScope(sym.Kind), name, sym)
	return id, r.report(err, sym.Node)
}

// DeclareClass declares a class, enum or class template, merging it with an
// earlier forward declaration of the same entity. A definition following a
// forward declaration updates the existing symbol in place.
func (r *Resolver) DeclareClass(name encoding.Encoding, sym Symbol) (SymbolID, error) {
	scopeID := r.declaringScope(sym.Kind)
	if scope := r.table.Scopes.Get(scopeID); scope != nil {
		for _, id := range scope.Entries[name] {
			existing := r.table.Symbols.Get(id)
			if existing == nil || existing.Kind != sym.Kind {
				continue
			}
			if sym.Definition {
				return id, r.report(r.table.Define(id, sym.Node), sym.Node)
			}
			return id, nil
		}
	}
	id, err := r.table.Declare(scopeID, name, sym)
	return id, r.report(err, sym.Node)
}

// DeclareFunction declares a function or function template. A redeclaration
// with the same type in the same scope resolves to the earlier symbol, so
// a prototype and its definition form one overload. Default arguments
// accumulate across redeclarations. Two definitions clash.
func (r *Resolver) DeclareFunction(name encoding.Encoding, sym Symbol) (SymbolID, error) {
	scopeID := r.declaringScope(sym.Kind)
	if scope := r.table.Scopes.Get(scopeID); scope != nil {
		for _, id := range scope.Entries[name] {
			existing := r.table.Symbols.Get(id)
			if existing == nil || existing.Kind != sym.Kind || existing.Type != sym.Type {
				continue
			}
			if existing.Definition && sym.Definition {
				err := &MultiplyDefinedError{Name: name, Declaration: sym.Node, Original: existing.Node}
				return id, r.report(err, sym.Node)
			}
			if sym.Definition {
				existing.Definition = true
				existing.Node = sym.Node
			}
			existing.MergeDefaults(sym.Defaulted)
			return id, nil
		}
	}
	id, err := r.table.Declare(scopeID, name, sym)
	return id, r.report(err, sym.Node)
}

// UseNamespace handles "using namespace name;" at the current point. A
// directive inside a block is attached to the enclosing function.
func (r *Resolver) UseNamespace(node syntax.NodeID, name encoding.Encoding) error {
	scopeID := r.CurrentScope()
	for {
		scope := r.table.Scopes.Get(scopeID)
		if scope == nil || scope.Kind != ScopeLocal {
			break
		}
		scopeID = scope.Outer
	}
	found, err := r.table.Lookup(r.CurrentScope(), name, ContextScope)
	if err != nil {
		return r.report(err, node)
	}
	id, err := r.table.single(name, found, r.CurrentScope())
	if err != nil {
		return r.report(err, node)
	}
	if r.table.kindOf(id) != SymbolNamespace {
		err = &TypeError{Name: name, Type: r.table.Symbols.Get(id).Type}
		return r.report(err, node)
	}
	ns, err := r.table.FindSymbolScope(name, id)
	if err != nil {
		return r.report(err, node)
	}
	return r.report(r.table.Use(scopeID, ns), node)
}

// Lookup resolves name from the current scope.
func (r *Resolver) Lookup(name encoding.Encoding, ctx LookupContext) (SymbolSet, error) {
	return r.table.Lookup(r.CurrentScope(), name, ctx)
}

// Probe is Lookup without a not-found error.
func (r *Resolver) Probe(name encoding.Encoding, ctx LookupContext) (SymbolSet, bool, error) {
	return r.table.Probe(r.CurrentScope(), name, ctx)
}

// Report turns a table error into a diagnostic at node and returns it
// unchanged. nil is passed through.
func (r *Resolver) Report(err error, node syntax.NodeID) error {
	return r.report(err, node)
}

func (r *Resolver) report(err error, node syntax.NodeID) error {
	if err == nil || r.reporter == nil {
		return err
	}
	span := r.span(node)
	var (
		multi     *MultiplyDefinedError
		undefined *UndefinedError
		typeErr   *TypeError
		internal  *InternalError
	)
	switch {
	case errors.As(err, &multi):
		b := diag.ReportError(r.reporter, diag.SemaMultiplyDefined, span, multi.Error())
		if prev := r.span(multi.Original); prev != (source.Span{}) {
			b.WithNote(prev, "previous declaration here")
		}
		b.Emit()
	case errors.As(err, &undefined):
		diag.ReportError(r.reporter, diag.SemaUndefined, span, undefined.Error()).Emit()
	case errors.As(err, &typeErr):
		diag.ReportError(r.reporter, diag.SemaTypeError, span, typeErr.Error()).Emit()
	case errors.As(err, &internal):
		code := diag.SemaInternalError
		if internal.Msg == msgBadUsing {
			code = diag.SemaBadUsing
		}
		diag.ReportError(r.reporter, code, span, internal.Error()).Emit()
	default:
		diag.ReportError(r.reporter, diag.SemaError, span, err.Error()).Emit()
	}
	return err
}

func (r *Resolver) span(node syntax.NodeID) source.Span {
	if r.nodes == nil || !node.IsValid() {
		return source.Span{}
	}
	return r.nodes.Span(node)
}

func (r *Resolver) reportScopeMismatch(expected, actual ScopeID) {
	if r.reporter == nil {
		return
	}
	if actual.IsValid() && r.scopeMismatchReported[actual] {
		return
	}
	if actual.IsValid() {
		r.scopeMismatchReported[actual] = true
	}

	var primary source.Span
	var actualLabel string
	if scope := r.table.Scopes.Get(actual); scope != nil {
		primary = r.span(scope.Node)
		actualLabel = fmt.Sprintf("%s scope #%d", scope.Kind, actual)
	} else {
		actualLabel = fmt.Sprintf("scope #%d", actual)
	}

	expectedLabel := "unknown scope"
	expectedScope := r.table.Scopes.Get(expected)
	if expectedScope != nil {
		expectedLabel = fmt.Sprintf("%s scope #%d", expectedScope.Kind, expected)
	}

	msg := fmt.Sprintf("scope stack mismatch: closing %s while expecting %s", actualLabel, expectedLabel)
	builder := diag.ReportWarning(r.reporter, diag.SemaScopeMismatch, primary, msg)
	if expectedScope != nil {
		builder.WithNote(r.span(expectedScope.Node), "expected scope declared here")
	}
	builder.Emit()
}
