package symbols

import (
	"fmt"
	"strconv"

	"fortio.org/safecast"

	"cxxsema/internal/encoding"
	"cxxsema/internal/syntax"
	"cxxsema/internal/trace"
)

// Hints provide optional capacity suggestions for the symbol table arenas.
type Hints struct{ Scopes, Symbols uint }

// Table aggregates the scope and symbol arenas of one analysis. The root
// namespace is allocated with the table and lives as long as it does.
type Table struct {
	Scopes  *Scopes
	Symbols *Symbols
	root    ScopeID
	tracer  trace.Tracer
}

// NewTable builds a fresh table with optional capacity hints.
func NewTable(h Hints) *Table {
	scopeCap, err := safecast.Conv[uint32](h.Scopes)
	if err != nil {
		panic(fmt.Errorf("scope capacity overflow: %w", err))
	}
	symCap, err := safecast.Conv[uint32](h.Symbols)
	if err != nil {
		panic(fmt.Errorf("symbol capacity overflow: %w", err))
	}
	t := &Table{
		Scopes:  NewScopes(scopeCap),
		Symbols: NewSymbols(symCap),
		tracer:  trace.Nop,
	}
	t.root = t.Scopes.New(ScopeNamespace, NoScopeID, syntax.NoNodeID, "")
	return t
}

// SetTracer routes per-operation events to tr. nil disables tracing.
func (t *Table) SetTracer(tr trace.Tracer) {
	if tr == nil {
		tr = trace.Nop
	}
	t.tracer = tr
}

// Root returns the global namespace.
func (t *Table) Root() ScopeID { return t.root }

// Global returns the outermost scope enclosing id.
func (t *Table) Global(id ScopeID) ScopeID {
	for {
		scope := t.Scopes.Get(id)
		if scope == nil || !scope.Outer.IsValid() {
			return id
		}
		id = scope.Outer
	}
}

// Scope is shorthand for t.Scopes.Get.
func (t *Table) Scope(id ScopeID) *Scope { return t.Scopes.Get(id) }

// Symbol is shorthand for t.Symbols.Get.
func (t *Table) Symbol(id SymbolID) *Symbol { return t.Symbols.Get(id) }

// Declare binds name to sym in scope. Functions may always be added to an
// overload set; any other symbol must form an allowed pair with each
// non-function already bound to the name, otherwise a MultiplyDefinedError
// is returned and nothing is declared.
func (t *Table) Declare(scopeID ScopeID, name encoding.Encoding, sym Symbol) (SymbolID, error) {
	scope := t.Scopes.Get(scopeID)
	if scope == nil {
		return NoSymbolID, internalErrorf("declare '%s' into unknown scope %d", name, scopeID)
	}
	if sym.Kind == SymbolInvalid {
		return NoSymbolID, internalErrorf("declare '%s' without a kind", name)
	}
	if !sym.Kind.IsFunction() {
		for _, id := range scope.Entries[name] {
			existing := t.Symbols.Get(id)
			if existing == nil || existing.Kind.IsFunction() {
				continue
			}
			if !t.canShareName(id, existing, &sym) {
				return NoSymbolID, &MultiplyDefinedError{Name: name, Declaration: sym.Node, Original: existing.Node}
			}
		}
	}
	sym.Name = name
	sym.Scope = scopeID
	id := t.Symbols.New(&sym)
	scope.Entries[name] = append(scope.Entries[name], id)
	scope.Order = append(scope.Order, id)
	t.point("declare", name, "kind", sym.Kind.String(), "scope", strconv.FormatUint(uint64(scopeID), 10))
	return id, nil
}

// canShareName decides whether next may join existing under one name.
func (t *Table) canShareName(existingID SymbolID, existing, next *Symbol) bool {
	switch {
	case existing.Kind == SymbolNamespace || next.Kind == SymbolNamespace:
		return false
	case existing.Kind == SymbolTypedef && next.Kind == SymbolTypedef:
		return existing.Type.Empty() || next.Type.Empty() || existing.Type == next.Type
	case existing.Kind == SymbolTypedef && isEntityType(next.Kind):
		return t.aliasesEntity(existing, NoSymbolID, next)
	case isEntityType(existing.Kind) && next.Kind == SymbolTypedef:
		return t.aliasesEntity(next, existingID, existing)
	case isEntityType(existing.Kind) && next.Kind.IsVariable(),
		existing.Kind.IsVariable() && isEntityType(next.Kind):
		// the variable hides the type name; see Find
		return true
	}
	return false
}

func isEntityType(k SymbolKind) bool {
	return k == SymbolType || k == SymbolClass || k == SymbolEnum
}

// aliasesEntity reports whether typedef may refer to entity (whose id is
// entityID when already declared).
func (t *Table) aliasesEntity(typedef *Symbol, entityID SymbolID, entity *Symbol) bool {
	if !typedef.Aliased.IsValid() || typedef.Aliased == entityID {
		return true
	}
	target := t.Symbols.Get(typedef.Aliased)
	return target != nil && target.Kind == entity.Kind && target.Type == entity.Type
}

// Define turns a forward-declared class, enum or class template into its
// definition at node.
func (t *Table) Define(id SymbolID, node syntax.NodeID) error {
	sym := t.Symbols.Get(id)
	if sym == nil {
		return internalErrorf("define unknown symbol %d", id)
	}
	switch sym.Kind {
	case SymbolClass, SymbolEnum, SymbolClassTemplate:
	default:
		return internalErrorf("cannot define %s '%s' after its declaration", sym.Kind, sym.Name)
	}
	if sym.Definition {
		return &MultiplyDefinedError{Name: sym.Name, Declaration: node, Original: sym.Node}
	}
	sym.Definition = true
	sym.Node = node
	return nil
}

// DeclareScope registers child as the scope introduced by node inside
// parent.
func (t *Table) DeclareScope(parentID ScopeID, node syntax.NodeID, child ScopeID) error {
	parent := t.Scopes.Get(parentID)
	if parent == nil || t.Scopes.Get(child) == nil {
		return internalErrorf("register scope %d in unknown scope %d", child, parentID)
	}
	if prev, ok := parent.Nested[node]; ok && prev != child {
		return internalErrorf("node %d already opens scope %d", node, prev)
	}
	parent.Nested[node] = child
	parent.addChild(child)
	return nil
}

// RemoveScope drops the registration of node in parent.
func (t *Table) RemoveScope(parentID ScopeID, node syntax.NodeID) error {
	parent := t.Scopes.Get(parentID)
	if parent == nil {
		return internalErrorf("remove scope from unknown scope %d", parentID)
	}
	child, ok := parent.Nested[node]
	if !ok {
		return internalErrorf("attempt to remove unknown scope")
	}
	delete(parent.Nested, node)
	parent.dropChild(child)
	return nil
}

// FindScope returns the scope node opened inside scope.
func (t *Table) FindScope(scopeID ScopeID, node syntax.NodeID) (ScopeID, bool) {
	scope := t.Scopes.Get(scopeID)
	if scope == nil {
		return NoScopeID, false
	}
	id, ok := scope.Nested[node]
	return id, ok
}

// FindNamespace returns the namespace called name nested directly in scope.
// An empty name finds the anonymous namespace.
func (t *Table) FindNamespace(scopeID ScopeID, name encoding.Encoding) (ScopeID, bool) {
	scope := t.Scopes.Get(scopeID)
	if scope == nil {
		return NoScopeID, false
	}
	for _, id := range scope.Children {
		if child := t.Scopes.Get(id); child != nil && child.Kind == ScopeNamespace && child.Name == name {
			return id, true
		}
	}
	return NoScopeID, false
}

// Use records a using-directive nominating ns inside scope. Only namespace
// and function scopes accept one.
func (t *Table) Use(scopeID, ns ScopeID) error {
	scope := t.Scopes.Get(scopeID)
	if scope == nil {
		return internalErrorf("using directive in unknown scope %d", scopeID)
	}
	if scope.Kind != ScopeNamespace && scope.Kind != ScopeFunction {
		return &InternalError{Msg: msgBadUsing}
	}
	target := t.Scopes.Get(ns)
	if target == nil {
		return internalErrorf("using directive nominates unknown scope %d", ns)
	}
	if target.Kind != ScopeNamespace {
		return &TypeError{Name: target.Name}
	}
	if ns == scopeID || containsScope(scope.Using, ns) {
		return nil
	}
	scope.Using = append(scope.Using, ns)
	t.point("use", target.Name, "scope", strconv.FormatUint(uint64(scopeID), 10))
	return nil
}

func (t *Table) point(op string, name encoding.Encoding, kv ...string) {
	if !t.tracer.Admits(trace.ScopeLookup) {
		return
	}
	trace.Point(t.tracer, trace.ScopeLookup, op, name.Unmangled(), kv...)
}
