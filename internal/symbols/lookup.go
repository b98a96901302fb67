package symbols

import (
	"strconv"

	"cxxsema/internal/encoding"
)

// UnqualifiedLookup searches name starting at scope and walking outwards as
// [basic.lookup.unqual] prescribes for the scope's kind. An empty set means
// the name was not found; an error is always an InternalError.
func (t *Table) UnqualifiedLookup(scopeID ScopeID, name encoding.Encoding, ctx LookupContext) (SymbolSet, error) {
	if t.Scopes.Get(scopeID) == nil {
		return nil, internalErrorf("unqualified lookup in unknown scope %d", scopeID)
	}
	searched := make(map[ScopeID]bool)
	found := t.unqualified(scopeID, name, ctx, searched)
	t.point("unqualified_lookup", name, "scope", strconv.FormatUint(uint64(scopeID), 10), "found", strconv.Itoa(len(found)))
	return found, nil
}

func (t *Table) unqualified(id ScopeID, name encoding.Encoding, ctx LookupContext, searched map[ScopeID]bool) SymbolSet {
	scope := t.Scopes.Get(id)
	if scope == nil {
		return nil
	}
	var found SymbolSet
	switch scope.Kind {
	case ScopeNamespace:
		found = t.namespaceUnqualified(id, name, ctx, searched)
		if ctx.Has(ContextUsing) {
			// a nominated namespace never continues outwards
			return found
		}
	case ScopeClass:
		found = t.Find(id, name, ctx)
		if found.Empty() && scope.TemplateParams.IsValid() {
			found = t.Find(scope.TemplateParams, name, ctx)
		}
		if found.Empty() {
			found = t.baseLookup(scope, name, ctx, map[ScopeID]bool{id: true})
		}
	case ScopeFunction:
		found = t.functionLocal(scope, id, name, ctx)
		if found.Empty() {
			for _, u := range scope.Using {
				if !searched[u] {
					found.Merge(t.namespaceUnqualified(u, name, ctx|ContextUsing, searched))
				}
			}
		}
		if found.Empty() && scope.Class.IsValid() {
			found = t.memberLookup(scope.Class, name, ctx, true, make(map[ScopeID]bool))
		}
	case ScopePrototype:
		found = t.Find(id, name, ctx)
		if found.Empty() && scope.TemplateParams.IsValid() {
			found = t.Find(scope.TemplateParams, name, ctx)
		}
	case ScopeTemplateParameter:
		found = t.Find(id, name, ctx)
		for tp := scope.OuterTemplateParams; found.Empty() && tp.IsValid(); {
			found = t.Find(tp, name, ctx)
			next := t.Scopes.Get(tp)
			if next == nil {
				break
			}
			tp = next.OuterTemplateParams
		}
	default:
		found = t.Find(id, name, ctx)
	}
	if !found.Empty() || !scope.Outer.IsValid() {
		return found
	}
	return t.unqualified(scope.Outer, name, ctx, searched)
}

// namespaceUnqualified searches one namespace and, failing that, the
// namespaces it nominates, transitively. searched guards against using
// cycles.
func (t *Table) namespaceUnqualified(id ScopeID, name encoding.Encoding, ctx LookupContext, searched map[ScopeID]bool) SymbolSet {
	searched[id] = true
	found := t.Find(id, name, ctx)
	if !found.Empty() {
		return found
	}
	scope := t.Scopes.Get(id)
	if scope == nil {
		return nil
	}
	for _, u := range scope.Using {
		if searched[u] {
			continue
		}
		found.Merge(t.namespaceUnqualified(u, name, ctx|ContextUsing, searched))
	}
	return found
}

// functionLocal merges the function body, its parameters and its template
// parameters.
func (t *Table) functionLocal(scope *Scope, id ScopeID, name encoding.Encoding, ctx LookupContext) SymbolSet {
	found := t.Find(id, name, ctx)
	if scope.Prototype.IsValid() {
		found.Merge(t.Find(scope.Prototype, name, ctx))
		if proto := t.Scopes.Get(scope.Prototype); proto != nil && proto.TemplateParams.IsValid() && proto.TemplateParams != scope.TemplateParams {
			found.Merge(t.Find(proto.TemplateParams, name, ctx))
		}
	}
	if scope.TemplateParams.IsValid() {
		found.Merge(t.Find(scope.TemplateParams, name, ctx))
	}
	return found
}

// memberLookup searches a class and then its bases. The class's own
// template parameters are consulted only when withTemplateParams is set.
func (t *Table) memberLookup(id ScopeID, name encoding.Encoding, ctx LookupContext, withTemplateParams bool, visited map[ScopeID]bool) SymbolSet {
	if visited[id] {
		return nil
	}
	visited[id] = true
	scope := t.Scopes.Get(id)
	if scope == nil {
		return nil
	}
	found := t.Find(id, name, ctx)
	if found.Empty() && withTemplateParams && scope.TemplateParams.IsValid() {
		found = t.Find(scope.TemplateParams, name, ctx)
	}
	if found.Empty() {
		found = t.baseLookup(scope, name, ctx, visited)
	}
	return found
}

// baseLookup visits direct bases in declaration order; the first base that
// yields anything wins. Ambiguity between bases is not diagnosed.
func (t *Table) baseLookup(scope *Scope, name encoding.Encoding, ctx LookupContext, visited map[ScopeID]bool) SymbolSet {
	for _, base := range scope.Bases {
		if found := t.memberLookup(base, name, ctx, false, visited); !found.Empty() {
			return found
		}
	}
	return nil
}

// QualifiedLookup searches name as the component of a qualified name that
// follows scope. Enclosing scopes are never consulted. An error is always an
// InternalError.
func (t *Table) QualifiedLookup(scopeID ScopeID, name encoding.Encoding, ctx LookupContext) (SymbolSet, error) {
	scope := t.Scopes.Get(scopeID)
	if scope == nil {
		return nil, internalErrorf("qualified lookup in unknown scope %d", scopeID)
	}
	var found SymbolSet
	switch scope.Kind {
	case ScopeNamespace:
		found = t.namespaceQualified(scopeID, name, ctx, make(map[ScopeID]bool))
	case ScopeClass:
		found = t.memberLookup(scopeID, name, ctx, false, make(map[ScopeID]bool))
	case ScopeFunction:
		found = t.functionLocal(scope, scopeID, name, ctx)
		if found.Empty() {
			searched := map[ScopeID]bool{scopeID: true}
			for _, u := range scope.Using {
				found.Merge(t.namespaceQualified(u, name, ctx, searched))
			}
		}
	default:
		found = t.Find(scopeID, name, ctx)
	}
	t.point("qualified_lookup", name, "scope", strconv.FormatUint(uint64(scopeID), 10), "found", strconv.Itoa(len(found)))
	return found, nil
}

// namespaceQualified implements [namespace.qual]: nominated namespaces are
// searched only when the namespace itself has nothing, and not at all for
// the unqualified name of a declaration.
func (t *Table) namespaceQualified(id ScopeID, name encoding.Encoding, ctx LookupContext, searched map[ScopeID]bool) SymbolSet {
	if searched[id] {
		return nil
	}
	searched[id] = true
	found := t.Find(id, name, ctx)
	if !found.Empty() || (ctx == ContextDeclaration && !name.IsQualified()) {
		return found
	}
	scope := t.Scopes.Get(id)
	if scope == nil {
		return found
	}
	for _, u := range scope.Using {
		found.Merge(t.namespaceQualified(u, name, ctx, searched))
	}
	return found
}

// FindSymbolScope returns the scope a namespace, class or class template
// symbol introduces. A typedef is followed to what it aliases. name is only
// used for error reporting.
func (t *Table) FindSymbolScope(name encoding.Encoding, id SymbolID) (ScopeID, error) {
	sym := t.Symbols.Get(id)
	if sym == nil {
		return NoScopeID, internalErrorf("unknown symbol %d", id)
	}
	if sym.Kind == SymbolTypedef {
		if target, _ := t.ResolveTypedef(id); target != id {
			if resolved := t.Symbols.Get(target); resolved != nil {
				sym = resolved
			}
		}
	}
	if !sym.HasScope() {
		return NoScopeID, &TypeError{Name: name, Type: sym.Type}
	}
	scope, ok := t.FindScope(sym.Scope, sym.Node)
	if !ok {
		if sym.Kind != SymbolNamespace && !sym.Definition {
			// incomplete class
			return NoScopeID, &TypeError{Name: name, Type: sym.Type}
		}
		return NoScopeID, internalErrorf("undeclared scope for '%s'", name.Unmangled())
	}
	return scope, nil
}

// ResolveTypedef follows a chain of typedefs to the symbol it finally names
// and returns it with its type. Symbols that are not typedefs, and typedefs
// of unknown targets, resolve to themselves.
func (t *Table) ResolveTypedef(id SymbolID) (SymbolID, encoding.Encoding) {
	seen := make(map[SymbolID]bool)
	for {
		sym := t.Symbols.Get(id)
		if sym == nil {
			return NoSymbolID, ""
		}
		if sym.Kind != SymbolTypedef || !sym.Aliased.IsValid() || seen[id] {
			return id, sym.Type
		}
		seen[id] = true
		id = sym.Aliased
	}
}
