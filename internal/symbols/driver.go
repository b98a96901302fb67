package symbols

import (
	"errors"

	"cxxsema/internal/encoding"
)

// Lookup resolves a possibly qualified name as seen from scope.
//
// The first component of a qualified name is looked up unqualified with
// ContextScope added (or denotes the root for "::"), every later one is
// looked up qualified in the scope the previous component named. All but the
// last component must resolve to exactly one scope-bearing symbol. A
// component naming a template parameter stops the walk: the rest of the name
// is dependent and the parameter is returned.
//
// The result is never empty on success. Failures are *UndefinedError,
// *TypeError or *InternalError.
func (t *Table) Lookup(scopeID ScopeID, name encoding.Encoding, ctx LookupContext) (SymbolSet, error) {
	if !name.IsQualified() {
		found, err := t.UnqualifiedLookup(scopeID, lookupKey(name), ctx)
		if err != nil {
			return nil, err
		}
		if found.Empty() {
			return nil, &UndefinedError{Name: name, Scope: scopeID}
		}
		return found, nil
	}

	it := name.Names()
	first, ok := it.Next()
	if !ok {
		return nil, internalErrorf("malformed name %s: %v", name, it.Err())
	}
	var current ScopeID
	if first.IsGlobalScope() {
		current = t.Global(scopeID)
	} else {
		found, err := t.UnqualifiedLookup(scopeID, lookupKey(first), ctx|ContextScope)
		if err != nil {
			return nil, err
		}
		id, err := t.single(first, found, scopeID)
		if err != nil {
			return nil, err
		}
		if t.kindOf(id) == SymbolDependent {
			return SymbolSet{id}, nil
		}
		if current, err = t.FindSymbolScope(first, id); err != nil {
			return nil, err
		}
	}

	for {
		comp, ok := it.Next()
		if !ok {
			if err := it.Err(); err != nil {
				return nil, internalErrorf("malformed name %s: %v", name, err)
			}
			// "::" alone or a trailing global marker
			return nil, &UndefinedError{Name: name, Scope: current}
		}
		found, err := t.QualifiedLookup(current, lookupKey(comp), ctx)
		if err != nil {
			return nil, err
		}
		if it.Done() {
			if found.Empty() {
				return nil, &UndefinedError{Name: comp, Scope: current}
			}
			return found, nil
		}
		id, err := t.single(comp, found, current)
		if err != nil {
			return nil, err
		}
		if t.kindOf(id) == SymbolDependent {
			return SymbolSet{id}, nil
		}
		if current, err = t.FindSymbolScope(comp, id); err != nil {
			return nil, err
		}
	}
}

// Probe is Lookup for speculative queries: a name that is not there, or
// that names the wrong kind of entity, is reported through found rather
// than an error. Only an InternalError is returned.
func (t *Table) Probe(scopeID ScopeID, name encoding.Encoding, ctx LookupContext) (SymbolSet, bool, error) {
	found, err := t.Lookup(scopeID, name, ctx)
	if err == nil {
		return found, true, nil
	}
	var internal *InternalError
	if errors.As(err, &internal) {
		return nil, false, err
	}
	return nil, false, nil
}

// single demands exactly one symbol for a component that must denote a
// scope. More than one can only be an overload set.
func (t *Table) single(name encoding.Encoding, found SymbolSet, scope ScopeID) (SymbolID, error) {
	switch len(found) {
	case 0:
		return NoSymbolID, &UndefinedError{Name: name, Scope: scope}
	case 1:
		return found[0], nil
	}
	var typ encoding.Encoding
	if sym := t.Symbols.Get(found[0]); sym != nil {
		typ = sym.Type
	}
	return NoSymbolID, &TypeError{Name: name, Type: typ}
}

// lookupKey maps a template-id to the name of its template.
func lookupKey(name encoding.Encoding) encoding.Encoding {
	if name.IsTemplateID() {
		if n := name.TemplateName(); !n.Empty() {
			return n
		}
	}
	return name
}
