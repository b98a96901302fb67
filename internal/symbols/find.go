package symbols

import (
	"strconv"

	"cxxsema/internal/encoding"
)

// Find returns the symbols bound to name directly in scope, filtered by ctx.
// Precedence of the context bits is Scope, then Elaborated, then Type.
//
//	Scope       drop variables, consts and functions ([basic.lookup.qual])
//	Elaborated  keep classes and enums only ([basic.lookup.elab])
//	Type        keep type names only
//	otherwise   a type name is hidden by any other symbol ([basic.scope.hiding])
func (t *Table) Find(scopeID ScopeID, name encoding.Encoding, ctx LookupContext) SymbolSet {
	scope := t.Scopes.Get(scopeID)
	if scope == nil {
		return nil
	}
	ids := scope.Entries[name]
	if len(ids) == 0 {
		return nil
	}
	var out SymbolSet
	switch {
	case ctx.Has(ContextScope):
		for _, id := range ids {
			if k := t.kindOf(id); !k.IsVariable() && !k.IsFunction() {
				out.Add(id)
			}
		}
	case ctx.Has(ContextElaborated):
		for _, id := range ids {
			if k := t.kindOf(id); k == SymbolClass || k == SymbolEnum {
				out.Add(id)
			}
		}
	case ctx.Has(ContextType):
		for _, id := range ids {
			if t.kindOf(id).IsTypeName() {
				out.Add(id)
			}
		}
	default:
		typeName := NoSymbolID
		for _, id := range ids {
			if t.kindOf(id).IsTypeName() {
				typeName = id
				continue
			}
			out.Add(id)
		}
		if out.Empty() && typeName.IsValid() {
			out.Add(typeName)
		}
	}
	t.point("find", name, "scope", strconv.FormatUint(uint64(scopeID), 10), "ctx", ctx.String(), "found", strconv.Itoa(len(out)))
	return out
}

func (t *Table) kindOf(id SymbolID) SymbolKind {
	if sym := t.Symbols.Get(id); sym != nil {
		return sym.Kind
	}
	return SymbolInvalid
}
