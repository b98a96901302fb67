package symbols

import (
	"errors"
	"fmt"

	"fortio.org/safecast"
)

// Validate walks internal arenas checking structural invariants. Returns nil if
// everything is consistent; otherwise aggregates all detected issues.
func (t *Table) Validate() error {
	var errs []error

	prototypes := make(map[ScopeID]bool)
	for idx := 1; idx < len(t.Scopes.data); idx++ {
		if fn := t.Scopes.data[idx]; fn.Kind == ScopeFunction && fn.Prototype.IsValid() {
			prototypes[fn.Prototype] = true
		}
	}

	// Check scopes and their links.
	for idx := 1; idx < len(t.Scopes.data); idx++ {
		scopeID, err := toScopeID(idx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		scope := &t.Scopes.data[idx]
		if scope.Kind == ScopeInvalid {
			errs = append(errs, fmt.Errorf("scope %d has invalid kind", scopeID))
		}
		if !scope.Outer.IsValid() {
			if scopeID != t.root {
				errs = append(errs, fmt.Errorf("scope %d has no outer scope", scopeID))
			}
		} else if !t.validScope(scope.Outer) || scope.Outer == scopeID {
			errs = append(errs, fmt.Errorf("scope %d has invalid outer %d", scopeID, scope.Outer))
		} else if !prototypes[scopeID] && !t.registered(scopeID) {
			errs = append(errs, fmt.Errorf("scope %d is not registered in any nested table", scopeID))
		}
		for _, link := range t.links(scope) {
			if link.IsValid() && !t.validScope(link) {
				errs = append(errs, fmt.Errorf("scope %d links to invalid scope %d", scopeID, link))
			}
		}
		for _, u := range scope.Using {
			if t.validScope(u) && t.Scopes.data[u].Kind != ScopeNamespace {
				errs = append(errs, fmt.Errorf("scope %d uses non-namespace scope %d", scopeID, u))
			}
		}
	}

	// Check nested tables against child lists.
	for idx := 1; idx < len(t.Scopes.data); idx++ {
		scopeID, err := toScopeID(idx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		scope := t.Scopes.data[idx]
		for node, child := range scope.Nested {
			if !t.validScope(child) {
				errs = append(errs, fmt.Errorf("scope %d node %d maps to invalid scope %d", scopeID, node, child))
				continue
			}
			if !containsScope(scope.Children, child) {
				errs = append(errs, fmt.Errorf("scope %d nested scope %d missing from children", scopeID, child))
			}
		}
		for _, child := range scope.Children {
			found := false
			for _, c := range scope.Nested {
				if c == child {
					found = true
					break
				}
			}
			if !found {
				errs = append(errs, fmt.Errorf("scope %d child %d has no nested registration", scopeID, child))
			}
		}
	}

	// Check entry index consistency.
	for idx := 1; idx < len(t.Scopes.data); idx++ {
		scopeID, err := toScopeID(idx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		scope := t.Scopes.data[idx]
		symbolSet := make(map[SymbolID]struct{}, len(scope.Order))
		for _, id := range scope.Order {
			symbolSet[id] = struct{}{}
		}
		covered := make(map[SymbolID]struct{}, len(scope.Order))
		for name, bucket := range scope.Entries {
			for _, id := range bucket {
				if _, ok := symbolSet[id]; !ok {
					errs = append(errs, fmt.Errorf("scope %d entry %s references missing symbol %d", scopeID, name, id))
					continue
				}
				if sym := t.Symbols.Get(id); sym != nil && sym.Name != name {
					errs = append(errs, fmt.Errorf("scope %d entry %s holds symbol %d named %s", scopeID, name, id, sym.Name))
				}
				covered[id] = struct{}{}
			}
		}
		for _, id := range scope.Order {
			if _, ok := covered[id]; !ok {
				errs = append(errs, fmt.Errorf("scope %d symbol %d missing in entries", scopeID, id))
			}
		}
	}

	// Check symbols.
	for idx := 1; idx < len(t.Symbols.data); idx++ {
		symbolID, err := toSymbolID(idx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		symbol := t.Symbols.data[idx]
		if symbol.Kind == SymbolInvalid {
			errs = append(errs, fmt.Errorf("symbol %d has invalid kind", symbolID))
		}
		if symbol.Aliased.IsValid() && t.Symbols.Get(symbol.Aliased) == nil {
			errs = append(errs, fmt.Errorf("symbol %d aliases unknown symbol %d", symbolID, symbol.Aliased))
		}
		if !t.validScope(symbol.Scope) {
			errs = append(errs, fmt.Errorf("symbol %d has invalid scope %d", symbolID, symbol.Scope))
			continue
		}
		scope := t.Scopes.data[symbol.Scope]
		found := false
		for _, id := range scope.Order {
			if id == symbolID {
				found = true
				break
			}
		}
		if !found {
			errs = append(errs, fmt.Errorf("symbol %d is missing from scope %d list", symbolID, symbol.Scope))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

func (t *Table) validScope(id ScopeID) bool {
	return id.IsValid() && int(id) < len(t.Scopes.data)
}

func (t *Table) registered(id ScopeID) bool {
	outer := t.Scopes.Get(t.Scopes.data[id].Outer)
	if outer == nil {
		return false
	}
	for _, c := range outer.Nested {
		if c == id {
			return true
		}
	}
	return false
}

func (t *Table) links(s *Scope) []ScopeID {
	out := make([]ScopeID, 0, 4+len(s.Using)+len(s.Bases))
	out = append(out, s.TemplateParams, s.Prototype, s.OuterTemplateParams, s.Class)
	out = append(out, s.Using...)
	out = append(out, s.Bases...)
	return out
}

func toScopeID(idx int) (ScopeID, error) {
	value, err := safecast.Conv[uint32](idx)
	if err != nil {
		return NoScopeID, fmt.Errorf("scope index %d overflow: %w", idx, err)
	}
	return ScopeID(value), nil
}

func toSymbolID(idx int) (SymbolID, error) {
	value, err := safecast.Conv[uint32](idx)
	if err != nil {
		return NoSymbolID, fmt.Errorf("symbol index %d overflow: %w", idx, err)
	}
	return SymbolID(value), nil
}
