package symbols

import (
	"fmt"

	"fortio.org/safecast"

	"cxxsema/internal/encoding"
	"cxxsema/internal/syntax"
)

// arena stores values addressed by dense ids. Slot 0 is never handed out,
// so the zero id means "none" for both scopes and symbols.
type arena[T any] struct {
	data []T
}

func newArena[T any](hint, fallback uint32) arena[T] {
	if hint == 0 {
		hint = fallback
	}
	return arena[T]{data: make([]T, 1, hint+1)}
}

func (a *arena[T]) push(v T, what string) uint32 {
	id, err := safecast.Conv[uint32](len(a.data))
	if err != nil {
		panic(fmt.Errorf("%s arena overflow: %w", what, err))
	}
	a.data = append(a.data, v)
	return id
}

func (a *arena[T]) at(id uint32) *T {
	if id == 0 || int(id) >= len(a.data) {
		return nil
	}
	return &a.data[id]
}

func (a *arena[T]) count() int { return len(a.data) - 1 }

func (a *arena[T]) live() []T {
	if len(a.data) <= 1 {
		return nil
	}
	return a.data[1:]
}

// Scopes owns every scope of a table. Ids stay valid for the table's life.
type Scopes struct {
	arena[Scope]
}

// NewScopes sizes the arena for hint scopes; 0 picks a small default.
func NewScopes(hint uint32) *Scopes {
	return &Scopes{newArena[Scope](hint, 32)}
}

// New allocates an empty scope. It is reachable from outer only once
// Table.DeclareScope registers it under node.
func (s *Scopes) New(kind ScopeKind, outer ScopeID, node syntax.NodeID, name encoding.Encoding) ScopeID {
	return ScopeID(s.push(Scope{
		Kind:    kind,
		Outer:   outer,
		Node:    node,
		Name:    name,
		Entries: make(map[encoding.Encoding][]SymbolID),
		Nested:  make(map[syntax.NodeID]ScopeID),
	}, "scope"))
}

func (s *Scopes) Get(id ScopeID) *Scope { return s.at(uint32(id)) }

func (s *Scopes) Len() int { return s.count() }

// Data returns every scope in id order, the root first.
func (s *Scopes) Data() []Scope { return s.live() }

// Symbols owns every symbol of a table. Merged redeclarations update a
// symbol in place, so ids handed to callers never move.
type Symbols struct {
	arena[Symbol]
}

func NewSymbols(hint uint32) *Symbols {
	return &Symbols{newArena[Symbol](hint, 64)}
}

// New copies *sym into the arena.
func (s *Symbols) New(sym *Symbol) SymbolID {
	if sym == nil {
		panic("symbols: New with a nil symbol")
	}
	return SymbolID(s.push(*sym, "symbol"))
}

func (s *Symbols) Get(id SymbolID) *Symbol { return s.at(uint32(id)) }

func (s *Symbols) Len() int { return s.count() }

// Data returns every symbol in declaration order.
func (s *Symbols) Data() []Symbol { return s.live() }
