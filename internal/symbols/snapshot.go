package symbols

import (
	"fmt"
	"slices"
	"strings"

	"cxxsema/internal/encoding"
	"cxxsema/internal/syntax"
)

// SnapshotVersion is bumped whenever the record layout changes.
const SnapshotVersion = 2

// Snapshot is a flat, serializable copy of a table. Encodings are kept as
// raw bytes; the *Display fields are their unmangled rendering for readers
// of JSON or YAML output.
type Snapshot struct {
	Version int            `json:"version" yaml:"version" msgpack:"version"`
	Root    ScopeID        `json:"root" yaml:"root" msgpack:"root"`
	Scopes  []ScopeRecord  `json:"scopes" yaml:"scopes" msgpack:"scopes"`
	Symbols []SymbolRecord `json:"symbols" yaml:"symbols" msgpack:"symbols"`
}

// ScopeRecord mirrors Scope.
type ScopeRecord struct {
	ID                  ScopeID        `json:"id" yaml:"id" msgpack:"id"`
	Kind                string         `json:"kind" yaml:"kind" msgpack:"kind"`
	Outer               ScopeID        `json:"outer,omitempty" yaml:"outer,omitempty" msgpack:"outer,omitempty"`
	Node                syntax.NodeID  `json:"node,omitempty" yaml:"node,omitempty" msgpack:"node,omitempty"`
	Name                []byte         `json:"name,omitempty" yaml:"name,omitempty" msgpack:"name,omitempty"`
	Display             string         `json:"display,omitempty" yaml:"display,omitempty" msgpack:"-"`
	Symbols             []SymbolID     `json:"symbols,omitempty" yaml:"symbols,omitempty" msgpack:"symbols,omitempty"`
	Nested              []NestedRecord `json:"nested,omitempty" yaml:"nested,omitempty" msgpack:"nested,omitempty"`
	Children            []ScopeID      `json:"children,omitempty" yaml:"children,omitempty" msgpack:"children,omitempty"`
	Using               []ScopeID      `json:"using,omitempty" yaml:"using,omitempty" msgpack:"using,omitempty"`
	Bases               []ScopeID      `json:"bases,omitempty" yaml:"bases,omitempty" msgpack:"bases,omitempty"`
	TemplateParams      ScopeID        `json:"template_params,omitempty" yaml:"template_params,omitempty" msgpack:"template_params,omitempty"`
	Prototype           ScopeID        `json:"prototype,omitempty" yaml:"prototype,omitempty" msgpack:"prototype,omitempty"`
	OuterTemplateParams ScopeID        `json:"outer_template_params,omitempty" yaml:"outer_template_params,omitempty" msgpack:"outer_template_params,omitempty"`
	Class               ScopeID        `json:"class,omitempty" yaml:"class,omitempty" msgpack:"class,omitempty"`
}

// NestedRecord is one entry of a nested-scope table.
type NestedRecord struct {
	Node  syntax.NodeID `json:"node" yaml:"node" msgpack:"node"`
	Scope ScopeID       `json:"scope" yaml:"scope" msgpack:"scope"`
}

// SymbolRecord mirrors Symbol.
type SymbolRecord struct {
	ID          SymbolID      `json:"id" yaml:"id" msgpack:"id"`
	Kind        string        `json:"kind" yaml:"kind" msgpack:"kind"`
	Name        []byte        `json:"name" yaml:"name" msgpack:"name"`
	Display     string        `json:"display" yaml:"display" msgpack:"-"`
	Type        []byte        `json:"type,omitempty" yaml:"type,omitempty" msgpack:"type,omitempty"`
	TypeDisplay string        `json:"type_display,omitempty" yaml:"type_display,omitempty" msgpack:"-"`
	Node        syntax.NodeID `json:"node,omitempty" yaml:"node,omitempty" msgpack:"node,omitempty"`
	Scope       ScopeID       `json:"scope" yaml:"scope" msgpack:"scope"`
	Definition  bool          `json:"definition" yaml:"definition" msgpack:"definition"`
	Value       *int64        `json:"value,omitempty" yaml:"value,omitempty" msgpack:"value,omitempty"`
	Aliased     SymbolID      `json:"aliased,omitempty" yaml:"aliased,omitempty" msgpack:"aliased,omitempty"`
	Params      int           `json:"params,omitempty" yaml:"params,omitempty" msgpack:"params,omitempty"`
	DefaultArgs int           `json:"default_args,omitempty" yaml:"default_args,omitempty" msgpack:"default_args,omitempty"`
	Defaulted   []bool        `json:"defaulted,omitempty" yaml:"defaulted,omitempty" msgpack:"defaulted,omitempty"`
}

// Snapshot flattens the table. Ids are preserved.
func (t *Table) Snapshot() *Snapshot {
	snap := &Snapshot{
		Version: SnapshotVersion,
		Root:    t.root,
		Scopes:  make([]ScopeRecord, 0, t.Scopes.Len()),
		Symbols: make([]SymbolRecord, 0, t.Symbols.Len()),
	}
	for idx := 1; idx < len(t.Scopes.data); idx++ {
		s := &t.Scopes.data[idx]
		id, _ := toScopeID(idx) // bounded by the arena
		rec := ScopeRecord{
			ID:                  id,
			Kind:                s.Kind.String(),
			Outer:               s.Outer,
			Node:                s.Node,
			Name:                s.Name.Bytes(),
			Display:             s.DisplayName(),
			Symbols:             slices.Clone(s.Order),
			Children:            slices.Clone(s.Children),
			Using:               slices.Clone(s.Using),
			Bases:               slices.Clone(s.Bases),
			TemplateParams:      s.TemplateParams,
			Prototype:           s.Prototype,
			OuterTemplateParams: s.OuterTemplateParams,
			Class:               s.Class,
		}
		for node, child := range s.Nested {
			rec.Nested = append(rec.Nested, NestedRecord{Node: node, Scope: child})
		}
		slices.SortFunc(rec.Nested, func(a, b NestedRecord) int { return int(a.Node) - int(b.Node) })
		snap.Scopes = append(snap.Scopes, rec)
	}
	for idx := 1; idx < len(t.Symbols.data); idx++ {
		s := &t.Symbols.data[idx]
		id, _ := toSymbolID(idx)
		snap.Symbols = append(snap.Symbols, SymbolRecord{
			ID:          id,
			Kind:        s.Kind.String(),
			Name:        s.Name.Bytes(),
			Display:     s.Name.Unmangled(),
			Type:        s.Type.Bytes(),
			TypeDisplay: s.Type.Unmangled(),
			Node:        s.Node,
			Scope:       s.Scope,
			Definition:  s.Definition,
			Value:       s.Value,
			Aliased:     s.Aliased,
			Params:      s.Params,
			DefaultArgs: s.DefaultArgs,
			Defaulted:   s.Defaulted,
		})
	}
	return snap
}

// Restore rebuilds a table from a snapshot and validates it.
func Restore(snap *Snapshot) (*Table, error) {
	if snap == nil {
		return nil, fmt.Errorf("restore: nil snapshot")
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("restore: snapshot version %d, want %d", snap.Version, SnapshotVersion)
	}
	t := NewTable(Hints{Scopes: uint(len(snap.Scopes)), Symbols: uint(len(snap.Symbols))})
	t.Scopes.data = t.Scopes.data[:1]
	for i, rec := range snap.Scopes {
		if int(rec.ID) != i+1 {
			return nil, fmt.Errorf("restore: scope record %d has id %d", i, rec.ID)
		}
		kind, err := parseScopeKind(rec.Kind)
		if err != nil {
			return nil, fmt.Errorf("restore: scope %d: %w", rec.ID, err)
		}
		id := t.Scopes.New(kind, rec.Outer, rec.Node, encoding.FromBytes(rec.Name))
		s := t.Scopes.Get(id)
		s.Order = slices.Clone(rec.Symbols)
		s.Children = slices.Clone(rec.Children)
		s.Using = slices.Clone(rec.Using)
		s.Bases = slices.Clone(rec.Bases)
		s.TemplateParams = rec.TemplateParams
		s.Prototype = rec.Prototype
		s.OuterTemplateParams = rec.OuterTemplateParams
		s.Class = rec.Class
		for _, n := range rec.Nested {
			s.Nested[n.Node] = n.Scope
		}
	}
	t.root = snap.Root
	if t.Scopes.Get(t.root) == nil {
		return nil, fmt.Errorf("restore: invalid root scope %d", snap.Root)
	}
	for i, rec := range snap.Symbols {
		if int(rec.ID) != i+1 {
			return nil, fmt.Errorf("restore: symbol record %d has id %d", i, rec.ID)
		}
		kind, err := ParseSymbolKind(rec.Kind)
		if err != nil {
			return nil, fmt.Errorf("restore: symbol %d: %w", rec.ID, err)
		}
		sym := Symbol{
			Name:        encoding.FromBytes(rec.Name),
			Kind:        kind,
			Type:        encoding.FromBytes(rec.Type),
			Node:        rec.Node,
			Scope:       rec.Scope,
			Definition:  rec.Definition,
			Value:       rec.Value,
			Aliased:     rec.Aliased,
			Params:      rec.Params,
			DefaultArgs: rec.DefaultArgs,
			Defaulted:   rec.Defaulted,
		}
		t.Symbols.New(&sym)
	}
	for idx := 1; idx < len(t.Scopes.data); idx++ {
		s := &t.Scopes.data[idx]
		for _, id := range s.Order {
			if sym := t.Symbols.Get(id); sym != nil {
				s.Entries[sym.Name] = append(s.Entries[sym.Name], id)
			}
		}
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}
	return t, nil
}

func parseScopeKind(s string) (ScopeKind, error) {
	for k := ScopeNamespace; k <= ScopeTemplateParameter; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return ScopeInvalid, fmt.Errorf("unknown scope kind %q", s)
}

// Scope returns the record of id, or nil.
func (s *Snapshot) Scope(id ScopeID) *ScopeRecord {
	if !id.IsValid() || int(id) > len(s.Scopes) {
		return nil
	}
	return &s.Scopes[id-1]
}

// Symbol returns the record of id, or nil.
func (s *Snapshot) Symbol(id SymbolID) *SymbolRecord {
	if !id.IsValid() || int(id) > len(s.Symbols) {
		return nil
	}
	return &s.Symbols[id-1]
}

// Enclosing lists the named namespaces and classes around a symbol,
// outermost first. Function, block and prototype scopes are skipped.
func (s *Snapshot) Enclosing(id SymbolID) []*ScopeRecord {
	sym := s.Symbol(id)
	if sym == nil {
		return nil
	}
	var out []*ScopeRecord
	for rec := s.Scope(sym.Scope); rec != nil; rec = s.Scope(rec.Outer) {
		if len(rec.Name) == 0 {
			continue
		}
		if rec.Kind == ScopeNamespace.String() || rec.Kind == ScopeClass.String() {
			out = append(out, rec)
		}
	}
	slices.Reverse(out)
	return out
}

// QualifiedName renders a symbol as "ns::cls::name".
func (s *Snapshot) QualifiedName(id SymbolID) string {
	sym := s.Symbol(id)
	if sym == nil {
		return ""
	}
	var b strings.Builder
	for _, rec := range s.Enclosing(id) {
		b.WriteString(encoding.FromBytes(rec.Name).Unmangled())
		b.WriteString("::")
	}
	b.WriteString(encoding.FromBytes(sym.Name).Unmangled())
	return b.String()
}
