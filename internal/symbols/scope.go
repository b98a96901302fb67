package symbols

import (
	"cxxsema/internal/encoding"
	"cxxsema/internal/syntax"
)

// ScopeKind enumerates supported scope categories.
type ScopeKind uint8

const (
	ScopeInvalid           ScopeKind = iota
	ScopeNamespace                   // namespace, including the global one
	ScopeClass                       // class, struct, union body
	ScopeFunction                    // function body; parameters live in its prototype
	ScopePrototype                   // parameter list of a function declarator
	ScopeLocal                       // compound statement inside a function
	ScopeTemplateParameter           // template<...> parameter list
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeNamespace:
		return "namespace"
	case ScopeClass:
		return "class"
	case ScopeFunction:
		return "function"
	case ScopePrototype:
		return "prototype"
	case ScopeLocal:
		return "local"
	case ScopeTemplateParameter:
		return "template parameters"
	default:
		return "invalid"
	}
}

// Scope is one lexical or semantic scope. Every link to another scope is an
// arena id.
type Scope struct {
	Kind  ScopeKind
	Outer ScopeID
	Node  syntax.NodeID
	// Name is set for namespaces and classes; "" marks the global or an
	// anonymous namespace.
	Name encoding.Encoding

	Entries map[encoding.Encoding][]SymbolID
	Order   []SymbolID // declaration order

	// Nested maps the declaring node of each child scope to the child. A
	// reopened namespace is registered under every node that opened it.
	Nested   map[syntax.NodeID]ScopeID
	Children []ScopeID // distinct children in registration order

	Using []ScopeID // namespace, function: nominated namespaces
	Bases []ScopeID // class: direct bases in declaration order

	TemplateParams      ScopeID // class, function, prototype: own template parameters
	Prototype           ScopeID // function: the parameter scope
	OuterTemplateParams ScopeID // template parameters: the enclosing template's parameters
	Class               ScopeID // function: owning class of an out-of-line member
}

// IsGlobal reports whether the scope is the root namespace.
func (s *Scope) IsGlobal() bool {
	return s != nil && s.Kind == ScopeNamespace && !s.Outer.IsValid()
}

// DisplayName returns the label used by Dump.
func (s *Scope) DisplayName() string {
	if s == nil {
		return ""
	}
	switch {
	case s.IsGlobal():
		return "<global>"
	case s.Kind == ScopeNamespace && s.Name.Empty():
		return "<anonymous>"
	}
	return s.Name.Unmangled()
}

func (s *Scope) addChild(id ScopeID) {
	for _, c := range s.Children {
		if c == id {
			return
		}
	}
	s.Children = append(s.Children, id)
}

func (s *Scope) dropChild(id ScopeID) {
	for _, c := range s.Nested {
		if c == id {
			return // still registered under another node
		}
	}
	for i, c := range s.Children {
		if c == id {
			s.Children = append(s.Children[:i], s.Children[i+1:]...)
			return
		}
	}
}

func containsScope(list []ScopeID, id ScopeID) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}
