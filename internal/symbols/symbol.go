package symbols

import (
	"fmt"
	"slices"
	"strings"

	"cxxsema/internal/encoding"
	"cxxsema/internal/syntax"
)

// SymbolKind classifies the semantic meaning of a symbol. The set is closed.
type SymbolKind uint8

const (
	SymbolInvalid SymbolKind = iota
	SymbolVariable
	SymbolConst
	SymbolType
	SymbolTypedef
	SymbolClass
	SymbolEnum
	SymbolClassTemplate
	SymbolFunction
	SymbolFunctionTemplate
	SymbolNamespace
	SymbolDependent
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolVariable:
		return "variable"
	case SymbolConst:
		return "const"
	case SymbolType:
		return "type"
	case SymbolTypedef:
		return "typedef"
	case SymbolClass:
		return "class"
	case SymbolEnum:
		return "enum"
	case SymbolClassTemplate:
		return "class template"
	case SymbolFunction:
		return "function"
	case SymbolFunctionTemplate:
		return "function template"
	case SymbolNamespace:
		return "namespace"
	case SymbolDependent:
		return "dependent"
	default:
		return "invalid"
	}
}

// ParseSymbolKind is the inverse of SymbolKind.String. Dashes and
// underscores are accepted in place of spaces.
func ParseSymbolKind(s string) (SymbolKind, error) {
	norm := strings.NewReplacer("-", " ", "_", " ").Replace(strings.ToLower(s))
	for k := SymbolVariable; k <= SymbolDependent; k++ {
		if k.String() == norm {
			return k, nil
		}
	}
	return SymbolInvalid, fmt.Errorf("unknown symbol kind %q", s)
}

// IsTypeName reports whether the kind names a type that a declaration of a
// variable or function in the same scope hides.
func (k SymbolKind) IsTypeName() bool {
	switch k {
	case SymbolType, SymbolTypedef, SymbolClass, SymbolEnum, SymbolDependent:
		return true
	}
	return false
}

// IsFunction reports functions and function templates.
func (k SymbolKind) IsFunction() bool {
	return k == SymbolFunction || k == SymbolFunctionTemplate
}

// IsVariable reports variables and consts (enumerators included).
func (k SymbolKind) IsVariable() bool {
	return k == SymbolVariable || k == SymbolConst
}

// canDefine reports kinds whose forward declaration may later be defined.
func (k SymbolKind) canDefine() bool {
	switch k {
	case SymbolClass, SymbolEnum, SymbolClassTemplate, SymbolFunction, SymbolFunctionTemplate,
		SymbolVariable, SymbolConst:
		return true
	}
	return false
}

// Symbol describes a named entity available in a scope.
//
// Kind-specific payload:
//
//	SymbolConst                       Value (nil when not constant-evaluable)
//	SymbolTypedef                     Aliased (NoSymbolID when unknown)
//	SymbolFunction, FunctionTemplate  Params, DefaultArgs, Defaulted
type Symbol struct {
	Name       encoding.Encoding
	Kind       SymbolKind
	Type       encoding.Encoding
	Node       syntax.NodeID
	Scope      ScopeID
	Definition bool

	Value       *int64
	Aliased     SymbolID
	Params      int
	DefaultArgs int
	// Defaulted marks the parameter positions that received a default
	// argument in any declaration seen so far.
	Defaulted []bool
}

// IsTypeName reports whether s names a type.
func (s *Symbol) IsTypeName() bool { return s != nil && s.Kind.IsTypeName() }

// IsFunction reports whether s is a function or function template.
func (s *Symbol) IsFunction() bool { return s != nil && s.Kind.IsFunction() }

// IsVariable reports whether s is a variable or const.
func (s *Symbol) IsVariable() bool { return s != nil && s.Kind.IsVariable() }

// HasScope reports whether s owns a nested scope a qualified name can
// continue into.
func (s *Symbol) HasScope() bool {
	if s == nil {
		return false
	}
	switch s.Kind {
	case SymbolNamespace, SymbolClass, SymbolClassTemplate:
		return true
	}
	return false
}

func NewVariable(t encoding.Encoding, node syntax.NodeID, definition bool) Symbol {
	return Symbol{Kind: SymbolVariable, Type: t, Node: node, Definition: definition}
}

// NewConst builds a const symbol. value is nil unless the initializer could
// be evaluated.
func NewConst(t encoding.Encoding, node syntax.NodeID, definition bool, value *int64) Symbol {
	return Symbol{Kind: SymbolConst, Type: t, Node: node, Definition: definition, Value: value}
}

func NewType(t encoding.Encoding, node syntax.NodeID) Symbol {
	return Symbol{Kind: SymbolType, Type: t, Node: node, Definition: true}
}

// NewTypedef builds a typedef of t. aliased is the symbol t resolves to, if
// the front end could tell.
func NewTypedef(t encoding.Encoding, node syntax.NodeID, aliased SymbolID) Symbol {
	return Symbol{Kind: SymbolTypedef, Type: t, Node: node, Definition: true, Aliased: aliased}
}

func NewClass(t encoding.Encoding, node syntax.NodeID, definition bool) Symbol {
	return Symbol{Kind: SymbolClass, Type: t, Node: node, Definition: definition}
}

func NewEnum(t encoding.Encoding, node syntax.NodeID, definition bool) Symbol {
	return Symbol{Kind: SymbolEnum, Type: t, Node: node, Definition: definition}
}

func NewClassTemplate(t encoding.Encoding, node syntax.NodeID, definition bool) Symbol {
	return Symbol{Kind: SymbolClassTemplate, Type: t, Node: node, Definition: definition}
}

// NewFunction builds a function symbol of function type t with params
// declared parameters, the trailing defaults of which carry default
// arguments.
func NewFunction(t encoding.Encoding, node syntax.NodeID, definition bool, params, defaults int) Symbol {
	s := Symbol{Kind: SymbolFunction, Type: t, Node: node, Definition: definition, Params: params}
	s.MergeDefaults(trailing(params, defaults))
	return s
}

func NewFunctionTemplate(t encoding.Encoding, node syntax.NodeID, definition bool, params, defaults int) Symbol {
	s := Symbol{Kind: SymbolFunctionTemplate, Type: t, Node: node, Definition: definition, Params: params}
	s.MergeDefaults(trailing(params, defaults))
	return s
}

func trailing(params, defaults int) []bool {
	defaults = min(max(defaults, 0), params)
	out := make([]bool, params)
	for i := params - defaults; i < params; i++ {
		out[i] = true
	}
	return out
}

// MergeDefaults adds the default arguments of another declaration of the
// same function. A parameter keeps a default once any declaration gave it
// one; DefaultArgs is the run of defaulted positions at the end.
func (s *Symbol) MergeDefaults(defaulted []bool) {
	if len(defaulted) > len(s.Defaulted) {
		s.Defaulted = append(s.Defaulted, make([]bool, len(defaulted)-len(s.Defaulted))...)
	}
	for i, d := range defaulted {
		s.Defaulted[i] = s.Defaulted[i] || d
	}
	s.DefaultArgs = 0
	for i := len(s.Defaulted) - 1; i >= 0 && s.Defaulted[i]; i-- {
		s.DefaultArgs++
	}
	if !slices.Contains(s.Defaulted, true) {
		s.Defaulted = nil
	}
}

func NewNamespace(node syntax.NodeID) Symbol {
	return Symbol{Kind: SymbolNamespace, Node: node, Definition: true}
}

// NewDependent builds the symbol of a template type parameter. Names that
// start with it cannot be looked up further.
func NewDependent(t encoding.Encoding, node syntax.NodeID) Symbol {
	return Symbol{Kind: SymbolDependent, Type: t, Node: node, Definition: true}
}
