package syntax

import "cxxsema/internal/source"

// NodeID is the stable identity of a syntax node. Scopes register nested
// scopes under it and symbols remember the node that declared them.
type NodeID uint32

// NoNodeID marks the absence of a node.
const NoNodeID NodeID = 0

// IsValid reports whether id refers to an allocated node.
func (id NodeID) IsValid() bool { return id != NoNodeID }

// Kind classifies the syntax construct a node stands for.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindTranslationUnit
	KindNamespace
	KindClass
	KindEnum
	KindFunction  // function definition
	KindPrototype // function declarator with its parameter list
	KindBlock     // compound statement or control-flow body
	KindTemplateParams
	KindDeclarator
	KindUsingDirective
	KindCall
)

func (k Kind) String() string {
	switch k {
	case KindTranslationUnit:
		return "translation-unit"
	case KindNamespace:
		return "namespace"
	case KindClass:
		return "class"
	case KindEnum:
		return "enum"
	case KindFunction:
		return "function"
	case KindPrototype:
		return "prototype"
	case KindBlock:
		return "block"
	case KindTemplateParams:
		return "template-params"
	case KindDeclarator:
		return "declarator"
	case KindUsingDirective:
		return "using-directive"
	case KindCall:
		return "call"
	default:
		return "invalid"
	}
}

// Node is what the semantic core needs to know about a syntax node: its
// kind, where it is, and a short source excerpt for messages.
type Node struct {
	Kind Kind
	Span source.Span
	Text string
}

// Nodes owns every node of an analysis session.
type Nodes struct {
	arena *Arena[Node]
}

// NewNodes creates an empty node table.
func NewNodes(capHint uint) *Nodes {
	return &Nodes{arena: NewArena[Node](capHint)}
}

// New registers a node and returns its id.
func (n *Nodes) New(kind Kind, span source.Span, text string) NodeID {
	return NodeID(n.arena.Allocate(Node{Kind: kind, Span: span, Text: text}))
}

// Get returns the node or nil for an invalid id.
func (n *Nodes) Get(id NodeID) *Node {
	if n == nil {
		return nil
	}
	return n.arena.Get(uint32(id))
}

// Span returns the node's span, or the zero span when unknown.
func (n *Nodes) Span(id NodeID) source.Span {
	if node := n.Get(id); node != nil {
		return node.Span
	}
	return source.Span{}
}

// Len reports the number of nodes.
func (n *Nodes) Len() int { return int(n.arena.Len()) }

// All returns every node in id order. Callers must not modify it.
func (n *Nodes) All() []Node { return n.arena.Slice() }

// NodesFrom rebuilds a node table from the result of All. Ids are preserved.
func NodesFrom(list []Node) *Nodes {
	n := NewNodes(uint(len(list)))
	for _, node := range list {
		n.arena.Allocate(node)
	}
	return n
}
