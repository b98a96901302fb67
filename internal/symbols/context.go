package symbols

import "strings"

// LookupContext narrows what a lookup accepts. Values combine as bits.
type LookupContext uint8

const (
	ContextDefault     LookupContext = 0
	ContextScope       LookupContext = 1 << 0 // name precedes '::'
	ContextUsing       LookupContext = 1 << 1 // searching a nominated namespace
	ContextElaborated  LookupContext = 1 << 2 // after class/struct/union/enum
	ContextType        LookupContext = 1 << 3 // only type names are acceptable
	ContextDeclaration LookupContext = 1 << 4 // name of a declaration being introduced
)

// Has reports whether every bit of flag is set.
func (c LookupContext) Has(flag LookupContext) bool { return flag != 0 && c&flag == flag }

func (c LookupContext) String() string {
	if c == ContextDefault {
		return "default"
	}
	var parts []string
	if c.Has(ContextScope) {
		parts = append(parts, "scope")
	}
	if c.Has(ContextUsing) {
		parts = append(parts, "using")
	}
	if c.Has(ContextElaborated) {
		parts = append(parts, "elaborated")
	}
	if c.Has(ContextType) {
		parts = append(parts, "type")
	}
	if c.Has(ContextDeclaration) {
		parts = append(parts, "declaration")
	}
	return strings.Join(parts, "|")
}
