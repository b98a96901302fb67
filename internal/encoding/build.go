package encoding

import (
	"fmt"
	"strconv"
)

// SimpleName appends a length-prefixed identifier. When e already is a
// qualified name its component count grows by one. Identifiers longer than
// MaxComponentLen are cut.
func (e *Encoding) SimpleName(id string) {
	id, _ = FitComponent(id)
	e.AppendWithLength(Encoding(id))
	e.countComponent()
}

// countComponent bumps the component count of a qualified name after a
// component has been appended to it.
func (e *Encoding) countComponent() {
	if !e.IsQualified() || len(*e) < 2 || (*e)[1] == 0xff {
		return
	}
	b := []byte(*e)
	b[1]++
	*e = Encoding(b)
}

// GlobalScope appends the start of a "::"-rooted name: Q[1][0]. A following
// SimpleName turns it into Q[2][0]<name>.
func (e *Encoding) GlobalScope() {
	e.Append(TagQualified)
	e.Append(lengthBase + 1)
	e.Append(lengthBase)
}

// Qualified marks the n components already in e as one qualified name.
func (e *Encoding) Qualified(n int) {
	e.Prepend(lengthByte(n))
	e.Prepend(TagQualified)
}

// Template appends a template-id: T, the name, then the length-prefixed
// concatenation of argument encodings. Trailing arguments that do not fit
// the prefix are dropped.
func (e *Encoding) Template(name string, args Encoding) {
	var id Encoding
	id.Append(TagTemplate)
	id.SimpleName(name)
	args, _ = FitArguments(args)
	id.AppendWithLength(args)
	e.AppendEncoding(id)
	e.countComponent()
}

// Array wraps e as an array of the given extent.
func (e *Encoding) Array(extent uint64) {
	e.PrependString("A" + strconv.FormatUint(extent, 10) + "_")
}

// UnknownArray wraps e as an array of unknown extent.
func (e *Encoding) UnknownArray() {
	e.PrependString("A_")
}

// CVQualify prefixes const and/or volatile; both yield "CV...".
func (e *Encoding) CVQualify(isConst, isVolatile bool) {
	if isVolatile {
		e.Prepend(TagVolatile)
	}
	if isConst {
		e.Prepend(TagConst)
	}
}

// PtrOperator prefixes a pointer for '*' and a reference for anything else.
func (e *Encoding) PtrOperator(op byte) {
	if op == '*' {
		e.Prepend(TagPointer)
		return
	}
	e.Prepend(TagReference)
}

// PtrToMember prefixes a pointer to member of class, where class holds n
// name components.
func (e *Encoding) PtrToMember(class Encoding, n int) {
	e.PrependEncoding(class)
	if n >= 2 {
		e.Prepend(lengthByte(n))
		e.Prepend(TagQualified)
	}
	e.Prepend(TagMember)
}

// CastOperator appends the name of "operator <type>". A type too long for
// the prefix leaves the name empty after '@'.
func (e *Encoding) CastOperator(t Encoding) {
	if len(t)+1 > MaxComponentLen {
		t = ""
	}
	e.AppendWithLength("@" + t)
	e.countComponent()
}

// Destructor appends the name "~class".
func (e *Encoding) Destructor(class string) {
	id, _ := FitComponent("~" + class)
	e.AppendWithLength(Encoding(id))
	e.countComponent()
}

func (e *Encoding) StartFuncArgs()      { e.Append(TagFunction) }
func (e *Encoding) EndFuncArgs()        { e.Append(TagEndParams) }
func (e *Encoding) Void()               { e.Append(TagVoid) }
func (e *Encoding) EllipsisArg()        { e.Append(TagEllipsis) }
func (e *Encoding) NoReturnType()       { e.Append(TagNoReturn) }
func (e *Encoding) ValueTemplateParam() { e.Append(TagValueParam) }

// SimpleConst appends "Ci", the type of enumerators.
func (e *Encoding) SimpleConst() { e.AppendString("Ci") }

// Name returns the encoding of a single identifier.
func Name(id string) Encoding {
	var e Encoding
	e.SimpleName(id)
	return e
}

// Global returns the bare global scope marker component.
func Global() Encoding { return Encoding([]byte{lengthBase}) }

// QualifiedName joins components into one name. A single component is
// returned as is; the global marker may lead.
func QualifiedName(components ...Encoding) Encoding {
	if len(components) == 1 {
		return components[0]
	}
	var e Encoding
	for _, c := range components {
		e.AppendEncoding(c)
	}
	if len(components) > 1 {
		e.Qualified(len(components))
	}
	return e
}

// ParseQualified builds a name from "A::B::c" source text. A leading "::"
// yields a global-scope rooted name.
func ParseQualified(text string) Encoding {
	var comps []Encoding
	rest := text
	if len(rest) >= 2 && rest[:2] == "::" {
		comps = append(comps, Global())
		rest = rest[2:]
	}
	for rest != "" {
		i := indexScope(rest)
		part := rest
		if i >= 0 {
			part, rest = rest[:i], rest[i+2:]
		} else {
			rest = ""
		}
		if part != "" {
			comps = append(comps, Name(part))
		}
	}
	if len(comps) == 0 {
		return ""
	}
	return QualifiedName(comps...)
}

func indexScope(s string) int {
	depth := 0
	for i := 0; i+1 < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			depth--
		case ':':
			if depth == 0 && s[i+1] == ':' {
				return i
			}
		}
	}
	return -1
}

// TemplateID returns name<args...>.
func TemplateID(name string, args ...Encoding) Encoding {
	var all Encoding
	for _, a := range args {
		all.AppendEncoding(a)
	}
	var e Encoding
	e.Template(name, all)
	return e
}

// Builtin returns the one-byte encoding of a builtin type tag.
func Builtin(tag byte) Encoding {
	if !IsBuiltinTag(tag) {
		panic(fmt.Sprintf("encoding: %q is not a builtin tag", tag))
	}
	return Encoding([]byte{tag})
}

// PointerTo returns a pointer to t.
func PointerTo(t Encoding) Encoding {
	t.PtrOperator('*')
	return t
}

// ReferenceTo returns a reference to t.
func ReferenceTo(t Encoding) Encoding {
	t.PtrOperator('&')
	return t
}

// ArrayOf returns an array of extent elements of t.
func ArrayOf(extent uint64, t Encoding) Encoding {
	t.Array(extent)
	return t
}

// ConstOf returns const t.
func ConstOf(t Encoding) Encoding {
	t.CVQualify(true, false)
	return t
}

// FunctionType returns ret(params...). An empty parameter list is encoded
// as a single void parameter.
func FunctionType(ret Encoding, params ...Encoding) Encoding {
	var e Encoding
	e.StartFuncArgs()
	if len(params) == 0 {
		e.Void()
	}
	for _, p := range params {
		e.AppendEncoding(p)
	}
	e.EndFuncArgs()
	e.AppendEncoding(ret)
	return e
}

// AnonymousNamer hands out the internal names of anonymous classes and
// enums: `0000, `0001, ... Each analysis session owns one.
type AnonymousNamer struct {
	next int
}

// Anonymous returns a fresh anonymous name.
func (a *AnonymousNamer) Anonymous() Encoding {
	n := a.next % 10000
	a.next++
	return Name(fmt.Sprintf("`%04d", n))
}
