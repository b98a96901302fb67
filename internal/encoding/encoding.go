package encoding

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Encoding is the byte-string form of a C++ name or type. It is a plain
// string so it can be compared, ordered bytewise and used as a map key.
//
// Grammar (byte-exact):
//
//	b c w i s l j f d r v e ?   builtins (bool ... long double, void, ellipsis, no return)
//	*                           non-type template parameter
//	S U C V                     signed, unsigned, const, volatile
//	P R                         pointer, reference
//	A<digits>_                  array of extent (A_ when unknown)
//	F<params>_<ret>             function type
//	M<class>                    pointer to member
//	Q[n]<component>...          qualified name with n components
//	T<name>[len]<args>          template-id
//	[n]<bytes>                  length-prefixed literal, [n] = 0x80+n
//	[0]                         the global scope
type Encoding string

const (
	lengthBase = 0x80
	// MaxComponentLen is the longest literal a length byte can prefix.
	MaxComponentLen = 0xff - lengthBase
)

// Builtin type tags.
const (
	TagBool       byte = 'b'
	TagChar       byte = 'c'
	TagWChar      byte = 'w'
	TagInt        byte = 'i'
	TagShort      byte = 's'
	TagLong       byte = 'l'
	TagLongLong   byte = 'j'
	TagFloat      byte = 'f'
	TagDouble     byte = 'd'
	TagLongDouble byte = 'r'
	TagVoid       byte = 'v'
	TagEllipsis   byte = 'e'
	TagNoReturn   byte = '?'
	TagValueParam byte = '*'
)

// Modifier and constructor tags.
const (
	TagSigned    byte = 'S'
	TagUnsigned  byte = 'U'
	TagConst     byte = 'C'
	TagVolatile  byte = 'V'
	TagPointer   byte = 'P'
	TagReference byte = 'R'
	TagArray     byte = 'A'
	TagFunction  byte = 'F'
	TagMember    byte = 'M'
	TagQualified byte = 'Q'
	TagTemplate  byte = 'T'
	TagEndParams byte = '_'
)

// IsBuiltinTag reports whether b denotes a complete builtin type.
func IsBuiltinTag(b byte) bool {
	switch b {
	case TagBool, TagChar, TagWChar, TagInt, TagShort, TagLong, TagLongLong,
		TagFloat, TagDouble, TagLongDouble, TagVoid, TagEllipsis, TagNoReturn, TagValueParam:
		return true
	}
	return false
}

// lengthByte clamps n to MaxComponentLen. Builders cut their input with
// FitComponent or FitArguments first so the prefix stays truthful.
func lengthByte(n int) byte {
	return byte(lengthBase + min(max(n, 0), MaxComponentLen))
}

// FitComponent cuts s to at most MaxComponentLen bytes without splitting a
// UTF-8 sequence. ok is false when bytes were dropped.
func FitComponent(s string) (fitted string, ok bool) {
	if len(s) <= MaxComponentLen {
		return s, true
	}
	end := MaxComponentLen
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	return s[:end], false
}

// FitArguments keeps the leading whole arguments of a template argument
// list that fit under one length prefix. ok is false when arguments were
// dropped.
func FitArguments(args Encoding) (fitted Encoding, ok bool) {
	if len(args) <= MaxComponentLen {
		return args, true
	}
	end := 0
	for end < len(args) {
		next, err := args.advance(end)
		if err != nil || next > MaxComponentLen {
			break
		}
		end = next
	}
	return args[:end], false
}

// Len reports the number of bytes.
func (e Encoding) Len() int { return len(e) }

// Empty reports whether the encoding has no bytes.
func (e Encoding) Empty() bool { return len(e) == 0 }

// Front returns the first byte, or 0 for an empty encoding.
func (e Encoding) Front() byte {
	if len(e) == 0 {
		return 0
	}
	return e[0]
}

// Bytes returns a copy of the raw bytes.
func (e Encoding) Bytes() []byte { return []byte(e) }

// FromBytes wraps raw bytes.
func FromBytes(b []byte) Encoding { return Encoding(b) }

// Compare orders encodings bytewise.
func Compare(a, b Encoding) int { return strings.Compare(string(a), string(b)) }

// Append adds b at the end.
func (e *Encoding) Append(b byte) {
	*e = Encoding(append([]byte(*e), b))
}

// AppendString adds raw bytes at the end.
func (e *Encoding) AppendString(s string) {
	*e += Encoding(s)
}

// AppendEncoding adds other at the end.
func (e *Encoding) AppendEncoding(other Encoding) {
	*e += other
}

// AppendWithLength adds other prefixed with its length byte. Bytes past
// MaxComponentLen are dropped.
func (e *Encoding) AppendWithLength(other Encoding) {
	if len(other) > MaxComponentLen {
		other = other[:MaxComponentLen]
	}
	e.Append(lengthByte(len(other)))
	*e += other
}

// Prepend inserts b at the front.
func (e *Encoding) Prepend(b byte) {
	*e = Encoding([]byte{b}) + *e
}

// PrependString inserts raw bytes at the front.
func (e *Encoding) PrependString(s string) {
	*e = Encoding(s) + *e
}

// PrependEncoding inserts other at the front.
func (e *Encoding) PrependEncoding(other Encoding) {
	*e = other + *e
}

// Pop removes and returns the first byte. An empty encoding yields 0.
func (e *Encoding) Pop() byte {
	if len(*e) == 0 {
		return 0
	}
	b := (*e)[0]
	*e = (*e)[1:]
	return b
}

// PopN removes the first n bytes.
func (e *Encoding) PopN(n int) {
	if n > len(*e) {
		n = len(*e)
	}
	*e = (*e)[n:]
}

// IsSimpleName reports whether e starts with a length-prefixed literal.
func (e Encoding) IsSimpleName() bool { return len(e) > 0 && e[0] >= lengthBase }

// IsGlobalScope reports whether e is exactly the global-scope marker.
func (e Encoding) IsGlobalScope() bool { return len(e) == 1 && e[0] == lengthBase }

// IsQualified reports whether e is a qualified name.
func (e Encoding) IsQualified() bool { return len(e) > 0 && e[0] == TagQualified }

// IsTemplateID reports whether e is a template-id.
func (e Encoding) IsTemplateID() bool { return len(e) > 0 && e[0] == TagTemplate }

// IsFunction reports whether e is a function type, including const member
// functions ("CF...").
func (e Encoding) IsFunction() bool {
	if len(e) == 0 {
		return false
	}
	return e[0] == TagFunction || (e[0] == TagConst && len(e) > 1 && e[1] == TagFunction)
}

// String renders bytes below 0x80 verbatim and others as [n].
func (e Encoding) String() string {
	var sb strings.Builder
	for i := 0; i < len(e); i++ {
		if b := e[i]; b < lengthBase {
			sb.WriteByte(b)
		} else {
			fmt.Fprintf(&sb, "[%d]", int(b)-lengthBase)
		}
	}
	return sb.String()
}

// Identifier returns the literal text of a simple name, or "" otherwise.
func (e Encoding) Identifier() string {
	if !e.IsSimpleName() {
		return ""
	}
	n := int(e[0]) - lengthBase
	if 1+n > len(e) {
		return ""
	}
	return string(e[1 : 1+n])
}
