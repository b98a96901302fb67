package encoding

import (
	"errors"
	"fmt"
)

// ErrMalformed is wrapped by every decoding failure.
var ErrMalformed = errors.New("malformed encoding")

func malformed(e Encoding, at int, what string) error {
	return fmt.Errorf("%w: %s at offset %d in %s", ErrMalformed, what, at, e)
}

// advance returns the offset just past the single name or type token that
// starts at i. Modifiers are folded into the token they modify.
func (e Encoding) advance(i int) (int, error) {
	for i < len(e) {
		c := e[i]
		switch {
		case c >= lengthBase:
			end := i + 1 + int(c) - lengthBase
			if end > len(e) {
				return 0, malformed(e, i, "literal overruns buffer")
			}
			return end, nil
		case c == TagPointer, c == TagReference, c == TagSigned, c == TagUnsigned,
			c == TagConst, c == TagVolatile:
			i++
		case IsBuiltinTag(c):
			return i + 1, nil
		case c == TagArray:
			j := i + 1
			for j < len(e) && e[j] != TagEndParams {
				j++
			}
			if j >= len(e) {
				return 0, malformed(e, i, "unterminated array extent")
			}
			i = j + 1
		case c == TagQualified:
			if i+1 >= len(e) || e[i+1] < lengthBase {
				return 0, malformed(e, i, "missing component count")
			}
			n := int(e[i+1]) - lengthBase
			j := i + 2
			for k := 0; k < n; k++ {
				var err error
				if j, err = e.advance(j); err != nil {
					return 0, err
				}
			}
			return j, nil
		case c == TagTemplate:
			j, err := e.advance(i + 1) // name
			if err != nil {
				return 0, err
			}
			if j >= len(e) || e[j] < lengthBase {
				return 0, malformed(e, j, "missing template argument length")
			}
			end := j + 1 + int(e[j]) - lengthBase
			if end > len(e) {
				return 0, malformed(e, j, "template arguments overrun buffer")
			}
			return end, nil
		case c == TagFunction:
			j := i + 1
			for j < len(e) && e[j] != TagEndParams {
				var err error
				if j, err = e.advance(j); err != nil {
					return 0, err
				}
			}
			if j >= len(e) {
				return 0, malformed(e, i, "unterminated parameter list")
			}
			i = j + 1 // continue with the return type
		case c == TagMember:
			j, err := e.advance(i + 1) // class name
			if err != nil {
				return 0, err
			}
			i = j // continue with the member type
		default:
			return 0, malformed(e, i, fmt.Sprintf("unexpected byte %q", c))
		}
	}
	return 0, malformed(e, i, "truncated token")
}

// Token returns the first complete name or type in e.
func (e Encoding) Token() (Encoding, error) {
	end, err := e.advance(0)
	if err != nil {
		return "", err
	}
	return e[:end], nil
}

func (e Encoding) endOfScope() int {
	if !e.IsQualified() || len(e) < 3 {
		return len(e)
	}
	end, err := e.advance(2)
	if err != nil {
		return len(e)
	}
	return end
}

// Scope returns the first component of a qualified name, the enclosing
// scope the rest is looked up in. A non-qualified name has no scope.
func (e Encoding) Scope() Encoding {
	if !e.IsQualified() {
		return ""
	}
	return e[2:e.endOfScope()]
}

// Symbol returns what remains of a qualified name after its first
// component, re-qualified when more than one component remains. Names that
// are not qualified are returned unchanged.
func (e Encoding) Symbol() Encoding {
	if !e.IsQualified() {
		return e
	}
	n := int(e[1]) - lengthBase
	rest := e[e.endOfScope():]
	if n > 2 {
		rest.Qualified(n - 1)
	}
	return rest
}

// TemplateName returns the name of a template-id.
func (e Encoding) TemplateName() Encoding {
	if !e.IsTemplateID() {
		return ""
	}
	end, err := e.advance(1)
	if err != nil {
		return ""
	}
	return e[1:end]
}

// TemplateArguments returns the concatenated argument encodings of a
// template-id.
func (e Encoding) TemplateArguments() Encoding {
	if !e.IsTemplateID() {
		return ""
	}
	j, err := e.advance(1)
	if err != nil || j >= len(e) {
		return ""
	}
	end := j + 1 + int(e[j]) - lengthBase
	if end > len(e) {
		return ""
	}
	return e[j+1 : end]
}

// Split returns the successive tokens of a concatenation such as a
// template argument list or a parameter list.
func (e Encoding) Split() ([]Encoding, error) {
	var out []Encoding
	for i := 0; i < len(e); {
		end, err := e.advance(i)
		if err != nil {
			return nil, err
		}
		out = append(out, e[i:end])
		i = end
	}
	return out, nil
}

// FunctionReturnType returns the token after the parameter list.
func (e Encoding) FunctionReturnType() Encoding {
	sig, err := e.FunctionSignature()
	if err != nil {
		return ""
	}
	return sig.Return
}

// Signature is the decoded shape of a function type.
type Signature struct {
	Params   []Encoding // without the trailing ellipsis
	Ellipsis bool
	Return   Encoding
	Const    bool // const member function
}

// FunctionSignature decodes a function encoding. A lone void parameter
// means no parameters.
func (e Encoding) FunctionSignature() (Signature, error) {
	var sig Signature
	if !e.IsFunction() {
		return sig, malformed(e, 0, "not a function type")
	}
	i := 1
	if e[0] == TagConst {
		sig.Const = true
		i = 2
	}
	for i < len(e) && e[i] != TagEndParams {
		end, err := e.advance(i)
		if err != nil {
			return Signature{}, err
		}
		sig.Params = append(sig.Params, e[i:end])
		i = end
	}
	if i >= len(e) {
		return Signature{}, malformed(e, i, "unterminated parameter list")
	}
	if n := len(sig.Params); n > 0 && sig.Params[n-1] == Encoding([]byte{TagEllipsis}) {
		sig.Ellipsis = true
		sig.Params = sig.Params[:n-1]
	}
	if len(sig.Params) == 1 && sig.Params[0] == Encoding([]byte{TagVoid}) {
		sig.Params = nil
	}
	i++
	if i < len(e) {
		end, err := e.advance(i)
		if err != nil {
			return Signature{}, err
		}
		sig.Return = e[i:end]
	}
	return sig, nil
}

// NameIterator walks the components of a (possibly qualified) name.
type NameIterator struct {
	enc    Encoding
	start  int
	cursor int
	err    error
}

// Names returns an iterator over the components of e. For a name that is
// not qualified it yields e itself.
func (e Encoding) Names() *NameIterator {
	it := &NameIterator{enc: e}
	if e.IsQualified() {
		it.start = 2
	}
	it.cursor = it.start
	return it
}

// Next returns the next component, or false once the name is exhausted or
// malformed (see Err).
func (it *NameIterator) Next() (Encoding, bool) {
	if it.err != nil || it.cursor >= len(it.enc) {
		return "", false
	}
	end, err := it.enc.advance(it.cursor)
	if err != nil {
		it.err = err
		return "", false
	}
	comp := it.enc[it.cursor:end]
	it.cursor = end
	return comp, true
}

// Rest returns the unconsumed components as one name, re-qualified when
// more than one remains.
func (it *NameIterator) Rest() Encoding {
	rest := it.enc[it.cursor:]
	if it.enc.IsQualified() {
		n := 0
		for i := it.cursor; i < len(it.enc); n++ {
			end, err := it.enc.advance(i)
			if err != nil {
				return rest
			}
			i = end
		}
		if n > 1 {
			rest.Qualified(n)
		}
	}
	return rest
}

// Done reports whether every component has been consumed.
func (it *NameIterator) Done() bool { return it.err != nil || it.cursor >= len(it.enc) }

// Reset rewinds to the first component.
func (it *NameIterator) Reset() {
	it.cursor = it.start
	it.err = nil
}

// Err returns the decoding error that stopped iteration, if any.
func (it *NameIterator) Err() error { return it.err }

// Components collects every component of e.
func (e Encoding) Components() ([]Encoding, error) {
	it := e.Names()
	var out []Encoding
	for {
		c, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, c)
	}
	return out, it.Err()
}
