package encoding

import "strings"

// Kind classifies a decoded Type node.
type Kind uint8

const (
	KindInvalid   Kind = iota
	KindBuiltin        // Tag
	KindName           // Ident; "" is the global scope marker
	KindQualified      // Components
	KindTemplate       // Ident, Args
	KindModified       // Tag (S, U, C or V), Elem
	KindPointer        // Elem
	KindReference      // Elem
	KindArray          // Extent, Elem
	KindFunction       // Params, Return
	KindMember         // Class, Elem
)

func (k Kind) String() string {
	switch k {
	case KindBuiltin:
		return "builtin"
	case KindName:
		return "name"
	case KindQualified:
		return "qualified"
	case KindTemplate:
		return "template"
	case KindModified:
		return "modified"
	case KindPointer:
		return "pointer"
	case KindReference:
		return "reference"
	case KindArray:
		return "array"
	case KindFunction:
		return "function"
	case KindMember:
		return "member"
	default:
		return "invalid"
	}
}

// Type is the structural form of a type or name encoding.
type Type struct {
	Kind       Kind
	Tag        byte
	Ident      string
	Extent     string
	Elem       *Type
	Class      *Type
	Params     []*Type
	Return     *Type
	Args       []*Type
	Components []*Type
}

// Decode parses e, which must hold exactly one name or type.
func Decode(e Encoding) (*Type, error) {
	if len(e) == 0 {
		return nil, malformed(e, 0, "empty encoding")
	}
	d := decoder{e: e}
	t, err := d.parse()
	if err != nil {
		return nil, err
	}
	if d.pos != len(e) {
		return nil, malformed(e, d.pos, "trailing bytes")
	}
	return t, nil
}

type decoder struct {
	e   Encoding
	pos int
}

func (d *decoder) need(what string) error {
	if d.pos >= len(d.e) {
		return malformed(d.e, d.pos, "missing "+what)
	}
	return nil
}

func (d *decoder) parse() (*Type, error) {
	if err := d.need("type"); err != nil {
		return nil, err
	}
	c := d.e[d.pos]
	if c >= lengthBase {
		return d.literal()
	}
	switch {
	case IsBuiltinTag(c):
		d.pos++
		return &Type{Kind: KindBuiltin, Tag: c}, nil
	case c == TagSigned, c == TagUnsigned, c == TagConst, c == TagVolatile:
		d.pos++
		elem, err := d.parse()
		if err != nil {
			return nil, err
		}
		return &Type{Kind: KindModified, Tag: c, Elem: elem}, nil
	case c == TagPointer, c == TagReference:
		d.pos++
		elem, err := d.parse()
		if err != nil {
			return nil, err
		}
		kind := KindPointer
		if c == TagReference {
			kind = KindReference
		}
		return &Type{Kind: kind, Elem: elem}, nil
	case c == TagArray:
		start := d.pos + 1
		end := strings.IndexByte(string(d.e[start:]), TagEndParams)
		if end < 0 {
			return nil, malformed(d.e, d.pos, "unterminated array extent")
		}
		d.pos = start + end + 1
		elem, err := d.parse()
		if err != nil {
			return nil, err
		}
		return &Type{Kind: KindArray, Extent: string(d.e[start : start+end]), Elem: elem}, nil
	case c == TagFunction:
		d.pos++
		var params []*Type
		for {
			if err := d.need("end of parameters"); err != nil {
				return nil, err
			}
			if d.e[d.pos] == TagEndParams {
				d.pos++
				break
			}
			p, err := d.parse()
			if err != nil {
				return nil, err
			}
			params = append(params, p)
		}
		ret, err := d.parse()
		if err != nil {
			return nil, err
		}
		return &Type{Kind: KindFunction, Params: params, Return: ret}, nil
	case c == TagMember:
		d.pos++
		if err := d.need("member class"); err != nil {
			return nil, err
		}
		var class *Type
		var err error
		if d.e[d.pos] == TagQualified {
			class, err = d.qualified()
		} else {
			class, err = d.component()
		}
		if err != nil {
			return nil, err
		}
		elem, err := d.parse()
		if err != nil {
			return nil, err
		}
		return &Type{Kind: KindMember, Class: class, Elem: elem}, nil
	case c == TagQualified:
		return d.qualified()
	case c == TagTemplate:
		return d.template()
	}
	return nil, malformed(d.e, d.pos, "unexpected byte")
}

func (d *decoder) literal() (*Type, error) {
	end, err := d.e.advance(d.pos)
	if err != nil {
		return nil, err
	}
	t := &Type{Kind: KindName, Ident: string(d.e[d.pos+1 : end])}
	d.pos = end
	return t, nil
}

func (d *decoder) component() (*Type, error) {
	if err := d.need("name component"); err != nil {
		return nil, err
	}
	switch c := d.e[d.pos]; {
	case c >= lengthBase:
		return d.literal()
	case c == TagTemplate:
		return d.template()
	}
	return nil, malformed(d.e, d.pos, "unexpected name component")
}

func (d *decoder) qualified() (*Type, error) {
	d.pos++
	if err := d.need("component count"); err != nil {
		return nil, err
	}
	n := int(d.e[d.pos]) - lengthBase
	if n < 0 {
		return nil, malformed(d.e, d.pos, "bad component count")
	}
	d.pos++
	t := &Type{Kind: KindQualified}
	for k := 0; k < n; k++ {
		comp, err := d.component()
		if err != nil {
			return nil, err
		}
		t.Components = append(t.Components, comp)
	}
	return t, nil
}

func (d *decoder) template() (*Type, error) {
	tok, err := d.e[d.pos:].Token()
	if err != nil {
		return nil, err
	}
	d.pos += len(tok)
	t := &Type{Kind: KindTemplate, Ident: tok.TemplateName().Identifier()}
	args, err := tok.TemplateArguments().Split()
	if err != nil {
		return nil, err
	}
	for _, a := range args {
		at, err := Decode(a)
		if err != nil {
			return nil, err
		}
		t.Args = append(t.Args, at)
	}
	return t, nil
}

// Encode re-encodes the tree.
func (t *Type) Encode() Encoding {
	if t == nil {
		return ""
	}
	var e Encoding
	switch t.Kind {
	case KindBuiltin:
		e.Append(t.Tag)
	case KindName:
		e.SimpleName(t.Ident)
	case KindQualified:
		comps := make([]Encoding, 0, len(t.Components))
		for _, c := range t.Components {
			comps = append(comps, c.Encode())
		}
		for _, c := range comps {
			e.AppendEncoding(c)
		}
		e.Qualified(len(comps))
	case KindTemplate:
		var args Encoding
		for _, a := range t.Args {
			args.AppendEncoding(a.Encode())
		}
		e.Template(t.Ident, args)
	case KindModified:
		e = t.Elem.Encode()
		e.Prepend(t.Tag)
	case KindPointer:
		e = t.Elem.Encode()
		e.PtrOperator('*')
	case KindReference:
		e = t.Elem.Encode()
		e.PtrOperator('&')
	case KindArray:
		e = t.Elem.Encode()
		e.PrependString("A" + t.Extent + "_")
	case KindFunction:
		e.StartFuncArgs()
		for _, p := range t.Params {
			e.AppendEncoding(p.Encode())
		}
		e.EndFuncArgs()
		e.AppendEncoding(t.Return.Encode())
	case KindMember:
		e = t.Elem.Encode()
		e.PrependEncoding(t.Class.Encode())
		e.Prepend(TagMember)
	}
	return e
}

// String renders the type as C++ text.
func (t *Type) String() string {
	return t.Encode().Unmangled()
}
