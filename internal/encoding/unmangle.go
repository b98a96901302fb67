package encoding

import (
	"strings"
)

var builtinNames = map[byte]string{
	TagBool:       "bool",
	TagChar:       "char",
	TagWChar:      "wchar_t",
	TagInt:        "int",
	TagShort:      "short",
	TagLong:       "long",
	TagLongLong:   "long long",
	TagFloat:      "float",
	TagDouble:     "double",
	TagLongDouble: "long double",
	TagVoid:       "void",
	TagEllipsis:   "...",
	TagValueParam: "*",
}

// Unmangle renders e as C++ source text: "int", "A::B", "const char*",
// "vector<int>", "void(*)(int,char)".
func (e Encoding) Unmangle() (string, error) {
	if len(e) == 0 {
		return "", nil
	}
	u := unmangler{e: e}
	var parts []string
	for u.pos < len(e) {
		s, err := u.unmangle()
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ""), nil
}

// Unmangled is Unmangle falling back to the debug form on malformed input.
func (e Encoding) Unmangled() string {
	s, err := e.Unmangle()
	if err != nil {
		return e.String()
	}
	return s
}

type unmangler struct {
	e   Encoding
	pos int
}

func (u *unmangler) name() (string, error) {
	start := u.pos
	end, err := u.e.advance(u.pos)
	if err != nil {
		return "", err
	}
	u.pos = end
	return string(u.e[start+1 : end]), nil
}

// unmangle renders one type. Modifiers are read outermost first and build
// the declarator around an empty name: the outermost one ends up next to
// it, so A3_Pi is "int*[3]" and PA3_i is "int(*)[3]". cv is the pending
// qualifier of whatever follows it.
func (u *unmangler) unmangle() (string, error) {
	var sign, cv, decl, base string
	for u.pos < len(u.e) {
		c := u.e[u.pos]
		if c >= lengthBase {
			n, err := u.name()
			if err != nil {
				return "", err
			}
			base = n
			break
		}
		u.pos++
		switch c {
		case TagPointer, TagReference:
			op := "*"
			if c == TagReference {
				op = "&"
			}
			if cv != "" {
				op += " " + cv
				cv = ""
			}
			decl = op + decl
			continue
		case TagSigned:
			sign += "signed "
			continue
		case TagUnsigned:
			sign += "unsigned "
			continue
		case TagConst:
			cv = joinCV("const", cv)
			continue
		case TagVolatile:
			cv = joinCV(cv, "volatile")
			continue
		case TagArray:
			j := u.pos
			for j < len(u.e) && u.e[j] != TagEndParams {
				j++
			}
			if j >= len(u.e) {
				return "", malformed(u.e, u.pos-1, "unterminated array extent")
			}
			decl = parenthesize(decl) + "[" + string(u.e[u.pos:j]) + "]"
			u.pos = j + 1
			continue
		case TagNoReturn:
			return "", nil
		case TagQualified:
			u.pos--
			q, err := u.qualified()
			if err != nil {
				return "", err
			}
			base = q
		case TagTemplate:
			u.pos--
			t, err := u.template()
			if err != nil {
				return "", err
			}
			base = t
		case TagFunction:
			return u.function(decl, cv)
		case TagMember:
			class, err := u.memberClass()
			if err != nil {
				return "", err
			}
			member, err := u.unmangle()
			if err != nil {
				return "", err
			}
			base = member + " " + class + "::*"
		default:
			name, ok := builtinNames[c]
			if !ok {
				return "", malformed(u.e, u.pos-1, "unexpected byte")
			}
			base = name
		}
		break
	}
	if base == "" && u.pos >= len(u.e) && (sign != "" || decl != "" || cv != "") {
		return "", malformed(u.e, u.pos, "modifier without type")
	}
	if cv != "" {
		cv += " "
	}
	return cv + sign + base + decl, nil
}

func joinCV(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "" || a == b:
		return a
	}
	return a + " " + b
}

// parenthesize wraps a declarator that starts with a pointer or reference
// so an array or parameter list applies to what it points to.
func parenthesize(decl string) string {
	if decl != "" && (decl[0] == '*' || decl[0] == '&') {
		return "(" + decl + ")"
	}
	return decl
}

func (u *unmangler) component() (string, error) {
	c := u.e[u.pos]
	switch {
	case c == lengthBase:
		u.pos++
		return "", nil
	case c > lengthBase:
		return u.name()
	case c == TagTemplate:
		return u.template()
	}
	return "", malformed(u.e, u.pos, "unexpected name component")
}

func (u *unmangler) qualified() (string, error) {
	if u.pos+1 >= len(u.e) {
		return "", malformed(u.e, u.pos, "missing component count")
	}
	n := int(u.e[u.pos+1]) - lengthBase
	u.pos += 2
	parts := make([]string, 0, n)
	for k := 0; k < n; k++ {
		if u.pos >= len(u.e) {
			return "", malformed(u.e, u.pos, "missing name component")
		}
		p, err := u.component()
		if err != nil {
			return "", err
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, "::"), nil
}

func (u *unmangler) template() (string, error) {
	t, err := u.e[u.pos:].Token()
	if err != nil {
		return "", err
	}
	u.pos += len(t)
	name := t.TemplateName().Identifier()
	args, err := t.TemplateArguments().Split()
	if err != nil {
		return "", err
	}
	rendered := make([]string, 0, len(args))
	for _, a := range args {
		s, err := a.Unmangle()
		if err != nil {
			return "", err
		}
		rendered = append(rendered, s)
	}
	return name + "<" + strings.Join(rendered, ",") + ">", nil
}

func (u *unmangler) memberClass() (string, error) {
	if u.pos >= len(u.e) {
		return "", malformed(u.e, u.pos, "missing member class")
	}
	if u.e[u.pos] == TagQualified {
		return u.qualified()
	}
	return u.component()
}

// function renders ret(params). A non-empty declarator is parenthesized,
// giving "void(*)(int)"; cv qualifies a member function.
func (u *unmangler) function(decl, cv string) (string, error) {
	var params []string
	for u.pos < len(u.e) && u.e[u.pos] != TagEndParams {
		p, err := u.unmangle()
		if err != nil {
			return "", err
		}
		params = append(params, p)
	}
	if u.pos >= len(u.e) {
		return "", malformed(u.e, u.pos, "unterminated parameter list")
	}
	u.pos++ // '_'
	if len(params) == 1 && params[0] == "void" {
		params = nil
	}
	ret := ""
	if u.pos < len(u.e) {
		r, err := u.unmangle()
		if err != nil {
			return "", err
		}
		ret = r
	}
	if decl != "" {
		decl = "(" + decl + ")"
	}
	out := ret + decl + "(" + strings.Join(params, ",") + ")"
	if cv != "" {
		out += " " + cv
	}
	return out, nil
}
