//go:build cgo

package cxx

import (
	"fmt"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"cxxsema/internal/diag"
	"cxxsema/internal/encoding"
	"cxxsema/internal/symbols"
)

var primitives = map[string]byte{
	"bool":    encoding.TagBool,
	"_Bool":   encoding.TagBool,
	"char":    encoding.TagChar,
	"wchar_t": encoding.TagWChar,
	"int":     encoding.TagInt,
	"short":   encoding.TagShort,
	"long":    encoding.TagLong,
	"float":   encoding.TagFloat,
	"double":  encoding.TagDouble,
	"void":    encoding.TagVoid,
}

func primitive(text string) encoding.Encoding {
	if tag, ok := primitives[text]; ok {
		return encoding.Builtin(tag)
	}
	// size_t, int32_t and friends stay names
	return encoding.Name(text)
}

// baseType encodes the type specifier of a declaration node together with
// the cv-qualifiers written next to it.
func (w *walker) baseType(decl, typeNode *sitter.Node) encoding.Encoding {
	t := w.specifier(typeNode)
	isConst, isVolatile := w.qualifiers(decl)
	t.CVQualify(isConst, isVolatile)
	return t
}

func (w *walker) qualifiers(n *sitter.Node) (isConst, isVolatile bool) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "type_qualifier" {
			continue
		}
		switch w.text(c) {
		case "const", "constexpr":
			isConst = true
		case "volatile":
			isVolatile = true
		}
	}
	return isConst, isVolatile
}

func (w *walker) specifier(n *sitter.Node) encoding.Encoding {
	if n == nil {
		return encoding.Builtin(encoding.TagInt)
	}
	switch n.Type() {
	case "primitive_type":
		return primitive(w.text(n))
	case "sized_type_specifier":
		return w.sized(n)
	case "class_specifier", "struct_specifier", "union_specifier", "enum_specifier":
		return w.typeSpecifier(n, false)
	case "type_descriptor":
		return w.typeDescriptor(n)
	case "qualified_identifier", "template_type", "type_identifier", "namespace_identifier", "identifier":
		return w.name(n)
	}
	return w.identifier(n, compact(w.text(n)))
}

// identifier encodes a single name component. Text longer than a length
// prefix can describe is cut, with a warning at n.
func (w *walker) identifier(n *sitter.Node, text string) encoding.Encoding {
	if _, ok := encoding.FitComponent(text); !ok {
		w.truncated(n, fmt.Sprintf("name '%s' of %d bytes", excerpt(text), len(text)))
	}
	return encoding.Name(text)
}

func (w *walker) truncated(n *sitter.Node, what string) {
	diag.ReportWarning(w.reporter, diag.SemaNameTruncated, w.span(n),
		fmt.Sprintf("%s exceeds the %d-byte encoding limit and is truncated", what, encoding.MaxComponentLen)).Emit()
}

// sized encodes "unsigned long", "short int", "long double" and the like.
func (w *walker) sized(n *sitter.Node) encoding.Encoding {
	longs, short, unsigned, signed := 0, false, false, false
	for i := 0; i < int(n.ChildCount()); i++ {
		switch n.Child(i).Type() {
		case "long":
			longs++
		case "short":
			short = true
		case "unsigned":
			unsigned = true
		case "signed":
			signed = true
		}
	}
	tag := encoding.TagInt
	if t := n.ChildByFieldName("type"); t != nil {
		if p, ok := primitives[w.text(t)]; ok {
			tag = p
		}
	}
	switch {
	case short:
		tag = encoding.TagShort
	case longs == 1 && tag == encoding.TagDouble:
		tag = encoding.TagLongDouble
	case longs == 1:
		tag = encoding.TagLong
	case longs >= 2:
		tag = encoding.TagLongLong
	}
	e := encoding.Builtin(tag)
	switch {
	case unsigned:
		e.Prepend(encoding.TagUnsigned)
	case signed && tag == encoding.TagChar:
		e.Prepend(encoding.TagSigned)
	}
	return e
}

func (w *walker) typeDescriptor(n *sitter.Node) encoding.Encoding {
	base := w.baseType(n, n.ChildByFieldName("type"))
	if d := n.ChildByFieldName("declarator"); d != nil {
		return w.declarator(d, base).typ
	}
	return base
}

// declared is what a declarator contributes: the declared name and the
// full type built around the base type.
type declared struct {
	name     encoding.Encoding
	nameNode *sitter.Node
	typ      encoding.Encoding
	// fn is the function declarator applied directly to the name; nil for
	// everything that is not a function.
	fn   *sitter.Node
	init *sitter.Node
}

// declarator walks a declarator from the outside in. Each layer wraps the
// type built so far, so "int *a[3]" becomes A3_Pi and "int (*f)(int)"
// becomes PFi_i.
func (w *walker) declarator(n *sitter.Node, base encoding.Encoding) declared {
	d := declared{typ: base}
	for n != nil {
		switch n.Type() {
		case "init_declarator":
			d.init = n.ChildByFieldName("value")
			n = n.ChildByFieldName("declarator")
		case "pointer_declarator", "abstract_pointer_declarator":
			d.typ = encoding.PointerTo(d.typ)
			isConst, isVolatile := w.qualifiers(n)
			d.typ.CVQualify(isConst, isVolatile)
			d.fn = nil
			n = n.ChildByFieldName("declarator")
		case "reference_declarator", "abstract_reference_declarator":
			d.typ = encoding.ReferenceTo(d.typ)
			d.fn = nil
			n = lastNamed(n)
		case "array_declarator", "abstract_array_declarator":
			d.typ = w.array(n, d.typ)
			d.fn = nil
			n = n.ChildByFieldName("declarator")
		case "function_declarator", "abstract_function_declarator":
			d.typ = w.functionType(n, d.typ)
			d.fn = n
			n = n.ChildByFieldName("declarator")
		case "parenthesized_declarator", "abstract_parenthesized_declarator":
			n = lastNamed(n)
		case "attributed_declarator":
			n = firstNamed(n)
		case "bitfield_clause", "type_qualifier":
			n = nil
		default:
			d.nameNode = n
			d.name = w.name(n)
			n = nil
		}
	}
	return d
}

func firstNamed(n *sitter.Node) *sitter.Node {
	if n.NamedChildCount() == 0 {
		return nil
	}
	return n.NamedChild(0)
}

func (w *walker) array(n *sitter.Node, elem encoding.Encoding) encoding.Encoding {
	size := n.ChildByFieldName("size")
	if size == nil {
		elem.UnknownArray()
		return elem
	}
	v, ok := w.constInt(size)
	if !ok || v < 0 {
		elem.UnknownArray()
		return elem
	}
	elem.Array(uint64(v))
	return elem
}

type param struct {
	name     encoding.Encoding
	nameNode *sitter.Node
	typ      encoding.Encoding
}

type params struct {
	list     []param
	ellipsis bool
	// defaulted marks the parameters written with a default argument
	defaulted []bool
}

// parameters decodes a parameter list. A lone unnamed void parameter
// yields an empty list.
func (w *walker) parameters(list *sitter.Node) params {
	var ps params
	if list == nil {
		return ps
	}
	for i := 0; i < int(list.ChildCount()); i++ {
		c := list.Child(i)
		switch c.Type() {
		case "...", "variadic_parameter", "variadic_parameter_declaration":
			ps.ellipsis = true
			continue
		case "optional_parameter_declaration", "parameter_declaration":
		default:
			continue
		}
		base := w.baseType(c, c.ChildByFieldName("type"))
		d := w.declarator(c.ChildByFieldName("declarator"), base)
		ps.list = append(ps.list, param{name: d.name, nameNode: d.nameNode, typ: decay(d.typ)})
		ps.defaulted = append(ps.defaulted, c.Type() == "optional_parameter_declaration")
	}
	if len(ps.list) == 1 && ps.list[0].name.Empty() && ps.list[0].typ == encoding.Builtin(encoding.TagVoid) {
		ps.list = nil
		ps.defaulted = nil
	}
	return ps
}

// decay adjusts array parameters to pointers.
func decay(t encoding.Encoding) encoding.Encoding {
	if t.Front() != encoding.TagArray {
		return t
	}
	end := strings.IndexByte(string(t), encoding.TagEndParams)
	if end < 0 {
		return t
	}
	return encoding.PointerTo(t[end+1:])
}

func (w *walker) functionType(n *sitter.Node, ret encoding.Encoding) encoding.Encoding {
	ps := w.parameters(n.ChildByFieldName("parameters"))
	var e encoding.Encoding
	e.StartFuncArgs()
	if len(ps.list) == 0 && !ps.ellipsis {
		e.Void()
	}
	for _, p := range ps.list {
		e.AppendEncoding(p.typ)
	}
	if ps.ellipsis {
		e.EllipsisArg()
	}
	e.EndFuncArgs()
	e.AppendEncoding(ret)
	if isConst, _ := w.qualifiers(n); isConst {
		e.Prepend(encoding.TagConst)
	}
	return e
}

// name encodes an identifier, a qualified name or a template-id.
func (w *walker) name(n *sitter.Node) encoding.Encoding {
	return encoding.QualifiedName(w.components(n, nil)...)
}

func (w *walker) components(n *sitter.Node, out []encoding.Encoding) []encoding.Encoding {
	switch n.Type() {
	case "qualified_identifier", "qualified_type_identifier":
		if scope := n.ChildByFieldName("scope"); scope != nil {
			out = w.components(scope, out)
		} else {
			out = append(out, encoding.Global())
		}
		if name := n.ChildByFieldName("name"); name != nil {
			out = w.components(name, out)
		}
		return out
	case "template_type", "template_function", "template_method":
		return append(out, w.templateID(n))
	case "destructor_name":
		class := strings.TrimSpace(strings.TrimPrefix(w.text(n), "~"))
		if _, ok := encoding.FitComponent("~" + class); !ok {
			w.truncated(n, fmt.Sprintf("destructor name of %d bytes", len(class)+1))
		}
		var e encoding.Encoding
		e.Destructor(class)
		return append(out, e)
	}
	return append(out, w.identifier(n, compact(w.text(n))))
}

func (w *walker) templateID(n *sitter.Node) encoding.Encoding {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return w.identifier(n, compact(w.text(n)))
	}
	name := w.text(nameNode)
	if _, ok := encoding.FitComponent(name); !ok {
		w.truncated(nameNode, fmt.Sprintf("template name of %d bytes", len(name)))
	}
	var args []encoding.Encoding
	if list := n.ChildByFieldName("arguments"); list != nil {
		for i := 0; i < int(list.NamedChildCount()); i++ {
			a := list.NamedChild(i)
			if a.Type() == "type_descriptor" {
				args = append(args, w.typeDescriptor(a))
				continue
			}
			args = append(args, encoding.Builtin(encoding.TagValueParam))
		}
	}
	var all encoding.Encoding
	for _, a := range args {
		all.AppendEncoding(a)
	}
	if _, ok := encoding.FitArguments(all); !ok {
		w.truncated(n, fmt.Sprintf("template argument list of %d bytes", len(all)))
	}
	return encoding.TemplateID(name, args...)
}

// compact drops the whitespace of operator names such as "operator ()".
func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// constInt folds integral constant expressions made of literals, known
// constants and arithmetic.
func (w *walker) constInt(n *sitter.Node) (int64, bool) {
	switch n.Type() {
	case "number_literal":
		return parseInt(w.text(n))
	case "char_literal":
		s := strings.Trim(w.text(n), "'")
		if r := []rune(s); len(r) == 1 {
			return int64(r[0]), true
		}
	case "true":
		return 1, true
	case "false":
		return 0, true
	case "parenthesized_expression":
		if inner := firstNamed(n); inner != nil {
			return w.constInt(inner)
		}
	case "unary_expression":
		arg := n.ChildByFieldName("argument")
		op := n.ChildByFieldName("operator")
		if arg == nil || op == nil {
			return 0, false
		}
		v, ok := w.constInt(arg)
		if !ok {
			return 0, false
		}
		switch op.Type() {
		case "-":
			return -v, true
		case "+":
			return v, true
		case "~":
			return ^v, true
		case "!":
			if v == 0 {
				return 1, true
			}
			return 0, true
		}
	case "binary_expression":
		return w.binaryConst(n)
	case "identifier", "qualified_identifier":
		found, ok, err := w.res.Probe(w.name(n), symbols.ContextDefault)
		w.check(err)
		if !ok {
			return 0, false
		}
		if id, single := found.Single(); single {
			if sym := w.table.Symbol(id); sym.Kind == symbols.SymbolConst && sym.Value != nil {
				return *sym.Value, true
			}
		}
	}
	return 0, false
}

func (w *walker) binaryConst(n *sitter.Node) (int64, bool) {
	left, right, op := n.ChildByFieldName("left"), n.ChildByFieldName("right"), n.ChildByFieldName("operator")
	if left == nil || right == nil || op == nil {
		return 0, false
	}
	a, ok := w.constInt(left)
	if !ok {
		return 0, false
	}
	b, ok := w.constInt(right)
	if !ok {
		return 0, false
	}
	switch op.Type() {
	case "+":
		return a + b, true
	case "-":
		return a - b, true
	case "*":
		return a * b, true
	case "/":
		if b != 0 {
			return a / b, true
		}
	case "%":
		if b != 0 {
			return a % b, true
		}
	case "<<":
		if b >= 0 && b < 64 {
			return a << uint(b), true
		}
	case ">>":
		if b >= 0 && b < 64 {
			return a >> uint(b), true
		}
	case "|":
		return a | b, true
	case "&":
		return a & b, true
	case "^":
		return a ^ b, true
	}
	return 0, false
}

func parseInt(text string) (int64, bool) {
	s := strings.ReplaceAll(text, "'", "")
	s = strings.TrimRight(s, "uUlLzZ")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
