//go:build cgo

package cxx

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"cxxsema/internal/diag"
	"cxxsema/internal/encoding"
	"cxxsema/internal/overload"
	"cxxsema/internal/symbols"
	"cxxsema/internal/syntax"
)

// call records a call through a plain or qualified name. Calls through
// member access or other expressions are only searched for nested calls.
func (w *walker) call(n *sitter.Node) {
	fn := n.ChildByFieldName("function")
	args := n.ChildByFieldName("arguments")
	if args != nil {
		w.children(args)
	}
	if fn == nil {
		return
	}
	switch fn.Type() {
	case "identifier", "qualified_identifier", "template_function":
	default:
		w.node(fn)
		return
	}
	if !w.calls || w.stopped() {
		return
	}

	site := CallSite{
		Node:   w.register(n, syntax.KindCall),
		Span:   w.span(n),
		Scope:  w.res.CurrentScope(),
		Callee: w.name(fn),
	}
	if args != nil {
		for i := 0; i < int(args.NamedChildCount()); i++ {
			a := args.NamedChild(i)
			if a.Type() == "comment" {
				continue
			}
			site.Args = append(site.Args, w.typeOf(a))
		}
	}

	r := overload.NewResolver(w.table, site.Scope)
	r.Tracer = w.tracer
	res, err := r.Resolve(site.Callee, site.Args)
	site.Candidates, site.Viable = res.Candidates, res.Viable
	switch {
	case err != nil && symbols.IsInternal(err):
		w.check(err)
		return
	case symbols.IsUndefined(err):
		site.Err = err
		diag.ReportWarning(w.reporter, diag.SemaUndefined, site.Span,
			fmt.Sprintf("call to undeclared function '%s'", site.Callee.Unmangled())).Emit()
	case symbols.IsTypeError(err):
		if w.callsThroughPointer(res.Candidates) {
			break
		}
		site.Err = err
		diag.ReportError(w.reporter, diag.SemaTypeError, site.Span,
			fmt.Sprintf("'%s' is not a function", site.Callee.Unmangled())).Emit()
	case err != nil:
		site.Err = err
		w.res.Report(err, site.Node)
	case res.Viable.Empty():
		site.Err = fmt.Errorf("%w for call to '%s' with %d arguments", overload.ErrNoViable, site.Callee.Unmangled(), len(site.Args))
		b := diag.ReportError(w.reporter, diag.SemaNoViableOverload, site.Span, site.Err.Error())
		for _, id := range res.Candidates {
			if sym := w.table.Symbol(id); sym != nil {
				b.WithNote(w.nodes.Span(sym.Node), "candidate: "+sym.Type.Unmangled())
			}
		}
		b.Emit()
	case w.sameSignature(res.Viable):
		site.Err = fmt.Errorf("call to '%s' is ambiguous", site.Callee.Unmangled())
		diag.ReportWarning(w.reporter, diag.SemaAmbiguousOverload, site.Span, site.Err.Error()).Emit()
	}
	w.unit.Calls = append(w.unit.Calls, site)
}

// callsThroughPointer reports whether the callee is a single variable of
// function or pointer-to-function type.
func (w *walker) callsThroughPointer(found symbols.SymbolSet) bool {
	id, ok := found.Single()
	if !ok {
		return false
	}
	sym := w.table.Symbol(id)
	if sym == nil || !sym.IsVariable() {
		return false
	}
	t := stripCV(sym.Type)
	for t.Front() == encoding.TagPointer || t.Front() == encoding.TagReference {
		t = stripCV(t[1:])
	}
	return t.IsFunction()
}

// sameSignature reports whether two viable candidates share a type, which
// no ranking could tell apart.
func (w *walker) sameSignature(viable symbols.SymbolSet) bool {
	seen := make(map[encoding.Encoding]bool, len(viable))
	for _, id := range viable {
		t := w.table.Symbol(id).Type
		if seen[t] {
			return true
		}
		seen[t] = true
	}
	return false
}

func stripCV(t encoding.Encoding) encoding.Encoding {
	for t.Front() == encoding.TagConst || t.Front() == encoding.TagVolatile {
		t = t[1:]
	}
	return t
}

// typeOf is a small expression type evaluator for call arguments. It
// returns an empty encoding for expressions it does not model.
func (w *walker) typeOf(n *sitter.Node) encoding.Encoding {
	switch n.Type() {
	case "number_literal":
		return numberType(w.text(n))
	case "char_literal":
		return encoding.Builtin(encoding.TagChar)
	case "string_literal", "concatenated_string", "raw_string_literal":
		return encoding.PointerTo(encoding.ConstOf(encoding.Builtin(encoding.TagChar)))
	case "true", "false":
		return encoding.Builtin(encoding.TagBool)
	case "null", "nullptr":
		return encoding.PointerTo(encoding.Builtin(encoding.TagVoid))
	case "this":
		if class := w.enclosingClass(); !class.Empty() {
			return encoding.PointerTo(class)
		}
	case "parenthesized_expression":
		if inner := firstNamed(n); inner != nil {
			return w.typeOf(inner)
		}
	case "identifier", "qualified_identifier":
		return w.nameType(w.name(n))
	case "pointer_expression":
		arg := n.ChildByFieldName("argument")
		op := n.ChildByFieldName("operator")
		if arg == nil || op == nil {
			return ""
		}
		t := w.typeOf(arg)
		if t.Empty() {
			return t
		}
		if op.Type() == "&" {
			return encoding.PointerTo(t)
		}
		if t = stripCV(t); t.Front() == encoding.TagPointer {
			return t[1:]
		}
	case "cast_expression":
		if t := n.ChildByFieldName("type"); t != nil {
			return w.typeDescriptor(t)
		}
	case "assignment_expression":
		if left := n.ChildByFieldName("left"); left != nil {
			return w.typeOf(left)
		}
	case "call_expression":
		return w.returnType(n)
	case "field_expression":
		return w.fieldType(n)
	case "sizeof_expression":
		return encoding.Name("size_t")
	}
	return ""
}

func numberType(text string) encoding.Encoding {
	lower := strings.ToLower(text)
	isHex := strings.HasPrefix(lower, "0x")
	if strings.ContainsAny(lower, ".p") || !isHex && strings.Contains(lower, "e") {
		if strings.HasSuffix(lower, "f") && !isHex {
			return encoding.Builtin(encoding.TagFloat)
		}
		if strings.HasSuffix(lower, "l") {
			return encoding.Builtin(encoding.TagLongDouble)
		}
		return encoding.Builtin(encoding.TagDouble)
	}
	suffix := lower[len(strings.TrimRight(lower, "ul")):]
	var t encoding.Encoding
	switch strings.Count(suffix, "l") {
	case 0:
		t = encoding.Builtin(encoding.TagInt)
	case 1:
		t = encoding.Builtin(encoding.TagLong)
	default:
		t = encoding.Builtin(encoding.TagLongLong)
	}
	if strings.Contains(suffix, "u") {
		t.Prepend(encoding.TagUnsigned)
	}
	return t
}

// nameType is the declared type of the variable or function a name denotes.
func (w *walker) nameType(name encoding.Encoding) encoding.Encoding {
	found, ok, err := w.res.Probe(name, symbols.ContextDefault)
	w.check(err)
	if !ok {
		return ""
	}
	id, single := found.Single()
	if !single {
		return ""
	}
	sym := w.table.Symbol(id)
	if sym.IsVariable() || sym.IsFunction() {
		return sym.Type
	}
	return ""
}

// returnType evaluates a nested call whose callee resolves to exactly one
// viable function.
func (w *walker) returnType(n *sitter.Node) encoding.Encoding {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case "identifier", "qualified_identifier", "template_function":
	default:
		return ""
	}
	var args []encoding.Encoding
	if list := n.ChildByFieldName("arguments"); list != nil {
		for i := 0; i < int(list.NamedChildCount()); i++ {
			args = append(args, w.typeOf(list.NamedChild(i)))
		}
	}
	res, err := overload.NewResolver(w.table, w.res.CurrentScope()).Resolve(w.name(fn), args)
	if err != nil {
		w.check(err)
		return ""
	}
	id, ok := res.Unique()
	if !ok {
		return ""
	}
	return w.table.Symbol(id).Type.FunctionReturnType()
}

// fieldType evaluates a.b and p->b for members of known classes.
func (w *walker) fieldType(n *sitter.Node) encoding.Encoding {
	arg := n.ChildByFieldName("argument")
	field := n.ChildByFieldName("field")
	if arg == nil || field == nil {
		return ""
	}
	t := stripCV(w.typeOf(arg))
	if op := n.ChildByFieldName("operator"); op != nil && op.Type() == "->" {
		if t.Front() != encoding.TagPointer {
			return ""
		}
		t = stripCV(t[1:])
	}
	if t.Front() == encoding.TagReference {
		t = stripCV(t[1:])
	}
	if t.Empty() || !(t.IsSimpleName() || t.IsQualified()) {
		return ""
	}
	found, ok, err := w.res.Probe(t, symbols.ContextType)
	w.check(err)
	if !ok {
		return ""
	}
	id, single := found.Single()
	if !single {
		return ""
	}
	scope, err := w.table.FindSymbolScope(t, id)
	if err != nil {
		w.check(err)
		return ""
	}
	members, err := w.table.QualifiedLookup(scope, encoding.Name(w.text(field)), symbols.ContextDefault)
	if err != nil {
		w.check(err)
		return ""
	}
	if m, ok := members.Single(); ok {
		return w.table.Symbol(m).Type
	}
	return ""
}

// enclosingClass names the class whose member function or body is being
// walked.
func (w *walker) enclosingClass() encoding.Encoding {
	for id := w.res.CurrentScope(); id.IsValid(); {
		s := w.table.Scope(id)
		if s == nil {
			break
		}
		switch {
		case s.Kind == symbols.ScopeClass:
			return s.Name
		case s.Kind == symbols.ScopeFunction && s.Class.IsValid():
			if c := w.table.Scope(s.Class); c != nil {
				return c.Name
			}
		}
		id = s.Outer
	}
	return ""
}
