package encoding

import (
	"errors"
	"strings"
	"testing"
)

func TestSimpleNameAndGlobalScope(t *testing.T) {
	x := Name("x")
	if x != "\x81x" {
		t.Fatalf("Name(x) = %q", string(x))
	}
	if !x.IsSimpleName() || x.IsQualified() || x.IsGlobalScope() {
		t.Fatalf("unexpected predicates for %s", x)
	}

	var g Encoding
	g.GlobalScope()
	g.SimpleName("y")
	if g != "Q\x82\x80\x81y" {
		t.Fatalf("::y = %q", string(g))
	}
	if got := g.Unmangled(); got != "::y" {
		t.Fatalf("::y unmangled to %q", got)
	}
	if !Global().IsGlobalScope() {
		t.Fatalf("Global() is not the global scope")
	}
}

func TestQualifiedScopeAndSymbol(t *testing.T) {
	q := ParseQualified("A::B::x")
	if q != "Q\x83\x81A\x81B\x81x" {
		t.Fatalf("ParseQualified = %q", string(q))
	}
	if got := q.Scope(); got != Name("A") {
		t.Errorf("Scope = %s", got)
	}
	if got := q.Symbol(); got != ParseQualified("B::x") {
		t.Errorf("Symbol = %s", got)
	}
	two := ParseQualified("B::x")
	if got := two.Symbol(); got != Name("x") {
		t.Errorf("Symbol of two components = %s", got)
	}
	if got := Name("x").Symbol(); got != Name("x") {
		t.Errorf("Symbol of simple name = %s", got)
	}
	if got := Name("x").Scope(); got != "" {
		t.Errorf("Scope of simple name = %s", got)
	}
}

func TestNameIterator(t *testing.T) {
	q := QualifiedName(Name("std"), TemplateID("vector", Builtin(TagInt)), Name("iterator"))
	it := q.Names()
	var got []string
	for {
		c, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, c.Unmangled())
	}
	want := []string{"std", "vector<int>", "iterator"}
	if len(got) != len(want) {
		t.Fatalf("components = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("component %d = %q, want %q", i, got[i], want[i])
		}
	}

	it.Reset()
	it.Next()
	if rest := it.Rest(); rest != QualifiedName(TemplateID("vector", Builtin(TagInt)), Name("iterator")) {
		t.Errorf("Rest = %s", rest)
	}

	simple := Name("x").Names()
	c, ok := simple.Next()
	if !ok || c != Name("x") {
		t.Fatalf("simple name iteration = %s,%v", c, ok)
	}
	if _, ok := simple.Next(); ok {
		t.Fatalf("simple name yielded twice")
	}
}

func TestTemplateID(t *testing.T) {
	v := TemplateID("vector", Builtin(TagInt), PointerTo(Builtin(TagChar)))
	if v != "T\x86vector\x83iPc" {
		t.Fatalf("template = %q", string(v))
	}
	if v.TemplateName() != Name("vector") {
		t.Errorf("TemplateName = %s", v.TemplateName())
	}
	if v.TemplateArguments() != "iPc" {
		t.Errorf("TemplateArguments = %s", v.TemplateArguments())
	}
	if got := v.Unmangled(); got != "vector<int,char*>" {
		t.Errorf("unmangled = %q", got)
	}
}

func TestModifiers(t *testing.T) {
	e := Builtin(TagChar)
	e.CVQualify(true, true)
	if e != "CVc" {
		t.Fatalf("CVQualify = %s", e)
	}
	e = Builtin(TagInt)
	e.Array(16)
	e.PtrOperator('*')
	if e != "PA16_i" {
		t.Fatalf("pointer to array = %s", e)
	}
	if got := e.Unmangled(); got != "int(*)[16]" {
		t.Errorf("unmangled = %q", got)
	}

	var m Encoding = "i"
	m.PtrToMember(Name("A"), 1)
	if m != "M\x81Ai" {
		t.Fatalf("PtrToMember = %q", string(m))
	}
	if got := m.Unmangled(); got != "int A::*" {
		t.Errorf("member unmangled = %q", got)
	}
	var mq Encoding = "i"
	mq.PtrToMember(Name("A")+Name("B"), 2)
	if mq != "MQ\x82\x81A\x81Bi" {
		t.Fatalf("qualified PtrToMember = %q", string(mq))
	}

	var cast Encoding
	cast.CastOperator("i")
	if cast != "\x82@i" {
		t.Fatalf("CastOperator = %q", string(cast))
	}
	var dtor Encoding
	dtor.Destructor("Foo")
	if dtor.Unmangled() != "~Foo" {
		t.Fatalf("Destructor = %q", dtor.Unmangled())
	}
}

func TestFunctionEncoding(t *testing.T) {
	f := FunctionType(Builtin(TagVoid), Builtin(TagInt), PointerTo(ConstOf(Builtin(TagChar))))
	if f != "FiPCc_v" {
		t.Fatalf("FunctionType = %s", f)
	}
	if !f.IsFunction() {
		t.Fatalf("IsFunction false for %s", f)
	}
	if got := f.FunctionReturnType(); got != "v" {
		t.Errorf("return type = %s", got)
	}
	if got := f.Unmangled(); got != "void(int,const char*)" {
		t.Errorf("unmangled = %q", got)
	}
	if got := PointerTo(f).Unmangled(); got != "void(*)(int,const char*)" {
		t.Errorf("pointer unmangled = %q", got)
	}

	cm := Encoding("CFv_i")
	if !cm.IsFunction() {
		t.Fatalf("const member function not recognised")
	}
	if got := cm.Unmangled(); got != "int() const" {
		t.Errorf("const member unmangled = %q", got)
	}
}

func TestFunctionSignature(t *testing.T) {
	cases := []struct {
		enc      Encoding
		params   int
		ellipsis bool
		ret      Encoding
	}{
		{"Fv_i", 0, false, "i"},
		{"Fii_v", 2, false, "v"},
		{"Fie_v", 1, true, "v"},
		{"Fe_v", 0, true, "v"},
		{"FPFi_v_v", 1, false, "v"},
		{"CFi_i", 1, false, "i"},
		{"FA3_i_Pc", 1, false, "Pc"},
	}
	for _, tc := range cases {
		sig, err := tc.enc.FunctionSignature()
		if err != nil {
			t.Fatalf("%s: %v", tc.enc, err)
		}
		if len(sig.Params) != tc.params || sig.Ellipsis != tc.ellipsis || sig.Return != tc.ret {
			t.Errorf("%s: got %d params ellipsis=%v ret=%s", tc.enc, len(sig.Params), sig.Ellipsis, sig.Return)
		}
	}
	if _, err := Name("f").FunctionSignature(); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed for non-function, got %v", err)
	}
}

func TestUnmangleBuiltins(t *testing.T) {
	cases := map[Encoding]string{
		"i":    "int",
		"Ui":   "unsigned int",
		"Sc":   "signed char",
		"j":    "long long",
		"r":    "long double",
		"Ri":   "int&",
		"Vw":   "volatile wchar_t",
		"A_c":  "char[]",
		"\x80": "",
	}
	for enc, want := range cases {
		if got := enc.Unmangled(); got != want {
			t.Errorf("%s: got %q, want %q", enc, got, want)
		}
	}
}

func TestUnmangleDeclarators(t *testing.T) {
	cases := map[Encoding]string{
		"A3_Pi":   "int*[3]",
		"RA3_i":   "int(&)[3]",
		"PA3_i":   "int(*)[3]",
		"A2_A3_i": "int[2][3]",
		"PPi":     "int**",
		"CPc":     "char* const",
		"PCPc":    "char* const*",
		"PCc":     "const char*",
		"RFi_v":   "void(&)(int)",
		"PA2_Pc":  "char*(*)[2]",
	}
	for enc, want := range cases {
		if got := enc.Unmangled(); got != want {
			t.Errorf("%q: got %q, want %q", string(enc), got, want)
		}
	}
}

func TestMalformed(t *testing.T) {
	for _, enc := range []Encoding{"P", "Fi", "A3", "\x85ab", "Q\x83\x81A", "Tx"} {
		if _, err := enc.Unmangle(); !errors.Is(err, ErrMalformed) {
			t.Errorf("%q: expected ErrMalformed, got %v", string(enc), err)
		}
	}
}

func TestOrderingIsBytewise(t *testing.T) {
	a, b := Name("a"), Name("ab")
	if Compare(a, b) >= 0 {
		t.Fatalf("expected %s < %s", a, b)
	}
	m := map[Encoding]int{a: 1, b: 2}
	if m[Name("a")] != 1 {
		t.Fatalf("map lookup by equal encoding failed")
	}
}

func TestDebugString(t *testing.T) {
	if got := ParseQualified("A::b").String(); got != "Q[2][1]A[1]b" {
		t.Fatalf("String = %q", got)
	}
}

func TestAnonymousNamer(t *testing.T) {
	var n AnonymousNamer
	if got := n.Anonymous().Identifier(); got != "`0000" {
		t.Fatalf("first anonymous = %q", got)
	}
	if got := n.Anonymous().Identifier(); got != "`0001" {
		t.Fatalf("second anonymous = %q", got)
	}
}

func TestOversizedComponentsAreCut(t *testing.T) {
	long := strings.Repeat("x", 130)
	n := Name(long)
	if len(n) != MaxComponentLen+1 || n[0] != 0xff {
		t.Fatalf("Name of 130 bytes = %d bytes, prefix %#x", len(n), n[0])
	}
	d, err := Decode(n)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.Ident != long[:MaxComponentLen] {
		t.Fatalf("identifier kept %d bytes", len(d.Ident))
	}

	fitted, ok := FitComponent(strings.Repeat("a", 126) + "é")
	if ok || len(fitted) != 126 {
		t.Fatalf("FitComponent split a rune: %d bytes, ok=%v", len(fitted), ok)
	}
	if _, ok := FitComponent("short"); !ok {
		t.Fatalf("FitComponent cut a short name")
	}

	arg := Name(strings.Repeat("n", 40))
	id := TemplateID("box", arg, arg, arg, arg, Builtin(TagInt))
	d, err = Decode(id)
	if err != nil {
		t.Fatalf("decode template: %v", err)
	}
	if d.Ident != "box" || len(d.Args) != 3 {
		t.Fatalf("expected box with the three arguments that fit, got %s with %d", d.Ident, len(d.Args))
	}

	var cast Encoding
	cast.CastOperator(Encoding(strings.Repeat("i", 200)))
	if cast != "\x81@" {
		t.Fatalf("oversized CastOperator = %q", string(cast))
	}
}

func TestOperatorNamesCountAsComponents(t *testing.T) {
	var dtor Encoding
	dtor.GlobalScope()
	dtor.Destructor("A")
	if dtor != "Q\x82\x80\x82~A" {
		t.Fatalf("::~A = %q", string(dtor))
	}
	var cast Encoding
	cast.GlobalScope()
	cast.CastOperator("i")
	if cast != "Q\x82\x80\x82@i" {
		t.Fatalf("::operator int = %q", string(cast))
	}
	var tmpl Encoding
	tmpl.GlobalScope()
	tmpl.Template("box", Builtin(TagInt))
	for _, e := range []Encoding{dtor, cast, tmpl} {
		d, err := Decode(e)
		if err != nil {
			t.Fatalf("decode %q: %v", string(e), err)
		}
		if len(d.Components) != 2 {
			t.Fatalf("%q: expected two components, got %d", string(e), len(d.Components))
		}
	}
}
