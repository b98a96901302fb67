package encoding

import "testing"

func TestDecodeRoundTrip(t *testing.T) {
	var global Encoding
	global.GlobalScope()
	global.SimpleName("g")

	var member Encoding = "Fi_v"
	member.PtrToMember(Name("A")+Name("B"), 2)

	cases := []Encoding{
		Name("x"),
		global,
		ParseQualified("A::B::c"),
		TemplateID("map", Name("K"), TemplateID("vector", Builtin(TagInt))),
		QualifiedName(Name("std"), TemplateID("vector", Builtin(TagChar)), Name("iterator")),
		ConstOf(PointerTo(ConstOf(Builtin(TagChar)))),
		ReferenceTo(ArrayOf(4, Builtin(TagDouble))),
		FunctionType(Builtin(TagVoid)),
		FunctionType(PointerTo(Builtin(TagChar)), Builtin(TagInt), Builtin(TagEllipsis)),
		PointerTo(FunctionType(Builtin(TagInt), FunctionType(Builtin(TagVoid), Builtin(TagInt)))),
		member,
		"CFv_i",
		"UPVl",
	}
	for _, enc := range cases {
		typ, err := Decode(enc)
		if err != nil {
			t.Fatalf("Decode(%s): %v", enc, err)
		}
		if got := typ.Encode(); got != enc {
			t.Errorf("round trip of %s produced %s", enc, got)
		}
	}
}

func TestDecodeStructure(t *testing.T) {
	typ, err := Decode("PFiPc_v")
	if err != nil {
		t.Fatal(err)
	}
	if typ.Kind != KindPointer || typ.Elem.Kind != KindFunction {
		t.Fatalf("unexpected shape: %v -> %v", typ.Kind, typ.Elem.Kind)
	}
	fn := typ.Elem
	if len(fn.Params) != 2 || fn.Params[1].Kind != KindPointer || fn.Return.Tag != TagVoid {
		t.Fatalf("unexpected function decode: %+v", fn)
	}
	if typ.String() != "void(*)(int,char*)" {
		t.Errorf("String = %q", typ.String())
	}
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	if _, err := Decode("ii"); err == nil {
		t.Fatalf("expected error for two tokens")
	}
	if _, err := Decode(""); err == nil {
		t.Fatalf("expected error for empty encoding")
	}
}
