package main

import (
	"os"
	"path/filepath"
	"testing"

	"cxxsema/internal/encoding"
	"cxxsema/internal/symbols"
)

func TestParseDebugEncodingReversesString(t *testing.T) {
	names := []encoding.Encoding{
		encoding.ParseQualified("A::x"),
		encoding.ParseQualified("::g"),
		encoding.PointerTo(encoding.Builtin(encoding.TagInt)),
		encoding.Encoding("PFi_i"),
	}
	for _, want := range names {
		got, err := parseDebugEncoding(want.String())
		if err != nil {
			t.Fatalf("%s: %v", want.String(), err)
		}
		if got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	}
}

func TestParseDebugEncodingErrors(t *testing.T) {
	for _, in := range []string{"[3", "[x]", "[200]"} {
		if _, err := parseDebugEncoding(in); err == nil {
			t.Fatalf("%q: expected an error", in)
		}
	}
}

func TestUnmangleOne(t *testing.T) {
	r := unmangleOne("PFi_i")
	if r.Error != "" || r.Unmangled != "int(*)(int)" {
		t.Fatalf("unexpected report %+v", r)
	}

	unmangleEncode = true
	defer func() { unmangleEncode = false }()
	r = unmangleOne("A::x")
	if r.Encoding != encoding.ParseQualified("A::x").String() || r.Unmangled != "A::x" {
		t.Fatalf("unexpected report %+v", r)
	}
}

func TestStructure(t *testing.T) {
	typ, err := encoding.Decode(encoding.Encoding("PFi_i"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := structure(typ); got != "pointer(function(int) -> int)" {
		t.Fatalf("unexpected structure %q", got)
	}
}

func TestParseLookupContext(t *testing.T) {
	cases := map[string]symbols.LookupContext{
		"":           symbols.ContextDefault,
		"default":    symbols.ContextDefault,
		"Elaborated": symbols.ContextElaborated,
		"type":       symbols.ContextType,
		"scope":      symbols.ContextScope,
	}
	for in, want := range cases {
		got, err := parseLookupContext(in)
		if err != nil || got != want {
			t.Fatalf("%q: expected %v, got %v (%v)", in, want, got, err)
		}
	}
	if _, err := parseLookupContext("using"); err == nil {
		t.Fatalf("expected an error for an unsupported context")
	}
}

func TestExpandPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.cc", "a.c", "notes.txt", filepath.Join(".git", "x.c")} {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	got, err := expandPaths([]string{dir, "missing.cpp"})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := []string{filepath.Join(dir, "a.c"), filepath.Join(dir, "b.cc"), "missing.cpp"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	if _, err := expandPaths([]string{t.TempDir()}); err == nil {
		t.Fatalf("expected an error for a directory without sources")
	}
}
