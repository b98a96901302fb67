package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"cxxsema/internal/diag"
	"cxxsema/internal/source"
)

func TestPrettyWithContext(t *testing.T) {
	fs := source.NewFileSet()
	content := []byte("int x;\ndouble x;\n")
	file := fs.AddVirtual("t.cc", content)

	bag := diag.NewBag(10)
	d := diag.NewError(diag.SemaMultiplyDefined, source.Span{File: file, Start: 14, End: 15}, "'x' is multiply defined").
		WithNote(source.Span{File: file, Start: 4, End: 5}, "previous declaration here")
	bag.Add(d)

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{ShowNotes: true, Context: true})
	out := buf.String()

	for _, want := range []string{
		"t.cc:2:8: error: 'x' is multiply defined [SEM3002]",
		"    2 | double x;",
		"       ^",
		"t.cc:1:5: note: previous declaration here",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestJSONPositions(t *testing.T) {
	fs := source.NewFileSet()
	file := fs.AddVirtual("t.cc", []byte("a\nbc\n"))
	bag := diag.NewBag(0)
	bag.Add(diag.NewError(diag.SemaUndefined, source.Span{File: file, Start: 2, End: 4}, "undefined"))

	out := BuildDiagnosticsOutput(bag, fs, JSONOpts{IncludePositions: true})
	if out.Count != 1 {
		t.Fatalf("count = %d", out.Count)
	}
	loc := out.Diagnostics[0].Location
	if loc.StartLine != 2 || loc.StartCol != 1 || loc.EndCol != 3 {
		t.Errorf("unexpected location %+v", loc)
	}
	if out.Diagnostics[0].Code != "SEM3004" {
		t.Errorf("code = %s", out.Diagnostics[0].Code)
	}
}
