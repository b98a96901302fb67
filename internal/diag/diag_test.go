package diag

import (
	"testing"

	"cxxsema/internal/source"
)

func TestBagLimitAndErrors(t *testing.T) {
	bag := NewBag(2)
	bag.Add(NewWarning(SemaUndefined, source.Span{Start: 4}, "w"))
	if bag.HasErrors() {
		t.Fatalf("a warning is not an error")
	}
	bag.Add(NewError(SemaTypeError, source.Span{Start: 1}, "e"))
	if bag.Add(NewError(SemaTypeError, source.Span{Start: 9}, "dropped")) {
		t.Fatalf("expected the third diagnostic to be dropped")
	}
	if !bag.HasErrors() || bag.Len() != 2 {
		t.Fatalf("unexpected bag %+v", bag.Items())
	}
	bag.Sort()
	if bag.Items()[0].Code != SemaTypeError {
		t.Fatalf("expected the earlier span first, got %+v", bag.Items())
	}
}

func TestDedupReporter(t *testing.T) {
	bag := NewBag(0)
	r := NewDedupReporter(BagReporter{Bag: bag})
	span := source.Span{Start: 3, End: 7}
	for i := 0; i < 3; i++ {
		ReportError(r, SemaNoViableOverload, span, "no viable overload for 'f'").
			WithNote(source.Span{Start: 0, End: 1}, "candidate: int(int)").
			Emit()
	}
	ReportWarning(r, SemaUndefined, span, "'g' is undefined").Emit()
	if bag.Len() != 2 || r.Forwarded() != 2 {
		t.Fatalf("expected two distinct diagnostics, got %d", bag.Len())
	}
	if notes := bag.Items()[0].Notes; len(notes) != 1 {
		t.Fatalf("expected the note to survive, got %+v", notes)
	}
}

func TestBuilderEmitsOnce(t *testing.T) {
	bag := NewBag(0)
	b := ReportInfo(BagReporter{Bag: bag}, ObsTimings, source.Span{}, "timings")
	b.Emit()
	b.Emit()
	if bag.Len() != 1 || bag.Items()[0].Severity != SevInfo {
		t.Fatalf("unexpected bag %+v", bag.Items())
	}
	if got := SevWarning.String(); got != "warning" {
		t.Fatalf("severity = %q", got)
	}
}
