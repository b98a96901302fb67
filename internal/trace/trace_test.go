package trace

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestStreamTracerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, Filter{Level: LevelPhase}, FormatText)

	sp := Begin(tr, ScopePass, "declare", 0)
	Point(tr, ScopeLookup, "find", "x")
	sp.End("ok")
	if err := tr.Flush(); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.Contains(out, "→ declare") || !strings.Contains(out, "← declare (ok)") {
		t.Fatalf("missing span events:\n%s", out)
	}
	if strings.Contains(out, "find") {
		t.Fatalf("lookup-scope event leaked at phase level:\n%s", out)
	}
}

func TestPointExtraIsSorted(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, Filter{Level: LevelDebug}, FormatText)
	Point(tr, ScopeLookup, "lookup", "", "scope", "3", "name", "x")
	if err := tr.Flush(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "{name=x, scope=3}") {
		t.Fatalf("unexpected extra rendering: %q", buf.String())
	}
}

func TestRingTracerWraps(t *testing.T) {
	ring := NewRingTracer(2, Filter{Level: LevelDebug})
	for _, name := range []string{"a", "b", "c"} {
		Point(ring, ScopeLookup, name, "")
	}
	events := ring.Snapshot()
	if len(events) != 2 || events[0].Name != "b" || events[1].Name != "c" {
		t.Fatalf("unexpected snapshot: %+v", events)
	}
}

func TestMultiTracerRing(t *testing.T) {
	var buf bytes.Buffer
	ring := NewRingTracer(8, Filter{Level: LevelDetail})
	multi := NewMultiTracer(LevelDetail, NewStreamTracer(&buf, Filter{Level: LevelDetail}, FormatNDJSON), ring)
	Begin(multi, ScopeUnit, "unit:a.cc", 0).End("")
	if err := multi.Flush(); err != nil {
		t.Fatal(err)
	}

	if multi.Ring() != ring {
		t.Fatalf("Ring() did not return the child ring")
	}
	if len(ring.Snapshot()) != 2 {
		t.Fatalf("ring holds %d events, want 2", len(ring.Snapshot()))
	}
	if !strings.Contains(buf.String(), `"scope":"unit"`) {
		t.Fatalf("ndjson output missing scope: %s", buf.String())
	}
}

func TestContextPropagation(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatalf("expected Nop from empty context")
	}
	ring := NewRingTracer(1, Filter{Level: LevelDebug})
	ctx := WithTracer(context.Background(), ring)
	if FromContext(ctx) != Tracer(ring) {
		t.Fatalf("tracer not propagated")
	}
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DETAIL")
	if err != nil || lvl != LevelDetail {
		t.Fatalf("ParseLevel = %v, %v", lvl, err)
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestStartNestsSpans(t *testing.T) {
	ring := NewRingTracer(8, Filter{Level: LevelDebug})
	ctx := WithTracer(context.Background(), ring)

	ctx, outer := Start(ctx, ScopeDriver, "outer")
	_, inner := Start(ctx, ScopePass, "inner")
	inner.End("")
	outer.End("")

	events := ring.Snapshot()
	if len(events) != 4 {
		t.Fatalf("got %d events, want 4", len(events))
	}
	if events[1].ParentID != outer.ID() {
		t.Fatalf("inner parent = %d, want %d", events[1].ParentID, outer.ID())
	}
}

func TestScopeFilter(t *testing.T) {
	set, err := ParseScopes([]string{"unit,lookup"})
	if err != nil {
		t.Fatal(err)
	}
	if set.String() != "unit,lookup" {
		t.Fatalf("unexpected set %s", set)
	}
	if _, err := ParseScopes([]string{"symbols"}); err == nil {
		t.Fatalf("expected error for unknown scope")
	}

	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, Filter{Level: LevelDebug, Scopes: set}, FormatText)
	if tr.Admits(ScopePass) || !tr.Admits(ScopeLookup) {
		t.Fatalf("filter admits the wrong scopes")
	}
	Begin(tr, ScopePass, "declare", 0).End("")
	Point(tr, ScopeLookup, "find", "x")
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	if out := buf.String(); strings.Contains(out, "declare") || !strings.Contains(out, "find") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestRingTracerKeepsEverythingAtErrorLevel(t *testing.T) {
	ring := NewRingTracer(2, Filter{Level: LevelError})
	for _, name := range []string{"a", "b", "c", "d"} {
		Point(ring, ScopeLookup, name, "")
	}
	if got := ring.Dropped(); got != 2 {
		t.Fatalf("Dropped = %d, want 2", got)
	}
	var buf bytes.Buffer
	if err := ring.Dump(&buf, FormatText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "# 2 earlier events dropped\n") {
		t.Fatalf("unexpected dump:\n%s", out)
	}
	if events := ring.Snapshot(); len(events) != 2 || events[0].Name != "c" || events[1].Name != "d" {
		t.Fatalf("unexpected snapshot: %+v", events)
	}

	stream := NewStreamTracer(&buf, Filter{Level: LevelError}, FormatText)
	if stream.Admits(ScopeDriver) {
		t.Fatalf("a stream at error level must stay silent")
	}
}

func TestNewPicksFormatFromExtension(t *testing.T) {
	cfg := Config{Level: LevelDetail, Mode: ModeStream, OutputPath: "run.jsonl"}
	if cfg.format() != FormatNDJSON {
		t.Fatalf("expected ndjson for .jsonl")
	}
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelDetail, Mode: ModeBoth, Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	multi, ok := tr.(*MultiTracer)
	if !ok || multi.Ring() == nil {
		t.Fatalf("both mode should pair a stream with a ring, got %T", tr)
	}
	if m, err := ParseMode("RING"); err != nil || m != ModeRing {
		t.Fatalf("ParseMode = %v, %v", m, err)
	}
}
