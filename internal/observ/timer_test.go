package observ

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func fakeClock(step time.Duration) func() time.Time {
	at := time.Unix(0, 0)
	return func() time.Time {
		at = at.Add(step)
		return at
	}
}

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	tm.now = fakeClock(2 * time.Millisecond)

	idx := tm.Begin("parse")
	tm.End(idx, "")
	err := tm.Measure("declare", func() error { return errors.New("boom") })
	if err == nil || err.Error() != "boom" {
		t.Fatalf("Measure should return fn's error, got %v", err)
	}
	tm.End(42, "ignored")

	r := tm.Report()
	if len(r.Phases) != 2 {
		t.Fatalf("expected 2 phases, got %d", len(r.Phases))
	}
	if r.Phases[0].DurationMS != 2 || r.Phases[1].DurationMS != 2 || r.TotalMS != 4 {
		t.Fatalf("unexpected durations %+v", r)
	}
	if r.Phases[1].Note != "boom" {
		t.Fatalf("expected the error as note, got %q", r.Phases[1].Note)
	}
	if s := tm.Summary(); !strings.Contains(s, "declare") || !strings.Contains(s, "(boom)") {
		t.Fatalf("unexpected summary:\n%s", s)
	}
}

func TestEmptyTimer(t *testing.T) {
	if r := NewTimer().Report(); r.TotalMS != 0 || r.Phases != nil {
		t.Fatalf("expected an empty report, got %+v", r)
	}
}
