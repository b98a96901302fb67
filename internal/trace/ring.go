package trace

import (
	"fmt"
	"io"
	"sync"
)

const defaultRingSize = 4096

// RingTracer retains the most recent events in memory so a failed run can
// show what led up to it. Older events are overwritten.
type RingTracer struct {
	mu     sync.Mutex
	buf    []Event
	next   int
	total  uint64
	filter Filter
}

// NewRingTracer keeps up to size events. At LevelError the level does not
// narrow what is kept, only the scope set does.
func NewRingTracer(size int, filter Filter) *RingTracer {
	if size <= 0 {
		size = defaultRingSize
	}
	return &RingTracer{buf: make([]Event, size), filter: filter}
}

func (t *RingTracer) keeps(scope Scope) bool {
	if t.filter.Level == LevelError {
		return t.filter.Scopes.Has(scope)
	}
	return t.filter.Admits(scope)
}

func (t *RingTracer) Emit(ev *Event) {
	if ev == nil || !t.keeps(ev.Scope) {
		return
	}
	stored := *ev
	stored.Seq = NextSeq()

	t.mu.Lock()
	t.buf[t.next] = stored
	t.next = (t.next + 1) % len(t.buf)
	t.total++
	t.mu.Unlock()
}

// Snapshot returns the retained events, oldest first.
func (t *RingTracer) Snapshot() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.total < uint64(len(t.buf)) {
		return append([]Event(nil), t.buf[:t.next]...)
	}
	out := make([]Event, 0, len(t.buf))
	out = append(out, t.buf[t.next:]...)
	return append(out, t.buf[:t.next]...)
}

// Dropped reports how many events were overwritten.
func (t *RingTracer) Dropped() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.total <= uint64(len(t.buf)) {
		return 0
	}
	return t.total - uint64(len(t.buf))
}

// Dump writes the retained events to w. Text output starts with a line
// saying how many earlier events were lost.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	if dropped := t.Dropped(); dropped > 0 && format != FormatNDJSON {
		if _, err := fmt.Fprintf(w, "# %d earlier events dropped\n", dropped); err != nil {
			return err
		}
	}
	for _, ev := range t.Snapshot() {
		if _, err := w.Write(FormatEvent(&ev, format)); err != nil {
			return err
		}
	}
	return nil
}

func (t *RingTracer) Flush() error { return nil }

func (t *RingTracer) Close() error { return nil }

func (t *RingTracer) Level() Level { return t.filter.Level }

func (t *RingTracer) Enabled() bool { return t.filter.Level > LevelOff }

func (t *RingTracer) Admits(scope Scope) bool { return t.keeps(scope) }
