package trace

import (
	"bufio"
	"io"
	"sync"
)

// StreamTracer writes each admitted event as it happens. Output is
// buffered; Flush pushes it to the underlying writer.
type StreamTracer struct {
	mu     sync.Mutex
	out    io.Writer
	buf    *bufio.Writer
	filter Filter
	format Format
}

// NewStreamTracer writes to w. FormatAuto falls back to text.
func NewStreamTracer(w io.Writer, filter Filter, format Format) *StreamTracer {
	if format == FormatAuto {
		format = FormatText
	}
	return &StreamTracer{out: w, buf: bufio.NewWriter(w), filter: filter, format: format}
}

// Emit never reports write failures; a broken trace sink must not fail
// the analysis it observes. Close surfaces them.
func (t *StreamTracer) Emit(ev *Event) {
	if ev == nil || !t.filter.Admits(ev.Scope) {
		return
	}
	ev.Seq = NextSeq()
	line := FormatEvent(ev, t.format)

	t.mu.Lock()
	_, _ = t.buf.Write(line)
	t.mu.Unlock()
}

func (t *StreamTracer) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.buf.Flush(); err != nil {
		return err
	}
	if f, ok := t.out.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Close flushes and closes the writer when it is an io.Closer.
func (t *StreamTracer) Close() error {
	if err := t.Flush(); err != nil {
		return err
	}
	if c, ok := t.out.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (t *StreamTracer) Level() Level { return t.filter.Level }

func (t *StreamTracer) Enabled() bool { return t.filter.Level > LevelOff }

func (t *StreamTracer) Admits(scope Scope) bool { return t.filter.Admits(scope) }
