package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"cxxsema/internal/diag"
	"cxxsema/internal/source"
)

// Pretty renders diagnostics as
//
//	<path>:<line>:<col>: <severity>: <message> [<CODE>]
//
// followed by the source line with a ^~~~ marker and indented notes.
// Expects bag.Sort() to have been called when stable order matters.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	if bag == nil {
		return
	}
	p := printer{w: w, fs: fs, opts: opts}
	for _, d := range bag.Items() {
		p.diagnostic(d)
	}
}

type printer struct {
	w    io.Writer
	fs   *source.FileSet
	opts PrettyOpts
}

func (p printer) paint(attr color.Attribute, s string) string {
	if !p.opts.Color {
		return s
	}
	c := color.New(attr, color.Bold)
	c.EnableColor()
	return c.Sprint(s)
}

func severityColor(sev diag.Severity) color.Attribute {
	switch sev {
	case diag.SevError:
		return color.FgRed
	case diag.SevWarning:
		return color.FgYellow
	default:
		return color.FgCyan
	}
}

func (p printer) location(span source.Span) string {
	if p.fs == nil || p.fs.Get(span.File) == nil {
		return "<unknown>"
	}
	return p.fs.Position(span)
}

func (p printer) diagnostic(d diag.Diagnostic) {
	sev := p.paint(severityColor(d.Severity), d.Severity.String())
	fmt.Fprintf(p.w, "%s: %s: %s [%s]\n", p.location(d.Primary), sev, d.Message, d.Code.ID())
	if p.opts.Context {
		p.context(d.Primary, severityColor(d.Severity))
	}
	if !p.opts.ShowNotes {
		return
	}
	for _, n := range d.Notes {
		fmt.Fprintf(p.w, "  %s: %s %s\n", p.location(n.Span), p.paint(color.FgBlue, "note:"), n.Msg)
	}
}

func (p printer) context(span source.Span, attr color.Attribute) {
	if p.fs == nil {
		return
	}
	f := p.fs.Get(span.File)
	if f == nil {
		return
	}
	start, end := p.fs.Resolve(span)
	line := strings.ReplaceAll(f.GetLine(start.Line), "\t", " ")
	if line == "" {
		return
	}
	prefix := fmt.Sprintf("%5d | ", start.Line)
	fmt.Fprintf(p.w, "%s%s\n", prefix, line)

	col := int(start.Col) - 1
	if col > len(line) {
		col = len(line)
	}
	pad := runewidth.StringWidth(line[:col])
	width := 1
	if end.Line == start.Line && end.Col > start.Col {
		stop := min(int(end.Col)-1, len(line))
		width = max(runewidth.StringWidth(line[col:stop]), 1)
	}
	marker := "^" + strings.Repeat("~", width-1)
	fmt.Fprintf(p.w, "%s%s%s\n", strings.Repeat(" ", len(prefix)-2)+"| ", strings.Repeat(" ", pad), p.paint(attr, marker))
}
