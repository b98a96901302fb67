package symbols

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

// DumpOptions controls Dump output.
type DumpOptions struct {
	Color  bool
	Indent int // spaces per level, 2 when zero
}

var symbolLabels = map[SymbolKind]string{
	SymbolVariable:         "Variable:",
	SymbolConst:            "Const:",
	SymbolType:             "Type:",
	SymbolTypedef:          "Typedef:",
	SymbolClass:            "Class:",
	SymbolEnum:             "Enum:",
	SymbolClassTemplate:    "Class template:",
	SymbolFunction:         "Function:",
	SymbolFunctionTemplate: "Function template:",
	SymbolNamespace:        "Namespace:",
	SymbolDependent:        "Dependent:",
}

var labelWidth = func() int {
	w := 0
	for _, l := range symbolLabels {
		w = max(w, runewidth.StringWidth(l))
	}
	return w
}()

// Dump writes the scope tree rooted at the global namespace, one symbol per
// line with its unmangled name and type.
func Dump(w io.Writer, t *Table, opts DumpOptions) error {
	if opts.Indent <= 0 {
		opts.Indent = 2
	}
	d := dumper{w: w, t: t, opts: opts, seen: make(map[ScopeID]bool)}
	d.scope(t.Root(), 0)
	return d.err
}

type dumper struct {
	w    io.Writer
	t    *Table
	opts DumpOptions
	seen map[ScopeID]bool
	err  error
}

func (d *dumper) printf(depth int, format string, args ...any) {
	if d.err != nil {
		return
	}
	_, d.err = fmt.Fprintf(d.w, "%s"+format, append([]any{strings.Repeat(" ", depth*d.opts.Indent)}, args...)...)
}

func (d *dumper) paint(attr color.Attribute, s string) string {
	if !d.opts.Color {
		return s
	}
	c := color.New(attr)
	c.EnableColor()
	return c.Sprint(s)
}

func (d *dumper) header(s *Scope) string {
	switch s.Kind {
	case ScopeNamespace:
		return fmt.Sprintf("Namespace '%s':", s.DisplayName())
	case ScopeClass:
		return fmt.Sprintf("Class '%s':", s.DisplayName())
	case ScopeFunction:
		return fmt.Sprintf("Function '%s':", s.DisplayName())
	case ScopePrototype:
		return "Prototype:"
	case ScopeLocal:
		return "Local:"
	case ScopeTemplateParameter:
		return "Template parameters:"
	}
	return "Scope:"
}

func (d *dumper) scope(id ScopeID, depth int) {
	s := d.t.Scopes.Get(id)
	if s == nil || d.seen[id] {
		return
	}
	d.seen[id] = true
	d.printf(depth, "%s\n", d.paint(color.FgBlue, d.header(s)))
	for _, symID := range s.Order {
		d.symbol(d.t.Symbols.Get(symID), depth+1)
	}
	if s.Kind == ScopeFunction && s.Prototype.IsValid() {
		d.scope(s.Prototype, depth+1)
	}
	for _, child := range s.Children {
		d.scope(child, depth+1)
	}
}

func (d *dumper) symbol(sym *Symbol, depth int) {
	if sym == nil {
		return
	}
	label := symbolLabels[sym.Kind]
	pad := strings.Repeat(" ", labelWidth-runewidth.StringWidth(label)+1)
	line := d.paint(color.FgGreen, label) + pad + sym.Name.Unmangled()
	if !sym.Type.Empty() {
		line += " " + d.paint(color.FgYellow, sym.Type.Unmangled())
	}
	if sym.Kind == SymbolConst && sym.Value != nil {
		line += fmt.Sprintf(" (%d)", *sym.Value)
	}
	if !sym.Definition {
		line += " [declared]"
	}
	d.printf(depth, "%s\n", line)
}
