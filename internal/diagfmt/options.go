package diagfmt

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color     bool
	ShowNotes bool
	Context   bool // print the offending source line with a caret marker
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	IncludePositions bool // resolve line/col
	IncludeNotes     bool
	Max              int // truncates the output, not the bag
}
