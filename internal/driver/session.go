package driver

import (
	"cxxsema/internal/diag"
	"cxxsema/internal/encoding"
	"cxxsema/internal/frontend/cxx"
	"cxxsema/internal/observ"
	"cxxsema/internal/source"
	"cxxsema/internal/symbols"
	"cxxsema/internal/syntax"
	"cxxsema/internal/trace"
)

// Options control an analysis run.
type Options struct {
	// Language forces the grammar. Empty picks it from the file extension.
	Language       string
	MaxDiagnostics int
	// Jobs bounds AnalyzeFiles parallelism; <= 0 uses GOMAXPROCS.
	Jobs      int
	SkipCalls bool
	// Cache is consulted only when SkipCalls is set, since call sites are
	// not persisted.
	Cache   *DiskCache
	Timings bool
	Tracer  trace.Tracer
}

func (o Options) language(path string) (cxx.Language, error) {
	if o.Language == "" {
		return cxx.LanguageFromPath(path), nil
	}
	return cxx.ParseLanguage(o.Language)
}

// Session owns everything one translation unit is analyzed into. Sessions
// are not shared between goroutines.
type Session struct {
	FileSet *source.FileSet
	Nodes   *syntax.Nodes
	Table   *symbols.Table
	Bag     *diag.Bag
	Tracer  trace.Tracer
	Namer   *encoding.AnonymousNamer

	reporter *diag.DedupReporter
}

// NewSession creates an empty session.
func NewSession(opts Options) *Session {
	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.Nop
	}
	bag := diag.NewBag(opts.MaxDiagnostics)
	return &Session{
		FileSet:  source.NewFileSet(),
		Nodes:    syntax.NewNodes(256),
		Table:    symbols.NewTable(symbols.Hints{Scopes: 64, Symbols: 256}),
		Bag:      bag,
		Tracer:   tracer,
		Namer:    &encoding.AnonymousNamer{},
		reporter: diag.NewDedupReporter(diag.BagReporter{Bag: bag}),
	}
}

// Reporter writes into the session's bag, dropping repeated findings.
func (s *Session) Reporter() diag.Reporter {
	return s.reporter
}

// Result is the outcome of analyzing one file.
type Result struct {
	Path     string
	File     source.FileID
	Language cxx.Language
	Session  *Session
	// Unit is nil when the result came from the disk cache.
	Unit   *cxx.Unit
	Cached bool
	Timing *observ.Report
}

// Position renders the line and column of a node.
func (r *Result) Position(id syntax.NodeID) source.LineCol {
	node := r.Session.Nodes.Get(id)
	if node == nil {
		return source.LineCol{}
	}
	start, _ := r.Session.FileSet.Resolve(node.Span)
	return start
}
