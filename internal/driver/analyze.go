package driver

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"cxxsema/internal/diag"
	"cxxsema/internal/frontend/cxx"
	"cxxsema/internal/observ"
	"cxxsema/internal/source"
	"cxxsema/internal/trace"
)

var sourceExts = map[string]bool{
	".c": true, ".cc": true, ".cpp": true, ".cxx": true, ".c++": true,
	".h": true, ".hh": true, ".hpp": true, ".hxx": true,
}

// IsSource reports whether path has a C or C++ extension.
func IsSource(path string) bool {
	return sourceExts[strings.ToLower(filepath.Ext(path))]
}

// ListSources returns every C and C++ file under dir, sorted.
func ListSources(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if IsSource(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// deterministic order
	sort.Strings(files)
	return files, nil
}

// AnalyzeFile loads path into a fresh session and analyzes it. A file that
// cannot be read yields a result whose bag holds an I/O diagnostic.
func AnalyzeFile(ctx context.Context, path string, opts Options) (*Result, error) {
	lang, err := opts.language(path)
	if err != nil {
		return nil, err
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.FromContext(ctx)
	}
	s := NewSession(opts)
	timer := observ.NewTimer()

	var file source.FileID
	loadErr := timer.Measure("load", func() error {
		var err error
		file, err = s.FileSet.Load(path)
		return err
	})
	if loadErr != nil {
		diag.ReportError(s.Reporter(), diag.IOLoadFileError, source.Span{},
			fmt.Sprintf("cannot read %s: %v", path, loadErr)).Emit()
		return &Result{Path: path, Language: lang, Session: s}, nil
	}
	return analyzeLoaded(ctx, s, path, file, lang, opts, timer)
}

// AnalyzeSource analyzes in-memory content registered under name.
func AnalyzeSource(ctx context.Context, name string, src []byte, opts Options) (*Result, error) {
	lang, err := opts.language(name)
	if err != nil {
		return nil, err
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.FromContext(ctx)
	}
	s := NewSession(opts)
	file := s.FileSet.AddVirtual(name, src)
	return analyzeLoaded(ctx, s, name, file, lang, opts, observ.NewTimer())
}

func analyzeLoaded(ctx context.Context, s *Session, path string, file source.FileID, lang cxx.Language, opts Options, timer *observ.Timer) (*Result, error) {
	span := trace.Begin(s.Tracer, trace.ScopeDriver, "analyze_file", trace.ParentSpan(ctx)).
		WithExtra("path", path).
		WithExtra("lang", lang.String())
	ctx = trace.WithParent(trace.WithTracer(ctx, s.Tracer), span)

	res := &Result{Path: path, File: file, Language: lang, Session: s}
	f := s.FileSet.Get(file)

	useCache := opts.Cache != nil && opts.SkipCalls
	var key Digest
	if useCache {
		key = unitDigest(lang, f.Hash)
		idx := timer.Begin("cache")
		res.Cached = lookupCache(s, opts.Cache, key, file)
		note := "miss"
		if res.Cached {
			note = "hit"
		}
		timer.End(idx, note)
	}

	if !res.Cached {
		idx := timer.Begin("analyze")
		unit, err := cxx.Analyze(ctx, file, f.Content, cxx.Options{
			Language:  lang,
			Table:     s.Table,
			Nodes:     s.Nodes,
			Reporter:  s.Reporter(),
			Tracer:    s.Tracer,
			Namer:     s.Namer,
			SkipCalls: opts.SkipCalls,
		})
		timer.End(idx, "")
		if err != nil {
			span.End(err.Error())
			return nil, fmt.Errorf("analyze %s: %w", path, err)
		}
		res.Unit = unit
		if useCache {
			if err := opts.Cache.Put(key, sessionToPayload(res)); err != nil {
				diag.ReportWarning(s.Reporter(), diag.IOCacheError, source.Span{File: file},
					fmt.Sprintf("cache write failed: %v", err)).Emit()
			}
		}
	}

	report := timer.Report()
	res.Timing = &report
	if opts.Timings {
		attachTimings(s.Bag, file, newUnitTimings(res, report))
	}
	span.End(fmt.Sprintf("symbols=%d diagnostics=%d", s.Table.Symbols.Len(), s.Bag.Len()))
	return res, nil
}

func lookupCache(s *Session, cache *DiskCache, key Digest, file source.FileID) bool {
	var payload DiskPayload
	ok, err := cache.Get(key, &payload)
	if err == nil && ok {
		err = restoreSession(s, &payload)
	}
	if err != nil {
		diag.ReportWarning(s.Reporter(), diag.IOCacheError, source.Span{File: file},
			fmt.Sprintf("cache entry ignored: %v", err)).Emit()
		return false
	}
	return ok
}

// AnalyzeFiles analyzes independent translation units in parallel, one
// session each. Results keep the order of paths. The first hard failure
// cancels the rest.
func AnalyzeFiles(ctx context.Context, paths []string, opts Options) ([]*Result, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	if opts.Tracer == nil {
		opts.Tracer = trace.FromContext(ctx)
	}
	span := trace.Begin(opts.Tracer, trace.ScopeDriver, "analyze_files", trace.ParentSpan(ctx)).
		WithExtra("files", fmt.Sprint(len(paths)))
	defer span.End("")
	ctx = trace.WithParent(ctx, span)

	// indices are unique per goroutine, no mutex needed
	results := make([]*Result, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := AnalyzeFile(gctx, path, opts)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	return results, g.Wait()
}
