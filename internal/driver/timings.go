package driver

import (
	"encoding/json"
	"fmt"

	"cxxsema/internal/diag"
	"cxxsema/internal/observ"
	"cxxsema/internal/source"
)

// unitTimings is the JSON note of an ObsTimings diagnostic.
type unitTimings struct {
	Path    string               `json:"path"`
	Cached  bool                 `json:"cached,omitempty"`
	Symbols int                  `json:"symbols"`
	Scopes  int                  `json:"scopes"`
	Calls   int                  `json:"calls,omitempty"`
	TotalMS float64              `json:"total_ms"`
	Phases  []observ.PhaseReport `json:"phases"`
}

func newUnitTimings(res *Result, report observ.Report) unitTimings {
	t := unitTimings{
		Path:    res.Path,
		Cached:  res.Cached,
		Symbols: res.Session.Table.Symbols.Len(),
		Scopes:  res.Session.Table.Scopes.Len(),
		TotalMS: report.TotalMS,
		Phases:  report.Phases,
	}
	if res.Unit != nil {
		t.Calls = len(res.Unit.Calls)
	}
	return t
}

func (t unitTimings) summary() string {
	from := "analyzed"
	if t.Cached {
		from = "from cache"
	}
	return fmt.Sprintf("%s: %.2f ms, %d symbols in %d scopes (%s)", t.Path, t.TotalMS, t.Symbols, t.Scopes, from)
}

// attachTimings adds the unit's timings to bag as an info diagnostic. The
// bag limit is raised if needed so the report is never dropped.
func attachTimings(bag *diag.Bag, file source.FileID, t unitTimings) {
	data, err := json.Marshal(t)
	if err != nil {
		return
	}
	span := source.Span{File: file}
	d := diag.New(diag.SevInfo, diag.ObsTimings, span, t.summary()).WithNote(span, string(data))
	extra := diag.NewBag(1)
	extra.Add(d)
	bag.Merge(extra)
}
