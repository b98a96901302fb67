package driver

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"cxxsema/internal/diag"
	"cxxsema/internal/observ"
	"cxxsema/internal/source"
)

func TestAttachTimingsIgnoresBagLimit(t *testing.T) {
	s := NewSession(Options{MaxDiagnostics: 1})
	file := s.FileSet.AddVirtual("a.cc", []byte("int x;"))
	require.True(t, s.Bag.Add(diag.New(diag.SevWarning, diag.SemaUndefined, source.Span{File: file}, "filler")))

	res := &Result{Path: "a.cc", File: file, Session: s, Cached: true}
	report := observ.Report{TotalMS: 1.5, Phases: []observ.PhaseReport{{Name: "cache", Note: "hit"}}}
	attachTimings(s.Bag, file, newUnitTimings(res, report))

	require.Equal(t, 2, s.Bag.Len())
	d := s.Bag.Items()[1]
	require.Equal(t, diag.ObsTimings, d.Code)
	require.Equal(t, "a.cc: 1.50 ms, 0 symbols in 1 scopes (from cache)", d.Message)
	require.Len(t, d.Notes, 1)

	var got unitTimings
	require.NoError(t, json.Unmarshal([]byte(d.Notes[0].Msg), &got))
	require.True(t, got.Cached)
	require.Equal(t, "cache", got.Phases[0].Name)
}
