// Package cxx is the C and C++ front end. It parses a translation unit with
// tree-sitter and walks the tree, entering scopes and declaring symbols
// through a symbols.Resolver, then records every call site together with
// the overload candidates its callee resolves to.
package cxx

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"cxxsema/internal/diag"
	"cxxsema/internal/encoding"
	"cxxsema/internal/source"
	"cxxsema/internal/symbols"
	"cxxsema/internal/syntax"
	"cxxsema/internal/trace"
)

// ErrNoCGO is returned when the front end is unavailable because the
// tree-sitter grammars need cgo.
var ErrNoCGO = errors.New("C/C++ front end requires cgo (tree-sitter)")

// Language selects the grammar.
type Language uint8

const (
	LangCXX Language = iota
	LangC
)

func (l Language) String() string {
	if l == LangC {
		return "c"
	}
	return "c++"
}

// ParseLanguage accepts "c", "c++", "cxx" and "cpp".
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "c":
		return LangC, nil
	case "c++", "cxx", "cpp", "":
		return LangCXX, nil
	}
	return LangCXX, fmt.Errorf("unknown language %q", s)
}

// LanguageFromPath guesses the language from a file extension. Headers are
// treated as C++.
func LanguageFromPath(path string) Language {
	if strings.ToLower(filepath.Ext(path)) == ".c" {
		return LangC
	}
	return LangCXX
}

// Options configure Analyze. Table and Nodes are required; the rest may be
// left zero.
type Options struct {
	Language Language
	Table    *symbols.Table
	Nodes    *syntax.Nodes
	Reporter diag.Reporter
	Tracer   trace.Tracer
	// Namer names anonymous classes, unions and enums. One is created per
	// call when nil.
	Namer *encoding.AnonymousNamer
	// SkipCalls disables call site collection.
	SkipCalls bool
}

// CallSite is one call expression with the outcome of its overload check.
type CallSite struct {
	Node       syntax.NodeID
	Span       source.Span
	Scope      symbols.ScopeID
	Callee     encoding.Encoding
	Args       []encoding.Encoding
	Candidates symbols.SymbolSet
	Viable     symbols.SymbolSet
	// Err is the lookup or viability failure, if any. It has already been
	// reported as a diagnostic.
	Err error
}

// Target returns the called function when exactly one candidate is viable.
func (c *CallSite) Target() (symbols.SymbolID, bool) {
	return c.Viable.Single()
}

// Unit is the result of analyzing one translation unit.
type Unit struct {
	File     source.FileID
	Language Language
	Root     syntax.NodeID
	Calls    []CallSite
	// Declared counts the symbols this unit added to the table.
	Declared int
}
