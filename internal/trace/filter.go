package trace

import (
	"fmt"
	"strings"
)

// ScopeSet is a set of scopes. The zero value admits every scope.
type ScopeSet uint8

func (s ScopeSet) Has(scope Scope) bool {
	return s == 0 || s&(1<<scope) != 0
}

func (s ScopeSet) String() string {
	if s == 0 {
		return "all"
	}
	var names []string
	for sc := ScopeDriver; sc <= ScopeLookup; sc++ {
		if s&(1<<sc) != 0 {
			names = append(names, sc.String())
		}
	}
	return strings.Join(names, ",")
}

// ParseScopes reads a list such as ["unit", "lookup"]. Entries may also be
// comma separated. An empty list admits every scope.
func ParseScopes(list []string) (ScopeSet, error) {
	var set ScopeSet
	for _, item := range list {
		for _, name := range strings.Split(item, ",") {
			name = strings.TrimSpace(strings.ToLower(name))
			if name == "" {
				continue
			}
			scope, ok := scopeByName[name]
			if !ok {
				return 0, fmt.Errorf("invalid trace scope: %q (expected: driver|pass|unit|lookup)", name)
			}
			set |= 1 << scope
		}
	}
	return set, nil
}

var scopeByName = map[string]Scope{
	"driver": ScopeDriver,
	"pass":   ScopePass,
	"unit":   ScopeUnit,
	"lookup": ScopeLookup,
}

// Filter decides which events a tracer keeps. Level bounds how fine the
// scopes may get; Scopes narrows that to the listed ones.
type Filter struct {
	Level  Level
	Scopes ScopeSet
}

func (f Filter) Admits(scope Scope) bool {
	return f.Level.ShouldEmit(scope) && f.Scopes.Has(scope)
}
