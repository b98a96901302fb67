package symbols

// ScopeID identifies a scope in the table arena.
type ScopeID uint32

const (
	// NoScopeID marks the absence of a scope reference.
	NoScopeID ScopeID = 0
)

// IsValid reports whether the scope ID refers to an allocated scope.
func (id ScopeID) IsValid() bool { return id != NoScopeID }

// SymbolID identifies a symbol inside the table arena.
type SymbolID uint32

const (
	// NoSymbolID marks the absence of a symbol reference.
	NoSymbolID SymbolID = 0
)

// IsValid reports whether the symbol ID refers to an allocated symbol.
func (id SymbolID) IsValid() bool { return id != NoSymbolID }

// SymbolSet is an insertion-ordered set of symbols. Lookups return it so that
// overloads keep their declaration order.
type SymbolSet []SymbolID

// Add inserts id unless it is already present.
func (s *SymbolSet) Add(id SymbolID) {
	if !id.IsValid() || s.Contains(id) {
		return
	}
	*s = append(*s, id)
}

// Merge adds every member of other.
func (s *SymbolSet) Merge(other SymbolSet) {
	for _, id := range other {
		s.Add(id)
	}
}

// Contains reports membership.
func (s SymbolSet) Contains(id SymbolID) bool {
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}

// Len reports the number of members.
func (s SymbolSet) Len() int { return len(s) }

// Empty reports whether the set has no members.
func (s SymbolSet) Empty() bool { return len(s) == 0 }

// Single returns the only member.
func (s SymbolSet) Single() (SymbolID, bool) {
	if len(s) != 1 {
		return NoSymbolID, false
	}
	return s[0], true
}
