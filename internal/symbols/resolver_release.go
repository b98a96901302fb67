//go:build !cxxsema_debug

package symbols

func debugScopeMismatch(ScopeID, ScopeID) {}
