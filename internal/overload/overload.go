// Package overload builds the set of viable candidates for a call by
// matching argument counts against the declared parameters of every function
// a name resolves to. Ranking candidates by conversion is not done here.
package overload

import (
	"errors"
	"fmt"
	"strconv"

	"cxxsema/internal/encoding"
	"cxxsema/internal/symbols"
	"cxxsema/internal/trace"
)

// ErrBestMatchUnimplemented is returned by Result.Best when more than one
// candidate survives the arity check.
var ErrBestMatchUnimplemented = errors.New("best viable function selection is not implemented")

// ErrNoViable is returned by Result.Best and Result.Unique when no
// candidate accepts the arguments.
var ErrNoViable = errors.New("no viable function")

// FindViableSet keeps the candidates that accept len(args) arguments. Every
// candidate must be a function or function template.
func FindViableSet(t *symbols.Table, candidates symbols.SymbolSet, args []encoding.Encoding) (symbols.SymbolSet, error) {
	var viable symbols.SymbolSet
	n := len(args)
	for _, id := range candidates {
		sym := t.Symbol(id)
		if sym == nil {
			return nil, &symbols.InternalError{Msg: fmt.Sprintf("unknown symbol %d in overload set", id)}
		}
		if !sym.IsFunction() {
			return nil, &symbols.TypeError{Name: sym.Name, Type: sym.Type}
		}
		ok, err := accepts(sym, n)
		if err != nil {
			return nil, err
		}
		if ok {
			viable.Add(id)
		}
	}
	return viable, nil
}

// accepts takes the parameter count and ellipsis from the function type.
// Only the number of trailing defaults comes from the declarations.
func accepts(sym *symbols.Symbol, n int) (bool, error) {
	sig, err := sym.Type.FunctionSignature()
	if err != nil {
		return false, &symbols.TypeError{Name: sym.Name, Type: sym.Type}
	}
	params := len(sig.Params)
	switch {
	case n == params:
		return true, nil
	case n > params:
		return sig.Ellipsis, nil
	default:
		return params-min(sym.DefaultArgs, params) <= n, nil
	}
}

// Result is the outcome of resolving one call.
type Result struct {
	Name       encoding.Encoding
	Candidates symbols.SymbolSet
	Viable     symbols.SymbolSet
}

// Unique returns the only viable candidate.
func (r Result) Unique() (symbols.SymbolID, bool) {
	return r.Viable.Single()
}

// Best picks the function to call. Only the trivial case of a single viable
// candidate is decided.
func (r Result) Best() (symbols.SymbolID, error) {
	switch r.Viable.Len() {
	case 0:
		return symbols.NoSymbolID, fmt.Errorf("%w for call to '%s'", ErrNoViable, r.Name.Unmangled())
	case 1:
		return r.Viable[0], nil
	}
	return symbols.NoSymbolID, fmt.Errorf("call to '%s' with %d viable candidates: %w",
		r.Name.Unmangled(), r.Viable.Len(), ErrBestMatchUnimplemented)
}

// Resolver resolves calls made from one scope.
type Resolver struct {
	Table  *symbols.Table
	Scope  symbols.ScopeID
	Tracer trace.Tracer
}

// NewResolver returns a resolver for calls made from scope.
func NewResolver(t *symbols.Table, scope symbols.ScopeID) *Resolver {
	return &Resolver{Table: t, Scope: scope, Tracer: trace.Nop}
}

// Resolve looks name up in the default context and filters the result by
// argument count. Lookup errors are returned unchanged.
func (r *Resolver) Resolve(name encoding.Encoding, args []encoding.Encoding) (Result, error) {
	res := Result{Name: name}
	found, err := r.Table.Lookup(r.Scope, name, symbols.ContextDefault)
	if err != nil {
		return res, err
	}
	res.Candidates = found
	viable, err := FindViableSet(r.Table, found, args)
	if err != nil {
		return res, err
	}
	res.Viable = viable
	trace.Point(r.Tracer, trace.ScopeLookup, "overload", name.Unmangled(),
		"args", strconv.Itoa(len(args)),
		"candidates", strconv.Itoa(found.Len()),
		"viable", strconv.Itoa(viable.Len()))
	return res, nil
}
