package symbols

import (
	"errors"
	"fmt"

	"cxxsema/internal/encoding"
	"cxxsema/internal/syntax"
)

// UndefinedError reports a name component that lookup could not find.
type UndefinedError struct {
	Name  encoding.Encoding
	Scope ScopeID // where the failing component was looked up; may be NoScopeID
}

func (e *UndefinedError) Error() string {
	return fmt.Sprintf("undefined name '%s'", e.Name.Unmangled())
}

// TypeError reports a name that resolved to the wrong kind of entity, e.g. a
// function used as the left side of '::'.
type TypeError struct {
	Name encoding.Encoding
	Type encoding.Encoding
}

func (e *TypeError) Error() string {
	if e.Type.Empty() {
		return fmt.Sprintf("'%s' does not name a scope", e.Name.Unmangled())
	}
	return fmt.Sprintf("'%s' of type '%s' does not name a scope", e.Name.Unmangled(), e.Type.Unmangled())
}

// MultiplyDefinedError reports a declaration that clashes with an earlier
// one in the same scope.
type MultiplyDefinedError struct {
	Name        encoding.Encoding
	Declaration syntax.NodeID
	Original    syntax.NodeID
}

func (e *MultiplyDefinedError) Error() string {
	return fmt.Sprintf("'%s' is already declared in this scope", e.Name.Unmangled())
}

// InternalError reports a broken table invariant. It is never a lookup
// outcome and callers should not recover from it.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string { return "internal error: " + e.Msg }

// msgBadUsing is the InternalError message of a using-directive placed in
// a scope that cannot hold one.
const msgBadUsing = "invalid use of using directive in this scope"

func internalErrorf(format string, args ...any) *InternalError {
	return &InternalError{Msg: fmt.Sprintf(format, args...)}
}

// IsUndefined reports whether err wraps an UndefinedError.
func IsUndefined(err error) bool {
	var target *UndefinedError
	return errors.As(err, &target)
}

// IsTypeError reports whether err wraps a TypeError.
func IsTypeError(err error) bool {
	var target *TypeError
	return errors.As(err, &target)
}

// IsMultiplyDefined reports whether err wraps a MultiplyDefinedError.
func IsMultiplyDefined(err error) bool {
	var target *MultiplyDefinedError
	return errors.As(err, &target)
}

// IsInternal reports whether err wraps an InternalError.
func IsInternal(err error) bool {
	var target *InternalError
	return errors.As(err, &target)
}

// IsBadUsing reports whether err is the InternalError of a using-directive
// in a class, prototype or template parameter scope. Front ends report it
// as a diagnostic instead of aborting.
func IsBadUsing(err error) bool {
	var target *InternalError
	return errors.As(err, &target) && target.Msg == msgBadUsing
}
