//go:build !cgo

package cxx

import (
	"context"

	"cxxsema/internal/source"
)

// IsAvailable reports whether the front end was built with cgo.
func IsAvailable() bool { return false }

// Analyze is unavailable without cgo.
func Analyze(ctx context.Context, file source.FileID, src []byte, opts Options) (*Unit, error) {
	return nil, ErrNoCGO
}
