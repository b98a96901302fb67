//go:build cgo

package cxx

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
)

// IsAvailable reports whether the front end was built with cgo.
func IsAvailable() bool { return true }

func grammar(lang Language) *sitter.Language {
	if lang == LangC {
		return c.GetLanguage()
	}
	return cpp.GetLanguage()
}

// Parse parses src and returns the syntax tree. The caller closes it.
func Parse(ctx context.Context, src []byte, lang Language) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar(lang))
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", lang, err)
	}
	return tree, nil
}
