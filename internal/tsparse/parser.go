// Package tsparse parses JavaScript/TypeScript source files with tree-sitter
// and extracts every import-bearing construct as a raw, unresolved Import
// record. Resolution to file paths is the Module Resolver's job
// (internal/resolve); this package only sees syntax.
package tsparse

import (
	"context"
	"fmt"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/scopetest-dev/scopetest/internal/model"
)

// Import is one raw import-bearing construct extracted from a syntax tree,
// not yet resolved to a file path.
type Import struct {
	Specifier  string
	Kind       model.ImportKind
	Line       int
	NonLiteral bool // dynamic import()/require() whose argument is not a string literal
}

// ParseResult holds everything extracted from a single file.
type ParseResult struct {
	Path        string
	ParseStatus model.ParseStatus
	Imports     []Import
	IsBarrel    bool
}

// Parser extracts import records from source files. TreeSitterParser is the
// only production implementation; tests may substitute a stub.
type Parser interface {
	Parse(ctx context.Context, path string, source []byte) (*ParseResult, error)
	Close() error
}

// tsxExtensions select the TSX grammar, which also parses plain JSX.
var tsxExtensions = map[string]bool{
	".tsx": true,
	".jsx": true,
}

// TreeSitterParser implements Parser using the tree-sitter-typescript
// grammar (both its `typescript` and `tsx` variants). A new tree-sitter
// parser is created per Parse call, so a single TreeSitterParser is safe to
// share across concurrent workers; the receiver holds only the two language
// pointers, which are read-only after construction.
type TreeSitterParser struct {
	ts  *tree_sitter.Language
	tsx *tree_sitter.Language
}

// NewTreeSitterParser registers the typescript and tsx grammars.
func NewTreeSitterParser() *TreeSitterParser {
	return &TreeSitterParser{
		ts:  tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()),
		tsx: tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()),
	}
}

// Parse extracts import records from a single source file. Syntax errors
// surface as ParseResult.ParseStatus = ParseSyntaxError rather than a
// returned error: files that fail to parse are recorded, not treated as
// fatal.
func (p *TreeSitterParser) Parse(_ context.Context, path string, source []byte) (*ParseResult, error) {
	lang, ext := p.ts, extOf(path)
	if tsxExtensions[ext] {
		lang = p.tsx
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("set language for %s: %w", path, err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("tree-sitter returned nil tree for %s", path)
	}
	defer tree.Close()

	root := tree.RootNode()

	result := &ParseResult{Path: path, ParseStatus: model.ParseOk}
	if root.HasError() {
		result.ParseStatus = model.ParseSyntaxError
	}

	ext2 := &tsExtractor{}
	cursor := root.Walk()
	defer cursor.Close()
	imports, declCount, reexportCount := ext2.walk(cursor, source)

	result.Imports = imports
	result.IsBarrel = reexportCount > 0 && declCount == 0

	return result, nil
}

// Close is a no-op: parsers are created per Parse call.
func (p *TreeSitterParser) Close() error { return nil }

func extOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i:]
		}
		if path[i] == '/' {
			break
		}
	}
	return ""
}
