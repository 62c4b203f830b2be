package tsparse

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/scopetest-dev/scopetest/internal/model"
)

// declarationKinds are top-level constructs that, if present, disqualify a
// file from the barrel heuristic: a barrel file's body is primarily
// re-exports, not symbol definitions.
var declarationKinds = map[string]bool{
	"function_declaration":   true,
	"class_declaration":      true,
	"interface_declaration":  true,
	"type_alias_declaration": true,
	"enum_declaration":       true,
}

// tsExtractor walks a tree-sitter syntax tree and emits one Import per
// import-bearing construct: static
// (default/named/namespace/side-effect), export-from (re-export all and
// named), dynamic import() (literal and non-literal), require() (literal
// and non-literal), and type-only variants of each.
type tsExtractor struct{}

// walk recurses the tree, returning the accumulated imports plus counts used
// by the barrel heuristic.
func (e *tsExtractor) walk(cursor *tree_sitter.TreeCursor, source []byte) (imports []Import, declCount, reexportCount int) {
	node := cursor.Node()

	switch node.Kind() {
	case "import_statement":
		if imp := e.extractImportStatement(node, source); imp != nil {
			imports = append(imports, *imp)
		}

	case "export_statement":
		if imp := e.extractExportFrom(node, source); imp != nil {
			imports = append(imports, *imp)
			reexportCount++
		}

	case "call_expression":
		if imp := e.extractCallImport(node, source); imp != nil {
			imports = append(imports, *imp)
		}

	default:
		if declarationKinds[node.Kind()] {
			declCount++
		}
	}

	if cursor.GotoFirstChild() {
		childImports, childDecl, childReexport := e.walk(cursor, source)
		imports = append(imports, childImports...)
		declCount += childDecl
		reexportCount += childReexport
		for cursor.GotoNextSibling() {
			siblingImports, siblingDecl, siblingReexport := e.walk(cursor, source)
			imports = append(imports, siblingImports...)
			declCount += siblingDecl
			reexportCount += siblingReexport
		}
		cursor.GotoParent()
	}

	return imports, declCount, reexportCount
}

// extractImportStatement handles every `import ...` form: default, named,
// namespace, side-effect-only, and `import type`.
func (e *tsExtractor) extractImportStatement(node *tree_sitter.Node, source []byte) *Import {
	sourceNode := node.ChildByFieldName("source")
	if sourceNode == nil {
		sourceNode = firstStringChild(node)
	}
	if sourceNode == nil {
		return nil
	}

	specifier := unquote(sourceNode.Utf8Text(source))
	if specifier == "" {
		return nil
	}

	kind := model.KindStatic
	if isTypeOnlyImport(node, source) {
		kind = model.KindTypeOnly
	}

	return &Import{
		Specifier: specifier,
		Kind:      kind,
		Line:      lineOf(node),
	}
}

// extractExportFrom handles `export * from 'x'` and `export { a, b } from
// 'x'` (and their `export type` variants). Plain exports with no `from`
// clause are not import-bearing and return nil.
func (e *tsExtractor) extractExportFrom(node *tree_sitter.Node, source []byte) *Import {
	sourceNode := node.ChildByFieldName("source")
	if sourceNode == nil {
		return nil
	}
	specifier := unquote(sourceNode.Utf8Text(source))
	if specifier == "" {
		return nil
	}

	kind := model.KindReExportNamed
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == "*" {
			kind = model.KindReExportAll
			break
		}
	}

	if isTypeOnlyImport(node, source) {
		kind = model.KindTypeOnly
	}

	return &Import{
		Specifier: specifier,
		Kind:      kind,
		Line:      lineOf(node),
	}
}

// extractCallImport handles dynamic `import(expr)` and `require(expr)`.
// Literal string arguments resolve normally. Non-literal arguments are
// emitted with NonLiteral set and the graph builder decides their fate:
// a non-literal import() is kept as an unresolved edge for diagnostics,
// a non-literal require() is dropped (with an opt-in warning) to avoid
// false positives. There is no heuristic expansion either way.
func (e *tsExtractor) extractCallImport(node *tree_sitter.Node, source []byte) *Import {
	fnNode := node.ChildByFieldName("function")
	if fnNode == nil {
		return nil
	}

	var kind model.ImportKind
	switch {
	case fnNode.Kind() == "import":
		kind = model.KindDynamic
	case fnNode.Kind() == "identifier" && fnNode.Utf8Text(source) == "require":
		kind = model.KindRequire
	default:
		return nil
	}

	argsNode := node.ChildByFieldName("arguments")
	if argsNode == nil {
		return nil
	}

	arg := firstArgument(argsNode)
	if arg == nil {
		return nil
	}

	if arg.Kind() == "string" {
		return &Import{
			Specifier: unquote(arg.Utf8Text(source)),
			Kind:      kind,
			Line:      lineOf(node),
		}
	}

	return &Import{
		Kind:       kind,
		Line:       lineOf(node),
		NonLiteral: true,
	}
}

// firstArgument returns the first non-punctuation child of an arguments
// node (skipping the parentheses and commas tree-sitter includes as
// children).
func firstArgument(argsNode *tree_sitter.Node) *tree_sitter.Node {
	for i := uint(0); i < argsNode.ChildCount(); i++ {
		c := argsNode.Child(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "(", ")", ",":
			continue
		default:
			return c
		}
	}
	return nil
}

func firstStringChild(node *tree_sitter.Node) *tree_sitter.Node {
	for i := uint(0); i < node.ChildCount(); i++ {
		c := node.Child(i)
		if c != nil && c.Kind() == "string" {
			return c
		}
	}
	return nil
}

// isTypeOnlyImport reports whether an import/export-from statement is
// wholly type-only (`import type ...` / `export type ...`). This is a
// text-based check rather than a grammar-field check: the
// tree-sitter-typescript grammar marks the distinction with a bare "type"
// keyword token rather than a named field, so scanning the statement's own
// leading tokens is simpler and equally precise for the whole-statement
// case. Per-specifier type-only markers inside a mixed `import { type X, Y }
// from 'z'` are not split into a separate edge: the module-level dependency
// is the same either way, and the explainer only needs to distinguish
// wholly-type-only imports from value-bearing ones.
func isTypeOnlyImport(node *tree_sitter.Node, source []byte) bool {
	for i := uint(0); i < node.ChildCount(); i++ {
		c := node.Child(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "import", "export":
			continue
		case "type":
			return true
		default:
			return false
		}
	}
	return false
}

func unquote(s string) string {
	return strings.Trim(s, "\"'`")
}

func lineOf(node *tree_sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}
