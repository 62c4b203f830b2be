package graph

import (
	"context"
	"os"
	"path/filepath"
	"runtime"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/scopetest-dev/scopetest/internal/cachestore"
	"github.com/scopetest-dev/scopetest/internal/logging"
	"github.com/scopetest-dev/scopetest/internal/model"
	"github.com/scopetest-dev/scopetest/internal/resolve"
	"github.com/scopetest-dev/scopetest/internal/tsparse"
	"github.com/scopetest-dev/scopetest/internal/workspace"
)

// parseExtensions are the file extensions the parser is applied to; other
// tracked extensions (.json) are recorded as nodes with no edges.
var parseExtensions = map[string]bool{
	".ts": true, ".tsx": true, ".js": true, ".jsx": true, ".mjs": true, ".cjs": true,
}

// Build parses and resolves every file in ws in parallel, then assembles the
// result into a fresh Graph. Each file is an independent work item producing
// a purely local FileNode; the single synchronization point is the Graph's
// own insert, which takes its write lock per node rather than one coarse
// lock for the whole batch — equally safe here because insertion order
// across files never depends on another file's result.
func Build(ctx context.Context, log *logging.Logger, ws *workspace.Workspace, parser tsparse.Parser, resolver *resolve.Resolver, testPatterns []string) (*Graph, error) {
	g := New()

	sem := make(chan struct{}, runtime.GOMAXPROCS(0))
	eg, egCtx := errgroup.WithContext(ctx)

	for _, path := range ws.Files {
		path := path
		eg.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-egCtx.Done():
				return egCtx.Err()
			}
			defer func() { <-sem }()

			node, err := buildNode(egCtx, log, ws, parser, resolver, path, testPatterns, nil)
			if err != nil {
				return err
			}
			g.InsertNode(*node)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return g, nil
}

// BuildIncremental is Build's cache-aware sibling: a file already present in
// prev with an unchanged content hash is reused verbatim — no read past the
// hash, no parse, no resolve — while every new or modified file goes
// through the same buildNode path Build uses. This is what makes a
// re-run on a large workspace cost roughly one hash per file instead of a
// full parse.
func BuildIncremental(ctx context.Context, log *logging.Logger, ws *workspace.Workspace, parser tsparse.Parser, resolver *resolve.Resolver, testPatterns []string, prev []model.FileNode) (*Graph, error) {
	prevByPath := make(map[string]model.FileNode, len(prev))
	for _, n := range prev {
		prevByPath[n.Path] = n
	}

	g := New()
	sem := make(chan struct{}, runtime.GOMAXPROCS(0))
	eg, egCtx := errgroup.WithContext(ctx)

	for _, path := range ws.Files {
		path := path
		eg.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-egCtx.Done():
				return egCtx.Err()
			}
			defer func() { <-sem }()

			var prior *model.FileNode
			if old, ok := prevByPath[path]; ok {
				old := old
				data, err := os.ReadFile(filepath.Join(ws.Root, path))
				if err == nil && cachestore.ContentHash(data) == old.ContentHash {
					g.InsertNode(old)
					return nil
				}
				prior = &old
			}

			node, err := buildNode(egCtx, log, ws, parser, resolver, path, testPatterns, prior)
			if err != nil {
				return err
			}
			g.InsertNode(*node)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return g, nil
}

// buildNode parses and resolves one file. If parsing fails and prior is
// non-nil (this file had a last-known-good node from a previous run), the
// node keeps prior's edges and barrel flag rather than dropping them: a
// syntax error (e.g. mid-edit) must not make dependents look unaffected by
// a real change elsewhere, per the "incremental correctness under partial
// parse failure" design note.
func buildNode(ctx context.Context, log *logging.Logger, ws *workspace.Workspace, parser tsparse.Parser, resolver *resolve.Resolver, path string, testPatterns []string, prior *model.FileNode) (*model.FileNode, error) {
	class := model.ClassSource
	if matchesAny(testPatterns, path) {
		class = model.ClassTest
	}

	data, err := os.ReadFile(filepath.Join(ws.Root, path))
	if err != nil {
		return &model.FileNode{Path: path, Class: class, ParseStatus: model.ParseUnsupported}, nil
	}
	hash := cachestore.ContentHash(data)

	ext := filepath.Ext(path)
	if !parseExtensions[ext] {
		return &model.FileNode{Path: path, ContentHash: hash, Class: class, ParseStatus: model.ParseUnsupported}, nil
	}

	result, err := parser.Parse(ctx, path, data)
	if err != nil {
		node := &model.FileNode{Path: path, ContentHash: hash, Class: class, ParseStatus: model.ParseSyntaxError}
		if prior != nil {
			node.Edges = prior.Edges
			node.IsBarrel = prior.IsBarrel
		}
		return node, nil
	}

	// A syntax error doesn't abort the parse — tree-sitter recovers and keeps
	// extracting whatever it can from the surrounding tree — but a
	// mid-edit file's partial extraction is less trustworthy than what was
	// last known good. When a prior node exists, keep its edges and barrel
	// flag instead of the partial re-extraction, so a dependent doesn't look
	// unaffected just because the importer currently fails to parse.
	if result.ParseStatus == model.ParseSyntaxError && prior != nil {
		return &model.FileNode{
			Path:        path,
			ContentHash: hash,
			Class:       class,
			IsBarrel:    prior.IsBarrel,
			ParseStatus: model.ParseSyntaxError,
			Edges:       prior.Edges,
		}, nil
	}

	edges := make([]model.ImportEdge, 0, len(result.Imports))
	for _, imp := range result.Imports {
		edge := model.ImportEdge{
			Importer:   path,
			Specifier:  imp.Specifier,
			Kind:       imp.Kind,
			Line:       imp.Line,
			NonLiteral: imp.NonLiteral,
		}
		if imp.NonLiteral {
			// A non-literal require() argument names no resolvable file, and
			// recording one edge per call site would manufacture a false
			// dependency for every dynamic loader helper in the repo. Such
			// calls are dropped; the warning is opt-in. A non-literal dynamic
			// import() is kept as an unresolved edge for diagnostics.
			if imp.Kind == model.KindRequire {
				if ws.Config.WarnNonLiteralRequire && log != nil {
					log.Warnf("%s:%d: ignoring require() with a non-literal argument", path, imp.Line)
				}
				continue
			}
			edge.Status = model.StatusUnresolved
			edges = append(edges, edge)
			continue
		}
		res := resolver.Resolve(path, imp.Specifier)
		edge.Status = res.Status
		edge.Target = res.Target
		edges = append(edges, edge)
	}

	return &model.FileNode{
		Path:        path,
		ContentHash: hash,
		Class:       class,
		IsBarrel:    result.IsBarrel,
		ParseStatus: result.ParseStatus,
		Edges:       edges,
	}, nil
}

func matchesAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}
