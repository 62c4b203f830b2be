package mcptools

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/scopetest-dev/scopetest/internal/affected"
	"github.com/scopetest-dev/scopetest/internal/cachestore"
	"github.com/scopetest-dev/scopetest/internal/config"
	"github.com/scopetest-dev/scopetest/internal/graph"
	"github.com/scopetest-dev/scopetest/internal/logging"
	"github.com/scopetest-dev/scopetest/internal/model"
	"github.com/scopetest-dev/scopetest/internal/resolve"
	"github.com/scopetest-dev/scopetest/internal/tsparse"
	"github.com/scopetest-dev/scopetest/internal/vcsdiff"
	"github.com/scopetest-dev/scopetest/internal/workspace"
)

// Service holds the shared logger used by every tool handler. Unlike the
// CLI, a running MCP server has no fixed project root: each call supplies
// its own RepoRoot, since a long-lived agent session may field requests
// against more than one repository.
type Service struct {
	log *logging.Logger
}

// NewService constructs a Service.
func NewService() *Service {
	return &Service{log: logging.New()}
}

// buildGraph runs the same discovery -> cache-load -> build -> cache-save
// pipeline the CLI's setupGraph does, returned here for the MCP handlers to
// share.
func (s *Service) buildGraph(ctx context.Context, root string, noCache bool) (*graph.Graph, []model.FileNode, bool, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, nil, false, fmt.Errorf("loading config: %w", err)
	}
	ws, err := workspace.Discover(root, cfg)
	if err != nil {
		return nil, nil, false, fmt.Errorf("discovering workspace: %w", err)
	}
	configHash, err := cfg.Hash()
	if err != nil {
		return nil, nil, false, fmt.Errorf("hashing config: %w", err)
	}

	var prevNodes []model.FileNode
	cacheHit := false
	cachePath := cachestore.Path(root)
	if !noCache {
		if cached, ok := cachestore.Load(cachePath); ok && cached.IsValid(configHash) {
			prevNodes = cached.Nodes
			cacheHit = true
		}
	}

	resolver := resolve.New(ws)
	parser := tsparse.NewTreeSitterParser()
	defer parser.Close()

	var g *graph.Graph
	if prevNodes != nil {
		g, err = graph.BuildIncremental(ctx, s.log, ws, parser, resolver, cfg.TestPatterns, prevNodes)
	} else {
		g, err = graph.Build(ctx, s.log, ws, parser, resolver, cfg.TestPatterns)
	}
	if err != nil {
		return nil, nil, false, fmt.Errorf("building graph: %w", err)
	}

	if !noCache {
		if lock, ok := cachestore.AcquireLock(cachestore.LockPath(root)); ok {
			_ = cachestore.Save(cachePath, &cachestore.Cache{ConfigHash: configHash, Nodes: g.AllNodes()})
			lock.Unlock()
		}
	}

	return g, prevNodes, cacheHit, nil
}

// changeset mirrors cmd/scopetest's resolveChangeset: `base` is narrowed to
// merge-base(HEAD, base) first, `since` is used as a direct range endpoint.
func (s *Service) changeset(ctx context.Context, root, base, since string) (model.Changeset, error) {
	vcs := vcsdiff.New(root)
	switch {
	case base == "" && since == "":
		return vcs.Uncommitted(ctx)
	case base != "":
		mergeBase, err := vcs.MergeBase(ctx, base)
		if err != nil {
			return model.Changeset{}, err
		}
		return vcs.Diff(ctx, mergeBase, "")
	default:
		return vcs.Diff(ctx, since, "")
	}
}

// Affected computes the impacted test set for a repository, the MCP
// equivalent of `scopetest affected`.
func (s *Service) Affected(ctx context.Context, _ *mcp.CallToolRequest, in AffectedInput) (*mcp.CallToolResult, AffectedOutput, error) {
	if in.RepoRoot == "" {
		return nil, AffectedOutput{}, fmt.Errorf("repoRoot is required")
	}
	g, prev, _, err := s.buildGraph(ctx, in.RepoRoot, in.NoCache)
	if err != nil {
		return nil, AffectedOutput{}, err
	}
	cs, err := s.changeset(ctx, in.RepoRoot, in.Base, in.Since)
	if err != nil {
		return nil, AffectedOutput{}, err
	}
	impact := affected.Compute(g, prev, cs, affected.Options{Threshold: in.Threshold, Sources: in.Sources})
	return nil, AffectedOutput{Impact: impact}, nil
}

// Why explains how a test file became affected, the MCP equivalent of
// `scopetest why`.
func (s *Service) Why(ctx context.Context, _ *mcp.CallToolRequest, in WhyInput) (*mcp.CallToolResult, WhyOutput, error) {
	if in.RepoRoot == "" || in.Target == "" {
		return nil, WhyOutput{}, fmt.Errorf("repoRoot and target are required")
	}
	g, _, _, err := s.buildGraph(ctx, in.RepoRoot, in.NoCache)
	if err != nil {
		return nil, WhyOutput{}, err
	}
	cs, err := s.changeset(ctx, in.RepoRoot, in.Base, in.Since)
	if err != nil {
		return nil, WhyOutput{}, err
	}
	seeds := make(map[string]bool)
	for _, p := range cs.AllPaths() {
		seeds[p] = true
	}
	paths := affected.Why(g, in.Target, seeds, in.All, g.Len())
	return nil, WhyOutput{Paths: paths}, nil
}

// Coverage reports the affected source globs for coverage scoping, the MCP
// equivalent of `scopetest coverage`.
func (s *Service) Coverage(ctx context.Context, _ *mcp.CallToolRequest, in CoverageInput) (*mcp.CallToolResult, CoverageOutput, error) {
	if in.RepoRoot == "" {
		return nil, CoverageOutput{}, fmt.Errorf("repoRoot is required")
	}
	g, prev, _, err := s.buildGraph(ctx, in.RepoRoot, false)
	if err != nil {
		return nil, CoverageOutput{}, err
	}
	cs, err := s.changeset(ctx, in.RepoRoot, in.Base, "")
	if err != nil {
		return nil, CoverageOutput{}, err
	}
	impact := affected.Compute(g, prev, cs, affected.Options{Sources: true})
	return nil, CoverageOutput{Sources: impact.AffectedSource}, nil
}

// BuildGraph rebuilds the graph and persists the cache, the MCP equivalent
// of `scopetest build`. Nodes whose content hash matches a valid existing
// cache are reused, which CacheHit reports.
func (s *Service) BuildGraph(ctx context.Context, _ *mcp.CallToolRequest, in BuildGraphInput) (*mcp.CallToolResult, BuildGraphOutput, error) {
	if in.RepoRoot == "" {
		return nil, BuildGraphOutput{}, fmt.Errorf("repoRoot is required")
	}
	started := time.Now()
	g, _, cacheHit, err := s.buildGraph(ctx, in.RepoRoot, false)
	if err != nil {
		return nil, BuildGraphOutput{}, err
	}
	return nil, BuildGraphOutput{NodeCount: g.Len(), DurationMs: time.Since(started).Milliseconds(), CacheHit: cacheHit}, nil
}
