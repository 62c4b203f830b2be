package main

import (
	"context"
	"errors"
	"fmt"
	"time"

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

// errExecFailed marks a -x/--exec child process that exited non-zero,
// distinguishing it at the run() dispatch layer from every other error kind
// so it alone maps to exit code 1.
var errExecFailed = errors.New("exec: child process failed")

// buildResult bundles everything a subcommand needs after the
// workspace/graph/cache setup that affected, why, and coverage all share.
type buildResult struct {
	ws        *workspace.Workspace
	g         *graph.Graph
	prevNodes []model.FileNode
	cacheHit  bool
	duration  time.Duration
}

// setupGraph loads the workspace, builds (or incrementally rebuilds) the
// graph, and — unless noCache — persists the refreshed cache back to disk.
// Discovery runs first, then the cache load, then parse/resolve over
// dirty files only, then the cache write-back.
func setupGraph(ctx context.Context, log *logging.Logger, root string, noCache bool) (*buildResult, error) {
	started := time.Now()

	cfg, err := config.Load(root)
	if err != nil {
		return nil, usageErr("loading config: %w", err)
	}

	ws, err := workspace.Discover(root, cfg)
	if err != nil {
		return nil, rootErr("discovering workspace: %w", err)
	}

	configHash, err := cfg.Hash()
	if err != nil {
		return nil, usageErr("hashing config: %w", err)
	}

	var prevNodes []model.FileNode
	cacheHit := false
	cachePath := cachestore.Path(root)

	if !noCache {
		if cached, ok := cachestore.Load(cachePath); ok && cached.IsValid(configHash) {
			prevNodes = cached.Nodes
			cacheHit = true
		} else if !ok {
			log.Debugf("no usable cache at %s, doing a full build", cachePath)
		} else {
			log.Debugf("cache config hash mismatch, doing a full build")
		}
	}

	resolver := resolve.New(ws)
	parser := tsparse.NewTreeSitterParser()
	defer parser.Close()

	var g *graph.Graph
	if prevNodes != nil {
		g, err = graph.BuildIncremental(ctx, log, ws, parser, resolver, cfg.TestPatterns, prevNodes)
	} else {
		g, err = graph.Build(ctx, log, ws, parser, resolver, cfg.TestPatterns)
	}
	if err != nil {
		return nil, fmt.Errorf("building graph: %w", err)
	}

	if !noCache {
		lock, ok := cachestore.AcquireLock(cachestore.LockPath(root))
		if !ok {
			log.Warnf("cache lock held by another instance, skipping write-back")
		} else {
			err := cachestore.Save(cachePath, &cachestore.Cache{ConfigHash: configHash, Nodes: g.AllNodes()})
			lock.Unlock()
			if err != nil {
				log.Warnf("failed to save cache: %v", err)
			}
		}
	}

	return &buildResult{ws: ws, g: g, prevNodes: prevNodes, cacheHit: cacheHit, duration: time.Since(started)}, nil
}

// resolveChangeset asks the VCS adapter for the changeset implied by
// base/since (or, if both are empty, the working tree's uncommitted changes
// against HEAD): `base` means merge-base(HEAD, base)..HEAD plus
// working-tree changes; `since` means since..HEAD plus working-tree changes
// — since is a direct range endpoint, base first gets narrowed down to the
// branch point so a long-lived base ref doesn't pull in its own unrelated
// history.
func resolveChangeset(ctx context.Context, root, base, since string) (model.Changeset, error) {
	vcs := vcsdiff.New(root)
	switch {
	case base == "" && since == "":
		cs, err := vcs.Uncommitted(ctx)
		if err != nil {
			return model.Changeset{}, vcsErr("%w", err)
		}
		return cs, nil
	case base != "":
		mergeBase, err := vcs.MergeBase(ctx, base)
		if err != nil {
			return model.Changeset{}, vcsErr("%w", err)
		}
		cs, err := vcs.Diff(ctx, mergeBase, "")
		if err != nil {
			return model.Changeset{}, vcsErr("%w", err)
		}
		return cs, nil
	default:
		cs, err := vcs.Diff(ctx, since, "")
		if err != nil {
			return model.Changeset{}, vcsErr("%w", err)
		}
		return cs, nil
	}
}
