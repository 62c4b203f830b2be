// Package graph implements the Graph Builder: a directed graph over
// model.FileNode values with a forward adjacency (a file's outgoing edges,
// embedded on the node itself) and a reverse adjacency (importer set per
// target), maintained atomically across the three supported mutations.
package graph

import (
	"sort"
	"sync"

	"github.com/scopetest-dev/scopetest/internal/model"
)

// Graph is the in-memory dependency graph. All access goes through its
// methods, which take the write lock for the duration of one mutation; the
// reverse index is never observably inconsistent with the forward one
// outside of that window.
type Graph struct {
	mu      sync.RWMutex
	nodes   map[string]*model.FileNode
	reverse map[string]map[string]struct{} // target path -> set of importer paths
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{
		nodes:   make(map[string]*model.FileNode),
		reverse: make(map[string]map[string]struct{}),
	}
}

// InsertNode adds a new node (with its outgoing edges) to both indices.
// Invariant: every edge's source node is node.Path, guaranteed by
// construction, so InsertNode only ever needs to populate the reverse
// index for node's own edges' resolved targets.
func (g *Graph) InsertNode(node model.FileNode) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.insertLocked(node)
}

// UpdateNode replaces an existing node's content hash and edge list,
// removing the reverse-index entries of its former targets first so a
// changed import set never leaves a stale reverse edge behind.
func (g *Graph) UpdateNode(node model.FileNode) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if old, ok := g.nodes[node.Path]; ok {
		g.removeReverseEdges(old)
	}
	g.insertLocked(node)
}

// RemoveNode deletes a node and its outgoing edges' reverse-index entries.
// Inbound edges from other nodes are left in place: they become
// resolution failures (their target no longer exists) rather than evicting
// the importer. Removing a file never silently drops its importers from
// the graph.
func (g *Graph) RemoveNode(path string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	node, ok := g.nodes[path]
	if !ok {
		return
	}
	g.removeReverseEdges(node)
	delete(g.nodes, path)
	delete(g.reverse, path)
}

func (g *Graph) insertLocked(node model.FileNode) {
	g.nodes[node.Path] = &node
	for _, e := range node.Edges {
		if e.Status != model.StatusResolved || e.Target == "" {
			continue
		}
		if g.reverse[e.Target] == nil {
			g.reverse[e.Target] = make(map[string]struct{})
		}
		g.reverse[e.Target][node.Path] = struct{}{}
	}
}

func (g *Graph) removeReverseEdges(node *model.FileNode) {
	for _, e := range node.Edges {
		if e.Status != model.StatusResolved || e.Target == "" {
			continue
		}
		if set, ok := g.reverse[e.Target]; ok {
			delete(set, node.Path)
			if len(set) == 0 {
				delete(g.reverse, e.Target)
			}
		}
	}
}

// Node returns a copy of the node at path, or nil if absent.
func (g *Graph) Node(path string) *model.FileNode {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[path]
	if !ok {
		return nil
	}
	cp := *n
	cp.Edges = append([]model.ImportEdge(nil), n.Edges...)
	return &cp
}

// Importers returns the set of paths that import path directly (one hop of
// the reverse adjacency), sorted.
func (g *Graph) Importers(path string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.importersLocked(path)
}

func (g *Graph) importersLocked(path string) []string {
	set := g.reverse[path]
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// AllNodes returns a snapshot slice of every node currently in the graph.
func (g *Graph) AllNodes() []model.FileNode {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]model.FileNode, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, *n)
	}
	return out
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// ReverseNeighbors exposes one BFS hop for the affected engine without
// copying the whole graph: it calls visit once per direct importer of path.
func (g *Graph) ReverseNeighbors(path string, visit func(importer string)) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for p := range g.reverse[path] {
		visit(p)
	}
}
