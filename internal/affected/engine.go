// Package affected implements the Affected-Set Engine: reverse-reachability
// over the dependency graph from a changeset to the set of files (and,
// filtered further, test files) that must be considered impacted.
//
// The traversal is a breadth-first walk of the reverse adjacency, one
// level per import hop, with a visited set guarding against revisiting a
// node through a second path (cheap here, since cycles are common in real
// import graphs: two modules importing each other is unremarkable in JS).
package affected

import (
	"sort"

	"github.com/scopetest-dev/scopetest/internal/graph"
	"github.com/scopetest-dev/scopetest/internal/model"
)

// Options tunes one Compute call.
type Options struct {
	// Threshold caps the number of affected tests before the engine gives
	// up enumerating and reports FallbackAll instead. Zero disables the
	// check.
	Threshold int
	// Sources additionally reports the non-test files in the affected set.
	Sources bool
}

// Compute returns the impact of changed against g, the current graph. prev
// supplies the node list from the last successful run, used only to resolve
// the importers of deleted and renamed-from paths — those paths are no
// longer present in g, so their former importers can only be recovered from
// the last persisted snapshot.
func Compute(g *graph.Graph, prev []model.FileNode, changed model.Changeset, opts Options) model.ImpactResult {
	visited := seedSet(g, prev, changed)
	queue := make([]string, 0, len(visited))
	for p := range visited {
		queue = append(queue, p)
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		g.ReverseNeighbors(cur, func(importer string) {
			if !visited[importer] {
				visited[importer] = true
				queue = append(queue, importer)
			}
		})
	}

	affected := make([]string, 0, len(visited))
	for p := range visited {
		if g.Node(p) != nil {
			affected = append(affected, p)
		}
	}
	sort.Strings(affected)

	changedSet := make(map[string]bool)
	for _, p := range changed.AllPaths() {
		changedSet[p] = true
	}

	// Test files stay out of the sources list unless they were themselves
	// part of the changeset.
	var tests, sources []string
	for _, p := range affected {
		node := g.Node(p)
		if node.Class == model.ClassTest {
			tests = append(tests, p)
			if opts.Sources && changedSet[p] {
				sources = append(sources, p)
			}
		} else if opts.Sources {
			sources = append(sources, p)
		}
	}

	changedList := append([]string{}, changed.AllPaths()...)
	sort.Strings(changedList)

	result := model.ImpactResult{
		ChangedFiles:  changedList,
		AffectedFiles: affected,
		AffectedTests: tests,
	}
	if opts.Sources {
		result.AffectedSource = sources
	}
	if opts.Threshold > 0 && len(tests) > opts.Threshold {
		result.FallbackAll = true
		result.AffectedFiles = nil
		result.AffectedTests = nil
		result.AffectedSource = nil
	}
	return result
}

// seedSet builds the initial BFS frontier: every modified/added/renamed-to
// path seeds directly (it is itself part of the affected set, and still
// present in g so its own reverse neighbors are reachable from it).
// Deleted and renamed-from paths are gone from g, so instead their former
// importers — recovered from prev — seed the frontier in their place.
func seedSet(g *graph.Graph, prev []model.FileNode, changed model.Changeset) map[string]bool {
	visited := make(map[string]bool)
	add := func(p string) {
		if p != "" {
			visited[p] = true
		}
	}

	for _, p := range changed.Modified {
		add(p)
	}
	for _, p := range changed.Added {
		add(p)
	}
	for _, r := range changed.Renamed {
		add(r.New)
	}

	var deleted []string
	deleted = append(deleted, changed.Deleted...)
	for _, r := range changed.Renamed {
		deleted = append(deleted, r.Old)
	}
	if len(deleted) == 0 {
		return visited
	}

	importersOf := priorImporters(prev)
	for _, d := range deleted {
		for _, imp := range importersOf[d] {
			add(imp)
		}
	}
	return visited
}

// priorImporters inverts a snapshot's forward edges into a target -> list of
// importers map, used only to answer "who imported this now-deleted file".
func priorImporters(nodes []model.FileNode) map[string][]string {
	out := make(map[string][]string)
	for _, n := range nodes {
		for _, e := range n.Edges {
			if e.Status == model.StatusResolved && e.Target != "" {
				out[e.Target] = append(out[e.Target], n.Path)
			}
		}
	}
	return out
}
