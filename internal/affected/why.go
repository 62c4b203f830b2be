package affected

import (
	"sort"

	"github.com/scopetest-dev/scopetest/internal/graph"
	"github.com/scopetest-dev/scopetest/internal/model"
)

// parentHop records, during shortest-path search, the node one step closer
// to target and the edge that connects them.
type parentHop struct {
	node string
	kind model.ImportKind
	line int
}

// Why explains how target ended up in the affected set by walking target's
// imports forward through the dependency graph until it reaches a member of
// seeds. With all=false it returns at most one path: the fewest-hop route,
// with ties broken by the lexicographically earliest imported module at each
// level — the same tie-break the resolver and graph use elsewhere, so the
// answer is stable across runs over an unchanged graph. With all=true it
// returns every simple path (no repeated node) up to maxDepth hops;
// maxDepth <= 0 means unbounded.
func Why(g *graph.Graph, target string, seeds map[string]bool, all bool, maxDepth int) []model.ExplanationPath {
	if all {
		return whyAll(g, target, seeds, maxDepth)
	}
	if path, ok := whyShortest(g, target, seeds); ok {
		return []model.ExplanationPath{path}
	}
	return nil
}

func whyShortest(g *graph.Graph, target string, seeds map[string]bool) (model.ExplanationPath, bool) {
	if seeds[target] {
		return model.ExplanationPath{}, true
	}

	visited := map[string]bool{target: true}
	queue := []string{target}
	came := map[string]parentHop{}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, next := range forwardNeighbors(g, cur) {
			if visited[next] {
				continue
			}
			visited[next] = true
			kind, line := edgeInfo(g, cur, next)
			came[next] = parentHop{node: cur, kind: kind, line: line}
			if seeds[next] {
				return buildShortestPath(next, target, came), true
			}
			queue = append(queue, next)
		}
	}
	return model.ExplanationPath{}, false
}

// buildShortestPath walks came from seed back toward target (each entry
// points one hop closer to target) and reverses the result into the
// target-to-seed order callers expect.
func buildShortestPath(seed, target string, came map[string]parentHop) model.ExplanationPath {
	var steps []model.ExplanationStep
	cur := seed
	for cur != target {
		hop := came[cur]
		steps = append(steps, model.ExplanationStep{From: hop.node, To: cur, Kind: hop.kind, Line: hop.line})
		cur = hop.node
	}
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return model.ExplanationPath{Steps: steps}
}

// whyAll enumerates every simple path from target forward to a seed via
// depth-first search, backtracking the path-local visited set so the same
// node can appear on different branches.
func whyAll(g *graph.Graph, target string, seeds map[string]bool, maxDepth int) []model.ExplanationPath {
	var results []model.ExplanationPath

	var walk func(cur string, visited map[string]bool, steps []model.ExplanationStep)
	walk = func(cur string, visited map[string]bool, steps []model.ExplanationStep) {
		if seeds[cur] {
			cp := make([]model.ExplanationStep, len(steps))
			copy(cp, steps)
			results = append(results, model.ExplanationPath{Steps: cp})
			return
		}
		if maxDepth > 0 && len(steps) >= maxDepth {
			return
		}
		for _, next := range forwardNeighbors(g, cur) {
			if visited[next] {
				continue
			}
			kind, line := edgeInfo(g, cur, next)
			visited[next] = true
			walk(next, visited, append(steps, model.ExplanationStep{From: cur, To: next, Kind: kind, Line: line}))
			delete(visited, next)
		}
	}

	walk(target, map[string]bool{target: true}, nil)
	return results
}

// forwardNeighbors returns the distinct resolved targets of path's outgoing
// edges, sorted so traversal order (and thus tie-breaking) is deterministic.
func forwardNeighbors(g *graph.Graph, path string) []string {
	node := g.Node(path)
	if node == nil {
		return nil
	}
	seen := make(map[string]bool, len(node.Edges))
	out := make([]string, 0, len(node.Edges))
	for _, e := range node.Edges {
		if e.Status == model.StatusResolved && e.Target != "" && !seen[e.Target] {
			seen[e.Target] = true
			out = append(out, e.Target)
		}
	}
	sort.Strings(out)
	return out
}

// edgeInfo finds the edge by which importer reaches target, breaking ties
// between multiple edges to the same target (e.g. a value import alongside
// a separate type-only import of the same module) by earliest source line.
func edgeInfo(g *graph.Graph, importer, target string) (model.ImportKind, int) {
	node := g.Node(importer)
	if node == nil {
		return model.KindStatic, 0
	}
	best := -1
	var kind model.ImportKind
	line := 0
	for _, e := range node.Edges {
		if e.Status == model.StatusResolved && e.Target == target {
			if best == -1 || e.Line < best {
				best = e.Line
				kind = e.Kind
				line = e.Line
			}
		}
	}
	return kind, line
}
