package affected

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scopetest-dev/scopetest/internal/graph"
	"github.com/scopetest-dev/scopetest/internal/model"
)

func TestWhyTargetIsItselfASeed(t *testing.T) {
	g := buildChainGraph()
	seeds := map[string]bool{"src/index.test.ts": true}

	paths := Why(g, "src/index.test.ts", seeds, false, 0)
	require.Len(t, paths, 1)
	assert.Empty(t, paths[0].Steps)
}

func TestWhyShortestPathWalksBackToSeed(t *testing.T) {
	g := buildChainGraph()
	seeds := map[string]bool{"src/util.ts": true}

	paths := Why(g, "src/index.test.ts", seeds, false, 0)
	require.Len(t, paths, 1)
	steps := paths[0].Steps
	require.Len(t, steps, 2)
	assert.Equal(t, "src/index.test.ts", steps[0].From)
	assert.Equal(t, "src/index.ts", steps[0].To)
	assert.Equal(t, "src/index.ts", steps[1].From)
	assert.Equal(t, "src/util.ts", steps[1].To)
}

func TestWhyReturnsNilWhenUnreachable(t *testing.T) {
	g := buildChainGraph()
	seeds := map[string]bool{"src/unrelated.test.ts": true}

	paths := Why(g, "src/index.test.ts", seeds, false, 0)
	assert.Nil(t, paths)
}

func TestWhyAllEnumeratesEveryPath(t *testing.T) {
	// diamond: seed <- left, seed <- right, target <- left, target <- right
	g := graph.New()
	g.InsertNode(model.FileNode{Path: "seed.ts", Class: model.ClassSource})
	g.InsertNode(model.FileNode{Path: "left.ts", Class: model.ClassSource, Edges: []model.ImportEdge{resolvedEdge("seed.ts")}})
	g.InsertNode(model.FileNode{Path: "right.ts", Class: model.ClassSource, Edges: []model.ImportEdge{resolvedEdge("seed.ts")}})
	g.InsertNode(model.FileNode{Path: "target.test.ts", Class: model.ClassTest, Edges: []model.ImportEdge{resolvedEdge("left.ts"), resolvedEdge("right.ts")}})

	seeds := map[string]bool{"seed.ts": true}
	paths := Why(g, "target.test.ts", seeds, true, 0)

	require.Len(t, paths, 2)
	var via []string
	for _, p := range paths {
		require.Len(t, p.Steps, 2)
		via = append(via, p.Steps[0].To)
	}
	assert.ElementsMatch(t, []string{"left.ts", "right.ts"}, via)
}

func TestWhyAllRespectsMaxDepth(t *testing.T) {
	g := buildChainGraph()
	seeds := map[string]bool{"src/util.ts": true}

	paths := Why(g, "src/index.test.ts", seeds, true, 1)
	assert.Empty(t, paths, "util.ts is two hops away; maxDepth=1 should find nothing")

	paths = Why(g, "src/index.test.ts", seeds, true, 2)
	assert.Len(t, paths, 1)
}

func TestEdgeInfoBreaksTiesByEarliestLine(t *testing.T) {
	g := graph.New()
	g.InsertNode(model.FileNode{Path: "b.ts", Class: model.ClassSource})
	g.InsertNode(model.FileNode{Path: "a.ts", Class: model.ClassSource, Edges: []model.ImportEdge{
		{Target: "b.ts", Status: model.StatusResolved, Kind: model.KindTypeOnly, Line: 10},
		{Target: "b.ts", Status: model.StatusResolved, Kind: model.KindStatic, Line: 2},
	}})

	kind, line := edgeInfo(g, "a.ts", "b.ts")
	assert.Equal(t, model.KindStatic, kind)
	assert.Equal(t, 2, line)
}
