package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scopetest-dev/scopetest/internal/model"
)

func edge(target string) model.ImportEdge {
	return model.ImportEdge{Target: target, Status: model.StatusResolved, Kind: model.KindStatic}
}

func TestInsertNodePopulatesReverseIndex(t *testing.T) {
	g := New()
	g.InsertNode(model.FileNode{Path: "a.ts", Edges: []model.ImportEdge{edge("b.ts")}})
	g.InsertNode(model.FileNode{Path: "b.ts"})

	assert.Equal(t, []string{"a.ts"}, g.Importers("b.ts"))
	assert.Empty(t, g.Importers("a.ts"))
}

func TestInsertNodeIgnoresUnresolvedAndExternalEdges(t *testing.T) {
	g := New()
	g.InsertNode(model.FileNode{Path: "a.ts", Edges: []model.ImportEdge{
		{Target: "lodash", Status: model.StatusExternal},
		{Status: model.StatusUnresolved, Specifier: "./missing"},
	}})

	assert.Empty(t, g.Importers("lodash"))
}

func TestUpdateNodeRemovesStaleReverseEdges(t *testing.T) {
	g := New()
	g.InsertNode(model.FileNode{Path: "a.ts", Edges: []model.ImportEdge{edge("b.ts")}})
	g.InsertNode(model.FileNode{Path: "b.ts"})
	g.InsertNode(model.FileNode{Path: "c.ts"})

	g.UpdateNode(model.FileNode{Path: "a.ts", Edges: []model.ImportEdge{edge("c.ts")}})

	assert.Empty(t, g.Importers("b.ts"), "b is no longer imported after the update")
	assert.Equal(t, []string{"a.ts"}, g.Importers("c.ts"))
}

func TestRemoveNodeClearsItsOwnImporterBucketButLeavesInboundEdges(t *testing.T) {
	g := New()
	g.InsertNode(model.FileNode{Path: "a.ts", Edges: []model.ImportEdge{edge("b.ts")}})
	g.InsertNode(model.FileNode{Path: "b.ts"})

	g.RemoveNode("b.ts")

	assert.Nil(t, g.Node("b.ts"))
	assert.Empty(t, g.Importers("b.ts"), "b.ts's own bucket of importers is gone with the node")

	// a.ts's outgoing edge to the now-deleted b.ts is left untouched: the
	// node itself still reports it, a stale forward edge rather than a
	// silently dropped importer.
	a := g.Node("a.ts")
	require.NotNil(t, a)
	require.Len(t, a.Edges, 1)
	assert.Equal(t, "b.ts", a.Edges[0].Target)
}

func TestRemoveNodeClearsItsOwnOutgoingReverseContributions(t *testing.T) {
	g := New()
	g.InsertNode(model.FileNode{Path: "a.ts", Edges: []model.ImportEdge{edge("b.ts")}})
	g.InsertNode(model.FileNode{Path: "b.ts"})

	g.RemoveNode("a.ts")

	assert.Empty(t, g.Importers("b.ts"), "removing a.ts drops its contribution to b.ts's importer set")
}

func TestImportersReturnsSortedStableOrder(t *testing.T) {
	g := New()
	g.InsertNode(model.FileNode{Path: "z.ts", Edges: []model.ImportEdge{edge("target.ts")}})
	g.InsertNode(model.FileNode{Path: "a.ts", Edges: []model.ImportEdge{edge("target.ts")}})
	g.InsertNode(model.FileNode{Path: "m.ts", Edges: []model.ImportEdge{edge("target.ts")}})
	g.InsertNode(model.FileNode{Path: "target.ts"})

	assert.Equal(t, []string{"a.ts", "m.ts", "z.ts"}, g.Importers("target.ts"))
}

func TestNodeReturnsACopy(t *testing.T) {
	g := New()
	g.InsertNode(model.FileNode{Path: "a.ts", Edges: []model.ImportEdge{edge("b.ts")}})

	n := g.Node("a.ts")
	require.NotNil(t, n)
	n.Edges[0].Target = "mutated.ts"

	n2 := g.Node("a.ts")
	assert.Equal(t, "b.ts", n2.Edges[0].Target, "mutating a returned copy must not affect the stored node")
}

func TestReverseNeighborsVisitsEachImporterOnce(t *testing.T) {
	g := New()
	g.InsertNode(model.FileNode{Path: "a.ts", Edges: []model.ImportEdge{edge("t.ts")}})
	g.InsertNode(model.FileNode{Path: "b.ts", Edges: []model.ImportEdge{edge("t.ts")}})
	g.InsertNode(model.FileNode{Path: "t.ts"})

	seen := map[string]bool{}
	g.ReverseNeighbors("t.ts", func(importer string) { seen[importer] = true })

	assert.Equal(t, map[string]bool{"a.ts": true, "b.ts": true}, seen)
}

func TestLenAndAllNodes(t *testing.T) {
	g := New()
	g.InsertNode(model.FileNode{Path: "a.ts"})
	g.InsertNode(model.FileNode{Path: "b.ts"})

	assert.Equal(t, 2, g.Len())
	assert.Len(t, g.AllNodes(), 2)
}
