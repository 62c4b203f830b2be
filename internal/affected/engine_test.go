package affected

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scopetest-dev/scopetest/internal/graph"
	"github.com/scopetest-dev/scopetest/internal/model"
)

func resolvedEdge(target string) model.ImportEdge {
	return model.ImportEdge{Target: target, Status: model.StatusResolved, Kind: model.KindStatic}
}

// util <- index <- index.test
func buildChainGraph() *graph.Graph {
	g := graph.New()
	g.InsertNode(model.FileNode{Path: "src/util.ts", Class: model.ClassSource})
	g.InsertNode(model.FileNode{Path: "src/index.ts", Class: model.ClassSource, Edges: []model.ImportEdge{resolvedEdge("src/util.ts")}})
	g.InsertNode(model.FileNode{Path: "src/index.test.ts", Class: model.ClassTest, Edges: []model.ImportEdge{resolvedEdge("src/index.ts")}})
	g.InsertNode(model.FileNode{Path: "src/unrelated.test.ts", Class: model.ClassTest})
	return g
}

func TestComputeModifiedFilePropagatesThroughReverseEdges(t *testing.T) {
	g := buildChainGraph()
	changed := model.Changeset{Modified: []string{"src/util.ts"}}

	result := Compute(g, nil, changed, Options{})

	assert.Equal(t, []string{"src/util.ts"}, result.ChangedFiles)
	assert.Equal(t, []string{"src/index.test.ts"}, result.AffectedTests)
	assert.Contains(t, result.AffectedFiles, "src/index.ts")
	assert.Contains(t, result.AffectedFiles, "src/util.ts")
	assert.NotContains(t, result.AffectedFiles, "src/unrelated.test.ts")
	assert.False(t, result.FallbackAll)
}

func TestComputeSourcesModeIncludesNonTestAffected(t *testing.T) {
	g := buildChainGraph()
	changed := model.Changeset{Modified: []string{"src/util.ts"}}

	result := Compute(g, nil, changed, Options{Sources: true})

	assert.ElementsMatch(t, []string{"src/util.ts", "src/index.ts"}, result.AffectedSource)
}

func TestComputeSourcesModeIncludesChangedTestFile(t *testing.T) {
	g := buildChainGraph()
	changed := model.Changeset{Modified: []string{"src/index.test.ts"}}

	result := Compute(g, nil, changed, Options{Sources: true})

	assert.Contains(t, result.AffectedSource, "src/index.test.ts",
		"a test file that itself changed belongs in the sources list")
	assert.Contains(t, result.AffectedTests, "src/index.test.ts")
}

func TestComputeThresholdZeroDisablesFallback(t *testing.T) {
	g := buildChainGraph()
	changed := model.Changeset{Modified: []string{"src/util.ts"}}

	result := Compute(g, nil, changed, Options{Threshold: 0})
	assert.False(t, result.FallbackAll)
}

func TestComputeThresholdAtExactCountDoesNotFallback(t *testing.T) {
	g := buildChainGraph()
	changed := model.Changeset{Modified: []string{"src/util.ts"}}

	// buildChainGraph's only affected test is src/index.test.ts: a threshold
	// equal to that count should not trip the fallback.
	result := Compute(g, nil, changed, Options{Threshold: 1})
	assert.False(t, result.FallbackAll)
}

func TestComputeThresholdExceededClearsLists(t *testing.T) {
	g := graph.New()
	g.InsertNode(model.FileNode{Path: "src/util.ts", Class: model.ClassSource})
	for i := 0; i < 3; i++ {
		path := "src/t" + string(rune('a'+i)) + ".test.ts"
		g.InsertNode(model.FileNode{Path: path, Class: model.ClassTest, Edges: []model.ImportEdge{resolvedEdge("src/util.ts")}})
	}

	changed := model.Changeset{Modified: []string{"src/util.ts"}}
	result := Compute(g, nil, changed, Options{Threshold: 2})

	assert.True(t, result.FallbackAll)
	assert.Nil(t, result.AffectedFiles)
	assert.Nil(t, result.AffectedTests)
	assert.Nil(t, result.AffectedSource)
}

func TestComputeDeletedFileSeedsFromPriorSnapshot(t *testing.T) {
	// Simulate: util.ts existed, index.ts imported it and index.test.ts
	// imported index.ts. util.ts has now been deleted, so the live graph no
	// longer contains it; only prev (the last persisted snapshot) knows that
	// index.ts used to import it.
	prev := []model.FileNode{
		{Path: "src/util.ts", Class: model.ClassSource},
		{Path: "src/index.ts", Class: model.ClassSource, Edges: []model.ImportEdge{resolvedEdge("src/util.ts")}},
		{Path: "src/index.test.ts", Class: model.ClassTest, Edges: []model.ImportEdge{resolvedEdge("src/index.ts")}},
	}

	g := graph.New()
	g.InsertNode(model.FileNode{Path: "src/index.ts", Class: model.ClassSource})
	g.InsertNode(model.FileNode{Path: "src/index.test.ts", Class: model.ClassTest, Edges: []model.ImportEdge{resolvedEdge("src/index.ts")}})

	changed := model.Changeset{Deleted: []string{"src/util.ts"}}
	result := Compute(g, prev, changed, Options{})

	assert.Equal(t, []string{"src/index.test.ts"}, result.AffectedTests)
	assert.NotContains(t, result.AffectedFiles, "src/util.ts", "the deleted path itself no longer exists in the live graph")
}

func TestComputeRenameSeedsBothEndpoints(t *testing.T) {
	prev := []model.FileNode{
		{Path: "src/old.ts", Class: model.ClassSource},
		{Path: "src/index.ts", Class: model.ClassSource, Edges: []model.ImportEdge{resolvedEdge("src/old.ts")}},
	}
	g := graph.New()
	g.InsertNode(model.FileNode{Path: "src/new.ts", Class: model.ClassSource})
	g.InsertNode(model.FileNode{Path: "src/index.ts", Class: model.ClassSource, Edges: []model.ImportEdge{resolvedEdge("src/new.ts")}})

	changed := model.Changeset{Renamed: []model.RenamePair{{Old: "src/old.ts", New: "src/new.ts"}}}
	result := Compute(g, prev, changed, Options{Sources: true})

	assert.Contains(t, result.AffectedSource, "src/new.ts")
	assert.Contains(t, result.AffectedSource, "src/index.ts")
}

func TestPriorImportersInvertsOnlyResolvedEdges(t *testing.T) {
	nodes := []model.FileNode{
		{Path: "a.ts", Edges: []model.ImportEdge{
			resolvedEdge("b.ts"),
			{Target: "lodash", Status: model.StatusExternal},
			{Status: model.StatusUnresolved, Specifier: "./missing"},
		}},
	}
	out := priorImporters(nodes)
	require.Equal(t, []string{"a.ts"}, out["b.ts"])
	assert.Empty(t, out["lodash"])
}
