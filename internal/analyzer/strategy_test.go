package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clickgraph/clickgraph/internal/catalog"
	"github.com/clickgraph/clickgraph/internal/planner"
)

func node(label string) *planner.PatternNodeRef {
	return &planner.PatternNodeRef{Variable: label, Label: label, Def: &catalog.NodeDefinition{Label: label}}
}

func ctxFor(strategy catalog.EdgeAccessStrategy, from, to string, embedsFrom, embedsTo bool) *planner.PatternSchemaContext {
	def := &catalog.EdgeDefinition{
		Type: "REL", FromNode: from, ToNode: to, Strategy: strategy,
	}
	if embedsFrom {
		def.FromNodeProperties = map[string]string{"x": "col_x"}
	}
	if embedsTo {
		def.ToNodeProperties = map[string]string{"y": "col_y"}
	}
	ctx := &planner.PatternSchemaContext{
		Nodes: []*planner.PatternNodeRef{node(from), node(to)},
		Rels: []*planner.PatternRelRef{
			{Variable: "r", Types: []string{"REL"}, Defs: []*catalog.EdgeDefinition{def}, FromIdx: 0, ToIdx: 1},
		},
	}
	return ctx
}

func TestClassifyPattern_Standard(t *testing.T) {
	ctx := ctxFor(catalog.StandardEdge, "A", "B", false, false)
	require.NoError(t, ClassifyPattern(ctx))
	assert.Equal(t, planner.Traditional, ctx.Rels[0].Strategy)
	assert.Equal(t, planner.OwnTable, ctx.Nodes[0].Access)
	assert.Equal(t, planner.OwnTable, ctx.Nodes[1].Access)
}

func TestClassifyPattern_DenormalizedBothEmbedded(t *testing.T) {
	ctx := ctxFor(catalog.DenormalizedEdge, "A", "B", true, true)
	require.NoError(t, ClassifyPattern(ctx))
	assert.Equal(t, planner.SingleTableScan, ctx.Rels[0].Strategy)
	assert.Equal(t, planner.EmbeddedInEdge, ctx.Nodes[0].Access)
	assert.Equal(t, planner.EmbeddedInEdge, ctx.Nodes[1].Access)
}

func TestClassifyPattern_DenormalizedMixed(t *testing.T) {
	ctx := ctxFor(catalog.DenormalizedEdge, "A", "B", true, false)
	require.NoError(t, ClassifyPattern(ctx))
	assert.Equal(t, planner.MixedAccess, ctx.Rels[0].Strategy)
	assert.Equal(t, planner.EmbeddedInEdge, ctx.Nodes[0].Access)
	assert.Equal(t, planner.OwnTable, ctx.Nodes[1].Access)
}

func TestClassifyPattern_FkEdge(t *testing.T) {
	ctx := ctxFor(catalog.FkEdgeStrategy, "User", "User", false, false)
	require.NoError(t, ClassifyPattern(ctx))
	assert.Equal(t, planner.FkEdge, ctx.Rels[0].Strategy)
	assert.Equal(t, planner.OwnTable, ctx.Nodes[0].Access)
}

func TestClassifyPattern_Coupled(t *testing.T) {
	ctx := ctxFor(catalog.CoupledEdge, "IP", "Domain", false, false)
	require.NoError(t, ClassifyPattern(ctx))
	assert.Equal(t, planner.Coupled, ctx.Rels[0].Strategy)
	assert.Equal(t, planner.EmbeddedInEdge, ctx.Nodes[0].Access)
	assert.Equal(t, planner.EmbeddedInEdge, ctx.Nodes[1].Access)
}

// TestClassifyPattern_Exhaustive covers testable property 4: every
// combination of edge access strategy resolves to a concrete JoinStrategy,
// never leaving it at planner.StrategyUnresolved.
func TestClassifyPattern_Exhaustive(t *testing.T) {
	combos := []struct {
		strategy           catalog.EdgeAccessStrategy
		embedsFrom, embedsTo bool
	}{
		{catalog.StandardEdge, false, false},
		{catalog.DenormalizedEdge, true, true},
		{catalog.DenormalizedEdge, true, false},
		{catalog.DenormalizedEdge, false, true},
		{catalog.FkEdgeStrategy, false, false},
		{catalog.CoupledEdge, false, false},
	}
	for _, c := range combos {
		ctx := ctxFor(c.strategy, "A", "B", c.embedsFrom, c.embedsTo)
		err := ClassifyPattern(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, planner.StrategyUnresolved, ctx.Rels[0].Strategy)
	}
}

func TestClassifyPattern_EdgeToEdgeChain(t *testing.T) {
	defAB := &catalog.EdgeDefinition{Type: "AB", FromNode: "A", ToNode: "B", Strategy: catalog.DenormalizedEdge,
		FromNodeProperties: map[string]string{"x": "x"}, ToNodeProperties: map[string]string{"y": "y"}}
	defBC := &catalog.EdgeDefinition{Type: "BC", FromNode: "B", ToNode: "C", Strategy: catalog.DenormalizedEdge,
		FromNodeProperties: map[string]string{"y": "y"}, ToNodeProperties: map[string]string{"z": "z"}}
	ctx := &planner.PatternSchemaContext{
		Nodes: []*planner.PatternNodeRef{node("A"), node("B"), node("C")},
		Rels: []*planner.PatternRelRef{
			{Variable: "r1", Defs: []*catalog.EdgeDefinition{defAB}, FromIdx: 0, ToIdx: 1},
			{Variable: "r2", Defs: []*catalog.EdgeDefinition{defBC}, FromIdx: 1, ToIdx: 2},
		},
	}
	require.NoError(t, ClassifyPattern(ctx))
	assert.Equal(t, planner.EdgeToEdge, ctx.Rels[0].Strategy)
	assert.Equal(t, planner.EdgeToEdge, ctx.Rels[1].Strategy)
}
