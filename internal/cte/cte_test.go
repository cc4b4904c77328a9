package cte

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clickgraph/clickgraph/internal/catalog"
	"github.com/clickgraph/clickgraph/internal/cypher"
	"github.com/clickgraph/clickgraph/internal/planner"
)

func userDef() *catalog.NodeDefinition {
	return &catalog.NodeDefinition{
		Label: "User", Database: "social", Table: "users", NodeID: []string{"user_id"},
		PropertyMappings: map[string]string{"name": "name"},
	}
}

func postDef() *catalog.NodeDefinition {
	return &catalog.NodeDefinition{
		Label: "Post", Database: "social", Table: "posts", NodeID: []string{"post_id"},
		PropertyMappings: map[string]string{"title": "title"},
	}
}

func followsDef() *catalog.EdgeDefinition {
	return &catalog.EdgeDefinition{
		Type: "FOLLOWS", Database: "social", Table: "follows",
		FromID: []string{"follower_id"}, ToID: []string{"followee_id"},
		FromNode: "User", ToNode: "User", Strategy: catalog.StandardEdge,
		PropertyMappings: map[string]string{"since": "since"},
	}
}

func traditionalCtx() *planner.PatternSchemaContext {
	a := &planner.PatternNodeRef{Variable: "a", Label: "User", Def: userDef(), Access: planner.OwnTable}
	b := &planner.PatternNodeRef{Variable: "b", Label: "User", Def: userDef(), Access: planner.OwnTable}
	rel := &planner.PatternRelRef{
		Variable: "r", Types: []string{"FOLLOWS"}, Defs: []*catalog.EdgeDefinition{followsDef()},
		FromIdx: 0, ToIdx: 1, Strategy: planner.Traditional,
	}
	return &planner.PatternSchemaContext{
		Nodes: []*planner.PatternNodeRef{a, b},
		Rels:  []*planner.PatternRelRef{rel},
	}
}

func TestBuildPattern_TraditionalSingleHop(t *testing.T) {
	ctx := traditionalCtx()
	b := NewBuilder()
	results, err := b.BuildPattern(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	aID, ok := r.Resolve("a", idPropertyKey)
	require.True(t, ok)
	bID, ok := r.Resolve("b", idPropertyKey)
	require.True(t, ok)
	assert.NotEqual(t, aID, bID)

	rSince, ok := r.Resolve("r", "since")
	require.True(t, ok)
	assert.Contains(t, r.SQL, rSince)
	assert.Contains(t, r.SQL, "JOIN social.follows")
	assert.Contains(t, r.SQL, "JOIN social.users")
}

// TestBuildPattern_Deterministic covers testable property 2: the same
// pattern built twice from fresh builders produces byte-identical SQL.
func TestBuildPattern_Deterministic(t *testing.T) {
	r1, err := NewBuilder().BuildPattern(traditionalCtx())
	require.NoError(t, err)
	r2, err := NewBuilder().BuildPattern(traditionalCtx())
	require.NoError(t, err)

	require.Len(t, r1, 1)
	require.Len(t, r2, 1)
	assert.Equal(t, r1[0].Name, r2[0].Name)
	assert.Equal(t, r1[0].SQL, r2[0].SQL)
}

// TestCteResult_Resolve_NoStringlyTypedCollision covers testable property 3:
// two (alias, property) pairs whose naive string concatenation would
// collide must still resolve to distinct columns because Resolve always
// matches on the structured (CypherAlias, Property) pair, never by
// re-parsing the rendered column name.
func TestCteResult_Resolve_NoStringlyTypedCollision(t *testing.T) {
	r := &CteResult{
		Columns: []ColumnMetadata{
			{CypherAlias: "a__b", Property: "c", Column: "col_1"},
			{CypherAlias: "a", Property: "b__c", Column: "col_2"},
		},
	}
	col1, ok := r.Resolve("a__b", "c")
	require.True(t, ok)
	assert.Equal(t, "col_1", col1)

	col2, ok := r.Resolve("a", "b__c")
	require.True(t, ok)
	assert.Equal(t, "col_2", col2)

	assert.NotEqual(t, col1, col2)

	_, ok = r.Resolve("a__b", "missing")
	assert.False(t, ok)
}

func varLengthRel(min int, hasMax bool, max int) *planner.PatternRelRef {
	return &planner.PatternRelRef{
		Variable: "r", Types: []string{"FOLLOWS"}, Defs: []*catalog.EdgeDefinition{followsDef()},
		FromIdx: 0, ToIdx: 1,
		VarLength: cypher.VarLength{Present: true, Min: min, Max: max, HasMax: hasMax},
	}
}

// TestBuildVariableLength_PathUniqueness covers testable property 5: the
// recursive step case must never extend a path back onto a node it has
// already visited.
func TestBuildVariableLength_PathUniqueness(t *testing.T) {
	a := &planner.PatternNodeRef{Variable: "a", Label: "User", Def: userDef()}
	c := &planner.PatternNodeRef{Variable: "c", Label: "User", Def: userDef()}
	rel := varLengthRel(1, true, 5)

	b := NewBuilder()
	result, err := b.buildVariableLength(rel, a, c)
	require.NoError(t, err)
	assert.True(t, result.Recursive)
	assert.Contains(t, result.SQL, "NOT has(")
	assert.Contains(t, result.SQL, "UNION ALL")
	assert.Contains(t, result.SQL, "< 5")

	_, ok := result.Resolve("a", idPropertyKey)
	assert.True(t, ok)
	_, ok = result.Resolve("c", idPropertyKey)
	assert.True(t, ok)
	_, ok = result.Resolve("r", hopCountProperty)
	assert.True(t, ok)
}

// TestWrapShortestPath_ModesDiffer covers testable property 6: shortestPath
// keeps exactly one row per endpoint pair (row_number filter) while
// allShortestPaths keeps every row tied for the minimum hop count (a
// correlated min-comparison, no row_number).
func TestWrapShortestPath_ModesDiffer(t *testing.T) {
	a := &planner.PatternNodeRef{Variable: "a", Label: "User", Def: userDef()}
	c := &planner.PatternNodeRef{Variable: "c", Label: "User", Def: userDef()}
	rel := varLengthRel(1, false, -1)

	b := NewBuilder()
	inner, err := b.buildVariableLength(rel, a, c)
	require.NoError(t, err)

	shortest, err := wrapShortestPath(b, inner, cypher.PathShortest)
	require.NoError(t, err)
	assert.Contains(t, shortest.SQL, "row_number()")
	assert.Contains(t, shortest.SQL, "rn = 1")

	all, err := wrapShortestPath(NewBuilder(), inner, cypher.PathAllShortest)
	require.NoError(t, err)
	assert.NotContains(t, all.SQL, "row_number()")
	assert.Contains(t, all.SQL, "min(")
}

func TestBuildPattern_BareNode(t *testing.T) {
	ctx := &planner.PatternSchemaContext{
		Nodes: []*planner.PatternNodeRef{{Variable: "u", Label: "User", Def: userDef(), Access: planner.OwnTable}},
	}
	results, err := NewBuilder().BuildPattern(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	col, ok := results[0].Resolve("u", idPropertyKey)
	require.True(t, ok)
	assert.Contains(t, results[0].SQL, col)
	assert.Contains(t, results[0].SQL, "social.users")
}

func TestBuildPattern_MultiHopChains(t *testing.T) {
	a := &planner.PatternNodeRef{Variable: "a", Label: "User", Def: userDef(), Access: planner.OwnTable}
	m := &planner.PatternNodeRef{Variable: "m", Label: "User", Def: userDef(), Access: planner.OwnTable}
	z := &planner.PatternNodeRef{Variable: "z", Label: "User", Def: userDef(), Access: planner.OwnTable}
	rel1 := &planner.PatternRelRef{Variable: "r1", Defs: []*catalog.EdgeDefinition{followsDef()}, FromIdx: 0, ToIdx: 1, Strategy: planner.Traditional}
	rel2 := &planner.PatternRelRef{Variable: "r2", Defs: []*catalog.EdgeDefinition{followsDef()}, FromIdx: 1, ToIdx: 2, Strategy: planner.Traditional}
	ctx := &planner.PatternSchemaContext{
		Nodes: []*planner.PatternNodeRef{a, m, z},
		Rels:  []*planner.PatternRelRef{rel1, rel2},
	}
	results, err := NewBuilder().BuildPattern(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, []string{results[0].Name}, results[1].DependsOn)
}
