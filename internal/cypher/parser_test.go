package cypher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clickgraph/clickgraph/internal/cgerrors"
)

func TestParse_SimpleMatchReturn(t *testing.T) {
	q, err := Parse(`MATCH (u:User) WHERE u.user_id = 1 RETURN id(u) AS id`)
	require.NoError(t, err)
	require.Len(t, q.Parts, 1)
	part := q.Parts[0]
	require.Len(t, part.Clauses, 1)

	match, ok := part.Clauses[0].(*MatchClause)
	require.True(t, ok)
	require.Len(t, match.Patterns, 1)
	require.Len(t, match.Patterns[0].Nodes, 1)
	assert.Equal(t, "u", match.Patterns[0].Nodes[0].Variable)
	assert.Equal(t, []string{"User"}, match.Patterns[0].Nodes[0].Labels)

	where, ok := match.Where.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "=", where.Op)
	prop, ok := where.Left.(*PropertyAccess)
	require.True(t, ok)
	assert.Equal(t, "user_id", prop.Property)
	lit, ok := where.Right.(*Literal)
	require.True(t, ok)
	assert.Equal(t, int64(1), lit.Value)

	require.NotNil(t, part.Return)
	require.Len(t, part.Return.Items, 1)
	item := part.Return.Items[0]
	assert.Equal(t, "id", item.Alias)
	fn, ok := item.Expr.(*FunctionCall)
	require.True(t, ok)
	assert.Equal(t, "id", fn.Name)
}

func TestParse_WriteClauseRejected(t *testing.T) {
	_, err := Parse(`CREATE (x:User) RETURN x`)
	require.Error(t, err)
	cgErr, ok := err.(*cgerrors.Error)
	require.True(t, ok)
	assert.Equal(t, cgerrors.WriteNotSupported, cgErr.Kind)
}

func TestParse_WriteClauseRejectedMidQuery(t *testing.T) {
	_, err := Parse(`MATCH (u:User) SET u.name = 'x' RETURN u`)
	require.Error(t, err)
	cgErr, ok := err.(*cgerrors.Error)
	require.True(t, ok)
	assert.Equal(t, cgerrors.WriteNotSupported, cgErr.Kind)
}

func TestParse_VariableLengthPaths(t *testing.T) {
	cases := []struct {
		query      string
		wantMin    int
		wantMax    int
		wantHasMax bool
	}{
		{`MATCH (a)-[*]-(b) RETURN a`, 1, -1, false},
		{`MATCH (a)-[*2]-(b) RETURN a`, 2, 2, true},
		{`MATCH (a)-[*1..2]-(b) RETURN a`, 1, 2, true},
	}
	for _, c := range cases {
		q, err := Parse(c.query)
		require.NoError(t, err, c.query)
		match := q.Parts[0].Clauses[0].(*MatchClause)
		rel := match.Patterns[0].Rels[0]
		assert.True(t, rel.VarLength.Present, c.query)
		assert.Equal(t, c.wantMin, rel.VarLength.Min, c.query)
		assert.Equal(t, c.wantMax, rel.VarLength.Max, c.query)
		assert.Equal(t, c.wantHasMax, rel.VarLength.HasMax, c.query)
	}
}

func TestParse_RelationshipDirectionAndTypes(t *testing.T) {
	q, err := Parse(`MATCH (a)-[:FOLLOWS|LIKES]->(b) RETURN a`)
	require.NoError(t, err)
	match := q.Parts[0].Clauses[0].(*MatchClause)
	rel := match.Patterns[0].Rels[0]
	assert.Equal(t, DirOutgoing, rel.Direction)
	assert.Equal(t, []string{"FOLLOWS", "LIKES"}, rel.Types)

	q2, err := Parse(`MATCH (a)<-[:FOLLOWS]-(b) RETURN a`)
	require.NoError(t, err)
	match2 := q2.Parts[0].Clauses[0].(*MatchClause)
	assert.Equal(t, DirIncoming, match2.Patterns[0].Rels[0].Direction)
}

func TestParse_WithAndUnwindChain(t *testing.T) {
	q, err := Parse(`MATCH (u:User) WITH u, u.name AS n UNWIND [1,2,3] AS x RETURN n, x ORDER BY n LIMIT 10`)
	require.NoError(t, err)
	part := q.Parts[0]
	require.Len(t, part.Clauses, 3)
	_, ok := part.Clauses[0].(*MatchClause)
	require.True(t, ok)
	with, ok := part.Clauses[1].(*WithClause)
	require.True(t, ok)
	require.Len(t, with.Items, 2)
	unwind, ok := part.Clauses[2].(*UnwindClause)
	require.True(t, ok)
	assert.Equal(t, "x", unwind.As)
	list, ok := unwind.Expr.(*ListLiteral)
	require.True(t, ok)
	assert.Len(t, list.Items, 3)
	require.NotNil(t, part.Return.Limit)
}

func TestParse_UnionAll(t *testing.T) {
	q, err := Parse(`MATCH (a:User) RETURN a.name AS name UNION ALL MATCH (b:Org) RETURN b.name AS name`)
	require.NoError(t, err)
	require.Len(t, q.Parts, 2)
	require.Len(t, q.UnionAll, 1)
	assert.True(t, q.UnionAll[0])
}

func TestParse_ShortestPath(t *testing.T) {
	q, err := Parse(`MATCH p = shortestPath((a:User)-[:FOLLOWS*..5]-(b:User)) RETURN p`)
	require.NoError(t, err)
	match := q.Parts[0].Clauses[0].(*MatchClause)
	assert.Equal(t, "p", match.Patterns[0].PathVar)
	item := q.Parts[0].Return.Items[0]
	patExpr, ok := item.Expr.(*Variable)
	require.True(t, ok)
	assert.Equal(t, "p", patExpr.Name)
}

func TestParse_CallProcedureYield(t *testing.T) {
	q, err := Parse(`CALL db.labels() YIELD label RETURN label`)
	require.NoError(t, err)
	call, ok := q.Parts[0].Clauses[0].(*CallClause)
	require.True(t, ok)
	assert.Equal(t, "db.labels", call.Procedure)
	assert.Equal(t, []string{"label"}, call.Yield)
}

func TestParse_UseClause(t *testing.T) {
	q, err := Parse(`USE social MATCH (u:User) RETURN u`)
	require.NoError(t, err)
	assert.Equal(t, "social", q.Use)
}

func TestParse_CaseExpression(t *testing.T) {
	q, err := Parse(`MATCH (u:User) RETURN CASE WHEN u.age < 18 THEN 'minor' ELSE 'adult' END AS bucket`)
	require.NoError(t, err)
	item := q.Parts[0].Return.Items[0]
	caseExpr, ok := item.Expr.(*CaseExpr)
	require.True(t, ok)
	assert.Nil(t, caseExpr.Test)
	require.Len(t, caseExpr.Whens, 1)
	require.NotNil(t, caseExpr.Else)
}

func TestParse_ListComprehension(t *testing.T) {
	q, err := Parse(`MATCH (u:User) RETURN [x IN u.tags WHERE x <> '' | x] AS tags`)
	require.NoError(t, err)
	item := q.Parts[0].Return.Items[0]
	lc, ok := item.Expr.(*ListComprehension)
	require.True(t, ok)
	assert.Equal(t, "x", lc.Variable)
	require.NotNil(t, lc.Where)
	require.NotNil(t, lc.Project)
}

func TestParse_CountDistinctAndStar(t *testing.T) {
	q, err := Parse(`MATCH (u:User) RETURN count(DISTINCT u.name) AS n, count(*) AS total`)
	require.NoError(t, err)
	first := q.Parts[0].Return.Items[0].Expr.(*FunctionCall)
	assert.True(t, first.Distinct)
	second := q.Parts[0].Return.Items[1].Expr.(*FunctionCall)
	require.Len(t, second.Args, 1)
	lit, ok := second.Args[0].(*Literal)
	require.True(t, ok)
	assert.Equal(t, "*", lit.Value)
}

func TestParse_InvalidSyntaxReportsPosition(t *testing.T) {
	_, err := Parse(`MATCH (u:User RETURN u`)
	require.Error(t, err)
	cgErr, ok := err.(*cgerrors.Error)
	require.True(t, ok)
	assert.Equal(t, cgerrors.SyntaxError, cgErr.Kind)
	assert.Contains(t, cgErr.Context, "line")
}
