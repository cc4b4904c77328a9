package render

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clickgraph/clickgraph/internal/catalog"
	"github.com/clickgraph/clickgraph/internal/cypher"
	"github.com/clickgraph/clickgraph/internal/planner"
)

var whitespaceRE = regexp.MustCompile(`\s+`)

// normalizeSQL is the whitespace-normalizing helper testable property 2
// relies on: SQL that differs only in spacing compares equal.
func normalizeSQL(s string) string {
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(s, " "))
}

func userDef() *catalog.NodeDefinition {
	return &catalog.NodeDefinition{
		Label: "User", Database: "social", Table: "users", NodeID: []string{"user_id"},
		PropertyMappings: map[string]string{"name": "name", "user_id": "user_id"},
	}
}

// TestRender_SimpleMatchReturn covers spec scenario S1:
// MATCH (u:User) WHERE u.user_id = 1 RETURN id(u) AS id
func TestRender_SimpleMatchReturn(t *testing.T) {
	ctx := &planner.PatternSchemaContext{
		Nodes: []*planner.PatternNodeRef{{Variable: "u", Label: "User", Def: userDef(), Access: planner.OwnTable}},
	}
	where := &cypher.BinaryExpr{
		Op:    "=",
		Left:  &cypher.PropertyAccess{Target: &cypher.Variable{Name: "u"}, Property: "user_id"},
		Right: &cypher.Literal{Value: int64(1)},
	}
	plan := &planner.LogicalPlan{
		Parts: []*planner.Part{{
			Clauses: []planner.Clause{&planner.MatchOp{Patterns: []*planner.PatternSchemaContext{ctx}, Where: where}},
			Return: &planner.ReturnOp{
				Items: []*cypher.ProjectionItem{{
					Expr:  &cypher.FunctionCall{Name: "id", Args: []cypher.Expr{&cypher.Variable{Name: "u"}}},
					Alias: "id",
				}},
				Aggregate: []bool{false},
			},
		}},
	}

	sql, _, err := Render(plan)
	require.NoError(t, err)
	norm := normalizeSQL(sql)
	assert.Contains(t, norm, "WITH pat_1 AS (SELECT")
	assert.Contains(t, norm, "FROM social.users AS t0")
	assert.Contains(t, norm, `AS "id"`)
	assert.Contains(t, norm, "WHERE")
	assert.Contains(t, norm, "= 1")
}

// TestRender_Deterministic covers testable property 2.
func TestRender_Deterministic(t *testing.T) {
	build := func() *planner.LogicalPlan {
		ctx := &planner.PatternSchemaContext{
			Nodes: []*planner.PatternNodeRef{{Variable: "u", Label: "User", Def: userDef(), Access: planner.OwnTable}},
		}
		return &planner.LogicalPlan{
			Parts: []*planner.Part{{
				Clauses: []planner.Clause{&planner.MatchOp{Patterns: []*planner.PatternSchemaContext{ctx}}},
				Return: &planner.ReturnOp{
					Items:     []*cypher.ProjectionItem{{Expr: &cypher.PropertyAccess{Target: &cypher.Variable{Name: "u"}, Property: "name"}, Alias: "name"}},
					Aggregate: []bool{false},
				},
			}},
		}
	}
	sql1, _, err := Render(build())
	require.NoError(t, err)
	sql2, _, err := Render(build())
	require.NoError(t, err)
	assert.Equal(t, normalizeSQL(sql1), normalizeSQL(sql2))
}

func TestRender_AggregateGeneratesGroupBy(t *testing.T) {
	ctx := &planner.PatternSchemaContext{
		Nodes: []*planner.PatternNodeRef{{Variable: "u", Label: "User", Def: userDef(), Access: planner.OwnTable}},
	}
	plan := &planner.LogicalPlan{
		Parts: []*planner.Part{{
			Clauses: []planner.Clause{&planner.MatchOp{Patterns: []*planner.PatternSchemaContext{ctx}}},
			Return: &planner.ReturnOp{
				Items: []*cypher.ProjectionItem{
					{Expr: &cypher.PropertyAccess{Target: &cypher.Variable{Name: "u"}, Property: "name"}, Alias: "name"},
					{Expr: &cypher.FunctionCall{Name: "count", Args: []cypher.Expr{&cypher.Variable{Name: "*"}}}, Alias: "n"},
				},
				Aggregate: []bool{false, true},
			},
		}},
	}
	sql, _, err := Render(plan)
	require.NoError(t, err)
	norm := normalizeSQL(sql)
	assert.Contains(t, norm, "count(*)")
	assert.Contains(t, norm, "GROUP BY")
}

func TestRender_PassThroughAndAggregateNamespaces(t *testing.T) {
	ctx := &planner.PatternSchemaContext{
		Nodes: []*planner.PatternNodeRef{{Variable: "u", Label: "User", Def: userDef(), Access: planner.OwnTable}},
	}
	plan := &planner.LogicalPlan{
		Parts: []*planner.Part{{
			Clauses: []planner.Clause{&planner.MatchOp{Patterns: []*planner.PatternSchemaContext{ctx}}},
			Return: &planner.ReturnOp{
				Items: []*cypher.ProjectionItem{
					{Expr: &cypher.FunctionCall{Name: "ch.toDate", Args: []cypher.Expr{&cypher.PropertyAccess{Target: &cypher.Variable{Name: "u"}, Property: "name"}}}, Alias: "d"},
					{Expr: &cypher.FunctionCall{Name: "chagg.quantile", Args: []cypher.Expr{&cypher.PropertyAccess{Target: &cypher.Variable{Name: "u"}, Property: "name"}}}, Alias: "q"},
				},
				Aggregate: []bool{false, true},
			},
		}},
	}
	sql, _, err := Render(plan)
	require.NoError(t, err)
	norm := normalizeSQL(sql)
	assert.Contains(t, norm, "toDate(")
	assert.Contains(t, norm, "quantile(")
	assert.Contains(t, norm, "GROUP BY")
}

func TestRender_UnionAll(t *testing.T) {
	part := func(alias string) *planner.Part {
		ctx := &planner.PatternSchemaContext{
			Nodes: []*planner.PatternNodeRef{{Variable: "u", Label: "User", Def: userDef(), Access: planner.OwnTable}},
		}
		return &planner.Part{
			Clauses: []planner.Clause{&planner.MatchOp{Patterns: []*planner.PatternSchemaContext{ctx}}},
			Return: &planner.ReturnOp{
				Items:     []*cypher.ProjectionItem{{Expr: &cypher.PropertyAccess{Target: &cypher.Variable{Name: "u"}, Property: "name"}, Alias: alias}},
				Aggregate: []bool{false},
			},
		}
	}
	plan := &planner.LogicalPlan{
		Parts:    []*planner.Part{part("name"), part("name")},
		UnionAll: []bool{true},
	}
	sql, _, err := Render(plan)
	require.NoError(t, err)
	assert.Contains(t, sql, "UNION ALL")
}
