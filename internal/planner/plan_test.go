package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clickgraph/clickgraph/internal/catalog"
	"github.com/clickgraph/clickgraph/internal/cgerrors"
	"github.com/clickgraph/clickgraph/internal/cypher"
)

const socialSchemaYAML = `
name: social
version: "1"
default_schema: social
graph_schema:
  nodes:
    - label: User
      table: users
      node_id: user_id
      property_mappings:
        user_id: user_id
        name: name
  relationships:
    - type: FOLLOWS
      table: follows
      from_id: follower_id
      to_id: followee_id
      from_node: User
      to_node: User
`

func newCatalogWith(t *testing.T, yaml string) *catalog.Catalog {
	t.Helper()
	cat := catalog.New()
	_, err := cat.LoadContentAndRegister([]byte(yaml))
	require.NoError(t, err)
	return cat
}

func TestPlan_SimpleMatchReturn(t *testing.T) {
	cat := newCatalogWith(t, socialSchemaYAML)
	q, err := cypher.Parse(`MATCH (u:User) WHERE u.user_id = 1 RETURN id(u) AS id`)
	require.NoError(t, err)

	plan, err := Plan(cat, q, "", nil)
	require.NoError(t, err)
	require.Len(t, plan.Parts, 1)

	match, ok := plan.Parts[0].Clauses[0].(*MatchOp)
	require.True(t, ok)
	require.Len(t, match.Patterns, 1)
	node := match.Patterns[0].Nodes[0]
	assert.Equal(t, "User", node.Label)
	require.NotNil(t, node.Def)
	assert.Equal(t, "users", node.Def.Table)
}

func TestPlan_UnknownLabel(t *testing.T) {
	cat := newCatalogWith(t, socialSchemaYAML)
	q, err := cypher.Parse(`MATCH (u:Ghost) RETURN u`)
	require.NoError(t, err)
	_, err = Plan(cat, q, "", nil)
	require.Error(t, err)
	assert.Equal(t, cgerrors.UnknownLabel, err.(*cgerrors.Error).Kind)
}

func TestPlan_UnknownRelType(t *testing.T) {
	cat := newCatalogWith(t, socialSchemaYAML)
	q, err := cypher.Parse(`MATCH (u:User)-[:GHOST_REL]->(v:User) RETURN u`)
	require.NoError(t, err)
	_, err = Plan(cat, q, "", nil)
	require.Error(t, err)
	assert.Equal(t, cgerrors.UnknownRelType, err.(*cgerrors.Error).Kind)
}

func TestPlan_AnonymousEndpointResolvedByEdge(t *testing.T) {
	cat := newCatalogWith(t, socialSchemaYAML)
	q, err := cypher.Parse(`MATCH (u:User)-[:FOLLOWS]->(v) RETURN v`)
	require.NoError(t, err)
	plan, err := Plan(cat, q, "", nil)
	require.NoError(t, err)
	match := plan.Parts[0].Clauses[0].(*MatchOp)
	v := match.Patterns[0].Nodes[1]
	assert.Equal(t, "User", v.Label)
}

func TestPlan_ParamSubstitution(t *testing.T) {
	cat := newCatalogWith(t, socialSchemaYAML)
	q, err := cypher.Parse(`MATCH (u:User) WHERE u.user_id = $id RETURN u.name`)
	require.NoError(t, err)
	plan, err := Plan(cat, q, "", map[string]any{"id": int64(7)})
	require.NoError(t, err)
	match := plan.Parts[0].Clauses[0].(*MatchOp)
	where := match.Where.(*cypher.BinaryExpr)
	lit, ok := where.Right.(*cypher.Literal)
	require.True(t, ok)
	assert.Equal(t, int64(7), lit.Value)
}

func TestPlan_MissingParamIsSyntaxError(t *testing.T) {
	cat := newCatalogWith(t, socialSchemaYAML)
	q, err := cypher.Parse(`MATCH (u:User) WHERE u.user_id = $id RETURN u`)
	require.NoError(t, err)
	_, err = Plan(cat, q, "", nil)
	require.Error(t, err)
	assert.Equal(t, cgerrors.SyntaxError, err.(*cgerrors.Error).Kind)
}

func TestPlan_AggregateMarking(t *testing.T) {
	cat := newCatalogWith(t, socialSchemaYAML)
	q, err := cypher.Parse(`MATCH (u:User) RETURN u.name AS name, count(*) AS n`)
	require.NoError(t, err)
	plan, err := Plan(cat, q, "", nil)
	require.NoError(t, err)
	ret := plan.Parts[0].Return
	require.Len(t, ret.Aggregate, 2)
	assert.False(t, ret.Aggregate[0])
	assert.True(t, ret.Aggregate[1])
}

func TestPlan_AmbiguousPatternOverFourCandidates(t *testing.T) {
	yaml := `
name: many
version: "1"
graph_schema:
  nodes:
    - {label: A, table: a, node_id: id, property_mappings: {tag: tag}}
    - {label: B, table: b, node_id: id, property_mappings: {tag: tag}}
    - {label: C, table: c, node_id: id, property_mappings: {tag: tag}}
    - {label: D, table: d, node_id: id, property_mappings: {tag: tag}}
    - {label: E, table: e, node_id: id, property_mappings: {tag: tag}}
`
	cat := newCatalogWith(t, yaml)
	q, err := cypher.Parse(`MATCH (n {tag: 'x'}) RETURN n`)
	require.NoError(t, err)
	_, err = Plan(cat, q, "", nil)
	require.Error(t, err)
	assert.Equal(t, cgerrors.AmbiguousPattern, err.(*cgerrors.Error).Kind)
}

func TestPlan_UseClauseSelectsSchema(t *testing.T) {
	cat := newCatalogWith(t, socialSchemaYAML)
	otherYAML := `
name: other
version: "1"
graph_schema:
  nodes:
    - label: Thing
      table: things
      node_id: id
      property_mappings: {id: id}
`
	_, err := cat.LoadContentAndRegister([]byte(otherYAML))
	require.NoError(t, err)

	q, err := cypher.Parse(`USE other MATCH (t:Thing) RETURN t`)
	require.NoError(t, err)
	plan, err := Plan(cat, q, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "other", plan.Schema.Name)
}
