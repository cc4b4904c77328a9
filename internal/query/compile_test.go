package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clickgraph/clickgraph/internal/catalog"
)

const socialSchemaYAML = `
name: social
version: "1"
default_schema: true
graph_schema:
  nodes:
    - label: User
      database: social
      table: users
      node_id: user_id
      property_mappings:
        user_id: user_id
        name: name
  relationships:
    - type: FOLLOWS
      database: social
      table: follows
      from_id: follower_id
      to_id: followee_id
      from_node: User
      to_node: User
`

func newCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat := catalog.New()
	_, err := cat.LoadContentAndRegister([]byte(socialSchemaYAML))
	require.NoError(t, err)
	return cat
}

func TestCompile_SimpleMatchReturn(t *testing.T) {
	cat := newCatalog(t)
	result, err := Compile(cat, "MATCH (u:User) RETURN u.name AS name", "", nil)
	require.NoError(t, err)
	assert.Contains(t, result.SQL, "FROM social.users")
	assert.Equal(t, "social", result.Schema.Name)
}

func TestCompile_TraversalClassifiesAndRenders(t *testing.T) {
	cat := newCatalog(t)
	result, err := Compile(cat, "MATCH (a:User)-[:FOLLOWS]->(b:User) RETURN a.name AS follower, b.name AS followee", "", nil)
	require.NoError(t, err)
	assert.Contains(t, result.SQL, "FROM social.follows")
}

func TestCompile_ParseErrorPropagates(t *testing.T) {
	cat := newCatalog(t)
	_, err := Compile(cat, "NOT CYPHER AT ALL (((", "", nil)
	require.Error(t, err)
}

func TestCompile_UnknownSchemaPropagates(t *testing.T) {
	cat := newCatalog(t)
	_, err := Compile(cat, "MATCH (u:User) RETURN u.name AS name", "nonexistent", nil)
	require.Error(t, err)
}
