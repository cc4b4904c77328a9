package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clickgraph/clickgraph/internal/cgerrors"
)

const standardSchemaYAML = `
name: social
version: "1"
default_schema: social
graph_schema:
  nodes:
    - label: User
      database: default
      table: users
      node_id: user_id
      property_mappings:
        user_id: user_id
        name: name
  relationships:
    - type: FOLLOWS
      database: default
      table: follows
      from_id: follower_id
      to_id: followee_id
      from_node: User
      to_node: User
`

const denormalizedSchemaYAML = `
name: airlines
version: "1"
graph_schema:
  nodes:
    - label: Airport
      database: default
      table: airports
      node_id: code
      property_mappings:
        code: code
        city: city
  edges:
    - type: FLIGHT
      database: default
      table: flights
      from_id: OriginCode
      to_id: DestCode
      from_node: Airport
      to_node: Airport
      from_node_properties:
        city: OriginCityName
      to_node_properties:
        city: DestCityName
`

func TestLoadYAML_RoundTrip(t *testing.T) {
	schema, err := LoadYAML([]byte(standardSchemaYAML))
	require.NoError(t, err)
	assert.Equal(t, "social", schema.Name)
	assert.True(t, schema.DefaultSchema)

	user, ok := schema.NodeByLabel("User")
	require.True(t, ok)
	assert.Equal(t, "users", user.Table)
	assert.Equal(t, []string{"user_id"}, user.NodeID)

	edges, ok := schema.EdgesByType("FOLLOWS")
	require.True(t, ok)
	require.Len(t, edges, 1)
	assert.Equal(t, StandardEdge, edges[0].Strategy)

	// Re-loading the same YAML content must yield an equivalent schema
	// (property 1). The catalog has no YAML serializer, so this checks
	// load-then-reload equivalence, not load-serialize-reload.
	schema2, err := LoadYAML([]byte(standardSchemaYAML))
	require.NoError(t, err)
	assert.Equal(t, schema.Name, schema2.Name)
	edges2, _ := schema2.EdgesByType("FOLLOWS")
	assert.Equal(t, edges[0].Table, edges2[0].Table)
	assert.Equal(t, edges[0].Strategy, edges2[0].Strategy)
}

func TestClassifyStrategies_FkEdge(t *testing.T) {
	schema, err := LoadYAML([]byte(standardSchemaYAML))
	require.NoError(t, err)
	edges, _ := schema.EdgesByType("FOLLOWS")
	// User->User on the edge table "follows" which is distinct from "users",
	// so this is Standard, not FkEdge (FkEdge requires the endpoints' node
	// tables to coincide *and* the edge to be declared on that same table).
	assert.Equal(t, StandardEdge, edges[0].Strategy)
}

func TestClassifyStrategies_Denormalized(t *testing.T) {
	schema, err := LoadYAML([]byte(denormalizedSchemaYAML))
	require.NoError(t, err)
	edges, _ := schema.EdgesByType("FLIGHT")
	require.Len(t, edges, 1)
	assert.Equal(t, DenormalizedEdge, edges[0].Strategy)
	assert.True(t, edges[0].EmbedsFrom())
	assert.True(t, edges[0].EmbedsTo())
}

func TestClassifyStrategies_Coupled(t *testing.T) {
	yaml := `
name: coupled
version: "1"
graph_schema:
  nodes:
    - label: IP
      table: ip_events
      node_id: ip
      property_mappings: { ip: ip }
    - label: Domain
      table: domain_events
      node_id: domain
      property_mappings: { domain: name }
    - label: ResolvedIP
      table: resolved_events
      node_id: ips
      property_mappings: { ips: ips }
  edges:
    - type: REQUESTED
      table: dns_log
      from_id: src_ip
      to_id: query
      from_node: IP
      to_node: Domain
    - type: RESOLVED_TO
      table: dns_log
      from_id: query
      to_id: answer
      from_node: Domain
      to_node: ResolvedIP
`
	schema, err := LoadYAML([]byte(yaml))
	require.NoError(t, err)
	requested, _ := schema.EdgesByType("REQUESTED")
	resolved, _ := schema.EdgesByType("RESOLVED_TO")
	assert.Equal(t, CoupledEdge, requested[0].Strategy)
	assert.Equal(t, CoupledEdge, resolved[0].Strategy)
	assert.Equal(t, "Domain", requested[0].CouplingNode)
}

func TestLoadYAML_CollectsAllErrors(t *testing.T) {
	bad := `
name: broken
graph_schema:
  nodes:
    - label: ""
      table: users
      node_id: user_id
    - label: User
      table: ""
      node_id: user_id
  edges:
    - type: FOLLOWS
      table: follows
      from_id: a
      to_id: b
      from_node: User
      to_node: Ghost
`
	_, err := LoadYAML([]byte(bad))
	require.Error(t, err)
	report, ok := err.(*cgerrors.Report)
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(report.Errors), 2)
}

func TestIsValidIdentifier(t *testing.T) {
	assert.True(t, IsValidIdentifier("user_id"))
	assert.True(t, IsValidIdentifier("_private"))
	assert.False(t, IsValidIdentifier(""))
	assert.False(t, IsValidIdentifier("1abc"))
	assert.False(t, IsValidIdentifier("user; DROP TABLE users"))
}
