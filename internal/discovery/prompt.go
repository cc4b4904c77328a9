package discovery

import (
	"context"
	"fmt"
	"strings"
)

// DiscoverPrompt introspects the requested tables and returns a prompt
// template a human can hand to an LLM of their choosing to get schema
// suggestions back. It never calls an LLM itself: ClickGraph has no
// dependency on any model SDK, and this endpoint is deliberately the
// full extent of its LLM-adjacency.
func (e *Engine) DiscoverPrompt(ctx context.Context, tables []string) (string, error) {
	introspected, err := e.Introspect(ctx, tables)
	if err != nil {
		return "", err
	}

	var schemaBlock strings.Builder
	for _, t := range introspected {
		fmt.Fprintf(&schemaBlock, "table %s:\n", t.Table)
		for _, c := range t.Columns {
			fmt.Fprintf(&schemaBlock, "  %s %s\n", c.Name, c.Type)
		}
		if len(t.PrimaryKeyCols) > 0 {
			fmt.Fprintf(&schemaBlock, "  primary key: %s\n", strings.Join(t.PrimaryKeyCols, ", "))
		}
	}

	return fmt.Sprintf(promptTemplate, schemaBlock.String()), nil
}

const promptTemplate = `You are designing a property-graph schema over an existing set of
columnar tables. Below is the live column list for each candidate table.

%s
For each table, decide whether it represents a graph node or a
relationship between two other nodes (a table with exactly two foreign
key columns and little else is usually a relationship). Then produce a
ClickGraph schema YAML with this shape:

name: <schema name>
version: 0.0.1
graph_schema:
  nodes:
    - label: <PascalCase label>
      table: <table name>
      node_id: <primary key column>
  relationships:
    - type: <UPPER_SNAKE_CASE relationship type>
      table: <table name>
      from_id: <column referencing the "from" node>
      to_id: <column referencing the "to" node>
      from_node: <label of the "from" node>
      to_node: <label of the "to" node>

Only use column and table names that appear above. Prefer singular,
PascalCase node labels and UPPER_SNAKE_CASE relationship types.`
