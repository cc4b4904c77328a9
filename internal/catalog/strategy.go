package catalog

import (
	"fmt"
	"regexp"

	"github.com/clickgraph/clickgraph/internal/cgerrors"
)

// identifierPattern matches safe SQL/Cypher identifiers: this is the same
// rule the teacher's CypherBuilder used (internal/graph/cypher_builder.go)
// to keep raw strings out of generated queries. Every table/column name
// that reaches internal/render must have passed this check at catalog load
// time, so the renderer never needs to re-validate identifiers read from
// CteResult.columns.
var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// IsValidIdentifier reports whether s is safe to splice into generated SQL
// unquoted (a bare column, table or alias name).
func IsValidIdentifier(s string) bool {
	return s != "" && identifierPattern.MatchString(s)
}

// classifyStrategies computes EdgeAccessStrategy for every edge in the
// schema. Order of precedence, from spec §4.1:
//  1. multiple edges on the same table sharing a coupling node -> Coupled
//  2. from_node and to_node share a backing table that is also the edge's
//     own table (the FK column lives on the node row) -> FkEdge
//  3. from_node_properties or to_node_properties declared -> Denormalized
//  4. otherwise -> Standard
func classifyStrategies(schema *GraphSchema) {
	all := schema.AllEdges()

	classifyCoupling(schema, all)

	for _, e := range all {
		if e.Strategy == CoupledEdge {
			continue // already classified by classifyCoupling
		}
		fromTable, fromOK := tableOf(schema, e.FromNode)
		toTable, toOK := tableOf(schema, e.ToNode)
		switch {
		case fromOK && toOK && fromTable == toTable && e.Table == fromTable:
			e.Strategy = FkEdgeStrategy
		case e.EmbedsFrom() || e.EmbedsTo():
			e.Strategy = DenormalizedEdge
		default:
			e.Strategy = StandardEdge
		}
	}
}

func tableOf(schema *GraphSchema, label string) (string, bool) {
	n, ok := schema.NodeByLabel(label)
	if !ok {
		return "", false
	}
	return n.Table, true
}

// classifyCoupling finds pairs of edges sharing a backing table where one
// edge's to_node is the other's from_node (the coupling node), and tags
// both as CoupledEdge.
func classifyCoupling(schema *GraphSchema, all []*EdgeDefinition) {
	for i, a := range all {
		for j, b := range all {
			if i == j || a.Table != b.Table {
				continue
			}
			if a.ToNode == b.FromNode {
				a.Strategy = CoupledEdge
				a.CouplingWith = b.Type
				a.CouplingNode = a.ToNode
				b.Strategy = CoupledEdge
				b.CouplingWith = a.Type
				b.CouplingNode = a.ToNode
			}
		}
	}
}

// validateColumnReferences enforces the SchemaCatalog invariants from spec
// §3: identifiers must be safe to splice into SQL, and every edge's
// from_node/to_node must resolve within the same schema (already checked
// during parse in buildSchema; here we additionally check identifier
// safety for every table/column name that will ever reach the renderer).
func validateColumnReferences(schema *GraphSchema, report *cgerrors.Report) {
	for _, n := range schema.AllNodes() {
		checkIdent(report, "node", n.Label, "table", n.Table)
		for _, id := range n.NodeID {
			checkIdent(report, "node", n.Label, "node_id column", id)
		}
		for _, col := range n.PropertyMappings {
			checkIdent(report, "node", n.Label, "property column", col)
		}
	}
	for _, e := range schema.AllEdges() {
		checkIdent(report, "edge", e.Type, "table", e.Table)
		for _, id := range e.FromID {
			checkIdent(report, "edge", e.Type, "from_id column", id)
		}
		for _, id := range e.ToID {
			checkIdent(report, "edge", e.Type, "to_id column", id)
		}
		for _, id := range e.EdgeID {
			checkIdent(report, "edge", e.Type, "edge_id column", id)
		}
		for _, col := range e.PropertyMappings {
			checkIdent(report, "edge", e.Type, "property column", col)
		}
		for _, col := range e.FromNodeProperties {
			checkIdent(report, "edge", e.Type, "from_node_properties column", col)
		}
		for _, col := range e.ToNodeProperties {
			checkIdent(report, "edge", e.Type, "to_node_properties column", col)
		}
	}
}

func checkIdent(report *cgerrors.Report, entityKind, entityName, field, value string) {
	if !IsValidIdentifier(value) {
		report.Add(cgerrors.Newf(cgerrors.SyntaxError,
			"%s %q: %s %q is not a valid identifier", entityKind, entityName, field, value).
			WithContext("entity", entityName).WithContext("field", field))
	}
}

// VirtualEdgeID composes a deterministic, injection-safe column expression
// that uniquely identifies an edge row when the schema has no explicit
// edge_id (spec §4.5 "Edge-ID de-duplication"). It concatenates the from
// and to identity columns; used by internal/cte when building path arrays
// for variable-length paths.
func VirtualEdgeID(e *EdgeDefinition, alias string) string {
	if e.HasExplicitID() {
		return fmt.Sprintf("(%s)", joinQualified(alias, e.EdgeID))
	}
	cols := append(append([]string{}, e.FromID...), e.ToID...)
	return fmt.Sprintf("(%s)", joinQualified(alias, cols))
}

func joinQualified(alias string, cols []string) string {
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += alias + "." + c
	}
	return out
}
