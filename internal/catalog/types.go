// Package catalog implements the schema catalog (C1): it loads YAML graph
// schemas, indexes nodes and edges by label/type, classifies each edge's
// access strategy, and answers the table/column/property lookups every
// component above it in the pipeline depends on. No component below the
// planner may reach back into this package by global lookup — schema is
// threaded explicitly as a *GraphSchema or PatternSchemaContext instead.
package catalog

// NodeDefinition describes how a node label projects onto a backing table.
type NodeDefinition struct {
	Label  string
	Database string
	Table  string
	// NodeID holds one or more identifier columns; composite when len>1.
	NodeID []string
	// ViewParameters names parameterized-view tokens this table requires.
	ViewParameters []string
	// PropertyMappings maps a Cypher property name to its column.
	PropertyMappings map[string]string
}

// Column returns the backing column for a Cypher property name, and
// whether the mapping exists.
func (n *NodeDefinition) Column(property string) (string, bool) {
	c, ok := n.PropertyMappings[property]
	return c, ok
}

// IsIDColumn reports whether column is one of the node's identifier columns.
func (n *NodeDefinition) IsIDColumn(column string) bool {
	for _, c := range n.NodeID {
		if c == column {
			return true
		}
	}
	return false
}

// HasViewParameters reports whether this table is a parameterized view.
func (n *NodeDefinition) HasViewParameters() bool {
	return len(n.ViewParameters) > 0
}

// EdgeAccessStrategy classifies how an edge's backing table relates to its
// endpoint node tables. Computed once at catalog load time from the raw
// YAML definition; it is intrinsic to the edge, independent of any
// particular matched pattern (contrast with NodeAccessStrategy/JoinStrategy
// in package analyzer, which are computed per pattern).
type EdgeAccessStrategy int

const (
	// StandardEdge: from/to node properties both live in their own tables.
	StandardEdge EdgeAccessStrategy = iota
	// DenormalizedEdge: from_node_properties and/or to_node_properties are
	// declared, so the embedded endpoint(s) can be read straight off the
	// edge table without a join (one-sided embedding becomes MixedAccess in
	// package analyzer).
	DenormalizedEdge
	// FkEdgeStrategy: from_node and to_node share the same backing table
	// and the edge is declared on that table too (a self-referencing
	// relationship), so the edge is realized as a foreign-key self-join
	// rather than a separate edge table join.
	FkEdgeStrategy
	// CoupledEdge: this edge shares its backing table with another edge
	// in the same schema, and the two share a coupling node (this edge's
	// to_node is the other's from_node, or vice versa).
	CoupledEdge
)

func (s EdgeAccessStrategy) String() string {
	switch s {
	case StandardEdge:
		return "Standard"
	case DenormalizedEdge:
		return "Denormalized"
	case FkEdgeStrategy:
		return "FkEdge"
	case CoupledEdge:
		return "Coupled"
	default:
		return "Unknown"
	}
}

// EdgeDefinition describes how a relationship type projects onto a backing
// table, including any denormalized endpoint properties.
type EdgeDefinition struct {
	Type     string
	Database string
	Table    string
	FromID   []string
	ToID     []string
	FromNode string
	ToNode   string
	// EdgeID holds explicit identity columns; may be composite, and may be
	// absent (in which case a virtual identifier is composed from FromID+ToID
	// for use in variable-length path arrays — see VirtualEdgeID).
	EdgeID []string
	// FromNodeProperties/ToNodeProperties map Cypher property name to the
	// edge-table column holding that endpoint's denormalized property.
	FromNodeProperties map[string]string
	ToNodeProperties   map[string]string
	// PropertyMappings are the edge's own properties (not endpoint properties).
	PropertyMappings map[string]string

	// Strategy is computed by classifyStrategies at load time.
	Strategy EdgeAccessStrategy
	// CouplingWith names another edge type in the same schema this edge is
	// coupled with (set only when Strategy == CoupledEdge).
	CouplingWith string
	// CouplingNode is the shared node label at the coupling point.
	CouplingNode string
}

// Column returns the backing column for an edge's own property.
func (e *EdgeDefinition) Column(property string) (string, bool) {
	c, ok := e.PropertyMappings[property]
	return c, ok
}

// FromColumn returns the column holding a denormalized from-node property.
func (e *EdgeDefinition) FromColumn(property string) (string, bool) {
	c, ok := e.FromNodeProperties[property]
	return c, ok
}

// ToColumn returns the column holding a denormalized to-node property.
func (e *EdgeDefinition) ToColumn(property string) (string, bool) {
	c, ok := e.ToNodeProperties[property]
	return c, ok
}

// EmbedsFrom reports whether the from-node's properties are fully reachable
// without a join (i.e. the edge table declares from_node_properties).
func (e *EdgeDefinition) EmbedsFrom() bool {
	return len(e.FromNodeProperties) > 0
}

// EmbedsTo reports whether the to-node's properties are fully reachable
// without a join (i.e. the edge table declares to_node_properties).
func (e *EdgeDefinition) EmbedsTo() bool {
	return len(e.ToNodeProperties) > 0
}

// HasExplicitID reports whether the schema declared edge_id columns.
func (e *EdgeDefinition) HasExplicitID() bool {
	return len(e.EdgeID) > 0
}

// GraphSchema is an immutable (after load) collection of node and edge
// definitions for one named, versioned graph.
type GraphSchema struct {
	Name          string
	Version       string
	DefaultSchema bool

	nodesByLabel map[string]*NodeDefinition
	edgesByType  map[string][]*EdgeDefinition
}

// NodeByLabel looks up a node definition by Cypher label.
func (g *GraphSchema) NodeByLabel(label string) (*NodeDefinition, bool) {
	n, ok := g.nodesByLabel[label]
	return n, ok
}

// EdgesByType looks up all edge definitions for a relationship type. A type
// may resolve to more than one EdgeDefinition when the schema declares
// heterogeneous (polymorphic) backing tables for the same type.
func (g *GraphSchema) EdgesByType(relType string) ([]*EdgeDefinition, bool) {
	e, ok := g.edgesByType[relType]
	return e, ok
}

// Labels returns every node label in the schema, for Bolt's db.labels().
func (g *GraphSchema) Labels() []string {
	out := make([]string, 0, len(g.nodesByLabel))
	for l := range g.nodesByLabel {
		out = append(out, l)
	}
	return out
}

// RelationshipTypes returns every relationship type, for
// db.relationshipTypes().
func (g *GraphSchema) RelationshipTypes() []string {
	out := make([]string, 0, len(g.edgesByType))
	for t := range g.edgesByType {
		out = append(out, t)
	}
	return out
}

// NodesWithProperty returns labels whose property_mappings declare the
// given Cypher property name — used to resolve anonymous patterns (C3).
func (g *GraphSchema) NodesWithProperty(property string) []string {
	var out []string
	for label, n := range g.nodesByLabel {
		if _, ok := n.PropertyMappings[property]; ok {
			out = append(out, label)
		}
	}
	return out
}

// EdgeTypesWithProperty returns relationship types whose declared columns
// (own, or denormalized endpoint columns) include the given property name.
func (g *GraphSchema) EdgeTypesWithProperty(property string) []string {
	seen := make(map[string]bool)
	var out []string
	for relType, defs := range g.edgesByType {
		for _, e := range defs {
			_, own := e.PropertyMappings[property]
			_, from := e.FromNodeProperties[property]
			_, to := e.ToNodeProperties[property]
			if (own || from || to) && !seen[relType] {
				seen[relType] = true
				out = append(out, relType)
			}
		}
	}
	return out
}

// AllNodes returns every node definition, for schema-discovery endpoints.
func (g *GraphSchema) AllNodes() []*NodeDefinition {
	out := make([]*NodeDefinition, 0, len(g.nodesByLabel))
	for _, n := range g.nodesByLabel {
		out = append(out, n)
	}
	return out
}

// AllEdges returns every edge definition, for schema-discovery endpoints.
func (g *GraphSchema) AllEdges() []*EdgeDefinition {
	var out []*EdgeDefinition
	for _, defs := range g.edgesByType {
		out = append(out, defs...)
	}
	return out
}
