package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/clickgraph/clickgraph/internal/cgerrors"
)

// rawSchema mirrors the YAML shape declared in spec §6 exactly, including
// the `relationships`/`edges` synonym for the edge list.
type rawSchema struct {
	Name          string     `yaml:"name"`
	Version       string     `yaml:"version"`
	DefaultSchema string     `yaml:"default_schema"`
	GraphSchema   rawGraph   `yaml:"graph_schema"`
}

type rawGraph struct {
	Nodes         []rawNode `yaml:"nodes"`
	Relationships []rawEdge `yaml:"relationships"`
	Edges         []rawEdge `yaml:"edges"`
}

type rawNode struct {
	Label            string            `yaml:"label"`
	Database         string            `yaml:"database"`
	Table            string            `yaml:"table"`
	NodeID           rawStringOrList   `yaml:"node_id"`
	ViewParameters   []string          `yaml:"view_parameters"`
	PropertyMappings map[string]string `yaml:"property_mappings"`
}

type rawEdge struct {
	Type                string            `yaml:"type"`
	Database            string            `yaml:"database"`
	Table               string            `yaml:"table"`
	FromID              rawStringOrList   `yaml:"from_id"`
	ToID                rawStringOrList   `yaml:"to_id"`
	FromNode            string            `yaml:"from_node"`
	ToNode              string            `yaml:"to_node"`
	EdgeID              rawStringOrList   `yaml:"edge_id"`
	FromNodeProperties  map[string]string `yaml:"from_node_properties"`
	ToNodeProperties    map[string]string `yaml:"to_node_properties"`
	PropertyMappings    map[string]string `yaml:"property_mappings"`
}

// rawStringOrList decodes `node_id: foo` and `node_id: [foo, bar]` into the
// same []string, per spec §6's `<string | [string,...]>` grammar.
type rawStringOrList struct {
	values []string
}

func (r *rawStringOrList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		if s != "" {
			r.values = []string{s}
		}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		r.values = list
		return nil
	case 0:
		return nil
	default:
		return fmt.Errorf("expected scalar or sequence for identifier column, got kind %v", value.Kind)
	}
}

// LoadYAML parses raw schema YAML and returns a validated GraphSchema, or a
// *cgerrors.Report naming every validation problem found (never just the
// first one, per spec §7).
func LoadYAML(content []byte) (*GraphSchema, error) {
	var raw rawSchema
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return nil, cgerrors.Wrap(err, cgerrors.SyntaxError, "invalid schema YAML")
	}
	return buildSchema(&raw)
}

// LoadYAMLFile reads and parses a schema file from disk.
func LoadYAMLFile(path string) (*GraphSchema, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, cgerrors.Wrapf(err, cgerrors.Internal, "failed to read schema file %s", path)
	}
	return LoadYAML(content)
}

func buildSchema(raw *rawSchema) (*GraphSchema, error) {
	report := &cgerrors.Report{}

	if raw.Name == "" {
		report.Add(cgerrors.New(cgerrors.SyntaxError, "schema name is required"))
	}

	schema := &GraphSchema{
		Name:          raw.Name,
		Version:       raw.Version,
		DefaultSchema: raw.DefaultSchema != "" && raw.DefaultSchema == raw.Name,
		nodesByLabel:  make(map[string]*NodeDefinition),
		edgesByType:   make(map[string][]*EdgeDefinition),
	}

	for i, n := range raw.GraphSchema.Nodes {
		if n.Label == "" {
			report.Add(cgerrors.Newf(cgerrors.SyntaxError, "nodes[%d]: label is required", i))
			continue
		}
		if n.Table == "" {
			report.Add(cgerrors.Newf(cgerrors.SyntaxError, "node %q: table is required", n.Label))
			continue
		}
		if len(n.NodeID.values) == 0 {
			report.Add(cgerrors.Newf(cgerrors.SyntaxError, "node %q: node_id is required", n.Label))
			continue
		}
		if _, dup := schema.nodesByLabel[n.Label]; dup {
			report.Add(cgerrors.Newf(cgerrors.SyntaxError, "duplicate node label %q", n.Label))
			continue
		}
		props := n.PropertyMappings
		if props == nil {
			props = map[string]string{}
		}
		schema.nodesByLabel[n.Label] = &NodeDefinition{
			Label:            n.Label,
			Database:         n.Database,
			Table:            n.Table,
			NodeID:           n.NodeID.values,
			ViewParameters:   n.ViewParameters,
			PropertyMappings: props,
		}
	}

	// `relationships` and `edges` are synonyms for the same list (§4.1).
	edges := append(append([]rawEdge{}, raw.GraphSchema.Relationships...), raw.GraphSchema.Edges...)

	for i, e := range edges {
		if e.Type == "" {
			report.Add(cgerrors.Newf(cgerrors.SyntaxError, "edges[%d]: type is required", i))
			continue
		}
		if e.Table == "" {
			report.Add(cgerrors.Newf(cgerrors.SyntaxError, "edge %q: table is required", e.Type))
			continue
		}
		if len(e.FromID.values) == 0 || len(e.ToID.values) == 0 {
			report.Add(cgerrors.Newf(cgerrors.SyntaxError, "edge %q: from_id and to_id are required", e.Type))
			continue
		}
		if e.FromNode == "" || e.ToNode == "" {
			report.Add(cgerrors.Newf(cgerrors.SyntaxError, "edge %q: from_node and to_node are required", e.Type))
			continue
		}
		if _, ok := schema.nodesByLabel[e.FromNode]; !ok {
			report.Add(cgerrors.Newf(cgerrors.UnknownLabel, "edge %q: from_node %q has no NodeDefinition", e.Type, e.FromNode))
			continue
		}
		if _, ok := schema.nodesByLabel[e.ToNode]; !ok {
			report.Add(cgerrors.Newf(cgerrors.UnknownLabel, "edge %q: to_node %q has no NodeDefinition", e.Type, e.ToNode))
			continue
		}

		own := e.PropertyMappings
		if own == nil {
			own = map[string]string{}
		}
		def := &EdgeDefinition{
			Type:               e.Type,
			Database:           e.Database,
			Table:              e.Table,
			FromID:             e.FromID.values,
			ToID:               e.ToID.values,
			FromNode:           e.FromNode,
			ToNode:             e.ToNode,
			EdgeID:             e.EdgeID.values,
			FromNodeProperties: e.FromNodeProperties,
			ToNodeProperties:   e.ToNodeProperties,
			PropertyMappings:   own,
		}
		schema.edgesByType[e.Type] = append(schema.edgesByType[e.Type], def)
	}

	if report.HasErrors() {
		return nil, report
	}

	classifyStrategies(schema)
	validateColumnReferences(schema, report)

	if report.HasErrors() {
		return nil, report
	}

	return schema, nil
}
