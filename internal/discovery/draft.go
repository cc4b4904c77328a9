package discovery

import (
	"context"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/clickgraph/clickgraph/internal/cgerrors"
)

// draftSchema mirrors the loadable YAML shape (spec §6) closely enough
// that a human can take Draft's output, tweak it, and feed it straight
// back into /schemas/load.
type draftSchema struct {
	Name        string           `yaml:"name"`
	Version     string           `yaml:"version"`
	GraphSchema draftGraphSchema `yaml:"graph_schema"`
}

type draftGraphSchema struct {
	Nodes         []draftNode `yaml:"nodes"`
	Relationships []draftEdge `yaml:"relationships"`
}

type draftNode struct {
	Label  string `yaml:"label"`
	Table  string `yaml:"table"`
	NodeID string `yaml:"node_id"`
}

type draftEdge struct {
	Type     string `yaml:"type"`
	Table    string `yaml:"table"`
	FromID   string `yaml:"from_id"`
	ToID     string `yaml:"to_id"`
	FromNode string `yaml:"from_node"`
	ToNode   string `yaml:"to_node"`
}

// Draft introspects every requested table and assembles a best-effort
// GraphSchema YAML from naming heuristics alone: a table whose only
// id-shaped columns are two distinct `*_id` references is drafted as a
// relationship, everything else as a node. The result is never
// registered against the catalog; a human reviews and edits it first.
func (e *Engine) Draft(ctx context.Context, tables []string) (*SchemaDraft, error) {
	introspected, err := e.Introspect(ctx, tables)
	if err != nil {
		return nil, err
	}

	draft := draftSchema{Name: "draft", Version: "0.0.1-draft"}
	for _, t := range introspected {
		idCols := idSuffixedColumns(t.Columns)
		if refs := foreignKeyRefs(t.Table, idCols); len(refs) == 2 {
			draft.GraphSchema.Relationships = append(draft.GraphSchema.Relationships, draftEdge{
				Type:     strings.ToUpper(singularize(t.Table)),
				Table:    t.Table,
				FromID:   refs[0].column,
				ToID:     refs[1].column,
				FromNode: titleCase(refs[0].referent),
				ToNode:   titleCase(refs[1].referent),
			})
			continue
		}
		draft.GraphSchema.Nodes = append(draft.GraphSchema.Nodes, draftNode{
			Label:  titleCase(singularize(t.Table)),
			Table:  t.Table,
			NodeID: primaryIDColumn(t),
		})
	}

	out, err := yaml.Marshal(draft)
	if err != nil {
		return nil, cgerrors.Wrap(err, cgerrors.Internal, "failed to marshal schema draft")
	}
	return &SchemaDraft{YAML: string(out)}, nil
}

type foreignKeyRef struct {
	column   string
	referent string
}

// idSuffixedColumns returns every column whose name ends in "_id", in
// column order; foreignKeyRefs drops the table's own "<table>_id" key.
func idSuffixedColumns(cols []ColumnInfo) []ColumnInfo {
	var out []ColumnInfo
	for _, c := range cols {
		if strings.HasSuffix(c.Name, "_id") {
			out = append(out, c)
		}
	}
	return out
}

// foreignKeyRefs treats a table as a join/relationship table when it has
// exactly two *_id columns besides the table's own "<table>_id" key.
func foreignKeyRefs(table string, idCols []ColumnInfo) []foreignKeyRef {
	own := singularize(table) + "_id"
	refs := make([]foreignKeyRef, 0, 2)
	for _, c := range idCols {
		if c.Name == own {
			continue
		}
		referent := strings.TrimSuffix(c.Name, "_id")
		refs = append(refs, foreignKeyRef{column: c.Name, referent: referent})
	}
	if len(refs) != 2 {
		return nil
	}
	return refs
}

func primaryIDColumn(t IntrospectedTable) string {
	if len(t.PrimaryKeyCols) > 0 {
		return t.PrimaryKeyCols[0]
	}
	singular := singularize(t.Table)
	for _, c := range t.Columns {
		if c.Name == "id" || c.Name == singular+"_id" {
			return c.Name
		}
	}
	return "id"
}

// singularize strips a trailing "s" or "es", the extent of the pluralization
// ClickGraph's own naming convention needs to guess at — anything
// irregular ("children", "people") is left for the human reviewing the
// draft to fix.
func singularize(table string) string {
	switch {
	case strings.HasSuffix(table, "ies"):
		return strings.TrimSuffix(table, "ies") + "y"
	case strings.HasSuffix(table, "ses"):
		return strings.TrimSuffix(table, "es")
	case strings.HasSuffix(table, "s"):
		return strings.TrimSuffix(table, "s")
	default:
		return table
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' })
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, "")
}
