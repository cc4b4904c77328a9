package bolt

import (
	"regexp"
	"strings"

	"github.com/clickgraph/clickgraph/internal/catalog"
)

// procedureCall is a recognized built-in procedure invocation, parsed out
// of a RUN query's text without involving C2/C3 at all (spec §4.9:
// "Recognize a small set of procedures without invoking C5").
type procedureCall struct {
	name string
	args []string
}

var procedureCallPattern = regexp.MustCompile(`(?is)^\s*CALL\s+([a-zA-Z0-9_.]+)\s*\(([^)]*)\)\s*(?:YIELD[^;]*)?;?\s*$`)

// recognizeProcedure matches a RUN query's text against the fixed set of
// Bolt built-in procedures this server understands. Anything else falls
// through to the normal C2-C6 compile pipeline.
func recognizeProcedure(query string) (procedureCall, bool) {
	m := procedureCallPattern.FindStringSubmatch(strings.TrimSpace(query))
	if m == nil {
		return procedureCall{}, false
	}
	name := strings.ToLower(m[1])
	var args []string
	if raw := strings.TrimSpace(m[2]); raw != "" {
		for _, a := range strings.Split(raw, ",") {
			args = append(args, strings.Trim(strings.TrimSpace(a), `'"`))
		}
	}
	switch name {
	case "db.labels", "db.relationshiptypes", "db.propertykeys",
		"db.schema.nodetypeproperties", "db.schema.reltypeproperties",
		"dbms.components", "sys.set", "dbms.setconfigvalue", "pagerank":
		return procedureCall{name: name, args: args}, true
	default:
		return procedureCall{}, false
	}
}

// runProcedure executes a recognized built-in and returns its result in
// the same (fields, rows) shape a compiled-and-executed RUN would.
func (s *session) runProcedure(call procedureCall, schema *catalog.GraphSchema) (fields []string, rows [][]any, err error) {
	switch call.name {
	case "db.labels":
		fields = []string{"label"}
		for _, l := range schema.Labels() {
			rows = append(rows, []any{l})
		}
		return fields, rows, nil

	case "db.relationshiptypes":
		fields = []string{"relationshipType"}
		for _, t := range schema.RelationshipTypes() {
			rows = append(rows, []any{t})
		}
		return fields, rows, nil

	case "db.propertykeys":
		fields = []string{"propertyKey"}
		seen := make(map[string]bool)
		for _, n := range schema.AllNodes() {
			for prop := range n.PropertyMappings {
				if !seen[prop] {
					seen[prop] = true
					rows = append(rows, []any{prop})
				}
			}
		}
		for _, e := range schema.AllEdges() {
			for prop := range e.PropertyMappings {
				if !seen[prop] {
					seen[prop] = true
					rows = append(rows, []any{prop})
				}
			}
		}
		return fields, rows, nil

	case "db.schema.nodetypeproperties":
		fields = []string{"nodeLabels", "propertyName", "propertyTypes"}
		for _, n := range schema.AllNodes() {
			for prop := range n.PropertyMappings {
				rows = append(rows, []any{[]any{n.Label}, prop, []any{"String"}})
			}
		}
		return fields, rows, nil

	case "db.schema.reltypeproperties":
		fields = []string{"relType", "propertyName", "propertyTypes"}
		for _, e := range schema.AllEdges() {
			for prop := range e.PropertyMappings {
				rows = append(rows, []any{e.Type, prop, []any{"String"}})
			}
		}
		return fields, rows, nil

	case "dbms.components":
		fields = []string{"name", "versions", "edition"}
		rows = append(rows, []any{"ClickGraph", []any{"5.8.0"}, "community"})
		return fields, rows, nil

	case "sys.set", "dbms.setconfigvalue":
		if len(call.args) >= 2 {
			s.bag[call.args[0]] = call.args[1]
		}
		return []string{}, nil, nil

	case "pagerank":
		// Recognized and answered with its nodeId/score header and no rows;
		// nothing is sent to the backend and no score is computed.
		fields = []string{"nodeId", "score"}
		return fields, nil, nil

	default:
		return nil, nil, nil
	}
}
