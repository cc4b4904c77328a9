// Package query wires the read path's components together in the one
// order spec.md's pipeline diagram requires: C2 parses, C3 plans against
// the catalog, C4 classifies every pattern's join strategy, C6 renders the
// classified plan to SQL. It is the single place both the HTTP service and
// the CLI's `query run` call, so the two surfaces never drift.
package query

import (
	"strings"

	"github.com/clickgraph/clickgraph/internal/analyzer"
	"github.com/clickgraph/clickgraph/internal/catalog"
	"github.com/clickgraph/clickgraph/internal/cypher"
	"github.com/clickgraph/clickgraph/internal/planner"
	"github.com/clickgraph/clickgraph/internal/render"
)

// Result is a compiled query: the rendered SQL plus the schema it was
// resolved against (the caller needs the schema name to report which
// catalog entry served the request, and its Roles/view-parameter
// declarations before forwarding to C7).
type Result struct {
	SQL    string
	Schema *catalog.GraphSchema
	// CTECount is a best-effort count of top-level CTE definitions in SQL,
	// for the telemetry histogram only — it counts occurrences of the
	// " AS (" sequence the renderer's emitWithList writes once per CTE,
	// not a parsed structural count, so SQL containing that sequence for
	// other reasons is over-counted.
	CTECount int
	// Fields describes each top-level RETURN item's output shape, letting
	// C9 regroup a bare node/relationship variable's id+property columns
	// into one PackStream Node/Relationship structure (spec §4.9).
	Fields []render.Field
}

// Compile parses, plans, classifies and renders src into one SQL statement.
// requestSchemaName is the request's schema_name field (spec §4.8's
// resolution priority — a `USE` clause inside src still wins over it).
// viewParams optionally supplies the request's bound parameterized-view
// values (spec §4.1's `{name:Type}` placeholders); a table declaring a
// view parameter with no corresponding entry fails compilation with
// cgerrors.MissingViewParameter rather than silently omitting it.
func Compile(cat *catalog.Catalog, src string, requestSchemaName string, params map[string]any, viewParams ...map[string]string) (*Result, error) {
	q, err := cypher.Parse(src)
	if err != nil {
		return nil, err
	}

	plan, err := planner.Plan(cat, q, requestSchemaName, params)
	if err != nil {
		return nil, err
	}

	for _, part := range plan.Parts {
		for _, clause := range part.Clauses {
			m, ok := clause.(*planner.MatchOp)
			if !ok {
				continue
			}
			for _, pattern := range m.Patterns {
				if err := analyzer.ClassifyPattern(pattern); err != nil {
					return nil, err
				}
			}
		}
	}

	var vp map[string]string
	if len(viewParams) > 0 {
		vp = viewParams[0]
	}
	sql, fields, err := render.Render(plan, vp)
	if err != nil {
		return nil, err
	}
	return &Result{SQL: sql, Schema: plan.Schema, CTECount: strings.Count(sql, " AS ("), Fields: fields}, nil
}
