package cte

import (
	"fmt"
	"strings"

	"github.com/clickgraph/clickgraph/internal/cgerrors"
	"github.com/clickgraph/clickgraph/internal/cypher"
	"github.com/clickgraph/clickgraph/internal/planner"
)

// buildVariableLength emits a self-contained recursive CTE for a
// `*min..max` relationship (spec §4.5): a base case of one direct hop, a
// step case extending an existing path by one more hop, and a selection
// filtering the accumulated rows down to [min, max] hops. Path uniqueness
// (never revisiting a node already on the path) is enforced by carrying an
// array of visited node ids and checking membership before extending,
// rather than relying on a hop-count bound alone — a cycle in the
// underlying edge table would otherwise produce an infinite number of
// same-length paths.
func (b *Builder) buildVariableLength(rel *planner.PatternRelRef, from, to *planner.PatternNodeRef) (*CteResult, error) {
	if len(rel.Defs) == 0 {
		return nil, cgerrors.New(cgerrors.Internal, "cte: variable-length relationship has no resolved edge definition")
	}
	def := rel.Defs[0]
	// Variable-length traversal only makes sense over an edge with its own
	// table to recurse across; embedded/coupled edges collapse the notion
	// of "a row of the edge table" into the node row itself, which this
	// emitter does not (yet) support.
	if def.EmbedsFrom() || def.EmbedsTo() {
		return nil, cgerrors.Newf(cgerrors.UnsupportedFeature,
			"variable-length traversal of denormalized edge %q is not supported", def.Type)
	}

	name := b.nextName("varlen")
	min := rel.VarLength.Min
	if min < 0 {
		min = 0
	}
	edgeTable := qualifiedTable(def.Database, def.Table)
	fromIDCol := joinQualifiedSingle("", def.FromID)
	toIDCol := joinQualifiedSingle("", def.ToID)

	pathVar := rel.Variable
	if pathVar == "" {
		pathVar = "__path"
	}

	startCol := outputColumn(from.Variable, idPropertyKey)
	endCol := outputColumn(to.Variable, idPropertyKey)
	hopsCol := outputColumn(pathVar, hopCountProperty)
	visitedCol := fmt.Sprintf("%s__visited", pathVar)

	base := fmt.Sprintf(
		"SELECT %s AS %s, %s AS %s, [%s, %s] AS %s, 1 AS %s FROM %s AS e",
		fromIDCol, startCol, toIDCol, endCol, fromIDCol, toIDCol, visitedCol, hopsCol, edgeTable)

	// *0..N patterns must also match a node against itself with zero hops
	// traversed; the recursive union's anchor above only ever starts at
	// hops=1, so without this branch hops can never actually reach 0.
	var zeroHop string
	if rel.VarLength.Min == 0 {
		fromTable, err := b.qualifiedNodeTable(from.Def)
		if err != nil {
			return nil, err
		}
		startExpr := idColumnExpr("z", from.Def)
		zeroHop = fmt.Sprintf(
			"SELECT %s AS %s, %s AS %s, [] AS %s, 0 AS %s FROM %s AS z",
			startExpr, startCol, startExpr, endCol, visitedCol, hopsCol, fromTable)
	}

	step := fmt.Sprintf(
		"SELECT p.%s AS %s, e.%s AS %s, arrayPushBack(p.%s, e.%s) AS %s, p.%s + 1 AS %s"+
			" FROM %s AS p JOIN %s AS e ON p.%s = e.%s"+
			" WHERE NOT has(p.%s, e.%s)",
		startCol, startCol, toIDCol, endCol, visitedCol, toIDCol, visitedCol, hopsCol, hopsCol,
		name, edgeTable, endCol, fromIDCol,
		visitedCol, toIDCol)
	if rel.VarLength.HasMax {
		step += fmt.Sprintf(" AND p.%s < %d", hopsCol, rel.VarLength.Max)
	}

	branches := []string{base, step}
	if zeroHop != "" {
		branches = []string{zeroHop, base, step}
	}
	sql := fmt.Sprintf("SELECT %s, %s, %s, %s FROM (%s) AS %s", startCol, endCol, visitedCol, hopsCol, strings.Join(branches, " UNION ALL "), name)
	if min > 1 || rel.VarLength.HasMax {
		sql += " WHERE "
		clauses := 0
		if min > 1 {
			sql += fmt.Sprintf("%s >= %d", hopsCol, min)
			clauses++
		}
		if rel.VarLength.HasMax {
			if clauses > 0 {
				sql += " AND "
			}
			sql += fmt.Sprintf("%s <= %d", hopsCol, rel.VarLength.Max)
		}
	}

	cols := []ColumnMetadata{
		{CypherAlias: from.Variable, Property: idPropertyKey, Column: startCol},
		{CypherAlias: to.Variable, Property: idPropertyKey, Column: endCol},
		{CypherAlias: pathVar, Property: hopCountProperty, Column: hopsCol},
		// nodes(p) over a variable-length path resolves directly to the
		// visited-id array the recursive union already carries; there is no
		// equivalent materialized edge-id array, so relationships(p) over a
		// variable-length path has no column to resolve against (rejected
		// explicitly by the renderer rather than mishandled).
		{CypherAlias: pathVar, Property: pathNodesProperty, Column: visitedCol},
	}
	return &CteResult{Name: name, SQL: sql, Columns: cols, Recursive: true}, nil
}

// wrapShortestPath renders the final ranking wrapper distinguishing
// shortestPath() (exactly one result per endpoint pair, the minimum hop
// count; row_number orders by hop count only, so which of several tied
// paths is kept is not defined) from
// allShortestPaths() (every path tied for the minimum hop count, no
// arbitrary tie-break). Both read the hop-count and endpoint-id columns
// off prev via its ColumnMetadata contract rather than assuming prev is a
// buildVariableLength result with known internal names.
func wrapShortestPath(b *Builder, prev *CteResult, mode cypher.PathMode) (*CteResult, error) {
	if prev == nil {
		return nil, cgerrors.New(cgerrors.Internal, "cte: shortestPath wrapper has no inner pattern result")
	}
	hopsAlias, hopsCol := findByProperty(prev, hopCountProperty)
	if hopsCol == "" {
		return nil, cgerrors.New(cgerrors.Internal, "cte: shortestPath wrapper requires a variable-length hop-count column")
	}
	_ = hopsAlias

	startAlias, startCol := firstEndpoint(prev, hopsAlias)
	endAlias, endCol := secondEndpoint(prev, hopsAlias, startAlias)
	if startCol == "" || endCol == "" {
		return nil, cgerrors.New(cgerrors.Internal, "cte: shortestPath wrapper could not identify path endpoints")
	}

	name := b.nextName("sp")
	var sql string
	switch mode {
	case cypher.PathShortest:
		sql = fmt.Sprintf(
			"SELECT %s, %s, %s FROM (SELECT *, row_number() OVER (PARTITION BY %s, %s ORDER BY %s) AS rn FROM %s) WHERE rn = 1",
			startCol, endCol, hopsCol, startCol, endCol, hopsCol, prev.Name)
	case cypher.PathAllShortest:
		sql = fmt.Sprintf(
			"SELECT %s, %s, %s FROM %s WHERE %s = (SELECT min(%s) FROM %s AS m WHERE m.%s = %s.%s AND m.%s = %s.%s)",
			startCol, endCol, hopsCol, prev.Name, hopsCol, hopsCol, prev.Name,
			startCol, prev.Name, startCol, endCol, prev.Name, endCol)
	default:
		return nil, cgerrors.Newf(cgerrors.Internal, "cte: unsupported path mode %v for shortestPath wrapper", mode)
	}

	cols := []ColumnMetadata{}
	for _, c := range prev.Columns {
		if c.Column == startCol || c.Column == endCol || c.Column == hopsCol {
			cols = append(cols, c)
		}
	}
	return &CteResult{Name: name, SQL: sql, Columns: cols, DependsOn: []string{prev.Name}}, nil
}

func findByProperty(r *CteResult, property string) (alias, column string) {
	for _, c := range r.Columns {
		if c.Property == property {
			return c.CypherAlias, c.Column
		}
	}
	return "", ""
}

func firstEndpoint(r *CteResult, excludeAlias string) (alias, column string) {
	for _, c := range r.Columns {
		if c.Property == idPropertyKey && c.CypherAlias != excludeAlias {
			return c.CypherAlias, c.Column
		}
	}
	return "", ""
}

func secondEndpoint(r *CteResult, excludeAlias, firstAlias string) (alias, column string) {
	for _, c := range r.Columns {
		if c.Property == idPropertyKey && c.CypherAlias != excludeAlias && c.CypherAlias != firstAlias {
			return c.CypherAlias, c.Column
		}
	}
	return "", ""
}
