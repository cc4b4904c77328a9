package cte

import (
	"fmt"
	"strings"

	"github.com/clickgraph/clickgraph/internal/catalog"
	"github.com/clickgraph/clickgraph/internal/cgerrors"
	"github.com/clickgraph/clickgraph/internal/planner"
)

// source describes where a hop reads its "from" endpoint: either a raw
// node table (the first hop in a pattern) or a prior hop's CTE (chaining a
// multi-hop static pattern), exposed uniformly so every strategy emitter
// below can stay strategy-focused instead of re-deriving this choice.
type source struct {
	table string // FROM target: a qualified table name, or a CTE name
	alias string
	idCols []string // columns to equate against the edge's from_id/to_id
	fromCTE *CteResult
}

func (b *Builder) nodeSource(prev *CteResult, hopAlias string, n *planner.PatternNodeRef) (source, error) {
	if prev != nil {
		return source{table: prev.Name, alias: hopAlias, idCols: []string{prev.mustColumn(n.Variable, idPropertyKey)}, fromCTE: prev}, nil
	}
	table, err := b.qualifiedNodeTable(n.Def)
	if err != nil {
		return source{}, err
	}
	return source{table: table, alias: hopAlias, idCols: n.Def.NodeID}, nil
}

// mustColumn is Resolve without the ok flag, used only where the caller has
// already established the column must exist (the shared node between two
// consecutive hops in the same pattern).
func (r *CteResult) mustColumn(cypherAlias, property string) string {
	col, _ := r.Resolve(cypherAlias, property)
	return col
}

func joinOn(leftAlias string, leftCols []string, rightAlias string, rightCols []string) string {
	parts := make([]string, len(leftCols))
	for i := range leftCols {
		rc := rightCols[0]
		if i < len(rightCols) {
			rc = rightCols[i]
		}
		parts[i] = fmt.Sprintf("%s.%s = %s.%s", leftAlias, leftCols[i], rightAlias, rc)
	}
	return strings.Join(parts, " AND ")
}

// nodeSelectColumns emits "alias.col AS out, ..." for every declared
// property of n, plus its identifier column, all keyed in the returned
// ColumnMetadata by n.Variable.
func nodeSelectColumns(alias string, n *planner.PatternNodeRef) (string, []ColumnMetadata) {
	var sb strings.Builder
	cols := []ColumnMetadata{{CypherAlias: n.Variable, Property: idPropertyKey, Column: outputColumn(n.Variable, idPropertyKey)}}
	fmt.Fprintf(&sb, "%s AS %s", idColumnExpr(alias, n.Def), outputColumn(n.Variable, idPropertyKey))
	for prop, col := range n.Def.PropertyMappings {
		cols = append(cols, ColumnMetadata{CypherAlias: n.Variable, Property: prop, Column: outputColumn(n.Variable, prop)})
		fmt.Fprintf(&sb, ", %s.%s AS %s", alias, col, outputColumn(n.Variable, prop))
	}
	return sb.String(), cols
}

// cteSelectColumns re-projects a prior CTE's own columns for a node that is
// actually backed by that prior CTE rather than a raw table (chained hops).
func cteSelectColumns(alias string, prevCTE *CteResult, variable string) (string, []ColumnMetadata) {
	var parts []string
	var cols []ColumnMetadata
	for _, c := range prevCTE.Columns {
		parts = append(parts, fmt.Sprintf("%s.%s AS %s", alias, c.Column, c.Column))
		cols = append(cols, ColumnMetadata{CypherAlias: c.CypherAlias, Property: c.Property, Column: c.Column})
	}
	_ = variable
	return strings.Join(parts, ", "), cols
}

func edgeSelectColumns(alias, variable string, def *catalog.EdgeDefinition) (string, []ColumnMetadata) {
	if variable == "" || def == nil {
		return "", nil
	}
	var sb strings.Builder
	var cols []ColumnMetadata
	first := true
	for prop, col := range def.PropertyMappings {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&sb, "%s.%s AS %s", alias, col, outputColumn(variable, prop))
		cols = append(cols, ColumnMetadata{CypherAlias: variable, Property: prop, Column: outputColumn(variable, prop)})
	}
	return sb.String(), cols
}

func appendSelect(sql, addition string) string {
	if addition == "" {
		return sql
	}
	return sql + ", " + addition
}

// buildSingleHop dispatches a single (non variable-length) relationship to
// its strategy-specific emitter. A pattern edge normally resolves to exactly
// one EdgeDefinition; a heterogeneous type list (e.g. [:LIKES|FOLLOWS]) can
// resolve to several, which buildPolymorphicHop handles by unioning one
// emission per definition instead of silently rendering only the first.
func (b *Builder) buildSingleHop(rel *planner.PatternRelRef, from, to *planner.PatternNodeRef, prev *CteResult) (*CteResult, error) {
	if len(rel.Defs) == 0 {
		return nil, cgerrors.New(cgerrors.Internal, "cte: relationship has no resolved edge definition")
	}
	if len(rel.Defs) == 1 {
		return b.buildSingleHopDef(rel, rel.Defs[0], from, to, prev)
	}
	return b.buildPolymorphicHop(rel, from, to, prev)
}

// buildSingleHopDef routes one resolved EdgeDefinition to its
// strategy-specific emitter. The strategy was already decided by C4; this
// function only renders it, never re-derives it — the switch below exists
// purely to route SQL shape, and still enumerates every JoinStrategy
// explicitly (spec §9's exhaustiveness requirement for strategy dispatch).
func (b *Builder) buildSingleHopDef(rel *planner.PatternRelRef, def *catalog.EdgeDefinition, from, to *planner.PatternNodeRef, prev *CteResult) (*CteResult, error) {
	switch rel.Strategy {
	case planner.Traditional:
		return b.emitTraditional(rel, def, from, to, prev)
	case planner.SingleTableScan:
		return b.emitSingleTableScan(rel, def, from, to, prev)
	case planner.FkEdge:
		return b.emitFkEdge(rel, def, from, to, prev)
	case planner.MixedAccess:
		return b.emitMixedAccess(rel, def, from, to, prev)
	case planner.Coupled:
		return b.emitCoupled(rel, def, from, to, prev)
	case planner.EdgeToEdge:
		return b.emitEdgeToEdge(rel, def, from, to, prev)
	default:
		return nil, cgerrors.Newf(cgerrors.UnsupportedFeature, "no CTE emitter for join strategy %v", rel.Strategy)
	}
}

// buildPolymorphicHop normalizes each backing EdgeDefinition of a
// heterogeneous relationship pattern to a common output column set and
// combines them with UNION ALL, so a pattern like [:LIKES|FOLLOWS] returns
// rows from every matching type instead of only the first. Columns one
// type's table doesn't carry (e.g. an edge property only FOLLOWS declares)
// are filled with NULL in the branches that lack them.
func (b *Builder) buildPolymorphicHop(rel *planner.PatternRelRef, from, to *planner.PatternNodeRef, prev *CteResult) (*CteResult, error) {
	strategy := rel.Defs[0].Strategy
	for _, def := range rel.Defs[1:] {
		if def.Strategy != strategy {
			return nil, cgerrors.Newf(cgerrors.UnsupportedFeature,
				"relationship %q spans types %v with differing backing strategies; cannot compile to one scan", rel.Variable, rel.Types)
		}
	}

	branches := make([]*CteResult, len(rel.Defs))
	for i, def := range rel.Defs {
		branch, err := b.buildSingleHopDef(rel, def, from, to, prev)
		if err != nil {
			return nil, err
		}
		branches[i] = branch
	}

	union := unionColumns(branches)
	parts := make([]string, len(branches))
	for i, branch := range branches {
		var sb strings.Builder
		sb.WriteString("SELECT ")
		for j, c := range union {
			if j > 0 {
				sb.WriteString(", ")
			}
			if col, ok := branch.Resolve(c.CypherAlias, c.Property); ok {
				fmt.Fprintf(&sb, "b.%s AS %s", col, c.Column)
			} else {
				fmt.Fprintf(&sb, "NULL AS %s", c.Column)
			}
		}
		fmt.Fprintf(&sb, " FROM (%s) AS b", branch.SQL)
		parts[i] = sb.String()
	}

	name := b.nextName("pat")
	result := &CteResult{Name: name, SQL: strings.Join(parts, " UNION ALL "), Columns: union}
	if prev != nil {
		result.DependsOn = []string{prev.Name}
	}
	return result, nil
}

// unionColumns merges branch column sets into one ordered, deduplicated
// list keyed by (CypherAlias, Property) — the common projection every
// polymorphic union branch normalizes to.
func unionColumns(branches []*CteResult) []ColumnMetadata {
	var union []ColumnMetadata
	seen := make(map[[2]string]bool)
	for _, branch := range branches {
		for _, c := range branch.Columns {
			key := [2]string{c.CypherAlias, c.Property}
			if seen[key] {
				continue
			}
			seen[key] = true
			union = append(union, c)
		}
	}
	return union
}

// emitTraditional: left JOIN edge JOIN right, each endpoint on its own table.
func (b *Builder) emitTraditional(rel *planner.PatternRelRef, def *catalog.EdgeDefinition, from, to *planner.PatternNodeRef, prev *CteResult) (*CteResult, error) {
	name := b.nextName("pat")
	left, err := b.nodeSource(prev, "l", from)
	if err != nil {
		return nil, err
	}
	edgeAlias, rightAlias := "e", "r"

	leftSelect, leftCols := selectForSource(left, from)
	rightSelect, rightCols := nodeSelectColumns(rightAlias, to)
	edgeSelect, edgeCols := edgeSelectColumns(edgeAlias, rel.Variable, def)

	rightTable, err := b.qualifiedNodeTable(to.Def)
	if err != nil {
		return nil, err
	}

	sql := fmt.Sprintf("SELECT %s", leftSelect)
	sql = appendSelect(sql, edgeSelect)
	sql = appendSelect(sql, rightSelect)
	sql += fmt.Sprintf(" FROM %s AS %s", left.table, left.alias)
	sql += fmt.Sprintf(" JOIN %s AS %s ON %s", qualifiedTable(def.Database, def.Table), edgeAlias,
		joinOn(left.alias, left.idCols, edgeAlias, def.FromID))
	sql += fmt.Sprintf(" JOIN %s AS %s ON %s", rightTable, rightAlias,
		joinOn(rightAlias, to.Def.NodeID, edgeAlias, def.ToID))

	cols := append(append(leftCols, edgeCols...), rightCols...)
	result := &CteResult{Name: name, SQL: sql, Columns: cols}
	if prev != nil {
		result.DependsOn = []string{prev.Name}
	}
	return result, nil
}

func selectForSource(s source, n *planner.PatternNodeRef) (string, []ColumnMetadata) {
	if s.fromCTE != nil {
		return cteSelectColumns(s.alias, s.fromCTE, n.Variable)
	}
	return nodeSelectColumns(s.alias, n)
}

// emitSingleTableScan: both endpoints embedded in the edge table; one scan,
// no joins.
func (b *Builder) emitSingleTableScan(rel *planner.PatternRelRef, def *catalog.EdgeDefinition, from, to *planner.PatternNodeRef, prev *CteResult) (*CteResult, error) {
	name := b.nextName("pat")
	alias := "e"

	cols := []ColumnMetadata{
		{CypherAlias: from.Variable, Property: idPropertyKey, Column: outputColumn(from.Variable, idPropertyKey)},
		{CypherAlias: to.Variable, Property: idPropertyKey, Column: outputColumn(to.Variable, idPropertyKey)},
	}
	selectList := fmt.Sprintf("%s AS %s, %s AS %s",
		joinQualifiedSingle(alias, def.FromID), outputColumn(from.Variable, idPropertyKey),
		joinQualifiedSingle(alias, def.ToID), outputColumn(to.Variable, idPropertyKey))

	for prop, col := range def.FromNodeProperties {
		cols = append(cols, ColumnMetadata{CypherAlias: from.Variable, Property: prop, Column: outputColumn(from.Variable, prop)})
		selectList += fmt.Sprintf(", %s.%s AS %s", alias, col, outputColumn(from.Variable, prop))
	}
	for prop, col := range def.ToNodeProperties {
		cols = append(cols, ColumnMetadata{CypherAlias: to.Variable, Property: prop, Column: outputColumn(to.Variable, prop)})
		selectList += fmt.Sprintf(", %s.%s AS %s", alias, col, outputColumn(to.Variable, prop))
	}
	if edgeSelect, edgeCols := edgeSelectColumns(alias, rel.Variable, def); edgeSelect != "" {
		selectList = appendSelect(selectList, edgeSelect)
		cols = append(cols, edgeCols...)
	}

	fromClause := fmt.Sprintf(" FROM %s AS %s", qualifiedTable(def.Database, def.Table), alias)
	result := &CteResult{Name: name, Columns: cols}
	if prev != nil {
		// The shared node between this hop and the previous one must match;
		// join onto the previous hop's CTE both to filter the scan to rows
		// continuing the chain and to carry its columns (earlier nodes and
		// relationships in the pattern) forward into this result, so the
		// last hop of a chain always exposes every variable bound so far.
		prevCol := prev.mustColumn(from.Variable, idPropertyKey)
		fromClause += fmt.Sprintf(" JOIN %s AS p ON %s.%s = p.%s", prev.Name, alias, joinQualifiedSingle("", def.FromID), prevCol)
		for _, c := range prev.Columns {
			selectList += fmt.Sprintf(", p.%s AS %s", c.Column, c.Column)
			result.Columns = append(result.Columns, c)
		}
		result.DependsOn = []string{prev.Name}
	}
	result.SQL = "SELECT " + selectList + fromClause
	return result, nil
}

func joinQualifiedSingle(alias string, cols []string) string {
	if len(cols) == 1 {
		if alias == "" {
			return cols[0]
		}
		return alias + "." + cols[0]
	}
	parts := make([]string, len(cols))
	for i, c := range cols {
		if alias == "" {
			parts[i] = c
		} else {
			parts[i] = alias + "." + c
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// emitFkEdge: self-join on the shared node table through the FK columns.
func (b *Builder) emitFkEdge(rel *planner.PatternRelRef, def *catalog.EdgeDefinition, from, to *planner.PatternNodeRef, prev *CteResult) (*CteResult, error) {
	name := b.nextName("pat")
	left, err := b.nodeSource(prev, "l", from)
	if err != nil {
		return nil, err
	}
	rightAlias := "r"

	leftSelect, leftCols := selectForSource(left, from)
	rightSelect, rightCols := nodeSelectColumns(rightAlias, to)
	edgeSelect, edgeCols := edgeSelectColumns("l", rel.Variable, def)

	rightTable, err := b.qualifiedNodeTable(to.Def)
	if err != nil {
		return nil, err
	}

	sql := fmt.Sprintf("SELECT %s", leftSelect)
	sql = appendSelect(sql, edgeSelect)
	sql = appendSelect(sql, rightSelect)
	sql += fmt.Sprintf(" FROM %s AS %s", left.table, left.alias)
	sql += fmt.Sprintf(" JOIN %s AS %s ON %s", rightTable, rightAlias,
		joinOn(left.alias, def.FromID, rightAlias, to.Def.NodeID))

	cols := append(append(leftCols, edgeCols...), rightCols...)
	result := &CteResult{Name: name, SQL: sql, Columns: cols}
	if prev != nil {
		result.DependsOn = []string{prev.Name}
	}
	return result, nil
}

// emitMixedAccess: one join between the embedded side's edge table and the
// other side's node table.
func (b *Builder) emitMixedAccess(rel *planner.PatternRelRef, def *catalog.EdgeDefinition, from, to *planner.PatternNodeRef, prev *CteResult) (*CteResult, error) {
	name := b.nextName("pat")
	alias := "e"

	var sql string
	cols := []ColumnMetadata{}

	if def.EmbedsFrom() {
		// from is embedded in the edge row; to requires a join.
		fromCols := []ColumnMetadata{{CypherAlias: from.Variable, Property: idPropertyKey, Column: outputColumn(from.Variable, idPropertyKey)}}
		sql = fmt.Sprintf("SELECT %s AS %s", joinQualifiedSingle(alias, def.FromID), outputColumn(from.Variable, idPropertyKey))
		for prop, col := range def.FromNodeProperties {
			fromCols = append(fromCols, ColumnMetadata{CypherAlias: from.Variable, Property: prop, Column: outputColumn(from.Variable, prop)})
			sql += fmt.Sprintf(", %s.%s AS %s", alias, col, outputColumn(from.Variable, prop))
		}
		toSelect, toCols := nodeSelectColumns("r", to)
		sql = appendSelect(sql, toSelect)
		if edgeSelect, edgeCols := edgeSelectColumns(alias, rel.Variable, def); edgeSelect != "" {
			sql = appendSelect(sql, edgeSelect)
			cols = append(cols, edgeCols...)
		}
		rightTable, err := b.qualifiedNodeTable(to.Def)
		if err != nil {
			return nil, err
		}
		sql += fmt.Sprintf(" FROM %s AS %s", qualifiedTable(def.Database, def.Table), alias)
		sql += fmt.Sprintf(" JOIN %s AS r ON %s", rightTable,
			joinOn(alias, def.ToID, "r", to.Def.NodeID))
		cols = append(append(fromCols, cols...), toCols...)
	} else {
		toCols := []ColumnMetadata{{CypherAlias: to.Variable, Property: idPropertyKey, Column: outputColumn(to.Variable, idPropertyKey)}}
		sql = fmt.Sprintf("SELECT %s AS %s", joinQualifiedSingle(alias, def.ToID), outputColumn(to.Variable, idPropertyKey))
		for prop, col := range def.ToNodeProperties {
			toCols = append(toCols, ColumnMetadata{CypherAlias: to.Variable, Property: prop, Column: outputColumn(to.Variable, prop)})
			sql += fmt.Sprintf(", %s.%s AS %s", alias, col, outputColumn(to.Variable, prop))
		}
		fromSelect, fromCols := nodeSelectColumns("l", from)
		sql = appendSelect(sql, fromSelect)
		if edgeSelect, edgeCols := edgeSelectColumns(alias, rel.Variable, def); edgeSelect != "" {
			sql = appendSelect(sql, edgeSelect)
			cols = append(cols, edgeCols...)
		}
		leftTable, err := b.qualifiedNodeTable(from.Def)
		if err != nil {
			return nil, err
		}
		sql += fmt.Sprintf(" FROM %s AS %s", qualifiedTable(def.Database, def.Table), alias)
		sql += fmt.Sprintf(" JOIN %s AS l ON %s", leftTable,
			joinOn(alias, def.FromID, "l", from.Def.NodeID))
		cols = append(append(fromCols, cols...), toCols...)
	}

	result := &CteResult{Name: name, SQL: sql, Columns: cols}
	if prev != nil {
		result.DependsOn = []string{prev.Name}
	}
	return result, nil
}

// emitCoupled handles a Coupled-strategy relationship whose sibling wasn't
// detected as part of a pair by BuildPattern (e.g. only one of the two
// coupled edge types appears in this pattern): both endpoints still live on
// one row of the shared table, so a plain single-table scan is correct.
// When both siblings are present in the same pattern, BuildPattern routes
// to emitCoupledPair instead so the two hops compile to one scan rather
// than a self-join.
func (b *Builder) emitCoupled(rel *planner.PatternRelRef, def *catalog.EdgeDefinition, from, to *planner.PatternNodeRef, prev *CteResult) (*CteResult, error) {
	return b.emitSingleTableScan(rel, def, from, to, prev)
}

// emitCoupledPair unifies two coupled edges sharing one backing table into
// a single scan: all three touched nodes (left, shared middle, right) are
// read straight off the same row instead of the table being scanned twice
// and joined against itself (spec §4.5 / scenario S5).
func (b *Builder) emitCoupledPair(relA, relB *planner.PatternRelRef, left, mid, right *planner.PatternNodeRef, prev *CteResult) (*CteResult, error) {
	defA, defB := relA.Defs[0], relB.Defs[0]
	name := b.nextName("pat")
	alias := "e"

	cols := []ColumnMetadata{
		{CypherAlias: left.Variable, Property: idPropertyKey, Column: outputColumn(left.Variable, idPropertyKey)},
		{CypherAlias: mid.Variable, Property: idPropertyKey, Column: outputColumn(mid.Variable, idPropertyKey)},
		{CypherAlias: right.Variable, Property: idPropertyKey, Column: outputColumn(right.Variable, idPropertyKey)},
	}
	selectList := fmt.Sprintf("%s AS %s, %s AS %s, %s AS %s",
		joinQualifiedSingle(alias, defA.FromID), outputColumn(left.Variable, idPropertyKey),
		joinQualifiedSingle(alias, defA.ToID), outputColumn(mid.Variable, idPropertyKey),
		joinQualifiedSingle(alias, defB.ToID), outputColumn(right.Variable, idPropertyKey))

	for prop, col := range defA.FromNodeProperties {
		cols = append(cols, ColumnMetadata{CypherAlias: left.Variable, Property: prop, Column: outputColumn(left.Variable, prop)})
		selectList += fmt.Sprintf(", %s.%s AS %s", alias, col, outputColumn(left.Variable, prop))
	}
	for prop, col := range defA.ToNodeProperties {
		cols = append(cols, ColumnMetadata{CypherAlias: mid.Variable, Property: prop, Column: outputColumn(mid.Variable, prop)})
		selectList += fmt.Sprintf(", %s.%s AS %s", alias, col, outputColumn(mid.Variable, prop))
	}
	for prop, col := range defB.ToNodeProperties {
		cols = append(cols, ColumnMetadata{CypherAlias: right.Variable, Property: prop, Column: outputColumn(right.Variable, prop)})
		selectList += fmt.Sprintf(", %s.%s AS %s", alias, col, outputColumn(right.Variable, prop))
	}
	if edgeSelect, edgeCols := edgeSelectColumns(alias, relA.Variable, defA); edgeSelect != "" {
		selectList = appendSelect(selectList, edgeSelect)
		cols = append(cols, edgeCols...)
	}
	if edgeSelect, edgeCols := edgeSelectColumns(alias, relB.Variable, defB); edgeSelect != "" {
		selectList = appendSelect(selectList, edgeSelect)
		cols = append(cols, edgeCols...)
	}

	fromClause := fmt.Sprintf(" FROM %s AS %s", qualifiedTable(defA.Database, defA.Table), alias)
	result := &CteResult{Name: name, Columns: cols}
	if prev != nil {
		prevCol := prev.mustColumn(left.Variable, idPropertyKey)
		fromClause += fmt.Sprintf(" JOIN %s AS p ON %s.%s = p.%s", prev.Name, alias, joinQualifiedSingle("", defA.FromID), prevCol)
		for _, c := range prev.Columns {
			selectList += fmt.Sprintf(", p.%s AS %s", c.Column, c.Column)
			result.Columns = append(result.Columns, c)
		}
		result.DependsOn = []string{prev.Name}
	}
	result.SQL = "SELECT " + selectList + fromClause
	return result, nil
}

// emitEdgeToEdge: a chain of same-table scans joined on the coupling
// column. Each hop is itself a single-table scan of its own edge row; the
// chain join happens naturally via the shared middle node when prev is set
// (buildPattern always calls this per-hop with prev = the previous hop's
// CteResult), so the rendering is identical to emitSingleTableScan's
// chained form.
func (b *Builder) emitEdgeToEdge(rel *planner.PatternRelRef, def *catalog.EdgeDefinition, from, to *planner.PatternNodeRef, prev *CteResult) (*CteResult, error) {
	return b.emitSingleTableScan(rel, def, from, to, prev)
}
