package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/clickgraph/clickgraph/internal/cgerrors"
	"github.com/clickgraph/clickgraph/internal/cte"
	"github.com/clickgraph/clickgraph/internal/cypher"
	"github.com/clickgraph/clickgraph/internal/planner"
)

// valuePropertyKey is the reserved property a scalar (non-node, non-edge)
// binding is exposed under — a WITH projection alias, an UNWIND target, or
// a comprehension result carried forward as a plain value rather than an
// entity with its own id.
const valuePropertyKey = "__value"

// FieldKind classifies one RETURN item for C9's record encoding: a bare
// node or relationship variable needs the 5.x extended wire form (spec
// §4.9), everything else is a plain scalar column.
type FieldKind int

const (
	FieldScalar FieldKind = iota
	FieldNode
	FieldRelationship
)

// Field describes one RETURN item's output shape. For FieldScalar, Column
// is the item's own SQL output column and PropColumns is empty. For
// FieldNode/FieldRelationship, IDColumn and PropColumns name the backing
// SQL columns C9 must regroup into one PackStream Node/Relationship
// structure; Label is the node's label or the relationship's type.
// StartIDColumn/EndIDColumn are set only for FieldRelationship, naming the
// endpoint nodes' own id columns (a Bolt Relationship structure's wire form
// requires both, unlike a Node structure).
type Field struct {
	Name          string
	Kind          FieldKind
	Label         string
	Column        string
	IDColumn      string
	StartIDColumn string
	EndIDColumn   string
	StartLabel    string
	EndLabel      string
	PropColumns   map[string]string // property name -> SQL output column
}

// Render composes a complete LogicalPlan into one SQL statement: every
// Part becomes one SELECT (with its own WITH-list of CTEs), and multiple
// Parts are combined with UNION/UNION ALL per plan.UnionAll (spec §4.6.7).
// viewParams optionally supplies the request's bound parameterized-view
// values, threaded down to the CTE builder for every pattern it renders.
func Render(plan *planner.LogicalPlan, viewParams ...map[string]string) (string, []Field, error) {
	if len(plan.Parts) == 0 {
		return "", nil, cgerrors.New(cgerrors.Internal, "render: logical plan has no parts")
	}
	var vp map[string]string
	if len(viewParams) > 0 {
		vp = viewParams[0]
	}
	selects := make([]string, len(plan.Parts))
	var fields []Field
	for i, part := range plan.Parts {
		sql, partFields, err := renderPart(part, vp)
		if err != nil {
			return "", nil, fmt.Errorf("part %d: %w", i, err)
		}
		selects[i] = sql
		if i == 0 {
			fields = partFields
		}
	}
	if len(selects) == 1 {
		return selects[0], fields, nil
	}
	var sb strings.Builder
	sb.WriteString(selects[0])
	for i := 1; i < len(selects); i++ {
		if i-1 < len(plan.UnionAll) && plan.UnionAll[i-1] {
			sb.WriteString(" UNION ALL ")
		} else {
			sb.WriteString(" UNION ")
		}
		sb.WriteString(selects[i])
	}
	return sb.String(), fields, nil
}

type partRenderer struct {
	s            *scope
	staticLabels map[string]string
	entityKind   map[string]FieldKind
	pathElems    map[string]*pathElemInfo
	relEndpoints map[string][2]string // relationship variable -> [fromVar, toVar]
	synth        int
	where        cypher.Expr
	viewParams   map[string]string
}

func (p *partRenderer) nextSynthName(prefix string) string {
	p.synth++
	return fmt.Sprintf("%s_%d", prefix, p.synth)
}

func renderPart(part *planner.Part, viewParams map[string]string) (string, []Field, error) {
	p := &partRenderer{
		s:            newScope(),
		staticLabels: map[string]string{},
		entityKind:   map[string]FieldKind{},
		pathElems:    map[string]*pathElemInfo{},
		relEndpoints: map[string][2]string{},
		viewParams:   viewParams,
	}

	for _, clause := range part.Clauses {
		if err := p.renderClause(clause); err != nil {
			return "", nil, err
		}
	}
	return p.renderReturn(part.Return)
}

func (p *partRenderer) renderClause(clause planner.Clause) error {
	switch c := clause.(type) {
	case *planner.MatchOp:
		return p.renderMatch(c)
	case *planner.UnwindOp:
		return p.renderUnwind(c)
	case *planner.WithOp:
		return p.renderWith(c)
	case *planner.CallOp:
		// Procedure calls (db.labels, db.relationshipTypes, ...) do not
		// contribute a row source the renderer can join against; they are
		// resolved at the HTTP/Bolt layer against the live catalog instead
		// (spec §4.8's procedure surface), so C6 has nothing to compile.
		return nil
	default:
		return cgerrors.Newf(cgerrors.Internal, "render: unhandled clause type %T", clause)
	}
}

func (p *partRenderer) renderMatch(m *planner.MatchOp) error {
	b := cte.NewBuilderWithViewParams(p.viewParams)
	for _, pattern := range m.Patterns {
		results, err := b.BuildPattern(pattern)
		if err != nil {
			return err
		}
		p.s.addCTEs(results)
		p.collectStaticLabels(pattern)
	}
	if m.Where != nil {
		p.where = m.Where
	}
	return nil
}

func (p *partRenderer) collectStaticLabels(ctx *planner.PatternSchemaContext) {
	for _, n := range ctx.Nodes {
		p.staticLabels[n.Variable] = n.Label
		if n.Variable != "" {
			p.entityKind[n.Variable] = FieldNode
		}
	}
	for _, r := range ctx.Rels {
		if r.Variable != "" && len(r.Types) > 0 {
			p.staticLabels[r.Variable] = r.Types[0]
			p.entityKind[r.Variable] = FieldRelationship
			if r.FromIdx < len(ctx.Nodes) && r.ToIdx < len(ctx.Nodes) {
				p.relEndpoints[r.Variable] = [2]string{ctx.Nodes[r.FromIdx].Variable, ctx.Nodes[r.ToIdx].Variable}
			}
		}
	}
	if ctx.PathVar == "" {
		return
	}
	info := &pathElemInfo{}
	for _, n := range ctx.Nodes {
		info.NodeVars = append(info.NodeVars, n.Variable)
	}
	for _, r := range ctx.Rels {
		info.RelVars = append(info.RelVars, r.Variable)
		if r.VarLength.Present {
			info.VarLength = true
		}
	}
	p.pathElems[ctx.PathVar] = info
}

// renderUnwind lowers UNWIND to a ClickHouse arrayJoin over the current row
// source, whether the unwound expression is a literal list or a reference
// to an array-typed column (spec §4.6.6 treats both uniformly once reduced
// to a SQL array-valued expression).
func (p *partRenderer) renderUnwind(u *planner.UnwindOp) error {
	c := newCompiler(p.s, p.staticLabels, p.pathElems)
	exprSQL, err := c.compileExpr(u.Expr)
	if err != nil {
		return err
	}
	from, err := p.s.fromClause()
	if err != nil {
		return err
	}
	name := p.nextSynthName("unwind")
	col := fmt.Sprintf("%s__%s", u.As, valuePropertyKey)
	sql := fmt.Sprintf("SELECT *, arrayJoin(%s) AS %s FROM %s", exprSQL, col, from)

	cols := append([]cte.ColumnMetadata{}, distinctColumns(p.s.visible)...)
	cols = append(cols, cte.ColumnMetadata{CypherAlias: u.As, Property: valuePropertyKey, Column: col})
	result := &cte.CteResult{Name: name, SQL: sql, Columns: cols}
	p.s.narrowTo(result)
	return nil
}

func distinctColumns(results []*cte.CteResult) []cte.ColumnMetadata {
	var out []cte.ColumnMetadata
	seen := map[string]bool{}
	for _, r := range results {
		for _, col := range r.Columns {
			key := col.CypherAlias + "\x00" + col.Property
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, col)
		}
	}
	return out
}

// renderWith compiles a WITH clause's projection into a nested CTE and
// narrows the scope to it, so clauses after WITH resolve only through its
// fresh column set (spec §4.6.5).
func (p *partRenderer) renderWith(w *planner.WithOp) error {
	from, err := p.s.fromClause()
	if err != nil {
		return err
	}
	c := newCompiler(p.s, p.staticLabels, p.pathElems)

	var selectList []string
	var cols []cte.ColumnMetadata
	aggregateUsed := false
	var groupCols []string
	for _, item := range w.Items {
		sql, alias, err := p.compileProjectionItem(c, item)
		if err != nil {
			return err
		}
		if containsAggregateCall(item.Expr) {
			aggregateUsed = true
		} else {
			groupCols = append(groupCols, sql)
		}
		selectList = append(selectList, fmt.Sprintf("%s AS %s", sql, alias))
		cols = append(cols, cte.ColumnMetadata{CypherAlias: alias, Property: valuePropertyKey, Column: alias})
	}

	sql := fmt.Sprintf("SELECT %s FROM %s", strings.Join(selectList, ", "), from)
	if w.Where != nil {
		whereSQL, err := c.compileExpr(w.Where)
		if err != nil {
			return err
		}
		sql += " WHERE " + whereSQL
	}
	if aggregateUsed && len(groupCols) > 0 {
		sql += " GROUP BY " + strings.Join(groupCols, ", ")
	}
	if w.Distinct {
		sql = strings.Replace(sql, "SELECT ", "SELECT DISTINCT ", 1)
	}
	sql += renderOrderSkipLimit(c, w.OrderBy, w.Skip, w.Limit)

	name := p.nextSynthName("with")
	result := &cte.CteResult{Name: name, SQL: sql, Columns: cols}
	p.s.narrowTo(result)
	p.where = nil
	return nil
}

// compileProjectionItem resolves a projection item's output alias: the
// explicit AS alias, the bare variable name for a plain variable
// reference, or a positional fallback.
func (p *partRenderer) compileProjectionItem(c *compiler, item *cypher.ProjectionItem) (sql, alias string, err error) {
	if item.Star {
		return "", "", cgerrors.New(cgerrors.UnsupportedFeature, "bare * projection requires column-set introspection not implemented")
	}
	sql, err = c.compileExpr(item.Expr)
	if err != nil {
		return "", "", err
	}
	alias = item.Alias
	if alias == "" {
		if v, ok := item.Expr.(*cypher.Variable); ok {
			alias = v.Name
		} else {
			alias = fmt.Sprintf("col_%d", len(sql))
		}
	}
	return sql, alias, nil
}

func containsAggregateCall(e cypher.Expr) bool {
	switch v := e.(type) {
	case *cypher.FunctionCall:
		if isAggregateCall(v.Name) {
			return true
		}
		for _, a := range v.Args {
			if containsAggregateCall(a) {
				return true
			}
		}
	case *cypher.BinaryExpr:
		return containsAggregateCall(v.Left) || containsAggregateCall(v.Right)
	case *cypher.UnaryExpr:
		return containsAggregateCall(v.Operand)
	case *cypher.IsNullExpr:
		return containsAggregateCall(v.Operand)
	case *cypher.CaseExpr:
		for _, w := range v.Whens {
			if containsAggregateCall(w.When) || containsAggregateCall(w.Then) {
				return true
			}
		}
		if v.Else != nil {
			return containsAggregateCall(v.Else)
		}
	}
	return false
}

func (p *partRenderer) renderReturn(ret *planner.ReturnOp) (string, []Field, error) {
	c := newCompiler(p.s, p.staticLabels, p.pathElems)
	from, err := p.s.fromClause()
	if err != nil {
		return "", nil, err
	}

	var selectList []string
	var groupCols []string
	var fields []Field
	hasAggregate := false
	for i, item := range ret.Items {
		if v, ok := item.Expr.(*cypher.Variable); ok {
			if kind, isEntity := p.entityKind[v.Name]; isEntity {
				alias := item.Alias
				if alias == "" {
					alias = v.Name
				}
				field, entitySelect, err := p.compileEntityReturn(v.Name, alias, kind)
				if err != nil {
					return "", nil, err
				}
				selectList = append(selectList, entitySelect...)
				fields = append(fields, field)
				groupCols = append(groupCols, field.IDColumn)
				continue
			}
		}
		sql, alias, err := p.compileProjectionItem(c, item)
		if err != nil {
			return "", nil, err
		}
		selectList = append(selectList, fmt.Sprintf("%s AS %s", sql, quoteIdent(alias)))
		fields = append(fields, Field{Name: alias, Kind: FieldScalar, Column: alias})
		if i < len(ret.Aggregate) && ret.Aggregate[i] {
			hasAggregate = true
		} else {
			groupCols = append(groupCols, sql)
		}
	}

	distinct := ""
	if ret.Distinct {
		distinct = "DISTINCT "
	}
	sql := fmt.Sprintf("SELECT %s%s FROM %s", distinct, strings.Join(selectList, ", "), from)
	if p.where != nil {
		whereSQL, err := c.compileExpr(p.where)
		if err != nil {
			return "", nil, err
		}
		sql += " WHERE " + whereSQL
	}
	if hasAggregate && len(groupCols) > 0 {
		sql += " GROUP BY " + strings.Join(groupCols, ", ")
	}
	sql += renderOrderSkipLimit(c, ret.OrderBy, ret.Skip, ret.Limit)

	withList, err := emitWithList(p.s.all)
	if err != nil {
		return "", nil, err
	}
	return withList + " " + sql, fields, nil
}

// compileEntityReturn expands a bare node/relationship RETURN item into one
// SELECT entry for its id plus one per user property, so C9 can regroup
// them into a PackStream Node/Relationship structure (spec §4.9's 5.x
// extended form) instead of emitting the bare id a plain Variable
// compilation would otherwise produce.
func (p *partRenderer) compileEntityReturn(variable, alias string, kind FieldKind) (Field, []string, error) {
	idCol, ok := p.s.resolve(variable, "__id")
	if !ok {
		return Field{}, nil, cgerrors.Newf(cgerrors.UnknownLabel, "%q is not a bound variable in scope", variable)
	}
	idOutput := alias + "__id"
	selectList := []string{fmt.Sprintf("%s AS %s", idCol, idOutput)}

	field := Field{
		Name:        alias,
		Kind:        kind,
		Label:       p.staticLabels[variable],
		IDColumn:    idOutput,
		PropColumns: map[string]string{},
	}
	for _, col := range p.s.allProperties(variable) {
		out := alias + "__" + col.Property
		selectList = append(selectList, fmt.Sprintf("%s AS %s", col.Column, out))
		field.PropColumns[col.Property] = out
	}

	if kind == FieldRelationship {
		endpoints, ok := p.relEndpoints[variable]
		if !ok || endpoints[0] == "" || endpoints[1] == "" {
			return Field{}, nil, cgerrors.Newf(cgerrors.UnsupportedFeature,
				"RETURN %s: a returned relationship requires both its endpoint nodes to be bound pattern variables", variable)
		}
		startCol, ok := p.s.resolve(endpoints[0], "__id")
		if !ok {
			return Field{}, nil, cgerrors.Newf(cgerrors.UnknownProperty, "RETURN %s: start node %q has no resolvable id", variable, endpoints[0])
		}
		endCol, ok := p.s.resolve(endpoints[1], "__id")
		if !ok {
			return Field{}, nil, cgerrors.Newf(cgerrors.UnknownProperty, "RETURN %s: end node %q has no resolvable id", variable, endpoints[1])
		}
		startOutput := alias + "__start_id"
		endOutput := alias + "__end_id"
		selectList = append(selectList,
			fmt.Sprintf("%s AS %s", startCol, startOutput),
			fmt.Sprintf("%s AS %s", endCol, endOutput))
		field.StartIDColumn = startOutput
		field.EndIDColumn = endOutput
		field.StartLabel = p.staticLabels[endpoints[0]]
		field.EndLabel = p.staticLabels[endpoints[1]]
	}

	return field, selectList, nil
}

func quoteIdent(alias string) string {
	return `"` + strings.ReplaceAll(alias, `"`, `""`) + `"`
}

func renderOrderSkipLimit(c *compiler, orderBy []*cypher.OrderItem, skip, limit cypher.Expr) string {
	var sb strings.Builder
	if len(orderBy) > 0 {
		parts := make([]string, 0, len(orderBy))
		for _, o := range orderBy {
			sql, err := c.compileExpr(o.Expr)
			if err != nil {
				continue
			}
			if o.Descending {
				sql += " DESC"
			}
			parts = append(parts, sql)
		}
		if len(parts) > 0 {
			sb.WriteString(" ORDER BY ")
			sb.WriteString(strings.Join(parts, ", "))
		}
	}
	if limit != nil {
		if n, ok := literalInt(limit); ok {
			fmt.Fprintf(&sb, " LIMIT %s", strconv.FormatInt(n, 10))
		}
	}
	if skip != nil {
		if n, ok := literalInt(skip); ok {
			fmt.Fprintf(&sb, " OFFSET %s", strconv.FormatInt(n, 10))
		}
	}
	return sb.String()
}

func literalInt(e cypher.Expr) (int64, bool) {
	lit, ok := e.(*cypher.Literal)
	if !ok {
		return 0, false
	}
	n, ok := lit.Value.(int64)
	return n, ok
}
