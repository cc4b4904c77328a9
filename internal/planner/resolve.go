package planner

import (
	"strings"

	"github.com/clickgraph/clickgraph/internal/catalog"
	"github.com/clickgraph/clickgraph/internal/cgerrors"
	"github.com/clickgraph/clickgraph/internal/cypher"
)

// maxAmbiguousCandidates is the "≤4 candidates" threshold spec §4.3 sets
// for resolving an anonymous pattern element; beyond it the pattern is
// rejected as AmbiguousPattern rather than silently picking one.
const maxAmbiguousCandidates = 4

// Plan builds a LogicalPlan from a parsed query against the catalog,
// resolving the schema via the USE clause / request schema_name / default
// priority (spec §4.8), substituting parameters, and resolving every
// pattern's labels and relationship types. This is C3's single point of
// contact with C1 (spec §4.3): every PatternSchemaContext produced here
// carries resolved catalog.NodeDefinition/EdgeDefinition pointers, so
// nothing below this package ever looks the catalog up again.
func Plan(cat *catalog.Catalog, q *cypher.Query, requestSchemaName string, params map[string]any) (*LogicalPlan, error) {
	schema, err := cat.Resolve(q.Use, requestSchemaName)
	if err != nil {
		return nil, err
	}
	if params == nil {
		params = map[string]any{}
	}

	plan := &LogicalPlan{Schema: schema, UnionAll: q.UnionAll}
	for _, spq := range q.Parts {
		part, err := planPart(spq, schema, params)
		if err != nil {
			return nil, err
		}
		plan.Parts = append(plan.Parts, part)
	}
	return plan, nil
}

func planPart(spq *cypher.SinglePartQuery, schema *catalog.GraphSchema, params map[string]any) (*Part, error) {
	part := &Part{}
	for _, clause := range spq.Clauses {
		switch c := clause.(type) {
		case *cypher.MatchClause:
			op, err := planMatch(c, schema, params)
			if err != nil {
				return nil, err
			}
			part.Clauses = append(part.Clauses, op)
		case *cypher.UnwindClause:
			expr, err := substituteParams(c.Expr, params)
			if err != nil {
				return nil, err
			}
			part.Clauses = append(part.Clauses, &UnwindOp{Expr: expr, As: c.As})
		case *cypher.WithClause:
			op, err := planWith(c, params)
			if err != nil {
				return nil, err
			}
			part.Clauses = append(part.Clauses, op)
		case *cypher.CallClause:
			args, err := substituteParamsList(c.Args, params)
			if err != nil {
				return nil, err
			}
			part.Clauses = append(part.Clauses, &CallOp{Procedure: c.Procedure, Args: args, Yield: c.Yield})
		default:
			return nil, cgerrors.Newf(cgerrors.Internal, "planner: unhandled clause type %T", clause)
		}
	}

	ret, err := planReturn(spq.Return, params)
	if err != nil {
		return nil, err
	}
	part.Return = ret
	return part, nil
}

func planMatch(c *cypher.MatchClause, schema *catalog.GraphSchema, params map[string]any) (*MatchOp, error) {
	op := &MatchOp{Optional: c.Optional}
	for _, pat := range c.Patterns {
		ctx, err := resolvePattern(pat, schema, params)
		if err != nil {
			return nil, err
		}
		op.Patterns = append(op.Patterns, ctx)
	}
	if c.Where != nil {
		where, err := substituteParams(c.Where, params)
		if err != nil {
			return nil, err
		}
		op.Where = where
	}
	return op, nil
}

func planWith(c *cypher.WithClause, params map[string]any) (*WithOp, error) {
	items, err := planProjectionItems(c.Items, params)
	if err != nil {
		return nil, err
	}
	orderBy, err := planOrderBy(c.OrderBy, params)
	if err != nil {
		return nil, err
	}
	skip, err := substituteParams(c.Skip, params)
	if err != nil {
		return nil, err
	}
	limit, err := substituteParams(c.Limit, params)
	if err != nil {
		return nil, err
	}
	where, err := substituteParams(c.Where, params)
	if err != nil {
		return nil, err
	}
	op := &WithOp{Distinct: c.Distinct, Items: items, OrderBy: orderBy, Skip: skip, Limit: limit, Where: where}
	for _, item := range items {
		op.Bindings = append(op.Bindings, bindingName(item))
	}
	return op, nil
}

func planReturn(c *cypher.ReturnClause, params map[string]any) (*ReturnOp, error) {
	items, err := planProjectionItems(c.Items, params)
	if err != nil {
		return nil, err
	}
	orderBy, err := planOrderBy(c.OrderBy, params)
	if err != nil {
		return nil, err
	}
	skip, err := substituteParams(c.Skip, params)
	if err != nil {
		return nil, err
	}
	limit, err := substituteParams(c.Limit, params)
	if err != nil {
		return nil, err
	}
	ret := &ReturnOp{Distinct: c.Distinct, Items: items, OrderBy: orderBy, Skip: skip, Limit: limit}
	ret.Aggregate = make([]bool, len(items))
	for i, item := range items {
		ret.Aggregate[i] = item.Expr != nil && containsAggregate(item.Expr)
	}
	return ret, nil
}

func planProjectionItems(items []*cypher.ProjectionItem, params map[string]any) ([]*cypher.ProjectionItem, error) {
	out := make([]*cypher.ProjectionItem, len(items))
	for i, item := range items {
		if item.Star {
			out[i] = item
			continue
		}
		expr, err := substituteParams(item.Expr, params)
		if err != nil {
			return nil, err
		}
		out[i] = &cypher.ProjectionItem{Expr: expr, Alias: item.Alias, Star: item.Star}
	}
	return out, nil
}

func planOrderBy(items []*cypher.OrderItem, params map[string]any) ([]*cypher.OrderItem, error) {
	out := make([]*cypher.OrderItem, len(items))
	for i, item := range items {
		expr, err := substituteParams(item.Expr, params)
		if err != nil {
			return nil, err
		}
		out[i] = &cypher.OrderItem{Expr: expr, Descending: item.Descending}
	}
	return out, nil
}

// bindingName is the variable name a projection item exposes downstream:
// its alias if given, otherwise the bare variable name it projects, or ""
// for an expression with neither (e.g. a literal with no AS, which cannot
// be referenced again — the renderer treats it positionally).
func bindingName(item *cypher.ProjectionItem) string {
	if item.Alias != "" {
		return item.Alias
	}
	if v, ok := item.Expr.(*cypher.Variable); ok {
		return v.Name
	}
	return ""
}

// aggregateFunctions names the built-in aggregate functions recognized
// while marking a projection item as an aggregate (spec §4.6's Built-ins
// list: count/sum/avg/min/max/collect/stDev/percentileCont).
var aggregateFunctions = map[string]bool{
	"count": true, "sum": true, "avg": true, "min": true, "max": true,
	"collect": true, "stdev": true, "stdevp": true, "percentilecont": true, "percentiledisc": true,
}

func containsAggregate(e cypher.Expr) bool {
	switch v := e.(type) {
	case *cypher.FunctionCall:
		if aggregateFunctions[lower(v.Name)] {
			return true
		}
		// chagg.-namespaced pass-through calls declare themselves as
		// aggregates (spec §4.6's "Pass-through" note); ch.-namespaced
		// calls never do, regardless of their argument's own aggregate-ness.
		if strings.HasPrefix(lower(v.Name), "chagg.") {
			return true
		}
		for _, arg := range v.Args {
			if containsAggregate(arg) {
				return true
			}
		}
		return false
	case *cypher.BinaryExpr:
		return containsAggregate(v.Left) || containsAggregate(v.Right)
	case *cypher.UnaryExpr:
		return containsAggregate(v.Operand)
	case *cypher.PropertyAccess:
		return containsAggregate(v.Target)
	case *cypher.IsNullExpr:
		return containsAggregate(v.Operand)
	case *cypher.CaseExpr:
		if v.Test != nil && containsAggregate(v.Test) {
			return true
		}
		for _, w := range v.Whens {
			if containsAggregate(w.When) || containsAggregate(w.Then) {
				return true
			}
		}
		return v.Else != nil && containsAggregate(v.Else)
	default:
		return false
	}
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c - 'A' + 'a'
		}
	}
	return string(b)
}

// --- Pattern resolution ---

func resolvePattern(pat *cypher.Pattern, schema *catalog.GraphSchema, params map[string]any) (*PatternSchemaContext, error) {
	ctx := &PatternSchemaContext{PathVar: pat.PathVar, Mode: pat.Mode}

	nodeRefs := make([]*PatternNodeRef, len(pat.Nodes))
	for i, np := range pat.Nodes {
		ref, err := newNodeRef(np, params)
		if err != nil {
			return nil, err
		}
		nodeRefs[i] = ref
	}

	relRefs := make([]*PatternRelRef, len(pat.Rels))
	for i, rp := range pat.Rels {
		ref, err := newRelRef(rp, i, schema, params)
		if err != nil {
			return nil, err
		}
		relRefs[i] = ref
	}

	// First pass: resolve every node with an explicit label, and gather
	// edge-endpoint label hints for anonymous neighbors.
	for i, np := range pat.Nodes {
		if len(np.Labels) > 0 {
			def, ok := schema.NodeByLabel(np.Labels[0])
			if !ok {
				return nil, cgerrors.Newf(cgerrors.UnknownLabel, "unknown node label %q", np.Labels[0]).
					WithContext("label", np.Labels[0])
			}
			nodeRefs[i].Label = np.Labels[0]
			nodeRefs[i].Def = def
		}
	}

	// Second pass: resolve anonymous nodes using adjacent relationship
	// endpoint hints, then inline-property hints, then (if nothing else
	// applies) every label in the schema — capped at maxAmbiguousCandidates.
	for i, np := range pat.Nodes {
		if nodeRefs[i].Def != nil {
			continue
		}
		candidates := candidateLabelsFromEdges(i, nodeRefs, relRefs)
		if candidates == nil {
			candidates = candidateLabelsFromProps(np, schema)
		}
		if candidates == nil {
			candidates = schema.Labels()
		}
		def, err := resolveUnique(candidates, schema)
		if err != nil {
			return nil, err
		}
		nodeRefs[i].Def = def
		if def != nil {
			nodeRefs[i].Label = def.Label
		}
	}

	ctx.Nodes = nodeRefs
	ctx.Rels = relRefs
	return ctx, nil
}

func newNodeRef(np *cypher.NodePattern, params map[string]any) (*PatternNodeRef, error) {
	props, err := substituteParamsMap(np.Props, params)
	if err != nil {
		return nil, err
	}
	return &PatternNodeRef{Variable: np.Variable, Props: props}, nil
}

func newRelRef(rp *cypher.RelPattern, idx int, schema *catalog.GraphSchema, params map[string]any) (*PatternRelRef, error) {
	props, err := substituteParamsMap(rp.Props, params)
	if err != nil {
		return nil, err
	}
	ref := &PatternRelRef{
		Variable:  rp.Variable,
		Types:     rp.Types,
		Direction: rp.Direction,
		VarLength: rp.VarLength,
		Props:     props,
		FromIdx:   idx,
		ToIdx:     idx + 1,
	}
	for _, t := range rp.Types {
		defs, ok := schema.EdgesByType(t)
		if !ok {
			return nil, cgerrors.Newf(cgerrors.UnknownRelType, "unknown relationship type %q", t).
				WithContext("type", t)
		}
		ref.Defs = append(ref.Defs, defs...)
	}
	return ref, nil
}

// candidateLabelsFromEdges gathers node-label hints for an anonymous node
// from its resolved neighboring relationships' endpoint definitions,
// respecting direction (the node at FromIdx wants FromNode, at ToIdx wants
// ToNode).
func candidateLabelsFromEdges(nodeIdx int, nodes []*PatternNodeRef, rels []*PatternRelRef) []string {
	seen := map[string]bool{}
	var out []string
	add := func(label string) {
		if label != "" && !seen[label] {
			seen[label] = true
			out = append(out, label)
		}
	}
	for _, rel := range rels {
		if len(rel.Defs) == 0 {
			continue
		}
		if rel.FromIdx == nodeIdx {
			for _, d := range rel.Defs {
				add(d.FromNode)
			}
		}
		if rel.ToIdx == nodeIdx {
			for _, d := range rel.Defs {
				add(d.ToNode)
			}
		}
	}
	return out
}

func candidateLabelsFromProps(np *cypher.NodePattern, schema *catalog.GraphSchema) []string {
	if np.Props == nil || len(np.Props.Entries) == 0 {
		return nil
	}
	var candidates []string
	for i, entry := range np.Props.Entries {
		matches := schema.NodesWithProperty(entry.Key)
		if i == 0 {
			candidates = matches
			continue
		}
		candidates = intersect(candidates, matches)
	}
	return candidates
}

func intersect(a, b []string) []string {
	set := map[string]bool{}
	for _, x := range b {
		set[x] = true
	}
	var out []string
	for _, x := range a {
		if set[x] {
			out = append(out, x)
		}
	}
	return out
}

// resolveUnique resolves a candidate-label list to a single NodeDefinition
// when there is exactly one candidate, rejects an empty candidate set as
// UnknownLabel (nothing in the schema matches the pattern's hints), and
// rejects more than maxAmbiguousCandidates as AmbiguousPattern. Between 1
// and the cap, spec §4.3 calls the pattern resolvable; lacking a further
// disambiguation channel in this package, the first schema-order candidate
// is taken deterministically (map iteration order from schema.Labels() is
// not an issue here since candidates from edge/property hints are built in
// slice order, not map order).
func resolveUnique(candidates []string, schema *catalog.GraphSchema) (*catalog.NodeDefinition, error) {
	if len(candidates) == 0 {
		return nil, cgerrors.New(cgerrors.UnknownLabel, "anonymous pattern element matches no node label in schema")
	}
	if len(candidates) > maxAmbiguousCandidates {
		return nil, cgerrors.Newf(cgerrors.AmbiguousPattern,
			"anonymous pattern element matches %d candidate labels, more than the maximum of %d",
			len(candidates), maxAmbiguousCandidates).WithContext("candidates", candidates)
	}
	def, ok := schema.NodeByLabel(candidates[0])
	if !ok {
		return nil, cgerrors.Newf(cgerrors.UnknownLabel, "unknown node label %q", candidates[0])
	}
	return def, nil
}
