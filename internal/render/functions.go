package render

import (
	"fmt"
	"strings"

	"github.com/clickgraph/clickgraph/internal/cgerrors"
	"github.com/clickgraph/clickgraph/internal/cypher"
)

// builtinAggregates mirrors internal/planner's aggregate-detection set —
// duplicated rather than imported because the planner only needs to know
// "is this an aggregate" while the renderer additionally needs the
// translated SQL function name for each one.
var builtinAggregates = map[string]string{
	"count": "count", "sum": "sum", "avg": "avg", "min": "min", "max": "max",
	"collect": "groupArray", "stdev": "stddevSamp", "stdevp": "stddevPop",
	"percentilecont": "quantile", "percentiledisc": "quantileExact",
}

// builtinScalars maps a lowercased Cypher scalar function name to its
// ClickHouse translation, for the subset whose name actually changes.
var builtinScalars = map[string]string{
	"tolower": "lower", "toupper": "upper", "trim": "trim", "split": "splitByString",
	"replace": "replaceAll", "substring": "substring", "size": "length",
	"startswith": "startsWith", "endswith": "endsWith", "contains": "position",
	"tostring": "toString", "tointeger": "toInt64", "tofloat": "toFloat64",
	"coalesce": "coalesce", "datetime": "parseDateTimeBestEffort", "date": "toDate",
	"duration": "toIntervalSecond",
}

// isAggregateCall reports whether a FunctionCall is a built-in aggregate or
// a chagg.-namespaced pass-through — the two ways a call can mark its
// enclosing projection item as reducing a group (spec §4.6 "Function
// translation" / "Pass-through").
func isAggregateCall(name string) bool {
	lower := strings.ToLower(name)
	if _, ok := builtinAggregates[lower]; ok {
		return true
	}
	return strings.HasPrefix(lower, "chagg.")
}

// compileFunctionCall translates one FunctionCall into a SQL expression.
// Namespace resolution order: ch./chagg. pass-through first (these are
// never validated against a known-function list by design — spec §4.6,
// §9's Open Question on unvalidated pass-through), then path functions
// operating on a bound path variable, then the built-in table.
func (c *compiler) compileFunctionCall(fc *cypher.FunctionCall) (string, error) {
	lower := strings.ToLower(fc.Name)

	if strings.HasPrefix(fc.Name, "ch.") || strings.HasPrefix(fc.Name, "chagg.") {
		return c.compilePassThrough(fc)
	}

	switch lower {
	case "id":
		return c.compilePathOrNodeID(fc)
	case "length":
		return c.compilePathLength(fc)
	case "nodes":
		return c.compilePathNodes(fc)
	case "relationships":
		return c.compilePathRelationships(fc)
	case "type":
		return c.compileConstantFromRel(fc, "type")
	case "labels":
		return c.compileConstantFromRel(fc, "label")
	case "all", "any", "none", "single":
		return c.compileListPredicate(lower, fc)
	}

	if sqlName, ok := builtinAggregates[lower]; ok {
		return c.compileAggregateCall(fc, sqlName)
	}

	args, err := c.compileArgs(fc.Args)
	if err != nil {
		return "", err
	}
	if sqlName, ok := builtinScalars[lower]; ok {
		return fmt.Sprintf("%s(%s)", sqlName, strings.Join(args, ", ")), nil
	}
	if strings.HasPrefix(lower, "gds.similarity.") {
		return fmt.Sprintf("%s(%s)", fc.Name, strings.Join(args, ", ")), nil
	}
	// Unknown function name outside every recognized namespace: rather
	// than silently pass it through (which would hide a typo), reject it.
	return "", cgerrors.Newf(cgerrors.UnsupportedFeature, "unrecognized function %q", fc.Name)
}

func (c *compiler) compilePassThrough(fc *cypher.FunctionCall) (string, error) {
	args, err := c.compileArgs(fc.Args)
	if err != nil {
		return "", err
	}
	name := strings.TrimPrefix(strings.TrimPrefix(fc.Name, "chagg."), "ch.")
	distinct := ""
	if fc.Distinct {
		distinct = "DISTINCT "
	}
	return fmt.Sprintf("%s(%s%s)", name, distinct, strings.Join(args, ", ")), nil
}

func (c *compiler) compileAggregateCall(fc *cypher.FunctionCall, sqlName string) (string, error) {
	if len(fc.Args) == 1 {
		if v, ok := fc.Args[0].(*cypher.Variable); ok && v.Name == "*" {
			return "count(*)", nil
		}
	}
	args, err := c.compileArgs(fc.Args)
	if err != nil {
		return "", err
	}
	distinct := ""
	if fc.Distinct {
		distinct = "DISTINCT "
	}
	if len(args) == 0 {
		args = []string{"*"}
	}
	return fmt.Sprintf("%s(%s%s)", sqlName, distinct, strings.Join(args, ", ")), nil
}

// compilePathOrNodeID handles id(n) for a bound node/relationship variable.
func (c *compiler) compilePathOrNodeID(fc *cypher.FunctionCall) (string, error) {
	if len(fc.Args) != 1 {
		return "", cgerrors.New(cgerrors.SyntaxError, "id() takes exactly one argument")
	}
	v, ok := fc.Args[0].(*cypher.Variable)
	if !ok {
		return "", cgerrors.New(cgerrors.SyntaxError, "id() argument must be a bound variable")
	}
	if col, ok := c.scope.resolve(v.Name, "__id"); ok {
		return col, nil
	}
	return "", cgerrors.Newf(cgerrors.UnknownProperty, "id(%s): %s is not a resolvable node or relationship in scope", v.Name, v.Name)
}

// compilePathLength handles length(p) → the VLP CTE's hop-count column.
func (c *compiler) compilePathLength(fc *cypher.FunctionCall) (string, error) {
	if len(fc.Args) != 1 {
		return "", cgerrors.New(cgerrors.SyntaxError, "length() takes exactly one argument")
	}
	v, ok := fc.Args[0].(*cypher.Variable)
	if !ok {
		return "", cgerrors.New(cgerrors.SyntaxError, "length() argument must be a bound path variable")
	}
	if col, ok := c.scope.resolve(v.Name, "__hops"); ok {
		return col, nil
	}
	return "", cgerrors.Newf(cgerrors.UnknownProperty, "length(%s): %s is not a variable-length path in scope", v.Name, v.Name)
}

// compileConstantFromRel handles type(r)/labels(n): these are static
// strings known entirely from the catalog definition, never a column read.
func (c *compiler) compileConstantFromRel(fc *cypher.FunctionCall, kind string) (string, error) {
	if len(fc.Args) != 1 {
		return "", cgerrors.Newf(cgerrors.SyntaxError, "%s() takes exactly one argument", fc.Name)
	}
	v, ok := fc.Args[0].(*cypher.Variable)
	if !ok {
		return "", cgerrors.Newf(cgerrors.SyntaxError, "%s() argument must be a bound variable", fc.Name)
	}
	label, ok := c.staticLabels[v.Name]
	if !ok {
		return "", cgerrors.Newf(cgerrors.UnknownProperty, "%s(%s): %s has no known static %s", fc.Name, v.Name, v.Name, kind)
	}
	return quoteStringLiteral(label), nil
}

// compilePathNodes handles nodes(p): a variable-length path resolves
// directly to the recursive CTE's visited-id array column; a fixed-length
// path is built as a literal array from each bound node's own id column, in
// pattern order.
func (c *compiler) compilePathNodes(fc *cypher.FunctionCall) (string, error) {
	v, pathVar, err := pathFuncArg(fc)
	if err != nil {
		return "", err
	}
	if col, ok := c.scope.resolve(pathVar, "__nodes"); ok {
		return col, nil
	}
	info, ok := c.pathElems[pathVar]
	if !ok {
		return "", cgerrors.Newf(cgerrors.UnknownProperty, "nodes(%s): %s is not a bound path variable in scope", v.Name, v.Name)
	}
	ids := make([]string, len(info.NodeVars))
	for i, nv := range info.NodeVars {
		col, ok := c.scope.resolve(nv, "__id")
		if !ok {
			return "", cgerrors.Newf(cgerrors.UnknownProperty, "nodes(%s): path element %q has no resolvable id", v.Name, nv)
		}
		ids[i] = col
	}
	return fmt.Sprintf("[%s]", strings.Join(ids, ", ")), nil
}

// compilePathRelationships handles relationships(p). Only fixed-length
// paths are supported: the recursive variable-length CTE carries a visited
// array of node ids, not edge ids, so there is no column to resolve a
// variable-length path's edge array against.
func (c *compiler) compilePathRelationships(fc *cypher.FunctionCall) (string, error) {
	v, pathVar, err := pathFuncArg(fc)
	if err != nil {
		return "", err
	}
	info, ok := c.pathElems[pathVar]
	if !ok {
		return "", cgerrors.Newf(cgerrors.UnknownProperty, "relationships(%s): %s is not a bound path variable in scope", v.Name, v.Name)
	}
	if info.VarLength {
		return "", cgerrors.Newf(cgerrors.UnsupportedFeature,
			"relationships(%s): variable-length paths do not carry a materialized relationship array", v.Name)
	}
	ids := make([]string, 0, len(info.RelVars))
	for _, rv := range info.RelVars {
		if rv == "" {
			return "", cgerrors.Newf(cgerrors.UnsupportedFeature,
				"relationships(%s): path contains an unbound relationship, which has no id column to place in the array", v.Name)
		}
		col, ok := c.scope.resolve(rv, "__id")
		if !ok {
			return "", cgerrors.Newf(cgerrors.UnknownProperty, "relationships(%s): path element %q has no resolvable id", v.Name, rv)
		}
		ids = append(ids, col)
	}
	return fmt.Sprintf("[%s]", strings.Join(ids, ", ")), nil
}

func pathFuncArg(fc *cypher.FunctionCall) (*cypher.Variable, string, error) {
	if len(fc.Args) != 1 {
		return nil, "", cgerrors.Newf(cgerrors.SyntaxError, "%s() takes exactly one argument", fc.Name)
	}
	v, ok := fc.Args[0].(*cypher.Variable)
	if !ok {
		return nil, "", cgerrors.Newf(cgerrors.SyntaxError, "%s() argument must be a bound path variable", fc.Name)
	}
	return v, v.Name, nil
}

// compileListPredicate lowers the all/any/none/single(x IN list WHERE pred)
// family to ClickHouse's higher-order array functions, reusing the same
// lambda-body compilation as a plain list comprehension's WHERE clause
// (compileLambdaBody) since the bound variable is a local loop var, not a
// pattern variable resolved through scope.
func (c *compiler) compileListPredicate(name string, fc *cypher.FunctionCall) (string, error) {
	if len(fc.Args) != 1 {
		return "", cgerrors.Newf(cgerrors.SyntaxError, "%s() takes exactly one argument", fc.Name)
	}
	lc, ok := fc.Args[0].(*cypher.ListComprehension)
	if !ok {
		return "", cgerrors.Newf(cgerrors.SyntaxError, "%s() requires an `x IN list [WHERE pred]` form", fc.Name)
	}
	list, err := c.compileExpr(lc.List)
	if err != nil {
		return "", err
	}
	pred := "1"
	if lc.Where != nil {
		pred, err = compileLambdaBody(lc.Variable, lc.Where)
		if err != nil {
			return "", err
		}
	}
	switch name {
	case "all":
		return fmt.Sprintf("arrayAll(%s -> %s, %s)", lc.Variable, pred, list), nil
	case "any":
		return fmt.Sprintf("arrayExists(%s -> %s, %s)", lc.Variable, pred, list), nil
	case "none":
		return fmt.Sprintf("NOT arrayExists(%s -> %s, %s)", lc.Variable, pred, list), nil
	case "single":
		return fmt.Sprintf("length(arrayFilter(%s -> %s, %s)) = 1", lc.Variable, pred, list), nil
	}
	return "", cgerrors.Newf(cgerrors.Internal, "render: unhandled list predicate %q", name)
}

func (c *compiler) compileArgs(args []cypher.Expr) ([]string, error) {
	out := make([]string, len(args))
	for i, a := range args {
		sql, err := c.compileExpr(a)
		if err != nil {
			return nil, err
		}
		out[i] = sql
	}
	return out, nil
}
