package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/clickgraph/clickgraph/internal/cgerrors"
	"github.com/clickgraph/clickgraph/internal/cypher"
)

// compiler compiles cypher.Expr values into SQL fragments against one
// scope. staticLabels lets type(r)/labels(n) answer without a column read,
// since the label/type of a pattern variable is fixed at resolve time (C3)
// and never varies per row. pathElems carries the bound node/relationship
// variables of each named path (spec §4.6's path variable, e.g.
// `MATCH p = (a)-[r]->(b)`), consulted only by nodes()/relationships().
type compiler struct {
	scope        *scope
	staticLabels map[string]string
	pathElems    map[string]*pathElemInfo
}

// pathElemInfo records one path variable's node and relationship variables
// in pattern order, plus whether the path is variable-length (in which case
// there is no fixed element count to build a literal array from).
type pathElemInfo struct {
	NodeVars  []string
	RelVars   []string
	VarLength bool
}

func newCompiler(s *scope, staticLabels map[string]string, pathElems map[string]*pathElemInfo) *compiler {
	return &compiler{scope: s, staticLabels: staticLabels, pathElems: pathElems}
}

func (c *compiler) compileExpr(e cypher.Expr) (string, error) {
	switch v := e.(type) {
	case *cypher.Literal:
		return compileLiteral(v.Value)
	case *cypher.Variable:
		if v.Name == "*" {
			return "*", nil
		}
		if col, ok := c.scope.resolve(v.Name, "__id"); ok {
			return col, nil
		}
		if col, ok := c.scope.resolve(v.Name, valuePropertyKey); ok {
			return col, nil
		}
		return "", cgerrors.Newf(cgerrors.UnknownLabel, "%q is not a bound variable in scope", v.Name)
	case *cypher.Parameter:
		return "", cgerrors.Newf(cgerrors.SyntaxError, "unsubstituted parameter $%s reached the renderer", v.Name)
	case *cypher.PropertyAccess:
		return c.compilePropertyAccess(v)
	case *cypher.LabelCheck:
		return c.compileLabelCheck(v)
	case *cypher.ListLiteral:
		items, err := c.compileArgs(v.Items)
		if err != nil {
			return "", err
		}
		return "[" + strings.Join(items, ", ") + "]", nil
	case *cypher.MapExpr:
		return "", cgerrors.New(cgerrors.UnsupportedFeature, "standalone map expressions have no SQL projection target")
	case *cypher.FunctionCall:
		return c.compileFunctionCall(v)
	case *cypher.BinaryExpr:
		return c.compileBinaryExpr(v)
	case *cypher.UnaryExpr:
		return c.compileUnaryExpr(v)
	case *cypher.IsNullExpr:
		return c.compileIsNullExpr(v)
	case *cypher.CaseExpr:
		return c.compileCaseExpr(v)
	case *cypher.ListComprehension:
		return c.compileListComprehension(v)
	case *cypher.PatternExpr:
		return "", cgerrors.New(cgerrors.UnsupportedFeature, "pattern expressions in projection position are not supported")
	default:
		return "", cgerrors.Newf(cgerrors.Internal, "render: unhandled expression type %T", e)
	}
}

func compileLiteral(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "NULL", nil
	case bool:
		if v {
			return "true", nil
		}
		return "false", nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case string:
		return quoteStringLiteral(v), nil
	default:
		return "", cgerrors.Newf(cgerrors.Internal, "render: unsupported literal type %T", value)
	}
}

func quoteStringLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (c *compiler) compilePropertyAccess(pa *cypher.PropertyAccess) (string, error) {
	v, ok := pa.Target.(*cypher.Variable)
	if !ok {
		return "", cgerrors.New(cgerrors.UnsupportedFeature, "property access is only supported on a bound variable, not a nested expression")
	}
	if col, ok := c.scope.resolve(v.Name, pa.Property); ok {
		return col, nil
	}
	return "", cgerrors.Newf(cgerrors.UnknownProperty, "%s.%s has no column mapping in scope", v.Name, pa.Property)
}

func (c *compiler) compileLabelCheck(lc *cypher.LabelCheck) (string, error) {
	v, ok := lc.Target.(*cypher.Variable)
	if !ok {
		return "", cgerrors.New(cgerrors.UnsupportedFeature, "label checks are only supported on a bound variable")
	}
	label, ok := c.staticLabels[v.Name]
	if !ok {
		return "", cgerrors.Newf(cgerrors.UnknownLabel, "%s has no known label in scope", v.Name)
	}
	if label == lc.Label {
		return "true", nil
	}
	return "false", nil
}

var binaryOpTranslation = map[string]string{
	"STARTS WITH": "startsWith", "ENDS WITH": "endsWith", "CONTAINS": "position",
}

func (c *compiler) compileBinaryExpr(be *cypher.BinaryExpr) (string, error) {
	left, err := c.compileExpr(be.Left)
	if err != nil {
		return "", err
	}
	right, err := c.compileExpr(be.Right)
	if err != nil {
		return "", err
	}
	switch be.Op {
	case "STARTS WITH":
		return fmt.Sprintf("startsWith(%s, %s)", left, right), nil
	case "ENDS WITH":
		return fmt.Sprintf("endsWith(%s, %s)", left, right), nil
	case "CONTAINS":
		return fmt.Sprintf("position(%s, %s) > 0", left, right), nil
	case "IN":
		return fmt.Sprintf("%s IN %s", left, right), nil
	case "XOR":
		return fmt.Sprintf("(%s) != (%s)", left, right), nil
	default:
		return fmt.Sprintf("(%s %s %s)", left, be.Op, right), nil
	}
}

func (c *compiler) compileUnaryExpr(ue *cypher.UnaryExpr) (string, error) {
	operand, err := c.compileExpr(ue.Operand)
	if err != nil {
		return "", err
	}
	switch ue.Op {
	case "NOT":
		return fmt.Sprintf("NOT (%s)", operand), nil
	case "-":
		return fmt.Sprintf("-(%s)", operand), nil
	default:
		return "", cgerrors.Newf(cgerrors.Internal, "render: unknown unary operator %q", ue.Op)
	}
}

func (c *compiler) compileIsNullExpr(in *cypher.IsNullExpr) (string, error) {
	operand, err := c.compileExpr(in.Operand)
	if err != nil {
		return "", err
	}
	if in.Negated {
		return fmt.Sprintf("%s IS NOT NULL", operand), nil
	}
	return fmt.Sprintf("%s IS NULL", operand), nil
}

func (c *compiler) compileCaseExpr(ce *cypher.CaseExpr) (string, error) {
	var sb strings.Builder
	sb.WriteString("CASE")
	if ce.Test != nil {
		test, err := c.compileExpr(ce.Test)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, " %s", test)
	}
	for _, w := range ce.Whens {
		when, err := c.compileExpr(w.When)
		if err != nil {
			return "", err
		}
		then, err := c.compileExpr(w.Then)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, " WHEN %s THEN %s", when, then)
	}
	if ce.Else != nil {
		elseSQL, err := c.compileExpr(ce.Else)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, " ELSE %s", elseSQL)
	}
	sb.WriteString(" END")
	return sb.String(), nil
}

func (c *compiler) compileListComprehension(lc *cypher.ListComprehension) (string, error) {
	list, err := c.compileExpr(lc.List)
	if err != nil {
		return "", err
	}
	// x IN list WHERE pred | project, lowered to ClickHouse's arrayFilter
	// + arrayMap over a lambda on the bound comprehension variable. The
	// comprehension variable is not resolved through scope (it is locally
	// bound within the lambda, not a pattern variable), so it compiles to
	// a bare SQL identifier instead of going through compileExpr.
	result := list
	if lc.Where != nil {
		pred, err := compileLambdaBody(lc.Variable, lc.Where)
		if err != nil {
			return "", err
		}
		result = fmt.Sprintf("arrayFilter(%s -> %s, %s)", lc.Variable, pred, result)
	}
	if lc.Project != nil {
		proj, err := compileLambdaBody(lc.Variable, lc.Project)
		if err != nil {
			return "", err
		}
		result = fmt.Sprintf("arrayMap(%s -> %s, %s)", lc.Variable, proj, result)
	}
	return result, nil
}

// compileLambdaBody compiles an expression whose only free variable is the
// comprehension's own loop variable (never a pattern variable), so it is
// rendered directly rather than through the outer compiler's scope.
func compileLambdaBody(loopVar string, e cypher.Expr) (string, error) {
	switch v := e.(type) {
	case *cypher.Variable:
		return v.Name, nil
	case *cypher.Literal:
		return compileLiteral(v.Value)
	case *cypher.BinaryExpr:
		left, err := compileLambdaBody(loopVar, v.Left)
		if err != nil {
			return "", err
		}
		right, err := compileLambdaBody(loopVar, v.Right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s %s %s)", left, v.Op, right), nil
	case *cypher.UnaryExpr:
		operand, err := compileLambdaBody(loopVar, v.Operand)
		if err != nil {
			return "", err
		}
		if v.Op == "NOT" {
			return fmt.Sprintf("NOT (%s)", operand), nil
		}
		return fmt.Sprintf("-(%s)", operand), nil
	default:
		return "", cgerrors.New(cgerrors.UnsupportedFeature, "list comprehension body is limited to literals, the loop variable, and binary/unary operators over them")
	}
}
