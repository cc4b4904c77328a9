package planner

import (
	"github.com/clickgraph/clickgraph/internal/cgerrors"
	"github.com/clickgraph/clickgraph/internal/cypher"
)

// substituteParams walks an expression tree and replaces every $name
// reference with a literal holding the bound value, as spec §4.3 requires
// ("substitutes parameters into literal positions"). There is no dedicated
// error kind in the closed taxonomy for "unbound parameter" — this is a
// static, pre-backend validation failure in the same family as a malformed
// query, so it is reported as SyntaxError, mirroring how the parser itself
// reports position-bound input errors.
func substituteParams(e cypher.Expr, params map[string]any) (cypher.Expr, error) {
	if e == nil {
		return nil, nil
	}
	switch v := e.(type) {
	case *cypher.Parameter:
		val, ok := params[v.Name]
		if !ok {
			return nil, cgerrors.Newf(cgerrors.SyntaxError, "no value bound for parameter $%s", v.Name).
				WithContext("parameter", v.Name)
		}
		return &cypher.Literal{Value: val}, nil
	case *cypher.Literal, *cypher.Variable:
		return v, nil
	case *cypher.PropertyAccess:
		target, err := substituteParams(v.Target, params)
		if err != nil {
			return nil, err
		}
		return &cypher.PropertyAccess{Target: target, Property: v.Property}, nil
	case *cypher.LabelCheck:
		target, err := substituteParams(v.Target, params)
		if err != nil {
			return nil, err
		}
		return &cypher.LabelCheck{Target: target, Label: v.Label}, nil
	case *cypher.ListLiteral:
		items, err := substituteParamsList(v.Items, params)
		if err != nil {
			return nil, err
		}
		return &cypher.ListLiteral{Items: items}, nil
	case *cypher.MapExpr:
		entries, err := substituteParamsEntries(v.Entries, params)
		if err != nil {
			return nil, err
		}
		return &cypher.MapExpr{Entries: entries}, nil
	case *cypher.FunctionCall:
		args, err := substituteParamsList(v.Args, params)
		if err != nil {
			return nil, err
		}
		return &cypher.FunctionCall{Name: v.Name, Args: args, Distinct: v.Distinct}, nil
	case *cypher.BinaryExpr:
		left, err := substituteParams(v.Left, params)
		if err != nil {
			return nil, err
		}
		right, err := substituteParams(v.Right, params)
		if err != nil {
			return nil, err
		}
		return &cypher.BinaryExpr{Op: v.Op, Left: left, Right: right}, nil
	case *cypher.UnaryExpr:
		operand, err := substituteParams(v.Operand, params)
		if err != nil {
			return nil, err
		}
		return &cypher.UnaryExpr{Op: v.Op, Operand: operand}, nil
	case *cypher.IsNullExpr:
		operand, err := substituteParams(v.Operand, params)
		if err != nil {
			return nil, err
		}
		return &cypher.IsNullExpr{Operand: operand, Negated: v.Negated}, nil
	case *cypher.CaseExpr:
		ce := &cypher.CaseExpr{}
		if v.Test != nil {
			test, err := substituteParams(v.Test, params)
			if err != nil {
				return nil, err
			}
			ce.Test = test
		}
		for _, w := range v.Whens {
			when, err := substituteParams(w.When, params)
			if err != nil {
				return nil, err
			}
			then, err := substituteParams(w.Then, params)
			if err != nil {
				return nil, err
			}
			ce.Whens = append(ce.Whens, cypher.CaseWhen{When: when, Then: then})
		}
		if v.Else != nil {
			elseExpr, err := substituteParams(v.Else, params)
			if err != nil {
				return nil, err
			}
			ce.Else = elseExpr
		}
		return ce, nil
	case *cypher.ListComprehension:
		list, err := substituteParams(v.List, params)
		if err != nil {
			return nil, err
		}
		lc := &cypher.ListComprehension{Variable: v.Variable, List: list}
		if v.Where != nil {
			where, err := substituteParams(v.Where, params)
			if err != nil {
				return nil, err
			}
			lc.Where = where
		}
		if v.Project != nil {
			proj, err := substituteParams(v.Project, params)
			if err != nil {
				return nil, err
			}
			lc.Project = proj
		}
		return lc, nil
	case *cypher.PatternExpr:
		return v, nil
	default:
		return v, nil
	}
}

func substituteParamsList(in []cypher.Expr, params map[string]any) ([]cypher.Expr, error) {
	if in == nil {
		return nil, nil
	}
	out := make([]cypher.Expr, len(in))
	for i, e := range in {
		v, err := substituteParams(e, params)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func substituteParamsEntries(in []cypher.MapEntry, params map[string]any) ([]cypher.MapEntry, error) {
	if in == nil {
		return nil, nil
	}
	out := make([]cypher.MapEntry, len(in))
	for i, entry := range in {
		v, err := substituteParams(entry.Value, params)
		if err != nil {
			return nil, err
		}
		out[i] = cypher.MapEntry{Key: entry.Key, Value: v}
	}
	return out, nil
}

// substituteParamsMap substitutes every value in an inline property map
// literal, returning a new MapLiteral (pattern property maps use MapLiteral
// directly rather than MapExpr).
func substituteParamsMap(m *cypher.MapLiteral, params map[string]any) (*cypher.MapLiteral, error) {
	if m == nil {
		return nil, nil
	}
	entries, err := substituteParamsEntries(m.Entries, params)
	if err != nil {
		return nil, err
	}
	return &cypher.MapLiteral{Entries: entries}, nil
}
