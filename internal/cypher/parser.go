package cypher

import (
	"strconv"
	"strings"

	"github.com/clickgraph/clickgraph/internal/cgerrors"
)

// Parser builds an untyped AST from a token stream produced by Lexer. It is
// a straightforward recursive-descent/precedence-climbing parser, matching
// the teacher's preference for explicit hand-written parsing over a
// generated one (see Lexer's doc comment).
type Parser struct {
	lex  *Lexer
	tok  Token
	prev Token
}

// NewParser creates a parser over the given Cypher source.
func NewParser(src string) (*Parser, error) {
	p := &Parser{lex: NewLexer(src)}
	if err := p.next(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) next() error {
	p.prev = p.tok
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *Parser) syntaxErrorf(format string, args ...any) error {
	return cgerrors.Newf(cgerrors.SyntaxError, format, args...).
		WithContext("line", p.tok.Line).WithContext("col", p.tok.Col).
		WithContext("token", p.tok.Text)
}

// kw reports whether the current token is an identifier matching the given
// keyword, case-insensitively.
func (p *Parser) kw(word string) bool {
	return p.tok.Kind == TokIdent && strings.EqualFold(p.tok.Text, word)
}

func (p *Parser) expectKw(word string) error {
	if !p.kw(word) {
		return p.syntaxErrorf("expected keyword %s, got %q", word, p.tok.Text)
	}
	return p.next()
}

func (p *Parser) expect(kind TokenKind, what string) (Token, error) {
	if p.tok.Kind != kind {
		return Token{}, p.syntaxErrorf("expected %s, got %q", what, p.tok.Text)
	}
	tok := p.tok
	return tok, p.next()
}

func (p *Parser) expectIdent() (string, error) {
	if p.tok.Kind != TokIdent {
		return "", p.syntaxErrorf("expected identifier, got %q", p.tok.Text)
	}
	name := p.tok.Text
	return name, p.next()
}

// Parse parses a complete query: [USE name] SinglePartQuery (UNION [ALL]
// SinglePartQuery)*. Write clauses (CREATE/SET/DELETE/MERGE/REMOVE/DETACH)
// are rejected with WriteNotSupported the moment their keyword is seen,
// before any backend contact is made (spec §4.2, §7, testable property 7).
func Parse(src string) (*Query, error) {
	p, err := NewParser(src)
	if err != nil {
		return nil, err
	}
	return p.parseQuery()
}

func (p *Parser) parseQuery() (*Query, error) {
	q := &Query{}

	if p.kw("USE") {
		if err := p.next(); err != nil {
			return nil, err
		}
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		q.Use = name
	}

	part, err := p.parseSinglePartQuery()
	if err != nil {
		return nil, err
	}
	q.Parts = append(q.Parts, part)

	for p.kw("UNION") {
		if err := p.next(); err != nil {
			return nil, err
		}
		all := false
		if p.kw("ALL") {
			all = true
			if err := p.next(); err != nil {
				return nil, err
			}
		}
		next, err := p.parseSinglePartQuery()
		if err != nil {
			return nil, err
		}
		q.Parts = append(q.Parts, next)
		q.UnionAll = append(q.UnionAll, all)
	}

	if p.tok.Kind == TokSemicolon {
		if err := p.next(); err != nil {
			return nil, err
		}
	}
	if p.tok.Kind != TokEOF {
		return nil, p.syntaxErrorf("unexpected trailing input %q", p.tok.Text)
	}
	return q, nil
}

func (p *Parser) parseSinglePartQuery() (*SinglePartQuery, error) {
	spq := &SinglePartQuery{}
	for {
		if writeKeywords[strings.ToUpper(p.tok.Text)] && p.tok.Kind == TokIdent {
			return nil, cgerrors.Newf(cgerrors.WriteNotSupported,
				"write clause %q is not supported: clickgraph is a read-only query layer", strings.ToUpper(p.tok.Text)).
				WithContext("line", p.tok.Line).WithContext("col", p.tok.Col)
		}
		switch {
		case p.kw("OPTIONAL") || p.kw("MATCH"):
			clause, err := p.parseMatchClause()
			if err != nil {
				return nil, err
			}
			spq.Clauses = append(spq.Clauses, clause)
		case p.kw("UNWIND"):
			clause, err := p.parseUnwindClause()
			if err != nil {
				return nil, err
			}
			spq.Clauses = append(spq.Clauses, clause)
		case p.kw("WITH"):
			clause, err := p.parseWithClause()
			if err != nil {
				return nil, err
			}
			spq.Clauses = append(spq.Clauses, clause)
		case p.kw("CALL"):
			clause, err := p.parseCallClause()
			if err != nil {
				return nil, err
			}
			spq.Clauses = append(spq.Clauses, clause)
		case p.kw("RETURN"):
			ret, err := p.parseReturnClause()
			if err != nil {
				return nil, err
			}
			spq.Return = ret
			return spq, nil
		default:
			return nil, p.syntaxErrorf("expected a reading clause or RETURN, got %q", p.tok.Text)
		}
	}
}

func (p *Parser) parseMatchClause() (*MatchClause, error) {
	mc := &MatchClause{}
	if p.kw("OPTIONAL") {
		mc.Optional = true
		if err := p.next(); err != nil {
			return nil, err
		}
	}
	if err := p.expectKw("MATCH"); err != nil {
		return nil, err
	}
	for {
		pat, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		mc.Patterns = append(mc.Patterns, pat)
		if p.tok.Kind != TokComma {
			break
		}
		if err := p.next(); err != nil {
			return nil, err
		}
	}
	if p.kw("WHERE") {
		if err := p.next(); err != nil {
			return nil, err
		}
		where, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		mc.Where = where
	}
	return mc, nil
}

func (p *Parser) parseUnwindClause() (*UnwindClause, error) {
	if err := p.expectKw("UNWIND"); err != nil {
		return nil, err
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectKw("AS"); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	return &UnwindClause{Expr: expr, As: name}, nil
}

func (p *Parser) parseWithClause() (*WithClause, error) {
	if err := p.expectKw("WITH"); err != nil {
		return nil, err
	}
	wc := &WithClause{}
	if p.kw("DISTINCT") {
		wc.Distinct = true
		if err := p.next(); err != nil {
			return nil, err
		}
	}
	items, err := p.parseProjectionItems()
	if err != nil {
		return nil, err
	}
	wc.Items = items
	if err := p.parseOrderSkipLimit(&wc.OrderBy, &wc.Skip, &wc.Limit); err != nil {
		return nil, err
	}
	if p.kw("WHERE") {
		if err := p.next(); err != nil {
			return nil, err
		}
		where, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		wc.Where = where
	}
	return wc, nil
}

func (p *Parser) parseCallClause() (*CallClause, error) {
	if err := p.expectKw("CALL"); err != nil {
		return nil, err
	}
	var nameParts []string
	part, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	nameParts = append(nameParts, part)
	for p.tok.Kind == TokDot {
		if err := p.next(); err != nil {
			return nil, err
		}
		part, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		nameParts = append(nameParts, part)
	}
	cc := &CallClause{Procedure: strings.Join(nameParts, ".")}
	if _, err := p.expect(TokLParen, "("); err != nil {
		return nil, err
	}
	if p.tok.Kind != TokRParen {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			cc.Args = append(cc.Args, arg)
			if p.tok.Kind != TokComma {
				break
			}
			if err := p.next(); err != nil {
				return nil, err
			}
		}
	}
	if _, err := p.expect(TokRParen, ")"); err != nil {
		return nil, err
	}
	if p.kw("YIELD") {
		if err := p.next(); err != nil {
			return nil, err
		}
		for {
			name, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			cc.Yield = append(cc.Yield, name)
			if p.tok.Kind != TokComma {
				break
			}
			if err := p.next(); err != nil {
				return nil, err
			}
		}
	}
	return cc, nil
}

func (p *Parser) parseReturnClause() (*ReturnClause, error) {
	if err := p.expectKw("RETURN"); err != nil {
		return nil, err
	}
	rc := &ReturnClause{}
	if p.kw("DISTINCT") {
		rc.Distinct = true
		if err := p.next(); err != nil {
			return nil, err
		}
	}
	items, err := p.parseProjectionItems()
	if err != nil {
		return nil, err
	}
	rc.Items = items
	if err := p.parseOrderSkipLimit(&rc.OrderBy, &rc.Skip, &rc.Limit); err != nil {
		return nil, err
	}
	return rc, nil
}

func (p *Parser) parseProjectionItems() ([]*ProjectionItem, error) {
	var items []*ProjectionItem
	for {
		if p.tok.Kind == TokStar {
			if err := p.next(); err != nil {
				return nil, err
			}
			items = append(items, &ProjectionItem{Star: true})
		} else {
			expr, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			item := &ProjectionItem{Expr: expr}
			if p.kw("AS") {
				if err := p.next(); err != nil {
					return nil, err
				}
				alias, err := p.expectIdent()
				if err != nil {
					return nil, err
				}
				item.Alias = alias
			}
			items = append(items, item)
		}
		if p.tok.Kind != TokComma {
			break
		}
		if err := p.next(); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (p *Parser) parseOrderSkipLimit(orderBy *[]*OrderItem, skip, limit *Expr) error {
	if p.kw("ORDER") {
		if err := p.next(); err != nil {
			return err
		}
		if err := p.expectKw("BY"); err != nil {
			return err
		}
		for {
			expr, err := p.parseExpr()
			if err != nil {
				return err
			}
			item := &OrderItem{Expr: expr}
			if p.kw("DESC") || p.kw("DESCENDING") {
				item.Descending = true
				if err := p.next(); err != nil {
					return err
				}
			} else if p.kw("ASC") || p.kw("ASCENDING") {
				if err := p.next(); err != nil {
					return err
				}
			}
			*orderBy = append(*orderBy, item)
			if p.tok.Kind != TokComma {
				break
			}
			if err := p.next(); err != nil {
				return err
			}
		}
	}
	if p.kw("SKIP") {
		if err := p.next(); err != nil {
			return err
		}
		expr, err := p.parseExpr()
		if err != nil {
			return err
		}
		*skip = expr
	}
	if p.kw("LIMIT") {
		if err := p.next(); err != nil {
			return err
		}
		expr, err := p.parseExpr()
		if err != nil {
			return err
		}
		*limit = expr
	}
	return nil
}

// --- Patterns ---

func (p *Parser) parsePattern() (*Pattern, error) {
	pat := &Pattern{}
	// An optional path-variable binding: `p = (a)-[r]->(b)`. Only attempt
	// this lookahead when the token sequence is ident '=' since property
	// maps and WHERE expressions also start with identifiers.
	if p.tok.Kind == TokIdent && !keywords[strings.ToUpper(p.tok.Text)] {
		save := *p
		name := p.tok.Text
		if err := p.next(); err != nil {
			return nil, err
		}
		if p.tok.Kind == TokEQ {
			if err := p.next(); err != nil {
				return nil, err
			}
			pat.PathVar = name
		} else {
			*p = save
		}
	}

	wrapped := false
	if p.kw("SHORTESTPATH") {
		pat.Mode = PathShortest
		wrapped = true
	} else if p.kw("ALLSHORTESTPATHS") {
		pat.Mode = PathAllShortest
		wrapped = true
	}
	if wrapped {
		if err := p.next(); err != nil {
			return nil, err
		}
		if _, err := p.expect(TokLParen, "("); err != nil {
			return nil, err
		}
	}

	node, err := p.parseNodePattern()
	if err != nil {
		return nil, err
	}
	pat.Nodes = append(pat.Nodes, node)

	for p.tok.Kind == TokDash || p.tok.Kind == TokArrowLeft {
		rel, err := p.parseRelPattern()
		if err != nil {
			return nil, err
		}
		pat.Rels = append(pat.Rels, rel)
		node, err := p.parseNodePattern()
		if err != nil {
			return nil, err
		}
		pat.Nodes = append(pat.Nodes, node)
	}
	if wrapped {
		if _, err := p.expect(TokRParen, ")"); err != nil {
			return nil, err
		}
	}
	return pat, nil
}

func (p *Parser) parseNodePattern() (*NodePattern, error) {
	if _, err := p.expect(TokLParen, "("); err != nil {
		return nil, err
	}
	np := &NodePattern{}
	if p.tok.Kind == TokIdent && !keywords[strings.ToUpper(p.tok.Text)] {
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		np.Variable = name
	}
	for p.tok.Kind == TokColon {
		if err := p.next(); err != nil {
			return nil, err
		}
		label, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		np.Labels = append(np.Labels, label)
	}
	if p.tok.Kind == TokLBrace {
		m, err := p.parseMapLiteral()
		if err != nil {
			return nil, err
		}
		np.Props = m
	}
	if _, err := p.expect(TokRParen, ")"); err != nil {
		return nil, err
	}
	return np, nil
}

// parseRelPattern consumes one `-[...]-`, `-[...]->`, or `<-[...]-` segment.
func (p *Parser) parseRelPattern() (*RelPattern, error) {
	rel := &RelPattern{Direction: DirEither}
	if p.tok.Kind == TokArrowLeft {
		rel.Direction = DirIncoming
		if err := p.next(); err != nil {
			return nil, err
		}
	} else {
		if _, err := p.expect(TokDash, "-"); err != nil {
			return nil, err
		}
	}

	if p.tok.Kind == TokLBracket {
		if err := p.next(); err != nil {
			return nil, err
		}
		if p.tok.Kind == TokIdent && !keywords[strings.ToUpper(p.tok.Text)] {
			name, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			rel.Variable = name
		}
		if p.tok.Kind == TokColon {
			if err := p.next(); err != nil {
				return nil, err
			}
			typ, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			rel.Types = append(rel.Types, typ)
			for p.tok.Kind == TokPipe {
				if err := p.next(); err != nil {
					return nil, err
				}
				typ, err := p.expectIdent()
				if err != nil {
					return nil, err
				}
				rel.Types = append(rel.Types, typ)
			}
		}
		if p.tok.Kind == TokStar {
			vl, err := p.parseVarLength()
			if err != nil {
				return nil, err
			}
			rel.VarLength = vl
		}
		if p.tok.Kind == TokLBrace {
			m, err := p.parseMapLiteral()
			if err != nil {
				return nil, err
			}
			rel.Props = m
		}
		if _, err := p.expect(TokRBracket, "]"); err != nil {
			return nil, err
		}
	}

	switch p.tok.Kind {
	case TokArrowRight:
		if rel.Direction == DirIncoming {
			return nil, p.syntaxErrorf("relationship cannot point both directions")
		}
		rel.Direction = DirOutgoing
		if err := p.next(); err != nil {
			return nil, err
		}
	case TokDash:
		if err := p.next(); err != nil {
			return nil, err
		}
	default:
		return nil, p.syntaxErrorf("expected - or -> to close relationship pattern, got %q", p.tok.Text)
	}
	return rel, nil
}

// parseVarLength consumes `*`, `*N`, `*min..max`, `*min..`, `*..max`.
func (p *Parser) parseVarLength() (VarLength, error) {
	vl := VarLength{Present: true, Min: 1, Max: -1}
	if err := p.next(); err != nil { // consume '*'
		return vl, err
	}
	if p.tok.Kind == TokInt {
		n, err := strconv.Atoi(p.tok.Text)
		if err != nil {
			return vl, p.syntaxErrorf("invalid variable-length bound %q", p.tok.Text)
		}
		if err := p.next(); err != nil {
			return vl, err
		}
		vl.Min = n
		vl.Max = n
		vl.HasMax = true
	}
	if p.tok.Kind == TokDotDot {
		if err := p.next(); err != nil {
			return vl, err
		}
		vl.Max = -1
		vl.HasMax = false
		if p.tok.Kind == TokInt {
			n, err := strconv.Atoi(p.tok.Text)
			if err != nil {
				return vl, p.syntaxErrorf("invalid variable-length bound %q", p.tok.Text)
			}
			if err := p.next(); err != nil {
				return vl, err
			}
			vl.Max = n
			vl.HasMax = true
		}
	}
	return vl, nil
}

func (p *Parser) parseMapLiteral() (*MapLiteral, error) {
	if _, err := p.expect(TokLBrace, "{"); err != nil {
		return nil, err
	}
	m := &MapLiteral{}
	if p.tok.Kind != TokRBrace {
		for {
			key, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokColon, ":"); err != nil {
				return nil, err
			}
			val, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			m.Entries = append(m.Entries, MapEntry{Key: key, Value: val})
			if p.tok.Kind != TokComma {
				break
			}
			if err := p.next(); err != nil {
				return nil, err
			}
		}
	}
	if _, err := p.expect(TokRBrace, "}"); err != nil {
		return nil, err
	}
	return m, nil
}

// --- Expressions (precedence climbing, lowest to highest) ---

func (p *Parser) parseExpr() (Expr, error) { return p.parseOr() }

func (p *Parser) parseOr() (Expr, error) {
	left, err := p.parseXor()
	if err != nil {
		return nil, err
	}
	for p.kw("OR") {
		if err := p.next(); err != nil {
			return nil, err
		}
		right, err := p.parseXor()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseXor() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.kw("XOR") {
		if err := p.next(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: "XOR", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.kw("AND") {
		if err := p.next(); err != nil {
			return nil, err
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (Expr, error) {
	if p.kw("NOT") {
		if err := p.next(); err != nil {
			return nil, err
		}
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: "NOT", Operand: operand}, nil
	}
	return p.parseComparison()
}

var comparisonOps = map[TokenKind]string{
	TokEQ: "=", TokNEQ: "<>", TokLT: "<", TokLTE: "<=", TokGT: ">", TokGTE: ">=",
}

func (p *Parser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		if op, ok := comparisonOps[p.tok.Kind]; ok {
			if err := p.next(); err != nil {
				return nil, err
			}
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &BinaryExpr{Op: op, Left: left, Right: right}
			continue
		}
		if p.kw("IN") {
			if err := p.next(); err != nil {
				return nil, err
			}
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &BinaryExpr{Op: "IN", Left: left, Right: right}
			continue
		}
		if p.kw("STARTS") || p.kw("ENDS") || p.kw("CONTAINS") {
			op := strings.ToUpper(p.tok.Text)
			if err := p.next(); err != nil {
				return nil, err
			}
			if op != "CONTAINS" {
				if err := p.expectKw("WITH"); err != nil {
					return nil, err
				}
				op = op + " WITH"
			}
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &BinaryExpr{Op: op, Left: left, Right: right}
			continue
		}
		if p.kw("IS") {
			if err := p.next(); err != nil {
				return nil, err
			}
			negated := false
			if p.kw("NOT") {
				negated = true
				if err := p.next(); err != nil {
					return nil, err
				}
			}
			if err := p.expectKw("NULL"); err != nil {
				return nil, err
			}
			left = &IsNullExpr{Operand: left, Negated: negated}
			continue
		}
		break
	}
	return left, nil
}

func (p *Parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == TokPlus || p.tok.Kind == TokDash {
		op := "+"
		if p.tok.Kind == TokDash {
			op = "-"
		}
		if err := p.next(); err != nil {
			return nil, err
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (Expr, error) {
	left, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == TokStar || p.tok.Kind == TokSlash || p.tok.Kind == TokPercent {
		op := map[TokenKind]string{TokStar: "*", TokSlash: "/", TokPercent: "%"}[p.tok.Kind]
		if err := p.next(); err != nil {
			return nil, err
		}
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parsePower() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if p.tok.Kind == TokCaret {
		if err := p.next(); err != nil {
			return nil, err
		}
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Op: "^", Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *Parser) parseUnary() (Expr, error) {
	if p.tok.Kind == TokDash {
		if err := p.next(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: "-", Operand: operand}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		if p.tok.Kind == TokDot {
			if err := p.next(); err != nil {
				return nil, err
			}
			prop, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			expr = &PropertyAccess{Target: expr, Property: prop}
			continue
		}
		if p.tok.Kind == TokColon {
			if err := p.next(); err != nil {
				return nil, err
			}
			label, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			expr = &LabelCheck{Target: expr, Label: label}
			continue
		}
		break
	}
	return expr, nil
}

func (p *Parser) parsePrimary() (Expr, error) {
	switch {
	case p.tok.Kind == TokInt:
		n, err := strconv.ParseInt(p.tok.Text, 10, 64)
		if err != nil {
			return nil, p.syntaxErrorf("invalid integer literal %q", p.tok.Text)
		}
		if err := p.next(); err != nil {
			return nil, err
		}
		return &Literal{Value: n}, nil
	case p.tok.Kind == TokFloat:
		f, err := strconv.ParseFloat(p.tok.Text, 64)
		if err != nil {
			return nil, p.syntaxErrorf("invalid float literal %q", p.tok.Text)
		}
		if err := p.next(); err != nil {
			return nil, err
		}
		return &Literal{Value: f}, nil
	case p.tok.Kind == TokString:
		s := p.tok.Text
		if err := p.next(); err != nil {
			return nil, err
		}
		return &Literal{Value: s}, nil
	case p.tok.Kind == TokParam:
		name := p.tok.Text
		if err := p.next(); err != nil {
			return nil, err
		}
		return &Parameter{Name: name}, nil
	case p.tok.Kind == TokLParen:
		if err := p.next(); err != nil {
			return nil, err
		}
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRParen, ")"); err != nil {
			return nil, err
		}
		return expr, nil
	case p.tok.Kind == TokLBracket:
		return p.parseListOrComprehension()
	case p.tok.Kind == TokLBrace:
		return p.parseMapExpr()
	case p.kw("TRUE"):
		if err := p.next(); err != nil {
			return nil, err
		}
		return &Literal{Value: true}, nil
	case p.kw("FALSE"):
		if err := p.next(); err != nil {
			return nil, err
		}
		return &Literal{Value: false}, nil
	case p.kw("NULL"):
		if err := p.next(); err != nil {
			return nil, err
		}
		return &Literal{Value: nil}, nil
	case p.kw("CASE"):
		return p.parseCaseExpr()
	case p.kw("SHORTESTPATH"):
		return p.parsePathFunc(PathShortest)
	case p.kw("ALLSHORTESTPATHS"):
		return p.parsePathFunc(PathAllShortest)
	case p.tok.Kind == TokIdent:
		return p.parseIdentOrCall()
	}
	return nil, p.syntaxErrorf("unexpected token %q in expression", p.tok.Text)
}

// parsePathFunc handles shortestPath((a)-[*]-(b)) / allShortestPaths(...).
// The parenthesized argument is itself a Pattern, wrapped as a PatternExpr
// whose Pattern.Mode records which of the two functions wrapped it.
func (p *Parser) parsePathFunc(mode PathMode) (Expr, error) {
	if err := p.next(); err != nil {
		return nil, err
	}
	if _, err := p.expect(TokLParen, "("); err != nil {
		return nil, err
	}
	pat, err := p.parsePattern()
	if err != nil {
		return nil, err
	}
	pat.Mode = mode
	if _, err := p.expect(TokRParen, ")"); err != nil {
		return nil, err
	}
	return &PatternExpr{Pattern: pat}, nil
}

func isListPredicateName(name string) bool {
	switch strings.ToLower(name) {
	case "all", "any", "none", "single":
		return true
	}
	return false
}

// tryParseListPredicate handles the `all(x IN list WHERE pred)` family:
// unlike a plain function call, the parenthesized argument is an
// `ident IN expr [WHERE expr]` binding form, not a comma-separated
// expression list, so it cannot go through the generic call-arg parser.
// Reported as a FunctionCall wrapping a ListComprehension, so the renderer
// and the plain `[x IN list WHERE pred]` comprehension share one AST shape.
// ok is false (with the parser state restored) if the `(` is not followed
// by this binding form, letting the caller fall back to a normal call —
// e.g. a variable or pass-through function that happens to be named `all`.
func (p *Parser) tryParseListPredicate(name string) (Expr, bool, error) {
	save := *p
	if err := p.next(); err != nil {
		return nil, false, err
	}
	if p.tok.Kind != TokIdent || keywords[strings.ToUpper(p.tok.Text)] {
		*p = save
		return nil, false, nil
	}
	loopVar := p.tok.Text
	if err := p.next(); err != nil {
		return nil, false, err
	}
	if !p.kw("IN") {
		*p = save
		return nil, false, nil
	}
	if err := p.next(); err != nil {
		return nil, false, err
	}
	list, err := p.parseExpr()
	if err != nil {
		return nil, false, err
	}
	lc := &ListComprehension{Variable: loopVar, List: list}
	if p.kw("WHERE") {
		if err := p.next(); err != nil {
			return nil, false, err
		}
		where, err := p.parseExpr()
		if err != nil {
			return nil, false, err
		}
		lc.Where = where
	}
	if _, err := p.expect(TokRParen, ")"); err != nil {
		return nil, false, err
	}
	return &FunctionCall{Name: strings.ToLower(name), Args: []Expr{lc}}, true, nil
}

func (p *Parser) parseListOrComprehension() (Expr, error) {
	if _, err := p.expect(TokLBracket, "["); err != nil {
		return nil, err
	}
	// Lookahead for `ident IN expr ...]` comprehension form.
	if p.tok.Kind == TokIdent && !keywords[strings.ToUpper(p.tok.Text)] {
		save := *p
		name := p.tok.Text
		if err := p.next(); err != nil {
			return nil, err
		}
		if p.kw("IN") {
			if err := p.next(); err != nil {
				return nil, err
			}
			list, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			lc := &ListComprehension{Variable: name, List: list}
			if p.kw("WHERE") {
				if err := p.next(); err != nil {
					return nil, err
				}
				where, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				lc.Where = where
			}
			if p.tok.Kind == TokPipe {
				if err := p.next(); err != nil {
					return nil, err
				}
				proj, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				lc.Project = proj
			}
			if _, err := p.expect(TokRBracket, "]"); err != nil {
				return nil, err
			}
			return lc, nil
		}
		*p = save
	}

	list := &ListLiteral{}
	if p.tok.Kind != TokRBracket {
		for {
			item, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			list.Items = append(list.Items, item)
			if p.tok.Kind != TokComma {
				break
			}
			if err := p.next(); err != nil {
				return nil, err
			}
		}
	}
	if _, err := p.expect(TokRBracket, "]"); err != nil {
		return nil, err
	}
	return list, nil
}

func (p *Parser) parseMapExpr() (Expr, error) {
	m, err := p.parseMapLiteral()
	if err != nil {
		return nil, err
	}
	return &MapExpr{Entries: m.Entries}, nil
}

func (p *Parser) parseCaseExpr() (Expr, error) {
	if err := p.next(); err != nil { // consume CASE
		return nil, err
	}
	ce := &CaseExpr{}
	if !p.kw("WHEN") {
		test, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ce.Test = test
	}
	for p.kw("WHEN") {
		if err := p.next(); err != nil {
			return nil, err
		}
		when, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectKw("THEN"); err != nil {
			return nil, err
		}
		then, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ce.Whens = append(ce.Whens, CaseWhen{When: when, Then: then})
	}
	if p.kw("ELSE") {
		if err := p.next(); err != nil {
			return nil, err
		}
		elseExpr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ce.Else = elseExpr
	}
	if err := p.expectKw("END"); err != nil {
		return nil, err
	}
	return ce, nil
}

// parseIdentOrCall handles bare variables, function calls (including
// namespaced ones like ch.toDate(...) or chagg.quantile(...)), and
// DISTINCT-qualified aggregate calls like count(DISTINCT x).
func (p *Parser) parseIdentOrCall() (Expr, error) {
	var nameParts []string
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	nameParts = append(nameParts, name)
	for p.tok.Kind == TokDot {
		save := *p
		if err := p.next(); err != nil {
			return nil, err
		}
		if p.tok.Kind != TokIdent {
			*p = save
			break
		}
		part, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		nameParts = append(nameParts, part)
	}

	if len(nameParts) == 1 && p.tok.Kind == TokLParen && isListPredicateName(nameParts[0]) {
		if pred, ok, err := p.tryParseListPredicate(nameParts[0]); err != nil {
			return nil, err
		} else if ok {
			return pred, nil
		}
	}

	if p.tok.Kind == TokLParen {
		fn := &FunctionCall{Name: strings.Join(nameParts, ".")}
		if err := p.next(); err != nil {
			return nil, err
		}
		if p.kw("DISTINCT") {
			fn.Distinct = true
			if err := p.next(); err != nil {
				return nil, err
			}
		}
		if p.tok.Kind != TokRParen {
			for {
				if p.tok.Kind == TokStar {
					// count(*)
					if err := p.next(); err != nil {
						return nil, err
					}
					fn.Args = append(fn.Args, &Literal{Value: "*"})
				} else {
					arg, err := p.parseExpr()
					if err != nil {
						return nil, err
					}
					fn.Args = append(fn.Args, arg)
				}
				if p.tok.Kind != TokComma {
					break
				}
				if err := p.next(); err != nil {
					return nil, err
				}
			}
		}
		if _, err := p.expect(TokRParen, ")"); err != nil {
			return nil, err
		}
		return fn, nil
	}

	if len(nameParts) > 1 {
		// A dotted chain that did not end in a call is property access:
		// a.b.c => PropertyAccess(PropertyAccess(a, b), c).
		var expr Expr = &Variable{Name: nameParts[0]}
		for _, part := range nameParts[1:] {
			expr = &PropertyAccess{Target: expr, Property: part}
		}
		return expr, nil
	}
	return &Variable{Name: nameParts[0]}, nil
}
