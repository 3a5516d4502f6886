package sparql

import (
	"strings"

	"github.com/wbrown/sparqlite/algebra"
)

// parseExpr parses a full FILTER/BIND/ORDER-BY expression:
// ConditionalOrExpression, the top of SPARQL 1.1's expression grammar.
func (p *Parser) parseExpr() (algebra.Expr, error) {
	left, err := p.parseAndExpr()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == TokPipe2 {
		p.next()
		right, err := p.parseAndExpr()
		if err != nil {
			return nil, err
		}
		left = algebra.Call{Func: "||", Args: []algebra.Expr{left, right}}
	}
	return left, nil
}

func (p *Parser) parseAndExpr() (algebra.Expr, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == TokAmp2 {
		p.next()
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = algebra.Call{Func: "&&", Args: []algebra.Expr{left, right}}
	}
	return left, nil
}

func (p *Parser) parseRelational() (algebra.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	switch p.peek().Type {
	case TokEq, TokNe, TokLt, TokGt, TokLe, TokGe:
		op := p.next()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return algebra.Call{Func: tokOpName(op.Type), Args: []algebra.Expr{left, right}}, nil
	case TokNot:
		p.next()
		if _, err := p.expect(TokIn, "IN"); err != nil {
			return nil, err
		}
		list, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		return algebra.Call{Func: "!", Args: []algebra.Expr{
			algebra.Call{Func: "in", Args: append([]algebra.Expr{left}, list...)},
		}}, nil
	case TokIn:
		p.next()
		list, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		return algebra.Call{Func: "in", Args: append([]algebra.Expr{left}, list...)}, nil
	}
	return left, nil
}

func tokOpName(t TokenType) string {
	switch t {
	case TokEq:
		return "="
	case TokNe:
		return "!="
	case TokLt:
		return "<"
	case TokGt:
		return ">"
	case TokLe:
		return "<="
	case TokGe:
		return ">="
	}
	return "?"
}

func (p *Parser) parseExprList() ([]algebra.Expr, error) {
	if _, err := p.expect(TokLParen, "("); err != nil {
		return nil, err
	}
	var out []algebra.Expr
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
		if p.peek().Type == TokComma {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expect(TokRParen, ")"); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Parser) parseAdditive() (algebra.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == TokPlus || p.peek().Type == TokMinus_ {
		op := p.next()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		fn := "+"
		if op.Type == TokMinus_ {
			fn = "-"
		}
		left = algebra.Call{Func: fn, Args: []algebra.Expr{left, right}}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (algebra.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == TokStar || p.peek().Type == TokSlash {
		op := p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		fn := "*"
		if op.Type == TokSlash {
			fn = "/"
		}
		left = algebra.Call{Func: fn, Args: []algebra.Expr{left, right}}
	}
	return left, nil
}

func (p *Parser) parseUnary() (algebra.Expr, error) {
	switch p.peek().Type {
	case TokBang:
		p.next()
		e, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return algebra.Call{Func: "!", Args: []algebra.Expr{e}}, nil
	case TokPlus:
		p.next()
		return p.parseUnary()
	case TokMinus_:
		p.next()
		e, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return algebra.Call{Func: "neg", Args: []algebra.Expr{e}}, nil
	}
	return p.parsePrimaryExpr()
}

// parsePrimaryExpr parses a bracketted expression, a built-in call, a
// function call, a variable, or a literal.
func (p *Parser) parsePrimaryExpr() (algebra.Expr, error) {
	t := p.peek()
	switch t.Type {
	case TokLParen:
		p.next()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRParen, ")"); err != nil {
			return nil, err
		}
		return e, nil
	case TokVar:
		p.next()
		return algebra.VarRef{Name: algebra.Symbol("?" + t.Text)}, nil
	case TokNot:
		// NOT EXISTS { ... } is parsed and then rejected at evaluation
		// time; the parser still needs to consume the clause so the
		// rest of the query parses.
		p.next()
		if _, err := p.expect(TokExists, "EXISTS"); err != nil {
			return nil, err
		}
		if _, err := p.parseGroupGraphPattern(); err != nil {
			return nil, err
		}
		return algebra.Call{Func: "notexists"}, nil
	case TokExists:
		p.next()
		if _, err := p.parseGroupGraphPattern(); err != nil {
			return nil, err
		}
		return algebra.Call{Func: "exists"}, nil
	case TokIdent, TokA:
		return p.parseFunctionOrBuiltin()
	case TokIRIRef, TokPName:
		iriTerm, err := p.parseIRITerm()
		if err != nil {
			return nil, err
		}
		if p.peek().Type == TokLParen {
			return p.parseCallArgs(iriTerm.Value())
		}
		return algebra.Lit{Value: iriTerm}, nil
	case TokString, TokNumeric, TokTrue, TokFalse:
		term, err := p.parseTermLiteralOrIRI()
		if err != nil {
			return nil, err
		}
		return algebra.Lit{Value: term}, nil
	default:
		return nil, p.parseErr(t, "unexpected token %q in expression", t.Text)
	}
}

// parseFunctionOrBuiltin dispatches a bare identifier to a SPARQL
// built-in (REGEX, SUBSTR, BOUND, ...) or an unqualified function
// call. Aggregates are parsed separately by tryParseAggregate at the
// SELECT-projection-item call site only, since an aggregate produces an
// algebra.Aggregate, not an algebra.Expr; inside HAVING or any other
// expression an aggregate name parses as an ordinary function call.
func (p *Parser) parseFunctionOrBuiltin() (algebra.Expr, error) {
	t := p.next()
	name := strings.ToLower(t.Text)
	return p.parseCallArgs(name)
}

var aggregateNames = map[string]bool{
	"count": true, "sum": true, "avg": true, "min": true, "max": true,
	"group_concat": true, "sample": true,
}

// tryParseAggregate recognizes "AGGNAME(" at the current position
// without consuming anything if it doesn't match, so callers can fall
// back to parseExpr for plain expressions.
func (p *Parser) tryParseAggregate() (algebra.Aggregate, bool, error) {
	t := p.peek()
	if t.Type != TokIdent {
		return algebra.Aggregate{}, false, nil
	}
	name := strings.ToLower(t.Text)
	if !aggregateNames[name] || p.peekN(1).Type != TokLParen {
		return algebra.Aggregate{}, false, nil
	}
	p.next() // consume the name
	agg, err := p.parseAggregateExpr(name)
	return agg, true, err
}

func (p *Parser) parseCallArgs(name string) (algebra.Expr, error) {
	if _, err := p.expect(TokLParen, "("); err != nil {
		return nil, err
	}
	var args []algebra.Expr
	if p.peek().Type == TokDistinct {
		p.next()
	}
	for p.peek().Type != TokRParen {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		if p.peek().Type == TokComma {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expect(TokRParen, ")"); err != nil {
		return nil, err
	}
	return algebra.Call{Func: strings.ToLower(name), Args: args}, nil
}

// parseAggregateExpr parses "(" [DISTINCT] (expr | "*") ")" for an
// aggregate whose name the caller (tryParseAggregate) already consumed.
func (p *Parser) parseAggregateExpr(name string) (algebra.Aggregate, error) {
	if _, err := p.expect(TokLParen, "("); err != nil {
		return algebra.Aggregate{}, err
	}
	distinct := false
	if p.peek().Type == TokDistinct {
		p.next()
		distinct = true
	}
	var arg algebra.Expr
	star := false
	if p.peek().Type == TokStar {
		p.next()
		star = true
	} else {
		e, err := p.parseExpr()
		if err != nil {
			return algebra.Aggregate{}, err
		}
		arg = e
	}
	sep := " "
	if name == "group_concat" && p.peek().Type == TokSemicolon {
		// GROUP_CONCAT(expr ; SEPARATOR = "...").
		p.next()
		kw, err := p.expect(TokIdent, "SEPARATOR")
		if err != nil {
			return algebra.Aggregate{}, err
		}
		if !strings.EqualFold(kw.Text, "separator") {
			return algebra.Aggregate{}, p.parseErr(kw, "expected SEPARATOR, got %q", kw.Text)
		}
		if _, err := p.expect(TokEq, "="); err != nil {
			return algebra.Aggregate{}, err
		}
		sepTok, err := p.expect(TokString, "separator string")
		if err != nil {
			return algebra.Aggregate{}, err
		}
		sep = sepTok.Text
	}
	if _, err := p.expect(TokRParen, ")"); err != nil {
		return algebra.Aggregate{}, err
	}
	return algebra.Aggregate{Func: name, Arg: arg, Distinct: distinct, Sep: sep, Star: star}, nil
}
