package sparql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wbrown/sparqlite/algebra"
	"github.com/wbrown/sparqlite/internal/errs"
	"github.com/wbrown/sparqlite/rdf"
)

// Parser turns SPARQL surface syntax into algebra trees, consuming the
// lexer's token channel through a small lookahead buffer, the same
// token-stream-to-recursive-descent shape as bql/grammar, simplified
// from its generic LL(k) table interpreter to a direct hand-written
// descent since this grammar does not need that generality.
type Parser struct {
	tokens   <-chan Token
	buf      []Token
	prefixes map[string]string
	base     string
	bnodeSeq int
}

func newParser(input string) *Parser {
	return &Parser{tokens: lex(input), prefixes: make(map[string]string)}
}

func (p *Parser) peekN(n int) Token {
	for len(p.buf) <= n {
		p.buf = append(p.buf, <-p.tokens)
	}
	return p.buf[n]
}

func (p *Parser) peek() Token { return p.peekN(0) }

func (p *Parser) next() Token {
	t := p.peek()
	p.buf = p.buf[1:]
	return t
}

func (p *Parser) parseErr(t Token, format string, args ...interface{}) error {
	return errs.NewParse(t.Line, t.Column, t.Text, format, args...)
}

func (p *Parser) expect(tt TokenType, what string) (Token, error) {
	t := p.peek()
	if t.Type != tt {
		return t, p.parseErr(t, "expected %s, got %q", what, t.Text)
	}
	return p.next(), nil
}

func (p *Parser) freshBlank() algebra.Symbol {
	p.bnodeSeq++
	return algebra.Symbol(fmt.Sprintf("?_anon%d", p.bnodeSeq))
}

// ParseQuery parses one SPARQL query (SELECT/ASK/CONSTRUCT/DESCRIBE)
// into a compiled query record.
func ParseQuery(input string) (*algebra.CompiledQuery, error) {
	p := newParser(input)
	raw, err := p.parseQuery()
	if err != nil {
		return nil, err
	}
	return algebra.Compile(*raw)
}

// ParseUpdate parses one or more ';'-separated SPARQL UPDATE operations.
func ParseUpdate(input string) (algebra.UpdateRequest, error) {
	p := newParser(input)
	return p.parseUpdateRequest()
}

func (p *Parser) parsePrologue() error {
	for {
		switch p.peek().Type {
		case TokPrefix:
			p.next()
			pfxTok, err := p.expect(TokPName, "prefix name")
			if err != nil {
				// A bare "PREFIX xyz:" lexes as a PName with an empty
				// local part; any other token here is a syntax error.
				return err
			}
			pfx := strings.TrimSuffix(pfxTok.Text, ":")
			if idx := strings.IndexByte(pfxTok.Text, ':'); idx >= 0 {
				pfx = pfxTok.Text[:idx]
			}
			iriTok, err := p.expect(TokIRIRef, "IRI reference")
			if err != nil {
				return err
			}
			p.prefixes[pfx] = iriTok.Text
		case TokBase:
			p.next()
			iriTok, err := p.expect(TokIRIRef, "IRI reference")
			if err != nil {
				return err
			}
			p.base = iriTok.Text
		default:
			return nil
		}
	}
}

func (p *Parser) parseQuery() (*algebra.RawQuery, error) {
	if err := p.parsePrologue(); err != nil {
		return nil, err
	}
	switch p.peek().Type {
	case TokSelect:
		return p.parseSelect()
	case TokAsk:
		return p.parseAsk()
	case TokConstruct:
		return p.parseConstruct()
	case TokDescribe:
		return p.parseDescribe()
	default:
		t := p.peek()
		return nil, p.parseErr(t, "expected SELECT/ASK/CONSTRUCT/DESCRIBE, got %q", t.Text)
	}
}

func (p *Parser) parseSelect() (*algebra.RawQuery, error) {
	p.next() // SELECT
	raw := &algebra.RawQuery{Type: algebra.Select, BaseIRI: p.base, Offset: 0, Limit: algebra.NoLimit}

	switch p.peek().Type {
	case TokDistinct:
		p.next()
		raw.Distinct = true
	case TokReduced:
		p.next()
		raw.Reduced = true
	}

	var extends []algebra.Extend
	var aggs []algebra.AggBinding
	switch p.peek().Type {
	case TokStar:
		p.next()
		raw.ProjectVars = nil
	default:
		var vars []algebra.Symbol
		for {
			if p.peek().Type == TokLParen {
				p.next()
				if agg, ok, err := p.tryParseAggregate(); err != nil {
					return nil, err
				} else if ok {
					if _, err := p.expect(TokAs, "AS"); err != nil {
						return nil, err
					}
					vTok, err := p.expect(TokVar, "variable")
					if err != nil {
						return nil, err
					}
					v := algebra.Symbol("?" + vTok.Text)
					aggs = append(aggs, algebra.AggBinding{Var: v, Agg: agg})
					vars = append(vars, v)
					if _, err := p.expect(TokRParen, ")"); err != nil {
						return nil, err
					}
					continue
				}
				e, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				if _, err := p.expect(TokAs, "AS"); err != nil {
					return nil, err
				}
				vTok, err := p.expect(TokVar, "variable")
				if err != nil {
					return nil, err
				}
				v := algebra.Symbol("?" + vTok.Text)
				extends = append(extends, algebra.Extend{Var: v, Expr: e})
				vars = append(vars, v)
				if _, err := p.expect(TokRParen, ")"); err != nil {
					return nil, err
				}
				continue
			}
			if p.peek().Type != TokVar {
				break
			}
			vTok := p.next()
			vars = append(vars, algebra.Symbol("?"+vTok.Text))
		}
		raw.ProjectVars = vars
	}

	p.skipDatasetClauses()

	if _, err := p.expect(TokWhere, "WHERE"); err != nil {
		return nil, err
	}
	pattern, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}

	groupVars, having, err := p.parseGroupAndHaving()
	if err != nil {
		return nil, err
	}
	if len(aggs) > 0 || groupVars != nil {
		pattern = algebra.Group{P: pattern, By: groupVars, Aggs: aggs}
		if having != nil {
			pattern = algebra.Filter{Expr: having, P: pattern}
		}
	}
	for _, e := range extends {
		pattern = algebra.Extend{P: pattern, Var: e.Var, Expr: e.Expr}
	}
	raw.Pattern = pattern

	if err := p.parseSolutionModifiers(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// parseGroupAndHaving parses the optional "GROUP BY var+" and
// "HAVING (expr)" solution-modifier clauses, which must be consumed
// before ORDER BY/LIMIT/OFFSET per the SPARQL 1.1 grammar.
func (p *Parser) parseGroupAndHaving() ([]algebra.Symbol, algebra.Expr, error) {
	var groupVars []algebra.Symbol
	var having algebra.Expr
	if p.peek().Type == TokGroup {
		p.next()
		if _, err := p.expect(TokBy, "BY"); err != nil {
			return nil, nil, err
		}
		for p.peek().Type == TokVar {
			t := p.next()
			groupVars = append(groupVars, algebra.Symbol("?"+t.Text))
		}
		if groupVars == nil {
			groupVars = []algebra.Symbol{}
		}
	}
	if p.peek().Type == TokHaving {
		p.next()
		e, err := p.parseConstraint()
		if err != nil {
			return nil, nil, err
		}
		having = e
	}
	return groupVars, having, nil
}

func (p *Parser) skipDatasetClauses() {
	for p.peek().Type == TokFrom {
		p.next()
		if p.peek().Type == TokNamed {
			p.next()
		}
		if p.peek().Type == TokIRIRef {
			p.next()
		}
	}
}

func (p *Parser) parseAsk() (*algebra.RawQuery, error) {
	p.next() // ASK
	p.skipDatasetClauses()
	if _, err := p.expect(TokWhere, "WHERE"); err != nil {
		return nil, err
	}
	pattern, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	return &algebra.RawQuery{Type: algebra.Ask, Pattern: pattern, BaseIRI: p.base, Limit: algebra.NoLimit}, nil
}

func (p *Parser) parseConstruct() (*algebra.RawQuery, error) {
	p.next() // CONSTRUCT
	if _, err := p.expect(TokLBrace, "{"); err != nil {
		return nil, err
	}
	template, err := p.parseTriplesBlock(TokRBrace)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokRBrace, "}"); err != nil {
		return nil, err
	}
	p.skipDatasetClauses()
	if _, err := p.expect(TokWhere, "WHERE"); err != nil {
		return nil, err
	}
	pattern, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	raw := &algebra.RawQuery{Type: algebra.Construct, Pattern: pattern, Template: template, BaseIRI: p.base, Limit: algebra.NoLimit}
	return raw, nil
}

func (p *Parser) parseDescribe() (*algebra.RawQuery, error) {
	p.next() // DESCRIBE
	raw := &algebra.RawQuery{Type: algebra.Describe, BaseIRI: p.base, Limit: algebra.NoLimit}
	if p.peek().Type == TokStar {
		p.next()
	} else {
		for {
			switch p.peek().Type {
			case TokVar:
				t := p.next()
				raw.Describe = append(raw.Describe, algebra.Var(algebra.Symbol("?"+t.Text)))
			case TokIRIRef, TokPName:
				term, err := p.parseIRITerm()
				if err != nil {
					return nil, err
				}
				raw.Describe = append(raw.Describe, algebra.Const(term))
			default:
				return raw, p.finishDescribe(raw)
			}
		}
	}
	return raw, p.finishDescribe(raw)
}

func (p *Parser) finishDescribe(raw *algebra.RawQuery) error {
	p.skipDatasetClauses()
	if p.peek().Type == TokWhere || p.peek().Type == TokLBrace {
		if p.peek().Type == TokWhere {
			p.next()
		}
		pattern, err := p.parseGroupGraphPattern()
		if err != nil {
			return err
		}
		raw.Pattern = pattern
	} else {
		raw.Pattern = algebra.BGP{}
	}
	return nil
}

func (p *Parser) parseSolutionModifiers(raw *algebra.RawQuery) error {
	if p.peek().Type == TokOrder {
		p.next()
		if _, err := p.expect(TokBy, "BY"); err != nil {
			return err
		}
		for {
			desc := false
			if p.peek().Type == TokAsc {
				p.next()
			} else if p.peek().Type == TokDesc {
				p.next()
				desc = true
			}
			e, err := p.parseOrderKeyExpr()
			if err != nil {
				return err
			}
			raw.OrderBy = append(raw.OrderBy, algebra.OrderKey{Expr: e, Desc: desc})
			if p.peek().Type != TokVar && p.peek().Type != TokLParen {
				break
			}
		}
	}
	if p.peek().Type == TokLimit {
		p.next()
		t, err := p.expect(TokNumeric, "integer")
		if err != nil {
			return err
		}
		n, _ := strconv.Atoi(t.Text)
		raw.Limit = n
	}
	if p.peek().Type == TokOffset {
		p.next()
		t, err := p.expect(TokNumeric, "integer")
		if err != nil {
			return err
		}
		n, _ := strconv.Atoi(t.Text)
		raw.Offset = n
	}
	return nil
}

func (p *Parser) parseOrderKeyExpr() (algebra.Expr, error) {
	if p.peek().Type == TokLParen {
		p.next()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRParen, ")"); err != nil {
			return nil, err
		}
		return e, nil
	}
	return p.parseExpr()
}

// parseGroupGraphPattern parses "{ ... }": a sequence of triples
// blocks, FILTER/BIND clauses, OPTIONAL/UNION/MINUS/GRAPH sub-patterns,
// combined left-to-right per SPARQL 1.1's group-graph-pattern grammar.
func (p *Parser) parseGroupGraphPattern() (algebra.Node, error) {
	if _, err := p.expect(TokLBrace, "{"); err != nil {
		return nil, err
	}
	var acc algebra.Node = algebra.BGP{}
	haveBGP := false

	join := func(n algebra.Node) {
		if !haveBGP {
			acc = n
			haveBGP = true
			return
		}
		acc = algebra.Join{L: acc, R: n}
	}

	for {
		switch p.peek().Type {
		case TokRBrace:
			p.next()
			return acc, nil
		case TokFilter:
			p.next()
			e, err := p.parseConstraint()
			if err != nil {
				return nil, err
			}
			acc = algebra.Filter{Expr: e, P: acc}
		case TokBind:
			p.next()
			if _, err := p.expect(TokLParen, "("); err != nil {
				return nil, err
			}
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokAs, "AS"); err != nil {
				return nil, err
			}
			vTok, err := p.expect(TokVar, "variable")
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokRParen, ")"); err != nil {
				return nil, err
			}
			acc = algebra.Extend{P: acc, Var: algebra.Symbol("?" + vTok.Text), Expr: e}
		case TokValues:
			p.next()
			v, err := p.parseValues()
			if err != nil {
				return nil, err
			}
			join(v)
		case TokOptional:
			p.next()
			inner, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			acc = algebra.LeftJoin{L: acc, R: inner}
			haveBGP = true
		case TokMinus:
			p.next()
			inner, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			acc = algebra.Minus{L: acc, R: inner}
			haveBGP = true
		case TokGraph:
			p.next()
			var gt algebra.PatternTerm
			switch p.peek().Type {
			case TokVar:
				t := p.next()
				gt = algebra.Var(algebra.Symbol("?" + t.Text))
			default:
				term, err := p.parseIRITerm()
				if err != nil {
					return nil, err
				}
				gt = algebra.Const(term)
			}
			inner, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			join(algebra.Graph{Term: gt, P: inner})
		case TokLBrace:
			first, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			if p.peek().Type == TokUnion {
				cur := first
				for p.peek().Type == TokUnion {
					p.next()
					rhs, err := p.parseGroupGraphPattern()
					if err != nil {
						return nil, err
					}
					cur = algebra.Union{L: cur, R: rhs}
				}
				join(cur)
			} else {
				join(first)
			}
		default:
			triples, err := p.parseTriplesBlock(TokRBrace)
			if err != nil {
				return nil, err
			}
			if len(triples) > 0 {
				join(algebra.BGP{Patterns: triples})
			}
			if p.peek().Type != TokRBrace && p.peek().Type != TokDot {
				// Triples block consumed nothing further to parse and
				// we are not at a recognized clause start; avoid looping
				// forever on an unexpected token.
				if len(triples) == 0 {
					t := p.peek()
					return nil, p.parseErr(t, "unexpected token %q in graph pattern", t.Text)
				}
			}
		}
	}
}

// parseValues parses "VALUES (?x ?y) { (term term) (term term) }" or
// the single-variable short form "VALUES ?x { term term }".
func (p *Parser) parseValues() (algebra.Node, error) {
	var vars []algebra.Symbol
	if p.peek().Type == TokLParen {
		p.next()
		for p.peek().Type == TokVar {
			t := p.next()
			vars = append(vars, algebra.Symbol("?"+t.Text))
		}
		if _, err := p.expect(TokRParen, ")"); err != nil {
			return nil, err
		}
	} else {
		t, err := p.expect(TokVar, "variable")
		if err != nil {
			return nil, err
		}
		vars = []algebra.Symbol{algebra.Symbol("?" + t.Text)}
	}
	if _, err := p.expect(TokLBrace, "{"); err != nil {
		return nil, err
	}
	var rows []algebra.ValuesRow
	for p.peek().Type != TokRBrace {
		var row algebra.ValuesRow
		if p.peek().Type == TokLParen {
			p.next()
			for p.peek().Type != TokRParen {
				term, err := p.parseValuesTerm()
				if err != nil {
					return nil, err
				}
				row = append(row, term)
			}
			if _, err := p.expect(TokRParen, ")"); err != nil {
				return nil, err
			}
		} else {
			term, err := p.parseValuesTerm()
			if err != nil {
				return nil, err
			}
			row = append(row, term)
		}
		rows = append(rows, row)
	}
	p.next() // RBRACE
	return algebra.Values{Vars: vars, Rows: rows}, nil
}

func (p *Parser) parseValuesTerm() (*rdf.Term, error) {
	if p.peek().Type == TokUndef {
		p.next()
		return nil, nil
	}
	t, err := p.parseTermLiteralOrIRI()
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseConstraint parses a FILTER's argument: either a bracketted
// expression, a built-in call, or a function call.
func (p *Parser) parseConstraint() (algebra.Expr, error) {
	if p.peek().Type == TokLParen {
		return p.parseExpr()
	}
	return p.parsePrimaryExpr()
}

// parseTriplesBlock parses a run of "s p o ." triples terminated by
// stop (the group's closing brace), supporting ';' predicate-object
// lists and ',' object lists.
func (p *Parser) parseTriplesBlock(stop TokenType) ([]algebra.TriplePattern, error) {
	var out []algebra.TriplePattern
	for {
		switch p.peek().Type {
		case stop, TokFilter, TokBind, TokOptional, TokUnion, TokMinus,
			TokGraph, TokValues, TokLBrace, TokRBrace:
			return out, nil
		}
		subj, err := p.parseGraphTerm()
		if err != nil {
			return nil, err
		}
		for {
			pred, err := p.parsePredicate()
			if err != nil {
				return nil, err
			}
			for {
				obj, err := p.parseGraphTerm()
				if err != nil {
					return nil, err
				}
				out = append(out, algebra.TriplePattern{Subject: subj, Predicate: pred, Object: obj})
				if p.peek().Type == TokComma {
					p.next()
					continue
				}
				break
			}
			if p.peek().Type == TokSemicolon {
				p.next()
				continue
			}
			break
		}
		if p.peek().Type == TokDot {
			p.next()
			continue
		}
		return out, nil
	}
}

func (p *Parser) parsePredicate() (algebra.PatternTerm, error) {
	if p.peek().Type == TokA {
		p.next()
		return algebra.Const(rdf.IRI("http://www.w3.org/1999/02/22-rdf-syntax-ns#type")), nil
	}
	return p.parseGraphTerm()
}

// parseGraphTerm parses one triple-pattern position: variable, IRI,
// blank node, literal, or anonymous blank node.
func (p *Parser) parseGraphTerm() (algebra.PatternTerm, error) {
	t := p.peek()
	switch t.Type {
	case TokVar:
		p.next()
		return algebra.Var(algebra.Symbol("?" + t.Text)), nil
	case TokAnonBlank:
		p.next()
		return algebra.Var(p.freshBlank()), nil
	case TokBlankNode:
		p.next()
		return algebra.Var(algebra.Symbol("?_bnode_" + t.Text)), nil
	default:
		term, err := p.parseTermLiteralOrIRI()
		if err != nil {
			return algebra.PatternTerm{}, err
		}
		return algebra.Const(term), nil
	}
}

func (p *Parser) parseTermLiteralOrIRI() (rdf.Term, error) {
	t := p.peek()
	switch t.Type {
	case TokIRIRef, TokPName:
		return p.parseIRITerm()
	case TokString:
		p.next()
		value := t.Text
		if p.peek().Type == TokLangTag {
			lt := p.next()
			return rdf.LangLiteral(value, lt.Text), nil
		}
		if p.peek().Type == TokCaret2 {
			p.next()
			dt, err := p.parseIRITerm()
			if err != nil {
				return rdf.Term{}, err
			}
			return rdf.TypedLiteral(value, dt.Value()), nil
		}
		return rdf.SimpleLiteral(value), nil
	case TokNumeric:
		p.next()
		return numericTerm(t.Text), nil
	case TokTrue:
		p.next()
		return rdf.TypedLiteral("true", rdf.XSDBoolean), nil
	case TokFalse:
		p.next()
		return rdf.TypedLiteral("false", rdf.XSDBoolean), nil
	default:
		return rdf.Term{}, p.parseErr(t, "expected a term, got %q", t.Text)
	}
}

func numericTerm(lexeme string) rdf.Term {
	switch {
	case strings.ContainsAny(lexeme, "eE"):
		return rdf.TypedLiteral(lexeme, rdf.XSDDouble)
	case strings.Contains(lexeme, "."):
		return rdf.TypedLiteral(lexeme, rdf.XSDDecimal)
	default:
		return rdf.TypedLiteral(lexeme, rdf.XSDInteger)
	}
}

func (p *Parser) parseIRITerm() (rdf.Term, error) {
	t := p.peek()
	switch t.Type {
	case TokIRIRef:
		p.next()
		return rdf.IRI(p.resolveIRI(t.Text)), nil
	case TokPName:
		p.next()
		idx := strings.IndexByte(t.Text, ':')
		pfx, local := t.Text[:idx], t.Text[idx+1:]
		base, ok := p.prefixes[pfx]
		if !ok {
			return rdf.Term{}, p.parseErr(t, "undeclared prefix %q", pfx)
		}
		return rdf.IRI(base + local), nil
	default:
		return rdf.Term{}, p.parseErr(t, "expected an IRI, got %q", t.Text)
	}
}

func (p *Parser) resolveIRI(iri string) string {
	if p.base == "" || strings.Contains(iri, "://") {
		return iri
	}
	return p.base + iri
}
