package sparql

import "github.com/wbrown/sparqlite/algebra"

// parseUpdateRequest parses a ';'-separated sequence of UPDATE
// operations, each preceded by its own PREFIX/BASE prologue per the
// SPARQL 1.1 grammar.
func (p *Parser) parseUpdateRequest() (algebra.UpdateRequest, error) {
	var req algebra.UpdateRequest
	for {
		if err := p.parsePrologue(); err != nil {
			return req, err
		}
		if p.peek().Type == TokEOF {
			break
		}
		op, err := p.parseUpdateOp()
		if err != nil {
			return req, err
		}
		req.Operations = append(req.Operations, op)
		if p.peek().Type == TokSemicolon {
			p.next()
			if p.peek().Type == TokEOF {
				break
			}
			continue
		}
		break
	}
	return req, nil
}

func (p *Parser) parseUpdateOp() (algebra.UpdateOp, error) {
	switch p.peek().Type {
	case TokInsert:
		p.next()
		if p.peek().Type == TokData {
			p.next()
			triples, err := p.parseQuadData()
			if err != nil {
				return nil, err
			}
			return algebra.InsertData{Triples: triples}, nil
		}
		return p.parseInsertWhere(nil)
	case TokDelete:
		p.next()
		if p.peek().Type == TokData {
			p.next()
			triples, err := p.parseQuadData()
			if err != nil {
				return nil, err
			}
			return algebra.DeleteData{Triples: triples}, nil
		}
		if p.peek().Type == TokWhere {
			p.next()
			return p.parseDeleteWhereOnly()
		}
		if _, err := p.expect(TokLBrace, "{"); err != nil {
			return nil, err
		}
		delTmpl, err := p.parseTriplesBlock(TokRBrace)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRBrace, "}"); err != nil {
			return nil, err
		}
		if p.peek().Type == TokInsert {
			p.next()
			return p.parseInsertWhere(delTmpl)
		}
		return p.finishDeleteInsertWhere(delTmpl, nil)
	case TokClear:
		p.next()
		silent := p.consumeSilent()
		target, graph, err := p.parseClearTarget()
		if err != nil {
			return nil, err
		}
		return algebra.Clear{Target: target, Graph: graph, Silent: silent}, nil
	case TokCreate:
		p.next()
		silent := p.consumeSilent()
		if _, err := p.expect(TokGraph, "GRAPH"); err != nil {
			return nil, err
		}
		iri, err := p.parseIRITerm()
		if err != nil {
			return nil, err
		}
		return algebra.Create{Graph: iri.Value(), Silent: silent}, nil
	case TokDrop:
		p.next()
		silent := p.consumeSilent()
		target, graph, err := p.parseClearTarget()
		if err != nil {
			return nil, err
		}
		return algebra.Drop{Target: target, Graph: graph, Silent: silent}, nil
	case TokLoad:
		p.next()
		silent := p.consumeSilent()
		src, err := p.parseIRITerm()
		if err != nil {
			return nil, err
		}
		var into string
		if p.peek().Type == TokInto {
			p.next()
			if _, err := p.expect(TokGraph, "GRAPH"); err != nil {
				return nil, err
			}
			g, err := p.parseIRITerm()
			if err != nil {
				return nil, err
			}
			into = g.Value()
		}
		return algebra.Load{Source: src.Value(), Graph: into, Silent: silent}, nil
	default:
		t := p.peek()
		return nil, p.parseErr(t, "expected an UPDATE operation, got %q", t.Text)
	}
}

func (p *Parser) consumeSilent() bool {
	if p.peek().Type == TokSilent {
		p.next()
		return true
	}
	return false
}

func (p *Parser) parseClearTarget() (algebra.ClearTarget, string, error) {
	switch p.peek().Type {
	case TokDefault:
		p.next()
		return algebra.ClearDefault, "", nil
	case TokAll:
		p.next()
		return algebra.ClearAll, "", nil
	case TokNamed:
		p.next()
		return algebra.ClearNamed, "", nil
	case TokGraph:
		p.next()
		iri, err := p.parseIRITerm()
		if err != nil {
			return "", "", err
		}
		return algebra.ClearGraph, iri.Value(), nil
	default:
		t := p.peek()
		return "", "", p.parseErr(t, "expected DEFAULT|ALL|NAMED|GRAPH, got %q", t.Text)
	}
}

// parseQuadData parses "DATA { triples }" for INSERT/DELETE DATA: a
// brace-delimited triples block of ground terms only (no variables;
// the caller, exec.ExecuteUpdate, rejects a variable slipping through).
func (p *Parser) parseQuadData() ([]algebra.TriplePattern, error) {
	if _, err := p.expect(TokLBrace, "{"); err != nil {
		return nil, err
	}
	triples, err := p.parseTriplesBlock(TokRBrace)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokRBrace, "}"); err != nil {
		return nil, err
	}
	return triples, nil
}

// parseInsertWhere parses the continuation after "INSERT" in either
// "INSERT DATA"'s non-DATA form or a "DELETE {..} INSERT {..} WHERE
// {..}"/"INSERT {..} WHERE {..}" combination; delTmpl is nil for a
// pure INSERT...WHERE.
func (p *Parser) parseInsertWhere(delTmpl []algebra.TriplePattern) (algebra.UpdateOp, error) {
	if _, err := p.expect(TokLBrace, "{"); err != nil {
		return nil, err
	}
	insTmpl, err := p.parseTriplesBlock(TokRBrace)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokRBrace, "}"); err != nil {
		return nil, err
	}
	return p.finishDeleteInsertWhere(delTmpl, insTmpl)
}

func (p *Parser) finishDeleteInsertWhere(delTmpl, insTmpl []algebra.TriplePattern) (algebra.UpdateOp, error) {
	p.skipUsingClauses()
	if _, err := p.expect(TokWhere, "WHERE"); err != nil {
		return nil, err
	}
	pattern, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	return algebra.DeleteInsertWhere{DeleteTemplate: delTmpl, InsertTemplate: insTmpl, Pattern: pattern}, nil
}

func (p *Parser) skipUsingClauses() {
	for p.peek().Type == TokUsing {
		p.next()
		if p.peek().Type == TokNamed {
			p.next()
		}
		if p.peek().Type == TokIRIRef || p.peek().Type == TokPName {
			p.next()
		}
	}
}

// parseDeleteWhereOnly parses "DELETE WHERE { pattern }": the pattern
// doubles as both the delete template and the match clause, so it must
// consist only of plain triple patterns.
func (p *Parser) parseDeleteWhereOnly() (algebra.UpdateOp, error) {
	pattern, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	bgp, ok := pattern.(algebra.BGP)
	if !ok {
		return nil, p.parseErr(p.peek(), "DELETE WHERE requires a plain triple pattern, not a nested graph pattern")
	}
	return algebra.DeleteWhere{Patterns: bgp.Patterns, Pattern: pattern}, nil
}
