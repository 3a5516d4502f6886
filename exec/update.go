package exec

import (
	"time"

	"github.com/wbrown/sparqlite/algebra"
	"github.com/wbrown/sparqlite/dict"
	"github.com/wbrown/sparqlite/expr"
	"github.com/wbrown/sparqlite/internal/errs"
	"github.com/wbrown/sparqlite/plan"
	"github.com/wbrown/sparqlite/rdf"
	"github.com/wbrown/sparqlite/store"
)

// clearChunkSize is the batch size CLEAR/DROP stream triples out in.
const clearChunkSize = 10_000

// ExecuteUpdate runs req's operations sequentially against c. Each
// operation is atomic with respect to the store; a failing operation
// does not roll back the ones before it. It returns the total number
// of triples affected (inserted + deleted) across all
// operations that succeeded, and the first error encountered, if any.
func ExecuteUpdate(c *Context, req algebra.UpdateRequest, stats *plan.Statistics) (int64, error) {
	var total int64
	for _, op := range req.Operations {
		n, err := c.executeOne(op, stats)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (c *Context) executeOne(op algebra.UpdateOp, stats *plan.Statistics) (int64, error) {
	switch v := op.(type) {
	case algebra.InsertData:
		return c.execInsertData(v.Triples)
	case algebra.DeleteData:
		return c.execDeleteData(v.Triples)
	case algebra.DeleteInsertWhere:
		return c.execDeleteInsertWhere(v.DeleteTemplate, v.InsertTemplate, v.Pattern, stats)
	case algebra.DeleteWhere:
		return c.execDeleteInsertWhere(v.Patterns, nil, v.Pattern, stats)
	case algebra.Clear:
		return c.execClear(v.Target, v.Silent)
	case algebra.Drop:
		return c.execDrop(v.Target, v.Silent)
	case algebra.Create:
		return 0, nil
	case algebra.Load:
		if v.Silent {
			return 0, nil
		}
		return 0, errs.New(errs.LoadNotImplemented, "LOAD is not supported by this core")
	default:
		return 0, errs.New(errs.UnsupportedOperation, "no executor case for update op %T", op)
	}
}

// groundTriples encodes template (every position required to be a
// concrete term) into store triples, creating dictionary ids as needed.
func (c *Context) groundTriples(template []algebra.TriplePattern) ([]store.Triple, error) {
	out := make([]store.Triple, 0, len(template))
	for _, tp := range template {
		if tp.Subject.IsVariable() || tp.Predicate.IsVariable() || tp.Object.IsVariable() {
			return nil, errs.New(errs.InvalidUpdateAST, "INSERT/DELETE DATA triples must be ground")
		}
		s, err := c.encodeTerm(tp.Subject.Term())
		if err != nil {
			return nil, err
		}
		p, err := c.encodeTerm(tp.Predicate.Term())
		if err != nil {
			return nil, err
		}
		o, err := c.encodeTerm(tp.Object.Term())
		if err != nil {
			return nil, err
		}
		out = append(out, store.Triple{S: s, P: p, O: o})
	}
	return out, nil
}

func (c *Context) execInsertData(triples []algebra.TriplePattern) (int64, error) {
	if len(triples) > c.Limits.MaxTriplesPerUpdate {
		return 0, errs.New(errs.TooManyTriples, "INSERT DATA exceeds %d triples", c.Limits.MaxTriplesPerUpdate)
	}
	ground, err := c.groundTriples(triples)
	if err != nil {
		return 0, err
	}
	if err := c.Store.InsertTriples(ground); err != nil {
		return 0, err
	}
	return int64(len(ground)), nil
}

func (c *Context) execDeleteData(triples []algebra.TriplePattern) (int64, error) {
	if len(triples) > c.Limits.MaxTriplesPerUpdate {
		return 0, errs.New(errs.TooManyTriples, "DELETE DATA exceeds %d triples", c.Limits.MaxTriplesPerUpdate)
	}
	var ground []store.Triple
	for _, tp := range triples {
		if tp.Subject.IsVariable() || tp.Predicate.IsVariable() || tp.Object.IsVariable() {
			return 0, errs.New(errs.InvalidUpdateAST, "DELETE DATA triples must be ground")
		}
		s, ok := c.lookupTerm(tp.Subject.Term())
		if !ok {
			continue // never encoded: nothing to delete, skip silently
		}
		p, ok := c.lookupTerm(tp.Predicate.Term())
		if !ok {
			continue
		}
		o, ok := c.lookupTerm(tp.Object.Term())
		if !ok {
			continue
		}
		ground = append(ground, store.Triple{S: s, P: p, O: o})
	}
	if err := c.Store.DeleteTriples(ground); err != nil {
		return 0, err
	}
	return int64(len(ground)), nil
}

// maxWhereMatches bounds how many WHERE-clause bindings a DELETE/INSERT
// WHERE operation may produce before it fails outright.
const maxWhereMatches = 1_000_000

func (c *Context) execDeleteInsertWhere(deleteTmpl, insertTmpl []algebra.TriplePattern, pattern algebra.Node, stats *plan.Statistics) (int64, error) {
	if len(deleteTmpl) > c.Limits.MaxTemplateSize || len(insertTmpl) > c.Limits.MaxTemplateSize {
		return 0, errs.New(errs.TemplateTooLarge, "DELETE/INSERT template exceeds %d triples", c.Limits.MaxTemplateSize)
	}

	evaluator := expr.NewEvaluator(c.Ctx, time.Now())
	stream, err := c.Eval(pattern, evaluator, stats)
	if err != nil {
		return 0, err
	}
	bindings, err := drainBounded(stream, maxWhereMatches)
	if err != nil {
		return 0, err
	}

	var toDelete, toInsert []store.Triple
	for _, b := range bindings {
		for _, tp := range deleteTmpl {
			t, ok := c.instantiateGround(tp, b, false)
			if ok {
				toDelete = append(toDelete, t)
			}
		}
		for _, tp := range insertTmpl {
			t, ok := c.instantiateGround(tp, b, true)
			if ok {
				toInsert = append(toInsert, t)
			}
		}
	}

	if len(toDelete) > 0 || len(toInsert) > 0 {
		// Deletes and inserts go through one atomic batch: a failure
		// must not leave the deletes committed without the inserts.
		if err := c.Store.WriteBatch(toDelete, toInsert); err != nil {
			return 0, err
		}
	}
	return int64(len(toDelete) + len(toInsert)), nil
}

// instantiateGround resolves tp's positions against binding into a
// store.Triple. create controls whether an unresolvable constant mints
// a fresh dictionary id (INSERT template) or simply fails the triple
// (DELETE template: a term never seen cannot match anything to delete).
// An unbound template variable fails the whole triple either way.
func (c *Context) instantiateGround(tp algebra.TriplePattern, b algebra.Binding, create bool) (store.Triple, bool) {
	s, ok := c.instantiateOneTerm(tp.Subject, b, create)
	if !ok {
		return store.Triple{}, false
	}
	p, ok := c.instantiateOneTerm(tp.Predicate, b, create)
	if !ok {
		return store.Triple{}, false
	}
	o, ok := c.instantiateOneTerm(tp.Object, b, create)
	if !ok {
		return store.Triple{}, false
	}
	return store.Triple{S: s, P: p, O: o}, true
}

func (c *Context) instantiateOneTerm(t algebra.PatternTerm, b algebra.Binding, create bool) (dict.ID, bool) {
	var term rdf.Term
	if t.IsVariable() {
		v, ok := b.Get(t.Variable())
		if !ok {
			return 0, false
		}
		term = v
	} else {
		term = t.Term()
	}
	if create {
		id, err := c.encodeTerm(term)
		if err != nil {
			return 0, false
		}
		return id, true
	}
	return c.lookupTerm(term)
}

// execClear deletes every triple in the default graph (target
// default/all); named-graph targets return 0 when silent and an error
// otherwise.
func (c *Context) execClear(target algebra.ClearTarget, silent bool) (int64, error) {
	switch target {
	case algebra.ClearDefault, algebra.ClearAll:
		return c.clearAllTriples()
	case algebra.ClearNamed, algebra.ClearGraph:
		if silent {
			return 0, nil
		}
		return 0, errs.New(errs.NamedGraphsNotSupported, "CLEAR NAMED/GRAPH is not supported")
	default:
		return 0, errs.New(errs.InvalidClearTarget, "unknown CLEAR target %q", target)
	}
}

// execDrop behaves exactly like execClear for every target, including
// the silent/error handling of NAMED and GRAPH (no named graphs are
// modeled).
func (c *Context) execDrop(target algebra.ClearTarget, silent bool) (int64, error) {
	return c.execClear(target, silent)
}

// clearAllTriples streams the entire triple set out in clearChunkSize
// batches and deletes each chunk.
func (c *Context) clearAllTriples() (int64, error) {
	it, err := c.Store.Lookup(store.Pattern{})
	if err != nil {
		return 0, err
	}
	defer it.Close()

	var total int64
	chunk := make([]store.Triple, 0, clearChunkSize)
	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		if err := c.Store.DeleteTriples(chunk); err != nil {
			return err
		}
		total += int64(len(chunk))
		chunk = chunk[:0]
		return nil
	}
	for it.Next() {
		chunk = append(chunk, it.Triple())
		if len(chunk) >= clearChunkSize {
			if err := flush(); err != nil {
				return total, err
			}
			if err := c.checkCtx(); err != nil {
				return total, err
			}
		}
	}
	if err := it.Err(); err != nil {
		return total, err
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

// drainBounded materializes s's bindings, failing if more than max are
// produced.
func drainBounded(s Stream, max int) ([]algebra.Binding, error) {
	defer s.Close()
	var out []algebra.Binding
	for s.Next() {
		if len(out) >= max {
			return nil, errs.New(errs.TooManyMatches, "WHERE pattern exceeded %d matching bindings", max)
		}
		out = append(out, s.Binding())
	}
	return out, s.Err()
}
