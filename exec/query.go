package exec

import (
	"context"
	"time"

	"github.com/pborman/uuid"

	"github.com/wbrown/sparqlite/algebra"
	"github.com/wbrown/sparqlite/dict"
	"github.com/wbrown/sparqlite/expr"
	"github.com/wbrown/sparqlite/internal/errs"
	"github.com/wbrown/sparqlite/internal/trace"
	"github.com/wbrown/sparqlite/optimize"
	"github.com/wbrown/sparqlite/plan"
	"github.com/wbrown/sparqlite/rdf"
	"github.com/wbrown/sparqlite/store"
)

// Options configures one call to Execute: the per-query knobs that
// are the executor's responsibility (the text itself is parsed
// upstream into a CompiledQuery).
type Options struct {
	// TimeoutMillis bounds total evaluation wall-clock time; 0 means no
	// timeout beyond ctx's own deadline.
	TimeoutMillis int
	// SkipOptimize disables the optimizer pipeline, running the raw
	// compiled tree as-is. Queries normally want this false.
	SkipOptimize bool
	// Explain, if set, populates Result.Explain instead of running the
	// query, per the optimizer's explain mode.
	Explain bool
	// Stats is the planner's cardinality/histogram collaborator; nil is
	// a valid cold-start snapshot.
	Stats *plan.Statistics
	// Cache is the plan cache; nil disables caching for this call.
	Cache *plan.Cache
}

// Result is the outcome of one Execute call; exactly one of its fields
// is populated, matching CompiledQuery.Type.
type Result struct {
	// Select holds one binding per row, in the projected variable order.
	Select []algebra.Binding
	Vars   []algebra.Symbol
	// Ask holds the boolean result of an ASK query.
	Ask bool
	// Graph holds the deduplicated triples of a CONSTRUCT or DESCRIBE query.
	Graph *rdf.Graph

	Explain *optimize.ExplainReport
}

// Execute runs q to completion and materializes its result. It is the
// executor's single top-level entry point.
func Execute(c *Context, q *algebra.CompiledQuery, opts Options) (*Result, error) {
	queryStart := time.Now()
	ctx := c.Ctx
	var cancel context.CancelFunc
	if opts.TimeoutMillis > 0 {
		ctx, cancel = context.WithTimeout(ctx, time.Duration(opts.TimeoutMillis)*time.Millisecond)
		defer cancel()
	}
	execCtx := &Context{Ctx: ctx, Store: c.Store, Dict: c.Dict, Trace: c.Trace, Limits: c.Limits, Cache: opts.Cache}
	if execCtx.Trace != nil {
		execCtx.Trace.Add(trace.Event{Name: trace.QueryBegin, Start: queryStart, End: queryStart, Data: map[string]interface{}{"type": string(q.Type)}})
		defer func() {
			execCtx.Trace.Add(trace.Event{Name: trace.QueryComplete, Start: queryStart, End: time.Now()})
		}()
	}

	pattern := q.Pattern
	if opts.Explain {
		report, err := optimize.Explain(pattern, opts.Stats)
		if err != nil {
			return nil, err
		}
		return &Result{Explain: report}, nil
	}

	if !opts.SkipOptimize {
		optimized, err := optimize.Optimize(pattern, opts.Stats)
		if err != nil {
			return nil, err
		}
		pattern = optimized
	}

	evaluator := expr.NewEvaluator(ctx, time.Now())

	switch q.Type {
	case algebra.Ask:
		stream, err := execCtx.Eval(pattern, evaluator, opts.Stats)
		if err != nil {
			return nil, err
		}
		defer stream.Close()
		found := stream.Next()
		if err := stream.Err(); err != nil {
			return nil, err
		}
		return &Result{Ask: found}, nil

	case algebra.Select:
		stream, err := execCtx.Eval(pattern, evaluator, opts.Stats)
		if err != nil {
			return nil, err
		}
		rows, err := drain(stream)
		if err != nil {
			return nil, err
		}
		return &Result{Select: rows, Vars: selectVars(q, rows)}, nil

	case algebra.Construct:
		stream, err := execCtx.Eval(pattern, evaluator, opts.Stats)
		if err != nil {
			return nil, err
		}
		triples, err := constructTriples(stream, q.Template)
		if err != nil {
			return nil, err
		}
		return &Result{Graph: triples}, nil

	case algebra.Describe:
		return executeDescribe(execCtx, evaluator, pattern, q, opts.Stats)

	default:
		return nil, errs.New(errs.UnsupportedOperation, "unknown query type %q", q.Type)
	}
}

// ExecuteStream runs a SELECT query lazily, returning the binding
// stream itself instead of a materialized Result: a consumer taking
// only the first N bindings causes only that many bindings' worth of
// evaluation upstream. The caller owns the stream and must Close it.
// Only SELECT queries stream; other query forms need their full result
// to serialize, so they go through Execute.
func ExecuteStream(c *Context, q *algebra.CompiledQuery, opts Options) (Stream, []algebra.Symbol, error) {
	if q.Type != algebra.Select {
		return nil, nil, errs.New(errs.UnsupportedOperation, "only SELECT queries stream; got %q", q.Type)
	}
	execCtx := &Context{Ctx: c.Ctx, Store: c.Store, Dict: c.Dict, Trace: c.Trace, Limits: c.Limits, Cache: opts.Cache}

	pattern := q.Pattern
	if !opts.SkipOptimize {
		optimized, err := optimize.Optimize(pattern, opts.Stats)
		if err != nil {
			return nil, nil, err
		}
		pattern = optimized
	}

	evaluator := expr.NewEvaluator(c.Ctx, time.Now())
	stream, err := execCtx.Eval(pattern, evaluator, opts.Stats)
	if err != nil {
		return nil, nil, err
	}
	return stream, selectVars(q, nil), nil
}

func selectVars(q *algebra.CompiledQuery, rows []algebra.Binding) []algebra.Symbol {
	if proj, ok := findProjection(q.Pattern); ok {
		return proj
	}
	if len(rows) > 0 {
		return rows[0].Vars()
	}
	return algebra.Variables(q.Pattern)
}

func findProjection(n algebra.Node) ([]algebra.Symbol, bool) {
	switch v := n.(type) {
	case algebra.Project:
		return v.Vars, true
	case algebra.Distinct:
		return findProjection(v.P)
	case algebra.Reduced:
		return findProjection(v.P)
	case algebra.Slice:
		return findProjection(v.P)
	case algebra.OrderBy:
		return findProjection(v.P)
	}
	return nil, false
}

// constructTriples instantiates template against every solution of
// stream, skipping (per-triple) any instantiation that would reference
// an unbound variable, and deduplicating the resulting graph; SPARQL
// CONSTRUCT semantics produce an RDF graph, not a multiset.
func constructTriples(stream Stream, template []algebra.TriplePattern) (*rdf.Graph, error) {
	defer stream.Close()
	out := rdf.NewGraph()
	for stream.Next() {
		b := stream.Binding()
		bnodeRemap := make(map[string]rdf.Term)
		for _, tp := range template {
			s, ok := instantiateTerm(tp.Subject, b, bnodeRemap)
			if !ok {
				continue
			}
			p, ok := instantiateTerm(tp.Predicate, b, bnodeRemap)
			if !ok || !p.IsIRI() {
				continue
			}
			o, ok := instantiateTerm(tp.Object, b, bnodeRemap)
			if !ok {
				continue
			}
			out.Add(rdf.Triple{Subject: s, Predicate: p, Object: o})
		}
	}
	return out, stream.Err()
}

// instantiateTerm resolves one template position against a CONSTRUCT
// solution. Variables not bound in the solution make the whole triple
// unproducible for this binding. Template blank nodes are rescoped
// per-solution (the same label within one solution's instantiation
// refers to the same node; across solutions each gets a fresh one),
// per SPARQL CONSTRUCT semantics.
func instantiateTerm(t algebra.PatternTerm, b algebra.Binding, bnodeRemap map[string]rdf.Term) (rdf.Term, bool) {
	if !t.IsVariable() {
		term := t.Term()
		if term.IsBlank() {
			if existing, ok := bnodeRemap[term.Value()]; ok {
				return existing, true
			}
			fresh := rdf.Blank(uuid.New())
			bnodeRemap[term.Value()] = fresh
			return fresh, true
		}
		return term, true
	}
	if v, ok := b.Get(t.Variable()); ok {
		return v, true
	}
	return rdf.Term{}, false
}

// executeDescribe resolves q.Describe's targets (IRIs directly, or
// variables bound by evaluating pattern) and returns every triple in
// the store with that term as subject or object (a simple concise
// bounded description).
func executeDescribe(c *Context, e *expr.Evaluator, pattern algebra.Node, q *algebra.CompiledQuery, stats *plan.Statistics) (*Result, error) {
	var targets []rdf.Term
	if len(algebra.Variables(pattern)) > 0 {
		stream, err := c.Eval(pattern, e, stats)
		if err != nil {
			return nil, err
		}
		rows, err := drain(stream)
		if err != nil {
			return nil, err
		}
		for _, dt := range q.Describe {
			if dt.IsVariable() {
				for _, b := range rows {
					if v, ok := b.Get(dt.Variable()); ok {
						targets = append(targets, v)
					}
				}
			} else {
				targets = append(targets, dt.Term())
			}
		}
	} else {
		for _, dt := range q.Describe {
			if !dt.IsVariable() {
				targets = append(targets, dt.Term())
			}
		}
	}

	out := rdf.NewGraph()
	for _, target := range targets {
		id, ok := c.lookupTerm(target)
		if !ok {
			continue
		}
		if err := c.collectDescribeTriples(id, true, out); err != nil {
			return nil, err
		}
		if err := c.collectDescribeTriples(id, false, out); err != nil {
			return nil, err
		}
	}
	return &Result{Graph: out}, nil
}

// collectDescribeTriples appends every triple with id in the subject
// position (asSubject) or object position to out, decoding ids back to
// terms; out's own Add dedups by value.
func (c *Context) collectDescribeTriples(id dict.ID, asSubject bool, out *rdf.Graph) error {
	pattern := store.Pattern{}
	if asSubject {
		pattern.S = &id
	} else {
		pattern.O = &id
	}
	it, err := c.Store.Lookup(pattern)
	if err != nil {
		return err
	}
	defer it.Close()
	for it.Next() {
		tr := it.Triple()
		s, err := c.decodeID(tr.S)
		if err != nil {
			continue
		}
		p, err := c.decodeID(tr.P)
		if err != nil {
			continue
		}
		o, err := c.decodeID(tr.O)
		if err != nil {
			continue
		}
		out.Add(rdf.Triple{Subject: s, Predicate: p, Object: o})
	}
	return it.Err()
}
