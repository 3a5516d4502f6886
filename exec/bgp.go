package exec

import (
	"time"

	"github.com/wbrown/sparqlite/algebra"
	"github.com/wbrown/sparqlite/dict"
	"github.com/wbrown/sparqlite/internal/errs"
	"github.com/wbrown/sparqlite/internal/trace"
	"github.com/wbrown/sparqlite/optimize"
	"github.com/wbrown/sparqlite/plan"
	"github.com/wbrown/sparqlite/store"
)

// ExecuteBGP evaluates a basic graph pattern: reorder patterns with
// the optimizer's BGP rule, start from a unit stream of
// initial, and fold each pattern in by index-based nested-loop join.
func (c *Context) ExecuteBGP(patterns []algebra.TriplePattern, initial algebra.Binding, stats *plan.Statistics) (Stream, error) {
	start := time.Now()
	ordered, err := c.orderBGPPatterns(patterns, stats)
	if err != nil {
		return nil, err
	}
	if c.Trace != nil {
		c.Trace.Add(trace.Event{
			Name:  trace.ExecBGPScan,
			Start: start,
			End:   time.Now(),
			Data:  map[string]interface{}{"pattern.count": len(patterns)},
		})
	}

	var s Stream = unitStream(initial)
	for _, p := range ordered {
		pattern := p
		s = c.joinPattern(s, pattern)
	}
	return s, nil
}

// orderBGPPatterns picks the pattern-evaluation order for a BGP. With a
// plan cache configured it consults the cost-based join enumerator
// (exhaustive for small BGPs, DP-ccp beyond five patterns), keyed
// and cached per normalized BGP
// shape; otherwise it falls back to the optimizer's cheaper
// selectivity-ordered rewrite. Either way the executor always folds
// patterns in via left-deep index nested-loop join: the chosen
// JoinPlan's Strategy informs which order is cheapest, not which
// physical operator runs, since this core's only multi-pattern BGP
// operator is the index NLJ (a bucketed hash join is still used for
// algebra.Join between sub-patterns with no shared bound position).
func (c *Context) orderBGPPatterns(patterns []algebra.TriplePattern, stats *plan.Statistics) ([]algebra.TriplePattern, error) {
	if c.Cache != nil && len(patterns) > 1 {
		bgp := algebra.BGP{Patterns: patterns}
		before := c.Cache.Stats()
		start := time.Now()
		qp := plan.Plan(bgp, stats, c.Cache, plan.DefaultWeights)
		if c.Trace != nil {
			after := c.Cache.Stats()
			name := trace.PlanCacheMiss
			if after.Hits > before.Hits {
				name = trace.PlanCacheHit
			}
			c.Trace.Add(trace.Event{Name: name, Start: start, End: time.Now(), Data: map[string]interface{}{"patterns": len(patterns)}})
		}
		if len(qp.BGPPlans) == 1 && qp.BGPPlans[0] != nil {
			order := qp.BGPPlans[0].PatternOrder()
			if len(order) == len(patterns) {
				out := make([]algebra.TriplePattern, len(order))
				for i, idx := range order {
					out[i] = patterns[idx]
				}
				return out, nil
			}
		}
	}

	ordered, err := optimize.ReorderBGPs(algebra.BGP{Patterns: patterns}, stats)
	if err != nil {
		return nil, err
	}
	reorderedBGP, ok := ordered.(algebra.BGP)
	if !ok {
		return nil, errs.New(errs.UnsupportedOperation, "BGP reordering returned a non-BGP node")
	}
	return reorderedBGP.Patterns, nil
}

// joinPattern lazily extends every binding of in with the matches of
// pattern, via encodeSubstituted + store lookup on the pattern's best
// covering index.
func (c *Context) joinPattern(in Stream, pattern algebra.TriplePattern) Stream {
	return &bgpJoinStream{ctx: c, pattern: pattern, in: in}
}

type bgpJoinStream struct {
	ctx     *Context
	pattern algebra.TriplePattern
	in      Stream
	cur     algebra.Binding

	inner      store.Iterator
	curBound   algebra.Binding
	matchCount int64
	err        error
}

func (s *bgpJoinStream) Next() bool {
	for {
		if err := s.ctx.checkCtx(); err != nil {
			s.err = err
			if s.inner != nil {
				s.inner.Close()
				s.inner = nil
			}
			return false
		}
		if s.inner != nil {
			for s.inner.Next() {
				s.matchCount++
				if s.matchCount > s.ctx.Limits.MaxMatchesPerPattern {
					s.err = errs.New(errs.TooManyMatches, "pattern exceeded %d matches", s.ctx.Limits.MaxMatchesPerPattern)
					s.inner.Close()
					s.inner = nil
					return false
				}
				b, ok := s.extend(s.curBound, s.inner.Triple())
				if ok {
					s.cur = b
					return true
				}
			}
			if err := s.inner.Err(); err != nil {
				s.err = err
				s.inner.Close()
				s.inner = nil
				return false
			}
			s.inner.Close()
			s.inner = nil
		}

		if !s.in.Next() {
			s.err = s.in.Err()
			return false
		}
		binding := s.in.Binding()
		storePattern, ok := s.ctx.substitutePattern(s.pattern, binding)
		if !ok {
			// A substituted constant is not in the dictionary: this
			// binding cannot possibly match anything.
			continue
		}
		it, err := s.ctx.Store.Lookup(storePattern)
		if err != nil {
			s.err = err
			return false
		}
		s.inner = it
		s.curBound = binding
	}
}

func (s *bgpJoinStream) Binding() algebra.Binding { return s.cur }
func (s *bgpJoinStream) Err() error               { return s.err }
func (s *bgpJoinStream) Close() error {
	if s.inner != nil {
		s.inner.Close()
	}
	return s.in.Close()
}

// substitutePattern replaces every variable in p already bound by
// binding with its id, encoding constants through the dictionary
// (read-only: absent terms make the pattern unsatisfiable, not an
// error). Returns false if some substituted term cannot be resolved.
func (c *Context) substitutePattern(p algebra.TriplePattern, binding algebra.Binding) (store.Pattern, bool) {
	sid, ok := c.resolvePosition(p.Subject, binding)
	if !ok {
		return store.Pattern{}, false
	}
	pid, ok := c.resolvePosition(p.Predicate, binding)
	if !ok {
		return store.Pattern{}, false
	}
	oid, ok := c.resolvePosition(p.Object, binding)
	if !ok {
		return store.Pattern{}, false
	}
	return store.Pattern{S: sid, P: pid, O: oid}, true
}

func (c *Context) resolvePosition(t algebra.PatternTerm, binding algebra.Binding) (*dict.ID, bool) {
	if t.IsVariable() {
		bound, ok := binding.Get(t.Variable())
		if !ok {
			return nil, true // still unbound: leave this position open
		}
		id, ok := c.lookupTerm(bound)
		if !ok {
			return nil, false
		}
		return &id, true
	}
	id, ok := c.lookupTerm(t.Term())
	if !ok {
		return nil, false
	}
	return &id, true
}

// extend decodes triple's positions and merges them into binding,
// requiring that repeated variables within the pattern match equal ids.
func (s *bgpJoinStream) extend(binding algebra.Binding, triple store.Triple) (algebra.Binding, bool) {
	out := binding
	for _, pair := range []struct {
		t  algebra.PatternTerm
		id dict.ID
	}{
		{s.pattern.Subject, triple.S},
		{s.pattern.Predicate, triple.P},
		{s.pattern.Object, triple.O},
	} {
		if !pair.t.IsVariable() {
			continue
		}
		v := pair.t.Variable()
		if existing, ok := out.Get(v); ok {
			existingID, ok := s.ctx.lookupTerm(existing)
			if !ok || existingID != pair.id {
				return algebra.Binding{}, false
			}
			continue
		}
		term, err := s.ctx.decodeID(pair.id)
		if err != nil {
			return algebra.Binding{}, false
		}
		out = out.With(v, term)
	}
	return out, true
}
