package exec

import (
	"sort"

	"github.com/wbrown/sparqlite/algebra"
	"github.com/wbrown/sparqlite/expr"
)

// ExecuteFilter keeps only the bindings of src whose Expr evaluates to
// an effective boolean value of true; evaluation errors reject the
// binding.
func ExecuteFilter(e *expr.Evaluator, src Stream, condition algebra.Expr) Stream {
	return &filterStream{
		src: src,
		keep: func(b algebra.Binding) bool {
			v, err := e.Evaluate(condition, b)
			if err != nil {
				return false
			}
			ok, err := expr.EffectiveBooleanValue(v)
			return err == nil && ok
		},
	}
}

// ExecuteExtend evaluates expression against each binding of src and
// binds the result to v (SPARQL BIND). When evaluation fails, the
// input binding is passed through unchanged, with v left unbound,
// rather than raising an error or dropping the row.
func ExecuteExtend(e *expr.Evaluator, src Stream, v algebra.Symbol, expression algebra.Expr) Stream {
	return &mapStream{
		src: src,
		fn: func(b algebra.Binding) (algebra.Binding, bool) {
			val, err := e.Evaluate(expression, b)
			if err != nil {
				return b, true
			}
			return b.With(v, val), true
		},
	}
}

// ExecuteProject restricts each binding of src to vars.
func ExecuteProject(src Stream, vars []algebra.Symbol) Stream {
	return &mapStream{
		src: src,
		fn: func(b algebra.Binding) (algebra.Binding, bool) {
			return b.Project(vars), true
		},
	}
}

// ExecuteDistinct removes exact duplicate bindings from src. It must
// see the whole input, so it drains src before producing output.
func ExecuteDistinct(src Stream) (Stream, error) {
	rows, err := drain(src)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(rows))
	out := make([]algebra.Binding, 0, len(rows))
	for _, b := range rows {
		k := b.Key(b.Vars())
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, b)
	}
	return newSliceStream(out), nil
}

// ExecuteReduced permits (but does not require) duplicate elimination.
// This implementation removes exact duplicates, the simplest compliant
// behavior REDUCED permits.
func ExecuteReduced(src Stream) (Stream, error) {
	return ExecuteDistinct(src)
}

// ExecuteOrderBy sorts src's bindings by the composite key keys. It
// must materialize the whole input before emitting its first binding.
func ExecuteOrderBy(e *expr.Evaluator, src Stream, keys []algebra.OrderKey) (Stream, error) {
	rows, err := drain(src)
	if err != nil {
		return nil, err
	}
	keyed := make([][]expr.OrderKeyValue, len(rows))
	for i, b := range rows {
		keyed[i] = e.EvaluateOrderKeys(keys, b)
	}
	idx := make([]int, len(rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return expr.CompareOrderKeys(keys, keyed[idx[i]], keyed[idx[j]]) < 0
	})
	out := make([]algebra.Binding, len(rows))
	for i, j := range idx {
		out[i] = rows[j]
	}
	return newSliceStream(out), nil
}

// ExecuteSlice drops offset bindings of src, then yields at most limit
// (or all remaining, if limit is algebra.NoLimit).
func ExecuteSlice(src Stream, offset, limit int) Stream {
	return &sliceModifierStream{src: src, remainingOffset: offset, limit: limit}
}

type sliceModifierStream struct {
	src             Stream
	remainingOffset int
	limit           int
	emitted         int
}

func (s *sliceModifierStream) Next() bool {
	for s.remainingOffset > 0 {
		if !s.src.Next() {
			return false
		}
		s.remainingOffset--
	}
	if s.limit != algebra.NoLimit && s.emitted >= s.limit {
		return false
	}
	if !s.src.Next() {
		return false
	}
	s.emitted++
	return true
}

func (s *sliceModifierStream) Binding() algebra.Binding { return s.src.Binding() }
func (s *sliceModifierStream) Err() error               { return s.src.Err() }
func (s *sliceModifierStream) Close() error             { return s.src.Close() }

// ExecuteValues returns a stream of the inline table's rows, each as a
// Binding; rows with a nil term at a position leave that variable
// unbound (SPARQL UNDEF).
func ExecuteValues(vars []algebra.Symbol, rows []algebra.ValuesRow) Stream {
	out := make([]algebra.Binding, 0, len(rows))
	for _, row := range rows {
		b := algebra.NewBinding()
		for i, v := range vars {
			if i < len(row) && row[i] != nil {
				b = b.With(v, *row[i])
			}
		}
		out = append(out, b)
	}
	return newSliceStream(out)
}

// ExecuteGroup partitions src's bindings by the values of by and
// computes aggs per group, emitting one binding per group carrying the
// group keys plus each aggregate's result variable. An empty by groups
// the whole input into a single group.
func ExecuteGroup(e *expr.Evaluator, src Stream, by []algebra.Symbol, aggs []algebra.AggBinding) (Stream, error) {
	rows, err := drain(src)
	if err != nil {
		return nil, err
	}

	type group struct {
		key      algebra.Binding
		bindings []algebra.Binding
	}
	order := make([]string, 0)
	groups := make(map[string]*group)
	for _, b := range rows {
		key := b.Project(by)
		k := key.Key(by)
		g, ok := groups[k]
		if !ok {
			g = &group{key: key}
			groups[k] = g
			order = append(order, k)
		}
		g.bindings = append(g.bindings, b)
	}
	if len(groups) == 0 && len(by) == 0 {
		// GROUP BY with no input rows and no grouping variables still
		// produces one empty group (COUNT(*) over zero rows is 0).
		groups[""] = &group{key: algebra.NewBinding()}
		order = append(order, "")
	}

	out := make([]algebra.Binding, 0, len(groups))
	for _, k := range order {
		g := groups[k]
		result := g.key
		for _, ab := range aggs {
			v, err := expr.EvaluateAggregate(e, ab.Agg, g.bindings)
			if err != nil {
				continue
			}
			result = result.With(ab.Var, v)
		}
		out = append(out, result)
	}
	return newSliceStream(out), nil
}
