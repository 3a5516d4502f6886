package expr

import (
	"github.com/wbrown/sparqlite/algebra"
	"github.com/wbrown/sparqlite/rdf"
)

// OrderKeyValue is one ORDER BY key's evaluation result for one
// binding: either a term, or an evaluation failure that must sort last
// among errors.
type OrderKeyValue struct {
	Term rdf.Term
	Err  bool
}

// EvaluateOrderKeys evaluates every key in keys against binding, for
// use as a composite ORDER BY sort key.
func (e *Evaluator) EvaluateOrderKeys(keys []algebra.OrderKey, binding algebra.Binding) []OrderKeyValue {
	out := make([]OrderKeyValue, len(keys))
	for i, k := range keys {
		v, err := e.Evaluate(k.Expr, binding)
		if err != nil {
			out[i] = OrderKeyValue{Err: true}
			continue
		}
		out[i] = OrderKeyValue{Term: v}
	}
	return out
}

// CompareOrderKeys implements the composite ORDER BY comparison:
// per-key ascending/descending order, with evaluation errors sorting
// last regardless of direction.
func CompareOrderKeys(keys []algebra.OrderKey, a, b []OrderKeyValue) int {
	for i, key := range keys {
		av, bv := a[i], b[i]
		switch {
		case av.Err && bv.Err:
			continue
		case av.Err:
			return 1
		case bv.Err:
			return -1
		}
		cmp, err := compareValues(av.Term, bv.Term)
		if err != nil {
			cmp = av.Term.Compare(bv.Term)
		}
		if key.Desc {
			cmp = -cmp
		}
		if cmp != 0 {
			return cmp
		}
	}
	return 0
}
