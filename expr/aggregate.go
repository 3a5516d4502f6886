package expr

import (
	"strings"

	"github.com/wbrown/sparqlite/algebra"
	"github.com/wbrown/sparqlite/internal/errs"
	"github.com/wbrown/sparqlite/rdf"
)

// EvaluateAggregate computes agg over group, the multiset of bindings
// assigned to one GROUP BY partition. Per-binding
// evaluation failures are skipped rather than aborting the aggregate,
// matching the error-taxonomy rule that semantic errors inside
// aggregation are tolerated, not propagated.
func EvaluateAggregate(e *Evaluator, agg algebra.Aggregate, group []algebra.Binding) (rdf.Term, error) {
	switch strings.ToLower(agg.Func) {
	case "count":
		return evalCount(e, agg, group), nil
	case "sum":
		return evalSum(e, agg, group)
	case "avg":
		return evalAvg(e, agg, group)
	case "min":
		return evalMinMax(e, agg, group, true)
	case "max":
		return evalMinMax(e, agg, group, false)
	case "group_concat":
		return evalGroupConcat(e, agg, group)
	case "sample":
		return evalSample(e, agg, group)
	default:
		return rdf.Term{}, errs.New(errs.UnsupportedOperation, "unknown aggregate function %q", agg.Func)
	}
}

func aggValues(e *Evaluator, agg algebra.Aggregate, group []algebra.Binding) []rdf.Term {
	var out []rdf.Term
	seen := make(map[string]bool)
	for _, b := range group {
		var v rdf.Term
		if agg.Star {
			v = rdf.SimpleLiteral("*")
		} else {
			var err error
			v, err = e.Evaluate(agg.Arg, b)
			if err != nil {
				continue
			}
		}
		if agg.Distinct {
			key := v.String()
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		out = append(out, v)
	}
	return out
}

func evalCount(e *Evaluator, agg algebra.Aggregate, group []algebra.Binding) rdf.Term {
	if agg.Star {
		return intTerm(int64(len(aggValues(e, agg, group))))
	}
	count := 0
	seen := make(map[string]bool)
	for _, b := range group {
		v, err := e.Evaluate(agg.Arg, b)
		if err != nil {
			continue
		}
		if agg.Distinct {
			key := v.String()
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		count++
	}
	return intTerm(int64(count))
}

func evalSum(e *Evaluator, agg algebra.Aggregate, group []algebra.Binding) (rdf.Term, error) {
	tier := tierInteger
	var total float64
	for _, v := range aggValues(e, agg, group) {
		n, ok := asNumeric(v)
		if !ok {
			continue
		}
		total += n.val
		tier = promote(tier, n.tier)
	}
	return numericTerm(total, tier), nil
}

func evalAvg(e *Evaluator, agg algebra.Aggregate, group []algebra.Binding) (rdf.Term, error) {
	tier := tierInteger
	var total float64
	count := 0
	for _, v := range aggValues(e, agg, group) {
		n, ok := asNumeric(v)
		if !ok {
			continue
		}
		total += n.val
		tier = promote(tier, n.tier)
		count++
	}
	if count == 0 {
		return numericTerm(0, tierDecimal), nil
	}
	if tier == tierInteger {
		tier = tierDecimal
	}
	return numericTerm(total/float64(count), tier), nil
}

func evalMinMax(e *Evaluator, agg algebra.Aggregate, group []algebra.Binding, min bool) (rdf.Term, error) {
	values := aggValues(e, agg, group)
	if len(values) == 0 {
		return rdf.Term{}, errs.New(errs.BindingMismatch, "%s over an empty group", agg.Func)
	}
	best := values[0]
	for _, v := range values[1:] {
		if (min && v.Compare(best) < 0) || (!min && v.Compare(best) > 0) {
			best = v
		}
	}
	return best, nil
}

func evalGroupConcat(e *Evaluator, agg algebra.Aggregate, group []algebra.Binding) (rdf.Term, error) {
	sep := agg.Sep
	if sep == "" {
		sep = " "
	}
	values := aggValues(e, agg, group)
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = v.Value()
	}
	return rdf.SimpleLiteral(strings.Join(parts, sep)), nil
}

func evalSample(e *Evaluator, agg algebra.Aggregate, group []algebra.Binding) (rdf.Term, error) {
	values := aggValues(e, agg, group)
	if len(values) == 0 {
		return rdf.Term{}, errs.New(errs.BindingMismatch, "SAMPLE over an empty group")
	}
	return values[0], nil
}
