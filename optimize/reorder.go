package optimize

import (
	"github.com/wbrown/sparqlite/algebra"
	"github.com/wbrown/sparqlite/plan"
)

// rangeFilterVars collects the variables that carry a numeric range
// restriction somewhere in the enclosing query: a comparison operator
// in {<,>,<=,>=}, conjuncts contributing independently, disjuncts only
// contributing variables restricted on both sides.
func rangeFilterVars(n algebra.Node) map[algebra.Symbol]bool {
	out := make(map[algebra.Symbol]bool)
	for _, f := range algebra.CollectFilters(n) {
		for v := range collectRangeVars(f.Expr) {
			out[v] = true
		}
	}
	return out
}

func collectRangeVars(e algebra.Expr) map[algebra.Symbol]bool {
	out := make(map[algebra.Symbol]bool)
	call, ok := e.(algebra.Call)
	if !ok {
		return out
	}
	switch call.Func {
	case "&&":
		for _, a := range call.Args {
			for v := range collectRangeVars(a) {
				out[v] = true
			}
		}
	case "||":
		// A disjunction only range-restricts a variable when both
		// branches do.
		if len(call.Args) == 2 {
			l, r := collectRangeVars(call.Args[0]), collectRangeVars(call.Args[1])
			for v := range l {
				if r[v] {
					out[v] = true
				}
			}
		}
	case "<", ">", "<=", ">=":
		for _, a := range call.Args {
			if v, ok := a.(algebra.VarRef); ok {
				out[v.Name] = true
			}
		}
	}
	return out
}

// ReorderBGPs rewrites every BGP in n using greedy
// most-selective-first ordering. stats may be nil (no
// histogram refinement or range-index bonus is then applied).
func ReorderBGPs(n algebra.Node, stats *plan.Statistics) (algebra.Node, error) {
	rangeVars := rangeFilterVars(n)
	return algebra.Map(n, func(m algebra.Node) algebra.Node {
		bgp, ok := m.(algebra.BGP)
		if !ok || len(bgp.Patterns) <= 1 {
			return m
		}
		return algebra.BGP{Patterns: reorderPatterns(bgp.Patterns, stats, rangeVars)}
	})
}

func reorderPatterns(patterns []algebra.TriplePattern, stats *plan.Statistics, rangeVars map[algebra.Symbol]bool) []algebra.TriplePattern {
	n := len(patterns)
	placed := make([]bool, n)
	bound := make(map[algebra.Symbol]bool)
	order := make([]algebra.TriplePattern, 0, n)

	for len(order) < n {
		bestIdx := -1
		bestScore := 0.0
		for i, p := range patterns {
			if placed[i] {
				continue
			}
			score := patternScore(p, stats, bound, rangeVars)
			if bestIdx == -1 || score < bestScore {
				bestIdx, bestScore = i, score
			}
		}
		placed[bestIdx] = true
		order = append(order, patterns[bestIdx])
		for _, v := range patternVars(patterns[bestIdx]) {
			bound[v] = true
		}
	}
	return order
}

func patternVars(p algebra.TriplePattern) []algebra.Symbol {
	var out []algebra.Symbol
	for _, t := range []algebra.PatternTerm{p.Subject, p.Predicate, p.Object} {
		if t.IsVariable() {
			out = append(out, t.Variable())
		}
	}
	return out
}

func patternScore(p algebra.TriplePattern, stats *plan.Statistics, bound map[algebra.Symbol]bool, rangeVars map[algebra.Symbol]bool) float64 {
	score := subjectScore(p.Subject, bound) * predicateScore(p.Predicate, stats) * objectScore(p.Object, bound)
	if !p.Predicate.IsVariable() {
		if _, ok := rangeBoundVariable(p, rangeVars); ok {
			if stats != nil && stats.HasRangeIndex(p.Predicate.Term()) {
				score /= 100
			} else {
				score /= 10
			}
		}
	}
	return score
}

// rangeBoundVariable reports whether p binds some range-filtered
// variable (in any position), returning that variable.
func rangeBoundVariable(p algebra.TriplePattern, rangeVars map[algebra.Symbol]bool) (algebra.Symbol, bool) {
	for _, t := range []algebra.PatternTerm{p.Subject, p.Predicate, p.Object} {
		if t.IsVariable() && rangeVars[t.Variable()] {
			return t.Variable(), true
		}
	}
	return "", false
}

func subjectScore(t algebra.PatternTerm, bound map[algebra.Symbol]bool) float64 {
	if !t.IsVariable() {
		return 1.0
	}
	if bound[t.Variable()] {
		return 1.0
	}
	return 100.0
}

func objectScore(t algebra.PatternTerm, bound map[algebra.Symbol]bool) float64 {
	if !t.IsVariable() {
		term := t.Term()
		switch {
		case term.IsBlank():
			return 3.0
		case term.IsLiteral():
			return 2.0
		}
		return 5.0
	}
	if bound[t.Variable()] {
		return 1.0
	}
	return 100.0
}

func predicateScore(t algebra.PatternTerm, stats *plan.Statistics) float64 {
	if t.IsVariable() {
		return 50.0
	}
	if stats == nil {
		return 10.0
	}
	count, ok := stats.PredicateCount(t.Term())
	if !ok {
		return 10.0
	}
	switch {
	case count < 10:
		return 0.5
	case count < 100:
		return 2.0
	case count < 1000:
		return 10.0
	case count < 10000:
		return 50.0
	default:
		return 100.0
	}
}
