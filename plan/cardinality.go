package plan

import (
	"math"

	"github.com/wbrown/sparqlite/algebra"
)

// minCard is the lower bound every cardinality estimate is clamped
// to.
const minCard = 1.0

// EstimatePattern implements estimate_pattern: if the predicate is a
// constant with a histogram entry, use that count directly; otherwise
// start from the total triple count and multiply by each position's
// selectivity.
func EstimatePattern(p algebra.TriplePattern, stats *Statistics) float64 {
	if !p.Predicate.IsVariable() {
		if count, ok := stats.PredicateCount(p.Predicate.Term()); ok {
			return math.Max(minCard, float64(count))
		}
	}
	est := float64(stats.totalTriples())
	est *= positionSelectivity(p.Subject, stats, 0)
	est *= positionSelectivity(p.Predicate, stats, 1)
	est *= positionSelectivity(p.Object, stats, 2)
	return math.Max(minCard, est)
}

func positionSelectivity(t algebra.PatternTerm, stats *Statistics, position int) float64 {
	if t.IsVariable() {
		return 1.0
	}
	d := stats.distinctCount(position)
	if d <= 0 {
		d = 1
	}
	return 1.0 / float64(d)
}

// EstimatePatternWithBindings refines EstimatePattern by multiplying
// in bound_domain/total_domain for each variable already bound by an
// enclosing BGP prefix.
func EstimatePatternWithBindings(p algebra.TriplePattern, stats *Statistics, boundDomains map[algebra.Symbol]float64) float64 {
	est := EstimatePattern(p, stats)
	total := float64(stats.totalTriples())
	for _, t := range []algebra.PatternTerm{p.Subject, p.Predicate, p.Object} {
		if !t.IsVariable() {
			continue
		}
		if domain, ok := boundDomains[t.Variable()]; ok && domain > 0 {
			est *= domain / total
		}
	}
	return math.Max(minCard, est)
}

// estDomain implements est_domain(v, card) = min(sqrt(card), triple_count).
func estDomain(card float64, stats *Statistics) float64 {
	sq := math.Sqrt(card)
	tc := float64(stats.totalTriples())
	if sq < tc {
		return sq
	}
	return tc
}

// EstimateJoin implements estimate_join: with no shared variables the
// estimate is the Cartesian product; with shared variables it is
// divided by the max estimated domain size of each shared variable on
// either side.
func EstimateJoin(left, right float64, joinVars []algebra.Symbol, leftCard, rightCard float64, stats *Statistics) float64 {
	est := left * right
	if len(joinVars) == 0 {
		return math.Max(minCard, est)
	}
	leftDomain := estDomain(leftCard, stats)
	rightDomain := estDomain(rightCard, stats)
	for range joinVars {
		m := leftDomain
		if rightDomain > m {
			m = rightDomain
		}
		if m < 1 {
			m = 1
		}
		est /= m
	}
	return math.Max(minCard, est)
}

// EstimateBGP folds EstimatePatternWithBindings left-to-right over
// patterns, accumulating each pattern's output variables as bound
// domains for the next.
func EstimateBGP(patterns []algebra.TriplePattern, stats *Statistics) float64 {
	if len(patterns) == 0 {
		return 1
	}
	bound := make(map[algebra.Symbol]float64)
	var running float64
	for _, p := range patterns {
		running = EstimatePatternWithBindings(p, stats, bound)
		// A variable's domain going forward is bounded by the number of
		// rows this pattern produced, since later patterns can only see
		// the values that survived this far.
		for _, t := range []algebra.PatternTerm{p.Subject, p.Predicate, p.Object} {
			if t.IsVariable() {
				bound[t.Variable()] = running
			}
		}
	}
	return math.Max(minCard, running)
}
