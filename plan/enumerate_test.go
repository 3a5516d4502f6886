package plan

import (
	"testing"

	"github.com/wbrown/sparqlite/algebra"
	"github.com/wbrown/sparqlite/rdf"
)

func chainPattern(s, p, o string) algebra.TriplePattern {
	return algebra.TriplePattern{
		Subject:   algebra.Var(algebra.Symbol(s)),
		Predicate: algebra.Const(rdf.IRI(p)),
		Object:    algebra.Var(algebra.Symbol(o)),
	}
}

func TestEnumerateJoinsEmptyPatterns(t *testing.T) {
	p := EnumerateJoins(nil, NewStatistics(), DefaultWeights)
	if p.Cardinality != 1 {
		t.Errorf("EnumerateJoins(nil).Cardinality = %v, want 1", p.Cardinality)
	}
}

func TestEnumerateJoinsSinglePattern(t *testing.T) {
	stats := NewStatistics()
	stats.TotalTriples = 100
	pat := []algebra.TriplePattern{chainPattern("?a", "http://example.org/p", "?b")}
	plan := EnumerateJoins(pat, stats, DefaultWeights)
	if !plan.IsLeaf() {
		t.Error("a single-pattern BGP should produce a leaf plan")
	}
	if len(plan.PatternOrder()) != 1 || plan.PatternOrder()[0] != 0 {
		t.Errorf("PatternOrder() = %v, want [0]", plan.PatternOrder())
	}
}

func TestEnumerateJoinsCoversAllPatternsInOrder(t *testing.T) {
	stats := NewStatistics()
	stats.TotalTriples = 10_000
	pats := []algebra.TriplePattern{
		chainPattern("?a", "http://example.org/p1", "?b"),
		chainPattern("?b", "http://example.org/p2", "?c"),
		chainPattern("?c", "http://example.org/p3", "?d"),
	}
	plan := EnumerateJoins(pats, stats, DefaultWeights)
	order := plan.PatternOrder()
	if len(order) != 3 {
		t.Fatalf("PatternOrder() = %v, want all 3 patterns covered", order)
	}
	seen := make(map[int]bool)
	for _, i := range order {
		seen[i] = true
	}
	for i := 0; i < 3; i++ {
		if !seen[i] {
			t.Errorf("PatternOrder() %v is missing pattern %d", order, i)
		}
	}
}

func TestEnumerateExhaustiveCoversPatternsWithoutConnectedOrder(t *testing.T) {
	stats := NewStatistics()
	stats.TotalTriples = 10_000
	// ?a-?b and ?b-?c share ?b; ?x-?y is disconnected from both.
	pats := []algebra.TriplePattern{
		chainPattern("?a", "http://example.org/p1", "?b"),
		chainPattern("?x", "http://example.org/p2", "?y"),
		chainPattern("?b", "http://example.org/p3", "?c"),
	}
	plan := enumerateExhaustive(pats, stats, DefaultWeights)
	// No left-deep order is connected at every step, since ?x-?y shares
	// no variable with the others; verify the fallback still covers every
	// pattern rather than asserting an exact order.
	if plan == nil {
		t.Fatal("enumerateExhaustive returned nil")
	}
	if len(plan.PatternOrder()) != 3 {
		t.Errorf("expected a plan covering all 3 patterns, got %v", plan.PatternOrder())
	}
}

func TestLeapfrogEligibleRequiresThreePatternsSharingAVariable(t *testing.T) {
	star := []algebra.TriplePattern{
		chainPattern("?x", "http://example.org/a", "?a"),
		chainPattern("?x", "http://example.org/b", "?b"),
		chainPattern("?x", "http://example.org/c", "?c"),
	}
	if !leapfrogEligible(star) {
		t.Error("a 3-pattern star join sharing ?x should be leapfrog-eligible")
	}

	chain := []algebra.TriplePattern{
		chainPattern("?a", "http://example.org/p1", "?b"),
		chainPattern("?b", "http://example.org/p2", "?c"),
		chainPattern("?c", "http://example.org/p3", "?d"),
	}
	if leapfrogEligible(chain) {
		t.Error("a 3-pattern chain with no variable shared across 3+ patterns should not be leapfrog-eligible")
	}

	tooFew := star[:2]
	if leapfrogEligible(tooFew) {
		t.Error("fewer than 3 patterns should never be leapfrog-eligible")
	}
}

func TestEnumerateJoinsPicksLeapfrogForEligibleStarWhenCheaper(t *testing.T) {
	stats := NewStatistics()
	stats.TotalTriples = 10_030
	stats.DistinctSubjects = 1000
	stats.DistinctObjects = 1000
	stats.PredicateHistogram["http://example.org/sparse"] = 10
	stats.PredicateHistogram["http://example.org/dense1"] = 10_000
	stats.PredicateHistogram["http://example.org/dense2"] = 10_000
	stats.DistinctPredicates = 3

	star := []algebra.TriplePattern{
		chainPattern("?x", "http://example.org/sparse", "?a"),
		chainPattern("?x", "http://example.org/dense1", "?b"),
		chainPattern("?x", "http://example.org/dense2", "?c"),
	}
	plan := EnumerateJoins(star, stats, DefaultWeights)
	if len(plan.PatternOrder()) != 3 {
		t.Errorf("expected all 3 star patterns covered, got %v", plan.PatternOrder())
	}
	if plan.Strategy != LeapfrogStrategy {
		t.Errorf("Strategy = %v, want LeapfrogStrategy for the cheaper star", plan.Strategy)
	}
}

func TestEnumerateDPccpUsedAboveFivePatterns(t *testing.T) {
	stats := NewStatistics()
	stats.TotalTriples = 100_000
	pats := make([]algebra.TriplePattern, 0, 6)
	prev := "?v0"
	for i := 0; i < 6; i++ {
		next := algebra.Symbol("?v" + string(rune('1'+i)))
		pats = append(pats, chainPattern(prev, "http://example.org/p"+string(rune('0'+i)), string(next)))
		prev = string(next)
	}
	plan := EnumerateJoins(pats, stats, DefaultWeights)
	if len(plan.PatternOrder()) != 6 {
		t.Errorf("EnumerateJoins with 6 chained patterns should cover all 6 via DP-ccp, got %v", plan.PatternOrder())
	}
}

func TestEnumerateDPccpFallsBackOnDisconnectedGraph(t *testing.T) {
	stats := NewStatistics()
	stats.TotalTriples = 100_000
	// Six mutually disjoint patterns: no shared variables anywhere, so
	// DP-ccp's connected-pair search finds nothing and must fall back
	// to a left-deep cascade rather than panicking or returning nil.
	pats := make([]algebra.TriplePattern, 0, 6)
	for i := 0; i < 6; i++ {
		s := algebra.Symbol("?s" + string(rune('0'+i)))
		o := algebra.Symbol("?o" + string(rune('0'+i)))
		pats = append(pats, chainPattern(string(s), "http://example.org/p"+string(rune('0'+i)), string(o)))
	}
	plan := enumerateDPccp(pats, stats, DefaultWeights)
	if plan == nil {
		t.Fatal("enumerateDPccp returned nil for a disconnected join graph")
	}
	if len(plan.PatternOrder()) != 6 {
		t.Errorf("fallback plan should still cover all 6 patterns, got %v", plan.PatternOrder())
	}
}

func TestJoinPlanIsLeaf(t *testing.T) {
	leaf := &JoinPlan{Patterns: []int{0}}
	if !leaf.IsLeaf() {
		t.Error("a JoinPlan with no children should be a leaf")
	}
	inner := &JoinPlan{Left: leaf, Right: &JoinPlan{Patterns: []int{1}}}
	if inner.IsLeaf() {
		t.Error("a JoinPlan with children should not be a leaf")
	}
}
