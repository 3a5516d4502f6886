package optimize

import (
	"testing"

	"github.com/wbrown/sparqlite/algebra"
	"github.com/wbrown/sparqlite/plan"
	"github.com/wbrown/sparqlite/rdf"
)

// sparsePredicate has few matches, densePredicate has many; reordering
// should place the sparse pattern first so downstream patterns join
// against a small intermediate result.
func statsWithHistogram() *plan.Statistics {
	s := plan.NewStatistics()
	s.TotalTriples = 10_030
	s.DistinctSubjects = 1000
	s.DistinctObjects = 1000
	s.PredicateHistogram["http://example.org/sparse"] = 10
	s.PredicateHistogram["http://example.org/dense"] = 10_000
	s.DistinctPredicates = 2
	return s
}

func TestReorderBGPsPlacesSparsePatternFirst(t *testing.T) {
	bgp := algebra.BGP{Patterns: []algebra.TriplePattern{
		{Subject: algebra.Var("?x"), Predicate: algebra.Const(rdf.IRI("http://example.org/dense")), Object: algebra.Var("?b")},
		{Subject: algebra.Var("?x"), Predicate: algebra.Const(rdf.IRI("http://example.org/sparse")), Object: algebra.Var("?a")},
	}}
	out, err := ReorderBGPs(bgp, statsWithHistogram())
	if err != nil {
		t.Fatalf("ReorderBGPs: %v", err)
	}
	reordered, ok := out.(algebra.BGP)
	if !ok {
		t.Fatalf("ReorderBGPs returned %T, want algebra.BGP", out)
	}
	first := reordered.Patterns[0]
	if first.Predicate.Term().Value() != "http://example.org/sparse" {
		t.Errorf("expected the sparse predicate first, got %v", first.Predicate.Term())
	}
}

func TestReorderBGPsNoOpForSinglePattern(t *testing.T) {
	bgp := algebra.BGP{Patterns: []algebra.TriplePattern{
		{Subject: algebra.Var("?s"), Predicate: algebra.Var("?p"), Object: algebra.Var("?o")},
	}}
	out, err := ReorderBGPs(bgp, nil)
	if err != nil {
		t.Fatalf("ReorderBGPs: %v", err)
	}
	if algebra.Print(out) != algebra.Print(bgp) {
		t.Error("ReorderBGPs should not rewrite a single-pattern BGP")
	}
}

func TestReorderBGPsHandlesNilStatistics(t *testing.T) {
	bgp := algebra.BGP{Patterns: []algebra.TriplePattern{
		{Subject: algebra.Var("?x"), Predicate: algebra.Const(rdf.IRI("p1")), Object: algebra.Var("?a")},
		{Subject: algebra.Var("?x"), Predicate: algebra.Const(rdf.IRI("p2")), Object: algebra.Var("?b")},
	}}
	if _, err := ReorderBGPs(bgp, nil); err != nil {
		t.Errorf("ReorderBGPs with nil stats should not error, got %v", err)
	}
}

func TestReorderBGPsPrefersConstantObjectPattern(t *testing.T) {
	// With no variable bound yet, a pattern whose object is a constant
	// should be preferred over one whose object is a fresh variable.
	bgp := algebra.BGP{Patterns: []algebra.TriplePattern{
		{Subject: algebra.Var("?y"), Predicate: algebra.Const(rdf.IRI("q")), Object: algebra.Var("?z")},
		{Subject: algebra.Var("?x"), Predicate: algebra.Const(rdf.IRI("p")), Object: algebra.Const(rdf.IRI("const-o"))},
	}}
	out, err := ReorderBGPs(bgp, nil)
	if err != nil {
		t.Fatalf("ReorderBGPs: %v", err)
	}
	reordered := out.(algebra.BGP)
	// The fully-bound-object pattern should win the first slot since it
	// has no unbound variables on either bound-checked side.
	if reordered.Patterns[0].Object.IsVariable() {
		t.Errorf("expected the all-constant-object pattern first, got %+v", reordered.Patterns[0])
	}
}
