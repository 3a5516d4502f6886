package algebra

import (
	"testing"

	"github.com/wbrown/sparqlite/rdf"
)

func TestVariablesCollectsAcrossNodeKinds(t *testing.T) {
	bgp := BGP{Patterns: []TriplePattern{{Subject: Var("?s"), Predicate: Const(rdf.IRI("p")), Object: Var("?o")}}}
	tree := Project{
		P:    Filter{Expr: VarRef{Name: "?o"}, P: bgp},
		Vars: []Symbol{"?s"},
	}
	vars := Variables(tree)
	seen := map[Symbol]bool{}
	for _, v := range vars {
		seen[v] = true
	}
	for _, want := range []Symbol{"?s", "?o"} {
		if !seen[want] {
			t.Errorf("Variables() missing %v, got %v", want, vars)
		}
	}
}

func TestVariablesDeduplicates(t *testing.T) {
	bgp := BGP{Patterns: []TriplePattern{
		{Subject: Var("?s"), Predicate: Const(rdf.IRI("p1")), Object: Var("?o")},
		{Subject: Var("?s"), Predicate: Const(rdf.IRI("p2")), Object: Var("?o2")},
	}}
	vars := Variables(bgp)
	if len(vars) != 3 {
		t.Errorf("Variables() = %v, want 3 unique vars (?s ?o ?o2)", vars)
	}
}

func TestCollectBGPsPreOrder(t *testing.T) {
	b1 := BGP{Patterns: []TriplePattern{{Subject: Var("?a"), Predicate: Var("?p"), Object: Var("?o")}}}
	b2 := BGP{Patterns: []TriplePattern{{Subject: Var("?x"), Predicate: Var("?p"), Object: Var("?o")}}}
	tree := Join{L: b1, R: Filter{P: b2}}

	bgps := CollectBGPs(tree)
	if len(bgps) != 2 {
		t.Fatalf("CollectBGPs() returned %d BGPs, want 2", len(bgps))
	}
	if bgps[0].Patterns[0].Subject.Variable() != "?a" {
		t.Errorf("CollectBGPs()[0] should be b1 (pre-order), got %+v", bgps[0])
	}
}

func TestCollectFilters(t *testing.T) {
	tree := Filter{Expr: VarRef{Name: "?x"}, P: Filter{Expr: VarRef{Name: "?y"}, P: BGP{}}}
	filters := CollectFilters(tree)
	if len(filters) != 2 {
		t.Errorf("CollectFilters() returned %d filters, want 2", len(filters))
	}
}

func TestTripleCountSumsAcrossBGPs(t *testing.T) {
	b1 := BGP{Patterns: make([]TriplePattern, 2)}
	b2 := BGP{Patterns: make([]TriplePattern, 3)}
	tree := Join{L: b1, R: b2}
	if got := TripleCount(tree); got != 5 {
		t.Errorf("TripleCount() = %d, want 5", got)
	}
}

func TestHasOptionalUnionFilterAggregation(t *testing.T) {
	withOptional := LeftJoin{L: BGP{}, R: BGP{}}
	if !HasOptional(withOptional) {
		t.Error("HasOptional() should detect a top-level LeftJoin")
	}
	if HasOptional(BGP{}) {
		t.Error("HasOptional() should be false for a plain BGP")
	}

	withUnion := Union{L: BGP{}, R: BGP{}}
	if !HasUnion(withUnion) {
		t.Error("HasUnion() should detect a top-level Union")
	}

	withFilter := Filter{Expr: VarRef{Name: "?x"}, P: BGP{}}
	if !HasFilter(withFilter) {
		t.Error("HasFilter() should detect a nested Filter")
	}
	if HasFilter(BGP{}) {
		t.Error("HasFilter() should be false without a Filter node")
	}

	withAgg := Group{P: BGP{}, Aggs: []AggBinding{{Var: "?c", Agg: Aggregate{Func: "count", Star: true}}}}
	if !HasAggregation(withAgg) {
		t.Error("HasAggregation() should detect a Group with aggregates")
	}
	withoutAgg := Group{P: BGP{}}
	if HasAggregation(withoutAgg) {
		t.Error("HasAggregation() should be false for a Group with no Aggs")
	}
}

func TestHasOptionalNestedBelowOtherNodes(t *testing.T) {
	tree := Project{P: Join{L: BGP{}, R: LeftJoin{L: BGP{}, R: BGP{}}}, Vars: nil}
	if !HasOptional(tree) {
		t.Error("HasOptional() should find a LeftJoin nested under Project/Join")
	}
}
