package optimize

import (
	"testing"

	"github.com/wbrown/sparqlite/algebra"
	"github.com/wbrown/sparqlite/rdf"
)

func TestPushDownFiltersIntoJoinSide(t *testing.T) {
	left := algebra.BGP{Patterns: []algebra.TriplePattern{{Subject: algebra.Var("?s"), Predicate: algebra.Const(rdf.IRI("p")), Object: algebra.Var("?a")}}}
	right := algebra.BGP{Patterns: []algebra.TriplePattern{{Subject: algebra.Var("?s"), Predicate: algebra.Const(rdf.IRI("q")), Object: algebra.Var("?b")}}}
	filterExpr := algebra.Call{Func: ">", Args: []algebra.Expr{algebra.VarRef{Name: "?a"}, intLit("25")}}
	tree := algebra.Filter{Expr: filterExpr, P: algebra.Join{L: left, R: right}}

	out, err := PushDownFilters(tree)
	if err != nil {
		t.Fatalf("PushDownFilters: %v", err)
	}
	join, ok := out.(algebra.Join)
	if !ok {
		t.Fatalf("PushDownFilters() = %T, want algebra.Join at the top once the filter is pushed below it", out)
	}
	if _, ok := join.L.(algebra.Filter); !ok {
		t.Errorf("filter on ?a should be pushed into the join's left (the side binding ?a), got %+v", join.L)
	}
	if _, ok := join.R.(algebra.Filter); ok {
		t.Errorf("filter on ?a must not be pushed into the join's right side, got %+v", join.R)
	}
}

func TestPushDownFiltersNeverEntersLeftJoinRight(t *testing.T) {
	left := algebra.BGP{Patterns: []algebra.TriplePattern{{Subject: algebra.Var("?s"), Predicate: algebra.Const(rdf.IRI("name")), Object: algebra.Var("?n")}}}
	right := algebra.BGP{Patterns: []algebra.TriplePattern{{Subject: algebra.Var("?s"), Predicate: algebra.Const(rdf.IRI("age")), Object: algebra.Var("?a")}}}
	// A filter on ?a (only bound inside OPTIONAL's right side) must
	// stay above the LeftJoin rather than being pushed into R.
	filterExpr := algebra.Call{Func: "<", Args: []algebra.Expr{algebra.VarRef{Name: "?a"}, intLit("0")}}
	tree := algebra.Filter{Expr: filterExpr, P: algebra.LeftJoin{L: left, R: right}}

	out, err := PushDownFilters(tree)
	if err != nil {
		t.Fatalf("PushDownFilters: %v", err)
	}
	f, ok := out.(algebra.Filter)
	if !ok {
		t.Fatalf("PushDownFilters() = %T, want the Filter to remain above the LeftJoin", out)
	}
	lj, ok := f.P.(algebra.LeftJoin)
	if !ok {
		t.Fatalf("Filter.P = %T, want algebra.LeftJoin", f.P)
	}
	if _, ok := lj.R.(algebra.Filter); ok {
		t.Error("a filter referencing only OPTIONAL-introduced variables must never be pushed into the right side")
	}
}

func TestPushDownFiltersSplitsConjunction(t *testing.T) {
	left := algebra.BGP{Patterns: []algebra.TriplePattern{{Subject: algebra.Var("?s"), Predicate: algebra.Const(rdf.IRI("p")), Object: algebra.Var("?a")}}}
	right := algebra.BGP{Patterns: []algebra.TriplePattern{{Subject: algebra.Var("?s"), Predicate: algebra.Const(rdf.IRI("q")), Object: algebra.Var("?b")}}}
	conj := algebra.Call{Func: "&&", Args: []algebra.Expr{
		algebra.Call{Func: ">", Args: []algebra.Expr{algebra.VarRef{Name: "?a"}, intLit("1")}},
		algebra.Call{Func: "<", Args: []algebra.Expr{algebra.VarRef{Name: "?b"}, intLit("100")}},
	}}
	tree := algebra.Filter{Expr: conj, P: algebra.Join{L: left, R: right}}

	out, err := PushDownFilters(tree)
	if err != nil {
		t.Fatalf("PushDownFilters: %v", err)
	}
	join, ok := out.(algebra.Join)
	if !ok {
		t.Fatalf("PushDownFilters() = %T, want algebra.Join", out)
	}
	if _, ok := join.L.(algebra.Filter); !ok {
		t.Errorf("conjunct on ?a should land on the left side, got %+v", join.L)
	}
	if _, ok := join.R.(algebra.Filter); !ok {
		t.Errorf("conjunct on ?b should land on the right side, got %+v", join.R)
	}
}

func TestPushDownFiltersNoSuitableSideStaysAbove(t *testing.T) {
	left := algebra.BGP{Patterns: []algebra.TriplePattern{{Subject: algebra.Var("?s"), Predicate: algebra.Const(rdf.IRI("p")), Object: algebra.Var("?a")}}}
	right := algebra.BGP{Patterns: []algebra.TriplePattern{{Subject: algebra.Var("?s"), Predicate: algebra.Const(rdf.IRI("q")), Object: algebra.Var("?b")}}}
	// Filter references both ?a and ?b: neither side alone covers it.
	filterExpr := algebra.Call{Func: "=", Args: []algebra.Expr{algebra.VarRef{Name: "?a"}, algebra.VarRef{Name: "?b"}}}
	tree := algebra.Filter{Expr: filterExpr, P: algebra.Join{L: left, R: right}}

	out, err := PushDownFilters(tree)
	if err != nil {
		t.Fatalf("PushDownFilters: %v", err)
	}
	if _, ok := out.(algebra.Filter); !ok {
		t.Errorf("a filter spanning both join sides should stay above the join, got %T", out)
	}
}
