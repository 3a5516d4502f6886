package algebra

import (
	"testing"

	"github.com/wbrown/sparqlite/rdf"
)

func sampleBGP(v Symbol) Node {
	return BGP{Patterns: []TriplePattern{{Subject: Var(v), Predicate: Const(rdf.IRI("p")), Object: Var("?o")}}}
}

func TestChildrenLeafNodes(t *testing.T) {
	if kids := Children(BGP{}); kids != nil {
		t.Errorf("Children(BGP{}) = %v, want nil", kids)
	}
	if kids := Children(Values{}); kids != nil {
		t.Errorf("Children(Values{}) = %v, want nil", kids)
	}
}

func TestChildrenBinaryNodes(t *testing.T) {
	l, r := sampleBGP("?x"), sampleBGP("?y")
	cases := []Node{
		Join{L: l, R: r},
		LeftJoin{L: l, R: r},
		Minus{L: l, R: r},
		Union{L: l, R: r},
	}
	for _, n := range cases {
		kids := Children(n)
		if len(kids) != 2 || Print(kids[0]) != Print(l) || Print(kids[1]) != Print(r) {
			t.Errorf("Children(%T) = %v, want [l r]", n, kids)
		}
	}
}

func TestChildrenUnaryNodes(t *testing.T) {
	p := sampleBGP("?x")
	cases := []Node{
		Filter{P: p},
		Extend{P: p},
		Group{P: p},
		Project{P: p},
		Distinct{P: p},
		Reduced{P: p},
		OrderBy{P: p},
		Slice{P: p},
		Service{P: p},
		Graph{P: p},
	}
	for _, n := range cases {
		kids := Children(n)
		if len(kids) != 1 || Print(kids[0]) != Print(p) {
			t.Errorf("Children(%T) = %v, want [p]", n, kids)
		}
	}
}

func TestFoldCountsNodes(t *testing.T) {
	tree := Join{L: sampleBGP("?x"), R: Filter{P: sampleBGP("?y")}}
	count, err := Fold(tree, func(n Node, kids []int) int {
		total := 1
		for _, k := range kids {
			total += k
		}
		return total
	})
	if err != nil {
		t.Fatalf("Fold: %v", err)
	}
	// Join + BGP + Filter + BGP = 4 nodes.
	if count != 4 {
		t.Errorf("Fold node count = %d, want 4", count)
	}
}

func TestFoldDepthGuard(t *testing.T) {
	var n Node = BGP{}
	for i := 0; i < MaxDepth+5; i++ {
		n = Filter{P: n}
	}
	_, err := Fold(n, func(n Node, kids []bool) bool { return true })
	if err == nil {
		t.Error("Fold should fail on a tree exceeding MaxDepth")
	}
}

func TestMapRebuildsTreeBottomUp(t *testing.T) {
	tree := Filter{P: sampleBGP("?x")}
	visited := 0
	out, err := Map(tree, func(n Node) Node {
		visited++
		return n
	})
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	// Two nodes: the BGP leaf, then the Filter.
	if visited != 2 {
		t.Errorf("Map visited %d nodes, want 2", visited)
	}
	if _, ok := out.(Filter); !ok {
		t.Errorf("Map() result type = %T, want Filter", out)
	}
}

func TestMapCanReplaceLeaf(t *testing.T) {
	tree := Filter{P: BGP{}}
	out, err := Map(tree, func(n Node) Node {
		if IsEmptyBGP(n) {
			return BGP{Patterns: []TriplePattern{{Subject: Var("?s"), Predicate: Var("?p"), Object: Var("?o")}}}
		}
		return n
	})
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	f, ok := out.(Filter)
	if !ok {
		t.Fatalf("Map() result type = %T, want Filter", out)
	}
	b, ok := f.P.(BGP)
	if !ok || len(b.Patterns) != 1 {
		t.Errorf("Map() did not rebuild the replaced child, got %+v", f.P)
	}
}
