package plan

import (
	"testing"

	"github.com/wbrown/sparqlite/algebra"
	"github.com/wbrown/sparqlite/rdf"
)

func bgpWithVars(s, o algebra.Symbol) algebra.Node {
	return algebra.BGP{Patterns: []algebra.TriplePattern{
		{Subject: algebra.Var(s), Predicate: algebra.Const(rdf.IRI("p")), Object: algebra.Var(o)},
	}}
}

func TestNormalizeKeyStableUnderAlphaRenaming(t *testing.T) {
	a := bgpWithVars("?s", "?o")
	b := bgpWithVars("?x", "?y")
	if NormalizeKey(a) != NormalizeKey(b) {
		t.Error("NormalizeKey should be identical for alpha-equivalent queries (uniform variable renaming)")
	}
}

func TestNormalizeKeyDiffersOnStructure(t *testing.T) {
	a := bgpWithVars("?s", "?o")
	b := algebra.BGP{Patterns: []algebra.TriplePattern{
		{Subject: algebra.Var("?s"), Predicate: algebra.Const(rdf.IRI("q")), Object: algebra.Var("?o")},
	}}
	if NormalizeKey(a) == NormalizeKey(b) {
		t.Error("NormalizeKey should differ when the constant predicate differs")
	}
}

func TestCacheGetMissThenPutThenHit(t *testing.T) {
	c := NewCache(10)
	key := NormalizeKey(bgpWithVars("?s", "?o"))

	if _, ok := c.Get(key); ok {
		t.Fatal("Get on an empty cache should miss")
	}
	plan := &JoinPlan{}
	c.Put(key, plan)

	got, ok := c.Get(key)
	if !ok || got != plan {
		t.Errorf("Get after Put = (%v, %v), want (plan, true)", got, ok)
	}

	stats := c.Stats()
	if stats.Misses != 1 || stats.Hits != 1 {
		t.Errorf("Stats() = %+v, want 1 miss and 1 hit", stats)
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewCache(2)
	k1 := NormalizeKey(bgpWithVars("?a", "?b"))
	k2 := NormalizeKey(algebra.BGP{Patterns: []algebra.TriplePattern{{Subject: algebra.Var("?a"), Predicate: algebra.Const(rdf.IRI("q1")), Object: algebra.Var("?b")}}})
	k3 := NormalizeKey(algebra.BGP{Patterns: []algebra.TriplePattern{{Subject: algebra.Var("?a"), Predicate: algebra.Const(rdf.IRI("q2")), Object: algebra.Var("?b")}}})

	c.Put(k1, &JoinPlan{})
	c.Put(k2, &JoinPlan{})
	// Touch k1 so it becomes more recently used than k2.
	c.Get(k1)
	// Inserting k3 should evict k2 (the least recently used), not k1.
	c.Put(k3, &JoinPlan{})

	if _, ok := c.Get(k1); !ok {
		t.Error("k1 was touched most recently and should survive eviction")
	}
	if _, ok := c.Get(k2); ok {
		t.Error("k2 should have been evicted as the least recently used entry")
	}
	if _, ok := c.Get(k3); !ok {
		t.Error("k3 was just inserted and should be present")
	}

	if c.Stats().Evictions != 1 {
		t.Errorf("Stats().Evictions = %d, want 1", c.Stats().Evictions)
	}
}

func TestCacheGetOrCompute(t *testing.T) {
	c := NewCache(10)
	key := NormalizeKey(bgpWithVars("?a", "?b"))
	calls := 0
	compute := func() *JoinPlan {
		calls++
		return &JoinPlan{}
	}

	p1 := c.GetOrCompute(key, compute)
	p2 := c.GetOrCompute(key, compute)

	if p1 != p2 {
		t.Error("GetOrCompute should return the same cached plan on the second call")
	}
	if calls != 1 {
		t.Errorf("compute was called %d times, want 1 (second call should hit the cache)", calls)
	}
}

func TestCacheInvalidateSingleKey(t *testing.T) {
	c := NewCache(10)
	k1 := NormalizeKey(bgpWithVars("?a", "?b"))
	k2 := NormalizeKey(algebra.BGP{Patterns: []algebra.TriplePattern{{Subject: algebra.Var("?a"), Predicate: algebra.Const(rdf.IRI("other")), Object: algebra.Var("?b")}}})
	c.Put(k1, &JoinPlan{})
	c.Put(k2, &JoinPlan{})

	c.Invalidate(&k1)

	if _, ok := c.Get(k1); ok {
		t.Error("Invalidate(&k1) should remove k1")
	}
	if _, ok := c.Get(k2); !ok {
		t.Error("Invalidate(&k1) should not affect k2")
	}
}

func TestCacheInvalidateAll(t *testing.T) {
	c := NewCache(10)
	k1 := NormalizeKey(bgpWithVars("?a", "?b"))
	c.Put(k1, &JoinPlan{})

	c.Invalidate(nil)

	if _, ok := c.Get(k1); ok {
		t.Error("Invalidate(nil) should clear the whole cache")
	}
}

func TestNewCacheDefaultsNonPositiveSize(t *testing.T) {
	c := NewCache(0)
	if c.maxSize != DefaultMaxSize {
		t.Errorf("NewCache(0).maxSize = %d, want DefaultMaxSize (%d)", c.maxSize, DefaultMaxSize)
	}
}
