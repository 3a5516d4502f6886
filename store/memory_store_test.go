package store

import (
	"testing"

	"github.com/wbrown/sparqlite/dict"
)

func id(n uint64) dict.ID { return dict.ID(n) }

func drain(t *testing.T, it Iterator) []Triple {
	t.Helper()
	var out []Triple
	for it.Next() {
		out = append(out, it.Triple())
	}
	if err := it.Err(); err != nil {
		t.Fatalf("iterator error: %v", err)
	}
	if err := it.Close(); err != nil {
		t.Fatalf("iterator close: %v", err)
	}
	return out
}

func TestMemStoreInsertThenLookupByFullPattern(t *testing.T) {
	s := NewMemStore()
	tr := Triple{S: id(1), P: id(2), O: id(3)}
	if err := s.InsertTriples([]Triple{tr}); err != nil {
		t.Fatalf("InsertTriples: %v", err)
	}

	sp, pp, op := tr.S, tr.P, tr.O
	it, err := s.Lookup(Pattern{S: &sp, P: &pp, O: &op})
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	got := drain(t, it)
	if len(got) != 1 || got[0] != tr {
		t.Errorf("Lookup(full pattern) = %v, want [%v]", got, tr)
	}
}

func TestMemStoreLookupByPredicateOnly(t *testing.T) {
	s := NewMemStore()
	p := id(100)
	triples := []Triple{
		{S: id(1), P: p, O: id(10)},
		{S: id(2), P: p, O: id(20)},
		{S: id(3), P: id(200), O: id(30)},
	}
	if err := s.InsertTriples(triples); err != nil {
		t.Fatalf("InsertTriples: %v", err)
	}

	it, err := s.Lookup(Pattern{P: &p})
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	got := drain(t, it)
	if len(got) != 2 {
		t.Errorf("Lookup(predicate-only) returned %d triples, want 2", len(got))
	}
}

func TestMemStoreDeleteIsAtomicAcrossIndices(t *testing.T) {
	s := NewMemStore()
	tr := Triple{S: id(1), P: id(2), O: id(3)}
	if err := s.InsertTriples([]Triple{tr}); err != nil {
		t.Fatalf("InsertTriples: %v", err)
	}
	if err := s.DeleteTriples([]Triple{tr}); err != nil {
		t.Fatalf("DeleteTriples: %v", err)
	}

	for _, idx := range []Index{SPO, POS, OSP} {
		n, err := s.CountPrefix(idx, Pattern{})
		if err != nil {
			t.Fatalf("CountPrefix(%v): %v", idx, err)
		}
		if n != 0 {
			t.Errorf("CountPrefix(%v) after delete = %d, want 0 (deletion must be atomic across all 3 indices)", idx, n)
		}
	}
}

func TestMemStoreDeleteAbsentTripleIsNoOp(t *testing.T) {
	s := NewMemStore()
	tr := Triple{S: id(1), P: id(2), O: id(3)}
	if err := s.DeleteTriples([]Triple{tr}); err != nil {
		t.Errorf("deleting an absent triple should be a no-op, got error: %v", err)
	}
}

func TestMemStoreInsertIsIdempotent(t *testing.T) {
	s := NewMemStore()
	tr := Triple{S: id(1), P: id(2), O: id(3)}
	if err := s.InsertTriples([]Triple{tr, tr}); err != nil {
		t.Fatalf("InsertTriples: %v", err)
	}
	n, err := s.CountPrefix(SPO, Pattern{})
	if err != nil {
		t.Fatalf("CountPrefix: %v", err)
	}
	if n != 1 {
		t.Errorf("inserting the same triple twice should not duplicate it: CountPrefix = %d, want 1", n)
	}
}

func TestMemStoreWriteBatchAppliesDeletesThenInserts(t *testing.T) {
	s := NewMemStore()
	old := Triple{S: id(1), P: id(2), O: id(3)}
	if err := s.InsertTriples([]Triple{old}); err != nil {
		t.Fatalf("InsertTriples: %v", err)
	}

	replacement := Triple{S: id(1), P: id(2), O: id(4)}
	if err := s.WriteBatch([]Triple{old}, []Triple{replacement}); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}

	it, err := s.Lookup(Pattern{})
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	got := drain(t, it)
	if len(got) != 1 || got[0] != replacement {
		t.Errorf("after WriteBatch the store should hold only the replacement triple, got %v", got)
	}
}

func TestMemStoreWriteBatchDeleteAndReinsertSameTriple(t *testing.T) {
	s := NewMemStore()
	tr := Triple{S: id(1), P: id(2), O: id(3)}
	if err := s.InsertTriples([]Triple{tr}); err != nil {
		t.Fatalf("InsertTriples: %v", err)
	}
	// Deletes apply before inserts, so deleting and reinserting the same
	// triple in one batch must leave it present.
	if err := s.WriteBatch([]Triple{tr}, []Triple{tr}); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	n, err := s.CountPrefix(SPO, Pattern{})
	if err != nil {
		t.Fatalf("CountPrefix: %v", err)
	}
	if n != 1 {
		t.Errorf("CountPrefix after delete+reinsert batch = %d, want 1", n)
	}
}

func TestMemStoreSnapshotIsolation(t *testing.T) {
	s := NewMemStore()
	tr1 := Triple{S: id(1), P: id(2), O: id(3)}
	if err := s.InsertTriples([]Triple{tr1}); err != nil {
		t.Fatalf("InsertTriples: %v", err)
	}

	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	defer snap.Close()

	tr2 := Triple{S: id(4), P: id(5), O: id(6)}
	if err := s.InsertTriples([]Triple{tr2}); err != nil {
		t.Fatalf("InsertTriples after snapshot: %v", err)
	}

	it, err := snap.Stream(SPO, []byte{byte(SPO)}, nil)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	got := drain(t, it)
	if len(got) != 1 {
		t.Errorf("a query begun on a snapshot must not see triples inserted afterward: got %d triples, want 1", len(got))
	}
}

func TestCountPrefixMatchesLookupCardinality(t *testing.T) {
	s := NewMemStore()
	p := id(7)
	triples := []Triple{
		{S: id(1), P: p, O: id(10)},
		{S: id(2), P: p, O: id(20)},
	}
	if err := s.InsertTriples(triples); err != nil {
		t.Fatalf("InsertTriples: %v", err)
	}
	n, err := s.CountPrefix(POS, Pattern{P: &p})
	if err != nil {
		t.Fatalf("CountPrefix: %v", err)
	}
	if n != 2 {
		t.Errorf("CountPrefix(POS, predicate=7) = %d, want 2", n)
	}
}
