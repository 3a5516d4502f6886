package exec

import (
	"context"
	"testing"

	"github.com/wbrown/sparqlite/algebra"
	"github.com/wbrown/sparqlite/dict"
	"github.com/wbrown/sparqlite/rdf"
	"github.com/wbrown/sparqlite/store"
)

// newTestContext builds a fresh in-memory store + dictionary harness
// preloaded with triples, the shared fixture for executor tests.
func newTestContext(t *testing.T, triples ...rdf.Triple) (*Context, store.Store, dict.Dictionary) {
	t.Helper()
	s := store.NewMemStore()
	d := dict.NewMemDictionary()
	c := NewContext(context.Background(), s, d)
	for _, tr := range triples {
		insertTriple(t, c, tr)
	}
	return c, s, d
}

func insertTriple(t *testing.T, c *Context, tr rdf.Triple) {
	t.Helper()
	sid, err := c.encodeTerm(tr.Subject)
	if err != nil {
		t.Fatalf("encodeTerm(subject): %v", err)
	}
	pid, err := c.encodeTerm(tr.Predicate)
	if err != nil {
		t.Fatalf("encodeTerm(predicate): %v", err)
	}
	oid, err := c.encodeTerm(tr.Object)
	if err != nil {
		t.Fatalf("encodeTerm(object): %v", err)
	}
	if err := c.Store.InsertTriples([]store.Triple{{S: sid, P: pid, O: oid}}); err != nil {
		t.Fatalf("InsertTriples: %v", err)
	}
}

func pat(s, p, o algebra.PatternTerm) algebra.TriplePattern {
	return algebra.TriplePattern{Subject: s, Predicate: p, Object: o}
}
