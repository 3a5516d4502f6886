package dict

import (
	"sync"

	"github.com/wbrown/sparqlite/rdf"
	"github.com/zeebo/xxh3"
)

// MemDictionary is the reference in-memory Dictionary implementation.
// It backs tests and the in-memory store; a persistent deployment would
// swap in a disk-backed dictionary behind the same interface without
// touching the core. GetOrCreateID is linearizable per-term: the id
// space is append-only and a mutex serializes the check-then-mint
// path.
type MemDictionary struct {
	mu       sync.Mutex
	termToID map[uint64][]entry // xxh3 bucket -> collision chain
	idToTerm map[ID]rdf.Term
	counter  uint64
}

type entry struct {
	term rdf.Term
	id   ID
}

// NewMemDictionary returns an empty in-memory dictionary.
func NewMemDictionary() *MemDictionary {
	return &MemDictionary{
		termToID: make(map[uint64][]entry),
		idToTerm: make(map[ID]rdf.Term),
	}
}

func hashTerm(term rdf.Term) uint64 {
	// Term.String() is injective across kinds (IRIs are bracketed,
	// blanks prefixed, literals quoted and tagged), so it doubles as
	// the hash key.
	return xxh3.HashString(term.String())
}

func (d *MemDictionary) LookupID(term rdf.Term) (ID, bool) {
	if id, ok := TryInline(term); ok {
		return id, true
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lookupLocked(term)
}

func (d *MemDictionary) lookupLocked(term rdf.Term) (ID, bool) {
	for _, e := range d.termToID[hashTerm(term)] {
		if e.term.Equal(term) {
			return e.id, true
		}
	}
	return 0, false
}

func (d *MemDictionary) LookupTerm(id ID) (rdf.Term, bool) {
	if id.IsInline() {
		return DecodeInlineTerm(id)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.idToTerm[id]
	return t, ok
}

func (d *MemDictionary) GetOrCreateID(term rdf.Term) (ID, error) {
	if id, ok := TryInline(term); ok {
		return id, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if id, ok := d.lookupLocked(term); ok {
		return id, nil
	}
	d.counter++
	id := DictRef(d.counter)
	h := hashTerm(term)
	d.termToID[h] = append(d.termToID[h], entry{term: term, id: id})
	d.idToTerm[id] = term
	return id, nil
}

// Size returns the number of dictionary-space (non-inline) entries,
// used by Statistics to estimate distinct term counts.
func (d *MemDictionary) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.idToTerm)
}
