package store

import (
	"sort"
	"sync"
)

// MemStore is the reference in-memory Store implementation: a sorted
// key set per covering index. Because EncodeKey/DecodeKey round-trip
// the full triple through the key bytes, no separate value store is
// needed. It backs unit tests and any deployment that does not need
// durability; BadgerStore is the persistent counterpart over the same
// Store interface.
type MemStore struct {
	mu      sync.RWMutex
	indices [3]map[string]struct{}
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	s := &MemStore{}
	for i := range s.indices {
		s.indices[i] = make(map[string]struct{})
	}
	return s
}

func (s *MemStore) InsertTriples(triples []Triple) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range triples {
		for _, kv := range EncodeTripleKeys(t) {
			s.indices[kv.Index][string(kv.Key)] = struct{}{}
		}
	}
	return nil
}

func (s *MemStore) DeleteTriples(triples []Triple) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range triples {
		for _, kv := range EncodeTripleKeys(t) {
			delete(s.indices[kv.Index], string(kv.Key))
		}
	}
	return nil
}

func (s *MemStore) WriteBatch(deletes, inserts []Triple) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range deletes {
		for _, kv := range EncodeTripleKeys(t) {
			delete(s.indices[kv.Index], string(kv.Key))
		}
	}
	for _, t := range inserts {
		for _, kv := range EncodeTripleKeys(t) {
			s.indices[kv.Index][string(kv.Key)] = struct{}{}
		}
	}
	return nil
}

func (s *MemStore) Lookup(pattern Pattern) (Iterator, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	idx := pattern.BestIndex()
	start, end := KeyRange(idx, pattern)
	it, err := snap.Stream(idx, start, end)
	if err != nil {
		snap.Close()
		return nil, err
	}
	return &filteredIterator{base: it, pattern: pattern, snap: snap}, nil
}

// filteredIterator re-checks all three pattern positions against each
// decoded key, since the scanned prefix may only cover a subset of the
// bound positions (see Pattern.BestIndex/KeyRange).
type filteredIterator struct {
	base    Iterator
	pattern Pattern
	snap    Snapshot
	cur     Triple
	err     error
}

func (f *filteredIterator) Next() bool {
	for f.base.Next() {
		t := f.base.Triple()
		if matches(f.pattern, t) {
			f.cur = t
			return true
		}
	}
	f.err = f.base.Err()
	return false
}

func matches(p Pattern, t Triple) bool {
	if p.S != nil && *p.S != t.S {
		return false
	}
	if p.P != nil && *p.P != t.P {
		return false
	}
	if p.O != nil && *p.O != t.O {
		return false
	}
	return true
}

func (f *filteredIterator) Triple() Triple { return f.cur }
func (f *filteredIterator) Err() error     { return f.err }
func (f *filteredIterator) Close() error {
	f.base.Close()
	return f.snap.Close()
}

func (s *MemStore) Snapshot() (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := &memSnapshot{}
	for i := range s.indices {
		keys := make([]string, 0, len(s.indices[i]))
		for k := range s.indices[i] {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		snap.sorted[i] = keys
	}
	return snap, nil
}

func (s *MemStore) CountPrefix(idx Index, pattern Pattern) (int64, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return 0, err
	}
	defer snap.Close()
	ms := snap.(*memSnapshot)
	start, end := KeyRange(idx, pattern)
	lo, hi := boundsOf(ms.sorted[idx], start, end)
	return int64(hi - lo), nil
}

func (s *MemStore) Close() error { return nil }

// memSnapshot holds a deep, point-in-time copy of each index's sorted
// key list, giving true snapshot isolation: later writes to the store
// never affect an already-open snapshot.
type memSnapshot struct {
	sorted [3][]string
}

func (m *memSnapshot) Stream(idx Index, start, end []byte) (Iterator, error) {
	lo, hi := boundsOf(m.sorted[idx], start, end)
	return &memIterator{keys: m.sorted[idx][lo:hi], pos: -1}, nil
}

func (m *memSnapshot) Close() error { return nil }

func boundsOf(keys []string, start, end []byte) (lo, hi int) {
	lo = sort.Search(len(keys), func(i int) bool { return keys[i] >= string(start) })
	if end == nil {
		hi = len(keys)
	} else {
		hi = sort.Search(len(keys), func(i int) bool { return keys[i] >= string(end) })
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

type memIterator struct {
	keys []string
	pos  int
}

func (it *memIterator) Next() bool {
	it.pos++
	return it.pos < len(it.keys)
}

func (it *memIterator) Triple() Triple {
	_, t, ok := DecodeKey([]byte(it.keys[it.pos]))
	if !ok {
		return Triple{}
	}
	return t
}

func (it *memIterator) Err() error   { return nil }
func (it *memIterator) Close() error { return nil }
