// Package plan implements the cost-based join planner: cardinality
// estimation, a cost model over join and scan strategies, exhaustive
// and DP-ccp join enumeration, and a normalized, size-bounded LRU
// plan cache.
package plan

import "github.com/wbrown/sparqlite/rdf"

// Statistics is the store's statistics snapshot: total triple count,
// per-position distinct-value counts, a per-predicate triple-count
// histogram, and a marker for which predicates carry a numeric range
// index. It is a pure data
// snapshot; nothing in this package mutates it.
type Statistics struct {
	TotalTriples     int64
	DistinctSubjects int64
	DistinctObjects  int64
	// PredicateHistogram maps a predicate's lexical IRI to its triple count.
	PredicateHistogram map[string]int64
	// DistinctPredicates is len(PredicateHistogram), cached for convenience.
	DistinctPredicates int64
	// RangeIndexed marks predicates with a numeric range index
	// available, used by BGP reordering's range-filter bonus.
	RangeIndexed map[string]bool
}

// NewStatistics returns an empty statistics snapshot (no triples
// loaded), useful for tests and cold-start planning.
func NewStatistics() *Statistics {
	return &Statistics{
		PredicateHistogram: make(map[string]int64),
		RangeIndexed:       make(map[string]bool),
	}
}

// PredicateCount returns the histogram entry for predicate, if any.
func (s *Statistics) PredicateCount(predicate rdf.Term) (int64, bool) {
	if s == nil || !predicate.IsIRI() {
		return 0, false
	}
	c, ok := s.PredicateHistogram[predicate.Value()]
	return c, ok
}

// HasRangeIndex reports whether predicate carries a numeric range index.
func (s *Statistics) HasRangeIndex(predicate rdf.Term) bool {
	if s == nil || !predicate.IsIRI() {
		return false
	}
	return s.RangeIndexed[predicate.Value()]
}

// distinctCount returns the store-wide distinct value count for one
// triple position, used by estimate_pattern's constant-position
// selectivity.
func (s *Statistics) distinctCount(position int) int64 {
	if s == nil {
		return 1
	}
	switch position {
	case 0:
		if s.DistinctSubjects > 0 {
			return s.DistinctSubjects
		}
	case 2:
		if s.DistinctObjects > 0 {
			return s.DistinctObjects
		}
	case 1:
		if s.DistinctPredicates > 0 {
			return s.DistinctPredicates
		}
		if n := int64(len(s.PredicateHistogram)); n > 0 {
			return n
		}
	}
	return 1
}

func (s *Statistics) totalTriples() int64 {
	if s == nil || s.TotalTriples <= 0 {
		return 1
	}
	return s.TotalTriples
}
