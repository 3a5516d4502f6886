package plan

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/wbrown/sparqlite/dict"
	"github.com/wbrown/sparqlite/rdf"
	"github.com/wbrown/sparqlite/store"
)

// CollectStatistics builds a Statistics snapshot from s's covering
// indices. The snapshot is point-in-time, recomputed by the caller
// rather than maintained incrementally. A full scan is acceptable
// here: this is a CLI/test convenience for cold-starting the planner
// against a store that wasn't built up through this process's own
// insert calls.
//
// The cheap CountPrefix(SPO) total and the per-position distinct-value
// scan touch disjoint store state (a prefix count versus a full
// iterator), so they run concurrently via errgroup rather than back to
// back: both MemStore and BadgerStore hand out independent read
// snapshots, so there is no shared mutable state to race on.
func CollectStatistics(s store.Store, d dict.Dictionary) (*Statistics, error) {
	stats := NewStatistics()

	subjects := make(map[dict.ID]struct{})
	objects := make(map[dict.ID]struct{})
	predicateCounts := make(map[dict.ID]int64)

	g, _ := errgroup.WithContext(context.Background())
	g.Go(func() error {
		total, err := s.CountPrefix(store.SPO, store.Pattern{})
		if err != nil {
			return err
		}
		stats.TotalTriples = total
		return nil
	})
	g.Go(func() error {
		it, err := s.Lookup(store.Pattern{})
		if err != nil {
			return err
		}
		defer it.Close()
		for it.Next() {
			t := it.Triple()
			subjects[t.S] = struct{}{}
			objects[t.O] = struct{}{}
			predicateCounts[t.P]++
		}
		return it.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.DistinctSubjects = int64(len(subjects))
	stats.DistinctObjects = int64(len(objects))

	for id, count := range predicateCounts {
		term, ok := d.LookupTerm(id)
		if !ok || term.Kind() != rdf.KindIRI {
			continue
		}
		stats.PredicateHistogram[term.Value()] = count
	}
	stats.DistinctPredicates = int64(len(stats.PredicateHistogram))

	return stats, nil
}
