package plan

import "github.com/wbrown/sparqlite/algebra"

// QueryPlan is the cost-based planner's output for one compiled query:
// a chosen JoinPlan for every BGP in the tree, keyed by that BGP's
// position in a pre-order walk (matching algebra.CollectBGPs's order,
// which the executor also uses to line execution up with planning).
type QueryPlan struct {
	BGPPlans []*JoinPlan
}

// Plan computes (or reuses from cache) a JoinPlan for every BGP in n.
// Each BGP is looked up by its own normalized key, so identically
// shaped BGPs across different queries share one cache entry.
func Plan(n algebra.Node, stats *Statistics, cache *Cache, w CostWeights) *QueryPlan {
	bgps := algebra.CollectBGPs(n)
	qp := &QueryPlan{BGPPlans: make([]*JoinPlan, len(bgps))}
	for i, bgp := range bgps {
		key := NormalizeKey(bgp)
		qp.BGPPlans[i] = cache.GetOrCompute(key, func() *JoinPlan {
			return EnumerateJoins(bgp.Patterns, stats, w)
		})
	}
	return qp
}
