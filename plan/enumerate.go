package plan

import (
	"github.com/wbrown/sparqlite/algebra"
)

// JoinPlan is a physical join tree over a BGP's triple patterns: a
// binary tree of chosen strategies, or a single leapfrog node spanning
// every pattern it covers. It exists for costing and EXPLAIN output;
// the lazy NLJ executor still performs the actual per-pattern
// evaluation in PatternOrder.
type JoinPlan struct {
	// Patterns is the set of original pattern indices this node covers.
	Patterns    []int
	Strategy    Strategy
	Left, Right *JoinPlan // nil for a leaf scan or a leapfrog node
	Cardinality float64
	Cost        Cost
}

// IsLeaf reports whether p is a single-pattern scan.
func (p *JoinPlan) IsLeaf() bool { return p.Left == nil && p.Right == nil }

// PatternOrder returns the pattern indices in left-deep execution
// order: the order execute_bgp's NLJ should fold them in.
func (p *JoinPlan) PatternOrder() []int {
	if p == nil {
		return nil
	}
	if p.IsLeaf() {
		out := make([]int, len(p.Patterns))
		copy(out, p.Patterns)
		return out
	}
	out := append(p.Left.PatternOrder(), p.Right.PatternOrder()...)
	return out
}

// EnumerateJoins builds the cheapest join plan over patterns: exhaustive
// left-deep enumeration for n<=5, DP-ccp above, with a
// leapfrog alternative considered whenever at least 3 patterns share a
// variable across >= 3 patterns.
func EnumerateJoins(patterns []algebra.TriplePattern, stats *Statistics, w CostWeights) *JoinPlan {
	n := len(patterns)
	if n == 0 {
		return &JoinPlan{Cardinality: 1}
	}
	if n == 1 {
		return &JoinPlan{Patterns: []int{0}, Cardinality: EstimatePattern(patterns[0], stats)}
	}

	var pairwise *JoinPlan
	if n <= 5 {
		pairwise = enumerateExhaustive(patterns, stats, w)
	} else {
		pairwise = enumerateDPccp(patterns, stats, w)
	}

	if leapfrogEligible(patterns) {
		if lf := buildLeapfrogPlan(patterns, stats, w); lf.Cost.Total() < pairwise.Cost.Total() {
			return lf
		}
	}
	return pairwise
}

func sharedVariables(a, b algebra.TriplePattern) []algebra.Symbol {
	av := patternVars(a)
	bv := make(map[algebra.Symbol]bool)
	for _, v := range patternVars(b) {
		bv[v] = true
	}
	var shared []algebra.Symbol
	for _, v := range av {
		if bv[v] {
			shared = append(shared, v)
		}
	}
	return shared
}

func patternVars(p algebra.TriplePattern) []algebra.Symbol {
	var out []algebra.Symbol
	for _, t := range []algebra.PatternTerm{p.Subject, p.Predicate, p.Object} {
		if t.IsVariable() {
			out = append(out, t.Variable())
		}
	}
	return out
}

// leapfrogEligible reports whether a leapfrog plan is worth costing:
// patterns >= 3 and some variable appears in >= 3 patterns.
func leapfrogEligible(patterns []algebra.TriplePattern) bool {
	if len(patterns) < 3 {
		return false
	}
	counts := make(map[algebra.Symbol]int)
	for _, p := range patterns {
		for _, v := range patternVars(p) {
			counts[v]++
		}
	}
	for _, c := range counts {
		if c >= 3 {
			return true
		}
	}
	return false
}

func buildLeapfrogPlan(patterns []algebra.TriplePattern, stats *Statistics, w CostWeights) *JoinPlan {
	idx := make([]int, len(patterns))
	cards := make([]float64, len(patterns))
	for i, p := range patterns {
		idx[i] = i
		cards[i] = EstimatePattern(p, stats)
	}
	out := EstimateBGP(patterns, stats)
	cost := LeapfrogJoinCost(out, len(patterns), float64(stats.totalTriples()), cards, w)
	return &JoinPlan{Patterns: idx, Strategy: LeapfrogStrategy, Cardinality: out, Cost: cost}
}

// enumerateExhaustive handles the n<=5 case: permute
// pattern order, build left-deep plans, discard Cartesian-introducing
// orders unless no connected order exists, keep the cheapest.
func enumerateExhaustive(patterns []algebra.TriplePattern, stats *Statistics, w CostWeights) *JoinPlan {
	n := len(patterns)
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}

	var best *JoinPlan
	var bestConnected *JoinPlan
	permute(perm, 0, func(order []int) {
		p, connected := buildLeftDeep(order, patterns, stats, w)
		if best == nil || p.Cost.Total() < best.Cost.Total() {
			best = p
		}
		if connected && (bestConnected == nil || p.Cost.Total() < bestConnected.Cost.Total()) {
			bestConnected = p
		}
	})
	if bestConnected != nil {
		return bestConnected
	}
	return best
}

func permute(a []int, k int, visit func([]int)) {
	if k == len(a) {
		cp := make([]int, len(a))
		copy(cp, a)
		visit(cp)
		return
	}
	for i := k; i < len(a); i++ {
		a[k], a[i] = a[i], a[k]
		permute(a, k+1, visit)
		a[k], a[i] = a[i], a[k]
	}
}

// buildLeftDeep folds order into a left-deep join plan, reporting
// whether every step after the first shared a variable with the
// accumulated set (i.e. introduced no Cartesian edge).
func buildLeftDeep(order []int, patterns []algebra.TriplePattern, stats *Statistics, w CostWeights) (*JoinPlan, bool) {
	cur := &JoinPlan{Patterns: []int{order[0]}, Cardinality: EstimatePattern(patterns[order[0]], stats)}
	boundVars := make(map[algebra.Symbol]bool)
	for _, v := range patternVars(patterns[order[0]]) {
		boundVars[v] = true
	}
	connected := true
	for _, pi := range order[1:] {
		p := patterns[pi]
		shared := false
		for _, v := range patternVars(p) {
			if boundVars[v] {
				shared = true
			}
			boundVars[v] = true
		}
		if !shared {
			connected = false
		}
		rightCard := EstimatePattern(p, stats)
		strategy, cost := choosePairwiseStrategy(cur.Cardinality, rightCard, w)
		joinVars := sharedVarsWithSet(p, boundVars)
		outCard := EstimateJoin(cur.Cardinality, rightCard, joinVars, cur.Cardinality, rightCard, stats)
		cur = &JoinPlan{
			Patterns:    append(append([]int{}, cur.Patterns...), pi),
			Strategy:    strategy,
			Left:        cur,
			Right:       &JoinPlan{Patterns: []int{pi}, Cardinality: rightCard},
			Cardinality: outCard,
			Cost:        cur.Cost.Add(cost),
		}
	}
	return cur, connected
}

func sharedVarsWithSet(p algebra.TriplePattern, set map[algebra.Symbol]bool) []algebra.Symbol {
	var out []algebra.Symbol
	for _, v := range patternVars(p) {
		if set[v] {
			out = append(out, v)
		}
	}
	return out
}

// enumerateDPccp implements DP-ccp for n>5: a join
// graph over shared variables, memoized best plan per connected
// subset, combined via connected complement pairs.
func enumerateDPccp(patterns []algebra.TriplePattern, stats *Statistics, w CostWeights) *JoinPlan {
	n := len(patterns)
	adj := make([][]bool, n)
	for i := range adj {
		adj[i] = make([]bool, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if len(sharedVariables(patterns[i], patterns[j])) > 0 {
				adj[i][j] = true
				adj[j][i] = true
			}
		}
	}

	memo := make(map[uint32]*JoinPlan)
	for i := 0; i < n; i++ {
		mask := uint32(1) << uint(i)
		memo[mask] = &JoinPlan{Patterns: []int{i}, Cardinality: EstimatePattern(patterns[i], stats)}
	}

	full := uint32(1)<<uint(n) - 1
	for size := 2; size <= n; size++ {
		for mask := uint32(1); mask <= full; mask++ {
			if popcount(mask) != size {
				continue
			}
			var best *JoinPlan
			subsets := connectedSubsets(mask, adj, n)
			for _, l := range subsets {
				r := mask &^ l
				if r == 0 || l == 0 {
					continue
				}
				if l >= r {
					continue // consider each unordered {L, R} split only once
				}
				if !isConnectedPair(l, r, adj, n) {
					continue
				}
				lp, lok := memo[l]
				rp, rok := memo[r]
				if !lok || !rok {
					continue
				}
				strategy, cost := choosePairwiseStrategy(lp.Cardinality, rp.Cardinality, w)
				joinVars := crossJoinVars(patterns, l, r, n)
				outCard := EstimateJoin(lp.Cardinality, rp.Cardinality, joinVars, lp.Cardinality, rp.Cardinality, stats)
				cand := &JoinPlan{
					Patterns:    maskToPatterns(mask, n),
					Strategy:    strategy,
					Left:        lp,
					Right:       rp,
					Cardinality: outCard,
					Cost:        lp.Cost.Add(rp.Cost).Add(cost),
				}
				if best == nil || cand.Cost.Total() < best.Cost.Total() {
					best = cand
				}
			}
			if best != nil {
				memo[mask] = best
			}
		}
	}
	if p, ok := memo[full]; ok {
		return p
	}
	// No connected decomposition found (disconnected join graph):
	// fall back to a left-deep cascade in pattern order.
	p, _ := buildLeftDeep(identityOrder(n), patterns, stats, w)
	return p
}

func identityOrder(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func popcount(x uint32) int {
	c := 0
	for x != 0 {
		c += int(x & 1)
		x >>= 1
	}
	return c
}

func maskToPatterns(mask uint32, n int) []int {
	var out []int
	for i := 0; i < n; i++ {
		if mask&(1<<uint(i)) != 0 {
			out = append(out, i)
		}
	}
	return out
}

// connectedSubsets enumerates the proper, non-empty sub-masks of mask
// (every candidate L side of an (L, complement) split); the caller
// filters to connected complement pairs.
func connectedSubsets(mask uint32, adj [][]bool, n int) []uint32 {
	var out []uint32
	sub := (mask - 1) & mask
	for sub != 0 {
		out = append(out, sub)
		sub = (sub - 1) & mask
	}
	return out
}

// isConnectedPair reports whether some pattern in l shares a variable
// with some pattern in r, i.e. joining them introduces no Cartesian edge.
func isConnectedPair(l, r uint32, adj [][]bool, n int) bool {
	for i := 0; i < n; i++ {
		if l&(1<<uint(i)) == 0 {
			continue
		}
		for j := 0; j < n; j++ {
			if r&(1<<uint(j)) == 0 {
				continue
			}
			if adj[i][j] {
				return true
			}
		}
	}
	return false
}

func crossJoinVars(patterns []algebra.TriplePattern, l, r uint32, n int) []algebra.Symbol {
	seen := make(map[algebra.Symbol]bool)
	var out []algebra.Symbol
	leftVars := make(map[algebra.Symbol]bool)
	for i := 0; i < n; i++ {
		if l&(1<<uint(i)) == 0 {
			continue
		}
		for _, v := range patternVars(patterns[i]) {
			leftVars[v] = true
		}
	}
	for i := 0; i < n; i++ {
		if r&(1<<uint(i)) == 0 {
			continue
		}
		for _, v := range patternVars(patterns[i]) {
			if leftVars[v] && !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}
