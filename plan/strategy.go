package plan

// Strategy names a physical join algorithm.
type Strategy int

const (
	NestedLoop Strategy = iota
	HashJoinStrategy
	LeapfrogStrategy
)

func (s Strategy) String() string {
	switch s {
	case NestedLoop:
		return "nested_loop"
	case HashJoinStrategy:
		return "hash_join"
	case LeapfrogStrategy:
		return "leapfrog"
	default:
		return "unknown"
	}
}

// choosePairwiseStrategy picks between nested-loop and hash join
// (trying both build/probe orderings) for two operands of known
// cardinality: nested-loop wins ties outright when both inputs are
// small (< 100 tuples); otherwise the lower total cost wins.
func choosePairwiseStrategy(leftCard, rightCard float64, w CostWeights) (Strategy, Cost) {
	nl := NestedLoopJoinCost(leftCard, rightCard, w)
	hashLR := HashJoinCost(leftCard, rightCard, w) // build left, probe right
	hashRL := HashJoinCost(rightCard, leftCard, w) // build right, probe left
	bestHash := hashLR
	if hashRL.Total() < bestHash.Total() {
		bestHash = hashRL
	}
	if nl.Total() <= bestHash.Total() {
		return NestedLoop, nl
	}
	return HashJoinStrategy, bestHash
}
