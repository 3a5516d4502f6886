package plan

import "math"

// CostWeights are the configurable relative weights of the cost
// model; DefaultWeights holds the defaults.
type CostWeights struct {
	Comparison     float64
	Hash           float64
	HashProbe      float64
	IndexSeek      float64
	SequentialRead float64
	LeapfrogSeek   float64
	LeapfrogCmp    float64
	Memory         float64
}

// DefaultWeights are the default cost-model weights.
var DefaultWeights = CostWeights{
	Comparison:     1.0,
	Hash:           2.0,
	HashProbe:      1.5,
	IndexSeek:      10.0,
	SequentialRead: 0.1,
	LeapfrogSeek:   5.0,
	LeapfrogCmp:    1.5,
	Memory:         1.0,
}

// Cost is a three-dimensional, non-negative cost estimate; Total is
// always the component sum.
type Cost struct {
	CPU    float64
	IO     float64
	Memory float64
}

// Total returns cpu+io+memory.
func (c Cost) Total() float64 { return c.CPU + c.IO + c.Memory }

// Add combines two costs component-wise, for costing a plan tree
// bottom-up.
func (c Cost) Add(o Cost) Cost {
	return Cost{CPU: c.CPU + o.CPU, IO: c.IO + o.IO, Memory: c.Memory + o.Memory}
}

// NestedLoopJoinCost: cpu = L*R*cmp, mem = R*memw.
func NestedLoopJoinCost(left, right float64, w CostWeights) Cost {
	return Cost{CPU: left * right * w.Comparison, Memory: right * w.Memory}
}

// HashJoinCost: cpu = L*hash + R*probe, mem = L*memw (build side L).
// Callers try both orderings and keep the cheaper.
func HashJoinCost(buildSide, probeSide float64, w CostWeights) Cost {
	return Cost{CPU: buildSide*w.Hash + probeSide*w.HashProbe, Memory: buildSide * w.Memory}
}

// LeapfrogJoinCost: k patterns sharing variables, out is the estimated
// output cardinality, triples the store's total triple count, cards
// the per-pattern cardinalities.
func LeapfrogJoinCost(out float64, k int, triples float64, cards []float64, w CostWeights) Cost {
	logTriples := math.Log2(math.Max(triples, 2))
	cpu := out * float64(k) * (w.LeapfrogSeek*logTriples + w.LeapfrogCmp)
	io := 0.0
	for _, c := range cards {
		if c <= 0 {
			c = minCard
		}
		io += (out / c) * w.LeapfrogSeek
	}
	return Cost{CPU: cpu, IO: io, Memory: float64(k) * w.Memory}
}

// ScanType classifies a pattern's access path by how many positions
// are bound.
type ScanType int

const (
	ScanFull ScanType = iota
	ScanPrefix
	ScanPoint
)

// ClassifyScan derives the scan type from the number of bound
// positions: 3 -> point, 0 -> full, else -> prefix.
func ClassifyScan(boundPositions int) ScanType {
	switch boundPositions {
	case 3:
		return ScanPoint
	case 0:
		return ScanFull
	default:
		return ScanPrefix
	}
}

// IndexScanCost implements the point/prefix/full scan cost formulas.
// n is the estimated number of matching rows (ignored for point
// scans); sop marks a `S?O` pattern (subject and object bound,
// predicate free), which pays an extra post-filter pass.
func IndexScanCost(scan ScanType, n float64, sop bool, w CostWeights) Cost {
	var c Cost
	switch scan {
	case ScanPoint:
		c = Cost{CPU: w.Comparison, IO: w.IndexSeek}
	case ScanPrefix:
		c = Cost{CPU: n * w.Comparison, IO: w.IndexSeek + n*w.SequentialRead}
	default:
		c = Cost{CPU: n * w.Comparison, IO: n * w.SequentialRead}
	}
	if sop {
		c.CPU += n * 2 * w.Comparison
	}
	return c
}

// FilterCost: cpu = n*cmp.
func FilterCost(n float64, w CostWeights) Cost {
	return Cost{CPU: n * w.Comparison}
}
