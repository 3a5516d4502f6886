package plan

import "testing"

func TestCostTotalAndAdd(t *testing.T) {
	c := Cost{CPU: 1, IO: 2, Memory: 3}
	if c.Total() != 6 {
		t.Errorf("Total() = %v, want 6", c.Total())
	}
	sum := c.Add(Cost{CPU: 1, IO: 1, Memory: 1})
	if sum != (Cost{CPU: 2, IO: 3, Memory: 4}) {
		t.Errorf("Add() = %+v, want {2 3 4}", sum)
	}
}

func TestNestedLoopJoinCostScalesWithBothSides(t *testing.T) {
	small := NestedLoopJoinCost(10, 10, DefaultWeights)
	large := NestedLoopJoinCost(100, 100, DefaultWeights)
	if large.CPU <= small.CPU {
		t.Errorf("NestedLoopJoinCost should grow with both operand sizes: small=%v large=%v", small, large)
	}
}

func TestHashJoinCostBuildSideDrivesMemory(t *testing.T) {
	c := HashJoinCost(1000, 10, DefaultWeights)
	if c.Memory != 1000*DefaultWeights.Memory {
		t.Errorf("HashJoinCost memory = %v, want proportional to the build side (1000)", c.Memory)
	}
}

func TestClassifyScan(t *testing.T) {
	cases := []struct {
		bound int
		want  ScanType
	}{
		{0, ScanFull},
		{1, ScanPrefix},
		{2, ScanPrefix},
		{3, ScanPoint},
	}
	for _, c := range cases {
		if got := ClassifyScan(c.bound); got != c.want {
			t.Errorf("ClassifyScan(%d) = %v, want %v", c.bound, got, c.want)
		}
	}
}

func TestIndexScanCostPointIgnoresN(t *testing.T) {
	c1 := IndexScanCost(ScanPoint, 10, false, DefaultWeights)
	c2 := IndexScanCost(ScanPoint, 10_000, false, DefaultWeights)
	if c1 != c2 {
		t.Errorf("a point scan's cost must not depend on n: %v vs %v", c1, c2)
	}
}

func TestIndexScanCostSOPPaysExtra(t *testing.T) {
	plain := IndexScanCost(ScanPrefix, 100, false, DefaultWeights)
	sop := IndexScanCost(ScanPrefix, 100, true, DefaultWeights)
	if sop.CPU <= plain.CPU {
		t.Errorf("an S?O scan should pay extra CPU for the post-filter pass: plain=%v sop=%v", plain, sop)
	}
}

func TestFilterCostLinearInN(t *testing.T) {
	c1 := FilterCost(10, DefaultWeights)
	c2 := FilterCost(20, DefaultWeights)
	if c2.CPU != 2*c1.CPU {
		t.Errorf("FilterCost should scale linearly with n: FilterCost(20)=%v, want 2x FilterCost(10)=%v", c2, c1)
	}
}

func TestChoosePairwiseStrategyPrefersNestedLoopForSmallInputs(t *testing.T) {
	strategy, _ := choosePairwiseStrategy(2, 2, DefaultWeights)
	if strategy != NestedLoop {
		t.Errorf("choosePairwiseStrategy(2,2) = %v, want NestedLoop for tiny inputs", strategy)
	}
}

func TestChoosePairwiseStrategyPrefersHashForLargeSkewedInputs(t *testing.T) {
	strategy, _ := choosePairwiseStrategy(1, 1_000_000, DefaultWeights)
	if strategy != HashJoinStrategy {
		t.Errorf("choosePairwiseStrategy(1,1000000) = %v, want HashJoinStrategy", strategy)
	}
}

func TestStrategyString(t *testing.T) {
	cases := map[Strategy]string{
		NestedLoop:       "nested_loop",
		HashJoinStrategy: "hash_join",
		LeapfrogStrategy: "leapfrog",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("%v.String() = %q, want %q", s, got, want)
		}
	}
}
