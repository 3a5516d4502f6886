package optimize

import (
	"github.com/wbrown/sparqlite/algebra"
	"github.com/wbrown/sparqlite/plan"
)

// Optimize runs the fixed rewrite pipeline: constant folding,
// then BGP reordering, then filter push-down. The whole pipeline is
// idempotent: re-running it on its own output returns the same tree.
func Optimize(n algebra.Node, stats *plan.Statistics) (algebra.Node, error) {
	folded, err := FoldConstants(n)
	if err != nil {
		return nil, err
	}
	reordered, err := ReorderBGPs(folded, stats)
	if err != nil {
		return nil, err
	}
	pushed, err := PushDownFilters(reordered)
	if err != nil {
		return nil, err
	}
	return pushed, nil
}

// ExplainReport is the output of Explain: which passes would change
// the tree, plus filter/BGP statistics, without mutating the input.
type ExplainReport struct {
	FoldingChanges    bool
	ReorderingChanges bool
	PushdownChanges   bool
	BGPCount          int
	FilterCount       int
	TripleCount       int
	FinalTree         algebra.Node
}

// Explain runs the same pipeline as Optimize but reports which passes
// actually changed the tree, without committing to any side effect
// beyond building the report.
func Explain(n algebra.Node, stats *plan.Statistics) (*ExplainReport, error) {
	report := &ExplainReport{
		BGPCount:    len(algebra.CollectBGPs(n)),
		FilterCount: len(algebra.CollectFilters(n)),
		TripleCount: algebra.TripleCount(n),
	}

	folded, err := FoldConstants(n)
	if err != nil {
		return nil, err
	}
	report.FoldingChanges = algebra.Print(folded) != algebra.Print(n)

	reordered, err := ReorderBGPs(folded, stats)
	if err != nil {
		return nil, err
	}
	report.ReorderingChanges = algebra.Print(reordered) != algebra.Print(folded)

	pushed, err := PushDownFilters(reordered)
	if err != nil {
		return nil, err
	}
	report.PushdownChanges = algebra.Print(pushed) != algebra.Print(reordered)

	report.FinalTree = pushed
	return report, nil
}
