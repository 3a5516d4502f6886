package algebra

import (
	"github.com/wbrown/sparqlite/internal/errs"
)

var errTooDeep = errs.New(errs.TooDeeplyNested, "algebra tree exceeds MAX_DEPTH=%d", MaxDepth)

// Validate checks n's structural invariants recursively, returning
// the first error found: a negative Slice offset or invalid limit, a
// triple pattern with an unnamed variable, a VALUES row of the wrong
// width, an unknown aggregate function, an empty property path, or
// depth overflow. It holds for every interior node, recursively.
func Validate(n Node) error {
	return validateDepth(n, 0)
}

func validateDepth(n Node, depth int) error {
	if depth > MaxDepth {
		return errTooDeep
	}
	switch v := n.(type) {
	case BGP:
		for _, p := range v.Patterns {
			if err := validatePattern(p); err != nil {
				return err
			}
		}
	case Slice:
		if v.Offset < 0 {
			return errs.New(errs.BindingMismatch, "Slice offset must be non-negative, got %d", v.Offset)
		}
		if v.Limit < 0 && v.Limit != NoLimit {
			return errs.New(errs.BindingMismatch, "Slice limit must be non-negative or NoLimit, got %d", v.Limit)
		}
	case Values:
		for _, row := range v.Rows {
			if len(row) != len(v.Vars) {
				return errs.New(errs.BindingMismatch, "VALUES row has %d columns, expected %d", len(row), len(v.Vars))
			}
		}
	case Group:
		for _, ab := range v.Aggs {
			if err := validateAggregate(ab.Agg); err != nil {
				return err
			}
		}
	case Path:
		if len(v.Path.Steps) == 0 && v.Path.Raw == "" {
			return errs.New(errs.UnsupportedPattern, "empty property path")
		}
	case Service:
		// Silent is a Go bool, so there is no ill-typed Service node to
		// reject here; P is validated recursively below.
	}
	for _, c := range Children(n) {
		if err := validateDepth(c, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func validatePattern(p TriplePattern) error {
	for _, t := range []PatternTerm{p.Subject, p.Predicate, p.Object} {
		if t.IsVariable() && t.Variable() == "" {
			return errs.New(errs.BindingMismatch, "triple pattern has an unnamed variable")
		}
	}
	return nil
}

func validateAggregate(a Aggregate) error {
	switch a.Func {
	case "count", "sum", "avg", "min", "max", "group_concat", "sample":
		return nil
	default:
		return errs.New(errs.UnsupportedOperation, "unknown aggregate function %q", a.Func)
	}
}
