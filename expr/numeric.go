// Package expr implements the SPARQL scalar expression evaluator:
// arithmetic and comparison with numeric type coercion, effective
// boolean value, the required built-in function library, ReDoS-safe
// regex, and multiset aggregates. It is invoked by
// both the optimizer (constant folding) and the executor (FILTER,
// BIND, ORDER BY keys, aggregates).
package expr

import (
	"strconv"

	"github.com/wbrown/sparqlite/internal/errs"
	"github.com/wbrown/sparqlite/rdf"
)

// numTier orders the numeric type-promotion ladder:
// integer < decimal < float < double.
type numTier int

const (
	tierInteger numTier = iota
	tierDecimal
	tierFloat
	tierDouble
)

// numeric is a decoded numeric literal: its tier plus a float64
// magnitude sufficient for arithmetic and comparison. Decimal/integer
// values that need exact semantics elsewhere (the dictionary's inline
// encoding) are handled there; the evaluator only needs IEEE-safe
// arithmetic, matching what a SPARQL engine's expression layer does
// with typed literals.
type numeric struct {
	tier numTier
	val  float64
}

func tierOf(datatype string) (numTier, bool) {
	switch datatype {
	case rdf.XSDInteger:
		return tierInteger, true
	case rdf.XSDDecimal:
		return tierDecimal, true
	case rdf.XSDFloat:
		return tierFloat, true
	case rdf.XSDDouble:
		return tierDouble, true
	}
	return 0, false
}

func datatypeOf(t numTier) string {
	switch t {
	case tierInteger:
		return rdf.XSDInteger
	case tierDecimal:
		return rdf.XSDDecimal
	case tierFloat:
		return rdf.XSDFloat
	default:
		return rdf.XSDDouble
	}
}

// asNumeric decodes term as a numeric literal, if it is one.
func asNumeric(term rdf.Term) (numeric, bool) {
	if !term.IsLiteral() {
		return numeric{}, false
	}
	tier, ok := tierOf(term.Datatype())
	if !ok {
		return numeric{}, false
	}
	f, err := strconv.ParseFloat(term.Value(), 64)
	if err != nil {
		return numeric{}, false
	}
	return numeric{tier: tier, val: f}, true
}

// isNumeric reports whether term has a recognized numeric datatype.
func isNumeric(term rdf.Term) bool {
	_, ok := asNumeric(term)
	return ok
}

// promote returns the wider of a and b's tiers, per the integer ≺
// decimal ≺ float ≺ double ladder.
func promote(a, b numTier) numTier {
	if a > b {
		return a
	}
	return b
}

func numericTerm(v float64, tier numTier) rdf.Term {
	var lexical string
	switch tier {
	case tierInteger:
		lexical = strconv.FormatInt(int64(v), 10)
	default:
		lexical = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return rdf.TypedLiteral(lexical, datatypeOf(tier))
}

func arith(op string, a, b rdf.Term) (rdf.Term, error) {
	na, ok := asNumeric(a)
	if !ok {
		return rdf.Term{}, errs.New(errs.BindingMismatch, "arithmetic on non-numeric term %s", a.String())
	}
	nb, ok := asNumeric(b)
	if !ok {
		return rdf.Term{}, errs.New(errs.BindingMismatch, "arithmetic on non-numeric term %s", b.String())
	}
	tier := promote(na.tier, nb.tier)
	switch op {
	case "+":
		return numericTerm(na.val+nb.val, tier), nil
	case "-":
		return numericTerm(na.val-nb.val, tier), nil
	case "*":
		return numericTerm(na.val*nb.val, tier), nil
	case "/":
		if nb.val == 0 {
			return rdf.Term{}, errs.New(errs.BindingMismatch, "division by zero")
		}
		// Integer division promotes to decimal.
		divTier := tier
		if divTier == tierInteger {
			divTier = tierDecimal
		}
		return numericTerm(na.val/nb.val, divTier), nil
	}
	return rdf.Term{}, errs.New(errs.UnsupportedOperation, "unknown arithmetic operator %q", op)
}

func unaryMinus(a rdf.Term) (rdf.Term, error) {
	na, ok := asNumeric(a)
	if !ok {
		return rdf.Term{}, errs.New(errs.BindingMismatch, "arithmetic negation on non-numeric term %s", a.String())
	}
	return numericTerm(-na.val, na.tier), nil
}

// compareValues applies SPARQL's comparison rule: numeric
// comparison when both sides are numeric, else lexicographic string
// comparison on the literal values; IRIs and blanks compare equal only
// by identity.
func compareValues(a, b rdf.Term) (int, error) {
	if na, ok := asNumeric(a); ok {
		if nb, ok := asNumeric(b); ok {
			switch {
			case na.val < nb.val:
				return -1, nil
			case na.val > nb.val:
				return 1, nil
			default:
				return 0, nil
			}
		}
	}
	if a.IsIRI() || a.IsBlank() || b.IsIRI() || b.IsBlank() {
		if a.Equal(b) {
			return 0, nil
		}
		return 0, errs.New(errs.BindingMismatch, "cannot order-compare %s and %s", a.String(), b.String())
	}
	switch {
	case a.Value() < b.Value():
		return -1, nil
	case a.Value() > b.Value():
		return 1, nil
	default:
		return 0, nil
	}
}
