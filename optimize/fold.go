// Package optimize implements the rule-based algebra rewriter: a
// fixed pipeline of constant folding, BGP reordering, and filter
// push-down, each pass an independent recursive rebuild of the tree.
package optimize

import (
	"context"
	"time"

	"github.com/wbrown/sparqlite/algebra"
	"github.com/wbrown/sparqlite/expr"
	"github.com/wbrown/sparqlite/internal/errs"
	"github.com/wbrown/sparqlite/rdf"
)

// impureFuncs are builtins whose value depends on more than their
// arguments (the call site / the moment of evaluation), so they must
// never be constant-folded away even when they take no variable
// arguments.
var impureFuncs = map[string]bool{"rand": true, "now": true, "bnode": true}

var errTooDeep = errs.New(errs.TooDeeplyNested, "optimizer pass exceeds MAX_DEPTH=%d", algebra.MaxDepth)

// foldEvaluator evaluates constant expressions without any binding
// (every subexpression is variable-free by construction once FoldConstants
// reaches it). Constant folding never calls NOW() or RAND() usefully
// (both are non-constant by definition, since IsConstantExpr only
// reports no-variable-reference, not purity); this evaluator exists
// only to run arithmetic/comparison/logic/string builtins.
var foldEvaluator = expr.NewEvaluator(context.Background(), time.Time{})

// FoldConstants bottom-up folds arithmetic, comparison, logic, IF,
// COALESCE, NOT, and pure function calls whose arguments are all
// constant, including the short-circuit identities and empty-BGP
// propagation rules.
func FoldConstants(n algebra.Node) (algebra.Node, error) {
	return algebra.Map(n, foldNode)
}

func foldNode(n algebra.Node) algebra.Node {
	switch v := n.(type) {
	case algebra.Filter:
		e := FoldExpr(v.Expr)
		v.Expr = e
		if lit, ok := e.(algebra.Lit); ok {
			ok, err := expr.EffectiveBooleanValue(lit.Value)
			if err == nil {
				if ok {
					return v.P
				}
				return algebra.EmptyBGP()
			}
		}
		return v
	case algebra.Extend:
		v.Expr = FoldExpr(v.Expr)
		return v
	case algebra.LeftJoin:
		if v.Filter != nil {
			v.Filter = FoldExpr(v.Filter)
		}
		return foldEmptyPropagation(v)
	case algebra.Join, algebra.Minus, algebra.Union:
		return foldEmptyPropagation(v)
	case algebra.OrderBy:
		for i := range v.Keys {
			v.Keys[i].Expr = FoldExpr(v.Keys[i].Expr)
		}
		return v
	case algebra.Group:
		for i := range v.Aggs {
			if v.Aggs[i].Agg.Arg != nil {
				v.Aggs[i].Agg.Arg = FoldExpr(v.Aggs[i].Agg.Arg)
			}
		}
		return v
	default:
		return n
	}
}

// foldEmptyPropagation applies the empty-BGP propagation rules:
// Join collapses to empty when either side is empty, LeftJoin and
// Minus when their left side is empty, and Union with an empty side
// collapses to the other side.
func foldEmptyPropagation(n algebra.Node) algebra.Node {
	switch v := n.(type) {
	case algebra.Join:
		if algebra.IsEmptyBGP(v.L) || algebra.IsEmptyBGP(v.R) {
			return algebra.EmptyBGP()
		}
		return v
	case algebra.LeftJoin:
		if algebra.IsEmptyBGP(v.L) {
			return algebra.EmptyBGP()
		}
		return v
	case algebra.Minus:
		if algebra.IsEmptyBGP(v.L) {
			return algebra.EmptyBGP()
		}
		return v
	case algebra.Union:
		if algebra.IsEmptyBGP(v.L) {
			return v.R
		}
		if algebra.IsEmptyBGP(v.R) {
			return v.L
		}
		return v
	}
	return n
}

// FoldExpr bottom-up folds a scalar expression tree, evaluating any
// node whose entire subtree is constant and applying the short-circuit
// logic identities before falling back to evaluation.
func FoldExpr(e algebra.Expr) algebra.Expr {
	return algebra.MapExpr(e, foldExprNode)
}

func foldExprNode(e algebra.Expr) algebra.Expr {
	call, ok := e.(algebra.Call)
	if !ok {
		return e
	}
	if simplified, ok := shortCircuit(call); ok {
		return simplified
	}
	if !isPureConstant(call) {
		return call
	}
	v, err := foldEvaluator.Evaluate(call, algebra.NewBinding())
	if err != nil {
		return call
	}
	return algebra.Lit{Value: v}
}

// shortCircuit applies the boolean identities: false&&x -> false,
// true&&x -> x, true||x -> true, false||x -> x, !!x -> x. These fire
// even when x is not itself constant.
func shortCircuit(call algebra.Call) (algebra.Expr, bool) {
	switch call.Func {
	case "&&", "||":
		if len(call.Args) != 2 {
			return nil, false
		}
	case "!":
		if len(call.Args) != 1 {
			return nil, false
		}
	}
	switch call.Func {
	case "&&":
		if lit, ok := constBool(call.Args[0]); ok {
			if !lit {
				return algebra.Lit{Value: boolFalse()}, true
			}
			return call.Args[1], true
		}
		if lit, ok := constBool(call.Args[1]); ok && !lit {
			return algebra.Lit{Value: boolFalse()}, true
		}
	case "||":
		if lit, ok := constBool(call.Args[0]); ok {
			if lit {
				return algebra.Lit{Value: boolTrue()}, true
			}
			return call.Args[1], true
		}
		if lit, ok := constBool(call.Args[1]); ok && lit {
			return algebra.Lit{Value: boolTrue()}, true
		}
	case "!":
		if inner, ok := call.Args[0].(algebra.Call); ok && inner.Func == "!" {
			return inner.Args[0], true
		}
	}
	return nil, false
}

// isPureConstant reports whether e references no variable and calls no
// impure function anywhere in its subtree, making it safe to collapse
// to a single literal at optimize time.
func isPureConstant(e algebra.Expr) bool {
	switch v := e.(type) {
	case algebra.VarRef:
		return false
	case algebra.Lit:
		return true
	case algebra.Call:
		if impureFuncs[v.Func] {
			return false
		}
		for _, a := range v.Args {
			if !isPureConstant(a) {
				return false
			}
		}
		return true
	}
	return false
}

func boolTrue() rdf.Term  { return rdf.TypedLiteral("true", rdf.XSDBoolean) }
func boolFalse() rdf.Term { return rdf.TypedLiteral("false", rdf.XSDBoolean) }

func constBool(e algebra.Expr) (bool, bool) {
	lit, ok := e.(algebra.Lit)
	if !ok {
		return false, false
	}
	b, err := expr.EffectiveBooleanValue(lit.Value)
	if err != nil {
		return false, false
	}
	return b, true
}
