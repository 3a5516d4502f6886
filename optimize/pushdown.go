package optimize

import "github.com/wbrown/sparqlite/algebra"

// PushDownFilters rewrites Filter nodes downward: extract
// conjuncts from nested AND and push each as deep as the subtree whose
// variables fully cover the conjunct's free variables.
func PushDownFilters(n algebra.Node) (algebra.Node, error) {
	return pushDepth(n, 0)
}

func pushDepth(n algebra.Node, depth int) (algebra.Node, error) {
	if depth > algebra.MaxDepth {
		return nil, errTooDeep
	}
	switch v := n.(type) {
	case algebra.Filter:
		inner, err := pushDepth(v.P, depth+1)
		if err != nil {
			return nil, err
		}
		conjuncts := splitConjuncts(v.Expr)
		result := inner
		for _, c := range conjuncts {
			var err error
			result, err = pushOne(c, result, depth+1)
			if err != nil {
				return nil, err
			}
		}
		return result, nil
	default:
		kids := algebra.Children(n)
		if len(kids) == 0 {
			return n, nil
		}
		newKids := make([]algebra.Node, len(kids))
		for i, k := range kids {
			nk, err := pushDepth(k, depth+1)
			if err != nil {
				return nil, err
			}
			newKids[i] = nk
		}
		return withChildrenPublic(n, newKids), nil
	}
}

// withChildrenPublic rebuilds n with replaced children; algebra.Map
// already does this internally but doesn't expose a single-level
// rebuild, so push-down (which needs to interleave its own recursion
// with rebuilding) does it directly here.
func withChildrenPublic(n algebra.Node, newChildren []algebra.Node) algebra.Node {
	switch v := n.(type) {
	case algebra.Join:
		return algebra.Join{L: newChildren[0], R: newChildren[1]}
	case algebra.LeftJoin:
		return algebra.LeftJoin{L: newChildren[0], R: newChildren[1], Filter: v.Filter}
	case algebra.Minus:
		return algebra.Minus{L: newChildren[0], R: newChildren[1]}
	case algebra.Union:
		return algebra.Union{L: newChildren[0], R: newChildren[1]}
	case algebra.Extend:
		return algebra.Extend{P: newChildren[0], Var: v.Var, Expr: v.Expr}
	case algebra.Group:
		return algebra.Group{P: newChildren[0], By: v.By, Aggs: v.Aggs}
	case algebra.Project:
		return algebra.Project{P: newChildren[0], Vars: v.Vars}
	case algebra.Distinct:
		return algebra.Distinct{P: newChildren[0]}
	case algebra.Reduced:
		return algebra.Reduced{P: newChildren[0]}
	case algebra.OrderBy:
		return algebra.OrderBy{P: newChildren[0], Keys: v.Keys}
	case algebra.Slice:
		return algebra.Slice{P: newChildren[0], Offset: v.Offset, Limit: v.Limit}
	case algebra.Service:
		return algebra.Service{Endpoint: v.Endpoint, P: newChildren[0], Silent: v.Silent}
	case algebra.Graph:
		return algebra.Graph{Term: v.Term, P: newChildren[0]}
	}
	return n
}

// splitConjuncts flattens nested AND into its leaf conjuncts.
func splitConjuncts(e algebra.Expr) []algebra.Expr {
	call, ok := e.(algebra.Call)
	if !ok || call.Func != "&&" {
		return []algebra.Expr{e}
	}
	var out []algebra.Expr
	for _, a := range call.Args {
		out = append(out, splitConjuncts(a)...)
	}
	return out
}

// pushOne pushes a single conjunct as deep into into as possible,
// applying the node-specific push rules.
func pushOne(conjunct algebra.Expr, into algebra.Node, depth int) (algebra.Node, error) {
	if depth > algebra.MaxDepth {
		return nil, errTooDeep
	}
	needed := algebra.ExprVariables(conjunct)

	switch v := into.(type) {
	case algebra.Join:
		if covers(v.L, needed) {
			l, err := pushOne(conjunct, v.L, depth+1)
			if err != nil {
				return nil, err
			}
			return algebra.Join{L: l, R: v.R}, nil
		}
		if covers(v.R, needed) {
			r, err := pushOne(conjunct, v.R, depth+1)
			if err != nil {
				return nil, err
			}
			return algebra.Join{L: v.L, R: r}, nil
		}
		return algebra.Filter{Expr: conjunct, P: v}, nil

	case algebra.LeftJoin:
		// Never push into R: OPTIONAL's right side must see every
		// binding unfiltered by a filter that originated outside it.
		if covers(v.L, needed) {
			l, err := pushOne(conjunct, v.L, depth+1)
			if err != nil {
				return nil, err
			}
			return algebra.LeftJoin{L: l, R: v.R, Filter: v.Filter}, nil
		}
		return algebra.Filter{Expr: conjunct, P: v}, nil

	case algebra.Union, algebra.Minus, algebra.Group:
		return algebra.Filter{Expr: conjunct, P: v}, nil

	case algebra.Extend:
		for _, need := range needed {
			if need == v.Var {
				return algebra.Filter{Expr: conjunct, P: v}, nil
			}
		}
		p, err := pushOne(conjunct, v.P, depth+1)
		if err != nil {
			return nil, err
		}
		return algebra.Extend{P: p, Var: v.Var, Expr: v.Expr}, nil

	case algebra.Project:
		p, err := pushOne(conjunct, v.P, depth+1)
		if err != nil {
			return nil, err
		}
		return algebra.Project{P: p, Vars: v.Vars}, nil
	case algebra.Distinct:
		p, err := pushOne(conjunct, v.P, depth+1)
		if err != nil {
			return nil, err
		}
		return algebra.Distinct{P: p}, nil
	case algebra.Reduced:
		p, err := pushOne(conjunct, v.P, depth+1)
		if err != nil {
			return nil, err
		}
		return algebra.Reduced{P: p}, nil
	case algebra.OrderBy:
		p, err := pushOne(conjunct, v.P, depth+1)
		if err != nil {
			return nil, err
		}
		return algebra.OrderBy{P: p, Keys: v.Keys}, nil
	case algebra.Slice:
		p, err := pushOne(conjunct, v.P, depth+1)
		if err != nil {
			return nil, err
		}
		return algebra.Slice{P: p, Offset: v.Offset, Limit: v.Limit}, nil
	case algebra.Graph:
		p, err := pushOne(conjunct, v.P, depth+1)
		if err != nil {
			return nil, err
		}
		return algebra.Graph{Term: v.Term, P: p}, nil

	case algebra.Filter:
		if covers(v.P, needed) {
			p, err := pushOne(conjunct, v.P, depth+1)
			if err != nil {
				return nil, err
			}
			return algebra.Filter{Expr: v.Expr, P: p}, nil
		}
		return algebra.Filter{Expr: algebra.Call{Func: "&&", Args: []algebra.Expr{conjunct, v.Expr}}, P: v.P}, nil

	case algebra.BGP:
		return algebra.Filter{Expr: conjunct, P: v}, nil

	default:
		return algebra.Filter{Expr: conjunct, P: into}, nil
	}
}

// covers reports whether n's variables fully cover needed.
func covers(n algebra.Node, needed []algebra.Symbol) bool {
	have := make(map[algebra.Symbol]bool)
	for _, v := range algebra.Variables(n) {
		have[v] = true
	}
	for _, v := range needed {
		if !have[v] {
			return false
		}
	}
	return true
}
