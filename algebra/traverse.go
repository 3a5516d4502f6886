package algebra

// Children returns the immediate algebra sub-nodes of n, in evaluation
// order. Leaf nodes (BGP, Values) return nil.
func Children(n Node) []Node {
	switch v := n.(type) {
	case BGP:
		return nil
	case Join:
		return []Node{v.L, v.R}
	case LeftJoin:
		return []Node{v.L, v.R}
	case Minus:
		return []Node{v.L, v.R}
	case Union:
		return []Node{v.L, v.R}
	case Filter:
		return []Node{v.P}
	case Extend:
		return []Node{v.P}
	case Group:
		return []Node{v.P}
	case Project:
		return []Node{v.P}
	case Distinct:
		return []Node{v.P}
	case Reduced:
		return []Node{v.P}
	case OrderBy:
		return []Node{v.P}
	case Slice:
		return []Node{v.P}
	case Values:
		return nil
	case Service:
		return []Node{v.P}
	case Graph:
		return []Node{v.P}
	case Path:
		return nil
	}
	return nil
}

// withChildren rebuilds n with its children replaced by newChildren, in
// the same order Children(n) returned them. Leaf nodes ignore it.
func withChildren(n Node, newChildren []Node) Node {
	switch v := n.(type) {
	case Join:
		return Join{L: newChildren[0], R: newChildren[1]}
	case LeftJoin:
		return LeftJoin{L: newChildren[0], R: newChildren[1], Filter: v.Filter}
	case Minus:
		return Minus{L: newChildren[0], R: newChildren[1]}
	case Union:
		return Union{L: newChildren[0], R: newChildren[1]}
	case Filter:
		return Filter{Expr: v.Expr, P: newChildren[0]}
	case Extend:
		return Extend{P: newChildren[0], Var: v.Var, Expr: v.Expr}
	case Group:
		return Group{P: newChildren[0], By: v.By, Aggs: v.Aggs}
	case Project:
		return Project{P: newChildren[0], Vars: v.Vars}
	case Distinct:
		return Distinct{P: newChildren[0]}
	case Reduced:
		return Reduced{P: newChildren[0]}
	case OrderBy:
		return OrderBy{P: newChildren[0], Keys: v.Keys}
	case Slice:
		return Slice{P: newChildren[0], Offset: v.Offset, Limit: v.Limit}
	case Service:
		return Service{Endpoint: v.Endpoint, P: newChildren[0], Silent: v.Silent}
	case Graph:
		return Graph{Term: v.Term, P: newChildren[0]}
	}
	return n
}

// Fold reduces the tree bottom-up: f receives each node together with
// its children's already-folded results. depth guards MAX_DEPTH.
func Fold[T any](n Node, f func(Node, []T) T) (T, error) {
	return foldDepth(n, f, 0)
}

func foldDepth[T any](n Node, f func(Node, []T) T, depth int) (T, error) {
	var zero T
	if depth > MaxDepth {
		return zero, errTooDeep
	}
	kids := Children(n)
	results := make([]T, len(kids))
	for i, k := range kids {
		r, err := foldDepth(k, f, depth+1)
		if err != nil {
			return zero, err
		}
		results[i] = r
	}
	return f(n, results), nil
}

// Map rebuilds the tree, transforming every node bottom-up: children are
// mapped first, then f is applied to the node with its mapped children.
func Map(n Node, f func(Node) Node) (Node, error) {
	return mapDepth(n, f, 0)
}

func mapDepth(n Node, f func(Node) Node, depth int) (Node, error) {
	if depth > MaxDepth {
		return nil, errTooDeep
	}
	kids := Children(n)
	if len(kids) == 0 {
		return f(n), nil
	}
	newKids := make([]Node, len(kids))
	for i, k := range kids {
		mapped, err := mapDepth(k, f, depth+1)
		if err != nil {
			return nil, err
		}
		newKids[i] = mapped
	}
	return f(withChildren(n, newKids)), nil
}
