package algebra

// Variables returns the unique set of variables n binds or references,
// order-insignificant.
func Variables(n Node) []Symbol {
	seen := make(map[Symbol]bool)
	var out []Symbol
	add := func(s Symbol) {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	addPT := func(p PatternTerm) {
		if p.IsVariable() {
			add(p.Variable())
		}
	}

	var walk func(Node)
	walk = func(m Node) {
		switch v := m.(type) {
		case BGP:
			for _, p := range v.Patterns {
				addPT(p.Subject)
				addPT(p.Predicate)
				addPT(p.Object)
			}
		case Filter:
			for _, s := range ExprVariables(v.Expr) {
				add(s)
			}
		case Extend:
			add(v.Var)
			for _, s := range ExprVariables(v.Expr) {
				add(s)
			}
		case Group:
			for _, s := range v.By {
				add(s)
			}
			for _, ab := range v.Aggs {
				add(ab.Var)
				if ab.Agg.Arg != nil {
					for _, s := range ExprVariables(ab.Agg.Arg) {
						add(s)
					}
				}
			}
		case Project:
			for _, s := range v.Vars {
				add(s)
			}
		case OrderBy:
			for _, k := range v.Keys {
				for _, s := range ExprVariables(k.Expr) {
					add(s)
				}
			}
		case Values:
			for _, s := range v.Vars {
				add(s)
			}
		case Graph:
			addPT(v.Term)
		case Path:
			addPT(v.Subject)
			addPT(v.Object)
		}
		for _, c := range Children(m) {
			walk(c)
		}
	}
	walk(n)
	return out
}

// CollectBGPs returns every BGP node in n, in pre-order.
func CollectBGPs(n Node) []BGP {
	var out []BGP
	var walk func(Node)
	walk = func(m Node) {
		if b, ok := m.(BGP); ok {
			out = append(out, b)
		}
		for _, c := range Children(m) {
			walk(c)
		}
	}
	walk(n)
	return out
}

// CollectFilters returns every Filter node in n, in pre-order.
func CollectFilters(n Node) []Filter {
	var out []Filter
	var walk func(Node)
	walk = func(m Node) {
		if f, ok := m.(Filter); ok {
			out = append(out, f)
		}
		for _, c := range Children(m) {
			walk(c)
		}
	}
	walk(n)
	return out
}

// TripleCount returns the total number of triple patterns across every
// BGP in n.
func TripleCount(n Node) int {
	count := 0
	for _, b := range CollectBGPs(n) {
		count += len(b.Patterns)
	}
	return count
}

// HasOptional reports whether n contains a LeftJoin (OPTIONAL).
func HasOptional(n Node) bool { return hasVariant(n, func(m Node) bool { _, ok := m.(LeftJoin); return ok }) }

// HasUnion reports whether n contains a Union.
func HasUnion(n Node) bool { return hasVariant(n, func(m Node) bool { _, ok := m.(Union); return ok }) }

// HasFilter reports whether n contains a Filter.
func HasFilter(n Node) bool { return hasVariant(n, func(m Node) bool { _, ok := m.(Filter); return ok }) }

// HasAggregation reports whether n contains a Group with at least one aggregate.
func HasAggregation(n Node) bool {
	return hasVariant(n, func(m Node) bool {
		g, ok := m.(Group)
		return ok && len(g.Aggs) > 0
	})
}

func hasVariant(n Node, pred func(Node) bool) bool {
	if pred(n) {
		return true
	}
	for _, c := range Children(n) {
		if hasVariant(c, pred) {
			return true
		}
	}
	return false
}
