package algebra

import "github.com/wbrown/sparqlite/rdf"

// Binding is an ordered mapping from variable to RDF term: one SPARQL
// solution. Insertion order is preserved for deterministic iteration
// (CONSTRUCT template instantiation, result-set column order) even
// though SPARQL binding equality only cares about the variable/term
// pairs themselves.
type Binding struct {
	order []Symbol
	vals  map[Symbol]rdf.Term
}

// NewBinding returns the empty binding (the "unit solution").
func NewBinding() Binding {
	return Binding{vals: make(map[Symbol]rdf.Term)}
}

// Get returns the term bound to v, if any.
func (b Binding) Get(v Symbol) (rdf.Term, bool) {
	t, ok := b.vals[v]
	return t, ok
}

// Len returns the number of bound variables.
func (b Binding) Len() int { return len(b.order) }

// Vars returns the bound variables in insertion order.
func (b Binding) Vars() []Symbol {
	out := make([]Symbol, len(b.order))
	copy(out, b.order)
	return out
}

// With returns a new binding equal to b plus v -> t. b is not mutated,
// since binding streams pass the same prefix bindings to many downstream
// patterns.
func (b Binding) With(v Symbol, t rdf.Term) Binding {
	nb := Binding{
		order: make([]Symbol, len(b.order), len(b.order)+1),
		vals:  make(map[Symbol]rdf.Term, len(b.vals)+1),
	}
	copy(nb.order, b.order)
	for k, val := range b.vals {
		nb.vals[k] = val
	}
	if _, exists := nb.vals[v]; !exists {
		nb.order = append(nb.order, v)
	}
	nb.vals[v] = t
	return nb
}

// Compatible reports whether b and o agree on every variable they both bind.
func (b Binding) Compatible(o Binding) bool {
	for v, t := range b.vals {
		if ot, ok := o.vals[v]; ok && !t.Equal(ot) {
			return false
		}
	}
	return true
}

// SharesDomain reports whether b and o both bind at least one common
// variable. MINUS only eliminates a left binding through a right
// binding whose domain actually overlaps it.
func (b Binding) SharesDomain(o Binding) bool {
	for v := range b.vals {
		if _, ok := o.vals[v]; ok {
			return true
		}
	}
	return false
}

// Merge returns the union of b and o. Callers must check Compatible first;
// Merge itself does not re-validate agreement on shared variables.
func (b Binding) Merge(o Binding) Binding {
	nb := Binding{
		order: make([]Symbol, len(b.order), len(b.order)+len(o.order)),
		vals:  make(map[Symbol]rdf.Term, len(b.vals)+len(o.vals)),
	}
	copy(nb.order, b.order)
	for k, v := range b.vals {
		nb.vals[k] = v
	}
	for _, k := range o.order {
		if _, exists := nb.vals[k]; !exists {
			nb.order = append(nb.order, k)
		}
		nb.vals[k] = o.vals[k]
	}
	return nb
}

// Project restricts b to vars; variables absent from b are simply omitted.
func (b Binding) Project(vars []Symbol) Binding {
	nb := NewBinding()
	for _, v := range vars {
		if t, ok := b.vals[v]; ok {
			nb = nb.With(v, t)
		}
	}
	return nb
}

// Equal reports whether b and o bind exactly the same variables to
// exactly the same terms, used by DISTINCT/REDUCED.
func (b Binding) Equal(o Binding) bool {
	if len(b.vals) != len(o.vals) {
		return false
	}
	for k, v := range b.vals {
		ov, ok := o.vals[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Key returns a stable string key for b, for use in hash-based dedup and
// hash-join bucketing.
func (b Binding) Key(vars []Symbol) string {
	key := make([]byte, 0, 32)
	for _, v := range vars {
		t, ok := b.vals[v]
		if !ok {
			key = append(key, 0)
			continue
		}
		key = append(key, 1)
		key = append(key, []byte(t.String())...)
		key = append(key, 0)
	}
	return string(key)
}
