package algebra

import "github.com/wbrown/sparqlite/rdf"

// Expr is the sealed scalar-expression interface evaluated by package
// expr. Arithmetic, comparison, logic, conditionals, and built-in
// function calls all share the Call shape (distinguished by Func
// name) rather than one Go type per operator, keeping the exhaustive
// switch in the evaluator to a single dispatch table instead of
// dozens of near-identical node types.
type Expr interface {
	algebraExpr()
}

// VarRef references a bound variable.
type VarRef struct {
	Name Symbol
}

// Lit is a constant RDF term.
type Lit struct {
	Value rdf.Term
}

// Call is a function application: arithmetic/comparison/logic operators
// and built-ins alike. See expr.BuiltinNames for the recognized Func set.
type Call struct {
	Func string
	Args []Expr
}

func (VarRef) algebraExpr() {}
func (Lit) algebraExpr()    {}
func (Call) algebraExpr()   {}

// Aggregate describes one SELECT (AGG(expr) AS ?v) clause.
type Aggregate struct {
	Func     string // "count", "sum", "avg", "min", "max", "group_concat", "sample"
	Arg      Expr   // nil for COUNT(*)
	Distinct bool
	Sep      string // GROUP_CONCAT separator; defaults to a single space
	Star     bool   // true for COUNT(*)
}

// ExprChildren returns the immediate sub-expressions of e.
func ExprChildren(e Expr) []Expr {
	switch n := e.(type) {
	case Call:
		return n.Args
	default:
		return nil
	}
}

// FoldExpr folds a scalar expression tree bottom-up with no depth
// counter, for contexts that have already depth-checked the enclosing
// algebra node.
func FoldExpr[T any](e Expr, f func(Expr, []T) T) T {
	children := ExprChildren(e)
	results := make([]T, len(children))
	for i, c := range children {
		results[i] = FoldExpr(c, f)
	}
	return f(e, results)
}

// MapExpr rebuilds e with every subexpression transformed bottom-up by f.
func MapExpr(e Expr, f func(Expr) Expr) Expr {
	switch n := e.(type) {
	case Call:
		newArgs := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			newArgs[i] = MapExpr(a, f)
		}
		return f(Call{Func: n.Func, Args: newArgs})
	default:
		return f(e)
	}
}

// ExprVariables returns the unique variables e references.
func ExprVariables(e Expr) []Symbol {
	seen := make(map[Symbol]bool)
	var out []Symbol
	var walk func(Expr)
	walk = func(x Expr) {
		switch n := x.(type) {
		case VarRef:
			if !seen[n.Name] {
				seen[n.Name] = true
				out = append(out, n.Name)
			}
		case Call:
			for _, a := range n.Args {
				walk(a)
			}
		}
	}
	walk(e)
	return out
}

// IsConstantExpr reports whether e references no variable.
func IsConstantExpr(e Expr) bool {
	return len(ExprVariables(e)) == 0
}

// ExprKind is the coarse classification ExprType reports.
type ExprKind string

const (
	ExprVariable ExprKind = "variable"
	ExprConstant ExprKind = "constant"
	ExprCall     ExprKind = "call"
)

// ExprType classifies e's top-level shape, for diagnostics and
// optimizer bookkeeping.
func ExprType(e Expr) ExprKind {
	switch e.(type) {
	case VarRef:
		return ExprVariable
	case Lit:
		return ExprConstant
	default:
		return ExprCall
	}
}
