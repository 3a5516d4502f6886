// Package algebra implements the SPARQL algebra intermediate
// representation: a closed, tagged-variant tree of graph-pattern and
// solution-modifier nodes. Every traversal switches exhaustively over
// the sealed variant set rather than using open-world interfaces that
// silently ignore new variants.
package algebra

import "github.com/wbrown/sparqlite/rdf"

// Symbol is a SPARQL variable name, always including its leading '?'.
type Symbol string

// MaxDepth bounds algebra tree recursion: every recursive traversal
// must fail before exceeding it instead of exhausting the stack.
const MaxDepth = 100

// PatternTerm is one position of a TriplePattern: either a bound
// variable reference or a concrete RDF term to be encoded.
type PatternTerm struct {
	variable Symbol
	term     rdf.Term
	isVar    bool
}

// Var builds a variable pattern term.
func Var(name Symbol) PatternTerm { return PatternTerm{variable: name, isVar: true} }

// Const builds a concrete-term pattern term.
func Const(t rdf.Term) PatternTerm { return PatternTerm{term: t} }

// IsVariable reports whether this position is a variable reference.
func (p PatternTerm) IsVariable() bool { return p.isVar }

// Variable returns the variable name; valid only when IsVariable is true.
func (p PatternTerm) Variable() Symbol { return p.variable }

// Term returns the concrete term; valid only when IsVariable is false.
func (p PatternTerm) Term() rdf.Term { return p.term }

// TriplePattern is (s_term, p_term, o_term): each position either a
// concrete term (to be encoded) or a named variable.
type TriplePattern struct {
	Subject   PatternTerm
	Predicate PatternTerm
	Object    PatternTerm
}

// Node is the sealed algebra node interface. Every variant below
// implements it; traversals switch exhaustively over the concrete type
// so the compiler flags every site that needs updating when a new
// variant is added.
type Node interface {
	algebraNode()
}

// BGP is a conjunction of triple patterns: a Basic Graph Pattern.
type BGP struct {
	Patterns []TriplePattern
}

// Join is the inner join of two sub-patterns.
type Join struct {
	L, R Node
}

// LeftJoin is SPARQL OPTIONAL: every L binding is preserved even if no
// compatible R binding exists. Filter, if non-nil, is evaluated against
// the merged binding before it is accepted.
type LeftJoin struct {
	L, R   Node
	Filter Expr
}

// Minus removes from L every binding compatible with some R binding.
type Minus struct {
	L, R Node
}

// Union concatenates the solutions of L and R; duplicates are preserved.
type Union struct {
	L, R Node
}

// Filter keeps only the bindings of P whose effective boolean value of
// Expr is true.
type Filter struct {
	Expr Expr
	P    Node
}

// Extend evaluates Expr against each binding of P and binds the result
// to Var (SPARQL BIND).
type Extend struct {
	P    Node
	Var  Symbol
	Expr Expr
}

// AggBinding assigns an aggregate's result to a group-output variable.
type AggBinding struct {
	Var Symbol
	Agg Aggregate
}

// Group partitions P's bindings by the values of By and computes Aggs
// per group. An empty By groups the whole input into a single group.
type Group struct {
	P    Node
	By   []Symbol
	Aggs []AggBinding
}

// Project restricts each binding of P to Vars.
type Project struct {
	P    Node
	Vars []Symbol
}

// Distinct removes exact duplicate bindings from P.
type Distinct struct {
	P Node
}

// Reduced permits (but does not require) duplicate removal from P.
type Reduced struct {
	P Node
}

// OrderKey is one ORDER BY term: an expression plus ascending/descending.
type OrderKey struct {
	Expr Expr
	Desc bool
}

// OrderBy sorts P's bindings by the composite key Keys.
type OrderBy struct {
	P    Node
	Keys []OrderKey
}

// NoLimit marks an unbounded Slice.Limit.
const NoLimit = -1

// Slice drops Offset bindings then takes at most Limit (or all, if
// Limit == NoLimit).
type Slice struct {
	P      Node
	Offset int
	Limit  int
}

// ValuesRow is one row of a VALUES clause; a nil term at position i
// means variable i is UNDEF in that row.
type ValuesRow []*rdf.Term

// Values is an inline table of bindings (SPARQL VALUES).
type Values struct {
	Vars []Symbol
	Rows []ValuesRow
}

// Service is a federated SERVICE call. Evaluation is not supported; the node exists so the algebra and
// optimizer can accept and pass through queries that contain it.
type Service struct {
	Endpoint rdf.Term
	P        Node
	Silent   bool
}

// Graph matches P against a named graph. Only the default graph is
// modeled: the executor ignores Term and evaluates P directly against
// the default graph.
type Graph struct {
	Term PatternTerm
	P    Node
}

// PathExpr is a parsed property-path expression. Only its presence is
// modeled; evaluation beyond a single concrete-predicate step is out of
// scope.
type PathExpr struct {
	// Raw is the path's surface syntax, kept for diagnostics and
	// pretty-printing; Steps captures simple IRI/inverse steps that the
	// executor can evaluate directly.
	Raw   string
	Steps []PathStep
}

// PathStep is one step of a property path.
type PathStep struct {
	IRI     rdf.Term
	Inverse bool
}

// Path is a property-path triple pattern (s, path, o).
type Path struct {
	Subject PatternTerm
	Path    PathExpr
	Object  PatternTerm
}

func (BGP) algebraNode()      {}
func (Join) algebraNode()     {}
func (LeftJoin) algebraNode() {}
func (Minus) algebraNode()    {}
func (Union) algebraNode()    {}
func (Filter) algebraNode()   {}
func (Extend) algebraNode()   {}
func (Group) algebraNode()    {}
func (Project) algebraNode()  {}
func (Distinct) algebraNode() {}
func (Reduced) algebraNode()  {}
func (OrderBy) algebraNode()  {}
func (Slice) algebraNode()    {}
func (Values) algebraNode()   {}
func (Service) algebraNode()  {}
func (Graph) algebraNode()    {}
func (Path) algebraNode()     {}

// EmptyBGP is the canonical empty pattern: zero triples, matching the
// single unit binding. Constant folding rewrites `false` filters and
// unsatisfiable constant patterns to it.
func EmptyBGP() Node { return BGP{} }

// IsEmptyBGP reports whether n is the canonical empty BGP.
func IsEmptyBGP(n Node) bool {
	b, ok := n.(BGP)
	return ok && len(b.Patterns) == 0
}
