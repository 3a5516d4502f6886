package expr

import (
	"context"
	"math/rand"
	"time"

	"github.com/pborman/uuid"

	"github.com/wbrown/sparqlite/algebra"
	"github.com/wbrown/sparqlite/internal/errs"
	"github.com/wbrown/sparqlite/rdf"
)

// Evaluator evaluates algebra.Expr trees against bindings. It carries
// the small amount of per-query state NOW() and RAND() need to stay
// self-consistent within one query: a single "now" timestamp sampled
// once per query rather than once per call, and a seeded RNG.
type Evaluator struct {
	ctx context.Context
	now rdf.Term
	rng *rand.Rand
}

// NewEvaluator builds an Evaluator scoped to one query execution.
// now fixes NOW()'s value for the whole query (a per-query constant
// is not strictly required, but it is the more common SPARQL engine
// behavior).
func NewEvaluator(ctx context.Context, now time.Time) *Evaluator {
	return &Evaluator{
		ctx: ctx,
		now: rdf.TypedLiteral(now.UTC().Format(time.RFC3339), rdf.XSDDateTime),
		rng: rand.New(rand.NewSource(now.UnixNano())),
	}
}

// Evaluate computes expr's value against binding. Errors cover unbound
// variables, type mismatches, division by zero, arithmetic on
// non-numeric operands, and regex failures/timeouts;
// no panic ever escapes.
func (e *Evaluator) Evaluate(expr algebra.Expr, binding algebra.Binding) (term rdf.Term, err error) {
	defer func() {
		if r := recover(); r != nil {
			term, err = rdf.Term{}, errs.New(errs.UnsupportedOperation, "invalid call: %v", r)
		}
	}()
	switch v := expr.(type) {
	case algebra.VarRef:
		t, ok := binding.Get(v.Name)
		if !ok {
			return rdf.Term{}, errs.New(errs.BindingMismatch, "unbound variable %s", v.Name)
		}
		return t, nil
	case algebra.Lit:
		return v.Value, nil
	case algebra.Call:
		return e.evalCall(v, binding)
	default:
		return rdf.Term{}, errs.New(errs.UnsupportedOperation, "unknown expression node %T", expr)
	}
}

func (e *Evaluator) evalArgs(args []algebra.Expr, binding algebra.Binding) ([]rdf.Term, error) {
	out := make([]rdf.Term, len(args))
	for i, a := range args {
		v, err := e.Evaluate(a, binding)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// freshBlankNode mints a new blank node identifier, used by BNODE().
func freshBlankNode() rdf.Term {
	return rdf.Blank(uuid.New())
}
