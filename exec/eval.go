package exec

import (
	"github.com/wbrown/sparqlite/algebra"
	"github.com/wbrown/sparqlite/expr"
	"github.com/wbrown/sparqlite/internal/errs"
	"github.com/wbrown/sparqlite/plan"
)

// Eval lazily evaluates n against the unit binding, returning a Stream
// of solutions. It is the single recursive entry point every algebra
// node variant feeds through; adding a new Node variant without a case
// here is a compile-time silent gap, so every case is exhaustive by
// convention with algebra's own switches.
func (c *Context) Eval(n algebra.Node, e *expr.Evaluator, stats *plan.Statistics) (Stream, error) {
	switch v := n.(type) {
	case algebra.BGP:
		return c.ExecuteBGP(v.Patterns, algebra.NewBinding(), stats)

	case algebra.Join:
		l, err := c.Eval(v.L, e, stats)
		if err != nil {
			return nil, err
		}
		r, err := c.Eval(v.R, e, stats)
		if err != nil {
			l.Close()
			return nil, err
		}
		return ExecuteJoin(l, r, algebra.Variables(v.L), algebra.Variables(v.R))

	case algebra.LeftJoin:
		l, err := c.Eval(v.L, e, stats)
		if err != nil {
			return nil, err
		}
		r, err := c.Eval(v.R, e, stats)
		if err != nil {
			l.Close()
			return nil, err
		}
		return ExecuteLeftJoin(e, l, r, algebra.Variables(v.L), algebra.Variables(v.R), v.Filter)

	case algebra.Minus:
		l, err := c.Eval(v.L, e, stats)
		if err != nil {
			return nil, err
		}
		r, err := c.Eval(v.R, e, stats)
		if err != nil {
			l.Close()
			return nil, err
		}
		return ExecuteMinus(l, r, algebra.Variables(v.L), algebra.Variables(v.R))

	case algebra.Union:
		l, err := c.Eval(v.L, e, stats)
		if err != nil {
			return nil, err
		}
		r, err := c.Eval(v.R, e, stats)
		if err != nil {
			l.Close()
			return nil, err
		}
		return ExecuteUnion(l, r), nil

	case algebra.Filter:
		s, err := c.Eval(v.P, e, stats)
		if err != nil {
			return nil, err
		}
		return ExecuteFilter(e, s, v.Expr), nil

	case algebra.Extend:
		s, err := c.Eval(v.P, e, stats)
		if err != nil {
			return nil, err
		}
		return ExecuteExtend(e, s, v.Var, v.Expr), nil

	case algebra.Group:
		s, err := c.Eval(v.P, e, stats)
		if err != nil {
			return nil, err
		}
		return ExecuteGroup(e, s, v.By, v.Aggs)

	case algebra.Project:
		s, err := c.Eval(v.P, e, stats)
		if err != nil {
			return nil, err
		}
		return ExecuteProject(s, v.Vars), nil

	case algebra.Distinct:
		s, err := c.Eval(v.P, e, stats)
		if err != nil {
			return nil, err
		}
		return ExecuteDistinct(s)

	case algebra.Reduced:
		s, err := c.Eval(v.P, e, stats)
		if err != nil {
			return nil, err
		}
		return ExecuteReduced(s)

	case algebra.OrderBy:
		s, err := c.Eval(v.P, e, stats)
		if err != nil {
			return nil, err
		}
		return ExecuteOrderBy(e, s, v.Keys)

	case algebra.Slice:
		s, err := c.Eval(v.P, e, stats)
		if err != nil {
			return nil, err
		}
		return ExecuteSlice(s, v.Offset, v.Limit), nil

	case algebra.Values:
		return ExecuteValues(v.Vars, v.Rows), nil

	case algebra.Graph:
		// Only the default graph is modeled: the graph term is
		// ignored and the inner pattern is evaluated directly.
		return c.Eval(v.P, e, stats)

	case algebra.Service:
		if v.Silent {
			return emptyStream(), nil
		}
		return nil, errs.New(errs.UnsupportedOperation, "SERVICE execution is not supported")

	case algebra.Path:
		return c.evalPath(v)

	default:
		return nil, errs.New(errs.UnsupportedOperation, "no executor case for algebra node %T", n)
	}
}

// evalPath evaluates the restricted subset of property paths the
// executor supports directly: a single concrete IRI step, optionally
// inverse. Anything richer is rejected as unsupported.
func (c *Context) evalPath(p algebra.Path) (Stream, error) {
	if len(p.Path.Steps) != 1 {
		return nil, errs.New(errs.UnsupportedPattern, "property path %q is not a single-step path", p.Path.Raw)
	}
	step := p.Path.Steps[0]
	subject, object := p.Subject, p.Object
	if step.Inverse {
		subject, object = object, subject
	}
	pattern := algebra.TriplePattern{
		Subject:   subject,
		Predicate: algebra.Const(step.IRI),
		Object:    object,
	}
	return c.ExecuteBGP([]algebra.TriplePattern{pattern}, algebra.NewBinding(), nil)
}
