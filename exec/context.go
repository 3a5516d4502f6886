// Package exec implements the lazy streaming query executor: BGP
// evaluation via index nested-loop join, join/left-join/union/minus,
// filter/extend/group/project/distinct/reduced/order/slice,
// SELECT/ASK/CONSTRUCT/DESCRIBE serialization, and the UPDATE
// sub-executor. Everything is pull-based: a query is a tree of
// Streams, and work happens only as the consumer pulls bindings.
package exec

import (
	"context"
	"errors"

	"github.com/wbrown/sparqlite/dict"
	"github.com/wbrown/sparqlite/internal/errs"
	"github.com/wbrown/sparqlite/internal/trace"
	"github.com/wbrown/sparqlite/plan"
	"github.com/wbrown/sparqlite/rdf"
	"github.com/wbrown/sparqlite/store"
)

// Limits bounds the executor enforces.
type Limits struct {
	MaxTriplesPerUpdate  int
	MaxMatchesPerPattern int64
	MaxTemplateSize      int
}

// DefaultLimits are the limits NewContext installs. A Context built
// directly with a zero-valued Limits enforces those zeros as-is.
var DefaultLimits = Limits{
	MaxTriplesPerUpdate:  100_000,
	MaxMatchesPerPattern: 10_000_000,
	MaxTemplateSize:      1_000,
}

// Context is the opaque handle every executor operation is
// parameterized by: the underlying store and dictionary, a tracing
// collector, and the configured limits.
type Context struct {
	Ctx    context.Context
	Store  store.Store
	Dict   dict.Dictionary
	Trace  *trace.Collector
	Limits Limits
	// Cache is the cost-based join planner's plan cache.
	// nil disables planning: ExecuteBGP falls back to the optimizer's
	// selectivity-ordered rewrite.
	Cache *plan.Cache
}

// NewContext builds an executor context with default limits.
func NewContext(ctx context.Context, s store.Store, d dict.Dictionary) *Context {
	return &Context{Ctx: ctx, Store: s, Dict: d, Trace: trace.NewCollector(), Limits: DefaultLimits}
}

// checkCtx maps an expired or canceled context to the engine's timeout
// error. Streams call it at pull boundaries so a long-running query
// notices cancellation without a separate watchdog.
func (c *Context) checkCtx() error {
	err := c.Ctx.Err()
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errs.New(errs.Timeout, "query deadline exceeded")
	}
	return errs.New(errs.Timeout, "query canceled")
}

// encodeTerm resolves term to its id, minting a new dictionary entry
// if needed (used by INSERT DATA / write paths).
func (c *Context) encodeTerm(term rdf.Term) (dict.ID, error) {
	return c.Dict.GetOrCreateID(term)
}

// lookupTerm resolves term to its existing id without creating one
// (used by read paths: a term absent from the dictionary cannot
// possibly match any stored triple).
func (c *Context) lookupTerm(term rdf.Term) (dict.ID, bool) {
	return c.Dict.LookupID(term)
}

// decodeID resolves id back to its RDF term.
func (c *Context) decodeID(id dict.ID) (rdf.Term, error) {
	t, ok := c.Dict.LookupTerm(id)
	if !ok {
		return rdf.Term{}, errs.New(errs.TermNotFound, "no term for id %d", uint64(id))
	}
	return t, nil
}
