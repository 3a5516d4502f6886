package exec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/sparqlite/algebra"
	"github.com/wbrown/sparqlite/internal/errs"
	"github.com/wbrown/sparqlite/rdf"
)

func TestExecuteSelectReturnsMultisetOfBindings(t *testing.T) {
	c, _, _ := newTestContext(t,
		rdf.Triple{Subject: rdf.IRI("a"), Predicate: rdf.IRI("name"), Object: rdf.SimpleLiteral("Alice")},
		rdf.Triple{Subject: rdf.IRI("b"), Predicate: rdf.IRI("name"), Object: rdf.SimpleLiteral("Alice")},
	)
	bgp := algebra.BGP{Patterns: []algebra.TriplePattern{pat(algebra.Var("?s"), algebra.Const(rdf.IRI("name")), algebra.Var("?n"))}}
	q, err := algebra.Compile(algebra.RawQuery{Type: algebra.Select, Pattern: bgp, ProjectVars: []algebra.Symbol{"?n"}, Limit: algebra.NoLimit})
	require.NoError(t, err)

	result, err := Execute(c, q, Options{})
	require.NoError(t, err)
	// Two distinct subjects share the same name, so SELECT must
	// return the name twice (a multiset), not a deduplicated set.
	assert.Len(t, result.Select, 2)
}

func TestExecuteAskReturnsTrueWhenPatternMatches(t *testing.T) {
	c, _, _ := newTestContext(t, rdf.Triple{Subject: rdf.IRI("a"), Predicate: rdf.IRI("p"), Object: rdf.IRI("b")})
	bgp := algebra.BGP{Patterns: []algebra.TriplePattern{pat(algebra.Const(rdf.IRI("a")), algebra.Const(rdf.IRI("p")), algebra.Const(rdf.IRI("b")))}}
	q, err := algebra.Compile(algebra.RawQuery{Type: algebra.Ask, Pattern: bgp})
	require.NoError(t, err)

	result, err := Execute(c, q, Options{})
	require.NoError(t, err)
	assert.True(t, result.Ask)
}

func TestExecuteAskReturnsFalseWhenPatternDoesNotMatch(t *testing.T) {
	c, _, _ := newTestContext(t)
	bgp := algebra.BGP{Patterns: []algebra.TriplePattern{pat(algebra.Const(rdf.IRI("a")), algebra.Const(rdf.IRI("p")), algebra.Const(rdf.IRI("b")))}}
	q, err := algebra.Compile(algebra.RawQuery{Type: algebra.Ask, Pattern: bgp})
	require.NoError(t, err)

	result, err := Execute(c, q, Options{})
	require.NoError(t, err)
	assert.False(t, result.Ask)
}

func TestExecuteConstructBuildsDeduplicatedGraph(t *testing.T) {
	c, _, _ := newTestContext(t,
		rdf.Triple{Subject: rdf.IRI("a"), Predicate: rdf.IRI("name"), Object: rdf.SimpleLiteral("Alice")},
		rdf.Triple{Subject: rdf.IRI("b"), Predicate: rdf.IRI("name"), Object: rdf.SimpleLiteral("Alice")},
	)
	bgp := algebra.BGP{Patterns: []algebra.TriplePattern{pat(algebra.Var("?s"), algebra.Const(rdf.IRI("name")), algebra.Var("?n"))}}
	template := []algebra.TriplePattern{pat(algebra.Var("?s"), algebra.Const(rdf.IRI("hasName")), algebra.Var("?n"))}
	q, err := algebra.Compile(algebra.RawQuery{Type: algebra.Construct, Pattern: bgp, Template: template})
	require.NoError(t, err)

	result, err := Execute(c, q, Options{})
	require.NoError(t, err)
	require.NotNil(t, result.Graph)
	assert.Equal(t, 2, result.Graph.Len(), "CONSTRUCT should produce one retemplated triple per solution")
}

func TestExecuteDescribeReturnsConciseBoundedDescription(t *testing.T) {
	c, _, _ := newTestContext(t,
		rdf.Triple{Subject: rdf.IRI("a"), Predicate: rdf.IRI("name"), Object: rdf.SimpleLiteral("Alice")},
		rdf.Triple{Subject: rdf.IRI("a"), Predicate: rdf.IRI("age"), Object: rdf.TypedLiteral("30", rdf.XSDInteger)},
		rdf.Triple{Subject: rdf.IRI("b"), Predicate: rdf.IRI("knows"), Object: rdf.IRI("a")},
	)
	q, err := algebra.Compile(algebra.RawQuery{
		Type:     algebra.Describe,
		Pattern:  algebra.BGP{Patterns: []algebra.TriplePattern{pat(algebra.Var("?x"), algebra.Var("?y"), algebra.Var("?z"))}},
		Describe: []algebra.PatternTerm{algebra.Const(rdf.IRI("a"))},
	})
	require.NoError(t, err)

	result, err := Execute(c, q, Options{})
	require.NoError(t, err)
	require.NotNil(t, result.Graph)
	// a's description includes both triples where it is subject and the
	// one where it is object (b knows a).
	assert.Equal(t, 3, result.Graph.Len())
}

func TestExecuteStreamYieldsBindingsLazily(t *testing.T) {
	c, _, _ := newTestContext(t,
		rdf.Triple{Subject: rdf.IRI("a"), Predicate: rdf.IRI("p"), Object: rdf.IRI("1")},
		rdf.Triple{Subject: rdf.IRI("b"), Predicate: rdf.IRI("p"), Object: rdf.IRI("2")},
		rdf.Triple{Subject: rdf.IRI("c"), Predicate: rdf.IRI("p"), Object: rdf.IRI("3")},
	)
	bgp := algebra.BGP{Patterns: []algebra.TriplePattern{pat(algebra.Var("?s"), algebra.Const(rdf.IRI("p")), algebra.Var("?o"))}}
	q, err := algebra.Compile(algebra.RawQuery{Type: algebra.Select, Pattern: bgp, ProjectVars: []algebra.Symbol{"?s"}, Limit: algebra.NoLimit})
	require.NoError(t, err)

	stream, vars, err := ExecuteStream(c, q, Options{})
	require.NoError(t, err)
	assert.Equal(t, []algebra.Symbol{"?s"}, vars)

	// Take only the first binding, then stop early; Close must not error
	// even with unconsumed bindings remaining.
	require.True(t, stream.Next())
	_, ok := stream.Binding().Get("?s")
	assert.True(t, ok)
	require.NoError(t, stream.Close())
}

func TestExecuteStreamRejectsNonSelect(t *testing.T) {
	c, _, _ := newTestContext(t)
	bgp := algebra.BGP{Patterns: []algebra.TriplePattern{pat(algebra.Const(rdf.IRI("a")), algebra.Const(rdf.IRI("p")), algebra.Const(rdf.IRI("b")))}}
	q, err := algebra.Compile(algebra.RawQuery{Type: algebra.Ask, Pattern: bgp})
	require.NoError(t, err)

	_, _, err = ExecuteStream(c, q, Options{})
	assert.Error(t, err, "ExecuteStream is SELECT-only")
}

func TestExecuteCanceledContextAbortsQuery(t *testing.T) {
	c, _, _ := newTestContext(t, rdf.Triple{Subject: rdf.IRI("a"), Predicate: rdf.IRI("p"), Object: rdf.IRI("b")})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.Ctx = ctx

	bgp := algebra.BGP{Patterns: []algebra.TriplePattern{pat(algebra.Var("?s"), algebra.Const(rdf.IRI("p")), algebra.Var("?o"))}}
	q, err := algebra.Compile(algebra.RawQuery{Type: algebra.Select, Pattern: bgp, Limit: algebra.NoLimit})
	require.NoError(t, err)

	_, err = Execute(c, q, Options{})
	require.Error(t, err, "a canceled context must abort evaluation instead of returning partial results")
	kind, ok := errs.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errs.Timeout, kind)
}

func TestExecuteExplainSkipsEvaluation(t *testing.T) {
	c, _, _ := newTestContext(t, rdf.Triple{Subject: rdf.IRI("a"), Predicate: rdf.IRI("p"), Object: rdf.IRI("b")})
	bgp := algebra.BGP{Patterns: []algebra.TriplePattern{pat(algebra.Var("?s"), algebra.Const(rdf.IRI("p")), algebra.Var("?o"))}}
	q, err := algebra.Compile(algebra.RawQuery{Type: algebra.Select, Pattern: bgp})
	require.NoError(t, err)

	result, err := Execute(c, q, Options{Explain: true})
	require.NoError(t, err)
	require.NotNil(t, result.Explain)
	assert.Nil(t, result.Select)
}
