package exec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/sparqlite/algebra"
	"github.com/wbrown/sparqlite/rdf"
	"github.com/wbrown/sparqlite/store"
)

func TestExecuteUpdateInsertDataIsIdempotent(t *testing.T) {
	c, s, _ := newTestContext(t)
	triples := []algebra.TriplePattern{pat(algebra.Const(rdf.IRI("a")), algebra.Const(rdf.IRI("p")), algebra.Const(rdf.IRI("b")))}
	req := algebra.UpdateRequest{Operations: []algebra.UpdateOp{algebra.InsertData{Triples: triples}}}

	n1, err := ExecuteUpdate(c, req, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n1)

	// Re-running the identical INSERT DATA must not duplicate the triple.
	n2, err := ExecuteUpdate(c, req, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n2)

	count, err := s.CountPrefix(store.SPO, store.Pattern{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "duplicate INSERT DATA should leave the store with exactly one triple")
}

func TestExecuteUpdateDeleteDataRemovesTriple(t *testing.T) {
	c, _, _ := newTestContext(t, rdf.Triple{Subject: rdf.IRI("a"), Predicate: rdf.IRI("p"), Object: rdf.IRI("b")})
	triples := []algebra.TriplePattern{pat(algebra.Const(rdf.IRI("a")), algebra.Const(rdf.IRI("p")), algebra.Const(rdf.IRI("b")))}
	req := algebra.UpdateRequest{Operations: []algebra.UpdateOp{algebra.DeleteData{Triples: triples}}}

	n, err := ExecuteUpdate(c, req, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	stream, err := c.ExecuteBGP([]algebra.TriplePattern{pat(algebra.Var("?s"), algebra.Var("?p"), algebra.Var("?o"))}, algebra.NewBinding(), nil)
	require.NoError(t, err)
	rows, err := drain(stream)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestExecuteUpdateDeleteDataAbsentTripleIsNoOp(t *testing.T) {
	c, _, _ := newTestContext(t)
	triples := []algebra.TriplePattern{pat(algebra.Const(rdf.IRI("a")), algebra.Const(rdf.IRI("p")), algebra.Const(rdf.IRI("b")))}
	req := algebra.UpdateRequest{Operations: []algebra.UpdateOp{algebra.DeleteData{Triples: triples}}}
	n, err := ExecuteUpdate(c, req, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestExecuteUpdateInsertDataEnforcesLimit(t *testing.T) {
	c, _, _ := newTestContext(t)
	c.Limits.MaxTriplesPerUpdate = 1
	triples := []algebra.TriplePattern{
		pat(algebra.Const(rdf.IRI("a")), algebra.Const(rdf.IRI("p")), algebra.Const(rdf.IRI("1"))),
		pat(algebra.Const(rdf.IRI("a")), algebra.Const(rdf.IRI("p")), algebra.Const(rdf.IRI("2"))),
	}
	req := algebra.UpdateRequest{Operations: []algebra.UpdateOp{algebra.InsertData{Triples: triples}}}
	_, err := ExecuteUpdate(c, req, nil)
	assert.Error(t, err, "exceeding MaxTriplesPerUpdate should reject the whole operation before any write")
}

func TestExecuteUpdateDeleteInsertWhereRewritesMatchingTriples(t *testing.T) {
	c, _, _ := newTestContext(t, rdf.Triple{Subject: rdf.IRI("a"), Predicate: rdf.IRI("age"), Object: rdf.TypedLiteral("30", rdf.XSDInteger)})
	wherePattern := algebra.BGP{Patterns: []algebra.TriplePattern{pat(algebra.Var("?s"), algebra.Const(rdf.IRI("age")), algebra.Var("?a"))}}
	deleteTmpl := []algebra.TriplePattern{pat(algebra.Var("?s"), algebra.Const(rdf.IRI("age")), algebra.Var("?a"))}
	insertTmpl := []algebra.TriplePattern{pat(algebra.Var("?s"), algebra.Const(rdf.IRI("age")), algebra.Const(rdf.TypedLiteral("31", rdf.XSDInteger)))}
	req := algebra.UpdateRequest{Operations: []algebra.UpdateOp{algebra.DeleteInsertWhere{
		DeleteTemplate: deleteTmpl,
		InsertTemplate: insertTmpl,
		Pattern:        wherePattern,
	}}}

	n, err := ExecuteUpdate(c, req, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	stream, err := c.ExecuteBGP([]algebra.TriplePattern{pat(algebra.Const(rdf.IRI("a")), algebra.Const(rdf.IRI("age")), algebra.Var("?a"))}, algebra.NewBinding(), nil)
	require.NoError(t, err)
	rows, err := drain(stream)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	v, _ := rows[0].Get("?a")
	assert.Equal(t, rdf.TypedLiteral("31", rdf.XSDInteger), v)
}

func TestExecuteUpdateClearDefaultDeletesEverything(t *testing.T) {
	c, s, _ := newTestContext(t,
		rdf.Triple{Subject: rdf.IRI("a"), Predicate: rdf.IRI("p"), Object: rdf.IRI("1")},
		rdf.Triple{Subject: rdf.IRI("b"), Predicate: rdf.IRI("p"), Object: rdf.IRI("2")},
	)
	req := algebra.UpdateRequest{Operations: []algebra.UpdateOp{algebra.Clear{Target: algebra.ClearDefault}}}
	n, err := ExecuteUpdate(c, req, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	count, err := s.CountPrefix(store.SPO, store.Pattern{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestExecuteUpdateClearNamedGraphIsUnsupported(t *testing.T) {
	c, _, _ := newTestContext(t)
	req := algebra.UpdateRequest{Operations: []algebra.UpdateOp{algebra.Clear{Target: algebra.ClearNamed, Silent: false}}}
	_, err := ExecuteUpdate(c, req, nil)
	assert.Error(t, err)
}

func TestExecuteUpdateClearNamedGraphSilentIsNoOp(t *testing.T) {
	c, _, _ := newTestContext(t)
	req := algebra.UpdateRequest{Operations: []algebra.UpdateOp{algebra.Clear{Target: algebra.ClearNamed, Silent: true}}}
	n, err := ExecuteUpdate(c, req, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestExecuteUpdateSequentialOperationsDoNotRollBackOnFailure(t *testing.T) {
	c, _, _ := newTestContext(t)
	good := algebra.InsertData{Triples: []algebra.TriplePattern{pat(algebra.Const(rdf.IRI("a")), algebra.Const(rdf.IRI("p")), algebra.Const(rdf.IRI("b")))}}
	bad := algebra.Load{Silent: false}
	req := algebra.UpdateRequest{Operations: []algebra.UpdateOp{good, bad}}

	n, err := ExecuteUpdate(c, req, nil)
	assert.Error(t, err, "LOAD should fail")
	assert.Equal(t, int64(1), n, "the successful INSERT DATA before the failing op must not be rolled back")
}
