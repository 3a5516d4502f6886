package sparql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/sparqlite/algebra"
)

func TestParseQuerySelectStarWithWhere(t *testing.T) {
	q, err := ParseQuery(`SELECT * WHERE { ?s ?p ?o }`)
	require.NoError(t, err)
	assert.Equal(t, algebra.Select, q.Type)
	bgp, ok := q.Pattern.(algebra.BGP)
	require.True(t, ok, "a bare SELECT * WHERE should compile straight to a BGP")
	require.Len(t, bgp.Patterns, 1)
}

func TestParseQuerySelectWithProjectionDistinctAndLimit(t *testing.T) {
	q, err := ParseQuery(`SELECT DISTINCT ?name WHERE { ?s <http://example.org/name> ?name } LIMIT 5`)
	require.NoError(t, err)
	slice, ok := q.Pattern.(algebra.Slice)
	require.True(t, ok, "LIMIT should wrap the pattern in a Slice")
	assert.Equal(t, 5, slice.Limit)
	_, ok = slice.P.(algebra.Distinct)
	assert.True(t, ok, "DISTINCT should wrap the pattern below the Slice")
}

func TestParseQueryWithPrefixAndIRI(t *testing.T) {
	q, err := ParseQuery(`PREFIX ex: <http://example.org/> SELECT ?o WHERE { ex:alice ex:knows ?o }`)
	require.NoError(t, err)
	bgp := q.Pattern.(algebra.Project).P.(algebra.BGP)
	require.Len(t, bgp.Patterns, 1)
	assert.Equal(t, "http://example.org/alice", bgp.Patterns[0].Subject.Term().Value())
}

func TestParseQueryFilterAppliesOverBGP(t *testing.T) {
	q, err := ParseQuery(`SELECT ?a WHERE { ?s <http://example.org/age> ?a . FILTER(?a > 25) }`)
	require.NoError(t, err)
	proj := q.Pattern.(algebra.Project)
	_, ok := proj.P.(algebra.Filter)
	assert.True(t, ok, "FILTER should wrap the BGP it constrains")
}

func TestParseQueryOptionalProducesLeftJoin(t *testing.T) {
	q, err := ParseQuery(`SELECT * WHERE { ?s <http://example.org/name> ?n OPTIONAL { ?s <http://example.org/age> ?a } }`)
	require.NoError(t, err)
	_, ok := q.Pattern.(algebra.LeftJoin)
	assert.True(t, ok, "OPTIONAL should compile to a LeftJoin")
}

func TestParseQueryUnionProducesUnionNode(t *testing.T) {
	q, err := ParseQuery(`SELECT * WHERE { { ?s <http://example.org/a> ?o } UNION { ?s <http://example.org/b> ?o } }`)
	require.NoError(t, err)
	_, ok := q.Pattern.(algebra.Union)
	assert.True(t, ok, "UNION of two group graph patterns should compile to a Union node")
}

func TestParseQueryMinusProducesMinusNode(t *testing.T) {
	q, err := ParseQuery(`SELECT * WHERE { ?s <http://example.org/a> ?o MINUS { ?s <http://example.org/b> ?o } }`)
	require.NoError(t, err)
	_, ok := q.Pattern.(algebra.Minus)
	assert.True(t, ok)
}

func TestParseQueryAsk(t *testing.T) {
	q, err := ParseQuery(`ASK WHERE { ?s <http://example.org/p> ?o }`)
	require.NoError(t, err)
	assert.Equal(t, algebra.Ask, q.Type)
}

func TestParseQueryConstruct(t *testing.T) {
	q, err := ParseQuery(`CONSTRUCT { ?s <http://example.org/copy> ?o } WHERE { ?s <http://example.org/p> ?o }`)
	require.NoError(t, err)
	assert.Equal(t, algebra.Construct, q.Type)
	require.Len(t, q.Template, 1)
}

func TestParseQueryDescribeWithIRI(t *testing.T) {
	q, err := ParseQuery(`DESCRIBE <http://example.org/alice>`)
	require.NoError(t, err)
	assert.Equal(t, algebra.Describe, q.Type)
	require.Len(t, q.Describe, 1)
	assert.Equal(t, "http://example.org/alice", q.Describe[0].Term().Value())
}

func TestParseQueryGroupByWithAggregate(t *testing.T) {
	q, err := ParseQuery(`SELECT ?g (COUNT(*) AS ?c) WHERE { ?g <http://example.org/p> ?v } GROUP BY ?g`)
	require.NoError(t, err)
	proj := q.Pattern.(algebra.Project)
	group, ok := proj.P.(algebra.Group)
	require.True(t, ok, "GROUP BY with an aggregate projection should compile to a Group node")
	require.Len(t, group.Aggs, 1)
	assert.Equal(t, "count", group.Aggs[0].Agg.Func)
	assert.True(t, group.Aggs[0].Agg.Star)
}

func TestParseQueryOrderByDesc(t *testing.T) {
	q, err := ParseQuery(`SELECT ?a WHERE { ?s <http://example.org/a> ?a } ORDER BY DESC(?a)`)
	require.NoError(t, err)
	proj := q.Pattern.(algebra.Project)
	order, ok := proj.P.(algebra.OrderBy)
	require.True(t, ok)
	require.Len(t, order.Keys, 1)
	assert.True(t, order.Keys[0].Desc)
}

func TestParseUpdateInsertData(t *testing.T) {
	req, err := ParseUpdate(`INSERT DATA { <http://example.org/a> <http://example.org/p> <http://example.org/b> }`)
	require.NoError(t, err)
	require.Len(t, req.Operations, 1)
	ins, ok := req.Operations[0].(algebra.InsertData)
	require.True(t, ok)
	require.Len(t, ins.Triples, 1)
}

func TestParseUpdateDeleteData(t *testing.T) {
	req, err := ParseUpdate(`DELETE DATA { <http://example.org/a> <http://example.org/p> <http://example.org/b> }`)
	require.NoError(t, err)
	require.Len(t, req.Operations, 1)
	_, ok := req.Operations[0].(algebra.DeleteData)
	assert.True(t, ok)
}

func TestParseUpdateDeleteInsertWhere(t *testing.T) {
	req, err := ParseUpdate(`DELETE { ?s <http://example.org/age> ?a } INSERT { ?s <http://example.org/age> "31"^^<http://www.w3.org/2001/XMLSchema#integer> } WHERE { ?s <http://example.org/age> ?a }`)
	require.NoError(t, err)
	require.Len(t, req.Operations, 1)
	diw, ok := req.Operations[0].(algebra.DeleteInsertWhere)
	require.True(t, ok)
	assert.Len(t, diw.DeleteTemplate, 1)
	assert.Len(t, diw.InsertTemplate, 1)
}

func TestParseUpdateClearDefault(t *testing.T) {
	req, err := ParseUpdate(`CLEAR DEFAULT`)
	require.NoError(t, err)
	require.Len(t, req.Operations, 1)
	clear, ok := req.Operations[0].(algebra.Clear)
	require.True(t, ok)
	assert.Equal(t, algebra.ClearDefault, clear.Target)
}

func TestParseUpdateMultipleOperationsSeparatedBySemicolon(t *testing.T) {
	req, err := ParseUpdate(`INSERT DATA { <http://example.org/a> <http://example.org/p> <http://example.org/b> } ; CLEAR DEFAULT`)
	require.NoError(t, err)
	require.Len(t, req.Operations, 2)
}

func TestParseQueryRejectsMalformedSyntax(t *testing.T) {
	_, err := ParseQuery(`SELECT WHERE ?s ?p ?o }`)
	assert.Error(t, err)
}
