package dict

import (
	"strconv"

	"github.com/wbrown/sparqlite/rdf"
)

// Dictionary is the term<->id collaborator the core consumes.
// Implementations must make GetOrCreateID linearizable per-term:
// concurrent requests for a term not yet seen assign exactly one id,
// and every later request for the same term returns that id.
type Dictionary interface {
	// LookupID returns the id for term if it has been encoded before
	// (dictionary path) or can be inline-encoded (inline path). It never
	// creates a new dictionary entry.
	LookupID(term rdf.Term) (ID, bool)

	// LookupTerm decodes id back into its RDF term. Inline ids decode
	// without touching storage; dictionary ids are resolved from the
	// backing map.
	LookupTerm(id ID) (rdf.Term, bool)

	// GetOrCreateID returns term's id, minting and persisting a new
	// dictionary entry if term has never been seen and is not
	// inline-representable. Append-only: once assigned, an id is never
	// reused or rewritten.
	GetOrCreateID(term rdf.Term) (ID, error)
}

// TryInline attempts to inline-encode term, returning (id, true) on
// success. Only xsd:integer-typed literals, xsd:decimal-typed literals,
// and xsd:dateTime-typed literals with whole-second precision are ever
// inline candidates; everything else (including out-of-range numerics)
// must use the dictionary path.
func TryInline(term rdf.Term) (ID, bool) {
	if term.Kind() != rdf.KindTypedLiteral {
		return 0, false
	}
	switch term.Datatype() {
	case rdf.XSDInteger:
		v, err := strconv.ParseInt(term.Value(), 10, 64)
		if err != nil {
			return 0, false
		}
		id, err := EncodeInteger(v)
		if err != nil {
			return 0, false
		}
		return id, true
	case rdf.XSDDecimal:
		v, err := strconv.ParseFloat(term.Value(), 64)
		if err != nil {
			return 0, false
		}
		id, err := EncodeDecimal(v)
		if err != nil {
			return 0, false
		}
		return id, true
	case rdf.XSDDateTime:
		sec, ok := parseWholeSecondRFC3339(term.Value())
		if !ok {
			return 0, false
		}
		id, err := EncodeDateTime(sec)
		if err != nil {
			return 0, false
		}
		return id, true
	}
	return 0, false
}

// DecodeInlineTerm reconstructs the RDF term carried by an inline id.
func DecodeInlineTerm(id ID) (rdf.Term, bool) {
	switch id.Tag() {
	case TagInt:
		return rdf.TypedLiteral(formatInt(DecodeInteger(id)), rdf.XSDInteger), true
	case TagDecimal:
		return rdf.TypedLiteral(formatDecimal(DecodeDecimal(id)), rdf.XSDDecimal), true
	case TagDateTime:
		return rdf.TypedLiteral(formatDateTime(DecodeDateTime(id)), rdf.XSDDateTime), true
	}
	return rdf.Term{}, false
}
