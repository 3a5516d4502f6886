package algebra

import "github.com/wbrown/sparqlite/internal/errs"

// QueryType names the four SPARQL query forms.
type QueryType string

const (
	Select    QueryType = "select"
	Construct QueryType = "construct"
	Ask       QueryType = "ask"
	Describe  QueryType = "describe"
)

// RawQuery is the parser's output before compilation: a query type plus
// loosely-typed properties. Compile validates and assembles it into
// a CompiledQuery.
type RawQuery struct {
	Type        QueryType
	Pattern     Node
	Dataset     []string // FROM/FROM NAMED IRIs, currently unused (default graph only)
	BaseIRI     string
	Template    []TriplePattern // CONSTRUCT template
	Describe    []PatternTerm   // DESCRIBE targets (IRIs or variables)
	ProjectVars []Symbol        // SELECT projection (nil = SELECT *)
	Distinct    bool
	Reduced     bool
	OrderBy     []OrderKey
	Offset      int
	Limit       int // NoLimit if absent
}

// CompiledQuery is the validated, ready-to-plan query record.
type CompiledQuery struct {
	Type     QueryType
	Pattern  Node
	Dataset  []string
	BaseIRI  string
	Template []TriplePattern
	Describe []PatternTerm
}

// Compile extracts the pattern, dataset, base IRI, and template from a
// raw parser AST, validates the pattern, and returns a compiled query
// record. Solution modifiers (projection, DISTINCT/REDUCED, ORDER BY,
// OFFSET/LIMIT) are folded into Pattern here so downstream components
// only ever see a single Node tree.
func Compile(raw RawQuery) (*CompiledQuery, error) {
	pattern := raw.Pattern
	if pattern == nil {
		return nil, errs.New(errs.EmptyPatterns, "query has no pattern")
	}

	switch raw.Type {
	case Select:
		if len(raw.OrderBy) > 0 {
			pattern = OrderBy{P: pattern, Keys: raw.OrderBy}
		}
		if raw.ProjectVars != nil {
			pattern = Project{P: pattern, Vars: raw.ProjectVars}
		}
		if raw.Distinct {
			pattern = Distinct{P: pattern}
		} else if raw.Reduced {
			pattern = Reduced{P: pattern}
		}
		if raw.Offset != 0 || raw.Limit != NoLimit {
			pattern = Slice{P: pattern, Offset: raw.Offset, Limit: raw.Limit}
		}
	case Construct:
		if len(raw.Template) == 0 {
			return nil, errs.New(errs.EmptyPatterns, "CONSTRUCT requires a template")
		}
	case Ask, Describe:
		// No solution modifiers apply.
	default:
		return nil, errs.New(errs.UnsupportedOperation, "unknown query type %q", raw.Type)
	}

	if err := Validate(pattern); err != nil {
		return nil, err
	}

	return &CompiledQuery{
		Type:     raw.Type,
		Pattern:  pattern,
		Dataset:  raw.Dataset,
		BaseIRI:  raw.BaseIRI,
		Template: raw.Template,
		Describe: raw.Describe,
	}, nil
}
