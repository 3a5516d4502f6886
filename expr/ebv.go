package expr

import (
	"github.com/wbrown/sparqlite/internal/errs"
	"github.com/wbrown/sparqlite/rdf"
)

// EffectiveBooleanValue computes a term's EBV: boolean
// literal -> its value; numeric -> n != 0; simple/xsd:string string ->
// non-empty; anything else is an error.
func EffectiveBooleanValue(t rdf.Term) (bool, error) {
	if !t.IsLiteral() {
		return false, errs.New(errs.BindingMismatch, "effective boolean value of non-literal term %s", t.String())
	}
	if t.Datatype() == rdf.XSDBoolean {
		switch t.Value() {
		case "true", "1":
			return true, nil
		case "false", "0":
			return false, nil
		default:
			return false, errs.New(errs.BindingMismatch, "malformed xsd:boolean lexical %q", t.Value())
		}
	}
	if n, ok := asNumeric(t); ok {
		return n.val != 0, nil
	}
	if t.Datatype() == rdf.XSDString {
		return t.Value() != "", nil
	}
	return false, errs.New(errs.BindingMismatch, "no effective boolean value for term %s", t.String())
}
