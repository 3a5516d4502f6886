package expr

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wbrown/sparqlite/algebra"
	"github.com/wbrown/sparqlite/internal/errs"
	"github.com/wbrown/sparqlite/rdf"
)

// BuiltinNames lists every function name evalCall recognizes, for the
// parser and optimizer to validate calls against.
var BuiltinNames = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "neg": true,
	"=": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true,
	"&&": true, "||": true, "!": true,
	"str": true, "lang": true, "datatype": true, "iri": true, "uri": true,
	"bnode": true, "isiri": true, "isuri": true, "isblank": true,
	"isliteral": true, "isnumeric": true, "strlen": true, "substr": true,
	"ucase": true, "lcase": true, "strstarts": true, "strends": true,
	"contains": true, "strbefore": true, "strafter": true,
	"encode_for_uri": true, "concat": true, "langmatches": true,
	"regex": true, "replace": true, "abs": true, "round": true,
	"ceil": true, "floor": true, "rand": true, "now": true,
	"year": true, "month": true, "day": true, "hours": true,
	"minutes": true, "seconds": true, "timezone": true, "tz": true,
	"md5": true, "sha1": true, "sha256": true, "sha384": true, "sha512": true,
	"bound": true, "if": true, "coalesce": true, "in": true,
}

func (e *Evaluator) evalCall(c algebra.Call, binding algebra.Binding) (rdf.Term, error) {
	fn := strings.ToLower(c.Func)

	// BOUND, IF, COALESCE, and the logical connectives need
	// non-standard evaluation order (short-circuiting or
	// error-tolerant argument evaluation); everything else evaluates
	// its arguments eagerly up front.
	switch fn {
	case "bound":
		if len(c.Args) != 1 {
			return rdf.Term{}, errs.New(errs.UnsupportedOperation, "BOUND takes exactly one argument")
		}
		v, ok := c.Args[0].(algebra.VarRef)
		if !ok {
			return rdf.Term{}, errs.New(errs.UnsupportedOperation, "BOUND argument must be a variable")
		}
		_, bound := binding.Get(v.Name)
		return boolTerm(bound), nil
	case "if":
		if len(c.Args) != 3 {
			return rdf.Term{}, errs.New(errs.UnsupportedOperation, "IF takes exactly three arguments")
		}
		cond, err := e.Evaluate(c.Args[0], binding)
		if err != nil {
			return rdf.Term{}, err
		}
		ok, err := EffectiveBooleanValue(cond)
		if err != nil {
			return rdf.Term{}, err
		}
		if ok {
			return e.Evaluate(c.Args[1], binding)
		}
		return e.Evaluate(c.Args[2], binding)
	case "coalesce":
		for _, a := range c.Args {
			v, err := e.Evaluate(a, binding)
			if err == nil {
				return v, nil
			}
		}
		return rdf.Term{}, errs.New(errs.BindingMismatch, "COALESCE: every argument failed to evaluate")
	case "&&":
		return e.evalAnd(c.Args, binding)
	case "||":
		return e.evalOr(c.Args, binding)
	}

	args, err := e.evalArgs(c.Args, binding)
	if err != nil {
		return rdf.Term{}, err
	}

	switch fn {
	case "+", "-", "*", "/":
		if len(args) != 2 {
			return rdf.Term{}, errs.New(errs.UnsupportedOperation, "%s takes two operands", fn)
		}
		return arith(fn, args[0], args[1])
	case "neg":
		if len(args) != 1 {
			return rdf.Term{}, errs.New(errs.UnsupportedOperation, "unary minus takes one operand")
		}
		return unaryMinus(args[0])
	case "!":
		if len(args) != 1 {
			return rdf.Term{}, errs.New(errs.UnsupportedOperation, "NOT takes one operand")
		}
		ok, err := EffectiveBooleanValue(args[0])
		if err != nil {
			return rdf.Term{}, err
		}
		return boolTerm(!ok), nil
	case "=", "!=":
		if len(args) != 2 {
			return rdf.Term{}, errs.New(errs.UnsupportedOperation, "%s takes two operands", fn)
		}
		eq := termEquals(args[0], args[1])
		if fn == "!=" {
			return boolTerm(!eq), nil
		}
		return boolTerm(eq), nil
	case "<", ">", "<=", ">=":
		if len(args) != 2 {
			return rdf.Term{}, errs.New(errs.UnsupportedOperation, "%s takes two operands", fn)
		}
		cmp, err := compareValues(args[0], args[1])
		if err != nil {
			return rdf.Term{}, err
		}
		switch fn {
		case "<":
			return boolTerm(cmp < 0), nil
		case ">":
			return boolTerm(cmp > 0), nil
		case "<=":
			return boolTerm(cmp <= 0), nil
		default:
			return boolTerm(cmp >= 0), nil
		}
	case "str":
		return rdf.SimpleLiteral(args[0].Value()), nil
	case "lang":
		return rdf.SimpleLiteral(args[0].Lang()), nil
	case "datatype":
		if !args[0].IsLiteral() {
			return rdf.Term{}, errs.New(errs.BindingMismatch, "DATATYPE on non-literal term %s", args[0].String())
		}
		return rdf.IRI(args[0].Datatype()), nil
	case "iri", "uri":
		return rdf.IRI(args[0].Value()), nil
	case "bnode":
		if len(args) == 0 {
			return freshBlankNode(), nil
		}
		return rdf.Blank(args[0].Value()), nil
	case "isiri", "isuri":
		return boolTerm(args[0].IsIRI()), nil
	case "isblank":
		return boolTerm(args[0].IsBlank()), nil
	case "isliteral":
		return boolTerm(args[0].IsLiteral()), nil
	case "isnumeric":
		return boolTerm(isNumeric(args[0])), nil
	case "strlen":
		return intTerm(int64(len([]rune(args[0].Value())))), nil
	case "substr":
		return evalSubstr(args)
	case "ucase":
		return likeLiteral(args[0], strings.ToUpper(args[0].Value())), nil
	case "lcase":
		return likeLiteral(args[0], strings.ToLower(args[0].Value())), nil
	case "strstarts":
		return boolTerm(strings.HasPrefix(args[0].Value(), args[1].Value())), nil
	case "strends":
		return boolTerm(strings.HasSuffix(args[0].Value(), args[1].Value())), nil
	case "contains":
		return boolTerm(strings.Contains(args[0].Value(), args[1].Value())), nil
	case "strbefore":
		i := strings.Index(args[0].Value(), args[1].Value())
		if i < 0 {
			return rdf.SimpleLiteral(""), nil
		}
		return likeLiteral(args[0], args[0].Value()[:i]), nil
	case "strafter":
		i := strings.Index(args[0].Value(), args[1].Value())
		if i < 0 {
			return rdf.SimpleLiteral(""), nil
		}
		return likeLiteral(args[0], args[0].Value()[i+len(args[1].Value()):]), nil
	case "encode_for_uri":
		// QueryEscape encodes a space as '+'; percent-encoding is what
		// ENCODE_FOR_URI specifies.
		escaped := strings.ReplaceAll(url.QueryEscape(args[0].Value()), "+", "%20")
		return rdf.SimpleLiteral(escaped), nil
	case "concat":
		var b strings.Builder
		for _, a := range args {
			b.WriteString(a.Value())
		}
		return rdf.SimpleLiteral(b.String()), nil
	case "langmatches":
		return boolTerm(langMatches(args[0].Value(), args[1].Value())), nil
	case "regex":
		return e.evalRegex(args)
	case "replace":
		return e.evalReplace(args)
	case "abs":
		return evalUnaryMath(args[0], math.Abs)
	case "round":
		return evalUnaryMath(args[0], math.Round)
	case "ceil":
		return evalUnaryMath(args[0], math.Ceil)
	case "floor":
		return evalUnaryMath(args[0], math.Floor)
	case "rand":
		return rdf.TypedLiteral(strconv.FormatFloat(e.rng.Float64(), 'g', -1, 64), rdf.XSDDouble), nil
	case "now":
		return e.now, nil
	case "year", "month", "day", "hours", "minutes", "seconds", "timezone", "tz":
		return evalDatePart(fn, args[0])
	case "md5":
		return rdf.SimpleLiteral(md5Sum(args[0].Value())), nil
	case "sha1":
		return rdf.SimpleLiteral(sha1Sum(args[0].Value())), nil
	case "sha256":
		return rdf.SimpleLiteral(sha256Sum(args[0].Value())), nil
	case "sha384":
		return rdf.SimpleLiteral(sha384Sum(args[0].Value())), nil
	case "sha512":
		return rdf.SimpleLiteral(sha512Sum(args[0].Value())), nil
	case "in":
		for _, a := range args[1:] {
			if termEquals(args[0], a) {
				return boolTerm(true), nil
			}
		}
		return boolTerm(false), nil
	default:
		return rdf.Term{}, errs.New(errs.UnsupportedOperation, "unknown function %q", c.Func)
	}
}

func (e *Evaluator) evalAnd(args []algebra.Expr, binding algebra.Binding) (rdf.Term, error) {
	if len(args) != 2 {
		return rdf.Term{}, errs.New(errs.UnsupportedOperation, "&& takes two operands")
	}
	lv, lerr := e.Evaluate(args[0], binding)
	lok, lebvErr := ebvOrErr(lv, lerr)
	if lebvErr == nil && !lok {
		return boolTerm(false), nil
	}
	rv, rerr := e.Evaluate(args[1], binding)
	rok, rebvErr := ebvOrErr(rv, rerr)
	if rebvErr == nil && !rok {
		return boolTerm(false), nil
	}
	if lebvErr != nil {
		return rdf.Term{}, lebvErr
	}
	if rebvErr != nil {
		return rdf.Term{}, rebvErr
	}
	return boolTerm(lok && rok), nil
}

func (e *Evaluator) evalOr(args []algebra.Expr, binding algebra.Binding) (rdf.Term, error) {
	if len(args) != 2 {
		return rdf.Term{}, errs.New(errs.UnsupportedOperation, "|| takes two operands")
	}
	lv, lerr := e.Evaluate(args[0], binding)
	lok, lebvErr := ebvOrErr(lv, lerr)
	if lebvErr == nil && lok {
		return boolTerm(true), nil
	}
	rv, rerr := e.Evaluate(args[1], binding)
	rok, rebvErr := ebvOrErr(rv, rerr)
	if rebvErr == nil && rok {
		return boolTerm(true), nil
	}
	if lebvErr != nil {
		return rdf.Term{}, lebvErr
	}
	if rebvErr != nil {
		return rdf.Term{}, rebvErr
	}
	return boolTerm(lok || rok), nil
}

func ebvOrErr(t rdf.Term, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	return EffectiveBooleanValue(t)
}

func boolTerm(b bool) rdf.Term {
	if b {
		return rdf.TypedLiteral("true", rdf.XSDBoolean)
	}
	return rdf.TypedLiteral("false", rdf.XSDBoolean)
}

func intTerm(v int64) rdf.Term {
	return rdf.TypedLiteral(strconv.FormatInt(v, 10), rdf.XSDInteger)
}

// likeLiteral builds a literal with src's language/datatype tag
// carried over, per SPARQL's "string function" result typing: STRLEN
// on a language-tagged literal stays untagged (it returns an integer),
// but STRBEFORE/UCASE/etc. preserve the operand's tag when it has one.
func likeLiteral(src rdf.Term, value string) rdf.Term {
	if src.Kind() == rdf.KindLangLiteral {
		return rdf.LangLiteral(value, src.Lang())
	}
	if src.Kind() == rdf.KindTypedLiteral && src.Datatype() != rdf.XSDString {
		return rdf.TypedLiteral(value, src.Datatype())
	}
	return rdf.SimpleLiteral(value)
}

func termEquals(a, b rdf.Term) bool {
	if isNumeric(a) && isNumeric(b) {
		cmp, err := compareValues(a, b)
		return err == nil && cmp == 0
	}
	return a.Equal(b)
}

func evalSubstr(args []rdf.Term) (rdf.Term, error) {
	if len(args) != 2 && len(args) != 3 {
		return rdf.Term{}, errs.New(errs.UnsupportedOperation, "SUBSTR takes 2 or 3 arguments")
	}
	start, ok := asNumeric(args[1])
	if !ok {
		return rdf.Term{}, errs.New(errs.BindingMismatch, "SUBSTR start must be numeric")
	}
	runes := []rune(args[0].Value())
	// 1-based.
	from := int(start.val) - 1
	length := len(runes) - from
	if len(args) == 3 {
		ln, ok := asNumeric(args[2])
		if !ok {
			return rdf.Term{}, errs.New(errs.BindingMismatch, "SUBSTR length must be numeric")
		}
		length = int(ln.val)
	}
	if from < 0 {
		length += from
		from = 0
	}
	if from > len(runes) {
		from = len(runes)
	}
	end := from + length
	if end > len(runes) {
		end = len(runes)
	}
	if end < from {
		end = from
	}
	return likeLiteral(args[0], string(runes[from:end])), nil
}

func evalUnaryMath(t rdf.Term, f func(float64) float64) (rdf.Term, error) {
	n, ok := asNumeric(t)
	if !ok {
		return rdf.Term{}, errs.New(errs.BindingMismatch, "numeric function on non-numeric term %s", t.String())
	}
	return numericTerm(f(n.val), n.tier), nil
}

func langMatches(tag, pattern string) bool {
	if pattern == "*" {
		return tag != ""
	}
	tag, pattern = strings.ToLower(tag), strings.ToLower(pattern)
	if tag == pattern {
		return true
	}
	return strings.HasPrefix(tag, pattern+"-")
}

func (e *Evaluator) evalRegex(args []rdf.Term) (rdf.Term, error) {
	if len(args) != 2 && len(args) != 3 {
		return rdf.Term{}, errs.New(errs.UnsupportedOperation, "REGEX takes 2 or 3 arguments")
	}
	flags := ""
	if len(args) == 3 {
		flags = args[2].Value()
	}
	re, err := CompileRegex(args[1].Value(), flags)
	if err != nil {
		return rdf.Term{}, err
	}
	matched, err := MatchString(e.ctx, re, args[0].Value())
	if err != nil {
		return rdf.Term{}, err
	}
	return boolTerm(matched), nil
}

func (e *Evaluator) evalReplace(args []rdf.Term) (rdf.Term, error) {
	if len(args) != 3 && len(args) != 4 {
		return rdf.Term{}, errs.New(errs.UnsupportedOperation, "REPLACE takes 3 or 4 arguments")
	}
	flags := ""
	if len(args) == 4 {
		flags = args[3].Value()
	}
	re, err := CompileRegex(args[1].Value(), flags)
	if err != nil {
		return rdf.Term{}, err
	}
	repl := sparqlReplacementToGo(args[2].Value())
	out, err := ReplaceAllString(e.ctx, re, args[0].Value(), repl)
	if err != nil {
		return rdf.Term{}, err
	}
	return likeLiteral(args[0], out), nil
}

// sparqlReplacementToGo translates SPARQL's \N backreference syntax to
// Go regexp's ${N} syntax used by ReplaceAllString.
func sparqlReplacementToGo(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '9' {
			j := i + 1
			for j < len(s) && s[j] >= '0' && s[j] <= '9' {
				j++
			}
			b.WriteString("${" + s[i+1:j] + "}")
			i = j - 1
			continue
		}
		if s[i] == '$' {
			b.WriteString("$$")
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func evalDatePart(fn string, t rdf.Term) (rdf.Term, error) {
	if t.Datatype() != rdf.XSDDateTime {
		return rdf.Term{}, errs.New(errs.BindingMismatch, "%s requires an xsd:dateTime argument", fn)
	}
	parsed, err := time.Parse(time.RFC3339, t.Value())
	if err != nil {
		return rdf.Term{}, errs.New(errs.BindingMismatch, "malformed xsd:dateTime lexical %q", t.Value())
	}
	switch fn {
	case "year":
		return intTerm(int64(parsed.Year())), nil
	case "month":
		return intTerm(int64(parsed.Month())), nil
	case "day":
		return intTerm(int64(parsed.Day())), nil
	case "hours":
		return intTerm(int64(parsed.Hour())), nil
	case "minutes":
		return intTerm(int64(parsed.Minute())), nil
	case "seconds":
		return intTerm(int64(parsed.Second())), nil
	case "timezone":
		_, offset := parsed.Zone()
		return rdf.TypedLiteral(formatDuration(offset), "http://www.w3.org/2001/XMLSchema#dayTimeDuration"), nil
	case "tz":
		name, _ := parsed.Zone()
		if name == "UTC" {
			return rdf.SimpleLiteral("Z"), nil
		}
		return rdf.SimpleLiteral(parsed.Format("-07:00")), nil
	}
	return rdf.Term{}, errs.New(errs.UnsupportedOperation, "unknown date function %q", fn)
}

func formatDuration(offsetSeconds int) string {
	sign := "PT"
	if offsetSeconds < 0 {
		sign = "-PT"
		offsetSeconds = -offsetSeconds
	}
	return fmt.Sprintf("%s%dS", sign, offsetSeconds)
}

func md5Sum(s string) string    { sum := md5.Sum([]byte(s)); return fmt.Sprintf("%x", sum) }
func sha1Sum(s string) string   { sum := sha1.Sum([]byte(s)); return fmt.Sprintf("%x", sum) }
func sha256Sum(s string) string { sum := sha256.Sum256([]byte(s)); return fmt.Sprintf("%x", sum) }
func sha384Sum(s string) string { sum := sha512.Sum384([]byte(s)); return fmt.Sprintf("%x", sum) }
func sha512Sum(s string) string { sum := sha512.Sum512([]byte(s)); return fmt.Sprintf("%x", sum) }
