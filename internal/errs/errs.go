// Package errs implements the engine's error taxonomy: a single
// {kind, detail} shape covering parse errors, unsupported features,
// enforced limits, semantic evaluation errors, and resource errors.
package errs

import "fmt"

// Kind enumerates the engine's error categories.
type Kind string

const (
	ParseError              Kind = "parse_error"
	UnsupportedPattern      Kind = "unsupported_pattern"
	UnsupportedOperation    Kind = "unsupported_operation"
	TooManyTriples          Kind = "too_many_triples"
	TooManyMatches          Kind = "too_many_matches"
	TemplateTooLarge        Kind = "template_too_large"
	InvalidUpdateAST        Kind = "invalid_update_ast"
	InvalidClearTarget      Kind = "invalid_clear_target"
	BindingMismatch         Kind = "binding_mismatch"
	TermNotFound            Kind = "term_not_found"
	UnknownInlineType       Kind = "unknown_inline_type"
	OutOfRange              Kind = "out_of_range"
	RegexTimeout            Kind = "regex_timeout"
	Timeout                 Kind = "timeout"
	TooDeeplyNested         Kind = "too_deeply_nested"
	NoValidPlan             Kind = "no_valid_plan"
	EmptyPatterns           Kind = "empty_patterns"
	LoadNotImplemented      Kind = "load_not_implemented"
	NamedGraphsNotSupported Kind = "named_graphs_not_supported"
)

// Error is the concrete error value every core operation returns on
// failure: a stable Kind plus a human-readable Detail, with optional
// parse position fields for ParseError.
type Error struct {
	Kind   Kind
	Detail string
	Line   int
	Column int
	Hint   string
}

func (e *Error) Error() string {
	if e.Line != 0 || e.Column != 0 {
		return fmt.Sprintf("%s: %s (line %d, column %d)", e.Kind, e.Detail, e.Line, e.Column)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Is reports whether target is an *Error with the same Kind, so callers
// can use errors.Is(err, errs.New(errs.Timeout, "")).
func (e *Error) Is(target error) bool {
	o, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == o.Kind
}

// New builds an Error of the given kind with a formatted detail message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// NewParse builds a ParseError carrying a source position.
func NewParse(line, column int, hint, format string, args ...interface{}) *Error {
	return &Error{Kind: ParseError, Detail: fmt.Sprintf(format, args...), Line: line, Column: column, Hint: hint}
}

// KindOf extracts the Kind of err if it is (or wraps) an *Error.
func KindOf(err error) (Kind, bool) {
	if e, ok := err.(*Error); ok {
		return e.Kind, true
	}
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok {
		return KindOf(u.Unwrap())
	}
	return "", false
}
