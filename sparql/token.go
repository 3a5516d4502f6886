// Package sparql implements the SPARQL 1.1 text parser: a Pike-style
// state-function lexer feeding a recursive-descent parser that builds
// algebra trees directly. It covers SELECT/ASK/CONSTRUCT/DESCRIBE,
// the FILTER/BIND expression grammar, aggregates, and the UPDATE
// operation forms.
package sparql

import "fmt"

// TokenType enumerates every lexical category the lexer emits.
type TokenType int

const (
	TokError TokenType = iota
	TokEOF

	// Keywords (matched case-insensitively, per SPARQL 1.1).
	TokSelect
	TokConstruct
	TokAsk
	TokDescribe
	TokWhere
	TokDistinct
	TokReduced
	TokFrom
	TokNamed
	TokOptional
	TokUnion
	TokMinus
	TokFilter
	TokBind
	TokAs
	TokValues
	TokUndef
	TokGraph
	TokService
	TokSilent
	TokOrder
	TokBy
	TokAsc
	TokDesc
	TokLimit
	TokOffset
	TokGroup
	TokHaving
	TokPrefix
	TokBase
	TokInsert
	TokDelete
	TokData
	TokClear
	TokCreate
	TokDrop
	TokLoad
	TokDefault
	TokAll
	TokInto
	TokUsing
	TokA // rdf:type shorthand "a"
	TokIn
	TokNot
	TokExists
	TokTrue
	TokFalse

	// Punctuation and operators.
	TokLBrace
	TokRBrace
	TokLParen
	TokRParen
	TokLBracket
	TokRBracket
	TokDot
	TokSemicolon
	TokComma
	TokPipe2  // ||
	TokAmp2   // &&
	TokEq     // =
	TokNe     // !=
	TokLt     // <
	TokGt     // >
	TokLe     // <=
	TokGe     // >=
	TokPlus
	TokMinus_ // arithmetic '-'
	TokStar
	TokSlash
	TokBang
	TokCaret2 // ^^

	// Literals and identifiers.
	TokIRIRef    // <...>
	TokPName     // prefix:local
	TokPrefixDecl // prefix: (bare, used before IRIref in PREFIX clause)
	TokVar       // ?x or $x
	TokBlankNode // _:label
	TokAnonBlank // []
	TokString    // quoted literal, any of the four SPARQL quote forms
	TokLangTag   // @en
	TokNumeric   // integer/decimal/double lexical form
	TokIdent     // bare function/keyword identifier not otherwise matched
)

// Token is one lexical unit: its type, raw text, and source position.
type Token struct {
	Type   TokenType
	Text   string
	Line   int
	Column int
}

func (t Token) String() string {
	return fmt.Sprintf("%d:%q@%d:%d", t.Type, t.Text, t.Line, t.Column)
}

var keywords = map[string]TokenType{
	"select": TokSelect, "construct": TokConstruct, "ask": TokAsk,
	"describe": TokDescribe, "where": TokWhere, "distinct": TokDistinct,
	"reduced": TokReduced, "from": TokFrom, "named": TokNamed,
	"optional": TokOptional, "union": TokUnion, "minus": TokMinus,
	"filter": TokFilter, "bind": TokBind, "as": TokAs, "values": TokValues,
	"undef": TokUndef, "graph": TokGraph, "service": TokService,
	"silent": TokSilent, "order": TokOrder, "by": TokBy, "asc": TokAsc,
	"desc": TokDesc, "limit": TokLimit, "offset": TokOffset,
	"group": TokGroup, "having": TokHaving, "prefix": TokPrefix,
	"base": TokBase, "insert": TokInsert, "delete": TokDelete,
	"data": TokData, "clear": TokClear, "create": TokCreate,
	"drop": TokDrop, "load": TokLoad, "default": TokDefault,
	"all": TokAll, "into": TokInto, "using": TokUsing, "in": TokIn,
	"not": TokNot, "exists": TokExists, "true": TokTrue, "false": TokFalse,
}
