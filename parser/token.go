package parser

import "strings"

// TokenType identifies the kind of token produced by the lexer.
type TokenType int

const (
	// Special tokens.
	TokenEOF     TokenType = iota
	TokenIllegal           // unrecognized character

	// Literals and placeholders.
	TokenIdent    // identifier (column name, function name)
	TokenIntLit   // integer literal
	TokenFloatLit // floating point literal
	TokenStrLit   // single-quoted string literal
	TokenParam    // positional parameter: $1, $2, ...

	// Operators.
	TokenEq          // =
	TokenNotEq       // != or <>
	TokenLt          // <
	TokenGt          // >
	TokenLtEq        // <=
	TokenGtEq        // >=
	TokenPlus        // +
	TokenMinus       // -
	TokenSlash       // /
	TokenPercent     // %
	TokenConcat      // ||
	TokenDoubleColon // ::

	// Punctuation.
	TokenLParen    // (
	TokenRParen    // )
	TokenComma     // ,
	TokenSemicolon // ;
	TokenStar      // *
	TokenDot       // .

	// Keywords.
	TokenSelect
	TokenFrom
	TokenWhere
	TokenUnion
	TokenAll
	TokenAs
	TokenAnd
	TokenOr
	TokenNot
	TokenIs
	TokenTrue
	TokenFalse
	TokenNull
	TokenBegin
	TokenStart
	TokenTransaction
	TokenCommit
	TokenEnd
	TokenRollback
	TokenSet
	TokenDeallocate
	TokenCurrentTimestamp
)

var tokenNames = map[TokenType]string{
	TokenEOF:              "EOF",
	TokenIllegal:          "ILLEGAL",
	TokenIdent:            "IDENT",
	TokenIntLit:           "INT",
	TokenFloatLit:         "FLOAT",
	TokenStrLit:           "STRING",
	TokenParam:            "PARAM",
	TokenEq:               "=",
	TokenNotEq:            "!=",
	TokenLt:               "<",
	TokenGt:               ">",
	TokenLtEq:             "<=",
	TokenGtEq:             ">=",
	TokenPlus:             "+",
	TokenMinus:            "-",
	TokenSlash:            "/",
	TokenPercent:          "%",
	TokenConcat:           "||",
	TokenDoubleColon:      "::",
	TokenLParen:           "(",
	TokenRParen:           ")",
	TokenComma:            ",",
	TokenSemicolon:        ";",
	TokenStar:             "*",
	TokenDot:              ".",
	TokenSelect:           "SELECT",
	TokenFrom:             "FROM",
	TokenWhere:            "WHERE",
	TokenUnion:            "UNION",
	TokenAll:              "ALL",
	TokenAs:               "AS",
	TokenAnd:              "AND",
	TokenOr:               "OR",
	TokenNot:              "NOT",
	TokenIs:               "IS",
	TokenTrue:             "TRUE",
	TokenFalse:            "FALSE",
	TokenNull:             "NULL",
	TokenBegin:            "BEGIN",
	TokenStart:            "START",
	TokenTransaction:      "TRANSACTION",
	TokenCommit:           "COMMIT",
	TokenEnd:              "END",
	TokenRollback:         "ROLLBACK",
	TokenSet:              "SET",
	TokenDeallocate:       "DEALLOCATE",
	TokenCurrentTimestamp: "CURRENT_TIMESTAMP",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return "UNKNOWN"
}

// Token is a single lexical unit produced by the lexer.
type Token struct {
	Type    TokenType
	Literal string
	Pos     int // byte offset in the input
}

var keywords = map[string]TokenType{
	"SELECT":            TokenSelect,
	"FROM":              TokenFrom,
	"WHERE":             TokenWhere,
	"UNION":             TokenUnion,
	"ALL":               TokenAll,
	"AS":                TokenAs,
	"AND":               TokenAnd,
	"OR":                TokenOr,
	"NOT":               TokenNot,
	"IS":                TokenIs,
	"TRUE":              TokenTrue,
	"FALSE":             TokenFalse,
	"NULL":              TokenNull,
	"BEGIN":             TokenBegin,
	"START":             TokenStart,
	"TRANSACTION":       TokenTransaction,
	"COMMIT":            TokenCommit,
	"END":               TokenEnd,
	"ROLLBACK":          TokenRollback,
	"SET":               TokenSet,
	"DEALLOCATE":        TokenDeallocate,
	"CURRENT_TIMESTAMP": TokenCurrentTimestamp,
}

// LookupKeyword returns the keyword token type for ident, or TokenIdent
// if it is not a keyword.
func LookupKeyword(ident string) TokenType {
	if tok, ok := keywords[strings.ToUpper(ident)]; ok {
		return tok
	}
	return TokenIdent
}
