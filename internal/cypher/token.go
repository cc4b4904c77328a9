package cypher

// TokenKind enumerates the lexical token categories the scanner produces.
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokIdent
	TokParam    // $name
	TokInt
	TokFloat
	TokString
	TokLParen
	TokRParen
	TokLBracket
	TokRBracket
	TokLBrace
	TokRBrace
	TokColon
	TokComma
	TokDot
	TokDotDot // ..
	TokPipe
	TokStar
	TokPlus
	TokMinus
	TokSlash
	TokPercent
	TokCaret
	TokEQ
	TokNEQ
	TokLT
	TokLTE
	TokGT
	TokGTE
	TokArrowLeft  // <-
	TokArrowRight // ->
	TokDash       // -
	TokSemicolon
)

// Token is a single lexical unit with its source position, used to build
// precise SyntaxError{line,col,token} values (spec §4.2).
type Token struct {
	Kind   TokenKind
	Text   string
	Line   int
	Col    int
}

// keywords holds case-insensitive Cypher keywords recognized by the parser.
// The lexer emits these as TokIdent; the parser matches on the upper-cased
// text, mirroring Cypher's case-insensitive keyword rule while keeping
// identifiers (labels, variables, property names) case-sensitive.
var keywords = map[string]bool{
	"USE": true, "MATCH": true, "OPTIONAL": true, "WHERE": true,
	"WITH": true, "UNWIND": true, "AS": true, "RETURN": true,
	"ORDER": true, "BY": true, "SKIP": true, "LIMIT": true,
	"UNION": true, "ALL": true, "DISTINCT": true, "CALL": true,
	"AND": true, "OR": true, "NOT": true, "XOR": true, "IN": true,
	"IS": true, "NULL": true, "TRUE": true, "FALSE": true,
	"CASE": true, "WHEN": true, "THEN": true, "ELSE": true, "END": true,
	"CREATE": true, "SET": true, "DELETE": true, "MERGE": true, "REMOVE": true,
	"DETACH": true, "SHORTESTPATH": true, "ALLSHORTESTPATHS": true,
	"ASC": true, "DESC": true, "ASCENDING": true, "DESCENDING": true,
	"STARTS": true, "ENDS": true, "CONTAINS": true,
}

// writeKeywords are rejected at parse time per spec §4.2/§7.
var writeKeywords = map[string]bool{
	"CREATE": true, "SET": true, "DELETE": true, "MERGE": true, "REMOVE": true, "DETACH": true,
}
