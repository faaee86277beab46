package laminar

import "github.com/alecthomas/participle/v2/lexer"

// TokenKind identifies the lexical class of a Token. Negative values follow
// participle's convention for non-EOF token types (grounded on the
// teacher's lexer.go tType constants).
type TokenKind lexer.TokenType

const (
	TEOF TokenKind = TokenKind(lexer.EOF)

	TIdent TokenKind = TokenKind(-(iota + 2))
	TInt
	TKeyword
	TOp
	TLParen
	TRParen
	TLBracket
	TRBracket
	TLBrace
	TRBrace
	TColon
	TComma
	TSemi
	TDot
	TPrime
	TBar
)

// Keywords reserved exactly per §4.1, grouped by category.
var keywords = map[string]bool{
	// structural
	"module": true, "open": true, "as": true, "sig": true, "abstract": true,
	"extends": true, "in": true, "enum": true, "var": true, "private": true, "disj": true,
	// paragraph
	"fact": true, "pred": true, "fun": true, "assert": true, "run": true, "check": true,
	// command
	"for": true, "but": true, "exactly": true, "steps": true, "expect": true, "int": true,
	// multiplicity
	"set": true, "one": true, "lone": true, "some": true, "no": true, "all": true,
	// quantifier
	"sum": true,
	// logical
	"and": true, "or": true, "not": true, "iff": true, "implies": true, "else": true, "let": true,
	// built-ins
	"univ": true, "none": true, "iden": true, "Int": true, "this": true,
	// temporal future
	"always": true, "eventually": true, "after": true, "until": true, "releases": true,
	// temporal past
	"historically": true, "once": true, "before": true, "since": true, "triggered": true,
}

// Token is one lexeme with its source span.
type Token struct {
	Kind  TokenKind
	Text  string
	Start Position
	End   Position
}

func (t Token) Span() Span { return Span{Start: t.Start, End: t.End} }

func (t Token) IsKeyword(kw string) bool {
	return t.Kind == TKeyword && t.Text == kw
}

func (t Token) IsOp(op string) bool {
	return t.Kind == TOp && t.Text == op
}
