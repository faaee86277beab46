package laminar

import "github.com/alecthomas/participle/v2/lexer"

// Position is a source location; tab width is 1 column per §4.1.
type Position = lexer.Position

// Span is a half-open source range used by every AST node for error
// reporting and (optionally) caret rendering by an external UI.
type Span struct {
	Start Position
	End   Position
}

// Node is implemented by every AST node.
type Node interface {
	Span() Span
}

func joinSpan(a, b Span) Span {
	return Span{Start: a.Start, End: b.End}
}
