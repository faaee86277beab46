package laminar

// =============================================================================
// Top level
// =============================================================================

// Module is a parsed source file: a module header, its opens, and an
// ordered list of paragraphs (signatures, facts, predicates, functions,
// assertions, enums, commands) in declaration order.
type Module struct {
	NameSpan   Span
	Name       string
	Params     []string
	Opens      []*Open
	Paragraphs []Paragraph
}

func (m *Module) Span() Span { return m.NameSpan }

// Open is a `open path[args] as alias` import declaration.
type Open struct {
	OpenSpan Span
	Path     string
	Args     []string
	Alias    string
}

func (o *Open) Span() Span { return o.OpenSpan }

// Paragraph is any top-level declaration after the opens.
type Paragraph interface {
	Node
	paragraph()
}

// =============================================================================
// Signatures & fields
// =============================================================================

// SigModifiers groups the keyword modifiers a signature declaration may carry.
type SigModifiers struct {
	Abstract bool
	Mult     string // "", "one", "lone", "some"
	Var      bool
	Private  bool
}

// QualName is a (possibly dotted, for box-join-like qualification) type name
// reference used in `extends`/`in` clauses and field types.
type QualName struct {
	NameSpan Span
	Name     string
}

func (q *QualName) Span() Span { return q.NameSpan }

// SigDecl declares one or more signatures sharing a body:
// `abstract sig Dog, Cat extends Animal { ... }`.
type SigDecl struct {
	DeclSpan Span
	Mods     SigModifiers
	Names    []string
	Extends  *QualName  // nil if none
	In       []QualName // `in P1 + P2 + ...`
	Fields   []*FieldDecl
	Facts    []Formula // the signature's own appended fact block, if any
}

func (s *SigDecl) Span() Span { return s.DeclSpan }
func (*SigDecl) paragraph()   {}

// FieldDecl declares one or more same-typed fields of the enclosing
// signature(s): `friends, enemies: set Person`.
type FieldDecl struct {
	DeclSpan Span
	Names    []string
	Disj     bool
	Var      bool
	Type     Expr
}

func (f *FieldDecl) Span() Span { return f.DeclSpan }

// EnumDecl declares an enumerated signature: `enum Color { Red, Green, Blue }`.
type EnumDecl struct {
	DeclSpan Span
	Name     string
	Values   []string
}

func (e *EnumDecl) Span() Span { return e.DeclSpan }
func (*EnumDecl) paragraph()   {}

// =============================================================================
// Facts, predicates, functions, assertions
// =============================================================================

// FactDecl is a standalone `fact [Name] { ... }`.
type FactDecl struct {
	DeclSpan Span
	Name     string
	Body     Formula
}

func (f *FactDecl) Span() Span { return f.DeclSpan }
func (*FactDecl) paragraph()   {}

// ParamDecl is a predicate/function/quantifier parameter or comprehension
// declaration: `[disj] name(, name)* : [mult] Type`.
type ParamDecl struct {
	DeclSpan Span
	Names    []string
	Disj     bool
	Mult     string
	Type     Expr
}

func (p *ParamDecl) Span() Span { return p.DeclSpan }

// PredDecl is `pred [Recv.]Name(params) { body }`.
type PredDecl struct {
	DeclSpan Span
	Receiver string // sig name, or "" for a free predicate
	Name     string
	Params   []*ParamDecl
	Body     Formula
}

func (p *PredDecl) Span() Span { return p.DeclSpan }
func (*PredDecl) paragraph()   {}

// FunDecl is `fun [Recv.]Name(params): RetType { body }`.
type FunDecl struct {
	DeclSpan Span
	Receiver string
	Name     string
	Params   []*ParamDecl
	RetType  Expr
	Body     Expr
}

func (f *FunDecl) Span() Span { return f.DeclSpan }
func (*FunDecl) paragraph()   {}

// AssertDecl is `assert Name { body }`.
type AssertDecl struct {
	DeclSpan Span
	Name     string
	Body     Formula
}

func (a *AssertDecl) Span() Span { return a.DeclSpan }
func (*AssertDecl) paragraph()   {}

// =============================================================================
// Commands
// =============================================================================

// PerSigScope is one `N Sig` or `exactly N Sig` entry in a `but` clause.
type PerSigScope struct {
	Sig     string
	Count   int
	Exactly bool
}

// CommandScope is the full scope annotation of a run/check command.
type CommandScope struct {
	Default    int
	HasDefault bool
	PerSig     []PerSigScope
	Steps      int
	HasSteps   bool
	IntBits    int
	HasIntBits bool
	Expect     int
	HasExpect  bool
}

// CommandKind distinguishes run from check.
type CommandKind int

const (
	CommandRun CommandKind = iota
	CommandCheck
)

// Command is a `run`/`check` paragraph, targeting either a named
// predicate/assertion or an inline formula block.
type Command struct {
	DeclSpan Span
	Kind     CommandKind
	Label    string // the command's own name, if given: `run Foo: { ... }`
	Target   string // referenced pred/assert name, or "" for an inline body
	Args     []Expr // arguments when the target is a parameterized predicate
	Inline   Formula
	Scope    CommandScope
}

func (c *Command) Span() Span { return c.DeclSpan }
func (*Command) paragraph()   {}

// =============================================================================
// Declarations shared by quantifiers / comprehensions / let
// =============================================================================

// Decl is one `[disj] x1, x2: [mult] Type` binding group.
type Decl struct {
	DeclSpan Span
	Names    []string
	Disj     bool
	Mult     string
	Type     Expr
}

func (d *Decl) Span() Span { return d.DeclSpan }

// LetBinding is one `name = value` pair inside a let expression/formula.
type LetBinding struct {
	BindSpan Span
	Name     string
	Value    Expr
}

func (l *LetBinding) Span() Span { return l.BindSpan }

// =============================================================================
// Expressions
// =============================================================================

// Expr is the interface implemented by every expression AST node.
type Expr interface {
	Node
	expr()
}

// NameExpr references a signature, field, parameter, let/quantifier
// variable, or built-in by name. Suppressed is true for `@name`, which
// disables signature-fact auto-expansion (§4.7).
type NameExpr struct {
	NameSpan   Span
	Name       string
	Suppressed bool
}

func (n *NameExpr) Span() Span { return n.NameSpan }
func (*NameExpr) expr()        {}

// Built-in atoms: univ, none, iden, Int, this.
type BuiltinExpr struct {
	BuiltinSpan Span
	Name        string
}

func (b *BuiltinExpr) Span() Span { return b.BuiltinSpan }
func (*BuiltinExpr) expr()        {}

// IntLitExpr is an integer literal.
type IntLitExpr struct {
	LitSpan Span
	Value   int64
}

func (i *IntLitExpr) Span() Span { return i.LitSpan }
func (*IntLitExpr) expr()        {}

// BinaryExpr covers +, -, &, ++, ->, <:, :>, . (join).
type BinaryExpr struct {
	BinSpan Span
	Op      string
	Left    Expr
	Right   Expr
}

func (b *BinaryExpr) Span() Span { return b.BinSpan }
func (*BinaryExpr) expr()        {}

// UnaryExpr covers ~ (transpose), ^ (closure), * (reflexive closure),
// # (cardinality), and negation is not an expression op (formulas negate).
type UnaryExpr struct {
	UnSpan Span
	Op     string
	X      Expr
}

func (u *UnaryExpr) Span() Span { return u.UnSpan }
func (*UnaryExpr) expr()        {}

// MultExpr is a multiplicity prefix applied to an expression in a type
// position (`set Person`, `lone Person`); at the matrix level it has no
// effect (§4.7) but is retained for the type-checker's arity/mult checks.
type MultExpr struct {
	MultSpanPos Span
	Mult        string
	X           Expr
}

func (m *MultExpr) Span() Span { return m.MultSpanPos }
func (*MultExpr) expr()        {}

// PrimeExpr is `e'`, the next-state value of a variable relation.
type PrimeExpr struct {
	PrimeSpanPos Span
	X            Expr
}

func (p *PrimeExpr) Span() Span { return p.PrimeSpanPos }
func (*PrimeExpr) expr()        {}

// BoxJoinExpr is `fn[a1, ..., an]`, sugar for an*...*a1*fn under join.
type BoxJoinExpr struct {
	JoinSpan Span
	Fn       Expr
	Args     []Expr
}

func (b *BoxJoinExpr) Span() Span { return b.JoinSpan }
func (*BoxJoinExpr) expr()        {}

// ComprehensionExpr is `{ decls | body }`.
type ComprehensionExpr struct {
	ComprSpan Span
	Decls     []*Decl
	Body      Formula
}

func (c *ComprehensionExpr) Span() Span { return c.ComprSpan }
func (*ComprehensionExpr) expr()        {}

// LetExpr is `let x = e, y = f | body` in expression context.
type LetExpr struct {
	LetSpan  Span
	Bindings []*LetBinding
	Body     Expr
}

func (l *LetExpr) Span() Span { return l.LetSpan }
func (*LetExpr) expr()        {}

// IfExpr is the expression-valued conditional `cond => then else otherwise`.
type IfExpr struct {
	IfSpan Span
	Cond   Formula
	Then   Expr
	Else   Expr
}

func (i *IfExpr) Span() Span { return i.IfSpan }
func (*IfExpr) expr()        {}

// BlockExpr is a brace-delimited list of formulas used in expression
// context (§9 open question 3): evaluates to univ if every formula holds,
// none otherwise.
type BlockExpr struct {
	BlockSpan Span
	Formulas  []Formula
}

func (b *BlockExpr) Span() Span { return b.BlockSpan }
func (*BlockExpr) expr()        {}

// =============================================================================
// Formulas
// =============================================================================

// Formula is the interface implemented by every formula AST node.
type Formula interface {
	Node
	formula()
}

// BinaryFormula covers and, or, implies, iff.
type BinaryFormula struct {
	BinSpan Span
	Op      string
	Left    Formula
	Right   Formula
}

func (b *BinaryFormula) Span() Span { return b.BinSpan }
func (*BinaryFormula) formula()     {}

// NotFormula is `not f` / `! f`.
type NotFormula struct {
	NotSpan Span
	X       Formula
}

func (n *NotFormula) Span() Span { return n.NotSpan }
func (*NotFormula) formula()     {}

// TemporalUnaryFormula covers always, eventually, after, historically,
// once, before (future + past unary LTL operators).
type TemporalUnaryFormula struct {
	TUSpan Span
	Op     string
	X      Formula
}

func (t *TemporalUnaryFormula) Span() Span { return t.TUSpan }
func (*TemporalUnaryFormula) formula()     {}

// TemporalBinaryFormula covers until, releases, since, triggered, and the
// sequential `;` operator.
type TemporalBinaryFormula struct {
	TBSpan Span
	Op     string
	Left   Formula
	Right  Formula
}

func (t *TemporalBinaryFormula) Span() Span { return t.TBSpan }
func (*TemporalBinaryFormula) formula()     {}

// QuantFormula is `Q decls | body` for Q in {all, some, no, one, lone}.
type QuantFormula struct {
	QSpan Span
	Quant string
	Decls []*Decl
	Body  Formula
}

func (q *QuantFormula) Span() Span { return q.QSpan }
func (*QuantFormula) formula()     {}

// LetFormula is `let x = e | body` in formula context.
type LetFormula struct {
	LetSpan  Span
	Bindings []*LetBinding
	Body     Formula
}

func (l *LetFormula) Span() Span { return l.LetSpan }
func (*LetFormula) formula()     {}

// IfFormula is the formula-valued conditional `cond => then else otherwise`
// when then/otherwise are themselves formulas.
type IfFormula struct {
	IfSpan Span
	Cond   Formula
	Then   Formula
	Else   Formula
}

func (i *IfFormula) Span() Span { return i.IfSpan }
func (*IfFormula) formula()     {}

// CompareFormula covers =, !=, in, not in, <, <=, >, >=.
type CompareFormula struct {
	CmpSpan Span
	Op      string
	Left    Expr
	Right   Expr
}

func (c *CompareFormula) Span() Span { return c.CmpSpan }
func (*CompareFormula) formula()     {}

// MultFormula is a bare multiplicity test on an expression: `some e`,
// `no e`, `one e`, `lone e` used as a formula (not a type prefix).
type MultFormula struct {
	MultSpanPos Span
	Mult        string
	X           Expr
}

func (m *MultFormula) Span() Span { return m.MultSpanPos }
func (*MultFormula) formula()     {}

// CallFormula invokes a predicate: `Name[args]` or `Recv.Name[args]`.
type CallFormula struct {
	CallSpanPos Span
	Receiver    Expr
	Name        string
	Args        []Expr
}

func (c *CallFormula) Span() Span { return c.CallSpanPos }
func (*CallFormula) formula()     {}

// BlockFormula is a brace-delimited conjunction of formulas.
type BlockFormula struct {
	BlockSpan Span
	Formulas  []Formula
}

func (b *BlockFormula) Span() Span { return b.BlockSpan }
func (*BlockFormula) formula()     {}

// ExprFormula lifts an expression into formula context: `some(expr)`.
type ExprFormula struct {
	ExprSpanPos Span
	X           Expr
}

func (e *ExprFormula) Span() Span { return e.ExprSpanPos }
func (*ExprFormula) formula()     {}
