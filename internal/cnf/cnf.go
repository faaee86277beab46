// Package cnf implements the Tseitin CNF builder (§4.12): a fresh-variable
// allocator, a small algebraic Boolean-formula tree with smart
// constructors, a memoizing Tseitin encoder, and a DIMACS emitter.
package cnf

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Lit is a signed DIMACS literal: a positive or negative variable index
// (1-based, as SAT solvers expect).
type Lit int32

// Var returns the unsigned variable this literal refers to.
func (l Lit) Var() int32 {
	if l < 0 {
		return int32(-l)
	}

	return int32(l)
}

// Negate returns the complementary literal.
func (l Lit) Negate() Lit { return -l }

// Clause is a disjunction of literals.
type Clause []Lit

// Kind distinguishes BooleanFormula node shapes.
type Kind int

const (
	KConst Kind = iota
	KVar
	KAnd
	KOr
	KNot
	KIff
	KIte
)

// BooleanFormula is the algebraic tree fed to the Tseitin encoder. Leaves
// are constants or existing literals (already-allocated CNF variables);
// interior nodes are And/Or/Not/Iff/Ite over child formulas. Smart
// constructors fold constants and flatten nested And/Or immediately, so
// the tree handed to Encode is already simplified.
type BooleanFormula struct {
	Kind     Kind
	BoolVal  bool   // KConst
	Lit      Lit    // KVar
	Children []*BooleanFormula // KAnd, KOr (n-ary); [0] for KNot; [0,1] for KIff/KIte's cond/then; Else below
	Else     *BooleanFormula   // KIte only
}

// Const returns the constant true/false formula.
func Const(b bool) *BooleanFormula { return &BooleanFormula{Kind: KConst, BoolVal: b} }

// True and False are the two constant singletons.
var (
	True  = Const(true)
	False = Const(false)
)

// FromLit wraps an existing CNF literal as a leaf formula.
func FromLit(l Lit) *BooleanFormula { return &BooleanFormula{Kind: KVar, Lit: l} }

// And builds a simplified conjunction: drops `true` children, short-circuits
// to `false` if any child is `false`, and flattens nested Ands.
func And(children ...*BooleanFormula) *BooleanFormula {
	var flat []*BooleanFormula
	for _, c := range children {
		if c.Kind == KConst {
			if !c.BoolVal {
				return False
			}

			continue
		}

		if c.Kind == KAnd {
			flat = append(flat, c.Children...)

			continue
		}

		flat = append(flat, c)
	}

	switch len(flat) {
	case 0:
		return True
	case 1:
		return flat[0]
	default:
		return &BooleanFormula{Kind: KAnd, Children: flat}
	}
}

// Or builds a simplified disjunction, the dual of And.
func Or(children ...*BooleanFormula) *BooleanFormula {
	var flat []*BooleanFormula
	for _, c := range children {
		if c.Kind == KConst {
			if c.BoolVal {
				return True
			}

			continue
		}

		if c.Kind == KOr {
			flat = append(flat, c.Children...)

			continue
		}

		flat = append(flat, c)
	}

	switch len(flat) {
	case 0:
		return False
	case 1:
		return flat[0]
	default:
		return &BooleanFormula{Kind: KOr, Children: flat}
	}
}

// Not builds a simplified negation.
func Not(f *BooleanFormula) *BooleanFormula {
	switch f.Kind {
	case KConst:
		return Const(!f.BoolVal)
	case KVar:
		return FromLit(f.Lit.Negate())
	case KNot:
		return f.Children[0]
	default:
		return &BooleanFormula{Kind: KNot, Children: []*BooleanFormula{f}}
	}
}

// Implies builds `a -> b` as `Or(Not(a), b)`.
func Implies(a, b *BooleanFormula) *BooleanFormula {
	return Or(Not(a), b)
}

// Iff builds a bi-implication, constant-folding when either side is known.
func Iff(a, b *BooleanFormula) *BooleanFormula {
	if a.Kind == KConst {
		if a.BoolVal {
			return b
		}

		return Not(b)
	}

	if b.Kind == KConst {
		if b.BoolVal {
			return a
		}

		return Not(a)
	}

	return &BooleanFormula{Kind: KIff, Children: []*BooleanFormula{a, b}}
}

// Ite builds `if cond then thenF else elseF`.
func Ite(cond, thenF, elseF *BooleanFormula) *BooleanFormula {
	if cond.Kind == KConst {
		if cond.BoolVal {
			return thenF
		}

		return elseF
	}

	return &BooleanFormula{Kind: KIte, Children: []*BooleanFormula{cond, thenF}, Else: elseF}
}

// Builder is the fresh-variable allocator and Tseitin encoder. Clauses
// accumulate in Clauses as Encode/AssertUnit/AssertClause are called;
// nothing is ever removed, matching the append-only CNF construction of
// §4.12.
type Builder struct {
	numVars int32
	Clauses []Clause

	// memo caches sub-formulas by pointer identity to the literal that
	// already represents them, so a node shared by pointer is
	// Tseitin-encoded only once. Separately built trees that are
	// structurally equal are not recognized as the same and are encoded
	// separately.
	memo    map[*BooleanFormula]Lit
	trueLit Lit
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{memo: make(map[*BooleanFormula]Lit)}
}

// NewVar allocates and returns a fresh variable's positive literal.
func (b *Builder) NewVar() Lit {
	b.numVars++

	return Lit(b.numVars)
}

// NumVars returns how many variables have been allocated so far.
func (b *Builder) NumVars() int32 { return b.numVars }

// AssertClause appends a clause directly, bypassing Tseitin encoding; used
// for constraints already expressed as literal disjunctions (the Tseitin
// encoders' own defining clauses, and AssertUnit).
func (b *Builder) AssertClause(lits ...Lit) {
	b.Clauses = append(b.Clauses, append(Clause{}, lits...))
}

// AssertUnit forces a single literal true.
func (b *Builder) AssertUnit(l Lit) {
	b.AssertClause(l)
}

// Assert encodes f and asserts its resulting literal as a unit clause —
// the usual way a top-level formula (a fact, a run predicate's body) is
// attached to the CNF being built.
func (b *Builder) Assert(f *BooleanFormula) {
	lit := b.Encode(f)
	b.AssertUnit(lit)
}

// Encode Tseitin-encodes f, returning the literal that is true exactly
// when f is. Constant/leaf formulas return directly without allocating a
// variable or clauses; every interior node is memoized so re-encoding the
// same *BooleanFormula pointer is free.
func (b *Builder) Encode(f *BooleanFormula) Lit {
	switch f.Kind {
	case KConst:
		if f.BoolVal {
			return b.constTrue()
		}

		return b.constTrue().Negate()

	case KVar:
		return f.Lit
	}

	if lit, ok := b.memo[f]; ok {
		return lit
	}

	var lit Lit

	switch f.Kind {
	case KAnd:
		lit = b.encodeAnd(f.Children)
	case KOr:
		lit = b.encodeOr(f.Children)
	case KNot:
		lit = b.Encode(f.Children[0]).Negate()
	case KIff:
		lit = b.encodeIff(f.Children[0], f.Children[1])
	case KIte:
		lit = b.encodeIte(f.Children[0], f.Children[1], f.Else)
	default:
		panic(fmt.Sprintf("cnf: unknown formula kind %d", f.Kind))
	}

	b.memo[f] = lit

	return lit
}

// constTrue lazily allocates a variable forced true, reused for every
// constant-folded formula in this Builder.
func (b *Builder) constTrue() Lit {
	if b.trueLit != 0 {
		return b.trueLit
	}

	v := b.NewVar()
	b.AssertUnit(v)
	b.trueLit = v

	return v
}

func (b *Builder) encodeAnd(children []*BooleanFormula) Lit {
	v := b.NewVar()

	lits := make([]Lit, len(children))
	for i, c := range children {
		lits[i] = b.Encode(c)
	}

	for _, l := range lits {
		b.AssertClause(v.Negate(), l)
	}

	clause := make(Clause, 0, len(lits)+1)
	for _, l := range lits {
		clause = append(clause, l.Negate())
	}
	clause = append(clause, v)
	b.Clauses = append(b.Clauses, clause)

	return v
}

func (b *Builder) encodeOr(children []*BooleanFormula) Lit {
	v := b.NewVar()

	lits := make([]Lit, len(children))
	for i, c := range children {
		lits[i] = b.Encode(c)
	}

	clause := make(Clause, 0, len(lits)+1)
	clause = append(clause, v.Negate())
	clause = append(clause, lits...)
	b.Clauses = append(b.Clauses, clause)

	for _, l := range lits {
		b.AssertClause(l.Negate(), v)
	}

	return v
}

func (b *Builder) encodeIff(a, c *BooleanFormula) Lit {
	v := b.NewVar()
	al := b.Encode(a)
	cl := b.Encode(c)

	b.AssertClause(v.Negate(), al.Negate(), cl)
	b.AssertClause(v.Negate(), al, cl.Negate())
	b.AssertClause(v, al, cl)
	b.AssertClause(v, al.Negate(), cl.Negate())

	return v
}

func (b *Builder) encodeIte(cond, thenF, elseF *BooleanFormula) Lit {
	v := b.NewVar()
	cl := b.Encode(cond)
	tl := b.Encode(thenF)
	el := b.Encode(elseF)

	b.AssertClause(v.Negate(), cl.Negate(), tl)
	b.AssertClause(v.Negate(), cl, el)
	b.AssertClause(cl.Negate(), tl.Negate(), v)
	b.AssertClause(cl, el.Negate(), v)

	return v
}

// WriteDIMACS emits the accumulated CNF in standard DIMACS cnf format.
func (b *Builder) WriteDIMACS(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "p cnf %d %d\n", b.numVars, len(b.Clauses)); err != nil {
		return err
	}

	var sb strings.Builder
	for _, cl := range b.Clauses {
		sb.Reset()
		for _, l := range cl {
			sb.WriteString(strconv.Itoa(int(l)))
			sb.WriteByte(' ')
		}
		sb.WriteString("0\n")

		if _, err := io.WriteString(w, sb.String()); err != nil {
			return err
		}
	}

	return nil
}
