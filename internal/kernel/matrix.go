// Package kernel implements the relational kernel (§4.5) and its
// companion bit-vector integer arithmetic (§4.6): BooleanMatrix cells hold
// constants or CNF literals, and every element-wise/join/closure operation
// emits Tseitin clauses only when an operand isn't already constant.
package kernel

import (
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/cnf"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/universe"
)

// MaxJoinOutputTuples bounds a join's output tuple count to prevent memory
// blow-up (§4.5); callers are expected to keep scopes small enough that
// legitimate joins stay under this.
const MaxJoinOutputTuples = 1_000_000

// BooleanMatrix is a dense relation of the given arity over a fixed
// universe size: one cell per tuple, enumerated in canonical (big-endian,
// atom-index) order. Every cell is always kept in leaf form — a constant
// or a single literal — never a compound, unencoded BooleanFormula tree;
// every op that combines two non-constant cells immediately Tseitin-
// encodes the result and keeps only the fresh literal.
type BooleanMatrix struct {
	Arity int
	U     int
	cells []*cnf.BooleanFormula
}

// NewMatrix returns a matrix of the given arity, every cell initially
// false.
func NewMatrix(arity, u int) *BooleanMatrix {
	cells := make([]*cnf.BooleanFormula, pow(u, arity))
	for i := range cells {
		cells[i] = cnf.False
	}

	return &BooleanMatrix{Arity: arity, U: u, cells: cells}
}

// Const returns a matrix of the given arity with every cell set to v
// (e.g. a constant-true matrix standing in for univ^arity).
func Const(arity, u int, v *cnf.BooleanFormula) *BooleanMatrix {
	m := NewMatrix(arity, u)
	for i := range m.cells {
		m.cells[i] = v
	}

	return m
}

// Identity returns the arity-2 `iden` matrix over a universe of size u.
func Identity(u int) *BooleanMatrix {
	m := NewMatrix(2, u)
	for a := 0; a < u; a++ {
		m.Set(tupleFor(a*u+a, 2, u), cnf.True)
	}

	return m
}

// FromBounds builds a matrix per §4.5's construction rule: a cell is True
// for tuples in Lower, a fresh SAT variable for tuples in Upper minus
// Lower, and False for everything else.
func FromBounds(b *cnf.Builder, u int, bounds *universe.RelationBounds) *BooleanMatrix {
	m := NewMatrix(bounds.Arity, u)
	for _, t := range bounds.Upper.Tuples() {
		idx := m.indexOf(t)
		if bounds.Lower.Contains(t) {
			m.cells[idx] = cnf.True
		} else {
			m.cells[idx] = cnf.FromLit(b.NewVar())
		}
	}

	return m
}

func pow(base, exp int) int {
	r := 1
	for i := 0; i < exp; i++ {
		r *= base
	}

	return r
}

func (m *BooleanMatrix) indexOf(tuple []int32) int {
	idx := 0
	for _, a := range tuple {
		idx = idx*m.U + int(a)
	}

	return idx
}

func (m *BooleanMatrix) tupleOf(idx int) []int32 { return tupleFor(idx, m.Arity, m.U) }

func tupleFor(idx, arity, u int) []int32 {
	t := make([]int32, arity)
	for i := arity - 1; i >= 0; i-- {
		t[i] = int32(idx % u)
		idx /= u
	}

	return t
}

// At returns the cell for tuple.
func (m *BooleanMatrix) At(tuple []int32) *cnf.BooleanFormula { return m.cells[m.indexOf(tuple)] }

// Set overwrites the cell for tuple.
func (m *BooleanMatrix) Set(tuple []int32, v *cnf.BooleanFormula) { m.cells[m.indexOf(tuple)] = v }

// Cells returns every cell in canonical order.
func (m *BooleanMatrix) Cells() []*cnf.BooleanFormula { return m.cells }

// Len is |U|^Arity.
func (m *BooleanMatrix) Len() int { return len(m.cells) }

// encodeCell keeps a matrix cell normalized: constants pass through
// untouched, and any compound formula is immediately Tseitin-encoded to
// the literal that represents it (§4.5's "allocate one fresh variable").
func encodeCell(b *cnf.Builder, f *cnf.BooleanFormula) *cnf.BooleanFormula {
	if f.Kind == cnf.KConst {
		return f
	}

	return cnf.FromLit(b.Encode(f))
}

func elementwise(b *cnf.Builder, a, c *BooleanMatrix, op func(x, y *cnf.BooleanFormula) *cnf.BooleanFormula) *BooleanMatrix {
	out := NewMatrix(a.Arity, a.U)
	for i := range out.cells {
		out.cells[i] = encodeCell(b, op(a.cells[i], c.cells[i]))
	}

	return out
}

// Union is element-wise disjunction.
func Union(b *cnf.Builder, a, c *BooleanMatrix) *BooleanMatrix {
	return elementwise(b, a, c, func(x, y *cnf.BooleanFormula) *cnf.BooleanFormula { return cnf.Or(x, y) })
}

// Intersect is element-wise conjunction.
func Intersect(b *cnf.Builder, a, c *BooleanMatrix) *BooleanMatrix {
	return elementwise(b, a, c, func(x, y *cnf.BooleanFormula) *cnf.BooleanFormula { return cnf.And(x, y) })
}

// Difference is element-wise `a ∧ ¬b`.
func Difference(b *cnf.Builder, a, c *BooleanMatrix) *BooleanMatrix {
	return elementwise(b, a, c, func(x, y *cnf.BooleanFormula) *cnf.BooleanFormula { return cnf.And(x, cnf.Not(y)) })
}

// Transpose swaps an arity-2 matrix's coordinates. A pure index
// permutation — it emits no CNF.
func Transpose(m *BooleanMatrix) *BooleanMatrix {
	out := NewMatrix(2, m.U)
	for a := 0; a < m.U; a++ {
		for c := 0; c < m.U; c++ {
			out.Set([]int32{int32(c), int32(a)}, m.At([]int32{int32(a), int32(c)}))
		}
	}

	return out
}

// Product builds the arity-sum cross product of a and c: `v ↔ a ∧ b` for
// every pair of non-false cells.
func Product(b *cnf.Builder, a, c *BooleanMatrix) *BooleanMatrix {
	out := NewMatrix(a.Arity+c.Arity, a.U)

	for ai, av := range a.cells {
		if isFalse(av) {
			continue
		}

		at := a.tupleOf(ai)

		for ci, cv := range c.cells {
			if isFalse(cv) {
				continue
			}

			ct := c.tupleOf(ci)

			tuple := make([]int32, 0, len(at)+len(ct))
			tuple = append(tuple, at...)
			tuple = append(tuple, ct...)

			out.Set(tuple, encodeCell(b, cnf.And(av, cv)))
		}
	}

	return out
}

func isFalse(f *cnf.BooleanFormula) bool { return f.Kind == cnf.KConst && !f.BoolVal }

// Join computes A(m) ⋈ B(n) → C(m+n-2) per §4.5: for each output tuple
// (a1..a_{m-1}, b2..bn), the cell is the disjunction over c in U of
// A[a1..a_{m-1}, c] ∧ B[c, b2..bn]. Returns ok=false (and an empty result)
// if the output tuple count would exceed MaxJoinOutputTuples.
func Join(b *cnf.Builder, a, c *BooleanMatrix) (result *BooleanMatrix, ok bool) {
	outArity := a.Arity + c.Arity - 2
	if outArity < 1 {
		outArity = 1
	}

	outLen := pow(a.U, outArity)
	if outLen > MaxJoinOutputTuples {
		return NewMatrix(outArity, a.U), false
	}

	out := NewMatrix(outArity, a.U)

	leftCols := a.Arity - 1

	for idx := 0; idx < outLen; idx++ {
		tuple := tupleFor(idx, outArity, a.U)
		left := tuple[:leftCols]
		right := tuple[leftCols:]

		var disj []*cnf.BooleanFormula

		for mid := 0; mid < a.U; mid++ {
			at := make([]int32, 0, leftCols+1)
			at = append(at, left...)
			at = append(at, int32(mid))

			av := a.At(at)
			if isFalse(av) {
				continue
			}

			ct := make([]int32, 0, len(right)+1)
			ct = append(ct, int32(mid))
			ct = append(ct, right...)

			cv := c.At(ct)
			if isFalse(cv) {
				continue
			}

			disj = append(disj, cnf.And(av, cv))
		}

		if len(disj) == 0 {
			out.cells[idx] = cnf.False

			continue
		}

		out.cells[idx] = encodeCell(b, cnf.Or(disj...))
	}

	return out, true
}

func ceilLog2(n int) int {
	if n <= 1 {
		return 0
	}

	bits, v := 0, n-1
	for v > 0 {
		v >>= 1
		bits++
	}

	return bits
}

// TransitiveClosure computes an arity-2 matrix's transitive closure by
// iterative squaring: R ← R ∪ (R ⋈ R), for ⌈log2|U|⌉ iterations (§4.5).
func TransitiveClosure(b *cnf.Builder, r *BooleanMatrix) *BooleanMatrix {
	cur := r
	for i := 0; i < ceilLog2(r.U); i++ {
		joined, ok := Join(b, cur, cur)
		if !ok {
			break
		}

		cur = Union(b, cur, joined)
	}

	return cur
}

// ReflexiveTransitiveClosure is TransitiveClosure unioned with iden.
func ReflexiveTransitiveClosure(b *cnf.Builder, r *BooleanMatrix) *BooleanMatrix {
	return Union(b, TransitiveClosure(b, r), Identity(r.U))
}

// Domain projects an arity-k matrix (k >= 1) down to its first column:
// domain[a] is the disjunction, over every combination of the remaining
// columns, of m[a, ...].
func Domain(b *cnf.Builder, m *BooleanMatrix) *BooleanMatrix {
	out := NewMatrix(1, m.U)
	restLen := pow(m.U, m.Arity-1)

	for a := 0; a < m.U; a++ {
		var disj []*cnf.BooleanFormula

		for ri := 0; ri < restLen; ri++ {
			rest := tupleFor(ri, m.Arity-1, m.U)

			tuple := make([]int32, 0, len(rest)+1)
			tuple = append(tuple, int32(a))
			tuple = append(tuple, rest...)

			v := m.At(tuple)
			if isFalse(v) {
				continue
			}

			disj = append(disj, v)
		}

		if len(disj) == 0 {
			out.cells[a] = cnf.False

			continue
		}

		out.cells[a] = encodeCell(b, cnf.Or(disj...))
	}

	return out
}

// Override computes `A ++ B` per §4.5: `(A \ (dom(B) × univ^(arity-1))) ∪ B`.
func Override(b *cnf.Builder, a, c *BooleanMatrix) *BooleanMatrix {
	dom := Domain(b, c)
	full := Const(a.Arity-1, a.U, cnf.True)
	domProd := Product(b, dom, full)
	diff := Difference(b, a, domProd)

	return Union(b, diff, c)
}
