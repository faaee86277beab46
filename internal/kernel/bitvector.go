package kernel

import (
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/cnf"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/universe"
)

// BitVector is a two's-complement integer of fixed width, LSB at index 0
// (§4.6).
type BitVector struct {
	Bits []*cnf.BooleanFormula
}

// NewBitVector allocates width fresh variables, one per bit.
func NewBitVector(b *cnf.Builder, width int) *BitVector {
	bits := make([]*cnf.BooleanFormula, width)
	for i := range bits {
		bits[i] = cnf.FromLit(b.NewVar())
	}

	return &BitVector{Bits: bits}
}

// ConstBitVector returns the two's-complement encoding of value at the
// given width.
func ConstBitVector(value int64, width int) *BitVector {
	bits := make([]*cnf.BooleanFormula, width)
	for i := 0; i < width; i++ {
		if (value>>uint(i))&1 == 1 {
			bits[i] = cnf.True
		} else {
			bits[i] = cnf.False
		}
	}

	return &BitVector{Bits: bits}
}

// Width is the bit vector's bit width.
func (v *BitVector) Width() int { return len(v.Bits) }

// Sign is the most significant bit.
func (v *BitVector) Sign() *cnf.BooleanFormula { return v.Bits[len(v.Bits)-1] }

func xor(x, y *cnf.BooleanFormula) *cnf.BooleanFormula {
	return cnf.Or(cnf.And(x, cnf.Not(y)), cnf.And(cnf.Not(x), y))
}

func halfAdder(b *cnf.Builder, x, y *cnf.BooleanFormula) (sum, carry *cnf.BooleanFormula) {
	sum = encodeCell(b, xor(x, y))
	carry = encodeCell(b, cnf.And(x, y))

	return sum, carry
}

func fullAdder(b *cnf.Builder, x, y, cin *cnf.BooleanFormula) (sum, carry *cnf.BooleanFormula) {
	s1, c1 := halfAdder(b, x, y)
	s2, c2 := halfAdder(b, s1, cin)
	sum = s2
	carry = encodeCell(b, cnf.Or(c1, c2))

	return sum, carry
}

// rippleAdd adds a and c with no overflow assertion; used internally where
// the operands are not user-facing signed values (cardinality, restoring
// division's magnitude arithmetic).
func rippleAdd(b *cnf.Builder, a, c *BitVector) *BitVector {
	w := a.Width()
	sum := make([]*cnf.BooleanFormula, w)

	carry := cnf.False
	for i := 0; i < w; i++ {
		s, cOut := fullAdder(b, a.Bits[i], c.Bits[i], carry)
		sum[i] = s
		carry = cOut
	}

	return &BitVector{Bits: sum}
}

func rawNegate(b *cnf.Builder, v *BitVector) *BitVector {
	inv := make([]*cnf.BooleanFormula, v.Width())
	for i, bit := range v.Bits {
		inv[i] = encodeCell(b, cnf.Not(bit))
	}

	return rippleAdd(b, &BitVector{Bits: inv}, ConstBitVector(1, v.Width()))
}

// Add computes a+c by ripple-carry, then asserts a unit clause forbidding
// signed overflow (§4.6): overflow ⇔ (sign(a)==sign(c)) ∧ (sign(a) !=
// sign(result)). Any addition that would overflow renders the model UNSAT.
func Add(b *cnf.Builder, a, c *BitVector) *BitVector {
	result := rippleAdd(b, a, c)

	overflow := cnf.And(cnf.Iff(a.Sign(), c.Sign()), xor(a.Sign(), result.Sign()))
	b.Assert(cnf.Not(overflow))

	return result
}

// Negate computes ~x+1, going through the overflow-checked Add so negating
// the minimum representable value (the one case that overflows) renders
// the model UNSAT rather than silently wrapping.
func Negate(b *cnf.Builder, v *BitVector) *BitVector {
	inv := make([]*cnf.BooleanFormula, v.Width())
	for i, bit := range v.Bits {
		inv[i] = encodeCell(b, cnf.Not(bit))
	}

	return Add(b, &BitVector{Bits: inv}, ConstBitVector(1, v.Width()))
}

// Sub computes a-c as add(a, -c) (§4.6).
func Sub(b *cnf.Builder, a, c *BitVector) *BitVector {
	return Add(b, a, Negate(b, c))
}

func isZero(v *BitVector) *cnf.BooleanFormula {
	negs := make([]*cnf.BooleanFormula, len(v.Bits))
	for i, bit := range v.Bits {
		negs[i] = cnf.Not(bit)
	}

	return cnf.And(negs...)
}

// Abs returns the magnitude of v, via unchecked negation (abs of the
// minimum representable value is the one input this silently wraps on,
// mirroring Negate's own asymmetry at that boundary).
func Abs(b *cnf.Builder, v *BitVector) *BitVector {
	return muxBitVector(b, v.Sign(), rawNegate(b, v), v)
}

func muxBitVector(b *cnf.Builder, sel *cnf.BooleanFormula, thenV, elseV *BitVector) *BitVector {
	bits := make([]*cnf.BooleanFormula, len(thenV.Bits))
	for i := range bits {
		bits[i] = encodeCell(b, cnf.Ite(sel, thenV.Bits[i], elseV.Bits[i]))
	}

	return &BitVector{Bits: bits}
}

func shiftLeftConst(v *BitVector, amount, width int) *BitVector {
	bits := make([]*cnf.BooleanFormula, width)
	for i := 0; i < width; i++ {
		switch {
		case i < amount:
			bits[i] = cnf.False
		case i-amount < len(v.Bits):
			bits[i] = v.Bits[i-amount]
		default:
			bits[i] = cnf.False
		}
	}

	return &BitVector{Bits: bits}
}

func shiftRightConst(v *BitVector, amount int, arithmetic bool) *BitVector {
	w := v.Width()

	fill := cnf.False
	if arithmetic {
		fill = v.Sign()
	}

	bits := make([]*cnf.BooleanFormula, w)
	for i := 0; i < w; i++ {
		if src := i + amount; src < w {
			bits[i] = v.Bits[src]
		} else {
			bits[i] = fill
		}
	}

	return &BitVector{Bits: bits}
}

func barrelShift(b *cnf.Builder, v, amount *BitVector, shiftFunc func(*BitVector, int) *BitVector) *BitVector {
	cur := v
	for i := range amount.Bits {
		shifted := shiftFunc(cur, 1<<uint(i))
		cur = muxBitVector(b, amount.Bits[i], shifted, cur)
	}

	return cur
}

// Shl is a logical left shift, barrel-shifted over amount's bits (§4.6).
func Shl(b *cnf.Builder, v, amount *BitVector) *BitVector {
	return barrelShift(b, v, amount, func(x *BitVector, n int) *BitVector { return shiftLeftConst(x, n, x.Width()) })
}

// Shr is a logical (zero-filling) right shift.
func Shr(b *cnf.Builder, v, amount *BitVector) *BitVector {
	return barrelShift(b, v, amount, func(x *BitVector, n int) *BitVector { return shiftRightConst(x, n, false) })
}

// Sha is an arithmetic (sign-extending) right shift.
func Sha(b *cnf.Builder, v, amount *BitVector) *BitVector {
	return barrelShift(b, v, amount, func(x *BitVector, n int) *BitVector { return shiftRightConst(x, n, true) })
}

func unsignedGte(a, c *BitVector) *cnf.BooleanFormula {
	result := cnf.True

	for i := len(a.Bits) - 1; i >= 0; i-- {
		gt := cnf.And(a.Bits[i], cnf.Not(c.Bits[i]))
		eq := cnf.Iff(a.Bits[i], c.Bits[i])
		result = cnf.Or(gt, cnf.And(eq, result))
	}

	return result
}

// Gte reports (as a formula) whether signed a >= c: when the signs agree
// it reads the sign of the unchecked difference a-c (which cannot
// overflow then), and when they differ it decides from a's sign alone.
func Gte(b *cnf.Builder, a, c *BitVector) *cnf.BooleanFormula {
	diff := rippleAddSigned(b, a, c)
	sameSign := cnf.Iff(a.Sign(), c.Sign())
	diffNonNeg := cnf.Not(diff.Sign())

	return cnf.Or(cnf.And(sameSign, diffNonNeg), cnf.And(cnf.Not(sameSign), cnf.Not(a.Sign())))
}

// rippleAddSigned computes a-c unchecked, for Gte's internal use only.
func rippleAddSigned(b *cnf.Builder, a, c *BitVector) *BitVector {
	return rippleAdd(b, a, rawNegate(b, c))
}

// Lt/Lte/Gt are derived from Gte.
func Lt(b *cnf.Builder, a, c *BitVector) *cnf.BooleanFormula  { return cnf.Not(Gte(b, a, c)) }
func Lte(b *cnf.Builder, a, c *BitVector) *cnf.BooleanFormula { return Gte(b, c, a) }
func Gt(b *cnf.Builder, a, c *BitVector) *cnf.BooleanFormula  { return cnf.Not(Gte(b, c, a)) }

// Mul computes a*c via a shift-and-add loop; each conditional add inherits
// Add's overflow detection (§4.6).
func Mul(b *cnf.Builder, a, c *BitVector) *BitVector {
	w := a.Width()
	acc := ConstBitVector(0, w)

	for i := 0; i < w; i++ {
		shifted := shiftLeftConst(a, i, w)
		zero := ConstBitVector(0, w)
		addend := muxBitVector(b, c.Bits[i], shifted, zero)
		acc = Add(b, acc, addend)
	}

	return acc
}

func setLowBit(v *BitVector, bit *cnf.BooleanFormula) *BitVector {
	bits := make([]*cnf.BooleanFormula, len(v.Bits))
	copy(bits, v.Bits)
	bits[0] = bit

	return &BitVector{Bits: bits}
}

// DivRem computes a/c and a%c by restoring division over magnitudes,
// re-applying a's and c's signs at the end (§4.6): `q = |a|/|b|` with sign
// sign(a) xor sign(b); `r = |a|%|b|` with sign sign(a). Division by zero
// asserts a unit clause forcing c's zero-test false, rendering the model
// UNSAT.
func DivRem(b *cnf.Builder, a, c *BitVector) (quot, rem *BitVector) {
	w := a.Width()

	b.Assert(cnf.Not(isZero(c)))

	absA := Abs(b, a)
	absC := Abs(b, c)

	q := make([]*cnf.BooleanFormula, w)
	r := ConstBitVector(0, w)

	for i := w - 1; i >= 0; i-- {
		r = shiftLeftConst(r, 1, w)
		r = setLowBit(r, absA.Bits[i])

		ge := encodeCell(b, unsignedGte(r, absC))
		diff := rippleAdd(b, r, rawNegate(b, absC))
		r = muxBitVector(b, ge, diff, r)
		q[i] = ge
	}

	unsignedQuot := &BitVector{Bits: q}

	qSign := encodeCell(b, xor(a.Sign(), c.Sign()))
	signedQuot := muxBitVector(b, qSign, rawNegate(b, unsignedQuot), unsignedQuot)
	signedRem := muxBitVector(b, a.Sign(), rawNegate(b, r), r)

	return signedQuot, signedRem
}

// Cardinality builds a pairwise adder tree over cells, each zero-extended
// to bw bits, and returns the resulting count as a BitVector (§4.6).
func Cardinality(b *cnf.Builder, cells []*cnf.BooleanFormula, bw int) *BitVector {
	if len(cells) == 0 {
		return ConstBitVector(0, bw)
	}

	vecs := make([]*BitVector, len(cells))
	for i, c := range cells {
		bits := make([]*cnf.BooleanFormula, bw)
		bits[0] = c
		for j := 1; j < bw; j++ {
			bits[j] = cnf.False
		}

		vecs[i] = &BitVector{Bits: bits}
	}

	for len(vecs) > 1 {
		next := make([]*BitVector, 0, (len(vecs)+1)/2)
		for i := 0; i+1 < len(vecs); i += 2 {
			next = append(next, rippleAdd(b, vecs[i], vecs[i+1]))
		}

		if len(vecs)%2 == 1 {
			next = append(next, vecs[len(vecs)-1])
		}

		vecs = next
	}

	return vecs[0]
}

// MatrixToBitVector converts a unary matrix over integer atoms into a
// BitVector: for every value v whose atom is a member, the fresh vector is
// forced equal to v (§4.6's matrix-to-bitvector bridge).
func MatrixToBitVector(b *cnf.Builder, m *BooleanMatrix, ints *universe.IntegerFactory, bw int) *BitVector {
	bv := NewBitVector(b, bw)

	for v := ints.Min(); v <= ints.Max(); v++ {
		atom, ok := ints.Atom(v)
		if !ok {
			continue
		}

		inSet := m.At([]int32{atom.Index})
		eq := bitsEqual(bv, ConstBitVector(v, bw))
		b.Assert(cnf.Implies(inSet, eq))
	}

	return bv
}

func bitsEqual(a, c *BitVector) *cnf.BooleanFormula {
	conj := make([]*cnf.BooleanFormula, len(a.Bits))
	for i := range a.Bits {
		conj[i] = cnf.Iff(a.Bits[i], c.Bits[i])
	}

	return cnf.And(conj...)
}

// SumInts computes the implicit-sum value of a unary integer-atom matrix:
// each member atom contributes its own value (not 1), per §4.6's
// "implicit sum" comparison semantics.
func SumInts(b *cnf.Builder, m *BooleanMatrix, ints *universe.IntegerFactory, bw int) *BitVector {
	acc := ConstBitVector(0, bw)

	for v := ints.Min(); v <= ints.Max(); v++ {
		atom, ok := ints.Atom(v)
		if !ok {
			continue
		}

		inSet := m.At([]int32{atom.Index})
		term := muxBitVector(b, inSet, ConstBitVector(v, bw), ConstBitVector(0, bw))
		acc = rippleAdd(b, acc, term)
	}

	return acc
}
