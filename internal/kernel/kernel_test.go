package kernel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlchemicalChef/MacAlloy-sub001/internal/cnf"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/kernel"
)

// solveAny brute-forces every assignment of the builder's variables,
// reporting whether at least one satisfies every accumulated clause.
func solveAny(bld *cnf.Builder) bool {
	n := int(bld.NumVars())
	for assignment := 0; assignment < (1 << n); assignment++ {
		if satisfies(assignment, bld.Clauses) {
			return true
		}
	}

	return n == 0
}

func satisfies(assignment int, clauses []cnf.Clause) bool {
	for _, cl := range clauses {
		ok := false

		for _, l := range cl {
			v := int(l.Var()) - 1
			bit := (assignment >> v) & 1
			if (l > 0) == (bit == 1) {
				ok = true

				break
			}
		}

		if !ok {
			return false
		}
	}

	return true
}

func boolCell(v bool) *cnf.BooleanFormula {
	if v {
		return cnf.True
	}

	return cnf.False
}

func matrixFromBools(arity, u int, values map[string]bool) *kernel.BooleanMatrix {
	m := kernel.NewMatrix(arity, u)
	for key, v := range values {
		tuple := keyToTuple(key)
		m.Set(tuple, boolCell(v))
	}

	return m
}

func keyToTuple(key string) []int32 {
	var t []int32
	for _, r := range key {
		t = append(t, int32(r-'0'))
	}

	return t
}

func TestUnionIntersectDifference(t *testing.T) {
	t.Parallel()

	a := matrixFromBools(1, 2, map[string]bool{"0": true, "1": false})
	c := matrixFromBools(1, 2, map[string]bool{"0": false, "1": true})

	b := cnf.NewBuilder()

	union := kernel.Union(b, a, c)
	assert.True(t, union.At([]int32{0}).BoolVal)
	assert.True(t, union.At([]int32{1}).BoolVal)

	inter := kernel.Intersect(b, a, c)
	assert.False(t, inter.At([]int32{0}).BoolVal)
	assert.False(t, inter.At([]int32{1}).BoolVal)

	diff := kernel.Difference(b, a, c)
	assert.True(t, diff.At([]int32{0}).BoolVal)
	assert.False(t, diff.At([]int32{1}).BoolVal)
}

func TestTranspose(t *testing.T) {
	t.Parallel()

	m := matrixFromBools(2, 2, map[string]bool{"01": true})
	tr := kernel.Transpose(m)

	assert.True(t, tr.At([]int32{1, 0}).BoolVal)
	assert.False(t, tr.At([]int32{0, 1}).BoolVal)
}

func TestJoin_ComposesEdges(t *testing.T) {
	t.Parallel()

	// 0 -> 1, 1 -> 2 over a 3-atom universe.
	edges := matrixFromBools(2, 3, map[string]bool{"01": true, "12": true})

	b := cnf.NewBuilder()
	composed, ok := kernel.Join(b, edges, edges)
	require.True(t, ok)

	assert.True(t, composed.At([]int32{0, 2}).BoolVal)
	assert.False(t, composed.At([]int32{0, 1}).BoolVal)
	assert.False(t, composed.At([]int32{1, 2}).BoolVal)
}

func TestTransitiveClosure_ReachesAcrossChain(t *testing.T) {
	t.Parallel()

	edges := matrixFromBools(2, 3, map[string]bool{"01": true, "12": true})

	b := cnf.NewBuilder()
	closure := kernel.TransitiveClosure(b, edges)

	assert.True(t, closure.At([]int32{0, 1}).BoolVal)
	assert.True(t, closure.At([]int32{1, 2}).BoolVal)
	assert.True(t, closure.At([]int32{0, 2}).BoolVal)
	assert.False(t, closure.At([]int32{2, 0}).BoolVal)
}

func TestSomeNoOneLone(t *testing.T) {
	t.Parallel()

	empty := kernel.NewMatrix(1, 3)
	singleton := matrixFromBools(1, 3, map[string]bool{"0": true})
	multi := matrixFromBools(1, 3, map[string]bool{"0": true, "1": true})

	b := cnf.NewBuilder()

	b.Assert(kernel.No(empty))
	assert.True(t, solveAny(b))

	b2 := cnf.NewBuilder()
	b2.Assert(kernel.One(singleton))
	assert.True(t, solveAny(b2))

	b3 := cnf.NewBuilder()
	b3.Assert(kernel.One(multi))
	assert.False(t, solveAny(b3))

	b4 := cnf.NewBuilder()
	b4.Assert(kernel.Lone(singleton))
	assert.True(t, solveAny(b4))
}

func TestOverride_ReplacesOwnerRow(t *testing.T) {
	t.Parallel()

	a := matrixFromBools(2, 2, map[string]bool{"00": true})
	c := matrixFromBools(2, 2, map[string]bool{"01": true})

	b := cnf.NewBuilder()
	out := kernel.Override(b, a, c)

	assert.False(t, out.At([]int32{0, 0}).BoolVal)
	assert.True(t, out.At([]int32{0, 1}).BoolVal)
}

func TestBitVector_AddBasic(t *testing.T) {
	t.Parallel()

	b := cnf.NewBuilder()
	sum := kernel.Add(b, kernel.ConstBitVector(2, 4), kernel.ConstBitVector(3, 4))

	got := bitsToInt(sum)
	assert.Equal(t, int64(5), got)
}

func TestBitVector_AddOverflowIsUnsat(t *testing.T) {
	t.Parallel()

	b := cnf.NewBuilder()
	// width-4 two's complement: 7 + 1 = 8, out of [-8, 7] range -> overflow.
	kernel.Add(b, kernel.ConstBitVector(7, 4), kernel.ConstBitVector(1, 4))

	assert.False(t, solveAny(b))
}

func TestBitVector_SubBasic(t *testing.T) {
	t.Parallel()

	b := cnf.NewBuilder()
	diff := kernel.Sub(b, kernel.ConstBitVector(5, 4), kernel.ConstBitVector(3, 4))

	assert.Equal(t, int64(2), bitsToInt(diff))
}

func TestBitVector_MulBasic(t *testing.T) {
	t.Parallel()

	b := cnf.NewBuilder()
	product := kernel.Mul(b, kernel.ConstBitVector(3, 6), kernel.ConstBitVector(4, 6))

	assert.Equal(t, int64(12), bitsToInt(product))
}

func TestBitVector_DivRemBasic(t *testing.T) {
	t.Parallel()

	b := cnf.NewBuilder()
	q, r := kernel.DivRem(b, kernel.ConstBitVector(7, 5), kernel.ConstBitVector(2, 5))

	assert.Equal(t, int64(3), bitsToInt(q))
	assert.Equal(t, int64(1), bitsToInt(r))
}

func TestBitVector_DivByZeroIsUnsat(t *testing.T) {
	t.Parallel()

	b := cnf.NewBuilder()
	kernel.DivRem(b, kernel.ConstBitVector(7, 4), kernel.ConstBitVector(0, 4))

	assert.False(t, solveAny(b))
}

func TestBitVector_ShlBasic(t *testing.T) {
	t.Parallel()

	b := cnf.NewBuilder()
	shifted := kernel.Shl(b, kernel.ConstBitVector(1, 6), kernel.ConstBitVector(3, 6))

	assert.Equal(t, int64(8), bitsToInt(shifted))
}

func TestBitVector_CompareGte(t *testing.T) {
	t.Parallel()

	b := cnf.NewBuilder()
	ge := kernel.Gte(b, kernel.ConstBitVector(3, 4), kernel.ConstBitVector(-2, 4))
	require.Equal(t, cnf.KConst, ge.Kind)
	assert.True(t, ge.BoolVal)

	lt := kernel.Lt(b, kernel.ConstBitVector(-5, 4), kernel.ConstBitVector(1, 4))
	require.Equal(t, cnf.KConst, lt.Kind)
	assert.True(t, lt.BoolVal)
}

// bitsToInt reads back a fully-constant BitVector's two's-complement value.
func bitsToInt(v *kernel.BitVector) int64 {
	var n int64

	for i, bit := range v.Bits {
		if bit.Kind == cnf.KConst && bit.BoolVal {
			n |= int64(1) << uint(i)
		}
	}

	w := uint(len(v.Bits))
	if n&(int64(1)<<(w-1)) != 0 {
		n -= int64(1) << w
	}

	return n
}
