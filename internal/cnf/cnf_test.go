package cnf_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlchemicalChef/MacAlloy-sub001/internal/cnf"
)

// solve is a tiny brute-force DPLL-free checker used only by these tests:
// it tries every assignment of the builder's variables and reports whether
// at least one satisfies every clause. Fine at the variable counts these
// tests allocate.
func solve(t *testing.T, b *cnf.Builder) bool {
	t.Helper()

	n := int(b.NumVars())
	for assignment := 0; assignment < (1 << n); assignment++ {
		if satisfies(assignment, b.Clauses) {
			return true
		}
	}

	return false
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

func TestBuilder_AndOr(t *testing.T) {
	t.Parallel()

	b := cnf.NewBuilder()
	a := cnf.FromLit(b.NewVar())
	c := cnf.FromLit(b.NewVar())

	b.Assert(cnf.And(a, c))
	b.Assert(cnf.Or(a, c))

	assert.True(t, solve(t, b))
}

func TestBuilder_ConstantFolding(t *testing.T) {
	t.Parallel()

	b := cnf.NewBuilder()
	v := cnf.FromLit(b.NewVar())

	assert.Same(t, cnf.False, cnf.And(v, cnf.False))
	assert.Same(t, cnf.True, cnf.Or(v, cnf.True))
	assert.Equal(t, v, cnf.And(v, cnf.True))
	assert.Equal(t, v, cnf.Or(v, cnf.False))
}

func TestBuilder_IffUnsatWhenForcedApart(t *testing.T) {
	t.Parallel()

	b := cnf.NewBuilder()
	a := cnf.FromLit(b.NewVar())
	c := cnf.FromLit(b.NewVar())

	b.Assert(cnf.Iff(a, c))
	b.Assert(a)
	b.Assert(cnf.Not(c))

	assert.False(t, solve(t, b))
}

func TestBuilder_IteSelectsBranch(t *testing.T) {
	t.Parallel()

	b := cnf.NewBuilder()
	cond := cnf.FromLit(b.NewVar())
	then := cnf.FromLit(b.NewVar())
	els := cnf.FromLit(b.NewVar())

	b.Assert(cond)
	b.Assert(cnf.Ite(cond, then, els))
	b.Assert(then)

	assert.True(t, solve(t, b))
}

func TestBuilder_WriteDIMACS(t *testing.T) {
	t.Parallel()

	b := cnf.NewBuilder()
	a := b.NewVar()
	c := b.NewVar()
	b.AssertClause(a, c)
	b.AssertClause(a.Negate(), c.Negate())

	var buf bytes.Buffer
	require.NoError(t, b.WriteDIMACS(&buf))

	assert.Contains(t, buf.String(), "p cnf 2 2\n")
	assert.Contains(t, buf.String(), "1 2 0\n")
	assert.Contains(t, buf.String(), "-1 -2 0\n")
}
