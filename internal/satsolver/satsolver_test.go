package satsolver_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AlchemicalChef/MacAlloy-sub001/internal/satsolver"
)

// fakeOracle is a tiny brute-force solver used to exercise code that
// depends only on the satsolver.Oracle interface, without requiring a real
// SAT backend in the test binary.
type fakeOracle struct{}

func (fakeOracle) Solve(numVars int32, clauses [][]int32) (satsolver.Result, []bool) {
	n := int(numVars)
	for assignment := 0; assignment < (1 << n); assignment++ {
		if satisfiesAll(assignment, clauses) {
			out := make([]bool, n)
			for v := 0; v < n; v++ {
				out[v] = (assignment>>v)&1 == 1
			}

			return satsolver.Sat, out
		}
	}

	return satsolver.Unsat, nil
}

func satisfiesAll(assignment int, clauses [][]int32) bool {
	for _, cl := range clauses {
		ok := false
		for _, lit := range cl {
			v := int(lit)
			if v < 0 {
				v = -v
			}

			bit := (assignment >> (v - 1)) & 1
			if (lit > 0) == (bit == 1) {
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

func TestOracle_Sat(t *testing.T) {
	t.Parallel()

	var o satsolver.Oracle = fakeOracle{}

	result, assignment := o.Solve(2, [][]int32{{1, 2}, {-1}})

	assert.Equal(t, satsolver.Sat, result)
	assert.False(t, assignment[0])
	assert.True(t, assignment[1])
}

func TestOracle_Unsat(t *testing.T) {
	t.Parallel()

	var o satsolver.Oracle = fakeOracle{}

	result, _ := o.Solve(1, [][]int32{{1}, {-1}})

	assert.Equal(t, satsolver.Unsat, result)
}
