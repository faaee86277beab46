package satsolver

import (
	"github.com/go-air/gini"
	"github.com/go-air/gini/z"
)

// GiniOracle is the default Oracle, backed by go-air/gini. Grounded on
// gini's DIMACS-literal adapter (z.Dimacs2Lit) rather than its circuit
// builder (logic.C), since the CNF builder already produces DIMACS-shaped
// signed-integer clauses.
type GiniOracle struct{}

// NewGiniOracle returns the default SAT oracle.
func NewGiniOracle() *GiniOracle { return &GiniOracle{} }

// Solve feeds numVars/clauses directly into a fresh gini instance and
// reads back a satisfying assignment if one exists.
func (GiniOracle) Solve(numVars int32, clauses [][]int32) (Result, []bool) {
	g := gini.New()

	for _, cl := range clauses {
		for _, lit := range cl {
			g.Add(z.Dimacs2Lit(int(lit)))
		}

		g.Add(0)
	}

	switch g.Solve() {
	case 1:
		assignment := make([]bool, numVars)
		for v := int32(1); v <= numVars; v++ {
			assignment[v-1] = g.Value(z.Dimacs2Lit(int(v)))
		}

		return Sat, assignment

	case -1:
		return Unsat, nil

	default:
		return Unknown, nil
	}
}
