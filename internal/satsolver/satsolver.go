// Package satsolver confines the concrete SAT backend behind a small
// Oracle interface so the rest of the pipeline never imports a solver
// directly (§4.10 step 7-8).
package satsolver

// Result classifies a Solve call's outcome.
type Result int

const (
	Unknown Result = iota
	Sat
	Unsat
)

// Oracle is anything that can decide a CNF instance. numVars is the
// highest variable index used by clauses (1-based); clauses are DIMACS-
// style signed literal lists. Assignment is indexed by variable - 1 and is
// only meaningful when the Result is Sat.
type Oracle interface {
	Solve(numVars int32, clauses [][]int32) (Result, []bool)
}
