package kernel

import "github.com/AlchemicalChef/MacAlloy-sub001/internal/cnf"

// Some reports whether a matrix has any member: the disjunction of every
// cell (§4.5).
func Some(m *BooleanMatrix) *cnf.BooleanFormula { return cnf.Or(m.cells...) }

// No reports whether a matrix is empty: the conjunction of every cell's
// negation.
func No(m *BooleanMatrix) *cnf.BooleanFormula {
	negs := make([]*cnf.BooleanFormula, len(m.cells))
	for i, c := range m.cells {
		negs[i] = cnf.Not(c)
	}

	return cnf.And(negs...)
}

// AtMostOne is the pairwise at-most-one encoding over cells: quadratic,
// acceptable at the scopes this system targets.
func AtMostOne(cells []*cnf.BooleanFormula) *cnf.BooleanFormula {
	var conj []*cnf.BooleanFormula
	for i := 0; i < len(cells); i++ {
		for j := i + 1; j < len(cells); j++ {
			conj = append(conj, cnf.Or(cnf.Not(cells[i]), cnf.Not(cells[j])))
		}
	}

	return cnf.And(conj...)
}

// One is some ∧ atMostOne.
func One(m *BooleanMatrix) *cnf.BooleanFormula { return cnf.And(Some(m), AtMostOne(m.cells)) }

// Lone is atMostOne.
func Lone(m *BooleanMatrix) *cnf.BooleanFormula { return AtMostOne(m.cells) }

// Equal is the conjunction of per-cell bi-implications.
func Equal(a, c *BooleanMatrix) *cnf.BooleanFormula {
	conj := make([]*cnf.BooleanFormula, len(a.cells))
	for i := range a.cells {
		conj[i] = cnf.Iff(a.cells[i], c.cells[i])
	}

	return cnf.And(conj...)
}

// Subset is the conjunction of per-cell implications (a ⊆ c).
func Subset(a, c *BooleanMatrix) *cnf.BooleanFormula {
	conj := make([]*cnf.BooleanFormula, len(a.cells))
	for i := range a.cells {
		conj[i] = cnf.Implies(a.cells[i], c.cells[i])
	}

	return cnf.And(conj...)
}
