package translate

import (
	laminar "github.com/AlchemicalChef/MacAlloy-sub001"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/cnf"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/kernel"
)

// EncodeStructural builds the structural constraints of §4.10 step 4 that
// aren't already guaranteed by the universe/bounds builder. Signature
// multiplicity (one/lone/some) and abstract-child disjointness/coverage
// need no CNF at all: the atom allocator (internal/universe) gives every
// concrete signature its own disjoint index range and folds abstract/
// non-leaf extents as the exact union of descendants, so those two hold by
// construction. Field domain containment is likewise free: a field's upper
// bound is already built only over tuples whose first column is an atom of
// its owner (internal/universe's buildFieldBounds), so no out-of-domain
// cell is ever allocated. The one constraint left to assert explicitly is
// `disj` on a field: siblings declared in the same `disj` field group must
// have pairwise-disjoint images, state by state for `var` fields.
func (ctx *Context) EncodeStructural() *cnf.BooleanFormula {
	var conj []*cnf.BooleanFormula

	for _, group := range disjFieldGroups(ctx.St.Sigs, ctx.St.SigOrder) {
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				for s := 0; s < ctx.L; s++ {
					conj = append(conj, disjointMatrices(ctx.FieldMatrix(group[i], s), ctx.FieldMatrix(group[j], s)))
				}
			}
		}
	}

	return cnf.And(conj...)
}

// disjFieldGroups collects, per shared FieldDecl, every FieldInfo marked
// Disj — siblings from `a, b: disj set Person`-style declarations.
func disjFieldGroups(sigs map[string]*laminar.SigInfo, order []string) [][]*laminar.FieldInfo {
	byDecl := make(map[*laminar.FieldDecl][]*laminar.FieldInfo)
	var declOrder []*laminar.FieldDecl

	for _, name := range order {
		sig, ok := sigs[name]
		if !ok {
			continue
		}

		for _, fi := range sig.Fields {
			if !fi.Disj || fi.Decl == nil {
				continue
			}

			if _, seen := byDecl[fi.Decl]; !seen {
				declOrder = append(declOrder, fi.Decl)
			}

			byDecl[fi.Decl] = append(byDecl[fi.Decl], fi)
		}
	}

	groups := make([][]*laminar.FieldInfo, 0, len(declOrder))
	for _, d := range declOrder {
		if len(byDecl[d]) > 1 {
			groups = append(groups, byDecl[d])
		}
	}

	return groups
}

// disjointMatrices asserts that a and c (same arity and universe size,
// being same-typed sibling fields) share no true cell in the same position.
func disjointMatrices(a, c *kernel.BooleanMatrix) *cnf.BooleanFormula {
	ac, cc := a.Cells(), c.Cells()

	conj := make([]*cnf.BooleanFormula, len(ac))
	for i := range ac {
		conj[i] = cnf.Not(cnf.And(ac[i], cc[i]))
	}

	return cnf.And(conj...)
}
