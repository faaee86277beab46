package translate

import (
	laminar "github.com/AlchemicalChef/MacAlloy-sub001"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/cnf"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/kernel"
)

// declVar is one quantifier/comprehension-bound name: its declared type (for
// disambiguating field references inside the body), the unary matrix it
// ranges over, and which source Decl it came from (siblings sharing a
// `disj` decl must be pairwise distinct, §4.8).
type declVar struct {
	name   string
	typ    laminar.Type
	domain *kernel.BooleanMatrix
	group  int
	disj   bool
}

// assignedVar is one declVar bound to a concrete universe atom during
// enumeration.
type assignedVar struct {
	declVar
	atom int32
}

// flattenDecls encodes each Decl's domain once at state s and expands
// `x1, x2: T` into one declVar per name, all sharing that domain and group.
func flattenDecls(ctx *Context, s int, decls []*laminar.Decl) []declVar {
	var out []declVar

	for gi, d := range decls {
		dom := ctx.EncodeExpr(s, d.Type)
		if dom.Arity > 1 {
			dom = kernel.Domain(ctx.B, dom)
		}

		typ := ctx.typeOf(d.Type)

		for _, name := range d.Names {
			out = append(out, declVar{name: name, typ: typ, domain: dom, group: gi, disj: d.Disj})
		}
	}

	return out
}

// enumerate walks the full cartesian product of vars' domains over the
// universe (§4.8's literal full-universe enumeration), skipping
// combinations that violate a `disj` group's pairwise-distinctness
// requirement, and invokes cb once per surviving assignment.
func enumerate(ctx *Context, vars []declVar, cb func([]assignedVar)) {
	u := ctx.U.Size()
	assignment := make([]assignedVar, len(vars))

	var rec func(i int) bool
	rec = func(i int) bool {
		if i == len(vars) {
			cb(assignment)
			return true
		}

		v := vars[i]
		for a := 0; a < u; a++ {
			if v.disj && disjConflict(assignment[:i], v.group, int32(a)) {
				continue
			}

			assignment[i] = assignedVar{declVar: v, atom: int32(a)}
			rec(i + 1)
		}

		return true
	}

	rec(0)
}

func disjConflict(prior []assignedVar, group int, atom int32) bool {
	for _, av := range prior {
		if av.group == group && av.atom == atom {
			return true
		}
	}

	return false
}

// membershipAll conjoins every assignment's "atom is actually in its
// declared domain" condition — enumeration walks every atom, and this cell
// prunes the ones outside the bound's upper set.
func membershipAll(assignment []assignedVar) *cnf.BooleanFormula {
	var conj []*cnf.BooleanFormula
	for _, av := range assignment {
		conj = append(conj, av.domain.At([]int32{av.atom}))
	}

	return cnf.And(conj...)
}

// bindingsFor lifts one enumerated assignment into the lexical-scope
// binding map EncodeExpr/EncodeFormula read through NameExpr lookups.
func bindingsFor(assignment []assignedVar) map[string]binding {
	vars := make(map[string]binding, len(assignment))

	for _, av := range assignment {
		m := kernel.NewMatrix(1, av.domain.U)
		m.Set([]int32{av.atom}, cnf.True)
		vars[av.name] = binding{Type: av.typ, Matrix: m}
	}

	return vars
}
