// Package instance reads a solved CNF assignment back into a structured
// trace of signature extents and field tuples (§4.11): one snapshot per
// trace state, plus the loop-back state a bounded-lasso trace settled on.
package instance

import (
	"fmt"

	"github.com/AlchemicalChef/MacAlloy-sub001/internal/cnf"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/kernel"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/translate"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/universe"
)

// Row is one tuple of atom names, in column order.
type Row []string

// State is one trace step's full extent snapshot: every signature's
// members and every field's tuples, keyed by name ("Sig" / "Sig.field").
type State struct {
	Sigs   map[string][]Row
	Fields map[string][]Row
}

// Instance is a complete solved trace: one or more States, plus -1 or the
// state index a bounded-lasso trace loops back to (§4.9).
type Instance struct {
	Atoms     []string
	States    []*State
	LoopState int // -1 if the command never required a loop
}

// Extract reads assignment (as returned by a satsolver.Oracle on Sat) back
// into an Instance, walking every trace state translate.Context encoded.
func Extract(ctx *translate.Context, assignment []bool) *Instance {
	inst := &Instance{
		Atoms:     atomNames(ctx.U),
		LoopState: -1,
	}

	for s := 0; s < ctx.L; s++ {
		inst.States = append(inst.States, extractState(ctx, s, assignment))
	}

	if ctx.RequiresLoop {
		for l, sel := range ctx.Loop {
			if decode(sel, assignment) {
				inst.LoopState = l
				break
			}
		}
	}

	return inst
}

func atomNames(u *universe.Universe) []string {
	names := make([]string, u.Size())
	for i, a := range u.Atoms {
		names[i] = a.String()
	}

	return names
}

func extractState(ctx *translate.Context, s int, assignment []bool) *State {
	st := &State{Sigs: make(map[string][]Row), Fields: make(map[string][]Row)}

	for _, name := range ctx.St.SigOrder {
		sig, ok := ctx.St.Sig(name)
		if !ok {
			continue
		}

		st.Sigs[name] = extractRelation(ctx, ctx.SigMatrix(sig, s), assignment)

		for _, fi := range sig.Fields {
			key := sig.Name + "." + fi.Name
			if _, done := st.Fields[key]; done {
				continue
			}

			st.Fields[key] = extractRelation(ctx, ctx.FieldMatrix(fi, s), assignment)
		}
	}

	return st
}

// extractRelation decodes every true cell of m into a row of atom names, in
// canonical tuple order. m's cells are always leaves (§4.5's normalization
// discipline), so decoding never has to Tseitin-encode anything further.
func extractRelation(ctx *translate.Context, m *kernel.BooleanMatrix, assignment []bool) []Row {
	var rows []Row

	for idx := 0; idx < m.Len(); idx++ {
		tuple := tupleFor(idx, m.Arity, m.U)
		if !decode(m.At(tuple), assignment) {
			continue
		}

		row := make(Row, m.Arity)
		for i, a := range tuple {
			row[i] = ctx.U.Atoms[a].String()
		}

		rows = append(rows, row)
	}

	return rows
}

func tupleFor(idx, arity, u int) []int32 {
	t := make([]int32, arity)
	for i := arity - 1; i >= 0; i-- {
		t[i] = int32(idx % u)
		idx /= u
	}

	return t
}

// decode resolves a normalized matrix cell against a solved assignment: a
// constant reads off its own value, a literal reads (and negates, if
// signed) the corresponding variable.
func decode(f *cnf.BooleanFormula, assignment []bool) bool {
	switch f.Kind {
	case cnf.KConst:
		return f.BoolVal
	case cnf.KVar:
		v := f.Lit.Var()
		val := assignment[v-1]
		if f.Lit < 0 {
			return !val
		}

		return val
	default:
		panic(fmt.Sprintf("instance: matrix cell not normalized to a leaf (kind %d)", f.Kind))
	}
}
