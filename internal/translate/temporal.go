package translate

import (
	laminar "github.com/AlchemicalChef/MacAlloy-sub001"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/cnf"
)

// atNextState resolves a unary future operator's "next state" the same way
// nextMatrix does for relations: state s+1 if one remains in the trace,
// else — when a loop exists — the loop-selected state, else (a single-step
// command with no loop) state s itself, the trivial stuttering trace
// (§4.9).
func (ctx *Context) atNextState(s int, f func(t int) *cnf.BooleanFormula) *cnf.BooleanFormula {
	if s < ctx.L-1 {
		return f(s + 1)
	}

	if !ctx.RequiresLoop {
		return f(s)
	}

	var disj []*cnf.BooleanFormula
	for l := range ctx.Loop {
		disj = append(disj, cnf.And(ctx.Loop[l], f(l)))
	}

	return cnf.Or(disj...)
}

// encodeTemporalUnary dispatches always/eventually/after and the past
// operators historically/once/before (§4.9).
func (ctx *Context) encodeTemporalUnary(s int, n *laminar.TemporalUnaryFormula) *cnf.BooleanFormula {
	switch n.Op {
	case "after":
		return ctx.atNextState(s, func(t int) *cnf.BooleanFormula { return ctx.EncodeFormula(t, n.X) })

	case "always":
		return ctx.always(s, n.X)

	case "eventually":
		return ctx.eventually(s, n.X)

	case "historically":
		var conj []*cnf.BooleanFormula
		for t := 0; t <= s; t++ {
			conj = append(conj, ctx.EncodeFormula(t, n.X))
		}

		return cnf.And(conj...)

	case "once":
		var disj []*cnf.BooleanFormula
		for t := 0; t <= s; t++ {
			disj = append(disj, ctx.EncodeFormula(t, n.X))
		}

		return cnf.Or(disj...)

	case "before":
		if s == 0 {
			return cnf.False
		}

		return ctx.EncodeFormula(s-1, n.X)

	default:
		return cnf.True
	}
}

// always(A)@s must hold at every state the trace can still reach: the
// non-wrapping tail [s, L) plus, for whichever loop start ℓ is selected,
// the prefix [ℓ, s) of states the cycle revisits forever (§4.9).
func (ctx *Context) always(s int, body laminar.Formula) *cnf.BooleanFormula {
	var tail []*cnf.BooleanFormula
	for t := s; t < ctx.L; t++ {
		tail = append(tail, ctx.EncodeFormula(t, body))
	}

	result := cnf.And(tail...)

	if !ctx.RequiresLoop {
		return result
	}

	var perLoop []*cnf.BooleanFormula
	for l := range ctx.Loop {
		var wrap []*cnf.BooleanFormula
		for t := l; t < s; t++ {
			wrap = append(wrap, ctx.EncodeFormula(t, body))
		}

		perLoop = append(perLoop, cnf.Implies(ctx.Loop[l], cnf.And(wrap...)))
	}

	return cnf.And(result, cnf.And(perLoop...))
}

// eventually(A)@s is always's dual: some state in the tail, or — depending
// on the selected loop start — some state in the revisited prefix.
func (ctx *Context) eventually(s int, body laminar.Formula) *cnf.BooleanFormula {
	var tail []*cnf.BooleanFormula
	for t := s; t < ctx.L; t++ {
		tail = append(tail, ctx.EncodeFormula(t, body))
	}

	result := cnf.Or(tail...)

	if !ctx.RequiresLoop {
		return result
	}

	var perLoop []*cnf.BooleanFormula
	for l := range ctx.Loop {
		var wrap []*cnf.BooleanFormula
		for t := l; t < s; t++ {
			wrap = append(wrap, ctx.EncodeFormula(t, body))
		}

		perLoop = append(perLoop, cnf.And(ctx.Loop[l], cnf.Or(wrap...)))
	}

	return cnf.Or(result, cnf.Or(perLoop...))
}

// chainFormula is the standard backward fold shared by until/since: given
// per-state values in evaluation order (earliest-relevant first is the
// LAST element), acc_i = b_i ∨ (a_i ∧ acc_{i+1}), acc_n = false.
func chainFormula(a, b []*cnf.BooleanFormula) *cnf.BooleanFormula {
	acc := cnf.False
	for i := len(a) - 1; i >= 0; i-- {
		acc = cnf.Or(b[i], cnf.And(a[i], acc))
	}

	return acc
}

// lapStates returns the bounded sequence of states `until`/`releases` must
// check from s onward: the non-wrapping tail, then — one lap further,
// enough to catch a periodic trace's every reachable state — the cycle
// [l, L) once more (§4.9).
func (ctx *Context) lapStates(s, l int) []int {
	states := make([]int, 0, (ctx.L-s)+(ctx.L-l))
	for t := s; t < ctx.L; t++ {
		states = append(states, t)
	}

	for t := l; t < ctx.L; t++ {
		states = append(states, t)
	}

	return states
}

func (ctx *Context) valuesAt(states []int, f laminar.Formula) []*cnf.BooleanFormula {
	vals := make([]*cnf.BooleanFormula, len(states))
	for i, t := range states {
		vals[i] = ctx.EncodeFormula(t, f)
	}

	return vals
}

func negateAll(vals []*cnf.BooleanFormula) []*cnf.BooleanFormula {
	out := make([]*cnf.BooleanFormula, len(vals))
	for i, v := range vals {
		out[i] = cnf.Not(v)
	}

	return out
}

// untilLike computes `A U B`'s bounded-lasso value, or, when negate is set,
// `¬A U ¬B` — the raw building block `releases` wraps in one more Not to
// get its LTL dual (`releases(A,B) = ¬(¬A U ¬B)`, §4.9). Without a loop it
// checks only the remaining finite trace; with one, it's disjoined over
// every possible loop start, each guarded by that start's selector and
// checked over one full lap.
func (ctx *Context) untilLike(s int, a, b laminar.Formula, negate bool) *cnf.BooleanFormula {
	vals := func(states []int, f laminar.Formula) []*cnf.BooleanFormula {
		v := ctx.valuesAt(states, f)
		if negate {
			return negateAll(v)
		}

		return v
	}

	if !ctx.RequiresLoop {
		states := ctx.lapStates(s, s)[:ctx.L-s]
		return chainFormula(vals(states, a), vals(states, b))
	}

	var disj []*cnf.BooleanFormula
	for l := range ctx.Loop {
		states := ctx.lapStates(s, l)
		chain := chainFormula(vals(states, a), vals(states, b))
		disj = append(disj, cnf.And(ctx.Loop[l], chain))
	}

	return cnf.Or(disj...)
}

// sinceLike is untilLike's backward-looking counterpart: since the past is
// always fully determined, no loop selector is needed, only the
// non-wrapping prefix [0, s] (§4.9).
func (ctx *Context) sinceLike(s int, a, b laminar.Formula, negate bool) *cnf.BooleanFormula {
	states := make([]int, s+1)
	for i := range states {
		states[i] = s - i
	}

	aVals := ctx.valuesAt(states, a)
	bVals := ctx.valuesAt(states, b)

	if negate {
		aVals = negateAll(aVals)
		bVals = negateAll(bVals)
	}

	return chainFormula(aVals, bVals)
}

// encodeTemporalBinary dispatches until/releases/since/triggered and the
// sequential `;` operator.
func (ctx *Context) encodeTemporalBinary(s int, n *laminar.TemporalBinaryFormula) *cnf.BooleanFormula {
	switch n.Op {
	case "until":
		return ctx.untilLike(s, n.Left, n.Right, false)

	case "releases":
		return cnf.Not(ctx.untilLike(s, n.Left, n.Right, true))

	case "since":
		return ctx.sinceLike(s, n.Left, n.Right, false)

	case "triggered":
		return cnf.Not(ctx.sinceLike(s, n.Left, n.Right, true))

	case ";":
		left := ctx.EncodeFormula(s, n.Left)
		right := ctx.atNextState(s, func(t int) *cnf.BooleanFormula { return ctx.EncodeFormula(t, n.Right) })

		return cnf.And(left, right)

	default:
		return cnf.True
	}
}
