// Package translate turns a checked module's expressions and formulas into
// BooleanMatrix/BitVector terms and, ultimately, BooleanFormula trees ready
// for cnf.Builder.Assert — the expression encoder (§4.7), the formula
// encoder (§4.8), and the bounded-lasso temporal encoder (§4.9).
package translate

import (
	laminar "github.com/AlchemicalChef/MacAlloy-sub001"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/cnf"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/kernel"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/sema"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/universe"
)

// binding is one name's value in the lexical scope chain: its static type
// (needed to disambiguate bare field references and priming the way
// sema's type-checker does) and the matrix it currently denotes.
type binding struct {
	Type   laminar.Type
	Matrix *kernel.BooleanMatrix
}

// bindScope is one link in the translator's lexical scope chain, the
// evaluation-time twin of sema.Scope: quantifier/comprehension/let
// variables and predicate/function parameters are bound here, and Owner
// tracks the nearest enclosing signature-fact/predicate/function receiver
// for bare-field auto-expansion and `this`.
type bindScope struct {
	parent *bindScope
	owner  *laminar.SigInfo
	vars   map[string]binding
}

func (s *bindScope) lookup(name string) (binding, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.vars[name]; ok {
			return v, true
		}
	}

	return binding{}, false
}

func (s *bindScope) owningSig() *laminar.SigInfo {
	for sc := s; sc != nil; sc = sc.parent {
		if sc.owner != nil {
			return sc.owner
		}
	}

	return nil
}

// Context carries every piece of state the encoders thread through a
// translation: the CNF builder, the fixed universe and bounds, the
// resolved symbol table, per-signature/per-field matrices (one snapshot
// for rigid relations, L snapshots for `var` ones), the bounded-lasso
// trace length and loop selector, and the current lexical scope.
type Context struct {
	B        *cnf.Builder
	U        *universe.Universe
	Bounds   *universe.Bounds
	St       *sema.SymbolTable
	BitWidth int

	// L is the trace length: 1 for a non-temporal command, `but N steps`
	// otherwise. Loop holds L one-hot loop-start selector variables and is
	// nil unless RequiresLoop.
	L            int
	Loop         []*cnf.BooleanFormula
	RequiresLoop bool

	sigMatrices   map[*laminar.SigInfo][]*kernel.BooleanMatrix
	fieldMatrices map[*laminar.FieldInfo][]*kernel.BooleanMatrix

	moduleScope *bindScope
	cur         *bindScope
}

// NewContext allocates every signature's and field's matrix array (§4.5's
// "array of L matrices" for `var` relations, a single shared matrix for
// rigid ones) and, if steps > 1, the one-hot loop selector.
func NewContext(b *cnf.Builder, u *universe.Universe, bounds *universe.Bounds, st *sema.SymbolTable, bitWidth, steps int) *Context {
	if steps < 1 {
		steps = 1
	}

	ctx := &Context{
		B:             b,
		U:             u,
		Bounds:        bounds,
		St:            st,
		BitWidth:      bitWidth,
		L:             steps,
		RequiresLoop:  steps > 1,
		sigMatrices:   make(map[*laminar.SigInfo][]*kernel.BooleanMatrix),
		fieldMatrices: make(map[*laminar.FieldInfo][]*kernel.BooleanMatrix),
	}

	ctx.moduleScope = &bindScope{vars: make(map[string]binding)}
	ctx.cur = ctx.moduleScope

	for _, sig := range st.Sigs {
		rb, ok := bounds.Sigs[sig]
		if !ok {
			continue
		}

		n := 1
		if sig.Var {
			n = steps
		}

		mats := make([]*kernel.BooleanMatrix, n)
		for i := range mats {
			mats[i] = kernel.FromBounds(b, u.Size(), rb)
		}

		ctx.sigMatrices[sig] = mats
	}

	for _, sig := range st.Sigs {
		for _, fi := range sig.Fields {
			if _, done := ctx.fieldMatrices[fi]; done {
				continue
			}

			rb, ok := bounds.Fields[fi]
			if !ok {
				continue
			}

			n := 1
			if fi.Var {
				n = steps
			}

			mats := make([]*kernel.BooleanMatrix, n)
			for i := range mats {
				mats[i] = kernel.FromBounds(b, u.Size(), rb)
			}

			ctx.fieldMatrices[fi] = mats
		}
	}

	if ctx.RequiresLoop {
		ctx.Loop = make([]*cnf.BooleanFormula, steps)
		for i := range ctx.Loop {
			ctx.Loop[i] = cnf.FromLit(b.NewVar())
		}

		b.Assert(exactlyOne(ctx.Loop))
	}

	return ctx
}

func exactlyOne(fs []*cnf.BooleanFormula) *cnf.BooleanFormula {
	return cnf.And(cnf.Or(fs...), kernel.AtMostOne(fs))
}

// SigMatrix returns sig's matrix at state s: the shared rigid matrix if
// sig isn't `var`, else that state's own snapshot.
func (ctx *Context) SigMatrix(sig *laminar.SigInfo, s int) *kernel.BooleanMatrix {
	mats := ctx.sigMatrices[sig]
	if len(mats) == 0 {
		return kernel.NewMatrix(1, ctx.U.Size())
	}

	if len(mats) == 1 {
		return mats[0]
	}

	return mats[s]
}

// FieldMatrix is SigMatrix's field-level counterpart.
func (ctx *Context) FieldMatrix(fi *laminar.FieldInfo, s int) *kernel.BooleanMatrix {
	mats := ctx.fieldMatrices[fi]
	if len(mats) == 0 {
		arity := fi.Type.Arity()
		if arity < 1 {
			arity = 1
		}

		return kernel.NewMatrix(arity, ctx.U.Size())
	}

	if len(mats) == 1 {
		return mats[0]
	}

	return mats[s]
}

// nextMatrix resolves e'(s): the next index's snapshot, or — at the final
// state — the loop-selected snapshot (§4.9).
func (ctx *Context) nextMatrix(mats []*kernel.BooleanMatrix, s int) *kernel.BooleanMatrix {
	if len(mats) <= 1 {
		return mats[0]
	}

	if s < ctx.L-1 {
		return mats[s+1]
	}

	return ctx.muxByLoop(mats)
}

// muxByLoop builds OR_ℓ(loop[ℓ] ∧ mats[ℓ][tuple]) cell-wise.
func (ctx *Context) muxByLoop(mats []*kernel.BooleanMatrix) *kernel.BooleanMatrix {
	arity, u := mats[0].Arity, mats[0].U
	out := kernel.NewMatrix(arity, u)

	for i := 0; i < out.Len(); i++ {
		tuple := tupleOf(i, arity, u)

		var disj []*cnf.BooleanFormula
		for l, m := range mats {
			disj = append(disj, cnf.And(ctx.Loop[l], m.At(tuple)))
		}

		out.Set(tuple, normalizeCell(ctx.B, cnf.Or(disj...)))
	}

	return out
}

func tupleOf(idx, arity, u int) []int32 {
	t := make([]int32, arity)
	for i := arity - 1; i >= 0; i-- {
		t[i] = int32(idx % u)
		idx /= u
	}

	return t
}

// normalizeCell mirrors kernel's own leaf-normalization discipline:
// constants pass through, anything else gets Tseitin-encoded once.
func normalizeCell(b *cnf.Builder, f *cnf.BooleanFormula) *cnf.BooleanFormula {
	if f.Kind == cnf.KConst {
		return f
	}

	return cnf.FromLit(b.Encode(f))
}

// pushLexical nests a new scope (let/quantifier/comprehension bindings)
// under the current one, preserving the owner chain.
func (ctx *Context) pushLexical(vars map[string]binding) *bindScope {
	prev := ctx.cur
	ctx.cur = &bindScope{parent: prev, vars: vars}

	return prev
}

// pushCall starts a predicate/function/signature-fact body's scope rooted
// at the module scope (never the caller's lexical scope), binding `this`
// to receiver when present, mirroring sema's paramScope.
func (ctx *Context) pushCall(owner *laminar.SigInfo, vars map[string]binding) *bindScope {
	prev := ctx.cur
	ctx.cur = &bindScope{parent: ctx.moduleScope, owner: owner, vars: vars}

	return prev
}

func (ctx *Context) pop(prev *bindScope) { ctx.cur = prev }

// EncodeSigFact encodes one formula from owner's own appended fact block
// at state s, binding `this` to owner's matrix so bare field references
// auto-expand to `this.field` the same way sema's checkBodies scope does.
func (ctx *Context) EncodeSigFact(s int, owner *laminar.SigInfo, body laminar.Formula) *cnf.BooleanFormula {
	vars := map[string]binding{
		laminar.BuiltinThis: {Type: laminar.TypeSig(owner), Matrix: ctx.SigMatrix(owner, s)},
	}

	prev := ctx.pushCall(owner, vars)
	result := ctx.EncodeFormula(s, body)
	ctx.pop(prev)

	return result
}

func findField(owner *laminar.SigInfo, name string) *laminar.FieldInfo {
	for s := owner; s != nil; s = s.Parent {
		for _, fi := range s.Fields {
			if fi.Name == name {
				return fi
			}
		}
	}

	return nil
}
