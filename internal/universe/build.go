package universe

import (
	laminar "github.com/AlchemicalChef/MacAlloy-sub001"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/sema"
)

// defaultScope is the atom count used when a command gives neither a
// per-signature nor a default scope (the language's usual "scope 3").
const defaultScope = 3

// defaultBitWidth is the integer bit width used absent an explicit
// `for ... but N int` annotation (§4.6).
const defaultBitWidth = 4

// Build allocates the universe and the lower/upper bounds of every
// signature and field, for one command's scope annotation (§4.4).
func Build(mod *laminar.Module, st *sema.SymbolTable, scope laminar.CommandScope, diags *laminar.Diagnostics) (*Universe, *Bounds) {
	b := &builder{
		mod:   mod,
		st:    st,
		scope: scope,
		diags: diags,
		own:   make(map[*laminar.SigInfo][]*Atom),
		bySig: make(map[*laminar.SigInfo][]*Atom),
	}

	b.allocateSigAtoms()
	b.computeUnions()
	b.allocateIntegers()

	u := &Universe{Atoms: b.atoms, bySig: b.bySig, Ints: b.ints}

	bounds := newBounds()
	b.buildSigBounds(u, bounds)
	b.buildFieldBounds(u, bounds)

	return u, bounds
}

type builder struct {
	mod   *laminar.Module
	st    *sema.SymbolTable
	scope laminar.CommandScope
	diags *laminar.Diagnostics

	atoms []*Atom
	own   map[*laminar.SigInfo][]*Atom // atoms allocated directly to this sig
	bySig map[*laminar.SigInfo][]*Atom // own + descendants, post-union
	ints  *IntegerFactory
}

func (b *builder) alloc(name string, sig *laminar.SigInfo) *Atom {
	a := newAtom(name, int32(len(b.atoms)), sig)
	b.atoms = append(b.atoms, a)

	return a
}

// perSigCount looks up a `but N Sig` / `but exactly N Sig` override.
func (b *builder) perSigCount(name string) (count int, exactly, ok bool) {
	for _, ps := range b.scope.PerSig {
		if ps.Sig == name {
			return ps.Count, ps.Exactly, true
		}
	}

	return 0, false, false
}

// resolveCount applies §4.4's scope/multiplicity arithmetic for one
// concrete signature.
func (b *builder) resolveCount(info *laminar.SigInfo) int {
	n := defaultScope
	if b.scope.HasDefault {
		n = b.scope.Default
	}

	exactly := false
	if count, ex, ok := b.perSigCount(info.Name); ok {
		n = count
		exactly = ex
	}

	if exactly {
		return n
	}

	switch info.Mult {
	case laminar.MultOne:
		n = 1
	case laminar.MultLone:
		if n > 1 {
			n = 1
		}
	case laminar.MultSome:
		if n < 1 {
			n = 1
		}
	}

	return n
}

// topoOrder visits each declared signature after its extends-parent and
// in-parents, per §4.4's "parents before children" allocation order.
func (b *builder) topoOrder() []*laminar.SigInfo {
	visited := make(map[*laminar.SigInfo]bool, len(b.st.SigOrder))
	order := make([]*laminar.SigInfo, 0, len(b.st.SigOrder))

	var visit func(info *laminar.SigInfo)
	visit = func(info *laminar.SigInfo) {
		if info == nil || visited[info] {
			return
		}

		visited[info] = true
		visit(info.Parent)

		for _, p := range info.SubsetOf {
			visit(p)
		}

		order = append(order, info)
	}

	for _, name := range b.st.SigOrder {
		visit(b.st.Sigs[name])
	}

	return order
}

// allocateSigAtoms allocates fresh atoms for every concrete signature
// (non-abstract; this includes enum values, whose "one" multiplicity
// pins their count at 1 regardless of scope).
func (b *builder) allocateSigAtoms() {
	for _, info := range b.topoOrder() {
		if info.Abstract {
			continue
		}

		n := b.resolveCount(info)

		atoms := make([]*Atom, 0, n)
		for i := 0; i < n; i++ {
			atoms = append(atoms, b.alloc(sigAtomName(info.Name, i), info))
		}

		b.own[info] = atoms
	}
}

// computeUnions folds each signature's own atoms together with every
// descendant's, so abstract and non-leaf signatures carry the union their
// semantics require (§4.4).
func (b *builder) computeUnions() {
	var collect func(info *laminar.SigInfo) []*Atom
	memo := make(map[*laminar.SigInfo][]*Atom)

	collect = func(info *laminar.SigInfo) []*Atom {
		if atoms, ok := memo[info]; ok {
			return atoms
		}

		atoms := append([]*Atom{}, b.own[info]...)
		for _, child := range info.Children {
			atoms = append(atoms, collect(child)...)
		}

		memo[info] = atoms

		return atoms
	}

	for _, name := range b.st.SigOrder {
		info := b.st.Sigs[name]
		b.bySig[info] = collect(info)
	}
}

// allocateIntegers appends 2^bitwidth integer atoms if the model ever
// references integers, recording the bit width used.
func (b *builder) allocateIntegers() {
	if !referencesIntegers(b.mod) {
		return
	}

	bw := defaultBitWidth
	if b.scope.HasIntBits {
		bw = b.scope.IntBits
	}

	factory := newIntegerFactory(bw)

	lo, hi := factory.Min(), factory.Max()
	for v := lo; v <= hi; v++ {
		a := b.alloc(intAtomName(v), nil)
		a.IsInt = true
		a.Value = v
		factory.register(a)
	}

	b.ints = factory
}

func (b *builder) buildSigBounds(u *Universe, bounds *Bounds) {
	for _, name := range b.st.SigOrder {
		info := b.st.Sigs[name]

		tuples := make([]Tuple, 0, len(u.AtomsOf(info)))
		for _, a := range u.AtomsOf(info) {
			tuples = append(tuples, Tuple{a.Index})
		}

		bounds.Sigs[info] = exactBounds(1, tuples)
	}
}

// buildFieldBounds gives every field `f: T` of signature `S` the upper
// bound {(s, t1, ..., tk) : s in atoms(S), ti in atoms(Ti)} and an empty
// lower bound (§4.4). Ti is read off the field's resolved column types;
// an Int-typed or otherwise non-sig column ranges over every atom of the
// relevant universe slice (integers, or univ as a fallback).
func (b *builder) buildFieldBounds(u *Universe, bounds *Bounds) {
	for _, name := range b.st.SigOrder {
		owner := b.st.Sigs[name]
		for _, fi := range owner.Fields {
			if _, done := bounds.Fields[fi]; done {
				continue
			}

			cols := fieldColumnAtoms(u, fi)
			upper := NewTupleSet(len(cols) + 1)
			cartesian(u.AtomsOf(owner), cols, func(t Tuple) { upper.Add(t) })

			bounds.Fields[fi] = &RelationBounds{
				Arity: len(cols) + 1,
				Lower: NewTupleSet(len(cols) + 1),
				Upper: upper,
			}
		}
	}
}

// fieldColumnAtoms returns, for each non-owner column of a field's type,
// the atom slice that column ranges over.
func fieldColumnAtoms(u *Universe, fi *laminar.FieldInfo) [][]*Atom {
	t := fi.Type
	if t.Kind != laminar.KindRelation {
		return nil
	}

	cols := make([][]*Atom, 0, len(t.Cols)-1)
	for _, c := range t.Cols[1:] {
		cols = append(cols, columnAtoms(u, c))
	}

	return cols
}

func columnAtoms(u *Universe, t laminar.Type) []*Atom {
	switch t.Kind {
	case laminar.KindSig:
		return u.AtomsOf(t.Sig)
	case laminar.KindInt:
		return u.IntAtoms()
	default:
		return u.Atoms
	}
}

// cartesian calls emit for every tuple (owner, c1, ..., cn) built from
// owners x cols[0] x ... x cols[n-1], owner's index first.
func cartesian(owners []*Atom, cols [][]*Atom, emit func(Tuple)) {
	for _, o := range owners {
		rest := []int32{o.Index}
		cartesianCols(cols, rest, emit)
	}
}

func cartesianCols(cols [][]*Atom, prefix []int32, emit func(Tuple)) {
	if len(cols) == 0 {
		t := make(Tuple, len(prefix))
		copy(t, prefix)
		emit(t)

		return
	}

	for _, a := range cols[0] {
		next := make([]int32, len(prefix), len(prefix)+1)
		copy(next, prefix)
		next = append(next, a.Index)
		cartesianCols(cols[1:], next, emit)
	}
}
