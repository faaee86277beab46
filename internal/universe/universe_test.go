package universe_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	laminar "github.com/AlchemicalChef/MacAlloy-sub001"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/sema"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/universe"
)

func analyze(t *testing.T, src string) (*laminar.Module, *sema.SymbolTable) {
	t.Helper()

	mod, diags := laminar.Parse("test.las", src)
	require.False(t, diags.HasErrors(), "parse errors: %v", diags.All())

	st, semaDiags := sema.Analyze(mod)
	require.False(t, semaDiags.HasErrors(), "sema errors: %v", semaDiags.All())

	return mod, st
}

func TestBuild_ConcreteSigGetsDefaultScopeAtoms(t *testing.T) {
	t.Parallel()

	mod, st := analyze(t, `sig Person {}`)

	diags := &laminar.Diagnostics{}
	u, bounds := universe.Build(mod, st, laminar.CommandScope{}, diags)

	person := st.Sigs["Person"]
	assert.Len(t, u.AtomsOf(person), 3)
	assert.Len(t, bounds.Sigs[person].Lower.Tuples(), 3)
	assert.Equal(t, bounds.Sigs[person].Lower.Tuples(), bounds.Sigs[person].Upper.Tuples())
}

func TestBuild_OneMultiplicityPinsSingleAtom(t *testing.T) {
	t.Parallel()

	mod, st := analyze(t, `one sig Singleton {}`)

	diags := &laminar.Diagnostics{}
	u, _ := universe.Build(mod, st, laminar.CommandScope{HasDefault: true, Default: 5}, diags)

	assert.Len(t, u.AtomsOf(st.Sigs["Singleton"]), 1)
}

func TestBuild_PerSigScopeOverridesDefault(t *testing.T) {
	t.Parallel()

	mod, st := analyze(t, `sig Person {}`)

	diags := &laminar.Diagnostics{}
	scope := laminar.CommandScope{
		HasDefault: true,
		Default:    3,
		PerSig:     []laminar.PerSigScope{{Sig: "Person", Count: 7}},
	}

	u, _ := universe.Build(mod, st, scope, diags)

	assert.Len(t, u.AtomsOf(st.Sigs["Person"]), 7)
}

func TestBuild_AbstractSigIsUnionOfChildren(t *testing.T) {
	t.Parallel()

	mod, st := analyze(t, `
		abstract sig Animal {}
		sig Dog extends Animal {}
		sig Cat extends Animal {}
	`)

	diags := &laminar.Diagnostics{}
	scope := laminar.CommandScope{HasDefault: true, Default: 2}

	u, _ := universe.Build(mod, st, scope, diags)

	animal := st.Sigs["Animal"]
	dog := st.Sigs["Dog"]
	cat := st.Sigs["Cat"]

	assert.Len(t, u.AtomsOf(animal), 4)
	assert.Len(t, u.AtomsOf(dog), 2)
	assert.Len(t, u.AtomsOf(cat), 2)
}

func TestBuild_EnumValuesAreSingletons(t *testing.T) {
	t.Parallel()

	mod, st := analyze(t, `enum Color { Red, Green, Blue }`)

	diags := &laminar.Diagnostics{}
	u, _ := universe.Build(mod, st, laminar.CommandScope{HasDefault: true, Default: 5}, diags)

	color := st.Sigs["Color"]
	assert.Len(t, u.AtomsOf(color), 3)
	assert.Len(t, u.AtomsOf(st.Sigs["Red"]), 1)
}

func TestBuild_FieldUpperBoundIsCartesianProduct(t *testing.T) {
	t.Parallel()

	mod, st := analyze(t, `sig Person { friends: set Person }`)

	diags := &laminar.Diagnostics{}
	scope := laminar.CommandScope{HasDefault: true, Default: 3}

	_, bounds := universe.Build(mod, st, scope, diags)

	person := st.Sigs["Person"]
	fi := person.Fields[0]

	rb := bounds.Fields[fi]
	assert.Equal(t, 2, rb.Arity)
	assert.Len(t, rb.Upper.Tuples(), 9)
	assert.Equal(t, 0, rb.Lower.Len())
}

func TestBuild_NoIntegerAtomsWithoutIntReference(t *testing.T) {
	t.Parallel()

	mod, st := analyze(t, `sig Person {}`)

	diags := &laminar.Diagnostics{}
	u, _ := universe.Build(mod, st, laminar.CommandScope{}, diags)

	assert.Nil(t, u.Ints)
}

func TestBuild_IntegerAtomsAllocatedOnReference(t *testing.T) {
	t.Parallel()

	mod, st := analyze(t, `sig Person { age: one Int }`)

	diags := &laminar.Diagnostics{}
	u, _ := universe.Build(mod, st, laminar.CommandScope{HasIntBits: true, IntBits: 3}, diags)

	require.NotNil(t, u.Ints)
	assert.Equal(t, 3, u.Ints.BitWidth)
	assert.Len(t, u.IntAtoms(), 8)
	assert.Equal(t, int64(-4), u.Ints.Min())
	assert.Equal(t, int64(3), u.Ints.Max())
}
