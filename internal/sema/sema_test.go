package sema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	laminar "github.com/AlchemicalChef/MacAlloy-sub001"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/sema"
)

func analyze(t *testing.T, src string) (*sema.SymbolTable, *laminar.Diagnostics) {
	t.Helper()

	mod, parseDiags := laminar.Parse("test.las", src)
	require.False(t, parseDiags.HasErrors(), "unexpected parse errors: %v", parseDiags.All())

	return sema.Analyze(mod)
}

func codes(diags *laminar.Diagnostics) []string {
	var out []string
	for _, d := range diags.All() {
		out = append(out, d.Code)
	}

	return out
}

func TestAnalyze_SimpleSigHierarchy(t *testing.T) {
	t.Parallel()

	st, diags := analyze(t, `
module family

abstract sig Person {
	parent: set Person
}
sig Man, Woman extends Person {}
`)

	assert.False(t, diags.HasErrors())

	man, ok := st.Sig("Man")
	require.True(t, ok)
	require.NotNil(t, man.Parent)
	assert.Equal(t, "Person", man.Parent.Name)
}

func TestAnalyze_UndefinedExtends(t *testing.T) {
	t.Parallel()

	_, diags := analyze(t, `
module m

sig A extends Ghost {}
`)

	assert.Contains(t, codes(diags), laminar.CodeUndefinedSignature)
}

func TestAnalyze_CyclicInheritance(t *testing.T) {
	t.Parallel()

	_, diags := analyze(t, `
module m

sig A extends B {}
sig B extends A {}
`)

	assert.Contains(t, codes(diags), laminar.CodeCyclicInheritance)
}

func TestAnalyze_DuplicateSignature(t *testing.T) {
	t.Parallel()

	_, diags := analyze(t, `
module m

sig A {}
sig A {}
`)

	assert.Contains(t, codes(diags), laminar.CodeDuplicateDefn)
}

func TestAnalyze_FieldJoinArity(t *testing.T) {
	t.Parallel()

	_, diags := analyze(t, `
module m

sig Person {
	friends: set Person
}

fact {
	all p: Person | p.friends.friends != p
}
`)

	assert.False(t, diags.HasErrors())
}

func TestAnalyze_UnionArityMismatch(t *testing.T) {
	t.Parallel()

	_, diags := analyze(t, `
module m

sig Person {
	friends: set Person,
	boss: set Person
} {
	some (friends.boss + @boss)
}
`)

	assert.Contains(t, codes(diags), laminar.CodeInvalidUnion)
}

func TestAnalyze_UndefinedPredicateCall(t *testing.T) {
	t.Parallel()

	_, diags := analyze(t, `
module m

sig A {}

run Ghost
`)

	assert.Contains(t, codes(diags), laminar.CodeUndefinedPredicate)
}

func TestAnalyze_PredicateArgCountMismatch(t *testing.T) {
	t.Parallel()

	_, diags := analyze(t, `
module m

sig A {}

pred p[x: A] { some x }

fact {
	p[]
}
`)

	assert.Contains(t, codes(diags), laminar.CodeArgCountMismatch)
}

func TestAnalyze_PrimeOnNonVarField(t *testing.T) {
	t.Parallel()

	_, diags := analyze(t, `
module m

sig Counter {
	value: set Counter
}

fact {
	all c: Counter | c.value' = c.value
}
`)

	assert.Contains(t, codes(diags), laminar.CodePrimedNonVariable)
}

func TestAnalyze_PrimeOnVarField(t *testing.T) {
	t.Parallel()

	_, diags := analyze(t, `
module m

sig Counter {
	var value: set Counter
}

fact {
	all c: Counter | c.value' = c.value
}
`)

	assert.NotContains(t, codes(diags), laminar.CodePrimedNonVariable)
}

func TestAnalyze_TemporalCommandRequiresSteps(t *testing.T) {
	t.Parallel()

	_, diags := analyze(t, `
module m

sig A { var x: set A }

pred Stutter[a: A] {
	always (some a.x)
}

run Stutter for 3
`)

	assert.Contains(t, codes(diags), laminar.CodeMissingSteps)
}

func TestAnalyze_EnumValuesAreSingletonSigs(t *testing.T) {
	t.Parallel()

	st, diags := analyze(t, `
module m

enum Color { Red, Green, Blue }
`)

	assert.False(t, diags.HasErrors())

	red, ok := st.Sig("Red")
	require.True(t, ok)
	assert.Equal(t, laminar.MultOne, red.Mult)
	assert.Equal(t, "Color", red.Parent.Name)
}
