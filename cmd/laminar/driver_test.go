package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDriver() *Driver {
	return NewDriver(zap.NewNop(), true)
}

func writeModule(t *testing.T, src string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "t.lam")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	return path
}

func TestDriver_AnalyzeReportsNoErrorsForAValidModule(t *testing.T) {
	path := writeModule(t, `
module t
sig Person {}
fact SomePerson { some Person }
`)

	diags, err := newTestDriver().Analyze(path)
	require.NoError(t, err)
	assert.False(t, diags.HasErrors())
}

func TestDriver_AnalyzeReportsUndefinedName(t *testing.T) {
	path := writeModule(t, `
module t
sig Person {}
fact Bogus { some Ghost }
`)

	diags, err := newTestDriver().Analyze(path)
	require.NoError(t, err)
	assert.True(t, diags.HasErrors())
}

func TestDriver_ExecuteRunFindsASatisfyingInstance(t *testing.T) {
	path := writeModule(t, `
module t
sig Person {}
run { some Person }
`)

	code, output, err := newTestDriver().Execute(path, CommandRequest{})
	require.NoError(t, err)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, output, "Person")
}

func TestDriver_ExecuteRunReportsUnsatForAnImpossibleCommand(t *testing.T) {
	path := writeModule(t, `
module t
sig Person {}
run { no Person and some Person }
`)

	code, _, err := newTestDriver().Execute(path, CommandRequest{Scope: 2, HasScope: true})
	require.NoError(t, err)
	assert.Equal(t, exitUnsat, code)
}

func TestDriver_ExecuteCheckNegatesTheAssertion(t *testing.T) {
	path := writeModule(t, `
module t
sig Person {}
fact AtLeastOne { some Person }
assert AlwaysSome { some Person }
check AlwaysSome
`)

	code, output, err := newTestDriver().Execute(path, CommandRequest{Check: true, Scope: 2, HasScope: true})
	require.NoError(t, err)
	assert.Equal(t, exitUnsat, code, "the assertion holds so no counterexample exists")
	assert.Contains(t, output, "holds")
}

func TestDriver_ExecuteCheckFindsACounterexampleForAFalseAssertion(t *testing.T) {
	path := writeModule(t, `
module t
sig Person {}
assert NoPeopleEver { no Person }
check NoPeopleEver
`)

	code, output, err := newTestDriver().Execute(path, CommandRequest{Check: true, Scope: 2, HasScope: true})
	require.NoError(t, err)
	assert.Equal(t, exitOK, code, "a scope with atoms always lets some Person exist, refuting the assertion")
	assert.Contains(t, output, "Person")
}

func TestDriver_ExecuteDIMACSDumpsCNFInsteadOfSolving(t *testing.T) {
	path := writeModule(t, `
module t
sig Person {}
run { some Person }
`)

	code, output, err := newTestDriver().Execute(path, CommandRequest{DIMACS: true})
	require.NoError(t, err)
	assert.Equal(t, exitOK, code)
	assert.True(t, strings.HasPrefix(output, "p cnf "))
}

func TestDriver_ExecuteHonorsNamedCommand(t *testing.T) {
	path := writeModule(t, `
module t
sig Person {}
run First: { some Person }
run Second: { no Person }
`)

	code, _, err := newTestDriver().Execute(path, CommandRequest{Name: "Second", Scope: 2, HasScope: true})
	require.NoError(t, err)
	assert.Equal(t, exitUnsat, code)
}

func TestDriver_ExecuteRejectsUnknownCommandName(t *testing.T) {
	path := writeModule(t, `
module t
sig Person {}
run First: { some Person }
`)

	_, _, err := newTestDriver().Execute(path, CommandRequest{Name: "Nope"})
	require.Error(t, err)
}
