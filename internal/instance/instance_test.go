package instance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	laminar "github.com/AlchemicalChef/MacAlloy-sub001"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/cnf"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/instance"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/sema"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/translate"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/universe"
)

// buildAndSolve runs the full front-end pipeline, asserts every fact in src,
// and brute-forces a satisfying assignment small models can afford.
func buildAndSolve(t *testing.T, src string, scope laminar.CommandScope, steps int) (*translate.Context, []bool) {
	t.Helper()

	mod, diags := laminar.Parse("t.lam", src)
	require.False(t, diags.HasErrors(), "parse errors: %v", diags)

	st, diags := sema.Analyze(mod)
	require.False(t, diags.HasErrors(), "sema errors: %v", diags)

	u, bounds := universe.Build(mod, st, scope, diags)
	require.False(t, diags.HasErrors(), "universe errors: %v", diags)

	b := cnf.NewBuilder()
	ctx := translate.NewContext(b, u, bounds, st, 4, steps)

	for _, f := range st.Facts {
		b.Assert(ctx.EncodeFormula(0, f.Body))
	}

	return ctx, solveFull(t, b)
}

func solveFull(t *testing.T, b *cnf.Builder) []bool {
	t.Helper()

	n := int(b.NumVars())
	require.LessOrEqual(t, n, 22, "model too large for brute force")

	for assignment := 0; assignment < (1 << uint(n)); assignment++ {
		if satisfiesAll(assignment, b.Clauses) {
			out := make([]bool, n)
			for v := 0; v < n; v++ {
				out[v] = assignment&(1<<uint(v)) != 0
			}

			return out
		}
	}

	t.Fatal("no satisfying assignment found")

	return nil
}

func satisfiesAll(assignment int, clauses []cnf.Clause) bool {
	litTrue := func(l cnf.Lit) bool {
		v := int(l.Var()) - 1
		val := assignment&(1<<uint(v)) != 0
		if l < 0 {
			return !val
		}

		return val
	}

	for _, cl := range clauses {
		ok := false
		for _, l := range cl {
			if litTrue(l) {
				ok = true

				break
			}
		}

		if !ok {
			return false
		}
	}

	return true
}

func TestExtract_SigExtentReflectsAssertedMembership(t *testing.T) {
	src := `
module t
sig Person {}
fact OneExists { some Person }
`
	ctx, assignment := buildAndSolve(t, src, laminar.CommandScope{HasDefault: true, Default: 2}, 1)

	inst := instance.Extract(ctx, assignment)

	require.Len(t, inst.States, 1)
	assert.NotEmpty(t, inst.States[0].Sigs["Person"])
	assert.Equal(t, -1, inst.LoopState, "a single-state command never requires a loop")
}

func TestExtract_FieldTuplesAreNonEmptyWhenAsserted(t *testing.T) {
	src := `
module t
sig Person { friend: set Person }
fact AllHaveAFriend { all p: Person | p.friend != none }
`
	ctx, assignment := buildAndSolve(t, src, laminar.CommandScope{HasDefault: true, Default: 2}, 1)

	inst := instance.Extract(ctx, assignment)

	assert.NotEmpty(t, inst.States[0].Fields["Person.friend"])
}

func TestExtract_MultiStateTraceSelectsExactlyOneLoopTarget(t *testing.T) {
	src := `
module t
sig Person {}
one sig Token { var holder: lone Person }
fact EventuallyEmpty { eventually (Token.holder = none) }
`
	ctx, assignment := buildAndSolve(t, src, laminar.CommandScope{HasDefault: true, Default: 2}, 3)

	inst := instance.Extract(ctx, assignment)

	require.Len(t, inst.States, 3)
	require.GreaterOrEqual(t, inst.LoopState, 0)
	assert.Less(t, inst.LoopState, 3)
}

func TestInstance_RenderIncludesExtents(t *testing.T) {
	src := `
module t
sig Person {}
fact OneExists { some Person }
`
	ctx, assignment := buildAndSolve(t, src, laminar.CommandScope{HasDefault: true, Default: 2}, 1)

	inst := instance.Extract(ctx, assignment)

	out := inst.Render(true)
	assert.Contains(t, out, "Person")
	assert.Contains(t, out, "state 0")
}
