package translate_test

import (
	"testing"

	laminar "github.com/AlchemicalChef/MacAlloy-sub001"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/cnf"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/sema"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/translate"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/universe"
)

// buildPipeline runs the real front-end (parse, analyze, build universe)
// over src and returns a fresh translate.Context ready to encode src's
// facts/commands, mirroring how the driver assembles these pieces.
func buildPipeline(t *testing.T, src string, scope laminar.CommandScope) (*cnf.Builder, *translate.Context, *sema.SymbolTable) {
	t.Helper()

	mod, diags := laminar.Parse("t.lam", src)
	if diags.HasErrors() {
		t.Fatalf("parse errors: %v", diags)
	}

	st, diags := sema.Analyze(mod)
	if diags.HasErrors() {
		t.Fatalf("sema errors: %v", diags)
	}

	u, bounds := universe.Build(mod, st, scope, diags)
	if diags.HasErrors() {
		t.Fatalf("universe errors: %v", diags)
	}

	b := cnf.NewBuilder()
	ctx := translate.NewContext(b, u, bounds, st, 4, 1)

	return b, ctx, st
}

// solveAny brute-forces every assignment to b's variables and reports
// whether any satisfies every clause — a brute-force oracle good enough
// for the tiny models these tests use, mirroring internal/kernel's own
// test-time oracle.
func solveAny(b *cnf.Builder) bool {
	n := int(b.NumVars())
	if n > 22 {
		panic("solveAny: model too large for brute force")
	}

	for assignment := 0; assignment < (1 << uint(n)); assignment++ {
		if satisfies(assignment, b.Clauses) {
			return true
		}
	}

	return false
}

func satisfies(assignment int, clauses []cnf.Clause) bool {
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

func factBody(t *testing.T, st *sema.SymbolTable, name string) laminar.Formula {
	t.Helper()

	for _, f := range st.Facts {
		if f.Name == name {
			return f.Body
		}
	}

	t.Fatalf("no fact named %q", name)

	return nil
}

func TestEncodeFormula_SigMembershipIsFixed(t *testing.T) {
	src := `
module t
sig Person {}
fact OneExists { some Person }
`
	b, ctx, st := buildPipeline(t, src, laminar.CommandScope{HasDefault: true, Default: 2})

	b.Assert(ctx.EncodeFormula(0, factBody(t, st, "OneExists")))

	if !solveAny(b) {
		t.Fatal("expected `some Person` to be satisfiable with scope 2")
	}
}

func TestEncodeFormula_QuantifierTautology(t *testing.T) {
	src := `
module t
sig Person {}
fact SelfMember { all p: Person | p in Person }
`
	b, ctx, st := buildPipeline(t, src, laminar.CommandScope{HasDefault: true, Default: 2})

	body := factBody(t, st, "SelfMember")
	b.Assert(ctx.EncodeFormula(0, body))
	b.Assert(cnf.Not(ctx.EncodeFormula(0, body)))

	if solveAny(b) {
		t.Fatal("asserting a tautology and its negation together should be UNSAT")
	}
}

func TestEncodeFormula_JoinOverField(t *testing.T) {
	src := `
module t
sig Person { friend: set Person }
fact AllHaveAFriend { all p: Person | p.friend != none }
fact NoFriendsAtAll { Person.friend = none }
`
	b, ctx, st := buildPipeline(t, src, laminar.CommandScope{HasDefault: true, Default: 2})

	b.Assert(ctx.EncodeFormula(0, factBody(t, st, "AllHaveAFriend")))

	if !solveAny(b) {
		t.Fatal("`all p: Person | p.friend != none` should be satisfiable (e.g. self-loops)")
	}

	b.Assert(ctx.EncodeFormula(0, factBody(t, st, "NoFriendsAtAll")))

	if solveAny(b) {
		t.Fatal("every person having a friend contradicts the friend relation being wholly empty")
	}
}

func TestEncodeExpr_BuiltinIntCall(t *testing.T) {
	src := `
module t
fact ProductIsSix { mul[2, 3] = 6 }
`
	b, ctx, st := buildPipeline(t, src, laminar.CommandScope{HasDefault: true, Default: 2})

	b.Assert(ctx.EncodeFormula(0, factBody(t, st, "ProductIsSix")))

	if !solveAny(b) {
		t.Fatal("mul[2,3] = 6 should be satisfiable")
	}
}

func TestEncodeExpr_BuiltinIntCallRejectsWrongProduct(t *testing.T) {
	src := `
module t
fact ProductIsSix { mul[2, 3] = 6 }
fact ProductIsAlsoFive { mul[2, 3] = 5 }
`
	b, ctx, st := buildPipeline(t, src, laminar.CommandScope{HasDefault: true, Default: 2})

	b.Assert(ctx.EncodeFormula(0, factBody(t, st, "ProductIsSix")))
	b.Assert(ctx.EncodeFormula(0, factBody(t, st, "ProductIsAlsoFive")))

	if solveAny(b) {
		t.Fatal("mul[2,3] cannot simultaneously equal 6 and 5")
	}
}

// buildPipelineSteps is buildPipeline for tests that need a trace longer
// than one state (temporal operators, `var` fields).
func buildPipelineSteps(t *testing.T, src string, scope laminar.CommandScope, steps int) (*cnf.Builder, *translate.Context, *sema.SymbolTable) {
	t.Helper()

	mod, diags := laminar.Parse("t.lam", src)
	if diags.HasErrors() {
		t.Fatalf("parse errors: %v", diags)
	}

	st, diags := sema.Analyze(mod)
	if diags.HasErrors() {
		t.Fatalf("sema errors: %v", diags)
	}

	u, bounds := universe.Build(mod, st, scope, diags)
	if diags.HasErrors() {
		t.Fatalf("universe errors: %v", diags)
	}

	b := cnf.NewBuilder()
	ctx := translate.NewContext(b, u, bounds, st, 4, steps)

	return b, ctx, st
}

func TestEncodeTemporal_AfterFollowsTheNextSnapshot(t *testing.T) {
	src := `
module t
sig Person {}
one sig Token { var holder: lone Person }
fact HolderNeverChanges { always (Token.holder = Token.holder') }
`
	b, ctx, st := buildPipelineSteps(t, src, laminar.CommandScope{HasDefault: true, Default: 2}, 3)

	body := factBody(t, st, "HolderNeverChanges")
	b.Assert(ctx.EncodeFormula(0, body))

	if !solveAny(b) {
		t.Fatal("a trace where Token.holder never changes should be satisfiable")
	}
}

func TestEncodeTemporal_EventuallyIsSatisfiedByAFutureState(t *testing.T) {
	src := `
module t
sig Person {}
one sig Token { var holder: lone Person }
fact EventuallyEmpty { eventually (Token.holder = none) }
`
	b, ctx, st := buildPipelineSteps(t, src, laminar.CommandScope{HasDefault: true, Default: 2}, 3)

	b.Assert(ctx.EncodeFormula(0, factBody(t, st, "EventuallyEmpty")))

	if !solveAny(b) {
		t.Fatal("`eventually Token.holder = none` should be satisfiable over a 3-state trace")
	}
}

func TestEncodeTemporal_AlwaysContradictsEventuallyNot(t *testing.T) {
	src := `
module t
sig Person {}
one sig Token { var holder: lone Person }
fact AlwaysEmpty { always (Token.holder = none) }
fact EventuallyNonEmpty { eventually (Token.holder != none) }
`
	b, ctx, st := buildPipelineSteps(t, src, laminar.CommandScope{HasDefault: true, Default: 2}, 3)

	b.Assert(ctx.EncodeFormula(0, factBody(t, st, "AlwaysEmpty")))
	b.Assert(ctx.EncodeFormula(0, factBody(t, st, "EventuallyNonEmpty")))

	if solveAny(b) {
		t.Fatal("Token.holder can't be always empty and eventually non-empty at once")
	}
}

func TestEncodeFormula_PredicateCallInlines(t *testing.T) {
	src := `
module t
sig Person {}
pred hasSome() { some Person }
fact UsesPred { hasSome[] }
`
	b, ctx, st := buildPipeline(t, src, laminar.CommandScope{HasDefault: true, Default: 2})

	b.Assert(ctx.EncodeFormula(0, factBody(t, st, "UsesPred")))

	if !solveAny(b) {
		t.Fatal("calling a predicate asserting `some Person` should stay satisfiable")
	}
}
