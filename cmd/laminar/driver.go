// Command laminar is the CLI front-end for the relational model-to-SAT
// analyzer: `analyze` type-checks a module, `run`/`check` solve one of its
// commands and print an instance or counterexample (§6).
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	laminar "github.com/AlchemicalChef/MacAlloy-sub001"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/cnf"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/instance"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/satsolver"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/sema"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/translate"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/universe"

	"go.uber.org/zap"
)

// Process exit codes, per §6's CLI contract.
const (
	exitOK            = 0
	exitAnalyzeErrors = 2
	exitUnsat         = 10
	exitUnknown       = 20
)

// Driver wires the full pipeline — lexer, parser, sema, universe/bounds,
// translate, cnf, satsolver, instance — behind the three CLI verbs (§4.10).
// One Driver is reused across an invocation's single command; it owns no
// state that outlives a call to Analyze/Execute.
type Driver struct {
	Log    *zap.Logger
	Oracle satsolver.Oracle
	Plain  bool
}

// NewDriver returns a Driver backed by the default gini oracle.
func NewDriver(log *zap.Logger, plain bool) *Driver {
	return &Driver{Log: log, Oracle: satsolver.NewGiniOracle(), Plain: plain}
}

// CommandRequest names which run/check command to execute, and the CLI's
// overrides of its own `but ...` scope annotation.
type CommandRequest struct {
	Name  string // --cmd; "" picks the module's first command of the right kind
	Check bool

	Scope, Steps, IntBits             int
	HasScope, HasSteps, HasIntBits    bool

	DIMACS bool
}

// frontend performs §4.10 steps 1's lex/parse and the semantic analyzer,
// shared by every verb.
func (d *Driver) frontend(path string) (*laminar.Module, *sema.SymbolTable, *laminar.Diagnostics, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, err
	}

	d.Log.Debug("lex+parse", zap.String("path", path))

	mod, diags := laminar.Parse(path, string(src))
	if diags.HasErrors() {
		return mod, nil, diags, nil
	}

	d.Log.Debug("analyze")

	st, semaDiags := sema.Analyze(mod)
	diags.Merge(semaDiags)

	return mod, st, diags, nil
}

// Analyze runs the front-end alone: `laminar analyze`.
func (d *Driver) Analyze(path string) (diags *laminar.Diagnostics, err error) {
	defer recoverInternal(&err)

	_, _, diags, err = d.frontend(path)
	return diags, err
}

// recoverInternal is the one place in the pipeline an *laminar.InternalError
// panic (§7's "internal invariant violations ... terminate with an
// assertion failure") is caught and turned into a returned error; any other
// panic keeps unwinding.
func recoverInternal(err *error) {
	r := recover()
	if r == nil {
		return
	}

	if ie, ok := r.(*laminar.InternalError); ok {
		*err = ie
		return
	}

	panic(r)
}

// Execute performs §4.10 steps 2-8 for one run/check command. It returns
// the process exit code and the text to print; err is reserved for
// operational failures (missing file, undefined command, an internal
// invariant violation) rather than model-level problems, which are
// reported as diagnostics instead.
func (d *Driver) Execute(path string, req CommandRequest) (code int, output string, err error) {
	defer recoverInternal(&err)

	mod, st, diags, err := d.frontend(path)
	if err != nil {
		return exitAnalyzeErrors, "", err
	}

	if diags.HasErrors() {
		return exitAnalyzeErrors, formatDiagnostics(diags, d.Plain), nil
	}

	cmd, err := findCommand(st, req)
	if err != nil {
		return exitAnalyzeErrors, "", err
	}

	scope := cmd.Scope

	if cfg, err := laminar.LoadConfig(filepath.Dir(path)); err == nil {
		if !scope.HasDefault {
			scope.HasDefault, scope.Default = true, cfg.DefaultScope
		}

		if !scope.HasIntBits {
			scope.HasIntBits, scope.IntBits = true, cfg.DefaultIntBits
		}
	}

	if req.HasScope {
		scope.HasDefault, scope.Default = true, req.Scope
	}

	if req.HasSteps {
		scope.HasSteps, scope.Steps = true, req.Steps
	}

	if req.HasIntBits {
		scope.HasIntBits, scope.IntBits = true, req.IntBits
	}

	d.Log.Debug("bounds", zap.String("cmd", req.Name))

	u, bounds := universe.Build(mod, st, scope, diags)
	if diags.HasErrors() {
		return exitAnalyzeErrors, formatDiagnostics(diags, d.Plain), nil
	}

	steps := 1
	if scope.HasSteps && scope.Steps > 0 {
		steps = scope.Steps
	}

	bw := 4
	if scope.HasIntBits && scope.IntBits > 0 {
		bw = scope.IntBits
	}

	b := cnf.NewBuilder()
	tctx := translate.NewContext(b, u, bounds, st, bw, steps)

	d.Log.Debug("translate", zap.Int("steps", steps))

	b.Assert(tctx.EncodeStructural())
	assertFactsAndSigFacts(b, tctx, st)

	formula, err := commandFormula(st, cmd)
	if err != nil {
		return exitAnalyzeErrors, "", err
	}

	for s := 0; s < tctx.L; s++ {
		target := tctx.EncodeFormula(s, formula)
		if req.Check {
			target = cnf.Not(target)
		}

		b.Assert(target)
	}

	if req.DIMACS {
		var sb strings.Builder
		if err := b.WriteDIMACS(&sb); err != nil {
			return exitAnalyzeErrors, "", err
		}

		return exitOK, sb.String(), nil
	}

	d.Log.Debug("solve", zap.Int32("vars", b.NumVars()), zap.Int("clauses", len(b.Clauses)))

	result, assignment := d.Oracle.Solve(b.NumVars(), dimacsClauses(b.Clauses))

	switch result {
	case satsolver.Sat:
		d.Log.Debug("extract")

		inst := instance.Extract(tctx, assignment)
		heading := instance.Heading(headingFor(req), d.Plain)

		return exitOK, heading + "\n" + inst.Render(d.Plain), nil

	case satsolver.Unsat:
		if req.Check {
			return exitUnsat, "no counterexample found; assertion holds", nil
		}

		return exitUnsat, "no instance found", nil

	default:
		return exitUnknown, "unknown", nil
	}
}

// assertFactsAndSigFacts conjoins every standalone fact and every
// signature's own fact block at each trace state (§4.9's "implicitly
// conjoined across all states" rule for non-temporal constraints).
func assertFactsAndSigFacts(b *cnf.Builder, ctx *translate.Context, st *sema.SymbolTable) {
	for s := 0; s < ctx.L; s++ {
		for _, f := range st.Facts {
			b.Assert(ctx.EncodeFormula(s, f.Body))
		}

		for _, name := range st.SigOrder {
			sig, ok := st.Sigs[name]
			if !ok || sig.Decl == nil || sig.IsEnum {
				continue
			}

			for _, ff := range sig.Decl.Facts {
				b.Assert(ctx.EncodeSigFact(s, sig, ff))
			}
		}
	}
}

// findCommand resolves req against st.Commands: an explicit --cmd NAME
// matches a command's own Label or its Target, an omitted name picks the
// first command of the requested kind.
func findCommand(st *sema.SymbolTable, req CommandRequest) (*laminar.Command, error) {
	wantKind := laminar.CommandRun
	if req.Check {
		wantKind = laminar.CommandCheck
	}

	if req.Name != "" {
		for _, c := range st.Commands {
			if c.Label == req.Name || c.Target == req.Name {
				return c, nil
			}
		}

		return nil, fmt.Errorf("no %s command named %q", kindWord(req.Check), req.Name)
	}

	for _, c := range st.Commands {
		if c.Kind == wantKind {
			return c, nil
		}
	}

	return nil, fmt.Errorf("module declares no %s command", kindWord(req.Check))
}

// commandFormula resolves a Command's Target/Inline to the concrete
// formula to encode, mirroring sema.checkCommand's own resolution order:
// inline body first, then a predicate call, then a bare assertion body.
func commandFormula(st *sema.SymbolTable, cmd *laminar.Command) (laminar.Formula, error) {
	if cmd.Inline != nil {
		return cmd.Inline, nil
	}

	if _, ok := st.Preds[cmd.Target]; ok {
		return &laminar.CallFormula{Name: cmd.Target, Args: cmd.Args}, nil
	}

	if assert, ok := st.Asserts[cmd.Target]; ok {
		return assert.Body, nil
	}

	return nil, fmt.Errorf("undefined predicate or assertion %q", cmd.Target)
}

func kindWord(check bool) string {
	if check {
		return "check"
	}

	return "run"
}

func headingFor(req CommandRequest) string {
	verb := "run"
	if req.Check {
		verb = "check"
	}

	if req.Name != "" {
		return fmt.Sprintf("instance for %s %s", verb, req.Name)
	}

	return fmt.Sprintf("instance for %s", verb)
}

func dimacsClauses(clauses []cnf.Clause) [][]int32 {
	out := make([][]int32, len(clauses))

	for i, cl := range clauses {
		lits := make([]int32, len(cl))
		for j, l := range cl {
			lits[j] = int32(l)
		}

		out[i] = lits
	}

	return out
}
