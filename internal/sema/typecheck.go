package sema

import (
	laminar "github.com/AlchemicalChef/MacAlloy-sub001"
)

// checkBodies is passes 3 and 4 combined: type-check every expression and
// formula per §3's lattice and §4.3's arity rules, and validate temporal
// operator and priming usage (§4.9) in the same walk, since both need the
// same scope chain as they descend.
func (a *Analyzer) checkBodies() {
	for _, info := range a.st.Sigs {
		if info.Decl == nil || info.IsEnum {
			continue
		}

		scope := newScope(ScopeSignature, a.moduleScope())
		scope.Owner = info
		scope.define(laminar.BuiltinThis, laminar.TypeSig(info), info.Decl.Span())

		for _, f := range info.Decl.Facts {
			a.checkFormula(scope, f)
		}
	}

	for _, fact := range a.st.Facts {
		a.checkFormula(a.moduleScope(), fact.Body)
	}

	for _, pred := range a.st.Preds {
		scope := a.paramScope(ScopePredicate, pred.Receiver, pred.Params)
		a.checkFormula(scope, pred.Body)
	}

	for _, fun := range a.st.Funcs {
		scope := a.paramScope(ScopeFunction, fun.Receiver, fun.Params)
		retType := a.typeOfExpr(scope, fun.RetType)
		bodyType := a.typeOfExpr(scope, fun.Body)

		if !compatibleArity(retType, bodyType) {
			a.diags.Errorf(fun.Body.Span(), laminar.CodeArityMismatch,
				"function %q body has arity %d, declared return arity %d", fun.Name, bodyType.Arity(), retType.Arity())
		}
	}

	for _, assert := range a.st.Asserts {
		a.checkFormula(a.moduleScope(), assert.Body)
	}

	for _, cmd := range a.st.Commands {
		a.checkCommand(cmd)
	}
}

// paramScope builds the scope for a predicate/function body: the receiver
// (if any) bound as `this`, its fields in scope by bare name, and each
// parameter bound to its declared type.
func (a *Analyzer) paramScope(kind ScopeKind, receiver string, params []*laminar.ParamDecl) *Scope {
	scope := newScope(kind, a.moduleScope())

	if receiver != "" {
		if owner, ok := a.st.Sig(receiver); ok {
			scope.Owner = owner
			scope.define(laminar.BuiltinThis, laminar.TypeSig(owner), owner.Decl.Span())
		}
	}

	for _, pd := range params {
		typ := a.typeOfExpr(scope, pd.Type)
		for _, n := range pd.Names {
			scope.define(n, typ, pd.Span())
		}
	}

	return scope
}

func (a *Analyzer) checkCommand(cmd *laminar.Command) {
	scope := a.moduleScope()

	usesTemporal := false

	if cmd.Inline != nil {
		usesTemporal = formulaUsesTemporal(cmd.Inline)
		a.checkFormula(scope, cmd.Inline)
	}

	if cmd.Target != "" {
		if pred, ok := a.st.Preds[cmd.Target]; ok {
			usesTemporal = formulaUsesTemporal(pred.Body)
		} else if assert, ok := a.st.Asserts[cmd.Target]; ok {
			usesTemporal = formulaUsesTemporal(assert.Body)
		} else {
			a.diags.Errorf(cmd.Span(), laminar.CodeUndefinedPredicate,
				"undefined predicate or assertion %q", cmd.Target)
		}

		for _, arg := range cmd.Args {
			a.typeOfExpr(scope, arg)
		}
	}

	if usesTemporal && !cmd.Scope.HasSteps {
		a.diags.Errorf(cmd.Span(), laminar.CodeMissingSteps,
			"command uses temporal operators but declares no `but N steps` scope")
	}
}

func formulaUsesTemporal(f laminar.Formula) bool {
	switch n := f.(type) {
	case *laminar.TemporalUnaryFormula, *laminar.TemporalBinaryFormula:
		return true
	case *laminar.BinaryFormula:
		return formulaUsesTemporal(n.Left) || formulaUsesTemporal(n.Right)
	case *laminar.NotFormula:
		return formulaUsesTemporal(n.X)
	case *laminar.QuantFormula:
		return formulaUsesTemporal(n.Body)
	case *laminar.LetFormula:
		return formulaUsesTemporal(n.Body)
	case *laminar.IfFormula:
		return formulaUsesTemporal(n.Cond) || formulaUsesTemporal(n.Then) || formulaUsesTemporal(n.Else)
	case *laminar.BlockFormula:
		for _, sub := range n.Formulas {
			if formulaUsesTemporal(sub) {
				return true
			}
		}

		return false
	default:
		return false
	}
}

// compatibleArity treats Unknown/Error types as wildcards so that a single
// unresolved sub-expression doesn't cascade into unrelated diagnostics.
func compatibleArity(a, b laminar.Type) bool {
	if a.IsError() || b.IsError() || a.Kind == laminar.KindUnknown || b.Kind == laminar.KindUnknown {
		return true
	}

	return a.Arity() == b.Arity()
}

// ----------------------------------------------------------------------------
// Formulas
// ----------------------------------------------------------------------------

func (a *Analyzer) checkFormula(scope *Scope, f laminar.Formula) {
	switch n := f.(type) {
	case nil:
		return

	case *laminar.BinaryFormula:
		a.checkFormula(scope, n.Left)
		a.checkFormula(scope, n.Right)

	case *laminar.NotFormula:
		a.checkFormula(scope, n.X)

	case *laminar.TemporalUnaryFormula:
		a.checkFormula(scope, n.X)

	case *laminar.TemporalBinaryFormula:
		a.checkFormula(scope, n.Left)
		a.checkFormula(scope, n.Right)

	case *laminar.QuantFormula:
		inner := newScope(ScopeQuantifier, scope)
		for _, d := range n.Decls {
			typ := a.typeOfExpr(scope, d.Type)
			for _, name := range d.Names {
				inner.define(name, typ, d.Span())
			}
		}
		a.checkFormula(inner, n.Body)

	case *laminar.LetFormula:
		inner := newScope(ScopeLet, scope)
		for _, b := range n.Bindings {
			typ := a.typeOfExpr(inner, b.Value)
			inner.define(b.Name, typ, b.Span())
		}
		a.checkFormula(inner, n.Body)

	case *laminar.IfFormula:
		a.checkFormula(scope, n.Cond)
		a.checkFormula(scope, n.Then)
		a.checkFormula(scope, n.Else)

	case *laminar.CompareFormula:
		left := a.typeOfExpr(scope, n.Left)
		right := a.typeOfExpr(scope, n.Right)
		a.checkCompare(n, left, right)

	case *laminar.MultFormula:
		t := a.typeOfExpr(scope, n.X)
		if !t.IsError() && t.Kind != laminar.KindUnknown && t.Arity() < 1 {
			a.diags.Errorf(n.Span(), laminar.CodeExpectRelation, "multiplicity test requires a relation, got %s", t)
		}

	case *laminar.CallFormula:
		a.checkCall(scope, n)

	case *laminar.BlockFormula:
		for _, sub := range n.Formulas {
			a.checkFormula(scope, sub)
		}

	case *laminar.ExprFormula:
		a.typeOfExpr(scope, n.X)

	default:
		a.diags.Errorf(f.Span(), laminar.CodeExpectFormula, "unrecognized formula node")
	}
}

func (a *Analyzer) checkCompare(n *laminar.CompareFormula, left, right laminar.Type) {
	switch n.Op {
	case "=", "!=", "in", "not in":
		if !compatibleArity(left, right) {
			a.diags.Errorf(n.Span(), laminar.CodeInvalidCompare,
				"cannot compare arity-%d and arity-%d relations with %q", left.Arity(), right.Arity(), n.Op)
		}

	case "<", "<=", ">", ">=":
		if !isIntLike(left) || !isIntLike(right) {
			a.diags.Errorf(n.Span(), laminar.CodeExpectInteger, "ordering comparison %q requires Int operands", n.Op)
		}

	default:
		a.diags.Errorf(n.Span(), laminar.CodeInvalidCompare, "unknown comparison operator %q", n.Op)
	}
}

func isIntLike(t laminar.Type) bool {
	return t.Kind == laminar.KindInt || t.Kind == laminar.KindUnknown || t.IsError()
}

func (a *Analyzer) checkCall(scope *Scope, n *laminar.CallFormula) {
	if n.Receiver != nil {
		a.typeOfExpr(scope, n.Receiver)
	}

	key := n.Name
	if n.Receiver != nil {
		if recv, ok := n.Receiver.(*laminar.NameExpr); ok {
			if _, isSig := a.st.Sig(recv.Name); isSig {
				key = predKey(recv.Name, n.Name)
			}
		}
	}

	pred, ok := a.st.Preds[key]
	if !ok {
		pred, ok = a.st.Preds[n.Name]
	}

	if !ok {
		a.diags.Errorf(n.Span(), laminar.CodeUndefinedPredicate, "undefined predicate %q", n.Name)

		for _, arg := range n.Args {
			a.typeOfExpr(scope, arg)
		}

		return
	}

	if len(n.Args) != len(pred.Params) {
		a.diags.Errorf(n.Span(), laminar.CodeArgCountMismatch,
			"predicate %q expects %d argument(s), got %d", n.Name, len(pred.Params), len(n.Args))
	}

	for _, arg := range n.Args {
		a.typeOfExpr(scope, arg)
	}
}

// ----------------------------------------------------------------------------
// Expressions
// ----------------------------------------------------------------------------

func (a *Analyzer) typeOfExpr(scope *Scope, e laminar.Expr) laminar.Type {
	switch n := e.(type) {
	case nil:
		return laminar.TypeError("missing expression")

	case *laminar.NameExpr:
		return a.typeOfName(scope, n)

	case *laminar.BuiltinExpr:
		return a.typeOfBuiltin(scope, n)

	case *laminar.IntLitExpr:
		return laminar.TypeInt

	case *laminar.BinaryExpr:
		return a.typeOfBinary(scope, n)

	case *laminar.UnaryExpr:
		return a.typeOfUnary(scope, n)

	case *laminar.MultExpr:
		return a.typeOfExpr(scope, n.X)

	case *laminar.PrimeExpr:
		return a.typeOfPrime(scope, n)

	case *laminar.BoxJoinExpr:
		return a.typeOfBoxJoin(scope, n)

	case *laminar.ComprehensionExpr:
		return a.typeOfComprehension(scope, n)

	case *laminar.LetExpr:
		inner := newScope(ScopeLet, scope)
		for _, b := range n.Bindings {
			typ := a.typeOfExpr(inner, b.Value)
			inner.define(b.Name, typ, b.Span())
		}

		return a.typeOfExpr(inner, n.Body)

	case *laminar.IfExpr:
		a.checkFormula(scope, n.Cond)
		then := a.typeOfExpr(scope, n.Then)
		els := a.typeOfExpr(scope, n.Else)

		if !compatibleArity(then, els) {
			a.diags.Errorf(n.Span(), laminar.CodeArityMismatch,
				"conditional branches have mismatched arity: %d vs %d", then.Arity(), els.Arity())
		}

		return then

	case *laminar.BlockExpr:
		for _, f := range n.Formulas {
			a.checkFormula(scope, f)
		}

		return laminar.TypeUniv

	default:
		a.diags.Errorf(e.Span(), laminar.CodeExpectRelation, "unrecognized expression node")

		return laminar.TypeError("unrecognized expression node")
	}
}

func (a *Analyzer) typeOfName(scope *Scope, n *laminar.NameExpr) laminar.Type {
	if v, _ := scope.lookup(n.Name); v != nil {
		return v.Type
	}

	if owner := scope.owner(); owner != nil {
		if fi := findField(owner, n.Name); fi != nil {
			// A bare field name used directly (not as the right side of an
			// explicit join) auto-expands to `this.field` (§4.7): drop the
			// owner column unless @name suppressed the expansion.
			if n.Suppressed {
				return fi.Type
			}

			return fieldValueType(fi)
		}
	}

	if sig, ok := a.st.Sig(n.Name); ok {
		return laminar.TypeSig(sig)
	}

	if isBuiltinAtomName(n.Name) {
		return builtinType(n.Name)
	}

	a.diags.Errorf(n.Span(), laminar.CodeUndefinedName, "undefined name %q", n.Name)

	return laminar.TypeError("undefined name " + n.Name)
}

func isBuiltinAtomName(name string) bool {
	switch name {
	case laminar.BuiltinUniv, laminar.BuiltinNone, laminar.BuiltinIden, laminar.BuiltinInt, laminar.BuiltinThis:
		return true
	default:
		return false
	}
}

func builtinType(name string) laminar.Type {
	switch name {
	case laminar.BuiltinUniv:
		return laminar.TypeUniv
	case laminar.BuiltinNone:
		return laminar.TypeNone
	case laminar.BuiltinIden:
		return laminar.TypeIden
	case laminar.BuiltinInt:
		return laminar.TypeInt
	default:
		return laminar.TypeUnknown(1)
	}
}

// fieldValueType drops a field's leading owner column, the type a bare
// (auto-expanded) reference to the field actually has.
func fieldValueType(fi *laminar.FieldInfo) laminar.Type {
	if len(fi.Type.Cols) <= 1 {
		return laminar.TypeNone
	}

	return laminar.TypeRelation(fi.Type.Cols[1:]...)
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

func (a *Analyzer) typeOfBuiltin(_ *Scope, n *laminar.BuiltinExpr) laminar.Type {
	return builtinType(n.Name)
}

func (a *Analyzer) typeOfBinary(scope *Scope, n *laminar.BinaryExpr) laminar.Type {
	left := a.typeOfExpr(scope, n.Left)

	if n.Op == "." {
		return a.typeOfJoin(scope, n, left)
	}

	right := a.typeOfExpr(scope, n.Right)

	switch n.Op {
	case "+", "-", "++":
		if !compatibleArity(left, right) {
			code := laminar.CodeInvalidUnion
			if n.Op == "-" {
				code = laminar.CodeInvalidIsect
			}

			a.diags.Errorf(n.Span(), code, "%q requires operands of equal arity, got %d and %d", n.Op, left.Arity(), right.Arity())

			return laminar.TypeUnknown(left.Arity())
		}

		return left

	case "&":
		if !compatibleArity(left, right) {
			a.diags.Errorf(n.Span(), laminar.CodeInvalidIsect, "intersection requires operands of equal arity, got %d and %d", left.Arity(), right.Arity())

			return laminar.TypeUnknown(left.Arity())
		}

		return left

	case "->":
		return laminar.TypeRelation(append(append([]laminar.Type{}, columnsOf(left)...), columnsOf(right)...)...)

	case "<:":
		if !left.IsError() && left.Kind != laminar.KindUnknown && left.Arity() != 1 {
			a.diags.Errorf(n.Span(), laminar.CodeExpectSet, "domain restriction requires an arity-1 left operand")
		}

		return right

	case ":>":
		if !right.IsError() && right.Kind != laminar.KindUnknown && right.Arity() != 1 {
			a.diags.Errorf(n.Span(), laminar.CodeExpectSet, "range restriction requires an arity-1 right operand")
		}

		return left

	default:
		a.diags.Errorf(n.Span(), laminar.CodeInvalidJoin, "unknown binary operator %q", n.Op)

		return laminar.TypeError("bad operator")
	}
}

// typeOfJoin resolves the right operand of a "." join specially: a bare
// field name on the right is a reference to that field *on left's own
// signature* (e.g. `p.friends`), not an auto-expanded `this.friends` — the
// join itself supplies the receiver that auto-expansion would otherwise
// have assumed.
func (a *Analyzer) typeOfJoin(scope *Scope, n *laminar.BinaryExpr, left laminar.Type) laminar.Type {
	right := a.typeOfJoinRight(scope, left, n.Right)

	if left.IsError() || right.IsError() {
		return laminar.TypeError("join of ill-typed operand")
	}

	// Unknown operands (e.g. a comprehension column whose element sig
	// couldn't be resolved) still get an arity-only check; anything with
	// concrete column types gets a full relational join so navigation
	// through a chain of joins (`p.friends.friends`) keeps tracking which
	// signature each hop lands on.
	if left.Kind == laminar.KindUnknown || right.Kind == laminar.KindUnknown {
		arity, ok := joinArityChecked(left, right)
		if !ok {
			a.diags.Errorf(n.Span(), laminar.CodeInvalidJoin,
				"cannot join arity-%d relation with arity-%d relation", left.Arity(), right.Arity())

			return laminar.TypeUnknown(1)
		}

		return laminar.TypeUnknown(arity)
	}

	lc, rc := columnsOf(left), columnsOf(right)
	if len(lc) < 1 || len(rc) < 1 || len(lc)+len(rc) < 3 {
		a.diags.Errorf(n.Span(), laminar.CodeInvalidJoin,
			"cannot join arity-%d relation with arity-%d relation", left.Arity(), right.Arity())

		return laminar.TypeUnknown(1)
	}

	joined := append(append([]laminar.Type{}, lc[:len(lc)-1]...), rc[1:]...)

	return laminar.TypeRelation(joined...)
}

func (a *Analyzer) typeOfJoinRight(scope *Scope, left laminar.Type, e laminar.Expr) laminar.Type {
	// `c.value'` parses as BinaryExpr{".", c, PrimeExpr{value}} (§4.2):
	// priming binds to the bare field name, not to the whole join, so its
	// variable-ness has to be checked against left's own signature here.
	if prime, ok := e.(*laminar.PrimeExpr); ok {
		if !isVarField(left, prime.X) {
			a.diags.Errorf(prime.Span(), laminar.CodePrimedNonVariable,
				"priming (') applies only to a variable relation or signature")
		}

		if !scope.inVarContext() {
			a.diags.Errorf(prime.Span(), laminar.CodeTemporalMisuse,
				"priming is not meaningful inside a function body")
		}

		return a.typeOfJoinRight(scope, left, prime.X)
	}

	if name, ok := e.(*laminar.NameExpr); ok && !name.Suppressed && left.Kind == laminar.KindSig && left.Sig != nil {
		if fi := findField(left.Sig, name.Name); fi != nil {
			return fi.Type
		}
	}

	return a.typeOfExpr(scope, e)
}

// isVarField reports whether e names a `var` field of left's signature,
// the case a prime directly after a join lands on.
func isVarField(left laminar.Type, e laminar.Expr) bool {
	name, ok := e.(*laminar.NameExpr)
	if !ok || left.Kind != laminar.KindSig || left.Sig == nil {
		return false
	}

	fi := findField(left.Sig, name.Name)

	return fi != nil && fi.Var
}

// joinArityChecked wraps the shared join-arity rule, treating Unknown/Error
// operands as already-diagnosed and letting the result pass through.
func joinArityChecked(left, right laminar.Type) (int, bool) {
	if left.IsError() || right.IsError() || left.Kind == laminar.KindUnknown || right.Kind == laminar.KindUnknown {
		return maxInt(left.Arity(), 1) + maxInt(right.Arity(), 1) - 2, true
	}

	m, n := left.Arity(), right.Arity()
	if m < 1 || n < 1 || m+n < 3 {
		return 0, false
	}

	return m + n - 2, true
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}

	return b
}

func (a *Analyzer) typeOfUnary(scope *Scope, n *laminar.UnaryExpr) laminar.Type {
	x := a.typeOfExpr(scope, n.X)

	switch n.Op {
	case "~":
		if !x.IsError() && x.Kind != laminar.KindUnknown && x.Arity() != 2 {
			a.diags.Errorf(n.Span(), laminar.CodeArityMismatch, "transpose (~) requires a binary relation, got arity %d", x.Arity())
		}

		return laminar.TypeUnknown(2)

	case "^", "*":
		if !x.IsError() && x.Kind != laminar.KindUnknown && x.Arity() != 2 {
			a.diags.Errorf(n.Span(), laminar.CodeArityMismatch, "closure (%s) requires a binary relation, got arity %d", n.Op, x.Arity())
		}

		return laminar.TypeUnknown(2)

	case "#":
		return laminar.TypeInt

	default:
		a.diags.Errorf(n.Span(), laminar.CodeInvalidJoin, "unknown unary operator %q", n.Op)

		return laminar.TypeError("bad operator")
	}
}

func (a *Analyzer) typeOfPrime(scope *Scope, n *laminar.PrimeExpr) laminar.Type {
	if !a.isVarExpr(scope, n.X) {
		a.diags.Errorf(n.Span(), laminar.CodePrimedNonVariable, "priming (') applies only to a variable relation or signature")
	}

	if !scope.inVarContext() {
		a.diags.Errorf(n.Span(), laminar.CodeTemporalMisuse, "priming is not meaningful inside a function body")
	}

	return a.typeOfExpr(scope, n.X)
}

// isVarExpr reports whether e directly names a `var` field or `var` sig,
// the only expressions §4.9 allows priming.
func (a *Analyzer) isVarExpr(scope *Scope, e laminar.Expr) bool {
	switch n := e.(type) {
	case *laminar.NameExpr:
		if owner := scope.owner(); owner != nil {
			if fi := findField(owner, n.Name); fi != nil {
				return fi.Var
			}
		}

		if sig, ok := a.st.Sig(n.Name); ok {
			return sig.Var
		}

		return false

	case *laminar.BuiltinExpr:
		return n.Name == laminar.BuiltinThis

	case *laminar.BinaryExpr:
		if n.Op == "." {
			return a.isVarExpr(scope, n.Right)
		}

		return false

	default:
		return false
	}
}

func (a *Analyzer) typeOfBoxJoin(scope *Scope, n *laminar.BoxJoinExpr) laminar.Type {
	if name, ok := n.Fn.(*laminar.NameExpr); ok {
		if t, handled := a.typeOfBuiltinIntCall(scope, name.Name, n); handled {
			return t
		}
	}

	fn := a.typeOfExpr(scope, n.Fn)

	result := fn
	for _, arg := range n.Args {
		argType := a.typeOfExpr(scope, arg)
		arity, ok := joinArityChecked(argType, result)
		if !ok {
			a.diags.Errorf(n.Span(), laminar.CodeInvalidJoin,
				"cannot box-join arity-%d argument with arity-%d relation", argType.Arity(), result.Arity())
			result = laminar.TypeUnknown(1)

			continue
		}

		result = laminar.TypeUnknown(arity)
	}

	return result
}

// typeOfBuiltinIntCall recognizes a box join against one of
// laminar.BuiltinIntFuncs's names (`mul[a, b]`, `abs[x]`, ...) as a call to
// the built-in bit-vector arithmetic library rather than a relational box
// join, provided the name isn't shadowed by a user pred/fun declaration.
func (a *Analyzer) typeOfBuiltinIntCall(scope *Scope, name string, n *laminar.BoxJoinExpr) (laminar.Type, bool) {
	arity, isBuiltin := laminar.BuiltinIntFuncs[name]
	if !isBuiltin {
		return laminar.Type{}, false
	}

	if _, shadowed := a.st.Funcs[name]; shadowed {
		return laminar.Type{}, false
	}

	if _, shadowed := a.st.Sigs[name]; shadowed {
		return laminar.Type{}, false
	}

	if len(n.Args) != arity {
		a.diags.Errorf(n.Span(), laminar.CodeArgCountMismatch,
			"%q expects %d argument(s), got %d", name, arity, len(n.Args))
	}

	for _, arg := range n.Args {
		a.typeOfExpr(scope, arg)
	}

	return laminar.TypeInt, true
}

func (a *Analyzer) typeOfComprehension(scope *Scope, n *laminar.ComprehensionExpr) laminar.Type {
	inner := newScope(ScopeComprehension, scope)

	var cols []laminar.Type
	for _, d := range n.Decls {
		typ := a.typeOfExpr(scope, d.Type)
		for _, name := range d.Names {
			inner.define(name, typ, d.Span())
			cols = append(cols, typ)
		}
	}

	a.checkFormula(inner, n.Body)

	return laminar.TypeRelation(cols...)
}
