package translate

import (
	laminar "github.com/AlchemicalChef/MacAlloy-sub001"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/cnf"
	"github.com/AlchemicalChef/MacAlloy-sub001/internal/kernel"
)

// EncodeExpr walks an expression AST node at trace state s and returns the
// BooleanMatrix it denotes (§4.7).
func (ctx *Context) EncodeExpr(s int, e laminar.Expr) *kernel.BooleanMatrix {
	switch n := e.(type) {
	case *laminar.NameExpr:
		return ctx.encodeName(s, n)

	case *laminar.BuiltinExpr:
		return ctx.encodeBuiltin(s, n)

	case *laminar.IntLitExpr:
		return ctx.encodeIntLit(n.Value)

	case *laminar.BinaryExpr:
		return ctx.encodeBinaryExpr(s, n)

	case *laminar.UnaryExpr:
		return ctx.encodeUnary(s, n)

	case *laminar.MultExpr:
		return ctx.EncodeExpr(s, n.X)

	case *laminar.PrimeExpr:
		return ctx.encodePrime(s, n)

	case *laminar.BoxJoinExpr:
		return ctx.encodeBoxJoin(s, n)

	case *laminar.ComprehensionExpr:
		return ctx.encodeComprehension(s, n)

	case *laminar.LetExpr:
		return ctx.encodeLetExpr(s, n)

	case *laminar.IfExpr:
		return ctx.encodeIfExpr(s, n)

	case *laminar.BlockExpr:
		return ctx.encodeBlockExpr(s, n)

	default:
		return kernel.NewMatrix(1, ctx.U.Size())
	}
}

// encodeName resolves a bare name in the order §4.7 prescribes: local
// bindings, signature-fact auto-expansion (`this.field` unless `@`
// suppressed, the bare field relation when `@`-suppressed), then
// signature. An enum value is an ordinary signature here. A field is found
// only through the enclosing owner; any other unresolved name yields an
// empty matrix.
func (ctx *Context) encodeName(s int, n *laminar.NameExpr) *kernel.BooleanMatrix {
	if v, ok := ctx.cur.lookup(n.Name); ok {
		return v.Matrix
	}

	if owner := ctx.cur.owningSig(); owner != nil {
		if fi := findField(owner, n.Name); fi != nil {
			if n.Suppressed {
				return ctx.FieldMatrix(fi, s)
			}

			this, _ := ctx.cur.lookup(laminar.BuiltinThis)
			joined, _ := kernel.Join(ctx.B, this.Matrix, ctx.FieldMatrix(fi, s))

			return joined
		}
	}

	if sig, ok := ctx.St.Sig(n.Name); ok {
		return ctx.SigMatrix(sig, s)
	}

	return kernel.NewMatrix(1, ctx.U.Size())
}

func (ctx *Context) encodeBuiltin(s int, n *laminar.BuiltinExpr) *kernel.BooleanMatrix {
	u := ctx.U.Size()

	switch n.Name {
	case laminar.BuiltinUniv:
		return kernel.Const(1, u, cnf.True)
	case laminar.BuiltinNone:
		return kernel.NewMatrix(1, u)
	case laminar.BuiltinIden:
		return kernel.Identity(u)
	case laminar.BuiltinInt:
		m := kernel.NewMatrix(1, u)
		for _, a := range ctx.U.IntAtoms() {
			m.Set([]int32{a.Index}, cnf.True)
		}

		return m
	case laminar.BuiltinThis:
		if v, ok := ctx.cur.lookup(laminar.BuiltinThis); ok {
			return v.Matrix
		}
	}

	return kernel.NewMatrix(1, u)
}

func (ctx *Context) encodeIntLit(v int64) *kernel.BooleanMatrix {
	m := kernel.NewMatrix(1, ctx.U.Size())
	if ctx.U.Ints == nil {
		return m
	}

	if a, ok := ctx.U.Ints.Atom(v); ok {
		m.Set([]int32{a.Index}, cnf.True)
	}

	return m
}

func (ctx *Context) encodePrime(s int, n *laminar.PrimeExpr) *kernel.BooleanMatrix {
	switch x := n.X.(type) {
	case *laminar.NameExpr:
		if sig, ok := ctx.St.Sig(x.Name); ok {
			if mats, ok := ctx.sigMatrices[sig]; ok && len(mats) > 1 {
				return ctx.nextMatrix(mats, s)
			}
		}

		if owner := ctx.cur.owningSig(); owner != nil {
			if fi := findField(owner, x.Name); fi != nil {
				if mats, ok := ctx.fieldMatrices[fi]; ok && len(mats) > 1 {
					next := ctx.nextMatrix(mats, s)
					this, _ := ctx.cur.lookup(laminar.BuiltinThis)
					joined, _ := kernel.Join(ctx.B, this.Matrix, next)

					return joined
				}
			}
		}

	case *laminar.BuiltinExpr:
		if x.Name == laminar.BuiltinThis {
			return ctx.EncodeExpr(s, x)
		}
	}

	return ctx.EncodeExpr(s, n.X)
}

func (ctx *Context) encodeUnary(s int, n *laminar.UnaryExpr) *kernel.BooleanMatrix {
	switch n.Op {
	case "~":
		return kernel.Transpose(ctx.EncodeExpr(s, n.X))
	case "^":
		return kernel.TransitiveClosure(ctx.B, ctx.EncodeExpr(s, n.X))
	case "*":
		return kernel.ReflexiveTransitiveClosure(ctx.B, ctx.EncodeExpr(s, n.X))
	case "#":
		x := ctx.EncodeExpr(s, n.X)
		card := kernel.Cardinality(ctx.B, x.Cells(), ctx.BitWidth)

		return ctx.bitVectorToMatrix(card)
	default:
		return ctx.EncodeExpr(s, n.X)
	}
}

// encodeBinaryExpr dispatches `.` to join, `+`/`-` to either relational
// union/difference or integer add/sub (by operand type), and the
// remaining relational operators to their matrix ops.
func (ctx *Context) encodeBinaryExpr(s int, n *laminar.BinaryExpr) *kernel.BooleanMatrix {
	if n.Op == "." {
		return ctx.encodeJoin(s, n)
	}

	switch n.Op {
	case "+":
		if ctx.typeOf(n.Left).Kind == laminar.KindInt && ctx.typeOf(n.Right).Kind == laminar.KindInt {
			return ctx.encodeIntBinary(s, n.Left, n.Right, kernel.Add)
		}

		return kernel.Union(ctx.B, ctx.EncodeExpr(s, n.Left), ctx.EncodeExpr(s, n.Right))

	case "-":
		if ctx.typeOf(n.Left).Kind == laminar.KindInt && ctx.typeOf(n.Right).Kind == laminar.KindInt {
			return ctx.encodeIntBinary(s, n.Left, n.Right, kernel.Sub)
		}

		return kernel.Difference(ctx.B, ctx.EncodeExpr(s, n.Left), ctx.EncodeExpr(s, n.Right))

	case "&":
		return kernel.Intersect(ctx.B, ctx.EncodeExpr(s, n.Left), ctx.EncodeExpr(s, n.Right))

	case "++":
		return kernel.Override(ctx.B, ctx.EncodeExpr(s, n.Left), ctx.EncodeExpr(s, n.Right))

	case "->":
		return kernel.Product(ctx.B, ctx.EncodeExpr(s, n.Left), ctx.EncodeExpr(s, n.Right))

	case "<:":
		return ctx.domainRestrict(ctx.EncodeExpr(s, n.Left), ctx.EncodeExpr(s, n.Right))

	case ":>":
		return ctx.rangeRestrict(ctx.EncodeExpr(s, n.Left), ctx.EncodeExpr(s, n.Right))

	default:
		return ctx.EncodeExpr(s, n.Left)
	}
}

func (ctx *Context) encodeIntBinary(s int, left, right laminar.Expr, op func(*cnf.Builder, *kernel.BitVector, *kernel.BitVector) *kernel.BitVector) *kernel.BooleanMatrix {
	a := ctx.sumInts(ctx.EncodeExpr(s, left))
	b := ctx.sumInts(ctx.EncodeExpr(s, right))

	return ctx.bitVectorToMatrix(op(ctx.B, a, b))
}

func (ctx *Context) domainRestrict(set, rel *kernel.BooleanMatrix) *kernel.BooleanMatrix {
	full := kernel.Const(rel.Arity-1, rel.U, cnf.True)

	return kernel.Intersect(ctx.B, rel, kernel.Product(ctx.B, set, full))
}

func (ctx *Context) rangeRestrict(rel, set *kernel.BooleanMatrix) *kernel.BooleanMatrix {
	full := kernel.Const(rel.Arity-1, rel.U, cnf.True)

	return kernel.Intersect(ctx.B, rel, kernel.Product(ctx.B, full, set))
}

// encodeJoin handles `.`'s right-operand disambiguation (§4.7): a bare
// field name on the right names that field on the left operand's own
// signature, not an auto-expanded `this.field`.
func (ctx *Context) encodeJoin(s int, n *laminar.BinaryExpr) *kernel.BooleanMatrix {
	left := ctx.EncodeExpr(s, n.Left)
	leftType := ctx.typeOf(n.Left)

	right := n.Right
	if prime, ok := right.(*laminar.PrimeExpr); ok {
		if name, ok := prime.X.(*laminar.NameExpr); ok && !name.Suppressed && leftType.Kind == laminar.KindSig && leftType.Sig != nil {
			if fi := findField(leftType.Sig, name.Name); fi != nil {
				next := ctx.nextMatrix(ctx.fieldMatrices[fi], s)
				joined, _ := kernel.Join(ctx.B, left, next)

				return joined
			}
		}
	}

	if name, ok := right.(*laminar.NameExpr); ok && !name.Suppressed && leftType.Kind == laminar.KindSig && leftType.Sig != nil {
		if fi := findField(leftType.Sig, name.Name); fi != nil {
			joined, _ := kernel.Join(ctx.B, left, ctx.FieldMatrix(fi, s))

			return joined
		}
	}

	rightM := ctx.EncodeExpr(s, right)
	joined, _ := kernel.Join(ctx.B, left, rightM)

	return joined
}

// encodeBoxJoin desugars `e[a1, ..., an]` as `an ⋈ ... ⋈ a1 ⋈ e` (§4.7),
// unless `e` is one of laminar.BuiltinIntFuncs, in which case it calls the
// bit-vector arithmetic library directly.
func (ctx *Context) encodeBoxJoin(s int, n *laminar.BoxJoinExpr) *kernel.BooleanMatrix {
	if name, ok := n.Fn.(*laminar.NameExpr); ok {
		if m, handled := ctx.encodeBuiltinIntCall(s, name.Name, n.Args); handled {
			return m
		}
	}

	result := ctx.EncodeExpr(s, n.Fn)
	for _, argExpr := range n.Args {
		arg := ctx.EncodeExpr(s, argExpr)
		result, _ = kernel.Join(ctx.B, arg, result)
	}

	return result
}

func (ctx *Context) encodeBuiltinIntCall(s int, name string, args []laminar.Expr) (*kernel.BooleanMatrix, bool) {
	arity, isBuiltin := laminar.BuiltinIntFuncs[name]
	if !isBuiltin || len(args) != arity {
		return nil, false
	}

	if _, shadowed := ctx.St.Funcs[name]; shadowed {
		return nil, false
	}

	if _, shadowed := ctx.St.Sig(name); shadowed {
		return nil, false
	}

	a := ctx.sumInts(ctx.EncodeExpr(s, args[0]))

	var result *kernel.BitVector

	if arity == 1 {
		switch name {
		case "abs":
			result = kernel.Abs(ctx.B, a)
		}
	} else {
		b := ctx.sumInts(ctx.EncodeExpr(s, args[1]))

		switch name {
		case "add":
			result = kernel.Add(ctx.B, a, b)
		case "sub":
			result = kernel.Sub(ctx.B, a, b)
		case "mul":
			result = kernel.Mul(ctx.B, a, b)
		case "div":
			result, _ = kernel.DivRem(ctx.B, a, b)
		case "rem":
			_, result = kernel.DivRem(ctx.B, a, b)
		case "shl":
			result = kernel.Shl(ctx.B, a, b)
		case "shr":
			result = kernel.Shr(ctx.B, a, b)
		case "sha":
			result = kernel.Sha(ctx.B, a, b)
		}
	}

	if result == nil {
		return kernel.NewMatrix(1, ctx.U.Size()), true
	}

	return ctx.bitVectorToMatrix(result), true
}

func (ctx *Context) encodeComprehension(s int, n *laminar.ComprehensionExpr) *kernel.BooleanMatrix {
	vars := flattenDecls(ctx, s, n.Decls)
	arity := len(vars)
	out := kernel.NewMatrix(arity, ctx.U.Size())

	enumerate(ctx, vars, func(assignment []assignedVar) {
		tuple := make([]int32, arity)
		for i, av := range assignment {
			tuple[i] = av.atom
		}

		prev := ctx.pushLexical(bindingsFor(assignment))
		body := cnf.And(membershipAll(assignment), ctx.EncodeFormula(s, n.Body))
		ctx.pop(prev)

		out.Set(tuple, normalizeCell(ctx.B, body))
	})

	return out
}

func (ctx *Context) encodeLetExpr(s int, n *laminar.LetExpr) *kernel.BooleanMatrix {
	vars := make(map[string]binding, len(n.Bindings))
	for _, b := range n.Bindings {
		vars[b.Name] = binding{Type: ctx.typeOf(b.Value), Matrix: ctx.EncodeExpr(s, b.Value)}
	}

	prev := ctx.pushLexical(vars)
	result := ctx.EncodeExpr(s, n.Body)
	ctx.pop(prev)

	return result
}

func (ctx *Context) encodeIfExpr(s int, n *laminar.IfExpr) *kernel.BooleanMatrix {
	cond := ctx.EncodeFormula(s, n.Cond)
	thenM := ctx.EncodeExpr(s, n.Then)
	elseM := ctx.EncodeExpr(s, n.Else)

	out := kernel.NewMatrix(thenM.Arity, thenM.U)
	for i := 0; i < out.Len(); i++ {
		t := tupleOf(i, thenM.Arity, thenM.U)
		ite := cnf.Ite(cond, thenM.At(t), elseM.At(t))
		out.Set(t, normalizeCell(ctx.B, ite))
	}

	return out
}

func (ctx *Context) encodeBlockExpr(s int, n *laminar.BlockExpr) *kernel.BooleanMatrix {
	var conj []*cnf.BooleanFormula
	for _, f := range n.Formulas {
		conj = append(conj, ctx.EncodeFormula(s, f))
	}

	all := cnf.And(conj...)

	return ctx.matrixFromBool(all)
}

func (ctx *Context) matrixFromBool(f *cnf.BooleanFormula) *kernel.BooleanMatrix {
	if f.Kind == cnf.KConst && f.BoolVal {
		return kernel.Const(1, ctx.U.Size(), cnf.True)
	}

	if f.Kind == cnf.KConst {
		return kernel.NewMatrix(1, ctx.U.Size())
	}

	lit := cnf.FromLit(ctx.B.Encode(f))
	m := kernel.NewMatrix(1, ctx.U.Size())

	for i := 0; i < ctx.U.Size(); i++ {
		m.Set([]int32{int32(i)}, lit)
	}

	return m
}

// sumInts bridges a unary integer-atom matrix to a BitVector via §4.6's
// implicit-sum rule.
func (ctx *Context) sumInts(m *kernel.BooleanMatrix) *kernel.BitVector {
	if ctx.U.Ints == nil {
		return kernel.ConstBitVector(0, ctx.BitWidth)
	}

	return kernel.SumInts(ctx.B, m, ctx.U.Ints, ctx.BitWidth)
}

// bitVectorToMatrix folds cardinality/arithmetic results back to a
// singleton integer-atom matrix (§4.6, §4.7's cardinality bullet).
func (ctx *Context) bitVectorToMatrix(bv *kernel.BitVector) *kernel.BooleanMatrix {
	m := kernel.NewMatrix(1, ctx.U.Size())
	if ctx.U.Ints == nil {
		return m
	}

	for v := ctx.U.Ints.Min(); v <= ctx.U.Ints.Max(); v++ {
		atom, ok := ctx.U.Ints.Atom(v)
		if !ok {
			continue
		}

		eq := bitsEqualConst(bv, v)
		m.Set([]int32{atom.Index}, normalizeCell(ctx.B, eq))
	}

	return m
}

func bitsEqualConst(bv *kernel.BitVector, v int64) *cnf.BooleanFormula {
	c := kernel.ConstBitVector(v, len(bv.Bits))

	conj := make([]*cnf.BooleanFormula, len(bv.Bits))
	for i := range bv.Bits {
		conj[i] = cnf.Iff(bv.Bits[i], c.Bits[i])
	}

	return cnf.And(conj...)
}
