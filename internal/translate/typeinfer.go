package translate

import laminar "github.com/AlchemicalChef/MacAlloy-sub001"

// typeOf is a trimmed, evaluation-time twin of sema's typeOfExpr: it only
// resolves enough static type information to disambiguate the right-hand
// side of a `.` join (§4.7's "a bare field name on the right is a
// reference to that field on the left operand's own signature"). The
// program has already been type-checked by the time translate runs, so
// this never needs to diagnose anything — only to follow the same
// resolution order sema used.
func (ctx *Context) typeOf(e laminar.Expr) laminar.Type {
	switch n := e.(type) {
	case *laminar.NameExpr:
		if v, ok := ctx.cur.lookup(n.Name); ok {
			return v.Type
		}

		if owner := ctx.cur.owningSig(); owner != nil {
			if fi := findField(owner, n.Name); fi != nil {
				if n.Suppressed {
					return fi.Type
				}

				return fieldValueType(fi)
			}
		}

		if sig, ok := ctx.St.Sig(n.Name); ok {
			return laminar.TypeSig(sig)
		}

		return laminar.TypeUnknown(1)

	case *laminar.BuiltinExpr:
		switch n.Name {
		case laminar.BuiltinUniv:
			return laminar.TypeUniv
		case laminar.BuiltinNone:
			return laminar.TypeNone
		case laminar.BuiltinIden:
			return laminar.TypeIden
		case laminar.BuiltinInt:
			return laminar.TypeInt
		case laminar.BuiltinThis:
			if v, ok := ctx.cur.lookup(laminar.BuiltinThis); ok {
				return v.Type
			}
		}

		return laminar.TypeUnknown(1)

	case *laminar.IntLitExpr:
		return laminar.TypeInt

	case *laminar.MultExpr:
		return ctx.typeOf(n.X)

	case *laminar.PrimeExpr:
		return ctx.typeOf(n.X)

	case *laminar.BinaryExpr:
		if n.Op == "." {
			left := ctx.typeOf(n.Left)
			return ctx.typeOfJoinRight(left, n.Right)
		}

		return laminar.TypeUnknown(2)

	case *laminar.UnaryExpr:
		if n.Op == "#" {
			return laminar.TypeInt
		}

		return laminar.TypeUnknown(2)

	default:
		return laminar.TypeUnknown(1)
	}
}

func (ctx *Context) typeOfJoinRight(left laminar.Type, e laminar.Expr) laminar.Type {
	if prime, ok := e.(*laminar.PrimeExpr); ok {
		return ctx.typeOfJoinRight(left, prime.X)
	}

	if name, ok := e.(*laminar.NameExpr); ok && !name.Suppressed && left.Kind == laminar.KindSig && left.Sig != nil {
		if fi := findField(left.Sig, name.Name); fi != nil {
			return fi.Type
		}
	}

	return ctx.typeOf(e)
}

// fieldValueType drops a field's leading owner column — what a bare,
// auto-expanded reference to the field actually denotes.
func fieldValueType(fi *laminar.FieldInfo) laminar.Type {
	if len(fi.Type.Cols) <= 1 {
		return laminar.TypeNone
	}

	return laminar.TypeRelation(fi.Type.Cols[1:]...)
}
